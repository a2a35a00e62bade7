// Package handler exposes link administration over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"publink/internal/link/models"
	"publink/internal/link/service"
	"publink/internal/platform/httpjson"
	"publink/internal/platform/middleware"
	dErrors "publink/pkg/domain-errors"
	"publink/pkg/requestcontext"
)

type Handler struct {
	service *service.LinkService
}

func New(service *service.LinkService) *Handler {
	return &Handler{service: service}
}

// Register mounts the link admin routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/links", h.createLink)
	r.Route("/links/{linkID}", func(r chi.Router) {
		r.Get("/", h.getLink)
		r.Put("/destination", h.updateDestination)
		r.Post("/deactivate", h.deactivate)
		r.Post("/reactivate", h.reactivate)
		r.Get("/rules", h.listRules)
		r.Put("/rules", h.replaceRules)
	})
}

type createLinkRequest struct {
	ShortCode      string     `json:"short_code,omitempty"`
	DestinationURL string     `json:"destination_url"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) createLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	l, err := h.service.CreateLink(r.Context(), service.CreateLinkInput{
		ShortCode:      req.ShortCode,
		DestinationURL: req.DestinationURL,
		TenantID:       callerTenant(r),
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, l)
}

func (h *Handler) getLink(w http.ResponseWriter, r *http.Request) {
	l, err := h.ownedLink(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, l)
}

type updateDestinationRequest struct {
	DestinationURL string `json:"destination_url"`
}

func (h *Handler) updateDestination(w http.ResponseWriter, r *http.Request) {
	l, err := h.ownedLink(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	var req updateDestinationRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	updated, err := h.service.UpdateDestination(r.Context(), l.ID, req.DestinationURL)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	l, err := h.ownedLink(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	updated, err := h.service.DeactivateLink(r.Context(), l.ID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	l, err := h.ownedLink(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	updated, err := h.service.ReactivateLink(r.Context(), l.ID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

type ruleRequest struct {
	RuleType  string          `json:"rule_type"`
	Condition json.RawMessage `json:"condition"`
	TargetURL string          `json:"target_url"`
	Priority  int             `json:"priority"`
}

type replaceRulesRequest struct {
	Rules []ruleRequest `json:"rules"`
}

func (h *Handler) replaceRules(w http.ResponseWriter, r *http.Request) {
	l, err := h.ownedLink(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	var req replaceRulesRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	inputs := make([]service.RuleInput, 0, len(req.Rules))
	for _, rule := range req.Rules {
		inputs = append(inputs, service.RuleInput{
			RuleType:  rule.RuleType,
			Condition: rule.Condition,
			TargetURL: rule.TargetURL,
			Priority:  rule.Priority,
		})
	}
	rules, err := h.service.ReplaceRules(r.Context(), l.ID, inputs)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, rulesResponse(rules))
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	l, err := h.ownedLink(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	rules, err := h.service.ListRules(r.Context(), l.ID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, rulesResponse(rules))
}

type ruleResponse struct {
	ID        uuid.UUID       `json:"id"`
	RuleType  string          `json:"rule_type"`
	Condition json.RawMessage `json:"condition"`
	TargetURL string          `json:"target_url"`
	Priority  int             `json:"priority"`
	Position  int             `json:"position"`
	CreatedAt time.Time       `json:"created_at"`
}

func rulesResponse(rules []models.RoutingRule) []ruleResponse {
	out := make([]ruleResponse, 0, len(rules))
	for _, r := range rules {
		ruleType, raw, err := models.EncodeCondition(r.Condition)
		if err != nil {
			continue
		}
		out = append(out, ruleResponse{
			ID:        r.ID,
			RuleType:  ruleType,
			Condition: raw,
			TargetURL: r.TargetURL,
			Priority:  r.Priority,
			Position:  r.Position,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

// ownedLink parses the path link and enforces token scope: operators reach
// any link, tenant admins only links owned by their tenant.
func (h *Handler) ownedLink(r *http.Request) (*models.Link, error) {
	linkID, err := uuid.Parse(chi.URLParam(r, "linkID"))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid link id")
	}
	l, err := h.service.GetLink(r.Context(), linkID)
	if err != nil {
		return nil, err
	}
	if requestcontext.Role(r.Context()) == middleware.RoleOperator {
		return l, nil
	}
	callerID, ok := requestcontext.TenantID(r.Context())
	if !ok || l.TenantID == nil || *l.TenantID != callerID {
		// Hide other tenants' links entirely rather than confirming they exist.
		return nil, dErrors.New(dErrors.CodeNotFound, "link not found")
	}
	return l, nil
}

// callerTenant scopes new links to the caller's tenant; operator tokens
// without a tenant create platform links.
func callerTenant(r *http.Request) *uuid.UUID {
	if id, ok := requestcontext.TenantID(r.Context()); ok {
		return &id
	}
	return nil
}
