// Package handler exposes tenant administration over HTTP. All routes sit
// behind bearer auth; tenant-scoped tokens can only touch their own tenant.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"publink/internal/platform/httpjson"
	"publink/internal/platform/middleware"
	"publink/internal/privacy"
	"publink/internal/tenant/models"
	"publink/internal/tenant/service"
	dErrors "publink/pkg/domain-errors"
	"publink/pkg/requestcontext"
)

type Handler struct {
	service *service.TenantService
}

func New(service *service.TenantService) *Handler {
	return &Handler{service: service}
}

// Register mounts the tenant admin routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants", h.createTenant)
	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Get("/", h.getTenant)
		r.Put("/settings", h.updateSettings)
		r.Post("/deactivate", h.deactivate)
		r.Post("/reactivate", h.reactivate)
		r.Post("/domains", h.addDomain)
		r.Post("/domains/{domainID}/verify", h.verifyDomain)
	})
}

type createTenantRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type createTenantResponse struct {
	Tenant *models.Tenant `json:"tenant"`
	// APIKey is shown exactly once; only its hash is stored.
	APIKey string `json:"api_key"`
}

func (h *Handler) createTenant(w http.ResponseWriter, r *http.Request) {
	if requestcontext.Role(r.Context()) != middleware.RoleOperator {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only platform operators can create tenants"))
		return
	}
	var req createTenantRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	result, err := h.service.CreateTenant(r.Context(), req.Slug, req.Name)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, createTenantResponse{
		Tenant: result.Tenant,
		APIKey: result.APIKey,
	})
}

func (h *Handler) getTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.scopedTenantID(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	t, err := h.service.GetTenant(r.Context(), tenantID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, t)
}

type updateSettingsRequest struct {
	DomainWhitelist []string             `json:"domain_whitelist"`
	WhitelistMode   models.WhitelistMode `json:"whitelist_mode"`
	PrivacySettings privacy.Settings     `json:"privacy_settings"`
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.scopedTenantID(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	var req updateSettingsRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	t, err := h.service.UpdateSettings(r.Context(), tenantID, service.SettingsUpdate{
		DomainWhitelist: req.DomainWhitelist,
		WhitelistMode:   req.WhitelistMode,
		PrivacySettings: req.PrivacySettings,
	})
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, t)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.scopedTenantID(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	t, err := h.service.DeactivateTenant(r.Context(), tenantID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, t)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.scopedTenantID(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	t, err := h.service.ReactivateTenant(r.Context(), tenantID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, t)
}

type addDomainRequest struct {
	Domain string `json:"domain"`
}

func (h *Handler) addDomain(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.scopedTenantID(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	var req addDomainRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	d, err := h.service.AddCustomDomain(r.Context(), tenantID, req.Domain)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, d)
}

func (h *Handler) verifyDomain(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.scopedTenantID(r)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	domainID, err := uuid.Parse(chi.URLParam(r, "domainID"))
	if err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid domain id"))
		return
	}
	if err := h.service.VerifyCustomDomain(r.Context(), tenantID, domainID); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.Write(w, http.StatusNoContent, nil)
}

// scopedTenantID parses the path tenant and enforces token scope: operators
// reach any tenant, tenant admins only their own.
func (h *Handler) scopedTenantID(r *http.Request) (uuid.UUID, error) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id")
	}
	if requestcontext.Role(r.Context()) == middleware.RoleOperator {
		return tenantID, nil
	}
	callerTenant, ok := requestcontext.TenantID(r.Context())
	if !ok || callerTenant != tenantID {
		return uuid.Nil, dErrors.New(dErrors.CodeForbidden, "token is not scoped to this tenant")
	}
	return tenantID, nil
}
