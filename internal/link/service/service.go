package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"publink/internal/analytics"
	linkmetrics "publink/internal/link/metrics"
	"publink/internal/link/models"
	"publink/internal/link/safelist"
	"publink/internal/link/store"
	tenantmodels "publink/internal/tenant/models"
	dErrors "publink/pkg/domain-errors"
	"publink/pkg/platform/sentinel"
	"publink/pkg/requestcontext"
)

// TenantLookup resolves the tenant a link belongs to, so destination
// validation can apply that tenant's whitelist mode.
type TenantLookup interface {
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*tenantmodels.Tenant, error)
}

// AuditAppender records administrative actions for the audit trail.
type AuditAppender interface {
	AppendAudit(ctx context.Context, rec analytics.AuditRecord) error
}

const (
	shortCodeAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	shortCodeLength   = 7
	maxRulesPerLink   = 50
)

// LinkService orchestrates link lifecycle and routing rule management. Every
// destination, the link's own and each rule target, passes whitelist
// validation before it is stored.
type LinkService struct {
	links   store.LinkStore
	rules   store.RuleStore
	tenants TenantLookup
	audit   AuditAppender
	logger  *slog.Logger
	metrics *linkmetrics.Metrics
}

func New(links store.LinkStore, rules store.RuleStore, tenants TenantLookup, audit AuditAppender, logger *slog.Logger, metrics *linkmetrics.Metrics) *LinkService {
	return &LinkService{
		links:   links,
		rules:   rules,
		tenants: tenants,
		audit:   audit,
		logger:  logger,
		metrics: metrics,
	}
}

// CreateLinkInput is the creation surface. ShortCode is optional; an empty
// value gets a generated code.
type CreateLinkInput struct {
	ShortCode      string
	DestinationURL string
	TenantID       *uuid.UUID
	ExpiresAt      *time.Time
}

func (s *LinkService) CreateLink(ctx context.Context, in CreateLinkInput) (*models.Link, error) {
	tenant, err := s.resolveTenant(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}

	verdict := safelist.ValidateForTenant(in.DestinationURL, tenant)
	if !verdict.Allowed {
		if s.metrics != nil {
			s.metrics.DestinationsBlocked.Inc()
		}
		return nil, dErrors.New(dErrors.CodeInvariantViolation, verdict.Reason)
	}

	shortCode := in.ShortCode
	generated := shortCode == ""
	if generated {
		if shortCode, err = generateShortCode(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate short code")
		}
	}

	now := requestcontext.Now(ctx)
	l, err := models.NewLink(uuid.New(), shortCode, in.DestinationURL, in.TenantID, now)
	if err != nil {
		return nil, err
	}
	l.ExpiresAt = in.ExpiresAt
	safelist.ApplyToLink(l, verdict)

	if err := s.links.Create(ctx, l); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Generated codes retry once on collision; chosen codes surface
			// the conflict to the caller.
			if generated {
				return s.retryCreate(ctx, l)
			}
			return nil, dErrors.New(dErrors.CodeConflict, "short code is already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create link")
	}

	s.emitAudit(ctx, in.TenantID, "link.created", l.ShortCode)
	if s.metrics != nil {
		s.metrics.LinksCreated.Inc()
	}
	return l, nil
}

func (s *LinkService) retryCreate(ctx context.Context, l *models.Link) (*models.Link, error) {
	shortCode, err := generateShortCode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate short code")
	}
	l.ShortCode = shortCode
	if err := s.links.Create(ctx, l); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create link")
	}
	s.emitAudit(ctx, l.TenantID, "link.created", l.ShortCode)
	if s.metrics != nil {
		s.metrics.LinksCreated.Inc()
	}
	return l, nil
}

func (s *LinkService) GetLink(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	if id == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "link id is required")
	}
	l, err := s.links.FindByID(ctx, id)
	if err != nil {
		return nil, wrapLinkErr(err)
	}
	return l, nil
}

func (s *LinkService) GetByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	if shortCode == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "short code is required")
	}
	l, err := s.links.FindByShortCode(ctx, shortCode)
	if err != nil {
		return nil, wrapLinkErr(err)
	}
	return l, nil
}

// UpdateDestination changes a link's default destination, re-validating it
// under the owning tenant's current whitelist mode.
func (s *LinkService) UpdateDestination(ctx context.Context, id uuid.UUID, destinationURL string) (*models.Link, error) {
	l, err := s.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	tenant, err := s.resolveTenant(ctx, l.TenantID)
	if err != nil {
		return nil, err
	}

	verdict := safelist.ValidateForTenant(destinationURL, tenant)
	if !verdict.Allowed {
		if s.metrics != nil {
			s.metrics.DestinationsBlocked.Inc()
		}
		return nil, dErrors.New(dErrors.CodeInvariantViolation, verdict.Reason)
	}

	l.DestinationURL = destinationURL
	safelist.ApplyToLink(l, verdict)
	l.UpdatedAt = requestcontext.Now(ctx)
	if err := s.links.Update(ctx, l); err != nil {
		return nil, wrapLinkErr(err)
	}
	s.emitAudit(ctx, l.TenantID, "link.destination_updated", l.ShortCode)
	return l, nil
}

// DeactivateLink takes a link out of service without deleting it.
func (s *LinkService) DeactivateLink(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	return s.setStatus(ctx, id, models.LinkStatusInactive, "link.deactivated")
}

// ReactivateLink puts an inactive link back in service.
func (s *LinkService) ReactivateLink(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	return s.setStatus(ctx, id, models.LinkStatusActive, "link.reactivated")
}

func (s *LinkService) setStatus(ctx context.Context, id uuid.UUID, status models.LinkStatus, action string) (*models.Link, error) {
	l, err := s.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status == status {
		return nil, dErrors.New(dErrors.CodeConflict, "link is already "+string(status))
	}
	l.Status = status
	l.UpdatedAt = requestcontext.Now(ctx)
	if err := s.links.Update(ctx, l); err != nil {
		return nil, wrapLinkErr(err)
	}
	s.emitAudit(ctx, l.TenantID, action, l.ShortCode)
	return l, nil
}

// RuleInput is one routing rule in a replacement set.
type RuleInput struct {
	RuleType  string
	Condition []byte
	TargetURL string
	Priority  int
}

// ReplaceRules swaps a link's entire rule set. Each target URL passes the
// same whitelist validation as the link destination; one bad rule rejects
// the whole set.
func (s *LinkService) ReplaceRules(ctx context.Context, linkID uuid.UUID, inputs []RuleInput) ([]models.RoutingRule, error) {
	l, err := s.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if len(inputs) > maxRulesPerLink {
		return nil, dErrors.New(dErrors.CodeBadRequest, "too many routing rules")
	}
	tenant, err := s.resolveTenant(ctx, l.TenantID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	rules := make([]models.RoutingRule, 0, len(inputs))
	for i, in := range inputs {
		verdict := safelist.ValidateForTenant(in.TargetURL, tenant)
		if !verdict.Allowed {
			if s.metrics != nil {
				s.metrics.DestinationsBlocked.Inc()
			}
			return nil, dErrors.New(dErrors.CodeInvariantViolation, verdict.Reason)
		}
		cond, err := models.DecodeCondition(in.RuleType, in.Condition)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid rule condition")
		}
		rules = append(rules, models.RoutingRule{
			ID:        uuid.New(),
			LinkID:    linkID,
			Condition: cond,
			TargetURL: in.TargetURL,
			Priority:  in.Priority,
			Position:  i,
			CreatedAt: now,
		})
	}

	if err := s.rules.ReplaceForLink(ctx, linkID, rules); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace routing rules")
	}
	s.emitAudit(ctx, l.TenantID, "link.rules_replaced", l.ShortCode)
	if s.metrics != nil {
		s.metrics.RulesReplaced.Inc()
	}
	return rules, nil
}

// ListRules returns a link's rules in evaluation order.
func (s *LinkService) ListRules(ctx context.Context, linkID uuid.UUID) ([]models.RoutingRule, error) {
	if _, err := s.GetLink(ctx, linkID); err != nil {
		return nil, err
	}
	rules, err := s.rules.ListByLink(ctx, linkID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list routing rules")
	}
	return rules, nil
}

func (s *LinkService) resolveTenant(ctx context.Context, tenantID *uuid.UUID) (*tenantmodels.Tenant, error) {
	if tenantID == nil {
		return nil, nil
	}
	tenant, err := s.tenants.GetTenant(ctx, *tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive() {
		return nil, dErrors.New(dErrors.CodeConflict, "tenant is not active")
	}
	return tenant, nil
}

func (s *LinkService) emitAudit(ctx context.Context, tenantID *uuid.UUID, action, subject string) {
	if s.audit == nil {
		return
	}
	rec := analytics.AuditRecord{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Action:    action,
		Subject:   subject,
		Timestamp: requestcontext.Now(ctx),
	}
	if err := s.audit.AppendAudit(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to append audit record",
			"action", action, "error", err.Error())
	}
}

func generateShortCode() (string, error) {
	max := big.NewInt(int64(len(shortCodeAlphabet)))
	out := make([]byte, shortCodeLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = shortCodeAlphabet[n.Int64()]
	}
	return string(out), nil
}

func wrapLinkErr(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "link not found")
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "short code is already taken")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "link store failure")
}
