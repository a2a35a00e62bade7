package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"publink/internal/analytics"
	"publink/internal/domainmatch"
	"publink/internal/privacy"
	tenantmetrics "publink/internal/tenant/metrics"
	"publink/internal/tenant/models"
	"publink/internal/tenant/secrets"
	"publink/internal/tenant/store"
	dErrors "publink/pkg/domain-errors"
	"publink/pkg/platform/sentinel"
	"publink/pkg/requestcontext"
)

// AuditAppender records administrative actions for the tenant audit trail.
type AuditAppender interface {
	AppendAudit(ctx context.Context, rec analytics.AuditRecord) error
}

// TenantService orchestrates tenant lifecycle and settings management. All
// whitelist and privacy validation happens here, before anything reaches the
// store: invalid patterns are rejected at configuration time, never silently
// accepted.
type TenantService struct {
	tenants store.TenantStore
	domains store.CustomDomainStore
	audit   AuditAppender
	logger  *slog.Logger
	metrics *tenantmetrics.Metrics
}

func New(tenants store.TenantStore, domains store.CustomDomainStore, audit AuditAppender, logger *slog.Logger, metrics *tenantmetrics.Metrics) *TenantService {
	return &TenantService{
		tenants: tenants,
		domains: domains,
		audit:   audit,
		logger:  logger,
		metrics: metrics,
	}
}

// CreateTenantResult carries the one-time plaintext API key. It is returned
// exactly once at creation; only the hash is stored.
type CreateTenantResult struct {
	Tenant *models.Tenant
	APIKey string
}

func (s *TenantService) CreateTenant(ctx context.Context, slug, name string) (*CreateTenantResult, error) {
	t, err := models.NewTenant(uuid.New(), slug, name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	apiKey, err := secrets.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate api key")
	}
	if t.APIKeyHash, err = secrets.Hash(apiKey); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash api key")
	}

	if err := s.tenants.CreateIfSlugAvailable(ctx, t); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "tenant slug must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}

	s.emitAudit(ctx, &t.ID, "tenant.created", t.Slug)
	if s.metrics != nil {
		s.metrics.IncrementTenantCreated()
	}
	return &CreateTenantResult{Tenant: t, APIKey: apiKey}, nil
}

func (s *TenantService) GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	if tenantID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
	}
	t, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	return t, nil
}

// GetTenantBySlug retrieves a tenant by slug (case-insensitive).
func (s *TenantService) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant slug is required")
	}
	t, err := s.tenants.FindBySlug(ctx, slug)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	return t, nil
}

// SettingsUpdate is the mutable settings surface of a tenant.
type SettingsUpdate struct {
	DomainWhitelist []string
	WhitelistMode   models.WhitelistMode
	PrivacySettings privacy.Settings
}

// UpdateSettings validates and applies a tenant's whitelist and privacy
// configuration. Whitelist patterns are normalized before storage; a single
// invalid pattern rejects the whole update.
func (s *TenantService) UpdateSettings(ctx context.Context, tenantID uuid.UUID, update SettingsUpdate) (*models.Tenant, error) {
	if tenantID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "tenant id is required")
	}
	if !update.WhitelistMode.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "whitelist mode must be allow, warn, or block")
	}
	if err := update.PrivacySettings.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid privacy settings")
	}

	normalized := make([]string, 0, len(update.DomainWhitelist))
	for _, raw := range update.DomainWhitelist {
		if !domainmatch.IsValid(raw) {
			if s.metrics != nil {
				s.metrics.WhitelistRejections.Inc()
			}
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid whitelist pattern: "+raw)
		}
		normalized = append(normalized, domainmatch.Normalize(raw))
	}

	now := requestcontext.Now(ctx)
	t, err := s.tenants.Execute(ctx, tenantID,
		func(t *models.Tenant) error { return nil },
		func(t *models.Tenant) {
			t.DomainWhitelist = normalized
			t.WhitelistMode = update.WhitelistMode
			t.PrivacySettings = update.PrivacySettings
			t.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapTenantErr(err)
	}

	s.emitAudit(ctx, &t.ID, "tenant.settings_updated", t.Slug)
	if s.metrics != nil {
		s.metrics.SettingsUpdated.Inc()
	}
	return t, nil
}

// AddCustomDomain registers a hostname for the tenant. The domain enters the
// cache only after verification.
func (s *TenantService) AddCustomDomain(ctx context.Context, tenantID uuid.UUID, domain string) (*models.CustomDomain, error) {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	d, err := models.NewCustomDomain(uuid.New(), tenantID, domain, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.domains.Create(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "domain is already claimed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add custom domain")
	}
	s.emitAudit(ctx, &tenantID, "tenant.domain_added", d.Domain)
	return d, nil
}

// VerifyCustomDomain marks a domain verified, admitting it to the cache on
// the next refresh. Ownership verification itself (DNS challenge) happens in
// an external workflow.
func (s *TenantService) VerifyCustomDomain(ctx context.Context, tenantID, domainID uuid.UUID) error {
	if err := s.domains.MarkVerified(ctx, domainID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "custom domain not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify domain")
	}
	s.emitAudit(ctx, &tenantID, "tenant.domain_verified", domainID.String())
	return nil
}

// DeactivateTenant transitions a tenant to inactive status. Its domains drop
// out of the cache on the next refresh; no data is deleted.
func (s *TenantService) DeactivateTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	now := requestcontext.Now(ctx)
	t, err := s.tenants.Execute(ctx, tenantID,
		func(t *models.Tenant) error {
			if err := t.CanDeactivate(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "tenant is already inactive")
			}
			return nil
		},
		func(t *models.Tenant) { t.ApplyDeactivation(now) },
	)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	s.emitAudit(ctx, &t.ID, "tenant.deactivated", t.Slug)
	return t, nil
}

// ReactivateTenant transitions a tenant back to active status.
func (s *TenantService) ReactivateTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	now := requestcontext.Now(ctx)
	t, err := s.tenants.Execute(ctx, tenantID,
		func(t *models.Tenant) error {
			if err := t.CanReactivate(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "tenant is already active")
			}
			return nil
		},
		func(t *models.Tenant) { t.ApplyReactivation(now) },
	)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	s.emitAudit(ctx, &t.ID, "tenant.reactivated", t.Slug)
	return t, nil
}

func (s *TenantService) emitAudit(ctx context.Context, tenantID *uuid.UUID, action, subject string) {
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
		// Audit failures must not fail the admin operation; they are logged
		// and visible in metrics on the audit store side.
		s.logger.ErrorContext(ctx, "failed to append audit record",
			"action", action, "error", err.Error())
	}
}

func wrapTenantErr(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "tenant store failure")
}
