package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"publink/internal/analytics"
	"publink/internal/platform/logger"
	"publink/internal/privacy"
	"publink/internal/tenant/models"
	"publink/internal/tenant/secrets"
	"publink/internal/tenant/store"
	dErrors "publink/pkg/domain-errors"
	"publink/pkg/requestcontext"
)

type TenantServiceSuite struct {
	suite.Suite
	ctx   context.Context
	audit *analytics.InMemoryStore
	svc   *TenantService
}

func TestTenantServiceSuite(t *testing.T) {
	suite.Run(t, new(TenantServiceSuite))
}

func (s *TenantServiceSuite) SetupTest() {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), now)
	s.audit = analytics.NewInMemoryStore()

	tenants := store.NewInMemoryTenantStore()
	s.svc = New(tenants, store.NewInMemoryCustomDomainStore(tenants), s.audit, logger.New(), nil)
}

func (s *TenantServiceSuite) create(slug string) *CreateTenantResult {
	result, err := s.svc.CreateTenant(s.ctx, slug, "Tenant "+slug)
	s.Require().NoError(err)
	return result
}

func (s *TenantServiceSuite) TestCreateTenant() {
	s.Run("returns the plaintext api key exactly once", func() {
		result := s.create("bmg")
		s.NotEmpty(result.APIKey)
		s.True(strings.HasPrefix(result.APIKey, "plk_"))
		s.NotEqual(result.APIKey, result.Tenant.APIKeyHash)
		s.NoError(secrets.Verify(result.APIKey, result.Tenant.APIKeyHash))
	})

	s.Run("new tenants start in warn mode with default privacy", func() {
		result := s.create("warn-default")
		s.Equal(models.WhitelistWarn, result.Tenant.WhitelistMode)
		s.Equal(privacy.DefaultSettings(), result.Tenant.PrivacySettings)
	})

	s.Run("duplicate slug conflicts", func() {
		_, err := s.svc.CreateTenant(s.ctx, "bmg", "Other")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("creation is audited", func() {
		result := s.create("audited")
		records, err := s.audit.ListByTenant(s.ctx, result.Tenant.ID, 10)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal("tenant.created", records[0].Action)
	})
}

func (s *TenantServiceSuite) TestUpdateSettings() {
	tenant := s.create("settings").Tenant

	s.Run("normalizes and stores valid patterns", func() {
		updated, err := s.svc.UpdateSettings(s.ctx, tenant.ID, SettingsUpdate{
			DomainWhitelist: []string{"HTTPS://Service.BUND.de/path", "*.example.de"},
			WhitelistMode:   models.WhitelistBlock,
			PrivacySettings: privacy.DefaultSettings(),
		})
		s.Require().NoError(err)
		s.Equal([]string{"service.bund.de", "*.example.de"}, updated.DomainWhitelist)
		s.Equal(models.WhitelistBlock, updated.WhitelistMode)
	})

	s.Run("one invalid pattern rejects the whole update", func() {
		_, err := s.svc.UpdateSettings(s.ctx, tenant.ID, SettingsUpdate{
			DomainWhitelist: []string{"service.bund.de", "not a domain"},
			WhitelistMode:   models.WhitelistBlock,
			PrivacySettings: privacy.DefaultSettings(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

		current, err := s.svc.GetTenant(s.ctx, tenant.ID)
		s.Require().NoError(err)
		s.Equal([]string{"service.bund.de", "*.example.de"}, current.DomainWhitelist)
	})

	s.Run("rejects an unknown whitelist mode", func() {
		_, err := s.svc.UpdateSettings(s.ctx, tenant.ID, SettingsUpdate{
			WhitelistMode:   models.WhitelistMode("maybe"),
			PrivacySettings: privacy.DefaultSettings(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects out-of-range retention", func() {
		bad := privacy.DefaultSettings()
		bad.AnalyticsRetentionDays = privacy.MaxRetentionDays + 1
		_, err := s.svc.UpdateSettings(s.ctx, tenant.ID, SettingsUpdate{
			WhitelistMode:   models.WhitelistWarn,
			PrivacySettings: bad,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *TenantServiceSuite) TestLifecycle() {
	tenant := s.create("lifecycle").Tenant

	s.Run("deactivate then reactivate", func() {
		got, err := s.svc.DeactivateTenant(s.ctx, tenant.ID)
		s.Require().NoError(err)
		s.Equal(models.TenantStatusInactive, got.Status)

		got, err = s.svc.ReactivateTenant(s.ctx, tenant.ID)
		s.Require().NoError(err)
		s.Equal(models.TenantStatusActive, got.Status)
	})

	s.Run("double deactivate conflicts", func() {
		_, err := s.svc.DeactivateTenant(s.ctx, tenant.ID)
		s.Require().NoError(err)
		_, err = s.svc.DeactivateTenant(s.ctx, tenant.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *TenantServiceSuite) TestCustomDomains() {
	tenant := s.create("domains").Tenant

	s.Run("adds and verifies a domain", func() {
		d, err := s.svc.AddCustomDomain(s.ctx, tenant.ID, "Go.Example.DE")
		s.Require().NoError(err)
		s.Equal("go.example.de", d.Domain)
		s.False(d.Verified)

		s.NoError(s.svc.VerifyCustomDomain(s.ctx, tenant.ID, d.ID))
	})

	s.Run("rejects wildcard hostnames", func() {
		_, err := s.svc.AddCustomDomain(s.ctx, tenant.ID, "*.example.de")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("unknown tenant is not found", func() {
		_, err := s.svc.AddCustomDomain(s.ctx, uuid.New(), "x.example.de")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
