package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"publink/internal/tenant/models"
	"publink/pkg/platform/sentinel"
)

type InMemoryTenantStoreSuite struct {
	suite.Suite
	ctx     context.Context
	tenants *InMemoryTenantStore
	domains *InMemoryCustomDomainStore
}

func TestInMemoryTenantStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryTenantStoreSuite))
}

func (s *InMemoryTenantStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.tenants = NewInMemoryTenantStore()
	s.domains = NewInMemoryCustomDomainStore(s.tenants)
}

func (s *InMemoryTenantStoreSuite) newTenant(slug string) *models.Tenant {
	t, err := models.NewTenant(uuid.New(), slug, "Tenant "+slug, time.Now())
	s.Require().NoError(err)
	return t
}

func (s *InMemoryTenantStoreSuite) TestCreateIfSlugAvailable() {
	s.Run("stores and retrieves", func() {
		t := s.newTenant("bmg")
		s.Require().NoError(s.tenants.CreateIfSlugAvailable(s.ctx, t))

		got, err := s.tenants.FindByID(s.ctx, t.ID)
		s.Require().NoError(err)
		s.Equal("bmg", got.Slug)
	})

	s.Run("slug uniqueness is case-insensitive", func() {
		dup := s.newTenant("bmg")
		dup.Slug = "BMG"
		s.ErrorIs(s.tenants.CreateIfSlugAvailable(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("find by slug is case-insensitive", func() {
		got, err := s.tenants.FindBySlug(s.ctx, "BMG")
		s.Require().NoError(err)
		s.Equal("bmg", got.Slug)
	})
}

func (s *InMemoryTenantStoreSuite) TestExecute() {
	t := s.newTenant("exec")
	s.Require().NoError(s.tenants.CreateIfSlugAvailable(s.ctx, t))

	s.Run("mutates under validation", func() {
		got, err := s.tenants.Execute(s.ctx, t.ID,
			func(*models.Tenant) error { return nil },
			func(stored *models.Tenant) { stored.Name = "renamed" },
		)
		s.Require().NoError(err)
		s.Equal("renamed", got.Name)

		stored, err := s.tenants.FindByID(s.ctx, t.ID)
		s.Require().NoError(err)
		s.Equal("renamed", stored.Name)
	})

	s.Run("validation failure leaves the tenant untouched", func() {
		wanted := sentinel.ErrInvalidState
		_, err := s.tenants.Execute(s.ctx, t.ID,
			func(*models.Tenant) error { return wanted },
			func(stored *models.Tenant) { stored.Name = "should not happen" },
		)
		s.ErrorIs(err, wanted)

		stored, err := s.tenants.FindByID(s.ctx, t.ID)
		s.Require().NoError(err)
		s.Equal("renamed", stored.Name)
	})
}

func (s *InMemoryTenantStoreSuite) TestListing() {
	active := s.newTenant("active")
	dormant := s.newTenant("dormant")
	s.Require().NoError(s.tenants.CreateIfSlugAvailable(s.ctx, active))
	s.Require().NoError(s.tenants.CreateIfSlugAvailable(s.ctx, dormant))
	_, err := s.tenants.Execute(s.ctx, dormant.ID,
		func(*models.Tenant) error { return nil },
		func(t *models.Tenant) { t.ApplyDeactivation(time.Now()) },
	)
	s.Require().NoError(err)

	got, err := s.tenants.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(active.ID, got[0].ID)
}

func (s *InMemoryTenantStoreSuite) TestCustomDomains() {
	t := s.newTenant("domains")
	s.Require().NoError(s.tenants.CreateIfSlugAvailable(s.ctx, t))

	d, err := models.NewCustomDomain(uuid.New(), t.ID, "go.example.de", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.domains.Create(s.ctx, d))

	s.Run("a domain can be claimed only once", func() {
		other, err := models.NewCustomDomain(uuid.New(), uuid.New(), "go.example.de", time.Now())
		s.Require().NoError(err)
		s.ErrorIs(s.domains.Create(s.ctx, other), sentinel.ErrConflict)
	})

	s.Run("unverified domains stay out of the cache feed", func() {
		pairs, err := s.domains.ListActiveWithTenant(s.ctx)
		s.Require().NoError(err)
		s.Empty(pairs)
	})

	s.Run("verified domains join their tenant", func() {
		s.Require().NoError(s.domains.MarkVerified(s.ctx, d.ID))
		pairs, err := s.domains.ListActiveWithTenant(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(pairs, 1)
		s.Equal("go.example.de", pairs[0].Domain)
		s.Equal(t.ID, pairs[0].Tenant.ID)
	})

	s.Run("deactivated tenants drop out of the feed", func() {
		_, err := s.tenants.Execute(s.ctx, t.ID,
			func(*models.Tenant) error { return nil },
			func(stored *models.Tenant) { stored.ApplyDeactivation(time.Now()) },
		)
		s.Require().NoError(err)

		pairs, err := s.domains.ListActiveWithTenant(s.ctx)
		s.Require().NoError(err)
		s.Empty(pairs)
	})
}
