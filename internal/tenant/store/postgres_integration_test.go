//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"publink/internal/platform/postgres"
	"publink/internal/privacy"
	"publink/internal/tenant/models"
	"publink/pkg/platform/sentinel"
	"publink/pkg/testutil/containers"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresTenantStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	tenants   *PostgresTenantStore
	domains   *PostgresCustomDomainStore
}

func TestPostgresTenantStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresTenantStoreSuite))
}

func (s *PostgresTenantStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	container, connStr, err := containers.StartPostgres(s.ctx)
	s.Require().NoError(err)
	s.container = container

	s.pool, err = postgres.New(s.ctx, connStr)
	s.Require().NoError(err)
	s.tenants = NewPostgresTenantStore(s.pool)
	s.domains = NewPostgresCustomDomainStore(s.pool)
}

func (s *PostgresTenantStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(s.ctx))
	}
}

func (s *PostgresTenantStoreSuite) newTenant(slug string) *models.Tenant {
	t, err := models.NewTenant(uuid.New(), slug, "Tenant "+slug, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return t
}

func (s *PostgresTenantStoreSuite) TestRoundTrip() {
	t := s.newTenant("roundtrip")
	t.DomainWhitelist = []string{"*.bund.de", "service.example.de"}
	t.WhitelistMode = models.WhitelistBlock
	t.PrivacySettings.IPAnonymization = privacy.LevelPartial
	s.Require().NoError(s.tenants.CreateIfSlugAvailable(s.ctx, t))

	got, err := s.tenants.FindByID(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(t.Slug, got.Slug)
	s.Equal(t.DomainWhitelist, got.DomainWhitelist)
	s.Equal(models.WhitelistBlock, got.WhitelistMode)
	s.Equal(privacy.LevelPartial, got.PrivacySettings.IPAnonymization)

	bySlug, err := s.tenants.FindBySlug(s.ctx, "ROUNDTRIP")
	s.Require().NoError(err)
	s.Equal(t.ID, bySlug.ID)
}

func (s *PostgresTenantStoreSuite) TestSlugConflict() {
	s.Require().NoError(s.tenants.CreateIfSlugAvailable(s.ctx, s.newTenant("taken")))

	dup := s.newTenant("taken")
	dup.Slug = "TAKEN"
	s.ErrorIs(s.tenants.CreateIfSlugAvailable(s.ctx, dup), sentinel.ErrConflict)
}

func (s *PostgresTenantStoreSuite) TestExecute() {
	t := s.newTenant("exec")
	s.Require().NoError(s.tenants.CreateIfSlugAvailable(s.ctx, t))

	got, err := s.tenants.Execute(s.ctx, t.ID,
		func(*models.Tenant) error { return nil },
		func(stored *models.Tenant) { stored.Name = "renamed" },
	)
	s.Require().NoError(err)
	s.Equal("renamed", got.Name)

	stored, err := s.tenants.FindByID(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal("renamed", stored.Name)
}

func (s *PostgresTenantStoreSuite) TestNotFound() {
	_, err := s.tenants.FindByID(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresTenantStoreSuite) TestDomainFeed() {
	t := s.newTenant("feed")
	s.Require().NoError(s.tenants.CreateIfSlugAvailable(s.ctx, t))

	d, err := models.NewCustomDomain(uuid.New(), t.ID, "go.feed.example.de", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.domains.Create(s.ctx, d))

	pairs, err := s.domains.ListActiveWithTenant(s.ctx)
	s.Require().NoError(err)
	for _, p := range pairs {
		s.NotEqual("go.feed.example.de", p.Domain, "unverified domain must stay out of the feed")
	}

	s.Require().NoError(s.domains.MarkVerified(s.ctx, d.ID))
	pairs, err = s.domains.ListActiveWithTenant(s.ctx)
	s.Require().NoError(err)

	var found bool
	for _, p := range pairs {
		if p.Domain == "go.feed.example.de" {
			found = true
			s.Equal(t.ID, p.Tenant.ID)
		}
	}
	s.True(found)
}
