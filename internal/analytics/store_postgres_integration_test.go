//go:build integration

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"publink/internal/platform/postgres"
	"publink/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	store     *PostgresStore
	tenantA   uuid.UUID
	tenantB   uuid.UUID
	linkA     uuid.UUID
	linkB     uuid.UUID
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	container, connStr, err := containers.StartPostgres(s.ctx)
	s.Require().NoError(err)
	s.container = container

	s.pool, err = postgres.New(s.ctx, connStr)
	s.Require().NoError(err)
	s.store = NewPostgresStore(s.pool)

	s.tenantA = s.insertTenant("tenant-a")
	s.tenantB = s.insertTenant("tenant-b")
	s.linkA = s.insertLink("link-a", s.tenantA)
	s.linkB = s.insertLink("link-b", s.tenantB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(s.ctx))
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `TRUNCATE analytics_events, audit_records`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) insertTenant(slug string) uuid.UUID {
	id := uuid.New()
	_, err := s.pool.Exec(s.ctx, `
		INSERT INTO tenants (id, slug, name, created_at, updated_at)
		VALUES ($1, $2, $2, now(), now())
	`, id, slug)
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) insertLink(shortCode string, tenantID uuid.UUID) uuid.UUID {
	id := uuid.New()
	_, err := s.pool.Exec(s.ctx, `
		INSERT INTO links (id, short_code, destination_url, tenant_id, created_at, updated_at)
		VALUES ($1, $2, 'https://service.bund.de', $3, now(), now())
	`, id, shortCode, tenantID)
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) appendEvent(linkID uuid.UUID, tenantID *uuid.UUID, ts time.Time) {
	country := "DE"
	s.Require().NoError(s.store.Append(s.ctx, Event{
		ID:        uuid.New(),
		LinkID:    linkID,
		TenantID:  tenantID,
		Timestamp: ts,
		Country:   &country,
	}))
}

func (s *PostgresStoreSuite) TestAppendAndList() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	s.appendEvent(s.linkA, &s.tenantA, now.Add(-time.Hour))
	s.appendEvent(s.linkA, &s.tenantA, now)

	events, err := s.store.ListByLink(s.ctx, s.linkA, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(now, events[0].Timestamp)
	s.Require().NotNil(events[0].Country)
	s.Equal("DE", *events[0].Country)
}

func (s *PostgresStoreSuite) TestDeleteOlderThanIsTenantScoped() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	s.appendEvent(s.linkA, &s.tenantA, now.Add(-48*time.Hour))
	s.appendEvent(s.linkA, &s.tenantA, now)
	s.appendEvent(s.linkB, &s.tenantB, now.Add(-48*time.Hour))

	deleted, err := s.store.DeleteOlderThan(s.ctx, &s.tenantA, now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), deleted)

	countA, err := s.store.CountByTenant(s.ctx, s.tenantA)
	s.Require().NoError(err)
	s.Equal(int64(1), countA)

	countB, err := s.store.CountByTenant(s.ctx, s.tenantB)
	s.Require().NoError(err)
	s.Equal(int64(1), countB, "another tenant's rows must be untouched")
}

func (s *PostgresStoreSuite) TestNilTenantScopesToPlatformRows() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	s.appendEvent(s.linkA, nil, now.Add(-48*time.Hour))
	s.appendEvent(s.linkA, &s.tenantA, now.Add(-48*time.Hour))

	deleted, err := s.store.DeleteOlderThan(s.ctx, nil, now)
	s.Require().NoError(err)
	s.Equal(int64(1), deleted)

	count, err := s.store.CountByTenant(s.ctx, s.tenantA)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *PostgresStoreSuite) TestAuditRoundTrip() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.AppendAudit(s.ctx, AuditRecord{
		ID:        uuid.New(),
		TenantID:  &s.tenantA,
		Action:    "tenant.settings_updated",
		Subject:   "tenant-a",
		Timestamp: now,
	}))

	records, err := s.store.ListByTenant(s.ctx, s.tenantA, 10)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("tenant.settings_updated", records[0].Action)

	deleted, err := s.store.DeleteAuditOlderThan(s.ctx, &s.tenantA, now.Add(time.Second))
	s.Require().NoError(err)
	s.Equal(int64(1), deleted)
}
