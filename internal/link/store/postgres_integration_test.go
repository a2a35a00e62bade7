//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"publink/internal/link/models"
	"publink/internal/platform/postgres"
	"publink/pkg/platform/sentinel"
	"publink/pkg/testutil/containers"
)

type PostgresLinkStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	links     *PostgresLinkStore
	rules     *PostgresRuleStore
}

func TestPostgresLinkStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresLinkStoreSuite))
}

func (s *PostgresLinkStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	container, connStr, err := containers.StartPostgres(s.ctx)
	s.Require().NoError(err)
	s.container = container

	s.pool, err = postgres.New(s.ctx, connStr)
	s.Require().NoError(err)
	s.links = NewPostgresLinkStore(s.pool)
	s.rules = NewPostgresRuleStore(s.pool)
}

func (s *PostgresLinkStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(s.ctx))
	}
}

func (s *PostgresLinkStoreSuite) newLink(shortCode string) *models.Link {
	l, err := models.NewLink(uuid.New(), shortCode, "https://service.bund.de",
		nil, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return l
}

func (s *PostgresLinkStoreSuite) TestRoundTrip() {
	l := s.newLink("pg-roundtrip")
	s.Require().NoError(s.links.Create(s.ctx, l))

	got, err := s.links.FindByShortCode(s.ctx, "pg-roundtrip")
	s.Require().NoError(err)
	s.Equal(l.ID, got.ID)
	s.Equal(l.DestinationURL, got.DestinationURL)
	s.Equal(models.LinkStatusActive, got.Status)
}

func (s *PostgresLinkStoreSuite) TestShortCodeConflict() {
	s.Require().NoError(s.links.Create(s.ctx, s.newLink("pg-dup")))
	s.ErrorIs(s.links.Create(s.ctx, s.newLink("pg-dup")), sentinel.ErrConflict)
}

func (s *PostgresLinkStoreSuite) TestIncrementClickCount() {
	l := s.newLink("pg-clicks")
	s.Require().NoError(s.links.Create(s.ctx, l))

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.links.IncrementClickCount(s.ctx, l.ID))
	}
	got, err := s.links.FindByID(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), got.ClickCount)
}

func (s *PostgresLinkStoreSuite) TestRuleRoundTripAndOrdering() {
	l := s.newLink("pg-rules")
	s.Require().NoError(s.links.Create(s.ctx, l))

	now := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.rules.ReplaceForLink(s.ctx, l.ID, []models.RoutingRule{
		{ID: uuid.New(), Condition: models.GeographicCondition{Country: "DE"}, TargetURL: "https://low.bund.de", Priority: 5, CreatedAt: now},
		{ID: uuid.New(), Condition: models.DeviceCondition{DeviceType: "mobile"}, TargetURL: "https://high.bund.de", Priority: 10, CreatedAt: now},
		{ID: uuid.New(), Condition: models.TimeCondition{StartHour: 8, EndHour: 18}, TargetURL: "https://tie.bund.de", Priority: 5, CreatedAt: now},
	}))

	got, err := s.rules.ListByLink(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal("https://high.bund.de", got[0].TargetURL)
	s.Equal("https://low.bund.de", got[1].TargetURL)
	s.Equal("https://tie.bund.de", got[2].TargetURL)
	s.IsType(models.DeviceCondition{}, got[0].Condition)

	s.Run("replacement is wholesale", func() {
		s.Require().NoError(s.rules.ReplaceForLink(s.ctx, l.ID, nil))
		got, err := s.rules.ListByLink(s.ctx, l.ID)
		s.Require().NoError(err)
		s.Empty(got)
	})
}

func (s *PostgresLinkStoreSuite) TestUnknownRuleTypeSurvives() {
	l := s.newLink("pg-unknown-rule")
	s.Require().NoError(s.links.Create(s.ctx, l))

	cond, err := models.DecodeCondition("referrer", []byte(`{"host":"x.com"}`))
	s.Require().NoError(err)
	s.Require().NoError(s.rules.ReplaceForLink(s.ctx, l.ID, []models.RoutingRule{
		{ID: uuid.New(), Condition: cond, TargetURL: "https://ref.bund.de", Priority: 1, CreatedAt: time.Now()},
	}))

	got, err := s.rules.ListByLink(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.IsType(models.UnknownCondition{}, got[0].Condition)
	s.Equal("referrer", got[0].Condition.RuleType())
}
