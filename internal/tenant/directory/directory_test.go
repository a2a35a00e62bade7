package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"publink/internal/platform/logger"
	"publink/internal/tenant/models"
	"publink/internal/tenant/store"
)

// stubDomainStore lets tests control the cache feed and fail refreshes.
type stubDomainStore struct {
	mu    sync.Mutex
	pairs []store.DomainTenant
	err   error
	calls int
}

func (s *stubDomainStore) Create(context.Context, *models.CustomDomain) error { return nil }
func (s *stubDomainStore) MarkVerified(context.Context, uuid.UUID) error      { return nil }
func (s *stubDomainStore) DeleteByTenant(context.Context, uuid.UUID) error    { return nil }

func (s *stubDomainStore) ListActiveWithTenant(context.Context) ([]store.DomainTenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.pairs, nil
}

func (s *stubDomainStore) set(pairs []store.DomainTenant, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs, s.err = pairs, err
}

func (s *stubDomainStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type DirectorySuite struct {
	suite.Suite
	ctx     context.Context
	tenants *store.InMemoryTenantStore
	domains *stubDomainStore
	now     time.Time
	dir     *Directory
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	s.ctx = context.Background()
	s.tenants = store.NewInMemoryTenantStore()
	s.domains = &stubDomainStore{}
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.dir = New(s.tenants, s.domains, 60*time.Second, logger.New(),
		WithClock(func() time.Time { return s.now }))
}

func (s *DirectorySuite) newTenant(slug string) *models.Tenant {
	t, err := models.NewTenant(uuid.New(), slug, "Tenant "+slug, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.tenants.CreateIfSlugAvailable(s.ctx, t))
	return t
}

func (s *DirectorySuite) TestHostnameResolution() {
	t := s.newTenant("bmi")
	s.domains.set([]store.DomainTenant{{Domain: "links.bmi.bund.de", Tenant: t}}, nil)
	s.now = s.now.Add(2 * time.Minute) // expire the empty boot snapshot

	s.Run("resolves a cached hostname", func() {
		got, ok := s.dir.ResolveTenant(s.ctx, "links.bmi.bund.de", nil)
		s.Require().True(ok)
		s.Equal(t.ID, got.ID)
	})

	s.Run("normalizes case and port", func() {
		got, ok := s.dir.ResolveTenant(s.ctx, "Links.BMI.Bund.DE:443", nil)
		s.Require().True(ok)
		s.Equal(t.ID, got.ID)
	})

	s.Run("unknown hostname yields no tenant", func() {
		_, ok := s.dir.ResolveTenant(s.ctx, "unknown.example.com", nil)
		s.False(ok)
	})
}

func (s *DirectorySuite) TestUserAssociationFallback() {
	t := s.newTenant("city")

	s.Run("falls back to the user's tenant when hostname misses", func() {
		got, ok := s.dir.ResolveTenant(s.ctx, "unknown.example.com", &t.ID)
		s.Require().True(ok)
		s.Equal(t.ID, got.ID)
	})

	s.Run("ignores an inactive tenant association", func() {
		_, err := s.tenants.Execute(s.ctx, t.ID,
			func(t *models.Tenant) error { return t.CanDeactivate() },
			func(t *models.Tenant) { t.ApplyDeactivation(s.now) },
		)
		s.Require().NoError(err)

		_, ok := s.dir.ResolveTenant(s.ctx, "", &t.ID)
		s.False(ok)
	})

	s.Run("no hostname and no association means no tenant", func() {
		_, ok := s.dir.ResolveTenant(s.ctx, "", nil)
		s.False(ok)
	})
}

func (s *DirectorySuite) TestTTLRefresh() {
	t := s.newTenant("min-a")
	s.domains.set([]store.DomainTenant{{Domain: "a.example.de", Tenant: t}}, nil)
	s.now = s.now.Add(2 * time.Minute)

	_, ok := s.dir.ResolveTenant(s.ctx, "a.example.de", nil)
	s.Require().True(ok)
	callsAfterFirst := s.domains.callCount()

	s.Run("serves from the snapshot within the TTL", func() {
		s.now = s.now.Add(30 * time.Second)
		_, ok := s.dir.ResolveTenant(s.ctx, "a.example.de", nil)
		s.True(ok)
		s.Equal(callsAfterFirst, s.domains.callCount())
	})

	s.Run("rebuilds wholesale once the TTL passes", func() {
		t2 := s.newTenant("min-b")
		s.domains.set([]store.DomainTenant{{Domain: "b.example.de", Tenant: t2}}, nil)
		s.now = s.now.Add(2 * time.Minute)

		_, ok := s.dir.ResolveTenant(s.ctx, "b.example.de", nil)
		s.True(ok)
		// The old entry is gone: rebuilds replace, they don't merge.
		_, ok = s.dir.ResolveTenant(s.ctx, "a.example.de", nil)
		s.False(ok)
	})
}

func (s *DirectorySuite) TestRefreshFailureKeepsPreviousSnapshot() {
	t := s.newTenant("stable")
	s.domains.set([]store.DomainTenant{{Domain: "stable.example.de", Tenant: t}}, nil)
	s.now = s.now.Add(2 * time.Minute)

	_, ok := s.dir.ResolveTenant(s.ctx, "stable.example.de", nil)
	s.Require().True(ok)

	s.domains.set(nil, errors.New("store down"))
	s.now = s.now.Add(2 * time.Minute)

	got, ok := s.dir.ResolveTenant(s.ctx, "stable.example.de", nil)
	s.Require().True(ok, "stale-but-valid data is preferable to none")
	s.Equal(t.ID, got.ID)
}

func (s *DirectorySuite) TestConcurrentReadersDuringRefresh() {
	t := s.newTenant("conc")
	s.domains.set([]store.DomainTenant{{Domain: "conc.example.de", Tenant: t}}, nil)
	s.now = s.now.Add(2 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.dir.ResolveTenant(s.ctx, "conc.example.de", nil)
		}()
	}
	wg.Wait()

	// Expired concurrent readers collapse into one rebuild.
	s.Equal(1, s.domains.callCount())
}
