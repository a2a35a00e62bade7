package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"publink/internal/tenant/models"
	"publink/pkg/platform/sentinel"
)

// In-memory stores keep development and tests lightweight. They intentionally
// favor clarity over performance.

type InMemoryTenantStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*models.Tenant
}

func NewInMemoryTenantStore() *InMemoryTenantStore {
	return &InMemoryTenantStore{tenants: make(map[uuid.UUID]*models.Tenant)}
}

func (s *InMemoryTenantStore) CreateIfSlugAvailable(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tenants {
		if strings.EqualFold(existing.Slug, t.Slug) {
			return sentinel.ErrConflict
		}
	}
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *InMemoryTenantStore) FindByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryTenantStore) FindBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if strings.EqualFold(t.Slug, slug) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryTenantStore) Update(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *InMemoryTenantStore) Execute(_ context.Context, id uuid.UUID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)
	cp := *t
	return &cp, nil
}

func (s *InMemoryTenantStore) ListActive(_ context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Tenant
	for _, t := range s.tenants {
		if t.IsActive() {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type InMemoryCustomDomainStore struct {
	mu      sync.RWMutex
	domains map[uuid.UUID]*models.CustomDomain
	tenants *InMemoryTenantStore
}

// NewInMemoryCustomDomainStore joins against the given tenant store for
// ListActiveWithTenant, mirroring the SQL join in the Postgres store.
func NewInMemoryCustomDomainStore(tenants *InMemoryTenantStore) *InMemoryCustomDomainStore {
	return &InMemoryCustomDomainStore{
		domains: make(map[uuid.UUID]*models.CustomDomain),
		tenants: tenants,
	}
}

func (s *InMemoryCustomDomainStore) Create(_ context.Context, d *models.CustomDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.domains {
		if existing.Domain == d.Domain {
			return sentinel.ErrConflict
		}
	}
	cp := *d
	s.domains[d.ID] = &cp
	return nil
}

func (s *InMemoryCustomDomainStore) MarkVerified(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.domains[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	d.Verified = true
	return nil
}

func (s *InMemoryCustomDomainStore) DeleteByTenant(_ context.Context, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.domains {
		if d.TenantID == tenantID {
			delete(s.domains, id)
		}
	}
	return nil
}

func (s *InMemoryCustomDomainStore) ListActiveWithTenant(ctx context.Context) ([]DomainTenant, error) {
	s.mu.RLock()
	domains := make([]*models.CustomDomain, 0, len(s.domains))
	for _, d := range s.domains {
		if d.Verified {
			cp := *d
			domains = append(domains, &cp)
		}
	}
	s.mu.RUnlock()

	var out []DomainTenant
	for _, d := range domains {
		t, err := s.tenants.FindByID(ctx, d.TenantID)
		if err != nil || !t.IsActive() {
			continue
		}
		out = append(out, DomainTenant{Domain: d.Domain, Tenant: t})
	}
	return out, nil
}
