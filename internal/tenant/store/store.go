package store

import (
	"context"

	"github.com/google/uuid"

	"publink/internal/tenant/models"
)

// Stores are interface-driven so domain logic stays testable and the
// in-memory and Postgres implementations remain interchangeable. They return
// sentinel errors (pkg/platform/sentinel); services translate those into
// domain errors.

// TenantStore persists tenant aggregates.
type TenantStore interface {
	// CreateIfSlugAvailable inserts the tenant unless the slug is taken
	// (case-insensitive); returns sentinel.ErrConflict when it is.
	CreateIfSlugAvailable(ctx context.Context, t *models.Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Update(ctx context.Context, t *models.Tenant) error
	// Execute atomically runs validate then mutate against the stored
	// tenant, holding the store's lock (mutex or FOR UPDATE) across both.
	Execute(ctx context.Context, id uuid.UUID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error)
	// ListActive returns every active tenant. Deactivated tenants stay out
	// of both the domain cache feed and the retention sweep.
	ListActive(ctx context.Context) ([]*models.Tenant, error)
}

// DomainTenant pairs a custom domain with its owning tenant for cache builds.
type DomainTenant struct {
	Domain string
	Tenant *models.Tenant
}

// CustomDomainStore persists tenant custom domains.
type CustomDomainStore interface {
	// Create inserts the domain unless it is already claimed by any tenant;
	// returns sentinel.ErrConflict when it is.
	Create(ctx context.Context, d *models.CustomDomain) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error
	// ListActiveWithTenant returns every verified domain joined with its
	// tenant, restricted to active tenants. This is the domain cache feed.
	ListActiveWithTenant(ctx context.Context) ([]DomainTenant, error)
}
