// Package directory resolves inbound hostnames and user associations to a
// tenant. It owns the domain→tenant cache, the only piece of shared mutable
// state on the redirect path.
package directory

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"publink/internal/tenant/models"
	"publink/internal/tenant/store"
)

// Clock is injected so tests can drive cache expiry without sleeping.
type Clock func() time.Time

type cacheSnapshot struct {
	domains map[string]*models.Tenant
	builtAt time.Time
}

// Directory maps hostnames to tenants through a time-bounded cache.
//
// The cache is rebuilt wholesale from the store once its age exceeds the TTL.
// Readers always see a complete snapshot: rebuilds assemble a fresh map and
// install it with a single atomic pointer swap, so a refresh in progress
// never blocks or tears reads. A failed rebuild keeps the previous snapshot.
type Directory struct {
	tenants  store.TenantStore
	domains  store.CustomDomainStore
	ttl      time.Duration
	clock    Clock
	logger   *slog.Logger
	metrics  *Metrics
	snapshot atomic.Pointer[cacheSnapshot]
	refresh  singleflight.Group
}

func New(tenants store.TenantStore, domains store.CustomDomainStore, ttl time.Duration, logger *slog.Logger, opts ...Option) *Directory {
	d := &Directory{
		tenants: tenants,
		domains: domains,
		ttl:     ttl,
		clock:   time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.snapshot.Store(&cacheSnapshot{domains: map[string]*models.Tenant{}})
	return d
}

// Option configures a Directory.
type Option func(*Directory)

// WithClock overrides the cache clock, for tests.
func WithClock(clock Clock) Option {
	return func(d *Directory) { d.clock = clock }
}

// WithMetrics attaches cache observability.
func WithMetrics(m *Metrics) Option {
	return func(d *Directory) { d.metrics = m }
}

// ResolveTenant resolves the request's tenant.
//
// Resolution order: (1) exact match of the normalized hostname against the
// domain cache; (2) the authenticated caller's tenant association, fetched by
// id; (3) no tenant, meaning platform-wide defaults apply.
func (d *Directory) ResolveTenant(ctx context.Context, hostname string, userTenantID *uuid.UUID) (*models.Tenant, bool) {
	snap := d.current(ctx)

	if hostname != "" {
		host := strings.ToLower(strings.TrimSpace(hostname))
		// Hostnames may arrive with a port from the Host header.
		if idx := strings.LastIndex(host, ":"); idx != -1 && !strings.Contains(host[idx:], "]") {
			host = host[:idx]
		}
		if t, ok := snap.domains[host]; ok {
			d.observeHit(true)
			return t, true
		}
	}
	d.observeHit(false)

	if userTenantID != nil && *userTenantID != uuid.Nil {
		t, err := d.tenants.FindByID(ctx, *userTenantID)
		if err == nil && t.IsActive() {
			return t, true
		}
	}
	return nil, false
}

// current returns the live snapshot, refreshing it first when stale. Stale
// reads during a concurrent refresh are deliberate: a slightly old tenant
// mapping beats blocking the redirect path.
func (d *Directory) current(ctx context.Context) *cacheSnapshot {
	snap := d.snapshot.Load()
	if d.clock().Sub(snap.builtAt) <= d.ttl {
		return snap
	}

	// Concurrent expired readers collapse into one rebuild.
	fresh, err, _ := d.refresh.Do("rebuild", func() (any, error) {
		return d.rebuild(ctx)
	})
	if err != nil {
		if d.metrics != nil {
			d.metrics.RefreshFailures.Inc()
		}
		d.logger.ErrorContext(ctx, "domain cache refresh failed, serving previous snapshot",
			"error", err.Error(),
			"cache_age", d.clock().Sub(snap.builtAt).String(),
		)
		return snap
	}
	return fresh.(*cacheSnapshot)
}

func (d *Directory) rebuild(ctx context.Context) (*cacheSnapshot, error) {
	// Another caller may have finished a rebuild while we waited on the
	// singleflight; don't hit the store again if the snapshot is fresh.
	if snap := d.snapshot.Load(); d.clock().Sub(snap.builtAt) <= d.ttl {
		return snap, nil
	}

	pairs, err := d.domains.ListActiveWithTenant(ctx)
	if err != nil {
		return nil, err
	}
	domains := make(map[string]*models.Tenant, len(pairs))
	for _, p := range pairs {
		domains[strings.ToLower(p.Domain)] = p.Tenant
	}
	snap := &cacheSnapshot{domains: domains, builtAt: d.clock()}
	d.snapshot.Store(snap)

	if d.metrics != nil {
		d.metrics.Refreshes.Inc()
		d.metrics.CachedDomains.Set(float64(len(domains)))
	}
	d.logger.DebugContext(ctx, "domain cache rebuilt", "domains", len(domains))
	return snap, nil
}

func (d *Directory) observeHit(hit bool) {
	if d.metrics == nil {
		return
	}
	if hit {
		d.metrics.Hits.Inc()
	} else {
		d.metrics.Misses.Inc()
	}
}
