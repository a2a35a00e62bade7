// Package retention enforces per-tenant data retention windows. The enforcer
// runs on a fixed interval and deletes analytics events and audit records
// older than each tenant's configured window.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"publink/internal/analytics"
	"publink/internal/privacy"
	"publink/internal/tenant/models"
	"publink/internal/tenant/store"
)

const day = 24 * time.Hour

// Metrics provides observability for the retention module.
type Metrics struct {
	EventsDeleted prometheus.Counter
	AuditsDeleted prometheus.Counter
	SweepFailures prometheus.Counter
	SweepDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		EventsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_retention_events_deleted_total",
			Help: "Analytics events deleted by the retention sweep",
		}),
		AuditsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_retention_audits_deleted_total",
			Help: "Audit records deleted by the retention sweep",
		}),
		SweepFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_retention_sweep_failures_total",
			Help: "Per-tenant sweep failures",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "publink_retention_sweep_duration_seconds",
			Help:    "Duration of a full retention sweep",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Report summarizes one sweep. A sweep that fails for one tenant still runs
// for every other; FailedTenants carries the IDs that need operator attention.
type Report struct {
	EventsDeleted int64
	AuditsDeleted int64
	TenantsSwept  int
	FailedTenants []uuid.UUID
}

// Clock returns the current time; injected for tests.
type Clock func() time.Time

// Enforcer deletes data past each tenant's retention window. Windows roll:
// the cutoff is N days before sweep time, so yesterday's compliant row is
// deleted tomorrow once it ages past the window. N of zero means keep
// nothing, it deletes everything older than the sweep time itself.
type Enforcer struct {
	tenants  store.TenantStore
	events   analytics.EventStore
	audits   analytics.AuditStore
	defaults privacy.Settings
	interval time.Duration
	clock    Clock
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Enforcer)

func WithClock(clock Clock) Option {
	return func(e *Enforcer) { e.clock = clock }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Enforcer) { e.metrics = m }
}

// WithDefaultRetentionDays overrides the analytics window applied to data
// outside any tenant.
func WithDefaultRetentionDays(days int) Option {
	return func(e *Enforcer) { e.defaults.AnalyticsRetentionDays = days }
}

func New(tenants store.TenantStore, events analytics.EventStore, audits analytics.AuditStore, interval time.Duration, logger *slog.Logger, opts ...Option) *Enforcer {
	e := &Enforcer{
		tenants:  tenants,
		events:   events,
		audits:   audits,
		defaults: privacy.DefaultSettings(),
		interval: interval,
		clock:    time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run sweeps immediately, then on every interval tick until the context is
// cancelled.
func (e *Enforcer) Run(ctx context.Context) {
	e.sweep(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Enforcer) sweep(ctx context.Context) {
	start := e.clock()
	report := e.RunCleanup(ctx)
	if e.metrics != nil {
		e.metrics.SweepDuration.Observe(e.clock().Sub(start).Seconds())
	}
	e.logger.InfoContext(ctx, "retention sweep finished",
		"tenants_swept", report.TenantsSwept,
		"events_deleted", report.EventsDeleted,
		"audits_deleted", report.AuditsDeleted,
		"failed_tenants", len(report.FailedTenants))
}

// RunCleanup executes one full sweep: every active tenant under its own
// window, then tenantless data under the platform defaults. Deactivated
// tenants are left untouched; their data is kept frozen until reactivation.
// One tenant's failure never blocks another's cleanup.
func (e *Enforcer) RunCleanup(ctx context.Context) Report {
	var report Report
	now := e.clock()

	tenants, err := e.tenants.ListActive(ctx)
	if err != nil {
		e.logger.ErrorContext(ctx, "retention sweep cannot list tenants", "error", err.Error())
		if e.metrics != nil {
			e.metrics.SweepFailures.Inc()
		}
		return report
	}

	for _, t := range tenants {
		events, audits, err := e.sweepTenant(ctx, t, now)
		report.EventsDeleted += events
		report.AuditsDeleted += audits
		if err != nil {
			report.FailedTenants = append(report.FailedTenants, t.ID)
			if e.metrics != nil {
				e.metrics.SweepFailures.Inc()
			}
			e.logger.ErrorContext(ctx, "retention sweep failed for tenant",
				"tenant_id", t.ID, "error", err.Error())
			continue
		}
		report.TenantsSwept++
	}

	// Tenantless data falls under the platform defaults.
	events, audits, err := e.deleteScoped(ctx, nil, e.defaults, now)
	report.EventsDeleted += events
	report.AuditsDeleted += audits
	if err != nil {
		if e.metrics != nil {
			e.metrics.SweepFailures.Inc()
		}
		e.logger.ErrorContext(ctx, "retention sweep failed for platform data", "error", err.Error())
	}

	if e.metrics != nil {
		e.metrics.EventsDeleted.Add(float64(report.EventsDeleted))
		e.metrics.AuditsDeleted.Add(float64(report.AuditsDeleted))
	}
	return report
}

func (e *Enforcer) sweepTenant(ctx context.Context, t *models.Tenant, now time.Time) (int64, int64, error) {
	return e.deleteScoped(ctx, &t.ID, t.PrivacySettings, now)
}

func (e *Enforcer) deleteScoped(ctx context.Context, tenantID *uuid.UUID, settings privacy.Settings, now time.Time) (int64, int64, error) {
	eventCutoff := now.Add(-time.Duration(settings.AnalyticsRetentionDays) * day)
	events, err := e.events.DeleteOlderThan(ctx, tenantID, eventCutoff)
	if err != nil {
		return events, 0, err
	}

	auditCutoff := now.Add(-time.Duration(settings.AuditLogRetentionDays) * day)
	audits, err := e.audits.DeleteAuditOlderThan(ctx, tenantID, auditCutoff)
	return events, audits, err
}
