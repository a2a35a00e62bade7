package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant module.
type Metrics struct {
	TenantCreated         prometheus.Counter
	SettingsUpdated       prometheus.Counter
	WhitelistRejections   prometheus.Counter
	ResolveTenantDuration prometheus.Histogram
}

// New creates a new Metrics instance with all tenant module metrics registered.
func New() *Metrics {
	return &Metrics{
		TenantCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		SettingsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_tenant_settings_updates_total",
			Help: "Total number of tenant settings updates",
		}),
		WhitelistRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_tenant_whitelist_rejections_total",
			Help: "Whitelist updates rejected for invalid patterns",
		}),
		ResolveTenantDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "publink_resolve_tenant_duration_seconds",
			Help:    "Duration of tenant resolution (redirect critical path)",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

// IncrementTenantCreated records a successful tenant creation.
func (m *Metrics) IncrementTenantCreated() {
	m.TenantCreated.Inc()
}

// ObserveResolveTenant records the duration of a tenant resolution.
// Call with time.Now() from the start of the operation.
func (m *Metrics) ObserveResolveTenant(start time.Time) {
	m.ResolveTenantDuration.Observe(time.Since(start).Seconds())
}
