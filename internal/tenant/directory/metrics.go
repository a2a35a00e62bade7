package directory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics observes the domain cache. Refresh failures matter most: a rising
// failure counter with an old snapshot means tenants resolve from stale data.
type Metrics struct {
	Hits            prometheus.Counter
	Misses          prometheus.Counter
	Refreshes       prometheus.Counter
	RefreshFailures prometheus.Counter
	CachedDomains   prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Hits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_domain_cache_hits_total",
			Help: "Hostname lookups answered from the domain cache",
		}),
		Misses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_domain_cache_misses_total",
			Help: "Hostname lookups not present in the domain cache",
		}),
		Refreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_domain_cache_refreshes_total",
			Help: "Successful wholesale rebuilds of the domain cache",
		}),
		RefreshFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_domain_cache_refresh_failures_total",
			Help: "Failed rebuilds; the previous snapshot stays in service",
		}),
		CachedDomains: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "publink_domain_cache_domains",
			Help: "Custom domains in the current cache snapshot",
		}),
	}
}
