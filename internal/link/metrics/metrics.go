package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the link module.
type Metrics struct {
	LinksCreated        prometheus.Counter
	DestinationsBlocked prometheus.Counter
	RulesReplaced       prometheus.Counter
	RedirectsServed     *prometheus.CounterVec
	RedirectDuration    prometheus.Histogram
}

// New creates a new Metrics instance with all link module metrics registered.
func New() *Metrics {
	return &Metrics{
		LinksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_links_created_total",
			Help: "Total number of links created",
		}),
		DestinationsBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_destinations_blocked_total",
			Help: "Destinations rejected by whitelist enforcement",
		}),
		RulesReplaced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_routing_rules_replaced_total",
			Help: "Routing rule set replacements",
		}),
		RedirectsServed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "publink_redirects_total",
			Help: "Redirect requests by outcome",
		}, []string{"outcome"}),
		RedirectDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "publink_redirect_duration_seconds",
			Help:    "Duration of redirect resolution",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// Redirect outcome label values.
const (
	OutcomeRedirected = "redirected"
	OutcomeNotFound   = "not_found"
	OutcomeExpired    = "expired"
	OutcomeInactive   = "inactive"
	OutcomeBlocked    = "blocked"
)

// ObserveRedirect records a redirect outcome and its duration.
// Call with time.Now() from the start of the request.
func (m *Metrics) ObserveRedirect(outcome string, start time.Time) {
	m.RedirectsServed.WithLabelValues(outcome).Inc()
	m.RedirectDuration.Observe(time.Since(start).Seconds())
}
