package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the analytics module.
type Metrics struct {
	EventsRecorded  prometheus.Counter
	EventsDropped   prometheus.Counter
	EventsPublished prometheus.Counter
	PublishFailures prometheus.Counter
	QueueDepth      prometheus.Gauge
}

// New creates a new Metrics instance with all analytics module metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_analytics_events_recorded_total",
			Help: "Redirect events written to the event store",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_analytics_events_dropped_total",
			Help: "Redirect events dropped because the recorder queue was full",
		}),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_analytics_events_published_total",
			Help: "Redirect events published to the event stream",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "publink_analytics_publish_failures_total",
			Help: "Failed publishes to the event stream",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "publink_analytics_queue_depth",
			Help: "Events waiting in the recorder queue",
		}),
	}
}
