package analytics

import (
	"context"
	"log/slog"
)

// Publisher mirrors recorded events onto an external stream. A nil publisher
// is valid and skips the mirror.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

const defaultQueueSize = 1024

// Recorder decouples event recording from the redirect path. Record never
// blocks: events go onto a bounded queue and a single worker drains them to
// the store and the publisher. When the queue is full the event is dropped
// and counted; losing an analytics row is preferable to delaying a redirect.
type Recorder struct {
	store     EventStore
	publisher Publisher
	queue     chan Event
	logger    *slog.Logger
	metrics   *Metrics
	done      chan struct{}
}

func NewRecorder(store EventStore, publisher Publisher, logger *slog.Logger, metrics *Metrics) *Recorder {
	return &Recorder{
		store:     store,
		publisher: publisher,
		queue:     make(chan Event, defaultQueueSize),
		logger:    logger,
		metrics:   metrics,
		done:      make(chan struct{}),
	}
}

// Record enqueues an event for asynchronous persistence.
func (r *Recorder) Record(ev Event) {
	select {
	case r.queue <- ev:
		if r.metrics != nil {
			r.metrics.QueueDepth.Set(float64(len(r.queue)))
		}
	default:
		if r.metrics != nil {
			r.metrics.EventsDropped.Inc()
		}
		r.logger.Warn("analytics queue full, dropping event", "link_id", ev.LinkID)
	}
}

// Run drains the queue until the context is cancelled, then flushes whatever
// is still queued before returning.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case ev := <-r.queue:
			r.persist(ctx, ev)
		case <-ctx.Done():
			r.flush()
			return
		}
	}
}

// Wait blocks until Run has returned.
func (r *Recorder) Wait() {
	<-r.done
}

func (r *Recorder) flush() {
	// Shutdown flush uses a fresh context; the run context is already
	// cancelled.
	ctx := context.Background()
	for {
		select {
		case ev := <-r.queue:
			r.persist(ctx, ev)
		default:
			return
		}
	}
}

func (r *Recorder) persist(ctx context.Context, ev Event) {
	if r.metrics != nil {
		r.metrics.QueueDepth.Set(float64(len(r.queue)))
	}
	if err := r.store.Append(ctx, ev); err != nil {
		r.logger.ErrorContext(ctx, "failed to persist analytics event",
			"link_id", ev.LinkID, "error", err.Error())
		return
	}
	if r.metrics != nil {
		r.metrics.EventsRecorded.Inc()
	}
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, ev); err != nil {
		if r.metrics != nil {
			r.metrics.PublishFailures.Inc()
		}
		r.logger.WarnContext(ctx, "failed to publish analytics event",
			"link_id", ev.LinkID, "error", err.Error())
		return
	}
	if r.metrics != nil {
		r.metrics.EventsPublished.Inc()
	}
}
