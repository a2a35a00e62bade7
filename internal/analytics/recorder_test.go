package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"publink/internal/platform/logger"
)

type RecorderSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *RecorderSuite) TestRecordsAsynchronously() {
	rec := NewRecorder(s.store, nil, logger.New(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go rec.Run(ctx)

	linkID := uuid.New()
	for i := 0; i < 5; i++ {
		rec.Record(Event{ID: uuid.New(), LinkID: linkID, Timestamp: time.Now()})
	}

	cancel()
	rec.Wait()

	events, err := s.store.ListByLink(context.Background(), linkID, 10)
	s.Require().NoError(err)
	s.Len(events, 5)
}

func (s *RecorderSuite) TestFlushesQueueOnShutdown() {
	rec := NewRecorder(s.store, nil, logger.New(), nil)
	linkID := uuid.New()

	// Enqueue before the worker starts, then cancel immediately: the
	// shutdown flush must still drain everything.
	for i := 0; i < 10; i++ {
		rec.Record(Event{ID: uuid.New(), LinkID: linkID, Timestamp: time.Now()})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go rec.Run(ctx)
	rec.Wait()

	events, err := s.store.ListByLink(context.Background(), linkID, 20)
	s.Require().NoError(err)
	s.Len(events, 10)
}

type blockingPublisher struct {
	published chan Event
}

func (p *blockingPublisher) Publish(_ context.Context, ev Event) error {
	p.published <- ev
	return nil
}

func (s *RecorderSuite) TestPublishesAfterPersisting() {
	pub := &blockingPublisher{published: make(chan Event, 1)}
	rec := NewRecorder(s.store, pub, logger.New(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	ev := Event{ID: uuid.New(), LinkID: uuid.New(), Timestamp: time.Now()}
	rec.Record(ev)

	select {
	case got := <-pub.published:
		s.Equal(ev.ID, got.ID)
	case <-time.After(2 * time.Second):
		s.Fail("event was never published")
	}

	events, err := s.store.ListByLink(context.Background(), ev.LinkID, 1)
	s.Require().NoError(err)
	s.Len(events, 1)
}
