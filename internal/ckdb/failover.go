package ckdb

import (
	"container/list"
	"context"
	"sync"
)

// Warner is called exactly once on the failed->queuing transition and
// once on resumption (spec.md §7: "database outages cause queuing with a
// single WARN on transition into the failed state and a single WARN on
// resumption"). A *zap.SugaredLogger's Warnw method satisfies this.
type Warner interface {
	Warnw(msg string, keysAndValues ...interface{})
}

// QueueingSink wraps a Sink that may fail (typically a network or
// timeout-bound backend) and queues events in memory across an outage
// instead of dropping them, replaying the backlog once the backend
// accepts writes again (spec.md §7).
type QueueingSink struct {
	backend Sink
	warn    Warner

	mu     sync.Mutex
	failed bool
	queue  *list.List
}

// NewQueueingSink wraps backend, using warn to emit the transition
// notices.
func NewQueueingSink(backend Sink, warn Warner) *QueueingSink {
	return &QueueingSink{backend: backend, warn: warn, queue: list.New()}
}

// Write attempts backend.Write. On failure it queues the event and warns
// once per failure episode. On a success after a prior failure the new
// event has already been written; Write then warns once that service has
// resumed and replays the queued events after it.
func (s *QueueingSink) Write(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Write(ctx, event); err != nil {
		s.queue.PushBack(event)
		if !s.failed {
			s.failed = true
			s.warn.Warnw("ckdb: database unreachable, queuing events", "error", err)
		}
		return nil
	}

	if s.failed {
		s.failed = false
		s.warn.Warnw("ckdb: database reachable again, draining queue", "queued", s.queue.Len())
		s.drainLocked(ctx)
	}
	return nil
}

func (s *QueueingSink) drainLocked(ctx context.Context) {
	for e := s.queue.Front(); e != nil; {
		next := e.Next()
		event := e.Value.(Event)
		if err := s.backend.Write(ctx, event); err != nil {
			// backend failed again mid-drain; stop and let the next Write
			// re-enter the failed state.
			s.failed = true
			return
		}
		s.queue.Remove(e)
		e = next
	}
}

// QueueLen reports how many events are currently backlogged.
func (s *QueueingSink) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}
