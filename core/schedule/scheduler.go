package schedule

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Item is one independent unit of work, typically a single mutating API
// call. The scheduler holds a permit for the full duration of the call.
type Item func(ctx context.Context) error

// Scheduler runs independent work items with a fixed upper bound on
// simultaneous in-flight requests. Items are admitted through a counting
// permit pool; acquisition suspends the item until a permit frees.
//
// A failing item never cancels its siblings: errors are logged and
// surfaced to the item's own bookkeeping, not propagated. Completion
// order is unconstrained.
type Scheduler struct {
	permits    *semaphore.Weighted
	wg         sync.WaitGroup
	completed  atomic.Int64
	onProgress func(done int64)
	log        *zap.Logger
}

// New creates a scheduler admitting at most limit concurrent items.
func New(limit int, log *zap.Logger) *Scheduler {
	if limit <= 0 {
		limit = 1
	}
	return &Scheduler{
		permits: semaphore.NewWeighted(int64(limit)),
		log:     log,
	}
}

// OnProgress registers a callback fired exactly once per terminal
// outcome with the number of items completed so far. Must be set before
// the first Go call.
func (s *Scheduler) OnProgress(fn func(done int64)) {
	s.onProgress = fn
}

// Go schedules one work item. It returns immediately; the item runs once
// a permit is available. Cancellation of ctx while waiting for a permit
// counts as the item's terminal outcome.
func (s *Scheduler) Go(ctx context.Context, name string, item Item) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.advance()

		if err := s.permits.Acquire(ctx, 1); err != nil {
			s.log.Warn("work item cancelled before start",
				zap.String("item", name), zap.Error(err))
			return
		}
		defer s.permits.Release(1)

		if err := item(ctx); err != nil {
			s.log.Error("work item failed",
				zap.String("item", name), zap.Error(err))
		}
	}()
}

// Wait blocks until every scheduled item has reached a terminal outcome.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Completed returns the number of items that reached a terminal outcome.
func (s *Scheduler) Completed() int64 {
	return s.completed.Load()
}

func (s *Scheduler) advance() {
	done := s.completed.Add(1)
	if s.onProgress != nil {
		s.onProgress(done)
	}
}
