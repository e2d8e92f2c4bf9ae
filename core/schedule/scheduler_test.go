package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSchedulerRespectsConcurrencyBound(t *testing.T) {
	const limit = 3
	const work = 20

	sched := New(limit, zap.NewNop())

	var inFlight, peak atomic.Int64
	for i := 0; i < work; i++ {
		sched.Go(context.Background(), "item", func(ctx context.Context) error {
			now := inFlight.Add(1)
			defer inFlight.Add(-1)

			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}

			time.Sleep(10 * time.Millisecond)
			return nil
		})
	}
	sched.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(limit))
	assert.Equal(t, int64(work), sched.Completed())
}

func TestSchedulerProgressPerTerminalOutcome(t *testing.T) {
	sched := New(2, zap.NewNop())

	var reported atomic.Int64
	sched.OnProgress(func(done int64) {
		reported.Add(1)
	})

	for i := 0; i < 5; i++ {
		i := i
		sched.Go(context.Background(), "item", func(ctx context.Context) error {
			if i%2 == 0 {
				return errors.New("boom")
			}
			return nil
		})
	}
	sched.Wait()

	// Failures are terminal outcomes too; exactly one report per item.
	assert.Equal(t, int64(5), reported.Load())
	assert.Equal(t, int64(5), sched.Completed())
}

func TestSchedulerFailureDoesNotCancelSiblings(t *testing.T) {
	sched := New(1, zap.NewNop())

	var succeeded atomic.Int64
	sched.Go(context.Background(), "failing", func(ctx context.Context) error {
		return errors.New("boom")
	})
	for i := 0; i < 3; i++ {
		sched.Go(context.Background(), "ok", func(ctx context.Context) error {
			succeeded.Add(1)
			return nil
		})
	}
	sched.Wait()

	assert.Equal(t, int64(3), succeeded.Load())
}

func TestSchedulerCancelledWhileWaitingForPermit(t *testing.T) {
	sched := New(1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	sched.Go(context.Background(), "holder", func(ctx context.Context) error {
		<-release
		return nil
	})

	var ran atomic.Bool
	sched.Go(ctx, "blocked", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	cancel()
	// Give the blocked item time to observe the cancellation, then free
	// the permit holder.
	time.Sleep(50 * time.Millisecond)
	close(release)
	sched.Wait()

	require.False(t, ran.Load())
	// Both items reached a terminal outcome.
	assert.Equal(t, int64(2), sched.Completed())
}
