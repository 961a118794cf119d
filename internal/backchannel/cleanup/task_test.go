package cleanup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCleaner struct {
	removed int
	err     error
	maxAge  time.Duration
	calls   int
}

func (c *stubCleaner) CleanupExpiredRequests(_ context.Context, maxAge time.Duration) (int, error) {
	c.calls++
	c.maxAge = maxAge
	return c.removed, c.err
}

// countingScheduler invokes fn a fixed number of times, then stops.
type countingScheduler struct {
	ticks int
}

func (s countingScheduler) Every(ctx context.Context, _ time.Duration, fn func(context.Context)) error {
	for range s.ticks {
		fn(ctx)
	}
	return context.Canceled
}

func TestTaskRun(t *testing.T) {
	t.Run("sums removed counts and passes max age", func(t *testing.T) {
		a := &stubCleaner{removed: 2}
		b := &stubCleaner{removed: 3}
		task := New([]Job{
			BackchannelJob("file", a, time.Hour),
			BackchannelJob("flows", b, 10*time.Minute),
		})

		removed, err := task.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 5, removed)
		assert.Equal(t, time.Hour, a.maxAge)
		assert.Equal(t, 10*time.Minute, b.maxAge)
	})

	t.Run("a failing job does not stop the rest", func(t *testing.T) {
		boom := errors.New("disk gone")
		failing := &stubCleaner{err: boom}
		healthy := &stubCleaner{removed: 4}
		task := New([]Job{
			BackchannelJob("broken", failing, time.Hour),
			BackchannelJob("ok", healthy, time.Hour),
		})

		removed, err := task.Run(context.Background())
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 4, removed)
		assert.Equal(t, 1, healthy.calls)
	})
}

func TestTaskStart(t *testing.T) {
	c := &stubCleaner{removed: 1}
	task := New([]Job{BackchannelJob("mock", c, time.Minute)}, WithScheduler(countingScheduler{ticks: 3}))

	err := task.Start(context.Background(), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, c.calls)
}

func TestTickerScheduler(t *testing.T) {
	t.Run("rejects non-positive interval", func(t *testing.T) {
		err := TickerScheduler{}.Every(context.Background(), 0, func(context.Context) {})
		assert.Error(t, err)
	})

	t.Run("ticks until cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var ticks atomic.Int32
		done := make(chan error, 1)
		go func() {
			done <- TickerScheduler{}.Every(ctx, time.Millisecond, func(context.Context) {
				ticks.Add(1)
			})
		}()

		assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})
}
