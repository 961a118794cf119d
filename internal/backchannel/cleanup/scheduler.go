package cleanup

import (
	"context"
	"fmt"
	"time"
)

// Scheduler calls fn every interval until ctx is done.
type Scheduler interface {
	Every(ctx context.Context, interval time.Duration, fn func(context.Context)) error
}

// TickerScheduler drives fn from a time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("cleanup interval must be positive, got %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
