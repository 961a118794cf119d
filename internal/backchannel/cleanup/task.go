// Package cleanup runs periodic sweeps of stale pending state: backchannel
// requests past their maximum age and expired federation flows.
package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Cleaner is the part of a backchannel provider a sweep needs.
type Cleaner interface {
	CleanupExpiredRequests(ctx context.Context, maxAge time.Duration) (int, error)
}

// Job is one named sweep. Sweep returns how many records it removed.
type Job struct {
	Name  string
	Sweep func(ctx context.Context) (int, error)
}

// BackchannelJob sweeps pending requests older than maxAge.
func BackchannelJob(name string, c Cleaner, maxAge time.Duration) Job {
	return Job{
		Name: name,
		Sweep: func(ctx context.Context) (int, error) {
			return c.CleanupExpiredRequests(ctx, maxAge)
		},
	}
}

// Task runs its jobs in order. One failing job does not stop the others.
type Task struct {
	jobs      []Job
	scheduler Scheduler
	logger    *slog.Logger
}

type Option func(*Task)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Task) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithScheduler(s Scheduler) Option {
	return func(t *Task) {
		if s != nil {
			t.scheduler = s
		}
	}
}

func New(jobs []Job, opts ...Option) *Task {
	t := &Task{
		jobs:      jobs,
		scheduler: TickerScheduler{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run performs one sweep of every job and returns the total removed.
func (t *Task) Run(ctx context.Context) (int, error) {
	total := 0
	var errs []error
	for _, job := range t.jobs {
		removed, err := job.Sweep(ctx)
		total += removed
		if err != nil {
			t.logger.WarnContext(ctx, "cleanup sweep failed", "job", job.Name, "removed", removed, "error", err)
			errs = append(errs, err)
			continue
		}
		t.logger.InfoContext(ctx, "cleanup sweep completed", "job", job.Name, "removed", removed)
	}
	return total, errors.Join(errs...)
}

// Start sweeps every interval until ctx is cancelled. Failed sweeps are
// logged and retried on the next tick.
func (t *Task) Start(ctx context.Context, interval time.Duration) error {
	return t.scheduler.Every(ctx, interval, func(ctx context.Context) {
		_, _ = t.Run(ctx)
	})
}
