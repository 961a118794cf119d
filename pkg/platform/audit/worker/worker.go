package worker

import (
	"context"
	"log/slog"

	audit "trustbridge/pkg/platform/audit"
)

// Worker consumes audit events from a channel and forwards them to a sink.
// It keeps the async publishing path testable without a real broker.
type Worker struct {
	sink      audit.Sink
	inbox     <-chan audit.Event
	logger    *slog.Logger
	onFailure func(audit.Event, error)
}

// Option configures a Worker.
type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithFailureHook is called for every event the sink rejected.
func WithFailureHook(fn func(audit.Event, error)) Option {
	return func(w *Worker) {
		w.onFailure = fn
	}
}

func NewWorker(sink audit.Sink, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{sink: sink, inbox: inbox, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run forwards events until the inbox is closed. Failed appends are logged
// and skipped so one bad event cannot stall the queue. Cancelling ctx only
// affects in-flight appends; the inbox is always drained.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		if err := w.sink.Append(ctx, event); err != nil {
			w.logger.ErrorContext(ctx, "audit event dropped",
				"action", event.Action,
				"category", event.Category,
				"flow_id", event.FlowID,
				"error", err,
			)
			if w.onFailure != nil {
				w.onFailure(event, err)
			}
		}
	}
}
