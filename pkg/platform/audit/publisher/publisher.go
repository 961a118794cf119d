// Package publisher emits audit events to a sink.
//
// Compliance events are always written synchronously and fail closed: if the
// sink rejects them, Emit returns the error and the calling operation must
// fail. Security and operations events may go through a bounded async
// buffer; operations events can additionally be sampled.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"trustbridge/pkg/platform/audit"
	"trustbridge/pkg/platform/audit/worker"
	"trustbridge/pkg/requestcontext"
)

var (
	ErrBufferFull = errors.New("audit buffer full")
	ErrClosed     = errors.New("audit publisher closed")
)

type Publisher struct {
	sink    audit.Sink
	logger  *slog.Logger
	metrics *Metrics
	sampler *Sampler
	clock   func() time.Time

	bufferSize int
	mu         sync.RWMutex
	closed     bool
	inbox      chan audit.Event
	done       chan struct{}
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables the async path for non-compliance events with a
// buffer of n events. Events that do not fit are dropped.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithSampler samples operations events.
func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		p.sampler = s
	}
}

func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func NewPublisher(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(sink, p.inbox,
			worker.WithLogger(p.logger),
			worker.WithFailureHook(func(e audit.Event, _ error) {
				p.metrics.IncPersistFailure(string(e.Category))
			}),
		)
		go func() {
			defer close(p.done)
			w.Run(context.Background())
		}()
	}
	return p
}

// Emit publishes one event. Missing ID, category, timestamp and request id
// are filled in. A nil error means the event was accepted (or sampled out).
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if event.Category == audit.CategoryOperations && p.sampler != nil && !p.sampler.ShouldSample(event.Action) {
		p.metrics.IncSampled()
		return nil
	}

	if p.inbox == nil || event.Category == audit.CategoryCompliance {
		return p.emitSync(ctx, event)
	}
	return p.enqueue(event)
}

func (p *Publisher) emitSync(ctx context.Context, event audit.Event) error {
	if err := p.sink.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailure(string(event.Category))
		if event.Category == audit.CategoryCompliance {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"action", event.Action,
				"flow_id", event.FlowID,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	p.metrics.IncEmitted(string(event.Category))
	return nil
}

func (p *Publisher) enqueue(event audit.Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- event:
		p.metrics.IncEmitted(string(event.Category))
		return nil
	default:
		p.metrics.IncDropped(string(event.Category))
		return ErrBufferFull
	}
}

// Close stops accepting async events and waits until the buffer is drained.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}
}
