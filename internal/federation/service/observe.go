package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trustbridge/internal/federation/remote"
	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/platform/circuit"
)

// Protocol stages, used as span names and metric labels.
const (
	stageInitiate     = "initiate"
	stageExchange     = "exchange"
	stageValidate     = "validate"
	stageReissue      = "reissue"
	stageCIBAInitiate = "ciba.initiate"
	stageCIBAPoll     = "ciba.poll"
)

// startStage opens a span for one protocol stage. The returned func records
// duration, failure code and span status from *err; call it deferred with a
// named error return.
func (b *Broker) startStage(ctx context.Context, stage, networkID, providerID string, err *error) (context.Context, func()) {
	start := time.Now()
	ctx, span := b.tracer.Start(ctx, "federation."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("federation.network_id", networkID),
			attribute.String("federation.provider_id", providerID),
		),
	)
	return ctx, func() {
		b.metrics.ObserveStage(stage, start)
		if err != nil && *err != nil {
			code := string(dErrors.GetCode(*err))
			b.metrics.IncStageFailure(stage, code)
			span.RecordError(*err)
			span.SetAttributes(attribute.String("error.code", code))
			span.SetStatus(codes.Error, code)
		}
		span.End()
	}
}

func (b *Broker) breaker(providerID string) *circuit.Breaker {
	b.breakersMu.Lock()
	defer b.breakersMu.Unlock()
	br, ok := b.breakers[providerID]
	if !ok {
		opts := append([]circuit.Option{circuit.WithClock(b.clock)}, b.breakerOpts...)
		br = circuit.New(providerID, opts...)
		b.breakers[providerID] = br
	}
	return br
}

// callRemote runs op behind the provider's circuit breaker. Only retryable
// remote errors are retried; everything else fails on the first attempt.
func callRemote[T any](ctx context.Context, b *Broker, providerID string, retry bool, op func(context.Context) (T, error)) (T, error) {
	var zero T
	br := b.breaker(providerID)
	if !br.Allow() {
		return zero, remote.NewError(remote.CategoryOutage, providerID, "home provider circuit is open", nil)
	}

	tries := b.cfg.RetryMaxTries
	if !retry {
		tries = 1
	}
	policy := backoff.NewExponentialBackOff()
	if b.cfg.RetryInitialInterval > 0 {
		policy.InitialInterval = b.cfg.RetryInitialInterval
	}

	result, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op(ctx)
		if err != nil && !remote.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, next time.Duration) {
			b.metrics.IncRetry(providerID)
			b.logger.DebugContext(ctx, "retrying home provider call",
				"provider_id", providerID,
				"next", next,
				"error", err,
			)
		}),
	)

	b.recordOutcome(ctx, br, providerID, err)
	if err != nil {
		return zero, err
	}
	return result, nil
}

// recordOutcome feeds the breaker. Only transport-level failures count
// against a provider; protocol rejections prove it is reachable.
func (b *Broker) recordOutcome(ctx context.Context, br *circuit.Breaker, providerID string, err error) {
	if err != nil && remote.IsRetryable(err) {
		if br.RecordFailure().Opened {
			b.metrics.SetCircuitOpen(providerID, true)
			b.logger.WarnContext(ctx, "home provider circuit opened", "provider_id", providerID)
		}
		return
	}
	if br.RecordSuccess().Closed {
		b.metrics.SetCircuitOpen(providerID, false)
		b.logger.InfoContext(ctx, "home provider circuit closed", "provider_id", providerID)
	}
}
