package service

import (
	"context"

	dErrors "trustbridge/pkg/domain-errors"
)

// SweepExpiredFlows drops flows past their TTL. It backs the flow job of the
// cleanup task.
func (b *Broker) SweepExpiredFlows(ctx context.Context) (int, error) {
	n, err := b.flows.DeleteExpired(ctx, b.now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep expired flows")
	}
	if n > 0 {
		b.logger.InfoContext(ctx, "expired federation flows removed", "count", n)
	}
	return n, nil
}
