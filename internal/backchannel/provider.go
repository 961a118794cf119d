// Package backchannel defines the capability every decoupled-authentication
// backend implements. Backends are selected per deployment (file queue,
// simulator, Redis) and share one contract:
//
//   - AuthenticationStatus never reports "not found": an id without a record
//     reads as PENDING, tolerating read-after-write races across processes.
//   - A terminal status is final for its id; retries need a new id.
//   - Cancel and cleanup remove pending records only and never fail for
//     absent ids.
package backchannel

import (
	"context"
	"time"

	"trustbridge/internal/backchannel/models"
)

// Provider is a backchannel authentication backend.
type Provider interface {
	// InitiateAuthentication registers a pending attempt. Re-registering an id
	// that already has a pending or resolved record fails with CodeConflict.
	InitiateAuthentication(ctx context.Context, req *models.Request) error

	// AuthenticationStatus returns the current snapshot for authReqID.
	AuthenticationStatus(ctx context.Context, authReqID string) (models.AuthStatus, error)

	// CancelAuthentication removes a pending attempt. Absent ids are a no-op.
	CancelAuthentication(ctx context.Context, authReqID string) error

	// CleanupExpiredRequests removes pending attempts older than maxAge and
	// returns how many were removed.
	CleanupExpiredRequests(ctx context.Context, maxAge time.Duration) (int, error)

	// SupportedDeliveryModes advertises delivery modes for discovery.
	SupportedDeliveryModes() []models.DeliveryMode

	// Exists distinguishes a real record from the synthetic PENDING default.
	Exists(ctx context.Context, authReqID string) (bool, error)
}

// Resolver is implemented by backends that accept decisions through the
// broker itself instead of an external writer.
type Resolver interface {
	Resolve(ctx context.Context, authReqID string, r models.Resolution) error
}

// Kind names a backend for configuration and metrics labels.
type Kind string

const (
	KindFile  Kind = "file"
	KindMock  Kind = "mock"
	KindRedis Kind = "redis"
)

func (k Kind) IsValid() bool {
	return k == KindFile || k == KindMock || k == KindRedis
}
