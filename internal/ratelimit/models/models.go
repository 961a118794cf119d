package models

import "time"

// EndpointClass selects which limit applies to a route.
type EndpointClass string

const (
	// ClassClient covers relying-party endpoints; buckets are keyed by client id.
	ClassClient EndpointClass = "client"
	// ClassPublic covers unauthenticated endpoints; buckets are keyed by caller IP.
	ClassPublic EndpointClass = "public"
)

func (c EndpointClass) IsValid() bool {
	return c == ClassClient || c == ClassPublic
}

// Limit is a token bucket refill rate and capacity.
type Limit struct {
	PerSecond float64
	Burst     int
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, only set when not allowed
}
