package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"trustbridge/internal/ratelimit/models"
)

// InMemoryBucketStore keeps one token bucket per key. Buckets are process
// local; a fleet of brokers enforces the limit per instance.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewInMemoryBucketStore() *InMemoryBucketStore {
	return &InMemoryBucketStore{buckets: make(map[string]*bucket)}
}

// Allow takes one token from key's bucket at now. A bucket whose limit
// changed since it was created is reconfigured in place.
func (s *InMemoryBucketStore) Allow(_ context.Context, key string, limit models.Limit, now time.Time) models.RateLimitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(limit.PerSecond), limit.Burst)}
		s.buckets[key] = b
	} else if b.limiter.Limit() != rate.Limit(limit.PerSecond) || b.limiter.Burst() != limit.Burst {
		b.limiter.SetLimitAt(now, rate.Limit(limit.PerSecond))
		b.limiter.SetBurstAt(now, limit.Burst)
	}
	b.lastSeen = now

	result := models.RateLimitResult{Limit: limit.Burst}
	if b.limiter.AllowN(now, 1) {
		tokens := b.limiter.TokensAt(now)
		result.Allowed = true
		result.Remaining = int(math.Max(0, math.Floor(tokens)))
		result.ResetAt = now.Add(refillTime(limit, float64(limit.Burst)-tokens))
		return result
	}

	wait := refillTime(limit, 1-b.limiter.TokensAt(now))
	result.ResetAt = now.Add(wait)
	result.RetryAfter = max(1, int(math.Ceil(wait.Seconds())))
	return result
}

// Sweep drops buckets not used since idle before now and returns how many
// were removed.
func (s *InMemoryBucketStore) Sweep(_ context.Context, now time.Time, idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// Len is the number of live buckets.
func (s *InMemoryBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func refillTime(limit models.Limit, tokens float64) time.Duration {
	if tokens <= 0 || limit.PerSecond <= 0 {
		return 0
	}
	return time.Duration(tokens / limit.PerSecond * float64(time.Second))
}
