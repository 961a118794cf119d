package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"trustbridge/internal/ratelimit/metrics"
	"trustbridge/internal/ratelimit/models"
	"trustbridge/internal/ratelimit/store/bucket"
	"trustbridge/pkg/platform/httputil"
	"trustbridge/pkg/requestcontext"
)

type Middleware struct {
	store    *bucket.InMemoryBucketStore
	limits   map[models.EndpointClass]models.Limit
	idleTTL  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// WithIdleTTL sets how long an unused bucket survives a Sweep.
func WithIdleTTL(d time.Duration) Option {
	return func(m *Middleware) {
		if d > 0 {
			m.idleTTL = d
		}
	}
}

func New(store *bucket.InMemoryBucketStore, limits map[models.EndpointClass]models.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:   store,
		limits:  limits,
		idleTTL: 10 * time.Minute,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit refuses requests over the class limit with 429. Client-class
// routes must sit behind client authentication; without a client id in the
// context the caller IP is used as the key.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit, ok := m.limits[class]
			if m.disabled || !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := "ip:" + requestcontext.ClientIP(ctx)
			if class == models.ClassClient {
				if clientID := requestcontext.ClientID(ctx); clientID != "" {
					key = "client:" + clientID
				}
			}

			result := m.store.Allow(ctx, string(class)+"|"+key, limit, requestcontext.Now(ctx))
			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.metrics.IncrementRejected(string(class))
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"class", class,
					"key", key,
					"retry_after", result.RetryAfter,
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteOAuthError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests, retry later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Sweep evicts idle buckets. It has the signature of a cleanup job.
func (m *Middleware) Sweep(ctx context.Context) (int, error) {
	removed := m.store.Sweep(ctx, time.Now(), m.idleTTL)
	m.metrics.SetBuckets(m.store.Len())
	return removed, nil
}

func addRateLimitHeaders(w http.ResponseWriter, result models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
