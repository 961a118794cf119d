package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustbridge/internal/ratelimit/models"
	"trustbridge/internal/ratelimit/store/bucket"
	"trustbridge/pkg/requestcontext"
	"trustbridge/pkg/testutil"
)

func newMiddleware(opts ...Option) *Middleware {
	return New(bucket.NewInMemoryBucketStore(), map[models.EndpointClass]models.Limit{
		models.ClassClient: {PerSecond: 1, Burst: 1},
		models.ClassPublic: {PerSecond: 1, Burst: 2},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func request(t *testing.T, clientID, ip string, at time.Time) *http.Request {
	req := testutil.WithRequestTime(testutil.NewRequest(t, http.MethodPost, "/token"), at)
	ctx := requestcontext.WithClientIP(req.Context(), ip)
	if clientID != "" {
		ctx = requestcontext.WithClientID(ctx, clientID)
	}
	return req.WithContext(ctx)
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	testutil.Given(t, "a client limit of one request per second", func(t *testing.T) {
		m := newMiddleware()
		h := m.RateLimit(models.ClassClient)(okHandler)

		testutil.When(t, "the same client calls twice in the same instant", func(t *testing.T) {
			first := testutil.DoRequest(h, request(t, "rp-clinic", "192.0.2.1", now))
			second := testutil.DoRequest(h, request(t, "rp-clinic", "192.0.2.2", now))

			testutil.Then(t, "the second call is refused with retry hints", func(t *testing.T) {
				testutil.AssertStatus(t, first, http.StatusNoContent)
				assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
				testutil.AssertStatusAndError(t, second, http.StatusTooManyRequests, "rate_limit_exceeded")
				assert.Equal(t, "1", second.Header().Get("Retry-After"))
			})
		})

		testutil.When(t, "another client calls", func(t *testing.T) {
			rr := testutil.DoRequest(h, request(t, "rp-other", "192.0.2.1", now))
			testutil.Then(t, "it has its own bucket", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusNoContent)
			})
		})
	})

	testutil.Given(t, "a public limit keyed by IP", func(t *testing.T) {
		h := newMiddleware().RateLimit(models.ClassPublic)(okHandler)
		for range 2 {
			testutil.AssertStatus(t, testutil.DoRequest(h, request(t, "", "198.51.100.7", now)), http.StatusNoContent)
		}
		rr := testutil.DoRequest(h, request(t, "", "198.51.100.7", now))
		testutil.AssertStatus(t, rr, http.StatusTooManyRequests)
	})

	testutil.Given(t, "rate limiting is disabled", func(t *testing.T) {
		h := newMiddleware(WithDisabled(true)).RateLimit(models.ClassClient)(okHandler)
		for range 3 {
			testutil.AssertStatus(t, testutil.DoRequest(h, request(t, "rp-clinic", "192.0.2.1", now)), http.StatusNoContent)
		}
	})
}

func TestSweepEvictsIdleBuckets(t *testing.T) {
	m := newMiddleware(WithIdleTTL(time.Minute))
	h := m.RateLimit(models.ClassClient)(okHandler)
	testutil.DoRequest(h, request(t, "rp-clinic", "192.0.2.1", time.Now().Add(-2*time.Minute)))

	removed, err := m.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
