// Package requesttime pins a single "now" per HTTP request so flow expiry,
// token lifetimes and audit timestamps agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"trustbridge/pkg/requestcontext"
)

// Middleware stamps the request context with the time it arrived. now
// defaults to time.Now when nil.
func Middleware(now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
