package testutil

import (
	"net/http"
	"time"

	"trustbridge/pkg/requestcontext"
)

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
