// Package httptransport assembles the public HTTP surface. Domain handlers
// register their own routes; this package only adds process-level endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"trustbridge/pkg/platform/httputil"
	"trustbridge/pkg/platform/middleware/metadata"
	"trustbridge/pkg/platform/middleware/requesttime"
)

// RouteRegistrar is implemented by every domain handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency. Name labels the check in /health output.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options configures NewRouter.
type Options struct {
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
	Checks   []HealthCheck
	Clock    func() time.Time
}

// NewRouter mounts the handlers plus /health and /metrics.
func NewRouter(opts Options, handlers ...RouteRegistrar) chi.Router {
	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware(opts.Clock))

	for _, h := range handlers {
		h.Register(r)
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/health", healthHandler(opts.Checks, opts.Logger))
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks []HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		results := make([]string, len(checks))
		var g errgroup.Group
		for i, c := range checks {
			g.Go(func() error {
				if err := c.Check(ctx); err != nil {
					results[i] = err.Error()
					return err
				}
				results[i] = "ok"
				return nil
			})
		}
		failed := g.Wait() != nil

		resp := healthResponse{Status: "ok"}
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			for i, c := range checks {
				resp.Checks[c.Name] = results[i]
			}
		}
		status := http.StatusOK
		if failed {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			if logger != nil {
				logger.WarnContext(ctx, "health check failed", "checks", resp.Checks)
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
