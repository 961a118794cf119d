package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Registry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustbridge/internal/platform/metrics"
	"trustbridge/internal/platform/middleware"
	rlmodels "trustbridge/internal/ratelimit/models"
	"trustbridge/internal/trust/models"
	"trustbridge/pkg/platform/audit"
	"trustbridge/pkg/platform/httputil"
	"trustbridge/pkg/platform/middleware/admin"
)

// Registry is the subset of the trust registry served over HTTP.
type Registry interface {
	TrustPath(ctx context.Context, networkID, target string) (models.TrustPath, error)
	RefreshNetwork(ctx context.Context, networkID string) (*models.Network, error)
}

// RateLimiter throttles a route class. May be nil.
type RateLimiter interface {
	RateLimit(class rlmodels.EndpointClass) func(http.Handler) http.Handler
}

// Handler serves trust path lookups and the operator refresh endpoint.
type Handler struct {
	registry   Registry
	auditor    middleware.AuditEmitter
	limiter    RateLimiter
	adminToken string
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New creates a trust Handler. An empty adminToken leaves the refresh
// endpoint mounted but always unauthorized.
func New(registry Registry, auditor middleware.AuditEmitter, limiter RateLimiter, adminToken string, timeout time.Duration, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		registry:   registry,
		auditor:    auditor,
		limiter:    limiter,
		adminToken: adminToken,
		timeout:    timeout,
		logger:     logger,
		metrics:    metrics,
	}
}

// Register mounts the trust routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(h.timeout))
		r.Use(middleware.LatencyMiddleware(h.metrics))

		r.Group(func(r chi.Router) {
			if h.limiter != nil {
				r.Use(h.limiter.RateLimit(rlmodels.ClassPublic))
			}
			r.Get("/networks/{networkID}/providers/{providerID}/path", h.handleTrustPath)
		})

		r.With(admin.RequireAdminToken(h.adminToken, h.logger)).
			Post("/admin/networks/{networkID}/refresh", h.handleRefresh)
	})
}

type trustPathResponse struct {
	NetworkID  string   `json:"network_id"`
	ProviderID string   `json:"provider_id"`
	Path       []string `json:"path"`
	HopCount   int      `json:"hop_count"`
}

func (h *Handler) handleTrustPath(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	networkID := chi.URLParam(r, "networkID")
	providerID := chi.URLParam(r, "providerID")

	path, err := h.registry.TrustPath(ctx, networkID, providerID)
	if err != nil {
		h.logger.InfoContext(ctx, "trust path lookup failed",
			"request_id", middleware.GetRequestID(ctx),
			"network_id", networkID,
			"provider_id", providerID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trustPathResponse{
		NetworkID:  networkID,
		ProviderID: providerID,
		Path:       path.Providers,
		HopCount:   path.HopCount(),
	})
}

type refreshResponse struct {
	NetworkID    string    `json:"network_id"`
	Providers    int       `json:"providers"`
	Edges        int       `json:"edges"`
	DroppedEdges int       `json:"dropped_edges"`
	LoadedAt     time.Time `json:"loaded_at"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	networkID := chi.URLParam(r, "networkID")

	network, err := h.registry.RefreshNetwork(ctx, networkID)
	if err != nil {
		h.logger.ErrorContext(ctx, "network refresh failed",
			"request_id", requestID,
			"network_id", networkID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	if h.auditor != nil {
		if err := h.auditor.Emit(ctx, audit.Event{
			Action:    string(audit.EventNetworkRefreshed),
			NetworkID: networkID,
			Decision:  "refreshed",
			RequestID: requestID,
		}); err != nil {
			h.logger.WarnContext(ctx, "audit event not recorded", "action", audit.EventNetworkRefreshed, "error", err)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, refreshResponse{
		NetworkID:    network.ID(),
		Providers:    len(network.Providers()),
		Edges:        len(network.Edges()),
		DroppedEdges: len(network.DroppedEdges()),
		LoadedAt:     network.LoadedAt(),
	})
}
