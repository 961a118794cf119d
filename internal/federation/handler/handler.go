package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Broker DeliveryModes

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	bcmodels "trustbridge/internal/backchannel/models"
	"trustbridge/internal/federation/models"
	"trustbridge/internal/federation/service"
	"trustbridge/internal/platform/metrics"
	"trustbridge/internal/platform/middleware"
	rlmodels "trustbridge/internal/ratelimit/models"
	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/platform/httputil"
	"trustbridge/pkg/requestcontext"
)

// GrantTypeCIBA is the token endpoint grant for backchannel authentication.
const GrantTypeCIBA = "urn:openid:params:grant-type:ciba"

// Broker is the subset of the federation broker served over HTTP.
type Broker interface {
	InitiateAuthenticationRequest(ctx context.Context, req models.Request, networkID string) (service.AuthorizationResult, error)
	CompleteAuthorization(ctx context.Context, state, code string) (models.TokenSet, error)
	InitiateCibaRequest(ctx context.Context, req models.Request, networkID string, requestedExpiry int) (service.CIBAResult, error)
	PollCibaToken(ctx context.Context, authReqID string) (*models.TokenSet, error)
}

// DeliveryModes advertises what the local backchannel backend supports.
type DeliveryModes interface {
	SupportedDeliveryModes() []bcmodels.DeliveryMode
}

// RateLimiter throttles a route class. May be nil.
type RateLimiter interface {
	RateLimit(class rlmodels.EndpointClass) func(http.Handler) http.Handler
}

// Handler serves the relying-party facing federation endpoints.
type Handler struct {
	broker    Broker
	modes     DeliveryModes
	clients   middleware.ClientAuthenticator
	auditor   middleware.AuditEmitter
	limiter   RateLimiter
	logger    *slog.Logger
	metrics   *metrics.Metrics
	networkID string
	timeout   time.Duration
}

// New creates a federation Handler. modes may be nil when no local
// backchannel backend is configured; discovery then advertises poll only.
func New(
	broker Broker,
	modes DeliveryModes,
	clients middleware.ClientAuthenticator,
	auditor middleware.AuditEmitter,
	limiter RateLimiter,
	networkID string,
	timeout time.Duration,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		broker:    broker,
		modes:     modes,
		clients:   clients,
		auditor:   auditor,
		limiter:   limiter,
		logger:    logger,
		metrics:   metrics,
		networkID: networkID,
		timeout:   timeout,
	}
}

// Register mounts the federation routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(h.timeout))
		r.Use(middleware.LatencyMiddleware(h.metrics))

		r.Group(func(r chi.Router) {
			h.limit(r, rlmodels.ClassPublic)
			r.Get("/federation/callback", h.handleCallback)
			r.Get("/.well-known/backchannel-configuration", h.handleDiscovery)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireClient(h.clients, h.auditor, h.logger))
			h.limit(r, rlmodels.ClassClient)
			r.Post("/federation/authorize", h.handleAuthorize)
			r.Post("/bc-authorize", h.handleBackchannelAuthorize)
			r.Post("/token", h.handleToken)
		})
	})
}

func (h *Handler) limit(r chi.Router, class rlmodels.EndpointClass) {
	if h.limiter != nil {
		r.Use(h.limiter.RateLimit(class))
	}
}

type authorizeRequest struct {
	LoginHint      string `json:"login_hint"`
	HomeProviderID string `json:"home_provider_id"`
	Scope          string `json:"scope"`
	ClientID       string `json:"client_id"`
	NetworkID      string `json:"network_id"`
}

type authorizeResponse struct {
	AuthorizationURL string    `json:"authorization_url"`
	State            string    `json:"state"`
	ExpiresAt        time.Time `json:"expires_at"`
}

func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var body authorizeRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		h.logger.WarnContext(ctx, "invalid authorize request", "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	clientID := requestcontext.ClientID(ctx)
	if body.ClientID != "" && body.ClientID != clientID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "client_id does not match the authenticated client"))
		return
	}
	req, err := models.NewRequest(body.LoginHint, body.HomeProviderID, body.Scope, "", clientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.broker.InitiateAuthenticationRequest(ctx, req, h.network(body.NetworkID))
	if err != nil {
		h.logFailure(ctx, "authorize", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authorizeResponse{
		AuthorizationURL: res.AuthorizationURL,
		State:            res.State,
		ExpiresAt:        res.ExpiresAt,
	})
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if name := q.Get("error"); name != "" {
		h.logger.InfoContext(ctx, "home provider returned an error",
			"request_id", middleware.GetRequestID(ctx),
			"error", name,
		)
		httputil.WriteOAuthError(w, http.StatusForbidden, string(dErrors.CodeAccessDenied), q.Get("error_description"))
		return
	}
	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "state and code are required")
		return
	}

	tokens, err := h.broker.CompleteAuthorization(ctx, state, code)
	if err != nil {
		h.logFailure(ctx, "callback", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newTokenResponse(tokens, requestcontext.Now(ctx)))
}

type backchannelAuthResponse struct {
	AuthReqID string `json:"auth_req_id"`
	ExpiresIn int    `json:"expires_in"`
	Interval  int    `json:"interval,omitempty"`
}

func (h *Handler) handleBackchannelAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	expiry := 0
	if raw := r.PostForm.Get("requested_expiry"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "requested_expiry must be a non-negative integer")
			return
		}
		expiry = n
	}
	if strings.TrimSpace(r.PostForm.Get("login_hint")) == "" {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "login_hint is required")
		return
	}
	req, err := models.NewRequest(
		r.PostForm.Get("login_hint"),
		r.PostForm.Get("home_provider_id"),
		r.PostForm.Get("scope"),
		r.PostForm.Get("binding_message"),
		requestcontext.ClientID(ctx),
	)
	if err != nil {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", dErrors.Message(err))
		return
	}

	res, err := h.broker.InitiateCibaRequest(ctx, req, h.network(r.PostForm.Get("network_id")), expiry)
	if err != nil {
		h.logFailure(ctx, "bc-authorize", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, backchannelAuthResponse{
		AuthReqID: res.AuthReqID,
		ExpiresIn: res.ExpiresIn,
		Interval:  int(res.Interval / time.Second),
	})
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	if grant := r.PostForm.Get("grant_type"); grant != GrantTypeCIBA {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "only the CIBA grant is supported")
		return
	}
	authReqID := r.PostForm.Get("auth_req_id")
	if authReqID == "" {
		httputil.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "auth_req_id is required")
		return
	}

	tokens, err := h.broker.PollCibaToken(ctx, authReqID)
	switch {
	case err == nil && tokens == nil:
		httputil.WriteOAuthError(w, http.StatusBadRequest, "authorization_pending", "")
	case err == nil:
		httputil.WriteJSON(w, http.StatusOK, newTokenResponse(*tokens, requestcontext.Now(ctx)))
	case dErrors.Is(err, dErrors.CodeSlowDown):
		httputil.WriteOAuthError(w, http.StatusBadRequest, "slow_down", "")
	case dErrors.Is(err, dErrors.CodeAccessDenied):
		httputil.WriteOAuthError(w, http.StatusBadRequest, "access_denied", dErrors.Message(err))
	case dErrors.Is(err, dErrors.CodeExpired):
		httputil.WriteOAuthError(w, http.StatusBadRequest, "expired_token", "")
	case dErrors.Is(err, dErrors.CodeNotFound):
		httputil.WriteOAuthError(w, http.StatusBadRequest, "invalid_grant", "unknown auth_req_id")
	default:
		h.logFailure(ctx, "token", err)
		httputil.WriteError(w, err)
	}
}

type discoveryResponse struct {
	DeliveryModes          []bcmodels.DeliveryMode `json:"backchannel_token_delivery_modes_supported"`
	UserCodeParamSupported bool                    `json:"backchannel_user_code_parameter_supported"`
	GrantTypes             []string                `json:"grant_types_supported"`
}

func (h *Handler) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	modes := []bcmodels.DeliveryMode{bcmodels.DeliveryModePoll}
	if h.modes != nil {
		modes = h.modes.SupportedDeliveryModes()
	}
	httputil.WriteJSON(w, http.StatusOK, discoveryResponse{
		DeliveryModes: modes,
		GrantTypes:    []string{GrantTypeCIBA},
	})
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

func newTokenResponse(t models.TokenSet, now time.Time) tokenResponse {
	return tokenResponse{
		AccessToken:  t.AccessToken,
		IDToken:      t.IDToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresIn:    t.ExpiresIn(now),
		Scope:        t.Scope,
	}
}

func (h *Handler) network(requested string) string {
	if requested = strings.TrimSpace(requested); requested != "" {
		return requested
	}
	return h.networkID
}

func (h *Handler) logFailure(ctx context.Context, endpoint string, err error) {
	level := slog.LevelWarn
	if httputil.StatusFor(dErrors.GetCode(err)) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "federation request failed",
		"request_id", middleware.GetRequestID(ctx),
		"endpoint", endpoint,
		"client_id", requestcontext.ClientID(ctx),
		"error", err.Error(),
	)
}
