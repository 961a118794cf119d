// Package redis stores backchannel requests in Redis so several broker
// replicas can share one queue of pending attempts.
//
// Keys (default prefix "tb:bc:"):
//
//	req:{id}  JSON request, kept for a grace period past the requested expiry
//	res:{id}  JSON decision, written once with SETNX
//	pending   sorted set of pending ids scored by creation time (unix ms)
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"trustbridge/internal/backchannel"
	"trustbridge/internal/backchannel/models"
	dErrors "trustbridge/pkg/domain-errors"
)

const (
	DefaultKeyPrefix  = "tb:bc:"
	DefaultRequestTTL = 10 * time.Minute
)

type storedRequest struct {
	AuthReqID       string    `json:"auth_req_id"`
	ClientID        string    `json:"client_id"`
	Scope           string    `json:"scope,omitempty"`
	LoginHint       string    `json:"login_hint,omitempty"`
	BindingMessage  string    `json:"binding_message,omitempty"`
	RequestedExpiry int       `json:"requested_expiry,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type storedResolution struct {
	Status           models.Status `json:"status"`
	UserID           string        `json:"user_id,omitempty"`
	Scope            string        `json:"scope,omitempty"`
	ErrorCode        string        `json:"error_code,omitempty"`
	ErrorDescription string        `json:"error_description,omitempty"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Provider is the Redis-backed backchannel backend.
type Provider struct {
	client        redis.UniversalClient
	keyPrefix     string
	requestTTL    time.Duration
	resolutionTTL time.Duration
	clock         func() time.Time
	logger        *slog.Logger
	metrics       *backchannel.Metrics
}

type Option func(*Provider)

func WithKeyPrefix(prefix string) Option {
	return func(p *Provider) {
		if prefix != "" {
			p.keyPrefix = prefix
		}
	}
}

// WithRequestTTL sets how long a request key lives beyond its requested expiry.
func WithRequestTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.requestTTL = ttl
		}
	}
}

// WithResolutionTTL expires decisions after ttl. Zero keeps them forever.
func WithResolutionTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl >= 0 {
			p.resolutionTTL = ttl
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(p *Provider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *backchannel.Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// New creates a provider on an existing client.
func New(client redis.UniversalClient, opts ...Option) (*Provider, error) {
	if client == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "redis backchannel requires a redis client")
	}
	p := &Provider{
		client:     client,
		keyPrefix:  DefaultKeyPrefix,
		requestTTL: DefaultRequestTTL,
		clock:      time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) requestKey(id string) string    { return p.keyPrefix + "req:" + id }
func (p *Provider) resolutionKey(id string) string { return p.keyPrefix + "res:" + id }
func (p *Provider) pendingKey() string             { return p.keyPrefix + "pending" }

func (p *Provider) deliveryError(op string, err error) error {
	p.metrics.IncFailure(backchannel.KindRedis, op)
	return dErrors.Wrap(err, dErrors.CodeDelivery, "redis backchannel "+op+" failed")
}

func (p *Provider) InitiateAuthentication(ctx context.Context, req *models.Request) error {
	if req == nil {
		return dErrors.New(dErrors.CodeValidation, "request is required")
	}
	if err := models.ValidateAuthReqID(req.AuthReqID); err != nil {
		return err
	}
	created := req.CreatedAt
	if created.IsZero() {
		created = p.clock()
	}
	data, err := json.Marshal(storedRequest{
		AuthReqID:       req.AuthReqID,
		ClientID:        req.ClientID,
		Scope:           req.Scope,
		LoginHint:       req.LoginHint,
		BindingMessage:  req.BindingMessage,
		RequestedExpiry: req.RequestedExpiry,
		CreatedAt:       created,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode backchannel request")
	}

	resolved, err := p.client.Exists(ctx, p.resolutionKey(req.AuthReqID)).Result()
	if err != nil {
		return p.deliveryError("initiate", err)
	}
	if resolved > 0 {
		return dErrors.New(dErrors.CodeConflict, "auth_req_id already registered")
	}

	// The key outlives the requested expiry so a late poll still reads EXPIRED.
	ttl := p.requestTTL + time.Duration(req.RequestedExpiry)*time.Second
	// Use SetNX so two replicas can never register the same id.
	ok, err := p.client.SetNX(ctx, p.requestKey(req.AuthReqID), data, ttl).Result()
	if err != nil {
		return p.deliveryError("initiate", err)
	}
	if !ok {
		return dErrors.New(dErrors.CodeConflict, "auth_req_id already registered")
	}
	score := float64(created.UnixMilli())
	if err := p.client.ZAdd(ctx, p.pendingKey(), redis.Z{Score: score, Member: req.AuthReqID}).Err(); err != nil {
		_ = p.client.Del(ctx, p.requestKey(req.AuthReqID)).Err()
		return p.deliveryError("initiate", err)
	}
	p.metrics.IncInitiated(backchannel.KindRedis)
	return nil
}

func (p *Provider) loadRequest(ctx context.Context, id string) (*storedRequest, error) {
	raw, err := p.client.Get(ctx, p.requestKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var req storedRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

func (p *Provider) loadResolution(ctx context.Context, id string) (*storedResolution, error) {
	raw, err := p.client.Get(ctx, p.resolutionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var res storedResolution
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode resolution: %w", err)
	}
	return &res, nil
}

func (r *storedResolution) toStatus(id string) models.AuthStatus {
	return models.AuthStatus{
		AuthReqID:        id,
		Status:           r.Status,
		UserID:           r.UserID,
		Scope:            r.Scope,
		ErrorCode:        r.ErrorCode,
		ErrorDescription: r.ErrorDescription,
		UpdatedAt:        r.UpdatedAt,
	}
}

// AuthenticationStatus reads the decision first, then the pending request.
func (p *Provider) AuthenticationStatus(ctx context.Context, authReqID string) (models.AuthStatus, error) {
	res, err := p.loadResolution(ctx, authReqID)
	if err != nil {
		return models.AuthStatus{}, p.deliveryError("status", err)
	}
	if res != nil {
		return res.toStatus(authReqID), nil
	}
	req, err := p.loadRequest(ctx, authReqID)
	if err != nil {
		return models.AuthStatus{}, p.deliveryError("status", err)
	}
	if req == nil {
		return models.Pending(authReqID, p.clock()), nil
	}
	now := p.clock()
	model := models.Request{CreatedAt: req.CreatedAt, RequestedExpiry: req.RequestedExpiry}
	if model.IsExpired(now) {
		if _, err := p.store(ctx, authReqID, models.Resolution{Status: models.StatusExpired}, now); err != nil {
			return models.AuthStatus{}, err
		}
		res, err := p.loadResolution(ctx, authReqID)
		if err != nil {
			return models.AuthStatus{}, p.deliveryError("status", err)
		}
		if res == nil {
			return models.AuthStatus{}, dErrors.New(dErrors.CodeDelivery, "resolution vanished after expiry")
		}
		return res.toStatus(authReqID), nil
	}
	return models.Pending(authReqID, req.CreatedAt), nil
}

// Resolve records a decision for a pending request. The first decision wins.
func (p *Provider) Resolve(ctx context.Context, authReqID string, r models.Resolution) error {
	if err := r.Validate(); err != nil {
		return err
	}
	req, err := p.loadRequest(ctx, authReqID)
	if err != nil {
		return p.deliveryError("resolve", err)
	}
	if req == nil {
		exists, err := p.client.Exists(ctx, p.resolutionKey(authReqID)).Result()
		if err != nil {
			return p.deliveryError("resolve", err)
		}
		if exists > 0 {
			return dErrors.New(dErrors.CodeConflict, "authentication request already resolved")
		}
		return dErrors.New(dErrors.CodeNotFound, "authentication request not found")
	}
	stored, err := p.store(ctx, authReqID, r, p.clock())
	if err != nil {
		return err
	}
	if !stored {
		return dErrors.New(dErrors.CodeConflict, "authentication request already resolved")
	}
	p.logger.InfoContext(ctx, "backchannel request resolved",
		"auth_req_id", authReqID,
		"status", r.Status,
	)
	return nil
}

// store writes the decision with SETNX and retires the pending request. It
// reports false when another decision was already recorded.
func (p *Provider) store(ctx context.Context, id string, r models.Resolution, at time.Time) (bool, error) {
	resolved, err := models.Pending(id, at).ApplyResolution(r, at)
	if err != nil {
		return false, err
	}
	data, err := json.Marshal(storedResolution{
		Status:           resolved.Status,
		UserID:           resolved.UserID,
		Scope:            resolved.Scope,
		ErrorCode:        resolved.ErrorCode,
		ErrorDescription: resolved.ErrorDescription,
		UpdatedAt:        resolved.UpdatedAt,
	})
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "encode resolution")
	}
	ok, err := p.client.SetNX(ctx, p.resolutionKey(id), data, p.resolutionTTL).Result()
	if err != nil {
		return false, p.deliveryError("resolve", err)
	}
	if !ok {
		return false, nil
	}
	// Best effort: a stale request key only delays cleanup.
	_, _ = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.requestKey(id))
		pipe.ZRem(ctx, p.pendingKey(), id)
		return nil
	})
	p.metrics.IncResolved(backchannel.KindRedis, resolved.Status)
	return true, nil
}

func (p *Provider) CancelAuthentication(ctx context.Context, authReqID string) error {
	var del *redis.IntCmd
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, p.requestKey(authReqID))
		pipe.ZRem(ctx, p.pendingKey(), authReqID)
		return nil
	})
	if err != nil {
		return p.deliveryError("cancel", err)
	}
	if del.Val() > 0 {
		p.metrics.IncCancelled(backchannel.KindRedis)
	}
	return nil
}

// CleanupExpiredRequests removes pending ids indexed more than maxAge ago. Ids
// are claimed with ZREM so concurrent sweeps on other replicas never double count.
func (p *Provider) CleanupExpiredRequests(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := p.clock().Add(-maxAge).UnixMilli()
	ids, err := p.client.ZRangeByScore(ctx, p.pendingKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return 0, p.deliveryError("cleanup", err)
	}
	removed := 0
	for _, id := range ids {
		n, err := p.client.ZRem(ctx, p.pendingKey(), id).Result()
		if err != nil {
			return removed, p.deliveryError("cleanup", err)
		}
		if n == 0 {
			continue
		}
		if err := p.client.Del(ctx, p.requestKey(id)).Err(); err != nil {
			p.logger.WarnContext(ctx, "failed to delete expired backchannel request", "auth_req_id", id, "error", err)
		}
		removed++
	}
	p.metrics.AddCleaned(backchannel.KindRedis, removed)
	return removed, nil
}

func (p *Provider) SupportedDeliveryModes() []models.DeliveryMode {
	return []models.DeliveryMode{models.DeliveryModePoll, models.DeliveryModePing}
}

func (p *Provider) Exists(ctx context.Context, authReqID string) (bool, error) {
	n, err := p.client.Exists(ctx, p.requestKey(authReqID), p.resolutionKey(authReqID)).Result()
	if err != nil {
		return false, p.deliveryError("exists", err)
	}
	return n > 0, nil
}

// Ping checks Redis connectivity.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

var (
	_ backchannel.Provider = (*Provider)(nil)
	_ backchannel.Resolver = (*Provider)(nil)
)
