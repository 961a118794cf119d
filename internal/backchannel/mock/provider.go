// Package mock simulates a user approving or rejecting backchannel requests.
// Each request is resolved once after a configured delay, with an outcome
// drawn from the configured approval and error rates. With auto-approve off,
// requests stay pending until Resolve is called.
package mock

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"trustbridge/internal/backchannel"
	"trustbridge/internal/backchannel/models"
	dErrors "trustbridge/pkg/domain-errors"
)

type entry struct {
	req     *models.Request
	created time.Time
	status  models.AuthStatus
	timer   Stopper
}

// Provider is the in-memory simulator backend.
type Provider struct {
	cfg       Config
	scheduler Scheduler
	clock     func() time.Time
	sample    func() int
	logger    *slog.Logger
	metrics   *backchannel.Metrics

	mu      sync.Mutex
	entries map[string]*entry
}

type Option func(*Provider)

func WithScheduler(s Scheduler) Option {
	return func(p *Provider) {
		if s != nil {
			p.scheduler = s
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

// WithRand draws outcomes from r. Calls are serialized by the provider.
func WithRand(r *rand.Rand) Option {
	return func(p *Provider) {
		if r != nil {
			p.sample = func() int { return r.IntN(100) }
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

// New creates a simulator. Out-of-range configuration is corrected and each
// correction is logged.
func New(cfg Config, opts ...Option) *Provider {
	p := &Provider{
		scheduler: TimerScheduler{},
		clock:     time.Now,
		sample:    func() int { return rand.IntN(100) },
		logger:    slog.Default(),
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	normalized, corrections := cfg.Normalize()
	for _, c := range corrections {
		p.logger.Warn("mock backchannel configuration corrected", "correction", c)
	}
	p.cfg = normalized
	return p
}

// NewWithState creates a simulator pre-populated with snapshots. Seeded
// entries have no request attached and are never scheduled.
func NewWithState(cfg Config, seeds []models.AuthStatus, opts ...Option) *Provider {
	p := New(cfg, opts...)
	for _, s := range seeds {
		created := s.UpdatedAt
		if created.IsZero() {
			created = p.clock()
		}
		p.entries[s.AuthReqID] = &entry{created: created, status: s}
	}
	return p
}

// Config returns the effective configuration after normalization.
func (p *Provider) Config() Config {
	return p.cfg
}

func (p *Provider) InitiateAuthentication(ctx context.Context, req *models.Request) error {
	if req == nil {
		return dErrors.New(dErrors.CodeValidation, "request is required")
	}
	if err := models.ValidateAuthReqID(req.AuthReqID); err != nil {
		return err
	}
	now := p.clock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[req.AuthReqID]; ok {
		return dErrors.New(dErrors.CodeConflict, "auth_req_id already registered")
	}
	e := &entry{req: req, created: now, status: models.Pending(req.AuthReqID, now)}
	if p.cfg.AutoApprove {
		id := req.AuthReqID
		e.timer = p.scheduler.AfterFunc(p.cfg.Delay, func() { p.fire(id) })
	}
	p.entries[req.AuthReqID] = e
	p.metrics.IncInitiated(backchannel.KindMock)
	p.logger.DebugContext(ctx, "mock backchannel request registered",
		"auth_req_id", req.AuthReqID,
		"auto_approve", p.cfg.AutoApprove,
		"delay", p.cfg.Delay,
	)
	return nil
}

// fire applies a sampled outcome unless the entry was cancelled, resolved or
// cleaned up in the meantime.
func (p *Provider) fire(authReqID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[authReqID]
	if !ok || !e.status.CanResolve() {
		return
	}
	resolved, err := e.status.ApplyResolution(p.sampleResolution(e.req), p.clock())
	if err != nil {
		p.logger.Error("mock backchannel resolution rejected", "auth_req_id", authReqID, "error", err)
		return
	}
	e.status = resolved
	e.timer = nil
	p.metrics.IncResolved(backchannel.KindMock, resolved.Status)
}

func (p *Provider) sampleResolution(req *models.Request) models.Resolution {
	roll := p.sample()
	switch {
	case roll < p.cfg.ApprovalRate:
		userID := "mock-user"
		scope := ""
		if req != nil {
			if req.LoginHint != "" {
				userID = req.LoginHint
			}
			scope = req.Scope
		}
		return models.Resolution{Status: models.StatusApproved, UserID: userID, Scope: scope}
	case roll < p.cfg.ApprovalRate+p.cfg.ErrorRate:
		return models.Resolution{
			Status:           models.StatusError,
			ErrorCode:        "server_error",
			ErrorDescription: "simulated backend failure",
		}
	default:
		return models.Resolution{
			Status:           models.StatusDenied,
			ErrorDescription: "user denied the request",
		}
	}
}

// AuthenticationStatus returns the snapshot for authReqID. A pending request
// past its requested expiry reads as EXPIRED from then on.
func (p *Provider) AuthenticationStatus(_ context.Context, authReqID string) (models.AuthStatus, error) {
	now := p.clock()
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[authReqID]
	if !ok {
		return models.Pending(authReqID, now), nil
	}
	if e.status.CanResolve() && e.req != nil && e.req.IsExpired(now) {
		expired, err := e.status.ApplyResolution(models.Resolution{Status: models.StatusExpired}, now)
		if err == nil {
			e.status = expired
			p.stopTimer(e)
			p.metrics.IncResolved(backchannel.KindMock, expired.Status)
		}
	}
	return e.status, nil
}

// Resolve records a decision for a pending request, as a manual approver would.
func (p *Provider) Resolve(ctx context.Context, authReqID string, r models.Resolution) error {
	now := p.clock()
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[authReqID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "authentication request not found")
	}
	resolved, err := e.status.ApplyResolution(r, now)
	if err != nil {
		return err
	}
	e.status = resolved
	p.stopTimer(e)
	p.metrics.IncResolved(backchannel.KindMock, resolved.Status)
	p.logger.InfoContext(ctx, "mock backchannel request resolved",
		"auth_req_id", authReqID,
		"status", resolved.Status,
	)
	return nil
}

// CancelAuthentication drops a pending request and its scheduled resolution.
func (p *Provider) CancelAuthentication(_ context.Context, authReqID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[authReqID]
	if !ok || !e.status.CanResolve() {
		return nil
	}
	p.stopTimer(e)
	delete(p.entries, authReqID)
	p.metrics.IncCancelled(backchannel.KindMock)
	return nil
}

// CleanupExpiredRequests drops pending requests created more than maxAge ago.
func (p *Provider) CleanupExpiredRequests(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := p.clock().Add(-maxAge)
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for id, e := range p.entries {
		if !e.status.CanResolve() || !e.created.Before(cutoff) {
			continue
		}
		p.stopTimer(e)
		delete(p.entries, id)
		removed++
	}
	p.metrics.AddCleaned(backchannel.KindMock, removed)
	return removed, nil
}

func (p *Provider) SupportedDeliveryModes() []models.DeliveryMode {
	return []models.DeliveryMode{models.DeliveryModePoll, models.DeliveryModePing}
}

func (p *Provider) Exists(_ context.Context, authReqID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[authReqID]
	return ok, nil
}

// stopTimer must be called with p.mu held.
func (p *Provider) stopTimer(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

var (
	_ backchannel.Provider = (*Provider)(nil)
	_ backchannel.Resolver = (*Provider)(nil)
)
