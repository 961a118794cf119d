// Package service implements the federation broker: it authorizes requests
// against the trust network, drives redirect and CIBA flows at the home
// provider and reissues tokens annotated with the trust path.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"trustbridge/internal/backchannel"
	bcmodels "trustbridge/internal/backchannel/models"
	"trustbridge/internal/federation/accounts"
	"trustbridge/internal/federation/metrics"
	"trustbridge/internal/federation/models"
	"trustbridge/internal/federation/remote"
	jwttoken "trustbridge/internal/jwt_token"
	trustmodels "trustbridge/internal/trust/models"
	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/platform/audit"
	"trustbridge/pkg/platform/circuit"
	"trustbridge/pkg/requestcontext"
)

// TrustRegistry answers membership and trust path questions.
type TrustRegistry interface {
	HubID() string
	LoadNetwork(ctx context.Context, networkID string) (*trustmodels.Network, error)
	TrustPath(ctx context.Context, networkID, target string) (trustmodels.TrustPath, error)
}

// CodeExchanger builds authorization URLs and redeems codes at a home provider.
type CodeExchanger interface {
	AuthCodeURL(provider trustmodels.ProviderNode, req models.Request, state, nonce, verifier string) string
	Exchange(ctx context.Context, provider trustmodels.ProviderNode, code, verifier string) (models.TokenSet, error)
}

// TokenValidator verifies home provider tokens.
type TokenValidator interface {
	Validate(ctx context.Context, provider trustmodels.ProviderNode, raw string) (models.ValidationResult, error)
}

// TokenIssuer mints broker tokens.
type TokenIssuer interface {
	Issue(p jwttoken.IssueParams) (string, error)
}

// CIBAClient talks to a remote home provider's backchannel endpoints.
type CIBAClient interface {
	Initiate(ctx context.Context, provider trustmodels.ProviderNode, req models.Request, requestedExpiry int) (remote.CIBAAuthorization, error)
	Poll(ctx context.Context, provider trustmodels.ProviderNode, authReqID string, interval time.Duration) (*models.TokenSet, error)
}

// FlowStore keeps pending flows.
type FlowStore interface {
	Save(ctx context.Context, flow *models.Flow) error
	Update(ctx context.Context, flow *models.Flow) error
	ConsumeByState(ctx context.Context, state string, now time.Time) (*models.Flow, error)
	FindByAuthReqID(ctx context.Context, authReqID string, now time.Time) (*models.Flow, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// AccountResolver materializes the local account for a federated subject.
type AccountResolver interface {
	Resolve(ctx context.Context, homeProviderID, subject string) (accounts.Account, error)
}

// Backchannel is the part of a backchannel provider the broker drives when
// the hub terminates a CIBA flow itself.
type Backchannel interface {
	InitiateAuthentication(ctx context.Context, req *bcmodels.Request) error
	AuthenticationStatus(ctx context.Context, authReqID string) (bcmodels.AuthStatus, error)
}

// AuditPublisher records federation outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

var _ Backchannel = backchannel.Provider(nil)

// Config holds broker policy.
type Config struct {
	// MaxTrustDepth bounds the hop count of a path tokens may be reissued for.
	MaxTrustDepth int
	TokenTTL      time.Duration
	FlowTTL       time.Duration
	// PollInterval is the minimum interval for polling hub-terminated CIBA flows.
	PollInterval         time.Duration
	RetryMaxTries        uint
	RetryInitialInterval time.Duration
	// PollTimeout bounds a poll shared by concurrent callers. The shared poll
	// outlives any single caller's context.
	PollTimeout time.Duration
}

const (
	defaultTokenTTL     = 15 * time.Minute
	defaultFlowTTL      = 10 * time.Minute
	defaultPollInterval = 5 * time.Second
	defaultMaxTries     = 3
	defaultPollTimeout  = 30 * time.Second
)

// Deps are the collaborators the broker orchestrates. Backchannel and Audit
// are optional.
type Deps struct {
	Registry    TrustRegistry
	Exchanger   CodeExchanger
	Validator   TokenValidator
	Issuer      TokenIssuer
	CIBA        CIBAClient
	Flows       FlowStore
	Accounts    AccountResolver
	Backchannel Backchannel
	Audit       AuditPublisher
}

// Broker implements the federation broker protocol.
type Broker struct {
	cfg         Config
	registry    TrustRegistry
	exchanger   CodeExchanger
	validator   TokenValidator
	issuer      TokenIssuer
	ciba        CIBAClient
	flows       FlowStore
	accounts    AccountResolver
	backchannel Backchannel
	audit       AuditPublisher

	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	clock       func() time.Time
	breakerOpts []circuit.Option

	breakersMu sync.Mutex
	breakers   map[string]*circuit.Breaker
	throttle   *remote.PollThrottle
	polls      singleflight.Group
}

// Option configures a Broker.
type Option func(*Broker)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Broker) {
		b.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(b *Broker) {
		if t != nil {
			b.tracer = t
		}
	}
}

// WithClock is used when the request context carries no time.
func WithClock(clock func() time.Time) Option {
	return func(b *Broker) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithBreakerOptions configures the per-provider circuit breakers.
func WithBreakerOptions(opts ...circuit.Option) Option {
	return func(b *Broker) {
		b.breakerOpts = opts
	}
}

func New(cfg Config, deps Deps, opts ...Option) (*Broker, error) {
	if cfg.MaxTrustDepth < 1 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "max trust depth must be at least 1")
	}
	if deps.Registry == nil || deps.Exchanger == nil || deps.Validator == nil ||
		deps.Issuer == nil || deps.CIBA == nil || deps.Flows == nil || deps.Accounts == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "broker collaborators are missing")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.FlowTTL <= 0 {
		cfg.FlowTTL = defaultFlowTTL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.RetryMaxTries == 0 {
		cfg.RetryMaxTries = defaultMaxTries
	}

	b := &Broker{
		cfg:         cfg,
		registry:    deps.Registry,
		exchanger:   deps.Exchanger,
		validator:   deps.Validator,
		issuer:      deps.Issuer,
		ciba:        deps.CIBA,
		flows:       deps.Flows,
		accounts:    deps.Accounts,
		backchannel: deps.Backchannel,
		audit:       deps.Audit,
		logger:      slog.Default(),
		tracer:      otel.Tracer("trustbridge/federation"),
		clock:       time.Now,
		breakers:    make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.throttle = remote.NewPollThrottle(b.clock)
	return b, nil
}

// HubID is the provider id of this broker in the trust network.
func (b *Broker) HubID() string {
	return b.registry.HubID()
}

func (b *Broker) now(ctx context.Context) time.Time {
	if t, ok := requestcontext.TimeFrom(ctx); ok {
		return t
	}
	return b.clock()
}
