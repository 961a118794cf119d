package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"trustbridge/internal/backchannel"
	"trustbridge/internal/backchannel/cleanup"
	"trustbridge/internal/backchannel/file"
	"trustbridge/internal/backchannel/mock"
	bcredis "trustbridge/internal/backchannel/redis"
	"trustbridge/internal/federation/accounts"
	fedhandler "trustbridge/internal/federation/handler"
	fedmetrics "trustbridge/internal/federation/metrics"
	"trustbridge/internal/federation/remote"
	"trustbridge/internal/federation/service"
	"trustbridge/internal/federation/store"
	jwttoken "trustbridge/internal/jwt_token"
	"trustbridge/internal/platform/config"
	"trustbridge/internal/platform/httpserver"
	"trustbridge/internal/platform/logger"
	"trustbridge/internal/platform/metrics"
	"trustbridge/internal/platform/postgres"
	"trustbridge/internal/platform/redis"
	rlmetrics "trustbridge/internal/ratelimit/metrics"
	rlmiddleware "trustbridge/internal/ratelimit/middleware"
	rlmodels "trustbridge/internal/ratelimit/models"
	"trustbridge/internal/ratelimit/store/bucket"
	"trustbridge/internal/relyingparty"
	httptransport "trustbridge/internal/transport/http"
	trusthandler "trustbridge/internal/trust/handler"
	trustmetrics "trustbridge/internal/trust/metrics"
	"trustbridge/internal/trust/registry"
	"trustbridge/internal/trust/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "trustbridge: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cfg, log); err != nil {
		log.Error("trustbridge stopped with error", "error", err)
		os.Exit(1)
	}
}

// run wires the broker and blocks until ctx is cancelled or a background
// component fails.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	var checks []httptransport.HealthCheck

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Postgres.DSN, cfg.Broker.RetryMaxTries, log)
		if err != nil {
			return err
		}
		defer db.Close()
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: db.PingContext})
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: rc.Health})
	}

	reg, err := newRegistry(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	if _, err := reg.LoadNetwork(ctx, cfg.Trust.NetworkID); err != nil {
		return fmt.Errorf("load trust network %q: %w", cfg.Trust.NetworkID, err)
	}

	provider, err := newBackchannel(cfg.Backchannel, rc, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	auditPipeline, err := newAuditPipeline(gctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer auditPipeline.Close()
	checks = append(checks, auditPipeline.checks...)

	broker, err := newBroker(gctx, cfg, reg, provider, auditPipeline.publisher, log)
	if err != nil {
		return err
	}

	clients, err := newClientStore(cfg.Clients)
	if err != nil {
		return err
	}
	rp := relyingparty.NewService(clients, relyingparty.WithLogger(log))

	limiter := rlmiddleware.New(bucket.NewInMemoryBucketStore(), map[rlmodels.EndpointClass]rlmodels.Limit{
		rlmodels.ClassClient: {PerSecond: cfg.RateLimit.ClientRPS, Burst: cfg.RateLimit.ClientBurst},
		rlmodels.ClassPublic: {PerSecond: cfg.RateLimit.PublicRPS, Burst: cfg.RateLimit.PublicBurst},
	}, log,
		rlmiddleware.WithDisabled(cfg.RateLimit.Disabled),
		rlmiddleware.WithIdleTTL(cfg.RateLimit.IdleTTL),
		rlmiddleware.WithMetrics(rlmetrics.New()),
	)

	httpMetrics := metrics.New()
	router := httptransport.NewRouter(
		httptransport.Options{Logger: log, Gatherer: prometheus.DefaultGatherer, Checks: checks},
		fedhandler.New(broker, provider, rp, auditPipeline.publisher, limiter, cfg.Trust.NetworkID, cfg.Server.RequestTimeout, log, httpMetrics),
		trusthandler.New(reg, auditPipeline.publisher, limiter, cfg.Server.AdminToken, cfg.Server.RequestTimeout, log, httpMetrics),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	for _, job := range auditPipeline.background {
		g.Go(func() error { return job(gctx) })
	}

	sweeper := cleanup.New([]cleanup.Job{
		cleanup.BackchannelJob(string(cfg.Backchannel.Mode), provider, cfg.Backchannel.MaxAge),
		{Name: "federation_flows", Sweep: broker.SweepExpiredFlows},
		{Name: "ratelimit_buckets", Sweep: limiter.Sweep},
	}, cleanup.WithLogger(log))
	g.Go(func() error {
		return sweeper.Start(gctx, cfg.Backchannel.CleanupInterval)
	})

	g.Go(func() error {
		log.Info("starting trustbridge",
			"addr", cfg.Server.Addr,
			"network_id", cfg.Trust.NetworkID,
			"hub_provider_id", cfg.Trust.HubProviderID,
			"backchannel", cfg.Backchannel.Mode,
			"kafka", cfg.Kafka.Enabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRegistry(ctx context.Context, cfg *config.Config, db *sql.DB, log *slog.Logger) (*registry.Registry, error) {
	var src registry.Source
	if cfg.Trust.IsFile() {
		src = source.NewFileSource(cfg.Trust.FilePath())
	} else {
		pg := source.NewPostgresSource(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		if cfg.Trust.SeedFile != "" {
			seed, err := source.NewFileSource(cfg.Trust.SeedFile).Load(ctx, cfg.Trust.NetworkID)
			if err != nil {
				return nil, fmt.Errorf("read trust seed: %w", err)
			}
			if err := pg.Import(ctx, seed); err != nil {
				return nil, err
			}
			log.InfoContext(ctx, "trust network seeded", "network_id", seed.ID(), "providers", len(seed.Providers()))
		}
		src = pg
	}
	return registry.New(src, cfg.Trust.HubProviderID, cfg.Trust.MaxHops,
		registry.WithLogger(log),
		registry.WithMetrics(trustmetrics.New()),
	)
}

func newBackchannel(cfg config.Backchannel, rc *redis.Client, log *slog.Logger) (backchannel.Provider, error) {
	m := backchannel.NewMetrics()
	switch cfg.Mode {
	case backchannel.KindFile:
		return file.New(cfg.FileRoot, file.WithLogger(log), file.WithMetrics(m))
	case backchannel.KindRedis:
		if rc == nil {
			return nil, errors.New("redis backchannel requires REDIS_URL")
		}
		return bcredis.New(rc.Client,
			bcredis.WithRequestTTL(cfg.MaxAge),
			bcredis.WithLogger(log),
			bcredis.WithMetrics(m),
		)
	default:
		return mock.New(mock.Config{
			Delay:        cfg.Mock.Delay,
			ApprovalRate: cfg.Mock.ApprovalRate,
			ErrorRate:    cfg.Mock.ErrorRate,
			AutoApprove:  cfg.Mock.AutoApprove,
		}, mock.WithLogger(log), mock.WithMetrics(m)), nil
	}
}

func newBroker(ctx context.Context, cfg *config.Config, reg *registry.Registry, provider backchannel.Provider, auditor service.AuditPublisher, log *slog.Logger) (*service.Broker, error) {
	httpClient := &http.Client{Timeout: cfg.Broker.HTTPTimeout}
	creds := remote.ClientCredentials{
		ClientID:     cfg.Broker.ClientID,
		ClientSecret: cfg.Broker.ClientSecret,
		RedirectURL:  cfg.Broker.RedirectURL,
	}

	keys, err := remote.NewJWKSKeySource(ctx, httpClient)
	if err != nil {
		return nil, err
	}
	issuer, err := jwttoken.NewJWTService(cfg.Broker.SigningKey, cfg.Broker.Issuer, cfg.Broker.Audience)
	if err != nil {
		return nil, err
	}

	return service.New(service.Config{
		MaxTrustDepth:        cfg.Broker.MaxTrustDepth,
		TokenTTL:             cfg.Broker.TokenTTL,
		FlowTTL:              cfg.Broker.FlowTTL,
		PollInterval:         cfg.Broker.PollInterval,
		RetryMaxTries:        cfg.Broker.RetryMaxTries,
		RetryInitialInterval: cfg.Broker.RetryInitialInterval,
	}, service.Deps{
		Registry:    reg,
		Exchanger:   remote.NewOAuth2Exchanger(creds, httpClient),
		Validator:   remote.NewTokenValidator(keys, cfg.Broker.ClientID),
		Issuer:      issuer,
		CIBA:        remote.NewCIBAClient(creds, httpClient, remote.NewPollThrottle(time.Now)),
		Flows:       store.New(),
		Accounts:    accounts.NewInMemoryResolver(time.Now),
		Backchannel: provider,
		Audit:       auditor,
	},
		service.WithLogger(log),
		service.WithMetrics(fedmetrics.New()),
		service.WithTracer(otel.Tracer("trustbridge/federation")),
	)
}

func newClientStore(pairs []string) (*relyingparty.InMemoryStore, error) {
	clients := make([]relyingparty.Client, 0, len(pairs))
	for _, pair := range pairs {
		c, err := relyingparty.ParseClient(pair)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return relyingparty.NewInMemoryStore(clients...), nil
}
