package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"trustbridge/internal/platform/config"
	"trustbridge/internal/platform/kafka"
	"trustbridge/internal/platform/kafka/consumer"
	httptransport "trustbridge/internal/transport/http"
	"trustbridge/pkg/platform/audit"
	auditconsumer "trustbridge/pkg/platform/audit/consumer"
	"trustbridge/pkg/platform/audit/publisher"
	"trustbridge/pkg/platform/audit/sink"
	"trustbridge/pkg/platform/audit/store/memory"
	auditpg "trustbridge/pkg/platform/audit/store/postgres"
)

// auditPipeline is the publisher the broker emits into plus whatever has to
// run beside it.
type auditPipeline struct {
	publisher  *publisher.Publisher
	checks     []httptransport.HealthCheck
	background []func(ctx context.Context) error
	closers    []func()
}

func (p *auditPipeline) Close() {
	p.publisher.Close()
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// newAuditPipeline picks the audit sink: Kafka when brokers are configured
// (with an optional consumer group persisting into Postgres), otherwise
// Postgres directly, otherwise a bounded in-memory store.
func newAuditPipeline(ctx context.Context, cfg *config.Config, db *sql.DB, log *slog.Logger) (*auditPipeline, error) {
	p := &auditPipeline{}

	var pgStore *auditpg.Store
	if db != nil {
		pgStore = auditpg.New(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return nil, err
		}
	}

	var target audit.Sink
	switch {
	case cfg.Kafka.Enabled():
		producer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers, ClientID: cfg.Kafka.ClientID})
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, producer.Close)
		p.checks = append(p.checks, httptransport.HealthCheck{Name: "kafka", Check: producer.Ping})

		topics := sink.Topics(cfg.Kafka.TopicPrefix)
		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := producer.EnsureTopics(ensureCtx, 1, 1, topics...); err != nil {
			log.Warn("audit topics not created, relying on broker auto-creation", "error", err)
		}
		cancel()
		target = sink.NewKafkaSink(producer, cfg.Kafka.TopicPrefix)

		if pgStore != nil && cfg.Kafka.ConsumerGroup != "" {
			router := auditconsumer.NewAuditRouter(cfg.Kafka.TopicPrefix, pgStore, log)
			c, err := consumer.New(consumer.Config{
				Brokers:  cfg.Kafka.Brokers,
				Group:    cfg.Kafka.ConsumerGroup,
				Topics:   router.Topics(),
				ClientID: cfg.Kafka.ClientID,
				MaxTries: cfg.Broker.RetryMaxTries,
			}, router, consumer.WithLogger(log))
			if err != nil {
				return nil, fmt.Errorf("audit consumer: %w", err)
			}
			p.background = append(p.background, c.Run)
		}
	case pgStore != nil:
		target = pgStore
	default:
		target = memory.NewInMemoryStore(cfg.Audit.MemoryCapacity)
	}

	p.publisher = publisher.NewPublisher(target,
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
		publisher.WithSampler(publisher.NewSampler(cfg.Audit.OpsSampleRate)),
		publisher.WithMetrics(publisher.NewMetrics()),
		publisher.WithLogger(log),
	)
	return p, nil
}
