// Package consumer runs a Kafka consumer group loop with at-least-once
// delivery: offsets are committed only after every record of a fetch was
// handled.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a transport-neutral view of a consumed record.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition int32
	Offset    int64
	Timestamp time.Time
}

// Handler processes one message. Returning an error prevents the offset
// from being committed.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Config configures a consumer group member.
type Config struct {
	Brokers  []string
	Group    string
	Topics   []string
	ClientID string
	// MaxTries bounds handler retries per message before Run gives up.
	MaxTries uint
}

type Consumer struct {
	client   *kgo.Client
	handler  Handler
	logger   *slog.Logger
	maxTries uint
}

// Option configures a Consumer.
type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(cfg Config, handler Handler, opts ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Group == "" || len(cfg.Topics) == 0 {
		return nil, errors.New("kafka consumer: brokers, group and topics are required")
	}
	kopts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
	if cfg.ClientID != "" {
		kopts = append(kopts, kgo.ClientID(cfg.ClientID))
	}
	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	c := &Consumer{
		client:   client,
		handler:  handler,
		logger:   slog.Default(),
		maxTries: max(cfg.MaxTries, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run polls until ctx is cancelled. It returns an error only when a message
// still fails after MaxTries; uncommitted records are redelivered to the
// next group member.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		for _, fe := range fetches.Errors() {
			c.logger.WarnContext(ctx, "kafka fetch error",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err,
			)
		}

		var handleErr error
		fetches.EachRecord(func(r *kgo.Record) {
			if handleErr != nil {
				return
			}
			handleErr = c.handle(ctx, toMessage(r))
		})
		if handleErr != nil {
			if ctx.Err() != nil {
				return nil
			}
			return handleErr
		}

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.WarnContext(ctx, "kafka offset commit failed", "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *Message) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.handler.Handle(ctx, msg)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.DebugContext(ctx, "retrying kafka message",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"next", next,
				"error", err,
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("handle %s@%d/%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}
	return nil
}

func toMessage(r *kgo.Record) *Message {
	return &Message{
		Topic:     r.Topic,
		Key:       r.Key,
		Value:     r.Value,
		Partition: r.Partition,
		Offset:    r.Offset,
		Timestamp: r.Timestamp,
	}
}
