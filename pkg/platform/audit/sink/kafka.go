// Package sink delivers audit events to a message broker.
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	audit "trustbridge/pkg/platform/audit"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "trustbridge.audit"

// Producer writes one keyed record to a topic.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// KafkaSink publishes each event to a per-category topic keyed by event id.
type KafkaSink struct {
	producer Producer
	prefix   string
}

func NewKafkaSink(producer Producer, topicPrefix string) *KafkaSink {
	if topicPrefix == "" {
		topicPrefix = DefaultTopicPrefix
	}
	return &KafkaSink{producer: producer, prefix: topicPrefix}
}

func (s *KafkaSink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Produce(ctx, TopicFor(s.prefix, event.Category), []byte(event.ID), payload)
}

// TopicFor returns the topic carrying events of one category.
func TopicFor(prefix string, category audit.EventCategory) string {
	return prefix + "." + string(category)
}

// Topics lists every audit topic for a prefix.
func Topics(prefix string) []string {
	return []string{
		TopicFor(prefix, audit.CategoryCompliance),
		TopicFor(prefix, audit.CategorySecurity),
		TopicFor(prefix, audit.CategoryOperations),
	}
}
