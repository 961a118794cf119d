package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"trustbridge/internal/platform/kafka/consumer"
	audit "trustbridge/pkg/platform/audit"
)

// Handler materializes audit events from Kafka into a sink.
//
// Malformed messages are logged and committed so they cannot block the
// partition. Storage failures are returned (and redelivered) for compliance
// and security events; operations events are best-effort.
type Handler struct {
	sink     audit.Sink
	category audit.EventCategory
	logger   *slog.Logger
}

func NewHandler(sink audit.Sink, category audit.EventCategory, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sink: sink, category: category, logger: logger}
}

func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal audit payload",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}
	if event.ID == "" {
		event.ID = string(msg.Key)
	}
	if event.ID == "" || event.Action == "" {
		h.logger.ErrorContext(ctx, "audit event missing id or action",
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}
	if event.Category == "" {
		event.Category = h.category
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = msg.Timestamp
	}

	if err := h.sink.Append(ctx, event); err != nil {
		if h.category == audit.CategoryOperations {
			h.logger.DebugContext(ctx, "dropping operations audit event",
				"event_id", event.ID,
				"error", err,
			)
			return nil
		}
		h.logger.ErrorContext(ctx, "failed to store audit event",
			"event_id", event.ID,
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("store audit event: %w", err)
	}
	return nil
}
