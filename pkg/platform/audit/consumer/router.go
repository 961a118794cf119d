package consumer

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"trustbridge/internal/platform/kafka/consumer"
	audit "trustbridge/pkg/platform/audit"
	"trustbridge/pkg/platform/audit/sink"
)

// TopicHandler handles messages from one topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router dispatches consumed records by topic. Records from topics nobody
// registered are logged and committed.
type Router struct {
	handlers map[string]TopicHandler
	logger   *slog.Logger
}

// NewAuditRouter routes the per-category topics under prefix into store.
func NewAuditRouter(prefix string, store audit.Sink, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{handlers: make(map[string]TopicHandler), logger: logger}
	for _, category := range []audit.EventCategory{
		audit.CategoryCompliance,
		audit.CategorySecurity,
		audit.CategoryOperations,
	} {
		r.handlers[sink.TopicFor(prefix, category)] = NewHandler(store, category, logger)
	}
	return r
}

// Topics lists the subscribed topics in a stable order.
func (r *Router) Topics() []string {
	return slices.Sorted(maps.Keys(r.handlers))
}

func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	h, ok := r.handlers[msg.Topic]
	if !ok {
		r.logger.WarnContext(ctx, "audit record on unrouted topic skipped",
			"topic", msg.Topic,
			"key", string(msg.Key),
		)
		return nil
	}
	return h.Handle(ctx, msg)
}
