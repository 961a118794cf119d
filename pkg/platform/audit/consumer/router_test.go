package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustbridge/internal/platform/kafka/consumer"
	audit "trustbridge/pkg/platform/audit"
	"trustbridge/pkg/platform/audit/store/memory"
)

type brokenSink struct{}

func (brokenSink) Append(context.Context, audit.Event) error { return errors.New("db down") }

func message(t *testing.T, topic string, event audit.Event) *consumer.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return &consumer.Message{Topic: topic, Key: []byte(event.ID), Value: value}
}

func TestAuditRouter(t *testing.T) {
	ctx := context.Background()

	t.Run("stores events from every category topic", func(t *testing.T) {
		store := memory.NewInMemoryStore(10)
		router := NewAuditRouter("tb", store, nil)

		require.NoError(t, router.Handle(ctx, message(t, "tb.compliance", audit.Event{
			ID:     "evt-1",
			Action: string(audit.EventFederationCompleted),
		})))
		require.NoError(t, router.Handle(ctx, message(t, "tb.operations", audit.Event{
			ID:     "evt-2",
			Action: string(audit.EventCibaInitiated),
		})))

		events, err := store.ListRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, audit.CategoryOperations, events[0].Category)
		assert.Equal(t, audit.CategoryCompliance, events[1].Category)
		assert.Equal(t, []string{"tb.compliance", "tb.operations", "tb.security"}, router.Topics())
	})

	t.Run("unknown topic is skipped", func(t *testing.T) {
		store := memory.NewInMemoryStore(10)
		router := NewAuditRouter("tb", store, nil)

		require.NoError(t, router.Handle(ctx, &consumer.Message{Topic: "other", Value: []byte("{}")}))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("malformed payload is committed", func(t *testing.T) {
		router := NewAuditRouter("tb", brokenSink{}, nil)
		assert.NoError(t, router.Handle(ctx, &consumer.Message{Topic: "tb.compliance", Value: []byte("not json")}))
	})

	t.Run("storage failure redelivers compliance but not operations", func(t *testing.T) {
		router := NewAuditRouter("tb", brokenSink{}, nil)

		err := router.Handle(ctx, message(t, "tb.compliance", audit.Event{ID: "evt-1", Action: string(audit.EventTokenReissued)}))
		assert.Error(t, err)

		err = router.Handle(ctx, message(t, "tb.operations", audit.Event{ID: "evt-2", Action: string(audit.EventCibaResolved)}))
		assert.NoError(t, err)
	})
}
