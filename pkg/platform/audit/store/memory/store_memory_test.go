package memory

import (
	"context"
	"strconv"
	"testing"

	audit "trustbridge/pkg/platform/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_ListRecent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(3)

	for i := range 5 {
		require.NoError(t, store.Append(ctx, audit.Event{ID: strconv.Itoa(i)}))
	}

	events, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "4", events[0].ID)
	assert.Equal(t, "3", events[1].ID)
	assert.Equal(t, "2", events[2].ID)
	assert.Equal(t, int64(2), store.Dropped())

	events, err = store.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "4", events[0].ID)
}

func TestInMemoryStore_ListByFlow(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(4)

	require.NoError(t, store.Append(ctx, audit.Event{ID: "a", FlowID: "flow-1"}))
	require.NoError(t, store.Append(ctx, audit.Event{ID: "b", FlowID: "flow-2"}))
	require.NoError(t, store.Append(ctx, audit.Event{ID: "c", FlowID: "flow-1"}))

	events, err := store.ListByFlow(ctx, "flow-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "c", events[1].ID)

	store.Clear()
	assert.Equal(t, 0, store.Len())
}
