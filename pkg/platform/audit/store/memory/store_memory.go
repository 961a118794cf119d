package memory

import (
	"context"
	"sync"

	audit "trustbridge/pkg/platform/audit"
)

// DefaultCapacity bounds the in-memory store when no capacity is given.
const DefaultCapacity = 10000

// InMemoryStore keeps the most recent audit events in a fixed-size ring.
// When full, the oldest event is overwritten and counted as dropped.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []audit.Event
	head     int
	count    int
	capacity int
	dropped  int64
}

func NewInMemoryStore(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryStore{
		events:   make([]audit.Event, capacity),
		capacity: capacity,
	}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == s.capacity {
		s.dropped++
	} else {
		s.count++
	}
	s.events[s.head] = event
	s.head = (s.head + 1) % s.capacity
	return nil
}

// ListRecent returns up to limit events, most recent first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > s.count {
		limit = s.count
	}
	result := make([]audit.Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.head - i + s.capacity) % s.capacity
		result = append(result, s.events[idx])
	}
	return result, nil
}

// ListByFlow returns every retained event for a flow in append order.
func (s *InMemoryStore) ListByFlow(_ context.Context, flowID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []audit.Event
	start := (s.head - s.count + s.capacity) % s.capacity
	for i := 0; i < s.count; i++ {
		event := s.events[(start+i)%s.capacity]
		if event.FlowID == flowID {
			result = append(result, event)
		}
	}
	return result, nil
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Dropped returns how many events were overwritten.
func (s *InMemoryStore) Dropped() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make([]audit.Event, s.capacity)
	s.head, s.count, s.dropped = 0, 0, 0
}
