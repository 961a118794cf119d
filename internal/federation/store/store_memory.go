package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"trustbridge/internal/federation/models"
	"trustbridge/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when no flow matches
// - ErrExpired when the flow outlived its TTL (the flow is removed)
// - ErrAlreadyUsed when a redirect state was consumed before
// - ErrConflict when saving a flow id twice

// InMemoryFlowStore keeps pending federation flows for a single broker
// instance. Flows are stored and returned as copies.
type InMemoryFlowStore struct {
	mu        sync.Mutex
	flows     map[string]*models.Flow
	byState   map[string]string
	byAuthReq map[string]string
	consumed  map[string]time.Time
}

func New() *InMemoryFlowStore {
	return &InMemoryFlowStore{
		flows:     make(map[string]*models.Flow),
		byState:   make(map[string]string),
		byAuthReq: make(map[string]string),
		consumed:  make(map[string]time.Time),
	}
}

func clone(f *models.Flow) *models.Flow {
	c := *f
	c.TrustPath = slices.Clone(f.TrustPath)
	return &c
}

func (s *InMemoryFlowStore) Save(_ context.Context, flow *models.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[flow.ID]; ok {
		return fmt.Errorf("flow %s: %w", flow.ID, sentinel.ErrConflict)
	}
	s.flows[flow.ID] = clone(flow)
	if flow.StateParam != "" {
		s.byState[flow.StateParam] = flow.ID
	}
	if flow.AuthReqID != "" {
		s.byAuthReq[flow.AuthReqID] = flow.ID
	}
	return nil
}

// Update replaces a stored flow. Index keys are fixed at Save.
func (s *InMemoryFlowStore) Update(_ context.Context, flow *models.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[flow.ID]; !ok {
		return fmt.Errorf("flow %s: %w", flow.ID, sentinel.ErrNotFound)
	}
	s.flows[flow.ID] = clone(flow)
	return nil
}

// ConsumeByState returns the redirect flow bound to state and makes the state
// unusable for later calls.
func (s *InMemoryFlowStore) ConsumeByState(_ context.Context, state string, now time.Time) (*models.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, used := s.consumed[state]; used {
		return nil, fmt.Errorf("flow state: %w", sentinel.ErrAlreadyUsed)
	}
	id, ok := s.byState[state]
	if !ok {
		return nil, fmt.Errorf("flow state: %w", sentinel.ErrNotFound)
	}
	flow := s.flows[id]
	delete(s.byState, state)
	if flow.IsExpired(now) {
		s.removeLocked(id)
		return nil, fmt.Errorf("flow state: %w", sentinel.ErrExpired)
	}
	s.consumed[state] = flow.ExpiresAt
	return clone(flow), nil
}

func (s *InMemoryFlowStore) FindByAuthReqID(_ context.Context, authReqID string, now time.Time) (*models.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byAuthReq[authReqID]
	if !ok {
		return nil, fmt.Errorf("ciba flow: %w", sentinel.ErrNotFound)
	}
	flow := s.flows[id]
	if flow.IsExpired(now) {
		s.removeLocked(id)
		return nil, fmt.Errorf("ciba flow: %w", sentinel.ErrExpired)
	}
	return clone(flow), nil
}

func (s *InMemoryFlowStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
	return nil
}

// DeleteExpired removes flows past their TTL as of now.
func (s *InMemoryFlowStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, flow := range s.flows {
		if flow.IsExpired(now) {
			s.removeLocked(id)
			removed++
		}
	}
	for state, expiresAt := range s.consumed {
		if !expiresAt.IsZero() && now.After(expiresAt) {
			delete(s.consumed, state)
		}
	}
	return removed, nil
}

// removeLocked must be called with s.mu held.
func (s *InMemoryFlowStore) removeLocked(id string) {
	flow, ok := s.flows[id]
	if !ok {
		return
	}
	delete(s.flows, id)
	if flow.StateParam != "" && s.byState[flow.StateParam] == id {
		delete(s.byState, flow.StateParam)
	}
	if flow.AuthReqID != "" && s.byAuthReq[flow.AuthReqID] == id {
		delete(s.byAuthReq, flow.AuthReqID)
	}
}
