// Package registry caches trust network snapshots and answers membership,
// relationship and trust path queries against them.
//
// Snapshots are immutable. Refresh builds a complete new snapshot from the
// source and swaps the cached pointer, so a concurrent reader sees either the
// old graph or the new one, never a mix.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trustbridge/internal/trust/metrics"
	"trustbridge/internal/trust/models"
	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/platform/sentinel"
)

// Source loads a full network snapshot. Implementations return
// sentinel.ErrNotFound for unknown networks.
type Source interface {
	Load(ctx context.Context, networkID string) (*models.Network, error)
}

// Registry is safe for concurrent use.
type Registry struct {
	source  Source
	hubID   string
	maxHops int
	logger  *slog.Logger
	metrics *metrics.Metrics
	// loadTimeout bounds a shared source load, which runs detached from the
	// callers waiting on it.
	loadTimeout time.Duration

	mu        sync.RWMutex
	snapshots map[string]*models.Network
	loads     singleflight.Group
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithLoadTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.loadTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// New creates a Registry computing paths from hubID, bounded by maxHops.
func New(source Source, hubID string, maxHops int, opts ...Option) (*Registry, error) {
	if source == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "trust network source is required")
	}
	if hubID == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "hub provider id is required")
	}
	if maxHops < 1 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "max hops must be at least 1")
	}
	r := &Registry{
		source:    source,
		hubID:     hubID,
		maxHops:   maxHops,
		logger:      slog.Default(),
		loadTimeout: 30 * time.Second,
		snapshots:   make(map[string]*models.Network),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// HubID is the provider id paths are computed from.
func (r *Registry) HubID() string { return r.hubID }

// LoadNetwork returns the cached snapshot, loading it on first use.
// Concurrent first loads of the same network share one source call.
func (r *Registry) LoadNetwork(ctx context.Context, networkID string) (*models.Network, error) {
	r.mu.RLock()
	n, ok := r.snapshots[networkID]
	r.mu.RUnlock()
	if ok {
		return n, nil
	}
	return r.load(ctx, networkID, "initial")
}

// RefreshNetwork forces a full reload and replaces the cached snapshot.
// On failure the previous snapshot stays in place.
func (r *Registry) RefreshNetwork(ctx context.Context, networkID string) (*models.Network, error) {
	return r.load(ctx, networkID, "refresh")
}

// load shares one source call between concurrent callers. A caller whose
// context ends stops waiting, but the load itself carries on for the others.
func (r *Registry) load(ctx context.Context, networkID, trigger string) (*models.Network, error) {
	ch := r.loads.DoChan(trigger+":"+networkID, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()
		return r.fetch(shared, networkID, trigger)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "trust network load abandoned")
	case res = <-ch:
	}
	if err := res.Err; err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "trust network not found")
		}
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trust network")
	}
	return res.Val.(*models.Network), nil
}

func (r *Registry) fetch(ctx context.Context, networkID, trigger string) (*models.Network, error) {
	start := time.Now()
	n, err := r.source.Load(ctx, networkID)
	if r.metrics != nil {
		r.metrics.ObserveLoad(trigger, start, err)
	}
	if err != nil {
		return nil, err
	}
	if n.ID() != networkID {
		return nil, dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("source returned network %q for %q", n.ID(), networkID))
	}

	r.mu.Lock()
	if existing, ok := r.snapshots[networkID]; ok && trigger == "initial" {
		// a refresh won the race; keep the newer snapshot
		r.mu.Unlock()
		return existing, nil
	}
	r.snapshots[networkID] = n
	r.mu.Unlock()

	dropped := n.DroppedEdges()
	for _, e := range dropped {
		r.logger.WarnContext(ctx, "dropped trust edge referencing non-member",
			"network_id", networkID,
			"from", e.From,
			"to", e.To,
		)
	}
	if r.metrics != nil {
		r.metrics.RecordSnapshot(networkID, len(n.Providers()), len(n.Edges()), len(dropped))
	}
	r.logger.InfoContext(ctx, "trust network loaded",
		"network_id", networkID,
		"trigger", trigger,
		"providers", len(n.Providers()),
		"edges", len(n.Edges()),
	)
	return n, nil
}

// IsMember reports whether providerID belongs to the network.
func (r *Registry) IsMember(ctx context.Context, providerID, networkID string) (bool, error) {
	n, err := r.LoadNetwork(ctx, networkID)
	if err != nil {
		return false, err
	}
	return n.IsMember(providerID), nil
}

// ProviderMetadata returns the endpoint metadata of a member provider.
func (r *Registry) ProviderMetadata(ctx context.Context, providerID, networkID string) (models.ProviderNode, error) {
	n, err := r.LoadNetwork(ctx, networkID)
	if err != nil {
		return models.ProviderNode{}, err
	}
	p, ok := n.Provider(providerID)
	if !ok {
		return models.ProviderNode{}, dErrors.New(dErrors.CodeNotFound, "provider is not a network member")
	}
	return p, nil
}

// TrustRelationships returns every edge of the network.
func (r *Registry) TrustRelationships(ctx context.Context, networkID string) ([]models.TrustEdge, error) {
	n, err := r.LoadNetwork(ctx, networkID)
	if err != nil {
		return nil, err
	}
	return n.Edges(), nil
}

// HasTrustRelationship reports a direct edge from -> to.
func (r *Registry) HasTrustRelationship(ctx context.Context, from, to, networkID string) (bool, error) {
	n, err := r.LoadNetwork(ctx, networkID)
	if err != nil {
		return false, err
	}
	return n.HasEdge(from, to), nil
}

// TrustPath computes the shortest path from the hub to target.
// A non-member fails with CodeUntrustedProvider; a member without a path within
// the hop bound fails with CodeTrustPathNotFound.
func (r *Registry) TrustPath(ctx context.Context, networkID, target string) (models.TrustPath, error) {
	n, err := r.LoadNetwork(ctx, networkID)
	if err != nil {
		return models.TrustPath{}, err
	}
	if !n.IsMember(target) {
		r.countPath("untrusted")
		return models.TrustPath{}, dErrors.New(dErrors.CodeUntrustedProvider, "provider is not a network member")
	}
	path, ok := n.ShortestPath(r.hubID, target, r.maxHops)
	if !ok {
		r.countPath("not_found")
		r.logger.InfoContext(ctx, "no trust path within hop limit",
			"network_id", networkID,
			"hub_id", r.hubID,
			"provider_id", target,
			"max_hops", r.maxHops,
		)
		return models.TrustPath{}, dErrors.New(dErrors.CodeTrustPathNotFound, "no trust path to provider")
	}
	r.countPath("found")
	return path, nil
}

func (r *Registry) countPath(outcome string) {
	if r.metrics != nil {
		r.metrics.IncPathLookup(outcome)
	}
}
