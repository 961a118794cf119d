package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustbridge/internal/trust/models"
	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/platform/sentinel"
)

type stubSource struct {
	calls atomic.Int32
	load  func(ctx context.Context, networkID string) (*models.Network, error)
}

func (s *stubSource) Load(ctx context.Context, networkID string) (*models.Network, error) {
	s.calls.Add(1)
	return s.load(ctx, networkID)
}

func buildNetwork(id string, providers []string, edges [][2]string) *models.Network {
	nodes := make([]models.ProviderNode, 0, len(providers))
	for _, p := range providers {
		nodes = append(nodes, models.ProviderNode{ID: p})
	}
	trust := make([]models.TrustEdge, 0, len(edges))
	for _, e := range edges {
		trust = append(trust, models.TrustEdge{From: e[0], To: e[1], Level: "full"})
	}
	n, err := models.NewNetwork(id, nodes, trust, time.Now())
	if err != nil {
		panic(err)
	}
	return n
}

type RegistrySuite struct {
	suite.Suite
	ctx    context.Context
	source *stubSource
	reg    *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	network := buildNetwork("eu-health",
		[]string{"hub", "idp-a", "idp-b", "idp-c", "idp-far"},
		[][2]string{
			{"hub", "idp-a"},
			{"idp-a", "idp-b"},
			{"idp-b", "idp-c"},
			{"idp-c", "idp-far"},
		})
	s.source = &stubSource{load: func(_ context.Context, id string) (*models.Network, error) {
		if id != "eu-health" {
			return nil, fmt.Errorf("network %s: %w", id, sentinel.ErrNotFound)
		}
		return network, nil
	}}
	reg, err := New(s.source, "hub", 3)
	s.Require().NoError(err)
	s.reg = reg
}

func (s *RegistrySuite) TestNew() {
	s.Run("requires a source", func() {
		_, err := New(nil, "hub", 3)
		s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	})
	s.Run("requires a hub", func() {
		_, err := New(s.source, "", 3)
		s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	})
	s.Run("requires a positive hop bound", func() {
		_, err := New(s.source, "hub", 0)
		s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	})
}

func (s *RegistrySuite) TestLoadNetwork() {
	s.Run("caches the snapshot after first load", func() {
		first, err := s.reg.LoadNetwork(s.ctx, "eu-health")
		s.Require().NoError(err)
		second, err := s.reg.LoadNetwork(s.ctx, "eu-health")
		s.Require().NoError(err)

		s.Same(first, second)
		s.Equal(int32(1), s.source.calls.Load())
	})

	s.Run("unknown network is not found", func() {
		_, err := s.reg.LoadNetwork(s.ctx, "unknown")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("source failure is internal", func() {
		src := &stubSource{load: func(context.Context, string) (*models.Network, error) {
			return nil, errors.New("connection reset")
		}}
		reg, err := New(src, "hub", 3)
		s.Require().NoError(err)

		_, err = reg.LoadNetwork(s.ctx, "eu-health")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("source returning a different network violates invariants", func() {
		src := &stubSource{load: func(context.Context, string) (*models.Network, error) {
			return buildNetwork("other", []string{"hub"}, nil), nil
		}}
		reg, err := New(src, "hub", 3)
		s.Require().NoError(err)

		_, err = reg.LoadNetwork(s.ctx, "eu-health")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *RegistrySuite) TestConcurrentFirstLoadsShareOneSourceCall() {
	release := make(chan struct{})
	network := buildNetwork("eu-health", []string{"hub"}, nil)
	src := &stubSource{load: func(context.Context, string) (*models.Network, error) {
		<-release
		return network, nil
	}}
	reg, err := New(src, "hub", 3)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := reg.LoadNetwork(s.ctx, "eu-health")
			s.NoError(err)
			s.Same(network, n)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	s.Equal(int32(1), src.calls.Load())
}

func (s *RegistrySuite) TestCanceledCallerDoesNotAbortSharedLoad() {
	entered := make(chan struct{})
	release := make(chan struct{})
	network := buildNetwork("eu-health", []string{"hub"}, nil)
	src := &stubSource{load: func(ctx context.Context, _ string) (*models.Network, error) {
		close(entered)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return network, nil
	}}
	reg, err := New(src, "hub", 3)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() {
		_, err := reg.LoadNetwork(ctx, "eu-health")
		done <- err
	}()
	<-entered
	cancel()
	err = <-done
	s.ErrorIs(err, context.Canceled)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))

	close(release)
	s.Eventually(func() bool {
		reg.mu.RLock()
		defer reg.mu.RUnlock()
		_, ok := reg.snapshots["eu-health"]
		return ok
	}, time.Second, 5*time.Millisecond)
	n, err := reg.LoadNetwork(s.ctx, "eu-health")
	s.Require().NoError(err)
	s.Same(network, n)
	s.Equal(int32(1), src.calls.Load())
}

func (s *RegistrySuite) TestQueries() {
	s.Run("membership", func() {
		ok, err := s.reg.IsMember(s.ctx, "idp-a", "eu-health")
		s.Require().NoError(err)
		s.True(ok)

		ok, err = s.reg.IsMember(s.ctx, "ghost", "eu-health")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("provider metadata", func() {
		p, err := s.reg.ProviderMetadata(s.ctx, "idp-b", "eu-health")
		s.Require().NoError(err)
		s.Equal("idp-b", p.ID)

		_, err = s.reg.ProviderMetadata(s.ctx, "ghost", "eu-health")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("trust relationships", func() {
		edges, err := s.reg.TrustRelationships(s.ctx, "eu-health")
		s.Require().NoError(err)
		s.Len(edges, 4)
	})

	s.Run("direct relationships only", func() {
		direct, err := s.reg.HasTrustRelationship(s.ctx, "hub", "idp-a", "eu-health")
		s.Require().NoError(err)
		s.True(direct)

		transitive, err := s.reg.HasTrustRelationship(s.ctx, "hub", "idp-b", "eu-health")
		s.Require().NoError(err)
		s.False(transitive)
	})

	s.Run("queries on unknown network fail", func() {
		_, err := s.reg.IsMember(s.ctx, "hub", "unknown")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RegistrySuite) TestTrustPath() {
	s.Run("path within hop bound", func() {
		path, err := s.reg.TrustPath(s.ctx, "eu-health", "idp-c")
		s.Require().NoError(err)
		s.Equal([]string{"hub", "idp-a", "idp-b", "idp-c"}, path.Providers)
		s.Equal(3, path.HopCount())
	})

	s.Run("member beyond hop bound has no path", func() {
		_, err := s.reg.TrustPath(s.ctx, "eu-health", "idp-far")
		s.True(dErrors.HasCode(err, dErrors.CodeTrustPathNotFound))
	})

	s.Run("non-member is untrusted", func() {
		_, err := s.reg.TrustPath(s.ctx, "eu-health", "ghost")
		s.True(dErrors.HasCode(err, dErrors.CodeUntrustedProvider))
	})
}

func (s *RegistrySuite) TestRefreshNetwork() {
	small := buildNetwork("eu-health", []string{"hub", "idp-a"}, [][2]string{{"hub", "idp-a"}})
	large := buildNetwork("eu-health",
		[]string{"hub", "idp-a", "idp-b"},
		[][2]string{{"hub", "idp-a"}, {"idp-a", "idp-b"}})

	s.Run("replaces the cached snapshot", func() {
		var current atomic.Pointer[models.Network]
		current.Store(small)
		src := &stubSource{load: func(context.Context, string) (*models.Network, error) {
			return current.Load(), nil
		}}
		reg, err := New(src, "hub", 3)
		s.Require().NoError(err)

		_, err = reg.TrustPath(s.ctx, "eu-health", "idp-b")
		s.True(dErrors.HasCode(err, dErrors.CodeUntrustedProvider))

		current.Store(large)
		_, err = reg.RefreshNetwork(s.ctx, "eu-health")
		s.Require().NoError(err)

		path, err := reg.TrustPath(s.ctx, "eu-health", "idp-b")
		s.Require().NoError(err)
		s.Equal(2, path.HopCount())
	})

	s.Run("failed refresh keeps previous snapshot", func() {
		var fail atomic.Bool
		src := &stubSource{load: func(context.Context, string) (*models.Network, error) {
			if fail.Load() {
				return nil, errors.New("source offline")
			}
			return small, nil
		}}
		reg, err := New(src, "hub", 3)
		s.Require().NoError(err)
		_, err = reg.LoadNetwork(s.ctx, "eu-health")
		s.Require().NoError(err)

		fail.Store(true)
		_, err = reg.RefreshNetwork(s.ctx, "eu-health")
		s.Require().Error(err)

		n, err := reg.LoadNetwork(s.ctx, "eu-health")
		s.Require().NoError(err)
		s.Same(small, n)
	})

	s.Run("readers never observe a partial graph", func() {
		var flip atomic.Bool
		src := &stubSource{load: func(context.Context, string) (*models.Network, error) {
			if flip.Load() {
				return large, nil
			}
			return small, nil
		}}
		reg, err := New(src, "hub", 3)
		s.Require().NoError(err)
		_, err = reg.LoadNetwork(s.ctx, "eu-health")
		s.Require().NoError(err)

		ctx, cancel := context.WithCancel(s.ctx)
		var wg sync.WaitGroup
		var inconsistent atomic.Int32
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for ctx.Err() == nil {
					n, err := reg.LoadNetwork(ctx, "eu-health")
					if err != nil {
						continue
					}
					providers, edges := len(n.Providers()), len(n.Edges())
					if !(providers == 2 && edges == 1) && !(providers == 3 && edges == 2) {
						inconsistent.Add(1)
					}
				}
			}()
		}
		for i := range 200 {
			flip.Store(i%2 == 0)
			_, err := reg.RefreshNetwork(s.ctx, "eu-health")
			s.Require().NoError(err)
		}
		cancel()
		wg.Wait()

		s.Zero(inconsistent.Load())
	})
}
