package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "trustbridge/pkg/domain-errors"
)

type NetworkSuite struct {
	suite.Suite
	loadedAt time.Time
}

func TestNetworkSuite(t *testing.T) {
	suite.Run(t, new(NetworkSuite))
}

func (s *NetworkSuite) SetupTest() {
	s.loadedAt = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
}

func nodes(ids ...string) []ProviderNode {
	out := make([]ProviderNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, ProviderNode{ID: id, Issuer: "https://" + id + ".example"})
	}
	return out
}

func edge(from, to string) TrustEdge {
	return TrustEdge{From: from, To: to, Level: "full"}
}

func (s *NetworkSuite) mustNetwork(providers []ProviderNode, edges []TrustEdge) *Network {
	n, err := NewNetwork("eu-health", providers, edges, s.loadedAt)
	s.Require().NoError(err)
	return n
}

func (s *NetworkSuite) TestConstruction() {
	s.Run("rejects empty network id", func() {
		_, err := NewNetwork(" ", nodes("hub"), nil, s.loadedAt)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects duplicate provider ids", func() {
		_, err := NewNetwork("eu-health", nodes("hub", "idp-a", "hub"), nil, s.loadedAt)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects key-publishing providers without an issuer", func() {
		_, err := NewNetwork("eu-health", []ProviderNode{
			{ID: "hub"},
			{ID: "idp-a", JWKSURI: "https://idp-a.example/jwks", Issuer: " "},
		}, nil, s.loadedAt)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("drops edges referencing non-members", func() {
		n := s.mustNetwork(nodes("hub", "idp-a"), []TrustEdge{
			edge("hub", "idp-a"),
			edge("hub", "ghost"),
			edge("ghost", "idp-a"),
		})
		s.Len(n.Edges(), 1)
		s.Len(n.DroppedEdges(), 2)
		s.False(n.HasEdge("hub", "ghost"))
	})

	s.Run("re-inserted pair keeps last attributes", func() {
		first := TrustEdge{From: "hub", To: "idp-a", Level: "limited", EstablishedAt: s.loadedAt.Add(-time.Hour)}
		second := TrustEdge{From: "hub", To: "idp-a", Level: "full", EstablishedAt: s.loadedAt}
		n := s.mustNetwork(nodes("hub", "idp-a"), []TrustEdge{first, second})

		s.Require().Len(n.Edges(), 1)
		got, ok := n.Edge("hub", "idp-a")
		s.True(ok)
		s.Equal("full", got.Level)
		s.Equal(s.loadedAt, got.EstablishedAt)
	})

	s.Run("edges are directed and direct only", func() {
		n := s.mustNetwork(nodes("hub", "idp-a", "idp-b"), []TrustEdge{
			edge("hub", "idp-a"),
			edge("idp-a", "idp-b"),
		})
		s.True(n.HasEdge("hub", "idp-a"))
		s.False(n.HasEdge("idp-a", "hub"))
		s.False(n.HasEdge("hub", "idp-b"))
	})

	s.Run("provider copies do not alias snapshot state", func() {
		n := s.mustNetwork([]ProviderNode{{ID: "hub", Capabilities: []Capability{CapabilityCIBA}}}, nil)
		p, ok := n.Provider("hub")
		s.Require().True(ok)
		p.Capabilities[0] = CapabilityTokenExchange

		again, _ := n.Provider("hub")
		s.True(again.HasCapability(CapabilityCIBA))
	})
}

func (s *NetworkSuite) TestShortestPath() {
	// hub -> a -> c -> target
	// hub -> b -> c
	// hub -> b -> d -> target
	diamond := s.mustNetwork(nodes("hub", "a", "b", "c", "d", "target"), []TrustEdge{
		edge("hub", "b"),
		edge("hub", "a"),
		edge("b", "d"),
		edge("b", "c"),
		edge("a", "c"),
		edge("c", "target"),
		edge("d", "target"),
	})

	s.Run("returns shortest path with smallest next hop on ties", func() {
		path, ok := diamond.ShortestPath("hub", "target", 5)
		s.Require().True(ok)
		s.Equal([]string{"hub", "a", "c", "target"}, path.Providers)
		s.Equal(3, path.HopCount())
		s.Equal("target", path.Target())
	})

	s.Run("is deterministic across repeated queries", func() {
		first, _ := diamond.ShortestPath("hub", "target", 5)
		for range 50 {
			again, ok := diamond.ShortestPath("hub", "target", 5)
			s.Require().True(ok)
			s.Equal(first.Providers, again.Providers)
		}
	})

	s.Run("prefers fewer hops over lexicographic order", func() {
		n := s.mustNetwork(nodes("hub", "a", "z", "target"), []TrustEdge{
			edge("hub", "a"),
			edge("a", "target"),
			edge("hub", "z"),
			edge("z", "target"),
			edge("hub", "target"),
		})
		path, ok := n.ShortestPath("hub", "target", 3)
		s.Require().True(ok)
		s.Equal([]string{"hub", "target"}, path.Providers)
	})

	s.Run("fails closed beyond max hops", func() {
		_, ok := diamond.ShortestPath("hub", "target", 2)
		s.False(ok)

		path, ok := diamond.ShortestPath("hub", "target", 3)
		s.True(ok)
		s.Equal(3, path.HopCount())
	})

	s.Run("hub to itself is a zero hop path", func() {
		path, ok := diamond.ShortestPath("hub", "hub", 0)
		s.Require().True(ok)
		s.Equal([]string{"hub"}, path.Providers)
		s.Equal(0, path.HopCount())
	})

	s.Run("unreachable member has no path", func() {
		n := s.mustNetwork(nodes("hub", "a", "island"), []TrustEdge{edge("hub", "a"), edge("island", "hub")})
		_, ok := n.ShortestPath("hub", "island", 10)
		s.False(ok)
	})

	s.Run("non-members have no path", func() {
		_, ok := diamond.ShortestPath("hub", "ghost", 10)
		s.False(ok)
		_, ok = diamond.ShortestPath("ghost", "target", 10)
		s.False(ok)
	})

	s.Run("cycles terminate", func() {
		n := s.mustNetwork(nodes("hub", "a", "b"), []TrustEdge{
			edge("hub", "a"),
			edge("a", "hub"),
			edge("a", "a"),
		})
		_, ok := n.ShortestPath("hub", "b", 100)
		s.False(ok)
	})
}

func (s *NetworkSuite) TestOrderedAccessors() {
	n := s.mustNetwork(nodes("idp-b", "hub", "idp-a"), []TrustEdge{
		edge("idp-a", "idp-b"),
		edge("hub", "idp-b"),
		edge("hub", "idp-a"),
	})

	ids := make([]string, 0, 3)
	for _, p := range n.Providers() {
		ids = append(ids, p.ID)
	}
	s.Equal([]string{"hub", "idp-a", "idp-b"}, ids)

	edges := n.Edges()
	s.Require().Len(edges, 3)
	s.Equal(edge("hub", "idp-a"), edges[0])
	s.Equal(edge("hub", "idp-b"), edges[1])
	s.Equal(edge("idp-a", "idp-b"), edges[2])
}
