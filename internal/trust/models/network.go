package models

import (
	"slices"
	"strings"
	"time"

	dErrors "trustbridge/pkg/domain-errors"
)

// Capability is a protocol feature a provider supports.
type Capability string

const (
	CapabilityAuthorizationCode Capability = "authorization_code"
	CapabilityCIBA              Capability = "ciba"
	CapabilityTokenExchange     Capability = "token_exchange"
)

// ProviderNode is a member identity provider of a trust network.
type ProviderNode struct {
	ID                    string
	Issuer                string
	AuthorizationEndpoint string
	TokenEndpoint         string
	JWKSURI               string
	BackchannelEndpoint   string
	Capabilities          []Capability
}

// HasCapability reports whether the provider declares c.
func (p ProviderNode) HasCapability(c Capability) bool {
	return slices.Contains(p.Capabilities, c)
}

// TrustEdge is a directed trust relationship. Identity is the (From, To) pair;
// Level and EstablishedAt are attributes.
type TrustEdge struct {
	From          string
	To            string
	Level         string
	EstablishedAt time.Time
}

type edgeKey struct{ from, to string }

// Network is an immutable snapshot of a trust graph. Readers share snapshots
// freely; a refresh builds a new Network instead of editing one.
type Network struct {
	id           string
	providers    map[string]ProviderNode
	edges        map[edgeKey]TrustEdge
	successors   map[string][]string
	droppedEdges []TrustEdge
	loadedAt     time.Time
}

// NewNetwork validates and indexes a network snapshot.
// Duplicate provider ids are rejected. Edges whose endpoints are not members are
// dropped and reported through DroppedEdges. Re-inserted (from, to) pairs keep
// the last occurrence. A provider publishing signing keys must name its issuer.
func NewNetwork(id string, providers []ProviderNode, edges []TrustEdge, loadedAt time.Time) (*Network, error) {
	if strings.TrimSpace(id) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "network id is required")
	}
	n := &Network{
		id:         id,
		providers:  make(map[string]ProviderNode, len(providers)),
		edges:      make(map[edgeKey]TrustEdge, len(edges)),
		successors: make(map[string][]string),
		loadedAt:   loadedAt,
	}
	for _, p := range providers {
		if strings.TrimSpace(p.ID) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "provider id is required")
		}
		if _, exists := n.providers[p.ID]; exists {
			return nil, dErrors.New(dErrors.CodeValidation, "duplicate provider id "+p.ID)
		}
		if p.JWKSURI != "" && strings.TrimSpace(p.Issuer) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "provider "+p.ID+" has a jwks_uri but no issuer")
		}
		p.Capabilities = slices.Clone(p.Capabilities)
		n.providers[p.ID] = p
	}
	for _, e := range edges {
		_, fromOK := n.providers[e.From]
		_, toOK := n.providers[e.To]
		if !fromOK || !toOK {
			n.droppedEdges = append(n.droppedEdges, e)
			continue
		}
		n.edges[edgeKey{e.From, e.To}] = e
	}
	for k := range n.edges {
		n.successors[k.from] = append(n.successors[k.from], k.to)
	}
	for from := range n.successors {
		slices.Sort(n.successors[from])
	}
	return n, nil
}

func (n *Network) ID() string { return n.id }

func (n *Network) LoadedAt() time.Time { return n.loadedAt }

// DroppedEdges lists edges rejected at load because an endpoint is not a member.
func (n *Network) DroppedEdges() []TrustEdge {
	return slices.Clone(n.droppedEdges)
}

func (n *Network) IsMember(providerID string) bool {
	_, ok := n.providers[providerID]
	return ok
}

func (n *Network) Provider(providerID string) (ProviderNode, bool) {
	p, ok := n.providers[providerID]
	if !ok {
		return ProviderNode{}, false
	}
	p.Capabilities = slices.Clone(p.Capabilities)
	return p, true
}

// Providers returns all members ordered by id.
func (n *Network) Providers() []ProviderNode {
	out := make([]ProviderNode, 0, len(n.providers))
	for _, p := range n.providers {
		p.Capabilities = slices.Clone(p.Capabilities)
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b ProviderNode) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Edges returns all trust edges ordered by (From, To).
func (n *Network) Edges() []TrustEdge {
	out := make([]TrustEdge, 0, len(n.edges))
	for _, e := range n.edges {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b TrustEdge) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	return out
}

// HasEdge reports a direct edge only; transitive trust is not considered.
func (n *Network) HasEdge(from, to string) bool {
	_, ok := n.edges[edgeKey{from, to}]
	return ok
}

// Edge returns the direct edge from -> to.
func (n *Network) Edge(from, to string) (TrustEdge, bool) {
	e, ok := n.edges[edgeKey{from, to}]
	return e, ok
}
