// Package source loads trust network snapshots from external definitions.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trustbridge/internal/trust/models"
	"trustbridge/pkg/platform/sentinel"
	strutil "trustbridge/pkg/platform/strings"
)

// FileSource reads networks from a YAML document. The file is re-read on every
// Load so a refresh picks up edits.
type FileSource struct {
	path  string
	clock func() time.Time
}

type FileOption func(*FileSource)

func WithFileClock(clock func() time.Time) FileOption {
	return func(s *FileSource) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewFileSource(path string, opts ...FileOption) *FileSource {
	s := &FileSource{path: path, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type fileDocument struct {
	Networks []fileNetwork `yaml:"networks"`
}

type fileNetwork struct {
	ID        string         `yaml:"id"`
	Providers []fileProvider `yaml:"providers"`
	Trust     []fileEdge     `yaml:"trust"`
}

type fileProvider struct {
	ID                    string   `yaml:"id"`
	Issuer                string   `yaml:"issuer"`
	AuthorizationEndpoint string   `yaml:"authorization_endpoint"`
	TokenEndpoint         string   `yaml:"token_endpoint"`
	JWKSURI               string   `yaml:"jwks_uri"`
	BackchannelEndpoint   string   `yaml:"backchannel_authentication_endpoint"`
	Capabilities          []string `yaml:"capabilities"`
}

type fileEdge struct {
	From          string    `yaml:"from"`
	To            string    `yaml:"to"`
	Level         string    `yaml:"level"`
	EstablishedAt time.Time `yaml:"established_at"`
}

// Load parses the document and builds the named network.
func (s *FileSource) Load(_ context.Context, networkID string) (*models.Network, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("trust network file %s: %w", s.path, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("read trust network file: %w", err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse trust network file: %w", err)
	}
	for _, fn := range doc.Networks {
		if fn.ID != networkID {
			continue
		}
		return fn.toModel(s.clock())
	}
	return nil, fmt.Errorf("network %s: %w", networkID, sentinel.ErrNotFound)
}

func (fn fileNetwork) toModel(loadedAt time.Time) (*models.Network, error) {
	providers := make([]models.ProviderNode, 0, len(fn.Providers))
	for _, p := range fn.Providers {
		caps := make([]models.Capability, 0, len(p.Capabilities))
		for _, c := range strutil.DedupeAndTrimLower(p.Capabilities) {
			caps = append(caps, models.Capability(c))
		}
		providers = append(providers, models.ProviderNode{
			ID:                    p.ID,
			Issuer:                p.Issuer,
			AuthorizationEndpoint: p.AuthorizationEndpoint,
			TokenEndpoint:         p.TokenEndpoint,
			JWKSURI:               p.JWKSURI,
			BackchannelEndpoint:   p.BackchannelEndpoint,
			Capabilities:          caps,
		})
	}
	edges := make([]models.TrustEdge, 0, len(fn.Trust))
	for _, e := range fn.Trust {
		edges = append(edges, models.TrustEdge{
			From:          e.From,
			To:            e.To,
			Level:         e.Level,
			EstablishedAt: e.EstablishedAt,
		})
	}
	return models.NewNetwork(fn.ID, providers, edges, loadedAt)
}
