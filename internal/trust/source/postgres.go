package source

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/lib/pq"

	"trustbridge/internal/trust/models"
	"trustbridge/pkg/platform/sentinel"
	txcontext "trustbridge/pkg/platform/tx"
)

// Schema creates the trust network tables.
//
//go:embed schema.sql
var Schema string

// PostgresSource reads networks from the trust_providers and trust_edges tables.
// Edge rows are applied in insertion order, so a later row for the same pair wins.
type PostgresSource struct {
	db    *sql.DB
	clock func() time.Time
}

type PostgresOption func(*PostgresSource)

func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresSource) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewPostgresSource(db *sql.DB, opts ...PostgresOption) *PostgresSource {
	s := &PostgresSource{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create trust network schema: %w", err)
	}
	return nil
}

// Load reads providers and edges in one read-only transaction so both come from
// the same database snapshot.
func (s *PostgresSource) Load(ctx context.Context, networkID string) (*models.Network, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin trust network read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	providers, err := s.loadProviders(ctx, tx, networkID)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("network %s: %w", networkID, sentinel.ErrNotFound)
	}
	edges, err := s.loadEdges(ctx, tx, networkID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit trust network read: %w", err)
	}
	return models.NewNetwork(networkID, providers, edges, s.clock())
}

func (s *PostgresSource) loadProviders(ctx context.Context, tx *sql.Tx, networkID string) ([]models.ProviderNode, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT provider_id, issuer, authorization_endpoint, token_endpoint,
		       jwks_uri, backchannel_endpoint, capabilities
		FROM trust_providers
		WHERE network_id = $1
		ORDER BY provider_id
	`, networkID)
	if err != nil {
		return nil, fmt.Errorf("query trust providers: %w", err)
	}
	defer rows.Close()

	var providers []models.ProviderNode
	for rows.Next() {
		var p models.ProviderNode
		var caps []string
		if err := rows.Scan(&p.ID, &p.Issuer, &p.AuthorizationEndpoint, &p.TokenEndpoint,
			&p.JWKSURI, &p.BackchannelEndpoint, pq.Array(&caps)); err != nil {
			return nil, fmt.Errorf("scan trust provider: %w", err)
		}
		for _, c := range caps {
			p.Capabilities = append(p.Capabilities, models.Capability(c))
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trust providers: %w", err)
	}
	return providers, nil
}

func (s *PostgresSource) loadEdges(ctx context.Context, tx *sql.Tx, networkID string) ([]models.TrustEdge, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT from_provider, to_provider, level, established_at
		FROM trust_edges
		WHERE network_id = $1
		ORDER BY id
	`, networkID)
	if err != nil {
		return nil, fmt.Errorf("query trust edges: %w", err)
	}
	defer rows.Close()

	var edges []models.TrustEdge
	for rows.Next() {
		var e models.TrustEdge
		if err := rows.Scan(&e.From, &e.To, &e.Level, &e.EstablishedAt); err != nil {
			return nil, fmt.Errorf("scan trust edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trust edges: %w", err)
	}
	return edges, nil
}

// UpsertProvider inserts or replaces a member provider.
func (s *PostgresSource) UpsertProvider(ctx context.Context, networkID string, p models.ProviderNode) error {
	caps := make([]string, 0, len(p.Capabilities))
	for _, c := range p.Capabilities {
		caps = append(caps, string(c))
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO trust_providers (network_id, provider_id, issuer, authorization_endpoint,
			token_endpoint, jwks_uri, backchannel_endpoint, capabilities)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (network_id, provider_id) DO UPDATE SET
			issuer = EXCLUDED.issuer,
			authorization_endpoint = EXCLUDED.authorization_endpoint,
			token_endpoint = EXCLUDED.token_endpoint,
			jwks_uri = EXCLUDED.jwks_uri,
			backchannel_endpoint = EXCLUDED.backchannel_endpoint,
			capabilities = EXCLUDED.capabilities
	`, networkID, p.ID, p.Issuer, p.AuthorizationEndpoint, p.TokenEndpoint,
		p.JWKSURI, p.BackchannelEndpoint, pq.Array(caps))
	if err != nil {
		return fmt.Errorf("upsert trust provider: %w", err)
	}
	return nil
}

// AddEdge appends a trust edge row; the latest row for a pair wins at load.
func (s *PostgresSource) AddEdge(ctx context.Context, networkID string, e models.TrustEdge) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO trust_edges (network_id, from_provider, to_provider, level, established_at)
		VALUES ($1, $2, $3, $4, $5)
	`, networkID, e.From, e.To, e.Level, e.EstablishedAt)
	if err != nil {
		return fmt.Errorf("add trust edge: %w", err)
	}
	return nil
}

// Import writes every member and retained edge of n in one transaction.
// Existing rows for the network are replaced.
func (s *PostgresSource) Import(ctx context.Context, n *models.Network) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		for _, table := range []string{"trust_edges", "trust_providers"} {
			if _, err := s.execer(ctx).ExecContext(ctx, "DELETE FROM "+table+" WHERE network_id = $1", n.ID()); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, p := range n.Providers() {
			if err := s.UpsertProvider(ctx, n.ID(), p); err != nil {
				return err
			}
		}
		for _, e := range n.Edges() {
			if err := s.AddEdge(ctx, n.ID(), e); err != nil {
				return err
			}
		}
		return nil
	})
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins the caller's transaction when one is in ctx.
func (s *PostgresSource) execer(ctx context.Context) sqlExecer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}
