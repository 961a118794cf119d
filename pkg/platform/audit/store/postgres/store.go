package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/lib/pq"

	audit "trustbridge/pkg/platform/audit"
)

//go:embed schema.sql
var schema string

// Store materializes audit events into the audit_events table. Appends are
// idempotent on event id so redelivered messages are ignored.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Append inserts e unless an event with the same id was already stored.
func (s *Store) Append(ctx context.Context, e audit.Event) error {
	if e.ID == "" {
		return fmt.Errorf("audit event requires ID")
	}
	path := e.TrustPath
	if path == nil {
		path = []string{}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.Category), e.Action, e.Timestamp, e.FlowID, e.NetworkID,
		e.HomeProviderID, e.ClientID, e.Subject, e.Decision, e.Reason,
		pq.Array(path), e.HopCount, e.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const eventColumns = `id, category, action, timestamp, flow_id, network_id,
	home_provider_id, client_id, subject, decision, reason,
	trust_path, hop_count, request_id`

// ListRecent returns the limit most recent events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return s.list(ctx, `SELECT `+eventColumns+` FROM audit_events ORDER BY timestamp DESC LIMIT $1`, limit)
}

// ListByFlow returns the events recorded for one flow, oldest first.
func (s *Store) ListByFlow(ctx context.Context, flowID string) ([]audit.Event, error) {
	return s.list(ctx, `SELECT `+eventColumns+` FROM audit_events WHERE flow_id = $1 ORDER BY timestamp ASC`, flowID)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (audit.Event, error) {
	var (
		e        audit.Event
		category string
		path     pq.StringArray
	)
	if err := rows.Scan(&e.ID, &category, &e.Action, &e.Timestamp, &e.FlowID, &e.NetworkID,
		&e.HomeProviderID, &e.ClientID, &e.Subject, &e.Decision, &e.Reason,
		&path, &e.HopCount, &e.RequestID); err != nil {
		return audit.Event{}, fmt.Errorf("scan audit event: %w", err)
	}
	e.Category = audit.EventCategory(category)
	if len(path) > 0 {
		e.TrustPath = []string(path)
	}
	return e, nil
}
