// Package postgres persists audit events in PostgreSQL.
//
// The audit trail keeps its own database connection on the lib/pq driver so a
// saturated credential pool never blocks trail writes.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "skillchain/pkg/platform/audit"
	platformstrings "skillchain/pkg/platform/strings"
	txcontext "skillchain/pkg/platform/tx"
)

// Schema creates the audit_events table. Applied by migrations in deployment
// and by integration tests directly.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id              UUID PRIMARY KEY,
	timestamp       TIMESTAMPTZ NOT NULL,
	action          TEXT NOT NULL,
	credential_id   TEXT,
	content_address TEXT,
	issuer          TEXT,
	decision        TEXT,
	reason          TEXT,
	request_id      TEXT,
	client_ip       TEXT,
	platform        TEXT
);
CREATE INDEX IF NOT EXISTS audit_events_credential_idx ON audit_events (credential_id, timestamp DESC);
`

// Store implements audit.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store around an existing connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL with the lib/pq driver and returns a store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the store's database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins writes to a caller-managed transaction when one is in the
// context.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts an audit event into the audit_events table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, timestamp, action, credential_id, content_address,
			issuer, decision, reason, request_id, client_ip, platform
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		event.Timestamp,
		string(event.Action),
		event.CredentialID,
		event.ContentAddress,
		event.Issuer,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.Platform,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByCredential returns all events recorded for a credential, oldest first.
func (s *Store) ListByCredential(ctx context.Context, credentialID string) ([]audit.Event, error) {
	query := `
		SELECT timestamp, action, credential_id, content_address,
		       issuer, decision, reason, request_id, client_ip, platform
		FROM audit_events
		WHERE credential_id = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, credentialID)
	if err != nil {
		return nil, fmt.Errorf("list audit events by credential: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the most recent limit events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT timestamp, action, credential_id, content_address,
		       issuer, decision, reason, request_id, client_ip, platform
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByActions returns the most recent limit events matching any of the
// given actions, newest first.
func (s *Store) ListByActions(ctx context.Context, limit int, actions ...audit.Action) ([]audit.Event, error) {
	names := make([]string, len(actions))
	for i, action := range actions {
		names[i] = string(action)
	}
	names = platformstrings.DedupeAndTrim(names)

	query := `
		SELECT timestamp, action, credential_id, content_address,
		       issuer, decision, reason, request_id, client_ip, platform
		FROM audit_events
		WHERE action = ANY($1)
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(names), limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events by action: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var out []audit.Event
	for rows.Next() {
		var event audit.Event
		var action string
		if err := rows.Scan(
			&event.Timestamp,
			&action,
			&event.CredentialID,
			&event.ContentAddress,
			&event.Issuer,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.ClientIP,
			&event.Platform,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = audit.Action(action)
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
