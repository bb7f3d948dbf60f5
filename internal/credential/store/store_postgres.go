package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"skillchain/internal/credential/models"
	"skillchain/pkg/platform/sentinel"
)

// Schema creates the credentials table. Applied by migrations in deployment
// and by integration tests directly.
const Schema = `
CREATE TABLE IF NOT EXISTS credentials (
	id              TEXT PRIMARY KEY,
	content_address TEXT NOT NULL UNIQUE,
	record          JSONB NOT NULL,
	signature       TEXT NOT NULL,
	issuer          TEXT NOT NULL,
	stored_at       TIMESTAMPTZ NOT NULL,
	revoked         BOOLEAN NOT NULL DEFAULT FALSE,
	revoked_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS credentials_issuer_idx ON credentials (issuer, stored_at DESC);
`

const uniqueViolation = "23505"

// PostgresStore persists signed credentials in PostgreSQL.
//
// The record column holds the credential exactly as issued and is never
// updated; revocation is the revoked/revoked_at columns, so the stored
// record bytes stay immutable.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert stores a signed credential, rejecting duplicate ids.
func (s *PostgresStore) Insert(ctx context.Context, credential models.SignedCredential) error {
	recordBytes, err := json.Marshal(credential.Record)
	if err != nil {
		return fmt.Errorf("marshal credential record: %w", err)
	}

	query := `
		INSERT INTO credentials (id, content_address, record, signature, issuer, stored_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		credential.Record.ID.String(),
		credential.ContentAddress,
		recordBytes,
		credential.Signature,
		credential.Record.Issuer,
		credential.StoredAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert credential: %w", sentinel.ErrUnavailable)
	}
	return nil
}

// FindByKey retrieves a signed credential by id or content address.
func (s *PostgresStore) FindByKey(ctx context.Context, key string) (models.SignedCredential, error) {
	query := `
		SELECT record, content_address, signature, stored_at, revoked, revoked_at
		FROM credentials
		WHERE id = $1 OR content_address = $1
	`
	row := s.db.QueryRowContext(ctx, query, key)

	var (
		recordBytes []byte
		credential  models.SignedCredential
		revoked     bool
		revokedAt   sql.NullTime
	)
	err := row.Scan(&recordBytes, &credential.ContentAddress, &credential.Signature,
		&credential.StoredAt, &revoked, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SignedCredential{}, ErrNotFound
		}
		return models.SignedCredential{}, fmt.Errorf("find credential by key: %w", sentinel.ErrUnavailable)
	}

	if err := json.Unmarshal(recordBytes, &credential.Record); err != nil {
		return models.SignedCredential{}, fmt.Errorf("unmarshal credential record: %w", err)
	}
	credential.Record.Revoked = revoked
	if revokedAt.Valid {
		at := revokedAt.Time
		credential.RevokedAt = &at
	}
	return credential, nil
}

// ListByIssuer returns all credentials issued by the given identity, most
// recently stored first.
func (s *PostgresStore) ListByIssuer(ctx context.Context, issuer string) ([]models.SignedCredential, error) {
	query := `
		SELECT record, content_address, signature, stored_at, revoked, revoked_at
		FROM credentials
		WHERE issuer = $1
		ORDER BY stored_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, issuer)
	if err != nil {
		return nil, fmt.Errorf("list credentials by issuer: %w", sentinel.ErrUnavailable)
	}
	defer rows.Close()

	var out []models.SignedCredential
	for rows.Next() {
		var (
			recordBytes []byte
			credential  models.SignedCredential
			revoked     bool
			revokedAt   sql.NullTime
		)
		if err := rows.Scan(&recordBytes, &credential.ContentAddress, &credential.Signature,
			&credential.StoredAt, &revoked, &revokedAt); err != nil {
			return nil, fmt.Errorf("scan credential row: %w", err)
		}
		if err := json.Unmarshal(recordBytes, &credential.Record); err != nil {
			return nil, fmt.Errorf("unmarshal credential record: %w", err)
		}
		credential.Record.Revoked = revoked
		if revokedAt.Valid {
			at := revokedAt.Time
			credential.RevokedAt = &at
		}
		out = append(out, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credential rows: %w", err)
	}
	return out, nil
}

// Revoke flips the revoked flag on a stored credential without touching the
// stored record bytes.
func (s *PostgresStore) Revoke(ctx context.Context, id models.CredentialID, at time.Time) error {
	query := `
		UPDATE credentials
		SET revoked = TRUE, revoked_at = $2
		WHERE id = $1 AND NOT revoked
	`
	result, err := s.db.ExecContext(ctx, query, id.String(), at)
	if err != nil {
		return fmt.Errorf("revoke credential: %w", sentinel.ErrUnavailable)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke credential rows affected: %w", err)
	}
	if affected == 0 {
		// Either the id does not exist or it is already revoked; disambiguate.
		if _, findErr := s.FindByKey(ctx, id.String()); findErr != nil {
			return findErr
		}
	}
	return nil
}
