package store

import (
	"context"
	"time"

	"skillchain/internal/credential/models"
	pkgerrors "skillchain/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "credential not found")

	// ErrDuplicateID signals an insert that collided with an existing credential id.
	ErrDuplicateID = pkgerrors.New(pkgerrors.CodeConflict, "credential id already exists")
)

// Store persists signed credentials. Implementations must reject duplicate
// credential ids on insert and resolve lookups by either the credential id or
// the content address — callers should not need to know which one they hold.
type Store interface {
	Insert(ctx context.Context, credential models.SignedCredential) error
	FindByKey(ctx context.Context, key string) (models.SignedCredential, error)
	ListByIssuer(ctx context.Context, issuer string) ([]models.SignedCredential, error)
	Revoke(ctx context.Context, id models.CredentialID, at time.Time) error
}
