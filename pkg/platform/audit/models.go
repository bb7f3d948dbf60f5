// Package audit captures the issuance, verification and revocation trail of
// credentials.
package audit

import (
	"context"
	"time"
)

// Action identifies the kind of event being recorded.
type Action string

const (
	ActionCredentialIssued   Action = "credential_issued"
	ActionCredentialVerified Action = "credential_verified"
	ActionCredentialRevoked  Action = "credential_revoked"
	ActionVerificationFailed Action = "verification_failed"
	ActionStoreUnavailable   Action = "store_unavailable"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	Action         Action    `json:"action"`
	CredentialID   string    `json:"credentialId,omitempty"`
	ContentAddress string    `json:"contentAddress,omitempty"`
	Issuer         string    `json:"issuer,omitempty"`
	// Decision carries the verification verdict for verify events.
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	// Request correlation fields.
	RequestID string `json:"requestId,omitempty"`
	ClientIP  string `json:"clientIp,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCredential(ctx context.Context, credentialID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Emitter is the interface domain services use to record events.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// MultiStore fans an append out to several stores. Reads are served by the
// first store.
type MultiStore struct {
	stores []Store
}

// NewMultiStore combines stores; at least one is required for reads.
func NewMultiStore(stores ...Store) *MultiStore {
	return &MultiStore{stores: stores}
}

// Append writes the event to every store, returning the first error.
func (m *MultiStore) Append(ctx context.Context, event Event) error {
	var firstErr error
	for _, s := range m.stores {
		if err := s.Append(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListByCredential lists events for a credential from the primary store.
func (m *MultiStore) ListByCredential(ctx context.Context, credentialID string) ([]Event, error) {
	return m.stores[0].ListByCredential(ctx, credentialID)
}

// ListRecent lists the most recent events from the primary store.
func (m *MultiStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	return m.stores[0].ListRecent(ctx, limit)
}
