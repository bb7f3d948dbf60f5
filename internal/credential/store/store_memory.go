package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"skillchain/internal/credential/models"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
// It is safe for concurrent access but does not persist across process restarts.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[string]models.SignedCredential
	byAddress   map[string]string
}

// NewInMemoryStore constructs an empty in-memory credential store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		credentials: make(map[string]models.SignedCredential),
		byAddress:   make(map[string]string),
	}
}

// Insert stores a signed credential, rejecting duplicate ids.
func (s *InMemoryStore) Insert(_ context.Context, credential models.SignedCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := credential.Record.ID.String()
	if _, exists := s.credentials[id]; exists {
		return ErrDuplicateID
	}
	s.credentials[id] = credential
	s.byAddress[credential.ContentAddress] = id
	return nil
}

// FindByKey retrieves a signed credential by id or content address.
func (s *InMemoryStore) FindByKey(_ context.Context, key string) (models.SignedCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if credential, ok := s.credentials[key]; ok {
		return credential, nil
	}
	if id, ok := s.byAddress[key]; ok {
		return s.credentials[id], nil
	}
	return models.SignedCredential{}, ErrNotFound
}

// ListByIssuer returns all credentials issued by the given identity, most
// recently stored first.
func (s *InMemoryStore) ListByIssuer(_ context.Context, issuer string) ([]models.SignedCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SignedCredential
	for _, credential := range s.credentials {
		if credential.Record.Issuer == issuer {
			out = append(out, credential)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StoredAt.After(out[j].StoredAt)
	})
	return out, nil
}

// Remove deletes a credential outright. Tests use it to simulate a store
// that no longer holds the record.
func (s *InMemoryStore) Remove(id models.CredentialID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	credential, ok := s.credentials[id.String()]
	if !ok {
		return
	}
	delete(s.credentials, id.String())
	delete(s.byAddress, credential.ContentAddress)
}

// Revoke flips the revoked flag on a stored credential.
func (s *InMemoryStore) Revoke(_ context.Context, id models.CredentialID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	credential, ok := s.credentials[id.String()]
	if !ok {
		return ErrNotFound
	}
	credential.Record.Revoked = true
	revokedAt := at
	credential.RevokedAt = &revokedAt
	s.credentials[id.String()] = credential
	return nil
}
