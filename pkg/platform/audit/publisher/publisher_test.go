package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "skillchain/pkg/platform/audit"
	"skillchain/pkg/platform/audit/store/memory"
)

type failingStore struct {
	err error
}

func (s *failingStore) Append(_ context.Context, _ audit.Event) error {
	return s.err
}

func (s *failingStore) ListByCredential(_ context.Context, _ string) ([]audit.Event, error) {
	return nil, nil
}

func (s *failingStore) ListRecent(_ context.Context, _ int) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisher_EmitStoresEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	event := audit.Event{
		Action:       audit.ActionCredentialIssued,
		CredentialID: "SC-1768464000000-1234",
		Issuer:       "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.ListByCredential(context.Background(), "SC-1768464000000-1234")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionCredentialIssued, events[0].Action)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	event := audit.Event{
		Action:       audit.ActionCredentialVerified,
		CredentialID: "SC-1768464000000-2345",
		// Timestamp not set
	}

	before := time.Now()
	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.ListByCredential(context.Background(), "SC-1768464000000-2345")
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.True(t, !events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.True(t, !events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	customTime := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	event := audit.Event{
		Action:       audit.ActionCredentialRevoked,
		CredentialID: "SC-1768464000000-3456",
		Timestamp:    customTime,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.ListByCredential(context.Background(), "SC-1768464000000-3456")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_EmitReturnsError(t *testing.T) {
	storeErr := errors.New("append failed")
	pub := NewPublisher(&failingStore{err: storeErr})

	err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionCredentialIssued})
	require.ErrorIs(t, err, storeErr)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(16))

	for i := 0; i < 5; i++ {
		err := pub.Emit(context.Background(), audit.Event{
			Action:       audit.ActionCredentialVerified,
			CredentialID: "SC-1768464000000-4567",
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByCredential(context.Background(), "SC-1768464000000-4567")
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestPublisher_AsyncFullBufferDropsEvent(t *testing.T) {
	blocked := make(chan struct{})
	store := &blockingStore{release: blocked, consuming: make(chan struct{})}
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer func() {
		close(blocked)
		pub.Close()
	}()

	// First event occupies the worker, second fills the buffer.
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionCredentialIssued}))
	store.waitConsuming()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.ActionCredentialIssued}))

	err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionCredentialIssued})
	require.Error(t, err)
}

// blockingStore blocks Append until released, to back up the async buffer.
type blockingStore struct {
	release   chan struct{}
	consuming chan struct{}
	once      bool
}

func (s *blockingStore) Append(_ context.Context, _ audit.Event) error {
	if !s.once {
		s.once = true
		close(s.consuming)
	}
	<-s.release
	return nil
}

func (s *blockingStore) waitConsuming() {
	select {
	case <-s.consuming:
	case <-time.After(time.Second):
	}
}

func (s *blockingStore) ListByCredential(_ context.Context, _ string) ([]audit.Event, error) {
	return nil, nil
}

func (s *blockingStore) ListRecent(_ context.Context, _ int) ([]audit.Event, error) {
	return nil, nil
}
