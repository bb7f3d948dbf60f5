//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"skillchain/internal/credential/models"
	"skillchain/internal/credential/store"
	"skillchain/internal/credential/store/cache"
	"skillchain/pkg/testutil/containers"
)

type CachedStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	inner *store.InMemoryStore
	store *cache.CachedStore
}

func TestCachedStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedStoreSuite))
}

func (s *CachedStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *CachedStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.redis.FlushAll(ctx))
	s.inner = store.NewInMemoryStore()
	s.store = cache.New(s.inner, s.redis.Client, 5*time.Minute, nil)
}

func (s *CachedStoreSuite) signedCredential(id, address string) models.SignedCredential {
	return models.SignedCredential{
		Record: models.CredentialRecord{
			ID:         models.CredentialID(id),
			Title:      "Network Engineering",
			Issuer:     "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
			Recipient:  "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
			IssuedDate: "2026-02-01",
			Field:      "Engineering",
			Timestamp:  1769904000000,
		},
		ContentAddress: address,
		Signature:      "0xsigned",
		StoredAt:       time.Now().UTC(),
	}
}

func (s *CachedStoreSuite) TestInsertWarmsBothKeys() {
	ctx := context.Background()
	cred := s.signedCredential("SC-1769904000000-1111", "bafybeicachetestone")

	s.Require().NoError(s.store.Insert(ctx, cred))

	for _, key := range []string{"credential:SC-1769904000000-1111", "credential:bafybeicachetestone"} {
		exists, err := s.redis.Client.Exists(ctx, key).Result()
		s.Require().NoError(err)
		s.Equal(int64(1), exists, "expected cache entry for %s", key)
	}
}

func (s *CachedStoreSuite) TestFindServedFromCache() {
	ctx := context.Background()
	cred := s.signedCredential("SC-1769904000000-2222", "bafybeicachetesttwo")
	s.Require().NoError(s.store.Insert(ctx, cred))

	// Remove from the authoritative store; a cached read must still succeed.
	s.inner.Remove(cred.Record.ID)

	found, err := s.store.FindByKey(ctx, cred.Record.ID.String())
	s.Require().NoError(err)
	s.Equal(cred.Record, found.Record)

	byAddress, err := s.store.FindByKey(ctx, cred.ContentAddress)
	s.Require().NoError(err)
	s.Equal(cred.Record.ID, byAddress.Record.ID)
}

func (s *CachedStoreSuite) TestMissFallsThroughAndPopulates() {
	ctx := context.Background()
	cred := s.signedCredential("SC-1769904000000-3333", "bafybeicachetestthree")

	// Insert directly into the inner store so the cache starts cold.
	s.Require().NoError(s.inner.Insert(ctx, cred))

	found, err := s.store.FindByKey(ctx, cred.Record.ID.String())
	s.Require().NoError(err)
	s.Equal(cred.Record, found.Record)

	exists, err := s.redis.Client.Exists(ctx, "credential:SC-1769904000000-3333").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)
}

func (s *CachedStoreSuite) TestUnknownKey() {
	ctx := context.Background()

	_, err := s.store.FindByKey(ctx, "SC-9999999999999-0003")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *CachedStoreSuite) TestRevokeInvalidatesBothKeys() {
	ctx := context.Background()
	cred := s.signedCredential("SC-1769904000000-4444", "bafybeicachetestfour")
	s.Require().NoError(s.store.Insert(ctx, cred))

	s.Require().NoError(s.store.Revoke(ctx, cred.Record.ID, time.Now().UTC()))

	for _, key := range []string{"credential:SC-1769904000000-4444", "credential:bafybeicachetestfour"} {
		exists, err := s.redis.Client.Exists(ctx, key).Result()
		s.Require().NoError(err)
		s.Equal(int64(0), exists, "expected %s to be invalidated", key)
	}

	// The next read repopulates with the revoked state.
	found, err := s.store.FindByKey(ctx, cred.Record.ID.String())
	s.Require().NoError(err)
	s.True(found.Record.Revoked)
	s.NotNil(found.RevokedAt)
}

func (s *CachedStoreSuite) TestCorruptEntryFallsBackToStore() {
	ctx := context.Background()
	cred := s.signedCredential("SC-1769904000000-5555", "bafybeicachetestfive")
	s.Require().NoError(s.store.Insert(ctx, cred))

	err := s.redis.Client.Set(ctx, "credential:SC-1769904000000-5555", "{not json", 5*time.Minute).Err()
	s.Require().NoError(err)

	found, err := s.store.FindByKey(ctx, cred.Record.ID.String())
	s.Require().NoError(err)
	s.Equal(cred.Record, found.Record)
}
