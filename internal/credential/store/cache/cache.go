// Package cache layers a Redis read-through cache over a credential store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"skillchain/internal/credential/metrics"
	"skillchain/internal/credential/models"
	"skillchain/internal/credential/store"
)

const keyPrefix = "credential:"

// CachedStore wraps a credential store with TTL-based Redis caching.
//
// The underlying store stays authoritative. Entries are cached under both the
// credential id and the content address so either lookup key hits, and both
// entries are dropped on revocation so a stale Valid verdict is never served
// past the cache TTL.
type CachedStore struct {
	inner    store.Store
	client   *redis.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

// New constructs a Redis-backed cached store. metrics may be nil.
func New(inner store.Store, client *redis.Client, cacheTTL time.Duration, metrics *metrics.Metrics) *CachedStore {
	return &CachedStore{
		inner:    inner,
		client:   client,
		cacheTTL: cacheTTL,
		metrics:  metrics,
	}
}

// Insert stores the credential and warms the cache.
//
// Cache writes are best-effort; a Redis failure never fails the insert.
func (c *CachedStore) Insert(ctx context.Context, credential models.SignedCredential) error {
	if err := c.inner.Insert(ctx, credential); err != nil {
		return err
	}
	c.save(ctx, credential)
	return nil
}

// FindByKey retrieves a credential by id or content address, consulting the
// cache first.
//
// A Redis failure degrades to a direct store lookup.
func (c *CachedStore) FindByKey(ctx context.Context, key string) (models.SignedCredential, error) {
	data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err == nil {
		var credential models.SignedCredential
		if err := json.Unmarshal(data, &credential); err == nil {
			c.recordHit()
			return credential, nil
		}
		// Corrupt entry; fall through to the store and rewrite it.
	} else if errors.Is(err, redis.Nil) {
		c.recordMiss()
	}

	credential, err := c.inner.FindByKey(ctx, key)
	if err != nil {
		return models.SignedCredential{}, err
	}
	c.save(ctx, credential)
	return credential, nil
}

// ListByIssuer delegates to the underlying store. Issuer listings are not
// cached; they change on every issuance.
func (c *CachedStore) ListByIssuer(ctx context.Context, issuer string) ([]models.SignedCredential, error) {
	return c.inner.ListByIssuer(ctx, issuer)
}

// Revoke revokes the credential in the underlying store and invalidates both
// cache entries.
func (c *CachedStore) Revoke(ctx context.Context, id models.CredentialID, at time.Time) error {
	if err := c.inner.Revoke(ctx, id, at); err != nil {
		return err
	}
	return c.invalidate(ctx, id)
}

// save writes the credential to Redis under both lookup keys.
func (c *CachedStore) save(ctx context.Context, credential models.SignedCredential) {
	payload, err := json.Marshal(credential)
	if err != nil {
		return
	}
	pipe := c.client.Pipeline()
	pipe.Set(ctx, cacheKey(credential.Record.ID.String()), payload, c.cacheTTL)
	pipe.Set(ctx, cacheKey(credential.ContentAddress), payload, c.cacheTTL)
	_, _ = pipe.Exec(ctx)
}

// invalidate drops both cache entries for the credential.
//
// Unlike save, invalidation failures are surfaced: leaving a revoked
// credential cached as Valid is worse than failing the request.
func (c *CachedStore) invalidate(ctx context.Context, id models.CredentialID) error {
	keys := []string{cacheKey(id.String())}

	credential, err := c.inner.FindByKey(ctx, id.String())
	if err == nil && credential.ContentAddress != "" {
		keys = append(keys, cacheKey(credential.ContentAddress))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate credential cache: %w", err)
	}
	return nil
}

func (c *CachedStore) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
}

func (c *CachedStore) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}
}

func cacheKey(key string) string {
	return keyPrefix + key
}
