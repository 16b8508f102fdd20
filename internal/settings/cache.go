package settings

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache is the collaborator interface for cache-aside reads. Implementations
// are best-effort: the service treats every error as a miss and never fails
// a request on cache trouble.
//
// Flush clears every entry the implementation holds for this service; for a
// shared backend this means everything under the configured key prefix.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
}

// TTLCache is an in-process Cache backed by ttlcache. Entries expire after
// the TTL passed to Set; hits do not extend expiry, so a stale entry lives
// at most one TTL past the write that invalidated it.
type TTLCache struct {
	cache *ttlcache.Cache[string, string]
}

// NewTTLCache creates a started TTLCache with the given default TTL.
func NewTTLCache(ttl time.Duration) *TTLCache {
	c := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()
	return &TTLCache{cache: c}
}

// Get returns the cached value for key, if present and unexpired.
func (c *TTLCache) Get(_ context.Context, key string) (string, bool, error) {
	item := c.cache.Get(key)
	if item == nil {
		return "", false, nil
	}
	return item.Value(), true, nil
}

// Set stores value under key with the given TTL. A non-positive TTL falls
// back to the cache's default.
func (c *TTLCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	c.cache.Set(key, value, ttl)
	return nil
}

// Delete removes the entry for key, if any.
func (c *TTLCache) Delete(_ context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

// Flush removes every entry. The cache is private to one service instance,
// so this is equivalent to a prefix-scoped clear.
func (c *TTLCache) Flush(_ context.Context) error {
	c.cache.DeleteAll()
	return nil
}

// Stop halts the background expiration goroutine.
func (c *TTLCache) Stop() {
	c.cache.Stop()
}

// NopCache is a Cache that stores nothing. Used when caching is disabled
// and by short-lived CLI processes where an in-process cache has no value.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (NopCache) Set(context.Context, string, string, time.Duration) error { return nil }

func (NopCache) Delete(context.Context, string) error { return nil }

func (NopCache) Flush(context.Context) error { return nil }
