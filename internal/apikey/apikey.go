// Package apikey authorizes HTTP ingest requests by bearer API key,
// caching lookups in an LRU with a short per-entry TTL per spec.md
// §4.10/§8.
package apikey

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"
)

// cacheSize bounds the number of distinct API keys kept warm.
const cacheSize = 100

// cacheTTL is how long a cached lookup is trusted before being
// re-fetched from the backing Lookup function.
const cacheTTL = time.Second

// Lookup resolves an API key to its owning project ID, or an error if the
// key is unknown/revoked.
type Lookup func(ctx context.Context, key string) (uuid.UUID, error)

// cacheEntry pairs a resolved project ID with when it was cached; the
// underlying LRU has no native per-entry TTL, so this wrapper re-checks
// insertedAt on every Get.
type cacheEntry struct {
	projectID  uuid.UUID
	insertedAt time.Time
}

// Authorizer resolves and caches API-key → project-ID lookups.
type Authorizer struct {
	lookup Lookup
	cache  *lru.Cache[string, cacheEntry]
}

// New builds an Authorizer backed by lookup.
func New(lookup Lookup) *Authorizer {
	cache, err := lru.New[string, cacheEntry](cacheSize)
	if err != nil {
		panic(err) // cacheSize > 0 is a compile-time constant; New never errors here
	}
	return &Authorizer{lookup: lookup, cache: cache}
}

// Resolve returns the project ID authorized by key, consulting the cache
// first and falling back to the configured Lookup on miss or expiry.
func (a *Authorizer) Resolve(ctx context.Context, key string) (uuid.UUID, error) {
	if key == "" {
		return uuid.Nil, fmt.Errorf("apikey: empty key")
	}

	if entry, ok := a.cache.Get(key); ok && time.Since(entry.insertedAt) < cacheTTL {
		return entry.projectID, nil
	}

	projectID, err := a.lookup(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}

	a.cache.Add(key, cacheEntry{projectID: projectID, insertedAt: time.Now()})
	return projectID, nil
}

// Invalidate drops key from the cache, forcing the next Resolve to hit
// Lookup.
func (a *Authorizer) Invalidate(key string) {
	a.cache.Remove(key)
}
