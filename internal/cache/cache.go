// Package cache provides the in-memory query result cache. Query results are
// pure functions of the loaded tables and the input sets, so caching is safe
// as long as entries are purged on data reload.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
)

// MemoryCache is a bounded LRU with per-entry TTL for query results.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.QueryResult]
}

// NewMemoryCache creates a cache holding at most maxItems entries, each
// expiring after ttl. A non-positive maxItems disables the size bound.
func NewMemoryCache(maxItems int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.QueryResult](maxItems, nil, ttl),
	}
}

// Get returns the cached result for key, or nil on a miss. Callers must not
// mutate the returned value.
func (c *MemoryCache) Get(key string) *domain.QueryResult {
	if result, ok := c.lru.Get(key); ok {
		return result
	}
	return nil
}

// Set stores a result under key.
func (c *MemoryCache) Set(key string, result *domain.QueryResult) {
	c.lru.Add(key, result)
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry. Called after a data reload so no stale result
// computed against the previous tables can be served.
func (c *MemoryCache) Purge() {
	c.lru.Purge()
}
