// Package respcache caches generated response payloads keyed by
// (language, normalized utterance). Entries expire after a TTL; at most
// TTL staleness is guaranteed, never an exact expiry instant.
package respcache

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL matches the documented five-minute default.
const DefaultTTL = 5 * time.Minute

// Cache is the backend-agnostic contract the orchestrator consumes.
// Payloads are opaque bytes so a hit replays the cached response
// byte-for-byte.
type Cache interface {
	Get(ctx context.Context, language, utterance string) ([]byte, bool)
	Set(ctx context.Context, language, utterance string, payload []byte) error
	Len() int
}

func cacheKey(language, utterance string) string {
	return language + ":" + utterance
}

type memoryEntry struct {
	payload    []byte
	insertedAt time.Time
}

// MemoryCache is the in-process implementation. Expiry is lazy: entries
// are checked on read and pruned opportunistically on write, avoiding a
// timer per insert.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration

	now func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, language, utterance string) ([]byte, bool) {
	key := cacheKey(language, utterance)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.insertedAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a fresh Set may have raced in.
		if cur, ok := c.entries[key]; ok && c.now().Sub(cur.insertedAt) > c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.payload, true
}

func (c *MemoryCache) Set(_ context.Context, language, utterance string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Opportunistic sweep keeps the map from accumulating dead entries
	// for keys that are never read again.
	cutoff := c.now().Add(-c.ttl)
	for k, e := range c.entries {
		if e.insertedAt.Before(cutoff) {
			delete(c.entries, k)
		}
	}

	c.entries[cacheKey(language, utterance)] = memoryEntry{
		payload:    payload,
		insertedAt: c.now(),
	}
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
