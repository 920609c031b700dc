package client

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

type cacheEntry struct {
	value []byte
	at    time.Time
}

// Cache is a TTL response cache with caller-controlled lifetimes. Keys are
// hashed with xxhash so arbitrarily long URLs stay cheap to store. It is
// constructed explicitly and injected into the Client; there is no package
// level instance.
type Cache struct {
	mu      sync.Mutex
	entries map[uint64]cacheEntry
	now     func() time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[uint64]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached value for key if it is younger than ttl. A zero or
// negative ttl disables reads, so callers that need fresh data can share the
// cache without consulting it.
func (c *Cache) Get(key string, ttl time.Duration) ([]byte, bool) {
	if c == nil || ttl <= 0 {
		return nil, false
	}
	h := xxhash.Sum64String(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[h]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.at) > ttl {
		delete(c.entries, h)
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key with the current timestamp.
func (c *Cache) Set(key string, value []byte) {
	if c == nil {
		return
	}
	h := xxhash.Sum64String(key)
	c.mu.Lock()
	c.entries[h] = cacheEntry{value: value, at: c.now()}
	c.mu.Unlock()
}

// Invalidate removes one key.
func (c *Cache) Invalidate(key string) {
	if c == nil {
		return
	}
	h := xxhash.Sum64String(key)
	c.mu.Lock()
	delete(c.entries, h)
	c.mu.Unlock()
}

// Purge removes every entry.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[uint64]cacheEntry)
	c.mu.Unlock()
}
