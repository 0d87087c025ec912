// Package memcache provides an in-process TTL cache for market data.
package memcache

import (
	"sync"
	"time"

	"github.com/bobmcallan/prism/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache implements interfaces.Cache in memory. Values are stored msgpack
// encoded so callers never share mutable state with the cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry), now: time.Now}
}

// NewWithClock creates an empty cache using the supplied clock.
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	c.now = now
	return c
}

func (c *Cache) Get(key string, dest interface{}) bool {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return false
	}
	return msgpack.Unmarshal(e.data, dest) == nil
}

func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = entry{data: data, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *Cache) PurgeExpired() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	return n
}

func (c *Cache) Stats() models.CacheStats {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := models.CacheStats{Backend: "memory", Entries: len(c.entries)}
	for _, e := range c.entries {
		if !now.Before(e.expiresAt) {
			stats.Expired++
		}
	}
	return stats
}
