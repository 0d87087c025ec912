package badger

import (
	"time"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/models"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// CacheEntry is a msgpack-encoded value with an absolute expiry.
type CacheEntry struct {
	Key       string `badgerhold:"key"`
	Data      []byte
	ExpiresAt time.Time `badgerhold:"index"`
}

// Cache implements interfaces.Cache on top of BadgerHold. Entries survive
// restarts; expired entries are ignored on read and removed by PurgeExpired.
type Cache struct {
	store  *Store
	logger *common.Logger
	now    func() time.Time
}

// NewCache creates a persistent cache in the given store.
func NewCache(store *Store, logger *common.Logger) *Cache {
	return &Cache{store: store, logger: logger, now: time.Now}
}

func (c *Cache) Get(key string, dest interface{}) bool {
	var entry CacheEntry
	if err := c.store.db.Get(key, &entry); err != nil {
		if err != badgerhold.ErrNotFound {
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return false
	}
	if !c.now().Before(entry.ExpiresAt) {
		return false
	}
	if err := msgpack.Unmarshal(entry.Data, dest); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache entry undecodable, dropping")
		_ = c.Delete(key)
		return false
	}
	return true
}

func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	entry := CacheEntry{Key: key, Data: data, ExpiresAt: c.now().Add(ttl)}
	return c.store.db.Upsert(key, &entry)
}

func (c *Cache) Delete(key string) error {
	err := c.store.db.Delete(key, CacheEntry{})
	if err != nil && err != badgerhold.ErrNotFound {
		return err
	}
	return nil
}

func (c *Cache) PurgeExpired() int {
	query := badgerhold.Where("ExpiresAt").Le(c.now())
	n, err := c.store.db.Count(&CacheEntry{}, query)
	if err != nil || n == 0 {
		return 0
	}
	if err := c.store.db.DeleteMatching(&CacheEntry{}, query); err != nil {
		c.logger.Warn().Err(err).Msg("Cache purge failed")
		return 0
	}
	c.store.CollectGarbage()
	return int(n)
}

func (c *Cache) Clear() int {
	var entries []CacheEntry
	if err := c.store.db.Find(&entries, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Cache clear failed")
		return 0
	}
	removed := 0
	for _, e := range entries {
		if err := c.store.db.Delete(e.Key, CacheEntry{}); err == nil {
			removed++
		}
	}
	if removed > 0 {
		c.store.CollectGarbage()
	}
	return removed
}

func (c *Cache) Stats() models.CacheStats {
	stats := models.CacheStats{Backend: "badger"}
	if n, err := c.store.db.Count(&CacheEntry{}, nil); err == nil {
		stats.Entries = int(n)
	}
	if n, err := c.store.db.Count(&CacheEntry{}, badgerhold.Where("ExpiresAt").Le(c.now())); err == nil {
		stats.Expired = int(n)
	}
	return stats
}
