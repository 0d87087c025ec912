package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/prism/internal/models"
)

// ErrNotFound is returned by stores when a record does not exist
var ErrNotFound = errors.New("not found")

// Cache is a key-value store with per-entry TTL
type Cache interface {
	// Get decodes the cached value into dest; false on miss or expiry
	Get(key string, dest interface{}) bool

	// Set stores a value with the given TTL
	Set(key string, value interface{}, ttl time.Duration) error

	// Delete removes a key
	Delete(key string) error

	// PurgeExpired removes expired entries and returns how many were removed
	PurgeExpired() int

	// Clear removes every entry and returns how many were removed
	Clear() int

	// Stats describes the cache contents
	Stats() models.CacheStats
}

// PortfolioStore persists named position lists
type PortfolioStore interface {
	Get(ctx context.Context, name string) (*models.SavedPortfolio, error)
	Save(ctx context.Context, p *models.SavedPortfolio) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}
