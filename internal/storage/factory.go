// Package storage wires the cache and portfolio stores from configuration.
package storage

import (
	"fmt"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/storage/badger"
	"github.com/bobmcallan/prism/internal/storage/memcache"
)

// Backend type constants.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// NewCache creates a cache for the configured backend. The badger backend
// requires an open store; memory needs none.
func NewCache(logger *common.Logger, backend string, store *badger.Store) (interfaces.Cache, error) {
	if backend == "" {
		backend = BackendBadger
	}

	switch backend {
	case BackendBadger:
		if store == nil {
			return nil, fmt.Errorf("badger cache requires a storage path")
		}
		return badger.NewCache(store, logger), nil

	case BackendMemory:
		return memcache.New(), nil

	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: badger, memory)", backend)
	}
}
