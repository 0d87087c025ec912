package storage

import (
	"fmt"

	"github.com/bobmcallan/prism/internal/common"
	"github.com/bobmcallan/prism/internal/interfaces"
	"github.com/bobmcallan/prism/internal/storage/badger"
)

// Manager owns the on-disk store and exposes the cache and portfolio store.
type Manager struct {
	store      *badger.Store
	cache      interfaces.Cache
	portfolios interfaces.PortfolioStore
	logger     *common.Logger
}

// NewManager opens storage according to config. An empty storage path runs
// fully in memory: the cache falls back to the memory backend and saved
// portfolios are unavailable.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	m := &Manager{logger: logger}

	backend := config.Cache.Backend
	if config.Storage.Path != "" {
		store, err := badger.NewStore(logger, config.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		m.store = store
		m.portfolios = badger.NewPortfolioStorage(store, logger)
	} else if backend == BackendBadger || backend == "" {
		backend = BackendMemory
	}

	cache, err := NewCache(logger, backend, m.store)
	if err != nil {
		m.Close()
		return nil, err
	}
	m.cache = cache

	logger.Info().
		Str("path", config.Storage.Path).
		Str("cache", backend).
		Bool("portfolios", m.portfolios != nil).
		Msg("Storage manager initialized")

	return m, nil
}

// Cache returns the market data cache.
func (m *Manager) Cache() interfaces.Cache {
	return m.cache
}

// PortfolioStore returns the saved portfolio store, or nil when running in memory.
func (m *Manager) PortfolioStore() interfaces.PortfolioStore {
	return m.portfolios
}

// Close releases the underlying database.
func (m *Manager) Close() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}
