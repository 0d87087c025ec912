// Package badger provides BadgerHold-based storage for the market data cache
// and saved portfolios.
package badger

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bobmcallan/prism/internal/common"
)

// gcDiscardRatio is the fraction of stale data a value log file must hold
// before garbage collection rewrites it.
const gcDiscardRatio = 0.5

// Store owns the Prism database. Records are msgpack encoded, the same
// encoding the cache uses for its payloads.
type Store struct {
	db     *badgerhold.Store
	path   string
	logger *common.Logger
}

// NewStore opens (creating if needed) the database directory at path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil
	options.Encoder = msgpack.Marshal
	options.Decoder = msgpack.Unmarshal

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	logger.Debug().Str("path", path).Msg("Prism store opened")

	return &Store{
		db:     db,
		path:   path,
		logger: logger,
	}, nil
}

// DB returns the underlying badgerhold store.
func (s *Store) DB() *badgerhold.Store {
	return s.db
}

// Path returns the database directory.
func (s *Store) Path() string {
	return s.path
}

// CollectGarbage reclaims value log space after bulk deletes. It runs GC
// rounds until badger reports nothing left to rewrite.
func (s *Store) CollectGarbage() int {
	if s.db == nil {
		return 0
	}
	rounds := 0
	for {
		err := s.db.Badger().RunValueLogGC(gcDiscardRatio)
		if err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
				s.logger.Debug().Err(err).Msg("Value log GC failed")
			}
			return rounds
		}
		rounds++
	}
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
