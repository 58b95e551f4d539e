// internal/object/store.go
package object

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"treediff/internal/config"
	"treediff/internal/storage"
)

// Store combines the blob store and tree object persistence behind one
// handle. All read paths are safe for concurrent use.
type Store struct {
	db     *badger.DB
	blobs  *BlobStore
	trees  *storage.BadgerStore
	logger *zap.Logger
}

// New wires a store over an already-open badger instance. blobRoot is the
// directory blob payload files live under.
func New(db *badger.DB, blobRoot string, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	blobs, err := newBlobStore(db, blobRoot, cfg.Cache.Size, cfg.Compression.MinSize, cfg.Compression.Level)
	if err != nil {
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	return &Store{
		db:     db,
		blobs:  blobs,
		trees:  storage.NewBadgerStore(db, "tree"),
		logger: logger,
	}, nil
}

// Open opens (creating if needed) the store layout under root: badger at
// <root>/<store-dir>/db, blob files under <root>/<store-dir>/objects.
func Open(root string, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	storeDir := filepath.Join(root, cfg.Store.Dir)
	dbDir := filepath.Join(storeDir, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening store database: %w", err)
	}

	store, err := New(db, filepath.Join(storeDir, "objects"), cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) DB() *badger.DB {
	return s.db
}

func (s *Store) Blobs() *BlobStore {
	return s.blobs
}

func (s *Store) Close() error {
	s.blobs.Close()
	return s.db.Close()
}
