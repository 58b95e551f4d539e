package object

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"

	apperrors "treediff/internal/errors"
)

const blobMetaPrefix = "blob:"

// BlobStore provides deduplicated content-addressed blob storage: sha256 ids,
// two-level fan-out directories, zstd for payloads above minCompress, metadata
// in badger and an LRU of decompressed content in front of disk reads.
type BlobStore struct {
	root        string
	db          *badger.DB
	cache       *lru.Cache[string, []byte]
	enc         *zstd.Encoder
	dec         *zstd.Decoder
	minCompress int
}

func newBlobStore(db *badger.DB, root string, cacheSize, minCompress, level int) (*BlobStore, error) {
	if root == "" {
		return nil, apperrors.Validation("blob root directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}

	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating blob cache: %w", err)
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &BlobStore{
		root:        root,
		db:          db,
		cache:       cache,
		enc:         enc,
		dec:         dec,
		minCompress: minCompress,
	}, nil
}

func (s *BlobStore) blobPath(id string) string {
	return filepath.Join(s.root, id[:2], id[2:])
}

// Put stores content and returns its sha256 id. Storing the same bytes twice
// is a no-op.
func (s *BlobStore) Put(content []byte) (string, error) {
	if content == nil {
		content = []byte{}
	}

	id := hashBytes(content)

	exists, err := s.Exists(id)
	if err != nil {
		return "", fmt.Errorf("checking blob existence: %w", err)
	}
	if exists {
		return id, nil
	}

	payload := content
	compressed := false
	if len(content) >= s.minCompress {
		encoded := s.enc.EncodeAll(content, nil)
		if len(encoded) < len(content) {
			payload = encoded
			compressed = true
		}
	}

	path := s.blobPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating blob directory: %w", err)
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return "", fmt.Errorf("writing blob file: %w", err)
	}

	meta := BlobMeta{
		Size:       int64(len(content)),
		Compressed: compressed,
		CreatedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshaling blob metadata: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(blobMetaPrefix+id), data)
	})
	if err != nil {
		return "", fmt.Errorf("storing blob metadata: %w", err)
	}

	s.cache.Add(id, content)
	return id, nil
}

// Get returns the raw blob bytes for id, decompressing as needed.
func (s *BlobStore) Get(id string) ([]byte, error) {
	if len(id) < 3 {
		return nil, apperrors.Validation("invalid blob id %q", id)
	}

	if content, ok := s.cache.Get(id); ok {
		return content, nil
	}

	var meta BlobMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(blobMetaPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, apperrors.NotFound("blob %s not found", id)
	} else if err != nil {
		return nil, fmt.Errorf("reading blob metadata: %w", err)
	}

	payload, err := os.ReadFile(s.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("blob %s content file missing", id)
		}
		return nil, fmt.Errorf("reading blob file: %w", err)
	}

	content := payload
	if meta.Compressed {
		content, err = s.dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing blob %s: %w", id, err)
		}
	}

	s.cache.Add(id, content)
	return content, nil
}

// Exists checks whether a blob id is known to the store.
func (s *BlobStore) Exists(id string) (bool, error) {
	if id == "" {
		return false, nil
	}

	if _, ok := s.cache.Get(id); ok {
		return true, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(blobMetaPrefix + id))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// Close releases the zstd encoder/decoder resources.
func (s *BlobStore) Close() {
	s.enc.Close()
	s.dec.Close()
}
