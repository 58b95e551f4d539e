// internal/storage/badger_store.go
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	apperrors "treediff/internal/errors"
)

// Record is anything storable under a stable ID.
type Record interface {
	GetID() string
}

// BadgerStore provides prefix-scoped JSON persistence on top of badger.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	return &BadgerStore{
		db:     db,
		prefix: prefix,
	}
}

func (s *BadgerStore) makeKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, id))
}

// Save writes the record, overwriting any previous version.
func (s *BadgerStore) Save(record Record) error {
	if record.GetID() == "" {
		return apperrors.Validation("record ID cannot be empty")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.makeKey(record.GetID()), data)
	})
}

func (s *BadgerStore) Get(id string, record Record) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.makeKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, record)
		})
	})

	if err == badger.ErrKeyNotFound {
		return apperrors.NotFound("%s %s not found", s.prefix, id)
	}
	return err
}

func (s *BadgerStore) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(s.makeKey(id))
		if err == badger.ErrKeyNotFound {
			return apperrors.NotFound("%s %s not found", s.prefix, id)
		} else if err != nil {
			return err
		}
		return txn.Delete(s.makeKey(id))
	})
}

// List unmarshals every record under the prefix into results, which must be a
// pointer to a slice.
func (s *BadgerStore) List(results interface{}) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(s.prefix + ":")
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		var values []json.RawMessage
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				values = append(values, append([]byte(nil), val...))
				return nil
			})
			if err != nil {
				return err
			}
		}

		data, err := json.Marshal(values)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, results)
	})

	if err != nil {
		return fmt.Errorf("listing %s records: %w", s.prefix, err)
	}
	return nil
}
