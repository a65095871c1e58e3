// ABOUTME: Embedded BadgerDB storage backend without a charm server
// ABOUTME: Used by the badger driver and as an isolated store in tests

package charm

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"
)

// Local is a key-value backend on a local BadgerDB directory.
type Local struct {
	db *badger.DB
}

// OpenLocal opens (creating if needed) a BadgerDB in dir.
func OpenLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Local{db: db}, nil
}

// OpenMemory opens a BadgerDB that lives only in memory.
func OpenMemory() (*Local, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger: %w", err)
	}
	return &Local{db: db}, nil
}

func (l *Local) Get(key string) ([]byte, bool, error) {
	var result []byte
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

func (l *Local) Set(key string, value []byte) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (l *Local) Delete(key string) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (l *Local) KeysWithPrefix(prefix string) ([]string, error) {
	var keys []string
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// Reset drops every key.
func (l *Local) Reset() error {
	return l.db.DropAll()
}

func (l *Local) Close() error {
	return l.db.Close()
}
