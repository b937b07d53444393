package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// ErrLocked is returned when another process holds the store directory.
var ErrLocked = errors.New("wallet store is locked by another process")

// The wallet store is small and written rarely; every write is synced.
const badgerValueLogFileSize = 16 << 20

// BadgerDB is a DB on a Badger directory.
type BadgerDB struct {
	db *badger.DB
}

// NewBadger opens the Badger database in dir, creating it if needed.
func NewBadger(dir string) (*BadgerDB, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithValueLogFileSize(badgerValueLogFileSize).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		if isLockErr(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrLocked, dir, err)
		}
		return nil, fmt.Errorf("open wallet store %s: %w", dir, err)
	}
	return &BadgerDB{db: db}, nil
}

func isLockErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Cannot acquire directory lock") ||
		strings.Contains(msg, "resource temporarily unavailable")
}

// BadgerOpener returns an Opener for the Badger database in dir.
func BadgerOpener(dir string) Opener {
	return func() (DB, error) {
		return NewBadger(dir)
	}
}

func (b *BadgerDB) Get(key []byte) (val []byte, err error) {
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return val, nil
}

func (b *BadgerDB) Has(key []byte) (bool, error) {
	_, err := b.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (b *BadgerDB) Put(key, value []byte) error {
	return b.update("put", func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *BadgerDB) Delete(key []byte) error {
	return b.update("delete", func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *BadgerDB) update(op string, fn func(*badger.Txn) error) error {
	if err := b.db.Update(fn); err != nil {
		return fmt.Errorf("badger %s: %w", op, err)
	}
	return nil
}

// ForEach visits the keys under prefix in key order.
func (b *BadgerDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   32,
			Prefix:         prefix,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// NewBatch returns a batch applied in one Badger transaction, so a commit
// is all or nothing.
func (b *BadgerDB) NewBatch() Batch {
	return &badgerBatch{db: b}
}

func (b *BadgerDB) Close() error {
	return b.db.Close()
}

type badgerBatch struct {
	db *BadgerDB
	batchOps
}

func (bb *badgerBatch) Commit() error {
	return bb.db.update("batch commit", func(txn *badger.Txn) error {
		return bb.flush(txn.Set, txn.Delete)
	})
}
