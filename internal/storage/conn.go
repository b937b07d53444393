package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Opener opens the database backing a Store. Every call must return a
// handle onto the same persistent data.
type Opener func() (DB, error)

var (
	metaVersionKey       = []byte("\x00meta/version")
	metaCollectionPrefix = []byte("\x00meta/collection/")
)

const collectionPrefix = "c/"

// conn is one open, versioned handle onto the database. The set of
// collections is fixed for the lifetime of a conn.
type conn struct {
	db          DB
	version     uint64
	collections map[string]struct{}
}

func (c *conn) has(name string) bool {
	_, ok := c.collections[name]
	return ok
}

func (c *conn) collection(name string) *collection {
	return newCollection(c.db, name)
}

// UpgradeTx is handed to upgrade steps. Collections can only be created
// inside an upgrade.
type UpgradeTx struct {
	existing map[string]struct{}
	created  []string
}

// HasCollection reports whether the collection exists, including ones
// created earlier in this upgrade.
func (tx *UpgradeTx) HasCollection(name string) bool {
	_, ok := tx.existing[name]
	return ok
}

// CreateCollection registers a new collection. Creating an existing
// collection is a no-op.
func (tx *UpgradeTx) CreateCollection(name string) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}
	if tx.HasCollection(name) {
		return nil
	}
	tx.existing[name] = struct{}{}
	tx.created = append(tx.created, name)
	return nil
}

// openConn opens the database at the given schema version. Version 0 opens
// at whatever version is stored. A version above the stored one runs
// upgrade and commits its changes together with the new version number.
func openConn(open Opener, version uint64, upgrade func(*UpgradeTx) error) (*conn, error) {
	db, err := open()
	if err != nil {
		return nil, err
	}

	stored, err := readVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	cols, err := readCollections(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	if version == 0 || version == stored {
		return &conn{db: db, version: stored, collections: cols}, nil
	}
	if version < stored {
		db.Close()
		return nil, fmt.Errorf("open at version %d: stored version is %d", version, stored)
	}

	tx := &UpgradeTx{existing: cols}
	if upgrade != nil {
		if err := upgrade(tx); err != nil {
			db.Close()
			return nil, fmt.Errorf("upgrade to version %d: %w", version, err)
		}
	}

	batch := newBatch(db)
	for _, name := range tx.created {
		if err := batch.Put(collectionMarker(name), []byte{1}); err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := batch.Put(metaVersionKey, encodeVersion(version)); err != nil {
		db.Close()
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		db.Close()
		return nil, fmt.Errorf("commit upgrade to version %d: %w", version, err)
	}

	return &conn{db: db, version: version, collections: tx.existing}, nil
}

func readVersion(db DB) (uint64, error) {
	raw, err := db.Get(metaVersionKey)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("corrupt schema version: %d bytes", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func readCollections(db DB) (map[string]struct{}, error) {
	cols := make(map[string]struct{})
	err := db.ForEach(metaCollectionPrefix, func(key, _ []byte) error {
		cols[string(key[len(metaCollectionPrefix):])] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read collections: %w", err)
	}
	return cols, nil
}

func collectionMarker(name string) []byte {
	out := make([]byte, 0, len(metaCollectionPrefix)+len(name))
	out = append(out, metaCollectionPrefix...)
	return append(out, name...)
}

func encodeVersion(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func validateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("empty collection name")
	}
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}
