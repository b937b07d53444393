package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/golang/groupcache/singleflight"
)

var (
	// ErrCollectionUpgradeFailed is returned when a missing collection could
	// not be created. The store is left closed and reopens on next use.
	ErrCollectionUpgradeFailed = errors.New("collection upgrade failed")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("store is closed")
)

// State is the connection state of a Store.
type State int

const (
	StateClosed State = iota
	StateUpgrading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateUpgrading:
		return "upgrading"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Store is a key-value store of named collections. Collections are created
// on first use: the connection is closed, reopened one schema version higher
// with the collection added, and the operation retried. Callers never see
// the connection itself, so it can be replaced between any two calls.
type Store struct {
	open Opener

	mu       sync.RWMutex // guards conn, state and shutdown
	conn     *conn
	state    State
	shutdown bool

	upgrades  singleflight.Group
	onUpgrade func(collection string, version uint64)
}

// Option configures a Store.
type Option func(*Store)

// WithUpgradeHook registers fn to run after each collection upgrade.
func WithUpgradeHook(fn func(collection string, version uint64)) Option {
	return func(s *Store) {
		s.onUpgrade = fn
	}
}

// Open opens a Store over the database returned by open.
func Open(open Opener, opts ...Option) (*Store, error) {
	s := &Store{open: open}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connectLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenMemory opens a Store over a fresh in-memory database.
func OpenMemory(opts ...Option) (*Store, error) {
	return Open(NewMemory().Opener(), opts...)
}

// Get returns the value stored under key. Returns ErrNotFound if absent.
func (s *Store) Get(name, key string) ([]byte, error) {
	var val []byte
	err := s.withCollection(name, func(c *collection) error {
		var err error
		val, err = c.get(key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", name, key, err)
	}
	return val, nil
}

// Set stores value under key, replacing any existing value.
func (s *Store) Set(name, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("set %s: empty key", name)
	}
	err := s.withCollection(name, func(c *collection) error {
		return c.put(key, value)
	})
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", name, key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(name, key string) error {
	err := s.withCollection(name, func(c *collection) error {
		return c.delete(key)
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", name, key, err)
	}
	return nil
}

// Clear removes every record in the collection. The collection itself stays.
func (s *Store) Clear(name string) error {
	err := s.withCollection(name, func(c *collection) error {
		return c.clear()
	})
	if err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	return nil
}

// Keys returns all keys of the collection in ascending order.
func (s *Store) Keys(name string) ([]string, error) {
	var keys []string
	err := s.withCollection(name, func(c *collection) error {
		return c.each(func(key string, _ []byte) error {
			keys = append(keys, key)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", name, err)
	}
	return keys, nil
}

// Values returns all values of the collection ordered by key.
func (s *Store) Values(name string) ([][]byte, error) {
	var values [][]byte
	err := s.withCollection(name, func(c *collection) error {
		return c.each(func(_ string, value []byte) error {
			values = append(values, value)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("values %s: %w", name, err)
	}
	return values, nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(name string) (int, error) {
	var n int
	err := s.withCollection(name, func(c *collection) error {
		return c.each(func(string, []byte) error {
			n++
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

// Version returns the schema version of the current connection, or 0 when
// the store is not connected.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return 0
	}
	return s.conn.version
}

// State returns the current connection state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Collections returns the names of all existing collections, sorted.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	names := make([]string, 0, len(s.conn.collections))
	for name := range s.conn.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes the underlying database. Further operations fail with
// ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	s.state = StateClosed
	if s.conn == nil {
		return nil
	}
	err := s.conn.db.Close()
	s.conn = nil
	return err
}

// withCollection runs fn against the named collection, creating the
// collection first if needed. fn runs under the read lock, so the
// connection cannot be swapped out underneath it.
func (s *Store) withCollection(name string, fn func(c *collection) error) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}
	for attempt := 0; attempt < 2; attempt++ {
		s.mu.RLock()
		if s.shutdown {
			s.mu.RUnlock()
			return ErrStoreClosed
		}
		if s.state == StateReady && s.conn.has(name) {
			err := fn(s.conn.collection(name))
			s.mu.RUnlock()
			return err
		}
		s.mu.RUnlock()

		if err := s.ensureCollection(name); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: collection %q missing after upgrade", ErrCollectionUpgradeFailed, name)
}

// ensureCollection collapses concurrent first uses of a collection into a
// single upgrade.
func (s *Store) ensureCollection(name string) error {
	_, err := s.upgrades.Do(name, func() (interface{}, error) {
		return nil, s.createCollection(name)
	})
	return err
}

func (s *Store) createCollection(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return ErrStoreClosed
	}
	if s.state == StateClosed {
		if err := s.connectLocked(); err != nil {
			return fmt.Errorf("%w: reopen: %w", ErrCollectionUpgradeFailed, err)
		}
	}
	// Another caller may have created it while we waited for the lock.
	if s.conn.has(name) {
		return nil
	}

	from := s.conn.version
	to := from + 1
	s.state = StateUpgrading
	if err := s.conn.db.Close(); err != nil {
		klog.Storage.Warn().Err(err).Msg("Close before upgrade failed")
	}
	s.conn = nil

	c, err := openConn(s.open, to, func(tx *UpgradeTx) error {
		return tx.CreateCollection(name)
	})
	if err != nil {
		s.state = StateClosed
		klog.Storage.Error().Err(err).
			Str("collection", name).
			Uint64("version", to).
			Msg("Collection upgrade failed")
		return fmt.Errorf("%w: create %q at version %d: %w", ErrCollectionUpgradeFailed, name, to, err)
	}

	s.conn = c
	s.state = StateReady
	klog.Storage.Debug().
		Str("collection", name).
		Uint64("version", c.version).
		Msg("Collection created")
	if s.onUpgrade != nil {
		s.onUpgrade(name, c.version)
	}
	return nil
}

func (s *Store) connectLocked() error {
	c, err := openConn(s.open, 0, nil)
	if err != nil {
		s.state = StateClosed
		return err
	}
	s.conn = c
	s.state = StateReady
	return nil
}
