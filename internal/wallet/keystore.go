package wallet

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
)

// Keystore holds encrypted wallets in the "wallets" collection, keyed by
// account key-path.
type Keystore struct {
	store *storage.Store
}

// NewKeystore returns a keystore backed by store.
func NewKeystore(store *storage.Store) *Keystore {
	return &Keystore{store: store}
}

// Create stores an encrypted wallet under keyPath. Existing entries are
// never overwritten.
func (ks *Keystore) Create(keyPath string, ew *EncryptedWallet) error {
	if err := ew.Validate(); err != nil {
		return fmt.Errorf("invalid encrypted wallet: %w", err)
	}
	exists, err := ks.Has(keyPath)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("wallet %q already exists", keyPath)
	}
	data, err := json.Marshal(ew)
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	return ks.store.Set(CollectionWallets, keyPath, data)
}

// Get returns the encrypted wallet for keyPath. A missing entry wraps
// storage.ErrNotFound.
func (ks *Keystore) Get(keyPath string) (*EncryptedWallet, error) {
	data, err := ks.store.Get(CollectionWallets, keyPath)
	if err != nil {
		return nil, fmt.Errorf("read wallet %q: %w", keyPath, err)
	}
	var ew EncryptedWallet
	if err := json.Unmarshal(data, &ew); err != nil {
		return nil, fmt.Errorf("parse wallet %q: %w", keyPath, err)
	}
	return &ew, nil
}

// Has reports whether a wallet is stored under keyPath.
func (ks *Keystore) Has(keyPath string) (bool, error) {
	_, err := ks.store.Get(CollectionWallets, keyPath)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the wallet under keyPath.
func (ks *Keystore) Delete(keyPath string) error {
	return ks.store.Delete(CollectionWallets, keyPath)
}

// List returns the key-paths of all stored wallets.
func (ks *Keystore) List() ([]string, error) {
	return ks.store.Keys(CollectionWallets)
}
