package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
)

// FirstKeyPath is the key-path of the first account ever created.
const FirstKeyPath = "0"

// WalletRef points an account at its encrypted wallet.
type WalletRef struct {
	Type    string `json:"type"`
	KeyPath string `json:"keyPath"`
}

// Account is the public record of one wallet. The address never changes
// after creation.
type Account struct {
	KeyPath     string         `json:"keyPath"`
	WalletRef   WalletRef      `json:"walletRef"`
	Address     common.Address `json:"address"`
	DisplayName string         `json:"displayName"`
}

// Registry stores accounts in the "accounts" collection.
type Registry struct {
	store *storage.Store

	// mu serializes key-path allocation.
	mu         sync.Mutex
	newKeyPath func() string
}

// NewRegistry returns a registry backed by store.
func NewRegistry(store *storage.Store) *Registry {
	return &Registry{store: store, newKeyPath: uuid.NewString}
}

// Create allocates a key-path and stores a new account for address. The
// first account gets FirstKeyPath, later ones a random UUID. An empty
// displayName becomes "Account N".
func (r *Registry) Create(address common.Address, displayName string) (*Account, error) {
	if address == (common.Address{}) {
		return nil, fmt.Errorf("account address is zero")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.store.Count(CollectionAccounts)
	if err != nil {
		return nil, err
	}

	keyPath := FirstKeyPath
	if n > 0 {
		keyPath, err = r.freshKeyPath()
		if err != nil {
			return nil, err
		}
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = fmt.Sprintf("Account %d", n+1)
	}

	acct := &Account{
		KeyPath:     keyPath,
		WalletRef:   WalletRef{Type: WalletTypeHD, KeyPath: keyPath},
		Address:     address,
		DisplayName: displayName,
	}
	if err := r.put(acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func (r *Registry) freshKeyPath() (string, error) {
	for range 8 {
		kp := r.newKeyPath()
		if _, err := r.store.Get(CollectionAccounts, kp); errors.Is(err, storage.ErrNotFound) {
			return kp, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not allocate a free key-path")
}

// Get returns the account at keyPath, or ErrAccountNotFound.
func (r *Registry) Get(keyPath string) (*Account, error) {
	data, err := r.store.Get(CollectionAccounts, keyPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrAccountNotFound, keyPath)
	}
	if err != nil {
		return nil, err
	}
	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("%w: parse account %q: %v", ErrCorruptAccount, keyPath, err)
	}
	return &acct, nil
}

// FindByAddress returns the account holding address, or ErrAccountNotFound.
func (r *Registry) FindByAddress(address common.Address) (*Account, error) {
	accounts, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.Address == address {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address.Hex())
}

// List returns all accounts, the first account first and the rest by name.
func (r *Registry) List() ([]*Account, error) {
	values, err := r.store.Values(CollectionAccounts)
	if err != nil {
		return nil, err
	}
	accounts := make([]*Account, 0, len(values))
	for _, v := range values {
		var acct Account
		if err := json.Unmarshal(v, &acct); err != nil {
			return nil, fmt.Errorf("%w: parse account: %v", ErrCorruptAccount, err)
		}
		accounts = append(accounts, &acct)
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].KeyPath == FirstKeyPath || accounts[j].KeyPath == FirstKeyPath {
			return accounts[i].KeyPath == FirstKeyPath
		}
		return accounts[i].DisplayName < accounts[j].DisplayName
	})
	return accounts, nil
}

// Rename changes the display name of an account.
func (r *Registry) Rename(keyPath, displayName string) (*Account, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("display name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acct, err := r.Get(keyPath)
	if err != nil {
		return nil, err
	}
	acct.DisplayName = displayName
	if err := r.put(acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Delete removes an account record.
func (r *Registry) Delete(keyPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(CollectionAccounts, keyPath)
}

func (r *Registry) put(acct *Account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	return r.store.Set(CollectionAccounts, acct.KeyPath, data)
}
