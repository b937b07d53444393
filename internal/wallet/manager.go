package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/metrics"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
)

// Manager creates, imports and unlocks wallets. It owns the credential,
// account and wallet collections.
type Manager struct {
	Accounts    *Registry
	Keystore    *Keystore
	Credentials *Credentials

	metrics *metrics.Metrics

	// mu serializes additions so the first password is set exactly once
	// and rollbacks never race a concurrent add.
	mu sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMetrics records decryption failures on m.
func WithMetrics(m *metrics.Metrics) ManagerOption {
	return func(mgr *Manager) { mgr.metrics = m }
}

// NewManager returns a Manager backed by store.
func NewManager(store *storage.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		Accounts:    NewRegistry(store),
		Keystore:    NewKeystore(store),
		Credentials: NewCredentials(store),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Created is the result of Create. The phrases are shown to the user once
// and never stored in plaintext.
type Created struct {
	Account *Account
	English string
	Chinese string
}

// Create generates a new wallet with bits of entropy (0 means the default),
// encrypts it under password and registers an account for it.
func (m *Manager) Create(ctx context.Context, password []byte, displayName string, bits int) (*Created, error) {
	gen, err := Generate(bits)
	if err != nil {
		return nil, err
	}
	defer gen.Wallet.Zero()

	acct, err := m.add(ctx, gen.Wallet, password, displayName)
	if err != nil {
		return nil, err
	}
	return &Created{Account: acct, English: gen.English, Chinese: gen.Chinese}, nil
}

// Import restores a wallet from a phrase in either language and registers
// an account for it. Importing an address that already has an account
// returns ErrAccountExists.
func (m *Manager) Import(ctx context.Context, phrase string, lang Language, password []byte, displayName string) (*Account, Language, error) {
	w, detected, err := Import(phrase, lang)
	if err != nil {
		return nil, LanguageAuto, err
	}
	defer w.Zero()

	acct, err := m.add(ctx, w, password, displayName)
	if err != nil {
		return nil, LanguageAuto, err
	}
	return acct, detected, nil
}

// add encrypts w and registers its account in parallel. Either both the
// account and the wallet are stored or neither is.
func (m *Manager) add(ctx context.Context, w *HDWallet, password []byte, displayName string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hasCredential, err := m.Credentials.Exists()
	if err != nil {
		return nil, err
	}
	if hasCredential {
		if err := m.Credentials.Verify(password); err != nil {
			return nil, err
		}
	} else if len(password) == 0 {
		return nil, fmt.Errorf("empty password")
	}

	if existing, err := m.Accounts.FindByAddress(w.Address); err == nil {
		return nil, fmt.Errorf("%w: %s as %q", ErrAccountExists, w.Address.Hex(), existing.KeyPath)
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	var (
		ew   *EncryptedWallet
		acct *Account
		g    errgroup.Group
	)
	g.Go(func() error {
		var err error
		ew, err = Encrypt(w, password)
		return err
	})
	g.Go(func() error {
		var err error
		acct, err = m.Accounts.Create(w.Address, displayName)
		return err
	})
	if err := g.Wait(); err != nil {
		m.rollback(acct, false)
		return nil, err
	}

	if err := m.Keystore.Create(acct.KeyPath, ew); err != nil {
		m.rollback(acct, false)
		return nil, fmt.Errorf("store wallet: %w", err)
	}

	if !hasCredential {
		if err := m.Credentials.Set(password); err != nil {
			m.rollback(acct, true)
			return nil, fmt.Errorf("set password: %w", err)
		}
	}

	klog.Wallet.Info().
		Str("key_path", acct.KeyPath).
		Str("address", acct.Address.Hex()).
		Msg("Account added")
	return acct, nil
}

func (m *Manager) rollback(acct *Account, walletStored bool) {
	if acct == nil {
		return
	}
	if walletStored {
		if err := m.Keystore.Delete(acct.KeyPath); err != nil {
			klog.Wallet.Error().Err(err).Str("key_path", acct.KeyPath).Msg("Rollback: delete wallet failed")
		}
	}
	if err := m.Accounts.Delete(acct.KeyPath); err != nil {
		klog.Wallet.Error().Err(err).Str("key_path", acct.KeyPath).Msg("Rollback: delete account failed")
	}
}

// VerifyPassword checks password against the stored credential.
func (m *Manager) VerifyPassword(password []byte) error {
	return m.Credentials.Verify(password)
}

// Unlock decrypts the wallet of the account at keyPath. The caller must
// Zero the returned wallet.
func (m *Manager) Unlock(keyPath string, password []byte) (*HDWallet, error) {
	acct, err := m.Accounts.Get(keyPath)
	if errors.Is(err, ErrAccountNotFound) {
		if stored, herr := m.Keystore.Has(keyPath); herr == nil && stored {
			return nil, fmt.Errorf("%w: no account for wallet %q", ErrCorruptAccount, keyPath)
		}
	}
	if err != nil {
		return nil, err
	}
	ew, err := m.Keystore.Get(acct.WalletRef.KeyPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: no wallet for %q", ErrCorruptAccount, keyPath)
	}
	if err != nil {
		return nil, err
	}

	var w HDWallet
	if err := Decrypt(ew, password, &w); err != nil {
		m.metrics.DecryptFailure()
		return nil, err
	}
	if w.Address != acct.Address {
		w.Zero()
		return nil, fmt.Errorf("%w: wallet address %s does not match account %s",
			ErrCorruptAccount, w.Address.Hex(), acct.Address.Hex())
	}
	return &w, nil
}

// WithSigner unlocks the account at keyPath and calls fn with its signing
// key. The key material is wiped when fn returns.
func (m *Manager) WithSigner(keyPath string, password []byte, fn func(*crypto.PrivateKey) error) error {
	w, err := m.Unlock(keyPath, password)
	if err != nil {
		return err
	}
	defer w.Zero()

	key, err := w.Signer()
	if err != nil {
		return err
	}
	defer key.Zero()
	return fn(key)
}

// Mnemonics returns both phrases of the account at keyPath.
func (m *Manager) Mnemonics(keyPath string, password []byte) (english, chinese string, err error) {
	w, err := m.Unlock(keyPath, password)
	if err != nil {
		return "", "", err
	}
	defer w.Zero()

	if w.Mnemonic == nil || w.Mnemonic.Phrase == "" {
		return "", "", fmt.Errorf("wallet %q has no mnemonic", keyPath)
	}
	english = w.Mnemonic.Phrase
	chinese, err = ToChinese(english)
	if err != nil {
		return "", "", err
	}
	return english, chinese, nil
}

// Remove deletes an account and its wallet after checking password
// against the wallet itself.
func (m *Manager) Remove(keyPath string, password []byte) error {
	w, err := m.Unlock(keyPath, password)
	if err != nil {
		return err
	}
	w.Zero()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Keystore.Delete(keyPath); err != nil {
		return err
	}
	return m.Accounts.Delete(keyPath)
}

// Orphans returns key-paths that have an account without a wallet or a
// wallet without an account.
func (m *Manager) Orphans() ([]string, error) {
	accounts, err := m.Accounts.List()
	if err != nil {
		return nil, err
	}
	wallets, err := m.Keystore.List()
	if err != nil {
		return nil, err
	}

	stored := make(map[string]bool, len(wallets))
	for _, kp := range wallets {
		stored[kp] = true
	}
	var orphans []string
	for _, a := range accounts {
		if !stored[a.WalletRef.KeyPath] {
			orphans = append(orphans, a.KeyPath)
		}
		delete(stored, a.WalletRef.KeyPath)
	}
	for _, kp := range wallets {
		if stored[kp] {
			orphans = append(orphans, kp)
		}
	}
	return orphans, nil
}
