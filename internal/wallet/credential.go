package wallet

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
)

// Store collections owned by this package.
const (
	CollectionCredential = "credential"
	CollectionAccounts   = "accounts"
	CollectionWallets    = "wallets"
)

const (
	credentialKey = "user"

	// HashAlgorithm names the password hash stored in the credential.
	HashAlgorithm = "SHA-256"
)

// Credential is the singleton password record used to gate access before
// any decryption is attempted. It is not a security boundary: only
// decrypting a wallet proves the password.
type Credential struct {
	PasswordHash string    `json:"passwordHash"`
	Algorithm    string    `json:"algorithm"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Credentials manages the credential record.
type Credentials struct {
	store *storage.Store
	now   func() time.Time
}

// NewCredentials returns a Credentials backed by store.
func NewCredentials(store *storage.Store) *Credentials {
	return &Credentials{store: store, now: time.Now}
}

// HashPassword returns base64(SHA-256(password)).
func HashPassword(password []byte) string {
	sum := sha256.Sum256(password)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Get returns the stored credential, or ErrNoCredential.
func (c *Credentials) Get() (*Credential, error) {
	raw, err := c.store.Get(CollectionCredential, credentialKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, err
	}
	var cred Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &cred, nil
}

// Exists reports whether a password has been set.
func (c *Credentials) Exists() (bool, error) {
	_, err := c.Get()
	if errors.Is(err, ErrNoCredential) {
		return false, nil
	}
	return err == nil, err
}

// Set stores the hash of password, keeping the original creation time.
func (c *Credentials) Set(password []byte) error {
	if len(password) == 0 {
		return fmt.Errorf("empty password")
	}
	now := c.now().UTC()
	cred := Credential{
		PasswordHash: HashPassword(password),
		Algorithm:    HashAlgorithm,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if old, err := c.Get(); err == nil {
		cred.CreatedAt = old.CreatedAt
	} else if !errors.Is(err, ErrNoCredential) {
		return err
	}

	raw, err := json.Marshal(&cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	return c.store.Set(CollectionCredential, credentialKey, raw)
}

// Verify compares password against the stored hash.
func (c *Credentials) Verify(password []byte) error {
	cred, err := c.Get()
	if err != nil {
		return err
	}
	if cred.Algorithm != HashAlgorithm {
		return fmt.Errorf("unsupported credential algorithm %q", cred.Algorithm)
	}
	want := []byte(cred.PasswordHash)
	got := []byte(HashPassword(password))
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return ErrInvalidPassword
	}
	return nil
}
