package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Encryption constants. They are not stored per record; changing any of
// them makes existing records undecryptable.
const (
	KDFIterations = 250_000
	KeySize       = 32 // AES-256
	SaltSize      = 16
	IVSize        = 12
)

// EncryptedWallet is a password-encrypted record. All fields are base64.
type EncryptedWallet struct {
	Cipher string `json:"cipher"`
	Salt   string `json:"salt"`
	IV     string `json:"iv"`
}

// Validate checks that the record is well formed without decrypting it.
func (ew *EncryptedWallet) Validate() error {
	_, _, _, err := ew.decode()
	return err
}

func (ew *EncryptedWallet) decode() (ciphertext, salt, iv []byte, err error) {
	if ew == nil {
		return nil, nil, nil, fmt.Errorf("nil record")
	}
	if ciphertext, err = base64.StdEncoding.DecodeString(ew.Cipher); err != nil {
		return nil, nil, nil, fmt.Errorf("decode cipher: %w", err)
	}
	if salt, err = base64.StdEncoding.DecodeString(ew.Salt); err != nil {
		return nil, nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	if iv, err = base64.StdEncoding.DecodeString(ew.IV); err != nil {
		return nil, nil, nil, fmt.Errorf("decode iv: %w", err)
	}
	if len(salt) != SaltSize {
		return nil, nil, nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}
	if len(iv) != IVSize {
		return nil, nil, nil, fmt.Errorf("iv must be %d bytes, got %d", IVSize, len(iv))
	}
	return ciphertext, salt, iv, nil
}

// deriveKey uses PBKDF2-HMAC-SHA256 to derive a 32-byte AES key.
func deriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, KDFIterations, KeySize, sha256.New)
}

// Encrypt serializes v to JSON and encrypts it with password using
// PBKDF2-HMAC-SHA256 and AES-256-GCM. Salt and IV are fresh for every call.
func Encrypt(v any, password []byte) (*EncryptedWallet, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode wallet: %w", err)
	}
	defer clear(plaintext)

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	key := deriveKey(password, salt)
	defer clear(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, iv, plaintext, nil)

	return &EncryptedWallet{
		Cipher: base64.StdEncoding.EncodeToString(ciphertext),
		Salt:   base64.StdEncoding.EncodeToString(salt),
		IV:     base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// Decrypt opens ew with password and decodes the JSON plaintext into v.
// Every failure, including a wrong password, is reported as
// ErrDecryptionFailed and v is left untouched.
func Decrypt(ew *EncryptedWallet, password []byte, v any) error {
	ciphertext, salt, iv, err := ew.decode()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	key := deriveKey(password, salt)
	defer clear(key)

	gcm, err := newGCM(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return ErrDecryptionFailed
	}
	defer clear(plaintext)

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: decode wallet: %v", ErrDecryptionFailed, err)
	}
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
