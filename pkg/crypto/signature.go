package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common"
)

// SignatureSize is the length of a recoverable signature: R(32) | S(32) | V(1).
const SignatureSize = 65

// Signer signs 32-byte digests on behalf of an account.
type Signer interface {
	// Sign produces a recoverable [R || S || V] signature with V in {0, 1}.
	Sign(hash []byte) ([]byte, error)
	// Address returns the account address of the signing key.
	Address() common.Address
}

// PrivateKey wraps a secp256k1 private key for recoverable ECDSA signing.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero")
	}
	return &PrivateKey{key: key}, nil
}

// Sign produces a recoverable signature over a 32-byte hash.
func (pk *PrivateKey) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	// Compact format is [27+recid | R | S] for uncompressed keys.
	compact := ecdsa.SignCompact(pk.key, hash, false)
	sig := make([]byte, SignatureSize)
	copy(sig, compact[1:])
	sig[64] = compact[0] - 27
	return sig, nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// Address returns the account address derived from the public key.
func (pk *PrivateKey) Address() common.Address {
	return pubKeyAddress(pk.key.PubKey())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// RecoverAddress returns the address that produced a recoverable signature
// over hash.
func RecoverAddress(hash, sig []byte) (common.Address, error) {
	if len(hash) != 32 {
		return common.Address{}, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	if len(sig) != SignatureSize {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(sig))
	}
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id %d", sig[64])
	}
	compact := make([]byte, SignatureSize)
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return pubKeyAddress(pub), nil
}

// VerifySignature reports whether sig over hash was produced by addr.
// Returns false on any error.
func VerifySignature(hash, sig []byte, addr common.Address) bool {
	got, err := RecoverAddress(hash, sig)
	if err != nil {
		return false
	}
	return got == addr
}

// ContractSignature returns a copy of sig with V shifted to 27/28, the form
// ecrecover-based contracts expect.
func ContractSignature(sig []byte) []byte {
	out := make([]byte, len(sig))
	copy(out, sig)
	if len(out) == SignatureSize && out[64] < 27 {
		out[64] += 27
	}
	return out
}
