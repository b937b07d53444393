package wallet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tyler-smith/go-bip32"

	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
)

// DefaultPath is the only path wallets are derived at.
const DefaultPath = "m/44'/60'/0'/0/0"

// AccountPath returns the Ethereum BIP-44 path of the index-th external
// address of account.
func AccountPath(account, index uint32) string {
	return fmt.Sprintf("m/44'/60'/%d'/0/%d", account, index)
}

// ParsePath parses a derivation path such as "m/44'/60'/0'/0/0" into child
// indices. Hardened segments end in ' or h.
func ParsePath(path string) ([]uint32, error) {
	segs := strings.Split(strings.TrimSpace(path), "/")
	if len(segs) == 0 || segs[0] != "m" {
		return nil, fmt.Errorf("derivation path %q: must start with m", path)
	}
	indices := make([]uint32, 0, len(segs)-1)
	for _, seg := range segs[1:] {
		hardened := strings.HasSuffix(seg, "'") || strings.HasSuffix(seg, "h")
		if hardened {
			seg = seg[:len(seg)-1]
		}
		n, err := strconv.ParseUint(seg, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("derivation path %q: bad segment %q", path, seg)
		}
		idx := uint32(n)
		if hardened {
			idx += bip32.FirstHardenedChild
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// HDKey is a BIP-32 extended private key.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates the master key of a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// Derive walks path from k. k is expected to be a master key.
func (k *HDKey) Derive(path string) (*HDKey, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	cur := k.key
	for _, idx := range indices {
		if cur, err = cur.NewChildKey(idx); err != nil {
			return nil, fmt.Errorf("derive %s: %w", path, err)
		}
	}
	return &HDKey{key: cur}, nil
}

// PrivateKeyBytes returns the raw 32-byte private key.
func (k *HDKey) PrivateKeyBytes() []byte {
	// bip32 stores private keys as 33 bytes with a leading zero.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() []byte {
	return k.key.PublicKey().Key
}

// ChainCode returns the 32-byte BIP-32 chain code.
func (k *HDKey) ChainCode() []byte {
	return k.key.ChainCode
}

// Depth is the number of derivation steps from the master key.
func (k *HDKey) Depth() uint8 {
	return k.key.Depth
}

// Signer returns the signing key of k.
func (k *HDKey) Signer() (*crypto.PrivateKey, error) {
	return crypto.PrivateKeyFromBytes(k.PrivateKeyBytes())
}

// Address returns the Ethereum address of k.
func (k *HDKey) Address() (common.Address, error) {
	return crypto.AddressFromPubKey(k.PublicKeyBytes())
}
