// Package crypto provides the signing and hashing primitives of the wallet.
package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Keccak256 computes the Keccak-256 hash of the concatenated inputs.
func Keccak256(data ...[]byte) common.Hash {
	return ethcrypto.Keccak256Hash(data...)
}

// AddressFromPubKey derives an account address from a compressed or
// uncompressed public key.
// Address = Keccak256(uncompressed_pubkey[1:])[12:].
func AddressFromPubKey(pubKey []byte) (common.Address, error) {
	pub, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("parse public key: %w", err)
	}
	return pubKeyAddress(pub), nil
}

func pubKeyAddress(pub *secp256k1.PublicKey) common.Address {
	h := Keccak256(pub.SerializeUncompressed()[1:])
	return common.BytesToAddress(h[12:])
}
