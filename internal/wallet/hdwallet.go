package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
)

// WalletTypeHD is the wallet type recorded in account wallet references.
const WalletTypeHD = "HDNodeWallet"

// MnemonicInfo is the phrase a wallet was derived from.
type MnemonicInfo struct {
	Phrase  string `json:"phrase"`
	Locale  string `json:"locale"`
	Entropy string `json:"entropy"`
}

// HDWallet is the serialized key material of one account. It only exists
// in plaintext inside the encryption and decryption calls and while a
// signer is in use.
type HDWallet struct {
	Address    common.Address `json:"address"`
	PublicKey  hexutil.Bytes  `json:"publicKey"`
	PrivateKey hexutil.Bytes  `json:"privateKey"`
	ChainCode  hexutil.Bytes  `json:"chainCode"`
	Path       string         `json:"path"`
	Mnemonic   *MnemonicInfo  `json:"mnemonic,omitempty"`
}

func newHDWallet(key *HDKey, path, english string, entropy []byte) (*HDWallet, error) {
	addr, err := key.Address()
	if err != nil {
		return nil, err
	}
	priv := key.PrivateKeyBytes()
	if priv == nil {
		return nil, fmt.Errorf("derived key has no private part")
	}
	return &HDWallet{
		Address:    addr,
		PublicKey:  append([]byte(nil), key.PublicKeyBytes()...),
		PrivateKey: append([]byte(nil), priv...),
		ChainCode:  append([]byte(nil), key.ChainCode()...),
		Path:       path,
		Mnemonic: &MnemonicInfo{
			Phrase:  english,
			Locale:  LanguageEnglish.String(),
			Entropy: "0x" + hex.EncodeToString(entropy),
		},
	}, nil
}

// Signer returns the signing key. The key's address must match the wallet's
// recorded address, otherwise the record is corrupt.
func (w *HDWallet) Signer() (*crypto.PrivateKey, error) {
	key, err := crypto.PrivateKeyFromBytes(w.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptAccount, err)
	}
	if key.Address() != w.Address {
		key.Zero()
		return nil, fmt.Errorf("%w: key does not match address %s", ErrCorruptAccount, w.Address.Hex())
	}
	return key, nil
}

// Zero wipes the private key, chain code and mnemonic.
func (w *HDWallet) Zero() {
	if w == nil {
		return
	}
	clear(w.PrivateKey)
	clear(w.ChainCode)
	w.PrivateKey = nil
	w.ChainCode = nil
	w.Mnemonic = nil
}
