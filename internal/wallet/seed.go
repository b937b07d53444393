package wallet

import "github.com/tyler-smith/go-bip39"

// SeedSize is the length of a derived seed in bytes (512 bits).
const SeedSize = 64

// SeedFromMnemonic derives a 512-bit seed from an English mnemonic and
// optional passphrase using PBKDF2-SHA512 as specified in BIP-39. Wallets
// created here always use an empty passphrase.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	mnemonic = NormalizeMnemonic(mnemonic, LanguageEnglish)
	if !ValidateMnemonic(mnemonic, LanguageEnglish) {
		return nil, ErrInvalidMnemonic
	}
	return bip39.NewSeed(mnemonic, passphrase), nil
}

// walletFromEnglish derives the default account key of an English phrase.
func walletFromEnglish(english string, entropy []byte) (*HDWallet, error) {
	seed, err := SeedFromMnemonic(english, "")
	if err != nil {
		return nil, err
	}
	defer clear(seed)

	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	key, err := master.Derive(DefaultPath)
	if err != nil {
		return nil, err
	}
	return newHDWallet(key, DefaultPath, english, entropy)
}
