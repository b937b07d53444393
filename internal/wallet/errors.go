package wallet

import "errors"

var (
	// ErrInvalidPassword is the fast UI-gating failure: the password does
	// not match the stored credential hash.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrNoCredential is returned when no password has been set yet.
	ErrNoCredential = errors.New("no password set")

	// ErrDecryptionFailed is returned when an encrypted wallet cannot be
	// opened: wrong password, tampered record or malformed data.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidMnemonic is returned for phrases with unknown words or a bad
	// checksum.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrUnrecognizedMnemonicLanguage is returned when a phrase is valid in
	// none of the supported wordlists.
	ErrUnrecognizedMnemonicLanguage = errors.New("unrecognized mnemonic language")

	// ErrMnemonicConsistency is returned when the English and Chinese
	// mnemonics of a new wallet do not encode the same entropy. Wallet
	// creation is aborted.
	ErrMnemonicConsistency = errors.New("mnemonic consistency violation")

	// ErrAccountNotFound is returned for unknown key-paths.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when importing an address that already
	// has an account.
	ErrAccountExists = errors.New("account already exists")

	// ErrCorruptAccount is returned when an account record and its wallet
	// blob do not belong together, or one of them is missing.
	ErrCorruptAccount = errors.New("corrupt account")
)
