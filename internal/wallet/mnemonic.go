// Package wallet implements the wallet core: password-based encryption of
// key material, bilingual BIP-39 mnemonics, BIP-44 Ethereum key derivation,
// and the credential, account and wallet records kept in the store.
package wallet

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/tyler-smith/go-bip39"
	"github.com/tyler-smith/go-bip39/wordlists"
)

// Supported entropy sizes in bits (12 and 24 words).
const (
	EntropyBits128 = 128
	EntropyBits256 = 256

	// DefaultEntropyBits is used by Generate when no size is given.
	DefaultEntropyBits = EntropyBits128
)

// Language identifies a BIP-39 wordlist.
type Language int

const (
	// LanguageAuto tries English first, then Chinese.
	LanguageAuto Language = iota
	LanguageEnglish
	LanguageChinese
)

func (l Language) String() string {
	switch l {
	case LanguageEnglish:
		return "en"
	case LanguageChinese:
		return "zh_cn"
	default:
		return "auto"
	}
}

// ParseLanguage parses "en", "zh", "zh_cn" or "auto".
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return LanguageAuto, nil
	case "en", "english":
		return LanguageEnglish, nil
	case "zh", "zh_cn", "zh-cn", "chinese":
		return LanguageChinese, nil
	}
	return LanguageAuto, fmt.Errorf("unknown mnemonic language %q", s)
}

// go-bip39 keeps its wordlist in package state. Every call that depends on
// it runs under wordlistMu with the wanted list installed, and the English
// list is restored afterwards.
var wordlistMu sync.Mutex

func withWordList(lang Language, fn func() error) error {
	list := wordlists.English
	if lang == LanguageChinese {
		list = wordlists.ChineseSimplified
	}

	wordlistMu.Lock()
	defer wordlistMu.Unlock()
	bip39.SetWordList(list)
	defer bip39.SetWordList(wordlists.English)
	return fn()
}

// NewEntropy returns bits of random entropy. Only 128 and 256 are accepted.
func NewEntropy(bits int) ([]byte, error) {
	if bits != EntropyBits128 && bits != EntropyBits256 {
		return nil, fmt.Errorf("entropy must be %d or %d bits, got %d", EntropyBits128, EntropyBits256, bits)
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return nil, fmt.Errorf("generate entropy: %w", err)
	}
	return entropy, nil
}

// MnemonicFromEntropy encodes entropy as a phrase in lang.
func MnemonicFromEntropy(entropy []byte, lang Language) (string, error) {
	if lang == LanguageAuto {
		lang = LanguageEnglish
	}
	var phrase string
	err := withWordList(lang, func() error {
		var err error
		phrase, err = bip39.NewMnemonic(entropy)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("encode mnemonic: %w", err)
	}
	return phrase, nil
}

// EntropyFromMnemonic decodes a phrase in lang back to its entropy.
func EntropyFromMnemonic(phrase string, lang Language) ([]byte, error) {
	if lang == LanguageAuto {
		lang = LanguageEnglish
	}
	phrase = NormalizeMnemonic(phrase, lang)
	var entropy []byte
	err := withWordList(lang, func() error {
		var err error
		entropy, err = bip39.EntropyFromMnemonic(phrase)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return entropy, nil
}

// ValidateMnemonic reports whether phrase is a valid BIP-39 mnemonic in lang
// (known words, supported length, correct checksum).
func ValidateMnemonic(phrase string, lang Language) bool {
	_, err := EntropyFromMnemonic(phrase, lang)
	return err == nil
}

// NormalizeMnemonic collapses whitespace. English phrases are lower-cased.
// A Chinese phrase typed without separators is split per character, since
// every word of that list is a single character.
func NormalizeMnemonic(phrase string, lang Language) string {
	words := strings.Fields(phrase)
	switch lang {
	case LanguageChinese:
		if len(words) == 1 && utf8.RuneCountInString(words[0]) > 1 && allHan(words[0]) {
			single := words[0]
			words = words[:0]
			for _, r := range single {
				words = append(words, string(r))
			}
		}
	default:
		for i, w := range words {
			words[i] = strings.ToLower(w)
		}
	}
	return strings.Join(words, " ")
}

func allHan(s string) bool {
	for _, r := range s {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}

// DetectLanguage returns the language phrase is valid in. With
// LanguageAuto, English is tried before Chinese.
func DetectLanguage(phrase string, preferred Language) (Language, error) {
	order := []Language{LanguageEnglish, LanguageChinese}
	if preferred == LanguageChinese {
		order = []Language{LanguageChinese, LanguageEnglish}
	}
	for _, lang := range order {
		if ValidateMnemonic(phrase, lang) {
			return lang, nil
		}
	}
	return LanguageAuto, ErrUnrecognizedMnemonicLanguage
}

// ToChinese transcodes a valid English phrase to its Chinese equivalent.
// The conversion goes through entropy, never word by word.
func ToChinese(english string) (string, error) {
	return transcode(english, LanguageEnglish, LanguageChinese)
}

// ToEnglish transcodes a valid Chinese phrase to its English equivalent.
func ToEnglish(chinese string) (string, error) {
	return transcode(chinese, LanguageChinese, LanguageEnglish)
}

func transcode(phrase string, from, to Language) (string, error) {
	entropy, err := EntropyFromMnemonic(phrase, from)
	if err != nil {
		return "", err
	}
	defer clear(entropy)
	return MnemonicFromEntropy(entropy, to)
}

// GeneratedWallet is a freshly generated wallet with both of its phrases.
type GeneratedWallet struct {
	Wallet  *HDWallet
	English string
	Chinese string
}

// encodeMnemonic is swapped in tests to produce inconsistent phrases.
var encodeMnemonic = MnemonicFromEntropy

// Generate creates a new wallet from bits of entropy. Both phrases are
// checked to decode to the same entropy before the wallet is derived.
func Generate(bits int) (*GeneratedWallet, error) {
	if bits == 0 {
		bits = DefaultEntropyBits
	}
	entropy, err := NewEntropy(bits)
	if err != nil {
		return nil, err
	}
	defer clear(entropy)

	english, err := encodeMnemonic(entropy, LanguageEnglish)
	if err != nil {
		return nil, err
	}
	chinese, err := encodeMnemonic(entropy, LanguageChinese)
	if err != nil {
		return nil, err
	}
	if err := checkEquivalent(entropy, english, chinese); err != nil {
		return nil, err
	}

	w, err := walletFromEnglish(english, entropy)
	if err != nil {
		return nil, err
	}
	return &GeneratedWallet{Wallet: w, English: english, Chinese: chinese}, nil
}

func checkEquivalent(entropy []byte, english, chinese string) error {
	en, err := EntropyFromMnemonic(english, LanguageEnglish)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMnemonicConsistency, err)
	}
	defer clear(en)
	zh, err := EntropyFromMnemonic(chinese, LanguageChinese)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMnemonicConsistency, err)
	}
	defer clear(zh)
	if !bytes.Equal(en, entropy) || !bytes.Equal(zh, entropy) {
		return ErrMnemonicConsistency
	}
	return nil
}

// ImportEnglish reconstructs a wallet from an English phrase.
func ImportEnglish(phrase string) (*HDWallet, error) {
	phrase = NormalizeMnemonic(phrase, LanguageEnglish)
	entropy, err := EntropyFromMnemonic(phrase, LanguageEnglish)
	if err != nil {
		return nil, err
	}
	defer clear(entropy)
	return walletFromEnglish(phrase, entropy)
}

// ImportChinese reconstructs a wallet from a Chinese phrase. The key is
// derived from the English equivalent, so both phrases yield one address.
func ImportChinese(phrase string) (*HDWallet, error) {
	entropy, err := EntropyFromMnemonic(phrase, LanguageChinese)
	if err != nil {
		return nil, err
	}
	defer clear(entropy)
	english, err := MnemonicFromEntropy(entropy, LanguageEnglish)
	if err != nil {
		return nil, err
	}
	return walletFromEnglish(english, entropy)
}

// Import detects the phrase language and reconstructs the wallet.
func Import(phrase string, preferred Language) (*HDWallet, Language, error) {
	lang, err := DetectLanguage(phrase, preferred)
	if err != nil {
		return nil, LanguageAuto, err
	}
	var w *HDWallet
	if lang == LanguageChinese {
		w, err = ImportChinese(phrase)
	} else {
		w, err = ImportEnglish(phrase)
	}
	if err != nil {
		return nil, LanguageAuto, err
	}
	return w, lang, nil
}
