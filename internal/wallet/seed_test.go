package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestSeedFromMnemonic_KnownVector(t *testing.T) {
	// BIP-39 reference vector: "abandon" x11 + "about", passphrase "TREZOR".
	seed, err := SeedFromMnemonic(abandonAbout, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}

	want, _ := hex.DecodeString("c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04")
	if !bytes.Equal(seed, want) {
		t.Errorf("seed = %x, want %x", seed, want)
	}
}

func TestSeedFromMnemonic_Normalized(t *testing.T) {
	a, err := SeedFromMnemonic(abandonAbout, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	b, err := SeedFromMnemonic("  "+strings.ToUpper(abandonAbout)+"\n", "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic(upper) error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("case and whitespace should not change the seed")
	}
	if len(a) != SeedSize {
		t.Errorf("seed length = %d, want %d", len(a), SeedSize)
	}
}

func TestSeedFromMnemonic_PassphraseChanges(t *testing.T) {
	a, _ := SeedFromMnemonic(abandonAbout, "")
	b, _ := SeedFromMnemonic(abandonAbout, "my passphrase")
	if bytes.Equal(a, b) {
		t.Error("different passphrases should produce different seeds")
	}
}

func TestSeedFromMnemonic_Invalid(t *testing.T) {
	for _, phrase := range []string{"", "not valid words here", abandonAboutChinese()} {
		if _, err := SeedFromMnemonic(phrase, ""); !errors.Is(err, ErrInvalidMnemonic) {
			t.Errorf("SeedFromMnemonic(%q) error = %v, want ErrInvalidMnemonic", phrase, err)
		}
	}
}
