package main

import (
	"context"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
	"github.com/Klingon-tech/klingnet-wallet/internal/wallet"
)

func TestWordsToBits(t *testing.T) {
	tests := []struct {
		words   int
		want    int
		wantErr bool
	}{
		{12, 128, false},
		{24, 256, false},
		{18, 0, true},
	}
	for _, tt := range tests {
		got, err := wordsToBits(tt.words)
		if (err != nil) != tt.wantErr {
			t.Errorf("wordsToBits(%d) err = %v", tt.words, err)
		}
		if got != tt.want {
			t.Errorf("wordsToBits(%d) = %d, want %d", tt.words, got, tt.want)
		}
	}
}

func TestResolveAccount(t *testing.T) {
	store, err := storage.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	a := &app{store: store, wallets: wallet.NewManager(store)}

	if _, err := a.resolveAccount(""); err == nil {
		t.Fatal("expected error with no accounts")
	}

	phrase := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	acct, _, err := a.wallets.Import(context.Background(), phrase, wallet.LanguageEnglish, []byte("Secret123!"), "Main")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	for _, ref := range []string{"", acct.KeyPath, acct.Address.Hex(), " " + acct.Address.Hex() + " "} {
		got, err := a.resolveAccount(ref)
		if err != nil {
			t.Fatalf("resolveAccount(%q): %v", ref, err)
		}
		if got.Address != acct.Address {
			t.Errorf("resolveAccount(%q) = %s", ref, got.Address.Hex())
		}
	}

	if _, err := a.resolveAccount("missing"); !errors.Is(err, wallet.ErrAccountNotFound) {
		t.Errorf("err = %v, want ErrAccountNotFound", err)
	}
	if _, err := a.resolveAccount("0x1234"); err == nil {
		t.Error("expected error for malformed address")
	}
}
