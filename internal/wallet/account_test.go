package wallet

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func addr(n int) common.Address {
	return common.BigToAddress(big.NewInt(int64(n)))
}

func TestRegistry_Create(t *testing.T) {
	r := NewRegistry(testStore(t))

	first, err := r.Create(addr(1), "")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if first.KeyPath != FirstKeyPath {
		t.Errorf("first key-path = %q, want %q", first.KeyPath, FirstKeyPath)
	}
	if first.DisplayName != "Account 1" {
		t.Errorf("display name = %q, want %q", first.DisplayName, "Account 1")
	}
	if first.WalletRef.KeyPath != first.KeyPath || first.WalletRef.Type != WalletTypeHD {
		t.Errorf("wallet ref = %+v", first.WalletRef)
	}

	second, err := r.Create(addr(2), "Savings")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if second.KeyPath == FirstKeyPath || second.KeyPath == "" {
		t.Errorf("second key-path = %q", second.KeyPath)
	}

	got, err := r.Get(second.KeyPath)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Address != addr(2) || got.DisplayName != "Savings" {
		t.Errorf("Get() = %+v", got)
	}
}

func TestRegistry_ZeroAddress(t *testing.T) {
	r := NewRegistry(testStore(t))
	if _, err := r.Create(common.Address{}, ""); err == nil {
		t.Error("Create(zero address) should fail")
	}
}

func TestRegistry_ConcurrentCreateUniqueKeyPaths(t *testing.T) {
	r := NewRegistry(testStore(t))

	const n = 20
	var wg sync.WaitGroup
	paths := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acct, err := r.Create(addr(i+1), fmt.Sprintf("acct-%d", i))
			errs[i] = err
			if acct != nil {
				paths[i] = acct.KeyPath
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	firsts := 0
	for i, p := range paths {
		if errs[i] != nil {
			t.Fatalf("Create() error: %v", errs[i])
		}
		if seen[p] {
			t.Errorf("duplicate key-path %q", p)
		}
		seen[p] = true
		if p == FirstKeyPath {
			firsts++
		}
	}
	if firsts != 1 {
		t.Errorf("%d accounts got key-path %q, want 1", firsts, FirstKeyPath)
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry(testStore(t))
	if _, err := r.Get("nope"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Get() error = %v, want ErrAccountNotFound", err)
	}
	if _, err := r.FindByAddress(addr(9)); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("FindByAddress() error = %v, want ErrAccountNotFound", err)
	}
}

func TestRegistry_RenameKeepsAddress(t *testing.T) {
	r := NewRegistry(testStore(t))
	acct, _ := r.Create(addr(1), "Old")

	renamed, err := r.Rename(acct.KeyPath, "  New  ")
	if err != nil {
		t.Fatalf("Rename() error: %v", err)
	}
	if renamed.DisplayName != "New" {
		t.Errorf("display name = %q, want %q", renamed.DisplayName, "New")
	}
	if renamed.Address != acct.Address {
		t.Error("Rename changed the address")
	}

	if _, err := r.Rename(acct.KeyPath, " "); err == nil {
		t.Error("Rename(empty) should fail")
	}
	if _, err := r.Rename("missing", "x"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Rename(missing) error = %v, want ErrAccountNotFound", err)
	}
}

func TestRegistry_ListOrder(t *testing.T) {
	r := NewRegistry(testStore(t))
	r.Create(addr(1), "Zulu")
	r.Create(addr(2), "Bravo")
	r.Create(addr(3), "Alpha")

	list, err := r.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	var names []string
	for _, a := range list {
		names = append(names, a.DisplayName)
	}
	want := []string{"Zulu", "Alpha", "Bravo"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("List() names = %v, want %v", names, want)
	}
}

func TestRegistry_Delete(t *testing.T) {
	r := NewRegistry(testStore(t))
	acct, _ := r.Create(addr(1), "")
	if err := r.Delete(acct.KeyPath); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := r.Get(acct.KeyPath); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Get() after Delete error = %v", err)
	}
}
