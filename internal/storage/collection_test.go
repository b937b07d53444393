package storage

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

// plainDB hides the Batcher implementation of the wrapped DB.
type plainDB struct{ DB }

func TestCollection_Isolation(t *testing.T) {
	db := NewMemory()
	accounts := newCollection(db, "accounts")
	wallets := newCollection(db, "wallets")

	if err := accounts.put("0", []byte("account")); err != nil {
		t.Fatal(err)
	}
	if err := wallets.put("0", []byte("wallet")); err != nil {
		t.Fatal(err)
	}

	got, err := accounts.get("0")
	if err != nil || string(got) != "account" {
		t.Errorf("accounts.get = %q, %v", got, err)
	}
	raw, err := db.Get([]byte("c/wallets/0"))
	if err != nil || string(raw) != "wallet" {
		t.Errorf("raw wallet record = %q, %v", raw, err)
	}

	if err := accounts.delete("0"); err != nil {
		t.Fatal(err)
	}
	if _, err := accounts.get("0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted record err = %v", err)
	}
	if _, err := wallets.get("0"); err != nil {
		t.Errorf("delete leaked into other collection: %v", err)
	}
}

func TestCollection_EachSorted(t *testing.T) {
	db := NewMemory()
	c := newCollection(db, "pending")
	// A collection whose name extends "pending" must not be visited.
	other := newCollection(db, "pending2")

	for _, k := range []string{"zksync/0x02", "mainnet/0x01", "sepolia/0x03"} {
		c.put(k, []byte(k))
	}
	other.put("x", []byte("x"))

	var keys []string
	err := c.each(func(key string, value []byte) error {
		if key != string(value) {
			t.Errorf("value of %q = %q", key, value)
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"mainnet/0x01", "sepolia/0x03", "zksync/0x02"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("each keys = %v, want %v", keys, want)
	}
}

func TestCollection_Clear(t *testing.T) {
	tests := []struct {
		name string
		db   func(*MemoryDB) DB
	}{
		{"batched", func(m *MemoryDB) DB { return m }},
		{"sequential", func(m *MemoryDB) DB { return plainDB{m} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := NewMemory()
			db := tt.db(mem)
			c := newCollection(db, "accounts")
			keep := newCollection(db, "credential")
			for _, k := range []string{"0", "a1", "b2"} {
				c.put(k, []byte("v"))
			}
			keep.put("user", []byte("hash"))

			if err := c.clear(); err != nil {
				t.Fatalf("clear() error: %v", err)
			}
			n := 0
			c.each(func(string, []byte) error { n++; return nil })
			if n != 0 {
				t.Errorf("%d records left after clear", n)
			}
			if v, err := keep.get("user"); err != nil || !bytes.Equal(v, []byte("hash")) {
				t.Errorf("clear touched another collection: %q, %v", v, err)
			}
		})
	}
}

func TestSequentialBatch(t *testing.T) {
	mem := NewMemory()
	b := newBatch(plainDB{mem})
	if _, ok := b.(*sequentialBatch); !ok {
		t.Fatalf("newBatch over a non-batching DB = %T", b)
	}

	key := []byte("k")
	val := []byte("v1")
	b.Put(key, val)
	b.Put([]byte("empty"), nil)
	val[1] = '2' // the batch holds its own copy
	if ok, _ := mem.Has(key); ok {
		t.Fatal("write applied before Commit()")
	}
	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}
	if got, _ := mem.Get(key); string(got) != "v1" {
		t.Errorf("committed value = %q, want v1", got)
	}
	if ok, _ := mem.Has([]byte("empty")); !ok {
		t.Error("nil value should be stored as empty, not deleted")
	}
}
