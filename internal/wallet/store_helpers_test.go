package wallet

import (
	"testing"

	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
)

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
