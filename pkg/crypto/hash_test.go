package crypto

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestKeccak256(t *testing.T) {
	tests := []struct {
		name  string
		input [][]byte
		want  string
	}{
		{
			name:  "empty input",
			input: nil,
			want:  "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		},
		{
			name:  "transfer selector preimage",
			input: [][]byte{[]byte("transfer(address,uint256)")},
			want:  "0xa9059cbb2ab09eb219583f4a59a5d0623ade346d962bcd4e46b11da047c9049b",
		},
		{
			name:  "concatenation",
			input: [][]byte{[]byte("transfer("), []byte("address,uint256)")},
			want:  "0xa9059cbb2ab09eb219583f4a59a5d0623ade346d962bcd4e46b11da047c9049b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Keccak256(tt.input...).Hex(); got != tt.want {
				t.Errorf("Keccak256() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAddressFromPubKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	addr, err := AddressFromPubKey(key.PublicKey())
	if err != nil {
		t.Fatalf("AddressFromPubKey() error: %v", err)
	}
	if addr != key.Address() {
		t.Errorf("AddressFromPubKey() = %s, want %s", addr.Hex(), key.Address().Hex())
	}

	if addr == (common.Address{}) {
		t.Error("address should not be zero")
	}

	if _, err := AddressFromPubKey([]byte("bad")); err == nil {
		t.Error("AddressFromPubKey() should reject garbage")
	}
}
