package tx

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
)

func TestAuthorizationHash_Encoding(t *testing.T) {
	got, err := AuthorizationHash(big.NewInt(1), testDelegate, 0)
	if err != nil {
		t.Fatalf("AuthorizationHash() error: %v", err)
	}

	// rlp([1, delegate, 0]) = 0xd7 0x01 0x94 <20 bytes> 0x80
	enc := []byte{0xd7, 0x01, 0x94}
	enc = append(enc, testDelegate.Bytes()...)
	enc = append(enc, 0x80)
	want := crypto.Keccak256([]byte{0x05}, enc)
	if got != want {
		t.Errorf("AuthorizationHash() = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestSignAuthorization(t *testing.T) {
	key := testKey(t)
	auth, err := SignAuthorization(key, big.NewInt(11155111), testDelegate, 5)
	if err != nil {
		t.Fatalf("SignAuthorization() error: %v", err)
	}
	if auth.Address != testDelegate || auth.Nonce != 5 || auth.YParity > 1 {
		t.Errorf("authorization = %+v", auth)
	}

	authority, err := auth.Authority()
	if err != nil {
		t.Fatalf("Authority() error: %v", err)
	}
	if authority != key.Address() {
		t.Errorf("authority = %s, want %s", authority.Hex(), key.Address().Hex())
	}

	auth.Nonce = 6
	if other, _ := auth.Authority(); other == key.Address() {
		t.Error("changing the nonce should change the recovered authority")
	}
}

func TestDelegationCode(t *testing.T) {
	code := DelegationCode(testDelegate)
	if len(code) != 23 || code[0] != 0xef || code[1] != 0x01 || code[2] != 0x00 {
		t.Fatalf("code = %x", code)
	}
	if !IsDelegatedTo(code, testDelegate) {
		t.Error("IsDelegatedTo() = false for own designator")
	}
	if IsDelegatedTo(code, common.HexToAddress(recipient)) {
		t.Error("IsDelegatedTo() = true for another delegate")
	}
	if IsDelegatedTo(nil, testDelegate) {
		t.Error("IsDelegatedTo() = true for empty code")
	}
}
