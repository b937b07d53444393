package crypto

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func newKey(t *testing.T) *PrivateKey {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	return key
}

func sign(t *testing.T, key *PrivateKey, msg string) ([]byte, []byte) {
	t.Helper()
	hash := Keccak256([]byte(msg))
	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	return hash[:], sig
}

func TestPrivateKeyFromBytes(t *testing.T) {
	key := newKey(t)
	if n := len(key.PublicKey()); n != 33 {
		t.Errorf("PublicKey() length = %d, want 33", n)
	}

	restored, err := PrivateKeyFromBytes(key.Serialize())
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}
	if restored.Address() != key.Address() {
		t.Error("restored key should have the same address")
	}

	for name, b := range map[string][]byte{
		"empty":       {},
		"too short":   make([]byte, 16),
		"too long":    make([]byte, 64),
		"zero scalar": make([]byte, 32),
	} {
		if _, err := PrivateKeyFromBytes(b); err == nil {
			t.Errorf("%s: PrivateKeyFromBytes() should fail", name)
		}
	}
}

func TestPrivateKey_KnownAddress(t *testing.T) {
	// Secret 1 maps to the generator point.
	secret := make([]byte, 32)
	secret[31] = 1
	key, err := PrivateKeyFromBytes(secret)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}

	want := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	if key.Address() != want {
		t.Errorf("Address() = %s, want %s", key.Address().Hex(), want.Hex())
	}
}

func TestSign_Recover(t *testing.T) {
	var signer Signer = newKey(t)
	hash := Keccak256([]byte("transfer"))
	sig, err := signer.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if len(sig) != SignatureSize || sig[64] > 1 {
		t.Fatalf("signature = %x, want 65 bytes with V in {0,1}", sig)
	}

	addr, err := RecoverAddress(hash[:], sig)
	if err != nil {
		t.Fatalf("RecoverAddress() error: %v", err)
	}
	if addr != signer.Address() {
		t.Errorf("recovered %s, want %s", addr.Hex(), signer.Address().Hex())
	}

	// go-ethereum reads the same [R || S || V] layout.
	pub, err := ethcrypto.SigToPub(hash[:], sig)
	if err != nil {
		t.Fatalf("SigToPub() error: %v", err)
	}
	if got := ethcrypto.PubkeyToAddress(*pub); got != signer.Address() {
		t.Errorf("go-ethereum recovered %s, want %s", got.Hex(), signer.Address().Hex())
	}
}

func TestSign_Deterministic(t *testing.T) {
	key := newKey(t)
	_, sig1 := sign(t, key, "permit")
	_, sig2 := sign(t, key, "permit")
	if !bytes.Equal(sig1, sig2) {
		t.Error("RFC 6979 signatures should be deterministic")
	}
	if _, err := key.Sign([]byte("too short")); err == nil {
		t.Error("Sign() should reject a non-32-byte hash")
	}
}

func TestVerifySignature(t *testing.T) {
	key, other := newKey(t), newKey(t)
	hash, sig := sign(t, key, "message")
	wrong := Keccak256([]byte("different message"))

	tests := []struct {
		name string
		hash []byte
		addr common.Address
		want bool
	}{
		{"signer", hash, key.Address(), true},
		{"other key", hash, other.Address(), false},
		{"wrong hash", wrong[:], key.Address(), false},
	}
	for _, tt := range tests {
		if got := VerifySignature(tt.hash, sig, tt.addr); got != tt.want {
			t.Errorf("%s: VerifySignature() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRecoverAddress_InvalidInputs(t *testing.T) {
	tests := []struct {
		name string
		hash []byte
		sig  []byte
	}{
		{"nil hash", nil, make([]byte, 65)},
		{"short signature", make([]byte, 32), make([]byte, 10)},
		{"bad recovery id", make([]byte, 32), append(make([]byte, 64), 5)},
		{"zero signature", make([]byte, 32), make([]byte, 65)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RecoverAddress(tt.hash, tt.sig); err == nil {
				t.Error("RecoverAddress() should fail")
			}
		})
	}
}

func TestPrivateKey_Zero(t *testing.T) {
	key := newKey(t)
	key.Zero()
	if !bytes.Equal(key.Serialize(), make([]byte, 32)) {
		t.Fatal("Serialize() should return zeros after Zero()")
	}
}

func TestContractSignature(t *testing.T) {
	key := newKey(t)
	hash, sig := sign(t, key, "contract signature")

	out := ContractSignature(sig)
	if out[64] != sig[64]+27 {
		t.Errorf("V = %d, want %d", out[64], sig[64]+27)
	}
	if sig[64] > 1 {
		t.Error("ContractSignature() modified its input")
	}
	if !VerifySignature(hash, out, key.Address()) {
		t.Error("shifted signature should still verify")
	}
	if again := ContractSignature(out); again[64] != out[64] {
		t.Errorf("ContractSignature() shifted twice: V = %d", again[64])
	}
}
