package tx

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
)

func testKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	return key
}

func TestBuilder_SignDynamic(t *testing.T) {
	key := testKey(t)
	chainID := big.NewInt(11155111)
	to := common.HexToAddress(recipient)

	in := Intent{To: recipient, Value: "1.5"}
	v, err := in.Validate(18)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	signed, err := NewBuilder(chainID).
		Nonce(3).
		To(v.To).
		Value(v.Value).
		Gas(21000).
		Fees(DynamicFees(big.NewInt(1_000_000_000), big.NewInt(100_000_000))).
		Sign(key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	if signed.Type() != ethtypes.DynamicFeeTxType {
		t.Errorf("type = %d, want dynamic fee", signed.Type())
	}
	if signed.Value().String() != "1500000000000000000" {
		t.Errorf("value = %s, want 1500000000000000000", signed.Value())
	}
	if *signed.To() != to || signed.Nonce() != 3 || signed.Gas() != 21000 {
		t.Errorf("fields = to %s nonce %d gas %d", signed.To().Hex(), signed.Nonce(), signed.Gas())
	}
	if signed.ChainId().Cmp(chainID) != 0 {
		t.Errorf("chain id = %s", signed.ChainId())
	}

	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatalf("Sender() error: %v", err)
	}
	if from != key.Address() {
		t.Errorf("sender = %s, want %s", from.Hex(), key.Address().Hex())
	}

	raw, err := signed.MarshalBinary()
	if err != nil || len(raw) == 0 {
		t.Fatalf("MarshalBinary() = %d bytes, %v", len(raw), err)
	}
}

func TestBuilder_SignLegacy(t *testing.T) {
	key := testKey(t)
	signed, err := NewBuilder(big.NewInt(324)).
		To(common.HexToAddress(recipient)).
		Value(big.NewInt(1)).
		Gas(21000).
		Fees(LegacyFees(big.NewInt(25_000_000))).
		Sign(key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if signed.Type() != ethtypes.LegacyTxType {
		t.Errorf("type = %d, want legacy", signed.Type())
	}
	if !signed.Protected() {
		t.Error("legacy transaction should be replay protected")
	}
	if signed.ChainId().Int64() != 324 {
		t.Errorf("chain id = %s, want 324", signed.ChainId())
	}
}

func TestBuilder_ERC20Data(t *testing.T) {
	key := testKey(t)
	data, err := TransferData(common.HexToAddress(recipient), big.NewInt(2_500_000))
	if err != nil {
		t.Fatalf("TransferData() error: %v", err)
	}
	token := common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	signed, err := NewBuilder(big.NewInt(1)).
		To(token).
		Data(data).
		Gas(65000).
		Fees(DynamicFees(big.NewInt(1), big.NewInt(1))).
		Sign(key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if signed.Value().Sign() != 0 {
		t.Error("token transfer should carry no native value")
	}
	if string(signed.Data()) != string(data) {
		t.Error("call data not preserved")
	}
}

func TestBuilder_Incomplete(t *testing.T) {
	key := testKey(t)
	if _, err := NewBuilder(big.NewInt(1)).Fees(LegacyFees(big.NewInt(1))).Sign(key); err == nil {
		t.Error("Sign() without gas should fail")
	}
	if _, err := NewBuilder(big.NewInt(1)).Gas(21000).Sign(key); err == nil {
		t.Error("Sign() without fees should fail")
	}
}
