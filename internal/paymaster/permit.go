package paymaster

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
)

// MaxDeadline is the permit deadline used for sponsorship: the permit never
// expires.
var MaxDeadline = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// DataVersion is the paymaster data layout version.
const DataVersion uint8 = 0

// Permit is an EIP-2612 permit message with its token domain.
type Permit struct {
	Token   common.Address
	Name    string
	Version string
	ChainID *big.Int

	Owner    common.Address
	Spender  common.Address
	Value    *big.Int
	Nonce    *big.Int
	Deadline *big.Int
}

var permitTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Permit": {
		{Name: "owner", Type: "address"},
		{Name: "spender", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// TypedData returns the permit as EIP-712 typed data.
func (p *Permit) TypedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types:       permitTypes,
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              p.Name,
			Version:           p.Version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(p.ChainID)),
			VerifyingContract: p.Token.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    p.Owner.Hex(),
			"spender":  p.Spender.Hex(),
			"value":    p.Value.String(),
			"nonce":    p.Nonce.String(),
			"deadline": p.Deadline.String(),
		},
	}
}

// Hash returns the EIP-712 digest the owner signs.
func (p *Permit) Hash() (common.Hash, error) {
	if p.ChainID == nil || p.Value == nil || p.Nonce == nil || p.Deadline == nil {
		return common.Hash{}, fmt.Errorf("permit: missing field")
	}
	digest, _, err := apitypes.TypedDataAndHash(p.TypedData())
	if err != nil {
		return common.Hash{}, fmt.Errorf("permit hash: %w", err)
	}
	return common.BytesToHash(digest), nil
}

// Sign signs the permit with key and returns the signature in the
// R | S | V form with V in {27, 28} that permit() verifies.
func (p *Permit) Sign(key crypto.Signer) ([]byte, error) {
	if key.Address() != p.Owner {
		return nil, fmt.Errorf("permit owner %s is not the signer %s", p.Owner.Hex(), key.Address().Hex())
	}
	hash, err := p.Hash()
	if err != nil {
		return nil, err
	}
	sig, err := key.Sign(hash[:])
	if err != nil {
		return nil, fmt.Errorf("sign permit: %w", err)
	}
	return crypto.ContractSignature(sig), nil
}

// PaymasterData is the sponsorship payload appended to paymasterAndData.
type PaymasterData struct {
	Version      uint8
	Token        common.Address
	PermitAmount *big.Int
	Signature    []byte
}

// Bytes encodes d as
// uint8 version | address token | uint256 permitAmount | signature.
func (d *PaymasterData) Bytes() []byte {
	out := make([]byte, 0, 1+common.AddressLength+32+len(d.Signature))
	out = append(out, d.Version)
	out = append(out, d.Token.Bytes()...)
	out = append(out, common.LeftPadBytes(d.PermitAmount.Bytes(), 32)...)
	return append(out, d.Signature...)
}
