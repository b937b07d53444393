package tx

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

// Validation errors.
var (
	ErrInvalidRecipient = errors.New("invalid recipient address")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidGasLimit  = errors.New("invalid gas limit")
	ErrInvalidFee       = errors.New("invalid fee")
	ErrInvalidData      = errors.New("invalid call data")
)

// Intent is a transfer as entered by the user. All numeric fields are
// decimal strings; optional fields are empty when unset.
type Intent struct {
	To    string `json:"to"`
	Value string `json:"value"`

	// Token is the symbol of an ERC-20 token, or empty for the native asset.
	Token string `json:"token,omitempty"`
	Data  string `json:"data,omitempty"`

	GasLimit             string `json:"gasLimit,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
}

// Validated is an Intent whose fields have been parsed.
type Validated struct {
	To    common.Address
	Value *big.Int
	Token string
	Data  []byte

	// GasLimit is zero when it should be estimated.
	GasLimit uint64
	// Fee caps in wei; nil when they should be fetched.
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Validate parses the intent. The value is scaled by decimals, so "1.5"
// with 18 decimals becomes 1500000000000000000.
func (in *Intent) Validate(decimals int) (*Validated, error) {
	to, err := types.ParseAddress(in.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	value, err := types.ParseUnits(in.Value, decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	v := &Validated{
		To:    to,
		Value: value,
		Token: strings.ToUpper(strings.TrimSpace(in.Token)),
	}

	if s := strings.TrimSpace(in.Data); s != "" && s != "0x" {
		v.Data, err = hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
	}

	if s := strings.TrimSpace(in.GasLimit); s != "" {
		gas, err := types.ParseUint(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGasLimit, err)
		}
		if !gas.IsUint64() || gas.Sign() == 0 {
			return nil, fmt.Errorf("%w: %s out of range", ErrInvalidGasLimit, s)
		}
		v.GasLimit = gas.Uint64()
	}
	if s := strings.TrimSpace(in.MaxFeePerGas); s != "" {
		if v.MaxFeePerGas, err = types.ParseUint(s); err != nil {
			return nil, fmt.Errorf("%w: maxFeePerGas: %v", ErrInvalidFee, err)
		}
	}
	if s := strings.TrimSpace(in.MaxPriorityFeePerGas); s != "" {
		if v.MaxPriorityFeePerGas, err = types.ParseUint(s); err != nil {
			return nil, fmt.Errorf("%w: maxPriorityFeePerGas: %v", ErrInvalidFee, err)
		}
	}
	if v.MaxFeePerGas != nil && v.MaxPriorityFeePerGas != nil && v.MaxPriorityFeePerGas.Cmp(v.MaxFeePerGas) > 0 {
		return nil, fmt.Errorf("%w: priority fee above max fee", ErrInvalidFee)
	}
	return v, nil
}

// IsNative reports whether the transfer moves the native asset.
func (v *Validated) IsNative() bool {
	return v.Token == ""
}
