package tx

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20JSON = `[
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"version","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"nonces","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const accountJSON = `[
{"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]}
]`

const entryPointJSON = `[
{"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],"outputs":[{"name":"nonce","type":"uint256"}]}
]`

// Contract ABIs used by the wallet.
var (
	ERC20ABI      = mustParseABI(erc20JSON)
	AccountABI    = mustParseABI(accountJSON)
	EntryPointABI = mustParseABI(entryPointJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

// TransferData encodes ERC-20 transfer(to, amount).
func TransferData(to common.Address, amount *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("transfer", to, amount)
}

// ExecuteData encodes a smart-account execute(target, value, data) call.
func ExecuteData(target common.Address, value *big.Int, data []byte) ([]byte, error) {
	if value == nil {
		value = new(big.Int)
	}
	return AccountABI.Pack("execute", target, value, data)
}

// GetNonceData encodes EntryPoint getNonce(sender, key).
func GetNonceData(sender common.Address, key *big.Int) ([]byte, error) {
	if key == nil {
		key = new(big.Int)
	}
	return EntryPointABI.Pack("getNonce", sender, key)
}

// ERC20Call encodes a call to a read-only ERC-20 method.
func ERC20Call(method string, args ...any) ([]byte, error) {
	return ERC20ABI.Pack(method, args...)
}

// UnpackBigInt decodes the single uint output of method from a.
func UnpackBigInt(a abi.ABI, method string, out []byte) (*big.Int, error) {
	vals, err := a.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("unpack %s: %d outputs", method, len(vals))
	}
	switch v := vals[0].(type) {
	case *big.Int:
		return v, nil
	case uint8:
		return big.NewInt(int64(v)), nil
	}
	return nil, fmt.Errorf("unpack %s: unexpected type %T", method, vals[0])
}

// UnpackString decodes the single string output of method from a.
func UnpackString(a abi.ABI, method string, out []byte) (string, error) {
	vals, err := a.Unpack(method, out)
	if err != nil {
		return "", fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(vals) != 1 {
		return "", fmt.Errorf("unpack %s: %d outputs", method, len(vals))
	}
	s, ok := vals[0].(string)
	if !ok {
		return "", fmt.Errorf("unpack %s: unexpected type %T", method, vals[0])
	}
	return s, nil
}
