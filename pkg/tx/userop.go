package tx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
)

// EntryPoint v0.8 hashes UserOperations as EIP-712 typed data.
const (
	EntryPointDomainName    = "ERC4337"
	EntryPointDomainVersion = "1"
)

var (
	eip712DomainTypeHash = crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	packedUserOpTypeHash = crypto.Keccak256([]byte("PackedUserOperation(address sender,uint256 nonce,bytes initCode,bytes callData,bytes32 accountGasLimits,uint256 preVerificationGas,bytes32 gasFees,bytes paymasterAndData)"))
)

// Factory7702 is the initCode marker of an EIP-7702 delegated sender.
var Factory7702 = common.Address{0x77, 0x02}

// DummySignature has the shape of a real signature. Bundlers simulate with
// it during gas estimation.
var DummySignature = hexutil.MustDecode("0xfffffffffffffffffffffffffffffff0000000000000000000000000000000007aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1c")

// ErrIncompleteUserOperation is returned when a required field is unset or
// does not fit its packed width.
var ErrIncompleteUserOperation = errors.New("incomplete user operation")

// UserOperation is an ERC-4337 v0.8 user operation in its unpacked form.
type UserOperation struct {
	Sender      common.Address
	Nonce       *big.Int
	Factory     *common.Address
	FactoryData []byte
	CallData    []byte

	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int

	Paymaster                     *common.Address
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
	PaymasterData                 []byte

	Signature     []byte
	Authorization *Authorization
}

type sizedField struct {
	name string
	v    *big.Int
	bits int
}

// Validate checks that every field needed for hashing is set and fits.
func (op *UserOperation) Validate() error {
	fields := []sizedField{
		{"nonce", op.Nonce, 256},
		{"callGasLimit", op.CallGasLimit, 128},
		{"verificationGasLimit", op.VerificationGasLimit, 128},
		{"preVerificationGas", op.PreVerificationGas, 256},
		{"maxFeePerGas", op.MaxFeePerGas, 128},
		{"maxPriorityFeePerGas", op.MaxPriorityFeePerGas, 128},
	}
	if op.Paymaster != nil {
		fields = append(fields,
			sizedField{"paymasterVerificationGasLimit", op.PaymasterVerificationGasLimit, 128},
			sizedField{"paymasterPostOpGasLimit", op.PaymasterPostOpGasLimit, 128},
		)
	}
	for _, f := range fields {
		if f.v == nil {
			return fmt.Errorf("%w: %s not set", ErrIncompleteUserOperation, f.name)
		}
		if f.v.Sign() < 0 || f.v.BitLen() > f.bits {
			return fmt.Errorf("%w: %s out of range", ErrIncompleteUserOperation, f.name)
		}
	}
	if op.Factory != nil && *op.Factory == Factory7702 && op.Authorization == nil {
		return fmt.Errorf("%w: 7702 marker without authorization", ErrIncompleteUserOperation)
	}
	return nil
}

// InitCode returns the initCode as hashed by the EntryPoint. For a 7702
// sender the marker is replaced by the delegate address.
func (op *UserOperation) InitCode() []byte {
	if op.Factory == nil {
		return nil
	}
	factory := *op.Factory
	if factory == Factory7702 && op.Authorization != nil {
		factory = op.Authorization.Address
	}
	return append(factory.Bytes(), op.FactoryData...)
}

// AccountGasLimits packs verificationGasLimit and callGasLimit as two
// uint128 values.
func (op *UserOperation) AccountGasLimits() [32]byte {
	return packUint128Pair(op.VerificationGasLimit, op.CallGasLimit)
}

// GasFees packs maxPriorityFeePerGas and maxFeePerGas as two uint128 values.
func (op *UserOperation) GasFees() [32]byte {
	return packUint128Pair(op.MaxPriorityFeePerGas, op.MaxFeePerGas)
}

// PaymasterAndData returns
// paymaster(20) | verificationGasLimit(16) | postOpGasLimit(16) | data.
func (op *UserOperation) PaymasterAndData() []byte {
	if op.Paymaster == nil {
		return nil
	}
	out := make([]byte, 0, 52+len(op.PaymasterData))
	out = append(out, op.Paymaster.Bytes()...)
	limits := packUint128Pair(op.PaymasterVerificationGasLimit, op.PaymasterPostOpGasLimit)
	out = append(out, limits[:]...)
	return append(out, op.PaymasterData...)
}

// Hash returns the v0.8 userOpHash that the sender signs.
func (op *UserOperation) Hash(entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	if err := op.Validate(); err != nil {
		return common.Hash{}, err
	}
	if chainID == nil {
		return common.Hash{}, fmt.Errorf("%w: chain id not set", ErrIncompleteUserOperation)
	}

	accountGasLimits := op.AccountGasLimits()
	gasFees := op.GasFees()
	structHash := crypto.Keccak256(
		packedUserOpTypeHash[:],
		common.LeftPadBytes(op.Sender.Bytes(), 32),
		common.LeftPadBytes(op.Nonce.Bytes(), 32),
		hashBytes(op.InitCode()),
		hashBytes(op.CallData),
		accountGasLimits[:],
		common.LeftPadBytes(op.PreVerificationGas.Bytes(), 32),
		gasFees[:],
		hashBytes(op.PaymasterAndData()),
	)

	domain := EntryPointDomainSeparator(entryPoint, chainID)
	return crypto.Keccak256([]byte{0x19, 0x01}, domain[:], structHash[:]), nil
}

// EntryPointDomainSeparator returns the EIP-712 domain separator of an
// EntryPoint v0.8 deployment.
func EntryPointDomainSeparator(entryPoint common.Address, chainID *big.Int) common.Hash {
	name := crypto.Keccak256([]byte(EntryPointDomainName))
	version := crypto.Keccak256([]byte(EntryPointDomainVersion))
	return crypto.Keccak256(
		eip712DomainTypeHash[:],
		name[:],
		version[:],
		common.LeftPadBytes(chainID.Bytes(), 32),
		common.LeftPadBytes(entryPoint.Bytes(), 32),
	)
}

func hashBytes(b []byte) []byte {
	h := crypto.Keccak256(b)
	return h[:]
}

func packUint128Pair(hi, lo *big.Int) [32]byte {
	var out [32]byte
	if hi != nil && hi.Sign() >= 0 && hi.BitLen() <= 128 {
		hi.FillBytes(out[:16])
	}
	if lo != nil && lo.Sign() >= 0 && lo.BitLen() <= 128 {
		lo.FillBytes(out[16:])
	}
	return out
}

type userOperationJSON struct {
	Sender                        common.Address  `json:"sender"`
	Nonce                         *hexutil.Big    `json:"nonce"`
	Factory                       string          `json:"factory,omitempty"`
	FactoryData                   hexutil.Bytes   `json:"factoryData,omitempty"`
	CallData                      hexutil.Bytes   `json:"callData"`
	CallGasLimit                  *hexutil.Big    `json:"callGasLimit"`
	VerificationGasLimit          *hexutil.Big    `json:"verificationGasLimit"`
	PreVerificationGas            *hexutil.Big    `json:"preVerificationGas"`
	MaxFeePerGas                  *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas          *hexutil.Big    `json:"maxPriorityFeePerGas"`
	Paymaster                     *common.Address `json:"paymaster,omitempty"`
	PaymasterVerificationGasLimit *hexutil.Big    `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *hexutil.Big    `json:"paymasterPostOpGasLimit,omitempty"`
	PaymasterData                 hexutil.Bytes   `json:"paymasterData,omitempty"`
	Signature                     hexutil.Bytes   `json:"signature"`
	EIP7702Auth                   *Authorization  `json:"eip7702Auth,omitempty"`
}

// MarshalJSON encodes the operation in the bundler RPC format. Unset gas
// fields encode as 0x0 so the operation can be sent for estimation.
func (op *UserOperation) MarshalJSON() ([]byte, error) {
	enc := userOperationJSON{
		Sender:                        op.Sender,
		Nonce:                         hexBig(op.Nonce),
		FactoryData:                   op.FactoryData,
		CallData:                      op.CallData,
		CallGasLimit:                  hexBig(op.CallGasLimit),
		VerificationGasLimit:          hexBig(op.VerificationGasLimit),
		PreVerificationGas:            hexBig(op.PreVerificationGas),
		MaxFeePerGas:                  hexBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas:          hexBig(op.MaxPriorityFeePerGas),
		Paymaster:                     op.Paymaster,
		PaymasterData:                 op.PaymasterData,
		Signature:                     op.Signature,
		EIP7702Auth:                   op.Authorization,
	}
	if enc.CallData == nil {
		enc.CallData = hexutil.Bytes{}
	}
	if enc.Signature == nil {
		enc.Signature = hexutil.Bytes{}
	}
	if op.Factory != nil {
		if *op.Factory == Factory7702 {
			enc.Factory = "0x7702"
		} else {
			enc.Factory = op.Factory.Hex()
		}
	}
	if op.Paymaster != nil {
		enc.PaymasterVerificationGasLimit = hexBig(op.PaymasterVerificationGasLimit)
		enc.PaymasterPostOpGasLimit = hexBig(op.PaymasterPostOpGasLimit)
	}
	return json.Marshal(&enc)
}

func hexBig(v *big.Int) *hexutil.Big {
	if v == nil {
		return (*hexutil.Big)(new(big.Int))
	}
	return (*hexutil.Big)(v)
}

// Copy returns a deep copy of op.
func (op *UserOperation) Copy() *UserOperation {
	cp := *op
	cp.FactoryData = bytes.Clone(op.FactoryData)
	cp.CallData = bytes.Clone(op.CallData)
	cp.PaymasterData = bytes.Clone(op.PaymasterData)
	cp.Signature = bytes.Clone(op.Signature)
	for _, f := range []**big.Int{
		&cp.Nonce, &cp.CallGasLimit, &cp.VerificationGasLimit, &cp.PreVerificationGas,
		&cp.MaxFeePerGas, &cp.MaxPriorityFeePerGas,
		&cp.PaymasterVerificationGasLimit, &cp.PaymasterPostOpGasLimit,
	} {
		if *f != nil {
			*f = new(big.Int).Set(*f)
		}
	}
	if op.Authorization != nil {
		a := *op.Authorization
		cp.Authorization = &a
	}
	return &cp
}
