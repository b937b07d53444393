package tx

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
)

// ErrSignerMismatch is returned when a signed transaction does not recover
// to the signing key's address.
var ErrSignerMismatch = errors.New("signature does not recover to signer")

// Builder constructs native transactions incrementally.
type Builder struct {
	chainID *big.Int
	nonce   uint64
	to      common.Address
	value   *big.Int
	data    []byte
	gas     uint64
	fees    Fees
}

// NewBuilder creates a builder for a transaction on chainID.
func NewBuilder(chainID *big.Int) *Builder {
	return &Builder{chainID: new(big.Int).Set(chainID), value: new(big.Int)}
}

// Nonce sets the account nonce.
func (b *Builder) Nonce(n uint64) *Builder {
	b.nonce = n
	return b
}

// To sets the recipient.
func (b *Builder) To(addr common.Address) *Builder {
	b.to = addr
	return b
}

// Value sets the amount of native asset sent.
func (b *Builder) Value(v *big.Int) *Builder {
	if v != nil {
		b.value = new(big.Int).Set(v)
	}
	return b
}

// Data sets the call data.
func (b *Builder) Data(d []byte) *Builder {
	b.data = append([]byte(nil), d...)
	return b
}

// Gas sets the gas limit.
func (b *Builder) Gas(gas uint64) *Builder {
	b.gas = gas
	return b
}

// Fees sets the fee fields.
func (b *Builder) Fees(f Fees) *Builder {
	b.fees = f
	return b
}

// Build returns the unsigned transaction: a legacy transaction when the
// fees carry a gas price, otherwise a dynamic-fee transaction.
func (b *Builder) Build() (*ethtypes.Transaction, error) {
	if b.gas == 0 {
		return nil, fmt.Errorf("gas limit not set")
	}
	to := b.to
	if b.fees.Legacy() {
		return ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    b.nonce,
			GasPrice: b.fees.GasPrice,
			Gas:      b.gas,
			To:       &to,
			Value:    b.value,
			Data:     b.data,
		}), nil
	}
	if b.fees.GasFeeCap == nil || b.fees.GasTipCap == nil {
		return nil, fmt.Errorf("fees not set")
	}
	return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   b.chainID,
		Nonce:     b.nonce,
		GasTipCap: b.fees.GasTipCap,
		GasFeeCap: b.fees.GasFeeCap,
		Gas:       b.gas,
		To:        &to,
		Value:     b.value,
		Data:      b.data,
	}), nil
}

// Sign builds the transaction and signs it with key. The signature is
// checked to recover to the key's address.
func (b *Builder) Sign(key crypto.Signer) (*ethtypes.Transaction, error) {
	unsigned, err := b.Build()
	if err != nil {
		return nil, err
	}

	signer := ethtypes.LatestSignerForChainID(b.chainID)
	hash := signer.Hash(unsigned)
	sig, err := key.Sign(hash[:])
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	signed, err := unsigned.WithSignature(signer, sig)
	if err != nil {
		return nil, fmt.Errorf("attach signature: %w", err)
	}

	from, err := ethtypes.Sender(signer, signed)
	if err != nil {
		return nil, fmt.Errorf("recover sender: %w", err)
	}
	if from != key.Address() {
		return nil, ErrSignerMismatch
	}
	return signed, nil
}
