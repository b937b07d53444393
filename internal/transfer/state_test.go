package transfer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Klingon-tech/klingnet-wallet/internal/paymaster"
	"github.com/Klingon-tech/klingnet-wallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-wallet/pkg/tx"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIntent, StateValidated, true},
		{StateIntent, StateSubmitted, false},
		{StateValidated, StateNativeSigned, true},
		{StateValidated, StateUserOperationAssembled, true},
		{StateValidated, StateSubmitted, false},
		{StateNativeSigned, StateSubmitted, true},
		{StateNativeSigned, StateUserOperationAssembled, false},
		{StateUserOperationAssembled, StateSubmitted, true},
		{StateSubmitted, StateConfirmed, true},
		{StateSubmitted, StateValidated, false},
		{StateIntent, StateFailed, true},
		{StateNativeSigned, StateFailed, true},
		{StateConfirmed, StateFailed, false},
		{StateFailed, StateFailed, false},
		{StateConfirmed, StateSubmitted, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestFlow_Advance(t *testing.T) {
	f := &flow{state: StateIntent}
	assert.NoError(t, f.advance(StateValidated))
	assert.NoError(t, f.advance(StateUserOperationAssembled))

	err := f.advance(StateNativeSigned)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StateUserOperationAssembled, f.state)

	assert.NoError(t, f.advance(StateSubmitted))
	assert.Equal(t, "submitted", f.state.String())
}

func TestFailed_Reasons(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"password", wallet.ErrInvalidPassword, "invalid password"},
		{"decrypt", fmt.Errorf("unlock: %w", wallet.ErrDecryptionFailed), "wallet decryption failed"},
		{"recipient", fmt.Errorf("%w: bad", tx.ErrInvalidRecipient), "invalid recipient address"},
		{"sponsor floor", fmt.Errorf("%w: have 1", paymaster.ErrInsufficientSponsorBalance), "insufficient sponsor balance"},
		{"balance", ErrInsufficientBalance, "insufficient balance"},
		{"unmapped", errors.New("connection refused"), "gas estimation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := failed("gas estimation", tt.err)
			assert.Equal(t, tt.reason, got.Reason)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestFailed_KeepsExisting(t *testing.T) {
	inner := &TransactionFailedError{Reason: "insufficient balance", Err: ErrInsufficientBalance}
	got := failed("sign", fmt.Errorf("wrapped: %w", inner))
	assert.Same(t, inner, got)
}

func TestTransactionFailedError_Error(t *testing.T) {
	assert.Equal(t, "transaction failed: invalid amount", (&TransactionFailedError{Reason: "invalid amount"}).Error())
	assert.Equal(t, "transaction failed: nonce: boom",
		(&TransactionFailedError{Reason: "nonce", Err: errors.New("boom")}).Error())
}
