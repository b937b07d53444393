package transfer

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-wallet/internal/paymaster"
	"github.com/Klingon-tech/klingnet-wallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-wallet/pkg/tx"
)

// State is the lifecycle stage of a transfer.
type State int

const (
	StateIntent State = iota
	StateValidated
	StateNativeSigned
	StateUserOperationAssembled
	StateSubmitted
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIntent:
		return "intent"
	case StateValidated:
		return "validated"
	case StateNativeSigned:
		return "native_signed"
	case StateUserOperationAssembled:
		return "user_operation_assembled"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions lists the legal successors of each state. Any state may move
// to StateFailed.
var transitions = map[State][]State{
	StateIntent:                 {StateValidated},
	StateValidated:              {StateNativeSigned, StateUserOperationAssembled},
	StateNativeSigned:           {StateSubmitted},
	StateUserOperationAssembled: {StateSubmitted},
	StateSubmitted:              {StateConfirmed, StateFailed},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	if to == StateFailed {
		return from != StateConfirmed && from != StateFailed
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrInsufficientBalance is returned when the sender cannot cover the
// transfer and its gas.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrIllegalTransition is wrapped when the flow is driven out of order.
var ErrIllegalTransition = errors.New("illegal state transition")

// TransactionFailedError reports a transfer that did not reach submission.
// Err carries the upstream cause.
type TransactionFailedError struct {
	Reason string
	Err    error
}

func (e *TransactionFailedError) Error() string {
	if e.Err == nil {
		return "transaction failed: " + e.Reason
	}
	return fmt.Sprintf("transaction failed: %s: %v", e.Reason, e.Err)
}

func (e *TransactionFailedError) Unwrap() error {
	return e.Err
}

// reasons maps known causes to user-facing reasons.
var reasons = []struct {
	err    error
	reason string
}{
	{wallet.ErrInvalidPassword, "invalid password"},
	{wallet.ErrDecryptionFailed, "wallet decryption failed"},
	{wallet.ErrCorruptAccount, "corrupt account"},
	{wallet.ErrAccountNotFound, "account not found"},
	{tx.ErrInvalidRecipient, "invalid recipient address"},
	{tx.ErrInvalidAmount, "invalid amount"},
	{tx.ErrInvalidGasLimit, "invalid gas limit"},
	{tx.ErrInvalidFee, "invalid fee"},
	{tx.ErrInvalidData, "invalid call data"},
	{ErrInsufficientBalance, "insufficient balance"},
	{paymaster.ErrInsufficientSponsorBalance, "insufficient sponsor balance"},
	{ErrIllegalTransition, "illegal state transition"},
}

// failed wraps err as a TransactionFailedError. stage is used as the reason
// when err is not a known cause.
func failed(stage string, err error) *TransactionFailedError {
	var tfe *TransactionFailedError
	if errors.As(err, &tfe) {
		return tfe
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return &TransactionFailedError{Reason: r.reason, Err: err}
		}
	}
	return &TransactionFailedError{Reason: stage, Err: err}
}

// flow tracks one transfer through its states.
type flow struct {
	state State
}

func (f *flow) advance(to State) error {
	if !CanTransition(f.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, f.state, to)
	}
	f.state = to
	return nil
}
