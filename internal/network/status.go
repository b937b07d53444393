package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/Klingon-tech/klingnet-wallet/internal/pending"
)

// checkStatus resolves a pending hash. The hash is tried as a transaction
// hash first and, when the chain does not know it, as a userOpHash.
func checkStatus(ctx context.Context, p Provider, b Bundler, hash string) (pending.Status, error) {
	raw, err := hexutil.Decode(hash)
	if err != nil || len(raw) != common.HashLength {
		return pending.StatusUnknown, fmt.Errorf("malformed hash %q", hash)
	}
	h := common.BytesToHash(raw)

	receipt, err := p.TransactionReceipt(ctx, h)
	switch {
	case err == nil:
		if receipt.Status == ethtypes.ReceiptStatusSuccessful {
			return pending.StatusConfirmed, nil
		}
		return pending.StatusFailed, nil
	case !errors.Is(err, ethereum.NotFound):
		return pending.StatusUnknown, fmt.Errorf("receipt %s: %w", hash, err)
	}

	if b == nil {
		return pending.StatusUnknown, nil
	}
	opReceipt, err := b.UserOperationReceipt(ctx, h)
	if err != nil {
		return pending.StatusUnknown, err
	}
	if opReceipt == nil {
		return pending.StatusUnknown, nil
	}
	if opReceipt.Success {
		return pending.StatusConfirmed, nil
	}
	return pending.StatusFailed, nil
}
