package transfer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/network"
	"github.com/Klingon-tech/klingnet-wallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
	"github.com/Klingon-tech/klingnet-wallet/pkg/tx"
)

// sendNative signs v as a plain transaction with the account key and sends
// it through the adapter's provider. ERC-20 transfers call transfer(to,
// amount) on the token contract.
func (s *Service) sendNative(ctx context.Context, f *flow, a network.Adapter, acct *wallet.Account, password []byte,
	token network.Token, v *tx.Validated) (*Submission, error) {
	p := a.Provider()
	from := acct.Address

	if err := a.VerifyChain(ctx); err != nil {
		return nil, failed("chain check", err)
	}

	to, value, data := v.To, v.Value, v.Data
	if !token.Native() {
		call, err := tx.TransferData(v.To, v.Value)
		if err != nil {
			return nil, failed("encode transfer", err)
		}
		to, value, data = token.Address, new(big.Int), call
	}

	fees, err := a.Fees(ctx)
	if err != nil {
		return nil, failed("fee estimation", err)
	}
	fees = fees.Override(v.MaxFeePerGas, v.MaxPriorityFeePerGas)

	gas := v.GasLimit
	if gas == 0 {
		gas, err = p.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
		if err != nil {
			return nil, failed("gas estimation", err)
		}
	}

	if err := checkBalances(ctx, p, from, token, v.Value, value, fees, gas); err != nil {
		return nil, failed("balance check", err)
	}

	nonce, err := p.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, failed("nonce", err)
	}

	var signed *ethtypes.Transaction
	err = s.wallets.WithSigner(acct.KeyPath, password, func(key *crypto.PrivateKey) error {
		var err error
		signed, err = tx.NewBuilder(a.ChainID()).
			Nonce(nonce).
			To(to).
			Value(value).
			Data(data).
			Gas(gas).
			Fees(fees).
			Sign(key)
		return err
	})
	if err != nil {
		return nil, failed("sign", err)
	}
	if err := f.advance(StateNativeSigned); err != nil {
		return nil, failed("sign", err)
	}

	klog.Tx.Debug().
		Str("from", from.Hex()).
		Uint64("nonce", nonce).
		Uint64("gas", gas).
		Bool("legacy", fees.Legacy()).
		Msg("Native transaction signed")

	if err := p.SendTransaction(ctx, signed); err != nil {
		return nil, failed("submission rejected", err)
	}
	return &Submission{
		Network:     a.Network(),
		From:        from,
		Hash:        signed.Hash().Hex(),
		Transaction: signed,
	}, nil
}

// checkBalances verifies that from can pay value plus the maximum gas cost
// in the native asset and, for tokens, holds amount of the token.
func checkBalances(ctx context.Context, p network.Provider, from common.Address, token network.Token,
	amount, value *big.Int, fees tx.Fees, gas uint64) error {
	native, err := p.BalanceAt(ctx, from, nil)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", from.Hex(), err)
	}
	need := tx.RequiredBalance(value, fees, gas)
	if native.Cmp(need) < 0 {
		return fmt.Errorf("%w: have %s wei, need %s wei", ErrInsufficientBalance, native, need)
	}
	if token.Native() {
		return nil
	}

	held, err := tokenBalance(ctx, p, token.Address, from)
	if err != nil {
		return err
	}
	if held.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s %s base units, need %s", ErrInsufficientBalance, held, token.Symbol, amount)
	}
	return nil
}

func tokenBalance(ctx context.Context, p network.Provider, token, owner common.Address) (*big.Int, error) {
	data, err := tx.ERC20Call("balanceOf", owner)
	if err != nil {
		return nil, err
	}
	out, err := p.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf on %s: %w", token.Hex(), err)
	}
	return tx.UnpackBigInt(tx.ERC20ABI, "balanceOf", out)
}
