package transfer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/network"
	"github.com/Klingon-tech/klingnet-wallet/internal/paymaster"
	"github.com/Klingon-tech/klingnet-wallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
	"github.com/Klingon-tech/klingnet-wallet/pkg/tx"
)

// Account gas used when the caller supplies a gas limit and the bundler is
// not asked for an estimate.
var (
	DefaultVerificationGas    = big.NewInt(150_000)
	DefaultPreVerificationGas = big.NewInt(60_000)
)

// sendSponsored sends v as a UserOperation from the account's EIP-7702
// delegated EOA, with gas paid by the paymaster against a permit.
func (s *Service) sendSponsored(ctx context.Context, f *flow, a network.Adapter, params *network.Sponsorship, b network.Bundler,
	acct *wallet.Account, password []byte, token network.Token, v *tx.Validated) (*Submission, error) {
	if err := a.VerifyChain(ctx); err != nil {
		return nil, failed("chain check", err)
	}
	sponsor, err := paymaster.New(a)
	if err != nil {
		return nil, failed("sponsorship", err)
	}
	from := acct.Address

	held, err := sponsor.TokenBalance(ctx, token.Address, from)
	if err != nil {
		return nil, failed("balance check", err)
	}
	// Floor first: nothing is fetched or decrypted below it.
	if err := sponsor.CheckFloor(held); err != nil {
		return nil, failed("balance check", err)
	}
	if held.Cmp(v.Value) < 0 {
		return nil, failed("balance check", fmt.Errorf("%w: have %s %s base units, need %s",
			ErrInsufficientBalance, held, token.Symbol, v.Value))
	}

	transfer, err := tx.TransferData(v.To, v.Value)
	if err != nil {
		return nil, failed("encode transfer", err)
	}
	callData, err := tx.ExecuteData(token.Address, nil, transfer)
	if err != nil {
		return nil, failed("encode transfer", err)
	}
	nonce, err := entryPointNonce(ctx, a.Provider(), params.EntryPoint, from)
	if err != nil {
		return nil, failed("nonce", err)
	}
	tier, err := sponsor.GasPrice(ctx)
	if err != nil {
		return nil, failed("gas price", err)
	}
	maxFee, maxTip := tier.MaxFeePerGas, tier.MaxPriorityFeePerGas
	if v.MaxFeePerGas != nil {
		maxFee = v.MaxFeePerGas
	}
	if v.MaxPriorityFeePerGas != nil {
		maxTip = v.MaxPriorityFeePerGas
	}
	if maxTip.Cmp(maxFee) > 0 {
		maxTip = maxFee
	}
	delegated, err := sponsor.Delegated(ctx, from, params.Delegate)
	if err != nil {
		return nil, failed("delegation check", err)
	}
	var authNonce uint64
	if !delegated {
		if authNonce, err = a.Provider().PendingNonceAt(ctx, from); err != nil {
			return nil, failed("nonce", err)
		}
	}

	paymasterAddr := params.Paymaster
	op := &tx.UserOperation{
		Sender:                        from,
		Nonce:                         nonce,
		CallData:                      callData,
		MaxFeePerGas:                  new(big.Int).Set(maxFee),
		MaxPriorityFeePerGas:          new(big.Int).Set(maxTip),
		Paymaster:                     &paymasterAddr,
		PaymasterVerificationGasLimit: params.PaymasterVerificationGasLimit,
		PaymasterPostOpGasLimit:       params.PaymasterPostOpGasLimit,
	}

	err = s.wallets.WithSigner(acct.KeyPath, password, func(key *crypto.PrivateKey) error {
		data, err := sponsor.BuildSponsorship(ctx, token.Address, params.Paymaster, params.PermitAllowance, key)
		if err != nil {
			return err
		}
		op.PaymasterData = data.Bytes()

		if !delegated {
			auth, err := sponsor.BuildDelegationAuthorization(key, a.ChainID(), authNonce, params.Delegate)
			if err != nil {
				return err
			}
			factory := tx.Factory7702
			op.Factory = &factory
			op.Authorization = auth
		}

		if err := estimate(ctx, b, op, params.EntryPoint, v.GasLimit); err != nil {
			return err
		}

		hash, err := op.Hash(params.EntryPoint, a.ChainID())
		if err != nil {
			return err
		}
		sig, err := key.Sign(hash[:])
		if err != nil {
			return fmt.Errorf("sign user operation: %w", err)
		}
		op.Signature = crypto.ContractSignature(sig)
		return nil
	})
	if err != nil {
		return nil, failed("build user operation", err)
	}
	if err := f.advance(StateUserOperationAssembled); err != nil {
		return nil, failed("build user operation", err)
	}

	klog.Tx.Debug().
		Str("sender", from.Hex()).
		Str("nonce", nonce.String()).
		Bool("delegating", !delegated).
		Msg("User operation assembled")

	userOpHash, err := b.SendUserOperation(ctx, op, params.EntryPoint)
	if err != nil {
		return nil, failed("submission rejected", err)
	}
	return &Submission{
		Network:       a.Network(),
		From:          from,
		Hash:          userOpHash.Hex(),
		Sponsored:     true,
		UserOperation: op,
	}, nil
}

// estimate fills the account gas fields of op. With a caller gas limit the
// bundler is not asked; otherwise op is simulated with a dummy signature.
func estimate(ctx context.Context, b network.Bundler, op *tx.UserOperation, entryPoint common.Address, gasLimit uint64) error {
	if gasLimit > 0 {
		op.CallGasLimit = new(big.Int).SetUint64(gasLimit)
		op.VerificationGasLimit = new(big.Int).Set(DefaultVerificationGas)
		op.PreVerificationGas = new(big.Int).Set(DefaultPreVerificationGas)
		return nil
	}

	op.Signature = tx.DummySignature
	est, err := b.EstimateUserOperationGas(ctx, op, entryPoint)
	op.Signature = nil
	if err != nil {
		return fmt.Errorf("estimate user operation gas: %w", err)
	}
	op.CallGasLimit = est.CallGasLimit
	op.VerificationGasLimit = est.VerificationGasLimit
	op.PreVerificationGas = est.PreVerificationGas
	if est.PaymasterVerificationGasLimit != nil {
		op.PaymasterVerificationGasLimit = est.PaymasterVerificationGasLimit
	}
	if est.PaymasterPostOpGasLimit != nil {
		op.PaymasterPostOpGasLimit = est.PaymasterPostOpGasLimit
	}
	return nil
}

// entryPointNonce reads the sender's nonce for key 0 from the EntryPoint.
func entryPointNonce(ctx context.Context, p network.Provider, entryPoint, sender common.Address) (*big.Int, error) {
	data, err := tx.GetNonceData(sender, nil)
	if err != nil {
		return nil, err
	}
	out, err := p.CallContract(ctx, ethereum.CallMsg{To: &entryPoint, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("getNonce: %w", err)
	}
	return tx.UnpackBigInt(tx.EntryPointABI, "getNonce", out)
}
