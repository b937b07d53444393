// Package bundler is an ERC-4337 bundler client: it estimates, submits and
// tracks UserOperations and reads the bundler's gas-price oracle.
package bundler

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-wallet/pkg/tx"
)

// RPC methods.
const (
	methodSend        = "eth_sendUserOperation"
	methodEstimate    = "eth_estimateUserOperationGas"
	methodReceipt     = "eth_getUserOperationReceipt"
	methodEntryPoints = "eth_supportedEntryPoints"
	methodGasPrice    = "pimlico_getUserOperationGasPrice"
	methodChainID     = "eth_chainId"
)

// Client talks to one bundler endpoint.
type Client struct {
	rpc *rpcclient.Client
}

// New returns a client for the bundler at endpoint.
func New(endpoint string, opts ...rpcclient.Option) *Client {
	return &Client{rpc: rpcclient.New(endpoint, opts...)}
}

// FeeTier is one tier of the gas-price oracle.
type FeeTier struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// GasPrice is the oracle answer.
type GasPrice struct {
	Slow     FeeTier
	Standard FeeTier
	Fast     FeeTier
}

type feeTierJSON struct {
	MaxFeePerGas         *hexutil.Big `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big `json:"maxPriorityFeePerGas"`
}

func (f feeTierJSON) parse(name string) (FeeTier, error) {
	if f.MaxFeePerGas == nil || f.MaxPriorityFeePerGas == nil {
		return FeeTier{}, fmt.Errorf("gas price %s tier incomplete", name)
	}
	return FeeTier{
		MaxFeePerGas:         f.MaxFeePerGas.ToInt(),
		MaxPriorityFeePerGas: f.MaxPriorityFeePerGas.ToInt(),
	}, nil
}

// GasPrice reads the bundler's UserOperation gas-price oracle.
func (c *Client) GasPrice(ctx context.Context) (*GasPrice, error) {
	var raw struct {
		Slow     feeTierJSON `json:"slow"`
		Standard feeTierJSON `json:"standard"`
		Fast     feeTierJSON `json:"fast"`
	}
	if err := c.rpc.Call(ctx, methodGasPrice, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", methodGasPrice, err)
	}

	var (
		gp  GasPrice
		err error
	)
	if gp.Standard, err = raw.Standard.parse("standard"); err != nil {
		return nil, err
	}
	// Slow and fast fall back to standard when omitted.
	if gp.Slow, err = raw.Slow.parse("slow"); err != nil {
		gp.Slow = gp.Standard
	}
	if gp.Fast, err = raw.Fast.parse("fast"); err != nil {
		gp.Fast = gp.Standard
	}
	return &gp, nil
}

// GasEstimate is the bundler's gas estimate for a UserOperation.
type GasEstimate struct {
	PreVerificationGas            *big.Int
	VerificationGasLimit          *big.Int
	CallGasLimit                  *big.Int
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
}

// EstimateUserOperationGas asks the bundler to simulate op.
func (c *Client) EstimateUserOperationGas(ctx context.Context, op *tx.UserOperation, entryPoint common.Address) (*GasEstimate, error) {
	var raw struct {
		PreVerificationGas            *hexutil.Big `json:"preVerificationGas"`
		VerificationGasLimit          *hexutil.Big `json:"verificationGasLimit"`
		CallGasLimit                  *hexutil.Big `json:"callGasLimit"`
		PaymasterVerificationGasLimit *hexutil.Big `json:"paymasterVerificationGasLimit"`
		PaymasterPostOpGasLimit       *hexutil.Big `json:"paymasterPostOpGasLimit"`
	}
	if err := c.rpc.Call(ctx, methodEstimate, &raw, op, entryPoint); err != nil {
		return nil, fmt.Errorf("%s: %w", methodEstimate, err)
	}
	if raw.PreVerificationGas == nil || raw.VerificationGasLimit == nil || raw.CallGasLimit == nil {
		return nil, fmt.Errorf("%s: incomplete estimate", methodEstimate)
	}
	est := &GasEstimate{
		PreVerificationGas:   raw.PreVerificationGas.ToInt(),
		VerificationGasLimit: raw.VerificationGasLimit.ToInt(),
		CallGasLimit:         raw.CallGasLimit.ToInt(),
	}
	if raw.PaymasterVerificationGasLimit != nil {
		est.PaymasterVerificationGasLimit = raw.PaymasterVerificationGasLimit.ToInt()
	}
	if raw.PaymasterPostOpGasLimit != nil {
		est.PaymasterPostOpGasLimit = raw.PaymasterPostOpGasLimit.ToInt()
	}
	return est, nil
}

// SendUserOperation submits a signed op and returns its userOpHash.
func (c *Client) SendUserOperation(ctx context.Context, op *tx.UserOperation, entryPoint common.Address) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpc.Call(ctx, methodSend, &hash, op, entryPoint); err != nil {
		return common.Hash{}, fmt.Errorf("%s: %w", methodSend, err)
	}
	if hash == (common.Hash{}) {
		return common.Hash{}, fmt.Errorf("%s: empty user operation hash", methodSend)
	}
	klog.Network.Debug().
		Str("user_op_hash", hash.Hex()).
		Str("sender", op.Sender.Hex()).
		Msg("User operation sent")
	return hash, nil
}

// UserOperationReceipt is the outcome of an included UserOperation.
type UserOperationReceipt struct {
	UserOpHash      common.Hash
	Sender          common.Address
	Success         bool
	Reason          string
	ActualGasCost   *big.Int
	ActualGasUsed   *big.Int
	TransactionHash common.Hash
}

// UserOperationReceipt returns the receipt for hash, or nil while the
// operation has not been included.
func (c *Client) UserOperationReceipt(ctx context.Context, hash common.Hash) (*UserOperationReceipt, error) {
	var raw *struct {
		UserOpHash    common.Hash    `json:"userOpHash"`
		Sender        common.Address `json:"sender"`
		Success       bool           `json:"success"`
		Reason        string         `json:"reason"`
		ActualGasCost *hexutil.Big   `json:"actualGasCost"`
		ActualGasUsed *hexutil.Big   `json:"actualGasUsed"`
		Receipt       struct {
			TransactionHash common.Hash `json:"transactionHash"`
		} `json:"receipt"`
	}
	if err := c.rpc.Call(ctx, methodReceipt, &raw, hash); err != nil {
		return nil, fmt.Errorf("%s: %w", methodReceipt, err)
	}
	if raw == nil {
		return nil, nil
	}
	r := &UserOperationReceipt{
		UserOpHash:      raw.UserOpHash,
		Sender:          raw.Sender,
		Success:         raw.Success,
		Reason:          raw.Reason,
		TransactionHash: raw.Receipt.TransactionHash,
	}
	if raw.ActualGasCost != nil {
		r.ActualGasCost = raw.ActualGasCost.ToInt()
	}
	if raw.ActualGasUsed != nil {
		r.ActualGasUsed = raw.ActualGasUsed.ToInt()
	}
	return r, nil
}

// SupportedEntryPoints lists the EntryPoints the bundler accepts.
func (c *Client) SupportedEntryPoints(ctx context.Context) ([]common.Address, error) {
	var eps []common.Address
	if err := c.rpc.Call(ctx, methodEntryPoints, &eps); err != nil {
		return nil, fmt.Errorf("%s: %w", methodEntryPoints, err)
	}
	return eps, nil
}

// ChainID returns the chain the bundler serves.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := c.rpc.Call(ctx, methodChainID, &id); err != nil {
		return nil, fmt.Errorf("%s: %w", methodChainID, err)
	}
	return id.ToInt(), nil
}
