// Package network binds the wallet core to a concrete execution network.
//
// Each supported network has its own Adapter: it knows the chain id, the
// tokens the wallet can move, how fees are priced and whether transfers can
// be sponsored through an ERC-4337 paymaster. Unsupported networks fail in
// New, never at lookup time.
package network

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Klingon-tech/klingnet-wallet/internal/bundler"
	"github.com/Klingon-tech/klingnet-wallet/pkg/tx"
)

// Provider is the subset of an Ethereum JSON-RPC client the wallet uses.
// *ethclient.Client satisfies it.
type Provider interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

var _ Provider = (*ethclient.Client)(nil)

// Dial connects to the JSON-RPC endpoint at url.
func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return c, nil
}

// Bundler is the subset of the ERC-4337 bundler API the wallet uses.
// *bundler.Client satisfies it.
type Bundler interface {
	GasPrice(ctx context.Context) (*bundler.GasPrice, error)
	EstimateUserOperationGas(ctx context.Context, op *tx.UserOperation, entryPoint common.Address) (*bundler.GasEstimate, error)
	SendUserOperation(ctx context.Context, op *tx.UserOperation, entryPoint common.Address) (common.Hash, error)
	UserOperationReceipt(ctx context.Context, hash common.Hash) (*bundler.UserOperationReceipt, error)
}

var _ Bundler = (*bundler.Client)(nil)
