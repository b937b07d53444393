package network

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/klingnet-wallet/internal/bundler"
	"github.com/Klingon-tech/klingnet-wallet/internal/network/testutil"
	"github.com/Klingon-tech/klingnet-wallet/internal/pending"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

func TestNew_Networks(t *testing.T) {
	tests := []struct {
		net       types.Network
		chainID   int64
		legacy    bool
		sponsored bool
		usdc      string
	}{
		{types.Mainnet, 1, false, true, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
		{types.Sepolia, 11155111, false, true, "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"},
		{types.ZkSync, 324, true, false, "0x1d17CBcF0D6D143135aE902365D2E5e2A16538D4"},
	}
	for _, tt := range tests {
		t.Run(tt.net.String(), func(t *testing.T) {
			p := testutil.NewProvider(tt.chainID)
			b := testutil.NewBundler(EntryPointV08, tt.chainID)

			a, err := New(tt.net, Endpoints{}, p, b)
			require.NoError(t, err)
			assert.Equal(t, tt.net, a.Network())
			assert.Equal(t, big.NewInt(tt.chainID), a.ChainID())
			assert.Equal(t, tt.legacy, a.LegacyPricing())

			_, _, ok := a.Sponsorship()
			assert.Equal(t, tt.sponsored, ok)

			tok, err := a.Token("usdc")
			require.NoError(t, err)
			assert.Equal(t, common.HexToAddress(tt.usdc), tok.Address)
			assert.Equal(t, 6, tok.Decimals)
			assert.Equal(t, tt.sponsored, tok.Sponsored)

			eth, err := a.Token("")
			require.NoError(t, err)
			assert.True(t, eth.Native())
			assert.Equal(t, 18, eth.Decimals)

			assert.Len(t, a.Tokens(), 2)
			require.NoError(t, a.VerifyChain(context.Background()))
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(types.Network("polygon"), Endpoints{}, testutil.NewProvider(137), nil)
	assert.ErrorIs(t, err, types.ErrUnknownNetwork)

	_, err = New(types.Mainnet, Endpoints{}, nil, nil)
	assert.Error(t, err)
}

func TestToken_Unknown(t *testing.T) {
	a, err := New(types.Mainnet, Endpoints{}, testutil.NewProvider(1), nil)
	require.NoError(t, err)
	_, err = a.Token("DOGE")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestSponsorship_DefaultsAndOverrides(t *testing.T) {
	p := testutil.NewProvider(11155111)
	b := testutil.NewBundler(EntryPointV08, 11155111)

	a, err := New(types.Sepolia, Endpoints{}, p, b)
	require.NoError(t, err)
	s, got, ok := a.Sponsorship()
	require.True(t, ok)
	assert.Same(t, b, got)
	assert.Equal(t, EntryPointV08, s.EntryPoint)
	assert.Equal(t, common.HexToAddress("0x3BA9A96eE3eFf3A69E2B18886AcF52027EFF8966"), s.Paymaster)
	assert.Equal(t, Simple7702Account, s.Delegate)
	assert.Equal(t, big.NewInt(1_000_000), s.MinBalance)
	assert.Equal(t, big.NewInt(10_000_000), s.PermitAllowance)
	assert.Equal(t, big.NewInt(200_000), s.PaymasterVerificationGasLimit)
	assert.Equal(t, big.NewInt(15_000), s.PaymasterPostOpGasLimit)

	pm := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	a, err = New(types.Sepolia, Endpoints{Paymaster: pm, MinBalance: big.NewInt(5)}, p, b)
	require.NoError(t, err)
	s, _, _ = a.Sponsorship()
	assert.Equal(t, pm, s.Paymaster)
	assert.Equal(t, big.NewInt(5), s.MinBalance)

	// Mutating the returned copy leaves the adapter untouched.
	s.MinBalance.SetInt64(99)
	s2, _, _ := a.Sponsorship()
	assert.Equal(t, big.NewInt(5), s2.MinBalance)
}

func TestSponsorship_NeedsBundler(t *testing.T) {
	a, err := New(types.Mainnet, Endpoints{}, testutil.NewProvider(1), nil)
	require.NoError(t, err)
	_, _, ok := a.Sponsorship()
	assert.False(t, ok)
}

func TestFees(t *testing.T) {
	ctx := context.Background()

	t.Run("eip1559", func(t *testing.T) {
		p := testutil.NewProvider(1)
		a, err := New(types.Mainnet, Endpoints{}, p, nil)
		require.NoError(t, err)
		fees, err := a.Fees(ctx)
		require.NoError(t, err)
		assert.False(t, fees.Legacy())
		// 2 * 1 gwei + 2 gwei
		assert.Equal(t, big.NewInt(4_000_000_000), fees.GasFeeCap)
		assert.Equal(t, big.NewInt(2_000_000_000), fees.GasTipCap)
	})

	t.Run("no base fee", func(t *testing.T) {
		p := testutil.NewProvider(11155111)
		p.BaseFee = nil
		a, err := New(types.Sepolia, Endpoints{}, p, nil)
		require.NoError(t, err)
		fees, err := a.Fees(ctx)
		require.NoError(t, err)
		assert.True(t, fees.Legacy())
	})

	t.Run("zksync legacy", func(t *testing.T) {
		p := testutil.NewProvider(324)
		a, err := New(types.ZkSync, Endpoints{}, p, nil)
		require.NoError(t, err)
		fees, err := a.Fees(ctx)
		require.NoError(t, err)
		assert.True(t, fees.Legacy())
		assert.Equal(t, big.NewInt(3_000_000_000), fees.GasPrice)
		assert.Zero(t, p.CallCount("eth_getBlockByNumber"))
	})
}

func TestVerifyChain_Mismatch(t *testing.T) {
	a, err := New(types.Mainnet, Endpoints{}, testutil.NewProvider(11155111), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, a.VerifyChain(context.Background()), ErrChainMismatch)
}

type fakeBundlerInfo struct {
	chainID *big.Int
	eps     []common.Address
	err     error
}

func (f fakeBundlerInfo) ChainID(context.Context) (*big.Int, error) { return f.chainID, f.err }

func (f fakeBundlerInfo) SupportedEntryPoints(context.Context) ([]common.Address, error) {
	return f.eps, f.err
}

func TestCheckBundler(t *testing.T) {
	sepolia := big.NewInt(11155111)
	tests := []struct {
		name    string
		b       fakeBundlerInfo
		wantErr bool
	}{
		{"match", fakeBundlerInfo{chainID: sepolia, eps: []common.Address{{0x01}, EntryPointV08}}, false},
		{"other chain", fakeBundlerInfo{chainID: big.NewInt(1), eps: []common.Address{EntryPointV08}}, true},
		{"no entry point", fakeBundlerInfo{chainID: sepolia, eps: []common.Address{{0x01}}}, true},
		{"unreachable", fakeBundlerInfo{err: errors.New("dial tcp: refused")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBundler(context.Background(), tt.b, sepolia, EntryPointV08)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBundlerMismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	p := testutil.NewProvider(11155111)
	b := testutil.NewBundler(EntryPointV08, 11155111)
	a, err := New(types.Sepolia, Endpoints{}, p, b)
	require.NoError(t, err)

	okTx := common.HexToHash("0x01")
	badTx := common.HexToHash("0x02")
	okOp := common.HexToHash("0x03")
	badOp := common.HexToHash("0x04")
	unknown := common.HexToHash("0x05")

	p.SetReceipt(okTx, ethtypes.ReceiptStatusSuccessful)
	p.SetReceipt(badTx, ethtypes.ReceiptStatusFailed)
	b.Receipts[okOp] = &bundler.UserOperationReceipt{UserOpHash: okOp, Success: true}
	b.Receipts[badOp] = &bundler.UserOperationReceipt{UserOpHash: badOp, Success: false}

	tests := []struct {
		hash common.Hash
		want pending.Status
	}{
		{okTx, pending.StatusConfirmed},
		{badTx, pending.StatusFailed},
		{okOp, pending.StatusConfirmed},
		{badOp, pending.StatusFailed},
		{unknown, pending.StatusUnknown},
	}
	for _, tt := range tests {
		got, err := a.Status(ctx, tt.hash.Hex())
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.hash.Hex())
	}
}

func TestStatus_Errors(t *testing.T) {
	ctx := context.Background()
	p := testutil.NewProvider(1)
	b := testutil.NewBundler(EntryPointV08, 1)
	a, err := New(types.Mainnet, Endpoints{}, p, b)
	require.NoError(t, err)

	_, err = a.Status(ctx, "0x1234")
	assert.Error(t, err)

	p.ReceiptErr = errors.New("connection refused")
	st, err := a.Status(ctx, common.HexToHash("0x01").Hex())
	assert.Error(t, err)
	assert.Equal(t, pending.StatusUnknown, st)

	p.ReceiptErr = nil
	b.ReceiptErr = errors.New("bundler down")
	st, err = a.Status(ctx, common.HexToHash("0x01").Hex())
	assert.Error(t, err)
	assert.Equal(t, pending.StatusUnknown, st)
}

func TestStatus_NoBundler(t *testing.T) {
	a, err := New(types.ZkSync, Endpoints{}, testutil.NewProvider(324), nil)
	require.NoError(t, err)
	st, err := a.Status(context.Background(), common.HexToHash("0x01").Hex())
	require.NoError(t, err)
	assert.Equal(t, pending.StatusUnknown, st)
}
