package network

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingnet-wallet/internal/bundler"
	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/pending"
	"github.com/Klingon-tech/klingnet-wallet/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-wallet/pkg/tx"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

// Well-known contracts.
var (
	// EntryPointV08 is the ERC-4337 v0.8 EntryPoint, same address on every chain.
	EntryPointV08 = common.HexToAddress("0x4337084D9E255Ff0702461CF8895CE9E3b5Ff108")
	// Simple7702Account is the account implementation EOAs delegate to.
	Simple7702Account = common.HexToAddress("0xe6Cae83BdE06E4c305530e199D7217f42808555B")

	circlePaymasterMainnet = common.HexToAddress("0x0578cFB241215b77442a541325d6A4E6dFE700Ec")
	circlePaymasterTestnet = common.HexToAddress("0x3BA9A96eE3eFf3A69E2B18886AcF52027EFF8966")
)

// Sponsorship defaults.
var (
	// DefaultMinSponsorBalance is the fee-token floor below which sponsored
	// transfers are refused: 1 USDC.
	DefaultMinSponsorBalance = big.NewInt(1_000_000)
	// DefaultPermitAllowance is the amount the paymaster may pull: 10 USDC.
	DefaultPermitAllowance = big.NewInt(10_000_000)

	DefaultPaymasterVerificationGas = big.NewInt(200_000)
	DefaultPaymasterPostOpGas       = big.NewInt(15_000)
)

// ErrChainMismatch is returned when the RPC endpoint serves another chain.
var ErrChainMismatch = errors.New("chain id mismatch")

// Sponsorship holds the ERC-4337 parameters of a sponsored network.
type Sponsorship struct {
	EntryPoint common.Address
	Paymaster  common.Address
	Delegate   common.Address

	MinBalance      *big.Int
	PermitAllowance *big.Int

	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
}

func (s *Sponsorship) copy() *Sponsorship {
	c := *s
	c.MinBalance = new(big.Int).Set(s.MinBalance)
	c.PermitAllowance = new(big.Int).Set(s.PermitAllowance)
	c.PaymasterVerificationGasLimit = new(big.Int).Set(s.PaymasterVerificationGasLimit)
	c.PaymasterPostOpGasLimit = new(big.Int).Set(s.PaymasterPostOpGasLimit)
	return &c
}

// Endpoints configures an adapter. Zero values keep the network defaults.
type Endpoints struct {
	RPC            string
	Bundler        string
	BundlerTimeout time.Duration

	EntryPoint common.Address
	Paymaster  common.Address
	Delegate   common.Address

	// Sponsor limits in fee-token base units.
	MinBalance      *big.Int
	PermitAllowance *big.Int
}

// Adapter is the wallet's view of one network.
type Adapter interface {
	Network() types.Network
	ChainID() *big.Int
	Provider() Provider

	Tokens() []Token
	Token(symbol string) (Token, error)

	// LegacyPricing reports whether transactions use a single gas price
	// instead of EIP-1559 fee caps.
	LegacyPricing() bool
	// Fees returns suggested fees for a native transaction.
	Fees(ctx context.Context) (tx.Fees, error)
	// VerifyChain checks that the provider serves this network.
	VerifyChain(ctx context.Context) error

	// Sponsorship returns the paymaster parameters and the bundler that
	// carries sponsored operations. ok is false when transfers on this
	// network cannot be sponsored.
	Sponsorship() (s *Sponsorship, b Bundler, ok bool)

	pending.StatusChecker
}

// New returns the adapter for net.
func New(net types.Network, ep Endpoints, provider Provider, b Bundler) (Adapter, error) {
	if provider == nil {
		return nil, fmt.Errorf("network %s: nil provider", net)
	}
	switch net {
	case types.Mainnet:
		return newMainnet(ep, provider, b), nil
	case types.Sepolia:
		return newSepolia(ep, provider, b), nil
	case types.ZkSync:
		return newZkSync(provider), nil
	default:
		return nil, fmt.Errorf("%w %q", types.ErrUnknownNetwork, string(net))
	}
}

// Connect dials ep.RPC, creates a bundler client when ep.Bundler is set and
// returns the adapter for net.
func Connect(ctx context.Context, net types.Network, ep Endpoints) (Adapter, error) {
	if !net.Valid() {
		return nil, fmt.Errorf("%w %q", types.ErrUnknownNetwork, string(net))
	}
	provider, err := Dial(ctx, ep.RPC)
	if err != nil {
		return nil, err
	}
	var (
		b  Bundler
		bc *bundler.Client
	)
	if ep.Bundler != "" {
		bc = bundler.New(ep.Bundler,
			rpcclient.WithTimeout(ep.BundlerTimeout),
			rpcclient.WithHeader("User-Agent", UserAgent),
		)
		b = bc
	}
	a, err := New(net, ep, provider, b)
	if err != nil {
		provider.Close()
		return nil, err
	}
	if sp, _, ok := a.Sponsorship(); ok && bc != nil {
		if err := checkBundler(ctx, bc, a.ChainID(), sp.EntryPoint); err != nil {
			provider.Close()
			return nil, err
		}
	}
	klog.Network.Debug().
		Str("network", net.String()).
		Bool("bundler", b != nil).
		Msg("Network adapter ready")
	return a, nil
}

// UserAgent is sent with every bundler request.
const UserAgent = "klingwallet"

// ErrBundlerMismatch is returned when the configured bundler serves another
// chain or does not accept the EntryPoint.
var ErrBundlerMismatch = errors.New("bundler does not match network")

// bundlerInfo is what Connect asks a bundler about itself.
type bundlerInfo interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SupportedEntryPoints(ctx context.Context) ([]common.Address, error)
}

// checkBundler confirms the bundler serves chainID and accepts entryPoint.
// A bundler that cannot be reached is only logged; sends will fail later
// with the actual error.
func checkBundler(ctx context.Context, b bundlerInfo, chainID *big.Int, entryPoint common.Address) error {
	id, err := b.ChainID(ctx)
	if err != nil {
		klog.Network.Warn().Err(err).Msg("Bundler chain id unavailable")
		return nil
	}
	if id.Cmp(chainID) != 0 {
		return fmt.Errorf("%w: bundler chain id %s, network chain id %s", ErrBundlerMismatch, id, chainID)
	}
	eps, err := b.SupportedEntryPoints(ctx)
	if err != nil {
		klog.Network.Warn().Err(err).Msg("Bundler entry points unavailable")
		return nil
	}
	for _, ep := range eps {
		if ep == entryPoint {
			return nil
		}
	}
	return fmt.Errorf("%w: entry point %s not supported", ErrBundlerMismatch, entryPoint.Hex())
}

// base carries what every adapter shares.
type base struct {
	network  types.Network
	chainID  *big.Int
	provider Provider
	tokens   tokenTable

	sponsor *Sponsorship
	bundler Bundler
}

func (a *base) Network() types.Network { return a.network }
func (a *base) ChainID() *big.Int      { return new(big.Int).Set(a.chainID) }
func (a *base) Provider() Provider     { return a.provider }
func (a *base) Tokens() []Token        { return a.tokens.list() }

func (a *base) Token(symbol string) (Token, error) {
	return a.tokens.lookup(symbol)
}

func (a *base) VerifyChain(ctx context.Context) error {
	id, err := a.provider.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	if id.Cmp(a.chainID) != 0 {
		return fmt.Errorf("%w: %s expects %s, endpoint serves %s", ErrChainMismatch, a.network, a.chainID, id)
	}
	return nil
}

func (a *base) Sponsorship() (*Sponsorship, Bundler, bool) {
	if a.sponsor == nil || a.bundler == nil {
		return nil, nil, false
	}
	return a.sponsor.copy(), a.bundler, true
}

func (a *base) Status(ctx context.Context, hash string) (pending.Status, error) {
	return checkStatus(ctx, a.provider, a.bundler, hash)
}

// dynamicFees prices EIP-1559 transactions from the latest base fee.
func dynamicFees(ctx context.Context, p Provider) (tx.Fees, error) {
	head, err := p.HeaderByNumber(ctx, nil)
	if err != nil {
		return tx.Fees{}, fmt.Errorf("latest header: %w", err)
	}
	if head.BaseFee == nil {
		return legacyFees(ctx, p)
	}
	tip, err := p.SuggestGasTipCap(ctx)
	if err != nil {
		return tx.Fees{}, fmt.Errorf("suggest tip: %w", err)
	}
	return tx.DynamicFees(head.BaseFee, tip), nil
}

func legacyFees(ctx context.Context, p Provider) (tx.Fees, error) {
	price, err := p.SuggestGasPrice(ctx)
	if err != nil {
		return tx.Fees{}, fmt.Errorf("suggest gas price: %w", err)
	}
	return tx.LegacyFees(price), nil
}

func sponsorship(ep Endpoints, paymaster common.Address) *Sponsorship {
	s := &Sponsorship{
		EntryPoint:                    EntryPointV08,
		Paymaster:                     paymaster,
		Delegate:                      Simple7702Account,
		MinBalance:                    new(big.Int).Set(DefaultMinSponsorBalance),
		PermitAllowance:               new(big.Int).Set(DefaultPermitAllowance),
		PaymasterVerificationGasLimit: new(big.Int).Set(DefaultPaymasterVerificationGas),
		PaymasterPostOpGasLimit:       new(big.Int).Set(DefaultPaymasterPostOpGas),
	}
	if ep.EntryPoint != (common.Address{}) {
		s.EntryPoint = ep.EntryPoint
	}
	if ep.Paymaster != (common.Address{}) {
		s.Paymaster = ep.Paymaster
	}
	if ep.Delegate != (common.Address{}) {
		s.Delegate = ep.Delegate
	}
	if ep.MinBalance != nil {
		s.MinBalance = new(big.Int).Set(ep.MinBalance)
	}
	if ep.PermitAllowance != nil {
		s.PermitAllowance = new(big.Int).Set(ep.PermitAllowance)
	}
	return s
}

// mainnetAdapter is Ethereum mainnet: EIP-1559 fees, USDC sponsored by the
// Circle paymaster.
type mainnetAdapter struct{ base }

func newMainnet(ep Endpoints, p Provider, b Bundler) *mainnetAdapter {
	return &mainnetAdapter{base{
		network:  types.Mainnet,
		chainID:  big.NewInt(1),
		provider: p,
		tokens:   tokenTable{native, usdc("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", true)},
		sponsor:  sponsorship(ep, circlePaymasterMainnet),
		bundler:  b,
	}}
}

func (a *mainnetAdapter) LegacyPricing() bool { return false }

func (a *mainnetAdapter) Fees(ctx context.Context) (tx.Fees, error) {
	return dynamicFees(ctx, a.provider)
}

// sepoliaAdapter is the Sepolia testnet, priced and sponsored like mainnet.
type sepoliaAdapter struct{ base }

func newSepolia(ep Endpoints, p Provider, b Bundler) *sepoliaAdapter {
	return &sepoliaAdapter{base{
		network:  types.Sepolia,
		chainID:  big.NewInt(11155111),
		provider: p,
		tokens:   tokenTable{native, usdc("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", true)},
		sponsor:  sponsorship(ep, circlePaymasterTestnet),
		bundler:  b,
	}}
}

func (a *sepoliaAdapter) LegacyPricing() bool { return false }

func (a *sepoliaAdapter) Fees(ctx context.Context) (tx.Fees, error) {
	return dynamicFees(ctx, a.provider)
}

// zkSyncAdapter is zkSync Era. Transfers are plain legacy-priced
// transactions; there is no paymaster sponsorship.
type zkSyncAdapter struct{ base }

func newZkSync(p Provider) *zkSyncAdapter {
	return &zkSyncAdapter{base{
		network:  types.ZkSync,
		chainID:  big.NewInt(324),
		provider: p,
		tokens:   tokenTable{native, usdc("0x1d17CBcF0D6D143135aE902365D2E5e2A16538D4", false)},
	}}
}

func (a *zkSyncAdapter) LegacyPricing() bool { return true }

func (a *zkSyncAdapter) Fees(ctx context.Context) (tx.Fees, error) {
	return legacyFees(ctx, a.provider)
}
