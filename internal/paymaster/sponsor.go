// Package paymaster prepares the data an ERC-20 paymaster needs to sponsor
// a UserOperation: an EIP-2612 permit letting the paymaster pull its fee in
// the token, and, for accounts not yet delegated, an EIP-7702 authorization
// turning the EOA into a smart account.
package paymaster

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingnet-wallet/internal/bundler"
	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/network"
	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
	"github.com/Klingon-tech/klingnet-wallet/pkg/tx"
)

var (
	// ErrInsufficientSponsorBalance is returned when the account holds less
	// of the fee token than the sponsorship floor.
	ErrInsufficientSponsorBalance = errors.New("insufficient sponsor balance")

	// ErrNotSponsored is returned for networks without paymaster support.
	ErrNotSponsored = errors.New("network has no paymaster sponsorship")
)

// Sponsor builds sponsorship data for one network.
type Sponsor struct {
	provider network.Provider
	bundler  network.Bundler
	chainID  *big.Int
	params   *network.Sponsorship
}

// New returns the sponsor of adapter's network.
func New(a network.Adapter) (*Sponsor, error) {
	params, b, ok := a.Sponsorship()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSponsored, a.Network())
	}
	return &Sponsor{
		provider: a.Provider(),
		bundler:  b,
		chainID:  a.ChainID(),
		params:   params,
	}, nil
}

// TokenBalance returns owner's balance of token.
func (s *Sponsor) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := s.call(ctx, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return tx.UnpackBigInt(tx.ERC20ABI, "balanceOf", out)
}

// CheckFloor returns ErrInsufficientSponsorBalance when balance is below
// the network's sponsorship floor.
func (s *Sponsor) CheckFloor(balance *big.Int) error {
	if balance == nil || balance.Cmp(s.params.MinBalance) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientSponsorBalance, balance, s.params.MinBalance)
	}
	return nil
}

// BuildSponsorship signs a permit allowing spender to pull up to
// permitAmount of token from owner and packs it as paymaster data. The
// balance floor is checked before anything is signed.
func (s *Sponsor) BuildSponsorship(ctx context.Context, token, spender common.Address, permitAmount *big.Int, owner crypto.Signer) (*PaymasterData, error) {
	if permitAmount == nil || permitAmount.Sign() <= 0 {
		return nil, fmt.Errorf("permit amount must be positive")
	}
	addr := owner.Address()

	balance, err := s.TokenBalance(ctx, token, addr)
	if err != nil {
		return nil, fmt.Errorf("fee token balance: %w", err)
	}
	if err := s.CheckFloor(balance); err != nil {
		return nil, err
	}

	name, err := s.callString(ctx, token, "name")
	if err != nil {
		return nil, err
	}
	version, err := s.callString(ctx, token, "version")
	if err != nil {
		return nil, err
	}
	out, err := s.call(ctx, token, "nonces", addr)
	if err != nil {
		return nil, err
	}
	nonce, err := tx.UnpackBigInt(tx.ERC20ABI, "nonces", out)
	if err != nil {
		return nil, err
	}

	permit := &Permit{
		Token:    token,
		Name:     name,
		Version:  version,
		ChainID:  s.chainID,
		Owner:    addr,
		Spender:  spender,
		Value:    permitAmount,
		Nonce:    nonce,
		Deadline: MaxDeadline,
	}
	sig, err := permit.Sign(owner)
	if err != nil {
		return nil, err
	}

	klog.Paymaster.Debug().
		Str("owner", addr.Hex()).
		Str("token", token.Hex()).
		Str("spender", spender.Hex()).
		Str("nonce", nonce.String()).
		Msg("Permit signed")

	return &PaymasterData{
		Version:      DataVersion,
		Token:        token,
		PermitAmount: new(big.Int).Set(permitAmount),
		Signature:    sig,
	}, nil
}

// BuildDelegationAuthorization signs an EIP-7702 authorization delegating
// owner's code to delegate.
func (s *Sponsor) BuildDelegationAuthorization(owner crypto.Signer, chainID *big.Int, nonce uint64, delegate common.Address) (*tx.Authorization, error) {
	auth, err := tx.SignAuthorization(owner, chainID, delegate, nonce)
	if err != nil {
		return nil, err
	}
	klog.Paymaster.Debug().
		Str("owner", owner.Address().Hex()).
		Str("delegate", delegate.Hex()).
		Uint64("nonce", nonce).
		Msg("Delegation authorized")
	return auth, nil
}

// Delegated reports whether account's code already delegates to delegate.
func (s *Sponsor) Delegated(ctx context.Context, account, delegate common.Address) (bool, error) {
	code, err := s.provider.CodeAt(ctx, account, nil)
	if err != nil {
		return false, fmt.Errorf("code of %s: %w", account.Hex(), err)
	}
	return tx.IsDelegatedTo(code, delegate), nil
}

// GasPrice returns the standard tier of the bundler's gas-price oracle.
func (s *Sponsor) GasPrice(ctx context.Context) (*bundler.FeeTier, error) {
	gp, err := s.bundler.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	tier := gp.Standard
	return &tier, nil
}

func (s *Sponsor) call(ctx context.Context, token common.Address, method string, args ...any) ([]byte, error) {
	data, err := tx.ERC20Call(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	out, err := s.provider.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", method, token.Hex(), err)
	}
	return out, nil
}

func (s *Sponsor) callString(ctx context.Context, token common.Address, method string) (string, error) {
	out, err := s.call(ctx, token, method)
	if err != nil {
		return "", err
	}
	return tx.UnpackString(tx.ERC20ABI, method, out)
}
