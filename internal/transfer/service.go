// Package transfer turns a user's transfer intent into a signed, submitted
// transaction. Native assets and unsponsored tokens are sent as plain
// legacy or EIP-1559 transactions; sponsored tokens are sent as ERC-4337
// UserOperations whose gas a paymaster pays in exchange for a permit.
package transfer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/metrics"
	"github.com/Klingon-tech/klingnet-wallet/internal/network"
	"github.com/Klingon-tech/klingnet-wallet/internal/pending"
	"github.com/Klingon-tech/klingnet-wallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-wallet/pkg/tx"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

// Config holds the collaborators of a Service.
type Config struct {
	Wallets  *wallet.Manager
	Pending  *pending.Tracker
	Adapters []network.Adapter
	Metrics  *metrics.Metrics
}

// Service sends transfers.
type Service struct {
	wallets  *wallet.Manager
	pending  *pending.Tracker
	adapters map[types.Network]network.Adapter
	metrics  *metrics.Metrics

	// locks holds one *sync.Mutex per account key-path.
	locks sync.Map
}

// NewService returns a Service over cfg.
func NewService(cfg Config) (*Service, error) {
	if cfg.Wallets == nil || cfg.Pending == nil {
		return nil, fmt.Errorf("transfer service needs wallets and pending tracker")
	}
	s := &Service{
		wallets:  cfg.Wallets,
		pending:  cfg.Pending,
		adapters: make(map[types.Network]network.Adapter, len(cfg.Adapters)),
		metrics:  cfg.Metrics,
	}
	for _, a := range cfg.Adapters {
		s.adapters[a.Network()] = a
	}
	return s, nil
}

// Request is one transfer to send.
type Request struct {
	Network  types.Network
	KeyPath  string
	Password []byte
	Intent   tx.Intent
}

// Submission is a transfer accepted by the network.
type Submission struct {
	Network types.Network
	From    common.Address
	// Hash is the transaction hash, or the userOpHash of a sponsored transfer.
	Hash      string
	Sponsored bool
	State     State

	// Exactly one of Transaction and UserOperation is set.
	Transaction   *ethtypes.Transaction
	UserOperation *tx.UserOperation
}

// Send validates, signs and submits req. Transfers of the same account are
// serialized so that nonces are read and used in submission order. Every
// failure is a *TransactionFailedError; nothing is retried.
func (s *Service) Send(ctx context.Context, req Request) (*Submission, error) {
	start := time.Now()
	path := metrics.PathNative

	sub, err := s.send(ctx, req, &path)
	if err != nil {
		s.metrics.Submission(path, metrics.ResultFailed, time.Since(start))
		klog.Tx.Warn().
			Err(err).
			Str("network", req.Network.String()).
			Str("key_path", req.KeyPath).
			Str("path", path).
			Msg("Transfer failed")
		return nil, err
	}
	s.metrics.Submission(path, metrics.ResultSubmitted, time.Since(start))
	return sub, nil
}

func (s *Service) send(ctx context.Context, req Request, path *string) (*Submission, error) {
	f := &flow{state: StateIntent}

	adapter, ok := s.adapters[req.Network]
	if !ok {
		return nil, failed("unsupported network", fmt.Errorf("%w %q", types.ErrUnknownNetwork, req.Network))
	}
	acct, err := s.wallets.Accounts.Get(req.KeyPath)
	if err != nil {
		return nil, failed("account lookup", err)
	}
	token, err := adapter.Token(req.Intent.Token)
	if err != nil {
		return nil, failed("unknown token", err)
	}
	v, err := req.Intent.Validate(token.Decimals)
	if err != nil {
		return nil, failed("invalid intent", err)
	}
	if err := f.advance(StateValidated); err != nil {
		return nil, failed("validate", err)
	}
	if err := s.wallets.VerifyPassword(req.Password); err != nil {
		return nil, failed("verify password", err)
	}

	mu := s.accountLock(req.KeyPath)
	mu.Lock()
	defer mu.Unlock()

	sponsorship, b, sponsored := adapter.Sponsorship()
	sponsored = sponsored && token.Sponsored

	var sub *Submission
	if sponsored {
		*path = metrics.PathSponsored
		sub, err = s.sendSponsored(ctx, f, adapter, sponsorship, b, acct, req.Password, token, v)
	} else {
		sub, err = s.sendNative(ctx, f, adapter, acct, req.Password, token, v)
	}
	if err != nil {
		return nil, err
	}

	if err := f.advance(StateSubmitted); err != nil {
		return nil, failed("submit", err)
	}
	sub.State = f.state

	// The transfer is on the network; a local bookkeeping failure must not
	// turn it into an error the user would retry.
	if err := s.pending.Record(req.Network, acct.Address, sub.Hash); err != nil {
		klog.Tx.Error().Err(err).Str("hash", sub.Hash).Msg("Recording pending transaction failed")
	}

	klog.Tx.Info().
		Str("network", req.Network.String()).
		Str("from", acct.Address.Hex()).
		Str("to", v.To.Hex()).
		Str("token", token.Symbol).
		Str("amount", types.FormatUnits(v.Value, token.Decimals)).
		Bool("sponsored", sub.Sponsored).
		Str("hash", sub.Hash).
		Msg("Transfer submitted")
	return sub, nil
}

func (s *Service) accountLock(keyPath string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(keyPath, new(sync.Mutex))
	return mu.(*sync.Mutex)
}

// Outcome is the result of a Confirm call.
type Outcome struct {
	Hash  string
	State State
}

// Confirm reconciles the pending transfers of the account at keyPath and
// returns the ones that reached a final state. Transfers whose status is
// unknown or could not be read stay pending and are not returned.
func (s *Service) Confirm(ctx context.Context, net types.Network, keyPath string) ([]Outcome, error) {
	adapter, ok := s.adapters[net]
	if !ok {
		return nil, fmt.Errorf("%w %q", types.ErrUnknownNetwork, net)
	}
	acct, err := s.wallets.Accounts.Get(keyPath)
	if err != nil {
		return nil, err
	}
	res, err := s.pending.Reconcile(ctx, net, acct.Address, adapter)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(res.Confirmed)+len(res.Failed))
	for _, h := range res.Confirmed {
		outcomes = append(outcomes, Outcome{Hash: h, State: StateConfirmed})
	}
	for _, h := range res.Failed {
		outcomes = append(outcomes, Outcome{Hash: h, State: StateFailed})
	}
	return outcomes, nil
}
