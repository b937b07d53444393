// Package testutil provides in-memory fakes of the network collaborators:
// a JSON-RPC provider backed by maps and a bundler that records what it is
// sent. They are for tests only.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/Klingon-tech/klingnet-wallet/internal/bundler"
	"github.com/Klingon-tech/klingnet-wallet/pkg/crypto"
	"github.com/Klingon-tech/klingnet-wallet/pkg/tx"
)

// ERC20 is the state of a fake permit-capable token.
type ERC20 struct {
	Name     string
	Version  string
	Decimals uint8
	Balances map[common.Address]*big.Int
	Nonces   map[common.Address]*big.Int
}

// Provider is a fake chain. Zero-valued fields answer with zero values.
type Provider struct {
	mu sync.Mutex

	Chain    *big.Int
	BaseFee  *big.Int
	Tip      *big.Int
	GasPrice *big.Int
	Gas      uint64

	Nonces   map[common.Address]uint64
	Balances map[common.Address]*big.Int
	Code     map[common.Address][]byte
	Tokens   map[common.Address]*ERC20
	// EntryPointNonces answers getNonce on any address.
	EntryPointNonces map[common.Address]*big.Int
	Receipts         map[common.Hash]*ethtypes.Receipt

	// Errors returned by the named calls when set.
	ReceiptErr error
	SendErr    error
	CallErr    error

	Sent  []*ethtypes.Transaction
	Calls []string
}

// NewProvider returns a fake chain with id chainID, a 1 gwei base fee and a
// 2 gwei tip.
func NewProvider(chainID int64) *Provider {
	return &Provider{
		Chain:            big.NewInt(chainID),
		BaseFee:          big.NewInt(1_000_000_000),
		Tip:              big.NewInt(2_000_000_000),
		GasPrice:         big.NewInt(3_000_000_000),
		Gas:              21_000,
		Nonces:           make(map[common.Address]uint64),
		Balances:         make(map[common.Address]*big.Int),
		Code:             make(map[common.Address][]byte),
		Tokens:           make(map[common.Address]*ERC20),
		EntryPointNonces: make(map[common.Address]*big.Int),
		Receipts:         make(map[common.Hash]*ethtypes.Receipt),
	}
}

// SetToken registers a token contract at addr.
func (p *Provider) SetToken(addr common.Address, t *ERC20) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.Balances == nil {
		t.Balances = make(map[common.Address]*big.Int)
	}
	if t.Nonces == nil {
		t.Nonces = make(map[common.Address]*big.Int)
	}
	p.Tokens[addr] = t
}

// SetReceipt stores a receipt with the given status for hash.
func (p *Provider) SetReceipt(hash common.Hash, status uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Receipts[hash] = &ethtypes.Receipt{TxHash: hash, Status: status}
}

// CallCount returns how often method was called.
func (p *Provider) CallCount(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		if c == method {
			n++
		}
	}
	return n
}

// SentTransactions returns a copy of the transactions sent so far.
func (p *Provider) SentTransactions() []*ethtypes.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*ethtypes.Transaction(nil), p.Sent...)
}

func (p *Provider) record(method string) {
	p.Calls = append(p.Calls, method)
}

func (p *Provider) ChainID(context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_chainId")
	return new(big.Int).Set(p.Chain), nil
}

func (p *Provider) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_getTransactionCount")
	return p.Nonces[account], nil
}

func (p *Provider) SuggestGasTipCap(context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_maxPriorityFeePerGas")
	return new(big.Int).Set(p.Tip), nil
}

func (p *Provider) SuggestGasPrice(context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_gasPrice")
	return new(big.Int).Set(p.GasPrice), nil
}

func (p *Provider) HeaderByNumber(context.Context, *big.Int) (*ethtypes.Header, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_getBlockByNumber")
	h := &ethtypes.Header{Number: big.NewInt(1)}
	if p.BaseFee != nil {
		h.BaseFee = new(big.Int).Set(p.BaseFee)
	}
	return h, nil
}

func (p *Provider) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_estimateGas")
	return p.Gas, nil
}

func (p *Provider) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_getBalance")
	if b, ok := p.Balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (p *Provider) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_getCode")
	return append([]byte(nil), p.Code[account]...), nil
}

// CallContract answers ERC-20 reads on registered tokens and EntryPoint
// getNonce on any other address.
func (p *Provider) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_call")
	if p.CallErr != nil {
		return nil, p.CallErr
	}
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("execution reverted")
	}

	if token, ok := p.Tokens[*msg.To]; ok {
		return token.call(msg.Data)
	}

	method, err := tx.EntryPointABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, fmt.Errorf("execution reverted: %w", err)
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	nonce := p.EntryPointNonces[args[0].(common.Address)]
	if nonce == nil {
		nonce = new(big.Int)
	}
	return method.Outputs.Pack(nonce)
}

func (t *ERC20) call(data []byte) ([]byte, error) {
	method, err := tx.ERC20ABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("execution reverted: %w", err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "name":
		return method.Outputs.Pack(t.Name)
	case "version":
		return method.Outputs.Pack(t.Version)
	case "decimals":
		return method.Outputs.Pack(t.Decimals)
	case "balanceOf":
		return method.Outputs.Pack(valueOrZero(t.Balances[args[0].(common.Address)]))
	case "nonces":
		return method.Outputs.Pack(valueOrZero(t.Nonces[args[0].(common.Address)]))
	}
	return nil, errors.New("execution reverted")
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (p *Provider) SendTransaction(_ context.Context, signed *ethtypes.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_sendRawTransaction")
	if p.SendErr != nil {
		return p.SendErr
	}
	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(p.Chain), signed)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if signed.Nonce() != p.Nonces[from] {
		return fmt.Errorf("nonce too low: have %d, want %d", signed.Nonce(), p.Nonces[from])
	}
	p.Nonces[from]++
	p.Sent = append(p.Sent, signed)
	return nil
}

func (p *Provider) TransactionReceipt(_ context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_getTransactionReceipt")
	if p.ReceiptErr != nil {
		return nil, p.ReceiptErr
	}
	r, ok := p.Receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// Bundler is a fake ERC-4337 bundler. Sent operations get their userOpHash
// computed against EntryPoint and ChainID.
type Bundler struct {
	mu sync.Mutex

	EntryPoint common.Address
	ChainID    *big.Int

	Price    *bundler.GasPrice
	Estimate *bundler.GasEstimate
	Receipts map[common.Hash]*bundler.UserOperationReceipt

	SendErr    error
	ReceiptErr error

	Estimated []*tx.UserOperation
	Sent      []*tx.UserOperation
}

// NewBundler returns a bundler with fixed gas answers.
func NewBundler(entryPoint common.Address, chainID int64) *Bundler {
	tier := bundler.FeeTier{
		MaxFeePerGas:         big.NewInt(5_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_500_000_000),
	}
	return &Bundler{
		EntryPoint: entryPoint,
		ChainID:    big.NewInt(chainID),
		Price:      &bundler.GasPrice{Slow: tier, Standard: tier, Fast: tier},
		Estimate: &bundler.GasEstimate{
			PreVerificationGas:   big.NewInt(50_000),
			VerificationGasLimit: big.NewInt(120_000),
			CallGasLimit:         big.NewInt(80_000),
		},
		Receipts: make(map[common.Hash]*bundler.UserOperationReceipt),
	}
}

// SentOperations returns a copy of the operations sent so far.
func (b *Bundler) SentOperations() []*tx.UserOperation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*tx.UserOperation(nil), b.Sent...)
}

func (b *Bundler) GasPrice(context.Context) (*bundler.GasPrice, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	gp := *b.Price
	return &gp, nil
}

func (b *Bundler) EstimateUserOperationGas(_ context.Context, op *tx.UserOperation, _ common.Address) (*bundler.GasEstimate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Estimated = append(b.Estimated, op.Copy())
	est := *b.Estimate
	return &est, nil
}

func (b *Bundler) SendUserOperation(_ context.Context, op *tx.UserOperation, entryPoint common.Address) (common.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SendErr != nil {
		return common.Hash{}, b.SendErr
	}
	if entryPoint != b.EntryPoint {
		return common.Hash{}, fmt.Errorf("unsupported entry point %s", entryPoint.Hex())
	}
	hash, err := op.Hash(entryPoint, b.ChainID)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := crypto.RecoverAddress(hash[:], op.Signature); err != nil {
		return common.Hash{}, fmt.Errorf("invalid signature: %w", err)
	}
	b.Sent = append(b.Sent, op.Copy())
	return hash, nil
}

func (b *Bundler) UserOperationReceipt(_ context.Context, hash common.Hash) (*bundler.UserOperationReceipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ReceiptErr != nil {
		return nil, b.ReceiptErr
	}
	return b.Receipts[hash], nil
}
