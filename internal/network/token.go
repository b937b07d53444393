package network

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownToken is returned for symbols the network does not list.
var ErrUnknownToken = errors.New("unknown token")

// NativeSymbol is the symbol of the native asset on every network.
const NativeSymbol = "ETH"

// Token is an asset the wallet can transfer.
type Token struct {
	Symbol   string
	Decimals int
	// Address is the ERC-20 contract, zero for the native asset.
	Address common.Address
	// Sponsored tokens are sent as paymaster-sponsored UserOperations when
	// the network has sponsorship configured.
	Sponsored bool
}

// Native reports whether t is the native asset.
func (t Token) Native() bool {
	return t.Address == (common.Address{})
}

var native = Token{Symbol: NativeSymbol, Decimals: 18}

func usdc(addr string, sponsored bool) Token {
	return Token{
		Symbol:    "USDC",
		Decimals:  6,
		Address:   common.HexToAddress(addr),
		Sponsored: sponsored,
	}
}

// tokenTable is the per-network list of transferable assets.
type tokenTable []Token

func (tt tokenTable) lookup(symbol string) (Token, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		s = NativeSymbol
	}
	for _, t := range tt {
		if t.Symbol == s {
			return t, nil
		}
	}
	return Token{}, fmt.Errorf("%w %q", ErrUnknownToken, symbol)
}

func (tt tokenTable) list() []Token {
	out := make([]Token, len(tt))
	copy(out, tt)
	return out
}
