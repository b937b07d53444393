package types

import (
	"errors"
	"fmt"
	"strings"
)

// Network identifies an execution network the wallet can transact on.
type Network string

const (
	Mainnet Network = "mainnet"
	Sepolia Network = "sepolia"
	ZkSync  Network = "zksync"
)

// ErrUnknownNetwork is returned for names outside the supported set.
var ErrUnknownNetwork = errors.New("unknown network")

// Networks lists every supported network in display order.
var Networks = []Network{Mainnet, Sepolia, ZkSync}

// ParseNetwork converts a user-supplied name into a Network.
func ParseNetwork(s string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", fmt.Errorf("%w %q (want mainnet, sepolia or zksync)", ErrUnknownNetwork, s)
	}
	return n, nil
}

// Valid reports whether n is a supported network.
func (n Network) Valid() bool {
	switch n {
	case Mainnet, Sepolia, ZkSync:
		return true
	}
	return false
}

func (n Network) String() string {
	return string(n)
}
