package config

import (
	"github.com/Klingon-tech/klingnet-wallet/internal/session"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

// DefaultNetwork is the network selected on first start.
const DefaultNetwork = types.Sepolia

// Default returns the default configuration with net selected. Bundlers
// need an API key and have no default.
func Default(net types.Network) *Config {
	if net == "" {
		net = DefaultNetwork
	}
	return &Config{
		Network: net,
		DataDir: DefaultDataDir(),
		Mainnet: NetworkConfig{
			RPC: "https://ethereum-rpc.publicnode.com",
		},
		Sepolia: NetworkConfig{
			RPC: "https://ethereum-sepolia-rpc.publicnode.com",
		},
		ZkSync: NetworkConfig{
			RPC: "https://mainnet.era.zksync.io",
		},
		Sponsor: SponsorConfig{
			MinBalance:      "1",
			PermitAllowance: "10",
		},
		Session: SessionConfig{
			TTL: session.DefaultTTL,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
