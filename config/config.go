// Package config handles application configuration.
//
// Settings come from three layers, later ones winning: built-in defaults,
// the klingwallet.conf file in the data directory, and KLINGWALLET_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingnet-wallet/internal/network"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

// SponsorDecimals is the precision of the sponsor amounts (USDC).
const SponsorDecimals = 6

// Config holds the wallet's runtime configuration.
type Config struct {
	// Core
	Network types.Network `conf:"network" envconfig:"network"`
	DataDir string        `conf:"datadir,path" envconfig:"datadir"`

	// Endpoints per network
	Mainnet NetworkConfig `conf:"mainnet" envconfig:"mainnet"`
	Sepolia NetworkConfig `conf:"sepolia" envconfig:"sepolia"`
	ZkSync  NetworkConfig `conf:"zksync" envconfig:"zksync"`

	// Paymaster sponsorship
	Sponsor SponsorConfig `envconfig:"sponsor"`

	// Unlock session
	Session SessionConfig `envconfig:"session"`

	// Logging
	Log LogConfig `envconfig:"log"`
}

// NetworkConfig holds the endpoints of one network. Empty contract
// addresses fall back to the network's built-in values.
type NetworkConfig struct {
	RPC        string `conf:"rpc" envconfig:"rpc"`
	Bundler    string `conf:"bundler" envconfig:"bundler"`
	Paymaster  string `conf:"paymaster" envconfig:"paymaster"`
	EntryPoint string `conf:"entrypoint" envconfig:"entrypoint"`
	Delegate   string `conf:"delegate" envconfig:"delegate"`

	// BundlerTimeout bounds one bundler call; zero uses the client default.
	BundlerTimeout time.Duration `conf:"bundler_timeout" envconfig:"bundler_timeout"`
}

// SponsorConfig holds USDC amounts as decimal strings, e.g. "1.5".
type SponsorConfig struct {
	MinBalance      string `conf:"sponsor.min_balance" envconfig:"min_balance"`
	PermitAllowance string `conf:"sponsor.permit_allowance" envconfig:"permit_allowance"`
}

// SessionConfig holds unlock session settings.
type SessionConfig struct {
	TTL time.Duration `conf:"session.ttl" envconfig:"ttl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level" envconfig:"level"`
	File  string `conf:"log.file,path" envconfig:"file"`
	JSON  bool   `conf:"log.json" envconfig:"json"`
}

// NetworkConfig returns the endpoint settings of net.
func (c *Config) NetworkConfig(net types.Network) (*NetworkConfig, error) {
	switch net {
	case types.Mainnet:
		return &c.Mainnet, nil
	case types.Sepolia:
		return &c.Sepolia, nil
	case types.ZkSync:
		return &c.ZkSync, nil
	default:
		return nil, fmt.Errorf("%w %q", types.ErrUnknownNetwork, string(net))
	}
}

// Endpoints converts the settings of net into adapter endpoints.
func (c *Config) Endpoints(net types.Network) (network.Endpoints, error) {
	nc, err := c.NetworkConfig(net)
	if err != nil {
		return network.Endpoints{}, err
	}
	if nc.RPC == "" {
		return network.Endpoints{}, fmt.Errorf("no rpc endpoint configured for %s (set %s.rpc)", net, net)
	}
	ep := network.Endpoints{RPC: nc.RPC, Bundler: nc.Bundler, BundlerTimeout: nc.BundlerTimeout}

	for _, f := range []struct {
		key  string
		val  string
		dest *common.Address
	}{
		{"paymaster", nc.Paymaster, &ep.Paymaster},
		{"entrypoint", nc.EntryPoint, &ep.EntryPoint},
		{"delegate", nc.Delegate, &ep.Delegate},
	} {
		if f.val == "" {
			continue
		}
		addr, err := types.ParseAddress(f.val)
		if err != nil {
			return network.Endpoints{}, fmt.Errorf("%s.%s: %w", net, f.key, err)
		}
		*f.dest = addr
	}

	if ep.MinBalance, err = parseAmount(c.Sponsor.MinBalance); err != nil {
		return network.Endpoints{}, fmt.Errorf("sponsor.min_balance: %w", err)
	}
	if ep.PermitAllowance, err = parseAmount(c.Sponsor.PermitAllowance); err != nil {
		return network.Endpoints{}, fmt.Errorf("sponsor.permit_allowance: %w", err)
	}
	return ep, nil
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingwallet
//	macOS:   ~/Library/Application Support/Klingwallet
//	Windows: %APPDATA%\Klingwallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingwallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Klingwallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Klingwallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "Klingwallet")
	default:
		return filepath.Join(home, ".klingwallet")
	}
}

// ExpandHome replaces a leading ~ in path with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// StoreDir returns the wallet database directory.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, "store")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingwallet.conf")
}
