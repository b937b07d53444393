package config

import (
	"fmt"
	"math/big"
	"net/url"

	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

// Validate checks the config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if !cfg.Network.Valid() {
		return fmt.Errorf("network must be one of %v", types.Networks)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is empty")
	}

	for _, net := range types.Networks {
		nc, _ := cfg.NetworkConfig(net)
		if err := validateURL(nc.RPC); err != nil {
			return fmt.Errorf("%s.rpc: %w", net, err)
		}
		if err := validateURL(nc.Bundler); err != nil {
			return fmt.Errorf("%s.bundler: %w", net, err)
		}
		if nc.BundlerTimeout < 0 {
			return fmt.Errorf("%s.bundler_timeout must not be negative", net)
		}
		for key, addr := range map[string]string{
			"paymaster":  nc.Paymaster,
			"entrypoint": nc.EntryPoint,
			"delegate":   nc.Delegate,
		} {
			if addr == "" {
				continue
			}
			if _, err := types.ParseAddress(addr); err != nil {
				return fmt.Errorf("%s.%s: %w", net, key, err)
			}
		}
	}

	if _, err := parseAmount(cfg.Sponsor.MinBalance); err != nil {
		return fmt.Errorf("sponsor.min_balance: %w", err)
	}
	allowance, err := parseAmount(cfg.Sponsor.PermitAllowance)
	if err != nil {
		return fmt.Errorf("sponsor.permit_allowance: %w", err)
	}
	if allowance != nil && allowance.Sign() == 0 {
		return fmt.Errorf("sponsor.permit_allowance must be positive")
	}

	if cfg.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative")
	}
	if _, err := klog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func validateURL(s string) error {
	if s == "" {
		return nil
	}
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// parseAmount parses a USDC amount; empty means unset.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	return types.ParseUnits(s, SponsorDecimals)
}
