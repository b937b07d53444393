package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KLINGWALLET"

// ApplyEnv overrides cfg with the KLINGWALLET_* variables that are set,
// e.g. KLINGWALLET_SEPOLIA_RPC or KLINGWALLET_SESSION_TTL.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	cfg.DataDir = ExpandHome(cfg.DataDir)
	cfg.Log.File = ExpandHome(cfg.Log.File)
	return nil
}

// Load builds the configuration for dataDir: defaults, then the config
// file, then the environment. An empty dataDir uses the default.
func Load(dataDir string) (*Config, error) {
	cfg := Default("")
	if dataDir != "" {
		cfg.DataDir = ExpandHome(dataDir)
	}
	values, err := LoadFile(cfg.ConfigFile())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.ConfigFile(), err)
	}
	if err := ApplyFileConfig(cfg, values); err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
