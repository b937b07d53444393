package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

// LoadFile reads a klingwallet.conf file: one "key = value" per line, with
// # comments. Keys are case-insensitive and values may be quoted. A missing
// file yields no values.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key = value", n)
		}
		values[strings.ToLower(strings.TrimSpace(key))] = unquote(strings.TrimSpace(value))
	}
	return values, scanner.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// ApplyFileConfig sets the fields of cfg named by the file keys. Keys come
// from the conf struct tags; unknown keys are ignored.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	fields := make(map[string]confField)
	indexFields(reflect.ValueOf(cfg).Elem(), "", fields)

	for key, value := range values {
		f, ok := fields[key]
		if !ok {
			continue
		}
		if err := f.set(value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// confField is a settable Config field and its tag options.
type confField struct {
	v    reflect.Value
	path bool
}

// indexFields maps every conf key under v to its field. A tagged struct
// prefixes the keys of its fields with its own key.
func indexFields(v reflect.Value, prefix string, out map[string]confField) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, opts, _ := strings.Cut(t.Field(i).Tag.Get("conf"), ",")
		if name != "" && prefix != "" {
			name = prefix + "." + name
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Struct {
			indexFields(fv, name, out)
			continue
		}
		if name != "" {
			out[name] = confField{v: fv, path: opts == "path"}
		}
	}
}

func (f confField) set(value string) error {
	switch f.v.Interface().(type) {
	case types.Network:
		net, err := types.ParseNetwork(value)
		if err != nil {
			return err
		}
		f.v.Set(reflect.ValueOf(net))
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		f.v.SetInt(int64(d))
	case bool:
		f.v.SetBool(parseBool(value))
	case string:
		if f.path {
			value = ExpandHome(value)
		}
		f.v.SetString(value)
	default:
		return fmt.Errorf("unsupported field type %s", f.v.Type())
	}
	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// WriteDefaultConfig writes a default configuration file for net.
func WriteDefaultConfig(path string, net types.Network) error {
	d := Default(net)
	content := `# Klingwallet Configuration
#
# Every key can be overridden by an environment variable, e.g.
# sepolia.rpc -> KLINGWALLET_SEPOLIA_RPC, log.level -> KLINGWALLET_LOG_LEVEL.

# Network: mainnet, sepolia or zksync
network = ` + string(d.Network) + `

# Data directory (default: ~/.klingwallet)
# datadir = ~/.klingwallet

# ============================================================================
# Endpoints
# ============================================================================

mainnet.rpc = ` + d.Mainnet.RPC + `
# mainnet.bundler = https://api.pimlico.io/v2/1/rpc?apikey=<key>

sepolia.rpc = ` + d.Sepolia.RPC + `
# sepolia.bundler = https://api.pimlico.io/v2/11155111/rpc?apikey=<key>
# sepolia.bundler_timeout = 15s

# zkSync transfers are always native; no bundler is used.
zksync.rpc = ` + d.ZkSync.RPC + `

# Contract overrides (default: built-in addresses)
# sepolia.paymaster = 0x...
# sepolia.entrypoint = 0x...
# sepolia.delegate = 0x...

# ============================================================================
# Sponsorship (USDC)
# ============================================================================

# Minimum USDC balance for a sponsored transfer
sponsor.min_balance = ` + d.Sponsor.MinBalance + `

# Amount the paymaster may pull through the permit
sponsor.permit_allowance = ` + d.Sponsor.PermitAllowance + `

# ============================================================================
# Session
# ============================================================================

session.ttl = ` + d.Session.TTL.String() + `

# ============================================================================
# Logging
# ============================================================================

log.level = ` + d.Log.Level + `
# log.file = ~/.klingwallet/logs/klingwallet.log
log.json = false
`
	return os.WriteFile(path, []byte(content), 0600)
}
