// Package types holds the small value types shared across the wallet:
// networks, decimal amounts and account addresses.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AddressSize is the length of an account address in bytes.
const AddressSize = common.AddressLength

// ParseAddress parses a user-supplied "0x"-prefixed, 40 hex character address.
// Mixed-case input must carry a valid EIP-55 checksum; all-lower and all-upper
// input is accepted as is.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, fmt.Errorf("empty address")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("address must start with 0x")
	}
	body := s[2:]
	if len(body) != 2*AddressSize {
		return common.Address{}, fmt.Errorf("address must be %d hex characters, got %d", 2*AddressSize, len(body))
	}
	if _, err := hex.DecodeString(body); err != nil {
		return common.Address{}, fmt.Errorf("invalid address: %w", err)
	}

	addr := common.HexToAddress(body)
	if isMixedCase(body) && addr.Hex()[2:] != body {
		return common.Address{}, fmt.Errorf("address %s has an invalid checksum", s)
	}
	return addr, nil
}

// IsAddress reports whether s parses with ParseAddress.
func IsAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}
