package types

import (
	"fmt"
	"math/big"
	"strings"
)

// EtherDecimals is the number of decimals of the native asset.
const EtherDecimals = 18

// ParseUnits converts a non-negative decimal string such as "1.5" into base
// units scaled by the given number of decimals.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount")
	}
	if decimals < 0 {
		return nil, fmt.Errorf("invalid decimals %d", decimals)
	}
	s = strings.TrimPrefix(s, "+")

	parts := strings.SplitN(s, ".", 2)
	whole, frac := parts[0], ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) {
		return nil, fmt.Errorf("invalid whole part %q", whole)
	}
	if frac != "" && !isDigits(frac) {
		return nil, fmt.Errorf("invalid fractional part %q", frac)
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("too many decimal places (max %d)", decimals)
	}

	// Pad to decimals digits.
	frac += strings.Repeat("0", decimals-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// ParseUint parses an optional non-negative integer field such as a gas limit
// or a fee cap in base units.
func ParseUint(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !isDigits(s) {
		return nil, fmt.Errorf("%q is not a non-negative integer", s)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a non-negative integer", s)
	}
	return v, nil
}

// FormatUnits renders base units as a decimal string, trimming trailing zeros.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	digits := new(big.Int).Abs(v).String()
	if decimals > 0 {
		if len(digits) <= decimals {
			digits = strings.Repeat("0", decimals-len(digits)+1) + digits
		}
		whole := digits[:len(digits)-decimals]
		frac := strings.TrimRight(digits[len(digits)-decimals:], "0")
		digits = whole
		if frac != "" {
			digits += "." + frac
		}
	}
	if neg {
		return "-" + digits
	}
	return digits
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
