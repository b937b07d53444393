package types

import (
	"math/big"
	"testing"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals int
		want     string
		wantErr  bool
	}{
		{"one and a half ether", "1.5", 18, "1500000000000000000", false},
		{"whole ether", "2", 18, "2000000000000000000", false},
		{"zero", "0", 18, "0", false},
		{"smallest unit", "0.000000000000000001", 18, "1", false},
		{"leading dot", ".25", 6, "250000", false},
		{"trailing dot", "3.", 6, "3000000", false},
		{"usdc", "12.345678", 6, "12345678", false},
		{"no decimals", "42", 0, "42", false},
		{"large", "123456789012345678901234567890", 18, "123456789012345678901234567890000000000000000000", false},
		{"too many decimals", "1.1234567", 6, "", true},
		{"negative", "-1", 18, "", true},
		{"empty", "", 18, "", true},
		{"dot only", ".", 18, "", true},
		{"letters", "1e18", 18, "", true},
		{"two dots", "1.2.3", 18, "", true},
		{"spaces inside", "1 000", 18, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUnits(tt.input, tt.decimals)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseUnits(%q) = %s, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUnits(%q) error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseUnits(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseUint(t *testing.T) {
	v, err := ParseUint("21000")
	if err != nil {
		t.Fatalf("ParseUint() error: %v", err)
	}
	if v.Uint64() != 21000 {
		t.Errorf("ParseUint() = %s, want 21000", v)
	}

	for _, bad := range []string{"", "-1", "1.5", "0x10", "abc"} {
		if _, err := ParseUint(bad); err == nil {
			t.Errorf("ParseUint(%q) should fail", bad)
		}
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		value    *big.Int
		decimals int
		want     string
	}{
		{big.NewInt(1500000000000000000), 18, "1.5"},
		{big.NewInt(1), 18, "0.000000000000000001"},
		{big.NewInt(0), 18, "0"},
		{big.NewInt(1000000), 6, "1"},
		{big.NewInt(1234567), 6, "1.234567"},
		{big.NewInt(42), 0, "42"},
		{nil, 6, "0"},
	}

	for _, tt := range tests {
		if got := FormatUnits(tt.value, tt.decimals); got != tt.want {
			t.Errorf("FormatUnits(%v, %d) = %q, want %q", tt.value, tt.decimals, got, tt.want)
		}
	}
}
