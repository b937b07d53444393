package types

import "testing"

func TestParseNetwork(t *testing.T) {
	tests := []struct {
		input   string
		want    Network
		wantErr bool
	}{
		{"mainnet", Mainnet, false},
		{"Sepolia", Sepolia, false},
		{" zksync ", ZkSync, false},
		{"goerli", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseNetwork(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseNetwork(%q) should fail", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseNetwork(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseNetwork(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNetworks_AllValid(t *testing.T) {
	for _, n := range Networks {
		if !n.Valid() {
			t.Errorf("%s should be valid", n)
		}
	}
}
