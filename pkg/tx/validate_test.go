package tx

import (
	"errors"
	"testing"
)

const recipient = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestIntent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      Intent
		want    string
		wantErr error
	}{
		{"native 1.5", Intent{To: recipient, Value: "1.5"}, "1500000000000000000", nil},
		{"zero", Intent{To: recipient, Value: "0"}, "0", nil},
		{"lower-case address", Intent{To: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", Value: "1"}, "1000000000000000000", nil},
		{"bad checksum", Intent{To: "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Value: "1"}, "", ErrInvalidRecipient},
		{"short address", Intent{To: "0x1234", Value: "1"}, "", ErrInvalidRecipient},
		{"no prefix", Intent{To: "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", Value: "1"}, "", ErrInvalidRecipient},
		{"negative", Intent{To: recipient, Value: "-1"}, "", ErrInvalidAmount},
		{"not a number", Intent{To: recipient, Value: "abc"}, "", ErrInvalidAmount},
		{"empty amount", Intent{To: recipient, Value: ""}, "", ErrInvalidAmount},
		{"too many decimals", Intent{To: recipient, Value: "0.0000000000000000001"}, "", ErrInvalidAmount},
		{"bad gas limit", Intent{To: recipient, Value: "1", GasLimit: "21k"}, "", ErrInvalidGasLimit},
		{"zero gas limit", Intent{To: recipient, Value: "1", GasLimit: "0"}, "", ErrInvalidGasLimit},
		{"bad max fee", Intent{To: recipient, Value: "1", MaxFeePerGas: "1.5"}, "", ErrInvalidFee},
		{"tip above cap", Intent{To: recipient, Value: "1", MaxFeePerGas: "10", MaxPriorityFeePerGas: "11"}, "", ErrInvalidFee},
		{"bad data", Intent{To: recipient, Value: "1", Data: "0xzz"}, "", ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.in.Validate(18)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
			if v.Value.String() != tt.want {
				t.Errorf("value = %s, want %s", v.Value, tt.want)
			}
			if !v.IsNative() {
				t.Error("intent without token should be native")
			}
		})
	}
}

func TestIntent_ValidateOptional(t *testing.T) {
	in := Intent{
		To:                   recipient,
		Value:                "2.5",
		Token:                " usdc ",
		Data:                 "0xdeadbeef",
		GasLimit:             "65000",
		MaxFeePerGas:         "30000000000",
		MaxPriorityFeePerGas: "1000000000",
	}
	v, err := in.Validate(6)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if v.Value.String() != "2500000" {
		t.Errorf("value = %s, want 2500000", v.Value)
	}
	if v.Token != "USDC" || v.IsNative() {
		t.Errorf("token = %q", v.Token)
	}
	if len(v.Data) != 4 {
		t.Errorf("data = %x", v.Data)
	}
	if v.GasLimit != 65000 {
		t.Errorf("gas limit = %d", v.GasLimit)
	}
	if v.MaxFeePerGas.String() != "30000000000" || v.MaxPriorityFeePerGas.String() != "1000000000" {
		t.Errorf("fees = %s / %s", v.MaxFeePerGas, v.MaxPriorityFeePerGas)
	}
}
