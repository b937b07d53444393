package tx

import (
	"math/big"
	"testing"
)

func TestDynamicFees(t *testing.T) {
	f := DynamicFees(big.NewInt(10), big.NewInt(2))
	if f.Legacy() {
		t.Error("dynamic fees reported as legacy")
	}
	if f.GasFeeCap.Int64() != 22 {
		t.Errorf("fee cap = %s, want 22", f.GasFeeCap)
	}
	if f.GasTipCap.Int64() != 2 {
		t.Errorf("tip cap = %s, want 2", f.GasTipCap)
	}
	if got := f.MaxGasCost(21000).Int64(); got != 22*21000 {
		t.Errorf("MaxGasCost() = %d", got)
	}
}

func TestLegacyFees(t *testing.T) {
	f := LegacyFees(big.NewInt(7))
	if !f.Legacy() {
		t.Error("legacy fees not reported as legacy")
	}
	if got := RequiredBalance(big.NewInt(100), f, 10).Int64(); got != 170 {
		t.Errorf("RequiredBalance() = %d, want 170", got)
	}
}

func TestFees_Override(t *testing.T) {
	f := DynamicFees(big.NewInt(10), big.NewInt(2)).Override(big.NewInt(50), nil)
	if f.GasFeeCap.Int64() != 50 || f.GasTipCap.Int64() != 2 {
		t.Errorf("override = %s / %s", f.GasFeeCap, f.GasTipCap)
	}

	// A tip above the cap is clamped.
	f = DynamicFees(big.NewInt(10), big.NewInt(2)).Override(big.NewInt(5), big.NewInt(9))
	if f.GasTipCap.Int64() != 5 {
		t.Errorf("tip = %s, want 5", f.GasTipCap)
	}

	l := LegacyFees(big.NewInt(7)).Override(big.NewInt(9), big.NewInt(1))
	if l.GasPrice.Int64() != 9 || l.GasTipCap != nil {
		t.Errorf("legacy override = %+v", l)
	}
}
