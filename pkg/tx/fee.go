package tx

import "math/big"

// Fees are the fee fields of a transaction. Either GasPrice is set (legacy
// pricing) or both GasFeeCap and GasTipCap are (EIP-1559).
type Fees struct {
	GasPrice  *big.Int
	GasFeeCap *big.Int
	GasTipCap *big.Int
}

// LegacyFees returns legacy pricing at gasPrice.
func LegacyFees(gasPrice *big.Int) Fees {
	return Fees{GasPrice: new(big.Int).Set(gasPrice)}
}

// DynamicFees returns EIP-1559 pricing: the fee cap leaves room for the
// base fee to double before the transaction is priced out.
//
//	feeCap = 2*baseFee + tip
func DynamicFees(baseFee, tip *big.Int) Fees {
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)
	return Fees{GasFeeCap: feeCap, GasTipCap: new(big.Int).Set(tip)}
}

// Legacy reports whether f uses a single gas price.
func (f Fees) Legacy() bool {
	return f.GasPrice != nil
}

// Override replaces the caps with user-supplied values where given.
func (f Fees) Override(maxFee, maxTip *big.Int) Fees {
	if f.Legacy() {
		if maxFee != nil {
			f.GasPrice = new(big.Int).Set(maxFee)
		}
		return f
	}
	if maxFee != nil {
		f.GasFeeCap = new(big.Int).Set(maxFee)
	}
	if maxTip != nil {
		f.GasTipCap = new(big.Int).Set(maxTip)
	}
	if f.GasTipCap != nil && f.GasFeeCap != nil && f.GasTipCap.Cmp(f.GasFeeCap) > 0 {
		f.GasTipCap = new(big.Int).Set(f.GasFeeCap)
	}
	return f
}

// MaxGasCost returns the most gas can cost at these fees.
func (f Fees) MaxGasCost(gas uint64) *big.Int {
	price := f.GasFeeCap
	if f.Legacy() {
		price = f.GasPrice
	}
	if price == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(price, new(big.Int).SetUint64(gas))
}

// RequiredBalance returns value plus the maximum gas cost: the native
// balance a sender needs for the transaction to be accepted.
func RequiredBalance(value *big.Int, f Fees, gas uint64) *big.Int {
	total := f.MaxGasCost(gas)
	if value != nil {
		total.Add(total, value)
	}
	return total
}
