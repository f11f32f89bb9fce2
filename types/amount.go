package types

// FractionDenominator is the number of fractional units per whole unit.
// Fraction is always in [0, FractionDenominator).
const FractionDenominator = 1e9

// Amount is a fixed-denomination balance value, split into an integral
// part and a fractional part expressed in the smallest indivisible unit.
// Using two uint64 fields (rather than a single big.Int-style value)
// keeps WalletData comparisons and arithmetic allocation-free on the hot
// per-transaction validation path.
type Amount struct {
	Integral uint64
	Fraction uint64
}

// NewAmount builds an Amount from a whole-unit integral value.
func NewAmount(integral uint64) Amount {
	return Amount{Integral: integral}
}

// Zero is the additive identity.
var Zero = Amount{}

// Cmp returns -1, 0 or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int {
	if a.Integral != b.Integral {
		if a.Integral < b.Integral {
			return -1
		}
		return 1
	}
	switch {
	case a.Fraction < b.Fraction:
		return -1
	case a.Fraction > b.Fraction:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether a has both a zero integral and a zero
// fractional part.
func (a Amount) IsZero() bool {
	return a.Integral == 0 && a.Fraction == 0
}

// Add returns a+b. Fraction overflow carries into Integral.
func (a Amount) Add(b Amount) Amount {
	frac := a.Fraction + b.Fraction
	integral := a.Integral + b.Integral
	if frac >= FractionDenominator {
		frac -= FractionDenominator
		integral++
	}
	return Amount{Integral: integral, Fraction: frac}
}

// SafeSub returns a-b and true if the result is non-negative, or the
// zero value and false if b exceeds a.
func (a Amount) SafeSub(b Amount) (Amount, bool) {
	if a.Cmp(b) < 0 {
		return Amount{}, false
	}
	frac := a.Fraction
	integral := a.Integral
	if frac < b.Fraction {
		frac += FractionDenominator
		integral--
	}
	return Amount{Integral: integral - b.Integral, Fraction: frac - b.Fraction}, true
}

// Fixed returns a as a signed fixed-point int64, scaled by
// FractionDenominator. Used by code (the transactions validator's
// tentative-balance tracking) that needs to represent a transiently
// negative balance, which Amount itself cannot.
func (a Amount) Fixed() int64 {
	return int64(a.Integral)*int64(FractionDenominator) + int64(a.Fraction)
}

// AmountFromFixed is the inverse of Fixed, clamped to zero for negative
// input.
func AmountFromFixed(v int64) Amount {
	if v < 0 {
		return Amount{}
	}
	return Amount{
		Integral: uint64(v) / FractionDenominator,
		Fraction: uint64(v) % FractionDenominator,
	}
}
