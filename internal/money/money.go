package money

// Amount represents a monetary value stored in the currency's minor unit.
type Amount = int64

// Percent returns pct percent of amount rounded half-up to the minor unit.
func Percent(amount Amount, pct int) Amount {
	if amount <= 0 || pct <= 0 {
		return 0
	}
	return (amount*Amount(pct) + 50) / 100
}

// Bps returns the basis-point fraction of amount rounded half-up to the
// minor unit. Tax rates are carried as basis points (1800 = 18%).
func Bps(amount Amount, bps int) Amount {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*Amount(bps) + 5_000) / 10_000
}

// Line returns the extended price for a quantity of units.
func Line(unitPrice Amount, qty int) Amount {
	if unitPrice <= 0 || qty <= 0 {
		return 0
	}
	return unitPrice * Amount(qty)
}

// Clamp floors negative values at zero.
func Clamp(v Amount) Amount {
	if v < 0 {
		return 0
	}
	return v
}
