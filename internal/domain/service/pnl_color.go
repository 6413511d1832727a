package service

import "github.com/shopspring/decimal"

// PnLColor decides the tint of a PnL percentage.
// -1 red, 0 yellow, +1 green (pure decision)
func PnLColor(pct decimal.NullDecimal, threshold decimal.Decimal) int {
	if !pct.Valid {
		return 0
	}
	if pct.Decimal.GreaterThanOrEqual(threshold) {
		return +1
	}
	if pct.Decimal.LessThanOrEqual(threshold.Neg()) {
		return -1
	}
	return 0
}
