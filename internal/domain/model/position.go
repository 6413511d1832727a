package model

import (
	"github.com/shopspring/decimal"
)

// Position is derived from the included order history and never stored as
// the source of truth. Nullable fields are invalid when undefined: no holding
// for AverageBuyPrice, no market price for CurrentPrice and friends.
type Position struct {
	Asset             string
	Quote             string
	TotalQuantityHeld decimal.Decimal
	AverageBuyPrice   decimal.NullDecimal
	BreakEvenPrice    decimal.NullDecimal
	CurrentPrice      decimal.NullDecimal
	UnrealizedPnL     decimal.NullDecimal
	RealizedPnL       decimal.Decimal
	CostBasis         decimal.Decimal
	CurrentValue      decimal.NullDecimal
	PnLPercent        decimal.NullDecimal
	OrderCount        int
	Anomalies         []OverHeldSellAnomaly
}

// HasHolding 持仓数量大于 0
func (p Position) HasHolding() bool { return p.TotalQuantityHeld.IsPositive() }

// FeeModel 手续费率，例: 0.001 表示 0.1%
type FeeModel struct {
	BuyRate  decimal.Decimal
	SellRate decimal.Decimal
}

func (f FeeModel) IsZero() bool { return f.BuyRate.IsZero() && f.SellRate.IsZero() }

// Valid 费率必须在 [0, 1) 区间
func (f FeeModel) Valid() bool {
	one := decimal.NewFromInt(1)
	return !f.BuyRate.IsNegative() && !f.SellRate.IsNegative() &&
		f.BuyRate.LessThan(one) && f.SellRate.LessThan(one)
}

// Null 返回无效的 NullDecimal
func Null() decimal.NullDecimal { return decimal.NullDecimal{} }

// Some 返回有效的 NullDecimal
func Some(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
