package service

import (
	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Valuator computes weighted-average cost positions. The zero value uses no
// fees. It holds no state and is safe for concurrent use.
type Valuator struct {
	Fees model.FeeModel
}

func NewValuator(fees model.FeeModel) *Valuator {
	return &Valuator{Fees: fees}
}

// ComputePosition recomputes the position of asset from the full included
// order history. orders is not modified. A null currentPrice only nulls the
// price-dependent fields.
//
// A sell larger than the holding realizes matched*(price-avg) on the held
// part. The excess has no recorded cost, so its full proceeds excess*price
// count as realized gain (the same rule as selling with nothing held) and an
// OverHeldSellAnomaly is recorded.
func (v *Valuator) ComputePosition(asset string, orders []model.Order, currentPrice decimal.NullDecimal) model.Position {
	asset = model.NormalizeAsset(asset)
	history := includedFor(asset, orders)

	pos := model.Position{
		Asset:        asset,
		CurrentPrice: currentPrice,
		OrderCount:   len(history),
	}
	if len(history) > 0 {
		pos.Quote = history[len(history)-1].QuoteCurrency
	}

	heldQty := decimal.Zero
	heldCost := decimal.Zero
	realized := decimal.Zero

	for _, o := range history {
		if o.Quantity.IsZero() {
			continue
		}
		switch o.Side {
		case model.SideBuy:
			heldCost = heldCost.Add(o.Notional())
			heldQty = heldQty.Add(o.Quantity)

		case model.SideSell:
			matched := decimal.Min(o.Quantity, heldQty)
			excess := o.Quantity.Sub(matched)

			if matched.IsPositive() {
				avg := heldCost.Div(heldQty)
				realized = realized.Add(matched.Mul(o.Price.Sub(avg)))
				heldCost = heldCost.Sub(matched.Mul(avg))
				heldQty = heldQty.Sub(matched)
			}
			if excess.IsPositive() {
				// 没有可卖的持仓: 全部卖出金额计为收益
				realized = realized.Add(excess.Mul(o.Price))
				pos.Anomalies = append(pos.Anomalies, model.OverHeldSellAnomaly{
					OrderID:   o.ID,
					Requested: o.Quantity,
					Held:      matched,
				})
			}
			if !heldQty.IsPositive() {
				heldQty = decimal.Zero
				heldCost = decimal.Zero
			}
		}
	}

	pos.TotalQuantityHeld = heldQty
	pos.CostBasis = heldCost
	pos.RealizedPnL = realized

	if heldQty.IsPositive() {
		avg := heldCost.Div(heldQty)
		pos.AverageBuyPrice = model.Some(avg)
		pos.BreakEvenPrice = model.Some(v.breakEven(avg))
	}

	switch {
	case !currentPrice.Valid:
		// 无市场价格: 市值和盈亏保持 null
	case pos.AverageBuyPrice.Valid:
		cur := currentPrice.Decimal
		unrealized := heldQty.Mul(cur.Sub(pos.AverageBuyPrice.Decimal))
		pos.UnrealizedPnL = model.Some(unrealized)
		pos.CurrentValue = model.Some(heldQty.Mul(cur))
		if heldCost.IsPositive() {
			pos.PnLPercent = model.Some(unrealized.Div(heldCost).Mul(hundred))
		}
	default:
		pos.UnrealizedPnL = model.Some(decimal.Zero)
		pos.CurrentValue = model.Some(decimal.Zero)
	}
	return pos
}

// breakEven 保本价（含买卖手续费）: avg * (1+buy) / (1-sell)
func (v *Valuator) breakEven(avg decimal.Decimal) decimal.Decimal {
	if v.Fees.IsZero() {
		return avg
	}
	return avg.Mul(one.Add(v.Fees.BuyRate)).Div(one.Sub(v.Fees.SellRate))
}

// includedFor 复制该币种参与估值的订单并排序
func includedFor(asset string, orders []model.Order) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if !o.Included || model.NormalizeAsset(o.Asset) != asset {
			continue
		}
		out = append(out, o)
	}
	SortOrders(out)
	return out
}
