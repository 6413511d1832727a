package service

import (
	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

// RateFunc 返回 base 以 quote 计价的当前价格
type RateFunc func(base, quote string) (decimal.Decimal, bool)

// ConversionRate 1 单位 from 值多少 to。先查直接交易对，再取反向交易对的倒数
func ConversionRate(from, to string, rates RateFunc) (decimal.Decimal, bool) {
	from, to = model.NormalizeAsset(from), model.NormalizeAsset(to)
	if from == to {
		return one, true
	}
	if rates == nil {
		return decimal.Zero, false
	}
	if r, ok := rates(from, to); ok && r.IsPositive() {
		return r, true
	}
	if r, ok := rates(to, from); ok && r.IsPositive() {
		return one.Div(r), true
	}
	return decimal.Zero, false
}

// ConvertOrders re-expresses order prices in the quote currency to.
// Orders already in to pass through. Orders whose quote has no known rate are
// returned separately and left out of the converted slice.
func ConvertOrders(orders []model.Order, to string, rates RateFunc) (converted, unconverted []model.Order) {
	to = model.NormalizeAsset(to)
	converted = make([]model.Order, 0, len(orders))
	for _, o := range orders {
		q := model.NormalizeAsset(o.QuoteCurrency)
		if q == to {
			converted = append(converted, o)
			continue
		}
		r, ok := ConversionRate(q, to, rates)
		if !ok {
			unconverted = append(unconverted, o)
			continue
		}
		o.Price = o.Price.Mul(r)
		o.QuoteCurrency = to
		converted = append(converted, o)
	}
	return converted, unconverted
}

// ConversionPairs 换算 quotes 到 to 所需订阅的交易对，直接交易对在前
func ConversionPairs(quotes []string, to string, markets model.MarketSet) []model.Pair {
	to = model.NormalizeAsset(to)
	seen := make(map[model.Pair]struct{})
	var out []model.Pair
	for _, q := range quotes {
		q = model.NormalizeAsset(q)
		if q == "" || q == to {
			continue
		}
		var p model.Pair
		switch {
		case markets.Has(q, to):
			p = model.NewPair(q, to)
		case markets.Has(to, q):
			p = model.NewPair(to, q)
		default:
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
