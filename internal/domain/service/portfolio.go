package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

// PortfolioItem 持仓 + 计价币到报告币种的汇率，无法换算时 Rate 无效
type PortfolioItem struct {
	Position model.Position
	Rate     decimal.NullDecimal
}

// PortfolioSummary 以报告币种汇总的组合
type PortfolioSummary struct {
	Currency   string              `json:"currency"`
	TotalCost  decimal.Decimal     `json:"total_cost"`
	TotalValue decimal.Decimal     `json:"total_value"`
	Unrealized decimal.Decimal     `json:"unrealized_pnl"`
	Realized   decimal.Decimal     `json:"realized_pnl"`
	PnLPercent decimal.NullDecimal `json:"pnl_percent"`
	Priced     int                 `json:"priced"`
	Unpriced   []string            `json:"unpriced,omitempty"`
}

// Summarize converts each item into reporting and adds it up. Items without a
// rate or without a current price are listed in Unpriced and skipped.
func Summarize(reporting string, items []PortfolioItem) PortfolioSummary {
	s := PortfolioSummary{Currency: model.NormalizeAsset(reporting)}
	for _, it := range items {
		p := it.Position
		if !it.Rate.Valid || !p.CurrentPrice.Valid {
			if p.HasHolding() || !p.RealizedPnL.IsZero() {
				s.Unpriced = append(s.Unpriced, p.Asset)
			}
			continue
		}
		r := it.Rate.Decimal
		s.Priced++
		s.TotalCost = s.TotalCost.Add(p.CostBasis.Mul(r))
		s.Realized = s.Realized.Add(p.RealizedPnL.Mul(r))
		if p.CurrentValue.Valid {
			s.TotalValue = s.TotalValue.Add(p.CurrentValue.Decimal.Mul(r))
		}
		if p.UnrealizedPnL.Valid {
			s.Unrealized = s.Unrealized.Add(p.UnrealizedPnL.Decimal.Mul(r))
		}
	}
	if s.TotalCost.IsPositive() {
		s.PnLPercent = model.Some(s.Unrealized.Div(s.TotalCost).Mul(hundred))
	}
	sort.Strings(s.Unpriced)
	return s
}
