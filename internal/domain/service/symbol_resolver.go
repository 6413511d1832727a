package service

import (
	"cointrack/internal/domain/model"
)

// DefaultFallbackQuotes 用户映射和首选计价币都没有交易对时的回退顺序
var DefaultFallbackQuotes = []string{"USDT", "USDC", "BUSD", "BTC"}

// SymbolResolver maps (asset, preferred quote) to a tradable pair.
// It never touches the network: markets are passed in.
type SymbolResolver struct {
	FallbackQuotes []string
}

func NewSymbolResolver(fallback []string) *SymbolResolver {
	if len(fallback) == 0 {
		fallback = DefaultFallbackQuotes
	}
	quotes := make([]string, 0, len(fallback))
	for _, q := range fallback {
		if q = model.NormalizeAsset(q); q != "" {
			quotes = append(quotes, q)
		}
	}
	return &SymbolResolver{FallbackQuotes: quotes}
}

// Resolve 解析顺序: 用户映射 -> 首选计价币 -> 回退列表 -> NoMarketFoundError
func (r *SymbolResolver) Resolve(asset, preferredQuote string, markets model.MarketSet, mappings []model.SymbolMapping) (model.Pair, error) {
	asset = model.NormalizeAsset(asset)
	preferredQuote = model.NormalizeAsset(preferredQuote)

	if m, ok := FindMapping(asset, preferredQuote, mappings); ok {
		return model.NewPair(asset, m.ActualQuote), nil
	}

	if preferredQuote != "" && preferredQuote != asset && markets.Has(asset, preferredQuote) {
		return model.NewPair(asset, preferredQuote), nil
	}

	for _, q := range r.FallbackQuotes {
		if q == asset {
			continue
		}
		if markets.Has(asset, q) {
			return model.NewPair(asset, q), nil
		}
	}
	return model.Pair{}, &model.NoMarketFoundError{Asset: asset}
}

// FindMapping 查找币种映射，精确匹配首选计价币的优先于 PreferredQuote 为空的通配映射
func FindMapping(asset, preferredQuote string, mappings []model.SymbolMapping) (model.SymbolMapping, bool) {
	asset = model.NormalizeAsset(asset)
	preferredQuote = model.NormalizeAsset(preferredQuote)

	var (
		wildcard model.SymbolMapping
		found    bool
	)
	for _, m := range mappings {
		if model.NormalizeAsset(m.Asset) != asset || model.NormalizeAsset(m.ActualQuote) == "" {
			continue
		}
		pq := model.NormalizeAsset(m.PreferredQuote)
		if pq != "" && pq == preferredQuote {
			return m, true
		}
		if pq == "" && !found {
			wildcard, found = m, true
		}
	}
	return wildcard, found
}
