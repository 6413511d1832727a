package exchange

import (
	"sort"
	"strings"

	"cointrack/internal/domain/model"
)

// SymbolConverter 符号转换接口
// 各交易所可以实现此接口来提供符号转换功能
type SymbolConverter interface {
	// Symbol2Pair 将交易对拆分为 base/quote
	// 例: AGLDBTC -> AGLD/BTC
	Symbol2Pair(symbol string) (model.Pair, bool)

	// Pair2Symbol 将 base/quote 拼为交易所符号
	// 例: AGLD/BTC -> AGLDBTC
	Pair2Symbol(p model.Pair) string
}

// CommonSymbolConverter splits concatenated symbols by known quote suffixes.
type CommonSymbolConverter struct {
	quotes []string // longest first
}

// NewCommonSymbolConverter 创建通用符号转换器
func NewCommonSymbolConverter(quotes ...string) *CommonSymbolConverter {
	seen := make(map[string]struct{}, len(quotes))
	out := make([]string, 0, len(quotes))
	for _, q := range quotes {
		q = model.NormalizeAsset(q)
		if q == "" {
			continue
		}
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	// longer suffixes first: FDUSD before USD
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return &CommonSymbolConverter{quotes: out}
}

// Symbol2Pair 将交易对转换为 base/quote
// 例: BTCUSDT -> BTC/USDT, ETHBTC -> ETH/BTC
func (c *CommonSymbolConverter) Symbol2Pair(symbol string) (model.Pair, bool) {
	sym := model.NormalizeAsset(symbol)
	sym = strings.NewReplacer("-", "", "_", "", "/", "").Replace(sym)
	if sym == "" {
		return model.Pair{}, false
	}
	for _, q := range c.quotes {
		if len(sym) > len(q) && strings.HasSuffix(sym, q) {
			return model.NewPair(strings.TrimSuffix(sym, q), q), true
		}
	}
	return model.Pair{}, false
}

// Pair2Symbol 将币种对转换为交易对
func (c *CommonSymbolConverter) Pair2Symbol(p model.Pair) string {
	return p.Symbol()
}
