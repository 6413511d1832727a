package model

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Pair 交易对 (base, quote)
type Pair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// NewPair 创建交易对，两边统一大写
func NewPair(base, quote string) Pair {
	return Pair{Base: NormalizeAsset(base), Quote: NormalizeAsset(quote)}
}

// Symbol Binance 风格交易对，例: BTC/USDT -> BTCUSDT
func (p Pair) Symbol() string { return p.Base + p.Quote }

func (p Pair) String() string { return p.Base + "/" + p.Quote }

func (p Pair) IsZero() bool { return p.Base == "" && p.Quote == "" }

// NormalizeAsset 去空格并转大写
func NormalizeAsset(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// MarketSet 可交易的市场集合
type MarketSet struct {
	byPair map[Pair]struct{}
}

func NewMarketSet(pairs ...Pair) MarketSet {
	ms := MarketSet{
		byPair: make(map[Pair]struct{}, len(pairs)),
	}
	for _, p := range pairs {
		p = NewPair(p.Base, p.Quote)
		if p.Base == "" || p.Quote == "" {
			continue
		}
		ms.byPair[p] = struct{}{}
	}
	return ms
}

// Has 判断 (base, quote) 是否上架
func (m MarketSet) Has(base, quote string) bool {
	_, ok := m.byPair[NewPair(base, quote)]
	return ok
}

// QuotesFor 币种可交易的所有计价币（已排序）
func (m MarketSet) QuotesFor(asset string) []string {
	asset = NormalizeAsset(asset)
	var out []string
	for p := range m.byPair {
		if p.Base == asset {
			out = append(out, p.Quote)
		}
	}
	sort.Strings(out)
	return out
}

func (m MarketSet) Len() int { return len(m.byPair) }

// Pairs 按 symbol 排序返回全部市场
func (m MarketSet) Pairs() []Pair {
	out := make([]Pair, 0, len(m.byPair))
	for p := range m.byPair {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol() < out[j].Symbol() })
	return out
}

// SymbolMapping is a user override forcing an asset onto a specific quote.
// An empty PreferredQuote applies whatever quote was asked for.
type SymbolMapping struct {
	Asset          string `json:"asset"`
	PreferredQuote string `json:"preferred_quote"`
	ActualQuote    string `json:"actual_quote"`
}

// Balance 账户余额
type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

func (b Balance) Total() decimal.Decimal { return b.Free.Add(b.Locked) }
