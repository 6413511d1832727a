package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

type Tick struct {
	Exchange string          // 交易所 "BINANCE"
	Symbol   string          // "BTCUSDT"
	Price    decimal.Decimal // 最新价
	Ts       int64           // unix ms
}

func (t Tick) Time() time.Time { return time.UnixMilli(t.Ts).UTC() }

// PriceFeed 推送行情源
type PriceFeed interface {
	Name() string
	Subscribe(ctx context.Context, symbols []string) (<-chan Tick, error)
	// OnConnState 每次连接成功回调 true，断开回调 false
	OnConnState(fn func(connected bool))
}

// PricePoller 按需拉取单个价格
type PricePoller interface {
	PollPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PriceSource is the read side used by valuation.
type PriceSource interface {
	LatestPrice(symbol string) (model.Quote, error)
	OnStateChange(fn func(model.FeedState))
	State() model.FeedState
}
