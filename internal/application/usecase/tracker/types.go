package tracker

import (
	"time"

	"github.com/shopspring/decimal"

	"cointrack/internal/application/port"
	"cointrack/internal/domain/model"
	"cointrack/internal/domain/service"
)

// Prices 跟踪服务使用的价格适配器接口
type Prices interface {
	port.PriceSource
	SetManualPrice(symbol string, price decimal.Decimal) error
	LoadManualPrices(prices map[string]decimal.Decimal)
}

type Deps struct {
	// Exchange 可为 nil，此时只使用手动订单
	Exchange   port.ExchangeClient
	Store      port.Store
	Prices     Prices
	AlertSinks []port.AlertSink

	Resolver          *service.SymbolResolver
	Fees              model.FeeModel
	ReportingCurrency string
	Assets            []string

	SyncTimeout     time.Duration
	SyncConcurrency int
	// Watch receives the full symbol set whenever it may have changed.
	Watch func(symbols []string)
	Now   func() time.Time
}

// SyncReport 单次 SyncOrders 的结果
type SyncReport struct {
	Asset     string
	Pairs     []model.Pair
	Fetched   int
	Added     int
	Malformed []error
}

// Valuation is the position of one asset priced in its resolved quote.
type Valuation struct {
	Asset    string
	Pair     model.Pair
	Position model.Position
	Balance  model.Balance
	// 无价格时为零值 Quote
	Price    model.Quote
	HasPrice bool
	Stale    bool
	// NoMarket 无交易所交易对，价格只能手动输入
	NoMarket bool
	// Unconverted lists included orders left out because their quote could
	// not be converted into Pair.Quote.
	Unconverted     []string
	RateToReporting decimal.NullDecimal
}

type Portfolio struct {
	At         time.Time
	Valuations []Valuation
	Summary    service.PortfolioSummary
}
