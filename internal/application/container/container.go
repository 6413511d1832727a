package container

import (
	"github.com/shopspring/decimal"

	"cointrack/internal/application/port"
	"cointrack/internal/application/usecase/monitor"
	"cointrack/internal/application/usecase/tracker"
	"cointrack/internal/domain/model"
	"cointrack/internal/domain/service"
)

// Deps 用例依赖的适配器，Exchange 可为 nil
type Deps struct {
	Exchange   port.ExchangeClient
	Store      port.Store
	Prices     tracker.Prices
	Snapshots  port.SnapshotRepository
	PriceCache port.PriceCache
	AlertSinks []port.AlertSink
	Sink       port.Sink
}

type Options struct {
	Assets            []string
	ReportingCurrency string
	FallbackQuotes    []string
	BuyFeeRate        decimal.Decimal
	SellFeeRate       decimal.Decimal
	SyncConcurrency   int
	SnapshotEveryMin  int
	PnLThresholdPct   float64
	Watch             func(symbols []string)
}

type Container struct {
	deps Deps
	opts Options

	tracker *tracker.Service
	monitor *monitor.Service
}

func New(deps Deps, opts Options) *Container {
	return &Container{deps: deps, opts: opts}
}

func (c *Container) Store() port.Store {
	return c.deps.Store
}

func (c *Container) Tracker() *tracker.Service {
	if c.tracker == nil {
		c.tracker = tracker.NewService(tracker.Deps{
			Exchange:          c.deps.Exchange,
			Store:             c.deps.Store,
			Prices:            c.deps.Prices,
			AlertSinks:        c.deps.AlertSinks,
			Resolver:          service.NewSymbolResolver(c.opts.FallbackQuotes),
			Fees:              model.FeeModel{BuyRate: c.opts.BuyFeeRate, SellRate: c.opts.SellFeeRate},
			ReportingCurrency: c.opts.ReportingCurrency,
			Assets:            c.opts.Assets,
			SyncConcurrency:   c.opts.SyncConcurrency,
			Watch:             c.opts.Watch,
		})
	}
	return c.tracker
}

// Monitor 根据 updates 刷新 live 行，并驱动 Tracker().OnPrice
func (c *Container) Monitor(updates <-chan model.Quote) *monitor.Service {
	if c.monitor == nil {
		var feed port.PriceSource
		if c.deps.Prices != nil {
			feed = c.deps.Prices
		}
		c.monitor = monitor.NewService(monitor.ServiceDeps{
			Tracker:       c.Tracker(),
			Updates:       updates,
			Feed:          feed,
			PrintEveryMin: c.opts.SnapshotEveryMin,
			PnLThreshold:  c.opts.PnLThresholdPct,
			Sink:          c.deps.Sink,
			Snapshots:     c.deps.Snapshots,
			PriceCache:    c.deps.PriceCache,
		})
	}
	return c.monitor
}

func (c *Container) Close() error {
	if c.deps.Store == nil {
		return nil
	}
	return c.deps.Store.Close()
}
