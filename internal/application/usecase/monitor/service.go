package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"cointrack/internal/application/port"
	"cointrack/internal/application/usecase/tracker"
	"cointrack/internal/domain/model"
	dsvc "cointrack/internal/domain/service"
)

type ServiceDeps struct {
	Tracker Tracker
	Updates <-chan model.Quote
	// Feed 只读取连接状态，可为 nil
	Feed          port.PriceSource
	PrintEveryMin int
	PnLThreshold  float64
	Sink          port.Sink
	Snapshots     port.SnapshotRepository
	PriceCache    port.PriceCache
}

type Service struct {
	deps ServiceDeps
	st   *State
	fmt  *Formatter
}

func NewService(deps ServiceDeps) *Service {
	if deps.PrintEveryMin <= 0 {
		deps.PrintEveryMin = 5
	}
	return &Service{
		deps: deps,
		st:   NewState(),
		fmt:  NewFormatter(deps.PnLThreshold),
	}
}

// Run consumes price updates until ctx is done or the update channel closes.
func (s *Service) Run(ctx context.Context) error {
	if s.deps.Tracker == nil || s.deps.Updates == nil || s.deps.Sink == nil {
		return errors.New("monitor: tracker, updates and sink are required")
	}

	snapTicker := time.NewTicker(time.Duration(s.deps.PrintEveryMin) * time.Minute)
	defer snapTicker.Stop()

	alerts := s.deps.Tracker.Alerts()

	// 初始 live 行
	_ = s.deps.Sink.WriteLive(s.render(RenderLive))

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case now := <-snapTicker.C:
			s.snapshot(ctx, now)

		case q, ok := <-s.deps.Updates:
			if !ok {
				_ = s.deps.Sink.NewLine()
				return nil
			}
			s.handleQuote(ctx, q)

		case a := <-alerts:
			_ = s.deps.Sink.WriteAlert(a)
			_ = s.deps.Sink.WriteLive(s.render(RenderLive))
		}
	}
}

func (s *Service) handleQuote(ctx context.Context, q model.Quote) {
	changed := s.st.Apply(q)

	// 可选：写入最新价格
	if s.deps.PriceCache != nil && q.Origin != model.OriginManual && q.Price.IsPositive() {
		if err := s.deps.PriceCache.UpsertLatestPrice(ctx, q.Symbol, q.Price, q.At); err != nil {
			log.Debug().Err(err).Str("symbol", q.Symbol).Msg("price cache upsert failed")
		}
	}

	// 触发的告警通过 Tracker.Alerts() 返回
	s.deps.Tracker.OnPrice(ctx, q)
	if changed {
		_ = s.deps.Sink.WriteLive(s.render(RenderLive))
	}
}

func (s *Service) render(mode RenderMode) string {
	return s.fmt.Render(s.deps.Tracker.Portfolio(), s.st, s.feedState(), mode)
}

func (s *Service) feedState() model.FeedState {
	if s.deps.Feed == nil {
		return model.FeedActive
	}
	return s.deps.Feed.State()
}

func (s *Service) snapshot(ctx context.Context, now time.Time) {
	p := s.deps.Tracker.Portfolio()
	_ = s.deps.Sink.WriteSnapshot(now, s.fmt.Render(p, s.st, s.feedState(), RenderSnapshot))

	if s.deps.Snapshots == nil {
		return
	}
	payload, err := json.Marshal(NewSnapshot(p))
	if err != nil {
		log.Error().Err(err).Msg("encode snapshot failed")
		return
	}
	if err := s.deps.Snapshots.InsertSnapshot(ctx, now, string(payload)); err != nil {
		log.Warn().Err(err).Msg("persist snapshot failed")
	}
}

// Snapshot 组合估值的持久化格式
type Snapshot struct {
	At        time.Time             `json:"at"`
	Summary   dsvc.PortfolioSummary `json:"summary"`
	Positions []PositionSnapshot    `json:"positions"`
}

type PositionSnapshot struct {
	Asset         string              `json:"asset"`
	Symbol        string              `json:"symbol"`
	Quantity      decimal.Decimal     `json:"quantity"`
	AveragePrice  decimal.NullDecimal `json:"average_price"`
	BreakEven     decimal.NullDecimal `json:"break_even"`
	Price         decimal.NullDecimal `json:"price"`
	PriceOrigin   model.Origin        `json:"price_origin,omitempty"`
	Stale         bool                `json:"stale"`
	CostBasis     decimal.Decimal     `json:"cost_basis"`
	CurrentValue  decimal.NullDecimal `json:"current_value"`
	UnrealizedPnL decimal.NullDecimal `json:"unrealized_pnl"`
	RealizedPnL   decimal.Decimal     `json:"realized_pnl"`
	PnLPercent    decimal.NullDecimal `json:"pnl_percent"`
	Orders        int                 `json:"orders"`
	Anomalies     int                 `json:"anomalies,omitempty"`
}

func NewSnapshot(p tracker.Portfolio) Snapshot {
	out := Snapshot{At: p.At, Summary: p.Summary, Positions: make([]PositionSnapshot, 0, len(p.Valuations))}
	for _, v := range p.Valuations {
		pos := v.Position
		ps := PositionSnapshot{
			Asset:         v.Asset,
			Symbol:        v.Pair.Symbol(),
			Quantity:      pos.TotalQuantityHeld,
			AveragePrice:  pos.AverageBuyPrice,
			BreakEven:     pos.BreakEvenPrice,
			Price:         pos.CurrentPrice,
			Stale:         v.Stale,
			CostBasis:     pos.CostBasis,
			CurrentValue:  pos.CurrentValue,
			UnrealizedPnL: pos.UnrealizedPnL,
			RealizedPnL:   pos.RealizedPnL,
			PnLPercent:    pos.PnLPercent,
			Orders:        pos.OrderCount,
			Anomalies:     len(pos.Anomalies),
		}
		if v.HasPrice {
			ps.PriceOrigin = v.Price.Origin
		}
		out.Positions = append(out.Positions, ps)
	}
	return out
}
