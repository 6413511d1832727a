package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"cointrack/internal/domain/model"
	"cointrack/internal/domain/service"
)

const (
	DefaultSyncTimeout     = 30 * time.Second
	DefaultSyncConcurrency = 4
	alertBuffer            = 64
)

// Service 跟踪服务，持有所有被跟踪币种及其派生状态
// 持仓从不存储，每次 Valuate 都从订单簿重新计算
type Service struct {
	deps Deps

	mu           sync.RWMutex
	assets       map[string]struct{}
	markets      model.MarketSet
	balances     map[string]model.Balance
	mappings     []model.SymbolMapping
	alerts       []model.PriceAlert
	manualPrices map[string]decimal.Decimal
	toggles      map[string]bool
	fees         model.FeeModel

	// saveMu 串行化持久化: 复制状态与写入 store 在同一把锁内，后复制的一定后写入
	saveMu sync.Mutex

	booksMu sync.Mutex
	books   map[string]*orderBook

	alertCh chan model.TriggeredAlert
}

func NewService(deps Deps) *Service {
	if deps.Resolver == nil {
		deps.Resolver = service.NewSymbolResolver(nil)
	}
	if deps.SyncTimeout <= 0 {
		deps.SyncTimeout = DefaultSyncTimeout
	}
	if deps.SyncConcurrency <= 0 {
		deps.SyncConcurrency = DefaultSyncConcurrency
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.ReportingCurrency = model.NormalizeAsset(deps.ReportingCurrency)
	if deps.ReportingCurrency == "" {
		deps.ReportingCurrency = "USDT"
	}

	s := &Service{
		deps:         deps,
		assets:       make(map[string]struct{}),
		markets:      model.NewMarketSet(),
		balances:     make(map[string]model.Balance),
		manualPrices: make(map[string]decimal.Decimal),
		toggles:      make(map[string]bool),
		fees:         deps.Fees,
		books:        make(map[string]*orderBook),
		alertCh:      make(chan model.TriggeredAlert, alertBuffer),
	}
	for _, a := range deps.Assets {
		if a = model.NormalizeAsset(a); a != "" {
			s.assets[a] = struct{}{}
		}
	}
	return s
}

func (s *Service) ReportingCurrency() string { return s.deps.ReportingCurrency }

// Alerts 已触发告警的通道。发送不阻塞: 缓冲满时告警仍会发到 sinks，但这里丢弃
func (s *Service) Alerts() <-chan model.TriggeredAlert { return s.alertCh }

func (s *Service) book(asset string) *orderBook {
	s.booksMu.Lock()
	defer s.booksMu.Unlock()
	b := s.books[asset]
	if b == nil {
		b = &orderBook{}
		s.books[asset] = b
	}
	return b
}

func (s *Service) allBooks() map[string]*orderBook {
	s.booksMu.Lock()
	defer s.booksMu.Unlock()
	out := make(map[string]*orderBook, len(s.books))
	for k, v := range s.books {
		out[k] = v
	}
	return out
}

// Load 恢复持久化状态。失败会记录日志并合并返回，加载失败的部分从空状态开始
func (s *Service) Load(ctx context.Context) error {
	st := s.deps.Store
	if st == nil {
		return nil
	}
	var errs []error
	warn := func(what string, err error) {
		log.Warn().Err(err).Str("state", what).Msg("load persisted state failed, starting empty")
		errs = append(errs, err)
	}

	mappings, err := st.LoadMappings(ctx)
	if err != nil {
		warn("mappings", err)
	}
	alerts, err := st.LoadAlerts(ctx)
	if err != nil {
		warn("alerts", err)
	}
	toggles, err := st.LoadInclusion(ctx)
	if err != nil {
		warn("inclusion", err)
	}
	manual, err := st.LoadManualOrders(ctx)
	if err != nil {
		warn("manual_orders", err)
	}
	prices, err := st.LoadManualPrices(ctx)
	if err != nil {
		warn("manual_prices", err)
	}

	s.mu.Lock()
	s.mappings = append([]model.SymbolMapping(nil), mappings...)
	s.alerts = append([]model.PriceAlert(nil), alerts...)
	for id, inc := range toggles {
		s.toggles[id] = inc
	}
	for sym, px := range prices {
		s.manualPrices[model.NormalizeAsset(sym)] = px
	}
	for _, a := range alerts {
		s.assets[model.NormalizeAsset(a.Asset)] = struct{}{}
	}
	byAsset := make(map[string][]model.Order)
	for _, o := range manual {
		if inc, ok := s.toggles[o.ID]; ok {
			o.Included = inc
		}
		asset := model.NormalizeAsset(o.Asset)
		byAsset[asset] = append(byAsset[asset], o)
		s.assets[asset] = struct{}{}
	}
	s.mu.Unlock()

	for asset, orders := range byAsset {
		s.book(asset).merge(orders)
	}
	if s.deps.Prices != nil && len(prices) > 0 {
		s.deps.Prices.LoadManualPrices(prices)
	}

	log.Info().
		Int("mappings", len(mappings)).
		Int("alerts", len(alerts)).
		Int("manual_orders", len(manual)).
		Int("manual_prices", len(prices)).
		Msg("state loaded")
	return errors.Join(errs...)
}

// ---------- 币种 ----------

// Assets 返回排序后的跟踪币种
func (s *Service) Assets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.assets))
	for a := range s.assets {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// ---------- 交易所同步 ----------

func (s *Service) SyncMarkets(ctx context.Context) error {
	if s.deps.Exchange == nil {
		return ErrNoExchange
	}
	cctx, cancel := context.WithTimeout(ctx, s.deps.SyncTimeout)
	defer cancel()

	pairs, err := s.deps.Exchange.FetchMarkets(cctx)
	if err != nil {
		return fmt.Errorf("sync markets: %w", err)
	}
	ms := model.NewMarketSet(pairs...)
	s.mu.Lock()
	s.markets = ms
	s.mu.Unlock()
	log.Info().Int("markets", ms.Len()).Msg("markets synced")
	return nil
}

// SyncBalances 刷新余额，并开始跟踪所有有持仓且有交易对的币种
func (s *Service) SyncBalances(ctx context.Context) error {
	if s.deps.Exchange == nil {
		return ErrNoExchange
	}
	cctx, cancel := context.WithTimeout(ctx, s.deps.SyncTimeout)
	defer cancel()

	balances, err := s.deps.Exchange.FetchBalances(cctx)
	if err != nil {
		return fmt.Errorf("sync balances: %w", err)
	}

	s.mu.Lock()
	s.balances = make(map[string]model.Balance, len(balances))
	discovered := 0
	for _, b := range balances {
		asset := model.NormalizeAsset(b.Asset)
		b.Asset = asset
		s.balances[asset] = b
		if asset == s.deps.ReportingCurrency || !b.Total().IsPositive() {
			continue
		}
		if s.markets.Len() > 0 && len(s.markets.QuotesFor(asset)) == 0 {
			continue
		}
		if _, ok := s.assets[asset]; !ok {
			s.assets[asset] = struct{}{}
			discovered++
		}
	}
	s.mu.Unlock()

	log.Info().Int("balances", len(balances)).Int("discovered", discovered).Msg("balances synced")
	return nil
}

// SyncFees 用账户的交易所费率替换手续费模型
func (s *Service) SyncFees(ctx context.Context) error {
	if s.deps.Exchange == nil {
		return ErrNoExchange
	}
	cctx, cancel := context.WithTimeout(ctx, s.deps.SyncTimeout)
	defer cancel()

	fees, err := s.deps.Exchange.FetchFeeRates(cctx)
	if err != nil {
		return fmt.Errorf("sync fees: %w", err)
	}
	if !fees.Valid() {
		return fmt.Errorf("sync fees: rates out of range: buy=%s sell=%s", fees.BuyRate, fees.SellRate)
	}
	s.mu.Lock()
	s.fees = fees
	s.mu.Unlock()
	log.Info().Str("buy", fees.BuyRate.String()).Str("sell", fees.SellRate.String()).Msg("fee rates synced")
	return nil
}

// syncPairs 需要拉取订单的交易对: 回退计价币 + 映射计价币 + 报告币种，且必须在市场列表中
func (s *Service) syncPairs(asset string) []model.Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := append([]string{s.deps.ReportingCurrency}, s.deps.Resolver.FallbackQuotes...)
	for _, m := range s.mappings {
		if model.NormalizeAsset(m.Asset) == asset {
			quotes = append(quotes, m.ActualQuote)
		}
	}
	seen := make(map[string]struct{}, len(quotes))
	var out []model.Pair
	for _, q := range quotes {
		q = model.NormalizeAsset(q)
		if q == "" || q == asset {
			continue
		}
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		if s.markets.Has(asset, q) {
			out = append(out, model.NewPair(asset, q))
		}
	}
	return out
}

func (s *Service) togglesCopy() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.toggles))
	for k, v := range s.toggles {
		out[k] = v
	}
	return out
}

// SyncOrders fetches the order history of asset on every relevant market and
// merges it into the book. A failing market does not stop the others.
func (s *Service) SyncOrders(ctx context.Context, asset string) (SyncReport, error) {
	asset = model.NormalizeAsset(asset)
	rep := SyncReport{Asset: asset}
	if asset == "" {
		return rep, ErrEmptyAsset
	}
	if s.deps.Exchange == nil {
		return rep, ErrNoExchange
	}

	rep.Pairs = s.syncPairs(asset)
	var (
		raw  []model.RawOrder
		errs []error
	)
	for _, p := range rep.Pairs {
		cctx, cancel := context.WithTimeout(ctx, s.deps.SyncTimeout)
		got, err := s.deps.Exchange.FetchOrders(cctx, p)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("fetch orders %s: %w", p.Symbol(), err))
			continue
		}
		raw = append(raw, got...)
	}
	rep.Fetched = len(raw)

	orders, malformed := service.Normalize(raw, nil, s.togglesCopy())
	rep.Malformed = malformed
	for _, e := range malformed {
		log.Warn().Err(e).Str("asset", asset).Msg("skip malformed order")
	}
	rep.Added = s.book(asset).merge(orders)

	s.mu.Lock()
	s.assets[asset] = struct{}{}
	s.mu.Unlock()

	log.Info().
		Str("asset", asset).
		Int("markets", len(rep.Pairs)).
		Int("fetched", rep.Fetched).
		Int("added", rep.Added).
		Int("malformed", len(rep.Malformed)).
		Msg("orders synced")
	return rep, errors.Join(errs...)
}

// SyncAll 依次刷新市场、余额，然后并发同步每个币种的订单，最后推送订阅的 symbol 集合
func (s *Service) SyncAll(ctx context.Context) error {
	if err := s.SyncMarkets(ctx); err != nil {
		return err
	}
	if err := s.SyncBalances(ctx); err != nil {
		log.Warn().Err(err).Msg("balances unavailable, keeping configured assets")
	}

	var g errgroup.Group
	g.SetLimit(s.deps.SyncConcurrency)
	for _, asset := range s.Assets() {
		g.Go(func() error {
			if _, err := s.SyncOrders(ctx, asset); err != nil {
				log.Error().Err(err).Str("asset", asset).Msg("sync orders failed")
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	s.notifyWatch()
	return err
}

// ---------- 订单 ----------

// Orders 返回币种订单历史的副本
func (s *Service) Orders(asset string) []model.Order {
	return s.book(model.NormalizeAsset(asset)).snapshot()
}

func (s *Service) findOrder(id string) (*orderBook, model.Order, bool) {
	for _, b := range s.allBooks() {
		if o, ok := b.find(id); ok {
			return b, o, true
		}
	}
	return nil, model.Order{}, false
}

// AddManualOrder creates a manual order, or replaces the manual order with
// the same id.
func (s *Service) AddManualOrder(ctx context.Context, in model.ManualOrderInput) (model.Order, error) {
	if in.Timestamp.IsZero() {
		in.Timestamp = s.deps.Now()
	}
	o, err := service.NormalizeManual(in)
	if err != nil {
		return model.Order{}, err
	}

	if b, prev, ok := s.findOrder(o.ID); ok {
		if prev.Source != model.SourceManual {
			return model.Order{}, fmt.Errorf("%s: %w", o.ID, model.ErrImmutableOrder)
		}
		if model.NormalizeAsset(prev.Asset) != o.Asset {
			b.remove(o.ID)
		}
	}

	s.mu.Lock()
	if inc, ok := s.toggles[o.ID]; ok {
		o.Included = inc
	}
	s.assets[o.Asset] = struct{}{}
	s.mu.Unlock()

	s.book(o.Asset).merge([]model.Order{o})
	s.notifyWatch()
	return o, s.saveManualOrders(ctx)
}

// DeleteManualOrder 删除手动订单。交易所订单不能删除，只能用 SetIncluded 排除
func (s *Service) DeleteManualOrder(ctx context.Context, id string) error {
	b, o, ok := s.findOrder(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, model.ErrOrderNotFound)
	}
	if o.Source != model.SourceManual {
		return fmt.Errorf("%s: %w", id, model.ErrImmutableOrder)
	}
	b.remove(id)

	s.mu.Lock()
	_, hadToggle := s.toggles[id]
	delete(s.toggles, id)
	s.mu.Unlock()

	err := s.saveManualOrders(ctx)
	if hadToggle {
		err = errors.Join(err, s.saveInclusion(ctx))
	}
	return err
}

// SetIncluded 切换订单是否参与估值
func (s *Service) SetIncluded(ctx context.Context, id string, included bool) error {
	var (
		updated model.Order
		found   bool
	)
	for _, b := range s.allBooks() {
		if updated, found = b.setIncluded(id, included); found {
			break
		}
	}
	if !found {
		return fmt.Errorf("%s: %w", id, model.ErrOrderNotFound)
	}

	s.mu.Lock()
	s.toggles[id] = included
	s.mu.Unlock()

	err := s.saveInclusion(ctx)
	if updated.Source == model.SourceManual {
		err = errors.Join(err, s.saveManualOrders(ctx))
	}
	return err
}

func (s *Service) saveManualOrders(ctx context.Context) error {
	if s.deps.Store == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	var all []model.Order
	for _, b := range s.allBooks() {
		all = append(all, b.manual()...)
	}
	service.SortOrders(all)
	return model.Unavailable("save manual orders", s.deps.Store.SaveManualOrders(ctx, all))
}

func (s *Service) saveInclusion(ctx context.Context) error {
	if s.deps.Store == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return model.Unavailable("save inclusion", s.deps.Store.SaveInclusion(ctx, s.togglesCopy()))
}

// ---------- 交易对映射 ----------

func (s *Service) Mappings() []model.SymbolMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.SymbolMapping(nil), s.mappings...)
}

// SetSymbolMapping 新增或替换 (asset, preferred quote) 的映射
func (s *Service) SetSymbolMapping(ctx context.Context, m model.SymbolMapping) error {
	m = model.SymbolMapping{
		Asset:          model.NormalizeAsset(m.Asset),
		PreferredQuote: model.NormalizeAsset(m.PreferredQuote),
		ActualQuote:    model.NormalizeAsset(m.ActualQuote),
	}
	if m.Asset == "" {
		return ErrEmptyAsset
	}
	if m.ActualQuote == "" || m.ActualQuote == m.Asset {
		return fmt.Errorf("tracker: invalid actual quote %q for %s", m.ActualQuote, m.Asset)
	}

	s.mu.Lock()
	replaced := false
	for i, cur := range s.mappings {
		if cur.Asset == m.Asset && cur.PreferredQuote == m.PreferredQuote {
			s.mappings[i] = m
			replaced = true
			break
		}
	}
	if !replaced {
		s.mappings = append(s.mappings, m)
	}
	s.assets[m.Asset] = struct{}{}
	s.mu.Unlock()

	s.notifyWatch()
	return s.saveMappings(ctx)
}

func (s *Service) RemoveSymbolMapping(ctx context.Context, asset, preferredQuote string) error {
	asset, preferredQuote = model.NormalizeAsset(asset), model.NormalizeAsset(preferredQuote)

	s.mu.Lock()
	idx := -1
	for i, cur := range s.mappings {
		if cur.Asset == asset && cur.PreferredQuote == preferredQuote {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", asset, preferredQuote, ErrMappingNotFound)
	}
	s.mappings = append(s.mappings[:idx:idx], s.mappings[idx+1:]...)
	s.mu.Unlock()

	s.notifyWatch()
	return s.saveMappings(ctx)
}

func (s *Service) saveMappings(ctx context.Context) error {
	if s.deps.Store == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return model.Unavailable("save mappings", s.deps.Store.SaveMappings(ctx, s.Mappings()))
}

// Resolve returns the market used to price asset in the reporting currency.
func (s *Service) Resolve(asset string) (model.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(model.NormalizeAsset(asset))
}

func (s *Service) resolveLocked(asset string) (model.Pair, error) {
	return s.deps.Resolver.Resolve(asset, s.deps.ReportingCurrency, s.markets, s.mappings)
}

// ---------- 价格 ----------

func (s *Service) latest(symbol string) (model.Quote, bool) {
	if s.deps.Prices == nil {
		return model.Quote{}, false
	}
	q, err := s.deps.Prices.LatestPrice(symbol)
	if err != nil {
		return model.Quote{}, false
	}
	return q, true
}

func (s *Service) rate(base, quote string) (decimal.Decimal, bool) {
	q, ok := s.latest(model.NewPair(base, quote).Symbol())
	if !ok {
		return decimal.Zero, false
	}
	return q.Price, true
}

// SetManualPrice 保存手动价格，价格为 0 时清除
func (s *Service) SetManualPrice(ctx context.Context, asset, quote string, price decimal.Decimal) error {
	p := model.NewPair(asset, quote)
	if p.Base == "" || p.Quote == "" {
		return fmt.Errorf("tracker: manual price needs asset and quote, got %q/%q", asset, quote)
	}
	if price.IsNegative() {
		return fmt.Errorf("tracker: manual price for %s must not be negative", p)
	}
	if s.deps.Prices != nil {
		if err := s.deps.Prices.SetManualPrice(p.Symbol(), price); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if price.IsZero() {
		delete(s.manualPrices, p.Symbol())
	} else {
		s.manualPrices[p.Symbol()] = price
	}
	s.assets[p.Base] = struct{}{}
	s.mu.Unlock()

	return s.saveManualPrices(ctx)
}

func (s *Service) saveManualPrices(ctx context.Context) error {
	if s.deps.Store == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.mu.RLock()
	prices := make(map[string]decimal.Decimal, len(s.manualPrices))
	for k, v := range s.manualPrices {
		prices[k] = v
	}
	s.mu.RUnlock()
	return model.Unavailable("save manual prices", s.deps.Store.SaveManualPrices(ctx, prices))
}

// ---------- 告警 ----------

// ListAlerts 返回所有告警，按创建时间升序
func (s *Service) ListAlerts() []model.PriceAlert {
	s.mu.RLock()
	out := append([]model.PriceAlert(nil), s.alerts...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// AddAlert 创建已启用的告警。阈值以估值交易对的计价币表示，且不能已被当前价格越过
func (s *Service) AddAlert(ctx context.Context, asset string, dir model.Direction, threshold decimal.Decimal) (model.PriceAlert, error) {
	asset = model.NormalizeAsset(asset)
	if asset == "" {
		return model.PriceAlert{}, ErrEmptyAsset
	}

	current := model.Null()
	s.mu.RLock()
	pair, _, err := s.pricingPairLocked(asset)
	s.mu.RUnlock()
	if err == nil {
		if q, ok := s.latest(pair.Symbol()); ok {
			current = model.Some(q.Price)
		}
	}
	if err := service.ValidateNewAlert(dir, threshold, current); err != nil {
		return model.PriceAlert{}, err
	}

	a := service.NewAlert(asset, dir, threshold, s.deps.Now())
	s.mu.Lock()
	s.alerts = append(s.alerts, a)
	s.assets[asset] = struct{}{}
	s.mu.Unlock()

	s.notifyWatch()
	return a, s.saveAlerts(ctx)
}

func (s *Service) RearmAlert(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Armed = true
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("%s: %w", id, model.ErrAlertNotFound)
	}
	return s.saveAlerts(ctx)
}

func (s *Service) RemoveAlert(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		s.alerts = append(s.alerts[:idx:idx], s.alerts[idx+1:]...)
	}
	s.mu.Unlock()
	if idx < 0 {
		return fmt.Errorf("%s: %w", id, model.ErrAlertNotFound)
	}
	return s.saveAlerts(ctx)
}

func (s *Service) saveAlerts(ctx context.Context) error {
	if s.deps.Store == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.mu.RLock()
	alerts := append([]model.PriceAlert(nil), s.alerts...)
	s.mu.RUnlock()
	return model.Unavailable("save alerts", s.deps.Store.SaveAlerts(ctx, alerts))
}

// OnPrice evaluates the armed alerts of every asset priced by q.Symbol.
// Triggered alerts are disarmed, persisted, sent on Alerts() and published
// to every sink. Stale quotes are ignored.
func (s *Service) OnPrice(ctx context.Context, q model.Quote) []model.TriggeredAlert {
	if q.Stale || !q.Price.IsPositive() {
		return nil
	}
	symbol := model.NormalizeAsset(q.Symbol)
	now := s.deps.Now()

	s.mu.Lock()
	var fired []model.TriggeredAlert
	checked := make(map[string]struct{})
	for _, a := range s.alerts {
		if !a.Armed {
			continue
		}
		asset := model.NormalizeAsset(a.Asset)
		if _, ok := checked[asset]; ok {
			continue
		}
		checked[asset] = struct{}{}
		if !s.pricedByLocked(asset, symbol) {
			continue
		}
		var got []model.TriggeredAlert
		got, s.alerts = service.EvaluateAlerts(asset, q.Price, s.alerts, now)
		fired = append(fired, got...)
	}
	s.mu.Unlock()

	if len(fired) == 0 {
		return nil
	}
	if err := s.saveAlerts(ctx); err != nil {
		log.Warn().Err(err).Msg("persist disarmed alerts failed")
	}
	for _, t := range fired {
		log.Info().
			Str("asset", t.Asset).
			Str("direction", string(t.Direction)).
			Str("threshold", t.Threshold.String()).
			Str("price", t.Price.String()).
			Msg("alert triggered")
		select {
		case s.alertCh <- t:
		default:
			log.Warn().Str("alert", t.AlertID).Msg("alert channel full, dropped")
		}
		for _, sink := range s.deps.AlertSinks {
			if err := sink.PublishAlert(ctx, t); err != nil {
				log.Warn().Err(err).Str("alert", t.AlertID).Msg("publish alert failed")
			}
		}
	}
	return fired
}

// pricedByLocked 判断 symbol 是否为该币种的估值交易对
func (s *Service) pricedByLocked(asset, symbol string) bool {
	pair, _, err := s.pricingPairLocked(asset)
	return err == nil && pair.Symbol() == symbol
}

// pricingPairLocked 返回估值所用交易对。无交易对时退回到 asset + 最后一笔订单的计价币
// (没有订单则用报告币种)，价格只能来自手动输入，noMarket 为 true。
func (s *Service) pricingPairLocked(asset string) (pair model.Pair, noMarket bool, err error) {
	pair, err = s.resolveLocked(asset)
	if err == nil {
		return pair, false, nil
	}
	var nm *model.NoMarketFoundError
	if !errors.As(err, &nm) {
		return model.Pair{}, false, err
	}
	quote := s.deps.ReportingCurrency
	orders := s.book(asset).snapshot()
	if n := len(orders); n > 0 {
		quote = orders[n-1].QuoteCurrency
	}
	return model.NewPair(asset, quote), true, nil
}

// ---------- 估值 ----------

// Valuate computes the current position of asset. A missing market or price
// is reported on the Valuation, never as an error.
func (s *Service) Valuate(asset string) (Valuation, error) {
	asset = model.NormalizeAsset(asset)
	if asset == "" {
		return Valuation{}, ErrEmptyAsset
	}
	orders := s.book(asset).snapshot()

	s.mu.RLock()
	pair, noMarket, err := s.pricingPairLocked(asset)
	bal, hasBal := s.balances[asset]
	fees := s.fees
	s.mu.RUnlock()
	if err != nil {
		return Valuation{}, err
	}

	v := Valuation{Asset: asset, Pair: pair, NoMarket: noMarket}
	if hasBal {
		v.Balance = bal
	} else {
		v.Balance = model.Balance{Asset: asset}
	}

	converted, unconverted := service.ConvertOrders(orders, pair.Quote, s.rate)
	for _, o := range unconverted {
		if o.Included {
			v.Unconverted = append(v.Unconverted, o.ID)
		}
	}

	price := model.Null()
	if q, ok := s.latest(pair.Symbol()); ok {
		v.Price, v.HasPrice, v.Stale = q, true, q.Stale
		price = model.Some(q.Price)
	}

	valuator := service.Valuator{Fees: fees}
	v.Position = valuator.ComputePosition(asset, converted, price)
	v.Position.Quote = pair.Quote

	if r, ok := service.ConversionRate(pair.Quote, s.deps.ReportingCurrency, s.rate); ok {
		v.RateToReporting = model.Some(r)
	}
	return v, nil
}

// Portfolio 估值所有跟踪币种，并按报告币种汇总
func (s *Service) Portfolio() Portfolio {
	p := Portfolio{At: s.deps.Now().UTC()}
	items := make([]service.PortfolioItem, 0)
	for _, asset := range s.Assets() {
		v, err := s.Valuate(asset)
		if err != nil {
			log.Warn().Err(err).Str("asset", asset).Msg("valuation failed")
			continue
		}
		p.Valuations = append(p.Valuations, v)
		items = append(items, service.PortfolioItem{Position: v.Position, Rate: v.RateToReporting})
	}
	p.Summary = service.Summarize(s.deps.ReportingCurrency, items)
	return p
}

// ---------- 订阅 symbol ----------

// WatchSymbols lists every symbol the price feed must follow: the market of
// each tracked asset plus the pairs needed for quote conversion.
func (s *Service) WatchSymbols() []string {
	assets := s.Assets()
	quotesByAsset := make(map[string][]string, len(assets))
	for _, a := range assets {
		quotesByAsset[a] = s.book(a).quotes()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	add := func(p model.Pair) {
		sym := p.Symbol()
		if _, ok := seen[sym]; ok {
			return
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}

	var pricedQuotes []string
	for _, a := range assets {
		pair, err := s.resolveLocked(a)
		if err != nil {
			continue
		}
		add(pair)
		pricedQuotes = append(pricedQuotes, pair.Quote)
		for _, p := range service.ConversionPairs(quotesByAsset[a], pair.Quote, s.markets) {
			add(p)
		}
	}
	for _, p := range service.ConversionPairs(pricedQuotes, s.deps.ReportingCurrency, s.markets) {
		add(p)
	}
	sort.Strings(out)
	return out
}

func (s *Service) notifyWatch() {
	if s.deps.Watch == nil {
		return
	}
	s.deps.Watch(s.WatchSymbols())
}
