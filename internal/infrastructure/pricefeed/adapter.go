package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"cointrack/internal/application/port"
	"cointrack/internal/domain/model"
)

const (
	DefaultStaleAfter     = 30 * time.Second
	DefaultPollInterval   = 5 * time.Second
	DefaultRequestTimeout = 5 * time.Second
)

type Config struct {
	StaleAfter     time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration
	// Now 时钟，nil 时使用 time.Now
	Now func() time.Time
}

type entry struct {
	price  decimal.Decimal
	at     time.Time
	origin model.Origin
}

// snapshot 发布后不可修改
type snapshot struct {
	push   map[string]entry
	poll   map[string]entry
	manual map[string]entry
}

// Adapter 组合推送、轮询与手动价格，对外实现 port.PriceSource
// 读取无锁；写入方在 mu 上串行，并发布新的 snapshot
type Adapter struct {
	feed   port.PriceFeed
	poller port.PricePoller
	cfg    Config

	snap atomic.Pointer[snapshot]
	mu   sync.Mutex // 写入方 + stopped + updates

	state     atomic.Int32
	connected atomic.Bool
	lastPush  atomic.Int64 // 最后一次推送的 unix nano
	stopped   bool

	symMu   sync.Mutex
	symbols []string
	resub   chan struct{}

	lisMu     sync.Mutex
	listeners []func(model.FeedState)

	updates chan model.Quote
}

var _ port.PriceSource = (*Adapter)(nil)

// NewAdapter 创建适配器。feed 为 nil 时仅轮询，poller 为 nil 时仅推送
func NewAdapter(feed port.PriceFeed, poller port.PricePoller, cfg Config) *Adapter {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	a := &Adapter{
		feed:    feed,
		poller:  poller,
		cfg:     cfg,
		resub:   make(chan struct{}, 1),
		updates: make(chan model.Quote, 1024),
	}
	a.snap.Store(&snapshot{
		push:   map[string]entry{},
		poll:   map[string]entry{},
		manual: map[string]entry{},
	})
	a.state.Store(int32(model.FeedDegraded))
	return a
}

func (a *Adapter) State() model.FeedState { return model.FeedState(a.state.Load()) }

// OnStateChange 注册状态变化回调
func (a *Adapter) OnStateChange(fn func(model.FeedState)) {
	if fn == nil {
		return
	}
	a.lisMu.Lock()
	a.listeners = append(a.listeners, fn)
	a.lisMu.Unlock()
}

// Updates 所有被接受的报价，Run 返回后关闭
func (a *Adapter) Updates() <-chan model.Quote { return a.updates }

// LatestPrice returns the newest of the push and poll values, falling back
// to a manual price. Stale is a flag, never an error. A push value read
// while the feed is DEGRADED is stale until a newer poll value or a
// reconnect replaces it.
func (a *Adapter) LatestPrice(symbol string) (model.Quote, error) {
	symbol = model.NormalizeAsset(symbol)
	s := a.snap.Load()
	now := a.cfg.Now()
	state := a.State()
	stopped := state == model.FeedStopped

	push, hasPush := s.push[symbol]
	poll, hasPoll := s.poll[symbol]

	var (
		e  entry
		ok bool
	)
	switch {
	case hasPush && hasPoll:
		e, ok = push, true
		if poll.at.After(push.at) {
			e = poll
		}
	case hasPush:
		e, ok = push, true
	case hasPoll:
		e, ok = poll, true
	}
	if ok {
		return model.Quote{
			Symbol: symbol,
			Price:  e.price,
			At:     e.at,
			Origin: e.origin,
			Stale: stopped || now.Sub(e.at) > a.cfg.StaleAfter ||
				(e.origin == model.OriginPush && state == model.FeedDegraded),
		}, nil
	}

	if m, ok := s.manual[symbol]; ok {
		return model.Quote{Symbol: symbol, Price: m.price, At: m.at, Origin: model.OriginManual, Stale: stopped}, nil
	}
	return model.Quote{}, fmt.Errorf("%s: %w", symbol, model.ErrPriceUnavailable)
}

// SetManualPrice 记录手动价格（无行情时使用），价格为 0 时删除
func (a *Adapter) SetManualPrice(symbol string, price decimal.Decimal) error {
	symbol = model.NormalizeAsset(symbol)
	if symbol == "" {
		return errors.New("symbol empty")
	}
	if price.IsNegative() {
		return fmt.Errorf("manual price for %s must not be negative", symbol)
	}
	if price.IsZero() {
		a.mu.Lock()
		a.publishLocked(func(s *snapshot) { delete(s.manual, symbol) })
		a.mu.Unlock()
		return nil
	}
	a.apply(model.OriginManual, symbol, price, a.cfg.Now())
	return nil
}

// LoadManualPrices 加载已持久化的手动价格，不产生 updates
func (a *Adapter) LoadManualPrices(prices map[string]decimal.Decimal) {
	now := a.cfg.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.publishLocked(func(s *snapshot) {
		for sym, px := range prices {
			if px.IsPositive() {
				s.manual[model.NormalizeAsset(sym)] = entry{price: px, at: now, origin: model.OriginManual}
			}
		}
	})
}

// Watch 替换订阅的 symbol 集合，运行中的推送订阅会重新订阅
func (a *Adapter) Watch(symbols []string) {
	norm := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = model.NormalizeAsset(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		norm = append(norm, s)
	}

	a.symMu.Lock()
	same := equalStrings(a.symbols, norm)
	a.symbols = norm
	a.symMu.Unlock()

	if same {
		return
	}
	select {
	case a.resub <- struct{}{}:
	default:
	}
}

func (a *Adapter) watched() []string {
	a.symMu.Lock()
	defer a.symMu.Unlock()
	return append([]string(nil), a.symbols...)
}

// Run drives the push subscription and the poll loop until ctx is done.
// The adapter is STOPPED afterwards; reads still return the last prices,
// flagged stale.
func (a *Adapter) Run(ctx context.Context) error {
	if a.feed == nil && a.poller == nil {
		return errors.New("pricefeed: neither push feed nor poller configured")
	}
	if a.feed != nil {
		a.feed.OnConnState(a.onConnState)
	}

	var wg sync.WaitGroup
	if a.feed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.silenceLoop(ctx)
		}()
	}
	if a.poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.pollLoop(ctx)
		}()
	}

	a.pushLoop(ctx)
	wg.Wait()

	a.mu.Lock()
	a.stopped = true
	close(a.updates)
	a.mu.Unlock()
	a.setState(model.FeedStopped)
	return nil
}

func (a *Adapter) pushLoop(ctx context.Context) {
	var (
		ticks  <-chan port.Tick
		cancel context.CancelFunc = func() {}
	)
	defer func() { cancel() }()

	subscribe := func() {
		cancel()
		ticks = nil
		syms := a.watched()
		if a.feed == nil || len(syms) == 0 {
			return
		}
		sctx, c := context.WithCancel(ctx)
		ch, err := a.feed.Subscribe(sctx, syms)
		if err != nil {
			c()
			log.Error().Str("feed", a.feed.Name()).Err(err).Msg("subscribe failed")
			a.onConnState(false)
			return
		}
		cancel, ticks = c, ch
		log.Info().Str("feed", a.feed.Name()).Int("symbols", len(syms)).Msg("feed subscribed")
	}
	// 首次订阅已包含 Run 之前 Watch 的 symbol
	select {
	case <-a.resub:
	default:
	}
	subscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.resub:
			subscribe()
		case t, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			a.onTick(t)
		}
	}
}

func (a *Adapter) onTick(t port.Tick) {
	if !t.Price.IsPositive() {
		return
	}
	now := a.cfg.Now()
	a.lastPush.Store(now.UnixNano())
	at := now
	if t.Ts > 0 {
		at = t.Time()
	}
	// 收到 tick 说明连接正常
	if a.connected.Load() && a.State() == model.FeedDegraded {
		a.setState(model.FeedActive)
	}
	a.apply(model.OriginPush, model.NormalizeAsset(t.Symbol), t.Price, at)
}

func (a *Adapter) onConnState(connected bool) {
	a.connected.Store(connected)
	if connected {
		a.lastPush.Store(a.cfg.Now().UnixNano())
		a.setState(model.FeedActive)
		return
	}
	a.setState(model.FeedDegraded)
}

func (a *Adapter) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	a.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.pollOnce(ctx)
		}
	}
}

// silenceLoop 独立于轮询运行，纯推送模式下也能发现静默的连接
func (a *Adapter) silenceLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.StaleAfter / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.checkSilence()
		}
	}
}

// checkSilence ACTIVE 状态下长时间无 tick 则降级为 DEGRADED
func (a *Adapter) checkSilence() {
	if a.State() != model.FeedActive {
		return
	}
	last := time.Unix(0, a.lastPush.Load())
	if a.cfg.Now().Sub(last) > a.cfg.StaleAfter {
		log.Warn().Dur("silent_for", a.cfg.Now().Sub(last)).Msg("push feed silent")
		a.setState(model.FeedDegraded)
	}
}

// pollOnce 轮询所有没有新鲜推送价格的 symbol
// ACTIVE 时只有推送尚未覆盖的 symbol
func (a *Adapter) pollOnce(ctx context.Context) {
	degraded := a.State() != model.FeedActive
	s := a.snap.Load()
	now := a.cfg.Now()

	for _, sym := range a.watched() {
		if ctx.Err() != nil {
			return
		}
		if !degraded {
			if e, ok := s.push[sym]; ok && now.Sub(e.at) <= a.cfg.StaleAfter {
				continue
			}
		}
		pctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
		px, err := a.poller.PollPrice(pctx, sym)
		cancel()
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Str("symbol", sym).Err(err).Msg("poll price failed")
			}
			continue
		}
		if px.IsPositive() {
			a.apply(model.OriginPoll, sym, px, a.cfg.Now())
		}
	}
}

func (a *Adapter) apply(origin model.Origin, symbol string, price decimal.Decimal, at time.Time) {
	e := entry{price: price, at: at, origin: origin}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.publishLocked(func(s *snapshot) {
		switch origin {
		case model.OriginPush:
			s.push[symbol] = e
		case model.OriginPoll:
			s.poll[symbol] = e
		case model.OriginManual:
			s.manual[symbol] = e
		}
	})
	if a.stopped {
		return
	}
	select {
	case a.updates <- model.Quote{Symbol: symbol, Price: price, At: at, Origin: origin}:
	default:
		log.Debug().Str("symbol", symbol).Msg("updates channel full, dropping quote")
	}
}

// publishLocked 复制当前 snapshot，修改副本后替换。调用方需持有 a.mu
func (a *Adapter) publishLocked(mutate func(*snapshot)) {
	cur := a.snap.Load()
	next := &snapshot{
		push:   copyEntries(cur.push),
		poll:   copyEntries(cur.poll),
		manual: copyEntries(cur.manual),
	}
	mutate(next)
	a.snap.Store(next)
}

// setState STOPPED 之后不再变化
func (a *Adapter) setState(s model.FeedState) {
	var prev model.FeedState
	for {
		prev = model.FeedState(a.state.Load())
		if prev == s || prev == model.FeedStopped {
			return
		}
		if a.state.CompareAndSwap(int32(prev), int32(s)) {
			break
		}
	}
	log.Info().Str("from", prev.String()).Str("to", s.String()).Msg("price feed state changed")

	a.lisMu.Lock()
	ls := append([]func(model.FeedState){}, a.listeners...)
	a.lisMu.Unlock()
	for _, fn := range ls {
		fn(s)
	}
}

func copyEntries(m map[string]entry) map[string]entry {
	out := make(map[string]entry, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
