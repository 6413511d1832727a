package monitor

import (
	"sync"

	"cointrack/internal/domain"
	"cointrack/internal/domain/model"
)

// State 记录每个交易对最近一次价格及涨跌方向，用于着色
type State struct {
	mu     sync.Mutex
	prices map[string]*domain.PriceState
}

func NewState() *State {
	return &State{prices: make(map[string]*domain.PriceState)}
}

// Apply 记录报价，返回显示价格是否变化
func (s *State) Apply(q model.Quote) bool {
	sym := model.NormalizeAsset(q.Symbol)
	if sym == "" || !q.Price.IsPositive() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ps := s.prices[sym]
	if ps == nil {
		ps = &domain.PriceState{}
		s.prices[sym] = ps
	}
	return ps.Update(q.Price)
}

// Direction of the last change of symbol; DirectionSame when unknown.
func (s *State) Direction(symbol string) domain.Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ps := s.prices[model.NormalizeAsset(symbol)]; ps != nil {
		return ps.Direction
	}
	return domain.DirectionSame
}
