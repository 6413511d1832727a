package domain

import "github.com/shopspring/decimal"

// Direction 价格变动方向
type Direction int

const (
	DirectionSame Direction = 0
	DirectionUp   Direction = +1
	DirectionDown Direction = -1
)

// PriceState tracks the last price of one symbol and which way it moved.
type PriceState struct {
	Price     decimal.Decimal
	HasValue  bool
	Direction Direction
}

// Update 记录价格，返回显示值是否变化
func (ps *PriceState) Update(price decimal.Decimal) bool {
	if !ps.HasValue {
		ps.Price = price
		ps.HasValue = true
		ps.Direction = DirectionSame
		return true
	}
	switch price.Cmp(ps.Price) {
	case 1:
		ps.Direction = DirectionUp
	case -1:
		ps.Direction = DirectionDown
	default:
		ps.Direction = DirectionSame
		return false
	}
	ps.Price = price
	return true
}
