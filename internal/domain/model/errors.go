package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrPriceUnavailable 该 symbol 没有推送、轮询或手动价格
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrOrderNotFound    = errors.New("order not found")
	// ErrImmutableOrder 交易所订单只能切换是否参与估值，不能删除或修改
	ErrImmutableOrder = errors.New("exchange orders are immutable")
	ErrAlertNotFound  = errors.New("alert not found")
	ErrInvalidAlert   = errors.New("invalid alert")
)

// MalformedOrderError 无法规范化的原始订单
type MalformedOrderError struct {
	OrderID string
	Field   string
	Value   string
	Reason  string
}

func (e *MalformedOrderError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed order %s: %s %q: %s", e.OrderID, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("malformed order %s: invalid %s %q", e.OrderID, e.Field, e.Value)
}

// NoMarketFoundError 没有交易对，需要手动输入价格
type NoMarketFoundError struct {
	Asset string
}

func (e *NoMarketFoundError) Error() string {
	return fmt.Sprintf("no market found for %s", e.Asset)
}

// OverHeldSellAnomaly is recorded when a sell exceeds the recorded holding.
// The position is still computed; the anomaly is surfaced for review.
type OverHeldSellAnomaly struct {
	OrderID   string
	Requested decimal.Decimal
	Held      decimal.Decimal
}

func (a OverHeldSellAnomaly) Error() string {
	return fmt.Sprintf("order %s sells %s but only %s held", a.OrderID, a.Requested, a.Held)
}

// PersistenceUnavailableError fails a single load/save; in-memory state keeps working.
type PersistenceUnavailableError struct {
	Op  string
	Err error
}

func (e *PersistenceUnavailableError) Error() string {
	return fmt.Sprintf("persistence unavailable (%s): %v", e.Op, e.Err)
}

func (e *PersistenceUnavailableError) Unwrap() error { return e.Err }

// Unavailable 把 err 包装为 PersistenceUnavailableError，nil 仍返回 nil
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceUnavailableError{Op: op, Err: err}
}
