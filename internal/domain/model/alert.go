package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction 告警方向
type Direction string

const (
	DirectionAbove Direction = "ABOVE"
	DirectionBelow Direction = "BELOW"
)

func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case DirectionAbove:
		return DirectionAbove, true
	case DirectionBelow:
		return DirectionBelow, true
	default:
		return "", false
	}
}

// PriceAlert fires once when the price crosses Threshold in Direction, then
// stays disarmed until the user re-arms it.
type PriceAlert struct {
	ID        string
	Asset     string
	Threshold decimal.Decimal
	Direction Direction
	Armed     bool
	CreatedAt time.Time
}

// TriggeredAlert 每次越过阈值只产生一次
type TriggeredAlert struct {
	AlertID   string          `json:"alert_id"`
	Asset     string          `json:"asset"`
	Threshold decimal.Decimal `json:"threshold"`
	Direction Direction       `json:"direction"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}
