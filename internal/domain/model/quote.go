package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Origin 价格来源
type Origin string

const (
	OriginPush   Origin = "PUSH"
	OriginPoll   Origin = "POLL"
	OriginManual Origin = "MANUAL"
)

// Quote 某个交易对的最新价格
type Quote struct {
	Symbol string
	Price  decimal.Decimal
	At     time.Time
	Origin Origin
	Stale  bool
}

// FeedState 价格源连接状态
type FeedState int

const (
	FeedActive FeedState = iota
	FeedDegraded
	FeedStopped
)

func (s FeedState) String() string {
	switch s {
	case FeedActive:
		return "ACTIVE"
	case FeedDegraded:
		return "DEGRADED"
	case FeedStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}
