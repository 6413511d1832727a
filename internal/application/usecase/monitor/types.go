package monitor

import (
	"context"

	"cointrack/internal/application/usecase/tracker"
	"cointrack/internal/domain/model"
)

// Tracker monitor 使用的 tracker.Service 接口
type Tracker interface {
	OnPrice(ctx context.Context, q model.Quote) []model.TriggeredAlert
	Portfolio() tracker.Portfolio
	Alerts() <-chan model.TriggeredAlert
}

var _ Tracker = (*tracker.Service)(nil)
