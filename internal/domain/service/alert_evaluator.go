package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

// EvaluateAlerts checks every armed alert of asset against price.
// It returns the triggers and the full alert list with triggered alerts
// disarmed. The input slice is left untouched.
func EvaluateAlerts(asset string, price decimal.Decimal, alerts []model.PriceAlert, now time.Time) ([]model.TriggeredAlert, []model.PriceAlert) {
	asset = model.NormalizeAsset(asset)
	updated := make([]model.PriceAlert, len(alerts))
	copy(updated, alerts)

	var fired []model.TriggeredAlert
	for i := range updated {
		a := &updated[i]
		if !a.Armed || model.NormalizeAsset(a.Asset) != asset {
			continue
		}
		if !crossed(a.Direction, price, a.Threshold) {
			continue
		}
		a.Armed = false
		fired = append(fired, model.TriggeredAlert{
			AlertID:   a.ID,
			Asset:     asset,
			Threshold: a.Threshold,
			Direction: a.Direction,
			Price:     price,
			Timestamp: now.UTC(),
		})
	}
	return fired, updated
}

func crossed(dir model.Direction, price, threshold decimal.Decimal) bool {
	switch dir {
	case model.DirectionAbove:
		return price.GreaterThanOrEqual(threshold)
	case model.DirectionBelow:
		return price.LessThanOrEqual(threshold)
	default:
		return false
	}
}

// ValidateNewAlert 校验新告警: 阈值必须为正；已知当前价格时，不允许创建后立即触发的告警
func ValidateNewAlert(direction model.Direction, threshold decimal.Decimal, current decimal.NullDecimal) error {
	if !threshold.IsPositive() {
		return fmt.Errorf("%w: threshold must be positive, got %s", model.ErrInvalidAlert, threshold)
	}
	switch direction {
	case model.DirectionAbove:
		if current.Valid && threshold.LessThanOrEqual(current.Decimal) {
			return fmt.Errorf("%w: ABOVE threshold %s must exceed current price %s", model.ErrInvalidAlert, threshold, current.Decimal)
		}
	case model.DirectionBelow:
		if current.Valid && threshold.GreaterThanOrEqual(current.Decimal) {
			return fmt.Errorf("%w: BELOW threshold %s must be under current price %s", model.ErrInvalidAlert, threshold, current.Decimal)
		}
	default:
		return fmt.Errorf("%w: unknown direction %q", model.ErrInvalidAlert, direction)
	}
	return nil
}

// NewAlert 创建已启用的告警，生成新 ID
func NewAlert(asset string, direction model.Direction, threshold decimal.Decimal, now time.Time) model.PriceAlert {
	return model.PriceAlert{
		ID:        uuid.NewString(),
		Asset:     model.NormalizeAsset(asset),
		Threshold: threshold,
		Direction: direction,
		Armed:     true,
		CreatedAt: now.UTC(),
	}
}
