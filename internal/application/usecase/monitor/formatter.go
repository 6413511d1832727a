package monitor

import (
	"strings"

	"github.com/shopspring/decimal"

	"cointrack/internal/application/usecase/tracker"
	"cointrack/internal/domain"
	"cointrack/internal/domain/model"
	dsvc "cointrack/internal/domain/service"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct {
	// PnLThreshold 盈亏百分比超过该值时显示绿色/红色
	PnLThreshold decimal.Decimal
}

func NewFormatter(thresholdPct float64) *Formatter {
	return &Formatter{PnLThreshold: decimal.NewFromFloat(thresholdPct)}
}

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

// Render 输出一行: 每个币种的价格、均价和盈亏，最后是组合总计。过期价格后缀 '*'
func (f *Formatter) Render(p tracker.Portfolio, st *State, feed model.FeedState, mode RenderMode) string {
	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}

	tag := "[COINTRACK] "
	if feed != model.FeedActive {
		tag = "[COINTRACK " + feed.String() + "] "
	}
	sb.WriteString(colorize(tag, ansiDim))

	for i, v := range p.Valuations {
		if i > 0 {
			sb.WriteString(colorize("  ||  ", ansiDim))
		}
		f.writeValuation(&sb, v, st)
	}

	s := p.Summary
	sb.WriteString(colorize("  ||  ", ansiDim))
	sb.WriteString("TOTAL ")
	sb.WriteString(fmtAmount(s.TotalValue))
	sb.WriteString(" ")
	sb.WriteString(s.Currency)
	sb.WriteString(" ")
	sb.WriteString(f.pnl(s.PnLPercent))
	if len(s.Unpriced) > 0 {
		sb.WriteString(colorize(" unpriced:"+strings.Join(s.Unpriced, ","), ansiDim))
	}

	if mode == RenderLive {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}

func (f *Formatter) writeValuation(sb *strings.Builder, v tracker.Valuation, st *State) {
	pos := v.Position
	sb.WriteString(v.Asset)
	sb.WriteString(" ")

	px := "--"
	pxCol := ansiYellow
	if v.HasPrice {
		px = fmtPrice(v.Price.Price)
		if v.Stale {
			px += "*"
			pxCol = ansiDim
		} else {
			switch st.Direction(v.Pair.Symbol()) {
			case domain.DirectionUp:
				pxCol = ansiGreen
			case domain.DirectionDown:
				pxCol = ansiRed
			}
		}
	}
	sb.WriteString(colorize(px, pxCol))
	sb.WriteString(" ")
	sb.WriteString(v.Pair.Quote)

	if !pos.HasHolding() {
		if !pos.RealizedPnL.IsZero() {
			sb.WriteString(" realized=")
			sb.WriteString(fmtPrice(pos.RealizedPnL))
		}
		return
	}
	sb.WriteString(" qty=")
	sb.WriteString(pos.TotalQuantityHeld.String())
	sb.WriteString(" avg=")
	sb.WriteString(fmtPrice(pos.AverageBuyPrice.Decimal))
	sb.WriteString(" ")
	sb.WriteString(f.pnl(pos.PnLPercent))
	if len(pos.Anomalies) > 0 || len(v.Unconverted) > 0 {
		sb.WriteString(colorize(" !", ansiYellow))
	}
}

func (f *Formatter) pnl(pct decimal.NullDecimal) string {
	if !pct.Valid {
		return colorize("pnl=--", ansiYellow)
	}
	s := "pnl=" + pct.Decimal.StringFixed(2) + "%"
	if pct.Decimal.IsPositive() {
		s = "pnl=+" + pct.Decimal.StringFixed(2) + "%"
	}
	switch dsvc.PnLColor(pct, f.PnLThreshold) {
	case +1:
		return colorize(s, ansiGreen)
	case -1:
		return colorize(s, ansiRed)
	default:
		return colorize(s, ansiYellow)
	}
}

// fmtPrice 最多保留 8 位小数（BTC 计价的小币价格）
func fmtPrice(d decimal.Decimal) string { return d.Round(8).String() }

func fmtAmount(d decimal.Decimal) string { return d.StringFixed(2) }
