package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

func TestSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewSinkTo(&buf)

	_ = s.WriteLive("\rBTC 100")
	if buf.String() != "\rBTC 100" {
		t.Fatalf("live = %q", buf.String())
	}

	buf.Reset()
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	_ = s.WriteSnapshot(ts, "snap")
	if buf.String() != "\n2024-03-01 12:00:00 snap\n\n" {
		t.Fatalf("snapshot = %q", buf.String())
	}

	buf.Reset()
	_ = s.WriteAlert(model.TriggeredAlert{
		Asset:     "BTC",
		Direction: model.DirectionAbove,
		Threshold: decimal.NewFromInt(100),
		Price:     decimal.NewFromInt(101),
		Timestamp: ts,
	})
	got := buf.String()
	if !strings.Contains(got, "ALERT BTC ABOVE 100: price 101") || !strings.HasPrefix(got, "\n") {
		t.Fatalf("alert = %q", got)
	}
}
