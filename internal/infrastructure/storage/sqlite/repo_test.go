package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
)

func newRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepoMappings(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	in := []model.SymbolMapping{
		{Asset: "AGLD", PreferredQuote: "USDC", ActualQuote: "BTC"},
		{Asset: "AGLD", PreferredQuote: "", ActualQuote: "ETH"},
	}
	if err := repo.SaveMappings(ctx, in); err != nil {
		t.Fatalf("SaveMappings failed: %v", err)
	}
	if err := repo.SaveMappings(ctx, in[:1]); err != nil {
		t.Fatalf("SaveMappings failed: %v", err)
	}

	got, err := repo.LoadMappings(ctx)
	if err != nil {
		t.Fatalf("LoadMappings failed: %v", err)
	}
	if len(got) != 1 || got[0] != in[0] {
		t.Errorf("unexpected mappings: %+v", got)
	}
}

func TestSQLiteRepoAlerts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	created := time.UnixMilli(1700000000123).UTC()

	in := []model.PriceAlert{
		{ID: "a1", Asset: "BTC", Threshold: decimal.RequireFromString("50000.12345678"), Direction: model.DirectionAbove, Armed: true, CreatedAt: created},
		{ID: "a2", Asset: "ETH", Threshold: decimal.RequireFromString("1500"), Direction: model.DirectionBelow, Armed: false, CreatedAt: created.Add(time.Second)},
	}
	if err := repo.SaveAlerts(ctx, in); err != nil {
		t.Fatalf("SaveAlerts failed: %v", err)
	}
	got, err := repo.LoadAlerts(ctx)
	if err != nil {
		t.Fatalf("LoadAlerts failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(got))
	}
	if !got[0].Threshold.Equal(in[0].Threshold) || !got[0].Armed || got[1].Armed || !got[0].CreatedAt.Equal(created) {
		t.Errorf("unexpected alerts: %+v", got)
	}
}

func TestSQLiteRepoAlertsRejectUnknownDirection(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO price_alerts(id, asset, threshold, direction, armed, created_at) VALUES('x', 'BTC', '1', 'SIDEWAYS', 1, 0)`,
	); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	_, err := repo.LoadAlerts(ctx)
	var pe *model.PersistenceUnavailableError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceUnavailableError, got %v", err)
	}
}

func TestSQLiteRepoManualOrders(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	in := []model.Order{{
		ID: "m1", Asset: "AGLD", QuoteCurrency: "BTC", Side: model.SideBuy,
		Quantity: decimal.RequireFromString("12.5"), Price: decimal.RequireFromString("0.00001234"),
		Timestamp: time.UnixMilli(1700000000000).UTC(), Source: model.SourceManual, Included: false,
	}}
	if err := repo.SaveManualOrders(ctx, in); err != nil {
		t.Fatalf("SaveManualOrders failed: %v", err)
	}
	got, err := repo.LoadManualOrders(ctx)
	if err != nil {
		t.Fatalf("LoadManualOrders failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 order, got %d", len(got))
	}
	o := got[0]
	if o.ID != "m1" || o.Side != model.SideBuy || o.Included || o.Source != model.SourceManual ||
		!o.Price.Equal(in[0].Price) || !o.Quantity.Equal(in[0].Quantity) || !o.Timestamp.Equal(in[0].Timestamp) {
		t.Errorf("unexpected order: %+v", o)
	}
}

func TestSQLiteRepoInclusionAndManualPrices(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	if err := repo.SaveInclusion(ctx, map[string]bool{"BTCUSDT:1": false, "m1": true}); err != nil {
		t.Fatalf("SaveInclusion failed: %v", err)
	}
	toggles, err := repo.LoadInclusion(ctx)
	if err != nil {
		t.Fatalf("LoadInclusion failed: %v", err)
	}
	if len(toggles) != 2 || toggles["BTCUSDT:1"] || !toggles["m1"] {
		t.Errorf("unexpected toggles: %v", toggles)
	}

	if err := repo.SaveManualPrices(ctx, map[string]decimal.Decimal{"XYZUSDT": decimal.RequireFromString("0.42")}); err != nil {
		t.Fatalf("SaveManualPrices failed: %v", err)
	}
	prices, err := repo.LoadManualPrices(ctx)
	if err != nil {
		t.Fatalf("LoadManualPrices failed: %v", err)
	}
	if px, ok := prices["XYZUSDT"]; !ok || !px.Equal(decimal.RequireFromString("0.42")) {
		t.Errorf("unexpected manual prices: %v", prices)
	}
}

func TestSQLiteRepoSnapshotsAndPrices(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	ts := time.UnixMilli(1234567890).UTC()

	if err := repo.InsertSnapshot(ctx, ts, `{"old":true}`); err != nil {
		t.Fatalf("InsertSnapshot failed: %v", err)
	}
	if err := repo.InsertSnapshot(ctx, ts.Add(time.Minute), `{"new":true}`); err != nil {
		t.Fatalf("InsertSnapshot failed: %v", err)
	}
	at, payload, err := repo.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if payload != `{"new":true}` || !at.Equal(ts.Add(time.Minute)) {
		t.Errorf("unexpected snapshot %s at %v", payload, at)
	}

	if err := repo.UpsertLatestPrice(ctx, "BTCUSDT", decimal.RequireFromString("45000"), ts); err != nil {
		t.Fatalf("UpsertLatestPrice failed: %v", err)
	}
	if err := repo.UpsertLatestPrice(ctx, "BTCUSDT", decimal.RequireFromString("45001.5"), ts); err != nil {
		t.Fatalf("UpsertLatestPrice failed: %v", err)
	}
	var price string
	if err := repo.GetDB().QueryRowContext(ctx, `SELECT price FROM prices WHERE symbol=?`, "BTCUSDT").Scan(&price); err != nil {
		t.Fatalf("query price: %v", err)
	}
	if price != "45001.5" {
		t.Errorf("price = %s", price)
	}
}

func TestSQLiteRepoClosedIsUnavailable(t *testing.T) {
	repo := newRepo(t)
	_ = repo.Close()

	_, err := repo.LoadAlerts(context.Background())
	var pe *model.PersistenceUnavailableError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceUnavailableError, got %v", err)
	}
}
