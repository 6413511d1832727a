package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cointrack/internal/domain/model"
	"cointrack/internal/infrastructure/config"
	"cointrack/internal/infrastructure/storage"
	sqliterepo "cointrack/internal/infrastructure/storage/sqlite"
)

func TestContainerWithSQLite(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.SQLite.Enabled = true
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "c.db")

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer c.Close()

	if c.SQLiteRepo() == nil {
		t.Fatal("expected SQLiteRepo, got nil")
	}
	if _, ok := c.Store().(*sqliterepo.Repo); !ok {
		t.Fatalf("store = %T, want sqlite", c.Store())
	}
	if n := c.Snapshots().Len(); n != 1 {
		t.Fatalf("snapshot backends = %d, want 1", n)
	}
	if len(c.AlertSinks()) != 0 {
		t.Fatal("alert sinks without redis")
	}

	ctx := context.Background()
	if err := c.Store().SaveMappings(ctx, []model.SymbolMapping{{Asset: "AGLD", ActualQuote: "BTC"}}); err != nil {
		t.Fatalf("SaveMappings: %v", err)
	}
	if err := c.PriceCache().UpsertLatestPrice(ctx, "BTCUSDT", decimal.NewFromInt(1), time.Now()); err != nil {
		t.Fatalf("UpsertLatestPrice: %v", err)
	}
	if err := c.Snapshots().InsertSnapshot(ctx, time.Now(), `{"ok":true}`); err != nil {
		t.Fatalf("InsertSnapshot: %v", err)
	}
}

func TestContainerFallsBackToMemory(t *testing.T) {
	c, err := New(&config.Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, ok := c.Store().(*storage.MemoryStore); !ok {
		t.Fatalf("store = %T, want memory", c.Store())
	}
	if _, ok := c.PriceCache().(storage.NoopPriceCache); !ok {
		t.Fatalf("price cache = %T, want noop", c.PriceCache())
	}
	if c.Snapshots().Len() != 1 {
		t.Fatal("memory store should receive snapshots")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
