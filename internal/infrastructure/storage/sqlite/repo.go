package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"cointrack/internal/application/port"
	"cointrack/internal/domain/model"
)

// Repo 嵌入式存储: 用户状态、快照和最新价格
// decimal 以 TEXT 存储，保证精度
type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS symbol_mappings (
  asset TEXT NOT NULL,
  preferred_quote TEXT NOT NULL,
  actual_quote TEXT NOT NULL,
  PRIMARY KEY(asset, preferred_quote)
);

CREATE TABLE IF NOT EXISTS price_alerts (
  id TEXT PRIMARY KEY,
  asset TEXT NOT NULL,
  threshold TEXT NOT NULL,
  direction TEXT NOT NULL,
  armed INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_asset ON price_alerts(asset);

CREATE TABLE IF NOT EXISTS manual_orders (
  id TEXT PRIMARY KEY,
  asset TEXT NOT NULL,
  quote TEXT NOT NULL,
  side TEXT NOT NULL,
  quantity TEXT NOT NULL,
  price TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  included INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_manual_orders_asset ON manual_orders(asset);

CREATE TABLE IF NOT EXISTS order_inclusion (
  order_id TEXT PRIMARY KEY,
  included INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS manual_prices (
  symbol TEXT PRIMARY KEY,
  price TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS prices (
  symbol TEXT PRIMARY KEY,
  price TEXT NOT NULL,
  ts_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);
`)
	return err
}

// replaceAll 在事务中清空表后执行 fn
func (r *Repo) replaceAll(ctx context.Context, table string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *Repo) LoadMappings(ctx context.Context) ([]model.SymbolMapping, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT asset, preferred_quote, actual_quote FROM symbol_mappings ORDER BY asset, preferred_quote`)
	if err != nil {
		return nil, model.Unavailable("load mappings", err)
	}
	defer rows.Close()

	var out []model.SymbolMapping
	for rows.Next() {
		var m model.SymbolMapping
		if err := rows.Scan(&m.Asset, &m.PreferredQuote, &m.ActualQuote); err != nil {
			return nil, model.Unavailable("load mappings", err)
		}
		out = append(out, m)
	}
	return out, model.Unavailable("load mappings", rows.Err())
}

func (r *Repo) SaveMappings(ctx context.Context, mappings []model.SymbolMapping) error {
	err := r.replaceAll(ctx, "symbol_mappings", func(tx *sql.Tx) error {
		for _, m := range mappings {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO symbol_mappings(asset, preferred_quote, actual_quote) VALUES(?, ?, ?)
				ON CONFLICT(asset, preferred_quote) DO UPDATE SET actual_quote=excluded.actual_quote
			`, m.Asset, m.PreferredQuote, m.ActualQuote); err != nil {
				return err
			}
		}
		return nil
	})
	return model.Unavailable("save mappings", err)
}

func (r *Repo) LoadAlerts(ctx context.Context) ([]model.PriceAlert, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, asset, threshold, direction, armed, created_at FROM price_alerts ORDER BY created_at, id`)
	if err != nil {
		return nil, model.Unavailable("load alerts", err)
	}
	defer rows.Close()

	var out []model.PriceAlert
	for rows.Next() {
		var (
			a         model.PriceAlert
			threshold string
			direction string
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.Asset, &threshold, &direction, &a.Armed, &createdAt); err != nil {
			return nil, model.Unavailable("load alerts", err)
		}
		if a.Threshold, err = decimal.NewFromString(threshold); err != nil {
			return nil, model.Unavailable("load alerts", err)
		}
		dir, ok := model.ParseDirection(direction)
		if !ok {
			return nil, model.Unavailable("load alerts", fmt.Errorf("alert %s: unknown direction %q", a.ID, direction))
		}
		a.Direction = dir
		a.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, a)
	}
	return out, model.Unavailable("load alerts", rows.Err())
}

func (r *Repo) SaveAlerts(ctx context.Context, alerts []model.PriceAlert) error {
	err := r.replaceAll(ctx, "price_alerts", func(tx *sql.Tx) error {
		for _, a := range alerts {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO price_alerts(id, asset, threshold, direction, armed, created_at) VALUES(?, ?, ?, ?, ?, ?)
			`, a.ID, a.Asset, a.Threshold.String(), string(a.Direction), a.Armed, a.CreatedAt.UnixMilli()); err != nil {
				return err
			}
		}
		return nil
	})
	return model.Unavailable("save alerts", err)
}

func (r *Repo) LoadManualOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, asset, quote, side, quantity, price, ts_ms, included FROM manual_orders ORDER BY ts_ms, id`)
	if err != nil {
		return nil, model.Unavailable("load manual orders", err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		var (
			o          model.Order
			side       string
			qty, price string
			ts         int64
		)
		if err := rows.Scan(&o.ID, &o.Asset, &o.QuoteCurrency, &side, &qty, &price, &ts, &o.Included); err != nil {
			return nil, model.Unavailable("load manual orders", err)
		}
		if o.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, model.Unavailable("load manual orders", err)
		}
		if o.Price, err = decimal.NewFromString(price); err != nil {
			return nil, model.Unavailable("load manual orders", err)
		}
		o.Side = model.Side(side)
		o.Timestamp = time.UnixMilli(ts).UTC()
		o.Source = model.SourceManual
		out = append(out, o)
	}
	return out, model.Unavailable("load manual orders", rows.Err())
}

func (r *Repo) SaveManualOrders(ctx context.Context, orders []model.Order) error {
	err := r.replaceAll(ctx, "manual_orders", func(tx *sql.Tx) error {
		for _, o := range orders {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO manual_orders(id, asset, quote, side, quantity, price, ts_ms, included) VALUES(?, ?, ?, ?, ?, ?, ?, ?)
			`, o.ID, o.Asset, o.QuoteCurrency, string(o.Side), o.Quantity.String(), o.Price.String(), o.Timestamp.UnixMilli(), o.Included); err != nil {
				return err
			}
		}
		return nil
	})
	return model.Unavailable("save manual orders", err)
}

func (r *Repo) LoadInclusion(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT order_id, included FROM order_inclusion`)
	if err != nil {
		return nil, model.Unavailable("load inclusion", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var (
			id       string
			included bool
		)
		if err := rows.Scan(&id, &included); err != nil {
			return nil, model.Unavailable("load inclusion", err)
		}
		out[id] = included
	}
	return out, model.Unavailable("load inclusion", rows.Err())
}

func (r *Repo) SaveInclusion(ctx context.Context, toggles map[string]bool) error {
	err := r.replaceAll(ctx, "order_inclusion", func(tx *sql.Tx) error {
		for id, included := range toggles {
			if _, err := tx.ExecContext(ctx, `INSERT INTO order_inclusion(order_id, included) VALUES(?, ?)`, id, included); err != nil {
				return err
			}
		}
		return nil
	})
	return model.Unavailable("save inclusion", err)
}

func (r *Repo) LoadManualPrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, price FROM manual_prices`)
	if err != nil {
		return nil, model.Unavailable("load manual prices", err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var symbol, price string
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, model.Unavailable("load manual prices", err)
		}
		px, err := decimal.NewFromString(price)
		if err != nil {
			return nil, model.Unavailable("load manual prices", err)
		}
		out[symbol] = px
	}
	return out, model.Unavailable("load manual prices", rows.Err())
}

func (r *Repo) SaveManualPrices(ctx context.Context, prices map[string]decimal.Decimal) error {
	now := time.Now().UnixMilli()
	err := r.replaceAll(ctx, "manual_prices", func(tx *sql.Tx) error {
		for symbol, px := range prices {
			if _, err := tx.ExecContext(ctx, `INSERT INTO manual_prices(symbol, price, updated_at) VALUES(?, ?, ?)`, symbol, px.String(), now); err != nil {
				return err
			}
		}
		return nil
	})
	return model.Unavailable("save manual prices", err)
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prices(symbol, price, ts_ms)
		VALUES(?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
		price=excluded.price, ts_ms=excluded.ts_ms
	`, symbol, price.String(), ts.UnixMilli())
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts time.Time, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, payload, created_at) VALUES(?, ?, ?)`, ts.UnixMilli(), payload, time.Now().UnixMilli())
	return err
}

// LatestSnapshot 返回最新的快照
func (r *Repo) LatestSnapshot(ctx context.Context) (time.Time, string, error) {
	var (
		ts      int64
		payload string
	)
	err := r.db.QueryRowContext(ctx, `SELECT ts_ms, payload FROM snapshots ORDER BY ts_ms DESC, id DESC LIMIT 1`).Scan(&ts, &payload)
	if err != nil {
		return time.Time{}, "", err
	}
	return time.UnixMilli(ts).UTC(), payload, nil
}

var (
	_ port.Store              = (*Repo)(nil)
	_ port.SnapshotRepository = (*Repo)(nil)
	_ port.PriceCache         = (*Repo)(nil)
)
