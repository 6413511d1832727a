package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"cointrack/internal/application/port"
)

// Repo 将组合快照以 JSONB 存入 Postgres
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS portfolio_snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts TIMESTAMPTZ NOT NULL,
  payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_portfolio_snapshots_ts ON portfolio_snapshots(ts);
`)
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts time.Time, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO portfolio_snapshots(ts, payload) VALUES($1, $2::jsonb)`, ts.UTC(), payload)
	return err
}

var _ port.SnapshotRepository = (*Repo)(nil)
