package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"solarb/internal/application/port"
	"solarb/internal/domain/model"
)

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
CREATE TABLE IF NOT EXISTS latest_quotes (
  source TEXT NOT NULL,
  pair_key TEXT NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  liquidity DOUBLE PRECISION NOT NULL,
  bid DOUBLE PRECISION,
  ask DOUBLE PRECISION,
  ts_ms BIGINT NOT NULL,
  PRIMARY KEY(source, pair_key)
);

CREATE TABLE IF NOT EXISTS opportunities (
  id TEXT PRIMARY KEY,
  pair_key TEXT NOT NULL,
  buy_source TEXT NOT NULL,
  sell_source TEXT NOT NULL,
  buy_price DOUBLE PRECISION NOT NULL,
  sell_price DOUBLE PRECISION NOT NULL,
  net_profit DOUBLE PRECISION NOT NULL,
  net_profit_percent DOUBLE PRECISION NOT NULL,
  trade_size DOUBLE PRECISION NOT NULL,
  confidence DOUBLE PRECISION NOT NULL,
  ts_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_ts ON opportunities(ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatestQuote(ctx context.Context, q *model.Quote) error {
	if q == nil || q.Price <= 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO latest_quotes(source, pair_key, price, liquidity, bid, ask, ts_ms)
VALUES($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT(source, pair_key) DO UPDATE SET
  price=EXCLUDED.price, liquidity=EXCLUDED.liquidity, bid=EXCLUDED.bid,
  ask=EXCLUDED.ask, ts_ms=EXCLUDED.ts_ms`,
		q.Source, q.Pair.Key(), q.Price, q.Liquidity, q.Bid, q.Ask, q.Ts)
	return err
}

func (r *Repo) SaveOpportunity(ctx context.Context, o *model.Opportunity) error {
	if o == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO opportunities(id, pair_key, buy_source, sell_source, buy_price, sell_price,
  net_profit, net_profit_percent, trade_size, confidence, ts_ms)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.Pair.Key(), o.BuySource, o.SellSource, o.BuyPrice, o.SellPrice,
		o.NetProfit, o.NetProfitPercent, o.TradeSize, o.Confidence, o.Ts)
	return err
}

func (r *Repo) RecentOpportunities(ctx context.Context, limit int) ([]*model.Opportunity, error) {
	// read path is served by the sqlite repo / in-memory store for now
	return nil, nil
}

var _ port.Repository = (*Repo)(nil)
