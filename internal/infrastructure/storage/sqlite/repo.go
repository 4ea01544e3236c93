package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"solarb/internal/application/port"
	"solarb/internal/domain/model"
)

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

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS latest_quotes (
  source TEXT NOT NULL,
  pair_key TEXT NOT NULL,
  base_symbol TEXT NOT NULL,
  quote_symbol TEXT NOT NULL,
  price REAL NOT NULL,
  liquidity REAL NOT NULL,
  bid REAL,
  ask REAL,
  ts_ms INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY(source, pair_key)
);
CREATE INDEX IF NOT EXISTS idx_quotes_pair ON latest_quotes(pair_key);

CREATE TABLE IF NOT EXISTS opportunities (
  id TEXT PRIMARY KEY,
  pair_key TEXT NOT NULL,
  base_symbol TEXT NOT NULL,
  quote_symbol TEXT NOT NULL,
  base_address TEXT NOT NULL,
  quote_address TEXT NOT NULL,
  buy_source TEXT NOT NULL,
  sell_source TEXT NOT NULL,
  buy_price REAL NOT NULL,
  sell_price REAL NOT NULL,
  spread REAL NOT NULL,
  spread_percent REAL NOT NULL,
  gross_profit REAL NOT NULL,
  estimated_fees REAL NOT NULL,
  net_profit REAL NOT NULL,
  net_profit_percent REAL NOT NULL,
  trade_size REAL NOT NULL,
  confidence REAL NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_pair ON opportunities(pair_key);
CREATE INDEX IF NOT EXISTS idx_opps_ts ON opportunities(ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatestQuote(ctx context.Context, q *model.Quote) error {
	if q == nil || q.Price <= 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO latest_quotes(source, pair_key, base_symbol, quote_symbol, price, liquidity, bid, ask, ts_ms, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now')*1000)
ON CONFLICT(source, pair_key) DO UPDATE SET
  price=excluded.price, liquidity=excluded.liquidity, bid=excluded.bid,
  ask=excluded.ask, ts_ms=excluded.ts_ms, updated_at=excluded.updated_at`,
		q.Source, q.Pair.Key(), q.Pair.BaseSymbol, q.Pair.QuoteSymbol,
		q.Price, q.Liquidity, q.Bid, q.Ask, q.Ts)
	return err
}

func (r *Repo) SaveOpportunity(ctx context.Context, o *model.Opportunity) error {
	if o == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO opportunities(id, pair_key, base_symbol, quote_symbol, base_address, quote_address,
  buy_source, sell_source, buy_price, sell_price, spread, spread_percent,
  gross_profit, estimated_fees, net_profit, net_profit_percent, trade_size, confidence, ts_ms, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now')*1000)`,
		o.ID, o.Pair.Key(), o.Pair.BaseSymbol, o.Pair.QuoteSymbol, o.Pair.BaseAddress, o.Pair.QuoteAddress,
		o.BuySource, o.SellSource, o.BuyPrice, o.SellPrice, o.Spread, o.SpreadPercent,
		o.GrossProfit, o.EstimatedFees, o.NetProfit, o.NetProfitPercent, o.TradeSize, o.Confidence, o.Ts)
	return err
}

func (r *Repo) RecentOpportunities(ctx context.Context, limit int) ([]*model.Opportunity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, base_symbol, quote_symbol, base_address, quote_address,
  buy_source, sell_source, buy_price, sell_price, spread, spread_percent,
  gross_profit, estimated_fees, net_profit, net_profit_percent, trade_size, confidence, ts_ms
FROM opportunities ORDER BY ts_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Opportunity
	for rows.Next() {
		var o model.Opportunity
		if err := rows.Scan(&o.ID, &o.Pair.BaseSymbol, &o.Pair.QuoteSymbol, &o.Pair.BaseAddress, &o.Pair.QuoteAddress,
			&o.BuySource, &o.SellSource, &o.BuyPrice, &o.SellPrice, &o.Spread, &o.SpreadPercent,
			&o.GrossProfit, &o.EstimatedFees, &o.NetProfit, &o.NetProfitPercent, &o.TradeSize, &o.Confidence, &o.Ts); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

var _ port.Repository = (*Repo)(nil)
