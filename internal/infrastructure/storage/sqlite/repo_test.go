package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"solarb/internal/domain/model"
)

var testPair = model.TokenPair{
	BaseSymbol:   "SOL",
	QuoteSymbol:  "USDC",
	BaseAddress:  "So11111111111111111111111111111111111111112",
	QuoteAddress: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
}

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := New(filepath.Join(t.TempDir(), "solarb.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestOpportunityRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	o := &model.Opportunity{
		ID:               model.NewOpportunityID(),
		Pair:             testPair,
		BuySource:        "raydium",
		SellSource:       "orca",
		BuyPrice:         150.01,
		SellPrice:        151.20,
		Spread:           1.19,
		SpreadPercent:    0.793,
		GrossProfit:      0.79,
		EstimatedFees:    0.21,
		NetProfit:        0.58,
		NetProfitPercent: 0.58,
		TradeSize:        100,
		Confidence:       0.82,
		Ts:               1_700_000_000_000,
	}
	if err := r.SaveOpportunity(ctx, o); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := r.RecentOpportunities(ctx, 10)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(got))
	}
	if *got[0] != *o {
		t.Errorf("read back mismatch:\n got %+v\nwant %+v", got[0], o)
	}
}

func TestRecentOpportunitiesOrderAndLimit(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		o := &model.Opportunity{
			ID:         model.NewOpportunityID(),
			Pair:       testPair,
			BuySource:  "raydium",
			SellSource: "orca",
			BuyPrice:   150,
			SellPrice:  151,
			NetProfit:  float64(i),
			TradeSize:  100,
			Confidence: 0.8,
			Ts:         int64(1_700_000_000_000 + i),
		}
		if err := r.SaveOpportunity(ctx, o); err != nil {
			t.Fatal(err)
		}
	}

	got, err := r.RecentOpportunities(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("limit ignored: got %d rows", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Ts > got[i-1].Ts {
			t.Errorf("rows not newest-first: ts %d after %d", got[i].Ts, got[i-1].Ts)
		}
	}
}

func TestSaveNilOpportunity(t *testing.T) {
	r := newTestRepo(t)
	if err := r.SaveOpportunity(context.Background(), nil); err != nil {
		t.Errorf("nil opportunity must be a no-op, got %v", err)
	}
}

func TestUpsertLatestQuote(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	q := &model.Quote{
		Source:    "raydium",
		Pair:      testPair,
		Price:     150.5,
		Liquidity: 2_000_000,
		Ts:        1_700_000_000_000,
	}
	if err := r.UpsertLatestQuote(ctx, q); err != nil {
		t.Fatalf("insert: %v", err)
	}

	q.Price = 151.5
	q.Ts += 500
	if err := r.UpsertLatestQuote(ctx, q); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var price float64
	var count int
	row := r.db.QueryRow(`SELECT COUNT(*), MAX(price) FROM latest_quotes WHERE source=? AND pair_key=?`,
		q.Source, q.Pair.Key())
	if err := row.Scan(&count, &price); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("upsert created %d rows, want 1", count)
	}
	if price != 151.5 {
		t.Errorf("price = %v, want updated 151.5", price)
	}
}

func TestUpsertRejectsNonPositivePrice(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	bad := &model.Quote{Source: "raydium", Pair: testPair, Price: 0}
	if err := r.UpsertLatestQuote(ctx, bad); err != nil {
		t.Fatalf("zero-price quote must be dropped silently, got %v", err)
	}

	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM latest_quotes`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("zero-price quote was persisted")
	}
}
