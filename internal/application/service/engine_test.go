package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"solarb/internal/domain/model"
)

type trackedCall struct {
	opp      model.Opportunity
	reported bool
	reason   string
}

type mockTracker struct {
	mu    sync.Mutex
	calls []trackedCall
}

func (m *mockTracker) Track(ctx context.Context, o model.Opportunity, reported bool, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, trackedCall{opp: o, reported: reported, reason: reason})
}

func (m *mockTracker) byReason(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.reason == reason {
			n++
		}
	}
	return n
}

// quietHour pins detection to a low-congestion UTC hour so the
// hour-of-day multipliers don't vary with wall-clock test runs.
var quietHour = time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

func newTestEngine(tracker *mockTracker) *ArbitrageEngine {
	fees := DefaultFeeConfig()
	fees.WrappedNativeMint = "" // keep wrap fee out of the arithmetic
	e := NewArbitrageEngine(EngineConfig{
		ProfitThresholdPercent: 0.5,
		TradeSizeUSD:           100,
		Fees:                   fees,
	}, tracker)
	e.now = func() time.Time { return quietHour }
	return e
}

func freshQuote(source string, price, liquidity float64) model.Quote {
	return model.Quote{
		Source:    source,
		Pair:      testPair,
		Price:     price,
		Liquidity: liquidity,
		Ts:        quietHour.UnixMilli(),
	}
}

func TestDetectDirectionalOpportunity(t *testing.T) {
	tracker := &mockTracker{}
	e := newTestEngine(tracker)

	quotes := map[string]model.Quote{
		"alpha": freshQuote("alpha", 100, 1_000_000),
		"beta":  freshQuote("beta", 105, 1_000_000),
	}

	opps := e.Detect(context.Background(), testPair, quotes)
	if len(opps) != 1 {
		t.Fatalf("expected exactly 1 accepted opportunity, got %d", len(opps))
	}

	o := opps[0]
	if o.BuySource != "alpha" || o.SellSource != "beta" {
		t.Errorf("expected buy alpha / sell beta, got buy %s / sell %s", o.BuySource, o.SellSource)
	}
	if o.NetProfit <= 0 {
		t.Errorf("net profit = %v, want > 0", o.NetProfit)
	}
	if o.SellPrice <= o.BuyPrice {
		t.Errorf("constructed opportunity with sell %v <= buy %v", o.SellPrice, o.BuyPrice)
	}
	if o.ID == "" {
		t.Error("opportunity must carry a fresh id")
	}
	if o.Confidence < 0.1 || o.Confidence > 1.0 {
		t.Errorf("confidence %v out of [0.1, 1.0]", o.Confidence)
	}
}

func TestDetectRateLimitSuppression(t *testing.T) {
	tracker := &mockTracker{}
	e := newTestEngine(tracker)

	quotes := map[string]model.Quote{
		"alpha": freshQuote("alpha", 100, 1_000_000),
		"beta":  freshQuote("beta", 105, 1_000_000),
	}

	first := e.Detect(context.Background(), testPair, quotes)
	if len(first) != 1 {
		t.Fatalf("first detect: expected 1 accepted, got %d", len(first))
	}

	// unchanged and still profitable 10s later: rate limit must hold
	e.now = func() time.Time { return quietHour.Add(10 * time.Second) }
	second := e.Detect(context.Background(), testPair, quotes)
	if len(second) != 0 {
		t.Fatalf("second detect within 30s: expected 0 accepted, got %d", len(second))
	}
	if tracker.byReason("rate limited") == 0 {
		t.Error("expected the suppressed candidate to be tracked with a rate-limit reason")
	}

	// and release after the window
	e.now = func() time.Time { return quietHour.Add(31 * time.Second) }
	third := e.Detect(context.Background(), testPair, quotes)
	if len(third) != 1 {
		t.Fatalf("detect after window: expected 1 accepted, got %d", len(third))
	}
}

func TestDetectFewerThanTwoSources(t *testing.T) {
	e := newTestEngine(&mockTracker{})
	quotes := map[string]model.Quote{"alpha": freshQuote("alpha", 100, 1_000_000)}
	if opps := e.Detect(context.Background(), testPair, quotes); len(opps) != 0 {
		t.Errorf("expected no opportunities with one source, got %d", len(opps))
	}
}

func TestDetectZeroLiquidityDoesNotAbortSiblings(t *testing.T) {
	tracker := &mockTracker{}
	e := newTestEngine(tracker)

	quotes := map[string]model.Quote{
		"alpha":  freshQuote("alpha", 100, 1_000_000),
		"beta":   freshQuote("beta", 105, 1_000_000),
		"broken": freshQuote("broken", 103, 0), // zero liquidity
	}

	opps := e.Detect(context.Background(), testPair, quotes)
	if len(opps) != 1 {
		t.Fatalf("expected the alpha/beta direction to survive, got %d accepted", len(opps))
	}
	for _, o := range opps {
		if o.BuySource == "broken" || o.SellSource == "broken" {
			t.Errorf("direction involving zero liquidity must not yield an opportunity")
		}
	}
}

func TestUpdateConfigSwap(t *testing.T) {
	tracker := &mockTracker{}
	e := newTestEngine(tracker)
	e.UpdateConfig(50, 0) // absurd threshold, keep trade size

	quotes := map[string]model.Quote{
		"alpha": freshQuote("alpha", 100, 1_000_000),
		"beta":  freshQuote("beta", 105, 1_000_000),
	}
	if opps := e.Detect(context.Background(), testPair, quotes); len(opps) != 0 {
		t.Fatalf("expected threshold to suppress, got %d accepted", len(opps))
	}
	if tracker.byReason("below profit threshold") == 0 {
		t.Error("expected a below-threshold suppression to be tracked")
	}
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	scorer := NewConfidenceScorer(ConfidenceConfig{})
	now := time.Now()

	cases := []struct {
		name       string
		buy, sell  model.Quote
		size       float64
		slipB, slipS float64
	}{
		{"zero liquidity", model.Quote{Source: "a", Ts: now.UnixMilli()}, model.Quote{Source: "b", Ts: now.UnixMilli()}, 100, 0, 0},
		{"very stale", model.Quote{Source: "a", Liquidity: 1e6, Ts: 0}, model.Quote{Source: "b", Liquidity: 1e6, Ts: 0}, 100, 0.02, 0.02},
		{"huge trade", model.Quote{Source: "a", Liquidity: 1, Ts: now.UnixMilli()}, model.Quote{Source: "b", Liquidity: 1, Ts: now.UnixMilli()}, 1e9, 0.025, 0.025},
		{"wide book", model.Quote{Source: "a", Bid: 90, Ask: 110, Mid: 100, Liquidity: 1e6, Ts: now.UnixMilli()}, model.Quote{Source: "b", Bid: 99, Ask: 101, Mid: 100, Liquidity: 1e6, Ts: now.UnixMilli()}, 100, 0, 0},
		{"zero size", model.Quote{Source: "a", Liquidity: 0, Ts: now.UnixMilli()}, model.Quote{Source: "b", Liquidity: 0, Ts: now.UnixMilli()}, 0, 0, 0},
	}
	for _, tc := range cases {
		got := scorer.Score(tc.buy, tc.sell, tc.size, tc.slipB, tc.slipS, now)
		if got != got { // NaN
			t.Fatalf("%s: confidence is NaN", tc.name)
		}
		if got < 0.1 || got > 1.0 {
			t.Errorf("%s: confidence %v out of [0.1, 1.0]", tc.name, got)
		}
	}
}
