package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"solarb/internal/application/port"
	"solarb/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// EngineConfig carries the detection knobs. Zero values get defaults.
type EngineConfig struct {
	ProfitThresholdPercent float64
	TradeSizeUSD           float64
	MinConfidence          float64
	ReportWindow           time.Duration // per-route rate limit
	LedgerMaxAge           time.Duration // ledger purge horizon
	Fees                   FeeConfig
	Confidence             ConfidenceConfig
}

func (c *EngineConfig) defaults() {
	if c.ProfitThresholdPercent <= 0 {
		c.ProfitThresholdPercent = 0.5
	}
	if c.TradeSizeUSD <= 0 {
		c.TradeSizeUSD = 100
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.6
	}
	if c.ReportWindow <= 0 {
		c.ReportWindow = 30 * time.Second
	}
	if c.LedgerMaxAge <= 0 {
		c.LedgerMaxAge = 5 * time.Minute
	}
	if c.Fees == (FeeConfig{}) {
		c.Fees = DefaultFeeConfig()
	}
}

// ArbitrageEngine enumerates directed buy/sell pairings across venues,
// prices in slippage, fees and confidence, and applies profitability
// and rate-limit gating before an opportunity is surfaced. Detection
// is CPU-only and operates on the caller's point-in-time snapshot.
type ArbitrageEngine struct {
	mu              sync.Mutex
	profitThreshold float64 // percent of trade size
	tradeSize       float64
	minConfidence   float64
	reportWindow    time.Duration
	ledgerMaxAge    time.Duration
	ledger          map[string]time.Time // route key -> last reported

	slippage *SlippageModel
	fees     *FeeModel
	scorer   *ConfidenceScorer
	tracker  port.Tracker
	now      func() time.Time
}

func NewArbitrageEngine(cfg EngineConfig, tracker port.Tracker) *ArbitrageEngine {
	cfg.defaults()
	return &ArbitrageEngine{
		profitThreshold: cfg.ProfitThresholdPercent,
		tradeSize:       cfg.TradeSizeUSD,
		minConfidence:   cfg.MinConfidence,
		reportWindow:    cfg.ReportWindow,
		ledgerMaxAge:    cfg.LedgerMaxAge,
		ledger:          make(map[string]time.Time),
		slippage:        NewSlippageModel(),
		fees:            NewFeeModel(cfg.Fees),
		scorer:          NewConfidenceScorer(cfg.Confidence),
		tracker:         tracker,
		now:             time.Now,
	}
}

// UpdateConfig atomically swaps the two runtime-tunable knobs.
func (e *ArbitrageEngine) UpdateConfig(profitThresholdPercent, tradeSizeUSD float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if profitThresholdPercent > 0 {
		e.profitThreshold = profitThresholdPercent
	}
	if tradeSizeUSD > 0 {
		e.tradeSize = tradeSizeUSD
	}
}

// Detect evaluates both directions of every unordered source pair in
// quotes and returns the gated-accepted opportunities in discovery
// order. Fewer than two quotes yields nil. A per-direction computation
// error is logged and never aborts the remaining directions.
func (e *ArbitrageEngine) Detect(ctx context.Context, pair model.TokenPair, quotes map[string]model.Quote) []model.Opportunity {
	if len(quotes) < 2 {
		return nil
	}

	e.mu.Lock()
	tradeSize := e.tradeSize
	e.mu.Unlock()
	now := e.now()

	// deterministic evaluation order
	sources := make([]string, 0, len(quotes))
	for s := range quotes {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	var accepted []model.Opportunity
	for i := 0; i < len(sources); i++ {
		for j := i + 1; j < len(sources); j++ {
			// arbitrage is directional, so both orderings matter
			for _, dir := range [2][2]string{{sources[i], sources[j]}, {sources[j], sources[i]}} {
				buyQ, sellQ := quotes[dir[0]], quotes[dir[1]]
				cand, err := e.evaluate(pair, buyQ, sellQ, tradeSize, now)
				if err != nil {
					log.Debug().Str("pair", pair.String()).
						Str("buy", dir[0]).Str("sell", dir[1]).
						Err(err).Msg("direction skipped")
					continue
				}
				if cand == nil {
					continue
				}
				report, reason := e.shouldReport(*cand, now)
				if e.tracker != nil {
					e.tracker.Track(ctx, *cand, report, reason)
				}
				if report {
					accepted = append(accepted, *cand)
				}
			}
		}
	}
	return accepted
}

// evaluate prices one direction. Returns (nil, nil) when the direction
// simply carries no positive economics.
func (e *ArbitrageEngine) evaluate(pair model.TokenPair, buyQ, sellQ model.Quote, tradeSize float64, now time.Time) (*model.Opportunity, error) {
	slipBuy, err := e.slippage.Estimate(tradeSize, buyQ.Liquidity)
	if err != nil {
		return nil, fmt.Errorf("buy side %s: %w", buyQ.Source, err)
	}
	slipSell, err := e.slippage.Estimate(tradeSize, sellQ.Liquidity)
	if err != nil {
		return nil, fmt.Errorf("sell side %s: %w", sellQ.Source, err)
	}

	effBuy := buyQ.BuyPrice() * (1 + slipBuy)
	effSell := sellQ.SellPrice() * (1 - slipSell)
	if effBuy <= 0 {
		return nil, fmt.Errorf("malformed quote from %s: non-positive price", buyQ.Source)
	}
	if effSell <= effBuy {
		return nil, nil
	}

	spread := effSell - effBuy
	fees := e.fees.Estimate(pair, tradeSize, now)
	gross := tradeSize / effBuy * spread
	net := gross - fees.Total
	if net <= 0 {
		return nil, nil
	}

	conf := e.scorer.Score(buyQ, sellQ, tradeSize, slipBuy, slipSell, now)
	return &model.Opportunity{
		ID:               model.NewOpportunityID(),
		Pair:             pair,
		BuySource:        buyQ.Source,
		SellSource:       sellQ.Source,
		BuyPrice:         effBuy,
		SellPrice:        effSell,
		Spread:           spread,
		SpreadPercent:    spread / effBuy * 100,
		GrossProfit:      gross,
		EstimatedFees:    fees.Total,
		NetProfit:        net,
		NetProfitPercent: net / tradeSize * 100,
		TradeSize:        tradeSize,
		Ts:               now.UnixMilli(),
		Confidence:       conf,
	}, nil
}

// shouldReport applies threshold and rate-limit gating. The ledger is
// keyed by (pair, buy source, sell source) and purged opportunistically
// on every check.
func (e *ArbitrageEngine) shouldReport(o model.Opportunity, now time.Time) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for k, t := range e.ledger {
		if now.Sub(t) > e.ledgerMaxAge {
			delete(e.ledger, k)
		}
	}

	if o.NetProfitPercent < e.profitThreshold {
		return false, "below profit threshold"
	}
	if o.Confidence < e.minConfidence {
		return false, "low confidence"
	}

	key := o.Pair.Key() + "|" + o.BuySource + "|" + o.SellSource
	if last, ok := e.ledger[key]; ok && now.Sub(last) < e.reportWindow {
		return false, "rate limited"
	}
	e.ledger[key] = now
	return true, "reported"
}
