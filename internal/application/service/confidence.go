package service

import (
	"time"

	"solarb/internal/domain/model"
)

// ConfidenceConfig tunes the heuristic confidence scorer.
type ConfidenceConfig struct {
	StaleShort      time.Duration // mild staleness penalty beyond this
	StaleLong       time.Duration // heavy staleness penalty beyond this
	LiquiditySafety float64       // liquidity should cover safety * tradeSize
	Reliability     map[string]float64
}

func (c *ConfidenceConfig) defaults() {
	if c.StaleShort <= 0 {
		c.StaleShort = 10 * time.Second
	}
	if c.StaleLong <= 0 {
		c.StaleLong = 30 * time.Second
	}
	if c.LiquiditySafety <= 0 {
		c.LiquiditySafety = 10
	}
}

// ConfidenceScorer estimates how realizable a detected direction is.
// The score starts at 1.0, shrinks multiplicatively per factor and is
// clamped to [0.1, 1.0]. Total function: zero liquidity, zero prices
// and absent orderbooks all degrade the score, never panic or NaN.
type ConfidenceScorer struct {
	cfg ConfidenceConfig
}

func NewConfidenceScorer(cfg ConfidenceConfig) *ConfidenceScorer {
	cfg.defaults()
	return &ConfidenceScorer{cfg: cfg}
}

func (c *ConfidenceScorer) Score(buy, sell model.Quote, tradeSize, slipBuy, slipSell float64, now time.Time) float64 {
	score := 1.0

	// quote staleness
	age := buy.Age(now)
	if a := sell.Age(now); a > age {
		age = a
	}
	switch {
	case age > c.cfg.StaleLong:
		score *= 0.7
	case age > c.cfg.StaleShort:
		score *= 0.9
	}

	// liquidity adequacy relative to the safety multiple
	score *= c.liquidityFactor(buy.Liquidity, tradeSize)
	score *= c.liquidityFactor(sell.Liquidity, tradeSize)

	// total slippage magnitude
	totalSlip := slipBuy + slipSell
	switch {
	case totalSlip > 0.01:
		score *= 0.75
	case totalSlip > 0.005:
		score *= 0.9
	}

	// bid/ask tightness when orderbook data is present
	score *= bookFactor(buy)
	score *= bookFactor(sell)

	// per-venue reliability
	score *= c.reliability(buy.Source)
	score *= c.reliability(sell.Source)

	// MEV resistance: big size and heavy slippage attract searchers,
	// peak-activity hours more so
	if tradeSize > 10000 {
		score *= 0.9
	}
	if totalSlip > 0.01 {
		score *= 0.9
	}
	hour := now.UTC().Hour()
	if hour >= 13 && hour <= 21 {
		score *= 0.95
	}

	// execution-success probability
	if congestionMult(hour) > 1.0 {
		score *= 0.95
	}
	if age > c.cfg.StaleShort {
		score *= 0.95
	}
	if volatilityMult(hour) > 1.2 {
		score *= 0.95
	}

	return clampConfidence(score)
}

func (c *ConfidenceScorer) liquidityFactor(liquidity, tradeSize float64) float64 {
	need := tradeSize * c.cfg.LiquiditySafety
	if need <= 0 || liquidity >= need {
		return 1.0
	}
	f := liquidity / need
	if f < 0.3 {
		f = 0.3
	}
	return f
}

func (c *ConfidenceScorer) reliability(source string) float64 {
	r, ok := c.cfg.Reliability[source]
	if !ok || r <= 0 || r > 1 {
		return 1.0
	}
	return r
}

func bookFactor(q model.Quote) float64 {
	if !q.HasBook() {
		return 0.97 // small penalty when depth is opaque
	}
	mid := q.Mid
	if mid <= 0 {
		mid = (q.Bid + q.Ask) / 2
	}
	if mid <= 0 {
		return 0.97
	}
	spread := (q.Ask - q.Bid) / mid
	switch {
	case spread < 0.002:
		return 1.02
	case spread > 0.01:
		return 0.85
	default:
		return 1.0
	}
}

func clampConfidence(v float64) float64 {
	if v != v || v < 0.1 { // v != v catches NaN
		return 0.1
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
