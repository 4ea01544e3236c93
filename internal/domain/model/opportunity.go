package model

import "github.com/google/uuid"

// Opportunity is a directed cross-venue pairing that survived cost
// adjustment. Immutable once constructed. Every detection gets a fresh
// ID; repeated detections of the same economic edge are distinct
// records, deduplication is the tracking layer's concern.
type Opportunity struct {
	ID               string    `json:"id"`
	Pair             TokenPair `json:"pair"`
	BuySource        string    `json:"buy_source"`
	SellSource       string    `json:"sell_source"`
	BuyPrice         float64   `json:"buy_price"`  // effective, slippage-adjusted
	SellPrice        float64   `json:"sell_price"` // effective, slippage-adjusted
	Spread           float64   `json:"spread"`
	SpreadPercent    float64   `json:"spread_percent"`
	GrossProfit      float64   `json:"gross_profit"`
	EstimatedFees    float64   `json:"estimated_fees"`
	NetProfit        float64   `json:"net_profit"`
	NetProfitPercent float64   `json:"net_profit_percent"`
	TradeSize        float64   `json:"trade_size"`
	Ts               int64     `json:"ts_ms"` // detection time, unix ms
	Confidence       float64   `json:"confidence"`
}

// NewOpportunityID mints a fresh unique identifier.
func NewOpportunityID() string { return uuid.NewString() }
