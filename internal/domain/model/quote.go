package model

import "time"

// Quote is a single venue's observation of a pair at a point in time.
// Immutable once created; a newer quote for the same (source, pair)
// supersedes it in the store, it is never mutated in place.
type Quote struct {
	Source    string    `json:"source"`
	Pair      TokenPair `json:"pair"`
	Price     float64   `json:"price"`
	Liquidity float64   `json:"liquidity"` // quote-denominated depth the venue reports
	Bid       float64   `json:"bid,omitempty"`
	Ask       float64   `json:"ask,omitempty"`
	Mid       float64   `json:"mid,omitempty"`
	Ts        int64     `json:"ts_ms"` // capture time, unix ms
}

// HasBook reports whether the venue supplied orderbook-derived prices.
func (q Quote) HasBook() bool { return q.Bid > 0 && q.Ask > 0 }

// BuyPrice is the price paid when buying on this venue.
func (q Quote) BuyPrice() float64 {
	if q.Ask > 0 {
		return q.Ask
	}
	return q.Price
}

// SellPrice is the price received when selling on this venue.
func (q Quote) SellPrice() float64 {
	if q.Bid > 0 {
		return q.Bid
	}
	return q.Price
}

// Age of the quote relative to now.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(q.Ts))
}
