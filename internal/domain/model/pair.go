package model

import "fmt"

// TokenPair identifies a base/quote market by on-chain mint addresses.
// Symbols are display-only; two pairs are the same market iff both
// addresses match.
type TokenPair struct {
	BaseSymbol   string `json:"base_symbol"`
	QuoteSymbol  string `json:"quote_symbol"`
	BaseAddress  string `json:"base_address"`
	QuoteAddress string `json:"quote_address"`
}

// Key returns the canonical identity used for map keys and
// subscription bookkeeping. Never derived from symbols.
func (p TokenPair) Key() string {
	return p.BaseAddress + "/" + p.QuoteAddress
}

func (p TokenPair) String() string {
	return fmt.Sprintf("%s/%s", p.BaseSymbol, p.QuoteSymbol)
}

func (p TokenPair) Equal(o TokenPair) bool {
	return p.BaseAddress == o.BaseAddress && p.QuoteAddress == o.QuoteAddress
}

// Level is one side entry of an order book snapshot.
type Level struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook is an optional per-venue depth snapshot.
type OrderBook struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}
