package port

import (
	"context"
	"errors"

	"solarb/internal/domain/model"
)

var (
	// ErrNoQuote means the source has no current price for the pair.
	ErrNoQuote = errors.New("no quote available")
	// ErrNoOrderBook means the source does not expose depth for the pair.
	ErrNoOrderBook = errors.New("no order book available")
)

// QuoteFunc receives asynchronously pushed quotes after Subscribe.
type QuoteFunc func(model.Quote)

// PriceSource is a named venue feed. The core never assumes more than
// this shape: fetch one quote on demand, push quotes after subscribe,
// self-report health. Venue wire protocols live behind it.
type PriceSource interface {
	Name() string

	// Init prepares the transport. A failing source is disabled by the
	// registry, it never fails the registry as a whole.
	Init(ctx context.Context) error

	// Fetch returns the current quote for the pair, or ErrNoQuote.
	Fetch(ctx context.Context, pair model.TokenPair) (model.Quote, error)

	// Subscribe registers fn for pushed quotes on pair. Each source
	// decides its own push cadence.
	Subscribe(pair model.TokenPair, fn QuoteFunc) error

	// Unsubscribe is idempotent; unknown pairs are a no-op.
	Unsubscribe(pair model.TokenPair)

	// OrderBook is optional; sources without depth return ErrNoOrderBook.
	OrderBook(ctx context.Context, pair model.TokenPair) (model.OrderBook, error)

	// Healthy is the source's self-reported state, not liveness of the
	// last fetch.
	Healthy() bool

	Close() error
}

// TickSource is an optional external synchronization signal, e.g. a
// chain slot counter. Ticks are monotonically increasing.
type TickSource interface {
	Subscribe(fn func(tick uint64)) error
	Unsubscribe()
	Close() error
}
