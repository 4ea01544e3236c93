// Package source holds the venue-side implementations of the
// PriceSource port: a generic simulated venue parameterized entirely
// by configuration, and a thin websocket transport plug-in. Adding a
// venue means adding config, never a new type.
package source

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"solarb/internal/application/port"
	"solarb/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// SimulatedConfig tunes one synthetic venue. Cadence, fees and
// reliability are data; the price process is a bounded random walk
// around the configured seed.
type SimulatedConfig struct {
	Name        string
	Interval    time.Duration
	FeeBps      float64
	Reliability float64
	BasePrice   float64 // seed price, quote units per base unit
	Liquidity   float64 // quote-denominated depth seed
	HasBook     bool    // whether the venue reports bid/ask depth
}

// Simulated is a self-contained venue feed. It satisfies the
// PriceSource contract exactly so a genuine integration is a drop-in
// replacement.
type Simulated struct {
	cfg     SimulatedConfig
	healthy atomic.Bool

	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64       // pair key -> current walk position
	subs   map[string]chan struct{} // pair key -> push loop stop signal
}

func NewSimulated(cfg SimulatedConfig) *Simulated {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = 100
	}
	if cfg.Liquidity <= 0 {
		cfg.Liquidity = 1_000_000
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(cfg.Name))
	return &Simulated{
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(h.Sum64(), uint64(time.Now().UnixNano()))),
		prices: make(map[string]float64),
		subs:   make(map[string]chan struct{}),
	}
}

func (s *Simulated) Name() string { return s.cfg.Name }

func (s *Simulated) Init(ctx context.Context) error {
	s.healthy.Store(true)
	return nil
}

func (s *Simulated) Healthy() bool { return s.healthy.Load() }

func (s *Simulated) Fetch(ctx context.Context, pair model.TokenPair) (model.Quote, error) {
	if !s.healthy.Load() {
		return model.Quote{}, port.ErrNoQuote
	}
	return s.nextQuote(pair), nil
}

// Subscribe starts a per-pair push loop on the venue's own cadence.
func (s *Simulated) Subscribe(pair model.TokenPair, fn port.QuoteFunc) error {
	key := pair.Key()
	s.mu.Lock()
	if _, dup := s.subs[key]; dup {
		s.mu.Unlock()
		return nil // already pushing this pair
	}
	stop := make(chan struct{})
	s.subs[key] = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if s.healthy.Load() {
					fn(s.nextQuote(pair))
				}
			}
		}
	}()
	return nil
}

func (s *Simulated) Unsubscribe(pair model.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stop, ok := s.subs[pair.Key()]; ok {
		close(stop)
		delete(s.subs, pair.Key())
	}
}

func (s *Simulated) OrderBook(ctx context.Context, pair model.TokenPair) (model.OrderBook, error) {
	if !s.cfg.HasBook {
		return model.OrderBook{}, port.ErrNoOrderBook
	}
	q := s.nextQuote(pair)
	book := model.OrderBook{}
	size := q.Liquidity / q.Price / 10
	for i := 1; i <= 5; i++ {
		step := float64(i) * 0.0005
		book.Bids = append(book.Bids, model.Level{Price: q.Price * (1 - step), Size: size})
		book.Asks = append(book.Asks, model.Level{Price: q.Price * (1 + step), Size: size})
	}
	return book, nil
}

func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, stop := range s.subs {
		close(stop)
		delete(s.subs, key)
	}
	if s.healthy.Swap(false) {
		log.Debug().Str("source", s.cfg.Name).Msg("simulated source closed")
	}
	return nil
}

// nextQuote advances the pair's random walk one step and snapshots it.
func (s *Simulated) nextQuote(pair model.TokenPair) model.Quote {
	s.mu.Lock()
	p, ok := s.prices[pair.Key()]
	if !ok {
		// venues start slightly apart so cross-venue spreads exist
		p = s.cfg.BasePrice * (1 + (s.rng.Float64()-0.5)*0.01)
	}
	p *= 1 + (s.rng.Float64()-0.5)*0.004
	s.prices[pair.Key()] = p
	liquidity := s.cfg.Liquidity * (0.9 + s.rng.Float64()*0.2)
	jitter := s.rng.Float64()
	s.mu.Unlock()

	q := model.Quote{
		Source:    s.cfg.Name,
		Pair:      pair,
		Price:     p,
		Liquidity: liquidity,
		Ts:        time.Now().UnixMilli(),
	}
	if s.cfg.HasBook {
		half := p * (0.0003 + jitter*0.0007)
		q.Bid = p - half
		q.Ask = p + half
		q.Mid = p
	}
	return q
}

var _ port.PriceSource = (*Simulated)(nil)
