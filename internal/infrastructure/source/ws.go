package source

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"solarb/internal/application/port"
	"solarb/internal/domain/model"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSConfig points the generic websocket venue at its endpoint.
type WSConfig struct {
	Name        string
	URL         string
	Reliability float64
}

// wsQuoteMsg is the wire shape the endpoint pushes: one JSON object
// per quote, pairs identified by mint addresses.
type wsQuoteMsg struct {
	Base      string  `json:"base"`
	Quote     string  `json:"quote"`
	Price     float64 `json:"price"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Liquidity float64 `json:"liquidity"`
	Ts        int64   `json:"ts_ms"`
}

// WS is a venue fed by a websocket stream. Fetch serves the most
// recent pushed quote; Subscribe forwards pushes per pair. The read
// loop reconnects with exponential backoff and flips the health flag
// while disconnected.
type WS struct {
	cfg     WSConfig
	healthy atomic.Bool
	cancel  context.CancelFunc

	mu   sync.Mutex
	subs map[string]port.QuoteFunc // pair key -> callback
	last map[string]model.Quote    // pair key -> newest pushed quote
}

func NewWS(cfg WSConfig) *WS {
	return &WS{
		cfg:  cfg,
		subs: make(map[string]port.QuoteFunc),
		last: make(map[string]model.Quote),
	}
}

func (w *WS) Name() string  { return w.cfg.Name }
func (w *WS) Healthy() bool { return w.healthy.Load() }

// Init dials once to prove the endpoint is reachable, then hands the
// connection to the read loop. A dead endpoint fails Init and the
// registry disables the venue.
func (w *WS) Init(ctx context.Context) error {
	if strings.TrimSpace(w.cfg.URL) == "" {
		return errors.New("ws url empty")
	}
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dctx, w.cfg.URL, nil)
	cancel()
	if err != nil {
		return err
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	w.cancel = runCancel
	w.healthy.Store(true)
	go w.run(runCtx, conn)
	return nil
}

func (w *WS) run(ctx context.Context, conn *websocket.Conn) {
	backoff := 500 * time.Millisecond
	const maxBackoff = 10 * time.Second

	for {
		if conn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			c, _, err := websocket.DefaultDialer.DialContext(dctx, w.cfg.URL, nil)
			cancel()
			if err != nil {
				log.Error().Str("source", w.cfg.Name).Err(err).Msg("ws redial failed")
				backoff = minDur(backoff*2, maxBackoff)
				continue
			}
			conn = c
			backoff = 500 * time.Millisecond
			w.healthy.Store(true)
			log.Info().Str("source", w.cfg.Name).Msg("ws reconnected")
		}

		if err := w.readLoop(ctx, conn); err != nil {
			_ = conn.Close()
			conn = nil
			w.healthy.Store(false)
			if ctx.Err() != nil {
				return
			}
			log.Warn().Str("source", w.cfg.Name).Err(err).Msg("ws read failed, reconnecting")
		}
	}
}

func (w *WS) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, b, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg wsQuoteMsg
		if err := json.Unmarshal(b, &msg); err != nil {
			log.Warn().Str("source", w.cfg.Name).Err(err).Msg("ws message decode failed")
			continue
		}
		if msg.Base == "" || msg.Quote == "" || msg.Price <= 0 {
			continue
		}
		w.apply(msg)
	}
}

func (w *WS) apply(msg wsQuoteMsg) {
	key := msg.Base + "/" + msg.Quote
	ts := msg.Ts
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	w.mu.Lock()
	prev, known := w.last[key]
	var pair model.TokenPair
	if known {
		pair = prev.Pair
	} else {
		pair = model.TokenPair{BaseAddress: msg.Base, QuoteAddress: msg.Quote}
	}
	q := model.Quote{
		Source:    w.cfg.Name,
		Pair:      pair,
		Price:     msg.Price,
		Liquidity: msg.Liquidity,
		Bid:       msg.Bid,
		Ask:       msg.Ask,
		Ts:        ts,
	}
	if q.HasBook() {
		q.Mid = (q.Bid + q.Ask) / 2
	}
	w.last[key] = q
	fn := w.subs[key]
	w.mu.Unlock()

	if fn != nil {
		fn(q)
	}
}

// Fetch serves the newest quote the stream pushed for the pair.
func (w *WS) Fetch(ctx context.Context, pair model.TokenPair) (model.Quote, error) {
	w.mu.Lock()
	q, ok := w.last[pair.Key()]
	w.mu.Unlock()
	if !ok {
		return model.Quote{}, port.ErrNoQuote
	}
	// keep the richer symbols from the subscription-side pair
	q.Pair = pair
	return q, nil
}

func (w *WS) Subscribe(pair model.TokenPair, fn port.QuoteFunc) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs[pair.Key()] = fn
	if q, ok := w.last[pair.Key()]; ok && q.Pair.BaseSymbol == "" {
		q.Pair = pair
		w.last[pair.Key()] = q
	}
	return nil
}

func (w *WS) Unsubscribe(pair model.TokenPair) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.subs, pair.Key())
}

// OrderBook is not part of this transport's stream.
func (w *WS) OrderBook(ctx context.Context, pair model.TokenPair) (model.OrderBook, error) {
	return model.OrderBook{}, port.ErrNoOrderBook
}

func (w *WS) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.healthy.Store(false)
	return nil
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

var _ port.PriceSource = (*WS)(nil)
