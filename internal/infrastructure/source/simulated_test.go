package source

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"solarb/internal/application/port"
	"solarb/internal/domain/model"
)

var testPair = model.TokenPair{
	BaseSymbol:   "SOL",
	QuoteSymbol:  "USDC",
	BaseAddress:  "So11111111111111111111111111111111111111112",
	QuoteAddress: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
}

func TestSimulatedFetch(t *testing.T) {
	s := NewSimulated(SimulatedConfig{Name: "raydium", BasePrice: 150, Liquidity: 2_000_000})
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	q, err := s.Fetch(context.Background(), testPair)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if q.Source != "raydium" {
		t.Errorf("source = %q, want raydium", q.Source)
	}
	if q.Pair.Key() != testPair.Key() {
		t.Errorf("pair = %v, want %v", q.Pair, testPair)
	}
	// the walk stays within a few percent of the seed on the first step
	if math.Abs(q.Price-150)/150 > 0.02 {
		t.Errorf("first price %v strayed too far from seed 150", q.Price)
	}
	if q.Liquidity <= 0 {
		t.Errorf("liquidity = %v, want > 0", q.Liquidity)
	}
	if q.Ts == 0 {
		t.Error("quote must carry a timestamp")
	}
	if q.HasBook() {
		t.Error("bookless venue must not report bid/ask")
	}
}

func TestSimulatedFetchBeforeInit(t *testing.T) {
	s := NewSimulated(SimulatedConfig{Name: "raydium"})
	if _, err := s.Fetch(context.Background(), testPair); err == nil {
		t.Error("fetch before Init must fail")
	}
}

func TestSimulatedBookQuote(t *testing.T) {
	s := NewSimulated(SimulatedConfig{Name: "phoenix", BasePrice: 150, HasBook: true})
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	q, err := s.Fetch(context.Background(), testPair)
	if err != nil {
		t.Fatal(err)
	}
	if !q.HasBook() {
		t.Fatal("book venue must report bid/ask")
	}
	if !(q.Bid < q.Mid && q.Mid < q.Ask) {
		t.Errorf("malformed book quote: bid %v mid %v ask %v", q.Bid, q.Mid, q.Ask)
	}

	book, err := s.OrderBook(context.Background(), testPair)
	if err != nil {
		t.Fatalf("orderbook: %v", err)
	}
	if len(book.Bids) != 5 || len(book.Asks) != 5 {
		t.Errorf("depth = %d/%d levels, want 5/5", len(book.Bids), len(book.Asks))
	}
	if book.Bids[0].Price >= book.Asks[0].Price {
		t.Errorf("crossed synthetic book: best bid %v >= best ask %v", book.Bids[0].Price, book.Asks[0].Price)
	}
}

func TestSimulatedOrderBookWithoutBook(t *testing.T) {
	s := NewSimulated(SimulatedConfig{Name: "raydium"})
	_ = s.Init(context.Background())
	defer s.Close()

	if _, err := s.OrderBook(context.Background(), testPair); err != port.ErrNoOrderBook {
		t.Errorf("expected ErrNoOrderBook, got %v", err)
	}
}

func TestSimulatedSubscribePushesAndStops(t *testing.T) {
	s := NewSimulated(SimulatedConfig{Name: "orca", BasePrice: 150, Interval: 5 * time.Millisecond})
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var mu sync.Mutex
	var got []model.Quote
	err := s.Subscribe(testPair, func(q model.Quote) {
		mu.Lock()
		got = append(got, q)
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("push loop produced %d quotes within 1s, want >= 3", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Unsubscribe(testPair)
	mu.Lock()
	after := len(got)
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	final := len(got)
	mu.Unlock()
	// allow one in-flight push racing the unsubscribe
	if final > after+1 {
		t.Errorf("push loop kept running after unsubscribe: %d -> %d", after, final)
	}
}

func TestSimulatedDuplicateSubscribe(t *testing.T) {
	s := NewSimulated(SimulatedConfig{Name: "orca", Interval: time.Hour})
	_ = s.Init(context.Background())
	defer s.Close()

	if err := s.Subscribe(testPair, func(model.Quote) {}); err != nil {
		t.Fatal(err)
	}
	// second subscription for the same pair is a silent no-op
	if err := s.Subscribe(testPair, func(model.Quote) {}); err != nil {
		t.Fatal(err)
	}
	s.Unsubscribe(testPair)
	s.Unsubscribe(testPair) // idempotent
}

func TestSimulatedCloseStopsEverything(t *testing.T) {
	s := NewSimulated(SimulatedConfig{Name: "orca", Interval: 5 * time.Millisecond})
	_ = s.Init(context.Background())

	var fired sync.WaitGroup
	fired.Add(1)
	var once sync.Once
	_ = s.Subscribe(testPair, func(model.Quote) { once.Do(fired.Done) })
	fired.Wait()

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if s.Healthy() {
		t.Error("closed source must report unhealthy")
	}
	if _, err := s.Fetch(context.Background(), testPair); err == nil {
		t.Error("fetch after close must fail")
	}
}
