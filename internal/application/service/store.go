package service

import (
	"sync"
	"time"

	"solarb/internal/domain/model"
)

type cacheEntry struct {
	quote    model.Quote
	storedAt time.Time
	ttl      time.Duration
}

func (e cacheEntry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// StoreStats is an observability snapshot of the store. Memory is an
// approximation, exactness is not required.
type StoreStats struct {
	CacheSize        int   `json:"cache_size"`
	HistorySize      int   `json:"history_size"`
	OpportunityCount int   `json:"opportunity_count"`
	ApproxBytes      int64 `json:"approx_bytes"`
}

// StoreConfig bounds the store. Zero values get usable defaults.
type StoreConfig struct {
	TTL            time.Duration // cache entry time-to-live
	HistoryCap     int           // per-pair quote history capacity
	HistoryMaxAge  time.Duration // sweep horizon for history entries
	OpportunityCap int           // reported-opportunity log capacity
}

func (c *StoreConfig) defaults() {
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	if c.HistoryCap <= 0 {
		c.HistoryCap = 100
	}
	if c.HistoryMaxAge <= 0 {
		c.HistoryMaxAge = time.Hour
	}
	if c.OpportunityCap <= 0 {
		c.OpportunityCap = 100
	}
}

// QuoteStore holds the latest quote per (source, pair) under a TTL,
// a bounded rolling history per pair, and a bounded log of reported
// opportunities. Expired entries are lazily evicted on read and
// eagerly removed by Sweep. Safe for concurrent use; consistency is
// per-map, there is no cross-structure transaction.
type QuoteStore struct {
	mu  sync.RWMutex
	cfg StoreConfig
	now func() time.Time

	latest  map[string]map[string]cacheEntry // pair key -> source -> entry
	history map[string][]model.Quote         // pair key -> arrival-ordered quotes
	opps    []model.Opportunity
}

func NewQuoteStore(cfg StoreConfig) *QuoteStore {
	cfg.defaults()
	return &QuoteStore{
		cfg:     cfg,
		now:     time.Now,
		latest:  make(map[string]map[string]cacheEntry),
		history: make(map[string][]model.Quote),
	}
}

// Put upserts the (source, pair) entry with a fresh TTL and appends to
// the pair's history, trimming to capacity. Last write wins regardless
// of the quote's own timestamp ordering.
func (s *QuoteStore) Put(q model.Quote) {
	now := s.now()
	pk := q.Pair.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	bySource := s.latest[pk]
	if bySource == nil {
		bySource = make(map[string]cacheEntry)
		s.latest[pk] = bySource
	}
	bySource[q.Source] = cacheEntry{quote: q, storedAt: now, ttl: s.cfg.TTL}

	h := append(s.history[pk], q)
	if n := len(h) - s.cfg.HistoryCap; n > 0 {
		h = h[n:] // oldest dropped first
	}
	s.history[pk] = h
}

// Latest returns the cached quote for (source, pair) if unexpired.
// Expired entries are removed on access and treated as absent.
func (s *QuoteStore) Latest(source string, pair model.TokenPair) (model.Quote, bool) {
	now := s.now()
	pk := pair.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	bySource := s.latest[pk]
	e, ok := bySource[source]
	if !ok {
		return model.Quote{}, false
	}
	if e.expired(now) {
		delete(bySource, source)
		return model.Quote{}, false
	}
	return e.quote, true
}

// AllLatest returns every unexpired quote across sources for pair.
// This is a point-in-time snapshot and exactly the detection input.
func (s *QuoteStore) AllLatest(pair model.TokenPair) map[string]model.Quote {
	now := s.now()
	pk := pair.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	bySource := s.latest[pk]
	out := make(map[string]model.Quote, len(bySource))
	for src, e := range bySource {
		if e.expired(now) {
			delete(bySource, src)
			continue
		}
		out[src] = e.quote
	}
	return out
}

// History returns the pair's quotes most-recent-last; limit > 0
// returns only the tail.
func (s *QuoteStore) History(pair model.TokenPair, limit int) []model.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[pair.Key()]
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]model.Quote, len(h))
	copy(out, h)
	return out
}

// RecordOpportunity appends to the reported-opportunity log, trimming
// to capacity. Suppressed candidates are transient and never recorded.
func (s *QuoteStore) RecordOpportunity(o model.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opps = append(s.opps, o)
	if n := len(s.opps) - s.cfg.OpportunityCap; n > 0 {
		s.opps = s.opps[n:]
	}
}

// RecentOpportunities returns up to limit reported opportunities,
// most-recent-last.
func (s *QuoteStore) RecentOpportunities(limit int) []model.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o := s.opps
	if limit > 0 && len(o) > limit {
		o = o[len(o)-limit:]
	}
	out := make([]model.Opportunity, len(o))
	copy(out, o)
	return out
}

// NewestTs returns the newest capture timestamp across unexpired
// quotes for pair, plus how many sources currently have data.
func (s *QuoteStore) NewestTs(pair model.TokenPair) (ts int64, sources int) {
	for _, q := range s.AllLatest(pair) {
		sources++
		if q.Ts > ts {
			ts = q.Ts
		}
	}
	return ts, sources
}

// Sweep removes expired cache entries and age-trims history and
// opportunity buffers. Runs on a fixed interval; also safe to call
// concurrently with reads and writes.
func (s *QuoteStore) Sweep() (removed int) {
	now := s.now()
	cutoff := now.Add(-s.cfg.HistoryMaxAge).UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	for pk, bySource := range s.latest {
		for src, e := range bySource {
			if e.expired(now) {
				delete(bySource, src)
				removed++
			}
		}
		if len(bySource) == 0 {
			delete(s.latest, pk)
		}
	}

	for pk, h := range s.history {
		i := 0
		for i < len(h) && h[i].Ts < cutoff {
			i++
		}
		if i > 0 {
			removed += i
			h = h[i:]
			if len(h) == 0 {
				delete(s.history, pk)
				continue
			}
			trimmed := make([]model.Quote, len(h))
			copy(trimmed, h)
			s.history[pk] = trimmed
		}
	}

	i := 0
	for i < len(s.opps) && s.opps[i].Ts < cutoff {
		i++
	}
	if i > 0 {
		removed += i
		s.opps = append([]model.Opportunity(nil), s.opps[i:]...)
	}
	return removed
}

// Stats returns an approximate observability snapshot.
func (s *QuoteStore) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st StoreStats
	for _, bySource := range s.latest {
		st.CacheSize += len(bySource)
	}
	for _, h := range s.history {
		st.HistorySize += len(h)
	}
	st.OpportunityCount = len(s.opps)

	const quoteBytes, oppBytes = 200, 320 // rough struct + key overhead
	st.ApproxBytes = int64(st.CacheSize+st.HistorySize)*quoteBytes + int64(st.OpportunityCount)*oppBytes
	return st
}
