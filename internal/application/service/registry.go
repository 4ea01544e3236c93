package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"solarb/internal/application/port"
	"solarb/internal/domain/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoSources means no source survived initialization.
var ErrNoSources = errors.New("no enabled price sources")

type sourceState struct {
	src     port.PriceSource
	enabled bool
}

// SourceRegistry owns the venue set. It fans requests out to every
// enabled source, tolerates partial failure, and exposes aggregate
// health. The set is read-mostly after Init; only health-driven
// disable mutates it.
type SourceRegistry struct {
	mu           sync.RWMutex
	sources      map[string]*sourceState
	order        []string
	fetchTimeout time.Duration

	// subscription bookkeeping: source name -> pair key -> pair.
	subs map[string]map[string]model.TokenPair
}

func NewSourceRegistry(sources []port.PriceSource, fetchTimeout time.Duration) *SourceRegistry {
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}
	r := &SourceRegistry{
		sources:      make(map[string]*sourceState, len(sources)),
		fetchTimeout: fetchTimeout,
		subs:         make(map[string]map[string]model.TokenPair),
	}
	for _, s := range sources {
		if s == nil {
			continue
		}
		name := s.Name()
		if _, dup := r.sources[name]; dup {
			log.Warn().Str("source", name).Msg("duplicate source name, keeping first")
			continue
		}
		r.sources[name] = &sourceState{src: s, enabled: true}
		r.order = append(r.order, name)
	}
	return r
}

// Init fans initialization out to all sources. A source whose Init
// fails is disabled and excluded from subsequent fan-outs; Init only
// errors when zero sources remain enabled.
func (r *SourceRegistry) Init(ctx context.Context) error {
	var wg sync.WaitGroup
	r.mu.RLock()
	states := make([]*sourceState, 0, len(r.order))
	for _, name := range r.order {
		states = append(states, r.sources[name])
	}
	r.mu.RUnlock()

	for _, st := range states {
		wg.Add(1)
		go func(st *sourceState) {
			defer wg.Done()
			if err := st.src.Init(ctx); err != nil {
				log.Error().Str("source", st.src.Name()).Err(err).Msg("source init failed, disabling")
				r.disable(st.src.Name())
				return
			}
			log.Info().Str("source", st.src.Name()).Msg("source initialized")
		}(st)
	}
	wg.Wait()

	if len(r.Enabled()) == 0 {
		return ErrNoSources
	}
	return nil
}

func (r *SourceRegistry) disable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.sources[name]; st != nil {
		st.enabled = false
	}
}

// Enabled returns the names of enabled sources in registration order.
func (r *SourceRegistry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.sources[name].enabled {
			out = append(out, name)
		}
	}
	return out
}

func (r *SourceRegistry) enabledSources() []port.PriceSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]port.PriceSource, 0, len(r.order))
	for _, name := range r.order {
		if st := r.sources[name]; st.enabled {
			out = append(out, st.src)
		}
	}
	return out
}

// FetchAll dispatches a concurrent fetch to every enabled source. A
// source that errors or times out is simply absent from the result;
// zero successes yields an empty map, never an error.
func (r *SourceRegistry) FetchAll(ctx context.Context, pair model.TokenPair) map[string]model.Quote {
	srcs := r.enabledSources()
	out := make(map[string]model.Quote, len(srcs))
	if len(srcs) == 0 {
		return out
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range srcs {
		s := s
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, r.fetchTimeout)
			defer cancel()
			q, err := s.Fetch(fctx, pair)
			if err != nil {
				if !errors.Is(err, port.ErrNoQuote) {
					log.Warn().Str("source", s.Name()).Str("pair", pair.String()).Err(err).Msg("fetch failed")
				}
				return nil // partial failure never surfaces to the caller
			}
			mu.Lock()
			out[s.Name()] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// SubscribeAll registers fn with every enabled source for pair.
func (r *SourceRegistry) SubscribeAll(pair model.TokenPair, fn port.QuoteFunc) {
	for _, s := range r.enabledSources() {
		if err := s.Subscribe(pair, fn); err != nil {
			log.Warn().Str("source", s.Name()).Str("pair", pair.String()).Err(err).Msg("subscribe failed")
			continue
		}
		r.mu.Lock()
		m := r.subs[s.Name()]
		if m == nil {
			m = make(map[string]model.TokenPair)
			r.subs[s.Name()] = m
		}
		m[pair.Key()] = pair
		r.mu.Unlock()
	}
}

// UnsubscribeAll drops pair from every source. Idempotent: a pair with
// no active subscriptions is a no-op.
func (r *SourceRegistry) UnsubscribeAll(pair model.TokenPair) {
	r.mu.RLock()
	states := make([]*sourceState, 0, len(r.order))
	for _, name := range r.order {
		states = append(states, r.sources[name])
	}
	r.mu.RUnlock()

	for _, st := range states {
		st.src.Unsubscribe(pair)
		r.mu.Lock()
		if m := r.subs[st.src.Name()]; m != nil {
			delete(m, pair.Key())
		}
		r.mu.Unlock()
	}
}

// Health reports each source's self-reported state. A disabled source
// is always unhealthy.
func (r *SourceRegistry) Health() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.order))
	for _, name := range r.order {
		st := r.sources[name]
		out[name] = st.enabled && st.src.Healthy()
	}
	return out
}

// Close shuts every source down; the first error wins.
func (r *SourceRegistry) Close() error {
	var firstErr error
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if err := r.sources[name].src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
