// Package monitor orchestrates acquisition, caching and detection:
// push callbacks and timer fallbacks feed the quote store, every new
// quote triggers detection, and periodic health checks supervise the
// whole pipeline.
package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"solarb/internal/application/port"
	"solarb/internal/application/scheduler"
	"solarb/internal/application/service"
	"solarb/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// ErrAlreadyRunning is returned by Start on a running service.
var ErrAlreadyRunning = errors.New("monitor already running")

type runState int32

const (
	stateStopped runState = iota
	stateStarting
	stateRunning
	stateStopping
)

func (s runState) String() string {
	switch s {
	case stateStarting:
		return "starting"
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Config carries the orchestration cadences.
type Config struct {
	FullRefreshInterval  time.Duration // force-fetch every pair
	StaleRefreshInterval time.Duration // refresh only stale/underpopulated pairs
	HealthCheckInterval  time.Duration
	SweepInterval        time.Duration
	StaleThreshold       time.Duration // newest quote older than this counts as stale
	TicksPerRefresh      uint64        // external ticks between opportunistic refreshes
}

func (c *Config) defaults() {
	if c.FullRefreshInterval <= 0 {
		c.FullRefreshInterval = 30 * time.Second
	}
	if c.StaleRefreshInterval <= 0 {
		c.StaleRefreshInterval = 5 * time.Second
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = 60 * time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 15 * time.Second
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = 10 * time.Second
	}
	if c.TicksPerRefresh == 0 {
		c.TicksPerRefresh = 25
	}
}

type ServiceDeps struct {
	Registry *service.SourceRegistry
	Store    *service.QuoteStore
	Engine   *service.ArbitrageEngine
	Repo     port.Repository
	Ticks    port.TickSource // optional external sync signal
	Pairs    []model.TokenPair
	Config   Config
}

// Service is the orchestrator. Stopped → Starting → Running →
// Stopping → Stopped; Start rejects a running service, Stop is
// idempotent and safe from a signal-handling context.
type Service struct {
	deps  ServiceDeps
	state atomic.Int32

	mu    sync.Mutex
	pairs map[string]model.TokenPair
	order []string

	sched     *scheduler.Scheduler
	runCtx    context.Context
	runCancel context.CancelFunc
	lastTick  atomic.Uint64
}

func NewService(deps ServiceDeps) *Service {
	deps.Config.defaults()
	s := &Service{
		deps:  deps,
		pairs: make(map[string]model.TokenPair, len(deps.Pairs)),
	}
	for _, p := range deps.Pairs {
		if _, dup := s.pairs[p.Key()]; dup {
			continue
		}
		s.pairs[p.Key()] = p
		s.order = append(s.order, p.Key())
	}
	return s
}

func (s *Service) currentState() runState { return runState(s.state.Load()) }

// Start initializes the registry, subscribes every monitored pair and
// arms the periodic tasks. Registry failure (zero usable sources) is a
// hard failure: the service never enters Running.
func (s *Service) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(stateStopped), int32(stateStarting)) {
		return ErrAlreadyRunning
	}

	if err := s.deps.Registry.Init(ctx); err != nil {
		s.state.Store(int32(stateStopped))
		return err
	}

	// detached from the caller's ctx: shutdown goes through Stop, and
	// stray results arriving afterwards are discarded by the state check
	s.runCtx, s.runCancel = context.WithCancel(context.Background())

	for _, p := range s.snapshotPairs() {
		s.deps.Registry.SubscribeAll(p, s.onQuote)
	}

	if s.deps.Ticks != nil {
		if err := s.deps.Ticks.Subscribe(s.onTick); err != nil {
			log.Warn().Err(err).Msg("tick source unavailable, relying on timers only")
		}
	}

	cfg := s.deps.Config
	s.sched = scheduler.New()
	s.sched.Every("full-refresh", cfg.FullRefreshInterval, s.fullRefresh)
	s.sched.Every("stale-refresh", cfg.StaleRefreshInterval, s.staleRefresh)
	s.sched.Every("health-check", cfg.HealthCheckInterval, s.healthCheck)
	s.sched.Every("sweep", cfg.SweepInterval, func(context.Context) {
		if n := s.deps.Store.Sweep(); n > 0 {
			log.Debug().Int("removed", n).Msg("store sweep")
		}
	})

	s.state.Store(int32(stateRunning))
	log.Info().Int("pairs", len(s.snapshotPairs())).
		Strs("sources", s.deps.Registry.Enabled()).
		Msg("monitor started")

	// warm the cache so the first detection cycle has data
	go s.fullRefresh(s.runCtx)
	return nil
}

// Stop cancels all timers, unsubscribes every pair, closes the
// registry transport and emits a final summary. Safe to call multiple
// times; repeated calls are no-ops.
func (s *Service) Stop() {
	swapped := s.state.CompareAndSwap(int32(stateRunning), int32(stateStopping)) ||
		s.state.CompareAndSwap(int32(stateStarting), int32(stateStopping))
	if !swapped {
		return
	}

	if s.sched != nil {
		s.sched.Stop() // no further firings past this point
	}
	for _, p := range s.snapshotPairs() {
		s.deps.Registry.UnsubscribeAll(p)
	}
	if s.deps.Ticks != nil {
		s.deps.Ticks.Unsubscribe()
	}
	if s.runCancel != nil {
		s.runCancel()
	}
	if err := s.deps.Registry.Close(); err != nil {
		log.Warn().Err(err).Msg("registry close")
	}
	s.deps.Store.Sweep()
	s.logSummary("final summary")

	s.state.Store(int32(stateStopped))
	log.Info().Msg("monitor stopped")
}

// AddPair begins monitoring a pair; while running it subscribes
// immediately. Duplicate adds warn and change nothing.
func (s *Service) AddPair(p model.TokenPair) {
	s.mu.Lock()
	if _, dup := s.pairs[p.Key()]; dup {
		s.mu.Unlock()
		log.Warn().Str("pair", p.String()).Msg("pair already monitored")
		return
	}
	s.pairs[p.Key()] = p
	s.order = append(s.order, p.Key())
	s.mu.Unlock()

	if s.currentState() == stateRunning {
		s.deps.Registry.SubscribeAll(p, s.onQuote)
	}
	log.Info().Str("pair", p.String()).Msg("pair added")
}

// RemovePair stops monitoring a pair; unknown pairs are a no-op.
func (s *Service) RemovePair(p model.TokenPair) {
	s.mu.Lock()
	if _, ok := s.pairs[p.Key()]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pairs, p.Key())
	for i, k := range s.order {
		if k == p.Key() {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.deps.Registry.UnsubscribeAll(p)
	log.Info().Str("pair", p.String()).Msg("pair removed")
}

func (s *Service) snapshotPairs() []model.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TokenPair, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.pairs[k])
	}
	return out
}

// onQuote is the push pipeline: store, mirror, detect, record.
func (s *Service) onQuote(q model.Quote) {
	if s.currentState() != stateRunning {
		return // stray result after stop
	}
	s.deps.Store.Put(q)
	if err := s.deps.Repo.UpsertLatestQuote(s.runCtx, &q); err != nil {
		log.Warn().Str("source", q.Source).Err(err).Msg("quote mirror failed")
	}
	s.detectPair(q.Pair)
}

func (s *Service) detectPair(pair model.TokenPair) {
	quotes := s.deps.Store.AllLatest(pair)
	if len(quotes) < 2 {
		return // partial data is not an error, just no cycle
	}
	for _, o := range s.deps.Engine.Detect(s.runCtx, pair, quotes) {
		s.deps.Store.RecordOpportunity(o)
		if err := s.deps.Repo.SaveOpportunity(s.runCtx, &o); err != nil {
			log.Warn().Str("id", o.ID).Err(err).Msg("opportunity persist failed")
		}
	}
}

// fullRefresh force-fetches every monitored pair regardless of
// staleness. Fallback for sources whose push feed went quiet.
func (s *Service) fullRefresh(ctx context.Context) {
	for _, p := range s.snapshotPairs() {
		s.refreshPair(ctx, p)
	}
}

// staleRefresh touches only pairs whose newest quote is older than the
// threshold or that fewer than two sources cover.
func (s *Service) staleRefresh(ctx context.Context) {
	cutoff := time.Now().Add(-s.deps.Config.StaleThreshold).UnixMilli()
	for _, p := range s.snapshotPairs() {
		ts, sources := s.deps.Store.NewestTs(p)
		if sources >= 2 && ts >= cutoff {
			continue
		}
		s.refreshPair(ctx, p)
	}
}

func (s *Service) refreshPair(ctx context.Context, pair model.TokenPair) {
	quotes := s.deps.Registry.FetchAll(ctx, pair)
	if s.currentState() != stateRunning && s.currentState() != stateStarting {
		return // discard stray results after stop
	}
	for _, q := range quotes {
		s.deps.Store.Put(q)
		if err := s.deps.Repo.UpsertLatestQuote(ctx, &q); err != nil {
			log.Warn().Str("source", q.Source).Err(err).Msg("quote mirror failed")
		}
	}
	if len(quotes) >= 2 {
		s.detectPair(pair)
	}
}

// healthCheck aggregates registry health and store stats. Degraded
// states are logged, never fatal.
func (s *Service) healthCheck(context.Context) {
	health := s.deps.Registry.Health()
	degraded := make([]string, 0)
	for name, ok := range health {
		if !ok {
			degraded = append(degraded, name)
		}
	}
	stats := s.deps.Store.Stats()
	ev := log.Info()
	if len(degraded) > 0 {
		ev = log.Warn().Strs("degraded", degraded)
	}
	ev.Int("sources", len(health)).
		Int("cache_size", stats.CacheSize).
		Int("history_size", stats.HistorySize).
		Int("opportunities", stats.OpportunityCount).
		Int64("approx_bytes", stats.ApproxBytes).
		Msg("health check")
}

// onTick handles the external synchronization signal: every N ticks it
// opportunistically refreshes stale pairs and regenerates the summary.
func (s *Service) onTick(tick uint64) {
	s.lastTick.Store(tick)
	if s.currentState() != stateRunning {
		return
	}
	if tick%s.deps.Config.TicksPerRefresh != 0 {
		return
	}
	s.staleRefresh(s.runCtx)
	s.logSummary("tick summary")
}
