// Package scheduler runs named periodic tasks with a single cancel
// point, so shutdown can guarantee no further firings.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Scheduler struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	names   map[string]struct{}
	stopped bool
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel, names: make(map[string]struct{})}
}

// Every registers a named task firing on the given interval. The first
// firing happens one interval after registration. Duplicate names and
// registration after Stop are rejected with a warning.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		log.Warn().Str("task", name).Msg("scheduler stopped, task not registered")
		return
	}
	if _, dup := s.names[name]; dup {
		log.Warn().Str("task", name).Msg("duplicate task name, not registered")
		return
	}
	s.names[name] = struct{}{}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				fn(s.ctx)
			}
		}
	}()
	log.Debug().Str("task", name).Dur("interval", interval).Msg("task registered")
}

// Stop cancels every task and waits for in-flight runs to return.
// Idempotent; after Stop no task fires again.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
