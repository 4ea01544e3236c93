package monitor

import (
	"solarb/internal/application/service"

	"github.com/rs/zerolog/log"
)

// Status is a point-in-time snapshot, not a subscription.
type Status struct {
	Running                bool               `json:"running"`
	State                  string             `json:"state"`
	PairCount              int                `json:"pair_count"`
	EnabledSources         []string           `json:"enabled_sources"`
	RecentOpportunityCount int                `json:"recent_opportunity_count"`
	LastTick               uint64             `json:"last_tick,omitempty"`
	Cache                  service.StoreStats `json:"cache"`
}

func (s *Service) Status() Status {
	st := s.currentState()
	return Status{
		Running:                st == stateRunning,
		State:                  st.String(),
		PairCount:              len(s.snapshotPairs()),
		EnabledSources:         s.deps.Registry.Enabled(),
		RecentOpportunityCount: len(s.deps.Store.RecentOpportunities(0)),
		LastTick:               s.lastTick.Load(),
		Cache:                  s.deps.Store.Stats(),
	}
}

func (s *Service) logSummary(msg string) {
	st := s.Status()
	log.Info().
		Str("state", st.State).
		Int("pairs", st.PairCount).
		Strs("sources", st.EnabledSources).
		Int("opportunities", st.RecentOpportunityCount).
		Int("cache_size", st.Cache.CacheSize).
		Msg(msg)
}
