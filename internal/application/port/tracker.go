package port

import (
	"context"

	"solarb/internal/domain/model"
)

// Tracker receives every evaluated opportunity. reported=true means the
// opportunity passed gating and must reach the sink exactly once;
// reported=false carries the suppression reason. Fire-and-forget from
// the core's perspective: errors are logged, never propagated.
type Tracker interface {
	Track(ctx context.Context, o model.Opportunity, reported bool, reason string)
}

// TrackerFunc adapts a function to the Tracker interface.
type TrackerFunc func(ctx context.Context, o model.Opportunity, reported bool, reason string)

func (f TrackerFunc) Track(ctx context.Context, o model.Opportunity, reported bool, reason string) {
	f(ctx, o, reported, reason)
}
