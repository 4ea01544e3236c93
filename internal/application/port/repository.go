package port

import (
	"context"

	"solarb/internal/domain/model"
)

// Repository persists reported opportunities and mirrors latest quotes
// for outside consumers. Durable export is an outer surface; the core
// only writes through this interface and tolerates partial backends.
type Repository interface {
	// SaveOpportunity stores a gated-accepted opportunity.
	SaveOpportunity(ctx context.Context, o *model.Opportunity) error

	// UpsertLatestQuote mirrors the newest quote per (source, pair).
	UpsertLatestQuote(ctx context.Context, q *model.Quote) error

	// RecentOpportunities returns up to limit opportunities,
	// most-recent-first. Backends without read support return nil.
	RecentOpportunities(ctx context.Context, limit int) ([]*model.Opportunity, error)

	Close() error
}
