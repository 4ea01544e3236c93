package monitor

import (
	"context"

	"solarb/internal/application/port"
	"solarb/internal/domain/model"
)

type noopRepo struct{}

// NewNoopRepo returns a repository that drops everything; used when
// persistence is disabled by config.
func NewNoopRepo() port.Repository { return &noopRepo{} }

func (n *noopRepo) SaveOpportunity(ctx context.Context, o *model.Opportunity) error { return nil }
func (n *noopRepo) UpsertLatestQuote(ctx context.Context, q *model.Quote) error     { return nil }
func (n *noopRepo) RecentOpportunities(ctx context.Context, limit int) ([]*model.Opportunity, error) {
	return nil, nil
}
func (n *noopRepo) Close() error { return nil }
