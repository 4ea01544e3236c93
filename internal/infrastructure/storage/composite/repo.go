package composite

import (
	"context"

	"solarb/internal/application/port"
	"solarb/internal/domain/model"
)

// Repo fans writes out to several backends; the first error wins but
// every backend still sees the write.
type Repo struct {
	repos []port.Repository
}

func New(repos ...port.Repository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) UpsertLatestQuote(ctx context.Context, q *model.Quote) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.UpsertLatestQuote(ctx, q); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) SaveOpportunity(ctx context.Context, o *model.Opportunity) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveOpportunity(ctx, o); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) RecentOpportunities(ctx context.Context, limit int) ([]*model.Opportunity, error) {
	for _, repo := range r.repos {
		opps, err := repo.RecentOpportunities(ctx, limit)
		if err == nil && len(opps) > 0 {
			return opps, nil
		}
	}
	return nil, nil
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.Repository = (*Repo)(nil)
