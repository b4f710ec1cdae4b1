package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetapp/internal/core"
)

type DashboardOptions struct {
	// StrictRefresh fails the snapshot when materialization fails instead of
	// building it from committed state.
	StrictRefresh bool
	// Clock supplies "now" for materialization. Defaults to time.Now.
	Clock func() time.Time
}

// DashboardService refreshes recurring expenses and assembles the snapshot
// for a month.
type DashboardService struct {
	materializer *Materializer
	aggregator   *Aggregator
	opts         DashboardOptions
}

func NewDashboardService(m *Materializer, a *Aggregator, opts DashboardOptions) *DashboardService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &DashboardService{materializer: m, aggregator: a, opts: opts}
}

// BuildSnapshot runs one materialization pass as of now, then aggregates and
// scores month. Materialization commits atomically, so when it fails the
// totals still reflect a consistent state; the snapshot is then marked as
// not refreshed unless StrictRefresh is set.
func (s *DashboardService) BuildSnapshot(ctx context.Context, month core.Month) (core.DashboardSnapshot, error) {
	if s.aggregator == nil {
		return core.DashboardSnapshot{}, fmt.Errorf("dashboard service not properly initialized")
	}

	refreshed := true
	materialized := 0
	if s.materializer != nil {
		n, err := s.materializer.MaterializePass(ctx, s.opts.Clock())
		materialized = n
		if err != nil {
			if s.opts.StrictRefresh {
				return core.DashboardSnapshot{}, fmt.Errorf("materialize recurring expenses: %w", err)
			}
			refreshed = false
			slog.ErrorContext(ctx, "Failed to materialize recurring expenses, using committed state",
				"month", month.String(),
				"error", err)
		}
	}

	agg, err := s.aggregator.Aggregate(ctx, month)
	if err != nil {
		return core.DashboardSnapshot{}, fmt.Errorf("aggregate %s: %w", month, err)
	}

	score, label := Score(agg.TotalIncome, agg.TotalExpenses, agg.Categories)

	return core.DashboardSnapshot{
		Month:         agg.Month,
		TotalIncome:   agg.TotalIncome,
		TotalExpenses: agg.TotalExpenses,
		Net:           agg.Net,
		Trend:         agg.Trend,
		Categories:    agg.Categories,
		HealthScore:   score,
		HealthLabel:   label,
		Refreshed:     refreshed,
		Materialized:  materialized,
	}, nil
}
