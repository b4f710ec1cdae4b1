package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetapp/internal/core"
	"budgetapp/internal/ledger"
	"budgetapp/internal/ledger/memory"
)

func fixedClock(d core.Date) func() time.Time {
	return func() time.Time { return noon(d) }
}

func TestBuildSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New("Housing", "Food")
	feb := core.NewMonth(2026, time.February)

	mustTemplate(t, store, "Rent", 50000, core.Monthly, core.NewDate(2026, time.February, 1))
	mustIncome(t, store, core.NewDate(2026, time.February, 1), 100000)
	_, err := store.CreateBudget(ctx, core.Budget{Month: feb, Amount: core.Cents(50000), CategoryID: 1})
	require.NoError(t, err)

	svc := NewDashboardService(
		NewMaterializer(store, nil, MaterializerOptions{}),
		NewAggregator(store),
		DashboardOptions{Clock: fixedClock(core.NewDate(2026, time.February, 5))},
	)

	snap, err := svc.BuildSnapshot(ctx, feb)
	require.NoError(t, err)

	assert.True(t, snap.Refreshed)
	assert.Equal(t, 1, snap.Materialized)
	assert.Equal(t, feb, snap.Month)
	assert.Equal(t, core.Cents(100000), snap.TotalIncome)
	assert.Equal(t, core.Cents(50000), snap.TotalExpenses)
	assert.Equal(t, core.Cents(50000), snap.Net)
	assert.Equal(t, "Feb 2026", snap.Trend.Labels[len(snap.Trend.Labels)-1])

	require.Len(t, snap.Categories, 2)
	assert.Equal(t, "Food", snap.Categories[0].CategoryName)
	assert.Equal(t, "Housing", snap.Categories[1].CategoryName)
	assert.Equal(t, core.StatusOverBudget, snap.Categories[1].Status)

	// 40 + 30 savings points - 12 for the over-budget category.
	assert.Equal(t, 58, snap.HealthScore)
	assert.Equal(t, LabelNeedsAttention, snap.HealthLabel)

	again, err := svc.BuildSnapshot(ctx, feb)
	require.NoError(t, err)
	assert.Zero(t, again.Materialized)
	assert.Equal(t, snap.TotalExpenses, again.TotalExpenses)
}

func TestBuildSnapshot_MaterializationFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("Housing")
	mustIncome(t, mem, core.NewDate(2026, time.February, 1), 100000)
	mustExpense(t, mem, 1, core.NewDate(2026, time.February, 2), 40000)
	store := &faultyStore{Store: mem, listErr: ledger.Fail("list due recurring templates", errors.New("database is locked"))}

	build := func(strict bool) (core.DashboardSnapshot, error) {
		svc := NewDashboardService(
			NewMaterializer(store, nil, MaterializerOptions{}),
			NewAggregator(store),
			DashboardOptions{StrictRefresh: strict, Clock: fixedClock(core.NewDate(2026, time.February, 5))},
		)
		return svc.BuildSnapshot(ctx, core.NewMonth(2026, time.February))
	}

	t.Run("lenient builds from committed state", func(t *testing.T) {
		snap, err := build(false)
		require.NoError(t, err)
		assert.False(t, snap.Refreshed)
		assert.Zero(t, snap.Materialized)
		assert.Equal(t, core.Cents(40000), snap.TotalExpenses)
		assert.Equal(t, 76, snap.HealthScore)
	})

	t.Run("strict surfaces the error", func(t *testing.T) {
		_, err := build(true)
		require.Error(t, err)
		assert.ErrorIs(t, err, ledger.ErrStoreFailure)
	})
}

func TestBuildSnapshot_AggregationFailure(t *testing.T) {
	store := &faultyStore{Store: memory.New("Housing"), sumErr: ledger.Fail("sum income", errors.New("disk I/O error"))}
	svc := NewDashboardService(nil, NewAggregator(store), DashboardOptions{})

	_, err := svc.BuildSnapshot(context.Background(), core.NewMonth(2026, time.February))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrStoreFailure)
}

func TestBuildSnapshot_NoIncome(t *testing.T) {
	store := memory.New("Food")
	mustExpense(t, store, 1, core.NewDate(2026, time.March, 3), 99900)
	svc := NewDashboardService(nil, NewAggregator(store), DashboardOptions{})

	snap, err := svc.BuildSnapshot(context.Background(), core.NewMonth(2026, time.March))
	require.NoError(t, err)
	assert.Equal(t, 30, snap.HealthScore)
	assert.Equal(t, LabelHighRisk, snap.HealthLabel)
	assert.Equal(t, core.Cents(-99900), snap.Net)
}

func TestBuildSnapshot_OneStepPerTemplateEvenWithCatchUp(t *testing.T) {
	ctx := context.Background()
	store := memory.New("Housing")
	rent := mustTemplate(t, store, "Rent", 50000, core.Monthly, core.NewDate(2025, time.December, 1))

	svc := NewDashboardService(
		NewMaterializer(store, nil, MaterializerOptions{CatchUp: true}),
		NewAggregator(store),
		DashboardOptions{Clock: fixedClock(core.NewDate(2026, time.March, 15))},
	)

	snap, err := svc.BuildSnapshot(ctx, core.NewMonth(2026, time.March))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Materialized)
	assert.Len(t, allExpenses(t, store), 1)

	got, err := store.GetRecurringTemplate(ctx, rent.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", got.NextOccurrence.String())
}
