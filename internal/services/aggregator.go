package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"budgetapp/internal/core"
	"budgetapp/internal/ledger"
)

// TrendMonths is the length of the trend series, ending at the selected month.
const TrendMonths = 6

const maxConcurrentQueries = 4

var (
	hundred        = decimal.NewFromInt(100)
	nearLimitRatio = decimal.RequireFromString("0.85")
)

// MonthlyAggregate is everything computed for one month, before scoring.
type MonthlyAggregate struct {
	Month         core.Month
	TotalIncome   core.Money
	TotalExpenses core.Money
	Net           core.Money
	Trend         core.Trend
	Categories    []core.CategoryBudgetRow
}

// Aggregator computes monthly totals, the trend series and budget rows. It
// holds no state between calls.
type Aggregator struct {
	store ledger.Store
}

func NewAggregator(store ledger.Store) *Aggregator {
	return &Aggregator{store: store}
}

func (a *Aggregator) Aggregate(ctx context.Context, month core.Month) (MonthlyAggregate, error) {
	trend, err := a.trend(ctx, month)
	if err != nil {
		return MonthlyAggregate{}, err
	}

	rows, err := a.budgetRows(ctx, month)
	if err != nil {
		return MonthlyAggregate{}, err
	}

	// The last trend slot is the selected month itself.
	income := trend.Income[TrendMonths-1]
	expenses := trend.Expenses[TrendMonths-1]

	return MonthlyAggregate{
		Month:         month,
		TotalIncome:   income,
		TotalExpenses: expenses,
		Net:           income.Sub(expenses),
		Trend:         trend,
		Categories:    rows,
	}, nil
}

// trend queries month-5 .. month concurrently. Each goroutine writes only its
// own index, so ordering never depends on completion order.
func (a *Aggregator) trend(ctx context.Context, month core.Month) (core.Trend, error) {
	t := core.Trend{
		Labels:   make([]string, TrendMonths),
		Income:   make([]core.Money, TrendMonths),
		Expenses: make([]core.Money, TrendMonths),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)
	for i := 0; i < TrendMonths; i++ {
		m := month.AddMonths(i - (TrendMonths - 1))
		t.Labels[i] = m.Label()
		g.Go(func() error {
			inc, err := a.store.SumAmount(gctx, ledger.KindIncome, m.Range(), nil)
			if err != nil {
				return fmt.Errorf("sum income for %s: %w", m, err)
			}
			exp, err := a.store.SumAmount(gctx, ledger.KindExpense, m.Range(), nil)
			if err != nil {
				return fmt.Errorf("sum expenses for %s: %w", m, err)
			}
			t.Income[i] = inc
			t.Expenses[i] = exp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Trend{}, err
	}
	return t, nil
}

func (a *Aggregator) budgetRows(ctx context.Context, month core.Month) ([]core.CategoryBudgetRow, error) {
	cats, err := a.store.ListCategoriesOrderedByName(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	rows := make([]core.CategoryBudgetRow, len(cats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)
	for i, c := range cats {
		g.Go(func() error {
			budget := core.Zero
			b, ok, err := a.store.FindBudget(gctx, c.ID, month)
			if err != nil {
				return fmt.Errorf("find budget for category %d: %w", c.ID, err)
			}
			if ok {
				budget = b.Amount
			}
			spent, err := a.store.SumAmount(gctx, ledger.KindExpense, month.Range(), &c.ID)
			if err != nil {
				return fmt.Errorf("sum expenses for category %d: %w", c.ID, err)
			}
			rows[i] = BudgetRow(c.Name, budget, spent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// BudgetRow classifies spending against a budget. A category without a
// budget is always OK at 0%.
func BudgetRow(name string, budget, spent core.Money) core.CategoryBudgetRow {
	return core.CategoryBudgetRow{
		CategoryName: name,
		Budget:       budget,
		Spent:        spent,
		PercentUsed:  PercentUsed(budget, spent),
		Status:       Status(budget, spent),
	}
}

// PercentUsed is spent/budget as a percentage in [0, 100], two decimals.
func PercentUsed(budget, spent core.Money) decimal.Decimal {
	if budget.Cents <= 0 {
		return decimal.Zero
	}
	pct := spent.Decimal().Div(budget.Decimal()).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	return pct.Round(2)
}

func Status(budget, spent core.Money) core.BudgetStatus {
	if budget.Cents <= 0 {
		return core.StatusOK
	}
	switch {
	case spent.Cents >= budget.Cents:
		return core.StatusOverBudget
	case spent.Decimal().GreaterThanOrEqual(budget.Decimal().Mul(nearLimitRatio)):
		return core.StatusNearLimit
	default:
		return core.StatusOK
	}
}
