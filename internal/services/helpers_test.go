package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"budgetapp/internal/core"
	"budgetapp/internal/ledger"
	"budgetapp/internal/ledger/memory"
)

// faultyStore wraps a real store and injects failures.
type faultyStore struct {
	ledger.Store

	mu       sync.Mutex
	listErr  error
	sumErr   error
	saveErrs []error // consumed one per SaveMaterializationBatch call
	saves    int
	extra    []core.RecurringTemplate
	// names overrides the stored name of listed templates, standing in for
	// rows written before the current validation rules.
	names map[int64]string
}

func (f *faultyStore) ListDueRecurringTemplates(ctx context.Context, asOf time.Time) ([]core.RecurringTemplate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out, err := f.Store.ListDueRecurringTemplates(ctx, asOf)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if name, ok := f.names[out[i].ID]; ok {
			out[i].Name = name
		}
	}
	return append(out, f.extra...), nil
}

func (f *faultyStore) SaveMaterializationBatch(ctx context.Context, batch ledger.MaterializationBatch) error {
	f.mu.Lock()
	f.saves++
	var err error
	if len(f.saveErrs) > 0 {
		err = f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.SaveMaterializationBatch(ctx, batch)
}

func (f *faultyStore) SumAmount(ctx context.Context, kind ledger.EntryKind, r core.DateRange, categoryID *int64) (core.Money, error) {
	if f.sumErr != nil {
		return core.Zero, f.sumErr
	}
	return f.Store.SumAmount(ctx, kind, r, categoryID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []core.Expense
}

func (p *recordingPublisher) PublishExpenseMaterialized(_ context.Context, _ int64, e core.Expense) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func mustTemplate(t *testing.T, s *memory.Store, name string, cents int64, interval core.Interval, next core.Date) core.RecurringTemplate {
	t.Helper()
	tmpl, err := s.CreateRecurringTemplate(context.Background(), core.RecurringTemplate{
		Name:           name,
		Amount:         core.Cents(cents),
		Interval:       interval,
		NextOccurrence: next,
		Active:         true,
		CategoryID:     1,
	})
	require.NoError(t, err)
	return tmpl
}

func mustExpense(t *testing.T, s *memory.Store, cat int64, d core.Date, cents int64) {
	t.Helper()
	_, err := s.CreateExpense(context.Background(), core.Expense{Name: "expense", Amount: core.Cents(cents), Date: d, CategoryID: cat})
	require.NoError(t, err)
}

func mustIncome(t *testing.T, s *memory.Store, d core.Date, cents int64) {
	t.Helper()
	_, err := s.CreateIncome(context.Background(), core.Income{Source: "Salary", Amount: core.Cents(cents), Date: d})
	require.NoError(t, err)
}

func allExpenses(t *testing.T, s *memory.Store) []core.Expense {
	t.Helper()
	out, err := s.ListExpenses(context.Background(), ledger.ExpenseFilter{})
	require.NoError(t, err)
	return out
}

func noon(d core.Date) time.Time {
	return d.Add(12 * time.Hour)
}
