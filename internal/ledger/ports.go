// Package ledger defines the persistence ports the engine depends on.
//
// The engine only reads ranged sums, budgets and categories, and writes
// materialization batches atomically. Everything else about storage is the
// implementation's business.
package ledger

import (
	"context"
	"strings"
	"time"

	"budgetapp/internal/core"
)

const (
	KindExpense EntryKind = iota + 1
	KindIncome
)

// EntryKind selects the table SumAmount aggregates over.
type EntryKind int

func (k EntryKind) String() string {
	switch k {
	case KindExpense:
		return "expense"
	case KindIncome:
		return "income"
	default:
		return "unknown"
	}
}

// TemplateAdvance moves one template's next occurrence from From to To.
// From is the value the materializer read; stores apply the advance only if
// the committed value still equals From.
type TemplateAdvance struct {
	TemplateID int64
	From       core.Date
	To         core.Date
}

// MaterializationBatch is committed as one unit: every expense and every
// advance, or nothing.
type MaterializationBatch struct {
	Expenses []core.Expense
	Advances []TemplateAdvance
}

func (b MaterializationBatch) IsEmpty() bool {
	return len(b.Expenses) == 0 && len(b.Advances) == 0
}

// ExpenseFilter selects expenses for listing. Zero fields don't filter.
// From and To are inclusive days; Min and Max are inclusive amounts; Search
// matches a case-insensitive substring of the name.
type ExpenseFilter struct {
	From       core.Date
	To         core.Date
	CategoryID int64
	Min        core.Money
	Max        core.Money
	Search     string
}

// ExpensesIn selects every expense in the half-open range r.
func ExpensesIn(r core.DateRange) ExpenseFilter {
	return ExpenseFilter{From: r.From, To: r.To.AddDays(-1)}
}

func (f ExpenseFilter) Matches(e core.Expense) bool {
	switch {
	case !f.From.IsZero() && e.Date.Before(f.From):
		return false
	case !f.To.IsZero() && e.Date.After(f.To):
		return false
	case f.CategoryID > 0 && e.CategoryID != f.CategoryID:
		return false
	case f.Min.IsPositive() && e.Amount.Cents < f.Min.Cents:
		return false
	case f.Max.IsPositive() && e.Amount.Cents > f.Max.Cents:
		return false
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	return search == "" || strings.Contains(strings.ToLower(e.Name), search)
}

// Ports for the aggregation engine.
type (
	Store interface {
		// ListDueRecurringTemplates returns active templates whose next
		// occurrence is on or before asOf and whose end date, if any, is on or
		// after asOf. Only the calendar day of asOf is considered.
		ListDueRecurringTemplates(ctx context.Context, asOf time.Time) ([]core.RecurringTemplate, error)

		// SaveMaterializationBatch commits the batch atomically. It returns
		// ErrConcurrentModification when any advance lost a race.
		SaveMaterializationBatch(ctx context.Context, batch MaterializationBatch) error

		// SumAmount sums amounts with dates in the half-open range r. A nil
		// categoryID means all categories; it is ignored for income.
		SumAmount(ctx context.Context, kind EntryKind, r core.DateRange, categoryID *int64) (core.Money, error)

		// FindBudget returns the budget for (categoryID, month), if any.
		FindBudget(ctx context.Context, categoryID int64, month core.Month) (core.Budget, bool, error)

		// ListCategoriesOrderedByName orders case-insensitively, ties broken
		// by the exact name then ID.
		ListCategoriesOrderedByName(ctx context.Context) ([]core.Category, error)
	}

	// Writer covers the record creation the engine's callers need. Form
	// handling lives outside the engine; these are the boundary checks.
	Writer interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		CreateIncome(ctx context.Context, i core.Income) (core.Income, error)
		// CreateBudget returns ErrDuplicateBudget when (category, month) is
		// already budgeted.
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		// CreateRecurringTemplate rejects invalid templates, including unknown
		// intervals, before anything is written.
		CreateRecurringTemplate(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error)
		// SetRecurringTemplateActive is the soft stop: an inactive template is
		// never due and keeps its schedule for when it is reactivated.
		SetRecurringTemplateActive(ctx context.Context, id int64, active bool) (core.RecurringTemplate, error)
	}

	Reader interface {
		GetRecurringTemplate(ctx context.Context, id int64) (core.RecurringTemplate, error)
		// ListRecurringTemplates returns every template, active or not, by ID.
		ListRecurringTemplates(ctx context.Context) ([]core.RecurringTemplate, error)
		// ListExpenses returns matching expenses, newest first.
		ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error)
		// ListBudgets returns the month's budgets ordered by category ID.
		ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error)
	}

	// Repository is everything a concrete backend provides.
	Repository interface {
		Store
		Writer
		Reader
		Close() error
	}
)
