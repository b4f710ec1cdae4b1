// Package memory is an in-process ledger used for development, the CLI's
// memory backend and tests. State is lost on exit.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"budgetapp/internal/core"
	"budgetapp/internal/ledger"
)

type budgetKey struct {
	categoryID int64
	month      core.Month
}

type Store struct {
	mu sync.RWMutex

	nextID     int64
	categories map[int64]core.Category
	expenses   []core.Expense
	incomes    []core.Income
	budgets    map[budgetKey]core.Budget
	templates  map[int64]core.RecurringTemplate
}

var _ ledger.Repository = (*Store)(nil)

func New(categories ...string) *Store {
	s := &Store{
		categories: make(map[int64]core.Category),
		budgets:    make(map[budgetKey]core.Budget),
		templates:  make(map[int64]core.RecurringTemplate),
	}
	for _, name := range dedupe(categories) {
		s.nextID++
		s.categories[s.nextID] = core.Category{ID: s.nextID, Name: name}
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt, one per line.
// Blank lines and lines starting with # are skipped.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = []string{"Groceries", "Housing", "Transport"}
	}
	return New(cats...)
}

func (s *Store) Close() error { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) requireCategory(id int64) error {
	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, ledger.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Name == c.Name {
			return core.Category{}, ledger.ErrDuplicateCategory
		}
	}
	c.ID = s.id()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCategory(e.CategoryID); err != nil {
		return core.Expense{}, err
	}
	e.ID = s.id()
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) CreateIncome(_ context.Context, i core.Income) (core.Income, error) {
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = s.id()
	s.incomes = append(s.incomes, i)
	return i, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCategory(b.CategoryID); err != nil {
		return core.Budget{}, err
	}
	key := budgetKey{categoryID: b.CategoryID, month: b.Month}
	if _, ok := s.budgets[key]; ok {
		return core.Budget{}, ledger.ErrDuplicateBudget
	}
	b.ID = s.id()
	s.budgets[key] = b
	return b, nil
}

func (s *Store) CreateRecurringTemplate(_ context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	if err := t.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireCategory(t.CategoryID); err != nil {
		return core.RecurringTemplate{}, err
	}
	t.ID = s.id()
	s.templates[t.ID] = t
	return t, nil
}

func (s *Store) GetRecurringTemplate(_ context.Context, id int64) (core.RecurringTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return core.RecurringTemplate{}, fmt.Errorf("recurring template %d: %w", id, ledger.ErrNotFound)
	}
	return t, nil
}

func (s *Store) SetRecurringTemplateActive(_ context.Context, id int64, active bool) (core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return core.RecurringTemplate{}, fmt.Errorf("recurring template %d: %w", id, ledger.ErrNotFound)
	}
	t.Active = active
	s.templates[id] = t
	return t, nil
}

func (s *Store) ListRecurringTemplates(_ context.Context) ([]core.RecurringTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RecurringTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListExpenses returns matching expenses, newest first.
func (s *Store) ListExpenses(_ context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ListBudgets(_ context.Context, month core.Month) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Budget
	for k, b := range s.budgets {
		if k.month == month {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (s *Store) ListDueRecurringTemplates(_ context.Context, asOf time.Time) ([]core.RecurringTemplate, error) {
	day := core.DateOf(asOf)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.RecurringTemplate
	for _, t := range s.templates {
		if t.IsDue(day) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveMaterializationBatch checks every advance and expense before touching
// state, so a rejected batch leaves the store unchanged.
func (s *Store) SaveMaterializationBatch(_ context.Context, batch ledger.MaterializationBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]struct{}, len(batch.Advances))
	for _, a := range batch.Advances {
		t, ok := s.templates[a.TemplateID]
		if !ok {
			return fmt.Errorf("recurring template %d: %w", a.TemplateID, ledger.ErrNotFound)
		}
		if _, dup := seen[a.TemplateID]; dup || !t.NextOccurrence.Equal(a.From) {
			return fmt.Errorf("recurring template %d: %w", a.TemplateID, ledger.ErrConcurrentModification)
		}
		seen[a.TemplateID] = struct{}{}
	}
	for _, e := range batch.Expenses {
		if err := e.Validate(); err != nil {
			return err
		}
		if err := s.requireCategory(e.CategoryID); err != nil {
			return err
		}
	}

	for _, e := range batch.Expenses {
		e.ID = s.id()
		s.expenses = append(s.expenses, e)
	}
	for _, a := range batch.Advances {
		t := s.templates[a.TemplateID]
		t.NextOccurrence = a.To
		s.templates[a.TemplateID] = t
	}
	return nil
}

func (s *Store) SumAmount(_ context.Context, kind ledger.EntryKind, r core.DateRange, categoryID *int64) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := core.Zero
	switch kind {
	case ledger.KindExpense:
		for _, e := range s.expenses {
			if !r.Contains(e.Date) {
				continue
			}
			if categoryID != nil && e.CategoryID != *categoryID {
				continue
			}
			total = total.Add(e.Amount)
		}
	case ledger.KindIncome:
		for _, i := range s.incomes {
			if r.Contains(i.Date) {
				total = total.Add(i.Amount)
			}
		}
	default:
		return core.Zero, fmt.Errorf("sum amount: unknown entry kind %d", kind)
	}
	return total, nil
}

func (s *Store) FindBudget(_ context.Context, categoryID int64, month core.Month) (core.Budget, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[budgetKey{categoryID: categoryID, month: month}]
	return b, ok, nil
}

func (s *Store) ListCategoriesOrderedByName(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if li != lj {
			return li < lj
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe trims and drops empty and repeated names, keeping input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
