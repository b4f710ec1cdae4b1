package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetapp/internal/core"
	"budgetapp/internal/ledger"
	applog "budgetapp/internal/log"
)

const (
	DefaultMaxRetries       = 3
	DefaultMaxCatchUpRounds = 24
)

// Publisher is notified of every expense a committed batch created.
type Publisher interface {
	PublishExpenseMaterialized(ctx context.Context, templateID int64, e core.Expense) error
}

type MaterializerOptions struct {
	// MaxRetries bounds the attempts made when a batch loses a race with a
	// concurrent materializer.
	MaxRetries int
	// CatchUp keeps materializing until nothing is due, one interval step per
	// round, for at most MaxCatchUpRounds rounds.
	CatchUp          bool
	MaxCatchUpRounds int
}

// Materializer turns due recurring templates into concrete expenses.
type Materializer struct {
	store     ledger.Store
	publisher Publisher
	opts      MaterializerOptions
}

// NewMaterializer creates a materializer. publisher may be nil.
func NewMaterializer(store ledger.Store, publisher Publisher, opts MaterializerOptions) *Materializer {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.MaxCatchUpRounds <= 0 {
		opts.MaxCatchUpRounds = DefaultMaxCatchUpRounds
	}
	return &Materializer{store: store, publisher: publisher, opts: opts}
}

// MaterializeDue creates one expense for every template due on asOf's
// calendar day and advances each template by exactly one interval step, all
// in one atomic batch. It returns how many expenses were created.
//
// With CatchUp enabled the pass repeats while templates remain due, so a
// template several periods behind is brought up to date in one call.
func (m *Materializer) MaterializeDue(ctx context.Context, asOf time.Time) (int, error) {
	if m.store == nil {
		return 0, fmt.Errorf("materializer not properly initialized")
	}

	rounds := 1
	if m.opts.CatchUp {
		rounds = m.opts.MaxCatchUpRounds
	}

	total := 0
	for round := 0; round < rounds; round++ {
		n, err := m.materializeOnce(ctx, asOf)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// MaterializePass runs exactly one pass regardless of CatchUp: at most one
// expense and one interval step per due template.
func (m *Materializer) MaterializePass(ctx context.Context, asOf time.Time) (int, error) {
	if m.store == nil {
		return 0, fmt.Errorf("materializer not properly initialized")
	}
	return m.materializeOnce(ctx, asOf)
}

func (m *Materializer) materializeOnce(ctx context.Context, asOf time.Time) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= m.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		batch, sources, err := m.plan(ctx, asOf)
		if err != nil {
			return 0, err
		}
		if batch.IsEmpty() {
			return 0, nil
		}

		err = m.store.SaveMaterializationBatch(ctx, batch)
		if err == nil {
			slog.InfoContext(ctx, "Materialized recurring expenses",
				"count", len(batch.Expenses),
				"as_of", core.DateOf(asOf).String(),
				"attempt", attempt)
			m.publish(ctx, sources, batch.Expenses)
			return len(batch.Expenses), nil
		}
		if !ledger.IsRetryable(err) {
			return 0, fmt.Errorf("save materialization batch: %w", err)
		}

		lastErr = err
		slog.WarnContext(ctx, "Materialization batch conflicted, re-reading templates",
			"attempt", attempt,
			"max_retries", m.opts.MaxRetries,
			"error", err)
	}
	return 0, fmt.Errorf("materialize after %d attempts: %w", m.opts.MaxRetries, lastErr)
}

// plan reads due templates and builds the batch. An unknown interval aborts
// the whole pass before anything is written.
func (m *Materializer) plan(ctx context.Context, asOf time.Time) (ledger.MaterializationBatch, []int64, error) {
	templates, err := m.store.ListDueRecurringTemplates(ctx, asOf)
	if err != nil {
		return ledger.MaterializationBatch{}, nil, fmt.Errorf("list due recurring templates: %w", err)
	}

	var (
		batch   ledger.MaterializationBatch
		sources = make([]int64, 0, len(templates))
	)
	for _, t := range templates {
		stepper, err := GetIntervalStepper(t.Interval)
		if err != nil {
			slog.ErrorContext(ctx, "Recurring template has unknown interval",
				"template_id", t.ID,
				"interval", string(t.Interval))
			return ledger.MaterializationBatch{}, nil, fmt.Errorf("template %d: %w", t.ID, err)
		}

		batch.Expenses = append(batch.Expenses, core.Expense{
			Name:       t.ExpenseName(),
			Amount:     t.Amount,
			Date:       t.NextOccurrence,
			CategoryID: t.CategoryID,
		})
		batch.Advances = append(batch.Advances, ledger.TemplateAdvance{
			TemplateID: t.ID,
			From:       t.NextOccurrence,
			To:         stepper.Next(t.NextOccurrence),
		})
		sources = append(sources, t.ID)
	}
	return batch, sources, nil
}

func (m *Materializer) publish(ctx context.Context, sources []int64, expenses []core.Expense) {
	if m.publisher == nil {
		return
	}
	// The expenses are committed; notification is best effort.
	sl := applog.NewStructuredLogger(applog.FromContext(ctx))
	for i, e := range expenses {
		if err := m.publisher.PublishExpenseMaterialized(ctx, sources[i], e); err != nil {
			sl.LogError(ctx, "Failed to publish materialized expense", err,
				applog.ComponentRecurring, applog.OpPublish,
				applog.NewFields().WithTemplate(sources[i], e.Amount.Cents))
		}
	}
}
