// Package worker runs background jobs on a schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetapp/internal/core"
	applog "budgetapp/internal/log"
)

// Materializer is the part of services.Materializer the worker drives.
type Materializer interface {
	MaterializeDue(ctx context.Context, asOf time.Time) (int, error)
}

// RecurringWorkerConfig holds configuration for the recurring worker
type RecurringWorkerConfig struct {
	// Interval is how often due templates are materialized (default: 1h)
	Interval time.Duration

	// Clock supplies the materialization date (default: time.Now)
	Clock func() time.Time
}

// DefaultRecurringWorkerConfig returns sensible defaults
func DefaultRecurringWorkerConfig() RecurringWorkerConfig {
	return RecurringWorkerConfig{
		Interval: time.Hour,
		Clock:    time.Now,
	}
}

// RecurringWorker periodically materializes due recurring templates. It runs
// once immediately on Start.
type RecurringWorker struct {
	materializer Materializer
	config       RecurringWorkerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRecurringWorker(m Materializer, config RecurringWorkerConfig) *RecurringWorker {
	defaults := DefaultRecurringWorkerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Clock == nil {
		config.Clock = defaults.Clock
	}
	return &RecurringWorker{materializer: m, config: config}
}

// Start begins the processing loop. Returns an error if already running.
func (w *RecurringWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("recurring worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Recurring worker started", "interval", w.config.Interval)
	return nil
}

// Stop signals the loop and waits for the in-flight run to finish.
func (w *RecurringWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Recurring worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recurring worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

func (w *RecurringWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce materializes everything due as of the worker's clock. The outcome
// is logged through the logger carried by ctx.
func (w *RecurringWorker) RunOnce(ctx context.Context) (int, error) {
	now := w.config.Clock()
	count, err := w.materializer.MaterializeDue(ctx, now)
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogMaterialization(ctx, core.DateOf(now).String(), count, err)
	if err != nil {
		return count, err
	}
	slog.DebugContext(ctx, "Next recurring check", "at", now.Add(w.config.Interval).Format("15:04:05"))
	return count, nil
}

func (w *RecurringWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	_, _ = w.RunOnce(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.RunOnce(ctx)
		}
	}
}
