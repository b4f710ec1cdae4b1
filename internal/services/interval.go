// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for advancing recurring templates.
// Each interval has its own stepper that computes the occurrence after a given
// date.
package services

import (
	"fmt"
	"sync"

	"budgetapp/internal/core"
)

// IntervalStepper computes the next occurrence of a recurring template.
type IntervalStepper interface {
	Next(from core.Date) core.Date
}

// WeeklyStepper advances by seven days.
type WeeklyStepper struct{}

func (WeeklyStepper) Next(from core.Date) core.Date { return from.AddDays(7) }

// MonthlyStepper advances by one calendar month. A day past the end of the
// target month clamps to its last day, so Jan 31 becomes Feb 28 (or 29).
type MonthlyStepper struct{}

func (MonthlyStepper) Next(from core.Date) core.Date { return from.AddMonthsClamped(1) }

var (
	steppersMu sync.RWMutex
	steppers   = map[core.Interval]IntervalStepper{
		core.Weekly:  WeeklyStepper{},
		core.Monthly: MonthlyStepper{},
	}
)

// GetIntervalStepper returns the stepper for an interval, or an error wrapping
// core.ErrUnknownInterval.
func GetIntervalStepper(interval core.Interval) (IntervalStepper, error) {
	steppersMu.RLock()
	defer steppersMu.RUnlock()
	s, ok := steppers[interval]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownInterval, interval)
	}
	return s, nil
}

// RegisterIntervalStepper installs a stepper for an interval, replacing any
// existing one.
func RegisterIntervalStepper(interval core.Interval, s IntervalStepper) {
	steppersMu.Lock()
	defer steppersMu.Unlock()
	steppers[interval] = s
}
