package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
)

// RecurringSuffix marks expenses generated from a recurring template.
const RecurringSuffix = " (Recurring)"

// MaxTemplateNameLength leaves room for RecurringSuffix so every generated
// expense name passes Expense.Validate.
const MaxTemplateNameLength = maxNameLength - len(RecurringSuffix)

const (
	maxNameLength    = 120
	maxTemplateCents = 500000_00
	maxBudgetCents   = 50000_00
	maxIncomeCents   = 10000000_00
)

type (
	Interval string

	Category struct {
		ID   int64
		Name string
	}

	Expense struct {
		ID         int64
		Name       string
		Amount     Money
		Date       Date
		CategoryID int64
	}

	Income struct {
		ID     int64
		Source string
		Amount Money
		Date   Date
	}

	Budget struct {
		ID         int64
		Month      Month
		Amount     Money
		CategoryID int64
	}

	// RecurringTemplate is the pattern concrete expenses are generated from.
	// EndDate is optional; the zero Date means "no end".
	RecurringTemplate struct {
		ID             int64
		Name           string
		Amount         Money
		Interval       Interval
		NextOccurrence Date
		EndDate        Date
		Active         bool
		CategoryID     int64
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrNameTooLong      = fmt.Errorf("name too long (max %d characters)", maxNameLength)
	ErrMissingCategory  = errors.New("missing category")
	ErrUnknownInterval  = errors.New("unknown recurrence interval")
	ErrEndBeforeNext    = errors.New("end date must not be before next occurrence")
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// ParseInterval maps user input to a known interval. Unknown values are
// rejected rather than defaulted.
func ParseInterval(s string) (Interval, error) {
	i := Interval(strings.ToLower(strings.TrimSpace(s)))
	if !i.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownInterval, s)
	}
	return i, nil
}

func (i Interval) IsValid() bool {
	switch i {
	case Weekly, Monthly:
		return true
	default:
		return false
	}
}

func (i Interval) String() string { return string(i) }

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (c Category) Validate() error {
	return validateName(c.Name)
}

func (e Expense) Validate() error {
	if err := validateName(e.Name); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.CategoryID <= 0 {
		return ErrMissingCategory
	}
	return nil
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptyName
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if i.Amount.Cents > maxIncomeCents {
		return ErrAmountOutOfRange
	}
	return i.Date.Validate()
}

func (b Budget) Validate() error {
	if b.Month.IsZero() {
		return errors.New("budget month cannot be zero")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.Amount.Cents > maxBudgetCents {
		return ErrAmountOutOfRange
	}
	if b.CategoryID <= 0 {
		return ErrMissingCategory
	}
	return nil
}

// Validate is the boundary check for templates. The materializer relies on
// it having run, but still refuses unknown intervals on its own.
func (t RecurringTemplate) Validate() error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	if len(t.Name) > MaxTemplateNameLength {
		return fmt.Errorf("%w: template names are limited to %d characters", ErrNameTooLong, MaxTemplateNameLength)
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Amount.Cents > maxTemplateCents {
		return ErrAmountOutOfRange
	}
	if !t.Interval.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownInterval, t.Interval)
	}
	if err := t.NextOccurrence.Validate(); err != nil {
		return fmt.Errorf("invalid next occurrence: %w", err)
	}
	if !t.EndDate.IsZero() && t.EndDate.Before(t.NextOccurrence) {
		return ErrEndBeforeNext
	}
	if t.CategoryID <= 0 {
		return ErrMissingCategory
	}
	return nil
}

// IsDue reports whether the template should produce an expense on asOf.
func (t RecurringTemplate) IsDue(asOf Date) bool {
	if !t.Active {
		return false
	}
	if t.NextOccurrence.After(asOf) {
		return false
	}
	return t.EndDate.IsZero() || !t.EndDate.Before(asOf)
}

// ExpenseName is the name given to expenses generated from the template.
// Names stored before the template limit existed are cut at a rune boundary
// so the result still fits an expense name.
func (t RecurringTemplate) ExpenseName() string {
	name := t.Name
	if len(name) > MaxTemplateNameLength {
		name = name[:MaxTemplateNameLength]
		for !utf8.ValidString(name) {
			name = name[:len(name)-1]
		}
	}
	return name + RecurringSuffix
}
