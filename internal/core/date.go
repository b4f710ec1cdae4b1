package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
	labelLayout = "Jan 2006"
)

var ErrInvalidDate = errors.New("invalid date")

type (
	// Date is a calendar day at UTC midnight.
	Date struct {
		time.Time
	}

	// Month is a calendar month with no day or time component.
	Month struct {
		year  int
		month time.Month
	}

	// DateRange is the half-open interval [From, To).
	DateRange struct {
		From Date
		To   Date
	}
)

// NewDate creates a new Date from year, month, day. Out of range values
// normalize the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day, keeping the calendar day as seen in t's
// location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

func (d Date) AddDays(n int) Date { return NewDate(d.Year(), d.Month(), d.Day()+n) }

// AddMonthsClamped moves d by n calendar months. When the target month is
// shorter than d's day of month the result is the target month's last day,
// so Jan 31 + 1 month is Feb 28 (Feb 29 in leap years), never March.
func (d Date) AddMonthsClamped(n int) Date {
	target := MonthOf(d.Time).AddMonths(n)
	day := d.Day()
	if last := target.Days(); day > last {
		day = last
	}
	return NewDate(target.year, target.month, day)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalJSON overrides the promoted time.Time encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	return d.UnmarshalText([]byte(s))
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewMonth builds a Month, normalizing out-of-range months into the
// neighbouring years.
func NewMonth(year int, month time.Month) Month {
	return MonthOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{year: t.Year(), month: t.Month()}
}

// ParseMonth parses a YYYY-MM string, the format month pickers send.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: month %q", ErrInvalidDate, s)
	}
	return MonthOf(t), nil
}

func (m Month) Year() int          { return m.year }
func (m Month) Month() time.Month  { return m.month }
func (m Month) IsZero() bool       { return m.year == 0 && m.month == 0 }
func (m Month) Equal(o Month) bool { return m == o }

// Start is the first day of the month.
func (m Month) Start() Date { return NewDate(m.year, m.month, 1) }

// End is the first day of the following month, the exclusive bound of the
// month's range.
func (m Month) End() Date { return m.AddMonths(1).Start() }

func (m Month) Range() DateRange { return DateRange{From: m.Start(), To: m.End()} }

func (m Month) AddMonths(n int) Month { return NewMonth(m.year, m.month+time.Month(n)) }

// Days is the number of days in the month.
func (m Month) Days() int {
	return NewDate(m.year, m.month+1, 0).Day()
}

// Label is the short chart label, e.g. "Feb 2026".
func (m Month) Label() string { return m.Start().Format(labelLayout) }

func (m Month) String() string { return m.Start().Format(MonthLayout) }

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Contains reports whether d is in [From, To).
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && d.Before(r.To)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.From, r.To)
}
