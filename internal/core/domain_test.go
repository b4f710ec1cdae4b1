package core

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTemplate() RecurringTemplate {
	return RecurringTemplate{
		Name:           "Rent",
		Amount:         Cents(120000),
		Interval:       Monthly,
		NextOccurrence: NewDate(2026, time.January, 31),
		Active:         true,
		CategoryID:     1,
	}
}

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in   string
		want Interval
		ok   bool
	}{
		{"weekly", Weekly, true},
		{" Monthly ", Monthly, true},
		{"yearly", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseInterval(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			assert.ErrorIs(t, err, ErrUnknownInterval, tc.in)
		}
	}
}

func TestRecurringTemplateValidate(t *testing.T) {
	require.NoError(t, validTemplate().Validate())

	tests := []struct {
		name   string
		mutate func(*RecurringTemplate)
		want   error
	}{
		{"empty name", func(r *RecurringTemplate) { r.Name = "  " }, ErrEmptyName},
		{"long name", func(r *RecurringTemplate) { r.Name = strings.Repeat("x", 121) }, ErrNameTooLong},
		{"no room for suffix", func(r *RecurringTemplate) { r.Name = strings.Repeat("x", MaxTemplateNameLength+1) }, ErrNameTooLong},
		{"zero amount", func(r *RecurringTemplate) { r.Amount = Zero }, ErrInvalidAmount},
		{"amount too large", func(r *RecurringTemplate) { r.Amount = Cents(500000_01) }, ErrAmountOutOfRange},
		{"unknown interval", func(r *RecurringTemplate) { r.Interval = "yearly" }, ErrUnknownInterval},
		{"zero next occurrence", func(r *RecurringTemplate) { r.NextOccurrence = Date{} }, ErrInvalidDate},
		{"end before next", func(r *RecurringTemplate) { r.EndDate = NewDate(2026, time.January, 1) }, ErrEndBeforeNext},
		{"no category", func(r *RecurringTemplate) { r.CategoryID = 0 }, ErrMissingCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := validTemplate()
			tt.mutate(&tmpl)
			err := tmpl.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestRecurringTemplateExpenseName(t *testing.T) {
	tmpl := validTemplate()
	tmpl.Name = strings.Repeat("x", MaxTemplateNameLength)
	require.NoError(t, tmpl.Validate())
	assert.Equal(t, tmpl.Name+RecurringSuffix, tmpl.ExpenseName())

	// a name stored before the template limit still yields a valid expense
	tmpl.Name = strings.Repeat("é", 60)
	name := tmpl.ExpenseName()
	assert.LessOrEqual(t, len(name), 120)
	assert.True(t, strings.HasSuffix(name, RecurringSuffix))
	assert.True(t, utf8.ValidString(name))
	assert.NoError(t, Expense{Name: name, Amount: Cents(1), Date: NewDate(2026, time.January, 1), CategoryID: 1}.Validate())
}

func TestRecurringTemplateIsDue(t *testing.T) {
	asOf := NewDate(2026, time.March, 10)

	tests := []struct {
		name   string
		mutate func(*RecurringTemplate)
		want   bool
	}{
		{"next occurrence in the past", func(r *RecurringTemplate) {}, true},
		{"next occurrence today", func(r *RecurringTemplate) { r.NextOccurrence = asOf }, true},
		{"next occurrence tomorrow", func(r *RecurringTemplate) { r.NextOccurrence = asOf.AddDays(1) }, false},
		{"inactive", func(r *RecurringTemplate) { r.Active = false }, false},
		{"ended yesterday", func(r *RecurringTemplate) { r.EndDate = asOf.AddDays(-1) }, false},
		{"ends today", func(r *RecurringTemplate) { r.EndDate = asOf }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := validTemplate()
			tt.mutate(&tmpl)
			assert.Equal(t, tt.want, tmpl.IsDue(asOf))
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{Name: "Groceries", Amount: Cents(4250), Date: NewDate(2026, time.February, 3), CategoryID: 2}
	require.NoError(t, good.Validate())

	bads := []Expense{
		{Name: "", Amount: Cents(1), Date: NewDate(2026, 1, 1), CategoryID: 1},
		{Name: "a", Amount: Cents(0), Date: NewDate(2026, 1, 1), CategoryID: 1},
		{Name: "a", Amount: Cents(1), CategoryID: 1},
		{Name: "a", Amount: Cents(1), Date: NewDate(2026, 1, 1)},
	}
	for i, e := range bads {
		assert.Error(t, e.Validate(), "case %d", i)
	}
}

func TestBudgetAndIncomeValidate(t *testing.T) {
	month := NewMonth(2026, time.February)
	assert.NoError(t, Budget{Month: month, Amount: Cents(50000), CategoryID: 1}.Validate())
	assert.Error(t, Budget{Amount: Cents(50000), CategoryID: 1}.Validate())
	assert.ErrorIs(t, Budget{Month: month, Amount: Cents(50000_01), CategoryID: 1}.Validate(), ErrAmountOutOfRange)

	assert.NoError(t, Income{Source: "Salary", Amount: Cents(300000), Date: NewDate(2026, 2, 1)}.Validate())
	assert.ErrorIs(t, Income{Source: " ", Amount: Cents(1), Date: NewDate(2026, 2, 1)}.Validate(), ErrEmptyName)
}
