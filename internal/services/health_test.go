package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"budgetapp/internal/core"
)

func rowsWith(over, near, ok int) []core.CategoryBudgetRow {
	var rows []core.CategoryBudgetRow
	for i := 0; i < over; i++ {
		rows = append(rows, core.CategoryBudgetRow{Status: core.StatusOverBudget})
	}
	for i := 0; i < near; i++ {
		rows = append(rows, core.CategoryBudgetRow{Status: core.StatusNearLimit})
	}
	for i := 0; i < ok; i++ {
		rows = append(rows, core.CategoryBudgetRow{Status: core.StatusOK})
	}
	return rows
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		income    int64
		expenses  int64
		rows      []core.CategoryBudgetRow
		wantScore int
		wantLabel string
	}{
		{"no income", 0, 0, nil, 30, LabelHighRisk},
		{"no income regardless of expenses", 0, 500000, rowsWith(3, 2, 0), 30, LabelHighRisk},
		{"negative income", -100, 0, nil, 30, LabelHighRisk},
		{"saves 60 percent", 100000, 40000, rowsWith(0, 0, 3), 76, LabelGood},
		{"saves everything", 100000, 0, nil, 100, LabelStrong},
		{"savings points cap at 60", 100000, 0, rowsWith(0, 0, 1), 100, LabelStrong},
		{"spends more than earned", 100000, 250000, nil, 40, LabelHighRisk},
		{"penalties", 100000, 40000, rowsWith(1, 1, 0), 58, LabelNeedsAttention},
		{"score floors at zero", 100000, 100000, rowsWith(5, 5, 0), 0, LabelHighRisk},
		{"exact thirds", 300000, 200000, nil, 60, LabelNeedsAttention},
		{"truncates savings points", 300000, 200001, nil, 59, LabelNeedsAttention},
		{"strong boundary", 100000, 25000, nil, 85, LabelStrong},
		{"just below strong", 100000, 25100, nil, 84, LabelGood},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, label := Score(core.Cents(tt.income), core.Cents(tt.expenses), tt.rows)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}

func TestScoreAlwaysInRange(t *testing.T) {
	amounts := []int64{-1000, 0, 1, 999, 100000, 5000000}
	for _, inc := range amounts {
		for _, exp := range amounts {
			for over := 0; over < 4; over++ {
				for near := 0; near < 4; near++ {
					score, label := Score(core.Cents(inc), core.Cents(exp), rowsWith(over, near, 1))
					assert.GreaterOrEqual(t, score, 0)
					assert.LessOrEqual(t, score, 100)
					assert.NotEmpty(t, label)
				}
			}
		}
	}
}

func TestHealthLabel(t *testing.T) {
	cases := map[int]string{
		100: LabelStrong, 85: LabelStrong,
		84: LabelGood, 70: LabelGood,
		69: LabelNeedsAttention, 50: LabelNeedsAttention,
		49: LabelHighRisk, 0: LabelHighRisk,
	}
	for score, want := range cases {
		assert.Equal(t, want, HealthLabel(score), "score %d", score)
	}
}
