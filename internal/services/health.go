package services

import "budgetapp/internal/core"

const (
	baseScore        = 40
	noIncomeScore    = 30
	maxSavingsPoints = 60
	overBudgetWeight = 12
	nearLimitWeight  = 6
)

const (
	LabelStrong         = "Strong"
	LabelGood           = "Good"
	LabelNeedsAttention = "Needs Attention"
	LabelHighRisk       = "High Risk"
)

// Score rates a month from 0 to 100. Savings rate earns up to 60 points on
// top of a base of 40; every over-budget category costs 12 and every
// near-limit one costs 6. A month without income scores 30.
func Score(totalIncome, totalExpenses core.Money, rows []core.CategoryBudgetRow) (int, string) {
	if totalIncome.Cents <= 0 {
		return noIncomeScore, HealthLabel(noIncomeScore)
	}

	// Integer math in cents keeps the truncation exact: a rate of 1/3 earns
	// 20 points, not 19.
	savingsPoints := clamp(int((totalIncome.Cents-totalExpenses.Cents)*maxSavingsPoints/totalIncome.Cents), 0, maxSavingsPoints)

	var over, near int
	for _, r := range rows {
		switch r.Status {
		case core.StatusOverBudget:
			over++
		case core.StatusNearLimit:
			near++
		}
	}

	score := clamp(baseScore+savingsPoints-over*overBudgetWeight-near*nearLimitWeight, 0, 100)
	return score, HealthLabel(score)
}

func HealthLabel(score int) string {
	switch {
	case score >= 85:
		return LabelStrong
	case score >= 70:
		return LabelGood
	case score >= 50:
		return LabelNeedsAttention
	default:
		return LabelHighRisk
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
