package core

import "github.com/shopspring/decimal"

const (
	StatusOK         BudgetStatus = "OK"
	StatusNearLimit  BudgetStatus = "NearLimit"
	StatusOverBudget BudgetStatus = "OverBudget"
)

type BudgetStatus string

// CategoryBudgetRow compares one category's budget with its spending for a
// month. PercentUsed is always within [0, 100].
type CategoryBudgetRow struct {
	CategoryName string          `json:"category"`
	Budget       Money           `json:"budget"`
	Spent        Money           `json:"spent"`
	PercentUsed  decimal.Decimal `json:"percent_used"`
	Status       BudgetStatus    `json:"status"`
}

// Trend holds parallel series, oldest month first.
type Trend struct {
	Labels   []string `json:"labels"`
	Income   []Money  `json:"income"`
	Expenses []Money  `json:"expenses"`
}

// DashboardSnapshot is the complete result of one aggregation pass.
type DashboardSnapshot struct {
	Month         Month               `json:"month"`
	TotalIncome   Money               `json:"total_income"`
	TotalExpenses Money               `json:"total_expenses"`
	Net           Money               `json:"net"`
	Trend         Trend               `json:"trend"`
	Categories    []CategoryBudgetRow `json:"categories"`
	HealthScore   int                 `json:"health_score"`
	HealthLabel   string              `json:"health_label"`

	// Refreshed is false when recurring templates could not be materialized
	// before aggregating; totals then reflect committed state only.
	Refreshed    bool `json:"refreshed"`
	Materialized int  `json:"materialized"`
}
