package commands

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/google/subcommands"

	"budgetapp/internal/core"
	"budgetapp/internal/ledger"
	applog "budgetapp/internal/log"
)

// categoryNames maps category IDs to names for display.
func categoryNames(ctx context.Context, repo ledger.Repository) (map[int64]string, error) {
	cats, err := repo.ListCategoriesOrderedByName(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

type listExpensesCmd struct {
	env      *Env
	from     string
	to       string
	category string
	min      string
	max      string
	search   string
	csv      bool
}

func (*listExpensesCmd) Name() string     { return "list-expenses" }
func (*listExpensesCmd) Synopsis() string { return "list expenses, newest first" }
func (*listExpensesCmd) Usage() string {
	return `list-expenses [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-category <id|name>] [-min 1.00] [-max 99.99] [-search text] [-csv]

  Dates and amounts are inclusive bounds. -search matches part of the name,
  ignoring case.
`
}

func (c *listExpensesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "first day, YYYY-MM-DD")
	f.StringVar(&c.to, "to", "", "last day, YYYY-MM-DD")
	f.StringVar(&c.category, "category", "", "category ID or name")
	f.StringVar(&c.min, "min", "", "smallest amount")
	f.StringVar(&c.max, "max", "", "largest amount")
	f.StringVar(&c.search, "search", "", "text the name contains")
	f.BoolVar(&c.csv, "csv", false, "write CSV instead of a table")
}

func (c *listExpensesCmd) filter() (ledger.ExpenseFilter, error) {
	var (
		f   = ledger.ExpenseFilter{Search: c.search}
		err error
	)
	if f.From, err = parseDateOr(c.from, core.Date{}); err != nil {
		return f, fmt.Errorf("invalid -from %q: %w", c.from, err)
	}
	if f.To, err = parseDateOr(c.to, core.Date{}); err != nil {
		return f, fmt.Errorf("invalid -to %q: %w", c.to, err)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("-to %s is before -from %s", f.To, f.From)
	}
	if c.min != "" {
		if f.Min, err = core.ParseMoney(c.min); err != nil {
			return f, fmt.Errorf("invalid -min %q: %w", c.min, err)
		}
	}
	if c.max != "" {
		if f.Max, err = core.ParseMoney(c.max); err != nil {
			return f, fmt.Errorf("invalid -max %q: %w", c.max, err)
		}
	}
	if f.Min.IsPositive() && f.Max.IsPositive() && f.Max.Cents < f.Min.Cents {
		return f, fmt.Errorf("-max %s is below -min %s", f.Max, f.Min)
	}
	return f, nil
}

func (c *listExpensesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	filter, err := c.filter()
	if err != nil {
		return c.env.usage("%v", err)
	}
	return c.env.run(ctx, applog.OpRead, func(ctx context.Context, s *Session) error {
		if c.category != "" {
			cat, err := resolveCategory(ctx, s.Repo, c.category)
			if err != nil {
				return err
			}
			filter.CategoryID = cat.ID
		}
		expenses, err := s.Repo.ListExpenses(ctx, filter)
		if err != nil {
			return err
		}
		names, err := categoryNames(ctx, s.Repo)
		if err != nil {
			return err
		}

		if c.csv {
			w := csv.NewWriter(c.env.Out)
			_ = w.Write([]string{"id", "date", "name", "amount", "category"})
			for _, e := range expenses {
				_ = w.Write([]string{
					strconv.FormatInt(e.ID, 10), e.Date.String(), e.Name,
					e.Amount.String(), names[e.CategoryID],
				})
			}
			w.Flush()
			return w.Error()
		}

		tw := tabwriter.NewWriter(c.env.Out, 0, 0, 2, ' ', 0)
		var total core.Money
		for _, e := range expenses {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Name, e.Amount, names[e.CategoryID])
			total = total.Add(e.Amount)
		}
		fmt.Fprintf(tw, "\t\t%d expense(s)\t%s\t\n", len(expenses), total)
		return tw.Flush()
	})
}

type listBudgetsCmd struct {
	env   *Env
	month string
}

func (*listBudgetsCmd) Name() string     { return "list-budgets" }
func (*listBudgetsCmd) Synopsis() string { return "list the budgets set for a month" }
func (*listBudgetsCmd) Usage() string {
	return `list-budgets [-month YYYY-MM]
`
}

func (c *listBudgetsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "month, YYYY-MM (default: current month)")
}

func (c *listBudgetsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	month := core.MonthOf(c.env.Now())
	if c.month != "" {
		var err error
		if month, err = core.ParseMonth(c.month); err != nil {
			return c.env.usage("invalid -month %q: %v", c.month, err)
		}
	}
	return c.env.run(ctx, applog.OpRead, func(ctx context.Context, s *Session) error {
		budgets, err := s.Repo.ListBudgets(ctx, month)
		if err != nil {
			return err
		}
		if len(budgets) == 0 {
			fmt.Fprintf(c.env.Out, "no budgets for %s\n", month)
			return nil
		}
		names, err := categoryNames(ctx, s.Repo)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.env.Out, 0, 0, 2, ' ', 0)
		for _, b := range budgets {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", b.ID, b.Month, names[b.CategoryID], b.Amount)
		}
		return tw.Flush()
	})
}

type listRecurringCmd struct {
	env *Env
}

func (*listRecurringCmd) Name() string             { return "list-recurring" }
func (*listRecurringCmd) Synopsis() string         { return "list recurring expense templates" }
func (*listRecurringCmd) Usage() string            { return "list-recurring\n" }
func (*listRecurringCmd) SetFlags(_ *flag.FlagSet) {}

func (c *listRecurringCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.run(ctx, applog.OpRead, func(ctx context.Context, s *Session) error {
		templates, err := s.Repo.ListRecurringTemplates(ctx)
		if err != nil {
			return err
		}
		names, err := categoryNames(ctx, s.Repo)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.env.Out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tName\tAmount\tInterval\tNext\tEnd\tCategory\tStatus")
		for _, t := range templates {
			end, status := "-", "active"
			if !t.EndDate.IsZero() {
				end = t.EndDate.String()
			}
			if !t.Active {
				status = "inactive"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.Name, t.Amount, t.Interval, t.NextOccurrence, end, names[t.CategoryID], status)
		}
		return tw.Flush()
	})
}

// setRecurringCmd backs both deactivate-recurring and activate-recurring.
type setRecurringCmd struct {
	env    *Env
	active bool
	id     int64
}

func (c *setRecurringCmd) Name() string {
	if c.active {
		return "activate-recurring"
	}
	return "deactivate-recurring"
}

func (c *setRecurringCmd) Synopsis() string {
	if c.active {
		return "resume a recurring expense template"
	}
	return "stop a recurring expense template"
}

func (c *setRecurringCmd) Usage() string {
	return c.Name() + ` -id <template id>

  Inactive templates are never materialized. Their schedule is kept, so a
  reactivated template resumes from its next occurrence.
`
}

func (c *setRecurringCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "template ID (required, see list-recurring)")
}

func (c *setRecurringCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id <= 0 {
		return c.env.usage("-id is required")
	}
	return c.env.run(ctx, applog.OpUpdate, func(ctx context.Context, s *Session) error {
		t, err := s.Repo.SetRecurringTemplateActive(ctx, c.id, c.active)
		if err != nil {
			return err
		}
		state := "deactivated"
		if t.Active {
			state = "activated"
		}
		fmt.Fprintf(c.env.Out, "recurring %d %s %s, next occurrence %s\n", t.ID, t.Name, state, t.NextOccurrence)
		return nil
	})
}
