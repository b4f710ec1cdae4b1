package commands

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"

	"budgetapp/internal/core"
	"budgetapp/internal/ledger"
	applog "budgetapp/internal/log"
)

type addCategoryCmd struct {
	env  *Env
	name string
}

func (*addCategoryCmd) Name() string     { return "add-category" }
func (*addCategoryCmd) Synopsis() string { return "add a spending category" }
func (*addCategoryCmd) Usage() string {
	return `add-category -name <name>

  Adds a category. Names are unique.
`
}

func (c *addCategoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "category name (required)")
}

func (c *addCategoryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		return c.env.usage("-name is required")
	}
	return c.env.run(ctx, applog.OpCreate, func(ctx context.Context, s *Session) error {
		cat, err := s.Repo.CreateCategory(ctx, core.Category{Name: c.name})
		if ledger.IsConflict(err) {
			return fmt.Errorf("%q is taken: %w", c.name, err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "category %d %q added\n", cat.ID, cat.Name)
		return nil
	})
}

type categoriesCmd struct {
	env *Env
}

func (*categoriesCmd) Name() string             { return "categories" }
func (*categoriesCmd) Synopsis() string         { return "list categories" }
func (*categoriesCmd) Usage() string            { return "categories\n" }
func (*categoriesCmd) SetFlags(_ *flag.FlagSet) {}

func (c *categoriesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.run(ctx, applog.OpRead, func(ctx context.Context, s *Session) error {
		cats, err := s.Repo.ListCategoriesOrderedByName(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.env.Out, 0, 0, 2, ' ', 0)
		for _, cat := range cats {
			fmt.Fprintf(tw, "%d\t%s\n", cat.ID, cat.Name)
		}
		return tw.Flush()
	})
}

type addExpenseCmd struct {
	env      *Env
	name     string
	amount   string
	date     string
	category string
}

func (*addExpenseCmd) Name() string     { return "add-expense" }
func (*addExpenseCmd) Synopsis() string { return "record a one-off expense" }
func (*addExpenseCmd) Usage() string {
	return `add-expense -name <name> -amount <12.34> -category <id|name> [-date YYYY-MM-DD]
`
}

func (c *addExpenseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "expense description (required)")
	f.StringVar(&c.amount, "amount", "", "amount, e.g. 12.34 or 12,34 (required)")
	f.StringVar(&c.category, "category", "", "category ID or name (required)")
	f.StringVar(&c.date, "date", "", "expense day, YYYY-MM-DD (default: today)")
}

func (c *addExpenseCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := core.ParseMoney(c.amount)
	if err != nil {
		return c.env.usage("invalid -amount %q: %v", c.amount, err)
	}
	date, err := parseDateOr(c.date, c.env.today())
	if err != nil {
		return c.env.usage("invalid -date %q: %v", c.date, err)
	}
	return c.env.run(ctx, applog.OpCreate, func(ctx context.Context, s *Session) error {
		cat, err := resolveCategory(ctx, s.Repo, c.category)
		if err != nil {
			return err
		}
		e, err := s.Repo.CreateExpense(ctx, core.Expense{Name: c.name, Amount: amount, Date: date, CategoryID: cat.ID})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "expense %d: %s %s on %s (%s)\n", e.ID, e.Name, e.Amount, e.Date, cat.Name)
		return nil
	})
}

type addIncomeCmd struct {
	env    *Env
	source string
	amount string
	date   string
}

func (*addIncomeCmd) Name() string     { return "add-income" }
func (*addIncomeCmd) Synopsis() string { return "record income" }
func (*addIncomeCmd) Usage() string {
	return `add-income -source <source> -amount <12.34> [-date YYYY-MM-DD]
`
}

func (c *addIncomeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.source, "source", "", "income source (required)")
	f.StringVar(&c.amount, "amount", "", "amount (required)")
	f.StringVar(&c.date, "date", "", "income day, YYYY-MM-DD (default: today)")
}

func (c *addIncomeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := core.ParseMoney(c.amount)
	if err != nil {
		return c.env.usage("invalid -amount %q: %v", c.amount, err)
	}
	date, err := parseDateOr(c.date, c.env.today())
	if err != nil {
		return c.env.usage("invalid -date %q: %v", c.date, err)
	}
	return c.env.run(ctx, applog.OpCreate, func(ctx context.Context, s *Session) error {
		in, err := s.Repo.CreateIncome(ctx, core.Income{Source: c.source, Amount: amount, Date: date})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "income %d: %s %s on %s\n", in.ID, in.Source, in.Amount, in.Date)
		return nil
	})
}

type addBudgetCmd struct {
	env      *Env
	category string
	month    string
	amount   string
}

func (*addBudgetCmd) Name() string     { return "add-budget" }
func (*addBudgetCmd) Synopsis() string { return "set a category budget for a month" }
func (*addBudgetCmd) Usage() string {
	return `add-budget -category <id|name> -amount <12.34> [-month YYYY-MM]

  A category has at most one budget per month.
`
}

func (c *addBudgetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.category, "category", "", "category ID or name (required)")
	f.StringVar(&c.amount, "amount", "", "budget amount (required)")
	f.StringVar(&c.month, "month", "", "budget month, YYYY-MM (default: current month)")
}

func (c *addBudgetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := core.ParseMoney(c.amount)
	if err != nil {
		return c.env.usage("invalid -amount %q: %v", c.amount, err)
	}
	month := core.MonthOf(c.env.Now())
	if c.month != "" {
		if month, err = core.ParseMonth(c.month); err != nil {
			return c.env.usage("invalid -month %q: %v", c.month, err)
		}
	}
	return c.env.run(ctx, applog.OpCreate, func(ctx context.Context, s *Session) error {
		cat, err := resolveCategory(ctx, s.Repo, c.category)
		if err != nil {
			return err
		}
		b, err := s.Repo.CreateBudget(ctx, core.Budget{CategoryID: cat.ID, Month: month, Amount: amount})
		if ledger.IsConflict(err) {
			return fmt.Errorf("%s already has a budget for %s: %w", cat.Name, month, err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "budget %d: %s %s for %s\n", b.ID, cat.Name, b.Amount, b.Month)
		return nil
	})
}

type addRecurringCmd struct {
	env      *Env
	name     string
	amount   string
	category string
	interval string
	start    string
	end      string
}

func (*addRecurringCmd) Name() string     { return "add-recurring" }
func (*addRecurringCmd) Synopsis() string { return "add a recurring expense template" }
func (*addRecurringCmd) Usage() string {
	return `add-recurring -name <name> -amount <12.34> -category <id|name> -interval weekly|monthly [-start YYYY-MM-DD] [-end YYYY-MM-DD]

  The first expense is recorded on -start (default: today) the next time
  recurring expenses are materialized.
`
}

func (c *addRecurringCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "template name (required)")
	f.StringVar(&c.amount, "amount", "", "amount per occurrence (required)")
	f.StringVar(&c.category, "category", "", "category ID or name (required)")
	f.StringVar(&c.interval, "interval", "monthly", "weekly or monthly")
	f.StringVar(&c.start, "start", "", "first occurrence, YYYY-MM-DD (default: today)")
	f.StringVar(&c.end, "end", "", "last possible occurrence, YYYY-MM-DD (optional)")
}

func (c *addRecurringCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := core.ParseMoney(c.amount)
	if err != nil {
		return c.env.usage("invalid -amount %q: %v", c.amount, err)
	}
	interval, err := core.ParseInterval(c.interval)
	if err != nil {
		return c.env.usage("%v", err)
	}
	start, err := parseDateOr(c.start, c.env.today())
	if err != nil {
		return c.env.usage("invalid -start %q: %v", c.start, err)
	}
	end, err := parseDateOr(c.end, core.Date{})
	if err != nil {
		return c.env.usage("invalid -end %q: %v", c.end, err)
	}

	return c.env.run(ctx, applog.OpCreate, func(ctx context.Context, s *Session) error {
		cat, err := resolveCategory(ctx, s.Repo, c.category)
		if err != nil {
			return err
		}
		t, err := s.Repo.CreateRecurringTemplate(ctx, core.RecurringTemplate{
			Name:           c.name,
			Amount:         amount,
			Interval:       interval,
			NextOccurrence: start,
			EndDate:        end,
			Active:         true,
			CategoryID:     cat.ID,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "recurring %d: %s %s %s from %s\n", t.ID, t.Name, t.Amount, t.Interval, t.NextOccurrence)
		return nil
	})
}
