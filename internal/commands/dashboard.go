package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/subcommands"

	"budgetapp/internal/core"
	applog "budgetapp/internal/log"
	"budgetapp/internal/services"
)

type dashboardCmd struct {
	env   *Env
	month string
	json  bool
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "show the monthly dashboard" }
func (*dashboardCmd) Usage() string {
	return `dashboard [-month YYYY-MM] [-json]

  Records at most one due occurrence per recurring template, then prints
  totals, the
  six month trend, per-category budgets and the health score for month.
  Defaults to the current month.
`
}

func (c *dashboardCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "month to report, YYYY-MM (default: current month)")
	f.BoolVar(&c.json, "json", false, "print the snapshot as JSON")
}

func (c *dashboardCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	month := core.MonthOf(c.env.Now())
	if c.month != "" {
		m, err := core.ParseMonth(c.month)
		if err != nil {
			return c.env.usage("invalid -month %q: %v", c.month, err)
		}
		month = m
	}

	return c.env.run(ctx, applog.OpAggregate, func(ctx context.Context, s *Session) error {
		dash := services.NewDashboardService(
			s.materializer(false),
			services.NewAggregator(s.Repo),
			services.DashboardOptions{StrictRefresh: s.strictRefresh(), Clock: c.env.Now},
		)
		snap, err := dash.BuildSnapshot(ctx, month)
		if err != nil {
			return err
		}
		applog.NewStructuredLogger(applog.FromContext(ctx)).
			LogSnapshot(ctx, snap.Month.String(), snap.HealthScore, snap.HealthLabel, snap.Refreshed)

		if c.json {
			enc := json.NewEncoder(c.env.Out)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		return renderSnapshot(c.env.Out, snap)
	})
}

func renderSnapshot(w io.Writer, s core.DashboardSnapshot) error {
	fmt.Fprintf(w, "Dashboard %s\n", s.Month.Label())
	if !s.Refreshed {
		fmt.Fprintln(w, "warning: recurring expenses could not be refreshed, totals reflect committed entries only")
	} else if s.Materialized > 0 {
		fmt.Fprintf(w, "%d recurring expense(s) recorded\n", s.Materialized)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Income\t%s\n", s.TotalIncome)
	fmt.Fprintf(tw, "Expenses\t%s\n", s.TotalExpenses)
	fmt.Fprintf(tw, "Net\t%s\n", s.Net)
	fmt.Fprintf(tw, "Health\t%d (%s)\n", s.HealthScore, s.HealthLabel)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.Categories) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "Category\tBudget\tSpent\tUsed %\tStatus\t")
		for _, r := range s.Categories {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", r.CategoryName, r.Budget, r.Spent, r.PercentUsed.StringFixed(2), r.Status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tIncome\tExpenses\t")
	for i, label := range s.Trend.Labels {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", label, s.Trend.Income[i], s.Trend.Expenses[i])
	}
	return tw.Flush()
}

type materializeCmd struct {
	env     *Env
	asOf    string
	catchUp bool
}

func (*materializeCmd) Name() string     { return "materialize" }
func (*materializeCmd) Synopsis() string { return "record recurring expenses that are due" }
func (*materializeCmd) Usage() string {
	return `materialize [-as-of YYYY-MM-DD] [-catch-up]

  Creates an expense for every active recurring template due on or before
  the given day (default: today) and advances each template one step.
  With -catch-up, passes repeat until nothing is due.
`
}

func (c *materializeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asOf, "as-of", "", "materialize as of this day, YYYY-MM-DD (default: today)")
	f.BoolVar(&c.catchUp, "catch-up", false, "repeat until no template is due")
}

func (c *materializeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	asOf, err := parseDateOr(c.asOf, c.env.today())
	if err != nil {
		return c.env.usage("invalid -as-of %q: %v", c.asOf, err)
	}
	return c.env.run(ctx, applog.OpMaterialize, func(ctx context.Context, s *Session) error {
		n, err := s.materializer(c.catchUp).MaterializeDue(ctx, asOf.Time)
		if err != nil {
			return err
		}
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogMaterialization(ctx, asOf.String(), n, nil)
		fmt.Fprintf(c.env.Out, "%d recurring expense(s) recorded as of %s\n", n, asOf)
		return nil
	})
}
