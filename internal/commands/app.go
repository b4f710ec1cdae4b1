// Package commands implements the budget CLI subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/subcommands"

	"budgetapp/internal/amqp"
	"budgetapp/internal/cli"
	"budgetapp/internal/config"
	"budgetapp/internal/core"
	"budgetapp/internal/ledger"
	applog "budgetapp/internal/log"
	"budgetapp/internal/services"
)

// Session is an opened backend plus what the commands need around it.
type Session struct {
	Repo   ledger.Repository
	AMQP   *amqp.Client
	Config *config.Config
	Logger *applog.Logger
	Close  func() error
}

// Env is the environment the commands run in.
type Env struct {
	Open func(ctx context.Context) (*Session, error)
	Out  io.Writer
	Err  io.Writer
	Now  func() time.Time
}

// DefaultEnv loads configuration from the process environment and opens the
// configured backend.
func DefaultEnv() *Env {
	return &Env{
		Open: openFromEnvironment,
		Out:  os.Stdout,
		Err:  os.Stderr,
		Now:  time.Now,
	}
}

func openFromEnvironment(ctx context.Context) (*Session, error) {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLoggerTo(os.Stderr, applog.ComponentCLI, cfg.LogLevel, cfg.LogFormat)
	res, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	return &Session{
		Repo:   res.Repository,
		AMQP:   res.AMQP,
		Config: cfg,
		Logger: logger,
		Close:  res.Cleanup,
	}, nil
}

// Register the subcommands.
func Register(c *subcommands.Commander, env *Env) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&dashboardCmd{env: env}, "reports")
	c.Register(&materializeCmd{env: env}, "reports")

	c.Register(&addCategoryCmd{env: env}, "ledger")
	c.Register(&addExpenseCmd{env: env}, "ledger")
	c.Register(&addIncomeCmd{env: env}, "ledger")
	c.Register(&addBudgetCmd{env: env}, "ledger")
	c.Register(&addRecurringCmd{env: env}, "ledger")
	c.Register(&categoriesCmd{env: env}, "ledger")
	c.Register(&listExpensesCmd{env: env}, "ledger")
	c.Register(&listBudgetsCmd{env: env}, "ledger")
	c.Register(&listRecurringCmd{env: env}, "ledger")
	c.Register(&setRecurringCmd{env: env, active: false}, "ledger")
	c.Register(&setRecurringCmd{env: env, active: true}, "ledger")

	c.Register(&watchCmd{env: env}, "events")
}

// run opens a session, hands it to fn and closes it. Errors are printed to
// env.Err; failures other than conflicts and missing records are also logged
// under op.
func (env *Env) run(ctx context.Context, op string, fn func(context.Context, *Session) error) subcommands.ExitStatus {
	s, err := env.Open(ctx)
	if err != nil {
		fmt.Fprintf(env.Err, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer func() {
		if s.Close != nil {
			_ = s.Close()
		}
	}()
	if s.Logger != nil {
		ctx = applog.WithContext(ctx, s.Logger)
	}

	if err := fn(ctx, s); err != nil {
		fmt.Fprintf(env.Err, "Error: %v\n", err)
		if s.Logger != nil && !ledger.IsConflict(err) && !errors.Is(err, ledger.ErrNotFound) {
			applog.NewStructuredLogger(s.Logger).LogError(ctx, "Command failed", err, applog.ComponentCLI, op, nil)
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (env *Env) usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(env.Err, "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}

func (env *Env) today() core.Date {
	return core.DateOf(env.Now())
}

// materializer builds a materializer with the session's retry settings.
// Catch-up is opt-in per command; RECURRING_CATCH_UP configures the worker.
func (s *Session) materializer(catchUp bool) *services.Materializer {
	opts := services.MaterializerOptions{CatchUp: catchUp}
	if s.Config != nil {
		opts.MaxRetries = s.Config.MaterializeMaxRetries
		opts.MaxCatchUpRounds = s.Config.MaxCatchUpRounds
	}
	var pub services.Publisher
	if s.AMQP != nil {
		pub = s.AMQP
	}
	return services.NewMaterializer(s.Repo, pub, opts)
}

func (s *Session) strictRefresh() bool {
	return s.Config != nil && s.Config.StrictRefresh
}

// resolveCategory accepts a category ID or a case-insensitive name.
func resolveCategory(ctx context.Context, repo ledger.Repository, ref string) (core.Category, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return core.Category{}, core.ErrMissingCategory
	}
	cats, err := repo.ListCategoriesOrderedByName(ctx)
	if err != nil {
		return core.Category{}, err
	}
	id, idErr := strconv.ParseInt(ref, 10, 64)
	for _, c := range cats {
		if (idErr == nil && c.ID == id) || strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("category %q: %w", ref, ledger.ErrNotFound)
}

// parseDateOr parses s, or returns def when s is empty.
func parseDateOr(s string, def core.Date) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return core.ParseDate(s)
}
