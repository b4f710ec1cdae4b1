package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"budgetapp/internal/amqp"
	applog "budgetapp/internal/log"
)

type watchCmd struct {
	env *Env
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "print materialized expense events as they arrive" }
func (*watchCmd) Usage() string {
	return `watch

  Consumes ExpenseMaterialized events from the configured AMQP queue until
  interrupted. Requires AMQP_URL.
`
}

func (*watchCmd) SetFlags(_ *flag.FlagSet) {}

var errNoBroker = errors.New("no AMQP broker connected, set AMQP_URL")

// printEvent writes one line per event. A message whose expense can't be
// rebuilt is reported as amqp.ErrMalformedMessage so it is dropped, not
// redelivered.
func printEvent(w io.Writer) func(*amqp.ExpenseMaterializedMessage) error {
	return func(msg *amqp.ExpenseMaterializedMessage) error {
		e, err := msg.Expense()
		if err != nil {
			return fmt.Errorf("template %d: %w", msg.TemplateID, err)
		}
		_, err = fmt.Fprintf(w, "%s template %d: %s %s (category %d)\n",
			e.Date, msg.TemplateID, e.Name, e.Amount, e.CategoryID)
		return err
	}
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return c.env.run(ctx, applog.OpConsume, func(ctx context.Context, s *Session) error {
		if s.AMQP == nil {
			return errNoBroker
		}
		err := s.AMQP.ConsumeExpenseMaterialized(ctx, printEvent(c.env.Out))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}
