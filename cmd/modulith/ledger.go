package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"modulith/internal/core/app"
	"modulith/internal/core/errors"
	"modulith/internal/data/ledger"
)

func (c *cli) ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and maintain the event publication ledger",
	}
	cmd.AddCommand(
		c.ledgerIncompleteCmd(),
		c.ledgerResubmitCmd(),
		c.ledgerCompleteCmd(),
		c.ledgerCleanupCmd(),
	)
	return cmd
}

// withLedger opens the configured ledger for the duration of fn.
func (c *cli) withLedger(cmd *cobra.Command, fn func(a *app.App, l *ledger.Ledger) error) error {
	a, err := c.newApp()
	if err != nil {
		return err
	}
	l, err := a.OpenLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer l.Close()
	return fn(a, l)
}

func (c *cli) ledgerIncompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "incomplete",
		Short: "List publications whose listener has not completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withLedger(cmd, func(_ *app.App, l *ledger.Ledger) error {
				pubs, err := l.FindIncomplete(cmd.Context())
				if err != nil {
					return err
				}
				renderPublications(c.out, pubs)
				return nil
			})
		},
	}
}

func (c *cli) ledgerResubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resubmit",
		Short: "Redeliver incomplete publications to the built-in listeners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withLedger(cmd, func(a *app.App, l *ledger.Ledger) error {
				d, err := a.Dispatcher(l)
				if err != nil {
					return err
				}
				res, err := a.NewResubmitter(d).ResubmitIncomplete(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, titleStyle.Render("Resubmission finished"))
				fmt.Fprintf(c.out, "  attempted %d, succeeded %d, failed %d, skipped %d\n",
					res.Attempted, res.Succeeded, res.Failed, res.Skipped)
				if res.Failed > 0 {
					return errors.Newf(errors.CodeInternal, "%d publication(s) could not be redelivered", res.Failed)
				}
				return nil
			})
		},
	}
}

func (c *cli) ledgerCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <publication-id>...",
		Short: "Mark publications as completed without redelivering them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "parse publication id"), errors.CtxPublication, arg)
				}
				ids = append(ids, id)
			}
			return c.withLedger(cmd, func(_ *app.App, l *ledger.Ledger) error {
				for _, id := range ids {
					if _, err := l.FindByID(cmd.Context(), id); err != nil {
						return err
					}
					if err := l.MarkCompleted(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(c.out, "completed %s\n", id)
				}
				return nil
			})
		},
	}
}

func (c *cli) ledgerCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete completed publications older than ledger.retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withLedger(cmd, func(a *app.App, l *ledger.Ledger) error {
				n, err := a.CleanupLedger(cmd.Context(), l)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "deleted %d completed publication(s)\n", n)
				return nil
			})
		},
	}
}
