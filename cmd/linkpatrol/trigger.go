package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dandantas/linkpatrol/internal/app"
	"github.com/dandantas/linkpatrol/internal/config"
	"github.com/dandantas/linkpatrol/internal/database"
	"github.com/dandantas/linkpatrol/internal/handler"
	"github.com/dandantas/linkpatrol/internal/scheduler"
)

func newTriggerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Run one scheduler step, the same as a cron call to the HTTP trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			host, _ := os.Hostname()
			owner := "cli:" + host

			var (
				outcome   *scheduler.Outcome
				invokeErr error
			)
			err = a.Locks.WithLock(ctx, handler.TriggerLockName, owner, cfg.TriggerLockTTL, func(ctx context.Context) error {
				outcome, invokeErr = a.Scheduler.Invoke(ctx, owner)
				return nil
			})
			if errors.Is(err, database.ErrLockHeld) {
				fmt.Fprintln(cmd.OutOrStdout(), "run already in progress")
				return nil
			}
			if err != nil {
				return err
			}
			if outcome == nil {
				return invokeErr
			}

			printOutcome(cmd.OutOrStdout(), outcome)

			if outcome.State == scheduler.StateFailed {
				return fmt.Errorf("link check %s failed: %s", outcome.CheckID, outcome.Record.ErrorMessage)
			}
			return invokeErr
		},
	}
}
