package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/dandantas/linkpatrol/internal/app"
	"github.com/dandantas/linkpatrol/internal/config"
	"github.com/dandantas/linkpatrol/internal/model"
	"github.com/dandantas/linkpatrol/internal/worker"
)

func newProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url>...",
		Short: "Probe URLs directly and print how each one is classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			p := app.NewProber(cfg)

			jobs := make([]worker.Job, len(args))
			for i, url := range args {
				jobs[i] = worker.Job{Target: model.LinkTarget{URL: url}, Index: i}
			}

			results := worker.Run(cmd.Context(), cfg.CheckerConcurrency, jobs, func(ctx context.Context, job worker.Job) worker.Result {
				result := p.Probe(ctx, job.Target.URL, cfg.CheckerProbeTimeout)
				return worker.Result{
					Outcome: model.NewOutcome(job.Target, result, 1, time.Now().UTC()),
					Index:   job.Index,
				}
			})

			outcomes := make([]model.LinkCheckOutcome, len(results))
			for i, r := range results {
				outcomes[i] = r.Outcome
			}
			printProbes(cmd.OutOrStdout(), outcomes)
			return nil
		},
	}
}
