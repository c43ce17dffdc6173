package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dandantas/linkpatrol/internal/config"
	"github.com/dandantas/linkpatrol/internal/database"
)

func newHistoryCommand() *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history [check-id]",
		Short: "List recent link checks, or show the dead links of one check",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := cmd.Context()

			db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
			if err != nil {
				return err
			}
			defer db.Disconnect(context.Background())

			checks := database.NewCheckRepository(db)

			if len(args) == 1 {
				record, err := checks.GetByID(ctx, args[0])
				if err != nil {
					return err
				}
				printRecord(cmd.OutOrStdout(), record)
				return nil
			}

			records, total, err := checks.List(ctx, status, 1, limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), records)
			fmt.Fprintf(cmd.OutOrStdout(), "\nshowing %d of %d\n", len(records), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (completed or failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of checks to list")
	return cmd
}
