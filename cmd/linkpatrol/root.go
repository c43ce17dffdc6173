package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dandantas/linkpatrol/internal/config"
)

const version = "1.0.0"

func newRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:          "linkpatrol",
		Short:        "Find and report dead links in published posts",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			config.InitLogger(cfg)
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "linkpatrol version %s\n", version)
		},
	})
	root.AddCommand(newTriggerCommand())
	root.AddCommand(newProbeCommand())
	root.AddCommand(newCheckCommand())
	root.AddCommand(newHistoryCommand())

	return root
}
