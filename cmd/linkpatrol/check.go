package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dandantas/linkpatrol/internal/app"
	"github.com/dandantas/linkpatrol/internal/checker"
	"github.com/dandantas/linkpatrol/internal/config"
	"github.com/dandantas/linkpatrol/internal/extractor"
	"github.com/dandantas/linkpatrol/internal/model"
	"github.com/dandantas/linkpatrol/internal/retry"
)

func newCheckCommand() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "check <file.html>...",
		Short: "Check the links of local HTML files without touching the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if baseURL == "" {
				baseURL = cfg.SiteBaseURL
			}

			ext, err := extractor.New(baseURL)
			if err != nil {
				return err
			}

			posts, err := readPosts(args)
			if err != nil {
				return err
			}

			engine := checker.NewEngine(ext, app.NewProber(cfg), checker.Options{
				Concurrency:  cfg.CheckerConcurrency,
				ProbeTimeout: cfg.CheckerProbeTimeout,
				RunDeadline:  cfg.CheckerRunDeadline,
				Retry:        retry.Config{MaxAttempts: cfg.CheckerMaxAttempts},
			}, nil)

			result, err := engine.CheckPosts(cmd.Context(), posts)
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), result)
			if len(result.DeadLinks) > 0 {
				return fmt.Errorf("%d dead link(s) found", len(result.DeadLinks))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "resolve relative links against this URL (default SITE_BASE_URL)")
	return cmd
}

func readPosts(paths []string) ([]model.Post, error) {
	posts := make([]model.Post, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		posts = append(posts, model.Post{
			ID:          path,
			Title:       filepath.Base(path),
			ContentHTML: string(data),
		})
	}
	return posts, nil
}
