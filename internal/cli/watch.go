package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	linediff "github.com/nathantilsley/pr-sentry/internal/monitor/adapters/line_diff"
	"github.com/nathantilsley/pr-sentry/internal/monitor/app"
	"github.com/nathantilsley/pr-sentry/internal/monitor/domain"
	"github.com/nathantilsley/pr-sentry/internal/scope"
)

func newWatchCommand(opts *Options, newFetcher FetcherFactory) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch <pr-url>",
		Short: "Poll a pull request and print what changes",
		Long: "watch refreshes the pull request on a cron schedule (--schedule or PR_SENTRY_SCHEDULE, " +
			"e.g. \"@every 1m\") and prints field changes and description diffs until interrupted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := domain.ParsePRURL(args[0])
			if err != nil {
				return fmt.Errorf("parsing PR URL: %w", err)
			}

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if schedule != "" {
				cfg.Schedule = schedule
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Schedule == "" {
				return errors.New("polling schedule required\nProvide via --schedule flag or PR_SENTRY_SCHEDULE env var")
			}

			fetcher, err := newFetcher(cfg)
			if err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())

			root := scope.New()
			defer root.Destroy()

			monitor := app.New(fetcher, ref,
				app.WithLogger(opts.logger),
				app.WithRetry(cfg.MaxAttempts, cfg.RetryDelay),
				app.WithBodyDiffer(linediff.New()),
				app.WithChangeHandler(func(r domain.ChangeReport) {
					out.printf("%s", formatReport(r))
				}),
			)
			// Destroying root closes the monitor.
			app.CreatePrMonitorStore(root, monitor)

			if _, err := newStatusView(root.Child(), out, opts.logger); err != nil {
				return err
			}

			ctx := cmd.Context()
			//nolint:errcheck // Published on Err and rendered by the view
			_ = monitor.Refresh(ctx)

			if err := monitor.Start(cfg.Schedule); err != nil {
				return err
			}
			opts.logger.Info("watching pull request", "pr", ref.String(), "schedule", cfg.Schedule)

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Polling schedule as a cron expression, e.g. \"@every 1m\"")
	return cmd
}
