package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nathantilsley/pr-sentry/internal/monitor/app"
	"github.com/nathantilsley/pr-sentry/internal/monitor/domain"
)

func newShowCommand(opts *Options, newFetcher FetcherFactory) *cobra.Command {
	var withFiles bool

	cmd := &cobra.Command{
		Use:   "show <pr-url>",
		Short: "Fetch a pull request once and print its state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := domain.ParsePRURL(args[0])
			if err != nil {
				return fmt.Errorf("parsing PR URL: %w", err)
			}

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			fetcher, err := newFetcher(cfg)
			if err != nil {
				return err
			}

			monitor := app.New(fetcher, ref,
				app.WithLogger(opts.logger),
				app.WithRetry(cfg.MaxAttempts, cfg.RetryDelay),
			)
			//nolint:errcheck // Close never fails
			defer monitor.Close()

			if err := monitor.Refresh(cmd.Context()); err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			pr := monitor.PR().Get()
			out.printf("%s", formatSummary(pr))
			if withFiles && len(pr.Files) > 0 {
				out.printf("%s", formatFiles(pr.Files))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withFiles, "files", false, "Also list changed files")
	return cmd
}
