// Package cli defines the command-line interface for pr-sentry.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nathantilsley/pr-sentry/internal/config"
	"github.com/nathantilsley/pr-sentry/internal/logging"
	ghclient "github.com/nathantilsley/pr-sentry/internal/monitor/adapters/gh_client"
	githubpr "github.com/nathantilsley/pr-sentry/internal/monitor/adapters/github_pr"
	prfiles "github.com/nathantilsley/pr-sentry/internal/monitor/adapters/pr_files"
	"github.com/nathantilsley/pr-sentry/internal/monitor/ports"
)

const defaultEnvFile = ".env"

// Options stores global CLI options shared between commands.
type Options struct {
	EnvFile  string
	LogLevel string

	envFileSet bool
	logger     *slog.Logger
	logOutput  io.Writer
	stdout     io.Writer
}

// FetcherFactory builds the pull request fetcher from the loaded config.
type FetcherFactory func(cfg config.Config) (ports.PullRequestFetcher, error)

// Execute builds the root command, runs it with the provided args and
// returns any error. Command output goes to stdout, logs to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd := newRootCommand(&Options{stdout: stdout, logOutput: stderr}, newGitHubFetcher)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(opts *Options, newFetcher FetcherFactory) *cobra.Command {
	if opts.stdout == nil {
		opts.stdout = os.Stdout
	}
	if opts.logOutput == nil {
		opts.logOutput = os.Stderr
	}
	opts.logger = logging.NewLogger(opts.logOutput, slog.LevelInfo)

	cmd := &cobra.Command{
		Use:           "pr-sentry",
		Short:         "pr-sentry keeps an eye on a GitHub pull request",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.envFileSet = cmd.Flags().Changed("env-file")
			if cmd.Flags().Changed("log-level") {
				opts.logger = logging.NewLogger(opts.logOutput, logging.ParseLevel(opts.LogLevel))
			}
		},
	}
	cmd.SetOut(opts.stdout)

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", defaultEnvFile, "Path to a .env file with GITHUB_* settings")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newShowCommand(opts, newFetcher),
		newWatchCommand(opts, newFetcher),
	)

	return cmd
}

// loadConfig reads configuration and, unless --log-level was given,
// applies LOG_LEVEL to the logger.
func (o *Options) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.EnvFile, o.envFileSet)
	if err != nil {
		return cfg, err
	}
	if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
		o.logger = logging.NewLogger(o.logOutput, logging.ParseLevel(cfg.LogLevel))
	}
	return cfg, nil
}

func newGitHubFetcher(cfg config.Config) (ports.PullRequestFetcher, error) {
	client, err := ghclient.New(cfg.ClientOptions())
	if err != nil {
		return nil, fmt.Errorf("creating github client: %w", err)
	}
	return githubpr.New(client, prfiles.New(client)), nil
}
