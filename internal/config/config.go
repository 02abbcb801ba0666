// Package config loads pr-sentry settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	ghclient "github.com/nathantilsley/pr-sentry/internal/monitor/adapters/gh_client"
)

// Config holds runtime settings. Values come from environment variables,
// optionally seeded from a .env file, and may be overridden by CLI flags.
type Config struct {
	// GitHubToken is a personal access token (GITHUB_TOKEN).
	GitHubToken string `env:"GITHUB_TOKEN"`
	// AppID, InstallationID and PrivateKeyPath authenticate as a GitHub App.
	AppID          int64  `env:"GITHUB_APP_ID"`
	InstallationID int64  `env:"GITHUB_INSTALLATION_ID"`
	PrivateKeyPath string `env:"GITHUB_PRIVATE_KEY_PATH"`
	// APIURL points at a GitHub Enterprise API; empty means github.com.
	APIURL string `env:"GITHUB_API_URL"`

	// Schedule is the polling cron expression for watch, e.g. "@every 1m".
	Schedule string `env:"PR_SENTRY_SCHEDULE"`
	// MaxAttempts bounds fetch attempts per refresh.
	MaxAttempts int `env:"PR_SENTRY_MAX_ATTEMPTS" envDefault:"1"`
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration `env:"PR_SENTRY_RETRY_DELAY" envDefault:"2s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration. When envFile is non-empty it is loaded first
// without overriding variables already set in the process environment; a
// missing file is only an error if it was named explicitly.
func Load(envFile string, explicit bool) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("loading env file %q: %w", envFile, err)
			}
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that credentials and polling settings are usable.
func (c Config) Validate() error {
	if c.GitHubToken == "" && !c.ClientOptions().UsesApp() {
		return errors.New(
			"github credentials required\nSet GITHUB_TOKEN, or GITHUB_APP_ID, GITHUB_INSTALLATION_ID and GITHUB_PRIVATE_KEY_PATH",
		)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("PR_SENTRY_MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("PR_SENTRY_RETRY_DELAY must not be negative, got %s", c.RetryDelay)
	}
	if err := ValidateSchedule(c.Schedule); err != nil {
		return fmt.Errorf("invalid PR_SENTRY_SCHEDULE: %w", err)
	}
	return nil
}

// ClientOptions converts the credentials into GitHub client options.
func (c Config) ClientOptions() ghclient.Options {
	return ghclient.Options{
		Token:          c.GitHubToken,
		AppID:          c.AppID,
		InstallationID: c.InstallationID,
		PrivateKeyPath: c.PrivateKeyPath,
		BaseURL:        c.APIURL,
	}
}

// ValidateSchedule checks a polling schedule in the syntax the monitor's
// cron scheduler accepts. An empty schedule means no polling.
func ValidateSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("parsing schedule %q: %w", schedule, err)
	}
	return nil
}
