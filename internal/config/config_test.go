package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"GITHUB_TOKEN", "GITHUB_APP_ID", "GITHUB_INSTALLATION_ID", "GITHUB_PRIVATE_KEY_PATH",
	"GITHUB_API_URL", "PR_SENTRY_SCHEDULE", "PR_SENTRY_MAX_ATTEMPTS", "PR_SENTRY_RETRY_DELAY", "LOG_LEVEL",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", false)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Schedule)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PR_SENTRY_MAX_ATTEMPTS", "5")

	path := filepath.Join(t.TempDir(), ".env")
	content := "GITHUB_TOKEN=from-file\nPR_SENTRY_SCHEDULE=@every 30s\nPR_SENTRY_MAX_ATTEMPTS=2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.GitHubToken)
	assert.Equal(t, "@every 30s", cfg.Schedule)
	assert.Equal(t, 5, cfg.MaxAttempts, "process environment wins over the file")
}

func TestLoad_MissingEnvFile(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "nope.env")

	_, err := Load(missing, false)
	require.NoError(t, err, "default env file is optional")

	_, err = Load(missing, true)
	require.Error(t, err)
}

func TestLoad_InvalidValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("PR_SENTRY_RETRY_DELAY", "soon")

	_, err := Load("", false)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{GitHubToken: "t", MaxAttempts: 1, RetryDelay: time.Second}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "token", mutate: func(*Config) {}},
		{
			name: "app credentials",
			mutate: func(c *Config) {
				c.GitHubToken = ""
				c.AppID, c.InstallationID, c.PrivateKeyPath = 1, 2, "key.pem"
			},
		},
		{name: "no credentials", mutate: func(c *Config) { c.GitHubToken = "" }, wantErr: "credentials required"},
		{name: "zero attempts", mutate: func(c *Config) { c.MaxAttempts = 0 }, wantErr: "PR_SENTRY_MAX_ATTEMPTS"},
		{name: "negative delay", mutate: func(c *Config) { c.RetryDelay = -time.Second }, wantErr: "PR_SENTRY_RETRY_DELAY"},
		{name: "bad schedule", mutate: func(c *Config) { c.Schedule = "whenever" }, wantErr: "PR_SENTRY_SCHEDULE"},
		{name: "good schedule", mutate: func(c *Config) { c.Schedule = "@every 5m" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClientOptions(t *testing.T) {
	cfg := Config{GitHubToken: "t", APIURL: "https://ghe.example.com/api/v3/"}
	opts := cfg.ClientOptions()
	assert.Equal(t, "t", opts.Token)
	assert.Equal(t, "https://ghe.example.com/api/v3/", opts.BaseURL)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(""))
	assert.NoError(t, ValidateSchedule("@every 30s"))
	assert.NoError(t, ValidateSchedule("*/5 * * * *"))
	assert.Error(t, ValidateSchedule("every minute"))
}
