package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraconfig "github.com/jonesrussell/north-cloud/redirector/infrastructure/config"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Source.GoogleSheets.SpreadsheetID = "sheet-id"
	setDefaults(cfg)
	return cfg
}

func TestSetDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	setDefaults(cfg)

	assert.Equal(t, defaultServiceName, cfg.Service.Name)
	assert.Equal(t, defaultServicePort, cfg.Service.Port)
	assert.Equal(t, SourceGoogleSheets, cfg.Source.Type)
	assert.Equal(t, defaultRefreshIntervalS, cfg.Source.RefreshIntervalSeconds)
	assert.Equal(t, defaultCycleTimeout, cfg.Source.CycleTimeout)
	assert.False(t, cfg.Source.IncludeFirstRow)
	assert.Equal(t, "service", cfg.Source.GoogleSheets.AuthMode)
	assert.Equal(t, defaultBreakerFailures, cfg.Source.CircuitBreaker.FailureThreshold)
	assert.False(t, cfg.Redirect.CaseSensitivePaths)
	assert.False(t, cfg.Redirect.AllowConfirmationPage)
	assert.Equal(t, "en", cfg.Redirect.DefaultLanguage)
	assert.Equal(t, 302, cfg.Redirect.Status)
	assert.Equal(t, defaultTemplatesPath, cfg.Templates.Path)
	assert.Equal(t, defaultDBName, cfg.Database.Database)
	assert.Equal(t, defaultFlushInterval, cfg.Database.FlushInterval)
	assert.Equal(t, defaultRedisPingTimeout, cfg.Redis.PingTimeout)
	assert.Equal(t, defaultMaxRequestsPerMinute, cfg.RateLimit.MaxRequestsPerMinute)
	assert.Equal(t, defaultRefreshMinInterval, cfg.Admin.RefreshMinInterval)
	assert.Equal(t, defaultLoggingLevel, cfg.Logging.Level)
}

func TestConfig_CacheMaxAge(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.Equal(t, 300*time.Second, cfg.CacheMaxAge())

	cfg.Redirect.CacheMaxAgeSeconds = 30
	assert.Equal(t, 30*time.Second, cfg.CacheMaxAge())

	cfg.Redirect.CacheMaxAgeSeconds = -1
	assert.Equal(t, time.Duration(0), cfg.CacheMaxAge())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero interval", func(c *Config) { c.Source.RefreshIntervalSeconds = 0 }, "source.refresh_interval_seconds"},
		{"negative interval", func(c *Config) { c.Source.RefreshIntervalSeconds = -5 }, "source.refresh_interval_seconds"},
		{"missing spreadsheet", func(c *Config) { c.Source.GoogleSheets.SpreadsheetID = "" }, "source.google_sheets.spreadsheet_id"},
		{"bad auth mode", func(c *Config) { c.Source.GoogleSheets.AuthMode = "apikey" }, "source.google_sheets.auth_mode"},
		{"unknown source", func(c *Config) { c.Source.Type = "csv" }, "source.type"},
		{"xlsx without path", func(c *Config) { c.Source.Type = SourceXLSX }, "source.xlsx.path"},
		{"xlsx with path", func(c *Config) { c.Source.Type = SourceXLSX; c.Source.XLSX.Path = "r.xlsx" }, ""},
		{"non redirect status", func(c *Config) { c.Redirect.Status = 200 }, "redirect.status"},
		{"negative confirm delay", func(c *Config) { c.Redirect.ConfirmDelay = -time.Second }, "redirect.confirm_delay"},
		{"bad port", func(c *Config) { c.Service.Port = 70000 }, "service.port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"database enabled without host", func(c *Config) { c.Database.Enabled = true; c.Database.Host = "" }, "database.host"},
		{"redis enabled without address", func(c *Config) { c.Redis.Enabled = true; c.Redis.Address = "" }, "redis.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var vErr *infraconfig.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  type: xlsx
  refresh_interval_seconds: 60
  xlsx:
    path: redirects.xlsx
redirect:
  allow_confirmation_page: true
  confirm_delay: 3s
`), 0o600))

	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("UPDATE_PERIOD", "120")
	t.Setenv("CASE_SENSITIVE_PATHS", "true")
	t.Setenv("DEFAULT_LANGUAGE", "de")
	t.Setenv("REDIRECT_TIMEOUT", "5000")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SourceXLSX, cfg.Source.Type)
	assert.Equal(t, 120, cfg.Source.RefreshIntervalSeconds)
	assert.Equal(t, 120*time.Second, cfg.CacheMaxAge())
	assert.True(t, cfg.Redirect.CaseSensitivePaths)
	assert.True(t, cfg.Redirect.AllowConfirmationPage)
	assert.Equal(t, 5*time.Second, cfg.Redirect.ConfirmDelay)
	assert.Equal(t, "de", cfg.Redirect.DefaultLanguage)
}

func TestLoad_ConfirmDelayFromYAMLWithoutEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("redirect:\n  confirm_delay: 3s\n"), 0o600))
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Redirect.ConfirmDelay)
}

func TestLoad_InvalidRedirectTimeout(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("REDIRECT_TIMEOUT", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	var vErr *infraconfig.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "redirect.confirm_delay", vErr.Field)
}

func TestParseConfirmDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "milliseconds", raw: "5000", want: 5 * time.Second},
		{name: "zero", raw: "0", want: 0},
		{name: "padded", raw: " 250 ", want: 250 * time.Millisecond},
		{name: "duration", raw: "2s", want: 2 * time.Second},
		{name: "compound duration", raw: "1m30s", want: 90 * time.Second},
		{name: "garbage", raw: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseConfirmDelay(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_IgnoreCaseInPath(t *testing.T) {
	tests := []struct {
		name          string
		ignoreCase    string
		caseSensitive string
		want          bool
	}{
		{name: "false makes paths case sensitive", ignoreCase: "false", want: true},
		{name: "true keeps paths folded", ignoreCase: "true", want: false},
		{name: "explicit case sensitive setting wins", ignoreCase: "true", caseSensitive: "true", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
			t.Setenv("IGNORE_CASE_IN_PATH", tt.ignoreCase)
			if tt.caseSensitive != "" {
				t.Setenv("CASE_SENSITIVE_PATHS", tt.caseSensitive)
			}

			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Redirect.CaseSensitivePaths)
		})
	}
}

func TestLoad_InvalidIgnoreCaseInPath(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("IGNORE_CASE_IN_PATH", "maybe")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	var vErr *infraconfig.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "redirect.case_sensitive_paths", vErr.Field)
}
