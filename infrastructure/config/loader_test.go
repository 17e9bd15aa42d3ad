package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/redirector/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string        `env:"SAMPLE_NAME"     yaml:"name"`
	Port     int           `env:"SAMPLE_PORT"     yaml:"port"`
	Interval time.Duration `env:"SAMPLE_INTERVAL" yaml:"interval"`
	Enabled  bool          `env:"SAMPLE_ENABLED"  yaml:"enabled"`
	Tags     []string      `env:"SAMPLE_TAGS"     yaml:"tags"`
	Nested   struct {
		Value string `env:"SAMPLE_NESTED" yaml:"value"`
	} `yaml:"nested"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ReadsYAML(t *testing.T) {
	path := writeFile(t, "name: from-yaml\nport: 8080\ninterval: 2s\nnested:\n  value: inner\n")

	cfg, err := infraconfig.Load[sample](path)
	require.NoError(t, err)

	assert.Equal(t, "from-yaml", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, "inner", cfg.Nested.Value)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "name: from-yaml\nport: 8080\n")
	t.Setenv("SAMPLE_NAME", "from-env")
	t.Setenv("SAMPLE_PORT", "9090")
	t.Setenv("SAMPLE_ENABLED", "yes")
	t.Setenv("SAMPLE_TAGS", "a, b ,c")
	t.Setenv("SAMPLE_NESTED", "env-inner")
	t.Setenv("SAMPLE_INTERVAL", "not-a-duration")

	cfg, err := infraconfig.Load[sample](path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Tags)
	assert.Equal(t, "env-inner", cfg.Nested.Value)
	assert.Zero(t, cfg.Interval)
}

func TestLoad_MissingFileUsesEnvOnly(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "only-env")

	cfg, err := infraconfig.Load[sample](filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, "only-env", cfg.Name)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, "name: [unterminated\n")

	_, err := infraconfig.Load[sample](path)
	require.Error(t, err)
}

func TestLoadWithDefaults_EnvBeatsDefaults(t *testing.T) {
	path := writeFile(t, "")
	t.Setenv("SAMPLE_PORT", "7000")

	cfg, err := infraconfig.LoadWithDefaults[sample](path, func(s *sample) {
		if s.Port == 0 {
			s.Port = 1234
		}
		if s.Name == "" {
			s.Name = "default-name"
		}
	})
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "default-name", cfg.Name)
}

func TestDatabaseConfig_URL(t *testing.T) {
	t.Parallel()

	db := infraconfig.DatabaseConfig{
		Host: "db", Port: 5432, User: "app", Password: "p@ss", Database: "hits", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/hits?sslmode=disable", db.URL())
}

func TestValidatePort(t *testing.T) {
	t.Parallel()

	require.NoError(t, infraconfig.ValidatePort("service.port", 8080))

	err := infraconfig.ValidatePort("service.port", 0)
	var vErr *infraconfig.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "service.port", vErr.Field)
}
