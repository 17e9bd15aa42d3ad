// Package config holds the redirector's configuration.
package config

import (
	"fmt"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/redirector/infrastructure/config"
)

// Source types.
const (
	SourceGoogleSheets = "google_sheets"
	SourceXLSX         = "xlsx"
)

// Default configuration values.
const (
	defaultServiceName  = "redirector"
	defaultServicePort  = 8080
	defaultVersion      = "0.1.0"
	defaultLoggingLevel = "info"
	defaultLoggingFmt   = "json"

	defaultSourceType           = SourceGoogleSheets
	defaultRefreshIntervalS     = 300
	defaultCycleTimeout         = 60 * time.Second
	defaultAuthMode             = "service"
	defaultServiceAccountFile   = "config/service-account-credentials.json"
	defaultOAuth2CredentialFile = "config/oauth2-credentials.json"
	defaultBreakerFailures      = 5
	defaultBreakerTimeout       = 60 * time.Second

	defaultLanguage       = "en"
	defaultRedirectStatus = http.StatusFound
	defaultTemplatesPath  = "resources/templates"

	defaultDBHost        = "localhost"
	defaultDBPort        = 5432
	defaultDBName        = "redirector"
	defaultDBUser        = "postgres"
	defaultDBSSLMode     = "disable"
	defaultBufferSize    = 1000
	defaultFlushInterval = time.Second
	defaultFlushThresh   = 500

	defaultRedisAddress     = "localhost:6379"
	defaultRedisPingTimeout = 2 * time.Second

	defaultMaxRequestsPerMinute = 120
	defaultWindowSeconds        = 60

	defaultRefreshMinInterval = 10 * time.Second
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig             `yaml:"service"`
	Source    SourceConfig              `yaml:"source"`
	Redirect  RedirectConfig            `yaml:"redirect"`
	Templates TemplatesConfig           `yaml:"templates"`
	Database  DatabaseConfig            `yaml:"database"`
	Redis     RedisConfig               `yaml:"redis"`
	RateLimit RateLimitConfig           `yaml:"rate_limit"`
	Admin     AdminConfig               `yaml:"admin"`
	Logging   infraconfig.LoggingConfig `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"REDIRECTOR_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"       yaml:"debug"`
}

// SourceConfig selects and tunes the mapping source.
type SourceConfig struct {
	Type                   string               `env:"SOURCE_TYPE"       yaml:"type"`
	RefreshIntervalSeconds int                  `env:"UPDATE_PERIOD"     yaml:"refresh_interval_seconds"`
	CycleTimeout           time.Duration        `env:"CYCLE_TIMEOUT"     yaml:"cycle_timeout"`
	IncludeFirstRow        bool                 `env:"INCLUDE_FIRST_ROW" yaml:"include_first_row"`
	GoogleSheets           GoogleSheetsConfig   `yaml:"google_sheets"`
	XLSX                   XLSXConfig           `yaml:"xlsx"`
	CircuitBreaker         CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// GoogleSheetsConfig holds spreadsheet and credential settings.
type GoogleSheetsConfig struct {
	SpreadsheetID         string               `env:"SPREADSHEET_ID"           yaml:"spreadsheet_id"`
	Sheet                 string               `env:"SPREADSHEET_SHEET"        yaml:"sheet"`
	AuthMode              string               `env:"AUTHENTICATION_MODE"      yaml:"auth_mode"`
	ServiceAccountKeyFile string               `env:"SERVICE_ACCOUNT_KEY_FILE" yaml:"service_account_key_file"`
	ServiceAccount        ServiceAccountConfig `yaml:"service_account"`
	OAuth2CredentialsFile string               `env:"OAUTH2_CREDENTIALS_FILE"  yaml:"oauth2_credentials_file"`
}

// ServiceAccountConfig holds inline service account credentials.
type ServiceAccountConfig struct {
	ProjectID    string `env:"SERVICE_ACCOUNT_PROJECT_ID"     yaml:"project_id"`
	PrivateKey   string `env:"SERVICE_ACCOUNT_PRIVATE_KEY"    yaml:"private_key"` //nolint:gosec // G117: credential config
	PrivateKeyID string `env:"SERVICE_ACCOUNT_PRIVATE_KEY_ID" yaml:"private_key_id"`
	ClientEmail  string `env:"SERVICE_ACCOUNT_CLIENT_EMAIL"   yaml:"client_email"`
	ClientID     string `env:"SERVICE_ACCOUNT_CLIENT_ID"      yaml:"client_id"`
}

// XLSXConfig points at a local workbook.
type XLSXConfig struct {
	Path  string `env:"XLSX_PATH"  yaml:"path"`
	Sheet string `env:"XLSX_SHEET" yaml:"sheet"`
}

// CircuitBreakerConfig guards source calls.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// RedirectConfig controls resolution and responses.
type RedirectConfig struct {
	CaseSensitivePaths    bool          `env:"CASE_SENSITIVE_PATHS" yaml:"case_sensitive_paths"`
	AllowConfirmationPage bool          `env:"ALLOW_REDIRECT_PAGE"  yaml:"allow_confirmation_page"`
	ConfirmDelay          time.Duration `yaml:"confirm_delay"`
	DefaultLanguage       string        `env:"DEFAULT_LANGUAGE"     yaml:"default_language"`
	Status                int           `env:"REDIRECT_STATUS"      yaml:"status"`
	// CacheMaxAgeSeconds defaults to the refresh interval. A negative value
	// omits Cache-Control.
	CacheMaxAgeSeconds int `env:"HTTP_CACHE_MAX_AGE" yaml:"cache_max_age_seconds"`

	// ConfirmDelayEnv is REDIRECT_TIMEOUT: integer milliseconds or a duration.
	ConfirmDelayEnv string `env:"REDIRECT_TIMEOUT" yaml:"-"`
	// IgnoreCaseInPath is the inverse of CaseSensitivePaths. CASE_SENSITIVE_PATHS
	// wins when both are set.
	IgnoreCaseInPath string `env:"IGNORE_CASE_IN_PATH" yaml:"-"`
}

// TemplatesConfig locates the page templates.
type TemplatesConfig struct {
	Path string `env:"TEMPLATES_PATH" yaml:"path"`
}

// DatabaseConfig holds PostgreSQL settings for hit recording.
type DatabaseConfig struct {
	Enabled        bool          `env:"HIT_RECORDING_ENABLED"         yaml:"enabled"`
	Host           string        `env:"POSTGRES_REDIRECTOR_HOST"      yaml:"host"`
	Port           int           `env:"POSTGRES_REDIRECTOR_PORT"      yaml:"port"`
	User           string        `env:"POSTGRES_REDIRECTOR_USER"      yaml:"user"`
	Password       string        `env:"POSTGRES_REDIRECTOR_PASSWORD"  yaml:"password"` //nolint:gosec // G117: DB connection config
	Database       string        `env:"POSTGRES_REDIRECTOR_DB"        yaml:"database"`
	SSLMode        string        `env:"POSTGRES_REDIRECTOR_SSLMODE"   yaml:"sslmode"`
	BufferSize     int           `yaml:"buffer_size"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
	FlushThreshold int           `yaml:"flush_threshold"`
}

// Connection returns the shared connection settings.
func (d *DatabaseConfig) Connection() infraconfig.DatabaseConfig {
	return infraconfig.DatabaseConfig{
		Host:     d.Host,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
		Database: d.Database,
		SSLMode:  d.SSLMode,
	}
}

// RedisConfig holds Redis settings for refresh events.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_EVENTS_ENABLED" yaml:"enabled"`
	Address  string `env:"REDIS_ADDRESS"        yaml:"address"`
	Password string `env:"REDIS_PASSWORD"       yaml:"password"` //nolint:gosec // G117: Redis connection config
	DB       int    `env:"REDIS_DB"             yaml:"db"`

	// PingTimeout bounds the startup connection check. Events are disabled
	// when Redis does not answer within it.
	PingTimeout time.Duration `env:"REDIS_PING_TIMEOUT" yaml:"ping_timeout"`
}

// RateLimitConfig holds per-IP rate limiting for redirects.
type RateLimitConfig struct {
	Enabled              bool `env:"RATE_LIMIT_ENABLED" yaml:"enabled"`
	MaxRequestsPerMinute int  `yaml:"max_requests_per_minute"`
	WindowSeconds        int  `yaml:"window_seconds"`
}

// AdminConfig guards the admin API. An empty secret disables it.
type AdminConfig struct {
	JWTSecret string `env:"ADMIN_JWT_SECRET" yaml:"jwt_secret"` //nolint:gosec // G117: signing secret

	// RefreshMinInterval spaces out manual refreshes. Negative disables the limit.
	RefreshMinInterval time.Duration `env:"ADMIN_REFRESH_MIN_INTERVAL" yaml:"refresh_min_interval"`
}

// RefreshInterval is the delay between refresh cycles.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Source.RefreshIntervalSeconds) * time.Second
}

// CacheMaxAge is the max-age sent on redirects; zero means no header.
func (c *Config) CacheMaxAge() time.Duration {
	switch {
	case c.Redirect.CacheMaxAgeSeconds < 0:
		return 0
	case c.Redirect.CacheMaxAgeSeconds == 0:
		return c.RefreshInterval()
	default:
		return time.Duration(c.Redirect.CacheMaxAgeSeconds) * time.Second
	}
}

// RateLimitWindow is the rate limiter window.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	cfg, err := infraconfig.LoadWithDefaults[Config](path, setDefaults)
	if err != nil {
		return nil, err
	}
	if err = resolveRedirectEnv(&cfg.Redirect); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveRedirectEnv(r *RedirectConfig) error {
	if r.ConfirmDelayEnv != "" {
		d, err := ParseConfirmDelay(r.ConfirmDelayEnv)
		if err != nil {
			return &infraconfig.ValidationError{Field: "redirect.confirm_delay", Message: err.Error()}
		}
		r.ConfirmDelay = d
	}
	if r.IgnoreCaseInPath != "" {
		if _, set := os.LookupEnv("CASE_SENSITIVE_PATHS"); set {
			return nil
		}
		ignore, err := strconv.ParseBool(strings.TrimSpace(r.IgnoreCaseInPath))
		if err != nil {
			return &infraconfig.ValidationError{
				Field:   "redirect.case_sensitive_paths",
				Message: fmt.Sprintf("IGNORE_CASE_IN_PATH %q is not a boolean", r.IgnoreCaseInPath),
			}
		}
		r.CaseSensitivePaths = !ignore
	}
	return nil
}

// ParseConfirmDelay reads a bare integer as milliseconds and anything else
// as a Go duration.
func ParseConfirmDelay(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("confirm delay %q is neither milliseconds nor a duration", raw)
	}
	return d, nil
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setSourceDefaults(&cfg.Source)
	setRedirectDefaults(&cfg.Redirect)
	if cfg.Templates.Path == "" {
		cfg.Templates.Path = defaultTemplatesPath
	}
	setDatabaseDefaults(&cfg.Database)
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Redis.PingTimeout <= 0 {
		cfg.Redis.PingTimeout = defaultRedisPingTimeout
	}
	setRateLimitDefaults(&cfg.RateLimit)
	if cfg.Admin.RefreshMinInterval == 0 {
		cfg.Admin.RefreshMinInterval = defaultRefreshMinInterval
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaultLoggingFmt
	}
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
}

func setSourceDefaults(src *SourceConfig) {
	if src.Type == "" {
		src.Type = defaultSourceType
	}
	if src.RefreshIntervalSeconds == 0 {
		src.RefreshIntervalSeconds = defaultRefreshIntervalS
	}
	if src.CycleTimeout == 0 {
		src.CycleTimeout = defaultCycleTimeout
	}

	gs := &src.GoogleSheets
	if gs.AuthMode == "" {
		gs.AuthMode = defaultAuthMode
	}
	if gs.ServiceAccountKeyFile == "" {
		gs.ServiceAccountKeyFile = defaultServiceAccountFile
	}
	if gs.OAuth2CredentialsFile == "" {
		gs.OAuth2CredentialsFile = defaultOAuth2CredentialFile
	}

	if src.CircuitBreaker.FailureThreshold == 0 {
		src.CircuitBreaker.FailureThreshold = defaultBreakerFailures
	}
	if src.CircuitBreaker.Timeout == 0 {
		src.CircuitBreaker.Timeout = defaultBreakerTimeout
	}
}

func setRedirectDefaults(r *RedirectConfig) {
	if r.DefaultLanguage == "" {
		r.DefaultLanguage = defaultLanguage
	}
	if r.Status == 0 {
		r.Status = defaultRedirectStatus
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
	if db.BufferSize == 0 {
		db.BufferSize = defaultBufferSize
	}
	if db.FlushInterval == 0 {
		db.FlushInterval = defaultFlushInterval
	}
	if db.FlushThreshold == 0 {
		db.FlushThreshold = defaultFlushThresh
	}
}

func setRateLimitDefaults(rl *RateLimitConfig) {
	if rl.MaxRequestsPerMinute == 0 {
		rl.MaxRequestsPerMinute = defaultMaxRequestsPerMinute
	}
	if rl.WindowSeconds == 0 {
		rl.WindowSeconds = defaultWindowSeconds
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateRedirect(); err != nil {
		return err
	}
	if err := infraconfig.ValidateLogLevel("logging.level", c.Logging.Level); err != nil {
		return err
	}
	if c.Database.Enabled {
		conn := c.Database.Connection()
		if err := conn.Validate("database"); err != nil {
			return err
		}
	}
	if c.Redis.Enabled {
		if err := infraconfig.ValidateRequired("redis.address", c.Redis.Address); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.RefreshIntervalSeconds <= 0 {
		return &infraconfig.ValidationError{Field: "source.refresh_interval_seconds", Message: "must be greater than 0"}
	}

	switch c.Source.Type {
	case SourceGoogleSheets:
		gs := c.Source.GoogleSheets
		if err := infraconfig.ValidateRequired("source.google_sheets.spreadsheet_id", gs.SpreadsheetID); err != nil {
			return err
		}
		if !slices.Contains([]string{"service", "oauth2"}, gs.AuthMode) {
			return &infraconfig.ValidationError{
				Field:   "source.google_sheets.auth_mode",
				Message: "must be one of: service, oauth2",
			}
		}
		return nil
	case SourceXLSX:
		return infraconfig.ValidateRequired("source.xlsx.path", c.Source.XLSX.Path)
	default:
		return &infraconfig.ValidationError{
			Field:   "source.type",
			Message: fmt.Sprintf("must be one of: %s, %s", SourceGoogleSheets, SourceXLSX),
		}
	}
}

func (c *Config) validateRedirect() error {
	if c.Redirect.Status < 300 || c.Redirect.Status > 399 {
		return &infraconfig.ValidationError{Field: "redirect.status", Message: "must be a 3xx status code"}
	}
	if c.Redirect.ConfirmDelay < 0 {
		return &infraconfig.ValidationError{Field: "redirect.confirm_delay", Message: "must not be negative"}
	}
	return infraconfig.ValidateRequired("redirect.default_language", c.Redirect.DefaultLanguage)
}
