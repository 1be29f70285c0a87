// Package config loads runtime settings from defaults, an optional YAML
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// Export backends.
const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
)

// Keys, named after the environment variables that override them.
const (
	KeyPort                     = "PORT"
	KeyDatabaseURL              = "DATABASE_URL"
	KeyAPIKeyEnabled            = "API_KEY_ENABLED"
	KeyAPIKey                   = "API_KEY"
	KeyLogLevel                 = "LOG_LEVEL"
	KeyLogFormat                = "LOG_FORMAT"
	KeyRateLimitPerMinute       = "RATE_LIMIT_PER_MINUTE"
	KeyShutdownTimeout          = "SHUTDOWN_TIMEOUT"
	KeyAMQPURL                  = "AMQP_URL"
	KeyAMQPExchange             = "AMQP_EXCHANGE"
	KeyAMQPQueue                = "AMQP_QUEUE"
	KeyExportBackend            = "EXPORT_BACKEND"
	KeyExportSchedule           = "EXPORT_SCHEDULE"
	KeyGoogleSpreadsheetID      = "GOOGLE_SPREADSHEET_ID"
	KeyGoogleSheetPrefix        = "GOOGLE_SHEET_PREFIX"
	KeyGoogleServiceAccountFile = "GOOGLE_SERVICE_ACCOUNT_FILE"
	KeyGoogleServiceAccountJSON = "GOOGLE_SERVICE_ACCOUNT_JSON"
	KeyAPIBaseURL               = "FIN_API_BASE_URL"
	KeyDashboardAPIKey          = "FIN_API_KEY"
	KeyDashboardPort            = "DASHBOARD_PORT"
	KeyDashboardCacheTTL        = "DASHBOARD_CACHE_TTL"
)

type Config struct {
	// HTTP API
	Port               string
	APIKeyEnabled      bool
	APIKey             string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration

	// Database
	DatabaseURL string

	// Logging
	LogLevel  string
	LogFormat string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Export worker
	ExportBackend            string
	ExportSchedule           string
	GoogleSpreadsheetID      string
	GoogleSheetPrefix        string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Dashboard
	APIBaseURL        string
	DashboardAPIKey   string
	DashboardPort     string
	DashboardCacheTTL time.Duration
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8000")
	v.SetDefault(KeyDatabaseURL, "sqlite:///./app.db")
	v.SetDefault(KeyAPIKeyEnabled, true)
	v.SetDefault(KeyAPIKey, "CHANGE_ME_LOCAL")
	v.SetDefault(KeyLogLevel, "INFO")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyRateLimitPerMinute, 120)
	v.SetDefault(KeyShutdownTimeout, 30*time.Second)

	v.SetDefault(KeyAMQPURL, "")
	v.SetDefault(KeyAMQPExchange, "fintrack")
	v.SetDefault(KeyAMQPQueue, "fintrack_events")

	v.SetDefault(KeyExportBackend, BackendMemory)
	v.SetDefault(KeyExportSchedule, "0 6 1 * *")
	v.SetDefault(KeyGoogleSpreadsheetID, "")
	v.SetDefault(KeyGoogleSheetPrefix, "Resumo")
	v.SetDefault(KeyGoogleServiceAccountFile, "")
	v.SetDefault(KeyGoogleServiceAccountJSON, "")

	v.SetDefault(KeyAPIBaseURL, "http://localhost:8000")
	v.SetDefault(KeyDashboardAPIKey, "")
	v.SetDefault(KeyDashboardPort, "8081")
	v.SetDefault(KeyDashboardCacheTTL, 30*time.Second)
}

// NewViper returns a viper instance with defaults, environment binding and,
// when present, the config file. An explicit configFile must exist; without
// one, fintrack.yaml in the working directory is read if it is there.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("fintrack")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load builds the configuration from defaults, configFile and environment.
func Load(configFile string) (*Config, error) {
	v, err := NewViper(configFile)
	if err != nil {
		return nil, err
	}
	return FromViper(v), nil
}

// FromViper reads every key from v.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Port:               strings.TrimSpace(v.GetString(KeyPort)),
		APIKeyEnabled:      v.GetBool(KeyAPIKeyEnabled),
		APIKey:             v.GetString(KeyAPIKey),
		RateLimitPerMinute: v.GetInt(KeyRateLimitPerMinute),
		ShutdownTimeout:    v.GetDuration(KeyShutdownTimeout),

		DatabaseURL: strings.TrimSpace(v.GetString(KeyDatabaseURL)),

		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),

		AMQPURL:      strings.TrimSpace(v.GetString(KeyAMQPURL)),
		AMQPExchange: v.GetString(KeyAMQPExchange),
		AMQPQueue:    v.GetString(KeyAMQPQueue),

		ExportBackend:            strings.ToLower(strings.TrimSpace(v.GetString(KeyExportBackend))),
		ExportSchedule:           strings.TrimSpace(v.GetString(KeyExportSchedule)),
		GoogleSpreadsheetID:      strings.TrimSpace(v.GetString(KeyGoogleSpreadsheetID)),
		GoogleSheetPrefix:        v.GetString(KeyGoogleSheetPrefix),
		GoogleServiceAccountFile: strings.TrimSpace(v.GetString(KeyGoogleServiceAccountFile)),
		GoogleServiceAccountJSON: v.GetString(KeyGoogleServiceAccountJSON),

		APIBaseURL:        strings.TrimRight(strings.TrimSpace(v.GetString(KeyAPIBaseURL)), "/"),
		DashboardAPIKey:   v.GetString(KeyDashboardAPIKey),
		DashboardPort:     strings.TrimSpace(v.GetString(KeyDashboardPort)),
		DashboardCacheTTL: v.GetDuration(KeyDashboardCacheTTL),
	}
	if cfg.DashboardAPIKey == "" {
		cfg.DashboardAPIKey = cfg.APIKey
	}
	return cfg
}

// LoggerConfig translates the logging keys. Validate reports bad values;
// here they fall back to the defaults.
func (c *Config) LoggerConfig() log.Config {
	lc := log.DefaultConfig()
	if level, err := log.ParseLevel(c.LogLevel); err == nil {
		lc.Level = level
	}
	if format, err := log.ParseFormat(c.LogFormat); err == nil {
		lc.Format = format
	}
	return lc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	problems = append(problems, validatePort("port", c.Port)...)

	// Validate database URL
	if c.DatabaseURL == "" {
		problems = append(problems, "database URL cannot be empty")
	} else if _, err := storage.ParseDatabaseURL(c.DatabaseURL); err != nil {
		problems = append(problems, fmt.Sprintf("invalid database URL: %v", err))
	}

	if c.APIKeyEnabled && strings.TrimSpace(c.APIKey) == "" {
		problems = append(problems, "API key cannot be empty when API key auth is enabled")
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level: %v", err))
	}
	if _, err := log.ParseFormat(c.LogFormat); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log format: %v", err))
	}

	if c.RateLimitPerMinute < 0 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be 0 (disabled) or positive", c.RateLimitPerMinute))
	}
	if c.ShutdownTimeout < time.Second {
		problems = append(problems, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate export backend
	switch c.ExportBackend {
	case BackendMemory:
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			problems = append(problems, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid export backend '%s': must be one of [%s %s]", c.ExportBackend, BackendMemory, BackendSheets))
	}

	if c.ExportSchedule != "" {
		if _, err := cron.ParseStandard(c.ExportSchedule); err != nil {
			problems = append(problems, fmt.Sprintf("invalid export schedule '%s': %v", c.ExportSchedule, err))
		}
	}

	// Validate dashboard
	problems = append(problems, validatePort("dashboard port", c.DashboardPort)...)
	if parsedURL, err := url.Parse(c.APIBaseURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		problems = append(problems, fmt.Sprintf("invalid API base URL '%s': must be an http(s) URL", c.APIBaseURL))
	}
	if c.DashboardCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid dashboard cache TTL %v: must not be negative", c.DashboardCacheTTL))
	}

	// Return combined errors
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}

	return nil
}

func validatePort(name, value string) []string {
	port, err := strconv.Atoi(value)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': must be a number", name, value)}
	}
	if port < 1 || port > 65535 {
		return []string{fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port)}
	}
	return nil
}
