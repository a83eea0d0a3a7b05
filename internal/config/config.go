package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port           string
	MaxUploadBytes int64

	// Database
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Upload archive (Google Cloud Storage)
	ArchiveBucket string

	// Domain settings (YAML) and scheduling
	SettingsFile      string
	RecurringSchedule string
	TimeZone          string
	ExportInterval    time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20)),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/financas.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),

		SettingsFile:      getEnv("SETTINGS_FILE", ""),
		RecurringSchedule: getEnv("RECURRING_SCHEDULE", "0 6 1 * *"),
		TimeZone:          getEnv("TIME_ZONE", "America/Sao_Paulo"),
		ExportInterval:    getEnvDuration("EXPORT_INTERVAL", 6*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// GoogleEnabled reports whether Google Sheets credentials are configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleSpreadsheetID != "" || c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxUploadBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: must be a postgres:// URL")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [sqlite postgres]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleEnabled() {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when Google credentials are provided")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.SettingsFile != "" {
		if _, err := os.Stat(c.SettingsFile); err != nil {
			errors = append(errors, fmt.Sprintf("settings file not readable: %s", c.SettingsFile))
		}
	}

	if _, err := cron.ParseStandard(c.RecurringSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid recurring schedule '%s': %v", c.RecurringSchedule, err))
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid time zone '%s': %v", c.TimeZone, err))
	}

	if c.ExportInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 minute", c.ExportInterval))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
