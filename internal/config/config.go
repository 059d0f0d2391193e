package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Data
	DataBackend  string // csv, sqlite or memory
	DataDir      string
	SQLiteDBPath string

	// Currency
	BaseCurrency  string
	BOTAPIToken   string
	RatesCacheTTL time.Duration

	// Reminders
	WarningDays       int // dashboard banner window
	ReminderDays      int // email reminder window
	ReminderRulesPath string

	// Notifications
	NotifyDriver   string // "", smtp or sendgrid
	SMTPServer     string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SenderEmail    string
	RecipientEmail string
	SendGridAPIKey string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID   string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Renewal worker
	RenewdInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", "csv"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/subtrack.db"),

		BaseCurrency:  getEnv("BASE_CURRENCY", "THB"),
		BOTAPIToken:   getEnv("BOT_API_TOKEN", ""),
		RatesCacheTTL: getEnvDuration("RATES_CACHE_TTL", time.Hour),

		WarningDays:       getEnvInt("WARNING_DAYS", 7),
		ReminderDays:      getEnvInt("REMINDER_DAYS", 3),
		ReminderRulesPath: getEnv("REMINDER_RULES_PATH", ""),

		NotifyDriver:   getEnv("NOTIFY_DRIVER", ""),
		SMTPServer:     getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SenderEmail:    getEnv("SENDER_EMAIL", ""),
		RecipientEmail: getEnv("RECIPIENT_EMAIL", ""),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "subtrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dispatch"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		RenewdInterval: getEnvDuration("RENEWD_INTERVAL", time.Hour),
	}

	return cfg
}

// RatesCachePath returns the location of the exchange-rate cache file.
func (c *Config) RatesCachePath() string {
	return filepath.Join(c.DataDir, "rates_cache.csv")
}

// ReminderLogPath returns the location of the sent-reminder log file.
func (c *Config) ReminderLogPath() string {
	return filepath.Join(c.DataDir, "notification_log.csv")
}

// HistoryPath returns the location of the monthly snapshot file.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.csv")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"csv", "sqlite", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Data directory must exist or be creatable
	if c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty")
	} else if _, err := os.Stat(c.DataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.DataDir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
		}
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
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
	}

	// Validate base currency code
	if len(c.BaseCurrency) != 3 || c.BaseCurrency != strings.ToUpper(c.BaseCurrency) {
		errors = append(errors, fmt.Sprintf("invalid base currency '%s': must be a 3-letter uppercase code", c.BaseCurrency))
	}

	if c.RatesCacheTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rates cache TTL %v: must be at least 1 minute", c.RatesCacheTTL))
	} else if c.RatesCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid rates cache TTL %v: must be at most 24 hours", c.RatesCacheTTL))
	}

	if c.WarningDays < 0 || c.WarningDays > 365 {
		errors = append(errors, fmt.Sprintf("invalid warning days %d: must be between 0 and 365", c.WarningDays))
	}

	if c.ReminderDays < 0 || c.ReminderDays > 365 {
		errors = append(errors, fmt.Sprintf("invalid reminder days %d: must be between 0 and 365", c.ReminderDays))
	}

	// Validate notification driver and its required settings
	switch c.NotifyDriver {
	case "":
		// Reminders disabled
	case "smtp":
		if c.SMTPServer == "" {
			errors = append(errors, "SMTP server cannot be empty when using smtp driver")
		}
		if c.SMTPPort < 1 || c.SMTPPort > 65535 {
			errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
		}
		if c.SMTPUsername == "" {
			errors = append(errors, "SMTP username is required when using smtp driver")
		}
		if c.SMTPPassword == "" {
			errors = append(errors, "SMTP password is required when using smtp driver")
		}
		if c.SenderEmail == "" {
			errors = append(errors, "sender email is required when using smtp driver")
		}
		if c.RecipientEmail == "" {
			errors = append(errors, "recipient email is required when using smtp driver")
		}
	case "sendgrid":
		if c.SendGridAPIKey == "" {
			errors = append(errors, "SENDGRID_API_KEY is required when using sendgrid driver")
		}
		if c.SenderEmail == "" {
			errors = append(errors, "sender email is required when using sendgrid driver")
		}
		if c.RecipientEmail == "" {
			errors = append(errors, "recipient email is required when using sendgrid driver")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid notify driver '%s': must be one of [smtp sendgrid]", c.NotifyDriver))
	}

	// Validate AMQP URL if provided
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

	// Validate Google Sheets mirror configuration if enabled
	if c.GoogleSpreadsheetID != "" {
		hasFile := c.GoogleCredentialsFile != ""
		hasJSON := c.GoogleCredentialsJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for the sheets mirror")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	// Validate renewal worker interval
	if c.RenewdInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid renewal interval %v: must be at least 1 second", c.RenewdInterval))
	} else if c.RenewdInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid renewal interval %v: must be at most 24 hours", c.RenewdInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// RemindersEnabled reports whether a notification driver is configured.
func (c *Config) RemindersEnabled() bool {
	return c.NotifyDriver != ""
}

// MirrorEnabled reports whether the Google Sheets mirror is configured.
func (c *Config) MirrorEnabled() bool {
	return c.GoogleSpreadsheetID != ""
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
