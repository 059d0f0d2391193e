package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Port:           "8080",
		DataBackend:    "csv",
		DataDir:        t.TempDir(),
		BaseCurrency:   "THB",
		RatesCacheTTL:  time.Hour,
		WarningDays:    7,
		ReminderDays:   3,
		RenewdInterval: time.Hour,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid csv backend config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "valid sqlite backend config",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = "./test.db"
			},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "postgres" },
			wantErr:     true,
			errorString: "invalid data backend 'postgres'",
		},
		{
			name: "sqlite backend missing database path",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = ""
			},
			wantErr:     true,
			errorString: "SQLite database path cannot be empty when using sqlite backend",
		},
		{
			name:        "invalid base currency",
			mutate:      func(c *Config) { c.BaseCurrency = "baht" },
			wantErr:     true,
			errorString: "invalid base currency 'baht'",
		},
		{
			name:        "rates cache TTL too short",
			mutate:      func(c *Config) { c.RatesCacheTTL = 10 * time.Second },
			wantErr:     true,
			errorString: "invalid rates cache TTL 10s: must be at least 1 minute",
		},
		{
			name:        "reminder days out of range",
			mutate:      func(c *Config) { c.ReminderDays = 400 },
			wantErr:     true,
			errorString: "invalid reminder days 400",
		},
		{
			name: "smtp driver missing credentials",
			mutate: func(c *Config) {
				c.NotifyDriver = "smtp"
				c.SMTPServer = "smtp.gmail.com"
				c.SMTPPort = 587
			},
			wantErr:     true,
			errorString: "SMTP username is required when using smtp driver",
		},
		{
			name: "valid smtp driver",
			mutate: func(c *Config) {
				c.NotifyDriver = "smtp"
				c.SMTPServer = "smtp.gmail.com"
				c.SMTPPort = 587
				c.SMTPUsername = "user"
				c.SMTPPassword = "pass"
				c.SenderEmail = "me@example.com"
				c.RecipientEmail = "me@example.com"
			},
			wantErr: false,
		},
		{
			name: "sendgrid driver missing key",
			mutate: func(c *Config) {
				c.NotifyDriver = "sendgrid"
				c.SenderEmail = "me@example.com"
				c.RecipientEmail = "me@example.com"
			},
			wantErr:     true,
			errorString: "SENDGRID_API_KEY is required when using sendgrid driver",
		},
		{
			name:        "unknown notify driver",
			mutate:      func(c *Config) { c.NotifyDriver = "pigeon" },
			wantErr:     true,
			errorString: "invalid notify driver 'pigeon'",
		},
		{
			name:        "invalid AMQP URL scheme",
			mutate:      func(c *Config) { c.AMQPURL = "http://localhost:5672/" },
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http': must be 'amqp' or 'amqps'",
		},
		{
			name: "AMQP URL without exchange",
			mutate: func(c *Config) {
				c.AMQPURL = "amqp://localhost:5672/"
				c.AMQPExchange = ""
				c.AMQPQueue = "dispatch"
			},
			wantErr:     true,
			errorString: "AMQP exchange name cannot be empty when AMQP URL is provided",
		},
		{
			name: "AMQP URL without queue",
			mutate: func(c *Config) {
				c.AMQPURL = "amqp://localhost:5672/"
				c.AMQPExchange = "subtrack"
				c.AMQPQueue = ""
			},
			wantErr:     true,
			errorString: "AMQP queue name cannot be empty when AMQP URL is provided",
		},
		{
			name:        "mirror without credentials",
			mutate:      func(c *Config) { c.GoogleSpreadsheetID = "sheet123" },
			wantErr:     true,
			errorString: "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided",
		},
		{
			name: "mirror with inline credentials",
			mutate: func(c *Config) {
				c.GoogleSpreadsheetID = "sheet123"
				c.GoogleCredentialsJSON = `{"type":"service_account"}`
			},
			wantErr: false,
		},
		{
			name:        "mirror with missing credentials file",
			mutate:      func(c *Config) { c.GoogleSpreadsheetID = "sheet123"; c.GoogleCredentialsFile = "/non/existent.json" },
			wantErr:     true,
			errorString: "Google credentials file does not exist",
		},
		{
			name:        "renewal interval too short",
			mutate:      func(c *Config) { c.RenewdInterval = 500 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid renewal interval 500ms: must be at least 1 second",
		},
		{
			name:        "renewal interval too long",
			mutate:      func(c *Config) { c.RenewdInterval = 25 * time.Hour },
			wantErr:     true,
			errorString: "invalid renewal interval 25h0m0s: must be at most 24 hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else {
				if err != nil {
					t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "DATA_BACKEND", "DATA_DIR", "SQLITE_DB_PATH", "BASE_CURRENCY",
		"BOT_API_TOKEN", "RATES_CACHE_TTL", "REMINDER_DAYS", "NOTIFY_DRIVER",
		"AMQP_URL", "RENEWD_INTERVAL",
	}

	originalVars := map[string]string{}
	for _, key := range keys {
		originalVars[key] = os.Getenv(key)
		os.Unsetenv(key)
	}
	defer func() {
		for key, value := range originalVars {
			if value != "" {
				os.Setenv(key, value)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	t.Run("default values", func(t *testing.T) {
		cfg := Load()

		if cfg.Port != "8080" {
			t.Errorf("Load() Port = %v, want 8080", cfg.Port)
		}
		if cfg.DataBackend != "csv" {
			t.Errorf("Load() DataBackend = %v, want csv", cfg.DataBackend)
		}
		if cfg.BaseCurrency != "THB" {
			t.Errorf("Load() BaseCurrency = %v, want THB", cfg.BaseCurrency)
		}
		if cfg.RatesCacheTTL != time.Hour {
			t.Errorf("Load() RatesCacheTTL = %v, want 1h", cfg.RatesCacheTTL)
		}
		if cfg.WarningDays != 7 {
			t.Errorf("Load() WarningDays = %v, want 7", cfg.WarningDays)
		}
		if cfg.ReminderDays != 3 {
			t.Errorf("Load() ReminderDays = %v, want 3", cfg.ReminderDays)
		}
		if cfg.RemindersEnabled() {
			t.Errorf("Load() RemindersEnabled() = true, want false by default")
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		os.Setenv("PORT", "9090")
		os.Setenv("DATA_BACKEND", "sqlite")
		os.Setenv("SQLITE_DB_PATH", "/tmp/test.db")
		os.Setenv("BASE_CURRENCY", "USD")
		os.Setenv("RATES_CACHE_TTL", "30m")
		os.Setenv("REMINDER_DAYS", "7")
		os.Setenv("RENEWD_INTERVAL", "45s")

		cfg := Load()

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.DataBackend != "sqlite" {
			t.Errorf("Load() DataBackend = %v, want sqlite", cfg.DataBackend)
		}
		if cfg.SQLiteDBPath != "/tmp/test.db" {
			t.Errorf("Load() SQLiteDBPath = %v, want /tmp/test.db", cfg.SQLiteDBPath)
		}
		if cfg.BaseCurrency != "USD" {
			t.Errorf("Load() BaseCurrency = %v, want USD", cfg.BaseCurrency)
		}
		if cfg.RatesCacheTTL != 30*time.Minute {
			t.Errorf("Load() RatesCacheTTL = %v, want 30m", cfg.RatesCacheTTL)
		}
		if cfg.ReminderDays != 7 {
			t.Errorf("Load() ReminderDays = %v, want 7", cfg.ReminderDays)
		}
		if cfg.RenewdInterval != 45*time.Second {
			t.Errorf("Load() RenewdInterval = %v, want 45s", cfg.RenewdInterval)
		}
	})

	t.Run("invalid environment variables use defaults", func(t *testing.T) {
		os.Setenv("REMINDER_DAYS", "invalid")
		os.Setenv("RATES_CACHE_TTL", "invalid")

		cfg := Load()

		if cfg.ReminderDays != 3 {
			t.Errorf("Load() ReminderDays = %v, want 3 (default for invalid input)", cfg.ReminderDays)
		}
		if cfg.RatesCacheTTL != time.Hour {
			t.Errorf("Load() RatesCacheTTL = %v, want 1h (default for invalid input)", cfg.RatesCacheTTL)
		}
	})
}
