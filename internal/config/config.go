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
	Port string

	// Database
	SQLiteDBPath string

	// Rule table; empty means the embedded default ruleset
	RuleFile string

	// Learned-mapping index cache
	MappingCacheTTL time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string

	// Payment processor
	PayprocBaseURL string
	PayprocAPIKey  string

	// Bank feed
	BankfeedBaseURL     string
	BankfeedAccessToken string

	// Google Sheets export target
	GoogleSpreadsheetID string
	ExportSheetName     string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tally.db"),

		RuleFile:        getEnv("RULE_FILE", ""),
		MappingCacheTTL: getEnvDuration("MAPPING_CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tally"),

		PayprocBaseURL: getEnv("PAYPROC_BASE_URL", ""),
		PayprocAPIKey:  getEnv("PAYPROC_API_KEY", ""),

		BankfeedBaseURL:     getEnv("BANKFEED_BASE_URL", ""),
		BankfeedAccessToken: getEnv("BANKFEED_ACCESS_TOKEN", ""),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		ExportSheetName:     getEnv("EXPORT_SHEET_NAME", "Deductions"),
	}
}

// Validate checks the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	if c.RuleFile != "" {
		if _, err := os.Stat(c.RuleFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("rule file does not exist: %s", c.RuleFile))
		}
	}

	if c.MappingCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid mapping cache TTL %v: must not be negative", c.MappingCacheTTL))
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
	}

	// Either adapter may be left unconfigured; its source just reports
	// disconnected. A base URL without its credential is a mistake though.
	if c.PayprocBaseURL != "" && c.PayprocAPIKey == "" {
		errors = append(errors, "PAYPROC_API_KEY is required when PAYPROC_BASE_URL is set")
	}
	if c.BankfeedBaseURL != "" && c.BankfeedAccessToken == "" {
		errors = append(errors, "BANKFEED_ACCESS_TOKEN is required when BANKFEED_BASE_URL is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// PaymentsConfigured reports whether the payment-processor adapter can be
// constructed.
func (c *Config) PaymentsConfigured() bool {
	return c.PayprocBaseURL != "" && c.PayprocAPIKey != ""
}

// BankConfigured reports whether the bank-feed adapter can be constructed.
func (c *Config) BankConfigured() bool {
	return c.BankfeedBaseURL != "" && c.BankfeedAccessToken != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
