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
	// Database
	SQLiteDBPath string

	// AMQP (optional; empty URL disables the refresh queue)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Kroger API
	KrogerBaseURL      string
	KrogerClientID     string
	KrogerClientSecret string

	// Price refresh scheduling
	RefreshInterval  time.Duration
	FetchConcurrency int
}

func Load() *Config {
	return &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/basketcase.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "basketcase"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "price_refresh"),

		KrogerBaseURL:      getEnv("KROGER_BASE_URL", "https://api.kroger.com/v1"),
		KrogerClientID:     getEnv("KROGER_CLIENT_ID", ""),
		KrogerClientSecret: getEnv("KROGER_CLIENT_SECRET", ""),

		RefreshInterval:  getEnvDuration("REFRESH_INTERVAL", 7*24*time.Hour),
		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 4),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errors []string

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

	if c.KrogerBaseURL == "" {
		errors = append(errors, "Kroger base URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.KrogerBaseURL); err != nil || parsedURL.Scheme == "" {
		errors = append(errors, fmt.Sprintf("invalid Kroger base URL '%s'", c.KrogerBaseURL))
	}

	if c.RefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 minute", c.RefreshInterval))
	}

	if c.FetchConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid fetch concurrency %d: must be at least 1", c.FetchConcurrency))
	} else if c.FetchConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid fetch concurrency %d: must be at most 64", c.FetchConcurrency))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// RequireKrogerCredentials fails when the API credentials are unset; only
// the commands that reach the remote API need them.
func (c *Config) RequireKrogerCredentials() error {
	if c.KrogerClientID == "" || c.KrogerClientSecret == "" {
		return fmt.Errorf("KROGER_CLIENT_ID and KROGER_CLIENT_SECRET must be set")
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
