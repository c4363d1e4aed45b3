package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken   string // optional; Telegram transport disabled when empty
	AdminTelegramID int64  // optional; admin commands disabled when zero
	DatabaseURL     string // optional; CSV store used when empty
	LeadsCSVPath    string
	HTTPAddr        string
	LogLevel        string
	Environment     string

	FollowUpDelay       time.Duration // silence before a nudge is owed
	SweepInterval       time.Duration // how often the follow-up sweep runs
	SweepBackoff        time.Duration // cool-down after a failed sweep
	DeclineResetTimeout time.Duration // decline grace age that restarts a conversation
	DispatchInterval    time.Duration // how often the Telegram dispatcher drains the queue
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		id, err := strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
		cfg.AdminTelegramID = id
	}

	cfg.LeadsCSVPath = os.Getenv("LEADS_CSV_PATH")
	if cfg.LeadsCSVPath == "" {
		cfg.LeadsCSVPath = "leads.csv"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	var err error
	if cfg.FollowUpDelay, err = durationEnv("FOLLOW_UP_DELAY", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = durationEnv("SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepBackoff, err = durationEnv("SWEEP_BACKOFF", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DeclineResetTimeout, err = durationEnv("DECLINE_RESET_TIMEOUT", 48*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DispatchInterval, err = durationEnv("DISPATCH_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
