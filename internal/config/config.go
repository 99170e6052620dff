package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// MinBatchDelay is the smallest pause allowed between pairs in an /all batch
const MinBatchDelay = 2 * time.Second

// Config holds all application configuration
type Config struct {
	TelegramToken       string  `env:"TELEGRAM_BOT_TOKEN"`
	DataProvider        string  `env:"DATA_PROVIDER" envDefault:"yahoo"`
	TwelveAPIKey        string  `env:"TWELVE_API_KEY"`
	RequestTimeout      int     `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	RequestsPerSec      int     `env:"REQUESTS_PER_SEC" envDefault:"5"`
	ATRPeriod           int     `env:"ATR_PERIOD" envDefault:"14"`
	BatchSize           int     `env:"BATCH_SIZE" envDefault:"4"`
	BatchDelaySec       float64 `env:"BATCH_DELAY_SEC" envDefault:"2"`
	ChartDir            string  `env:"CHART_DIR"`
	ChartEnabled        bool    `env:"CHART_ENABLED" envDefault:"true"`
	LogLevel            string  `env:"LOG_LEVEL" envDefault:"info"`
	MetricsAddr         string  `env:"METRICS_ADDR"`
	DigestCron          string  `env:"DIGEST_CRON"`
	DigestChatID        int64   `env:"DIGEST_CHAT_ID"`
	PairsFile           string  `env:"PAIRS_FILE"`
	StartupFailurePause int     `env:"STARTUP_FAILURE_PAUSE_SEC" envDefault:"15"`
	SelfTest            bool    `env:"SELF_TEST" envDefault:"true"`
	Debug               bool    `env:"TELEGRAM_DEBUG" envDefault:"false"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.DataProvider = strings.ToLower(getEnvWithDefault("DATA_PROVIDER", "yahoo"))
	cfg.TwelveAPIKey = os.Getenv("TWELVE_API_KEY")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)
	cfg.ATRPeriod = getEnvIntWithDefault("ATR_PERIOD", 14)
	cfg.BatchSize = getEnvIntWithDefault("BATCH_SIZE", 4)
	cfg.BatchDelaySec = getEnvFloatWithDefault("BATCH_DELAY_SEC", 2)
	cfg.ChartDir = getEnvWithDefault("CHART_DIR", os.TempDir())
	cfg.ChartEnabled = getEnvBoolWithDefault("CHART_ENABLED", true)
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.DigestCron = os.Getenv("DIGEST_CRON")
	cfg.DigestChatID = getEnvInt64WithDefault("DIGEST_CHAT_ID", 0)
	cfg.PairsFile = os.Getenv("PAIRS_FILE")
	cfg.StartupFailurePause = getEnvIntWithDefault("STARTUP_FAILURE_PAUSE_SEC", 15)
	cfg.SelfTest = getEnvBoolWithDefault("SELF_TEST", true)
	cfg.Debug = getEnvBoolWithDefault("TELEGRAM_DEBUG", false)

	if err := cfg.Validate(); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	var errs []error

	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	switch c.DataProvider {
	case "yahoo":
	case "twelvedata":
		if c.TwelveAPIKey == "" {
			errs = append(errs, errors.New("TWELVE_API_KEY is required for the twelvedata provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATA_PROVIDER %q is not one of yahoo, twelvedata", c.DataProvider))
	}
	if c.ATRPeriod < 1 {
		errs = append(errs, fmt.Errorf("ATR_PERIOD must be positive, got %d", c.ATRPeriod))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize))
	}
	if c.BatchDelay() < MinBatchDelay {
		errs = append(errs, fmt.Errorf("BATCH_DELAY_SEC must be at least %s", MinBatchDelay))
	}
	if c.DigestCron != "" && c.DigestChatID == 0 {
		errs = append(errs, errors.New("DIGEST_CHAT_ID is required when DIGEST_CRON is set"))
	}

	return errors.Join(errs...)
}

func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelaySec * float64(time.Second))
}

func (c *Config) StartupFailurePauseDuration() time.Duration {
	return time.Duration(c.StartupFailurePause) * time.Second
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
