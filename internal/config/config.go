package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Strategy holds the tunable trading parameters. They can come from
// the environment or from an optional YAML strategy file; the file
// wins when present.
type Strategy struct {
	Exchange             string  `yaml:"exchange"`
	MinMarketCap         float64 `yaml:"min_market_cap"`
	BatchSize            int     `yaml:"batch_size"`
	MaxInvestmentPercent float64 `yaml:"max_investment_percent"`
	UnprofitableHoldDays int     `yaml:"unprofitable_hold_days"`
	ProfitableHoldDays   int     `yaml:"profitable_hold_days"`
	FetchConcurrency     int     `yaml:"fetch_concurrency"`
	FetchRatePerSecond   float64 `yaml:"fetch_rate_per_second"`
}

// Config holds application configuration
type Config struct {
	Port             int
	DevMode          bool
	DatabasePath     string
	LogLevel         string
	BrokerServiceURL string
	WebhookURL       string
	StrategyFile     string
	BuySchedule      string
	SellSchedule     string
	Strategy         Strategy
}

// Load reads configuration from environment variables and, when
// STRATEGY_FILE points at a YAML file, overlays the strategy section
// from it.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvAsInt("PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		DatabasePath:     getEnv("DATABASE_PATH", "./data/ledger.db"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		BrokerServiceURL: getEnv("BROKER_SERVICE_URL", "http://localhost:9001"),
		WebhookURL:       getEnv("NOTIFY_WEBHOOK_URL", ""),
		StrategyFile:     getEnv("STRATEGY_FILE", ""),
		BuySchedule:      getEnv("BUY_CRON", "0 0 15 * * MON"),  // Monday after US open
		SellSchedule:     getEnv("SELL_CRON", "0 30 15 * * 1-5"), // every weekday
		Strategy: Strategy{
			Exchange:             getEnv("EXCHANGE", "NYSE"),
			MinMarketCap:         getEnvAsFloat("MIN_MARKET_CAP", 50_000_000),
			BatchSize:            getEnvAsInt("BATCH_SIZE", 5),
			MaxInvestmentPercent: getEnvAsFloat("MAX_INVESTMENT_PERCENT", 0.1),
			UnprofitableHoldDays: getEnvAsInt("UNPROFITABLE_HOLD_DAYS", 360),
			ProfitableHoldDays:   getEnvAsInt("PROFITABLE_HOLD_DAYS", 370),
			FetchConcurrency:     getEnvAsInt("FETCH_CONCURRENCY", 20),
			FetchRatePerSecond:   getEnvAsFloat("FETCH_RATE_PER_SECOND", 5),
		},
	}

	if cfg.StrategyFile != "" {
		if err := cfg.loadStrategyFile(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadStrategyFile() error {
	data, err := os.ReadFile(c.StrategyFile)
	if err != nil {
		return fmt.Errorf("failed to read strategy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.Strategy); err != nil {
		return fmt.Errorf("failed to parse strategy file: %w", err)
	}
	return nil
}

// Validate checks that every strategy parameter is in range. A bad
// value fails fast instead of being silently replaced by a default.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	s := c.Strategy
	if s.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", s.BatchSize)
	}
	if s.MaxInvestmentPercent <= 0 || s.MaxInvestmentPercent > 1 {
		return fmt.Errorf("max_investment_percent must be in (0, 1], got %f", s.MaxInvestmentPercent)
	}
	if s.UnprofitableHoldDays < 0 || s.ProfitableHoldDays < 0 {
		return fmt.Errorf("hold thresholds must be non-negative, got %d/%d", s.UnprofitableHoldDays, s.ProfitableHoldDays)
	}
	if s.MinMarketCap < 0 {
		return fmt.Errorf("min_market_cap must be non-negative, got %f", s.MinMarketCap)
	}
	if s.FetchConcurrency <= 0 {
		return fmt.Errorf("fetch_concurrency must be positive, got %d", s.FetchConcurrency)
	}
	if s.FetchRatePerSecond <= 0 {
		return fmt.Errorf("fetch_rate_per_second must be positive, got %f", s.FetchRatePerSecond)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
