// Package common provides shared utilities for Prism
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Prism
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Cache       CacheConfig     `toml:"cache"`
	Clients     ClientsConfig   `toml:"clients"`
	Analytics   AnalyticsConfig `toml:"analytics"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the on-disk location of the BadgerHold database.
// An empty path keeps everything in memory (cache only; saved portfolios are disabled).
type StorageConfig struct {
	Path string `toml:"path"`
}

// CacheConfig holds TTL policy for market data
type CacheConfig struct {
	Backend         string `toml:"backend"` // "badger" or "memory"
	PriceHistoryTTL string `toml:"price_history_ttl"`
	QuoteTTL        string `toml:"quote_ttl"`
	CompanyInfoTTL  string `toml:"company_info_ttl"`
	JanitorSchedule string `toml:"janitor_schedule"` // cron schedule, empty disables
}

// GetPriceHistoryTTL parses the price history TTL (default 5m)
func (c *CacheConfig) GetPriceHistoryTTL() time.Duration {
	return parseDuration(c.PriceHistoryTTL, 5*time.Minute)
}

// GetQuoteTTL parses the quote TTL (default 1m)
func (c *CacheConfig) GetQuoteTTL() time.Duration {
	return parseDuration(c.QuoteTTL, time.Minute)
}

// GetCompanyInfoTTL parses the company info TTL (default 24h)
func (c *CacheConfig) GetCompanyInfoTTL() time.Duration {
	return parseDuration(c.CompanyInfoTTL, 24*time.Hour)
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD  EODHDConfig  `toml:"eodhd"`
	Yahoo  YahooConfig  `toml:"yahoo"`
	ASX    ASXConfig    `toml:"asx"`
	Gemini GeminiConfig `toml:"gemini"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// YahooConfig toggles the Yahoo Finance fallback provider
type YahooConfig struct {
	Enabled bool `toml:"enabled"`
}

// ASXConfig holds ASX Markit Digital configuration (quote fallback for .AU tickers)
type ASXConfig struct {
	Enabled   bool   `toml:"enabled"`
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ASXConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// AnalyticsConfig holds the constants used by the portfolio analytics engine
type AnalyticsConfig struct {
	RiskFreeRate       float64 `toml:"risk_free_rate"`        // annualised, e.g. 0.05
	TradingDaysPerYear int     `toml:"trading_days_per_year"` // 252
	MinObservations    int     `toml:"min_observations"`
	Benchmark          string  `toml:"benchmark"` // e.g. "^GSPC"
	Period             string  `toml:"period"`    // lookback, e.g. "1y"
	VaRConfidence      float64 `toml:"var_confidence"`
	FetchConcurrency   int     `toml:"fetch_concurrency"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `toml:"level"`
	Format   string `toml:"format"` // "console" or "json"
	FilePath string `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Path: "data/prism",
		},
		Cache: CacheConfig{
			Backend:         "badger",
			PriceHistoryTTL: "5m",
			QuoteTTL:        "1m",
			CompanyInfoTTL:  "24h",
			JanitorSchedule: "@every 10m",
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Yahoo: YahooConfig{
				Enabled: true,
			},
			ASX: ASXConfig{
				Enabled:   true,
				BaseURL:   "https://asx.api.markitdigital.com/asx-research/1.0",
				RateLimit: 5,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Analytics: AnalyticsConfig{
			RiskFreeRate:       0.05,
			TradingDaysPerYear: 252,
			MinObservations:    5,
			Benchmark:          "^GSPC",
			Period:             "1y",
			VaRConfidence:      0.95,
			FetchConcurrency:   4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	normalizeAnalytics(&config.Analytics)

	return config, nil
}

// LoadDotEnv loads KEY=VALUE pairs from .env files into the process environment.
// Existing variables win; missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PRISM_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("PRISM_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("PRISM_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("PRISM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("PRISM_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Join(path, "prism")
	}

	if rf := os.Getenv("PRISM_RISK_FREE_RATE"); rf != "" {
		if v, err := strconv.ParseFloat(rf, 64); err == nil {
			config.Analytics.RiskFreeRate = v
		}
	}

	if b := os.Getenv("PRISM_BENCHMARK"); b != "" {
		config.Analytics.Benchmark = strings.ToUpper(b)
	}
}

// normalizeAnalytics restores defaults for values that would break the formulas
func normalizeAnalytics(a *AnalyticsConfig) {
	if a.TradingDaysPerYear <= 0 {
		a.TradingDaysPerYear = 252
	}
	if a.MinObservations < 2 {
		a.MinObservations = 5
	}
	if a.VaRConfidence <= 0 || a.VaRConfidence >= 1 {
		a.VaRConfidence = 0.95
	}
	if a.FetchConcurrency <= 0 {
		a.FetchConcurrency = 1
	}
	if a.Period == "" {
		a.Period = "1y"
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment or fallback
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":  {"EODHD_API_KEY", "PRISM_EODHD_API_KEY"},
		"gemini_api_key": {"GEMINI_API_KEY", "PRISM_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
