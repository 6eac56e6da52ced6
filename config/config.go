package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"crypto-portfolio/models"
)

// State backends
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// DefaultStateName is the name of the persisted state blob
const DefaultStateName = "crypto-portfolio"

// Config holds all application configuration
type Config struct {
	// Market data configuration
	Market MarketConfig `yaml:"market"`

	// Holdings state persistence
	State StateConfig `yaml:"state"`

	// Caching and refresh policy
	Cache CacheConfig `yaml:"cache"`

	// HTTP configuration
	HTTP HTTPConfig `yaml:"http"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// MarketConfig holds market data provider configuration
type MarketConfig struct {
	UseMockData           bool   `yaml:"use_mock_data"`
	APIKey                string `yaml:"api_key"`
	BaseURL               string `yaml:"base_url"`
	AssetBaseURL          string `yaml:"asset_base_url"`
	TopListURL            string `yaml:"top_list_url"`
	TargetCurrency        string `yaml:"target_currency"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// StateConfig holds holdings store persistence configuration
type StateConfig struct {
	Backend     string `yaml:"backend"` // file, sqlite, postgres or memory
	Name        string `yaml:"name"`
	File        string `yaml:"file"`
	Passphrase  string `yaml:"passphrase"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
}

// CacheConfig holds the caller-side cache and refresh policy
type CacheConfig struct {
	PriceTTLSeconds     int `yaml:"price_ttl_seconds"`
	PriceRefreshSeconds int `yaml:"price_refresh_seconds"`
	HistoryTTLSeconds   int `yaml:"history_ttl_seconds"`
	DetailsTTLSeconds   int `yaml:"details_ttl_seconds"`
	CoinListTTLSeconds  int `yaml:"coin_list_ttl_seconds"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               int    `yaml:"port"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	CORSAllowedOrigins string `yaml:"cors_allowed_origins"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Production bool   `yaml:"production"`
	Level      string `yaml:"level"`
}

// Load loads configuration from the YAML file named by PORTFOLIO_CONFIG, if
// any, then applies environment variable overrides
func Load() (*Config, error) {
	return LoadFile(os.Getenv("PORTFOLIO_CONFIG"))
}

// LoadFile loads configuration from path (which may be empty or missing)
// followed by environment variable overrides
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.Market.TargetCurrency = models.NormalizeCurrency(cfg.Market.TargetCurrency)
	cfg.State.Backend = strings.ToLower(strings.TrimSpace(cfg.State.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Market: MarketConfig{
			BaseURL:               "https://min-api.cryptocompare.com/data",
			AssetBaseURL:          "https://data-api.cryptocompare.com/asset/v1",
			TopListURL:            "https://data.messari.io/api/v1/assets",
			TargetCurrency:        models.DefaultCurrency,
			RequestTimeoutSeconds: 30,
		},
		State: StateConfig{
			Backend:    BackendFile,
			Name:       DefaultStateName,
			File:       "portfolio-state.json",
			SQLitePath: "portfolio.db",
		},
		Cache: CacheConfig{
			PriceTTLSeconds:     120,
			PriceRefreshSeconds: 300,
			HistoryTTLSeconds:   900,
			DetailsTTLSeconds:   600,
			CoinListTTLSeconds:  600,
		},
		HTTP: HTTPConfig{
			Port:               8080,
			TimeoutSeconds:     30,
			CORSAllowedOrigins: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) applyEnv() {
	c.Market.UseMockData = getEnvBool("USE_MOCK_DATA", c.Market.UseMockData)
	c.Market.APIKey = getEnvString("CRYPTOCOMPARE_API_KEY", c.Market.APIKey)
	c.Market.BaseURL = getEnvString("CRYPTOCOMPARE_API_BASE", c.Market.BaseURL)
	c.Market.AssetBaseURL = getEnvString("ASSET_DATA_API_BASE", c.Market.AssetBaseURL)
	c.Market.TopListURL = getEnvString("TOP_LIST_API_URL", c.Market.TopListURL)
	c.Market.TargetCurrency = getEnvString("TARGET_CURRENCY", c.Market.TargetCurrency)
	c.Market.RequestTimeoutSeconds = getEnvInt("MARKET_TIMEOUT_SECONDS", c.Market.RequestTimeoutSeconds)

	c.State.Backend = getEnvString("STATE_BACKEND", c.State.Backend)
	c.State.Name = getEnvString("STATE_NAME", c.State.Name)
	c.State.File = getEnvString("STATE_FILE", c.State.File)
	c.State.Passphrase = getEnvString("STATE_PASSPHRASE", c.State.Passphrase)
	c.State.SQLitePath = getEnvString("SQLITE_PATH", c.State.SQLitePath)
	c.State.DatabaseURL = getEnvString("DATABASE_URL", c.State.DatabaseURL)

	c.Cache.PriceTTLSeconds = getEnvInt("PRICE_CACHE_TTL_SECONDS", c.Cache.PriceTTLSeconds)
	c.Cache.PriceRefreshSeconds = getEnvInt("PRICE_REFRESH_SECONDS", c.Cache.PriceRefreshSeconds)
	c.Cache.HistoryTTLSeconds = getEnvInt("HISTORY_CACHE_TTL_SECONDS", c.Cache.HistoryTTLSeconds)
	c.Cache.DetailsTTLSeconds = getEnvInt("DETAILS_CACHE_TTL_SECONDS", c.Cache.DetailsTTLSeconds)
	c.Cache.CoinListTTLSeconds = getEnvInt("COIN_LIST_CACHE_TTL_SECONDS", c.Cache.CoinListTTLSeconds)

	c.HTTP.Port = getEnvInt("HTTP_PORT", c.HTTP.Port)
	c.HTTP.TimeoutSeconds = getEnvInt("HTTP_TIMEOUT_SECONDS", c.HTTP.TimeoutSeconds)
	c.HTTP.CORSAllowedOrigins = getEnvString("CORS_ALLOWED_ORIGINS", c.HTTP.CORSAllowedOrigins)

	c.Log.Production = getEnvBool("LOG_PRODUCTION", c.Log.Production)
	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !models.ValidCurrency(c.Market.TargetCurrency) {
		return fmt.Errorf("TARGET_CURRENCY must be an ISO-4217 code, got %q", c.Market.TargetCurrency)
	}

	switch c.State.Backend {
	case BackendFile:
		if c.State.File == "" {
			return fmt.Errorf("STATE_FILE is required for the file backend")
		}
	case BackendSQLite:
		if c.State.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.State.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STATE_BACKEND must be one of file, sqlite, postgres, memory, got %q", c.State.Backend)
	}
	if c.State.Name == "" {
		return fmt.Errorf("STATE_NAME must not be empty")
	}

	if c.Cache.PriceTTLSeconds <= 0 {
		return fmt.Errorf("PRICE_CACHE_TTL_SECONDS must be positive, got %d", c.Cache.PriceTTLSeconds)
	}
	if c.Cache.PriceRefreshSeconds <= 0 {
		return fmt.Errorf("PRICE_REFRESH_SECONDS must be positive, got %d", c.Cache.PriceRefreshSeconds)
	}
	if c.Cache.HistoryTTLSeconds <= 0 {
		return fmt.Errorf("HISTORY_CACHE_TTL_SECONDS must be positive, got %d", c.Cache.HistoryTTLSeconds)
	}
	if c.Cache.DetailsTTLSeconds <= 0 {
		return fmt.Errorf("DETAILS_CACHE_TTL_SECONDS must be positive, got %d", c.Cache.DetailsTTLSeconds)
	}
	if c.Cache.CoinListTTLSeconds <= 0 {
		return fmt.Errorf("COIN_LIST_CACHE_TTL_SECONDS must be positive, got %d", c.Cache.CoinListTTLSeconds)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got %d", c.HTTP.TimeoutSeconds)
	}

	return nil
}

// HasAPIKey returns true if a CryptoCompare API key is configured
func (c *Config) HasAPIKey() bool {
	return c.Market.APIKey != ""
}

// HasPassphrase returns true if the state file should be sealed
func (c *Config) HasPassphrase() bool {
	return c.State.Passphrase != ""
}

// PriceTTL is how long a fetched price map stays fresh
func (c *Config) PriceTTL() time.Duration {
	return time.Duration(c.Cache.PriceTTLSeconds) * time.Second
}

// PriceRefreshInterval is the background refresh period
func (c *Config) PriceRefreshInterval() time.Duration {
	return time.Duration(c.Cache.PriceRefreshSeconds) * time.Second
}

// HistoryTTL is how long a fetched OHLC series stays fresh
func (c *Config) HistoryTTL() time.Duration {
	return time.Duration(c.Cache.HistoryTTLSeconds) * time.Second
}

// DetailsTTL is how long fetched asset details stay fresh
func (c *Config) DetailsTTL() time.Duration {
	return time.Duration(c.Cache.DetailsTTLSeconds) * time.Second
}

// CoinListTTL is how long the coin-selection list stays fresh
func (c *Config) CoinListTTL() time.Duration {
	return time.Duration(c.Cache.CoinListTTLSeconds) * time.Second
}

// MarketTimeout is the per-request timeout for the market data provider
func (c *Config) MarketTimeout() time.Duration {
	return time.Duration(c.Market.RequestTimeoutSeconds) * time.Second
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.HTTP.Port)
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing. It uses
// mock market data and in-memory state.
func NewTestConfig() *Config {
	cfg := defaults()
	cfg.Market.UseMockData = true
	cfg.State.Backend = BackendMemory
	return cfg
}
