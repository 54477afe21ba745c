package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage modes accepted by STORAGE_MODE.
const (
	StorageConsole  = "console"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageRedis    = "redis"
	StorageNone     = "none"
)

// Bounds enforced by Validate.
const (
	MaxFeeCushion      = 0.10
	MinRefreshInterval = 60 * time.Second
	MaxRefreshInterval = 3600 * time.Second
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel    string
	HTTPPort    string
	CORSOrigins []string

	// Polymarket API
	PolymarketBaseURL   string
	PolymarketPageLimit int
	PolymarketMaxPages  int

	// Odds API
	OddsAPIBaseURL       string
	OddsAPIKey           string
	OddsAPIRegions       string
	OddsAPIMarkets       string
	OddsAPIBookmakers    string
	OddsAPIRatePerSec    float64
	OddsFetchConcurrency int

	// Engine
	FeeCushion       float64
	RefreshInterval  time.Duration
	SportAllowlist   []string
	IncludeNonSports bool
	LeaguesFile      string

	// HTTP fetcher
	HTTPRetries     int
	HTTPBackoffBase time.Duration
	HTTPTimeout     time.Duration

	// Cache
	CacheMaxItems int64

	// Storage
	StorageMode   string // console, postgres, sqlite, redis or none
	PostgresHost  string
	PostgresPort  string
	PostgresUser  string
	PostgresPass  string
	PostgresDB    string
	PostgresSSL   string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort:    getEnvOrDefault("HTTP_PORT", "8080"),
		CORSOrigins: splitList(getEnvOrDefault("CORS_ORIGINS", "*")),

		// Polymarket defaults
		PolymarketBaseURL:   getEnvOrDefault("POLYMARKET_BASE_URL", "https://gamma-api.polymarket.com"),
		PolymarketPageLimit: getIntOrDefault("POLYMARKET_PAGE_LIMIT", 500),
		PolymarketMaxPages:  getIntOrDefault("POLYMARKET_MAX_PAGES", 5),

		// Odds API defaults
		OddsAPIBaseURL:       getEnvOrDefault("ODDS_API_BASE_URL", "https://api.the-odds-api.com/v4"),
		OddsAPIKey:           os.Getenv("ODDS_API_KEY"),
		OddsAPIRegions:       getEnvOrDefault("ODDS_API_REGIONS", "us"),
		OddsAPIMarkets:       getEnvOrDefault("ODDS_API_MARKETS", "h2h"),
		OddsAPIBookmakers:    os.Getenv("ODDS_API_BOOKMAKERS"),
		OddsAPIRatePerSec:    getFloat64OrDefault("ODDS_API_RATE_PER_SEC", 2),
		OddsFetchConcurrency: getIntOrDefault("ODDS_FETCH_CONCURRENCY", 4),

		// Engine defaults
		FeeCushion:       getFloat64OrDefault("FEE_CUSHION", 0.02),
		RefreshInterval:  time.Duration(getIntOrDefault("REFRESH_INTERVAL_SECONDS", 300)) * time.Second,
		SportAllowlist:   splitList(os.Getenv("SPORT_ALLOWLIST")),
		IncludeNonSports: getBoolOrDefault("INCLUDE_NON_SPORTS", false),
		LeaguesFile:      os.Getenv("LEAGUES_FILE"),

		// Fetcher defaults
		HTTPRetries:     getIntOrDefault("HTTP_RETRIES", 3),
		HTTPBackoffBase: getDurationOrDefault("HTTP_BACKOFF_BASE", 500*time.Millisecond),
		HTTPTimeout:     getDurationOrDefault("HTTP_TIMEOUT", 20*time.Second),

		CacheMaxItems: int64(getIntOrDefault("CACHE_MAX_ITEMS", 1000)),

		// Storage defaults
		StorageMode:   getEnvOrDefault("STORAGE_MODE", StorageConsole),
		PostgresHost:  getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:  getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser:  getEnvOrDefault("POSTGRES_USER", "polymarket"),
		PostgresPass:  getEnvOrDefault("POSTGRES_PASSWORD", "polymarket123"),
		PostgresDB:    getEnvOrDefault("POSTGRES_DB", "polymarket_edge"),
		PostgresSSL:   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		SQLitePath:    getEnvOrDefault("SQLITE_PATH", "polymarket-edge.db"),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getIntOrDefault("REDIS_DB", 0),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
// ODDS_API_KEY is not required here; commands that call the Odds API check it themselves.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.PolymarketBaseURL == "" {
		return fmt.Errorf("POLYMARKET_BASE_URL cannot be empty")
	}

	if c.OddsAPIBaseURL == "" {
		return fmt.Errorf("ODDS_API_BASE_URL cannot be empty")
	}

	if c.FeeCushion < 0 || c.FeeCushion > MaxFeeCushion {
		return fmt.Errorf("FEE_CUSHION must be between 0 and %.2f, got %f", MaxFeeCushion, c.FeeCushion)
	}

	if c.RefreshInterval < MinRefreshInterval || c.RefreshInterval > MaxRefreshInterval {
		return fmt.Errorf("REFRESH_INTERVAL_SECONDS must be between %d and %d, got %d",
			int(MinRefreshInterval.Seconds()), int(MaxRefreshInterval.Seconds()), int(c.RefreshInterval.Seconds()))
	}

	if c.PolymarketPageLimit <= 0 {
		return fmt.Errorf("POLYMARKET_PAGE_LIMIT must be positive, got %d", c.PolymarketPageLimit)
	}

	if c.PolymarketMaxPages <= 0 {
		return fmt.Errorf("POLYMARKET_MAX_PAGES must be positive, got %d", c.PolymarketMaxPages)
	}

	if c.HTTPRetries < 1 {
		return fmt.Errorf("HTTP_RETRIES must be at least 1, got %d", c.HTTPRetries)
	}

	if c.OddsFetchConcurrency < 1 {
		return fmt.Errorf("ODDS_FETCH_CONCURRENCY must be at least 1, got %d", c.OddsFetchConcurrency)
	}

	if c.CacheMaxItems <= 0 {
		return fmt.Errorf("CACHE_MAX_ITEMS must be positive, got %d", c.CacheMaxItems)
	}

	switch c.StorageMode {
	case StorageConsole, StoragePostgres, StorageSQLite, StorageRedis, StorageNone:
	default:
		return fmt.Errorf("STORAGE_MODE must be one of console, postgres, sqlite, redis, none, got %q", c.StorageMode)
	}

	return nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
