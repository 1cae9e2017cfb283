package config

import (
	"os"
	"strconv"
)

// Config is the process-level configuration, loaded from the
// environment at startup. Trading behavior itself lives in the
// store-backed automation config and is reloaded every tick.
type Config struct {
	ServerConfig   ServerConfig
	DatabaseConfig DatabaseConfig
	RedisConfig    RedisConfig
	MarketConfig   MarketConfig
	NotifyConfig   NotifyConfig
	LoggingConfig  LoggingConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis settings; an empty Addr disables Redis and
// falls back to in-memory dedup state
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MarketConfig holds market-data service settings
type MarketConfig struct {
	BaseURL       string
	APIKey        string
	QuoteCacheTTL int // seconds
}

// NotifyConfig holds outbound notification settings; empty URLs
// disable the corresponding provider
type NotifyConfig struct {
	DiscordWebhookURL string
	WebhookURL        string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string
	JSONFormat bool
}

// Load reads configuration from the environment with sensible defaults
func Load() *Config {
	return &Config{
		ServerConfig: ServerConfig{
			Host: getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port: getEnvIntOrDefault("SERVER_PORT", 8090),
		},
		DatabaseConfig: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "autopilot"),
			Password: getEnvOrDefault("DB_PASSWORD", "autopilot"),
			Database: getEnvOrDefault("DB_NAME", "autopilot"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
		RedisConfig: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getEnvIntOrDefault("REDIS_DB", 0),
		},
		MarketConfig: MarketConfig{
			BaseURL:       getEnvOrDefault("MARKET_DATA_URL", "http://localhost:8100"),
			APIKey:        getEnvOrDefault("MARKET_DATA_API_KEY", ""),
			QuoteCacheTTL: getEnvIntOrDefault("QUOTE_CACHE_TTL_SECONDS", 15),
		},
		NotifyConfig: NotifyConfig{
			DiscordWebhookURL: getEnvOrDefault("DISCORD_WEBHOOK_URL", ""),
			WebhookURL:        getEnvOrDefault("NOTIFY_WEBHOOK_URL", ""),
		},
		LoggingConfig: LoggingConfig{
			Level:      getEnvOrDefault("LOG_LEVEL", "info"),
			JSONFormat: getEnvOrDefault("LOG_JSON", "true") == "true",
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
