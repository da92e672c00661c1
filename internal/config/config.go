package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Market    MarketConfig
	Analytics AnalyticsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Brokers        []string
	TradesTopic    string
	PositionsTopic string
	FillsTopic     string
	ConsumerGroup  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// MarketConfig holds market data provider configuration
type MarketConfig struct {
	BaseURL  string
	APIKey   string
	Symbol   string
	CacheTTL int // seconds
}

// AnalyticsConfig holds tunables for the analytics engine
type AnalyticsConfig struct {
	SellScanWindow  int
	RSIPeriod       int
	EMAFast         int
	EMASlow         int
	MorningCronSpec string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8082"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "trader"),
			Password: getEnv("DB_PASSWORD", "trader5"),
			DBName:   getEnv("DB_NAME", "leaps_dashboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:        parseBrokers(getEnv("KAFKA_BROKERS", "localhost:19092")),
			TradesTopic:    getEnv("KAFKA_TRADES_TOPIC", "leaps.trades"),
			PositionsTopic: getEnv("KAFKA_POSITIONS_TOPIC", "leaps.positions"),
			FillsTopic:     getEnv("KAFKA_FILLS_TOPIC", "trading.fills"),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "leaps-dashboard"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
		Market: MarketConfig{
			BaseURL:  getEnv("MARKET_BASE_URL", "https://api.polygon.io"),
			APIKey:   getEnv("MARKET_API_KEY", ""),
			Symbol:   getEnv("MARKET_SYMBOL", "SPY"),
			CacheTTL: getEnvInt("MARKET_CACHE_TTL", 60),
		},
		Analytics: AnalyticsConfig{
			SellScanWindow:  getEnvInt("ANALYTICS_SELL_SCAN_WINDOW", 10),
			RSIPeriod:       getEnvInt("ANALYTICS_RSI_PERIOD", 14),
			EMAFast:         getEnvInt("ANALYTICS_EMA_FAST", 12),
			EMASlow:         getEnvInt("ANALYTICS_EMA_SLOW", 26),
			MorningCronSpec: getEnv("ANALYTICS_MORNING_CRON", "30 9 * * MON-FRI"),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// parseBrokers splits a comma-separated broker list
func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
