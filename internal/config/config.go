package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Cache      CacheConfig      `json:"cache"`
	Auth       AuthConfig       `json:"auth"`
	MarketData MarketDataConfig `json:"market_data"`
	Advisor    AdvisorConfig    `json:"advisor"`
	Analytics  AnalyticsConfig  `json:"analytics"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Logger     LoggerConfig     `json:"logger"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port           int    `json:"port"`
	Host           string `json:"host"`
	Environment    string `json:"environment"`
	ReadTimeout    int    `json:"read_timeout"`
	WriteTimeout   int    `json:"write_timeout"`
	MaxHeaderBytes int    `json:"max_header_bytes"`

	AllowedOrigins []string `json:"allowed_origins"`
}

// DatabaseConfig represents Postgres configuration
type DatabaseConfig struct {
	DSN             string `json:"dsn"`
	MaxOpenConns    int    `json:"max_open_conns"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	ConnMaxLifetime int    `json:"conn_max_lifetime"`
	ConnectTimeout  int    `json:"connect_timeout"`
}

// CacheConfig represents Redis cache configuration
type CacheConfig struct {
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	Password           string        `json:"password"`
	DB                 int           `json:"db"`
	MaxRetries         int           `json:"max_retries"`
	PoolSize           int           `json:"pool_size"`
	MinIdleConnections int           `json:"min_idle_connections"`
	DialTimeout        time.Duration `json:"dial_timeout"`
	ReadTimeout        time.Duration `json:"read_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout"`

	// TTL settings
	MarketDataTTL time.Duration `json:"market_data_ttl"`
	MetricsTTL    time.Duration `json:"metrics_ttl"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	JWTSecret   string `json:"jwt_secret"`
	RequireAuth bool   `json:"require_auth"`
	AdminRole   string `json:"admin_role"`
}

// MarketDataConfig represents the market-data provider configuration
type MarketDataConfig struct {
	BaseURL         string        `json:"base_url"`
	Timeout         time.Duration `json:"timeout"`
	MaxRetries      int           `json:"max_retries"`
	BenchmarkSymbol string        `json:"benchmark_symbol"`
	TBillSymbol     string        `json:"tbill_symbol"`
}

// AdvisorConfig represents the LLM recommendation client configuration
type AdvisorConfig struct {
	APIKey  string        `json:"api_key"`
	Model   string        `json:"model"`
	Timeout time.Duration `json:"timeout"`
	Enabled bool          `json:"enabled"`
}

// AnalyticsConfig represents the numeric-core settings
type AnalyticsConfig struct {
	RiskFreeRate  float64 `json:"risk_free_rate"`
	Simulations   int     `json:"simulations"`
	BenchmarkName string  `json:"benchmark_name"`
}

// SchedulerConfig represents background job scheduling configuration
type SchedulerConfig struct {
	Enabled           bool   `json:"enabled"`
	CacheWarmInterval string `json:"cache_warm_interval"` // Cron expression
	TimeZone          string `json:"timezone"`
}

// LoggerConfig represents logging configuration
type LoggerConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	Output     string `json:"output"`
	Filename   string `json:"filename"`
	MaxSize    int    `json:"max_size"`
	MaxAge     int    `json:"max_age"`
	MaxBackups int    `json:"max_backups"`
	Compress   bool   `json:"compress"`
}

// Load loads configuration from environment variables
func Load() *Config {
	// Load .env file if exists
	godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("SERVER_PORT", 8084),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ReadTimeout:    getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout:   getEnvInt("SERVER_WRITE_TIMEOUT", 30),
			MaxHeaderBytes: getEnvInt("SERVER_MAX_HEADER_BYTES", 1048576),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),
		},

		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_URL", "postgres://localhost:5432/clockwise?sslmode=disable"),
			MaxOpenConns:    getEnvInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("DATABASE_CONN_MAX_LIFETIME", 300),
			ConnectTimeout:  getEnvInt("DATABASE_CONNECT_TIMEOUT", 10),
		},

		Cache: CacheConfig{
			Host:               getEnv("REDIS_HOST", "localhost"),
			Port:               getEnvInt("REDIS_PORT", 6379),
			Password:           getEnv("REDIS_PASSWORD", ""),
			DB:                 getEnvInt("REDIS_DB", 0),
			MaxRetries:         getEnvInt("REDIS_MAX_RETRIES", 3),
			PoolSize:           getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConnections: getEnvInt("REDIS_MIN_IDLE_CONNECTIONS", 5),
			DialTimeout:        getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:        getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:       getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			MarketDataTTL:      getEnvDuration("CACHE_MARKET_DATA_TTL", 24*time.Hour),
			MetricsTTL:         getEnvDuration("CACHE_METRICS_TTL", 10*time.Minute),
		},

		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", "default-secret-key"),
			RequireAuth: getEnvBool("REQUIRE_AUTH", true),
			AdminRole:   getEnv("ADMIN_ROLE", "admin"),
		},

		MarketData: MarketDataConfig{
			BaseURL:         getEnv("MARKET_DATA_API_URL", "https://query1.finance.yahoo.com"),
			Timeout:         getEnvDuration("MARKET_DATA_API_TIMEOUT", 30*time.Second),
			MaxRetries:      getEnvInt("MARKET_DATA_API_MAX_RETRIES", 3),
			BenchmarkSymbol: getEnv("BENCHMARK_SYMBOL", "^SP500TR"),
			TBillSymbol:     getEnv("TBILL_SYMBOL", "^IRX"),
		},

		Advisor: AdvisorConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout: getEnvDuration("OPENAI_TIMEOUT", 20*time.Second),
			Enabled: getEnvBool("ADVISOR_ENABLED", true),
		},

		Analytics: AnalyticsConfig{
			RiskFreeRate:  getEnvFloat("RISK_FREE_RATE", 0.04),
			Simulations:   getEnvInt("GOAL_SIMULATIONS", 5000),
			BenchmarkName: getEnv("BENCHMARK_NAME", "S&P 500 TR"),
		},

		Scheduler: SchedulerConfig{
			Enabled:           getEnvBool("SCHEDULER_ENABLED", true),
			CacheWarmInterval: getEnv("SCHEDULER_CACHE_WARM_INTERVAL", "0 5 * * *"), // Daily at 5 AM
			TimeZone:          getEnv("SCHEDULER_TIMEZONE", "UTC"),
		},

		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			Filename:   getEnv("LOG_FILENAME", ""),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 28),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
	}

	return config
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "default-secret-key" {
		logrus.Warn("Using default JWT secret key, this is not recommended for production")
	}

	if c.MarketData.BaseURL == "" {
		return fmt.Errorf("market data API URL is required")
	}

	if c.Advisor.Enabled && c.Advisor.APIKey == "" {
		logrus.Warn("Advisor enabled without an API key, recommendations will use fallback copy")
	}

	return nil
}
