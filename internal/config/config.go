package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Feed       FeedConfig
	Settlement SettlementConfig
	Liveness   LivenessConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host string
	Port string
	Env  string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret      string
	TokenExpire time.Duration
}

// FeedConfig holds synthetic price feed configuration
type FeedConfig struct {
	TickInterval time.Duration
	MaxDriftPct  float64 // bound of the per-tick multiplicative perturbation
	Instruments  []string
}

// SettlementConfig holds settlement scheduler configuration
type SettlementConfig struct {
	TickInterval   time.Duration
	ReturnRatePct  float64 // profit percent credited on a win
	DefaultWinRate float64 // seed value for the platform win rate
}

// LivenessConfig holds connection liveness configuration
type LivenessConfig struct {
	ProbeInterval time.Duration
	Timeout       time.Duration
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			TokenExpire: time.Duration(getEnvAsInt("JWT_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		},
		Feed: FeedConfig{
			TickInterval: time.Duration(getEnvAsInt("FEED_TICK_SECONDS", 2)) * time.Second,
			MaxDriftPct:  getEnvAsFloat("FEED_MAX_DRIFT_PCT", 0.5),
			Instruments:  getEnvAsSlice("FEED_INSTRUMENTS", []string{"BTCUSD", "ETHUSD", "EURUSD", "XAUUSD"}, ","),
		},
		Settlement: SettlementConfig{
			TickInterval:   time.Duration(getEnvAsInt("SETTLEMENT_TICK_SECONDS", 1)) * time.Second,
			ReturnRatePct:  getEnvAsFloat("SETTLEMENT_RETURN_RATE_PCT", 80),
			DefaultWinRate: getEnvAsFloat("SETTLEMENT_DEFAULT_WIN_RATE", 30),
		},
		Liveness: LivenessConfig{
			ProbeInterval: time.Duration(getEnvAsInt("LIVENESS_PROBE_SECONDS", 30)) * time.Second,
			Timeout:       time.Duration(getEnvAsInt("LIVENESS_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}, ","),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.Feed.MaxDriftPct <= 0 {
		return nil, fmt.Errorf("FEED_MAX_DRIFT_PCT must be positive")
	}

	if cfg.Settlement.DefaultWinRate < 0 || cfg.Settlement.DefaultWinRate > 100 {
		return nil, fmt.Errorf("SETTLEMENT_DEFAULT_WIN_RATE must be between 0 and 100")
	}

	return cfg, nil
}

// Address returns the full server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsProduction returns true if running in production mode
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string, separator string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, separator)
}
