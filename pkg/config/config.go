package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the engine.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data provider
	Polygon PolygonConfig

	// Engine tunables
	Engine EngineConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// PolygonConfig holds market data provider configuration
type PolygonConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Requests per second allowed against the provider.
	RateLimit int
}

// EngineConfig holds signal engine tunables
type EngineConfig struct {
	// Convex blend between rule score and learned-model probability.
	// 0 = pure rules, 1 = pure model. Applied only when an active model exists.
	MLWeight float64

	// Universe snapshot cache TTL.
	UniverseCacheTTL time.Duration

	// Maximum symbols scanned per generation run.
	MaxUniverseSize int

	// Concurrent symbol workers per generation run.
	Workers int

	// Retraining lookback and promotion guard.
	TrainLookbackDays int
	TrainMinSamples   int
	RegressTolerance  float64
	OverfitMaxGap     float64
}

// SchedulerConfig holds cron scheduler configuration
type SchedulerConfig struct {
	Enabled bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Polygon: PolygonConfig{
			APIKey:    getEnv("POLYGON_API_KEY", ""),
			BaseURL:   getEnv("POLYGON_BASE_URL", "https://api.polygon.io"),
			Timeout:   getEnvAsDuration("POLYGON_TIMEOUT", "5s"),
			RateLimit: getEnvAsInt("POLYGON_RATE_LIMIT", 10),
		},

		Engine: EngineConfig{
			MLWeight:          getEnvAsFloat("SCORE_ML_WEIGHT", 0.5),
			UniverseCacheTTL:  getEnvAsDuration("UNIVERSE_CACHE_TTL", "60s"),
			MaxUniverseSize:   getEnvAsInt("MAX_UNIVERSE_SIZE", 100),
			Workers:           getEnvAsInt("ENGINE_WORKERS", 4),
			TrainLookbackDays: getEnvAsInt("TRAIN_LOOKBACK_DAYS", 30),
			TrainMinSamples:   getEnvAsInt("TRAIN_MIN_SAMPLES", 50),
			RegressTolerance:  getEnvAsFloat("TRAIN_REGRESS_TOLERANCE", 0.05),
			OverfitMaxGap:     getEnvAsFloat("TRAIN_OVERFIT_MAX_GAP", 0.20),
		},

		Scheduler: SchedulerConfig{
			Enabled: getEnvAsBool("SCHEDULER_ENABLED", true),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Engine.MLWeight < 0 || c.Engine.MLWeight > 1 {
		return fmt.Errorf("SCORE_ML_WEIGHT must be in [0, 1]")
	}

	if c.Engine.Workers < 1 {
		return fmt.Errorf("ENGINE_WORKERS must be >= 1")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
