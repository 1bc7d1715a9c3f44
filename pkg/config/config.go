package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process-level configuration for the engine
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
// 스코어링 파라미터(가중치, 임계값)는 internal/scoringconfig 에서 관리
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Engine
	Engine EngineConfig

	// API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
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

// EngineConfig holds batch-run settings that are not scoring parameters
type EngineConfig struct {
	ScoringConfigPath string        // YAML 기본값 경로
	Schedule          string        // cron (seconds 포함)
	WarmupSchedule    string        // outlier 캐시 워밍 cron
	Workers           int           // 보드 집계 병렬도 (0 = NumCPU)
	RunTimeout        time.Duration // 일별 배치 1회 최대 실행 시간
}

// APIConfig holds read-path server settings
type APIConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	CacheTTL       time.Duration
	MaxBatchCodes  int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
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
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Engine: EngineConfig{
			ScoringConfigPath: getEnv("SCORING_CONFIG_PATH", "config/scoring.yaml"),
			Schedule:          getEnv("SCHEDULE_CRON", "0 30 18 * * 1-5"), // 평일 18:30 (장 마감 데이터 적재 후)
			WarmupSchedule:    getEnv("WARMUP_CRON", "0 45 18 * * 1-5"),
			Workers:           getEnvAsInt("ENGINE_WORKERS", 0),
			RunTimeout:        getEnvAsDuration("ENGINE_RUN_TIMEOUT", "30m"),
		},

		API: APIConfig{
			RateLimitRPS:   getEnvAsFloat("API_RATE_LIMIT_RPS", 20),
			RateLimitBurst: getEnvAsInt("API_RATE_LIMIT_BURST", 40),
			CacheTTL:       getEnvAsDuration("API_CACHE_TTL", "10m"),
			MaxBatchCodes:  getEnvAsInt("API_MAX_BATCH_CODES", 500),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
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

	if c.Engine.Workers < 0 {
		return fmt.Errorf("ENGINE_WORKERS must be >= 0")
	}

	if c.API.MaxBatchCodes <= 0 {
		return fmt.Errorf("API_MAX_BATCH_CODES must be > 0")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
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
