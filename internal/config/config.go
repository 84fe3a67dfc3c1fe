package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the whole application configuration, populated from
// environment variables.
type Config struct {
	App    AppConfig
	Redis  RedisConfig
	JWT    JWTConfig
	MinIO  MinIOConfig
	Ledger LedgerConfig
	Worker WorkerConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LedgerConfig points the engine at its blockchain node
type LedgerConfig struct {
	RPCURL string

	// PayoutSigner is the platform account royalty payouts are signed with
	PayoutSigner string

	// Retry budget for transient node failures
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// WorkerConfig tunes the background job runner
type WorkerConfig struct {
	Concurrency      int
	ReapBatchSize    int
	PayoutBatchSize  int
	EvictionScanSize int
}

// Load reads config from environment variables
func Load() (*Config, error) {
	initialDelay, err := time.ParseDuration(getEnv("LEDGER_RETRY_INITIAL_DELAY", "250ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_RETRY_INITIAL_DELAY: %w", err)
	}
	maxDelay, err := time.ParseDuration(getEnv("LEDGER_RETRY_MAX_DELAY", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_RETRY_MAX_DELAY: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Bookchain API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "bookchain"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
		Ledger: LedgerConfig{
			RPCURL:       getEnv("LEDGER_RPC_URL", "http://localhost:8545"),
			PayoutSigner: getEnv("LEDGER_PAYOUT_SIGNER", ""),
			MaxAttempts:  getEnvInt("LEDGER_RETRY_MAX_ATTEMPTS", 5),
			InitialDelay: initialDelay,
			MaxDelay:     maxDelay,
		},
		Worker: WorkerConfig{
			Concurrency:      getEnvInt("WORKER_CONCURRENCY", 10),
			ReapBatchSize:    getEnvInt("WORKER_REAP_BATCH_SIZE", 100),
			PayoutBatchSize:  getEnvInt("WORKER_PAYOUT_BATCH_SIZE", 50),
			EvictionScanSize: getEnvInt("WORKER_EVICTION_SCAN_SIZE", 100),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Ledger.PayoutSigner == "" {
			return fmt.Errorf("LEDGER_PAYOUT_SIGNER must be set in production")
		}
	}

	if c.Ledger.MaxAttempts < 1 {
		return fmt.Errorf("LEDGER_RETRY_MAX_ATTEMPTS must be at least 1")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
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
