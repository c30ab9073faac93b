package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process configuration, read from the environment (and .env when present)
type Config struct {
	HTTPAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBMaxConns int32

	MigrationsPath string

	// BidTxTimeout bounds the whole locked validate+write sequence of a bid or settlement
	BidTxTimeout time.Duration
	// BidMaxRetries is how many times a conflicting write is re-validated before giving up
	BidMaxRetries int

	// SweepInterval enables the proactive settlement sweep when > 0
	SweepInterval time.Duration
	SweepBatch    int

	NatsURL    string
	NatsStream string
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:       GetEnv("HTTP_ADDR", ":9000"),
		DBHost:         GetEnv("DB_HOST", "localhost"),
		DBPort:         GetEnv("DB_PORT", "5432"),
		DBUser:         GetEnv("DB_USER", "postgres"),
		DBPassword:     GetEnv("DB_PASSWORD", ""),
		DBName:         GetEnv("DB_NAME", "auctions"),
		DBSSLMode:      GetEnv("DB_SSLMODE", "disable"),
		MigrationsPath: GetEnv("MIGRATIONS_PATH", "file://internal/shared/db/migrations/sql"),
		NatsURL:        GetEnv("NATS_URL", ""),
		NatsStream:     GetEnv("NATS_STREAM", "AUCTION_EVENTS"),
	}

	var err error
	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	cfg.DBMaxConns = int32(maxConns)

	if cfg.BidTxTimeout, err = getEnvDuration("BID_TX_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.BidMaxRetries, err = getEnvInt("BID_MAX_RETRIES", 5); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.SweepBatch, err = getEnvInt("SWEEP_BATCH", 100); err != nil {
		return nil, err
	}

	if cfg.BidTxTimeout <= 0 {
		return nil, fmt.Errorf("config: BID_TX_TIMEOUT must be positive, got %s", cfg.BidTxTimeout)
	}
	if cfg.BidMaxRetries < 1 {
		return nil, fmt.Errorf("config: BID_MAX_RETRIES must be at least 1, got %d", cfg.BidMaxRetries)
	}
	return cfg, nil
}

// PostgresDSN builds the postgres:// url used by both pgx and golang-migrate
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// GetEnv returns the env value for key or fallback when unset or empty
func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
