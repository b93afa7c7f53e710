package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL    string
	MigrateOnStart bool

	MaxCapacity decimal.Decimal
	UnitPrice   decimal.Decimal
	Location    *time.Location

	Kafka KafkaConfig
	Redis RedisConfig
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// ProcessingLease bounds how long a claimed outbox task may stay
	// PROCESSING before another run reclaims it.
	ProcessingLease time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// LoadEnvFile loads the first .env found in the working directory or its
// two parents, falling back to .example.env. It returns the loaded path.
func LoadEnvFile() (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	possiblePaths := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	for _, envPath := range possiblePaths {
		if err := godotenv.Load(envPath); err == nil {
			return envPath, true
		}
	}

	for _, envPath := range possiblePaths {
		examplePath := filepath.Join(filepath.Dir(envPath), ".example.env")
		if err := godotenv.Load(examplePath); err == nil {
			return examplePath, true
		}
	}

	return "", false
}

// Load reads configuration from the process environment. Call LoadEnvFile
// first to pick up a local .env.
func Load() (Config, error) {
	cfg := Config{
		Port:     getEnv("PORT", "3000"),
		Env:      strings.ToLower(getEnv("ENV", EnvDevelopment)),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "milk_order_events"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
	}

	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return Config{}, fmt.Errorf("unknown ENV %q", cfg.Env)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = generateDsn()
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is not set")
	}

	var err error
	if cfg.MigrateOnStart, err = getBool("MIGRATE_ON_START", true); err != nil {
		return Config{}, err
	}
	if cfg.MaxCapacity, err = getDecimal("MAX_CAPACITY", "1000"); err != nil {
		return Config{}, err
	}
	if !cfg.MaxCapacity.IsPositive() || cfg.MaxCapacity.GreaterThan(decimal.RequireFromString("9999999.99")) {
		return Config{}, errors.New("MAX_CAPACITY must be positive and at most 9999999.99")
	}
	if cfg.UnitPrice, err = getDecimal("UNIT_PRICE", "70"); err != nil {
		return Config{}, err
	}
	if cfg.UnitPrice.LessThan(decimal.NewFromInt(1)) || cfg.UnitPrice.GreaterThan(decimal.RequireFromString("99999.99")) {
		return Config{}, errors.New("UNIT_PRICE must be between 1 and 99999.99")
	}

	tz := getEnv("TIMEZONE", "Local")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	if cfg.Kafka.PollInterval, err = getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Kafka.BatchSize, err = getInt("OUTBOX_BATCH_SIZE", 20); err != nil {
		return Config{}, err
	}
	if cfg.Kafka.MaxAttempts, err = getInt("OUTBOX_MAX_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}
	if cfg.Kafka.ProcessingLease, err = getDuration("OUTBOX_PROCESSING_LEASE", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func generateDsn() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	port := getEnv("DB_PORT", "5432")
	user := os.Getenv("POSTGRES_USER")
	password := os.Getenv("POSTGRES_PASSWORD")
	dbname := os.Getenv("POSTGRES_DB")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, dbname)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v.Round(2), nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
