package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/promptforge/marketplace-api/internal/pkg/money"
)

// Idempotency key store backends
const (
	IdempotencyRedis  = "redis"
	IdempotencyBolt   = "bolt"
	IdempotencyMemory = "memory"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database. Empty DatabaseURL runs on in-memory stores.
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Redis
	RedisURL string

	// Idempotency
	IdempotencyBackend  string
	IdempotencyBoltPath string
	IdempotencyTTL      time.Duration

	// JWT
	JWTSecret    string
	JWTAccessTTL time.Duration

	// CORS
	AllowedOrigins []string

	// Ledger
	DefaultCurrency string
	Rounding        money.Rounding
	PurchaseTimeout time.Duration
	RefundWindow    time.Duration
	MinWithdrawal   decimal.Decimal

	// Statement storage (S3/MinIO). Empty S3Bucket stores statements on disk.
	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	LocalStorageDir string
	PublicBaseURL   string
	StatementURLTTL time.Duration

	// Logging
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file in development
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBMaxOpenConns: parseInt(getEnv("DB_MAX_OPEN_CONNS", "50"), 50),
		DBMaxIdleConns: parseInt(getEnv("DB_MAX_IDLE_CONNS", "25"), 25),
		RedisURL:       getEnv("REDIS_URL", ""),

		IdempotencyBackend:  strings.ToLower(getEnv("IDEMPOTENCY_BACKEND", "")),
		IdempotencyBoltPath: getEnv("IDEMPOTENCY_BOLT_PATH", "data/idempotency.db"),
		IdempotencyTTL:      parseDuration(getEnv("IDEMPOTENCY_TTL", "24h"), 24*time.Hour),

		JWTSecret:    getEnv("JWT_SECRET", "super-secret-key-change-me"),
		JWTAccessTTL: parseDuration(getEnv("JWT_ACCESS_TTL", "15m"), 15*time.Minute),

		AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		DefaultCurrency: money.NormalizeCurrency(getEnv("DEFAULT_CURRENCY", "USD"), "USD"),
		PurchaseTimeout: parseDuration(getEnv("PURCHASE_TIMEOUT", "10s"), 10*time.Second),
		RefundWindow:    parseDuration(getEnv("REFUND_WINDOW", "720h"), 0),

		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		LocalStorageDir: getEnv("LOCAL_STORAGE_DIR", "data/statements"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://localhost:8080/files"),
		StatementURLTTL: parseDuration(getEnv("STATEMENT_URL_TTL", "15m"), 15*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	mode, err := money.ParseRoundingMode(getEnv("MONEY_ROUNDING", string(money.RoundTruncate)))
	if err != nil {
		return nil, fmt.Errorf("MONEY_ROUNDING: %w", err)
	}
	scale := parseInt(getEnv("MONEY_SCALE", "2"), 2)
	if scale < 0 || scale > 8 {
		return nil, fmt.Errorf("MONEY_SCALE must be between 0 and 8, got %d", scale)
	}
	cfg.Rounding = money.Rounding{Scale: int32(scale), Mode: mode}

	cfg.MinWithdrawal, err = decimal.NewFromString(getEnv("MIN_WITHDRAWAL", "10"))
	if err != nil || cfg.MinWithdrawal.IsNegative() {
		return nil, fmt.Errorf("MIN_WITHDRAWAL must be a non-negative decimal")
	}

	if cfg.IdempotencyBackend == "" {
		cfg.IdempotencyBackend = IdempotencyMemory
		if cfg.RedisURL != "" {
			cfg.IdempotencyBackend = IdempotencyRedis
		}
	}
	switch cfg.IdempotencyBackend {
	case IdempotencyRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("IDEMPOTENCY_BACKEND=redis requires REDIS_URL")
		}
	case IdempotencyBolt, IdempotencyMemory:
	default:
		return nil, fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", cfg.IdempotencyBackend)
	}

	if cfg.IsProduction() && cfg.JWTSecret == "super-secret-key-change-me" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

func parseInt(s string, defaultValue int) int {
	value, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

// UsesDatabase reports whether PostgreSQL stores are configured
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
