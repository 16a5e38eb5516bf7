package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	App       AppConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig
	Leave     LeaveConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
	// StatementTimeout bounds every statement and lock wait.
	StatementTimeout time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type StorageConfig struct {
	Driver string
}

// RedisConfig is optional. An empty Addr disables the user cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	UserTTL  time.Duration
}

// KafkaConfig is optional. Without brokers notifications are only logged.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// SMTPConfig is optional. An empty Host disables email notifications.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type LeaveConfig struct {
	DayCountPolicy         string
	CancelledBlocksOverlap bool
	DefaultTotalDays       float64
	Allowances             map[string]float64
	TxMaxAttempts          int
	BalanceInitInterval    time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}
	statementTimeout, err := time.ParseDuration(getEnv("DB_STATEMENT_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_STATEMENT_TIMEOUT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:             getEnv("DB_HOST", "localhost"),
		Port:             dbPort,
		User:             getEnv("DB_USER", "postgres"),
		Password:         getEnv("DB_PASSWORD", ""),
		Name:             getEnv("DB_NAME", "leave"),
		SSLMode:          getEnv("DB_SSL_MODE", "disable"),
		MaxConns:         int32(maxConns),
		MinConns:         int32(minConns),
		StatementTimeout: statementTimeout,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvSlice("APP_CORS_ORIGINS"),
	}

	// JWT configuration
	accessExpiration, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET", ""),
		AccessExpiration: accessExpiration,
	}

	config.Storage = StorageConfig{
		Driver: getEnv("STORAGE_DRIVER", StoragePostgres),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	userTTL, err := time.ParseDuration(getEnv("REDIS_USER_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_USER_TTL: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
		UserTTL:  userTTL,
	}

	config.Kafka = KafkaConfig{
		Brokers: getEnvSlice("KAFKA_BROKERS"),
		Topic:   getEnv("KAFKA_TOPIC", "leave.notifications"),
	}

	// SMTP configuration
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	config.SMTP = SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     smtpPort,
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "no-reply@example.com"),
		FromName: getEnv("SMTP_FROM_NAME", "Leave Service"),
	}

	// Rate limit configuration
	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	config.RateLimit = RateLimitConfig{RPS: rps, Burst: burst}

	// Leave policy configuration
	blocks, err := strconv.ParseBool(getEnv("LEAVE_CANCELLED_BLOCKS_OVERLAP", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_CANCELLED_BLOCKS_OVERLAP: %w", err)
	}
	defaultTotal, err := strconv.ParseFloat(getEnv("LEAVE_DEFAULT_TOTAL_DAYS", "0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_DEFAULT_TOTAL_DAYS: %w", err)
	}
	allowances, err := parseAllowances(getEnv("LEAVE_ALLOWANCES", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_ALLOWANCES: %w", err)
	}
	maxAttempts, err := strconv.Atoi(getEnv("LEAVE_TX_MAX_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_TX_MAX_ATTEMPTS: %w", err)
	}
	initInterval, err := time.ParseDuration(getEnv("LEAVE_BALANCE_INIT_INTERVAL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_BALANCE_INIT_INTERVAL: %w", err)
	}

	config.Leave = LeaveConfig{
		DayCountPolicy:         getEnv("LEAVE_DAY_COUNT_POLICY", "calendar"),
		CancelledBlocksOverlap: blocks,
		DefaultTotalDays:       defaultTotal,
		Allowances:             allowances,
		TxMaxAttempts:          maxAttempts,
		BalanceInitInterval:    initInterval,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Storage.Driver {
	case StoragePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StoragePostgres, StorageMemory)
	}
	if c.Leave.TxMaxAttempts < 1 {
		return fmt.Errorf("LEAVE_TX_MAX_ATTEMPTS must be at least 1")
	}
	if c.Leave.DefaultTotalDays < 0 {
		return fmt.Errorf("LEAVE_DEFAULT_TOTAL_DAYS must not be negative")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// parseAllowances reads "annual:20,sick:10".
func parseAllowances(value string) (map[string]float64, error) {
	result := make(map[string]float64)
	if strings.TrimSpace(value) == "" {
		return result, nil
	}
	for _, pair := range strings.Split(value, ",") {
		name, days, ok := strings.Cut(strings.TrimSpace(pair), ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("entry %q must be type:days", pair)
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(days), 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("entry %q has invalid days", pair)
		}
		result[name] = n
	}
	return result, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
