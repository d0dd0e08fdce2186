package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App         AppConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Logger      LoggerConfig
	Auth        AuthConfig
	Entitlement EntitlementConfig
	Fanout      FanoutConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session-claims parameters.
type AuthConfig struct {
	SigningSecret     string
	SessionTTLSeconds int
	BcryptCost        int
}

// EntitlementConfig defines entitlement resolution parameters.
type EntitlementConfig struct {
	ExchangeTokenTTLDays int
	ExtensionBaseURL     string
	PlanRoleTable        string // "plan=role,plan=role"; empty keeps the built-in table
}

// FanoutConfig holds stub fanout endpoints.
type FanoutConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "entitlement-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			SigningSecret:     getEnv("AUTH_SIGNING_SECRET", "dev-secret"),
			SessionTTLSeconds: getEnvAsInt("AUTH_SESSION_TTL_SECONDS", 3600),
			BcryptCost:        getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Entitlement: EntitlementConfig{
			ExchangeTokenTTLDays: getEnvAsInt("EXCHANGE_TOKEN_TTL_DAYS", 1),
			ExtensionBaseURL:     getEnv("EXTENSION_BASE_URL", ""),
			PlanRoleTable:        getEnv("PLAN_ROLE_TABLE", ""),
		},
		Fanout: FanoutConfig{
			EmailFrom:  getEnv("FANOUT_EMAIL_FROM", ""),
			WebhookURL: getEnv("FANOUT_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTTL returns the session-claims lifetime.
func (a AuthConfig) SessionTTL() time.Duration {
	if a.SessionTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(a.SessionTTLSeconds) * time.Second
}

// ExchangeTokenTTL returns the opaque token lifetime.
func (e EntitlementConfig) ExchangeTokenTTL() time.Duration {
	days := e.ExchangeTokenTTLDays
	if days <= 0 {
		days = 1
	}
	return time.Duration(days) * 24 * time.Hour
}

// PlanRoles parses the PLAN_ROLE_TABLE override into a plan→role map.
// Malformed entries are dropped; an empty result means "use defaults".
func (e EntitlementConfig) PlanRoles() map[string]string {
	table := make(map[string]string)
	for _, pair := range strings.Split(e.PlanRoleTable, ",") {
		plan, role, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || plan == "" || role == "" {
			continue
		}
		table[plan] = role
	}
	return table
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
