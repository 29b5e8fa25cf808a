package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Service names a deployable service; it selects the default name and port.
type Service string

const (
	ServiceAuth     Service = "auth"
	ServiceMerchant Service = "merchant"
	ServiceConsumer Service = "consumer"
	ServiceLog      Service = "log"
)

var defaultPorts = map[Service]string{
	ServiceAuth:     "3001",
	ServiceMerchant: "3002",
	ServiceConsumer: "3003",
	ServiceLog:      "3004",
}

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreBadger   = "badger"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Badger    BadgerConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	LogSink   LogSinkConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
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

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// BadgerConfig holds the embedded store location.
type BadgerConfig struct {
	Dir        string
	SyncWrites bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	JWTKeyID              string
	VerifyKeys            map[string]string
	KeyringFile           string
	AccessTokenTTLMinutes int
	BcryptCost            int
	PasswordHasher        string
	StrictRevocation      bool
	SeedFile              string
}

// LogSinkConfig points session event forwarding at the log service.
type LogSinkConfig struct {
	URL            string
	BufferSize     int
	TimeoutSeconds int
}

// CORSConfig lists the origins allowed to call the APIs from a browser.
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig throttles credential endpoints per client address.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load(service Service) (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	verifyKeys, err := parseKeyList(os.Getenv("AUTH_JWT_VERIFY_KEYS"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_JWT_VERIFY_KEYS: %w", err)
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	port, ok := defaultPorts[service]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", service)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", string(service)+"-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", port),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "giftcard"),
		},
		Badger: BadgerConfig{
			Dir:        getEnv("BADGER_DIR", "data/accounts"),
			SyncWrites: getEnvAsBool("BADGER_SYNC_WRITES", true),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			JWTKeyID:              getEnv("AUTH_JWT_KEY_ID", "primary"),
			VerifyKeys:            verifyKeys,
			KeyringFile:           os.Getenv("AUTH_KEYRING_FILE"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
			PasswordHasher:        strings.ToLower(getEnv("AUTH_PASSWORD_HASHER", "bcrypt")),
			StrictRevocation:      getEnvAsBool("AUTH_STRICT_REVOCATION", false),
			SeedFile:              os.Getenv("AUTH_SEED_FILE"),
		},
		LogSink: LogSinkConfig{
			URL:            os.Getenv("LOG_SERVICE_URL"),
			BufferSize:     getEnvAsInt("LOG_FORWARD_BUFFER", 256),
			TimeoutSeconds: getEnvAsInt("LOG_FORWARD_TIMEOUT_SECONDS", 2),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
	}

	switch cfg.Store.Driver {
	case StoreMemory, StorePostgres, StoreRedis, StoreBadger:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.Store.Driver)
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

// AccessTokenTTL returns the session token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// Timeout returns the per-request timeout for forwarded log entries.
func (l LogSinkConfig) Timeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// parseKeyList reads "kid:secret,kid2:secret2".
func parseKeyList(raw string) (map[string]string, error) {
	keys := map[string]string{}
	for _, pair := range splitList(raw) {
		kid, secret, ok := strings.Cut(pair, ":")
		kid = strings.TrimSpace(kid)
		if !ok || kid == "" || secret == "" {
			return nil, fmt.Errorf("malformed entry %q", pair)
		}
		keys[kid] = secret
	}
	return keys, nil
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
