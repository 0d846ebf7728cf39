package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const devSecretKey = "dev-secret-key-change-in-production"

// Server captures process-level configuration.
type Server struct {
	Addr          string
	SecretKey     string
	SecureCookies bool
	SessionTTL    time.Duration
	RememberTTL   time.Duration
	BcryptCost    int

	// AuthRateLimit caps login and registration posts per client IP within
	// AuthRateWindow; zero disables it.
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// TrustProxyHeaders takes the client IP from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that sets those headers.
	TrustProxyHeaders bool

	LogLevel  string
	LogFormat string

	Database DatabaseConfig
	Redis    RedisConfig
}

// DatabaseConfig selects the SQL backend. An empty URL means in-memory
// user and post stores.
type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the session store. An empty URL means in-memory
// sessions.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// UsesDevSecret reports whether SECRET_KEY was left at its development value.
func (s Server) UsesDevSecret() bool {
	return s.SecretKey == devSecretKey
}

// Load reads a .env file when present and then builds the config from the
// environment.
func Load(files ...string) (Server, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Server{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Server config from environment variables with
// development defaults.
func FromEnv() (Server, error) {
	p := &parser{}
	cfg := Server{
		Addr:              stringOr("WANDERLOG_ADDR", ":8080"),
		SecretKey:         stringOr("SECRET_KEY", devSecretKey),
		SecureCookies:     p.boolean("SECURE_COOKIES", false),
		SessionTTL:        p.duration("SESSION_TTL", 12*time.Hour),
		RememberTTL:       p.duration("REMEMBER_TTL", 365*24*time.Hour),
		BcryptCost:        p.integer("BCRYPT_COST", 0),
		AuthRateLimit:     p.integer("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:    p.duration("AUTH_RATE_WINDOW", time.Minute),
		TrustProxyHeaders: p.boolean("TRUST_PROXY_HEADERS", false),
		LogLevel:          stringOr("LOG_LEVEL", "info"),
		LogFormat:         stringOr("LOG_FORMAT", "json"),
		Database: DatabaseConfig{
			Driver:          stringOr("DATABASE_DRIVER", "pgx"),
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    p.integer("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    p.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	if p.err != nil {
		return Server{}, p.err
	}
	switch cfg.Database.Driver {
	case "pgx", "postgres", "sqlite3":
	default:
		return Server{}, fmt.Errorf("DATABASE_DRIVER: unsupported driver %q", cfg.Database.Driver)
	}
	if cfg.SessionTTL <= 0 || cfg.RememberTTL <= 0 {
		return Server{}, errors.New("SESSION_TTL and REMEMBER_TTL must be positive")
	}
	if cfg.AuthRateLimit < 0 {
		return Server{}, errors.New("AUTH_RATE_LIMIT must not be negative")
	}
	return cfg, nil
}

func stringOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser keeps the first conversion error so FromEnv reports one failure.
type parser struct {
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: invalid value %q: %w", key, raw, err)
	}
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return d
}

func (p *parser) boolean(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return b
}

func (p *parser) integer(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return n
}
