package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Relay    RelayConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	LogLevel string
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// AllowedOrigins is empty when every origin is accepted.
	AllowedOrigins []string
}

type RelayConfig struct {
	DefaultChannel string
	SeedChannels   []string
	RateLimit      int
	RateWindow     time.Duration
	RequireToken   bool
	Store          string
}

type DatabaseConfig struct {
	URI      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns URI when set, otherwise a key/value DSN built from the parts.
func (d DatabaseConfig) DSN() string {
	if d.URI != "" {
		return d.URI
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

func (r RedisConfig) Enabled() bool { return r.URI != "" }

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type JWTConfig struct {
	Secret         string
	ExpirationTime time.Duration
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
	return loadFrom(viper.New())
}

func loadFrom(v *viper.Viper) (*Config, error) {
	v.SetDefault("RELAY_PORT", "8080")
	v.SetDefault("RELAY_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("RELAY_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("RELAY_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("RELAY_JWT_SECRET", "secret")
	v.SetDefault("RELAY_JWT_EXPIRE", "24h")
	v.SetDefault("RELAY_DEFAULT_CHANNEL", "genel")
	v.SetDefault("RELAY_SEED_CHANNELS", "genel,destek,duyurular")
	v.SetDefault("RELAY_RATE_LIMIT", 20)
	v.SetDefault("RELAY_RATE_WINDOW", 60*time.Second)
	v.SetDefault("RELAY_REQUIRE_TOKEN", false)
	v.SetDefault("RELAY_STORE", StorePostgres)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "password")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_DB", "chat_relay")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("KAFKA_TOPIC", "chat-relay.messages")
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("RELAY_HOST"),
			Port:           v.GetString("RELAY_PORT"),
			ReadTimeout:    v.GetDuration("RELAY_READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("RELAY_WRITE_TIMEOUT"),
			IdleTimeout:    v.GetDuration("RELAY_IDLE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Relay: RelayConfig{
			DefaultChannel: strings.TrimSpace(v.GetString("RELAY_DEFAULT_CHANNEL")),
			SeedChannels:   splitList(v.GetString("RELAY_SEED_CHANNELS")),
			RateLimit:      v.GetInt("RELAY_RATE_LIMIT"),
			RateWindow:     v.GetDuration("RELAY_RATE_WINDOW"),
			RequireToken:   v.GetBool("RELAY_REQUIRE_TOKEN"),
			Store:          strings.ToLower(v.GetString("RELAY_STORE")),
		},
		Database: DatabaseConfig{
			URI:      v.GetString("POSTGRES_URI"),
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			DBName:   v.GetString("POSTGRES_DB"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			URI:          v.GetString("REDIS_URL"),
			MaxRetries:   v.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("RELAY_JWT_SECRET"),
			ExpirationTime: v.GetDuration("RELAY_JWT_EXPIRE"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Relay.DefaultChannel == "" {
		errs = append(errs, errors.New("RELAY_DEFAULT_CHANNEL must not be empty"))
	}
	if c.Relay.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("RELAY_RATE_LIMIT must be at least 1, got %d", c.Relay.RateLimit))
	}
	if c.Relay.RateWindow <= 0 {
		errs = append(errs, fmt.Errorf("RELAY_RATE_WINDOW must be positive, got %s", c.Relay.RateWindow))
	}
	if c.Relay.Store != StoreMemory && c.Relay.Store != StorePostgres {
		errs = append(errs, fmt.Errorf("RELAY_STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.Relay.Store))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("RELAY_JWT_SECRET must not be empty"))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
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
