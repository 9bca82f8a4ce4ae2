package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Run modes
const (
	ModeServer = "server"
	ModeWorker = "worker"
	ModeAll    = "all"
)

// Notification transports
const (
	TransportTelegram = "telegram"
	TransportStream   = "stream"
)

const devJWTSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"

// Config holds application configuration loaded from environment variables
// and an optional config.yaml.
type Config struct {
	Env  string
	Port string
	Mode string

	DatabaseURL string
	RedisURL    string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	EncryptionKey   string

	Timezone          string
	ReminderSchedule  string
	TemplatesPath     string
	NotifyTransport   string
	TelegramToken     string
	TelegramBaseURL   string
	TelegramStub      bool
	WorkerConcurrency int

	LogLevel    string
	LogFormat   string
	CORSOrigins []string
	SeedDevData bool
}

// Load reads configuration. Environment variables win over config.yaml,
// which wins over defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Env:               v.GetString("env"),
		Port:              v.GetString("port"),
		Mode:              strings.ToLower(v.GetString("mode")),
		DatabaseURL:       v.GetString("database_url"),
		RedisURL:          v.GetString("redis_url"),
		JWTSecret:         v.GetString("jwt_secret"),
		AccessTokenTTL:    v.GetDuration("access_token_ttl"),
		RefreshTokenTTL:   v.GetDuration("refresh_token_ttl"),
		EncryptionKey:     v.GetString("encryption_key"),
		Timezone:          v.GetString("timezone"),
		ReminderSchedule:  v.GetString("reminder_schedule"),
		TemplatesPath:     v.GetString("templates_path"),
		NotifyTransport:   strings.ToLower(v.GetString("notify_transport")),
		TelegramToken:     v.GetString("telegram_token"),
		TelegramBaseURL:   v.GetString("telegram_base_url"),
		TelegramStub:      v.GetBool("telegram_stub"),
		WorkerConcurrency: v.GetInt("worker_concurrency"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
		CORSOrigins:       splitList(v.GetString("cors_origins")),
		SeedDevData:       v.GetBool("seed_dev_data"),
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devJWTSecret
		slog.Warn("Using default JWT_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("mode", ModeAll)
	v.SetDefault("database_url", "sqlite://habits.db")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("access_token_ttl", 15*time.Minute)
	v.SetDefault("refresh_token_ttl", 24*time.Hour)
	v.SetDefault("timezone", "Europe/Samara")
	v.SetDefault("reminder_schedule", "@every 1m")
	v.SetDefault("notify_transport", TransportTelegram)
	v.SetDefault("telegram_base_url", "https://api.telegram.org")
	v.SetDefault("telegram_stub", false)
	v.SetDefault("worker_concurrency", 5)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("cors_origins", "http://localhost:8000")
	v.SetDefault("seed_dev_data", false)
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeServer, ModeWorker, ModeAll:
	default:
		return fmt.Errorf("invalid MODE %q (want server, worker or all)", c.Mode)
	}
	switch c.NotifyTransport {
	case TransportTelegram, TransportStream:
	default:
		return fmt.Errorf("invalid NOTIFY_TRANSPORT %q (want telegram or stream)", c.NotifyTransport)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.WorkerConcurrency < 1 {
		return errors.New("WORKER_CONCURRENCY must be at least 1")
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// RunsServer reports whether the HTTP API runs in this process.
func (c *Config) RunsServer() bool {
	return c.Mode == ModeServer || c.Mode == ModeAll
}

// RunsWorker reports whether the reminder worker and scheduler run in this process.
func (c *Config) RunsWorker() bool {
	return c.Mode == ModeWorker || c.Mode == ModeAll
}

// Location returns the reminder timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", c.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
