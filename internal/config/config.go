package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	QuotaBackendStore = "store"
	QuotaBackendRedis = "redis"
)

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	DryRun       bool   `yaml:"dry_run"`
}

type TelegramConfig struct {
	BotToken   string `yaml:"bot_token"`
	// WebhookURL is registered with the Bot API on start when set.
	WebhookURL string `yaml:"webhook_url"`
}

type QuotaConfig struct {
	Backend     string `yaml:"backend"`
	Timezone    string `yaml:"timezone"`
	TasksPerDay int    `yaml:"tasks_per_day"`
	BidsPerDay  int    `yaml:"bids_per_day"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type NotifyConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type PDFConfig struct {
	FontPath string `yaml:"font_path"`
}

type LogConfig struct {
	Development bool `yaml:"development"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
	Quota    QuotaConfig    `yaml:"quota"`
	Redis    RedisConfig    `yaml:"redis"`
	Notify   NotifyConfig   `yaml:"notify"`
	PDF      PDFConfig      `yaml:"pdf"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns a configuration that runs locally against SQLite.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: 10 * time.Second},
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "helpfinder.db", MaxOpenConns: 10, AutoMigrate: true},
		Auth:     AuthConfig{TokenTTL: 24 * time.Hour},
		Email:    EmailConfig{SMTPPort: 587, DryRun: true},
		Quota:    QuotaConfig{Backend: QuotaBackendStore, Timezone: "Local", TasksPerDay: 10, BidsPerDay: 50},
		Notify:   NotifyConfig{Workers: 2, QueueSize: 256},
	}
}

// Load reads .env (if present), then the YAML file at path, then applies
// environment overrides. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open %s: %w", path, err)
		default:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Email.SMTPPassword, "SMTP_PASSWORD")
	setString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret (JWT_SECRET) is required")
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	switch c.Quota.Backend {
	case QuotaBackendStore:
	case QuotaBackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: redis.addr is required for the redis quota backend")
		}
	default:
		return fmt.Errorf("config: unknown quota backend %q", c.Quota.Backend)
	}
	if c.Quota.TasksPerDay <= 0 || c.Quota.BidsPerDay <= 0 {
		return errors.New("config: quota limits must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: quota.timezone: %w", err)
	}
	return nil
}

// Location is the zone that defines a quota day.
func (c *Config) Location() (*time.Location, error) {
	if c.Quota.Timezone == "" || c.Quota.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Quota.Timezone)
}
