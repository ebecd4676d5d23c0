package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	ServiceName   string `env:"SERVICE_NAME" envDefault:"quote-service"`
	AppPort       string `env:"APP_PORT" envDefault:"8003"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	Database DatabaseConfig

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	// Empty disables event publication.
	NATSURL string `env:"NATS_URL"`

	TracingEnabled bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"jaeger:4317"`

	MonthlyQuoteLimit int    `env:"MONTHLY_QUOTE_LIMIT" envDefault:"50"`
	QuotaTimezone     string `env:"QUOTA_TIMEZONE"`

	RateLimitMax        int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	RateLimitExpiration time.Duration `env:"RATE_LIMIT_EXPIRATION" envDefault:"60s"`

	S3   S3Config
	APNs APNsConfig
}

type DatabaseConfig struct {
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	Name     string `env:"DB_NAME"`
}

func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name,
	)
}

// NotifierConfig configures the push notification worker.
type NotifierConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"quote-notifier"`
	NATSURL     string `env:"NATS_URL,required,notEmpty"`
	Database    DatabaseConfig
	APNs        APNsConfig
}

type S3Config struct {
	Endpoint     string `env:"S3_ENDPOINT"`
	Region       string `env:"AWS_REGION" envDefault:"us-east-1"`
	BucketName   string `env:"S3_BUCKET_NAME"`
	AccessKey    string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey    string `env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
}

// Enabled reports whether PDF uploads can be presigned.
func (c S3Config) Enabled() bool {
	return c.BucketName != "" && c.Endpoint != ""
}

type APNsConfig struct {
	AuthKeyPath string `env:"APNS_AUTH_KEY_PATH"`
	KeyID       string `env:"APNS_KEY_ID"`
	TeamID      string `env:"APNS_TEAM_ID"`
	Topic       string `env:"APNS_TOPIC"`
	Mode        string `env:"APNS_MODE" envDefault:"development"`
}

func (c APNsConfig) Enabled() bool {
	return c.AuthKeyPath != "" && c.AuthKeyPath[0] != '#' && c.KeyID != "" && c.TeamID != ""
}

// Load reads .env.dev when present and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env.dev"); err != nil {
		slog.Info("No .env.dev file found, reading configuration from the environment")
	}
	return Parse()
}

func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.MonthlyQuoteLimit <= 0 {
		return nil, fmt.Errorf("MONTHLY_QUOTE_LIMIT must be positive, got %d", cfg.MonthlyQuoteLimit)
	}

	return &cfg, nil
}

func (c *Config) DatabaseURL() string {
	return c.Database.URL()
}

func LoadNotifier() (*NotifierConfig, error) {
	if err := godotenv.Load(".env.dev"); err != nil {
		slog.Info("No .env.dev file found, reading configuration from the environment")
	}

	var cfg NotifierConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Location is the zone used for calendar-month quota windows. Defaults to server-local time.
func (c *Config) Location() (*time.Location, error) {
	if c.QuotaTimezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.QuotaTimezone)
}
