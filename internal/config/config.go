// internal/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:leadflow.db"`
	RedisURL    string `env:"REDIS_URL"`
	AMQPURL     string `env:"AMQP_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	MailTransport   string        `env:"MAIL_TRANSPORT" envDefault:"smtp"`
	SMTPHost        string        `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort        int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPSendTimeout time.Duration `env:"SMTP_SEND_TIMEOUT" envDefault:"30s"`
	SendTimeout     time.Duration `env:"SEND_TIMEOUT" envDefault:"30s"`

	SchedulingLink      string `env:"SCHEDULING_LINK" envDefault:"https://calendly.com/clean-earth"`
	CalendlyAccessToken string `env:"CALENDLY_ACCESS_TOKEN"`
	CalendlyAPIURL      string `env:"CALENDLY_API_URL" envDefault:"https://api.calendly.com"`

	DefaultFirstName string `env:"DEFAULT_FIRST_NAME" envDefault:"Friend"`
	DefaultLastName  string `env:"DEFAULT_LAST_NAME" envDefault:""`
	DefaultCompany   string `env:"DEFAULT_COMPANY" envDefault:"your company"`

	RecipientListTTL time.Duration `env:"RECIPIENT_LIST_TTL" envDefault:"24h"`
}

// Load reads .env (if present) and then the process environment.
func Load(log *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file found, relying on OS environment variables")
	}
	return Parse()
}

func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.MailTransport {
	case "smtp", "log":
	default:
		return fmt.Errorf("MAIL_TRANSPORT must be 'smtp' or 'log', got %q", c.MailTransport)
	}
	if c.SMTPPort <= 0 {
		return fmt.Errorf("SMTP_PORT must be > 0")
	}
	if c.SMTPSendTimeout <= 0 || c.SendTimeout <= 0 {
		return fmt.Errorf("SMTP_SEND_TIMEOUT and SEND_TIMEOUT must be > 0")
	}
	if c.RecipientListTTL <= 0 {
		return fmt.Errorf("RECIPIENT_LIST_TTL must be > 0")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	return nil
}

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
