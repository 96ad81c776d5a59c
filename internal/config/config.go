package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mail drivers.
const (
	MailDriverSMTP = "smtp"
	MailDriverHTTP = "http"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
	Mail      MailConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port       string
	CronSecret string
	LogLevel   string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	// CronSchedule drives the in-process timer. Empty disables it and leaves
	// runs to the HTTP trigger.
	CronSchedule string
	Timezone     string
	RunTimeout   time.Duration
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// MailConfig selects and configures the outbound mail gateway.
type MailConfig struct {
	Driver       string
	From         string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	RelayURL     string
	RelayToken   string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// missing .env files are fine when the environment carries everything
		_ = godotenv.Load()
	}

	timeout, err := time.ParseDuration(getenvWithDefault("REPORT_RUN_TIMEOUT", "5m"))
	if err != nil {
		return nil, fmt.Errorf("parse REPORT_RUN_TIMEOUT: %w", err)
	}

	smtpPort, err := strconv.Atoi(getenvWithDefault("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("parse SMTP_PORT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:       getenvWithDefault("APP_PORT", "8080"),
			CronSecret: os.Getenv("CRON_SECRET"),
			LogLevel:   getenvWithDefault("LOG_LEVEL", "info"),
		},
		Reporting: ReportingConfig{
			CronSchedule: os.Getenv("REPORT_CRON_SCHEDULE"),
			Timezone:     getenvWithDefault("TIMEZONE", "UTC"),
			RunTimeout:   timeout,
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "hospital"),
		},
		Mail: MailConfig{
			Driver:       strings.ToLower(getenvWithDefault("MAIL_DRIVER", MailDriverSMTP)),
			From:         os.Getenv("MAIL_FROM"),
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     smtpPort,
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			RelayURL:     os.Getenv("MAIL_RELAY_URL"),
			RelayToken:   os.Getenv("MAIL_RELAY_TOKEN"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Server.CronSecret == "" {
		return errors.New("CRON_SECRET must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must not be empty")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	if c.Reporting.RunTimeout <= 0 {
		return errors.New("REPORT_RUN_TIMEOUT must be positive")
	}

	switch c.Mail.Driver {
	case MailDriverSMTP:
		if c.Mail.SMTPHost == "" {
			return errors.New("SMTP_HOST must be provided")
		}
		if c.Mail.From == "" {
			return errors.New("MAIL_FROM must be provided")
		}
	case MailDriverHTTP:
		if c.Mail.RelayURL == "" {
			return errors.New("MAIL_RELAY_URL must be provided")
		}
	default:
		return fmt.Errorf("MAIL_DRIVER %q is not supported", c.Mail.Driver)
	}

	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Reporting.Timezone)
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
