// Package config provides configuration loading using koanf.
// Precedence: environment variables over compiled defaults; required keys
// missing in production fail startup.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/cardbox-io/cardbox/internal/domain"
)

// Config holds all service configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	// Logging configuration
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// HTTP server
	Server ServerConfig `koanf:"server"`

	// Session token signing
	Session SessionConfig `koanf:"session"`

	// OTP delivery
	Notifier NotifierConfig `koanf:"notifier"`

	// Infrastructure configurations
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
	AWS      AWSConfig      `koanf:"aws"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	HTTPPort int `koanf:"http_port"`
}

// SessionConfig holds session token signing configuration.
// The secret is required outside local development.
type SessionConfig struct {
	Secret domain.SecretString `koanf:"secret"`
	Issuer string              `koanf:"issuer"`
}

// NotifierConfig holds OTP delivery configuration.
// Provider selects the backend: "webhook", "sns", or "log".
type NotifierConfig struct {
	Provider      string              `koanf:"provider"`
	WebhookURL    string              `koanf:"webhook_url"`
	WebhookSecret domain.SecretString `koanf:"webhook_secret"`
	Timeout       time.Duration       `koanf:"timeout"`
}

// DynamoDBConfig holds DynamoDB configuration.
type DynamoDBConfig struct {
	Endpoint string        `koanf:"endpoint"` // Empty for production (uses default AWS endpoint)
	Timeout  time.Duration `koanf:"timeout"`

	// Table names, overridable for test environments.
	UsersTable    string `koanf:"users_table"`
	OTPCodesTable string `koanf:"otp_codes_table"`
	CardsTable    string `koanf:"cards_table"`
	FoldersTable  string `koanf:"folders_table"`
	TagsTable     string `koanf:"tags_table"`
}

// AWSConfig holds AWS SDK configuration.
type AWSConfig struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"` // LocalStack endpoint for development
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LogFormat:   "json",

		Server: ServerConfig{
			HTTPPort: 8080,
		},
		Session: SessionConfig{
			Issuer: "cardbox",
		},
		Notifier: NotifierConfig{
			Provider: "log",
			Timeout:  domain.NotifierTimeout,
		},
		DynamoDB: DynamoDBConfig{
			Timeout:       domain.DynamoDBTimeout,
			UsersTable:    "users",
			OTPCodesTable: "otp_codes",
			CardsTable:    "cards",
			FoldersTable:  "folders",
			TagsTable:     "tags",
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		OTEL: OTELConfig{
			ServiceName: "cardbox",
		},
	}
}

// Load loads configuration following the precedence:
// 1. Environment variables (highest)
// 2. Compiled defaults (lowest)
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	// Start with compiled defaults
	cfg := defaults()

	// Load environment variables.
	// No prefix; _ maps to . for nested config (SESSION_SECRET → session.secret).
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	// Unmarshal into config struct
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Validate required fields
	if err := validateRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRequired checks that required configuration is present.
func validateRequired(cfg *Config) error {
	// In local environment, every field has a sensible default or fallback.
	if cfg.Environment == "local" {
		return nil
	}

	if cfg.Session.Secret.IsEmpty() {
		return fmt.Errorf("%w: session.secret", domain.ErrConfigRequired)
	}
	if cfg.Notifier.Provider == "webhook" && cfg.Notifier.WebhookURL == "" {
		return fmt.Errorf("%w: notifier.webhook_url", domain.ErrConfigRequired)
	}

	return nil
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
