package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if a value cannot be parsed or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	// DB_URL is honoured only when DATABASE_URL is unset
	if os.Getenv("DATABASE_URL") == "" {
		if alt := os.Getenv("DB_URL"); alt != "" {
			cfg.Database.URL = alt
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "DB_BUSY_TIMEOUT must be non-negative")
	}

	// Source validation
	if strings.TrimSpace(c.Sources.Direct) == "" {
		errs = append(errs, "SOURCE_DIRECT is required")
	}
	if strings.TrimSpace(c.Sources.JoinedLeft) == "" {
		errs = append(errs, "SOURCE_JOINED_LEFT is required")
	}
	if strings.TrimSpace(c.Sources.JoinedRight) == "" {
		errs = append(errs, "SOURCE_JOINED_RIGHT is required")
	}
	if strings.TrimSpace(c.Sources.JoinKey) == "" {
		errs = append(errs, "SOURCE_JOIN_KEY is required")
	}

	// Join validation
	if c.Join.LeftTag == "" || c.Join.RightTag == "" {
		errs = append(errs, "JOIN_LEFT_TAG and JOIN_RIGHT_TAG must be non-empty")
	} else if c.Join.LeftTag == c.Join.RightTag {
		errs = append(errs, fmt.Sprintf("JOIN_LEFT_TAG and JOIN_RIGHT_TAG must differ (both %q)", c.Join.LeftTag))
	}

	// Run validation
	if c.Run.Timeout < 0 {
		errs = append(errs, "RUN_TIMEOUT must be non-negative")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials in the database URL are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		maskURL(c.Database.URL), c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Sources: {Direct: %q, JoinedLeft: %q, JoinedRight: %q, JoinKey: %q}, ",
		c.Sources.Direct, c.Sources.JoinedLeft, c.Sources.JoinedRight, c.Sources.JoinKey))
	b.WriteString(fmt.Sprintf("Join: {RejectDuplicateKeys: %v}, ", c.Join.RejectDuplicateKeys))
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

// maskURL hides everything but the scheme of network URLs.
// Plain file paths carry no credentials and are shown as-is.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Scheme == "sqlite" || u.Scheme == "file" {
		return fmt.Sprintf("%q", raw)
	}
	return u.Scheme + "://[MASKED]"
}

// SafeURL returns URL with credentials masked, for logs.
func (c DatabaseConfig) SafeURL() string {
	return maskURL(c.URL)
}
