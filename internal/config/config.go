// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Sources  SourcesConfig
	Join     JoinConfig
	Run      RunConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	// URL selects the store: postgres:// or postgresql:// for PostgreSQL,
	// sqlite://path or a bare file path for SQLite.
	// DB_URL is accepted as a fallback for DATABASE_URL.
	URL string `env:"DATABASE_URL" envDefault:"shipment_database.db"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" envDefault:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" envDefault:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`

	// BusyTimeout is how long SQLite waits on a locked database (default: 5s)
	BusyTimeout time.Duration `env:"DB_BUSY_TIMEOUT" envDefault:"5s"`
}

// SourcesConfig names the three tabular inputs of a run.
type SourcesConfig struct {
	// Direct is the self-contained source, one row per shipment.
	Direct string `env:"SOURCE_DIRECT" envDefault:"data/shipping_data_0.csv"`

	// JoinedLeft carries the product of each shipment identifier.
	JoinedLeft string `env:"SOURCE_JOINED_LEFT" envDefault:"data/shipping_data_1.csv"`

	// JoinedRight completes JoinedLeft rows with routing columns.
	JoinedRight string `env:"SOURCE_JOINED_RIGHT" envDefault:"data/shipping_data_2.csv"`

	// JoinKey is the correlation column shared by the joined sources.
	JoinKey string `env:"SOURCE_JOIN_KEY" envDefault:"shipment_identifier"`
}

// JoinConfig controls the inner join of the two correlated sources.
type JoinConfig struct {
	// RejectDuplicateKeys fails the run when a join key repeats on either side
	// instead of expanding to every matching pair (default: false)
	RejectDuplicateKeys bool `env:"JOIN_REJECT_DUPLICATE_KEYS" envDefault:"false"`

	// LeftTag and RightTag suffix column names present on both sides.
	LeftTag  string `env:"JOIN_LEFT_TAG" envDefault:"_x"`
	RightTag string `env:"JOIN_RIGHT_TAG" envDefault:"_y"`
}

// RunConfig holds settings for a single load run.
type RunConfig struct {
	// Timeout bounds a whole run including commit. Zero means the run is
	// never cut short (default: 0)
	Timeout time.Duration `env:"RUN_TIMEOUT" envDefault:"0s"`

	// CreateSchema creates the product and shipment tables if absent (default: false)
	CreateSchema bool `env:"RUN_CREATE_SCHEMA" envDefault:"false"`
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" envDefault:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envDefault:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`

	// WriteTimeout must cover a full run (default: 10m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
