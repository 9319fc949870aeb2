// Package config provides centralized configuration management for the application.
// It loads configuration from an optional YAML file and environment variables
// with sensible defaults, and validates all settings on startup to fail fast
// on misconfiguration.
package config

import (
	"strconv"
	"time"

	"github.com/JonMunkholm/staffdesk/internal/core"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
// Every setting can be configured via environment variables; a YAML file
// named by CONFIG_FILE may provide the same settings, and the environment
// wins where both are set.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Import   ImportConfig   `yaml:"import"`
	Query    QueryConfig    `yaml:"query"`
	Seed     SeedConfig     `yaml:"seed"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `yaml:"readTimeout" env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idleTimeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `yaml:"requestTimeout" env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are believed
	TrustedProxies []string `yaml:"trustedProxies" env:"TRUSTED_PROXIES"`
}

// DatabaseConfig selects and tunes the record store.
type DatabaseConfig struct {
	// Driver is memory, sqlite or postgres (default: sqlite)
	Driver string `yaml:"driver" env:"DB_DRIVER" default:"sqlite"`

	// URL is the PostgreSQL connection string, or the SQLite file path.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	URL string `yaml:"url" env:"DATABASE_URL" envAlt:"DB_URL" default:"staffdesk.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `yaml:"maxConns" env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `yaml:"minConns" env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime" env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime" env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// Dir receives uploaded files and, with Watch, is the drop folder (default: imports)
	Dir string `yaml:"dir" env:"IMPORT_DIR" default:"imports"`

	// ExpectedColumns is the cell count of a data row (default: 11)
	ExpectedColumns int `yaml:"expectedColumns" env:"IMPORT_EXPECTED_COLUMNS" default:"11"`

	// DateLayout is the Go time layout of date cells (default: 02/1/2006, i.e. dd/M/yyyy)
	DateLayout string `yaml:"dateLayout" env:"IMPORT_DATE_LAYOUT" default:"02/1/2006"`

	// SkipInvalidRows drops rows with bad dates instead of failing the file (default: false)
	SkipInvalidRows bool `yaml:"skipInvalidRows" env:"IMPORT_SKIP_INVALID_ROWS" default:"false"`

	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `yaml:"maxFileSize" env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel imports (default: 2)
	MaxConcurrent int `yaml:"maxConcurrent" env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `yaml:"maxWaitTime" env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single import (default: 5m)
	Timeout time.Duration `yaml:"timeout" env:"IMPORT_TIMEOUT" default:"5m"`

	// Watch imports CSV files dropped into Dir (default: false)
	Watch bool `yaml:"watch" env:"IMPORT_WATCH" default:"false"`
}

// QueryConfig bounds grid requests.
type QueryConfig struct {
	// MaxTake caps the page size a client may request (default: 500)
	MaxTake int `yaml:"maxTake" env:"QUERY_MAX_TAKE" default:"500"`
}

// SeedConfig names fixture data loaded into an empty store.
type SeedConfig struct {
	// File is a YAML list of employees; empty disables seeding
	File string `yaml:"file" env:"SEED_FILE"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Options converts the import settings into importer options.
func (c ImportConfig) Options() core.ImportOptions {
	return core.ImportOptions{
		ExpectedColumns: c.ExpectedColumns,
		DateLayout:      c.DateLayout,
		SkipInvalidRows: c.SkipInvalidRows,
		MaxBytes:        c.MaxFileSize,
	}
}
