// Package config loads datadash server settings from the environment.
// Every field has a default, so an empty environment yields a working
// configuration; Validate reports all problems at once.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Server   ServerConfig
	Paths    PathsConfig
	Kaggle   KaggleConfig
	Upload   UploadConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Activity ActivityConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds ordinary requests. Downloads run under
	// KaggleConfig.Timeout instead.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// PathsConfig names the directories the server writes to.
type PathsConfig struct {
	// StagingDir holds downloaded archives and extracted CSV files.
	StagingDir string `env:"STAGING_DIR" default:"data"`

	// ModelsDir is created at startup for an external model trainer.
	ModelsDir string `env:"MODELS_DIR" default:"models"`
}

// KaggleConfig holds remote dataset source settings.
type KaggleConfig struct {
	BaseURL string `env:"KAGGLE_BASE_URL" default:"https://www.kaggle.com/api/v1"`

	// ConfigDir is where kaggle.json is looked up (default: ~/.kaggle)
	ConfigDir string `env:"KAGGLE_CONFIG_DIR"`

	// Timeout bounds one download plus extraction (default: 5m)
	Timeout time.Duration `env:"KAGGLE_TIMEOUT" default:"5m"`

	MaxConcurrent int           `env:"KAGGLE_MAX_CONCURRENT" default:"2"`
	MaxWaitTime   time.Duration `env:"KAGGLE_MAX_WAIT_TIME" default:"10s"`
}

// UploadConfig holds CSV upload settings.
type UploadConfig struct {
	// MaxFileSize accepts plain bytes or a size such as "100MiB" (default: 100MiB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// Encoding is the source charset of CSV files (default: utf-8)
	Encoding string `env:"UPLOAD_ENCODING" default:"utf-8"`
}

// SessionConfig holds per-browser session settings.
type SessionConfig struct {
	CookieName  string        `env:"SESSION_COOKIE" default:"datadash_session"`
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"2h"`

	// ReapInterval is how often idle sessions are dropped (default: 5m)
	ReapInterval time.Duration `env:"SESSION_REAP_INTERVAL" default:"5m"`

	// Secure marks the session cookie Secure; enable behind TLS.
	Secure bool `env:"SESSION_SECURE" default:"false"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// DownloadLimit is requests per minute for download and upload endpoints (default: 10)
	DownloadLimit int `env:"RATE_LIMIT_DOWNLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey guards the JSON API with X-API-Key.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ActivityConfig selects where the activity log is kept.
type ActivityConfig struct {
	// Driver is memory, sqlite or postgres (default: memory)
	Driver string `env:"ACTIVITY_DRIVER" default:"memory"`

	// DSN is the sqlite path or postgres URL. Ignored for memory.
	DSN string `env:"ACTIVITY_DSN" envAlt:"DATABASE_URL"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
