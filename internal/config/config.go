package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Resolver ResolverConfig
	Fixture  FixtureConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"file:data/macros.db?_foreign_keys=on"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// ResolverConfig holds macro resolution behavior.
type ResolverConfig struct {
	HistoryPeriod    time.Duration `env:"RESOLVER_HISTORY_PERIOD" envDefault:"24h"`
	UnresolvedPolicy string        `env:"RESOLVER_UNRESOLVED_POLICY" envDefault:"literal"`
	Mode             string        `env:"RESOLVER_MODE" envDefault:"trigger"`
}

// FixtureConfig holds the optional snapshot imported at startup.
type FixtureConfig struct {
	File string `env:"FIXTURE_FILE"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("parsing log config: %w", err)
	}
	if err := env.Parse(&cfg.Resolver); err != nil {
		return nil, fmt.Errorf("parsing resolver config: %w", err)
	}
	if err := env.Parse(&cfg.Fixture); err != nil {
		return nil, fmt.Errorf("parsing fixture config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var (
	validDrivers  = []string{"sqlite3", "postgres"}
	validLevels   = []string{"debug", "info", "warn", "error"}
	validFormats  = []string{"text", "json"}
	validPolicies = []string{"literal", "placeholder"}
	validModes    = []string{"trigger", "event"}
)

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !oneOf(c.Database.Driver, validDrivers) {
		return fmt.Errorf("DB_DRIVER must be one of %s", strings.Join(validDrivers, ", "))
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if !oneOf(strings.ToLower(c.Log.Level), validLevels) {
		return fmt.Errorf("LOG_LEVEL must be one of %s", strings.Join(validLevels, ", "))
	}
	if !oneOf(strings.ToLower(c.Log.Format), validFormats) {
		return fmt.Errorf("LOG_FORMAT must be one of %s", strings.Join(validFormats, ", "))
	}
	if c.Resolver.HistoryPeriod <= 0 {
		return fmt.Errorf("RESOLVER_HISTORY_PERIOD must be positive")
	}
	if !oneOf(c.Resolver.UnresolvedPolicy, validPolicies) {
		return fmt.Errorf("RESOLVER_UNRESOLVED_POLICY must be one of %s", strings.Join(validPolicies, ", "))
	}
	if !oneOf(c.Resolver.Mode, validModes) {
		return fmt.Errorf("RESOLVER_MODE must be one of %s", strings.Join(validModes, ", "))
	}
	return nil
}

// NewLogger builds the application logger writing to w.
func (c *LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
