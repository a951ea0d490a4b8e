// Package config provides unified configuration loading for nutridb.
// Supports YAML files, .env files, and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSourceURL is the Taiwan FDA open-data export endpoint for the
// nutrition dataset (a ZIP archive containing one JSON file).
const DefaultSourceURL = "https://data.fda.gov.tw/data/opendata/export/20/json"

// Config holds all configuration for nutridb.
type Config struct {
	Source        SourceConfig        `yaml:"source"`
	Database      DatabaseConfig      `yaml:"database"`
	Search        SearchConfig        `yaml:"search"`
	Report        ReportConfig        `yaml:"report"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// SourceConfig holds dataset download settings.
type SourceConfig struct {
	URL     string        `yaml:"url"`
	DataDir string        `yaml:"data_dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// SearchConfig holds full-text search settings.
type SearchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ReportConfig holds run report settings.
type ReportConfig struct {
	Path string `yaml:"path"` // empty disables the report file
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment
// overrides. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	// Load .env if present (ignore error if not found)
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			URL:     DefaultSourceURL,
			DataDir: "data",
			Timeout: 10 * time.Minute,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "nutrition.db",
				MaxOpenConns: 1,
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Search: SearchConfig{
			Enabled: true,
		},
		Report: ReportConfig{
			Path: "",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Database.Driver == "sqlite" && c.Database.SQLite.Path == "" {
		return fmt.Errorf("sqlite path is required")
	}

	if c.Database.Driver == "postgres" && c.Database.Postgres.DSN == "" {
		return fmt.Errorf("postgres dsn is required")
	}

	if c.Source.URL == "" {
		return fmt.Errorf("source url is required")
	}

	return nil
}

// DatabaseDSN returns the connection string for the configured driver.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		if c.Database.SQLite.JournalMode != "" {
			return fmt.Sprintf("file:%s?_journal_mode=%s",
				c.Database.SQLite.Path, c.Database.SQLite.JournalMode)
		}
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		applyDatabaseURL(cfg, v)
	}

	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Database.Postgres.DSN = v
	}

	if v := os.Getenv("FDA_DATA_URL"); v != "" {
		cfg.Source.URL = v
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Source.DataDir = v
	}

	if v := os.Getenv("SEARCH_ENABLED"); v == "false" {
		cfg.Search.Enabled = false
	}

	if v := os.Getenv("REPORT_PATH"); v != "" {
		cfg.Report.Path = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

// applyDatabaseURL maps a DATABASE_URL value onto the driver settings.
// sqlite:<path> selects the sqlite driver; postgres://... selects postgres.
func applyDatabaseURL(cfg *Config, v string) {
	if strings.HasPrefix(v, "sqlite:") {
		cfg.Database.Driver = "sqlite"
		cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
	} else if strings.HasPrefix(v, "postgres") {
		cfg.Database.Driver = "postgres"
		cfg.Database.Postgres.DSN = v
	}
}
