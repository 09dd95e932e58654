// Package config loads service settings from YAML, .env files and ORACLE_* variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"tmts_oracle/pkg/core/metrics"
)

// Config is the full service configuration.
type Config struct {
	Company    string           `yaml:"company"`
	Catalog    string           `yaml:"catalog"`
	Database   DatabaseConfig   `yaml:"database"`
	Data       DataConfig       `yaml:"data"`
	Projection ProjectionConfig `yaml:"projection"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DatabaseConfig points at the PostgreSQL document store.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	FetchTimeout string `yaml:"fetch_timeout"`
}

// DataConfig locates file-backed collections.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// ProjectionConfig tunes the free-cash-flow projection.
type ProjectionConfig struct {
	Anchor     string  `yaml:"anchor"`
	Horizon    int     `yaml:"horizon"`
	ROICCap    float64 `yaml:"roic_cap"`
	SeedWindow int     `yaml:"seed_window"`
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig selects level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Company:  "tesla",
		Database: DatabaseConfig{FetchTimeout: metrics.DefaultFetchTimeout.String()},
		Data:     DataConfig{Dir: "data"},
		Projection: ProjectionConfig{
			Horizon:    metrics.DefaultHorizon,
			ROICCap:    metrics.DefaultROICCap,
			SeedWindow: metrics.DefaultSeedWindow,
		},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads .env (if present), then the YAML file (if path is non-empty),
// then ORACLE_* overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if _, err := cfg.FetchTimeout(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ORACLE_COMPANY"); v != "" {
		cfg.Company = v
	}
	if v := os.Getenv("ORACLE_CATALOG"); v != "" {
		cfg.Catalog = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && cfg.Database.URL == "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ORACLE_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ORACLE_FETCH_TIMEOUT"); v != "" {
		cfg.Database.FetchTimeout = v
	}
	if v := os.Getenv("ORACLE_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("ORACLE_PROJECTION_ANCHOR"); v != "" {
		cfg.Projection.Anchor = v
	}
	if v := os.Getenv("ORACLE_PROJECTION_HORIZON"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Projection.Horizon = n
		}
	}
	if v := os.Getenv("ORACLE_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("ORACLE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ORACLE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// FetchTimeout parses database.fetch_timeout.
func (c *Config) FetchTimeout() (time.Duration, error) {
	if c.Database.FetchTimeout == "" {
		return metrics.DefaultFetchTimeout, nil
	}
	d, err := time.ParseDuration(c.Database.FetchTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid fetch_timeout %q: %w", c.Database.FetchTimeout, err)
	}
	return d, nil
}

// EngineConfig converts settings for metrics.NewEngine.
func (c *Config) EngineConfig() metrics.EngineConfig {
	timeout, _ := c.FetchTimeout()
	return metrics.EngineConfig{
		FetchTimeout: timeout,
		Projection: metrics.ProjectionConfig{
			Anchor:     c.Projection.Anchor,
			Horizon:    c.Projection.Horizon,
			ROICCap:    c.Projection.ROICCap,
			SeedWindow: c.Projection.SeedWindow,
		},
	}
}

// LoadCatalog returns the configured catalog, or the built-in one when none is set.
func (c *Config) LoadCatalog() (*metrics.Catalog, error) {
	if c.Catalog == "" {
		return metrics.DefaultCatalog(), nil
	}
	return metrics.LoadCatalog(c.Catalog)
}
