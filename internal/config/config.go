package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Strategies for querying an author with multiple name variants.
const (
	StrategyCombined   = "combined"
	StrategyPerVariant = "per-variant"
)

// Config holds all environmentally dependent settings. Every field maps to
// a BIB_* environment variable.
type Config struct {
	SourceType string `mapstructure:"source_type"`
	APIBaseURL string `mapstructure:"api_base_url"`
	APIKey     string `mapstructure:"api_key"`

	PageSize      int    `mapstructure:"page_size"`
	MaxRequests   int    `mapstructure:"max_requests"`
	QueryStrategy string `mapstructure:"query_strategy"`

	Concurrency    int `mapstructure:"concurrency"`
	PageDelayMS    int `mapstructure:"page_delay_ms"`
	AuthorDelayMS  int `mapstructure:"author_delay_ms"`
	HTTPTimeoutSec int `mapstructure:"http_timeout_sec"`

	CatalogPath string `mapstructure:"catalog_path"`
	LogLevel    string `mapstructure:"log_level"`
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("BIB_API_BASE_URL must not be empty")
	}
	if c.PageSize < 1 || c.PageSize > 40 {
		return fmt.Errorf("BIB_PAGE_SIZE must be between 1 and 40")
	}
	if c.MaxRequests < 1 {
		return fmt.Errorf("BIB_MAX_REQUESTS must be at least 1")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("BIB_CONCURRENCY must be at least 1")
	}
	if c.QueryStrategy != StrategyCombined && c.QueryStrategy != StrategyPerVariant {
		return fmt.Errorf("BIB_QUERY_STRATEGY must be %q or %q", StrategyCombined, StrategyPerVariant)
	}
	if c.CatalogPath == "" {
		return fmt.Errorf("BIB_CATALOG_PATH must not be empty")
	}
	return nil
}

// Load reads settings from the environment with defaults and validates.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BIB")
	v.AutomaticEnv()

	v.SetDefault("source_type", "googlebooks")
	v.SetDefault("api_base_url", "https://www.googleapis.com/books/v1")
	v.SetDefault("api_key", "")
	v.SetDefault("page_size", 20)
	v.SetDefault("max_requests", 50)
	v.SetDefault("query_strategy", StrategyCombined)
	v.SetDefault("concurrency", 4)
	v.SetDefault("page_delay_ms", 300)
	v.SetDefault("author_delay_ms", 0)
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("catalog_path", "bibscout.db")
	v.SetDefault("log_level", "info")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
