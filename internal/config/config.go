// Package config provides configuration management for the arbitrage scanner.
package config

import (
	"time"
)

// Collector types understood by the datasource factory
const (
	CollectorTypeKalshi     = "kalshi"
	CollectorTypePolymarket = "polymarket"
	CollectorTypeFile       = "file"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig         `mapstructure:"app" validate:"required"`
	Scan       ScanConfig        `mapstructure:"scan" validate:"required"`
	Collectors []CollectorConfig `mapstructure:"collectors" validate:"required,min=1,dive"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Schedule   ScheduleConfig    `mapstructure:"schedule"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	LogFormat   string `mapstructure:"log_format" validate:"required,logformat"`
}

// ScanConfig holds the opportunity thresholds and loop pacing
type ScanConfig struct {
	MinSpreadPct        float64 `mapstructure:"min_spread_pct" validate:"gte=0"`
	FeePct              float64 `mapstructure:"fee_pct" validate:"gte=0,lt=50"`
	PollIntervalSeconds int     `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`
	ErrorBackoffSeconds int     `mapstructure:"error_backoff_seconds" validate:"gte=0"`
	SortBySpread        bool    `mapstructure:"sort_by_spread"`
	MaxCycles           int     `mapstructure:"max_cycles" validate:"gte=0"`
}

// CollectorConfig represents a single platform collector
type CollectorConfig struct {
	Name                  string  `mapstructure:"name" validate:"required"`
	Type                  string  `mapstructure:"type" validate:"required,collectortype"`
	Enabled               bool    `mapstructure:"enabled"`
	BaseURL               string  `mapstructure:"base_url" validate:"omitempty,url"`
	Path                  string  `mapstructure:"path"`
	MarketLimit           int     `mapstructure:"market_limit" validate:"gt=0"`
	ListTimeoutSeconds    int     `mapstructure:"list_timeout_seconds" validate:"gt=0"`
	DetailTimeoutSeconds  int     `mapstructure:"detail_timeout_seconds" validate:"gt=0"`
	MaxConcurrency        int     `mapstructure:"max_concurrency" validate:"gt=0"`
	RateLimitRPS          float64 `mapstructure:"rate_limit_rps" validate:"gt=0"`
	MaxRetries            int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	MarketCacheTTLSeconds int     `mapstructure:"market_cache_ttl_seconds" validate:"gte=0"`
}

// MetricsConfig represents metrics and health endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required,startswith=/"`
}

// ScheduleConfig holds cron expressions for periodic jobs
type ScheduleConfig struct {
	StatsSummary string `mapstructure:"stats_summary" validate:"omitempty,cronspec"`
}

// PollInterval returns the pause between successful scan cycles
func (s ScanConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

// ErrorBackoff returns the pause after a failed cycle: the configured value,
// but never less than twice the poll interval.
func (s ScanConfig) ErrorBackoff() time.Duration {
	backoff := time.Duration(s.ErrorBackoffSeconds) * time.Second
	if floor := 2 * s.PollInterval(); backoff < floor {
		return floor
	}
	return backoff
}

// ListTimeout bounds the list-markets request
func (c CollectorConfig) ListTimeout() time.Duration {
	return time.Duration(c.ListTimeoutSeconds) * time.Second
}

// DetailTimeout bounds each per-market order book request
func (c CollectorConfig) DetailTimeout() time.Duration {
	return time.Duration(c.DetailTimeoutSeconds) * time.Second
}

// MarketCacheTTL returns how long market listings are reused
func (c CollectorConfig) MarketCacheTTL() time.Duration {
	return time.Duration(c.MarketCacheTTLSeconds) * time.Second
}

// EnabledCollectors returns the collectors switched on in configuration
func (c *Config) EnabledCollectors() []CollectorConfig {
	enabled := make([]CollectorConfig, 0, len(c.Collectors))
	for _, col := range c.Collectors {
		if col.Enabled {
			enabled = append(enabled, col)
		}
	}
	return enabled
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
