// Package config provides configuration management for the arbitrage scanner.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override,
// e.g. ARB_SCANNER_SCAN_MIN_SPREAD_PCT.
const EnvPrefix = "ARB_SCANNER"

// DefaultConfigPath is used when no path is given
const DefaultConfigPath = "config/config.yaml"

// Collector defaults applied to every entry that leaves a field unset
const (
	defaultMarketLimit       = 30
	defaultListTimeout       = 10
	defaultDetailTimeout     = 5
	defaultMaxConcurrency    = 8
	defaultRateLimitRPS      = 10.0
	defaultMaxRetries        = 2
	defaultMarketCacheTTL    = 60
	defaultKalshiBaseURL     = "https://api.elections.kalshi.com/trade-api/v2"
	defaultPolymarketBaseURL = "https://clob.polymarket.com"
)

// Load reads and parses the configuration from file and environment variables.
// The file must exist. ${VAR} placeholders in the YAML are expanded.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return unmarshal(v)
}

// LoadWithDefaults is like Load but tolerates a missing file, falling back to
// defaults and environment variables.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	v := newViper()

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// LoadDotEnv loads environment variables from .env files. Missing files are
// ignored and variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// DefaultCollectors returns the built-in Kalshi and Polymarket collectors
func DefaultCollectors() []CollectorConfig {
	collectors := []CollectorConfig{
		{Name: "Kalshi", Type: CollectorTypeKalshi, Enabled: true, BaseURL: defaultKalshiBaseURL},
		{Name: "Polymarket", Type: CollectorTypePolymarket, Enabled: true, BaseURL: defaultPolymarketBaseURL},
	}
	for i := range collectors {
		applyCollectorDefaults(&collectors[i])
	}
	return collectors
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "arb-scanner")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("scan.min_spread_pct", 2.5)
	v.SetDefault("scan.fee_pct", 1.0)
	v.SetDefault("scan.poll_interval_seconds", 5)
	v.SetDefault("scan.error_backoff_seconds", 10)
	v.SetDefault("scan.sort_by_spread", false)
	v.SetDefault("scan.max_cycles", 0)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("schedule.stats_summary", "@every 1m")

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if len(cfg.Collectors) == 0 {
		cfg.Collectors = DefaultCollectors()
	}
	for i := range cfg.Collectors {
		applyCollectorDefaults(&cfg.Collectors[i])
	}

	return cfg, nil
}

// applyCollectorDefaults fills zero-valued collector fields. Enabled is left
// as configured.
func applyCollectorDefaults(c *CollectorConfig) {
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.Name == "" {
		c.Name = c.Type
	}
	if c.BaseURL == "" {
		switch c.Type {
		case CollectorTypeKalshi:
			c.BaseURL = defaultKalshiBaseURL
		case CollectorTypePolymarket:
			c.BaseURL = defaultPolymarketBaseURL
		}
	}
	if c.MarketLimit == 0 {
		c.MarketLimit = defaultMarketLimit
	}
	if c.ListTimeoutSeconds == 0 {
		c.ListTimeoutSeconds = defaultListTimeout
	}
	if c.DetailTimeoutSeconds == 0 {
		c.DetailTimeoutSeconds = defaultDetailTimeout
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = defaultMaxConcurrency
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = defaultRateLimitRPS
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.MarketCacheTTLSeconds == 0 {
		c.MarketCacheTTLSeconds = defaultMarketCacheTTL
	}
}
