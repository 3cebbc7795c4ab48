package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validConfigPath       = "testdata/valid_config.yaml"
	expansionConfigPath   = "testdata/expansion_config.yaml"
	minimalConfigPath     = "testdata/minimal_config.yaml"
	invalidYAMLPath       = "testdata/invalid_yaml.yaml"
	nonexistentConfigPath = "testdata/nonexistent_config.yaml"
	testQuotesPathVar     = "TEST_QUOTES_PATH"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "arb-scanner",
			Environment: "development",
			LogLevel:    "info",
			LogFormat:   "text",
		},
		Scan: ScanConfig{
			MinSpreadPct:        2.5,
			FeePct:              1.0,
			PollIntervalSeconds: 5,
			ErrorBackoffSeconds: 10,
		},
		Collectors: DefaultCollectors(),
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		Schedule: ScheduleConfig{StatsSummary: "@every 1m"},
	}
}

func TestLoadConfigSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "arb-scanner", cfg.App.Name)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 2.5, cfg.Scan.MinSpreadPct)
	assert.Equal(t, 1.0, cfg.Scan.FeePct)
	assert.True(t, cfg.Scan.SortBySpread)
	assert.Equal(t, 9091, cfg.Metrics.Port)
	assert.Equal(t, "@every 30s", cfg.Schedule.StatsSummary)

	require.Len(t, cfg.Collectors, 3)
	assert.Equal(t, CollectorTypeKalshi, cfg.Collectors[0].Type)
	assert.Equal(t, 8, cfg.Collectors[0].MaxConcurrency)

	// Unset fields on the Polymarket entry fall back to collector defaults
	poly := cfg.Collectors[1]
	assert.Equal(t, defaultMarketLimit, poly.MarketLimit)
	assert.Equal(t, 10*time.Second, poly.ListTimeout())
	assert.Equal(t, 5*time.Second, poly.DetailTimeout())

	enabled := cfg.EnabledCollectors()
	require.Len(t, enabled, 2)
	assert.Equal(t, "Kalshi", enabled[0].Name)
	assert.Equal(t, "Polymarket", enabled[1].Name)

	assert.NoError(t, Validate(cfg))
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load(nonexistentConfigPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	_, err := Load(invalidYAMLPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("ARB_SCANNER_SCAN_MIN_SPREAD_PCT", "4.5")
	t.Setenv("ARB_SCANNER_APP_LOG_LEVEL", "warn")

	cfg, err := Load(validConfigPath)
	require.NoError(t, err)

	assert.Equal(t, 4.5, cfg.Scan.MinSpreadPct)
	assert.Equal(t, "warn", cfg.App.LogLevel)
}

func TestLoadConfigEnvironmentVariableExpansion(t *testing.T) {
	t.Setenv(testQuotesPathVar, "/tmp/quotes.json")

	cfg, err := Load(expansionConfigPath)
	require.NoError(t, err)
	require.Len(t, cfg.Collectors, 1)

	assert.Equal(t, "/tmp/quotes.json", cfg.Collectors[0].Path)
	assert.NoError(t, Validate(cfg))
}

func TestLoadConfigMissingEnvironmentVariable(t *testing.T) {
	t.Setenv(testQuotesPathVar, "")

	cfg, err := Load(expansionConfigPath)
	require.NoError(t, err)

	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := Load(minimalConfigPath)
	require.NoError(t, err)

	assert.Equal(t, 3.0, cfg.Scan.MinSpreadPct)
	assert.Equal(t, 1.0, cfg.Scan.FeePct)
	assert.Equal(t, 5, cfg.Scan.PollIntervalSeconds)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "text", cfg.App.LogFormat)
	assert.False(t, cfg.Metrics.Enabled)

	require.Len(t, cfg.Collectors, 2)
	assert.Equal(t, defaultKalshiBaseURL, cfg.Collectors[0].BaseURL)
	assert.Equal(t, defaultPolymarketBaseURL, cfg.Collectors[1].BaseURL)
	assert.True(t, cfg.Collectors[0].Enabled)

	assert.NoError(t, Validate(cfg))
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Scan.MinSpreadPct)
	assert.Equal(t, 5*time.Second, cfg.Scan.PollInterval())
	assert.NoError(t, Validate(cfg))
}

func TestValidateSuccess(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantMsg string
	}{
		{
			name:    "invalid environment",
			mutate:  func(cfg *Config) { cfg.App.Environment = "invalid" },
			wantMsg: "development, staging, production",
		},
		{
			name:    "invalid log level",
			mutate:  func(cfg *Config) { cfg.App.LogLevel = "verbose" },
			wantMsg: "debug, info, warn, error",
		},
		{
			name:    "invalid log format",
			mutate:  func(cfg *Config) { cfg.App.LogFormat = "xml" },
			wantMsg: "text, json",
		},
		{
			name:    "negative min spread",
			mutate:  func(cfg *Config) { cfg.Scan.MinSpreadPct = -1 },
			wantMsg: "MinSpreadPct",
		},
		{
			name:    "fee too large",
			mutate:  func(cfg *Config) { cfg.Scan.FeePct = 50 },
			wantMsg: "FeePct",
		},
		{
			name:    "zero poll interval",
			mutate:  func(cfg *Config) { cfg.Scan.PollIntervalSeconds = 0 },
			wantMsg: "PollIntervalSeconds",
		},
		{
			name:    "unknown collector type",
			mutate:  func(cfg *Config) { cfg.Collectors[0].Type = "manifold" },
			wantMsg: "kalshi, polymarket, file",
		},
		{
			name:    "bad base url",
			mutate:  func(cfg *Config) { cfg.Collectors[0].BaseURL = "not a url" },
			wantMsg: "valid URL",
		},
		{
			name:    "invalid cron",
			mutate:  func(cfg *Config) { cfg.Schedule.StatsSummary = "every minute" },
			wantMsg: "cron expression",
		},
		{
			name: "no enabled collectors",
			mutate: func(cfg *Config) {
				for i := range cfg.Collectors {
					cfg.Collectors[i].Enabled = false
				}
			},
			wantMsg: "at least one collector",
		},
		{
			name:    "duplicate collector names",
			mutate:  func(cfg *Config) { cfg.Collectors[1].Name = "kalshi" },
			wantMsg: "duplicate collector name",
		},
		{
			name:    "detail timeout exceeds list timeout",
			mutate:  func(cfg *Config) { cfg.Collectors[0].DetailTimeoutSeconds = 20 },
			wantMsg: "detail_timeout_seconds",
		},
		{
			name:    "file collector without path",
			mutate:  func(cfg *Config) { cfg.Collectors = []CollectorConfig{fileCollector("")} },
			wantMsg: "path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateShortErrorBackoff(t *testing.T) {
	cfg := validConfig()
	cfg.Scan.PollIntervalSeconds = 10
	cfg.Scan.ErrorBackoffSeconds = 10

	require.NoError(t, Validate(cfg))
	assert.Equal(t, 20*time.Second, cfg.Scan.ErrorBackoff())
}

func TestValidateFileCollector(t *testing.T) {
	cfg := validConfig()
	cfg.Collectors = []CollectorConfig{fileCollector("quotes.json")}

	assert.NoError(t, Validate(cfg))
}

func TestErrorBackoff(t *testing.T) {
	tests := []struct {
		name     string
		poll     int
		backoff  int
		expected time.Duration
	}{
		{"configured above floor", 5, 30, 30 * time.Second},
		{"configured below floor", 5, 3, 10 * time.Second},
		{"unset", 4, 0, 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScanConfig{PollIntervalSeconds: tt.poll, ErrorBackoffSeconds: tt.backoff}
			assert.Equal(t, tt.expected, s.ErrorBackoff())
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := validConfig()
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.App.Environment = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func fileCollector(path string) CollectorConfig {
	c := CollectorConfig{Name: "Replay", Type: CollectorTypeFile, Enabled: true, Path: path}
	applyCollectorDefaults(&c)
	return c
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ARB_SCANNER_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("ARB_SCANNER_TEST_DOTENV", "")
	os.Unsetenv("ARB_SCANNER_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("ARB_SCANNER_TEST_DOTENV"))
}
