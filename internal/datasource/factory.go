package datasource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/arb-scanner/internal/config"
	"github.com/yourusername/arb-scanner/internal/logger"
)

// Factory creates Collector implementations based on configuration
type Factory struct {
	logger  *logrus.Logger
	clients []*RateLimitedHTTPClient
}

// NewFactory creates a new collector factory
func NewFactory(logger *logrus.Logger) *Factory {
	return &Factory{logger: logger}
}

// NewCollector creates a Collector for one configured platform. HTTP
// collectors get their own rate-limited client and market cache.
func (f *Factory) NewCollector(cfg config.CollectorConfig) (Collector, error) {
	log := logger.NewCollectorLogger(f.logger, cfg.Name)

	switch cfg.Type {
	case config.CollectorTypeKalshi:
		return NewKalshiCollector(cfg, f.newHTTPClient(cfg, log), NewMarketCache(cfg.MarketCacheTTL()), log), nil

	case config.CollectorTypePolymarket:
		return NewPolymarketCollector(cfg, f.newHTTPClient(cfg, log), NewMarketCache(cfg.MarketCacheTTL()), log), nil

	case config.CollectorTypeFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file collector %s requires a path", cfg.Name)
		}
		return NewFileCollector(cfg, log), nil

	default:
		return nil, fmt.Errorf("unknown collector type: %s", cfg.Type)
	}
}

// NewCollectors creates all enabled collectors, preserving configured order
func (f *Factory) NewCollectors(cfgs []config.CollectorConfig) ([]Collector, error) {
	var collectors []Collector

	for _, cfg := range cfgs {
		if !cfg.Enabled {
			f.logger.Debugf("Skipping disabled collector: %s", cfg.Name)
			continue
		}

		collector, err := f.NewCollector(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create collector %s: %w", cfg.Name, err)
		}

		collectors = append(collectors, collector)
		f.logger.Infof("Created collector: %s (%s)", cfg.Name, cfg.Type)
	}

	if len(collectors) == 0 {
		return nil, fmt.Errorf("no enabled collectors configured")
	}

	return collectors, nil
}

// Close releases the HTTP clients created by the factory
func (f *Factory) Close() error {
	for _, c := range f.clients {
		_ = c.Close()
	}
	return nil
}

func (f *Factory) newHTTPClient(cfg config.CollectorConfig, log *logger.CollectorLogger) *RateLimitedHTTPClient {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.ListTimeout()
	httpCfg.MaxRetries = cfg.MaxRetries
	httpCfg.RateLimit = cfg.RateLimitRPS

	client := NewRateLimitedHTTPClient(httpCfg, log)
	f.clients = append(f.clients, client)
	return client
}
