// Package main provides the entry point for the arbitrage scanner.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/arb-scanner/internal/config"
	"github.com/yourusername/arb-scanner/internal/datasource"
	"github.com/yourusername/arb-scanner/internal/health"
	"github.com/yourusername/arb-scanner/internal/logger"
	"github.com/yourusername/arb-scanner/internal/metrics"
	"github.com/yourusername/arb-scanner/internal/scanner"
	"github.com/yourusername/arb-scanner/internal/scheduler"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	envFile    string
	minSpread  float64
	feePct     float64
	interval   int
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file")
	rootCmd.PersistentFlags().Float64Var(&minSpread, "min-spread", 0, "Minimum net spread in percent")
	rootCmd.PersistentFlags().Float64Var(&feePct, "fee", 0, "Fee in percent deducted from the gross spread")
	rootCmd.PersistentFlags().IntVar(&interval, "interval", 0, "Seconds between scan cycles")

	rootCmd.AddCommand(onceCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:          "arb-scanner",
	Short:        "Scan prediction markets for cross-platform arbitrage",
	Long:         `Polls Kalshi, Polymarket and file-backed quote sources, matches identical events across platforms and reports price gaps that survive fees.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScanner(cmd, false)
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single scan cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScanner(cmd, true)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "arb-scanner %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	var (
		c   *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		c, err = config.Load(configFile)
	} else {
		c, err = config.LoadWithDefaults(configFile)
	}
	if err != nil {
		return nil, err
	}

	applyFlagOverrides(cmd, c)

	if err := config.Validate(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// applyFlagOverrides copies explicitly set command line flags over the loaded configuration.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("min-spread") {
		c.Scan.MinSpreadPct = minSpread
	}
	if flags.Changed("fee") {
		c.Scan.FeePct = feePct
	}
	if flags.Changed("interval") {
		c.Scan.PollIntervalSeconds = interval
	}
}

func runScanner(cmd *cobra.Command, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	scanLog := logger.NewScanLogger(appLog)

	factory := datasource.NewFactory(appLog)
	defer factory.Close()

	collectors, err := factory.NewCollectors(cfg.Collectors)
	if err != nil {
		return err
	}

	opts := scanner.OptionsFromConfig(cfg.Scan)
	reporter := scanner.NewReporter(cmd.OutOrStdout())
	s := scanner.New(collectors, opts, reporter, scanLog)

	var sched *scheduler.Scheduler
	if !once && cfg.Schedule.StatsSummary != "" {
		sched = scheduler.NewScheduler(scanLog)
		if err := sched.ScheduleStatsSummary(cfg.Schedule.StatsSummary, s); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				appLog.WithError(err).Warn("Failed to stop scheduler")
			}
		}()
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		hs := health.NewServer(health.Config{
			ServiceName:    cfg.App.Name,
			Version:        Version,
			Commit:         GitCommit,
			Port:           cfg.Metrics.Port,
			MetricsPath:    cfg.Metrics.Path,
			MetricsHandler: metrics.Handler(),
			Logger:         appLog,
		})
		if err := hs.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
		if sched != nil {
			hs.AddCheck("next_stats_summary", func() string {
				return nextRunStatus(sched.GetNextRun())
			})
		}
		s.OnCycle(func(c scanner.Cycle, err error) {
			hs.RecordScan(c.StartedAt, err)
		})
	}

	appLog.WithFields(logrus.Fields{
		"environment":    cfg.App.Environment,
		"collectors":     len(collectors),
		"min_spread_pct": opts.MinSpreadPct,
		"fee_pct":        opts.FeePct,
		"poll_interval":  opts.PollInterval.String(),
	}).Info("Arbitrage scanner starting")

	if err := reporter.Banner(); err != nil {
		return err
	}

	if once {
		_, err := s.RunOnce(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if err := s.Run(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		_ = reporter.Stopped()
	}
	return nil
}

// nextRunStatus formats a scheduled run time for the readiness checks.
func nextRunStatus(next time.Time) string {
	if next.IsZero() {
		return "not_scheduled"
	}
	return next.UTC().Format(time.RFC3339)
}
