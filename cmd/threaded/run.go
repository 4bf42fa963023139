package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/threaded/internal/workload"
	"github.com/ajitpratap0/threaded/pkg/accumulator"
	"github.com/ajitpratap0/threaded/pkg/config"
	"github.com/ajitpratap0/threaded/pkg/logger"
	"github.com/ajitpratap0/threaded/pkg/observability"
	"github.com/ajitpratap0/threaded/pkg/threaded"
)

func newRunCmd() *cobra.Command {
	v := viper.New()
	defaults := config.Default()

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workload against a counter pool and a histogram pool",
		Long: `Run fills a counter pool and a histogram pool from a parallel workload,
then prints the per-slot partial results, a snapshot merge and the final
merged result as JSON.

Settings are read from the config file, then THREADED_* environment
variables, then flags.

Example:
  threaded run --workers 8 --jobs 1000000 --max-slots 16`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWorkload(ctx, cmd, cfg, v.GetUint64("seed"))
		},
	}

	flags := runCmd.Flags()
	flags.String("config", "", "Path to a YAML configuration file")
	flags.Int("workers", logicalCPUs(), "Number of worker goroutines")
	flags.Int("jobs", defaults.Workload.Jobs, "Number of jobs to distribute across workers")
	flags.Int("max-slots", defaults.MaxSlots, "Pool slot capacity; workers beyond it are rejected")
	flags.String("identity", defaults.Identity, "Caller identity source (goroutine, os_thread)")
	flags.String("log-level", defaults.Logging.Level, "Log level (debug, info, warn, error)")
	flags.Bool("trace", defaults.Tracing.Enabled, "Export merge spans to stderr")
	flags.Int("bins", defaults.Workload.Bins, "Histogram bin count")
	flags.Uint64("seed", 1, "Seed for the generated job values")

	v.SetEnvPrefix("THREADED")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	return runCmd
}

// loadRunConfig layers explicitly set flags and environment variables over
// the config file, or over the defaults when no file is given.
func loadRunConfig(v *viper.Viper) (*config.PoolConfig, error) {
	cfg := config.Default()
	cfg.Workload.Workers = logicalCPUs()

	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadPoolConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v.IsSet("workers") {
		cfg.Workload.Workers = v.GetInt("workers")
	}
	if v.IsSet("jobs") {
		cfg.Workload.Jobs = v.GetInt("jobs")
	}
	if v.IsSet("max-slots") {
		cfg.MaxSlots = v.GetInt("max-slots")
	}
	if v.IsSet("identity") {
		cfg.Identity = v.GetString("identity")
	}
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}
	if v.IsSet("trace") {
		cfg.Tracing.Enabled = v.GetBool("trace")
	}
	if v.IsSet("bins") {
		cfg.Workload.Bins = v.GetInt("bins")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runWorkload(ctx context.Context, cmd *cobra.Command, cfg *config.PoolConfig, seed uint64) error {
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		Development: cfg.Logging.Development,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	log := logger.WithContext(ctx).With(zap.String("component", "threaded-cli"))

	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: version,
			SamplingRate:   cfg.Tracing.SamplingRate,
			Writer:         cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("failed to flush spans", zap.Error(err))
			}
		}()
	}

	jobs := generateJobs(cfg.Workload.Jobs, seed)
	wcfg := workload.Config{
		Workers:      cfg.Workload.GetWorkers(),
		QueueSize:    cfg.Workload.QueueSize,
		LockOSThread: cfg.Identity == config.IdentityOSThread,
	}

	counters := threaded.New(accumulator.Counter{},
		append(threaded.ConfigOptions(cfg), threaded.WithName(cfg.Name+"_counter"))...)
	wcfg.Name = counters.Name()
	counterRun, err := workload.Run(ctx, wcfg, counters, jobs, func(c *accumulator.Counter, _ float64) {
		c.Add(1)
	})
	if err != nil {
		return fmt.Errorf("counter workload failed: %w", err)
	}

	histograms := threaded.NewCloning[accumulator.Histogram](*accumulator.NewHistogram(cfg.Workload.Bins, 0, 1),
		append(threaded.ConfigOptions(cfg), threaded.WithName(cfg.Name+"_histogram"))...)
	wcfg.Name = histograms.Name()
	histogramRun, err := workload.Run(ctx, wcfg, histograms, jobs, (*accumulator.Histogram).Fill)
	if err != nil {
		return fmt.Errorf("histogram workload failed: %w", err)
	}

	rep := buildReport(cfg, wcfg.Workers, counters, counterRun, histograms, histogramRun)
	rep.RunID = runID

	log.Info("workload complete",
		zap.Int64("counter_total", rep.Counter.Merged),
		zap.Uint64("histogram_entries", rep.Histogram.Merged.Entries))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// generateJobs returns n values uniform in [0, 1).
func generateJobs(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed))
	jobs := make([]float64, n)
	for i := range jobs {
		jobs[i] = rng.Float64()
	}
	return jobs
}
