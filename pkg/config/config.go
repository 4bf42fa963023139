package config

import (
	"runtime"

	"github.com/ajitpratap0/threaded/pkg/errors"
)

// DefaultMaxSlots is the slot capacity used when none is configured.
const DefaultMaxSlots = 64

// Identity sources understood by the pool.
const (
	// IdentityGoroutine keys slots by goroutine id.
	IdentityGoroutine = "goroutine"
	// IdentityOSThread keys slots by kernel thread id. Only meaningful for
	// goroutines locked to their OS thread.
	IdentityOSThread = "os_thread"
)

// PoolConfig is the complete configuration for one pool and its workload.
type PoolConfig struct {
	// Name labels the pool in logs and metrics
	Name string `yaml:"name" json:"name"`
	// MaxSlots fixes the slot array capacity for the lifetime of the pool
	MaxSlots int `yaml:"max_slots" json:"max_slots"`
	// Identity selects how callers are told apart (goroutine or os_thread)
	Identity string `yaml:"identity" json:"identity"`

	Workload WorkloadConfig `yaml:"workload" json:"workload"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
}

// WorkloadConfig sizes the demo workload run by the CLI.
type WorkloadConfig struct {
	// Workers is the number of goroutines feeding the pool (0 = logical CPUs)
	Workers int `yaml:"workers" json:"workers"`
	// Jobs is the number of jobs distributed across workers
	Jobs int `yaml:"jobs" json:"jobs"`
	// QueueSize bounds the job queue (rounded up to a power of two)
	QueueSize int `yaml:"queue_size" json:"queue_size"`
	// Bins is the histogram bin count
	Bins int `yaml:"bins" json:"bins"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Encoding    string `yaml:"encoding" json:"encoding"`
	Development bool   `yaml:"development" json:"development"`
}

// MetricsConfig toggles Prometheus recording.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// TracingConfig toggles merge spans and the stdout exporter.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"service_name" json:"service_name"`
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate"`
}

// Default returns a configuration with sensible defaults.
func Default() *PoolConfig {
	return &PoolConfig{
		Name:     "default",
		MaxSlots: DefaultMaxSlots,
		Identity: IdentityGoroutine,
		Workload: WorkloadConfig{
			Workers:   runtime.NumCPU(),
			Jobs:      100000,
			QueueSize: 1 << 16,
			Bins:      32,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			ServiceName:  "threaded",
			SamplingRate: 1.0,
		},
	}
}

// Validate checks required fields and value ranges. The returned error is
// an *errors.Error of type ErrorTypeConfig.
func (c *PoolConfig) Validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "name is required")
	}
	if c.MaxSlots <= 0 {
		return errors.New(errors.ErrorTypeConfig, "max_slots must be positive").
			WithDetail("max_slots", c.MaxSlots)
	}
	switch c.Identity {
	case IdentityGoroutine, IdentityOSThread:
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown identity source %q", c.Identity)
	}
	if c.Workload.Workers < 0 {
		return errors.New(errors.ErrorTypeConfig, "workload.workers cannot be negative")
	}
	if c.Workload.Jobs < 0 {
		return errors.New(errors.ErrorTypeConfig, "workload.jobs cannot be negative")
	}
	if c.Workload.QueueSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "workload.queue_size must be positive")
	}
	if c.Workload.Bins <= 0 {
		return errors.New(errors.ErrorTypeConfig, "workload.bins must be positive")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.New(errors.ErrorTypeConfig, "tracing.sampling_rate must be within [0, 1]")
	}
	return nil
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (w *WorkloadConfig) GetWorkers() int {
	if w.Workers <= 0 {
		return runtime.NumCPU()
	}
	return w.Workers
}
