// Package metrics provides Prometheus instrumentation for threaded pools and
// the workloads that drive them.
//
// # Overview
//
// Every pool gets a PoolCollector labelled with the pool name. The collector
// is touched only off the hot path: when a slot is created, when a caller
// identity is assigned a slot, when a capacity warning is raised and when a
// merge completes. Repeated Get calls that hit an existing slot record
// nothing.
//
// Series are keyed by pool name only. Pools that share a name add to the same
// series, so slots_populated is cumulative per name rather than per pool.
//
// # Basic Usage
//
//	c := metrics.NewPoolCollector("histograms")
//	c.SlotAssigned()
//	c.SlotCreated()
//
//	timer := metrics.NewTimer("merge")
//	merged := pool.Merge(nil)
//	c.Merged(metrics.ModeDestructive, false, timer.Stop())
//
// # Metric Types
//
// Counter: slot assignments, capacity warnings, merges
// Gauge: populated slots, workload throughput
// Histogram: merge latency
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Merge modes used as the "mode" label.
const (
	ModeDestructive = "destructive"
	ModeSnapshot    = "snapshot"
)

// Merge results used as the "result" label.
const (
	ResultComputed = "computed"
	ResultCached   = "cached"
)

var (
	// SlotsPopulated counts slots created under a pool name. It only goes up.
	// Labels: pool
	SlotsPopulated = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "threaded",
			Name:      "slots_populated",
			Help:      "Number of pool slots holding a lazily created value",
		},
		[]string{"pool"},
	)

	// SlotAssignments counts caller identities that were assigned a slot.
	// Labels: pool
	SlotAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threaded",
			Name:      "slot_assignments_total",
			Help:      "Total number of caller identities assigned a slot",
		},
		[]string{"pool"},
	)

	// CapacityExceeded counts GetAtSlot calls with an index beyond the pool capacity.
	// Labels: pool
	CapacityExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threaded",
			Name:      "capacity_exceeded_total",
			Help:      "Total number of slot requests rejected because the pool is full",
		},
		[]string{"pool"},
	)

	// Merges counts merge calls.
	// Labels: pool, mode (destructive/snapshot), result (computed/cached)
	//
	// Example:
	//	metrics.Merges.WithLabelValues("histograms", metrics.ModeSnapshot, metrics.ResultComputed).Inc()
	Merges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threaded",
			Name:      "merges_total",
			Help:      "Total number of merge operations",
		},
		[]string{"pool", "mode", "result"},
	)

	// MergeDuration tracks how long merges take in seconds.
	// Labels: pool, mode
	MergeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "threaded",
			Name:      "merge_duration_seconds",
			Help:      "Duration of merge operations in seconds",
			Buckets: []float64{
				1e-6, // 1μs - a handful of counters
				1e-5,
				1e-4,
				1e-3, // 1ms - large histograms
				1e-2,
				1e-1,
				1,
			},
		},
		[]string{"pool", "mode"},
	)

	// Throughput tracks workload jobs per second.
	// Labels: workload
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "threaded",
			Name:      "workload_throughput_jobs_per_second",
			Help:      "Jobs applied per second by the last workload run",
		},
		[]string{"workload"},
	)
)

// PoolCollector records metrics for one pool. A nil *PoolCollector is valid
// and records nothing.
type PoolCollector struct {
	pool        string
	populated   prometheus.Gauge
	assignments prometheus.Counter
	capacity    prometheus.Counter
}

// NewPoolCollector creates a collector for the named pool.
func NewPoolCollector(pool string) *PoolCollector {
	return &PoolCollector{
		pool:        pool,
		populated:   SlotsPopulated.WithLabelValues(pool),
		assignments: SlotAssignments.WithLabelValues(pool),
		capacity:    CapacityExceeded.WithLabelValues(pool),
	}
}

// Pool returns the pool label.
func (c *PoolCollector) Pool() string {
	if c == nil {
		return ""
	}
	return c.pool
}

// SlotCreated records a lazily created slot value.
func (c *PoolCollector) SlotCreated() {
	if c == nil {
		return
	}
	c.populated.Inc()
}

// SlotAssigned records a new identity-to-slot assignment.
func (c *PoolCollector) SlotAssigned() {
	if c == nil {
		return
	}
	c.assignments.Inc()
}

// CapacityExceeded records a rejected slot request.
func (c *PoolCollector) CapacityExceeded() {
	if c == nil {
		return
	}
	c.capacity.Inc()
}

// Merged records a merge of the given mode. cached is true when the result
// came from an earlier destructive merge.
func (c *PoolCollector) Merged(mode string, cached bool, d time.Duration) {
	if c == nil {
		return
	}
	result := ResultComputed
	if cached {
		result = ResultCached
	}
	Merges.WithLabelValues(c.pool, mode, result).Inc()
	MergeDuration.WithLabelValues(c.pool, mode).Observe(d.Seconds())
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called
// multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks throughput (jobs per second) over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64     // Jobs processed since last reset
	lastReset time.Time // Time of last reset
	workload  string    // Workload label
}

// NewThroughputTracker creates a new throughput tracker for a workload.
//
// Example:
//
//	tracker := metrics.NewThroughputTracker("counters")
//	for job := range jobs {
//	    apply(job)
//	    tracker.Increment(1)
//	}
//	perSec := tracker.GetAndReset()
func NewThroughputTracker(workload string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		workload:  workload,
	}
}

// Increment adds n to the job count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (jobs/second),
// updates the Prometheus metric, resets the counter, and returns
// the calculated throughput. Safe for concurrent use.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	// Reset for next period
	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.workload).Set(throughput)

	return throughput
}
