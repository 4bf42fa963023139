package main

import (
	"os"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ajitpratap0/threaded/internal/workload"
	"github.com/ajitpratap0/threaded/pkg/accumulator"
	"github.com/ajitpratap0/threaded/pkg/config"
	"github.com/ajitpratap0/threaded/pkg/threaded"
)

type report struct {
	RunID     string          `json:"run_id"`
	Pool      string          `json:"pool"`
	MaxSlots  int             `json:"max_slots"`
	Identity  string          `json:"identity"`
	Workers   int             `json:"workers"`
	Jobs      int             `json:"jobs"`
	Counter   counterReport   `json:"counter"`
	Histogram histogramReport `json:"histogram"`
	System    systemReport    `json:"system"`
}

type counterReport struct {
	Partials []int64         `json:"partials"`
	Snapshot int64           `json:"snapshot"`
	Merged   int64           `json:"merged"`
	Workload workload.Result `json:"workload"`
}

type histogramReport struct {
	// Partials holds the entry count of each populated slot.
	Partials []uint64               `json:"partials"`
	Snapshot uint64                 `json:"snapshot_entries"`
	Merged   *accumulator.Histogram `json:"merged"`
	Mean     float64                `json:"mean"`
	Workload workload.Result        `json:"workload"`
}

type systemReport struct {
	LogicalCPUs int    `json:"logical_cpus"`
	Threads     int32  `json:"threads"`
	RSSBytes    uint64 `json:"rss_bytes"`
	TotalMemory uint64 `json:"total_memory_bytes"`
}

// buildReport reads the partial results before merging, since Merge folds
// everything into slot 0.
func buildReport(
	cfg *config.PoolConfig,
	workers int,
	counters *threaded.Pool[accumulator.Counter],
	counterRun workload.Result,
	histograms *threaded.Pool[accumulator.Histogram],
	histogramRun workload.Result,
) report {
	rep := report{
		Pool:     cfg.Name,
		MaxSlots: cfg.MaxSlots,
		Identity: cfg.Identity,
		Workers:  workers,
		Jobs:     cfg.Workload.Jobs,
		System:   sampleSystem(),
	}

	rep.Counter.Workload = counterRun
	for i := 0; i < counters.MaxSlots(); i++ {
		if c := counters.GetAtSlotUnchecked(i); c != nil {
			rep.Counter.Partials = append(rep.Counter.Partials, c.Value())
		}
	}
	rep.Counter.Snapshot = counters.SnapshotMerge(nil).Value()
	rep.Counter.Merged = counters.Merge(nil).Value()

	rep.Histogram.Workload = histogramRun
	for i := 0; i < histograms.MaxSlots(); i++ {
		if h := histograms.GetAtSlotUnchecked(i); h != nil {
			rep.Histogram.Partials = append(rep.Histogram.Partials, h.Entries)
		}
	}
	rep.Histogram.Snapshot = histograms.SnapshotMerge(nil).Entries
	rep.Histogram.Merged = histograms.Merge(nil)
	if rep.Histogram.Merged.Entries > 0 {
		rep.Histogram.Mean = rep.Histogram.Merged.Mean()
	}

	return rep
}

// sampleSystem reports host and process figures; fields the platform cannot
// provide stay zero.
func sampleSystem() systemReport {
	s := systemReport{LogicalCPUs: logicalCPUs()}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.TotalMemory = vm.Total
	}
	proc, err := process.NewProcess(int32(os.Getpid())) // #nosec G115 - pid fits in int32
	if err != nil {
		return s
	}
	if n, err := proc.NumThreads(); err == nil {
		s.Threads = n
	}
	if mi, err := proc.MemoryInfo(); err == nil {
		s.RSSBytes = mi.RSS
	}
	return s
}
