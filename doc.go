// Package threaded is the root of a library for thread-affinity object
// pools: every concurrent caller works on its own private copy of a value,
// without locks, and the copies are merged into a single result at the end.
//
// # Packages
//
//   - pkg/threaded: the pool, its slot registry, caller identity sources and
//     the clone and merge policies
//   - pkg/accumulator: Counter and Histogram value types built to be filled
//     per worker and merged
//   - pkg/lockfree: the MPMC queue that feeds pool workers
//   - pkg/config, pkg/logger, pkg/metrics, pkg/observability, pkg/errors:
//     configuration, zap logging, Prometheus metrics, OpenTelemetry tracing
//     and structured errors
//   - internal/workload: runs a set of jobs across worker goroutines, each
//     writing to its own pool slot
//   - cmd/threaded: a CLI that drives a counter pool and a histogram pool and
//     reports partial and merged results
//
// # Quick Start
//
//	pool := threaded.New(accumulator.Counter{}, threaded.WithMaxSlots(16))
//
//	var wg sync.WaitGroup
//	for _, n := range []int64{10, 20, 30, 40} {
//		wg.Add(1)
//		go func(n int64) {
//			defer wg.Done()
//			pool.Get().Add(n)
//		}(n)
//	}
//	wg.Wait()
//
//	total := pool.Merge(nil).Value() // 100
//
// From the command line:
//
//	threaded run --workers 8 --jobs 1000000 --max-slots 16
//	threaded config init threaded.yaml
//
// # Concurrency Contract
//
// Get is safe from any number of goroutines; each lands on its own slot.
// Merge and SnapshotMerge must run after every writer is done, typically
// after a sync.WaitGroup. A pool serves at most MaxSlots distinct callers;
// further callers get nil and a capacity warning is logged.
package threaded
