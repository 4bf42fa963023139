// Package workload drives a threaded pool with a set of worker goroutines
// that drain a shared lock-free job queue into their private pool values.
package workload

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/threaded/pkg/errors"
	"github.com/ajitpratap0/threaded/pkg/lockfree"
	"github.com/ajitpratap0/threaded/pkg/logger"
	"github.com/ajitpratap0/threaded/pkg/metrics"
	"github.com/ajitpratap0/threaded/pkg/threaded"
)

// Config configures a workload run
type Config struct {
	Name      string
	Workers   int // 0 = auto (NumCPU)
	QueueSize int // 0 = len(jobs)

	// LockOSThread pins every worker to its OS thread for the duration of
	// the run. Required when the pool identifies callers by OS thread.
	// Workers exit still locked, which retires their threads, so a thread id
	// and its slot are never handed to a second worker.
	LockOSThread bool
}

// Result reports what a run did
type Result struct {
	// Processed holds the number of jobs applied by each worker.
	Processed []int64       `json:"processed"`
	Total     int64         `json:"total"`
	Rejected  int           `json:"rejected"`
	Elapsed   time.Duration `json:"elapsed"`
	// Throughput is in jobs per second.
	Throughput float64 `json:"throughput"`
}

// Run applies every job to the calling worker's private pool value. Each
// worker fetches its value once with pool.Get and then drains the queue. A
// worker that gets nil because the pool is full stops at once and is counted
// in Result.Rejected; the remaining workers pick up its share.
//
// Run returns the context error if ctx is cancelled, and a capacity error
// when jobs were left over because no worker obtained a slot. The pool is
// not merged; callers merge after Run returns.
func Run[T, J any](ctx context.Context, cfg Config, pool *threaded.Pool[T], jobs []J, apply func(*T, J)) (Result, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = len(jobs)
	}
	if cfg.Name == "" {
		cfg.Name = pool.Name()
	}

	poolCtx := context.WithValue(ctx, logger.PoolKey, pool.Name())
	log := logger.WithContext(poolCtx)
	queue := lockfree.NewMPMCQueue[J](cfg.QueueSize)
	tracker := metrics.NewThroughputTracker(cfg.Name)

	var (
		fed       atomic.Bool
		active    atomic.Int64
		wg        sync.WaitGroup
		rejected  = lockfree.NewAtomicCounter()
		processed = lockfree.NewAtomicCounter()
		result    = Result{Processed: make([]int64, cfg.Workers)}
	)

	// The feeder stops once every worker is gone, so a pool too small for
	// any worker cannot leave it spinning on a full queue.
	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	active.Store(int64(cfg.Workers))

	start := time.Now()
	if queue.Cap() >= len(jobs) {
		for _, job := range jobs {
			queue.Enqueue(job)
		}
		fed.Store(true)
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer fed.Store(true)
			feed(feedCtx, queue, jobs)
		}()
	}

	log.Info("workload started",
		zap.String("workload", cfg.Name),
		zap.Int("workers", cfg.Workers),
		zap.Int("jobs", len(jobs)),
		zap.Int("queue_size", queue.Cap()))

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			defer func() {
				if active.Add(-1) == 0 {
					stopFeed()
				}
			}()
			if cfg.LockOSThread {
				// No matching unlock: the thread ends with the goroutine.
				runtime.LockOSThread()
			}
			wlog := logger.WithContext(context.WithValue(poolCtx, logger.WorkerKey, w))

			v := pool.Get()
			if v == nil {
				rejected.Increment()
				wlog.Warn("worker has no slot")
				return
			}

			var n int64
			defer func() {
				result.Processed[w] = n
				processed.Add(uint64(n))
				tracker.Increment(n)
				wlog.Debug("worker finished", zap.Int64("jobs_processed", n))
			}()
			for ctx.Err() == nil {
				done := fed.Load()
				job, ok := queue.Dequeue()
				if !ok {
					if done {
						return
					}
					runtime.Gosched()
					continue
				}
				apply(v, job)
				n++
			}
		}(w)
	}
	wg.Wait()

	result.Elapsed = time.Since(start)
	result.Total = int64(processed.Get())
	result.Rejected = int(rejected.Get())
	result.Throughput = tracker.GetAndReset()

	log.Info("workload finished",
		zap.String("workload", cfg.Name),
		zap.Int64("jobs_processed", result.Total),
		zap.Int("workers_rejected", result.Rejected),
		zap.Duration("elapsed", result.Elapsed),
		zap.Float64("jobs_per_second", result.Throughput))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if result.Total < int64(len(jobs)) {
		return result, errors.Newf(errors.ErrorTypeCapacity,
			"%d of %d jobs left unprocessed: no worker obtained a pool slot", int64(len(jobs))-result.Total, len(jobs))
	}
	return result, nil
}

// feed enqueues jobs, spinning while the queue is full, until all are queued
// or ctx is done.
func feed[J any](ctx context.Context, queue *lockfree.MPMCQueue[J], jobs []J) {
	for _, job := range jobs {
		for !queue.Enqueue(job) {
			if ctx.Err() != nil {
				return
			}
			runtime.Gosched()
		}
	}
}
