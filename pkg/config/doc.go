// Package config provides configuration management for threaded pools.
//
// A pool's slot capacity is fixed when the pool is built. There is no
// process-wide mutable default: the value comes from a PoolConfig (or an
// explicit threaded.WithMaxSlots option) and is read once at construction.
//
// # Key Features
//
// - PoolConfig: pool name, slot capacity, identity source
// - Workload, Logging, Metrics and Tracing sections
// - Environment variable substitution with ${VAR_NAME} syntax
// - Defaults and validation returning ErrorTypeConfig errors
//
// # File Format
//
//	name: histograms
//	max_slots: 16
//	identity: goroutine   # or os_thread
//	workload:
//	  workers: 8
//	  jobs: 1000000
//	  queue_size: 65536
//	  bins: 64
//	logging:
//	  level: ${LOG_LEVEL}
//	  encoding: console
//	metrics:
//	  enabled: true
//	tracing:
//	  enabled: false
//
// # Usage
//
//	cfg, err := config.LoadPoolConfig("pool.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	opts := threaded.ConfigOptions(cfg)
//	pool := threaded.New(accumulator.Counter{}, opts...)
package config
