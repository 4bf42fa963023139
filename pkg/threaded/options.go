package threaded

import (
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/threaded/pkg/config"
)

// DefaultMaxSlots is the slot capacity of a pool built without WithMaxSlots.
const DefaultMaxSlots = config.DefaultMaxSlots

// Option configures a Pool at construction.
type Option func(*settings)

type settings struct {
	name      string
	maxSlots  int
	identity  IdentityFunc
	logger    *zap.Logger
	metrics   bool
	tracer    trace.Tracer
	onWarning func(error)

	// Typed as any so Option stays non-generic; checked against the pool's
	// element type in newPool.
	clone any
	merge any
}

var poolSeq atomic.Uint64

// defaultName gives each unnamed pool its own metric series.
func defaultName() string {
	return fmt.Sprintf("pool_%d", poolSeq.Add(1))
}

func defaultSettings() settings {
	return settings{
		maxSlots: DefaultMaxSlots,
		identity: GoroutineIdentity,
		metrics:  true,
	}
}

// WithName sets the name used in log fields, metric labels and span attributes.
// Pools built without a name get a unique "pool_<n>". Metrics are keyed by
// name alone, so pools sharing a name share their series.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithMaxSlots sets how many distinct callers the pool can serve. It must be
// at least 1.
func WithMaxSlots(n int) Option {
	return func(s *settings) {
		s.maxSlots = n
	}
}

// WithIdentity sets how Get identifies its caller.
func WithIdentity(fn IdentityFunc) Option {
	return func(s *settings) {
		s.identity = fn
	}
}

// WithLogger sets the logger warnings and slot events are written to.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithMetrics turns Prometheus recording on or off. It is on by default.
func WithMetrics(enabled bool) Option {
	return func(s *settings) {
		s.metrics = enabled
	}
}

// WithTracer sets the tracer merges are recorded with. The global otel
// tracer provider is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = t
	}
}

// WithWarningHandler registers fn to receive every warning the pool raises,
// in addition to the log entry. Warnings are *errors.Error values of type
// capacity or redundant_merge.
func WithWarningHandler(fn func(error)) Option {
	return func(s *settings) {
		s.onWarning = fn
	}
}

// WithCloneFunc replaces the cloning policy picked by the constructor.
// Passing a function for a different element type panics at construction.
func WithCloneFunc[T any](fn CloneFunc[T]) Option {
	return func(s *settings) {
		s.clone = fn
	}
}

// WithMergeFunc sets the merge used when Merge or SnapshotMerge receives a
// nil function. It overrides a Merger implementation on the element type.
func WithMergeFunc[T any](fn MergeFunc[T]) Option {
	return func(s *settings) {
		s.merge = fn
	}
}
