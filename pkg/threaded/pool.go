package threaded

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/threaded/pkg/errors"
	"github.com/ajitpratap0/threaded/pkg/logger"
	"github.com/ajitpratap0/threaded/pkg/metrics"
)

const tracerName = "github.com/ajitpratap0/threaded/pkg/threaded"

// Pool holds one private value of T per caller, created lazily from a
// prototype, and merges them into a single result once the callers are done.
//
// Get, GetFor and GetAtSlot may be called concurrently as long as no two
// callers use the same slot index at the same time; callers resolved through
// Get always land on distinct slots. Merge and SnapshotMerge must
// happen-after every slot writer, for example behind a sync.WaitGroup, and
// must not run concurrently with each other.
type Pool[T any] struct {
	name      string
	prototype T
	slots     []*T
	registry  *SlotRegistry[ThreadID]
	identity  IdentityFunc
	clone     CloneFunc[T]
	merge     MergeFunc[T]
	merged    bool

	logger    *zap.Logger
	collector *metrics.PoolCollector
	tracer    trace.Tracer
	onWarning func(error)
}

// New returns a pool whose slots start as copies of prototype. If *T
// implements Cloner, slots are made with its Clone method; otherwise they are
// value copies. If *T implements Merger, Merge(nil) uses it.
func New[T any](prototype T, opts ...Option) *Pool[T] {
	return newPool(prototype, detectClone[T](), opts)
}

// NewCloning returns a pool whose slots start as prototype.Clone(). It is New
// with the Clone requirement checked by the compiler, for types that own
// slices or maps a value copy would share.
func NewCloning[T any, PT interface {
	*T
	Cloner[T]
}](prototype T, opts ...Option) *Pool[T] {
	return newPool(prototype, CloneValue[T, PT], opts)
}

func newPool[T any](prototype T, clone CloneFunc[T], opts []Option) *Pool[T] {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	if s.maxSlots < 1 {
		panic(errors.Newf(errors.ErrorTypeConfig, "max slots must be at least 1, got %d", s.maxSlots))
	}
	if s.clone != nil {
		fn, ok := s.clone.(CloneFunc[T])
		if !ok {
			panic(capabilityError[T]("clone function", s.clone))
		}
		clone = fn
	}
	merge := detectMerge[T]()
	if s.merge != nil {
		fn, ok := s.merge.(MergeFunc[T])
		if !ok {
			panic(capabilityError[T]("merge function", s.merge))
		}
		merge = fn
	}
	if s.name == "" {
		s.name = defaultName()
	}
	if s.identity == nil {
		s.identity = GoroutineIdentity
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}

	p := &Pool[T]{
		name:      s.name,
		prototype: prototype,
		slots:     make([]*T, s.maxSlots),
		registry:  NewSlotRegistry[ThreadID](),
		identity:  s.identity,
		clone:     clone,
		merge:     merge,
		logger:    s.logger.With(zap.String("pool", s.name)),
		tracer:    s.tracer,
		onWarning: s.onWarning,
	}
	if s.metrics {
		p.collector = metrics.NewPoolCollector(s.name)
	}
	return p
}

func capabilityError[T any](what string, got any) *errors.Error {
	return errors.Newf(errors.ErrorTypeCapability, "%s has type %T, want one for %T", what, got, *new(T))
}

// Name returns the pool name.
func (p *Pool[T]) Name() string {
	return p.name
}

// MaxSlots returns the slot capacity.
func (p *Pool[T]) MaxSlots() int {
	return len(p.slots)
}

// IsMerged reports whether a destructive Merge has run.
func (p *Pool[T]) IsMerged() bool {
	return p.merged
}

// Populated returns how many slots hold a value. Like Merge, it must not
// race with slot writers.
func (p *Pool[T]) Populated() int {
	n := 0
	for _, s := range p.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Get returns the calling goroutine's private value, creating it on first
// use. It returns nil, after raising a capacity warning, once more callers
// than MaxSlots have asked. The pointer stays valid for the pool's lifetime,
// so callers in a hot loop should fetch it once outside the loop.
func (p *Pool[T]) Get() *T {
	return p.GetFor(p.identity())
}

// GetFor is Get for an explicit caller identity, for code that already
// numbers its workers. Do not mix identities from different sources in one
// pool: a worker number may collide with a goroutine id.
func (p *Pool[T]) GetFor(id ThreadID) *T {
	slot, assigned := p.registry.resolve(id)
	if assigned {
		p.collector.SlotAssigned()
		p.logger.Debug("slot assigned",
			zap.Uint64("identity", uint64(id)),
			zap.Int("slot", slot))
	}
	return p.GetAtSlot(slot)
}

// GetAtSlot returns the value in slot i, cloning the prototype into it if
// the slot is empty. An index outside [0, MaxSlots) raises a capacity warning
// and returns nil without allocating.
//
// Two callers must not pass the same i concurrently while that slot is
// still empty; both may create a value and one of them is lost.
func (p *Pool[T]) GetAtSlot(i int) *T {
	if i < 0 || i >= len(p.slots) {
		p.collector.CapacityExceeded()
		p.warn(errors.New(errors.ErrorTypeCapacity, "maximum number of slots reached").
			WithDetail("slot", i).
			WithDetail("max_slots", len(p.slots)),
			zap.Int("slot", i),
			zap.Int("max_slots", len(p.slots)))
		return nil
	}
	v := p.slots[i]
	if v == nil {
		v = p.clone(&p.prototype)
		p.slots[i] = v
		p.collector.SlotCreated()
		p.logger.Debug("slot created", zap.Int("slot", i))
	}
	return v
}

// GetAtSlotUnchecked returns slot i as is: no bounds check beyond the
// slice's own, which panics, and no lazy creation, so an empty slot yields
// nil.
func (p *Pool[T]) GetAtSlotUnchecked(i int) *T {
	return p.slots[i]
}

// Merge folds every populated slot into slot 0 and returns it. A nil fn
// uses the pool's default merge. Merge is destructive and runs once: later
// calls raise a redundant-merge warning and return the same pointer without
// calling fn again.
func (p *Pool[T]) Merge(fn MergeFunc[T]) *T {
	timer := metrics.NewTimer("merge")
	_, span := p.startSpan(metrics.ModeDestructive)
	defer span.End()

	if p.merged {
		p.warn(errors.New(errors.ErrorTypeRedundantMerge, "pool was already merged, returning the previous result"))
		span.SetAttributes(attribute.Bool("cached", true))
		p.collector.Merged(metrics.ModeDestructive, true, timer.Stop())
		return p.slots[0]
	}

	fn = p.mergeFunc(fn)
	target := p.GetAtSlot(0)
	fn(target, p.slots)
	p.merged = true

	d := timer.Stop()
	span.SetAttributes(
		attribute.Bool("cached", false),
		attribute.Int("populated", p.Populated()))
	p.collector.Merged(metrics.ModeDestructive, false, d)
	p.logger.Debug("pool merged", zap.Duration("duration", d))
	return target
}

// SnapshotMerge returns a fresh value holding the merge of every populated
// slot, leaving the slots and merge state untouched. After a destructive
// Merge it raises a redundant-merge warning and returns a clone of the merged
// result instead.
func (p *Pool[T]) SnapshotMerge(fn MergeFunc[T]) *T {
	timer := metrics.NewTimer("snapshot_merge")
	_, span := p.startSpan(metrics.ModeSnapshot)
	defer span.End()

	if p.merged {
		p.warn(errors.New(errors.ErrorTypeRedundantMerge, "pool was already merged, returning a copy of the previous result"))
		span.SetAttributes(attribute.Bool("cached", true))
		p.collector.Merged(metrics.ModeSnapshot, true, timer.Stop())
		return p.clone(p.slots[0])
	}

	fn = p.mergeFunc(fn)
	target := p.clone(&p.prototype)
	fn(target, p.slots)

	span.SetAttributes(
		attribute.Bool("cached", false),
		attribute.Int("populated", p.Populated()))
	p.collector.Merged(metrics.ModeSnapshot, false, timer.Stop())
	return target
}

func (p *Pool[T]) mergeFunc(fn MergeFunc[T]) MergeFunc[T] {
	if fn != nil {
		return fn
	}
	if p.merge == nil {
		panic(errors.Newf(errors.ErrorTypeCapability,
			"%T has no Merge method and the pool has no default merge function", p.prototype))
	}
	return p.merge
}

func (p *Pool[T]) startSpan(mode string) (context.Context, trace.Span) {
	return p.tracer.Start(context.Background(), "threaded.merge",
		trace.WithAttributes(
			attribute.String("pool", p.name),
			attribute.String("mode", mode),
			attribute.Int("max_slots", len(p.slots))))
}

func (p *Pool[T]) warn(err *errors.Error, fields ...zap.Field) {
	p.logger.Warn(err.Message, append(fields, zap.Error(err))...)
	if p.onWarning != nil {
		p.onWarning(err)
	}
}
