package threaded

import (
	"strings"
	"sync"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/threaded/pkg/accumulator"
	"github.com/ajitpratap0/threaded/pkg/config"
	"github.com/ajitpratap0/threaded/pkg/errors"
	"github.com/ajitpratap0/threaded/pkg/metrics"
	"github.com/ajitpratap0/threaded/pkg/testutil"
)

func TestGetGivesEachGoroutineItsOwnSlot(t *testing.T) {
	const n = 16
	p := New(tally{}, WithLogger(testutil.TestLogger(t)), WithMetrics(false))
	got := make([]*tally, n)

	testutil.RunConcurrently(n, func(i int) {
		v := p.Get()
		assert.Same(t, v, p.Get(), "repeat calls from one goroutine must return the same value")
		v.N = i
		got[i] = v
	})

	seen := make(map[*tally]bool, n)
	for i, v := range got {
		require.NotNil(t, v)
		assert.Equal(t, i, v.N)
		assert.False(t, seen[v], "slot shared between goroutines")
		seen[v] = true
	}
	assert.Equal(t, n, p.Populated())
	assert.Equal(t, n, p.registry.Len())
}

func TestGetAtSlotCreatesOnce(t *testing.T) {
	clones := 0
	p := New(tally{N: 5},
		WithMetrics(false),
		WithCloneFunc(func(src *tally) *tally {
			clones++
			return CopyValue(src)
		}))

	a := p.GetAtSlot(3)
	b := p.GetAtSlot(3)

	assert.Same(t, a, b)
	assert.Equal(t, 1, clones)
	assert.Equal(t, 5, a.N)
	assert.Equal(t, 1, p.Populated())
}

func TestGetAtSlotDistinctIndicesConcurrently(t *testing.T) {
	p := New(tally{}, WithMaxSlots(8), WithMetrics(false))

	testutil.RunConcurrently(8, func(i int) {
		for j := 0; j < 100; j++ {
			p.GetAtSlot(i).N++
		}
	})

	for i := 0; i < 8; i++ {
		assert.Equal(t, 100, p.GetAtSlotUnchecked(i).N)
	}
}

func TestGetAtSlotOutOfRange(t *testing.T) {
	logger, logs := testutil.ObservedLogger(zapcore.WarnLevel)
	var warnings testutil.WarningRecorder
	p := New(tally{},
		WithMaxSlots(4),
		WithName("out-of-range"),
		WithLogger(logger),
		WithMetrics(false),
		WithWarningHandler(warnings.Record))

	assert.Nil(t, p.GetAtSlot(4))
	assert.Nil(t, p.GetAtSlot(-1))
	assert.Equal(t, 0, p.Populated(), "out-of-range requests must not allocate")

	require.Equal(t, 2, warnings.Len())
	for _, w := range warnings.Warnings() {
		assert.True(t, errors.IsType(w, errors.ErrorTypeCapacity))
		assert.True(t, errors.IsWarning(w))
	}

	entries := logs.FilterMessage("maximum number of slots reached").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "out-of-range", entries[0].ContextMap()["pool"])
	assert.EqualValues(t, 4, entries[0].ContextMap()["max_slots"])
}

func TestGetAtSlotUnchecked(t *testing.T) {
	p := New(tally{}, WithMaxSlots(2), WithMetrics(false))

	assert.Nil(t, p.GetAtSlotUnchecked(1), "unchecked access does not create")
	v := p.GetAtSlot(1)
	assert.Same(t, v, p.GetAtSlotUnchecked(1))
	assert.Panics(t, func() { p.GetAtSlotUnchecked(2) })
}

func TestGetForExplicitIdentity(t *testing.T) {
	p := New(tally{}, WithMetrics(false))

	a := p.GetFor(7)
	b := p.GetFor(8)

	assert.Same(t, a, p.GetFor(7))
	assert.NotSame(t, a, b)
	assert.Same(t, a, p.GetAtSlotUnchecked(0))
	assert.Same(t, b, p.GetAtSlotUnchecked(1))
}

func TestWithIdentity(t *testing.T) {
	p := New(tally{}, WithMetrics(false), WithIdentity(func() ThreadID { return 1 }))

	assert.Same(t, p.Get(), getFromNewGoroutine(p), "a constant identity maps every caller to one slot")
	assert.Equal(t, 1, p.Populated())
}

func TestCapacityReachedByThirdGoroutine(t *testing.T) {
	var warnings testutil.WarningRecorder
	p := New(tally{},
		WithMaxSlots(2),
		WithLogger(testutil.TestLogger(t)),
		WithMetrics(false),
		WithWarningHandler(warnings.Record))

	assert.NotNil(t, getFromNewGoroutine(p))
	assert.NotNil(t, getFromNewGoroutine(p))
	assert.Nil(t, getFromNewGoroutine(p))

	require.Equal(t, 1, warnings.Len())
	assert.True(t, errors.IsType(warnings.Warnings()[0], errors.ErrorTypeCapacity))
	assert.Equal(t, 2, p.Populated())
}

func TestFourGoroutinesAccumulate(t *testing.T) {
	const repeat = 1000
	p := New(tally{}, WithLogger(testutil.TestLogger(t)), WithMetrics(false))

	adds := []int{10, 20, 30, 40}
	slots := make([]*tally, len(adds))
	partials := make([]int, len(adds))

	var wg sync.WaitGroup
	for i, add := range adds {
		wg.Add(1)
		go func(i, add int) {
			defer wg.Done()
			v := p.Get()
			local := 0
			for j := 0; j < repeat; j++ {
				v.N += add
				local += add
			}
			slots[i] = v
			partials[i] = local
		}(i, add)
	}
	wg.Wait()

	for i := range adds {
		assert.Equal(t, partials[i], slots[i].N)
	}
	sum := FoldMerge(func(target, src *tally) { target.N += src.N })
	assert.Equal(t, 100*repeat, p.SnapshotMerge(sum).N)
	assert.Equal(t, 100*repeat, p.Merge(sum).N)
}

func TestMergeRunsOnce(t *testing.T) {
	var warnings testutil.WarningRecorder
	p := New(tally{}, WithMetrics(false), WithWarningHandler(warnings.Record))
	p.GetAtSlot(0).N = 1
	p.GetAtSlot(1).N = 2

	calls := 0
	fn := func(target *tally, slots []*tally) {
		calls++
		MergeValues[tally, *tally](target, slots)
	}

	first := p.Merge(fn)
	assert.True(t, p.IsMerged())
	assert.Equal(t, 0, warnings.Len())

	second := p.Merge(fn)
	assert.Same(t, first, second)
	assert.Equal(t, 3, second.N)
	assert.Equal(t, 1, calls)

	require.Equal(t, 1, warnings.Len())
	assert.True(t, errors.IsType(warnings.Warnings()[0], errors.ErrorTypeRedundantMerge))
}

func TestMergeIntoSlotZero(t *testing.T) {
	p := New(tally{}, WithMetrics(false))
	zero := p.GetAtSlot(0)
	zero.N = 1
	p.GetAtSlot(2).N = 5

	merged := p.Merge(nil)

	assert.Same(t, zero, merged)
	assert.Equal(t, 6, merged.N)
}

func TestMergeMaterializesEmptySlotZero(t *testing.T) {
	p := New(tally{N: 1}, WithMetrics(false))
	p.GetAtSlot(3).N = 10

	merged := p.Merge(nil)

	require.NotNil(t, merged)
	assert.Equal(t, 11, merged.N, "slot 0 starts from the prototype")
	assert.Same(t, merged, p.GetAtSlotUnchecked(0))
}

func TestMergeWithoutCapabilityPanics(t *testing.T) {
	p := New(plain{}, WithMetrics(false))
	p.GetAtSlot(0).V = 1

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
		assert.False(t, p.IsMerged())
	}()
	p.Merge(nil)
}

func TestWithMergeFunc(t *testing.T) {
	sum := FoldMerge(func(target, src *plain) { target.V += src.V })
	p := New(plain{}, WithMetrics(false), WithMergeFunc(sum))
	p.GetAtSlot(0).V = 2
	p.GetAtSlot(1).V = 3

	assert.Equal(t, 5, p.SnapshotMerge(nil).V)
	assert.Equal(t, 5, p.Merge(nil).V)
}

func TestWithMergeFuncOverridesMergeMethod(t *testing.T) {
	p := New(tally{}, WithMetrics(false), WithMergeFunc(func(target *tally, slots []*tally) {
		target.N = -1
	}))
	p.GetAtSlot(0).N = 4

	assert.Equal(t, -1, p.Merge(nil).N)
}

func TestSnapshotMergeLeavesPoolUntouched(t *testing.T) {
	p := NewCloning[bag](bag{}, WithMetrics(false))
	p.GetAtSlot(0).Items = []int{1}
	p.GetAtSlot(1).Items = []int{2, 3}
	before0, before1 := p.GetAtSlotUnchecked(0), p.GetAtSlotUnchecked(1)

	a := p.SnapshotMerge(nil)
	b := p.SnapshotMerge(nil)

	assert.Equal(t, a, b)
	assert.NotSame(t, a, b)
	assert.ElementsMatch(t, []int{1, 2, 3}, a.Items)
	assert.Equal(t, []int{1}, p.GetAtSlotUnchecked(0).Items)
	assert.Equal(t, []int{2, 3}, p.GetAtSlotUnchecked(1).Items)
	assert.Same(t, before0, p.GetAtSlotUnchecked(0))
	assert.Same(t, before1, p.GetAtSlotUnchecked(1))
	assert.Equal(t, 2, p.Populated())
	assert.False(t, p.IsMerged())

	p.GetAtSlot(2).Items = []int{4}
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, p.SnapshotMerge(nil).Items)
}

func TestSnapshotMergeAfterMergeReturnsCopy(t *testing.T) {
	var warnings testutil.WarningRecorder
	p := NewCloning[bag](bag{}, WithMetrics(false), WithWarningHandler(warnings.Record))
	p.GetAtSlot(0).Items = []int{1}
	p.GetAtSlot(1).Items = []int{2}
	merged := p.Merge(nil)

	snap := p.SnapshotMerge(nil)

	assert.Equal(t, merged.Items, snap.Items)
	assert.NotSame(t, merged, snap)
	snap.Items[0] = 99
	assert.Equal(t, 1, merged.Items[0], "snapshot must not alias the merged result")

	require.Equal(t, 1, warnings.Len())
	assert.True(t, errors.IsType(warnings.Warnings()[0], errors.ErrorTypeRedundantMerge))
}

func TestNewCloningUsesCloneMethod(t *testing.T) {
	proto := bag{Items: []int{1}}
	p := NewCloning[bag](proto, WithMetrics(false))

	a := p.GetAtSlot(0)
	b := p.GetAtSlot(1)
	a.Items[0] = 7

	assert.Equal(t, 1, b.Items[0])
	assert.Equal(t, 1, proto.Items[0])
}

func TestNewCopiesPrototypeByValue(t *testing.T) {
	proto := tally{N: 3}
	p := New(proto, WithMetrics(false))

	p.GetAtSlot(0).N = 9
	proto.N = 4

	assert.Equal(t, 3, p.GetAtSlot(1).N)
}

func TestNewUsesCloneMethodWhenPresent(t *testing.T) {
	proto := bag{Items: []int{1}}
	p := New(proto, WithMetrics(false))

	p.GetAtSlot(0).Items[0] = 7

	assert.Equal(t, 1, p.GetAtSlot(1).Items[0])
	assert.Equal(t, 1, proto.Items[0])
}

func TestNewHistogramSlotsHaveIndependentBins(t *testing.T) {
	p := New(*accumulator.NewHistogram(2, 0, 2), WithLogger(zap.NewNop()), WithMetrics(false))

	p.GetAtSlot(0).Fill(0.5)
	second := p.GetAtSlot(1)

	assert.Equal(t, []uint64{0, 0}, second.Bins)
	assert.Zero(t, second.Entries)

	second.Fill(1.5)
	merged := p.SnapshotMerge(nil)
	assert.Equal(t, []uint64{1, 1}, merged.Bins)
	assert.Equal(t, uint64(2), merged.Entries)
	assert.Equal(t, []uint64{1, 0}, p.GetAtSlotUnchecked(0).Bins)
}

func TestConstructorPanics(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		errType errors.ErrorType
	}{
		{"zero slots", []Option{WithMaxSlots(0)}, errors.ErrorTypeConfig},
		{"clone for other type", []Option{WithCloneFunc(CopyValue[plain])}, errors.ErrorTypeCapability},
		{"merge for other type", []Option{WithMergeFunc(FoldMerge(func(_, _ *plain) {}))}, errors.ErrorTypeCapability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				err, ok := recover().(error)
				require.True(t, ok)
				assert.True(t, errors.IsType(err, tt.errType))
			}()
			New(tally{}, tt.opts...)
		})
	}
}

func TestPoolMetrics(t *testing.T) {
	const name = "pool-metrics-test"
	p := New(tally{}, WithName(name), WithMaxSlots(2), WithLogger(zap.NewNop()))

	p.GetFor(1)
	p.GetFor(1)
	p.GetFor(2)
	p.GetFor(3)
	p.SnapshotMerge(nil)
	p.Merge(nil)
	p.Merge(nil)

	assert.Equal(t, 3.0, promtestutil.ToFloat64(metrics.SlotAssignments.WithLabelValues(name)))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(metrics.SlotsPopulated.WithLabelValues(name)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.CapacityExceeded.WithLabelValues(name)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.Merges.WithLabelValues(name, metrics.ModeSnapshot, metrics.ResultComputed)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.Merges.WithLabelValues(name, metrics.ModeDestructive, metrics.ResultComputed)))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.Merges.WithLabelValues(name, metrics.ModeDestructive, metrics.ResultCached)))
}

func TestUnnamedPoolsGetDistinctMetricSeries(t *testing.T) {
	a := New(tally{}, WithLogger(zap.NewNop()))
	b := New(tally{}, WithLogger(zap.NewNop()))
	require.NotEqual(t, a.Name(), b.Name())
	assert.True(t, strings.HasPrefix(a.Name(), "pool_"))

	a.GetFor(1)
	a.GetFor(2)
	b.GetFor(1)

	assert.Equal(t, 2.0, promtestutil.ToFloat64(metrics.SlotsPopulated.WithLabelValues(a.Name())))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.SlotsPopulated.WithLabelValues(b.Name())))
}

func TestConfigOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Name = "from-config"
	cfg.MaxSlots = 3
	cfg.Identity = config.IdentityOSThread
	cfg.Metrics.Enabled = false

	p := New(tally{}, append(ConfigOptions(cfg), WithLogger(zap.NewNop()))...)

	assert.Equal(t, "from-config", p.Name())
	assert.Equal(t, 3, p.MaxSlots())
	assert.Nil(t, p.collector)
	assert.NotNil(t, p.Get())
}
