package threaded_test

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/threaded/pkg/accumulator"
	"github.com/ajitpratap0/threaded/pkg/errors"
	"github.com/ajitpratap0/threaded/pkg/threaded"
)

func Example() {
	pool := threaded.New(accumulator.Counter{}, threaded.WithLogger(zap.NewNop()))

	var wg sync.WaitGroup
	for _, n := range []int64{10, 20, 30, 40} {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			pool.Get().Add(n)
		}(n)
	}
	wg.Wait()

	fmt.Println(pool.Merge(nil).Value())
	// Output: 100
}

func ExampleNewCloning() {
	pool := threaded.NewCloning[accumulator.Histogram](*accumulator.NewHistogram(4, 0, 4),
		threaded.WithLogger(zap.NewNop()))

	pool.GetAtSlot(0).Fill(0.5)
	pool.GetAtSlot(1).Fill(2.5)
	pool.GetAtSlot(1).Fill(3.5)

	h := pool.SnapshotMerge(nil)
	fmt.Println(h.Bins, h.Entries)
	fmt.Println(pool.GetAtSlot(0).Bins)
	// Output:
	// [1 0 1 1] 3
	// [1 0 0 0]
}

func ExampleWithMaxSlots() {
	pool := threaded.New(accumulator.Counter{},
		threaded.WithMaxSlots(2),
		threaded.WithLogger(zap.NewNop()),
		threaded.WithWarningHandler(func(err error) {
			fmt.Println("warning:", err, errors.IsType(err, errors.ErrorTypeCapacity))
		}))

	fmt.Println(pool.GetFor(1) != nil, pool.GetFor(2) != nil)
	fmt.Println(pool.GetFor(3) == nil)
	// Output:
	// true true
	// warning: capacity: maximum number of slots reached true
	// true
}

func ExamplePool_Merge() {
	pool := threaded.New(accumulator.Counter{},
		threaded.WithLogger(zap.NewNop()),
		threaded.WithWarningHandler(func(err error) { fmt.Println("warning:", err) }))
	pool.GetAtSlot(0).Add(1)
	pool.GetAtSlot(5).Add(2)

	first := pool.Merge(nil)
	second := pool.Merge(nil)
	fmt.Println(first.Value(), first == second)
	// Output:
	// warning: redundant_merge: pool was already merged, returning the previous result
	// 3 true
}

func ExampleFoldMerge() {
	type maxValue struct{ V int }

	pool := threaded.New(maxValue{},
		threaded.WithLogger(zap.NewNop()),
		threaded.WithMergeFunc(threaded.FoldMerge(func(target, src *maxValue) {
			target.V = max(target.V, src.V)
		})))
	pool.GetAtSlot(0).V = 3
	pool.GetAtSlot(1).V = 8
	pool.GetAtSlot(2).V = 5

	fmt.Println(pool.Merge(nil).V)
	// Output: 8
}
