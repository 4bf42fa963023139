// Package threaded provides a pool that gives every concurrent caller its own
// private copy of a value and merges the copies back into one result.
//
// The typical use is accumulation: each worker fills its own histogram or
// counter without locks, and once all workers have finished the partial
// results are combined.
//
//	pool := threaded.NewCloning[accumulator.Histogram](*accumulator.NewHistogram(32, 0, 1))
//
//	var wg sync.WaitGroup
//	for w := 0; w < workers; w++ {
//		wg.Add(1)
//		go func() {
//			defer wg.Done()
//			h := pool.Get()
//			for x := range input {
//				h.Fill(x)
//			}
//		}()
//	}
//	wg.Wait()
//
//	total := pool.Merge(nil)
//
// # Slots
//
// A pool has a fixed number of slots, 64 unless WithMaxSlots says otherwise.
// The first Get from a caller assigns it the next free slot; the slot's value
// is cloned from the prototype the first time it is requested. Callers beyond
// capacity get nil and the pool raises a capacity warning.
//
// Callers are identified by goroutine id by default. OSThreadIdentity keys on
// the kernel thread instead, which only makes sense for goroutines locked to
// their thread. GetFor and GetAtSlot bypass identity altogether.
//
// # Cloning
//
// New copies the prototype by value. NewCloning calls the type's Clone
// method, for types that own slices or maps. WithCloneFunc overrides either,
// and JSONClone is available for plain data types.
//
// # Merging
//
// Merge folds every populated slot into slot 0 and can only run once; later
// calls warn and return the same result. SnapshotMerge merges into a fresh
// value and leaves the pool untouched, so it can be called while the pool is
// still in use between batches. Both accept a MergeFunc; nil selects the
// default, which is the element type's Merge method when *T implements
// Merger, or the function given to WithMergeFunc.
//
// # Warnings
//
// Capacity and redundant-merge conditions are not errors. They are logged at
// warn level, counted in Prometheus and passed to the WithWarningHandler
// callback as *errors.Error values.
package threaded
