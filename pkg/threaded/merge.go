package threaded

// MergeFunc folds the populated slots into target. slots is the pool's full
// slot sequence: unpopulated entries are nil and target may itself be one of
// the entries.
type MergeFunc[T any] func(target *T, slots []*T)

// Merger is implemented by types that know how to absorb other instances of
// themselves.
type Merger[T any] interface {
	Merge(sources []*T)
}

// MergeValues is the default merge for types implementing Merger. Nil slots
// and the target itself are skipped, so a destructive merge into slot 0 does
// not count slot 0 twice.
func MergeValues[T any, PT interface {
	*T
	Merger[T]
}](target *T, slots []*T) {
	PT(target).Merge(mergeSources(target, slots))
}

// FoldMerge builds a MergeFunc from a pairwise combine. combine is called
// once per populated slot other than the target, in slot order.
func FoldMerge[T any](combine func(target, src *T)) MergeFunc[T] {
	return func(target *T, slots []*T) {
		for _, src := range mergeSources(target, slots) {
			combine(target, src)
		}
	}
}

func mergeSources[T any](target *T, slots []*T) []*T {
	sources := make([]*T, 0, len(slots))
	for _, s := range slots {
		if s != nil && s != target {
			sources = append(sources, s)
		}
	}
	return sources
}

// interfaceMerge is the default installed by a constructor when *T turns out
// to implement Merger. MergeValues needs the pointer type as a type argument,
// which a plain New[T] does not have.
func interfaceMerge[T any](target *T, slots []*T) {
	any(target).(Merger[T]).Merge(mergeSources(target, slots))
}

func detectMerge[T any]() MergeFunc[T] {
	if _, ok := any((*T)(nil)).(Merger[T]); ok {
		return interfaceMerge[T]
	}
	return nil
}
