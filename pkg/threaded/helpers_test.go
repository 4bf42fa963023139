package threaded

// tally is copyable and merges by summing.
type tally struct {
	N int
}

func (t *tally) Merge(sources []*tally) {
	for _, s := range sources {
		t.N += s.N
	}
}

// bag owns a slice, so it needs Clone to be duplicated safely.
type bag struct {
	Items []int
}

func (b *bag) Clone() *bag {
	return &bag{Items: append([]int(nil), b.Items...)}
}

func (b *bag) Merge(sources []*bag) {
	for _, s := range sources {
		b.Items = append(b.Items, s.Items...)
	}
}

// plain has no Merge method.
type plain struct {
	V int
}

func getFromNewGoroutine[T any](p *Pool[T]) *T {
	ch := make(chan *T)
	go func() {
		ch <- p.Get()
	}()
	return <-ch
}
