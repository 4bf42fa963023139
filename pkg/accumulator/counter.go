// Package accumulator provides value types that are filled per worker and
// merged afterwards: a plain counter and a fixed-bin histogram.
package accumulator

// Counter is a running sum. The zero value is ready to use and a value copy
// is an independent counter.
type Counter struct {
	N int64 `json:"n"`
}

// Add adds delta to the counter.
func (c *Counter) Add(delta int64) {
	c.N += delta
}

// Value returns the current sum.
func (c *Counter) Value() int64 {
	return c.N
}

// Merge adds every source into c. Nil sources are skipped.
func (c *Counter) Merge(sources []*Counter) {
	for _, s := range sources {
		if s != nil {
			c.N += s.N
		}
	}
}
