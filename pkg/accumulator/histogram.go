package accumulator

import (
	"math"
	"slices"

	"github.com/ajitpratap0/threaded/pkg/errors"
)

// Histogram counts values into equal-width bins over [Min, Max). Values
// below Min land in Underflow and values at or above Max in Overflow.
type Histogram struct {
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	Bins      []uint64 `json:"bins"`
	Underflow uint64   `json:"underflow"`
	Overflow  uint64   `json:"overflow"`
	Entries   uint64   `json:"entries"`
	Sum       float64  `json:"sum"`
}

// NewHistogram returns an empty histogram with bins equal-width bins over
// [min, max). It panics if bins < 1 or max <= min.
func NewHistogram(bins int, min, max float64) *Histogram {
	if bins < 1 || !(max > min) {
		panic(errors.Newf(errors.ErrorTypeValidation,
			"invalid binning: %d bins over [%g, %g)", bins, min, max))
	}
	return &Histogram{
		Min:  min,
		Max:  max,
		Bins: make([]uint64, bins),
	}
}

// Fill records x.
func (h *Histogram) Fill(x float64) {
	h.Entries++
	h.Sum += x
	switch {
	case x < h.Min:
		h.Underflow++
	case x >= h.Max:
		h.Overflow++
	default:
		i := int(float64(len(h.Bins)) * (x - h.Min) / (h.Max - h.Min))
		// Rounding can push a value just below Max into the next bin.
		if i >= len(h.Bins) {
			i = len(h.Bins) - 1
		}
		h.Bins[i]++
	}
}

// Mean returns the mean of all filled values, including under- and
// overflows, or NaN for an empty histogram.
func (h *Histogram) Mean() float64 {
	if h.Entries == 0 {
		return math.NaN()
	}
	return h.Sum / float64(h.Entries)
}

// Clone returns a deep copy of h.
func (h *Histogram) Clone() *Histogram {
	c := *h
	c.Bins = slices.Clone(h.Bins)
	return &c
}

// Merge adds the contents of every source into h. All sources must share
// h's binning; a mismatch panics with a validation error before h is
// modified. Nil sources are skipped.
func (h *Histogram) Merge(sources []*Histogram) {
	for _, s := range sources {
		if s != nil && !h.sameBinning(s) {
			panic(errors.Newf(errors.ErrorTypeValidation,
				"cannot merge histogram with %d bins over [%g, %g) into %d bins over [%g, %g)",
				len(s.Bins), s.Min, s.Max, len(h.Bins), h.Min, h.Max))
		}
	}
	for _, s := range sources {
		if s == nil {
			continue
		}
		for i, n := range s.Bins {
			h.Bins[i] += n
		}
		h.Underflow += s.Underflow
		h.Overflow += s.Overflow
		h.Entries += s.Entries
		h.Sum += s.Sum
	}
}

// Equal reports whether h and o hold the same binning and contents.
func (h *Histogram) Equal(o *Histogram) bool {
	return h.sameBinning(o) &&
		slices.Equal(h.Bins, o.Bins) &&
		h.Underflow == o.Underflow &&
		h.Overflow == o.Overflow &&
		h.Entries == o.Entries &&
		h.Sum == o.Sum
}

func (h *Histogram) sameBinning(o *Histogram) bool {
	return h.Min == o.Min && h.Max == o.Max && len(h.Bins) == len(o.Bins)
}
