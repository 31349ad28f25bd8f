package qmc

import (
	"fmt"
	"math"
)

// SampleIndex identifies one draw of the low-discrepancy sequence. Each index
// is used at most once per run.
type SampleIndex = uint64

// Radical returns the van der Corput radical inverse of index in the given
// base: the base-b digits of index mirrored around the radix point. It is pure
// and deterministic, Radical(0, b) is 0 and every result lies in [0, 1).
//
// base must be at least 2; callers validate bases with NewHalton.
func Radical(index SampleIndex, base uint64) float64 {
	if base < 2 {
		panic(fmt.Sprintf("qmc: radical inverse base %d < 2", base))
	}

	b := float64(base)
	f := 1.0
	r := 0.0
	for index > 0 {
		f /= b
		// The explicit conversion forbids fusing into an FMA, keeping
		// results bit-identical across architectures.
		r += float64(f * float64(index%base))
		index /= base
	}
	// Indices beyond 2^53 can round the digit sum up to exactly 1.
	if r >= 1 {
		return oneBelow
	}
	return r
}

// oneBelow is the largest float64 less than 1.
var oneBelow = math.Nextafter(1, 0)

// Halton is a multi-dimensional Halton sequence: one van der Corput sequence
// per dimension, each in its own prime base.
type Halton struct {
	bases []uint64
}

// NewHalton builds a Halton sequence over the given bases. Every base must be
// prime and no base may repeat, otherwise the coordinates correlate.
func NewHalton(bases ...uint64) (*Halton, error) {
	if len(bases) == 0 {
		return nil, fmt.Errorf("%w: at least one base is required", ErrInvalidConfiguration)
	}

	seen := make(map[uint64]struct{}, len(bases))
	for _, b := range bases {
		if !IsPrime(b) {
			return nil, fmt.Errorf("%w: base %d is not prime", ErrInvalidConfiguration, b)
		}
		if _, dup := seen[b]; dup {
			return nil, fmt.Errorf("%w: base %d used for more than one dimension", ErrInvalidConfiguration, b)
		}
		seen[b] = struct{}{}
	}

	return &Halton{bases: append([]uint64(nil), bases...)}, nil
}

// Dimension returns the number of coordinates per point.
func (h *Halton) Dimension() int {
	return len(h.bases)
}

// Bases returns a copy of the per-dimension bases.
func (h *Halton) Bases() []uint64 {
	return append([]uint64(nil), h.bases...)
}

// Point writes the coordinates of the point at index into dst, which must
// have length Dimension.
func (h *Halton) Point(index SampleIndex, dst []float64) {
	for i, b := range h.bases {
		dst[i] = Radical(index, b)
	}
}

// IsPrime reports whether n is prime.
func IsPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint64(3); d <= n/d; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}
