package qmc

import (
	"context"
	"math/rand/v2"
)

// cancelCheckMask sets how often samplers poll their context: every 65536 samples.
const cancelCheckMask = 1<<16 - 1

// Sampler evaluates one task: it counts how many of the task's points fall
// inside the integration region. Implementations must be safe for
// concurrent use and must not share mutable state between calls.
type Sampler interface {
	Count(ctx context.Context, t Task) (PartialResult, error)
}

// inDisc maps (u, v) from [0,1)² onto [-1,1)² and reports whether the point
// lies strictly inside the unit disc.
func inDisc(u, v float64) bool {
	x := 2.0 * (u - 0.5)
	y := 2.0 * (v - 0.5)
	// Conversions forbid FMA fusion so counts match on every architecture.
	return float64(x*x)+float64(y*y) < 1.0
}

// HaltonDisc counts two-dimensional Halton points inside the unit disc.
// The count for an index depends on nothing but the index, so the sum over a
// run is independent of how the index space was partitioned.
type HaltonDisc struct {
	seq *Halton
}

// NewHaltonDisc builds the sampler for the given dimension bases, which must
// be distinct primes.
func NewHaltonDisc(baseX, baseY uint64) (*HaltonDisc, error) {
	seq, err := NewHalton(baseX, baseY)
	if err != nil {
		return nil, err
	}
	return &HaltonDisc{seq: seq}, nil
}

// Count implements Sampler.
func (s *HaltonDisc) Count(ctx context.Context, t Task) (PartialResult, error) {
	end, err := t.End()
	if err != nil {
		return PartialResult{}, err
	}

	var (
		inside uint64
		point  [2]float64
	)
	for i := t.Start; i < end; i++ {
		if (i-t.Start)&cancelCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return PartialResult{}, err
			}
		}
		s.seq.Point(i, point[:])
		if inDisc(point[0], point[1]) {
			inside++
		}
	}
	return PartialResult{Inside: inside, Samples: t.Count}, nil
}

// PseudoDisc counts pseudo-random points inside the unit disc. It is the
// plain Monte-Carlo baseline: every task draws from a PCG stream keyed by the
// run seed and the task's start index, so a fixed plan is reproducible but
// the result changes with the partition.
type PseudoDisc struct {
	seed uint64
}

// NewPseudoDisc returns a baseline sampler for the given seed.
func NewPseudoDisc(seed uint64) *PseudoDisc {
	return &PseudoDisc{seed: seed}
}

// Count implements Sampler.
func (s *PseudoDisc) Count(ctx context.Context, t Task) (PartialResult, error) {
	if _, err := t.End(); err != nil {
		return PartialResult{}, err
	}

	rng := rand.New(rand.NewPCG(s.seed, t.Start))
	var inside uint64
	for i := range t.Count {
		if i&cancelCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return PartialResult{}, err
			}
		}
		if inDisc(rng.Float64(), rng.Float64()) {
			inside++
		}
	}
	return PartialResult{Inside: inside, Samples: t.Count}, nil
}
