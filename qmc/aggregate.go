package qmc

import (
	"fmt"
	"math/bits"

	"gonum.org/v1/gonum/stat"
)

// PartialResult is the outcome of evaluating one Task.
type PartialResult struct {
	Inside  uint64
	Samples uint64
}

// Merge adds two partial results. Integer addition keeps folding exactly
// associative and commutative; overflow is reported, never wrapped.
func Merge(a, b PartialResult) (PartialResult, error) {
	inside, c1 := bits.Add64(a.Inside, b.Inside, 0)
	samples, c2 := bits.Add64(a.Samples, b.Samples, 0)
	if c1 != 0 || c2 != 0 {
		return PartialResult{}, fmt.Errorf("%w: accumulating partial results", ErrOverflow)
	}
	return PartialResult{Inside: inside, Samples: samples}, nil
}

// Combiner turns folded counts into an estimate.
type Combiner func(inside, samples uint64) float64

// PiCombiner estimates π from hits inside the unit disc inscribed in [-1,1]²:
// the disc covers π/4 of the square.
func PiCombiner(inside, samples uint64) float64 {
	return 4.0 * float64(inside) / float64(samples)
}

// Aggregator folds partial results and applies a Combiner.
type Aggregator struct {
	combine Combiner
}

// NewAggregator returns an aggregator using combine, or PiCombiner when nil.
func NewAggregator(combine Combiner) *Aggregator {
	if combine == nil {
		combine = PiCombiner
	}
	return &Aggregator{combine: combine}
}

// Fold sums all partial results. The order of parts does not matter.
func (a *Aggregator) Fold(parts ...PartialResult) (PartialResult, error) {
	var total PartialResult
	for _, p := range parts {
		var err error
		if total, err = Merge(total, p); err != nil {
			return PartialResult{}, err
		}
	}
	return total, nil
}

// Estimate applies the combiner to folded counts. It returns 0 for an empty total.
func (a *Aggregator) Estimate(total PartialResult) float64 {
	if total.Samples == 0 {
		return 0
	}
	return a.combine(total.Inside, total.Samples)
}

// Spread describes how far the per-task estimates scatter around their mean.
// It is a diagnostic and never feeds into the aggregate estimate.
type Spread struct {
	Mean   float64
	StdDev float64
}

// Spread computes the mean and sample standard deviation of the per-task
// estimates. A single task has zero deviation.
func (a *Aggregator) Spread(parts []PartialResult) Spread {
	if len(parts) == 0 {
		return Spread{}
	}

	estimates := make([]float64, 0, len(parts))
	for _, p := range parts {
		estimates = append(estimates, a.Estimate(p))
	}
	if len(estimates) == 1 {
		return Spread{Mean: estimates[0]}
	}

	mean, std := stat.MeanStdDev(estimates, nil)
	return Spread{Mean: mean, StdDev: std}
}
