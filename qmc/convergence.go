package qmc

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ConvergencePoint is one run of a convergence sweep.
type ConvergencePoint struct {
	Result AggregateResult
	// Ratio is AbsError / TheoreticalOrder. Values below 1 beat the bound.
	Ratio float64
}

// ConvergenceReport summarises a sweep over growing sample counts.
type ConvergenceReport struct {
	Points []ConvergencePoint
	// Slope is the least-squares slope of ln(error) against ln(n).
	// Plain Monte-Carlo converges with slope -1/2; quasi-Monte-Carlo should be steeper.
	// NaN when fewer than two points have a non-zero error.
	Slope float64
}

// GeometricSizes returns count sample sizes starting at first and growing by factor.
// It returns nil when count is not positive or factor is zero.
func GeometricSizes(first, factor uint64, count int) []uint64 {
	if count <= 0 || factor == 0 {
		return nil
	}
	sizes := make([]uint64, 0, count)
	n := first
	for range count {
		sizes = append(sizes, n)
		if n > math.MaxUint64/factor {
			break
		}
		n *= factor
	}
	return sizes
}

// Sweep runs base once per entry of sizes, replacing TotalSamples. progress,
// when non-nil, is called after each run. The sweep stops at the first error.
func Sweep(
	ctx context.Context,
	base Config,
	sizes []uint64,
	progress func(ConvergencePoint),
	opts ...EngineOption,
) (ConvergenceReport, error) {
	report := ConvergenceReport{Points: make([]ConvergencePoint, 0, len(sizes))}

	for _, n := range sizes {
		cfg := base
		cfg.TotalSamples = n

		e, err := NewEngine(cfg, opts...)
		if err != nil {
			return report, err
		}
		res, err := e.Run(ctx)
		if err != nil {
			return report, fmt.Errorf("sweep at n=%d: %w", n, err)
		}

		pt := ConvergencePoint{Result: res, Ratio: res.AbsError / res.TheoreticalOrder}
		report.Points = append(report.Points, pt)
		if progress != nil {
			progress(pt)
		}
	}

	report.Slope = errorSlope(report.Points)
	return report, nil
}

// errorSlope fits ln(error) = a + b ln(n) and returns b.
func errorSlope(points []ConvergencePoint) float64 {
	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Result.AbsError <= 0 {
			continue
		}
		xs = append(xs, math.Log(float64(p.Result.TotalSamples)))
		ys = append(ys, math.Log(p.Result.AbsError))
	}
	if len(xs) < 2 {
		return math.NaN()
	}

	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}
