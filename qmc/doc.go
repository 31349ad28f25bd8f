// Package qmc implements deterministic parallel quasi-Monte-Carlo integration.
//
// A run partitions a sample budget into equal, contiguous index ranges
// (Partition), evaluates a two-dimensional Halton sequence over every range on
// a bounded worker pool (Engine, HaltonDisc), and folds the integer hit counts
// into a single estimate (Aggregator). With the default π combiner the
// estimate is 4·inside/samples for points of [-1,1]² inside the unit disc.
//
// Because each sample depends only on its index and partial results are
// folded with exact integer addition, the estimate is bit-for-bit identical
// for any worker count and any scheduling order. Only the total sample count,
// the task count (via the remainder policy) and the bases influence it.
//
//	e, err := qmc.NewEngine(qmc.Config{
//	    TotalSamples: 2_000_000,
//	    TaskCount:    20,
//	    WorkerCount:  8,
//	    BaseX:        2,
//	    BaseY:        3,
//	})
//	if err != nil {
//	    return err
//	}
//	res, err := e.Run(ctx) // res.Estimate ≈ 3.1415
package qmc
