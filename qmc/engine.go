package qmc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/utkarsh5026/qmcpool/pool"
)

// Config describes one integration run. It is immutable once handed to NewEngine.
type Config struct {
	TotalSamples uint64
	TaskCount    uint64
	WorkerCount  int
	BaseX        uint64
	BaseY        uint64
}

// Validate reports ErrInvalidConfiguration for non-positive counts and for
// bases that are not distinct primes.
func (c Config) Validate() error {
	if c.TotalSamples == 0 {
		return fmt.Errorf("%w: total samples must be positive", ErrInvalidConfiguration)
	}
	if c.TaskCount == 0 {
		return fmt.Errorf("%w: task count must be positive", ErrInvalidConfiguration)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker count must be positive, got %d", ErrInvalidConfiguration, c.WorkerCount)
	}
	if _, err := NewHalton(c.BaseX, c.BaseY); err != nil {
		return err
	}
	return nil
}

// AggregateResult is the read-only outcome of a run.
type AggregateResult struct {
	Estimate     float64
	TotalSamples uint64 // effective sample count, after the remainder policy
	Requested    uint64
	Inside       uint64
	Tasks        int
	Workers      int
	Elapsed      time.Duration // wall clock, diagnostic only

	// AbsError is |Estimate - π|. It is only meaningful for PiCombiner.
	AbsError float64
	// TheoreticalOrder is (ln n)² / n for the effective n, the quasi-Monte-Carlo error order.
	TheoreticalOrder float64
	Spread           Spread
}

// TheoreticalOrder returns the quasi-Monte-Carlo error order (ln n)² / n.
func TheoreticalOrder(n uint64) float64 {
	if n == 0 {
		return math.Inf(1)
	}
	l := math.Log(float64(n))
	return l * l / float64(n)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCombiner replaces PiCombiner.
func WithCombiner(c Combiner) EngineOption {
	return func(e *Engine) {
		e.agg = NewAggregator(c)
	}
}

// WithSampler replaces the Halton disc sampler built from the config bases.
func WithSampler(s Sampler) EngineOption {
	return func(e *Engine) {
		e.sampler = s
	}
}

// WithPoolOptions passes extra options to the run's worker pool, e.g.
// scheduling, CPU pinning or hooks. The worker count always comes from Config.
func WithPoolOptions(opts ...pool.Option) EngineOption {
	return func(e *Engine) {
		e.poolOpts = append(e.poolOpts, opts...)
	}
}

// WithTimeout bounds a run as an operational safeguard. It does not affect the estimate.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.timeout = d
	}
}

// Engine runs partitioned quasi-Monte-Carlo integrations on a bounded pool.
// Every Run creates its own pool sized from Config.WorkerCount and tears it
// down before returning.
type Engine struct {
	cfg      Config
	sampler  Sampler
	agg      *Aggregator
	poolOpts []pool.Option
	timeout  time.Duration
}

// NewEngine validates cfg and builds an engine. With the default sampler the
// estimate depends only on TotalSamples, TaskCount (through the remainder
// policy) and the bases, never on WorkerCount or scheduling.
func NewEngine(cfg Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg: cfg,
		agg: NewAggregator(PiCombiner),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.sampler == nil {
		s, err := NewHaltonDisc(cfg.BaseX, cfg.BaseY)
		if err != nil {
			return nil, err
		}
		e.sampler = s
	}
	return e, nil
}

// Config returns the run configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run partitions the sample budget, evaluates every task on a fresh pool and
// folds the partial results. All tasks are awaited before a failure is
// reported; the first failing task's error is returned wrapped in
// ErrWorkerFailure.
func (e *Engine) Run(ctx context.Context) (AggregateResult, error) {
	plan, err := Partition(e.cfg.TotalSamples, e.cfg.TaskCount)
	if err != nil {
		return AggregateResult{}, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	opts := append([]pool.Option{
		pool.WithName("qmc"),
		pool.WithTaskBuffer(len(plan.Tasks)),
	}, e.poolOpts...)
	opts = append(opts, pool.WithWorkerCount(e.cfg.WorkerCount))

	p, err := pool.New[Task, PartialResult](opts...)
	if err != nil {
		return AggregateResult{}, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if err := p.Start(ctx, e.evaluate); err != nil {
		return AggregateResult{}, err
	}

	parts, err := p.Process(ctx, plan.Tasks)
	shutdownErr := p.Shutdown(0)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return AggregateResult{}, err
		}
		return AggregateResult{}, fmt.Errorf("%w: %w", ErrWorkerFailure, err)
	}
	if shutdownErr != nil {
		return AggregateResult{}, shutdownErr
	}

	total, err := e.agg.Fold(parts...)
	if err != nil {
		return AggregateResult{}, err
	}
	elapsed := time.Since(start)

	estimate := e.agg.Estimate(total)
	return AggregateResult{
		Estimate:         estimate,
		TotalSamples:     total.Samples,
		Requested:        plan.Requested,
		Inside:           total.Inside,
		Tasks:            len(plan.Tasks),
		Workers:          e.cfg.WorkerCount,
		Elapsed:          elapsed,
		AbsError:         math.Abs(estimate - math.Pi),
		TheoreticalOrder: TheoreticalOrder(total.Samples),
		Spread:           e.agg.Spread(parts),
	}, nil
}

// evaluate is the pool's ProcessFunc.
func (e *Engine) evaluate(ctx context.Context, t Task) (PartialResult, error) {
	if t.Count == 0 {
		return PartialResult{}, fmt.Errorf("%w: empty task at %d", ErrInvalidConfiguration, t.Start)
	}
	return e.sampler.Count(ctx, t)
}
