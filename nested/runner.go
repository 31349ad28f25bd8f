package nested

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/utkarsh5026/qmcpool/pool"
)

// Work is the unit a nested pool runs.
type Work = pool.Closure[struct{}]

// Pool is a pool that can serve as the outer or inner pool of a Runner.
// Start it with pool.Invoke[struct{}].
type Pool = pool.Pool[Work, struct{}]

// InnerTask is one piece of nested work.
type InnerTask func(ctx context.Context) error

// OuterTask is one piece of outer work. It fans out through in.
type OuterTask func(ctx context.Context, in *Inner) error

// Runner executes outer tasks under an admission limit and gives each of
// them access to the inner pool.
type Runner struct {
	layout Layout
	outer  *Pool
	inner  *Pool
	gate   *semaphore.Weighted

	owned     bool
	closeOnce sync.Once
	closeErr  error
}

// NewRunner validates layout and starts the pools it describes. Close
// releases them.
func NewRunner(layout Layout) (*Runner, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	outerBuffer := layout.OuterPermits
	if layout.SharedPool {
		outerBuffer = layout.sharedBuffer()
	}
	outer, err := startPool("nested-outer", layout.OuterWorkers, outerBuffer)
	if err != nil {
		return nil, err
	}

	inner := outer
	if !layout.SharedPool {
		inner, err = startPool("nested-inner", layout.InnerWorkers, layout.InnerWorkers)
		if err != nil {
			_ = outer.Shutdown(0)
			return nil, err
		}
	}

	return &Runner{
		layout: layout,
		outer:  outer,
		inner:  inner,
		gate:   semaphore.NewWeighted(int64(layout.OuterPermits)),
		owned:  true,
	}, nil
}

func startPool(name string, workers, buffer int) (*Pool, error) {
	p, err := pool.New[Work, struct{}](
		pool.WithName(name),
		pool.WithWorkerCount(workers),
		pool.WithTaskBuffer(buffer),
		pool.WithScheduling(pool.SchedulingShared),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}
	if err := p.Start(context.Background(), pool.Invoke[struct{}]); err != nil {
		return nil, err
	}
	return p, nil
}

// NewRunnerWithPools builds a runner over pools the caller started and owns.
// Whether the pools are shared is decided by identity and must agree with
// layout.SharedPool: handing the same pool in as both outer and inner under a
// separate-pool layout is reported as ErrDeadlockRisk. A shared pool must use
// SchedulingShared and buffer at least one full wave per permit.
func NewRunnerWithPools(layout Layout, outer, inner *Pool) (*Runner, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if outer == nil || inner == nil {
		return nil, fmt.Errorf("%w: nil pool", ErrInvalidLayout)
	}

	shared := outer.ID() == inner.ID()
	switch {
	case shared && !layout.SharedPool:
		return nil, fmt.Errorf("%w: pool %q is used for both levels", ErrDeadlockRisk, outer.Name())
	case !shared && layout.SharedPool:
		return nil, fmt.Errorf("%w: layout is shared but pools %q and %q differ", ErrInvalidLayout, outer.Name(), inner.Name())
	}

	if outer.Workers() != layout.OuterWorkers {
		return nil, fmt.Errorf("%w: pool %q has %d workers, layout expects %d",
			ErrInvalidLayout, outer.Name(), outer.Workers(), layout.OuterWorkers)
	}
	if !shared && inner.Workers() != layout.InnerWorkers {
		return nil, fmt.Errorf("%w: pool %q has %d workers, layout expects %d",
			ErrInvalidLayout, inner.Name(), inner.Workers(), layout.InnerWorkers)
	}

	if shared {
		if outer.Scheduling() != pool.SchedulingShared {
			return nil, fmt.Errorf("%w: shared pool %q uses %s scheduling", ErrDeadlockRisk, outer.Name(), outer.Scheduling())
		}
		if outer.TaskBuffer() < layout.sharedBuffer() {
			return nil, fmt.Errorf("%w: shared pool %q buffers %d tasks, needs %d",
				ErrDeadlockRisk, outer.Name(), outer.TaskBuffer(), layout.sharedBuffer())
		}
	}

	return &Runner{
		layout: layout,
		outer:  outer,
		inner:  inner,
		gate:   semaphore.NewWeighted(int64(layout.OuterPermits)),
	}, nil
}

// Layout returns the validated layout.
func (r *Runner) Layout() Layout {
	return r.layout
}

// Stats returns the counters of the outer and inner pool. They are the same
// pool when the layout is shared.
func (r *Runner) Stats() (outer, inner pool.Stats) {
	return r.outer.Stats(), r.inner.Stats()
}

// Run admits every task in order, at most OuterPermits at a time, and waits
// for all admitted tasks. The permit is taken before a task is queued, so
// waiting for admission never holds a worker.
//
// Every admitted task runs to completion. The lowest-index failure is
// returned as a *pool.TaskError. If admission stops early because ctx ended
// or the pool closed, that error is returned instead. Run stops waiting when
// ctx ends and returns ctx.Err(); tasks still running release their permits
// when they finish.
func (r *Runner) Run(ctx context.Context, tasks []OuterTask) error {
	futures := make([]*pool.Future[struct{}], 0, len(tasks))

	var admitErr error
	for _, task := range tasks {
		if err := r.gate.Acquire(ctx, 1); err != nil {
			admitErr = err
			break
		}
		f, err := r.outer.SubmitContext(ctx, r.admitted(ctx, task))
		if err != nil {
			r.gate.Release(1)
			admitErr = err
			break
		}
		futures = append(futures, f)
	}

	var firstErr error
	for i, f := range futures {
		_, err := f.GetWithContext(ctx)
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if firstErr == nil {
			firstErr = &pool.TaskError{Pool: r.outer.Name(), Index: i, Err: err}
		}
	}

	if admitErr != nil {
		return admitErr
	}
	return firstErr
}

// admitted wraps an outer task that already holds a permit.
func (r *Runner) admitted(ctx context.Context, task OuterTask) Work {
	return func(context.Context) (struct{}, error) {
		defer r.gate.Release(1)
		return struct{}{}, task(ctx, &Inner{runner: r})
	}
}

// Close shuts down the pools NewRunner started. Pools passed to
// NewRunnerWithPools are left to their owner.
func (r *Runner) Close() error {
	r.closeOnce.Do(func() {
		if !r.owned {
			return
		}
		err := r.outer.Shutdown(0)
		if r.inner != r.outer {
			err = errors.Join(err, r.inner.Shutdown(0))
		}
		r.closeErr = err
	})
	return r.closeErr
}

// Inner is an outer task's handle to the inner pool.
type Inner struct {
	runner *Runner
}

// Go runs tasks on the inner pool and waits for all of them. Tasks are
// submitted in waves of at most MaxNestedPerOuter; a wave is awaited before
// the next one is queued. The lowest-index failure is returned as a
// *pool.TaskError. Go stops waiting when ctx ends and returns ctx.Err().
func (in *Inner) Go(ctx context.Context, tasks ...InnerTask) error {
	r := in.runner
	wave := r.layout.MaxNestedPerOuter

	var firstErr error
	for start := 0; start < len(tasks); start += wave {
		end := min(start+wave, len(tasks))

		futures := make([]*pool.Future[struct{}], 0, end-start)
		var submitErr error
		for _, task := range tasks[start:end] {
			f, err := r.inner.SubmitContext(ctx, func(context.Context) (struct{}, error) {
				return struct{}{}, task(ctx)
			})
			if err != nil {
				submitErr = err
				break
			}
			futures = append(futures, f)
		}

		for k, f := range futures {
			_, err := f.GetWithContext(ctx)
			if err == nil {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if firstErr == nil {
				firstErr = &pool.TaskError{Pool: r.inner.Name(), Index: start + k, Err: err}
			}
		}
		if submitErr != nil {
			return submitErr
		}
	}
	return firstErr
}

// Fanout builds outerCount outer tasks that each run innerCount inner tasks.
// work receives the outer and inner index.
func Fanout(outerCount, innerCount int, work func(ctx context.Context, outer, inner int) error) []OuterTask {
	tasks := make([]OuterTask, outerCount)
	for o := range tasks {
		tasks[o] = func(ctx context.Context, in *Inner) error {
			inner := make([]InnerTask, innerCount)
			for i := range inner {
				inner[i] = func(ctx context.Context) error {
					return work(ctx, o, i)
				}
			}
			return in.Go(ctx, inner...)
		}
	}
	return tasks
}
