// Package pool provides a small, generic, bounded worker pool.
//
// The primary type is Pool[T, R]: a fixed number of workers which process
// tasks of type T into results of type R. Every submission returns a Future.
// Pools are always sized explicitly; there is no shared default pool.
//
// # Basic Usage
//
//	p, err := pool.New[int, int](pool.WithWorkerCount(4))
//	if err != nil {
//	    return err
//	}
//	if err := p.Start(ctx, func(ctx context.Context, t int) (int, error) {
//	    return t * 2, nil
//	}); err != nil {
//	    return err
//	}
//	defer p.Shutdown(0)
//
//	f, _ := p.Submit(21)
//	v, err := f.Get() // 42
//
// # Batches
//
// Process submits a slice of tasks, awaits all handles and returns the results
// in submission order:
//
//	results, err := p.Process(ctx, []int{1, 2, 3})
//
// # Failure Policy
//
// The policy is declared, not incidental:
//
//   - CollectAll (default): every task runs; Process reports the failure of the
//     lowest-index failing task after all tasks have finished.
//   - FailFast: tasks still queued after the first failure complete with
//     ErrCancelled without running.
//
// A panicking task does not take its worker down; the panic is delivered as
// an error wrapping ErrTaskPanic.
//
// # Nested Parallelism
//
// A task must never submit work to the pool it runs on and then wait for it.
// When every worker is occupied by such a waiting task, the nested work can
// never be scheduled and the pool deadlocks. Nested fan-out belongs in a
// separate, independently sized pool; package nested enforces this.
//
// # Configuration Options
//
//   - WithWorkerCount(n): Set number of concurrent workers (required)
//   - WithTaskBuffer(n): Set queue depth before Submit blocks (default: worker count)
//   - WithName(s): Label the pool for errors and debug output
//   - WithFailurePolicy(p): CollectAll or FailFast
//   - WithScheduling(s): SchedulingShared or SchedulingRoundRobin
//   - WithRateLimit(tasksPerSecond, burst): Limit task start rate
//   - WithCPUPinning(): Lock workers to OS threads pinned to cores
//   - WithBeforeTaskStart / WithOnTaskEnd: Per-task hooks
//
// Build with -tags debug to trace pool lifecycle on stderr.
package pool
