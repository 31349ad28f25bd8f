package pool

import "context"

// ProcessFunc is a function type that defines how individual tasks are processed in the worker pool.
// It takes a context for cancellation/timeout control and a task of type T, returning a result of type R.
// Tasks handed to the same pool must not share mutable state.
//
// Type parameters:
//   - T: The type of input task to be processed
//   - R: The type of result produced after processing
type ProcessFunc[T any, R any] func(ctx context.Context, task T) (R, error)

// Closure is a self-contained unit of work. Pools of closures run
// heterogeneous work through a single ProcessFunc, see Invoke.
type Closure[R any] func(ctx context.Context) (R, error)

// Invoke is the ProcessFunc for pools of closures.
//
//	p, _ := New[Closure[int], int](WithWorkerCount(4))
//	_ = p.Start(ctx, Invoke[int])
func Invoke[R any](ctx context.Context, c Closure[R]) (R, error) {
	return c(ctx)
}

// FailurePolicy declares what a pool does with queued work once a task fails.
type FailurePolicy int

const (
	// CollectAll runs every submitted task to completion. Batch helpers
	// report the failure of the lowest-index failing task.
	CollectAll FailurePolicy = iota

	// FailFast completes every task still queued after the first failure
	// with ErrCancelled instead of running it.
	FailFast
)

func (f FailurePolicy) String() string {
	switch f {
	case CollectAll:
		return "collect-all"
	case FailFast:
		return "fail-fast"
	default:
		return "unknown"
	}
}

// Scheduling selects how submitted tasks are handed to workers.
type Scheduling int

const (
	// SchedulingShared uses one FIFO queue that every worker reads from.
	SchedulingShared Scheduling = iota

	// SchedulingRoundRobin gives every worker its own queue and distributes
	// submissions across them in turn.
	SchedulingRoundRobin
)

func (s Scheduling) String() string {
	switch s {
	case SchedulingShared:
		return "shared"
	case SchedulingRoundRobin:
		return "round-robin"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time snapshot of a pool's counters.
type Stats struct {
	Submitted int64
	Completed int64
	Failed    int64
	Cancelled int64
}
