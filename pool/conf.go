package pool

import (
	"fmt"

	"golang.org/x/time/rate"
)

// Option is a functional option for configuring a pool.
type Option func(*poolConfig)

type poolConfig struct {
	name        string
	workerCount int
	taskBuffer  int
	policy      FailurePolicy
	scheduling  Scheduling
	rateLimiter *rate.Limiter
	pinWorkers  bool

	// Hooks are stored untyped and checked against the pool's T and R in New.
	beforeTaskStart any
	onTaskEnd       any
}

// WithWorkerCount sets the number of concurrent workers. It is required:
// there is no implicit default so every pool is sized explicitly.
func WithWorkerCount(count int) Option {
	return func(cfg *poolConfig) {
		cfg.workerCount = count
	}
}

// WithTaskBuffer sets how many submitted tasks may wait in the queue before
// Submit blocks. If not specified, defaults to the number of workers.
func WithTaskBuffer(size int) Option {
	return func(cfg *poolConfig) {
		if size >= 0 {
			cfg.taskBuffer = size
		}
	}
}

// WithName labels the pool. The name shows up in errors and debug output.
func WithName(name string) Option {
	return func(cfg *poolConfig) {
		cfg.name = name
	}
}

// WithFailurePolicy declares how the pool treats queued work after a failure.
// The default is CollectAll.
func WithFailurePolicy(policy FailurePolicy) Option {
	return func(cfg *poolConfig) {
		cfg.policy = policy
	}
}

// WithScheduling selects the queue discipline. The default is SchedulingShared.
func WithScheduling(s Scheduling) Option {
	return func(cfg *poolConfig) {
		cfg.scheduling = s
	}
}

// WithRateLimit sets a rate limiter for controlling task throughput.
// tasksPerSecond specifies the maximum number of tasks to start per second.
// burst specifies the maximum number of tasks that can start in a burst.
// If not specified, no rate limiting is applied.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *poolConfig) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithCPUPinning locks each worker to an OS thread and, where the platform
// allows it, pins that thread to core workerID % NumCPU.
func WithCPUPinning() Option {
	return func(cfg *poolConfig) {
		cfg.pinWorkers = true
	}
}

// WithBeforeTaskStart registers a hook that runs on the worker right before a task starts.
// The task type must match the pool's T, otherwise New fails.
func WithBeforeTaskStart[T any](fn func(task T)) Option {
	return func(cfg *poolConfig) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd registers a hook that runs on the worker after a task finishes,
// successfully or not. Task and result types must match the pool's T and R.
func WithOnTaskEnd[T any, R any](fn func(task T, result R, err error)) Option {
	return func(cfg *poolConfig) {
		cfg.onTaskEnd = fn
	}
}

// hooks holds the typed versions of the configured hooks.
type hooks[T any, R any] struct {
	beforeTaskStart func(T)
	onTaskEnd       func(T, R, error)
}

// checkHooks validates user-supplied hooks against the pool's task and result
// types and returns them typed. A mismatch is reported as ErrHookType.
func checkHooks[T any, R any](cfg *poolConfig) (hooks[T, R], error) {
	var h hooks[T, R]

	if cfg.beforeTaskStart != nil {
		fn, ok := cfg.beforeTaskStart.(func(T))
		if !ok {
			var zeroT T
			return h, fmt.Errorf("%w: WithBeforeTaskStart hook %T does not accept task type %T",
				ErrHookType, cfg.beforeTaskStart, zeroT)
		}
		h.beforeTaskStart = fn
	}

	if cfg.onTaskEnd != nil {
		fn, ok := cfg.onTaskEnd.(func(T, R, error))
		if !ok {
			var zeroT T
			var zeroR R
			return h, fmt.Errorf("%w: WithOnTaskEnd hook %T does not match task type %T and result type %T",
				ErrHookType, cfg.onTaskEnd, zeroT, zeroR)
		}
		h.onTaskEnd = fn
	}

	return h, nil
}
