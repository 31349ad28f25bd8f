package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWorkerCount is returned by New when no positive worker count was configured.
	ErrInvalidWorkerCount = errors.New("pool: worker count must be positive")

	// ErrHookType is returned by New when a hook does not match the pool's types.
	ErrHookType = errors.New("pool: hook type mismatch")

	// ErrNotStarted is returned when submitting to a pool that was never started.
	ErrNotStarted = errors.New("pool: not started")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("pool: already started")

	// ErrPoolClosed is returned when submitting to, or shutting down, a pool that is shut down.
	ErrPoolClosed = errors.New("pool: shut down")

	// ErrShutdownTimeout is returned when workers did not drain within the shutdown timeout.
	ErrShutdownTimeout = errors.New("pool: shutdown timeout reached")

	// ErrTaskPanic marks a task that panicked instead of returning.
	ErrTaskPanic = errors.New("pool: task panicked")

	// ErrCancelled completes tasks skipped under FailFast after an earlier failure.
	ErrCancelled = errors.New("pool: task cancelled after earlier failure")
)

// TaskError records which task of a batch failed.
type TaskError struct {
	Pool  string
	Index int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("pool %q: task %d: %v", e.Pool, e.Index, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
