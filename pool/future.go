package pool

import "context"

// Future is the handle returned by Submit. It yields the task's result, or its
// failure, once a worker has finished with it. Every read returns the same outcome.
type Future[R any] struct {
	id    int64
	done  chan struct{}
	value R
	err   error
}

func newFuture[R any](id int64) *Future[R] {
	return &Future[R]{
		id:   id,
		done: make(chan struct{}),
	}
}

// complete stores the outcome and releases all waiters. Called exactly once by the worker.
func (f *Future[R]) complete(value R, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// ID returns the pool-unique, monotonically increasing submission number of the task.
func (f *Future[R]) ID() int64 {
	return f.id
}

// Done returns a channel that is closed once the result is available.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the task completes and returns its result.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	return f.value, f.err
}

// GetWithContext waits for the result or until ctx is done, whichever happens first.
// Giving up on the wait does not cancel the task.
func (f *Future[R]) GetWithContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// TryGet returns the result without blocking. ready is false while the task is still pending.
func (f *Future[R]) TryGet() (value R, ready bool, err error) {
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		var zero R
		return zero, false, nil
	}
}
