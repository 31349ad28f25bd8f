package pool

import (
	"context"
	"sync/atomic"
)

// job is a submitted task together with its result handle.
type job[T any, R any] struct {
	task   T
	future *Future[R]
}

// taskQueue decides which worker sees which submitted task.
type taskQueue[T any, R any] interface {
	// push enqueues j, blocking while the queue is full. It gives up with
	// ErrPoolClosed once quit is closed, or with the context error.
	push(ctx context.Context, j *job[T, R], quit <-chan struct{}) error

	// source is the channel worker workerID reads from. It is closed by close.
	source(workerID int) <-chan *job[T, R]

	// close closes every worker channel. No push may be in flight.
	close()
}

func newTaskQueue[T any, R any](s Scheduling, workers, buffer int) taskQueue[T, R] {
	if s == SchedulingRoundRobin {
		return newRoundRobinQueue[T, R](workers, buffer)
	}
	return newSharedQueue[T, R](buffer)
}

// sharedQueue is one FIFO channel read by every worker.
type sharedQueue[T any, R any] struct {
	ch chan *job[T, R]
}

func newSharedQueue[T any, R any](buffer int) *sharedQueue[T, R] {
	return &sharedQueue[T, R]{ch: make(chan *job[T, R], buffer)}
}

func (q *sharedQueue[T, R]) push(ctx context.Context, j *job[T, R], quit <-chan struct{}) error {
	select {
	case q.ch <- j:
		return nil
	case <-quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *sharedQueue[T, R]) source(int) <-chan *job[T, R] {
	return q.ch
}

func (q *sharedQueue[T, R]) close() {
	close(q.ch)
}

// roundRobinQueue gives each worker a dedicated channel and spreads
// submissions over them using an atomic counter.
type roundRobinQueue[T any, R any] struct {
	chans   []chan *job[T, R]
	counter atomic.Uint64
}

func newRoundRobinQueue[T any, R any](workers, buffer int) *roundRobinQueue[T, R] {
	per := max(buffer/workers, 1)
	q := &roundRobinQueue[T, R]{chans: make([]chan *job[T, R], workers)}
	for i := range q.chans {
		q.chans[i] = make(chan *job[T, R], per)
	}
	return q
}

func (q *roundRobinQueue[T, R]) push(ctx context.Context, j *job[T, R], quit <-chan struct{}) error {
	idx := (q.counter.Add(1) - 1) % uint64(len(q.chans))
	select {
	case q.chans[idx] <- j:
		return nil
	case <-quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *roundRobinQueue[T, R]) source(workerID int) <-chan *job[T, R] {
	return q.chans[workerID]
}

func (q *roundRobinQueue[T, R]) close() {
	for _, ch := range q.chans {
		close(ch)
	}
}
