package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var poolIDs atomic.Uint64

// Pool is a bounded worker pool. A fixed number of workers processes
// submitted tasks of type T into results of type R, and every submission
// returns a Future for its result.
//
// Pools never share workers with each other. Code that fans out from inside
// a task must submit the nested work to a different, independently sized pool
// (see package nested), never back into the pool running the task.
//
// Type parameters:
//   - T: The input task type processed by workers
//   - R: The output/result type produced by processing tasks
type Pool[T any, R any] struct {
	id    uint64
	conf  poolConfig
	hooks hooks[T, R]

	mu       sync.RWMutex
	state    *poolState[T, R]
	closed   bool
	inflight sync.WaitGroup // Submit calls currently pushing

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
}

// poolState holds the runtime state of a started pool.
type poolState[T any, R any] struct {
	queue   taskQueue[T, R]
	process ProcessFunc[T, R]
	cancel  context.CancelFunc
	quit    chan struct{} // Closed by Shutdown to release blocked submitters
	done    chan struct{} // Closed when all workers have finished
	failed  atomic.Bool
	nextID  atomic.Int64
}

// New creates a pool with the given options. It does not start any workers;
// call Start for that.
//
// WithWorkerCount is mandatory. Task buffer defaults to the worker count,
// the failure policy to CollectAll and scheduling to SchedulingShared.
//
// Example:
//
//	p, err := New[int, string](WithWorkerCount(8), WithName("outer"))
//	if err != nil {
//	    return err
//	}
//	_ = p.Start(ctx, processFn)
//	defer p.Shutdown(5 * time.Second)
func New[T any, R any](opts ...Option) (*Pool[T, R], error) {
	var cfg poolConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.workerCount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, cfg.workerCount)
	}

	if cfg.taskBuffer == 0 {
		cfg.taskBuffer = cfg.workerCount
	}

	h, err := checkHooks[T, R](&cfg)
	if err != nil {
		return nil, err
	}

	id := poolIDs.Add(1)
	if cfg.name == "" {
		cfg.name = fmt.Sprintf("pool-%d", id)
	}

	return &Pool[T, R]{
		id:    id,
		conf:  cfg,
		hooks: h,
	}, nil
}

// ID returns the process-unique identity of the pool.
func (p *Pool[T, R]) ID() uint64 {
	return p.id
}

// Name returns the configured name, or a generated one.
func (p *Pool[T, R]) Name() string {
	return p.conf.name
}

// Workers returns the fixed worker count.
func (p *Pool[T, R]) Workers() int {
	return p.conf.workerCount
}

// Scheduling returns the queue discipline.
func (p *Pool[T, R]) Scheduling() Scheduling {
	return p.conf.scheduling
}

// TaskBuffer returns how many tasks may wait in the queue before Submit blocks.
func (p *Pool[T, R]) TaskBuffer() int {
	return p.conf.taskBuffer
}

// Policy returns the declared failure policy.
func (p *Pool[T, R]) Policy() FailurePolicy {
	return p.conf.policy
}

// Stats returns a snapshot of the task counters.
func (p *Pool[T, R]) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Cancelled: p.cancelled.Load(),
	}
}

// Start launches the workers. processFn is applied to every submitted task.
// ctx bounds the lifetime of the workers: once it is done, queued tasks are
// completed with the context error instead of being run.
func (p *Pool[T, R]) Start(ctx context.Context, processFn ProcessFunc[T, R]) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.state != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	state := &poolState[T, R]{
		queue:   newTaskQueue[T, R](p.conf.scheduling, p.conf.workerCount, p.conf.taskBuffer),
		process: processFn,
		cancel:  cancel,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	p.state = state

	var g errgroup.Group
	for i := range p.conf.workerCount {
		g.Go(func() error {
			return p.worker(ctx, state, i)
		})
	}

	go func() {
		_ = g.Wait()
		close(state.done)
	}()

	debugLog("pool %s (#%d) started with %d workers, buffer %d, %s, %s",
		p.conf.name, p.id, p.conf.workerCount, p.conf.taskBuffer, p.conf.scheduling, p.conf.policy)
	return nil
}

// Submit enqueues a task and returns a Future for its result. It returns
// immediately while the queue has room and blocks once it is full.
func (p *Pool[T, R]) Submit(task T) (*Future[R], error) {
	return p.SubmitContext(context.Background(), task)
}

// SubmitContext is Submit with a context bounding the wait for queue space.
func (p *Pool[T, R]) SubmitContext(ctx context.Context, task T) (*Future[R], error) {
	p.mu.RLock()
	state := p.state
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	if state == nil {
		p.mu.RUnlock()
		return nil, ErrNotStarted
	}
	p.inflight.Add(1)
	p.mu.RUnlock()
	defer p.inflight.Done()

	f := newFuture[R](state.nextID.Add(1))
	if err := state.queue.push(ctx, &job[T, R]{task: task, future: f}, state.quit); err != nil {
		return nil, err
	}

	p.submitted.Add(1)
	return f, nil
}

// Shutdown stops accepting tasks, lets the workers drain what is already
// queued and waits for them to exit. A timeout of 0 waits forever. When the
// timeout expires the workers' context is cancelled so the remaining tasks
// complete with the context error, and ErrShutdownTimeout is returned
// without waiting for tasks that ignore cancellation.
func (p *Pool[T, R]) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.closed = true
	state := p.state
	p.mu.Unlock()

	if state == nil {
		return nil
	}

	close(state.quit)
	p.inflight.Wait()
	state.queue.close()

	err := waitUntil(state.done, timeout)
	state.cancel()

	debugLog("pool %s (#%d) shut down: %+v", p.conf.name, p.id, p.Stats())
	return err
}

// waitUntil blocks until either the done channel is closed or the timeout is reached.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	select {
	case <-d:
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
