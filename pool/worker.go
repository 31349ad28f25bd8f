package pool

import (
	"context"
	"fmt"
	"runtime"

	"github.com/utkarsh5026/qmcpool/internal/cpu"
)

// worker drains the queue assigned to workerID until it is closed.
// Tasks never stop a worker: failures and panics are delivered through the
// task's Future.
func (p *Pool[T, R]) worker(ctx context.Context, state *poolState[T, R], workerID int) error {
	if p.conf.pinWorkers {
		release := cpu.Pin(workerID)
		defer release()
	}

	for j := range state.queue.source(workerID) {
		p.execute(ctx, state, j)
	}
	return nil
}

// execute runs one job, honouring cancellation, the failure policy, rate
// limiting and hooks, and completes its Future.
func (p *Pool[T, R]) execute(ctx context.Context, state *poolState[T, R], j *job[T, R]) {
	var zero R

	if err := ctx.Err(); err != nil {
		p.cancelled.Add(1)
		j.future.complete(zero, err)
		return
	}

	if p.conf.policy == FailFast && state.failed.Load() {
		p.cancelled.Add(1)
		j.future.complete(zero, ErrCancelled)
		return
	}

	if p.conf.rateLimiter != nil {
		if err := p.conf.rateLimiter.Wait(ctx); err != nil {
			// The limiter's error doesn't wrap context errors, so check explicitly.
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			p.cancelled.Add(1)
			j.future.complete(zero, err)
			return
		}
	}

	if p.hooks.beforeTaskStart != nil {
		p.hooks.beforeTaskStart(j.task)
	}

	result, err := processWithRecovery(ctx, j.task, state.process)

	if p.hooks.onTaskEnd != nil {
		p.hooks.onTaskEnd(j.task, result, err)
	}

	if err != nil {
		p.failed.Add(1)
		state.failed.Store(true)
		debugLog("pool %s: task #%d failed: %v", p.conf.name, j.future.ID(), err)
	} else {
		p.completed.Add(1)
	}

	j.future.complete(result, err)
}

// processWithRecovery executes a task with panic recovery.
// A panic is converted to an error wrapping ErrTaskPanic, with the stack trace attached.
func processWithRecovery[T, R any](
	ctx context.Context,
	task T,
	processFn ProcessFunc[T, R],
) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("%w: %v\nstack trace:\n%s", ErrTaskPanic, r, buf[:n])
		}
	}()

	return processFn(ctx, task)
}
