package pool

import (
	"context"
	"errors"
)

// Process submits every task, then awaits every handle, and returns the
// results in submission order. It is the batch form of Submit plus Get.
//
// All tasks are awaited even when some fail. The returned error is a
// *TaskError for the lowest-index task that failed on its own; tasks skipped
// under FailFast are reported only when no real failure exists. If ctx ends
// first, the context error is returned.
//
// Example:
//
//	results, err := p.Process(ctx, []int{1, 2, 3})
func (p *Pool[T, R]) Process(ctx context.Context, tasks []T) ([]R, error) {
	if len(tasks) == 0 {
		return []R{}, nil
	}

	futures := make([]*Future[R], 0, len(tasks))
	for _, task := range tasks {
		f, err := p.SubmitContext(ctx, task)
		if err != nil {
			return nil, err
		}
		futures = append(futures, f)
	}

	results := make([]R, len(tasks))
	var firstErr, firstCancel error

	for i, f := range futures {
		v, err := f.GetWithContext(ctx)
		if err == nil {
			results[i] = v
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return results, ctxErr
		}

		te := &TaskError{Pool: p.conf.name, Index: i, Err: err}
		if errors.Is(err, ErrCancelled) {
			if firstCancel == nil {
				firstCancel = te
			}
			continue
		}
		if firstErr == nil {
			firstErr = te
		}
	}

	if firstErr != nil {
		return results, firstErr
	}
	if firstCancel != nil {
		return results, firstCancel
	}
	return results, nil
}
