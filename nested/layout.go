package nested

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLayout is returned for non-positive worker, permit or fan-out counts.
	ErrInvalidLayout = errors.New("nested: invalid layout")

	// ErrDeadlockRisk is returned for a layout in which waiting outer tasks
	// could occupy every worker that inner tasks need.
	ErrDeadlockRisk = errors.New("nested: layout can deadlock")
)

// Layout describes the pools and admission limit of a two-level fan-out.
type Layout struct {
	// OuterWorkers is the worker count of the pool running outer tasks.
	OuterWorkers int
	// OuterPermits bounds how many outer tasks are admitted at once.
	OuterPermits int
	// InnerWorkers is the worker count of the inner pool. Ignored when SharedPool is set.
	InnerWorkers int
	// MaxNestedPerOuter bounds how many inner tasks one outer task has queued
	// or running at a time.
	MaxNestedPerOuter int
	// SharedPool runs inner tasks on the outer pool.
	SharedPool bool
}

// Validate checks the layout. Separate pools are always safe; a shared pool
// needs OuterPermits < OuterWorkers - MaxNestedPerOuter.
func (l Layout) Validate() error {
	if l.OuterWorkers <= 0 {
		return fmt.Errorf("%w: outer workers must be positive, got %d", ErrInvalidLayout, l.OuterWorkers)
	}
	if l.OuterPermits <= 0 {
		return fmt.Errorf("%w: outer permits must be positive, got %d", ErrInvalidLayout, l.OuterPermits)
	}
	if l.MaxNestedPerOuter <= 0 {
		return fmt.Errorf("%w: nested tasks per outer task must be positive, got %d", ErrInvalidLayout, l.MaxNestedPerOuter)
	}
	if !l.SharedPool && l.InnerWorkers <= 0 {
		return fmt.Errorf("%w: inner workers must be positive, got %d", ErrInvalidLayout, l.InnerWorkers)
	}

	if l.SharedPool && l.OuterPermits >= l.OuterWorkers-l.MaxNestedPerOuter {
		return fmt.Errorf("%w: %d permits on a shared pool of %d workers with %d nested tasks per outer task (at most %d permits)",
			ErrDeadlockRisk, l.OuterPermits, l.OuterWorkers, l.MaxNestedPerOuter, l.MaxSafePermits())
	}
	return nil
}

// MaxSafePermits returns the largest OuterPermits a shared pool of this
// layout accepts, or 0 if none. Separate pools have no upper bound and
// report OuterPermits unchanged.
func (l Layout) MaxSafePermits() int {
	if !l.SharedPool {
		return l.OuterPermits
	}
	return max(l.OuterWorkers-l.MaxNestedPerOuter-1, 0)
}

// sharedBuffer is the queue depth a shared pool needs so that submitting
// never blocks a worker: every admitted outer task plus a full wave of
// inner tasks for each.
func (l Layout) sharedBuffer() int {
	return l.OuterPermits * (l.MaxNestedPerOuter + 1)
}
