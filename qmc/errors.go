package qmc

import "errors"

var (
	// ErrInvalidConfiguration reports non-positive counts, non-prime or
	// repeated bases, or a partition that would leave tasks empty. Nothing
	// is dispatched when it is returned.
	ErrInvalidConfiguration = errors.New("qmc: invalid configuration")

	// ErrWorkerFailure wraps the first task failure of a run, reported after
	// all in-flight tasks have finished.
	ErrWorkerFailure = errors.New("qmc: worker failure")

	// ErrOverflow reports index or count arithmetic that would exceed uint64.
	ErrOverflow = errors.New("qmc: index overflow")
)
