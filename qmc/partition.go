package qmc

import (
	"fmt"
	"math/bits"
)

// Task is a contiguous slice [Start, Start+Count) of the index space.
type Task struct {
	Start SampleIndex
	Count uint64
}

// End returns the first index after the task. It fails with ErrOverflow when
// the range does not fit in a SampleIndex.
func (t Task) End() (SampleIndex, error) {
	end, carry := bits.Add64(t.Start, t.Count, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: task [%d, +%d) exceeds the index range", ErrOverflow, t.Start, t.Count)
	}
	return end, nil
}

// RemainderPolicy says what happens to samples that do not divide evenly
// across tasks.
type RemainderPolicy int

const (
	// RemainderDrop leaves the last total%tasks samples out of the run. The
	// effective sample count is reported so error orders use the true n.
	RemainderDrop RemainderPolicy = iota
)

// Plan is the output of Partition.
type Plan struct {
	Tasks     []Task
	Requested uint64
	Effective uint64 // samples actually covered by Tasks
	Dropped   uint64 // Requested - Effective
	Policy    RemainderPolicy
}

// Partition splits totalSamples into taskCount tasks of equal size
// floor(totalSamples/taskCount); task i starts at i*size. The remainder is
// dropped (RemainderDrop), so Effective can be below Requested.
//
// The tasks are pairwise disjoint and cover exactly [0, Effective).
func Partition(totalSamples, taskCount uint64) (Plan, error) {
	if totalSamples == 0 {
		return Plan{}, fmt.Errorf("%w: total samples must be positive", ErrInvalidConfiguration)
	}
	if taskCount == 0 {
		return Plan{}, fmt.Errorf("%w: task count must be positive", ErrInvalidConfiguration)
	}

	size := totalSamples / taskCount
	if size == 0 {
		return Plan{}, fmt.Errorf("%w: %d tasks leave no samples per task out of %d",
			ErrInvalidConfiguration, taskCount, totalSamples)
	}

	tasks := make([]Task, taskCount)
	for i := range tasks {
		hi, start := bits.Mul64(uint64(i), size)
		if hi != 0 {
			return Plan{}, fmt.Errorf("%w: start of task %d", ErrOverflow, i)
		}
		tasks[i] = Task{Start: start, Count: size}
		if _, err := tasks[i].End(); err != nil {
			return Plan{}, err
		}
	}

	effective := size * taskCount
	return Plan{
		Tasks:     tasks,
		Requested: totalSamples,
		Effective: effective,
		Dropped:   totalSamples - effective,
		Policy:    RemainderDrop,
	}, nil
}
