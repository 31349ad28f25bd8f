package pool

import (
	"context"
	"testing"
	"time"
)

// schedulingConfig names a queue discipline to run a test against.
type schedulingConfig struct {
	name string
	opts []Option
}

// allSchedulings returns every scheduling discipline configured with workerCount workers.
func allSchedulings(workerCount int) []schedulingConfig {
	return []schedulingConfig{
		{
			name: "Shared",
			opts: []Option{
				WithWorkerCount(workerCount),
				WithScheduling(SchedulingShared),
			},
		},
		{
			name: "RoundRobin",
			opts: []Option{
				WithWorkerCount(workerCount),
				WithScheduling(SchedulingRoundRobin),
			},
		},
	}
}

// runSchedulingTest runs testFunc once per scheduling discipline as a subtest.
func runSchedulingTest(t *testing.T, testFunc func(t *testing.T, s schedulingConfig), workerCount int) {
	t.Helper()
	for _, s := range allSchedulings(workerCount) {
		t.Run(s.name, func(t *testing.T) {
			testFunc(t, s)
		})
	}
}

// startPool builds and starts a pool, registering Shutdown as test cleanup.
func startPool[T, R any](t *testing.T, fn ProcessFunc[T, R], opts ...Option) *Pool[T, R] {
	t.Helper()

	p, err := New[T, R](opts...)
	if err != nil {
		t.Fatalf("New: unexpected error: %v", err)
	}
	if err := p.Start(context.Background(), fn); err != nil {
		t.Fatalf("Start: unexpected error: %v", err)
	}
	t.Cleanup(func() {
		_ = p.Shutdown(5 * time.Second)
	})
	return p
}
