package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_RequiresWorkerCount(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"no options", nil},
		{"zero workers", []Option{WithWorkerCount(0)}},
		{"negative workers", []Option{WithWorkerCount(-3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New[int, int](tt.opts...)
			if !errors.Is(err, ErrInvalidWorkerCount) {
				t.Fatalf("expected ErrInvalidWorkerCount, got %v", err)
			}
			if p != nil {
				t.Error("expected nil pool on error")
			}
		})
	}
}

func TestNew_Identity(t *testing.T) {
	a, err := New[int, int](WithWorkerCount(2), WithName("outer"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := New[int, int](WithWorkerCount(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.ID() == b.ID() {
		t.Errorf("expected distinct pool IDs, both are %d", a.ID())
	}
	if a.Name() != "outer" {
		t.Errorf("expected name 'outer', got %q", a.Name())
	}
	if b.Name() == "" {
		t.Error("expected a generated name")
	}
	if a.Workers() != 2 || b.Workers() != 3 {
		t.Errorf("unexpected worker counts %d, %d", a.Workers(), b.Workers())
	}
	if a.Policy() != CollectAll {
		t.Errorf("expected default policy CollectAll, got %s", a.Policy())
	}
	if a.Scheduling() != SchedulingShared {
		t.Errorf("expected default scheduling shared, got %s", a.Scheduling())
	}
	if a.TaskBuffer() != 2 {
		t.Errorf("expected task buffer to default to the worker count, got %d", a.TaskBuffer())
	}
}

func TestPool_Process_BasicFunctionality(t *testing.T) {
	runSchedulingTest(t, func(t *testing.T, s schedulingConfig) {
		p := startPool(t, func(ctx context.Context, task int) (int, error) {
			return task * 2, nil
		}, s.opts...)

		tasks := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		results, err := p.Process(context.Background(), tasks)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(results) != len(tasks) {
			t.Fatalf("expected %d results, got %d", len(tasks), len(results))
		}
		for i, task := range tasks {
			if results[i] != task*2 {
				t.Errorf("task %d: expected %d, got %d", i, task*2, results[i])
			}
		}
	}, 4)
}

func TestPool_Process_EmptyTasks(t *testing.T) {
	p := startPool(t, func(ctx context.Context, task int) (int, error) {
		return task, nil
	}, WithWorkerCount(2))

	results, err := p.Process(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestPool_Process_BoundedConcurrency(t *testing.T) {
	runSchedulingTest(t, func(t *testing.T, s schedulingConfig) {
		const workers = 3
		var running, peak atomic.Int32

		p := startPool(t, func(ctx context.Context, task int) (int, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return task, nil
		}, s.opts...)

		tasks := make([]int, 40)
		if _, err := p.Process(context.Background(), tasks); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := peak.Load(); got > workers {
			t.Errorf("expected at most %d concurrent tasks, saw %d", workers, got)
		}
	}, 3)
}

func TestPool_Process_ResultsIndependentOfWorkerCount(t *testing.T) {
	square := func(ctx context.Context, task int) (int, error) {
		return task * task, nil
	}

	tasks := make([]int, 200)
	for i := range tasks {
		tasks[i] = i
	}

	var baseline []int
	for _, workers := range []int{1, 2, 7, 16} {
		for _, s := range allSchedulings(workers) {
			p := startPool(t, square, s.opts...)
			results, err := p.Process(context.Background(), tasks)
			if err != nil {
				t.Fatalf("%s/%d workers: unexpected error: %v", s.name, workers, err)
			}
			if baseline == nil {
				baseline = results
				continue
			}
			for i := range results {
				if results[i] != baseline[i] {
					t.Fatalf("%s/%d workers: result %d differs: %d vs %d",
						s.name, workers, i, results[i], baseline[i])
				}
			}
		}
	}
}

func TestPool_Process_ContextCancellation(t *testing.T) {
	p := startPool(t, func(ctx context.Context, task int) (int, error) {
		time.Sleep(10 * time.Millisecond)
		return task, nil
	}, WithWorkerCount(2))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	tasks := make([]int, 100)
	_, err := p.Process(ctx, tasks)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestPool_StartContextCancelled(t *testing.T) {
	p, err := New[int, int](WithWorkerCount(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	if err := p.Start(ctx, func(ctx context.Context, task int) (int, error) {
		ran.Add(1)
		return task, nil
	}); err != nil {
		t.Fatalf("start should succeed even with cancelled context: %v", err)
	}
	defer p.Shutdown(time.Second)

	f, err := p.Submit(1)
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if _, err := f.Get(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if ran.Load() != 0 {
		t.Error("task should not run once the pool context is done")
	}
}

func TestPool_ConcurrentSubmitters(t *testing.T) {
	runSchedulingTest(t, func(t *testing.T, s schedulingConfig) {
		p := startPool(t, func(ctx context.Context, task int) (int, error) {
			return task + 1, nil
		}, s.opts...)

		const submitters, perSubmitter = 8, 50
		var wg sync.WaitGroup
		var sum atomic.Int64

		for g := range submitters {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range perSubmitter {
					f, err := p.Submit(g*perSubmitter + i)
					if err != nil {
						t.Errorf("submit failed: %v", err)
						return
					}
					v, err := f.Get()
					if err != nil {
						t.Errorf("task failed: %v", err)
						return
					}
					sum.Add(int64(v))
				}
			}()
		}
		wg.Wait()

		n := int64(submitters * perSubmitter)
		want := n * (n + 1) / 2
		if sum.Load() != want {
			t.Errorf("expected sum %d, got %d", want, sum.Load())
		}

		stats := p.Stats()
		if stats.Submitted != n || stats.Completed != n {
			t.Errorf("unexpected stats %+v", stats)
		}
	}, 4)
}
