package nested

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/utkarsh5026/qmcpool/pool"
)

// peak tracks the highest value a concurrent counter reached.
type peak struct {
	cur, max atomic.Int64
}

func (p *peak) enter() {
	n := p.cur.Add(1)
	for {
		m := p.max.Load()
		if n <= m || p.max.CompareAndSwap(m, n) {
			return
		}
	}
}

func (p *peak) leave() {
	p.cur.Add(-1)
}

func newRunner(t *testing.T, layout Layout) *Runner {
	t.Helper()
	r, err := NewRunner(layout)
	if err != nil {
		t.Fatalf("NewRunner: unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Errorf("Close: unexpected error: %v", err)
		}
	})
	return r
}

// runWithin runs tasks and fails the test if Run has not returned after budget.
func runWithin(t *testing.T, r *Runner, tasks []OuterTask, budget time.Duration) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx, tasks) }()

	select {
	case err := <-errc:
		return err
	case <-time.After(budget + time.Second):
		t.Fatalf("Run did not return within %v", budget)
		return nil
	}
}

func TestRunner_SeparatePoolsComplete(t *testing.T) {
	layout := Layout{OuterWorkers: 5, OuterPermits: 5, InnerWorkers: 10, MaxNestedPerOuter: 100}
	r := newRunner(t, layout)

	var done atomic.Int64
	tasks := Fanout(20, 100, func(ctx context.Context, _, _ int) error {
		select {
		case <-time.After(time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
		done.Add(1)
		return nil
	})

	if err := runWithin(t, r, tasks, 20*time.Second); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	if n := done.Load(); n != 2000 {
		t.Errorf("expected 2000 inner tasks, got %d", n)
	}

	outer, inner := r.Stats()
	if outer.Completed != 20 || inner.Completed != 2000 {
		t.Errorf("unexpected stats: outer %+v, inner %+v", outer, inner)
	}
}

func TestRunner_SharedPoolComplete(t *testing.T) {
	layout := Layout{OuterWorkers: 8, OuterPermits: 3, MaxNestedPerOuter: 4, SharedPool: true}
	r := newRunner(t, layout)

	var outerPeak peak
	var done atomic.Int64

	tasks := make([]OuterTask, 12)
	for o := range tasks {
		tasks[o] = func(ctx context.Context, in *Inner) error {
			outerPeak.enter()
			defer outerPeak.leave()

			inner := make([]InnerTask, 10)
			for i := range inner {
				inner[i] = func(context.Context) error {
					time.Sleep(time.Millisecond)
					done.Add(1)
					return nil
				}
			}
			return in.Go(ctx, inner...)
		}
	}

	if err := runWithin(t, r, tasks, 20*time.Second); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	if n := done.Load(); n != 120 {
		t.Errorf("expected 120 inner tasks, got %d", n)
	}
	if m := outerPeak.max.Load(); m > 3 {
		t.Errorf("admitted %d outer tasks at once, permits are 3", m)
	}

	outer, inner := r.Stats()
	if outer != inner {
		t.Errorf("shared layout should report one pool, got %+v and %+v", outer, inner)
	}
}

func TestRunner_AdmissionAndWaveLimits(t *testing.T) {
	layout := Layout{OuterWorkers: 6, OuterPermits: 2, InnerWorkers: 16, MaxNestedPerOuter: 3}
	r := newRunner(t, layout)

	var outerPeak peak
	perOuter := make([]peak, 8)

	tasks := make([]OuterTask, len(perOuter))
	for o := range tasks {
		tasks[o] = func(ctx context.Context, in *Inner) error {
			outerPeak.enter()
			defer outerPeak.leave()

			inner := make([]InnerTask, 10)
			for i := range inner {
				inner[i] = func(context.Context) error {
					perOuter[o].enter()
					defer perOuter[o].leave()
					time.Sleep(2 * time.Millisecond)
					return nil
				}
			}
			return in.Go(ctx, inner...)
		}
	}

	if err := r.Run(context.Background(), tasks); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	if m := outerPeak.max.Load(); m > 2 {
		t.Errorf("admitted %d outer tasks at once, permits are 2", m)
	}
	for o := range perOuter {
		if m := perOuter[o].max.Load(); m > 3 {
			t.Errorf("outer task %d had %d inner tasks running, limit is 3", o, m)
		}
	}
}

func TestRunner_UnsafeSharedLayoutRejected(t *testing.T) {
	_, err := NewRunner(Layout{OuterWorkers: 10, OuterPermits: 5, MaxNestedPerOuter: 100, SharedPool: true})
	if !errors.Is(err, ErrDeadlockRisk) {
		t.Errorf("expected ErrDeadlockRisk, got %v", err)
	}
}

// TestSharedPoolWithoutGuard shows the hazard the Runner exists for: outer
// tasks that wait on inner work queued to their own, fully occupied pool
// never see that work run.
func TestSharedPoolWithoutGuard(t *testing.T) {
	p, err := pool.New[Work, struct{}](pool.WithWorkerCount(2), pool.WithTaskBuffer(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Start(context.Background(), pool.Invoke[struct{}]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Both outer tasks must occupy a worker before either queues inner work.
	var started sync.WaitGroup
	started.Add(2)

	outer := func(context.Context) (struct{}, error) {
		started.Done()
		started.Wait()

		f, err := p.SubmitContext(ctx, func(context.Context) (struct{}, error) {
			return struct{}{}, nil
		})
		if err != nil {
			return struct{}{}, err
		}
		return f.GetWithContext(ctx)
	}

	futures := make([]*pool.Future[struct{}], 2)
	for i := range futures {
		if futures[i], err = p.Submit(outer); err != nil {
			t.Fatalf("Submit: unexpected error: %v", err)
		}
	}

	for i, f := range futures {
		if _, err := f.Get(); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("outer task %d: expected the wait to time out, got %v", i, err)
		}
	}

	layout := Layout{OuterWorkers: 2, OuterPermits: 2, MaxNestedPerOuter: 1, SharedPool: true}
	if !errors.Is(layout.Validate(), ErrDeadlockRisk) {
		t.Error("expected the guard to reject this layout")
	}
}

func TestRunner_ReportsLowestIndexFailure(t *testing.T) {
	r := newRunner(t, Layout{OuterWorkers: 3, OuterPermits: 3, InnerWorkers: 4, MaxNestedPerOuter: 4})

	errBroken := errors.New("broken")
	var ran atomic.Int64

	tasks := Fanout(6, 5, func(_ context.Context, o, i int) error {
		ran.Add(1)
		if (o == 4 && i == 0) || (o == 2 && i == 3) {
			return errBroken
		}
		return nil
	})

	err := r.Run(context.Background(), tasks)
	if !errors.Is(err, errBroken) {
		t.Fatalf("expected errBroken in the chain, got %v", err)
	}

	var te *pool.TaskError
	if !errors.As(err, &te) {
		t.Fatalf("expected *pool.TaskError, got %T", err)
	}
	if te.Index != 2 {
		t.Errorf("expected outer task 2 to be reported, got %d", te.Index)
	}

	var innerErr *pool.TaskError
	if !errors.As(te.Err, &innerErr) || innerErr.Index != 3 {
		t.Errorf("expected inner task 3 to be reported, got %v", te.Err)
	}

	if n := ran.Load(); n != 30 {
		t.Errorf("expected every inner task to run, got %d", n)
	}
}

func TestRunner_RunStopsWaitingAtDeadline(t *testing.T) {
	r := newRunner(t, Layout{OuterWorkers: 2, OuterPermits: 1, InnerWorkers: 2, MaxNestedPerOuter: 2})

	release := make(chan struct{})
	defer close(release)

	tasks := []OuterTask{func(context.Context, *Inner) error {
		<-release
		return nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := r.Run(ctx, tasks); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run waited %v past its deadline", elapsed)
	}
}

func TestInner_GoStopsWaitingAtDeadline(t *testing.T) {
	r := newRunner(t, Layout{OuterWorkers: 2, OuterPermits: 1, InnerWorkers: 2, MaxNestedPerOuter: 2})

	release := make(chan struct{})
	defer close(release)

	goErr := make(chan error, 1)
	tasks := []OuterTask{func(ctx context.Context, in *Inner) error {
		err := in.Go(ctx, func(context.Context) error {
			<-release
			return nil
		})
		goErr <- err
		return err
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := r.Run(ctx, tasks); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run: expected context.DeadlineExceeded, got %v", err)
	}
	select {
	case err := <-goErr:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Go: expected context.DeadlineExceeded, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Go kept waiting after the deadline")
	}
}

func TestRunner_CancelledBeforeRun(t *testing.T) {
	r := newRunner(t, Layout{OuterWorkers: 1, OuterPermits: 1, InnerWorkers: 1, MaxNestedPerOuter: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int64
	tasks := Fanout(3, 3, func(context.Context, int, int) error {
		ran.Add(1)
		return nil
	})

	if err := r.Run(ctx, tasks); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if n := ran.Load(); n != 0 {
		t.Errorf("expected no work to run, got %d", n)
	}
}

func TestRunner_PanickingOuterReleasesPermit(t *testing.T) {
	r := newRunner(t, Layout{OuterWorkers: 1, OuterPermits: 1, InnerWorkers: 1, MaxNestedPerOuter: 1})

	var ran atomic.Int64
	tasks := []OuterTask{
		func(context.Context, *Inner) error { panic("outer exploded") },
		func(context.Context, *Inner) error { ran.Add(1); return nil },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := r.Run(ctx, tasks)
	if !errors.Is(err, pool.ErrTaskPanic) {
		t.Errorf("expected ErrTaskPanic, got %v", err)
	}
	if ran.Load() != 1 {
		t.Error("expected the second task to be admitted after the panic")
	}
}

func TestNewRunnerWithPools(t *testing.T) {
	start := func(t *testing.T, opts ...pool.Option) *Pool {
		t.Helper()
		p, err := pool.New[Work, struct{}](opts...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := p.Start(context.Background(), pool.Invoke[struct{}]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		t.Cleanup(func() { _ = p.Shutdown(5 * time.Second) })
		return p
	}

	separate := Layout{OuterWorkers: 2, OuterPermits: 2, InnerWorkers: 4, MaxNestedPerOuter: 2}
	shared := Layout{OuterWorkers: 6, OuterPermits: 2, MaxNestedPerOuter: 2, SharedPool: true}

	t.Run("separate pools", func(t *testing.T) {
		outer := start(t, pool.WithWorkerCount(2))
		inner := start(t, pool.WithWorkerCount(4))

		r, err := NewRunnerWithPools(separate, outer, inner)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var ran atomic.Int64
		err = r.Run(context.Background(), Fanout(4, 4, func(context.Context, int, int) error {
			ran.Add(1)
			return nil
		}))
		if err != nil || ran.Load() != 16 {
			t.Errorf("expected 16 inner tasks and no error, got %d and %v", ran.Load(), err)
		}
		if err := r.Close(); err != nil {
			t.Errorf("Close: unexpected error: %v", err)
		}
		if _, err := outer.Submit(func(context.Context) (struct{}, error) { return struct{}{}, nil }); err != nil {
			t.Errorf("Close must leave caller pools running, got %v", err)
		}
	})

	t.Run("same pool under separate layout", func(t *testing.T) {
		p := start(t, pool.WithWorkerCount(2))
		if _, err := NewRunnerWithPools(separate, p, p); !errors.Is(err, ErrDeadlockRisk) {
			t.Errorf("expected ErrDeadlockRisk, got %v", err)
		}
	})

	t.Run("distinct pools under shared layout", func(t *testing.T) {
		a := start(t, pool.WithWorkerCount(6))
		b := start(t, pool.WithWorkerCount(6))
		if _, err := NewRunnerWithPools(shared, a, b); !errors.Is(err, ErrInvalidLayout) {
			t.Errorf("expected ErrInvalidLayout, got %v", err)
		}
	})

	t.Run("worker count mismatch", func(t *testing.T) {
		outer := start(t, pool.WithWorkerCount(3))
		inner := start(t, pool.WithWorkerCount(4))
		if _, err := NewRunnerWithPools(separate, outer, inner); !errors.Is(err, ErrInvalidLayout) {
			t.Errorf("expected ErrInvalidLayout, got %v", err)
		}
	})

	t.Run("shared pool with round-robin scheduling", func(t *testing.T) {
		p := start(t, pool.WithWorkerCount(6), pool.WithTaskBuffer(64), pool.WithScheduling(pool.SchedulingRoundRobin))
		if _, err := NewRunnerWithPools(shared, p, p); !errors.Is(err, ErrDeadlockRisk) {
			t.Errorf("expected ErrDeadlockRisk, got %v", err)
		}
	})

	t.Run("shared pool with a short queue", func(t *testing.T) {
		p := start(t, pool.WithWorkerCount(6), pool.WithTaskBuffer(2))
		if _, err := NewRunnerWithPools(shared, p, p); !errors.Is(err, ErrDeadlockRisk) {
			t.Errorf("expected ErrDeadlockRisk, got %v", err)
		}
	})

	t.Run("shared pool", func(t *testing.T) {
		p := start(t, pool.WithWorkerCount(6), pool.WithTaskBuffer(6))
		r, err := NewRunnerWithPools(shared, p, p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := r.Run(context.Background(), Fanout(5, 5, func(context.Context, int, int) error { return nil })); err != nil {
			t.Errorf("Run: unexpected error: %v", err)
		}
	})

	t.Run("nil pool", func(t *testing.T) {
		p := start(t, pool.WithWorkerCount(2))
		if _, err := NewRunnerWithPools(separate, p, nil); !errors.Is(err, ErrInvalidLayout) {
			t.Errorf("expected ErrInvalidLayout, got %v", err)
		}
	})
}

func TestRunner_CloseIdempotent(t *testing.T) {
	r, err := NewRunner(Layout{OuterWorkers: 1, OuterPermits: 1, InnerWorkers: 1, MaxNestedPerOuter: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close: unexpected error: %v", err)
	}
}
