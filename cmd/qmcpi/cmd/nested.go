package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/qmcpool/config"
	"github.com/utkarsh5026/qmcpool/internal/report"
	"github.com/utkarsh5026/qmcpool/nested"
)

var (
	nestedOuterTasks    int
	nestedInnerTasks    int
	nestedPermits       int
	nestedOuterWorkers  int
	nestedInnerWorkers  int
	nestedMaxPerOuter   int
	nestedShared        bool
	nestedInnerDuration time.Duration
)

var nestedCmd = &cobra.Command{
	Use:   "nested",
	Short: "Run a two-level fan-out without deadlocking",
	Long: `Runs outer tasks that each fan out inner tasks and wait for them.
Outer tasks are admitted through a semaphore before they reach a worker.

With separate pools (the default) any layout is safe. With --shared the
inner tasks run on the outer pool, and layouts where waiting outer tasks
could starve the inner work are refused before anything runs.

Examples:
  qmcpi nested
  qmcpi nested --outer-tasks 20 --inner-tasks 100 --permits 5
  qmcpi nested --shared --outer-workers 12 --permits 3 --max-nested 8`,
	Args: cobra.NoArgs,
	RunE: runNested,
}

func init() {
	rootCmd.AddCommand(nestedCmd)

	f := nestedCmd.Flags()
	f.IntVar(&nestedOuterTasks, "outer-tasks", 0, "outer task count (default 20)")
	f.IntVar(&nestedInnerTasks, "inner-tasks", 0, "inner tasks per outer task (default 100)")
	f.IntVar(&nestedPermits, "permits", 0, "outer tasks admitted at once (default 5)")
	f.IntVar(&nestedOuterWorkers, "outer-workers", 0, "outer pool workers (default 5)")
	f.IntVar(&nestedInnerWorkers, "inner-workers", 0, "inner pool workers (default 10)")
	f.IntVar(&nestedMaxPerOuter, "max-nested", 0, "inner tasks one outer task has in flight (default: inner task count)")
	f.BoolVar(&nestedShared, "shared", false, "run inner tasks on the outer pool")
	f.DurationVar(&nestedInnerDuration, "inner-duration", 0, "simulated work per inner task (default 10ms)")
}

func applyNestedFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	n := &cfg.Nested
	if f.Changed("outer-tasks") {
		n.OuterTasks = nestedOuterTasks
	}
	if f.Changed("inner-tasks") {
		n.InnerTasks = nestedInnerTasks
	}
	if f.Changed("permits") {
		n.OuterPermits = nestedPermits
	}
	if f.Changed("outer-workers") {
		n.OuterWorkers = nestedOuterWorkers
	}
	if f.Changed("inner-workers") {
		n.InnerWorkers = nestedInnerWorkers
	}
	if f.Changed("max-nested") {
		n.MaxNestedPerOuter = nestedMaxPerOuter
	}
	if f.Changed("shared") {
		n.SharedPool = nestedShared
	}
	if f.Changed("inner-duration") {
		n.InnerDuration = config.Duration{Duration: nestedInnerDuration}
	}
	return cfg.Validate()
}

func runNested(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyNestedFlags(cmd, cfg); err != nil {
		return err
	}

	out := printer()
	layout := cfg.Nested.Layout()
	runner, err := nested.NewRunner(layout)
	if errors.Is(err, nested.ErrDeadlockRisk) {
		out.Failure("refusing layout: %v", err)
		if safe := layout.MaxSafePermits(); safe > 0 {
			out.Warn("use --permits %d or fewer, more --outer-workers, or separate pools", safe)
		} else {
			out.Warn("add --outer-workers or use separate pools")
		}
		return err
	}
	if err != nil {
		return err
	}
	defer runner.Close()

	ctx, cancel := signalContext()
	defer cancel()

	runID := newRunID()
	out.Section("NESTED FAN-OUT",
		fmt.Sprintf("%d outer tasks × %d inner tasks of %s each", cfg.Nested.OuterTasks, cfg.Nested.InnerTasks, cfg.Nested.InnerDuration))

	work := cfg.Nested.InnerDuration.Duration
	tasks := nested.Fanout(cfg.Nested.OuterTasks, cfg.Nested.InnerTasks, func(ctx context.Context, o, i int) error {
		tracef("outer %d inner %d\n", o, i)
		timer := time.NewTimer(work)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	start := time.Now()
	if err := runner.Run(ctx, tasks); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	elapsed := time.Since(start)

	outerStats, innerStats := runner.Stats()
	if err := out.Nested(report.NestedSummary{
		RunID:         runID,
		Layout:        layout,
		OuterTasks:    cfg.Nested.OuterTasks,
		InnerTasks:    cfg.Nested.InnerTasks,
		InnerDuration: work,
		Elapsed:       elapsed,
		Outer:         outerStats,
		Inner:         innerStats,
	}); err != nil {
		return err
	}

	out.Success("all %d inner tasks finished", cfg.Nested.OuterTasks*cfg.Nested.InnerTasks)
	return nil
}
