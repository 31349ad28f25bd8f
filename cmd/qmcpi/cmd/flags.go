package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/qmcpool/config"
	"github.com/utkarsh5026/qmcpool/pool"
	"github.com/utkarsh5026/qmcpool/qmc"
)

// Run flags shared by run, converge and compare. They override the run file
// only when given.
var (
	flagSamples    uint64
	flagTasks      uint64
	flagWorkers    int
	flagBaseX      uint64
	flagBaseY      uint64
	flagScheduling string
	flagPin        bool
	flagRate       float64
	flagTimeout    time.Duration
)

func addRunFlags(cmd *cobra.Command, withSamples bool) {
	f := cmd.Flags()
	if withSamples {
		f.Uint64VarP(&flagSamples, "samples", "n", 0, "total samples (default 200000000)")
	}
	f.Uint64VarP(&flagTasks, "tasks", "t", 0, "task count, the remainder of samples/tasks is dropped (default 80)")
	f.IntVarP(&flagWorkers, "workers", "w", 0, "worker count (default 8)")
	f.Uint64Var(&flagBaseX, "base-x", 0, "Halton base of the first dimension (default 2)")
	f.Uint64Var(&flagBaseY, "base-y", 0, "Halton base of the second dimension (default 3)")
	f.StringVar(&flagScheduling, "scheduling", "", "queue discipline: shared or round-robin")
	f.BoolVar(&flagPin, "pin", false, "pin workers to CPU cores")
	f.Float64Var(&flagRate, "rate", 0, "limit task starts per second (0: unlimited)")
	f.DurationVar(&flagTimeout, "timeout", 0, "abort a run after this long (0: no limit)")
}

// applyRunFlags copies explicitly set flags over the run section.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	r := &cfg.Run
	if f.Changed("samples") {
		r.Samples = flagSamples
	}
	if f.Changed("tasks") {
		r.Tasks = flagTasks
	}
	if f.Changed("workers") {
		r.Workers = flagWorkers
	}
	if f.Changed("base-x") {
		r.BaseX = flagBaseX
	}
	if f.Changed("base-y") {
		r.BaseY = flagBaseY
	}
	if f.Changed("scheduling") {
		r.Scheduling = flagScheduling
	}
	if f.Changed("pin") {
		r.PinWorkers = flagPin
	}
	if f.Changed("rate") {
		r.RateLimit = flagRate
	}
	if f.Changed("timeout") {
		r.Timeout = config.Duration{Duration: flagTimeout}
	}
	return cfg.Validate()
}

// engineOptions turns the run section into engine options, adding task
// tracing when --verbose is set.
func engineOptions(r config.RunConfig) ([]qmc.EngineOption, error) {
	poolOpts, err := r.PoolOptions()
	if err != nil {
		return nil, err
	}
	if verbose {
		poolOpts = append(poolOpts,
			pool.WithBeforeTaskStart(func(t qmc.Task) {
				tracef("→ task [%d, +%d)\n", t.Start, t.Count)
			}),
			pool.WithOnTaskEnd(func(t qmc.Task, pr qmc.PartialResult, err error) {
				if err != nil {
					tracef("✗ task [%d, +%d): %v\n", t.Start, t.Count, err)
					return
				}
				tracef("← task [%d, +%d): %d inside\n", t.Start, t.Count, pr.Inside)
			}),
		)
	}

	opts := []qmc.EngineOption{qmc.WithPoolOptions(poolOpts...)}
	if r.Timeout.Duration > 0 {
		opts = append(opts, qmc.WithTimeout(r.Timeout.Duration))
	}
	return opts, nil
}
