package benchmarks

import (
	"github.com/utkarsh5026/qmcpool/pool"
	"github.com/utkarsh5026/qmcpool/qmc"
)

// schedulingConfig defines a benchmark configuration for a queue discipline
type schedulingConfig struct {
	name string
	opts []pool.Option
}

// allSchedulings returns every queue discipline, with and without CPU pinning
func allSchedulings() []schedulingConfig {
	return []schedulingConfig{
		{
			name: "Shared",
			opts: []pool.Option{pool.WithScheduling(pool.SchedulingShared)},
		},
		{
			name: "RoundRobin",
			opts: []pool.Option{pool.WithScheduling(pool.SchedulingRoundRobin)},
		},
		{
			name: "Shared_Pinned",
			opts: []pool.Option{pool.WithScheduling(pool.SchedulingShared), pool.WithCPUPinning()},
		},
	}
}

// engineConfig returns a Halton(2,3) run of samples points
func engineConfig(samples, tasks uint64, workers int) qmc.Config {
	return qmc.Config{
		TotalSamples: samples,
		TaskCount:    tasks,
		WorkerCount:  workers,
		BaseX:        2,
		BaseY:        3,
	}
}
