package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/qmcpool/internal/report"
	"github.com/utkarsh5026/qmcpool/qmc"
)

var (
	convergeFirst  uint64
	convergeFactor uint64
	convergeSteps  int
)

var convergeCmd = &cobra.Command{
	Use:   "converge",
	Short: "Compare the error with (ln n)²/n over growing sample counts",
	Long: `Runs the integration for a geometric series of sample counts and fits
the slope of ln(error) against ln(n). Plain Monte-Carlo sits at -0.5.

Examples:
  qmcpi converge
  qmcpi converge --first 1000 --factor 4 --steps 8`,
	Args: cobra.NoArgs,
	RunE: runConverge,
}

func init() {
	rootCmd.AddCommand(convergeCmd)
	addRunFlags(convergeCmd, false)

	convergeCmd.Flags().Uint64Var(&convergeFirst, "first", 0, "smallest sample count (default 10000)")
	convergeCmd.Flags().Uint64Var(&convergeFactor, "factor", 0, "growth factor between steps (default 10)")
	convergeCmd.Flags().IntVar(&convergeSteps, "steps", 0, "number of sample counts (default 4)")
}

func runConverge(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("first") {
		cfg.Sweep.First = convergeFirst
	}
	if f.Changed("factor") {
		cfg.Sweep.Factor = convergeFactor
	}
	if f.Changed("steps") {
		cfg.Sweep.Steps = convergeSteps
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	opts, err := engineOptions(cfg.Run)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sizes := cfg.Sweep.Sizes()
	out := printer()
	out.Section("CONVERGENCE",
		fmt.Sprintf("%d runs, %d tasks on %d workers each", len(sizes), cfg.Run.Tasks, cfg.Run.Workers),
		"Ratio is the absolute error divided by (ln n)²/n; below 1 beats the bound")

	bar := report.NewProgress(len(sizes), "Sweeping", os.Stderr)
	rep, err := qmc.Sweep(ctx, cfg.Run.Engine(), sizes, func(pt qmc.ConvergencePoint) {
		_ = bar.Add(1)
		tracef("n=%d estimate=%.10f\n", pt.Result.TotalSamples, pt.Result.Estimate)
	}, opts...)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	return out.Convergence(rep)
}
