package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/qmcpool/qmc"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Estimate π once",
	Long: `Splits the sample budget into equal tasks, counts Halton points inside
the unit disc on a bounded pool and folds the counts.

Examples:
  qmcpi run
  qmcpi run -n 2000000 -t 20 -w 8
  qmcpi run --config run.toml --scheduling round-robin`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd, true)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	opts, err := engineOptions(cfg.Run)
	if err != nil {
		return err
	}

	engine, err := qmc.NewEngine(cfg.Run.Engine(), opts...)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runID := newRunID()
	out := printer()
	out.Section("QUASI-MONTE-CARLO π",
		fmt.Sprintf("Halton(%d, %d) points in [-1,1]², counted strictly inside the unit disc", cfg.Run.BaseX, cfg.Run.BaseY))

	res, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	if err := out.Result(runID, res); err != nil {
		return err
	}

	if res.AbsError <= res.TheoreticalOrder {
		out.Success("error %.3e is within (ln n)²/n = %.3e", res.AbsError, res.TheoreticalOrder)
	} else {
		out.Warn("error %.3e exceeds (ln n)²/n = %.3e", res.AbsError, res.TheoreticalOrder)
	}
	return nil
}
