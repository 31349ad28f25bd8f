package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/utkarsh5026/qmcpool/config"
	"github.com/utkarsh5026/qmcpool/internal/report"
)

// configEnv names the run file when --config is not given.
const configEnv = "QMCPI_CONFIG"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "qmcpi",
	Short: "Deterministic parallel quasi-Monte-Carlo integration",
	Long: `qmcpi estimates π by counting Halton points inside the unit disc,
spread over a bounded worker pool.

For a fixed sample count, task count and pair of bases the estimate is
bit-for-bit identical whatever the worker count or scheduling.

Commands:
  run       - one integration run
  converge  - error against (ln n)²/n over growing sample counts
  compare   - Halton points against a pseudo-random baseline
  nested    - two-level fan-out under a deadlock-free layout
  version   - build information`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "run file, TOML or YAML (default: $"+configEnv+" or built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "trace every task on stderr")
}

// loadConfig reads the run file if one is named, or returns the defaults.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// signalContext is cancelled on interrupt so running pools drain.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRunID() string {
	return uuid.New().String()
}

func printer() *report.Printer {
	return report.New(os.Stdout)
}

func printError(err error) {
	_, _ = report.Red.Fprintf(os.Stderr, "Error: %v\n", err)
}

func tracef(format string, a ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, a...)
	}
}
