// Package report renders qmcpi results as terminal tables.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/utkarsh5026/qmcpool/nested"
	"github.com/utkarsh5026/qmcpool/pool"
	"github.com/utkarsh5026/qmcpool/qmc"
)

var (
	Bold   = color.New(color.Bold)
	Green  = color.New(color.FgGreen)
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Cyan   = color.New(color.FgCyan)
)

const rule = "═══════════════════════════════════════════════════════════"

// Printer writes sections and tables to one writer.
type Printer struct {
	out io.Writer
}

// New returns a printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Section prints a bold title between rules, followed by description lines.
func (p *Printer) Section(title string, lines ...string) {
	fmt.Fprintln(p.out)
	_, _ = Bold.Fprintln(p.out, rule)
	_, _ = Bold.Fprintln(p.out, title)
	_, _ = Bold.Fprintln(p.out, rule)
	for _, l := range lines {
		fmt.Fprintln(p.out, l)
	}
	fmt.Fprintln(p.out)
}

// Success prints a green status line.
func (p *Printer) Success(format string, a ...any) {
	_, _ = Green.Fprintf(p.out, "✅ "+format+"\n", a...)
}

// Warn prints a yellow status line.
func (p *Printer) Warn(format string, a ...any) {
	_, _ = Yellow.Fprintf(p.out, "⚠️  "+format+"\n", a...)
}

// Failure prints a red status line.
func (p *Printer) Failure(format string, a ...any) {
	_, _ = Red.Fprintf(p.out, "❌ "+format+"\n", a...)
}

// Result renders a single run.
func (p *Printer) Result(runID string, res qmc.AggregateResult) error {
	table := tablewriter.NewWriter(p.out)
	table.Header("Metric", "Value")

	rows := [][]string{
		{"Run", runID},
		{"Estimate", fmt.Sprintf("%.10f", res.Estimate)},
		{"π", fmt.Sprintf("%.10f", math.Pi)},
		{"Abs error", FormatFloat(res.AbsError)},
		{"(ln n)²/n", FormatFloat(res.TheoreticalOrder)},
		{"Samples", FormatCount(res.TotalSamples)},
		{"Dropped", FormatCount(res.Requested - res.TotalSamples)},
		{"Inside", FormatCount(res.Inside)},
		{"Tasks × workers", fmt.Sprintf("%d × %d", res.Tasks, res.Workers)},
		{"Task spread (σ)", FormatFloat(res.Spread.StdDev)},
		{"Elapsed", res.Elapsed.Round(time.Millisecond).String()},
	}
	for _, r := range rows {
		if err := table.Append(r[0], r[1]); err != nil {
			return err
		}
	}
	return table.Render()
}

// Convergence renders a sweep, one row per sample size, and the fitted slope.
func (p *Printer) Convergence(rep qmc.ConvergenceReport) error {
	table := tablewriter.NewWriter(p.out)
	table.Header("n", "Estimate", "Abs error", "(ln n)²/n", "Ratio", "Elapsed")

	for _, pt := range rep.Points {
		r := pt.Result
		if err := table.Append(
			FormatCount(r.TotalSamples),
			fmt.Sprintf("%.10f", r.Estimate),
			FormatFloat(r.AbsError),
			FormatFloat(r.TheoreticalOrder),
			ratioCell(pt.Ratio),
			r.Elapsed.Round(time.Millisecond).String(),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(p.out)
	if math.IsNaN(rep.Slope) {
		p.Warn("not enough non-zero errors to fit a slope")
		return nil
	}
	fmt.Fprintf(p.out, "log-log error slope: %s (plain Monte-Carlo: -0.5)\n", Cyan.Sprintf("%.3f", rep.Slope))
	return nil
}

// Comparison is one row of a point-source comparison.
type Comparison struct {
	Source string
	Result qmc.AggregateResult
}

// Comparisons renders point sources side by side at equal sample counts.
func (p *Printer) Comparisons(rows []Comparison) error {
	table := tablewriter.NewWriter(p.out)
	table.Header("Source", "n", "Estimate", "Abs error", "Ratio to (ln n)²/n", "Elapsed")

	for _, c := range rows {
		r := c.Result
		if err := table.Append(
			c.Source,
			FormatCount(r.TotalSamples),
			fmt.Sprintf("%.10f", r.Estimate),
			FormatFloat(r.AbsError),
			ratioCell(r.AbsError/r.TheoreticalOrder),
			r.Elapsed.Round(time.Millisecond).String(),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// NestedSummary describes one nested fan-out run.
type NestedSummary struct {
	RunID         string
	Layout        nested.Layout
	OuterTasks    int
	InnerTasks    int
	InnerDuration time.Duration
	Elapsed       time.Duration
	Outer         pool.Stats
	Inner         pool.Stats
}

// Nested renders a nested fan-out run.
func (p *Printer) Nested(s NestedSummary) error {
	mode := "separate pools"
	if s.Layout.SharedPool {
		mode = "shared pool"
	}
	serial := time.Duration(s.OuterTasks*s.InnerTasks) * s.InnerDuration

	table := tablewriter.NewWriter(p.out)
	table.Header("Metric", "Value")

	rows := [][]string{
		{"Run", s.RunID},
		{"Layout", mode},
		{"Outer workers / permits", fmt.Sprintf("%d / %d", s.Layout.OuterWorkers, s.Layout.OuterPermits)},
		{"Inner workers", innerWorkers(s.Layout)},
		{"Nested per outer", fmt.Sprintf("%d", s.Layout.MaxNestedPerOuter)},
		{"Tasks", fmt.Sprintf("%d × %d", s.OuterTasks, s.InnerTasks)},
		{"Outer completed / failed", fmt.Sprintf("%d / %d", s.Outer.Completed, s.Outer.Failed)},
		{"Inner completed / failed", fmt.Sprintf("%d / %d", s.Inner.Completed, s.Inner.Failed)},
		{"Serial work", serial.String()},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
	}
	if s.Elapsed > 0 {
		rows = append(rows, []string{"Speedup", fmt.Sprintf("%.1fx", float64(serial)/float64(s.Elapsed))})
	}

	for _, r := range rows {
		if err := table.Append(r[0], r[1]); err != nil {
			return err
		}
	}
	return table.Render()
}

func innerWorkers(l nested.Layout) string {
	if l.SharedPool {
		return "(shared)"
	}
	return fmt.Sprintf("%d", l.InnerWorkers)
}

func ratioCell(r float64) string {
	s := fmt.Sprintf("%.3f", r)
	if r < 1 {
		return Green.Sprint(s)
	}
	return Yellow.Sprint(s)
}

// NewProgress returns a progress bar on out for total steps.
func NewProgress(total int, description string, out io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(out),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// FormatCount formats n with thousands separators.
func FormatCount(n uint64) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// FormatFloat prints small magnitudes in scientific notation.
func FormatFloat(v float64) string {
	if v != 0 && math.Abs(v) < 1e-3 {
		return fmt.Sprintf("%.3e", v)
	}
	return fmt.Sprintf("%.6f", v)
}
