// Package config loads qmcpi run files. A run file is TOML or YAML, chosen
// by extension, and only needs the keys that differ from Default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/utkarsh5026/qmcpool/nested"
	"github.com/utkarsh5026/qmcpool/pool"
	"github.com/utkarsh5026/qmcpool/qmc"
)

// ErrInvalid is returned for values that cannot describe a run.
var ErrInvalid = errors.New("config: invalid value")

// Format is the encoding of a run file.
type Format int

const (
	// FormatTOML is the default format.
	FormatTOML Format = iota
	// FormatYAML covers .yaml and .yml files.
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// Config holds everything the qmcpi commands read from a run file.
type Config struct {
	Run     RunConfig     `toml:"run" yaml:"run"`
	Sweep   SweepConfig   `toml:"sweep" yaml:"sweep"`
	Compare CompareConfig `toml:"compare" yaml:"compare"`
	Nested  NestedConfig  `toml:"nested" yaml:"nested"`
}

// RunConfig describes one integration run.
type RunConfig struct {
	Samples    uint64   `toml:"samples" yaml:"samples"`
	Tasks      uint64   `toml:"tasks" yaml:"tasks"`
	Workers    int      `toml:"workers" yaml:"workers"`
	BaseX      uint64   `toml:"base_x" yaml:"base_x"`
	BaseY      uint64   `toml:"base_y" yaml:"base_y"`
	Scheduling string   `toml:"scheduling" yaml:"scheduling"`
	PinWorkers bool     `toml:"pin_workers" yaml:"pin_workers"`
	RateLimit  float64  `toml:"rate_limit" yaml:"rate_limit"` // task starts per second, 0 disables
	RateBurst  int      `toml:"rate_burst" yaml:"rate_burst"`
	Timeout    Duration `toml:"timeout" yaml:"timeout"`
}

// SweepConfig describes a convergence sweep: Steps sample sizes starting at
// First, each Factor times the previous one.
type SweepConfig struct {
	First  uint64 `toml:"first" yaml:"first"`
	Factor uint64 `toml:"factor" yaml:"factor"`
	Steps  int    `toml:"steps" yaml:"steps"`
}

// CompareConfig configures the pseudo-random baseline.
type CompareConfig struct {
	Seed uint64 `toml:"seed" yaml:"seed"`
}

// NestedConfig describes the nested fan-out demonstration.
type NestedConfig struct {
	OuterTasks        int      `toml:"outer_tasks" yaml:"outer_tasks"`
	InnerTasks        int      `toml:"inner_tasks" yaml:"inner_tasks"`
	OuterPermits      int      `toml:"outer_permits" yaml:"outer_permits"`
	OuterWorkers      int      `toml:"outer_workers" yaml:"outer_workers"`
	InnerWorkers      int      `toml:"inner_workers" yaml:"inner_workers"`
	MaxNestedPerOuter int      `toml:"max_nested_per_outer" yaml:"max_nested_per_outer"` // 0 means InnerTasks
	SharedPool        bool     `toml:"shared_pool" yaml:"shared_pool"`
	InnerDuration     Duration `toml:"inner_duration" yaml:"inner_duration"`
}

// Duration wraps time.Duration so run files can say "10ms".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration of the reference experiment:
// 200,000,000 samples in 80 tasks on 8 workers over Halton bases 2 and 3,
// and a 20×100 nested fan-out with 5 permits.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Samples:    200_000_000,
			Tasks:      80,
			Workers:    8,
			BaseX:      2,
			BaseY:      3,
			Scheduling: pool.SchedulingShared.String(),
		},
		Sweep: SweepConfig{
			First:  10_000,
			Factor: 10,
			Steps:  4,
		},
		Compare: CompareConfig{
			Seed: 1,
		},
		Nested: NestedConfig{
			OuterTasks:    20,
			InnerTasks:    100,
			OuterPermits:  5,
			OuterWorkers:  5,
			InnerWorkers:  10,
			InnerDuration: Duration{10 * time.Millisecond},
		},
	}
}

// Load reads path over Default. The format follows the extension; anything
// other than .yaml or .yml is read as TOML.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	format := DetectFormat(path)
	cfg, err := Parse(content, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes content in the given format over Default and validates it.
func Parse(content []byte, format Format) (*Config, error) {
	cfg := Default()

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("TOML parse error: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DetectFormat determines the format from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Validate checks every section. Run values are checked again, more
// strictly, by qmc.NewEngine and nested.Layout.Validate.
func (c *Config) Validate() error {
	if _, err := ParseScheduling(c.Run.Scheduling); err != nil {
		return err
	}
	if c.Run.RateLimit < 0 || c.Run.RateBurst < 0 {
		return fmt.Errorf("%w: rate limit %v with burst %d", ErrInvalid, c.Run.RateLimit, c.Run.RateBurst)
	}
	if c.Run.Timeout.Duration < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalid, c.Run.Timeout)
	}
	if c.Sweep.First == 0 || c.Sweep.Factor < 2 || c.Sweep.Steps <= 0 {
		return fmt.Errorf("%w: sweep needs first > 0, factor >= 2 and steps > 0, got %d, %d, %d",
			ErrInvalid, c.Sweep.First, c.Sweep.Factor, c.Sweep.Steps)
	}
	if c.Nested.OuterTasks < 0 || c.Nested.InnerTasks < 0 {
		return fmt.Errorf("%w: negative nested task count", ErrInvalid)
	}
	if c.Nested.InnerDuration.Duration < 0 {
		return fmt.Errorf("%w: negative inner duration %s", ErrInvalid, c.Nested.InnerDuration)
	}
	return nil
}

// ParseScheduling maps a scheduling name to its pool value. The empty
// string selects the shared queue.
func ParseScheduling(name string) (pool.Scheduling, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", pool.SchedulingShared.String():
		return pool.SchedulingShared, nil
	case pool.SchedulingRoundRobin.String(), "roundrobin":
		return pool.SchedulingRoundRobin, nil
	default:
		return 0, fmt.Errorf("%w: unknown scheduling %q", ErrInvalid, name)
	}
}

// Engine returns the qmc configuration of the run section.
func (r RunConfig) Engine() qmc.Config {
	return qmc.Config{
		TotalSamples: r.Samples,
		TaskCount:    r.Tasks,
		WorkerCount:  r.Workers,
		BaseX:        r.BaseX,
		BaseY:        r.BaseY,
	}
}

// PoolOptions returns the pool options the run section asks for.
func (r RunConfig) PoolOptions() ([]pool.Option, error) {
	sched, err := ParseScheduling(r.Scheduling)
	if err != nil {
		return nil, err
	}

	opts := []pool.Option{pool.WithScheduling(sched)}
	if r.PinWorkers {
		opts = append(opts, pool.WithCPUPinning())
	}
	if r.RateLimit > 0 {
		opts = append(opts, pool.WithRateLimit(r.RateLimit, max(r.RateBurst, 1)))
	}
	return opts, nil
}

// Sizes returns the sample sizes of the sweep.
func (s SweepConfig) Sizes() []uint64 {
	return qmc.GeometricSizes(s.First, s.Factor, s.Steps)
}

// Layout returns the nested layout. MaxNestedPerOuter falls back to
// InnerTasks when unset.
func (n NestedConfig) Layout() nested.Layout {
	perOuter := n.MaxNestedPerOuter
	if perOuter == 0 {
		perOuter = n.InnerTasks
	}
	return nested.Layout{
		OuterWorkers:      n.OuterWorkers,
		OuterPermits:      n.OuterPermits,
		InnerWorkers:      n.InnerWorkers,
		MaxNestedPerOuter: perOuter,
		SharedPool:        n.SharedPool,
	}
}
