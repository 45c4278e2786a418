// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/internal/telemetry"
	"github.com/katalvlaran/ammroute/milp"
	"github.com/katalvlaran/ammroute/nlp"
	"github.com/katalvlaran/ammroute/solver"
	"github.com/katalvlaran/ammroute/solver/gurobicli"
	"github.com/katalvlaran/ammroute/sweep"
)

// EnvPrefix prefixes every environment override, e.g. AMMROUTE_SOLVER_BINARY.
const EnvPrefix = "AMMROUTE"

// Config holds all application configuration.
type Config struct {
	Instance  InstanceConfig  `mapstructure:"instance"`
	MILP      MILPConfig      `mapstructure:"milp"`
	NLP       NLPConfig       `mapstructure:"nlp"`
	Solver    SolverConfig    `mapstructure:"solver"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// InstanceConfig selects the network and the routing request.
type InstanceConfig struct {
	Path      string  `mapstructure:"path"`
	Format    string  `mapstructure:"format"` // yaml | csv | "" (by extension)
	Source    string  `mapstructure:"source"`
	Target    string  `mapstructure:"target"`
	Quantity  float64 `mapstructure:"quantity"`
	FeeBudget float64 `mapstructure:"fee_budget"` // < 0 means unbounded
	Valuation []Rate   `mapstructure:"valuation"`
}

// Rate values one unit of Currency in target units. It is a list entry
// rather than a map key so that currency case survives viper's key folding.
type Rate struct {
	Currency string  `mapstructure:"currency"`
	Rate     float64 `mapstructure:"rate"`
}

// GasConfig holds the gas-fee objective term.
type GasConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	G1      float64 `mapstructure:"g1"`
	G2      float64 `mapstructure:"g2"`
	Alpha   float64 `mapstructure:"alpha"`
	Beta    float64 `mapstructure:"beta"`
}

// MILPConfig holds the MILP builder switches.
type MILPConfig struct {
	Splits           int       `mapstructure:"splits"`
	BigM             float64   `mapstructure:"big_m"`
	BigMMargin       float64   `mapstructure:"big_m_margin"`
	BoundCuts        bool      `mapstructure:"bound_cuts"`
	FeeBudget        bool      `mapstructure:"fee_budget"`
	CycleElimination bool      `mapstructure:"cycle_elimination"`
	Gas              GasConfig `mapstructure:"gas"`
}

// NLPConfig holds the continuous formulation and multi-start settings.
type NLPConfig struct {
	Acyclic     bool    `mapstructure:"acyclic"`
	Starts      int     `mapstructure:"starts"`
	Seed        int64   `mapstructure:"seed"`
	Tolerance   float64 `mapstructure:"tolerance"`
	MaxIter     int     `mapstructure:"max_iter"`
	MaxCycleLen int     `mapstructure:"max_cycle_len"`
}

// SolverConfig holds the external MILP engine settings.
type SolverConfig struct {
	Binary          string        `mapstructure:"binary"`
	Gap             float64       `mapstructure:"gap"`
	TimeLimit       time.Duration `mapstructure:"time_limit"`
	Threads         int           `mapstructure:"threads"`
	Verbose         bool          `mapstructure:"verbose"`
	WorkDir         string        `mapstructure:"workdir"`
	KeepFiles       bool          `mapstructure:"keep_files"`
	WarmStart       bool          `mapstructure:"warm_start"` // seed the MILP with a lifted NLP answer
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// SweepConfig holds the comparison axes and the parallelism.
type SweepConfig struct {
	Workers int       `mapstructure:"workers"`
	Rate    float64   `mapstructure:"rate"`
	Burst   int       `mapstructure:"burst"`
	Splits  []int     `mapstructure:"splits"`
	T0      []float64 `mapstructure:"t0"`
	G1      []float64 `mapstructure:"g1"`
	G2      []float64 `mapstructure:"g2"`
	Output  string    `mapstructure:"output"` // CSV path, "" = stdout
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json | text
	File       string `mapstructure:"file"`   // rotated log file, "" = stderr only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"` // stdout | otlp | none
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	MetricsAddr string  `mapstructure:"metrics_addr"` // "" disables the /metrics listener
}

// Load loads configuration from file and environment variables.
// An empty path looks for ammroute.yaml in . and ./config; a missing file is
// not an error, an explicit path that cannot be read is.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ammroute")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Instance defaults
	v.SetDefault("instance.path", "")
	v.SetDefault("instance.format", "")
	v.SetDefault("instance.source", "")
	v.SetDefault("instance.target", "")
	v.SetDefault("instance.quantity", 0.0)
	v.SetDefault("instance.fee_budget", -1.0)
	v.SetDefault("instance.valuation", []Rate{})

	// MILP defaults
	m := milp.DefaultOptions()
	v.SetDefault("milp.splits", m.Splits)
	v.SetDefault("milp.big_m", 0.0)
	v.SetDefault("milp.big_m_margin", m.BigMMargin)
	v.SetDefault("milp.bound_cuts", m.BoundCuts)
	v.SetDefault("milp.fee_budget", m.FeeBudget)
	v.SetDefault("milp.cycle_elimination", m.CycleElimination)
	v.SetDefault("milp.gas.enabled", false)
	v.SetDefault("milp.gas.g1", m.Gas.G1)
	v.SetDefault("milp.gas.g2", m.Gas.G2)
	v.SetDefault("milp.gas.alpha", m.Gas.Alpha)
	v.SetDefault("milp.gas.beta", m.Gas.Beta)

	// NLP defaults
	n := nlp.DefaultOptions()
	v.SetDefault("nlp.acyclic", false)
	v.SetDefault("nlp.starts", 1)
	v.SetDefault("nlp.seed", 1)
	v.SetDefault("nlp.tolerance", n.Tol)
	v.SetDefault("nlp.max_iter", 0)
	v.SetDefault("nlp.max_cycle_len", n.MaxCycleLen)

	// Solver defaults
	v.SetDefault("solver.binary", gurobicli.DefaultBinary)
	v.SetDefault("solver.gap", solver.DefaultMILPOptions().Gap)
	v.SetDefault("solver.time_limit", "0s")
	v.SetDefault("solver.threads", 0)
	v.SetDefault("solver.verbose", false)
	v.SetDefault("solver.workdir", "")
	v.SetDefault("solver.keep_files", false)
	v.SetDefault("solver.warm_start", true)
	v.SetDefault("solver.breaker_failures", 3)
	v.SetDefault("solver.breaker_timeout", "30s")

	// Sweep defaults
	v.SetDefault("sweep.workers", 0)
	v.SetDefault("sweep.rate", 0.0)
	v.SetDefault("sweep.burst", 1)
	v.SetDefault("sweep.splits", []int{1, 2, 3})
	v.SetDefault("sweep.t0", []float64{})
	v.SetDefault("sweep.g1", []float64{})
	v.SetDefault("sweep.g2", []float64{})
	v.SetDefault("sweep.output", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "ammroute")
	v.SetDefault("telemetry.exporter", "stdout")
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.metrics_addr", "")
}

// Validate validates the configuration. Instance endpoints are checked by
// the commands that need them, since generate runs without an instance.
func (c *Config) Validate() error {
	for _, r := range c.Instance.Valuation {
		if r.Currency == "" {
			return fmt.Errorf("instance.valuation: entry without currency")
		}
	}
	if c.Instance.Quantity < 0 {
		return fmt.Errorf("instance.quantity must be >= 0, got %g", c.Instance.Quantity)
	}
	switch strings.ToLower(c.Instance.Format) {
	case "", "yaml", "yml", "csv":
	default:
		return fmt.Errorf("invalid instance.format: %s", c.Instance.Format)
	}
	if err := c.MILPOptions().Validate(); err != nil {
		return fmt.Errorf("milp: %w", err)
	}
	if err := c.NLPOptions().Validate(); err != nil {
		return fmt.Errorf("nlp: %w", err)
	}
	if c.NLP.Starts < 0 {
		return fmt.Errorf("nlp.starts must be >= 0, got %d", c.NLP.Starts)
	}
	if c.Solver.Binary == "" {
		return fmt.Errorf("solver.binary is required")
	}
	if c.Solver.Gap < 0 || c.Solver.TimeLimit < 0 || c.Solver.Threads < 0 {
		return fmt.Errorf("solver.gap, solver.time_limit and solver.threads must be >= 0")
	}
	if c.Sweep.Workers < 0 || c.Sweep.Rate < 0 || c.Sweep.Burst < 0 {
		return fmt.Errorf("sweep.workers, sweep.rate and sweep.burst must be >= 0")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log.format: %s", c.Log.Format)
	}
	switch c.Telemetry.Exporter {
	case telemetry.ExporterStdout, telemetry.ExporterOTLP, telemetry.ExporterNone:
	default:
		return fmt.Errorf("invalid telemetry.exporter: %s", c.Telemetry.Exporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be in [0,1], got %g", c.Telemetry.SampleRatio)
	}

	return nil
}

// MILPOptions maps the milp section onto milp.Options (no logger).
func (c *Config) MILPOptions() milp.Options {
	m := c.MILP

	return milp.Options{
		Splits:           m.Splits,
		BigM:             m.BigM,
		BigMMargin:       m.BigMMargin,
		BoundCuts:        m.BoundCuts,
		FeeBudget:        m.FeeBudget,
		CycleElimination: m.CycleElimination,
		Gas: milp.GasOptions{
			Enabled: m.Gas.Enabled,
			G1:      m.Gas.G1,
			G2:      m.Gas.G2,
			Alpha:   m.Gas.Alpha,
			Beta:    m.Gas.Beta,
		},
	}
}

// NLPOptions maps the nlp section onto nlp.Options (no logger). The big-M
// settings are shared with the milp section.
func (c *Config) NLPOptions() nlp.Options {
	return nlp.Options{
		Acyclic:     c.NLP.Acyclic,
		BigM:        c.MILP.BigM,
		BigMMargin:  c.MILP.BigMMargin,
		MaxCycleLen: c.NLP.MaxCycleLen,
		Tol:         c.NLP.Tolerance,
		MaxIter:     c.NLP.MaxIter,
	}
}

// SolveOptions maps the solver section onto one MILP solve.
func (c *Config) SolveOptions() solver.MILPOptions {
	return solver.MILPOptions{
		Gap:       c.Solver.Gap,
		TimeLimit: c.Solver.TimeLimit,
		Threads:   c.Solver.Threads,
		Verbose:   c.Solver.Verbose,
	}
}

// Gurobi maps the solver section onto the gurobi_cl adapter (no logger).
func (c *Config) Gurobi() gurobicli.Config {
	return gurobicli.Config{
		Binary:          c.Solver.Binary,
		WorkDir:         c.Solver.WorkDir,
		KeepFiles:       c.Solver.KeepFiles,
		BreakerFailures: c.Solver.BreakerFailures,
		BreakerTimeout:  c.Solver.BreakerTimeout,
	}
}

// Valuation returns the configured rates keyed by currency, nil when none.
func (c *Config) Valuation() map[exchange.Currency]float64 {
	if len(c.Instance.Valuation) == 0 {
		return nil
	}
	out := make(map[exchange.Currency]float64, len(c.Instance.Valuation))
	for _, r := range c.Instance.Valuation {
		out[exchange.Currency(r.Currency)] = r.Rate
	}

	return out
}

// TelemetrySetup maps the telemetry section onto telemetry.Setup; the
// metrics listener address is read by the caller.
func (c *Config) TelemetrySetup() telemetry.Config {
	t := c.Telemetry

	return telemetry.Config{
		Enabled:     t.Enabled,
		ServiceName: t.ServiceName,
		Exporter:    t.Exporter,
		Endpoint:    t.Endpoint,
		Insecure:    t.Insecure,
		SampleRatio: t.SampleRatio,
	}
}

// SweepAxes returns the configured comparison axes.
func (c *Config) SweepAxes() sweep.Axes {
	return sweep.Axes{Splits: c.Sweep.Splits, T0: c.Sweep.T0, G1: c.Sweep.G1, G2: c.Sweep.G2}
}

// SweepOptions returns the sweep parallelism (no logger).
func (c *Config) SweepOptions() sweep.Options {
	return sweep.Options{Workers: c.Sweep.Workers, Rate: c.Sweep.Rate, Burst: c.Sweep.Burst}
}
