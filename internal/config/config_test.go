package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/internal/config"
	"github.com/katalvlaran/ammroute/internal/telemetry"
	"github.com/katalvlaran/ammroute/milp"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, -1.0, cfg.Instance.FeeBudget)
	assert.Equal(t, milp.DefaultOptions(), cfg.MILPOptions())
	assert.Equal(t, "gurobi_cl", cfg.Solver.Binary)
	assert.Equal(t, 30*time.Second, cfg.Solver.BreakerTimeout)
	assert.Equal(t, time.Duration(0), cfg.Solver.TimeLimit)
	assert.Equal(t, []int{1, 2, 3}, cfg.Sweep.Splits)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Nil(t, cfg.Valuation())
	assert.Equal(t, 1e-8, cfg.NLPOptions().Tol)
	assert.Equal(t, 4, cfg.NLPOptions().MaxCycleLen)
	assert.Equal(t, 1e-4, cfg.SolveOptions().Gap)
	assert.Equal(t, telemetry.Config{
		ServiceName: "ammroute",
		Exporter:    telemetry.ExporterStdout,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		SampleRatio: 1,
	}, cfg.TelemetrySetup())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
instance:
  path: data/pools.csv
  source: UNI
  target: USDT
  quantity: 1000
  valuation:
    - {currency: ETH, rate: 2500}
    - {currency: USDT, rate: 1}
milp:
  splits: 2
  gas:
    enabled: true
    g1: 40
solver:
  time_limit: 90s
sweep:
  g2: [0, 0.001, 0.002]
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("AMMROUTE_MILP_SPLITS", "3")
	t.Setenv("AMMROUTE_SOLVER_BINARY", "/opt/gurobi/bin/gurobi_cl")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "UNI", cfg.Instance.Source)
	assert.Equal(t, 1000.0, cfg.Instance.Quantity)
	assert.Equal(t, map[exchange.Currency]float64{"ETH": 2500, "USDT": 1}, cfg.Valuation())
	assert.Equal(t, 3, cfg.MILP.Splits, "env wins over file")
	assert.True(t, cfg.MILP.Gas.Enabled)
	assert.Equal(t, 40.0, cfg.MILP.Gas.G1)
	assert.Equal(t, float64(milp.DefaultG2), cfg.MILP.Gas.G2)
	assert.Equal(t, 90*time.Second, cfg.SolveOptions().TimeLimit)
	assert.Equal(t, "/opt/gurobi/bin/gurobi_cl", cfg.Gurobi().Binary)
	assert.Equal(t, []float64{0, 0.001, 0.002}, cfg.SweepAxes().G2)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"splits":     "milp:\n  splits: 0\n",
		"format":     "instance:\n  format: xml\n",
		"log format": "log:\n  format: xml\n",
		"exporter":   "telemetry:\n  exporter: zipkin\n",
		"ratio":      "telemetry:\n  sample_ratio: 2\n",
		"starts":     "nlp:\n  starts: -1\n",
		"workers":    "sweep:\n  workers: -2\n",
		"margin":     "milp:\n  big_m_margin: -0.5\n",
		"syntax":     "milp: [\n",
		"valuation":  "instance:\n  valuation:\n    - {rate: 2}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
			_, err := config.Load(path)
			require.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
