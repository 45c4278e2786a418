package gurobicli_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ammroute/model"
	"github.com/katalvlaran/ammroute/solver"
	"github.com/katalvlaran/ammroute/solver/gurobicli"
)

// fakeEngine writes an executable shell script standing in for gurobi_cl.
// The script records its arguments in $FAKE_ARGS and, when a ResultFile is
// requested, writes sol to it before printing verdict.
func fakeEngine(t *testing.T, verdict, sol string, exit int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine")
	}
	dir := t.TempDir()
	script := `#!/bin/sh
echo "$@" > "$FAKE_ARGS"
for a in "$@"; do
  case "$a" in
    ResultFile=*) sol="${a#ResultFile=}" ;;
    InputFile=*) cat "${a#InputFile=}" >> "$FAKE_ARGS" ;;
  esac
done
if [ -n "` + sol + `" ] && [ -n "$sol" ]; then
  printf '` + sol + `' > "$sol"
fi
echo "Gurobi Optimizer (fake)"
echo "` + verdict + `"
exit ` + string(rune('0'+exit)) + `
`
	path := filepath.Join(dir, "gurobi_cl")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("FAKE_ARGS", filepath.Join(dir, "args.txt"))

	return path
}

func tinyModel(t *testing.T) *model.Model {
	t.Helper()
	b := model.NewBuilder("tiny")
	x := b.AddVar("x", model.Continuous, 0, 10)
	y := b.AddVar("y", model.Binary, 0, 1)
	b.AddConstraint("cap", model.Lin(model.T(1, x), model.T(1, y)), model.LessEq, 5)
	b.SetObjective(model.Lin(model.T(1, x), model.T(1, y)), model.Maximize)
	m, err := b.Build()
	require.NoError(t, err)

	return m
}

func TestOptimalSolve(t *testing.T) {
	bin := fakeEngine(t, "Optimal solution found (tolerance 1.00e-04)", `# Objective value = 5\nx 4\ny 1\n`, 0)
	s := gurobicli.New(gurobicli.Config{Binary: bin})

	opts := solver.DefaultMILPOptions()
	opts.TimeLimit = 90 * time.Second
	opts.Threads = 2
	opts.Start = []float64{1, 0}
	sol, err := s.SolveMILP(context.Background(), tinyModel(t), opts)
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, sol.Status)
	require.Equal(t, []float64{4, 1}, sol.Values)
	require.Equal(t, 5.0, sol.Objective)
	require.Contains(t, sol.Message, "Optimal solution found")

	args, err := os.ReadFile(os.Getenv("FAKE_ARGS"))
	require.NoError(t, err)
	for _, want := range []string{"NonConvex=2", "MIPGap=0.0001", "TimeLimit=90", "Threads=2", "model.lp", "# MIP start", "x 1"} {
		require.Contains(t, string(args), want)
	}
}

func TestObjectiveRecomputedWithoutHeader(t *testing.T) {
	bin := fakeEngine(t, "Optimal solution found", `x 3\ny 1\n`, 0)
	sol, err := gurobicli.New(gurobicli.Config{Binary: bin}).
		SolveMILP(context.Background(), tinyModel(t), solver.DefaultMILPOptions())
	require.NoError(t, err)
	require.Equal(t, 4.0, sol.Objective)
}

func TestInfeasibleIsAStatus(t *testing.T) {
	bin := fakeEngine(t, "Model is infeasible", "", 0)
	sol, err := gurobicli.New(gurobicli.Config{Binary: bin}).
		SolveMILP(context.Background(), tinyModel(t), solver.DefaultMILPOptions())
	require.NoError(t, err)
	require.Equal(t, solver.StatusInfeasible, sol.Status)
	require.Nil(t, sol.Values)
}

func TestTimeLimitWithoutIncumbent(t *testing.T) {
	bin := fakeEngine(t, "Time limit reached", "", 0)
	sol, err := gurobicli.New(gurobicli.Config{Binary: bin}).
		SolveMILP(context.Background(), tinyModel(t), solver.DefaultMILPOptions())
	require.NoError(t, err)
	require.Equal(t, solver.StatusTimeLimit, sol.Status)
	require.Nil(t, sol.Values)
}

func TestFailuresTripTheBreaker(t *testing.T) {
	bin := fakeEngine(t, "license expired", "", 1)
	s := gurobicli.New(gurobicli.Config{Binary: bin, BreakerFailures: 2, BreakerTimeout: time.Minute})
	m := tinyModel(t)

	for range 2 {
		_, err := s.SolveMILP(context.Background(), m, solver.DefaultMILPOptions())
		require.ErrorIs(t, err, gurobicli.ErrEngineFailed)
		require.Contains(t, err.Error(), "license expired")
	}
	_, err := s.SolveMILP(context.Background(), m, solver.DefaultMILPOptions())
	require.ErrorIs(t, err, gurobicli.ErrBreakerOpen)
}

func TestMissingBinary(t *testing.T) {
	s := gurobicli.New(gurobicli.Config{Binary: filepath.Join(t.TempDir(), "nope")})
	_, err := s.SolveMILP(context.Background(), tinyModel(t), solver.DefaultMILPOptions())
	require.ErrorIs(t, err, gurobicli.ErrEngineFailed)
}

func TestKeepFiles(t *testing.T) {
	bin := fakeEngine(t, "Optimal solution found", `x 0\ny 0\n`, 0)
	work := t.TempDir()
	_, err := gurobicli.New(gurobicli.Config{Binary: bin, WorkDir: work, KeepFiles: true}).
		SolveMILP(context.Background(), tinyModel(t), solver.DefaultMILPOptions())
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(work, "ammroute-gurobi-*", "model.lp"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	lp, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(lp), "\\"), "LP files start with a comment line")
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		log  string
		want solver.Status
	}{
		{"Explored 1 nodes\nOptimal solution found (tolerance 1.00e-04)\nBest objective 5", solver.StatusOptimal},
		{"Model is infeasible\n", solver.StatusInfeasible},
		{"Infeasible model", solver.StatusInfeasible},
		{"Time limit reached\nBest objective 3", solver.StatusTimeLimit},
		{"Model is unbounded", solver.StatusOther},
		{"", solver.StatusOther},
	}
	for _, tc := range cases {
		got, _ := gurobicli.ParseStatus([]byte(tc.log))
		require.Equal(t, tc.want, got, tc.log)
	}
}

func TestArgs(t *testing.T) {
	args := gurobicli.Args(solver.MILPOptions{}, "r.sol", "g.log", "", "m.lp")
	require.Equal(t, []string{"NonConvex=2", "MIPGap=0.0001", "ResultFile=r.sol", "LogFile=g.log", "m.lp"}, args)
}
