// Package gurobicli solves models with the gurobi_cl command-line tool.
//
// Each solve writes the model in LP format (and an optional MIP start) to a
// private temporary directory, runs
//
//	gurobi_cl NonConvex=2 MIPGap=... [TimeLimit=...] [Threads=...] ResultFile=model.sol LogFile=gurobi.log [InputFile=start.mst] model.lp
//
// and reads the verdict from the log and the values from the result file.
// NonConvex=2 is required because the AMM rows are bilinear equalities.
//
// Process failures (missing binary, crash, unreadable output) go through a
// circuit breaker shared by every solve of the Solver.
// Engine verdicts such as "infeasible" are not failures.
package gurobicli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/ammroute/model"
	"github.com/katalvlaran/ammroute/solver"
)

// DefaultBinary is the executable looked up on PATH when Config.Binary is empty.
const DefaultBinary = "gurobi_cl"

var (
	// ErrEngineFailed wraps a non-zero exit or missing binary.
	ErrEngineFailed = errors.New("gurobicli: engine failed")

	// ErrBreakerOpen is returned while the circuit breaker rejects calls.
	ErrBreakerOpen = errors.New("gurobicli: circuit breaker open")
)

// Config configures the adapter.
type Config struct {
	Binary    string       // executable, DefaultBinary when empty
	WorkDir   string       // parent of the per-solve directories, os.TempDir() when empty
	KeepFiles bool         // keep the per-solve directory for inspection
	Logger    *slog.Logger // nil discards

	// Breaker trips after this many consecutive process failures (default 3)
	// and stays open for BreakerTimeout (default 30s).
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Solver implements solver.MILPSolver on top of gurobi_cl.
type Solver struct {
	cfg    Config
	log    *slog.Logger
	tracer trace.Tracer
	cb     *gobreaker.CircuitBreaker[[]byte]
}

var _ solver.MILPSolver = (*Solver)(nil)

// New returns an adapter. It does not check that the binary exists; the
// first solve reports that.
func New(cfg Config) *Solver {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	s := &Solver{
		cfg:    cfg,
		log:    log,
		tracer: otel.Tracer("github.com/katalvlaran/ammroute/solver/gurobicli"),
	}
	s.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "gurobi_cl",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
		// cancellation is the caller's doing, not an engine fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	return s
}

// SolveMILP writes m, runs the engine and parses its answer.
func (s *Solver) SolveMILP(ctx context.Context, m *model.Model, opts solver.MILPOptions) (*solver.MILPSolution, error) {
	ctx, span := s.tracer.Start(ctx, "gurobicli.solve",
		trace.WithAttributes(
			attribute.String("model", m.Name()),
			attribute.Int("vars", m.NumVars()),
			attribute.Int("constraints", m.NumConstraints()),
		),
	)
	defer span.End()

	sol, err := s.solve(ctx, m, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "solve failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("status", sol.Status.String()))
	span.SetStatus(codes.Ok, sol.Status.String())

	return sol, nil
}

func (s *Solver) solve(ctx context.Context, m *model.Model, opts solver.MILPOptions) (*solver.MILPSolution, error) {
	// 1) Private working directory
	dir, err := os.MkdirTemp(s.cfg.WorkDir, "ammroute-gurobi-*")
	if err != nil {
		return nil, fmt.Errorf("gurobicli: workdir: %w", err)
	}
	if s.cfg.KeepFiles {
		s.log.Info("keeping solver files", "dir", dir)
	} else {
		defer os.RemoveAll(dir)
	}

	// 2) Model and optional start
	lpPath := filepath.Join(dir, "model.lp")
	if err = writeFile(lpPath, m.WriteLP); err != nil {
		return nil, err
	}
	var startPath string
	if opts.Start != nil {
		startPath = filepath.Join(dir, "start.mst")
		err = writeFile(startPath, func(w io.Writer) error { return m.WriteMST(w, opts.Start) })
		if err != nil {
			return nil, err
		}
	}

	// 3) Run the engine behind the breaker
	solPath := filepath.Join(dir, "model.sol")
	args := Args(opts, solPath, filepath.Join(dir, "gurobi.log"), startPath, lpPath)
	s.log.Debug("running engine", "binary", s.cfg.Binary, "args", strings.Join(args, " "))

	started := time.Now()
	out, err := s.cb.Execute(func() ([]byte, error) {
		cmd := exec.CommandContext(ctx, s.cfg.Binary, args...)
		cmd.Dir = dir
		out, runErr := cmd.CombinedOutput()
		if runErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %v: %s", ErrEngineFailed, runErr, lastLines(out, 5))
		}
		return out, nil
	})
	runtime := time.Since(started)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %v", ErrBreakerOpen, err)
	case err != nil:
		return nil, err
	}
	if opts.Verbose {
		s.log.Info("engine log", "output", string(out))
	}

	// 4) Verdict and values
	status, msg := ParseStatus(out)
	res := &solver.MILPSolution{Status: status, Message: msg, Runtime: runtime}
	if status != solver.StatusOptimal && status != solver.StatusTimeLimit {
		return res, nil
	}

	f, err := os.Open(solPath)
	if err != nil {
		if status == solver.StatusTimeLimit && errors.Is(err, os.ErrNotExist) {
			// time limit without an incumbent
			return res, nil
		}
		return nil, fmt.Errorf("gurobicli: result file: %w", err)
	}
	defer f.Close()

	parsed, err := m.ParseSolution(f)
	if err != nil {
		return nil, fmt.Errorf("gurobicli: result file: %w", err)
	}
	res.Values = parsed.Values
	if parsed.HasObjective {
		res.Objective = parsed.Objective
	} else if res.Objective, err = m.ObjectiveValue(parsed.Values); err != nil {
		return nil, err
	}

	return res, nil
}

// Args builds the gurobi_cl command line. startPath may be empty.
func Args(opts solver.MILPOptions, solPath, logPath, startPath, lpPath string) []string {
	gap := opts.Gap
	if gap <= 0 {
		gap = solver.DefaultMILPOptions().Gap
	}
	args := []string{
		"NonConvex=2",
		fmt.Sprintf("MIPGap=%g", gap),
	}
	if opts.TimeLimit > 0 {
		args = append(args, fmt.Sprintf("TimeLimit=%g", opts.TimeLimit.Seconds()))
	}
	if opts.Threads > 0 {
		args = append(args, fmt.Sprintf("Threads=%d", opts.Threads))
	}
	args = append(args, "ResultFile="+solPath, "LogFile="+logPath)
	if startPath != "" {
		args = append(args, "InputFile="+startPath)
	}

	return append(args, lpPath)
}

// ParseStatus maps the engine log to a status and the matching log line.
// The last recognized line wins.
func ParseStatus(log []byte) (solver.Status, string) {
	status, msg := solver.StatusOther, "no verdict in engine log"
	for _, line := range strings.Split(string(log), "\n") {
		line = strings.TrimSpace(line)
		low := strings.ToLower(line)
		switch {
		case strings.HasPrefix(low, "optimal solution found"):
			status, msg = solver.StatusOptimal, line
		case strings.HasPrefix(low, "model is infeasible"),
			strings.HasPrefix(low, "infeasible model"):
			status, msg = solver.StatusInfeasible, line
		case strings.HasPrefix(low, "time limit reached"):
			status, msg = solver.StatusTimeLimit, line
		case strings.HasPrefix(low, "model is unbounded"),
			strings.HasPrefix(low, "solve interrupted"),
			strings.HasPrefix(low, "numerical trouble"):
			status, msg = solver.StatusOther, line
		}
	}

	return status, msg
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gurobicli: %w", err)
	}
	if err = write(f); err != nil {
		f.Close()
		return fmt.Errorf("gurobicli: write %s: %w", filepath.Base(path), err)
	}

	return f.Close()
}

func lastLines(out []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(bytes.ToValidUTF8(out, nil))), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	return strings.Join(lines, " | ")
}
