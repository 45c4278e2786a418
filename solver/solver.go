// Package solver defines the contracts between the routing model builders and
// the engines that solve their programs.
//
// MILPSolver receives an immutable *model.Model and returns a status, the
// objective and one value per variable. NLPSolver minimizes a smooth objective
// under equality (h(x) = 0) and inequality (g(x) >= 0) constraints given as
// value/Jacobian pairs, within box bounds.
//
// Adapters report engine trouble (binary missing, process crash) as errors and
// every engine verdict, including infeasible, as a Status. Turning a
// non-optimal status into a failure is the caller's decision.
package solver

import (
	"context"
	"math"
	"time"

	"github.com/katalvlaran/ammroute/matrix"
	"github.com/katalvlaran/ammroute/model"
)

// Status is the engine verdict of a MILP solve.
type Status int

const (
	// StatusOther covers every verdict not listed below (interrupted, numeric trouble, ...).
	StatusOther Status = iota
	// StatusOptimal means an optimal solution within the gap tolerance was found.
	StatusOptimal
	// StatusInfeasible means the engine proved that no feasible solution exists.
	StatusInfeasible
	// StatusTimeLimit means the time limit stopped the search.
	StatusTimeLimit
)

// String returns a lower-case status label for logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimeLimit:
		return "time_limit"
	default:
		return "other"
	}
}

// MILPOptions configures one MILP solve.
type MILPOptions struct {
	Gap       float64       // relative optimality gap tolerance
	TimeLimit time.Duration // 0 means no limit
	Threads   int           // 0 lets the engine decide
	Verbose   bool          // forward the engine log
	Start     []float64     // optional MIP start, one value per variable
}

// DefaultMILPOptions returns a 1e-4 gap without limits.
func DefaultMILPOptions() MILPOptions {
	return MILPOptions{Gap: 1e-4}
}

// MILPSolution is the engine answer.
type MILPSolution struct {
	Status    Status
	Message   string
	Objective float64
	Values    []float64 // set when optimal, or on a time limit with an incumbent
	Runtime   time.Duration
}

// MILPSolver solves mixed-integer programs with bilinear rows.
type MILPSolver interface {
	SolveMILP(ctx context.Context, m *model.Model, opts MILPOptions) (*MILPSolution, error)
}

// Func is a scalar function of x.
type Func func(x []float64) float64

// GradFunc returns ∇f(x).
type GradFunc func(x []float64) []float64

// VecFunc returns a residual vector.
type VecFunc func(x []float64) []float64

// JacFunc returns the Jacobian of a VecFunc, rows × len(x).
type JacFunc func(x []float64) (*matrix.Dense, error)

// Constraint pairs a residual function with its exact Jacobian.
type Constraint struct {
	Name string
	Fun  VecFunc
	Jac  JacFunc
}

// Bound is a closed interval; infinities are allowed.
type Bound struct {
	Lower float64
	Upper float64
}

// Free is the unbounded interval.
var Free = Bound{Lower: math.Inf(-1), Upper: math.Inf(1)}

// Clamp projects v into b.
func (b Bound) Clamp(v float64) float64 {
	return math.Min(math.Max(v, b.Lower), b.Upper)
}

// NLPProblem is one local minimization from X0.
// Eq rows must vanish, Ineq rows must be non-negative.
type NLPProblem struct {
	Objective Func
	Gradient  GradFunc
	X0        []float64
	Eq        []Constraint
	Ineq      []Constraint
	Bounds    []Bound // empty means Free everywhere
	Tol       float64
	MaxIter   int // 0 lets the solver pick
}

// NLPResult is the outcome of a local minimization.
type NLPResult struct {
	Success    bool
	Message    string
	X          []float64
	Objective  float64
	Iterations int
}

// NLPSolver runs one local minimization.
type NLPSolver interface {
	Minimize(ctx context.Context, p NLPProblem) (*NLPResult, error)
}
