// Package auglag is a small local NLP solver: an augmented Lagrangian outer
// loop around a projected-gradient inner loop with backtracking.
//
// It is a local method: on the non-convex AMM rows it converges to a KKT
// point near the start, so callers run it from several starting points.
//
// For min f(x) s.t. h(x) = 0, g(x) >= 0, l <= x <= u the inner loop minimizes
//
//	L(x) = f(x) + Σ λᵢhᵢ + μ/2 Σ hᵢ² + 1/(2μ) Σ (max(0, νⱼ - μgⱼ)² - νⱼ²)
//
// over the box, then multipliers move by λ += μh, ν = max(0, ν - μg) and the
// penalty μ grows whenever infeasibility did not shrink fast enough.
package auglag

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/ammroute/matrix"
	"github.com/katalvlaran/ammroute/solver"
)

// ErrBadProblem is returned for malformed problems (missing functions, size mismatches).
var ErrBadProblem = errors.New("auglag: invalid problem")

// Options tunes the solver. Zero fields take defaults.
type Options struct {
	Penalty       float64 // initial μ, default 10
	PenaltyGrowth float64 // μ multiplier on slow progress, default 10
	MaxPenalty    float64 // cap for μ, default 1e8
	MaxOuter      int     // outer iterations, default 60
	MaxInner      int     // inner iterations per outer step, default 5000
}

// DefaultOptions returns the defaults used by New.
func DefaultOptions() Options {
	return Options{
		Penalty:       10,
		PenaltyGrowth: 10,
		MaxPenalty:    1e8,
		MaxOuter:      60,
		MaxInner:      5000,
	}
}

// Solver implements solver.NLPSolver.
type Solver struct {
	opts Options
}

var _ solver.NLPSolver = (*Solver)(nil)

// New returns a solver with opts merged over DefaultOptions.
func New(opts Options) *Solver {
	d := DefaultOptions()
	if opts.Penalty > 0 {
		d.Penalty = opts.Penalty
	}
	if opts.PenaltyGrowth > 1 {
		d.PenaltyGrowth = opts.PenaltyGrowth
	}
	if opts.MaxPenalty > 0 {
		d.MaxPenalty = opts.MaxPenalty
	}
	if opts.MaxOuter > 0 {
		d.MaxOuter = opts.MaxOuter
	}
	if opts.MaxInner > 0 {
		d.MaxInner = opts.MaxInner
	}

	return &Solver{opts: d}
}

// state is the evaluation context of one Minimize call.
type state struct {
	p      solver.NLPProblem
	bounds []solver.Bound
	lambda []float64 // equality multipliers
	nu     []float64 // inequality multipliers, >= 0
	mu     float64
}

// Minimize runs the method from p.X0.
// A run that stops on the iteration cap returns Success=false with the last
// iterate; only malformed input and cancellation produce errors.
func (s *Solver) Minimize(ctx context.Context, p solver.NLPProblem) (*solver.NLPResult, error) {
	// 1) Validate and normalize the problem
	n := len(p.X0)
	if p.Objective == nil || p.Gradient == nil || n == 0 {
		return nil, fmt.Errorf("%w: objective, gradient and start are required", ErrBadProblem)
	}
	bounds := p.Bounds
	if len(bounds) == 0 {
		bounds = make([]solver.Bound, n)
		for i := range bounds {
			bounds[i] = solver.Free
		}
	}
	if len(bounds) != n {
		return nil, fmt.Errorf("%w: %d bounds for %d variables", ErrBadProblem, len(bounds), n)
	}
	tol := p.Tol
	if tol <= 0 {
		tol = 1e-8
	}
	maxOuter := s.opts.MaxOuter
	if p.MaxIter > 0 {
		maxOuter = p.MaxIter
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = bounds[i].Clamp(p.X0[i])
	}
	st := &state{p: p, bounds: bounds, mu: s.opts.Penalty}
	h := evalAll(p.Eq, x)
	g := evalAll(p.Ineq, x)
	st.lambda = make([]float64, len(h))
	st.nu = make([]float64, len(g))

	// 2) Outer loop
	prevInfeas := math.Inf(1)
	iters := 0
	for outer := 0; outer < maxOuter; outer++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			stationarity float64
			inner        int
			err          error
		)
		x, stationarity, inner, err = st.innerSolve(ctx, x, tol, s.opts.MaxInner)
		iters += inner
		if err != nil {
			return nil, err
		}

		// 3) Multiplier and penalty updates
		h = evalAll(p.Eq, x)
		g = evalAll(p.Ineq, x)
		infeas := 0.0
		for i, hi := range h {
			st.lambda[i] += st.mu * hi
			infeas = math.Max(infeas, math.Abs(hi))
		}
		for j, gj := range g {
			st.nu[j] = math.Max(0, st.nu[j]-st.mu*gj)
			infeas = math.Max(infeas, math.Max(0, -gj))
		}

		if infeas <= tol && stationarity <= tol {
			return &solver.NLPResult{
				Success:    true,
				Message:    fmt.Sprintf("converged after %d outer iterations", outer+1),
				X:          x,
				Objective:  p.Objective(x),
				Iterations: iters,
			}, nil
		}
		if infeas > 0.25*prevInfeas {
			st.mu = math.Min(st.mu*s.opts.PenaltyGrowth, s.opts.MaxPenalty)
		}
		prevInfeas = infeas
	}

	return &solver.NLPResult{
		Success:    false,
		Message:    fmt.Sprintf("iteration limit reached (infeasibility %.3g)", prevInfeas),
		X:          x,
		Objective:  p.Objective(x),
		Iterations: iters,
	}, nil
}

// innerSolve minimizes L over the box by projected gradient with backtracking.
// It returns the iterate, the final projected-gradient norm and the iteration count.
func (st *state) innerSolve(ctx context.Context, x []float64, tol float64, maxInner int) ([]float64, float64, int, error) {
	n := len(x)
	step := 1.0
	trial := make([]float64, n)

	val, grad, err := st.lagrangian(x)
	if err != nil {
		return nil, 0, 0, err
	}

	var k int
	for k = 0; k < maxInner; k++ {
		if k%100 == 0 {
			if err = ctx.Err(); err != nil {
				return nil, 0, k, err
			}
		}

		// 1) Stationarity: ‖x - P(x - ∇L)‖∞
		pg := 0.0
		for i := range x {
			pg = math.Max(pg, math.Abs(x[i]-st.bounds[i].Clamp(x[i]-grad[i])))
		}
		if pg <= tol {
			return x, pg, k, nil
		}

		// 2) Backtracking on the quadratic upper bound model
		step = math.Min(step*2, 1e6)
		accepted := false
		for ; step > 1e-16; step /= 2 {
			decrease, sq := 0.0, 0.0
			for i := range x {
				trial[i] = st.bounds[i].Clamp(x[i] - step*grad[i])
				d := trial[i] - x[i]
				decrease += grad[i] * d
				sq += d * d
			}
			tv, tg, terr := st.lagrangian(trial)
			if terr != nil {
				return nil, 0, k, terr
			}
			if tv <= val+decrease+sq/(2*step) {
				copy(x, trial)
				val, grad = tv, tg
				accepted = true
				break
			}
		}
		if !accepted {
			// no descent possible at machine precision: report as stationary
			return x, pg, k, nil
		}
	}

	pg := 0.0
	for i := range x {
		pg = math.Max(pg, math.Abs(x[i]-st.bounds[i].Clamp(x[i]-grad[i])))
	}

	return x, pg, k, nil
}

// lagrangian evaluates L and ∇L at x.
func (st *state) lagrangian(x []float64) (float64, []float64, error) {
	val := st.p.Objective(x)
	grad := st.p.Gradient(x)
	if len(grad) != len(x) {
		return 0, nil, fmt.Errorf("%w: gradient has %d entries, want %d", ErrBadProblem, len(grad), len(x))
	}
	grad = append([]float64(nil), grad...)

	// equality part: λᵀh + μ/2‖h‖², gradient J_hᵀ(λ + μh)
	off := 0
	for _, c := range st.p.Eq {
		h := c.Fun(x)
		w := make([]float64, len(h))
		for i, hi := range h {
			l := st.lambda[off+i]
			val += l*hi + st.mu/2*hi*hi
			w[i] = l + st.mu*hi
		}
		if err := addJacT(grad, c, x, w); err != nil {
			return 0, nil, err
		}
		off += len(h)
	}

	// inequality part: 1/(2μ) Σ (max(0, ν - μg)² - ν²), gradient -J_gᵀ max(0, ν - μg)
	off = 0
	for _, c := range st.p.Ineq {
		g := c.Fun(x)
		w := make([]float64, len(g))
		for j, gj := range g {
			nu := st.nu[off+j]
			s := math.Max(0, nu-st.mu*gj)
			val += (s*s - nu*nu) / (2 * st.mu)
			w[j] = -s
		}
		if err := addJacT(grad, c, x, w); err != nil {
			return 0, nil, err
		}
		off += len(g)
	}

	return val, grad, nil
}

// addJacT accumulates J(x)ᵀw into grad.
func addJacT(grad []float64, c solver.Constraint, x, w []float64) error {
	if len(w) == 0 {
		return nil
	}
	jac, err := c.Jac(x)
	if err != nil {
		return fmt.Errorf("auglag: jacobian %q: %w", c.Name, err)
	}
	contrib, err := matrix.TMulVec(jac, w)
	if err != nil {
		return fmt.Errorf("auglag: jacobian %q: %w", c.Name, err)
	}
	if len(contrib) != len(grad) {
		return fmt.Errorf("%w: jacobian %q has %d columns, want %d", ErrBadProblem, c.Name, len(contrib), len(grad))
	}
	for i, v := range contrib {
		grad[i] += v
	}

	return nil
}

func evalAll(cs []solver.Constraint, x []float64) []float64 {
	var out []float64
	for _, c := range cs {
		out = append(out, c.Fun(x)...)
	}

	return out
}
