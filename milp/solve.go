package milp

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/route"
	"github.com/katalvlaran/ammroute/solver"
)

// FlowTolerance is the smallest X reported as an active flow.
const FlowTolerance = 1e-9

// Result is a decoded optimal answer.
type Result struct {
	Status     solver.Status
	Message    string
	Objective  float64
	Values     []float64 // raw assignment, one entry per model variable
	Flows      []route.Flow
	UsedPairs  []exchange.Pair
	Potentials map[exchange.Currency]float64
	Delivered  float64 // Σ F into the target
	G1Fee      float64
	G2Fee      float64
	Setup      time.Duration
	Solve      time.Duration
}

// Solve hands fm to s and decodes the answer.
// A verdict other than optimal is an error wrapping ErrNotOptimal that
// carries the status and the engine message; no partial result is returned.
func Solve(ctx context.Context, fm *Formulation, s solver.MILPSolver, opts solver.MILPOptions) (*Result, error) {
	if s == nil {
		return nil, ErrNilSolver
	}
	ctx, span := tracer().Start(ctx, "milp.solve")
	defer span.End()
	log := fm.Options.logger()

	// 1) Engine call
	started := time.Now()
	sol, err := s.SolveMILP(ctx, fm.Model, opts)
	elapsed := time.Since(started)
	if err != nil {
		recordSolve(ctx, "error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "engine error")
		return nil, fmt.Errorf("milp: solve: %w", err)
	}
	recordSolve(ctx, sol.Status.String(), elapsed)
	span.SetAttributes(attribute.String("status", sol.Status.String()))

	// 2) Verdict
	if sol.Status != solver.StatusOptimal {
		err = fmt.Errorf("%w: %s: %s", ErrNotOptimal, sol.Status, sol.Message)
		span.SetStatus(codes.Error, sol.Status.String())
		log.Warn("milp solve not optimal", "status", sol.Status.String(), "message", sol.Message)
		return nil, err
	}
	if len(sol.Values) != fm.Model.NumVars() {
		err = fmt.Errorf("milp: engine returned %d values for %d variables", len(sol.Values), fm.Model.NumVars())
		span.RecordError(err)
		return nil, err
	}

	// 3) Decode
	res := fm.Decode(sol.Values)
	res.Status = sol.Status
	res.Message = sol.Message
	res.Objective = sol.Objective
	res.Solve = sol.Runtime
	if res.Solve == 0 {
		res.Solve = elapsed
	}
	span.SetStatus(codes.Ok, "optimal")
	log.Info("milp solved",
		"objective", res.Objective, "delivered", res.Delivered,
		"hops", len(res.Flows), "setup", res.Setup, "solve", res.Solve)

	return res, nil
}

// Decode reads flows, used pairs, potentials and fee terms out of a full
// assignment. Status, message and objective are left for the caller.
func (fm *Formulation) Decode(values []float64) *Result {
	res := &Result{
		Values:     append([]float64(nil), values...),
		Potentials: make(map[exchange.Currency]float64, fm.n),
		Setup:      fm.Setup,
	}
	d, _ := fm.Graph.CurrencyIndex(fm.Graph.Target())

	var flows []route.Flow
	for i, ci := range fm.cur {
		res.Potentials[ci] = values[fm.u[i]]
		for j, cj := range fm.cur {
			if values[fm.Z(i, j)] > 0.5 {
				res.UsedPairs = append(res.UsedPairs, exchange.Pair{From: ci, To: cj})
			}
			for k, ex := range fm.exch {
				for p := range fm.p {
					at := fm.flat(i, j, k, p)
					if j == d {
						res.Delivered += values[fm.f[at]]
					}
					flows = append(flows, route.Flow{
						From: ci, To: cj, Exchange: ex, Split: p,
						In: values[fm.x[at]], Out: values[fm.f[at]],
					})
				}
			}
		}
	}
	res.Flows = route.Hops(flows, FlowTolerance)
	if fm.Options.Gas.Enabled {
		res.G1Fee = values[fm.g[1]]
		res.G2Fee = values[fm.g[2]]
	}

	return res
}
