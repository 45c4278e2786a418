package sweep

import (
	"context"
	"time"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/milp"
	"github.com/katalvlaran/ammroute/nlp"
	"github.com/katalvlaran/ammroute/solver"
)

// MILP solves each point with the bilinear MILP on a solver returned by
// newSolver, called once per case. The point overrides Splits, G1 and G2 of
// base; setting G1 or G2 switches the gas term on.
func MILP(newSolver func() solver.MILPSolver, base milp.Options, mopts solver.MILPOptions) SolveFunc {
	return func(ctx context.Context, g *exchange.Graph, pt Point) (Value, error) {
		opts := base
		if pt.Splits > 0 {
			opts.Splits = pt.Splits
		}
		if pt.HasG1 {
			opts.Gas.Enabled, opts.Gas.G1 = true, pt.G1
		}
		if pt.HasG2 {
			opts.Gas.Enabled, opts.Gas.G2 = true, pt.G2
		}

		fm, err := milp.Build(ctx, g, opts)
		if err != nil {
			return Value{}, err
		}
		res, err := milp.Solve(ctx, fm, newSolver(), mopts)
		if err != nil {
			return Value{Vars: fm.Model.NumVars(), Setup: fm.Setup}, err
		}

		return Value{
			Status:    res.Status.String(),
			Objective: res.Objective,
			Delivered: res.Delivered,
			G1Fee:     res.G1Fee,
			G2Fee:     res.G2Fee,
			Vars:      fm.Model.NumVars(),
			Setup:     res.Setup,
			Solve:     res.Solve,
		}, nil
	}
}

// NLP solves each point with the continuous formulation from `starts`
// random starts (0 means the zero start only), on a solver returned by
// newSolver per case. Splits and gas fees do not apply to it and are ignored.
func NLP(newSolver func() solver.NLPSolver, opts nlp.Options, starts int, seed int64) SolveFunc {
	return func(ctx context.Context, g *exchange.Graph, _ Point) (Value, error) {
		p, err := nlp.Build(ctx, g, opts)
		if err != nil {
			return Value{}, err
		}
		var xs [][]float64
		if starts > 0 {
			xs = p.RandomStarts(starts, seed)
		}
		rep, err := p.Run(ctx, newSolver(), xs, 0)
		if err != nil {
			return Value{Vars: p.NumVars()}, err
		}

		return Value{
			Status:    "success",
			Objective: rep.Delivered,
			Delivered: rep.Delivered,
			Vars:      p.NumVars(),
			Solve:     elapsed(rep),
		}, nil
	}
}

func elapsed(rep *nlp.Report) (d time.Duration) {
	for _, a := range rep.Attempts {
		d += a.Elapsed
	}

	return d
}
