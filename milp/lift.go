package milp

import (
	"fmt"

	"github.com/katalvlaran/ammroute/model"
	"github.com/katalvlaran/ammroute/route"
)

// FlowIndex is the position of X[i,j,k] in the flat flow vector shared with
// the nlp package: k*N*N + j*N + i.
func FlowIndex(n, i, j, k int) int { return k*n*n + j*n + i }

// Lift completes a flat flow vector (see FlowIndex; trailing entries beyond
// N*N*K are ignored) into a full assignment of fm:
//
//  1. X of split 0 takes the flow; F follows the AMM rule and Y is 1.
//  2. Flows below 1/M are dropped (X = F = Y = 0): no indicator value
//     satisfies both linking rows for them. The balance rows at both ends
//     then miss the dropped amount and Check reports them.
//  3. Z aggregates Y; U is the topological position of each currency in
//     the digraph of used pairs.
//  4. Gas fee variables are evaluated from Y and F.
//
// A flow with a directed cycle of used pairs has no MTZ potentials and
// yields route.ErrCycleDetected. Lift does not check the balance rows; use
// Check on the result for that.
func (fm *Formulation) Lift(flow []float64) ([]float64, error) {
	need := fm.n * fm.n * fm.k
	if len(flow) < need {
		return nil, fmt.Errorf("%w: got %d, want at least %d", ErrFlowSize, len(flow), need)
	}
	x := make([]float64, fm.Model.NumVars())
	dg := route.NewDigraph(fm.cur...)
	var ySum, valued float64

	// 1) Flows, outputs and indicators
	for i, ci := range fm.cur {
		for j, cj := range fm.cur {
			rate, rated := fm.Graph.Rate(cj)
			for k, ex := range fm.exch {
				if !fm.Graph.HasPool(ex, ci, cj) {
					continue
				}
				v := flow[FlowIndex(fm.n, i, j, k)]
				if v*fm.BigM < 1 {
					continue
				}
				ski, _ := fm.Graph.Stock(ex, ci)
				skj, _ := fm.Graph.Stock(ex, cj)
				at := fm.flat(i, j, k, 0)
				out := skj * v / (ski + v)
				x[fm.x[at]] = v
				x[fm.f[at]] = out
				x[fm.y[at]] = 1
				x[fm.z[i*fm.n+j]] = 1
				ySum++
				dg.AddEdge(ci, cj)
				if rated {
					valued += rate * out
				}
			}
		}
	}

	// 2) Potentials
	pot, err := route.Potentials(dg)
	if err != nil {
		return nil, fmt.Errorf("milp: lift: %w", err)
	}
	for i, c := range fm.cur {
		x[fm.u[i]] = pot[c]
	}

	// 3) Gas fee terms
	if fm.Options.Gas.Enabled {
		g1 := fm.Options.Gas.G1 * ySum
		g2 := fm.Options.Gas.G2 * valued
		x[fm.g[0]], x[fm.g[1]], x[fm.g[2]] = g1+g2, g1, g2
	}

	return x, nil
}

// Check lists the rows, bounds and integrality requirements that assign
// violates by more than tol.
func (fm *Formulation) Check(assign []float64, tol float64) ([]model.Violation, error) {
	return fm.Model.Violations(assign, tol)
}
