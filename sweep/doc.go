// Package sweep solves families of independent routing instances in
// parallel: split-count, gas-fee and source-quantity comparisons.
//
// Every Case owns its graph snapshot and a SolveFunc, so cases share
// nothing. Run bounds concurrency with an errgroup limit and can pace
// launches with a token bucket. A failing case is recorded in its Outcome
// and never cancels its siblings; only cancellation of the caller's context
// stops the sweep early.
//
//	pts := sweep.Points(sweep.Axes{Splits: []int{1, 2, 3}, G1: sweep.Linspace(0, 63, 64)})
//	cases, _ := sweep.Cases(g, pts, sweep.MILP(engine, milp.DefaultOptions(), solver.DefaultMILPOptions()))
//	outs, err := sweep.Run(ctx, cases, sweep.Options{Workers: 4})
package sweep
