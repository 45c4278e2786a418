package milp_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/milp"
	"github.com/katalvlaran/ammroute/model"
	"github.com/katalvlaran/ammroute/route"
	"github.com/katalvlaran/ammroute/solver"
)

type cur = exchange.Currency

const tol = 1e-9

// singlePool is one exchange {a:100, b:50} routing 10 a into b.
func singlePool(t *testing.T, opts ...exchange.Option) *exchange.Graph {
	t.Helper()
	base := []exchange.Option{exchange.WithSource("a"), exchange.WithTarget("b"), exchange.WithQuantity(10)}
	g, err := exchange.New([]exchange.Exchange{
		{ID: "K", Reserves: map[cur]float64{"a": 100, "b": 50}},
	}, append(base, opts...)...)
	require.NoError(t, err)

	return g
}

func idx(t *testing.T, g *exchange.Graph, c cur) int {
	t.Helper()
	i, ok := g.CurrencyIndex(c)
	require.True(t, ok, c)

	return i
}

func build(t *testing.T, g *exchange.Graph, opts milp.Options) *milp.Formulation {
	t.Helper()
	fm, err := milp.Build(context.Background(), g, opts)
	require.NoError(t, err)

	return fm
}

func TestSinglePoolRoundTrip(t *testing.T) {
	g := singlePool(t)
	fm := build(t, g, milp.DefaultOptions())
	require.Equal(t, 110.0, fm.BigM)

	a, b := idx(t, g, "a"), idx(t, g, "b")
	flow := make([]float64, 4)
	flow[milp.FlowIndex(2, a, b, 0)] = 10

	x, err := fm.Lift(flow)
	require.NoError(t, err)
	viol, err := fm.Check(x, tol)
	require.NoError(t, err)
	require.Empty(t, viol)

	require.Equal(t, 10.0, x[fm.X(a, b, 0, 0)])
	require.InDelta(t, 4.545454, x[fm.F(a, b, 0, 0)], 1e-6)
	require.Equal(t, 1.0, x[fm.Y(a, b, 0, 0)])
	require.Equal(t, 1.0, x[fm.Z(a, b)])
	require.Less(t, x[fm.U(a)], x[fm.U(b)])

	obj, err := fm.Model.ObjectiveValue(x)
	require.NoError(t, err)
	require.InDelta(t, 500.0/110, obj, 1e-9)
}

func TestBalanceRowsCatchWrongQuantity(t *testing.T) {
	g := singlePool(t)
	fm := build(t, g, milp.DefaultOptions())
	a, b := idx(t, g, "a"), idx(t, g, "b")

	flow := make([]float64, 4)
	flow[milp.FlowIndex(2, a, b, 0)] = 9
	x, err := fm.Lift(flow)
	require.NoError(t, err)

	viol, err := fm.Check(x, tol)
	require.NoError(t, err)
	require.Len(t, viol, 1)
	require.Equal(t, "src_out", viol[0].Name)
	require.InDelta(t, 1, viol[0].Amount, 1e-12)
}

func TestTwoHopRouteAndMissingPools(t *testing.T) {
	g, err := exchange.New([]exchange.Exchange{
		{ID: "K1", Reserves: map[cur]float64{"o": 10, "c": 10}},
		{ID: "K2", Reserves: map[cur]float64{"c": 10, "d": 10}},
	}, exchange.WithSource("o"), exchange.WithTarget("d"), exchange.WithQuantity(5))
	require.NoError(t, err)
	fm := build(t, g, milp.DefaultOptions())
	require.Equal(t, 22.0, fm.BigM)

	o, c, d := idx(t, g, "o"), idx(t, g, "c"), idx(t, g, "d")
	k1, _ := g.ExchangeIndex("K1")
	k2, _ := g.ExchangeIndex("K2")

	// no exchange trades o/d: every X, F, Y of the pair is pinned to zero
	for k := range 2 {
		for _, id := range []model.VarID{fm.X(o, d, k, 0), fm.F(o, d, k, 0), fm.Y(o, d, k, 0)} {
			v := fm.Model.Var(id)
			require.True(t, v.Fixed(), v.Name)
			require.Equal(t, 0.0, v.Upper, v.Name)
		}
	}
	_, ok := fm.Model.FindConstraint("nopool(o,d,K1,0)")
	require.True(t, ok)
	_, ok = fm.Model.FindConstraint("cut(c)")
	require.True(t, ok)

	n := g.NumCurrencies()
	flow := make([]float64, n*n*2)
	mid := 10 * 5 / 15.0
	flow[milp.FlowIndex(n, o, c, k1)] = 5
	flow[milp.FlowIndex(n, c, d, k2)] = mid

	x, err := fm.Lift(flow)
	require.NoError(t, err)
	viol, err := fm.Check(x, tol)
	require.NoError(t, err)
	require.Empty(t, viol)

	obj, err := fm.Model.ObjectiveValue(x)
	require.NoError(t, err)
	require.InDelta(t, 2.5, obj, 1e-9)
}

// cycleGraph has three mid-currencies all trading with each other.
func cycleGraph(t *testing.T) *exchange.Graph {
	t.Helper()
	g, err := exchange.New([]exchange.Exchange{
		{ID: "K", Reserves: map[cur]float64{"a": 10, "b": 10, "c": 10, "o": 10, "d": 10}},
	}, exchange.WithSource("o"), exchange.WithTarget("d"), exchange.WithQuantity(1))
	require.NoError(t, err)

	return g
}

func TestMTZForbidsThreeCycle(t *testing.T) {
	g := cycleGraph(t)
	fm := build(t, g, milp.DefaultOptions())
	a, b, c := idx(t, g, "a"), idx(t, g, "b"), idx(t, g, "c")

	x := make([]float64, fm.Model.NumVars())
	x[fm.Z(a, b)], x[fm.Z(b, c)], x[fm.Z(c, a)] = 1, 1, 1

	rows := make([]model.Constraint, 0, 3)
	for _, name := range []string{"mtz(a,b)", "mtz(b,c)", "mtz(c,a)"} {
		row, ok := fm.Model.FindConstraint(name)
		require.True(t, ok, name)
		rows = append(rows, row)
	}

	// the three rows sum to 3M <= 3(M-1): no potentials satisfy all of them
	top := float64(g.NumCurrencies() - 1)
	for ua := 0.0; ua <= top; ua += 0.5 {
		for ub := 0.0; ub <= top; ub += 0.5 {
			for uc := 0.0; uc <= top; uc += 0.5 {
				x[fm.U(a)], x[fm.U(b)], x[fm.U(c)] = ua, ub, uc
				worst := 0.0
				for _, r := range rows {
					worst = max(worst, r.Violation(x))
				}
				require.Greater(t, worst, 0.5, "U=(%g,%g,%g)", ua, ub, uc)
			}
		}
	}
}

func TestLiftRejectsCyclicFlow(t *testing.T) {
	g := cycleGraph(t)
	fm := build(t, g, milp.DefaultOptions())
	n := g.NumCurrencies()
	a, b, c := idx(t, g, "a"), idx(t, g, "b"), idx(t, g, "c")

	flow := make([]float64, n*n)
	flow[milp.FlowIndex(n, a, b, 0)] = 1
	flow[milp.FlowIndex(n, b, c, 0)] = 1
	flow[milp.FlowIndex(n, c, a, 0)] = 1
	_, err := fm.Lift(flow)
	require.ErrorIs(t, err, route.ErrCycleDetected)

	_, err = fm.Lift(flow[:3])
	require.ErrorIs(t, err, milp.ErrFlowSize)
}

func TestSplits(t *testing.T) {
	g := singlePool(t)
	opts := milp.DefaultOptions()
	opts.Splits = 2
	fm := build(t, g, opts)
	require.Equal(t, 2, fm.Splits())
	// U 2 + Z 4 + (X,F,Y) * 4 pairs * 1 exchange * 2 splits
	require.Equal(t, 30, fm.Model.NumVars())

	a, b := idx(t, g, "a"), idx(t, g, "b")
	flow := make([]float64, 4)
	flow[milp.FlowIndex(2, a, b, 0)] = 10
	x, err := fm.Lift(flow)
	require.NoError(t, err)
	viol, err := fm.Check(x, tol)
	require.NoError(t, err)
	require.Empty(t, viol)

	// the same flow split evenly is also feasible but delivers more
	x[fm.X(a, b, 0, 0)], x[fm.X(a, b, 0, 1)] = 5, 5
	x[fm.F(a, b, 0, 0)], x[fm.F(a, b, 0, 1)] = 250.0/105, 250.0/105
	x[fm.Y(a, b, 0, 1)] = 1
	viol, err = fm.Check(x, tol)
	require.NoError(t, err)
	require.Empty(t, viol)
	obj, err := fm.Model.ObjectiveValue(x)
	require.NoError(t, err)
	require.Greater(t, obj, 500.0/110)
}

func TestGasObjective(t *testing.T) {
	g := singlePool(t)
	opts := milp.DefaultOptions()
	opts.Gas.Enabled = true
	fm := build(t, g, opts)
	_, g1, g2, ok := fm.Gas()
	require.True(t, ok)

	a, b := idx(t, g, "a"), idx(t, g, "b")
	flow := make([]float64, 4)
	flow[milp.FlowIndex(2, a, b, 0)] = 10
	x, err := fm.Lift(flow)
	require.NoError(t, err)
	viol, err := fm.Check(x, tol)
	require.NoError(t, err)
	require.Empty(t, viol)

	out := 500.0 / 110
	require.Equal(t, 43.0, x[g1])
	require.InDelta(t, 0.003*out, x[g2], 1e-12)
	obj, err := fm.Model.ObjectiveValue(x)
	require.NoError(t, err)
	require.InDelta(t, out-43-0.003*out, obj, 1e-9)
}

func TestFeeBudget(t *testing.T) {
	g, err := exchange.New([]exchange.Exchange{{
		ID:           "K",
		Reserves:     map[cur]float64{"a": 100, "b": 50},
		Fixed:        map[exchange.Pair]float64{{From: "a", To: "b"}: 2},
		Proportional: map[exchange.Pair]float64{{From: "a", To: "b"}: 0.1},
	}}, exchange.WithSource("a"), exchange.WithTarget("b"), exchange.WithQuantity(10), exchange.WithFeeBudget(3.5))
	require.NoError(t, err)

	a, b := idx(t, g, "a"), idx(t, g, "b")
	flow := make([]float64, 4)
	flow[milp.FlowIndex(2, a, b, 0)] = 10

	// 2*Y + 0.1*X = 3 fits a budget of 3.5
	fm := build(t, g, milp.DefaultOptions())
	x, err := fm.Lift(flow)
	require.NoError(t, err)
	viol, err := fm.Check(x, tol)
	require.NoError(t, err)
	require.Empty(t, viol)

	tight, err := g.WithFeeBudget(2.5)
	require.NoError(t, err)
	fm = build(t, tight, milp.DefaultOptions())
	x, err = fm.Lift(flow)
	require.NoError(t, err)
	viol, err = fm.Check(x, tol)
	require.NoError(t, err)
	require.Len(t, viol, 1)
	require.Equal(t, "fee_budget", viol[0].Name)

	opts := milp.DefaultOptions()
	opts.FeeBudget = false
	fm = build(t, tight, opts)
	_, ok := fm.Model.FindConstraint("fee_budget")
	require.False(t, ok)
}

func TestOptionsValidation(t *testing.T) {
	g := singlePool(t)
	bad := []func(*milp.Options){
		func(o *milp.Options) { o.Splits = 0 },
		func(o *milp.Options) { o.BigM = -1 },
		func(o *milp.Options) { o.BigMMargin = -0.5 },
		func(o *milp.Options) { o.Gas.Enabled, o.Gas.G1 = true, -1 },
	}
	for i, mutate := range bad {
		opts := milp.DefaultOptions()
		mutate(&opts)
		_, err := milp.Build(context.Background(), g, opts)
		require.ErrorIs(t, err, milp.ErrBadOptions, "case %d", i)
	}

	_, err := milp.Build(context.Background(), nil, milp.DefaultOptions())
	require.ErrorIs(t, err, milp.ErrNilGraph)
}

func TestSmallBigMOverrideWarns(t *testing.T) {
	var buf bytes.Buffer
	opts := milp.DefaultOptions()
	opts.BigM = 5
	opts.Logger = slog.New(slog.NewTextHandler(&buf, nil))

	fm := build(t, singlePool(t), opts)
	require.Equal(t, 5.0, fm.BigM)
	require.Contains(t, buf.String(), "big-M override below derived bound")
	require.Equal(t, 110.0, milp.DeriveBigM(singlePool(t), milp.DefaultOptions()))
}

func TestLPExport(t *testing.T) {
	fm := build(t, singlePool(t), milp.DefaultOptions())
	var buf bytes.Buffer
	require.NoError(t, fm.Model.WriteLP(&buf))
	lp := buf.String()
	for _, want := range []string{
		"Maximize",
		" amm(a,b,K,0):",
		"F(a,b,K,0) * X(a,b,K,0)",
		" mtz(a,b):",
		"Binaries",
	} {
		require.Contains(t, lp, want)
	}
	require.True(t, strings.HasSuffix(lp, "End\n"))
}

type stubSolver struct {
	sol *solver.MILPSolution
	err error
}

func (s stubSolver) SolveMILP(context.Context, *model.Model, solver.MILPOptions) (*solver.MILPSolution, error) {
	return s.sol, s.err
}

func TestSolveDecodes(t *testing.T) {
	g := singlePool(t)
	fm := build(t, g, milp.DefaultOptions())
	a, b := idx(t, g, "a"), idx(t, g, "b")
	flow := make([]float64, 4)
	flow[milp.FlowIndex(2, a, b, 0)] = 10
	x, err := fm.Lift(flow)
	require.NoError(t, err)

	res, err := milp.Solve(context.Background(), fm, stubSolver{sol: &solver.MILPSolution{
		Status: solver.StatusOptimal, Objective: 500.0 / 110, Values: x,
	}}, solver.DefaultMILPOptions())
	require.NoError(t, err)
	require.InDelta(t, 500.0/110, res.Delivered, 1e-12)
	require.Len(t, res.Flows, 1)
	require.Equal(t, route.Flow{From: "a", To: "b", Exchange: "K", In: 10, Out: x[fm.F(a, b, 0, 0)]}, res.Flows[0])
	require.Equal(t, []exchange.Pair{{From: "a", To: "b"}}, res.UsedPairs)
	require.Less(t, res.Potentials["a"], res.Potentials["b"])
}

func TestSolveFailures(t *testing.T) {
	fm := build(t, singlePool(t), milp.DefaultOptions())
	ctx := context.Background()
	opts := solver.DefaultMILPOptions()

	_, err := milp.Solve(ctx, fm, nil, opts)
	require.ErrorIs(t, err, milp.ErrNilSolver)

	_, err = milp.Solve(ctx, fm, stubSolver{sol: &solver.MILPSolution{
		Status: solver.StatusInfeasible, Message: "Model is infeasible",
	}}, opts)
	require.ErrorIs(t, err, milp.ErrNotOptimal)
	require.Contains(t, err.Error(), "infeasible")

	boom := errors.New("boom")
	_, err = milp.Solve(ctx, fm, stubSolver{err: boom}, opts)
	require.ErrorIs(t, err, boom)

	_, err = milp.Solve(ctx, fm, stubSolver{sol: &solver.MILPSolution{
		Status: solver.StatusOptimal, Values: []float64{1},
	}}, opts)
	require.Error(t, err)
}

// Without the cut rows a mid-currency can receive more than its total
// reserve: every pooled conversion into it prices against the full pool.
func TestDerivedBigMWithoutBoundCuts(t *testing.T) {
	g, err := exchange.New([]exchange.Exchange{
		{ID: "K1", Reserves: map[cur]float64{"o": 1, "c": 1, "a": 100}},
		{ID: "K2", Reserves: map[cur]float64{"a": 1, "d": 100}},
	}, exchange.WithSource("o"), exchange.WithTarget("d"), exchange.WithQuantity(100))
	require.NoError(t, err)
	opts := milp.DefaultOptions()
	opts.BoundCuts = false
	fm := build(t, g, opts)
	// a receives from o and c at K1 (100 each) and from d at K2 (1)
	require.Equal(t, 222.0, fm.BigM)
	require.Equal(t, 112.0, milp.DeriveBigM(g, milp.DefaultOptions()))

	opts.Splits = 2
	require.Equal(t, 443.0, milp.DeriveBigM(g, opts))

	o, c, a, d := idx(t, g, "o"), idx(t, g, "c"), idx(t, g, "a"), idx(t, g, "d")
	k1, _ := g.ExchangeIndex("K1")
	k2, _ := g.ExchangeIndex("K2")
	n := g.NumCurrencies()
	toC := 1 * 50.0 / (1 + 50)
	intoA := 100*50.0/(1+50) + 100*toC/(1+toC)
	require.Greater(t, intoA, g.TotalReserve("a"))

	flow := make([]float64, n*n*2)
	flow[milp.FlowIndex(n, o, a, k1)] = 50
	flow[milp.FlowIndex(n, o, c, k1)] = 50
	flow[milp.FlowIndex(n, c, a, k1)] = toC
	flow[milp.FlowIndex(n, a, d, k2)] = intoA

	x, err := fm.Lift(flow)
	require.NoError(t, err)
	viol, err := fm.Check(x, 1e-9)
	require.NoError(t, err)
	require.Empty(t, viol)
}

func TestLiftDropsFlowsBelowIndicatorFloor(t *testing.T) {
	g, err := exchange.New([]exchange.Exchange{
		{ID: "K1", Reserves: map[cur]float64{"a": 100, "b": 50}},
		{ID: "K2", Reserves: map[cur]float64{"a": 100, "b": 50}},
	}, exchange.WithSource("a"), exchange.WithTarget("b"), exchange.WithQuantity(10))
	require.NoError(t, err)
	fm := build(t, g, milp.DefaultOptions())
	require.Equal(t, 220.0, fm.BigM)

	a, b := idx(t, g, "a"), idx(t, g, "b")
	k1, _ := g.ExchangeIndex("K1")
	k2, _ := g.ExchangeIndex("K2")
	flow := make([]float64, 8)
	flow[milp.FlowIndex(2, a, b, k1)] = 9.999
	flow[milp.FlowIndex(2, a, b, k2)] = 0.001 // below 1/M

	x, err := fm.Lift(flow)
	require.NoError(t, err)
	require.Equal(t, 0.0, x[fm.X(a, b, k2, 0)])
	require.Equal(t, 0.0, x[fm.F(a, b, k2, 0)])
	require.Equal(t, 0.0, x[fm.Y(a, b, k2, 0)])
	require.Equal(t, 1.0, x[fm.Y(a, b, k1, 0)])

	viol, err := fm.Check(x, tol)
	require.NoError(t, err)
	require.Len(t, viol, 1)
	require.Equal(t, "src_out", viol[0].Name)
	require.InDelta(t, 0.001, viol[0].Amount, 1e-9)
}
