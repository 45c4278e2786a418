package model_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ammroute/model"
)

// tiny builds: max f  s.t.  f*(100+x) = 50*x,  x = 10,  y <= 20 x,  x <= 20 y.
func tiny(t *testing.T) (*model.Model, model.VarID, model.VarID, model.VarID) {
	t.Helper()
	b := model.NewBuilder("tiny")
	x := b.AddVar("X(a,b,K1)", model.Continuous, 0, math.Inf(1))
	f := b.AddVar("F(a,b,K1)", model.Continuous, 0, math.Inf(1))
	y := b.AddVar("Y(a,b,K1)", model.Binary, 0, 1)

	var amm model.Expr
	amm.Add(100, f).AddQuad(1, f, x).Add(-50, x)
	b.AddConstraint("amm", amm, model.Eq, 0)
	b.AddConstraint("supply", model.Lin(model.T(1, x)), model.Eq, 10)
	b.AddConstraint("link_lo", model.Lin(model.T(1, y), model.T(-20, x)), model.LessEq, 0)
	b.AddConstraint("link_hi", model.Lin(model.T(1, x), model.T(-20, y)), model.LessEq, 0)
	b.SetObjective(model.Lin(model.T(1, f)), model.Maximize)

	m, err := b.Build()
	require.NoError(t, err)

	return m, x, f, y
}

func TestEvalAndFeasibility(t *testing.T) {
	m, x, f, y := tiny(t)
	require.Equal(t, 3, m.NumVars())
	require.Equal(t, 4, m.NumConstraints())

	a := make([]float64, m.NumVars())
	a[x], a[f], a[y] = 10, 50.0*10/110, 1

	ok, err := m.Feasible(a, 1e-9)
	require.NoError(t, err)
	require.True(t, ok)

	obj, err := m.ObjectiveValue(a)
	require.NoError(t, err)
	require.InDelta(t, 4.545454, obj, 1e-6)

	a[f] = 5
	v, err := m.Violations(a, 1e-9)
	require.NoError(t, err)
	require.Len(t, v, 1)
	require.Equal(t, "amm", v[0].Name)
	require.Equal(t, "constraint", v[0].Kind)
	require.InDelta(t, 50, v[0].Amount, 1e-9) // 100*5 + 5*10 - 500

	a[f], a[y] = 50.0*10/110, 0.5
	v, err = m.Violations(a, 1e-9)
	require.NoError(t, err)
	kinds := map[string]bool{}
	for _, vi := range v {
		kinds[vi.Kind] = true
	}
	require.True(t, kinds["integrality"])

	_, err = m.Violations(a[:2], 1e-9)
	require.ErrorIs(t, err, model.ErrAssignmentSize)
}

func TestBuilderStickyErrors(t *testing.T) {
	b := model.NewBuilder("bad")
	x := b.AddVar("x", model.Continuous, 0, 1)
	require.Equal(t, model.VarID(-1), b.AddVar("x", model.Continuous, 0, 1))
	require.ErrorIs(t, b.Err(), model.ErrDuplicateName)

	// Later calls are ignored; the first error wins.
	b.AddConstraint("", model.Lin(model.T(1, x)), model.Eq, 0)
	_, err := b.Build()
	require.ErrorIs(t, err, model.ErrDuplicateName)

	cases := []struct {
		name string
		fn   func(b *model.Builder)
		want error
	}{
		{"bounds", func(b *model.Builder) { b.AddVar("x", model.Continuous, 2, 1) }, model.ErrInvalidBounds},
		{"nan bound", func(b *model.Builder) { b.AddVar("x", model.Continuous, math.NaN(), 1) }, model.ErrInvalidBounds},
		{"empty var", func(b *model.Builder) { b.AddVar("", model.Binary, 0, 1) }, model.ErrEmptyName},
		{"unknown var", func(b *model.Builder) {
			b.AddConstraint("c", model.Lin(model.T(1, 3)), model.Eq, 0)
		}, model.ErrUnknownVariable},
		{"nan coef", func(b *model.Builder) {
			v := b.AddVar("x", model.Continuous, 0, 1)
			b.AddConstraint("c", model.Lin(model.T(math.NaN(), v)), model.Eq, 0)
		}, model.ErrNonFinite},
		{"inf rhs", func(b *model.Builder) {
			v := b.AddVar("x", model.Continuous, 0, 1)
			b.AddConstraint("c", model.Lin(model.T(1, v)), model.LessEq, math.Inf(1))
		}, model.ErrNonFinite},
		{"dup row", func(b *model.Builder) {
			v := b.AddVar("x", model.Continuous, 0, 1)
			b.AddConstraint("c", model.Lin(model.T(1, v)), model.Eq, 0)
			b.AddConstraint("c", model.Lin(model.T(1, v)), model.Eq, 0)
		}, model.ErrDuplicateName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := model.NewBuilder(tc.name)
			tc.fn(b)
			_, err := b.Build()
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestModelIsImmutable(t *testing.T) {
	m, x, _, _ := tiny(t)
	c, ok := m.FindConstraint("supply")
	require.True(t, ok)
	c.Expr.Linear[0].Coef = 99
	c2, _ := m.FindConstraint("supply")
	require.Equal(t, 1.0, c2.Expr.Linear[0].Coef)

	vars := m.Vars()
	vars[x].Upper = 0
	require.True(t, math.IsInf(m.Var(x).Upper, 1))

	id, ok := m.Lookup("F(a,b,K1)")
	require.True(t, ok)
	require.Equal(t, model.VarID(1), id)
}

func TestStats(t *testing.T) {
	m, _, _, _ := tiny(t)
	s := m.Stats()
	require.Equal(t, model.Stats{
		Vars: 3, Continuous: 2, Binary: 1, Constraints: 4, Quadratic: 1, Nonzeros: 8,
	}, s)
}

func TestWriteLP(t *testing.T) {
	m, _, _, _ := tiny(t)
	var buf bytes.Buffer
	require.NoError(t, m.WriteLP(&buf))
	lp := buf.String()

	require.Contains(t, lp, "Maximize\n obj: + 1 F(a,b,K1)\n")
	require.Contains(t, lp, " amm: + 100 F(a,b,K1) - 50 X(a,b,K1) + [ + 1 F(a,b,K1) * X(a,b,K1) ] = 0\n")
	require.Contains(t, lp, " supply: + 1 X(a,b,K1) = 10\n")
	require.Contains(t, lp, "Binaries\n Y(a,b,K1)\n")
	require.True(t, strings.HasSuffix(lp, "End\n"))
	_, bounds, ok := strings.Cut(lp, "Bounds\n")
	require.True(t, ok)
	bounds, _, ok = strings.Cut(bounds, "Binaries\n")
	require.True(t, ok)
	require.NotContains(t, bounds, "X(a,b,K1)", "default bounds are implicit")
}

func TestLPNamesAreSanitized(t *testing.T) {
	b := model.NewBuilder("names")
	a := b.AddVar("X(o,d,Uni:ETH/USDT)", model.Continuous, 0, 5)
	c := b.AddVar("X(o,d,Uni_ETH_USDT)", model.Continuous, 0, 5)
	e := b.AddVar("eta", model.Continuous, math.Inf(-1), math.Inf(1))
	m, err := b.Build()
	require.NoError(t, err)

	require.Equal(t, "X(o,d,Uni_ETH_USDT)", m.LPName(a))
	require.Equal(t, "X(o,d,Uni_ETH_USDT)_1", m.LPName(c))
	require.Equal(t, "v_eta", m.LPName(e))

	var buf bytes.Buffer
	require.NoError(t, m.WriteLP(&buf))
	require.Contains(t, buf.String(), " 0 <= X(o,d,Uni_ETH_USDT) <= 5\n")
	require.Contains(t, buf.String(), " v_eta free\n")
}

func TestSolutionRoundTrip(t *testing.T) {
	m, x, f, y := tiny(t)
	start := []float64{10, 4.5, 1}

	var mst bytes.Buffer
	require.NoError(t, m.WriteMST(&mst, start))

	sol, err := m.ParseSolution(&mst)
	require.NoError(t, err)
	require.False(t, sol.HasObjective)
	require.Equal(t, 3, sol.Listed)
	require.Equal(t, 10.0, sol.Values[x])
	require.Equal(t, 4.5, sol.Values[f])
	require.Equal(t, 1.0, sol.Values[y])

	gurobi := "# Solution for model tiny\n# Objective value = 4.5454545454545459e+00\nX(a,b,K1) 10\nF(a,b,K1) 4.5454545454545459\n"
	sol, err = m.ParseSolution(strings.NewReader(gurobi))
	require.NoError(t, err)
	require.True(t, sol.HasObjective)
	require.InDelta(t, 4.5454545, sol.Objective, 1e-6)
	require.Zero(t, sol.Values[y], "unlisted variables read as zero")

	_, err = m.ParseSolution(strings.NewReader("nope 1\n"))
	require.ErrorIs(t, err, model.ErrUnknownVariable)
	_, err = m.ParseSolution(strings.NewReader("X(a,b,K1)\n"))
	require.ErrorIs(t, err, model.ErrMalformedSolution)
}
