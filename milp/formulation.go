package milp

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/model"
)

// Formulation is an immutable build result: the model plus typed access to
// its variables. It is safe to read from several goroutines.
type Formulation struct {
	Model   *model.Model
	Graph   *exchange.Graph
	Options Options
	BigM    float64
	Setup   time.Duration

	cur  []exchange.Currency
	exch []string
	n    int // currencies
	k    int // exchanges
	p    int // splits

	x, f, y []model.VarID // (i,j,k,p), see flat
	z       []model.VarID // i*n + j
	u       []model.VarID // i
	g       [3]model.VarID
}

// flat is the position of (i,j,k,p) in the x, f and y tables.
func (fm *Formulation) flat(i, j, k, p int) int {
	return ((i*fm.n+j)*fm.k+k)*fm.p + p
}

// X returns the flow variable of (i,j) at exchange k, split p (all by index).
func (fm *Formulation) X(i, j, k, p int) model.VarID { return fm.x[fm.flat(i, j, k, p)] }

// F returns the output variable matching X(i,j,k,p).
func (fm *Formulation) F(i, j, k, p int) model.VarID { return fm.f[fm.flat(i, j, k, p)] }

// Y returns the edge indicator matching X(i,j,k,p).
func (fm *Formulation) Y(i, j, k, p int) model.VarID { return fm.y[fm.flat(i, j, k, p)] }

// Z returns the pair indicator of (i,j).
func (fm *Formulation) Z(i, j int) model.VarID { return fm.z[i*fm.n+j] }

// U returns the MTZ potential of currency i.
func (fm *Formulation) U(i int) model.VarID { return fm.u[i] }

// Gas returns the G, G1Fee and G2Fee variables; ok is false when the gas
// term is disabled.
func (fm *Formulation) Gas() (g, g1, g2 model.VarID, ok bool) {
	return fm.g[0], fm.g[1], fm.g[2], fm.Options.Gas.Enabled
}

// Splits returns P.
func (fm *Formulation) Splits() int { return fm.p }

// Build assembles the routing MILP for g.
// Stage 1 (Validate): options, big-M.
// Stage 2 (Prepare): variables, with X/F/Y fixed to 0 where no pool exists.
// Stage 3 (Execute): rows in the order listed in the package documentation.
// Stage 4 (Finalize): objective and freeze.
// Complexity: O(N²·K·P) variables and rows.
func Build(ctx context.Context, g *exchange.Graph, opts Options) (*Formulation, error) {
	_, span := tracer().Start(ctx, "milp.build")
	defer span.End()

	fm, err := build(g, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}
	st := fm.Model.Stats()
	span.SetAttributes(
		attribute.Int("vars", st.Vars),
		attribute.Int("binaries", st.Binary),
		attribute.Int("constraints", st.Constraints),
		attribute.Float64("big_m", fm.BigM),
	)
	recordModelSize(ctx, "milp", st.Vars, st.Constraints)
	opts.logger().Debug("milp model built",
		"vars", st.Vars, "binaries", st.Binary, "constraints", st.Constraints,
		"quadratic", st.Quadratic, "big_m", fm.BigM, "setup", fm.Setup)

	return fm, nil
}

func build(g *exchange.Graph, opts Options) (*Formulation, error) {
	started := time.Now()

	// 1) Validate
	if g == nil {
		return nil, ErrNilGraph
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	derived := DeriveBigM(g, opts)
	bigM := derived
	if opts.BigM > 0 {
		bigM = opts.BigM
		if bigM < derived {
			opts.logger().Warn("big-M override below derived bound; indicator rows may cut feasible flows",
				"big_m", bigM, "derived", derived)
		}
	}

	fm := &Formulation{
		Graph:   g,
		Options: opts,
		BigM:    bigM,
		cur:     g.Currencies(),
		exch:    g.Exchanges(),
		p:       opts.Splits,
	}
	fm.n, fm.k = len(fm.cur), len(fm.exch)
	n, nk, np := fm.n, fm.k, fm.p
	size := n * n * nk * np
	fm.x = make([]model.VarID, size)
	fm.f = make([]model.VarID, size)
	fm.y = make([]model.VarID, size)
	fm.z = make([]model.VarID, n*n)
	fm.u = make([]model.VarID, n)
	fm.g = [3]model.VarID{-1, -1, -1}

	b := model.NewBuilder("ammroute")

	// 2) Variables
	inf := math.Inf(1)
	for i, ci := range fm.cur {
		fm.u[i] = b.AddVar(fmt.Sprintf("U(%s)", ci), model.Continuous, 0, float64(n-1))
		for j, cj := range fm.cur {
			fm.z[i*n+j] = b.AddVar(fmt.Sprintf("Z(%s,%s)", ci, cj), model.Binary, 0, 1)
			for k, ex := range fm.exch {
				ub, yub := inf, 1.0
				if !g.HasPool(ex, ci, cj) {
					ub, yub = 0, 0
				}
				for p := range np {
					at := fm.flat(i, j, k, p)
					tag := fmt.Sprintf("(%s,%s,%s,%d)", ci, cj, ex, p)
					fm.x[at] = b.AddVar("X"+tag, model.Continuous, 0, ub)
					fm.f[at] = b.AddVar("F"+tag, model.Continuous, 0, ub)
					fm.y[at] = b.AddVar("Y"+tag, model.Binary, 0, yub)
				}
			}
		}
	}
	if opts.Gas.Enabled {
		fm.g[0] = b.AddVar("G", model.Continuous, 0, inf)
		fm.g[1] = b.AddVar("G1Fee", model.Continuous, 0, inf)
		fm.g[2] = b.AddVar("G2Fee", model.Continuous, 0, inf)
	}

	// 3) Rows
	if err := fm.addAMM(b); err != nil {
		return nil, err
	}
	fm.addFlowBalance(b)
	fm.addLinking(b)
	if opts.CycleElimination {
		fm.addMTZ(b)
	}
	if opts.FeeBudget && g.HasFeeBudget() {
		if err := fm.addFeeBudget(b); err != nil {
			return nil, err
		}
	}
	if opts.BoundCuts {
		fm.addBoundCuts(b)
	}
	if opts.Gas.Enabled {
		fm.addGas(b)
	}

	// 4) Objective
	fm.setObjective(b)
	m, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("milp: %w", err)
	}
	fm.Model = m
	fm.Setup = time.Since(started)

	return fm, nil
}

// addAMM writes the pricing row of every pooled (i,j,k,p) and pins F to 0
// for distinct pairs without a pool.
func (fm *Formulation) addAMM(b *model.Builder) error {
	for i, ci := range fm.cur {
		for j, cj := range fm.cur {
			for k, ex := range fm.exch {
				pooled := fm.Graph.HasPool(ex, ci, cj)
				if !pooled && i == j {
					continue
				}
				var ski, skj float64
				if pooled {
					var err error
					if ski, err = fm.Graph.Stock(ex, ci); err != nil {
						return err
					}
					if skj, err = fm.Graph.Stock(ex, cj); err != nil {
						return err
					}
				}
				for p := range fm.p {
					at := fm.flat(i, j, k, p)
					tag := fmt.Sprintf("(%s,%s,%s,%d)", ci, cj, ex, p)
					if !pooled {
						b.AddConstraint("nopool"+tag, model.Lin(model.T(1, fm.f[at])), model.Eq, 0)
						continue
					}
					e := model.Lin(model.T(ski, fm.f[at]), model.T(-skj, fm.x[at]))
					e.AddQuad(1, fm.f[at], fm.x[at])
					b.AddConstraint("amm"+tag, e, model.Eq, 0)
				}
			}
		}
	}

	return nil
}

// xOver sums X over every exchange and split for the (i,j) pairs yielded by pairs.
func (fm *Formulation) xOver(table []model.VarID, pairs func(yield func(i, j int))) model.Expr {
	var e model.Expr
	pairs(func(i, j int) {
		for k := range fm.k {
			for p := range fm.p {
				e.Add(1, table[fm.flat(i, j, k, p)])
			}
		}
	})

	return e
}

// addFlowBalance writes source, target, conservation and self-loop rows.
func (fm *Formulation) addFlowBalance(b *model.Builder) {
	o, _ := fm.Graph.CurrencyIndex(fm.Graph.Source())
	d, _ := fm.Graph.CurrencyIndex(fm.Graph.Target())
	into := func(j int) func(func(i, j int)) {
		return func(yield func(i, j int)) {
			for i := range fm.n {
				yield(i, j)
			}
		}
	}
	outOf := func(i int) func(func(i, j int)) {
		return func(yield func(i, j int)) {
			for j := range fm.n {
				yield(i, j)
			}
		}
	}

	b.AddConstraint("src_in", fm.xOver(fm.x, into(o)), model.Eq, 0)
	b.AddConstraint("src_out", fm.xOver(fm.x, outOf(o)), model.Eq, fm.Graph.Quantity())
	b.AddConstraint("dst_out", fm.xOver(fm.x, outOf(d)), model.Eq, 0)

	for j, cj := range fm.cur {
		if j == o || j == d {
			continue
		}
		// produced into j (F-space) equals sent out of j (X-space)
		e := fm.xOver(fm.f, into(j))
		e.AddExpr(-1, fm.xOver(fm.x, outOf(j)))
		b.AddConstraint(fmt.Sprintf("cons(%s)", cj), e, model.Eq, 0)
	}
	for j, cj := range fm.cur {
		self := func(yield func(i, j int)) { yield(j, j) }
		b.AddConstraint(fmt.Sprintf("self(%s)", cj), fm.xOver(fm.x, self), model.Eq, 0)
	}
}

// addLinking ties Y to X per pooled edge and Z to the Y of its pair.
func (fm *Formulation) addLinking(b *model.Builder) {
	m := fm.BigM
	count := float64(fm.k * fm.p)
	for i, ci := range fm.cur {
		for j, cj := range fm.cur {
			var ys []model.VarID
			for k, ex := range fm.exch {
				if !fm.Graph.HasPool(ex, ci, cj) {
					continue
				}
				for p := range fm.p {
					at := fm.flat(i, j, k, p)
					tag := fmt.Sprintf("(%s,%s,%s,%d)", ci, cj, ex, p)
					b.AddConstraint("link_lo"+tag, model.Lin(model.T(1, fm.y[at]), model.T(-m, fm.x[at])), model.LessEq, 0)
					b.AddConstraint("link_hi"+tag, model.Lin(model.T(1, fm.x[at]), model.T(-m, fm.y[at])), model.LessEq, 0)
					ys = append(ys, fm.y[at])
				}
			}

			// Z(i,j) = OR of its Y, exact for binaries
			tag := fmt.Sprintf("(%s,%s)", ci, cj)
			z := fm.z[i*fm.n+j]
			lo := model.Sum(-1, ys...)
			lo.Add(1, z)
			b.AddConstraint("agg_lo"+tag, lo, model.LessEq, 0)
			hi := model.Sum(1, ys...)
			hi.Add(-count, z)
			b.AddConstraint("agg_hi"+tag, hi, model.LessEq, 0)
		}
	}
}

// addMTZ forbids directed cycles of used pairs.
func (fm *Formulation) addMTZ(b *model.Builder) {
	m := fm.BigM
	for i, ci := range fm.cur {
		for j, cj := range fm.cur {
			e := model.Lin(model.T(1, fm.u[i]), model.T(-1, fm.u[j]), model.T(m, fm.z[i*fm.n+j]))
			if i == j {
				// U terms cancel
				e = model.Lin(model.T(m, fm.z[i*fm.n+j]))
			}
			b.AddConstraint(fmt.Sprintf("mtz(%s,%s)", ci, cj), e, model.LessEq, m-1)
		}
	}
}

// addFeeBudget sums B1*Y + B2*X over every pooled edge and split.
func (fm *Formulation) addFeeBudget(b *model.Builder) error {
	var e model.Expr
	for i, ci := range fm.cur {
		for j, cj := range fm.cur {
			for k, ex := range fm.exch {
				if !fm.Graph.HasPool(ex, ci, cj) {
					continue
				}
				b1, err := fm.Graph.FixedFee(ex, ci, cj)
				if err != nil {
					return err
				}
				b2, err := fm.Graph.ProportionalFee(ex, ci, cj)
				if err != nil {
					return err
				}
				for p := range fm.p {
					at := fm.flat(i, j, k, p)
					if b1 != 0 {
						e.Add(b1, fm.y[at])
					}
					if b2 != 0 {
						e.Add(b2, fm.x[at])
					}
				}
			}
		}
	}
	b.AddConstraint("fee_budget", e, model.LessEq, fm.Graph.FeeBudget())

	return nil
}

// addBoundCuts caps the outflow of each mid-currency by its total reserve.
func (fm *Formulation) addBoundCuts(b *model.Builder) {
	for _, c := range fm.Graph.MidCurrencies() {
		i, _ := fm.Graph.CurrencyIndex(c)
		e := fm.xOver(fm.x, func(yield func(i, j int)) {
			for j := range fm.n {
				yield(i, j)
			}
		})
		b.AddConstraint(fmt.Sprintf("cut(%s)", c), e, model.LessEq, fm.Graph.TotalReserve(c))
	}
}

// addGas writes G = G1Fee + G2Fee with G1Fee = G1*ΣY and G2Fee = G2*Σ R(j)*F.
// Outputs in currencies without a rate are left out of G2Fee.
func (fm *Formulation) addGas(b *model.Builder) {
	gas := fm.Options.Gas
	g, g1, g2 := fm.g[0], fm.g[1], fm.g[2]
	b.AddConstraint("gas", model.Lin(model.T(1, g), model.T(-1, g1), model.T(-1, g2)), model.Eq, 0)

	e1 := model.Lin(model.T(1, g1))
	e2 := model.Lin(model.T(1, g2))
	for j, cj := range fm.cur {
		rate, ok := fm.Graph.Rate(cj)
		for i, ci := range fm.cur {
			for k, ex := range fm.exch {
				if !fm.Graph.HasPool(ex, ci, cj) {
					continue
				}
				for p := range fm.p {
					at := fm.flat(i, j, k, p)
					e1.Add(-gas.G1, fm.y[at])
					if ok {
						e2.Add(-gas.G2*rate, fm.f[at])
					}
				}
			}
		}
	}
	b.AddConstraint("gas1", e1, model.Eq, 0)
	b.AddConstraint("gas2", e2, model.Eq, 0)
}

// setObjective maximizes the delivered amount, minus Beta*G with gas fees on.
func (fm *Formulation) setObjective(b *model.Builder) {
	d, _ := fm.Graph.CurrencyIndex(fm.Graph.Target())
	alpha := 1.0
	if fm.Options.Gas.Enabled {
		alpha = fm.Options.Gas.Alpha
	}

	var e model.Expr
	for i := range fm.n {
		for k := range fm.k {
			for p := range fm.p {
				e.Add(alpha, fm.f[fm.flat(i, d, k, p)])
			}
		}
	}
	if fm.Options.Gas.Enabled {
		e.Add(-fm.Options.Gas.Beta, fm.g[0])
	}
	b.SetObjective(e, model.Maximize)
}
