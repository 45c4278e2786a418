package nlp

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/milp"
	"github.com/katalvlaran/ammroute/route"
	"github.com/katalvlaran/ammroute/solver"
)

// DefaultMaxCycleLen caps the length of enumerated cycles for the surrogate rows.
const DefaultMaxCycleLen = 4

// Options configures Build and Run.
type Options struct {
	// Acyclic appends the Z surrogate and its inequality rows.
	Acyclic bool

	// BigM overrides the derived linking constant when > 0.
	BigM float64

	// BigMMargin is the relative slack of the derived constant.
	BigMMargin float64

	// MaxCycleLen bounds the cycles turned into rows; <= 0 means unbounded.
	MaxCycleLen int

	// Tol is handed to the local solver.
	Tol float64

	// MaxIter is handed to the local solver; 0 lets it pick.
	MaxIter int

	Logger *slog.Logger
}

// DefaultOptions returns no surrogate, cycles up to length 4 and tolerance 1e-8.
func DefaultOptions() Options {
	return Options{
		BigMMargin:  milp.DefaultBigMMargin,
		MaxCycleLen: DefaultMaxCycleLen,
		Tol:         1e-8,
	}
}

// Validate checks Options without looking at a graph.
func (o Options) Validate() error {
	switch {
	case o.BigM < 0 || math.IsNaN(o.BigM) || math.IsInf(o.BigM, 0):
		return fmt.Errorf("%w: big-M %g", ErrBadOptions, o.BigM)
	case o.BigMMargin < 0 || math.IsNaN(o.BigMMargin) || math.IsInf(o.BigMMargin, 0):
		return fmt.Errorf("%w: big-M margin %g", ErrBadOptions, o.BigMMargin)
	case o.Tol < 0 || math.IsNaN(o.Tol):
		return fmt.Errorf("%w: tolerance %g", ErrBadOptions, o.Tol)
	case o.MaxIter < 0:
		return fmt.Errorf("%w: max iterations %d", ErrBadOptions, o.MaxIter)
	}

	return nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return o.Logger
}

// Problem is the built continuous formulation. It is immutable and its
// functions are safe for concurrent use.
type Problem struct {
	Graph   *exchange.Graph
	Options Options
	BigM    float64
	Cycles  [][]exchange.Currency // cycles of the pool graph turned into rows

	cur   []exchange.Currency
	exch  []string
	n, k  int
	o, d  int
	mids  []int
	stock []float64 // k*n + i → stock(k, i), 0 when absent
	pool  []bool    // flow index → pool exists
	numX  int
	cycle [][][2]int // cycle rows as (i,j) index pairs
}

// Build prepares the continuous formulation for g.
// Stage 1 (Validate): options and derived big-M.
// Stage 2 (Prepare): stock table and pool mask in flow layout.
// Stage 3 (Execute): cycle enumeration on the pool graph when Acyclic.
// Complexity: O(N²·K) plus cycle enumeration.
func Build(ctx context.Context, g *exchange.Graph, opts Options) (*Problem, error) {
	ctx, span := tracer().Start(ctx, "nlp.build")
	defer span.End()

	p, err := build(ctx, g, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("vars", p.NumVars()),
		attribute.Int("cycles", len(p.Cycles)),
		attribute.Bool("acyclic", opts.Acyclic),
	)
	recordModelSize(ctx, p.NumVars(), p.numEq()+p.numIneq())
	opts.logger().Debug("nlp problem built",
		"vars", p.NumVars(), "equalities", p.numEq(), "inequalities", p.numIneq(), "cycles", len(p.Cycles))

	return p, nil
}

func build(ctx context.Context, g *exchange.Graph, opts Options) (*Problem, error) {
	// 1) Validate
	if g == nil {
		return nil, ErrNilGraph
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Tol == 0 {
		opts.Tol = DefaultOptions().Tol
	}

	p := &Problem{
		Graph:   g,
		Options: opts,
		BigM:    milp.DeriveBigM(g, milp.Options{Splits: 1, BigMMargin: opts.BigMMargin}),
		cur:     g.Currencies(),
		exch:    g.Exchanges(),
	}
	if opts.BigM > 0 {
		p.BigM = opts.BigM
	}
	p.n, p.k = len(p.cur), len(p.exch)
	p.numX = p.n * p.n * p.k
	p.o, _ = g.CurrencyIndex(g.Source())
	p.d, _ = g.CurrencyIndex(g.Target())
	for _, c := range g.MidCurrencies() {
		i, _ := g.CurrencyIndex(c)
		p.mids = append(p.mids, i)
	}

	// 2) Stocks and pools
	p.stock = make([]float64, p.k*p.n)
	p.pool = make([]bool, p.numX)
	for k, ex := range p.exch {
		for i, ci := range p.cur {
			if s, err := g.Stock(ex, ci); err == nil {
				p.stock[k*p.n+i] = s
			}
			for j, cj := range p.cur {
				p.pool[p.XIndex(i, j, k)] = g.HasPool(ex, ci, cj)
			}
		}
	}

	// 3) Surrogate cycles
	if opts.Acyclic {
		cycles, err := route.Cycles(ctx, route.PoolGraph(g), opts.MaxCycleLen)
		if err != nil {
			return nil, fmt.Errorf("nlp: cycles: %w", err)
		}
		p.Cycles = cycles
		for _, c := range cycles {
			row := make([][2]int, 0, len(c)-1)
			for e := 0; e+1 < len(c); e++ {
				i, _ := g.CurrencyIndex(c[e])
				j, _ := g.CurrencyIndex(c[e+1])
				row = append(row, [2]int{i, j})
			}
			p.cycle = append(p.cycle, row)
		}
	}

	return p, nil
}

// XIndex is the position of X[i,j,k].
func (p *Problem) XIndex(i, j, k int) int { return milp.FlowIndex(p.n, i, j, k) }

// ZIndex is the position of Z[i,j]; meaningful only with Options.Acyclic.
func (p *Problem) ZIndex(i, j int) int { return p.numX + i*p.n + j }

// NumX returns the number of flow variables.
func (p *Problem) NumX() int { return p.numX }

// NumVars returns the length of the variable vector.
func (p *Problem) NumVars() int {
	if p.Options.Acyclic {
		return p.numX + p.n*p.n
	}

	return p.numX
}

// Bounds returns X in [0,+inf) where a pool exists and [0,0] elsewhere,
// and Z in [0,1].
func (p *Problem) Bounds() []solver.Bound {
	b := make([]solver.Bound, p.NumVars())
	for at := range p.numX {
		if p.pool[at] {
			b[at] = solver.Bound{Lower: 0, Upper: math.Inf(1)}
		}
	}
	for at := p.numX; at < len(b); at++ {
		b[at] = solver.Bound{Lower: 0, Upper: 1}
	}

	return b
}

// Constraints returns the equality rows and, with Acyclic, the inequality rows.
func (p *Problem) Constraints() (eq, ineq []solver.Constraint) {
	eq = []solver.Constraint{
		{Name: "conservation", Fun: p.Conservation, Jac: p.ConservationJac},
		{Name: "source", Fun: p.Source, Jac: p.SourceJac},
		{Name: "target", Fun: p.Target, Jac: p.TargetJac},
		{Name: "self_loops", Fun: p.SelfLoops, Jac: p.SelfLoopsJac},
	}
	if p.Options.Acyclic {
		ineq = []solver.Constraint{
			{Name: "acyclic", Fun: p.Acyclicity, Jac: p.AcyclicityJac},
		}
	}

	return eq, ineq
}

// NLP assembles the solver input for one start.
func (p *Problem) NLP(x0 []float64, tol float64) solver.NLPProblem {
	eq, ineq := p.Constraints()
	if tol <= 0 {
		tol = p.Options.Tol
	}

	return solver.NLPProblem{
		Objective: p.Objective,
		Gradient:  p.Gradient,
		X0:        x0,
		Eq:        eq,
		Ineq:      ineq,
		Bounds:    p.Bounds(),
		Tol:       tol,
		MaxIter:   p.Options.MaxIter,
	}
}

func (p *Problem) numEq() int { return len(p.mids) + 2 + 1 + p.n }

func (p *Problem) numIneq() int {
	if !p.Options.Acyclic {
		return 0
	}

	return 2*p.n*p.n + len(p.cycle)
}

// Flows decodes x into conversions moving more than tol, in execution order.
func (p *Problem) Flows(x []float64, tol float64) []route.Flow {
	var flows []route.Flow
	for k, ex := range p.exch {
		for i, ci := range p.cur {
			for j, cj := range p.cur {
				at := p.XIndex(i, j, k)
				if !p.pool[at] || x[at] <= tol {
					continue
				}
				flows = append(flows, route.Flow{
					From: ci, To: cj, Exchange: ex,
					In: x[at], Out: p.out(i, j, k, x[at]),
				})
			}
		}
	}

	return route.Hops(flows, tol)
}

// Delivered returns the amount of target currency produced by x.
func (p *Problem) Delivered(x []float64) float64 { return -p.Objective(x) }
