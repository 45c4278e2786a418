package nlp

import (
	"github.com/katalvlaran/ammroute/matrix"
)

// out is the AMM output of sending v units of i to pool (i,j) at k.
func (p *Problem) out(i, j, k int, v float64) float64 {
	si, sj := p.stock[k*p.n+i], p.stock[k*p.n+j]

	return sj * v / (si + v)
}

// slope is d out / d v = s_ki*s_kj/(s_ki+v)².
func (p *Problem) slope(i, j, k int, v float64) float64 {
	si, sj := p.stock[k*p.n+i], p.stock[k*p.n+j]
	den := si + v

	return si * sj / (den * den)
}

// Objective is the negated amount of target currency delivered.
func (p *Problem) Objective(x []float64) float64 {
	total := 0.0
	for k := range p.k {
		for i := range p.n {
			if at := p.XIndex(i, p.d, k); p.pool[at] {
				total += p.out(i, p.d, k, x[at])
			}
		}
	}

	return -total
}

// Gradient is the analytic gradient of Objective.
func (p *Problem) Gradient(x []float64) []float64 {
	g := make([]float64, len(x))
	for k := range p.k {
		for i := range p.n {
			if at := p.XIndex(i, p.d, k); p.pool[at] {
				g[at] = -p.slope(i, p.d, k, x[at])
			}
		}
	}

	return g
}

// Conservation returns, per mid-currency j, the AMM output produced into j
// minus the input sent out of j.
func (p *Problem) Conservation(x []float64) []float64 {
	r := make([]float64, len(p.mids))
	for row, j := range p.mids {
		for k := range p.k {
			for i := range p.n {
				if at := p.XIndex(i, j, k); p.pool[at] {
					r[row] += p.out(i, j, k, x[at])
				}
				r[row] -= x[p.XIndex(j, i, k)]
			}
		}
	}

	return r
}

// ConservationJac is the Jacobian of Conservation.
func (p *Problem) ConservationJac(x []float64) (*matrix.Dense, error) {
	jac, err := matrix.NewDense(len(p.mids), len(x))
	if err != nil {
		return nil, err
	}
	for row, j := range p.mids {
		for k := range p.k {
			for i := range p.n {
				if at := p.XIndex(i, j, k); p.pool[at] {
					if err = jac.Add(row, at, p.slope(i, j, k, x[at])); err != nil {
						return nil, err
					}
				}
				if err = jac.Add(row, p.XIndex(j, i, k), -1); err != nil {
					return nil, err
				}
			}
		}
	}

	return jac, nil
}

// sumRow adds Σ_k x[i,j,k] over the (i,j) pairs yielded by pairs.
func (p *Problem) sumRow(x []float64, pairs func(yield func(i, j int))) float64 {
	s := 0.0
	pairs(func(i, j int) {
		for k := range p.k {
			s += x[p.XIndex(i, j, k)]
		}
	})

	return s
}

// onesRow sets 1 at every X[i,j,k] of the yielded pairs in row r.
func (p *Problem) onesRow(jac *matrix.Dense, r int, pairs func(yield func(i, j int))) error {
	var err error
	pairs(func(i, j int) {
		for k := range p.k {
			if err == nil {
				err = jac.Set(r, p.XIndex(i, j, k), 1)
			}
		}
	})

	return err
}

func (p *Problem) into(j int) func(func(i, j int)) {
	return func(yield func(i, j int)) {
		for i := range p.n {
			yield(i, j)
		}
	}
}

func (p *Problem) outOf(i int) func(func(i, j int)) {
	return func(yield func(i, j int)) {
		for j := range p.n {
			yield(i, j)
		}
	}
}

// Source returns [inflow into o, outflow from o - T0].
func (p *Problem) Source(x []float64) []float64 {
	return []float64{
		p.sumRow(x, p.into(p.o)),
		p.sumRow(x, p.outOf(p.o)) - p.Graph.Quantity(),
	}
}

// SourceJac is the 0/1 Jacobian of Source.
func (p *Problem) SourceJac(x []float64) (*matrix.Dense, error) {
	jac, err := matrix.NewDense(2, len(x))
	if err != nil {
		return nil, err
	}
	if err = p.onesRow(jac, 0, p.into(p.o)); err != nil {
		return nil, err
	}
	if err = p.onesRow(jac, 1, p.outOf(p.o)); err != nil {
		return nil, err
	}

	return jac, nil
}

// Target returns [outflow from d].
func (p *Problem) Target(x []float64) []float64 {
	return []float64{p.sumRow(x, p.outOf(p.d))}
}

// TargetJac is the 0/1 Jacobian of Target.
func (p *Problem) TargetJac(x []float64) (*matrix.Dense, error) {
	jac, err := matrix.NewDense(1, len(x))
	if err != nil {
		return nil, err
	}
	if err = p.onesRow(jac, 0, p.outOf(p.d)); err != nil {
		return nil, err
	}

	return jac, nil
}

func (p *Problem) self(j int) func(func(i, j int)) {
	return func(yield func(i, j int)) { yield(j, j) }
}

// SelfLoops returns Σ_k X[j,j,k] per currency j.
func (p *Problem) SelfLoops(x []float64) []float64 {
	r := make([]float64, p.n)
	for j := range p.n {
		r[j] = p.sumRow(x, p.self(j))
	}

	return r
}

// SelfLoopsJac is the 0/1 Jacobian of SelfLoops.
func (p *Problem) SelfLoopsJac(x []float64) (*matrix.Dense, error) {
	jac, err := matrix.NewDense(p.n, len(x))
	if err != nil {
		return nil, err
	}
	for j := range p.n {
		if err = p.onesRow(jac, j, p.self(j)); err != nil {
			return nil, err
		}
	}

	return jac, nil
}

// Acyclicity returns the surrogate rows, all required to be >= 0:
//
//	M*Σ_k X[i,j,k] - Z[i,j]    for every pair (i,j)
//	M*Z[i,j] - Σ_k X[i,j,k]    for every pair (i,j)
//	(|C|-1) - Σ_{(i,j) in C} Z[i,j]   for every enumerated cycle C
//
// It must only be called when Options.Acyclic is set.
func (p *Problem) Acyclicity(x []float64) []float64 {
	nn := p.n * p.n
	r := make([]float64, 2*nn+len(p.cycle))
	for i := range p.n {
		for j := range p.n {
			pair := func(yield func(i, j int)) { yield(i, j) }
			s := p.sumRow(x, pair)
			z := x[p.ZIndex(i, j)]
			r[i*p.n+j] = p.BigM*s - z
			r[nn+i*p.n+j] = p.BigM*z - s
		}
	}
	for c, edges := range p.cycle {
		v := float64(len(edges) - 1)
		for _, e := range edges {
			v -= x[p.ZIndex(e[0], e[1])]
		}
		r[2*nn+c] = v
	}

	return r
}

// AcyclicityJac is the constant Jacobian of Acyclicity.
func (p *Problem) AcyclicityJac(x []float64) (*matrix.Dense, error) {
	nn := p.n * p.n
	jac, err := matrix.NewDense(2*nn+len(p.cycle), len(x))
	if err != nil {
		return nil, err
	}
	set := func(r, c int, v float64) {
		if err == nil {
			err = jac.Set(r, c, v)
		}
	}
	for i := range p.n {
		for j := range p.n {
			lo, hi := i*p.n+j, nn+i*p.n+j
			for k := range p.k {
				set(lo, p.XIndex(i, j, k), p.BigM)
				set(hi, p.XIndex(i, j, k), -1)
			}
			set(lo, p.ZIndex(i, j), -1)
			set(hi, p.ZIndex(i, j), p.BigM)
		}
	}
	for c, edges := range p.cycle {
		for _, e := range edges {
			set(2*nn+c, p.ZIndex(e[0], e[1]), -1)
		}
	}
	if err != nil {
		return nil, err
	}

	return jac, nil
}
