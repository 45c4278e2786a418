package model

import "slices"

// VarID identifies a variable inside one Model. IDs are dense: 0..NumVars-1.
type VarID int

// Term is a linear term Coef·x[Var].
type Term struct {
	Coef float64
	Var  VarID
}

// QuadTerm is a bilinear term Coef·x[A]·x[B].
type QuadTerm struct {
	Coef float64
	A, B VarID
}

// Expr is Σ Linear + Σ Quad + Constant.
// The zero value is the constant 0 and is ready to use.
type Expr struct {
	Linear   []Term
	Quad     []QuadTerm
	Constant float64
}

// Lin builds a linear expression from terms.
func Lin(terms ...Term) Expr {
	return Expr{Linear: slices.Clone(terms)}
}

// T is shorthand for Term{Coef: c, Var: v}.
func T(c float64, v VarID) Term { return Term{Coef: c, Var: v} }

// Add appends c·v to e in place and returns e for chaining.
func (e *Expr) Add(c float64, v VarID) *Expr {
	e.Linear = append(e.Linear, Term{Coef: c, Var: v})
	return e
}

// AddQuad appends c·a·b in place.
func (e *Expr) AddQuad(c float64, a, b VarID) *Expr {
	e.Quad = append(e.Quad, QuadTerm{Coef: c, A: a, B: b})
	return e
}

// AddConst adds c to the constant part.
func (e *Expr) AddConst(c float64) *Expr {
	e.Constant += c
	return e
}

// AddExpr appends every term of o scaled by s.
func (e *Expr) AddExpr(s float64, o Expr) *Expr {
	for _, t := range o.Linear {
		e.Linear = append(e.Linear, Term{Coef: s * t.Coef, Var: t.Var})
	}
	for _, q := range o.Quad {
		e.Quad = append(e.Quad, QuadTerm{Coef: s * q.Coef, A: q.A, B: q.B})
	}
	e.Constant += s * o.Constant

	return e
}

// Sum returns Σ coef·v over vars.
func Sum(coef float64, vars ...VarID) Expr {
	e := Expr{Linear: make([]Term, len(vars))}
	for i, v := range vars {
		e.Linear[i] = Term{Coef: coef, Var: v}
	}

	return e
}

// IsQuadratic reports whether e has bilinear terms.
func (e Expr) IsQuadratic() bool { return len(e.Quad) > 0 }

// Eval computes e at x. x must cover every referenced variable.
func (e Expr) Eval(x []float64) float64 {
	v := e.Constant
	for _, t := range e.Linear {
		v += t.Coef * x[t.Var]
	}
	for _, q := range e.Quad {
		v += q.Coef * x[q.A] * x[q.B]
	}

	return v
}

// clone returns a deep copy of e.
func (e Expr) clone() Expr {
	return Expr{
		Linear:   slices.Clone(e.Linear),
		Quad:     slices.Clone(e.Quad),
		Constant: e.Constant,
	}
}

// maxVar returns the largest variable id referenced by e, or -1.
func (e Expr) maxVar() VarID {
	m := VarID(-1)
	for _, t := range e.Linear {
		m = max(m, t.Var)
	}
	for _, q := range e.Quad {
		m = max(m, q.A, q.B)
	}

	return m
}

// minVar returns the smallest variable id referenced by e, or 0.
func (e Expr) minVar() VarID {
	m := VarID(0)
	for _, t := range e.Linear {
		m = min(m, t.Var)
	}
	for _, q := range e.Quad {
		m = min(m, q.A, q.B)
	}

	return m
}
