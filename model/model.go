package model

import (
	"fmt"
	"math"
	"slices"
)

// VarKind distinguishes continuous from binary variables.
type VarKind int

const (
	// Continuous variables take any value within their bounds.
	Continuous VarKind = iota
	// Binary variables take 0 or 1.
	Binary
)

// String returns "continuous" or "binary".
func (k VarKind) String() string {
	if k == Binary {
		return "binary"
	}
	return "continuous"
}

// Var is a declared decision variable.
type Var struct {
	ID    VarID
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Fixed reports whether the bounds pin the variable to one value.
func (v Var) Fixed() bool { return v.Lower == v.Upper }

// Relation is the comparison of a constraint.
type Relation int

const (
	// Eq is expr == rhs.
	Eq Relation = iota
	// LessEq is expr <= rhs.
	LessEq
	// GreaterEq is expr >= rhs.
	GreaterEq
)

// String returns the LP-format operator.
func (r Relation) String() string {
	switch r {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	default:
		return "="
	}
}

// Constraint is Expr Rel RHS.
type Constraint struct {
	Name string
	Expr Expr
	Rel  Relation
	RHS  float64
}

// Violation returns how far x is from satisfying c (0 when satisfied).
func (c Constraint) Violation(x []float64) float64 {
	lhs := c.Expr.Eval(x)
	switch c.Rel {
	case LessEq:
		return math.Max(0, lhs-c.RHS)
	case GreaterEq:
		return math.Max(0, c.RHS-lhs)
	default:
		return math.Abs(lhs - c.RHS)
	}
}

// Sense is the optimization direction.
type Sense int

const (
	// Minimize the objective.
	Minimize Sense = iota
	// Maximize the objective.
	Maximize
)

// String returns "Minimize" or "Maximize".
func (s Sense) String() string {
	if s == Maximize {
		return "Maximize"
	}
	return "Minimize"
}

// Objective is an expression with a sense.
type Objective struct {
	Expr  Expr
	Sense Sense
}

// Builder accumulates a model. The zero value is not usable; call NewBuilder.
type Builder struct {
	name    string
	vars    []Var
	cons    []Constraint
	obj     Objective
	varName map[string]VarID
	conName map[string]int
	err     error
}

// NewBuilder returns an empty builder for a model called name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:    name,
		varName: make(map[string]VarID),
		conName: make(map[string]int),
	}
}

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// AddVar declares a variable and returns its id.
// Binary variables get their bounds clamped into [0,1].
// After an error AddVar returns -1 and records nothing.
func (b *Builder) AddVar(name string, kind VarKind, lower, upper float64) VarID {
	if b.err != nil {
		return -1
	}
	if name == "" {
		b.fail(fmt.Errorf("variable #%d: %w", len(b.vars), ErrEmptyName))
		return -1
	}
	if _, dup := b.varName[name]; dup {
		b.fail(fmt.Errorf("variable %q: %w", name, ErrDuplicateName))
		return -1
	}
	if kind == Binary {
		lower, upper = math.Max(lower, 0), math.Min(upper, 1)
	}
	if math.IsNaN(lower) || math.IsNaN(upper) || lower > upper {
		b.fail(fmt.Errorf("variable %q [%g, %g]: %w", name, lower, upper, ErrInvalidBounds))
		return -1
	}

	id := VarID(len(b.vars))
	b.vars = append(b.vars, Var{ID: id, Name: name, Kind: kind, Lower: lower, Upper: upper})
	b.varName[name] = id

	return id
}

// AddConstraint appends a named constraint.
func (b *Builder) AddConstraint(name string, e Expr, rel Relation, rhs float64) {
	if b.err != nil {
		return
	}
	if name == "" {
		b.fail(fmt.Errorf("constraint #%d: %w", len(b.cons), ErrEmptyName))
		return
	}
	if _, dup := b.conName[name]; dup {
		b.fail(fmt.Errorf("constraint %q: %w", name, ErrDuplicateName))
		return
	}
	if err := b.checkExpr(e); err != nil {
		b.fail(fmt.Errorf("constraint %q: %w", name, err))
		return
	}
	if math.IsNaN(rhs) || math.IsInf(rhs, 0) {
		b.fail(fmt.Errorf("constraint %q rhs %g: %w", name, rhs, ErrNonFinite))
		return
	}

	b.conName[name] = len(b.cons)
	b.cons = append(b.cons, Constraint{Name: name, Expr: e.clone(), Rel: rel, RHS: rhs})
}

// SetObjective replaces the objective.
func (b *Builder) SetObjective(e Expr, s Sense) {
	if b.err != nil {
		return
	}
	if err := b.checkExpr(e); err != nil {
		b.fail(fmt.Errorf("objective: %w", err))
		return
	}
	b.obj = Objective{Expr: e.clone(), Sense: s}
}

func (b *Builder) checkExpr(e Expr) error {
	if e.minVar() < 0 || int(e.maxVar()) >= len(b.vars) {
		return ErrUnknownVariable
	}
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	if !finite(e.Constant) {
		return ErrNonFinite
	}
	for _, t := range e.Linear {
		if !finite(t.Coef) {
			return ErrNonFinite
		}
	}
	for _, q := range e.Quad {
		if !finite(q.Coef) {
			return ErrNonFinite
		}
	}

	return nil
}

// Build freezes the builder into a Model.
// The builder must not be used afterwards.
func (b *Builder) Build() (*Model, error) {
	if b.err != nil {
		return nil, b.err
	}
	m := &Model{
		name:    b.name,
		vars:    b.vars,
		cons:    b.cons,
		obj:     b.obj,
		varName: b.varName,
		conName: b.conName,
	}
	m.lpNames = lpNames(m.vars)
	*b = Builder{err: fmt.Errorf("model: builder already built")}

	return m, nil
}

// Model is an immutable mixed-integer program.
type Model struct {
	name    string
	vars    []Var
	cons    []Constraint
	obj     Objective
	varName map[string]VarID
	conName map[string]int
	lpNames []string
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// NumVars returns the number of variables.
func (m *Model) NumVars() int { return len(m.vars) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.cons) }

// Var returns the declaration of id.
func (m *Model) Var(id VarID) Var { return m.vars[id] }

// Vars returns a copy of all declarations.
func (m *Model) Vars() []Var { return slices.Clone(m.vars) }

// Lookup finds a variable by name.
func (m *Model) Lookup(name string) (VarID, bool) {
	id, ok := m.varName[name]
	return id, ok
}

// Constraint returns a deep copy of constraint i.
func (m *Model) Constraint(i int) Constraint {
	c := m.cons[i]
	c.Expr = c.Expr.clone()

	return c
}

// FindConstraint returns the constraint with the given name.
func (m *Model) FindConstraint(name string) (Constraint, bool) {
	i, ok := m.conName[name]
	if !ok {
		return Constraint{}, false
	}

	return m.Constraint(i), true
}

// Objective returns a deep copy of the objective.
func (m *Model) Objective() Objective {
	o := m.obj
	o.Expr = o.Expr.clone()

	return o
}

// ObjectiveValue evaluates the objective at x.
func (m *Model) ObjectiveValue(x []float64) (float64, error) {
	if len(x) != len(m.vars) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrAssignmentSize, len(x), len(m.vars))
	}

	return m.obj.Expr.Eval(x), nil
}
