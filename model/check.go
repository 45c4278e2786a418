package model

import (
	"fmt"
	"math"
	"sort"
)

// Violation describes one unsatisfied row, bound or integrality requirement.
type Violation struct {
	Name   string  // constraint or variable name
	Kind   string  // "constraint", "bound" or "integrality"
	Amount float64 // distance to feasibility
}

// Violations lists everything x violates by more than tol, worst first.
// Stage 1 (Validate): assignment length.
// Stage 2 (Execute): bounds and integrality per variable, then every row.
// Stage 3 (Finalize): sort by decreasing amount, then by name.
// Complexity: O(nonzeros + vars + v·log v).
func (m *Model) Violations(x []float64, tol float64) ([]Violation, error) {
	if len(x) != len(m.vars) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrAssignmentSize, len(x), len(m.vars))
	}

	var out []Violation
	for _, v := range m.vars {
		val := x[v.ID]
		if d := math.Max(v.Lower-val, val-v.Upper); d > tol {
			out = append(out, Violation{Name: v.Name, Kind: "bound", Amount: d})
		}
		if v.Kind == Binary {
			if d := math.Abs(val - math.Round(val)); d > tol {
				out = append(out, Violation{Name: v.Name, Kind: "integrality", Amount: d})
			}
		}
	}
	for _, c := range m.cons {
		if d := c.Violation(x); d > tol {
			out = append(out, Violation{Name: c.Name, Kind: "constraint", Amount: d})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})

	return out, nil
}

// Feasible reports whether x satisfies every bound, integrality and row within tol.
func (m *Model) Feasible(x []float64, tol float64) (bool, error) {
	v, err := m.Violations(x, tol)
	if err != nil {
		return false, err
	}

	return len(v) == 0, nil
}

// Stats summarizes model size.
type Stats struct {
	Vars        int
	Continuous  int
	Binary      int
	Fixed       int
	Constraints int
	Quadratic   int // rows with at least one bilinear term
	Nonzeros    int // linear plus bilinear terms over all rows
}

// Stats returns size counters for logging and metrics.
func (m *Model) Stats() Stats {
	s := Stats{Vars: len(m.vars), Constraints: len(m.cons)}
	for _, v := range m.vars {
		if v.Kind == Binary {
			s.Binary++
		} else {
			s.Continuous++
		}
		if v.Fixed() {
			s.Fixed++
		}
	}
	for _, c := range m.cons {
		if c.Expr.IsQuadratic() {
			s.Quadratic++
		}
		s.Nonzeros += len(c.Expr.Linear) + len(c.Expr.Quad)
	}

	return s
}
