// Package model is the solver-neutral intermediate representation of a
// mixed-integer program with linear and bilinear terms.
//
// A Builder collects variable declarations, constraints and one objective and
// freezes them into an immutable *Model. Solver adapters consume a *Model by
// reference; nothing in this package keeps global "current model" state.
//
// What:
//
//   - Var:        continuous or binary, with lower/upper bounds
//   - Expr:       Σ cᵢ·xᵢ + Σ qₖ·xₐ·x_b + constant
//   - Constraint: Expr (=, <=, >=) rhs, named
//   - Objective:  Expr with a Minimize/Maximize sense
//   - Model:      evaluation, feasibility report, statistics
//   - LP I/O:     WriteLP (CPLEX LP with [ a * b ] quadratic sections),
//     WriteMST (MIP start), ParseSolution (.sol files)
//
// Builder errors are sticky: the first invalid declaration is remembered,
// later calls become no-ops and Build reports it. This keeps long model
// construction loops free of per-call error plumbing.
//
// Complexity:
//
//   - Eval of an expression: O(terms)
//   - Violations:            O(nonzeros + vars)
//   - WriteLP:               O(nonzeros + vars)
package model
