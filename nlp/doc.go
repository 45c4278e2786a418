// Package nlp builds the continuous formulation of the AMM routing problem
// and drives a local NLP solver over it from several starting points.
//
// The variable vector is the flat flow layout X[i,j,k] at k*N*N + j*N + i
// (shared with milp.FlowIndex). With Options.Acyclic a surrogate Z[i,j] in
// [0,1] is appended at N*N*K + i*N + j.
//
// F is eliminated by substituting the AMM output s_kj*x/(s_ki+x), so the
// problem is
//
//	minimize  -Σ_{i,k} s_kd*X[i,d,k]/(s_ki+X[i,d,k])
//	s.t.      conservation, source, target and self-loop equalities
//	          linking and cycle inequalities (Acyclic only)
//	          0 <= X (X = 0 without a pool), 0 <= Z <= 1
//
// Every residual comes with its exact Jacobian as a *matrix.Dense; finite
// differences appear only in tests.
//
// The AMM rows make the problem non-convex, so a local solver lands in the
// optimum nearest its start. Run solves from every start, reports each
// attempt and keeps the most recent success.
package nlp
