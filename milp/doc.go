// Package milp builds the mixed-integer formulation of the AMM routing
// problem and interprets engine answers for it.
//
// What:
//
//	Maximize the amount of the target currency d obtained from T0 units of
//	the source currency o, routing through constant-product pools.
//
//	Variables, one per (i, j, k, p) for currencies i, j, exchange k and
//	split p (P splits, default 1):
//	  X  input of i sent to pool (i,j) at k          continuous >= 0
//	  F  output of j produced by that conversion      continuous >= 0
//	  Y  "edge used" indicator                        binary
//	and per pair / currency:
//	  Z(i,j)  pair used by any exchange               binary
//	  U(i)    MTZ potential                           continuous [0, |C|-1]
//	  G, G1Fee, G2Fee  gas fee terms                  continuous >= 0 (optional)
//
// Rows:
//
//	amm     F*(s_ki + X) = s_kj*X, written s_ki*F + F*X - s_kj*X = 0
//	nopool  F = 0 where (i,j) has no pool at k (X, F, Y also fixed to 0)
//	src_in, src_out, dst_out, cons(j), self(j)   flow balance
//	link_lo, link_hi   Y <= M*X, X <= M*Y
//	agg_lo, agg_hi     Z <= ΣY, ΣY <= |K|*P*Z
//	mtz                U(i) - U(j) + M*Z(i,j) <= M - 1
//	fee_budget         Σ B1*Y + B2*X <= limit (all splits, unnormalized)
//	cut(i)             ΣX(i,·,·,·) <= total reserve of i
//	gas, gas1, gas2    G = G1Fee + G2Fee, G1Fee = G1*ΣY, G2Fee = G2*Σ R(j)*F
//
// Big-M is derived per instance unless overridden (see DeriveBigM): from T0,
// the largest total reserve and the currency count when the cut rows are on,
// and from the pooled stock flowing into each mid-currency when they are off.
//
// Solve hands the model to a solver.MILPSolver; anything but an optimal
// verdict is an error wrapping ErrNotOptimal.
package milp
