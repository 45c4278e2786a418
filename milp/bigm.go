package milp

import (
	"math"

	"github.com/katalvlaran/ammroute/exchange"
)

// DeriveBigM returns ceil(bound * (1 + opts.BigMMargin)), where bound
// dominates every feasible X and the MTZ potential range |C|.
//
// Source outflow is exactly T0 and the target sends nothing. A mid-currency
// j sends what it receives, and each pooled (i,j,k,p) delivers less than
// stock(k,j), so its outflow is below P·Σ_{i,k: pool} stock(k,j). Every split
// prices against the full pool, so this exceeds TotalReserve(j) in general.
// With opts.BoundCuts the cut rows cap mid outflow at TotalReserve, and the
// bound is max(T0, max_c TotalReserve(c), |C|).
// Complexity: O(N²·K).
func DeriveBigM(g *exchange.Graph, opts Options) float64 {
	base := math.Max(g.Quantity(), float64(g.NumCurrencies()))
	if opts.BoundCuts {
		for _, c := range g.Currencies() {
			base = math.Max(base, g.TotalReserve(c))
		}
	} else {
		base = math.Max(base, inflowBound(g, max(opts.Splits, 1)))
	}

	// round away representation noise (100 * 1.1 = 110.00000000000001) before ceil
	v := math.Round(base*(1+opts.BigMMargin)*1e9) / 1e9

	return math.Ceil(v)
}

// inflowBound is max over mid-currencies j of splits·Σ_{i,k: pool} stock(k,j).
func inflowBound(g *exchange.Graph, splits int) float64 {
	bound := 0.0
	for _, j := range g.MidCurrencies() {
		in := 0.0
		for _, k := range g.Exchanges() {
			sj, err := g.Stock(k, j)
			if err != nil {
				continue
			}
			for _, i := range g.Currencies() {
				if i != j && g.HasPool(k, i, j) {
					in += sj
				}
			}
		}
		bound = math.Max(bound, float64(splits)*in)
	}

	return bound
}
