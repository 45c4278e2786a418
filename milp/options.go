package milp

import (
	"fmt"
	"log/slog"
	"math"
)

// Default gas fee coefficients of the fee-aware objective.
const (
	DefaultG1 = 43
	DefaultG2 = 0.003

	// DefaultBigMMargin inflates the derived big-M bound by 10%.
	DefaultBigMMargin = 0.1
)

// GasOptions configures the two-part gas fee term of the objective.
type GasOptions struct {
	Enabled bool
	G1      float64 // cost per used edge
	G2      float64 // cost per unit of produced value, in target terms
	Alpha   float64 // weight of the delivered amount
	Beta    float64 // weight of the total fee G
}

// Options configures Build.
type Options struct {
	// Splits is the number P of parallel sub-flows per (i,j,k); at least 1.
	Splits int

	// BigM overrides the derived big-M when > 0.
	BigM float64

	// BigMMargin is the relative slack added to the derived bound.
	BigMMargin float64

	// BoundCuts adds ΣX(i,·) <= total reserve of i for every mid-currency.
	BoundCuts bool

	// FeeBudget enforces the graph fee budget when the graph has one.
	FeeBudget bool

	// CycleElimination adds the MTZ rows.
	CycleElimination bool

	Gas GasOptions

	// Logger receives build diagnostics; nil discards.
	Logger *slog.Logger
}

// DefaultOptions returns one split, derived big-M with a 10% margin, bound
// cuts, fee budget and cycle elimination on, gas fees off with G1 = 43,
// G2 = 0.003 and unit weights.
func DefaultOptions() Options {
	return Options{
		Splits:           1,
		BigMMargin:       DefaultBigMMargin,
		BoundCuts:        true,
		FeeBudget:        true,
		CycleElimination: true,
		Gas: GasOptions{
			G1:    DefaultG1,
			G2:    DefaultG2,
			Alpha: 1,
			Beta:  1,
		},
	}
}

// Validate checks Options without looking at a graph.
func (o Options) Validate() error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	switch {
	case o.Splits < 1:
		return fmt.Errorf("%w: splits %d < 1", ErrBadOptions, o.Splits)
	case o.BigM < 0 || !finite(o.BigM):
		return fmt.Errorf("%w: big-M %g", ErrBadOptions, o.BigM)
	case o.BigMMargin < 0 || !finite(o.BigMMargin):
		return fmt.Errorf("%w: big-M margin %g", ErrBadOptions, o.BigMMargin)
	}
	if o.Gas.Enabled {
		g := o.Gas
		if g.G1 < 0 || g.G2 < 0 || !finite(g.G1) || !finite(g.G2) {
			return fmt.Errorf("%w: gas coefficients G1=%g G2=%g", ErrBadOptions, g.G1, g.G2)
		}
		if !finite(g.Alpha) || !finite(g.Beta) {
			return fmt.Errorf("%w: gas weights alpha=%g beta=%g", ErrBadOptions, g.Alpha, g.Beta)
		}
	}

	return nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return o.Logger
}
