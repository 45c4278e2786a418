package exchange

import (
	"fmt"
	"maps"
)

// Currency is an opaque asset identifier such as "ETH" or "c3".
type Currency string

// Pair is a directed currency pair: From is sold, To is bought.
type Pair struct {
	From Currency
	To   Currency
}

// String renders the pair as "From->To".
func (p Pair) String() string {
	return fmt.Sprintf("%s->%s", p.From, p.To)
}

// Exchange is one venue of the network.
//
// Reserves maps every currency the venue holds to its pool reserve.
// Fixed (B1) and Proportional (B2) are optional fee tables keyed by directed
// pairs; a missing entry is a zero fee.
type Exchange struct {
	ID           string
	Reserves     map[Currency]float64
	Fixed        map[Pair]float64
	Proportional map[Pair]float64
}

// clone returns a deep copy so that a Graph never aliases caller maps.
func (e Exchange) clone() Exchange {
	return Exchange{
		ID:           e.ID,
		Reserves:     maps.Clone(e.Reserves),
		Fixed:        maps.Clone(e.Fixed),
		Proportional: maps.Clone(e.Proportional),
	}
}

// Option configures the routing parameters of a Graph.
type Option func(*settings)

type settings struct {
	source    Currency
	target    Currency
	quantity  float64
	feeBudget float64
	hasBudget bool
	valuation map[Currency]float64
}

// WithSource sets the currency the route starts from.
func WithSource(c Currency) Option {
	return func(s *settings) { s.source = c }
}

// WithTarget sets the currency the route must deliver.
func WithTarget(c Currency) Option {
	return func(s *settings) { s.target = c }
}

// WithQuantity sets T0, the amount of source currency to route.
func WithQuantity(t0 float64) Option {
	return func(s *settings) { s.quantity = t0 }
}

// WithFeeBudget caps the aggregate B1/B2 fee of a route.
// Without it the budget is unbounded.
func WithFeeBudget(limit float64) Option {
	return func(s *settings) {
		s.feeBudget = limit
		s.hasBudget = true
	}
}

// WithValuation sets the value of one unit of each currency expressed in
// target units. It feeds the variable gas-fee term of the MILP objective.
func WithValuation(rates map[Currency]float64) Option {
	return func(s *settings) { s.valuation = maps.Clone(rates) }
}
