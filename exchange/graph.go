package exchange

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
)

// Graph is the validated, read-only exchange network.
type Graph struct {
	exchanges  []Exchange     // sorted by ID
	exIndex    map[string]int // ID → position in exchanges
	currencies []Currency     // sorted union of reserve keys
	curIndex   map[Currency]int
	totals     map[Currency]float64 // total reserve of each currency across exchanges

	source    Currency
	target    Currency
	quantity  float64
	feeBudget float64
	valuation map[Currency]float64
}

// New validates exchanges and routing options and returns an immutable Graph.
// Stage 1 (Validate): exchanges, reserves and fee tables.
// Stage 2 (Prepare): derive sorted currency and exchange indices, reserve totals.
// Stage 3 (Finalize): validate the routing parameters against the currency set.
// Complexity: O(K·C·log(C) + F).
func New(exchanges []Exchange, opts ...Option) (*Graph, error) {
	// 1) Apply options on top of defaults
	s := settings{feeBudget: math.Inf(1)}
	for _, opt := range opts {
		opt(&s)
	}

	// 2) Validate and deep-copy exchanges
	if len(exchanges) == 0 {
		return nil, ErrNoExchanges
	}
	g := &Graph{
		exchanges: make([]Exchange, 0, len(exchanges)),
		exIndex:   make(map[string]int, len(exchanges)),
		curIndex:  make(map[Currency]int),
		totals:    make(map[Currency]float64),
	}
	seen := make(map[string]struct{}, len(exchanges))
	for _, ex := range exchanges {
		if err := validateExchange(ex); err != nil {
			return nil, err
		}
		if _, dup := seen[ex.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateExchange, ex.ID)
		}
		seen[ex.ID] = struct{}{}
		g.exchanges = append(g.exchanges, ex.clone())
	}
	sort.Slice(g.exchanges, func(a, b int) bool { return g.exchanges[a].ID < g.exchanges[b].ID })

	// 3) Derive indices and totals
	set := make(map[Currency]struct{})
	for i, ex := range g.exchanges {
		g.exIndex[ex.ID] = i
		for c, r := range ex.Reserves {
			set[c] = struct{}{}
			g.totals[c] += r
		}
	}
	g.currencies = slices.Sorted(maps.Keys(set))
	for i, c := range g.currencies {
		g.curIndex[c] = i
	}

	// 4) Routing parameters
	if err := g.applySettings(s); err != nil {
		return nil, err
	}

	return g, nil
}

func validateExchange(ex Exchange) error {
	if ex.ID == "" {
		return ErrEmptyExchangeID
	}
	for c, r := range ex.Reserves {
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: %s[%s]=%g", ErrInvalidReserve, ex.ID, c, r)
		}
	}
	for _, table := range []map[Pair]float64{ex.Fixed, ex.Proportional} {
		for p, v := range table {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s[%s]=%g", ErrInvalidFee, ex.ID, p, v)
			}
			_, okFrom := ex.Reserves[p.From]
			_, okTo := ex.Reserves[p.To]
			if !okFrom || !okTo {
				return fmt.Errorf("%w: %s[%s]", ErrFeeCurrency, ex.ID, p)
			}
		}
	}

	return nil
}

func (g *Graph) applySettings(s settings) error {
	if s.source == "" || s.target == "" {
		return ErrMissingEndpoint
	}
	if _, ok := g.curIndex[s.source]; !ok {
		return fmt.Errorf("source %q: %w", s.source, ErrCurrencyNotFound)
	}
	if _, ok := g.curIndex[s.target]; !ok {
		return fmt.Errorf("target %q: %w", s.target, ErrCurrencyNotFound)
	}
	if s.source == s.target {
		return fmt.Errorf("%w: %q", ErrSourceIsTarget, s.source)
	}
	if !(s.quantity > 0) || math.IsInf(s.quantity, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidQuantity, s.quantity)
	}
	if s.feeBudget < 0 || math.IsNaN(s.feeBudget) {
		return fmt.Errorf("%w: %g", ErrInvalidFeeBudget, s.feeBudget)
	}
	for c, r := range s.valuation {
		if _, ok := g.curIndex[c]; !ok {
			return fmt.Errorf("valuation %q: %w", c, ErrCurrencyNotFound)
		}
		if !(r > 0) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: %s=%g", ErrInvalidRate, c, r)
		}
	}

	g.source = s.source
	g.target = s.target
	g.quantity = s.quantity
	g.feeBudget = s.feeBudget
	g.valuation = s.valuation

	return nil
}

// WithEndpoints returns a copy of g routed from source to target with quantity t0.
// Fee budget and valuation carry over. Exchanges are shared read-only.
func (g *Graph) WithEndpoints(source, target Currency, t0 float64) (*Graph, error) {
	cp := *g
	s := settings{
		source:    source,
		target:    target,
		quantity:  t0,
		feeBudget: g.feeBudget,
		valuation: g.valuation,
	}
	if err := cp.applySettings(s); err != nil {
		return nil, err
	}

	return &cp, nil
}

// WithFeeBudget returns a copy of g with a different aggregate fee budget.
func (g *Graph) WithFeeBudget(limit float64) (*Graph, error) {
	if limit < 0 || math.IsNaN(limit) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidFeeBudget, limit)
	}
	cp := *g
	cp.feeBudget = limit

	return &cp, nil
}

// Currencies returns the sorted currency set.
func (g *Graph) Currencies() []Currency { return slices.Clone(g.currencies) }

// NumCurrencies returns |C|.
func (g *Graph) NumCurrencies() int { return len(g.currencies) }

// Exchanges returns the sorted exchange identifiers.
func (g *Graph) Exchanges() []string {
	ids := make([]string, len(g.exchanges))
	for i, ex := range g.exchanges {
		ids[i] = ex.ID
	}

	return ids
}

// NumExchanges returns |K|.
func (g *Graph) NumExchanges() int { return len(g.exchanges) }

// Exchange returns a copy of the exchange with the given identifier.
func (g *Graph) Exchange(id string) (Exchange, error) {
	i, ok := g.exIndex[id]
	if !ok {
		return Exchange{}, fmt.Errorf("%w: %q", ErrExchangeNotFound, id)
	}

	return g.exchanges[i].clone(), nil
}

// MidCurrencies returns every currency except source and target, sorted.
func (g *Graph) MidCurrencies() []Currency {
	mid := make([]Currency, 0, len(g.currencies))
	for _, c := range g.currencies {
		if c != g.source && c != g.target {
			mid = append(mid, c)
		}
	}

	return mid
}

// CurrencyIndex returns the position of c in Currencies().
func (g *Graph) CurrencyIndex(c Currency) (int, bool) {
	i, ok := g.curIndex[c]
	return i, ok
}

// ExchangeIndex returns the position of id in Exchanges().
func (g *Graph) ExchangeIndex(id string) (int, bool) {
	i, ok := g.exIndex[id]
	return i, ok
}

// Stock returns the reserve of currency c held by exchange k.
func (g *Graph) Stock(k string, c Currency) (float64, error) {
	i, ok := g.exIndex[k]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrExchangeNotFound, k)
	}
	r, ok := g.exchanges[i].Reserves[c]
	if !ok {
		return 0, fmt.Errorf("%w: %q in exchange %q", ErrCurrencyNotFound, c, k)
	}

	return r, nil
}

// HasPool reports whether the directed pair i→j can be traded at exchange k.
func (g *Graph) HasPool(k string, i, j Currency) bool {
	if i == j {
		return false
	}
	idx, ok := g.exIndex[k]
	if !ok {
		return false
	}
	res := g.exchanges[idx].Reserves

	return res[i] > 0 && res[j] > 0
}

// PairHasPool reports whether any exchange trades i→j.
func (g *Graph) PairHasPool(i, j Currency) bool {
	for _, ex := range g.exchanges {
		if g.HasPool(ex.ID, i, j) {
			return true
		}
	}

	return false
}

// FixedFee returns the B1 coefficient of i→j at exchange k (0 when unset).
func (g *Graph) FixedFee(k string, i, j Currency) (float64, error) {
	return g.fee(k, i, j, func(ex Exchange) map[Pair]float64 { return ex.Fixed })
}

// ProportionalFee returns the B2 coefficient of i→j at exchange k (0 when unset).
func (g *Graph) ProportionalFee(k string, i, j Currency) (float64, error) {
	return g.fee(k, i, j, func(ex Exchange) map[Pair]float64 { return ex.Proportional })
}

func (g *Graph) fee(k string, i, j Currency, table func(Exchange) map[Pair]float64) (float64, error) {
	idx, ok := g.exIndex[k]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrExchangeNotFound, k)
	}
	for _, c := range []Currency{i, j} {
		if _, ok = g.curIndex[c]; !ok {
			return 0, fmt.Errorf("%w: %q", ErrCurrencyNotFound, c)
		}
	}

	return table(g.exchanges[idx])[Pair{From: i, To: j}], nil
}

// TotalReserve returns the sum of the reserves of c over all exchanges.
func (g *Graph) TotalReserve(c Currency) float64 { return g.totals[c] }

// Source returns the currency the route starts from.
func (g *Graph) Source() Currency { return g.source }

// Target returns the currency the route delivers.
func (g *Graph) Target() Currency { return g.target }

// Quantity returns T0.
func (g *Graph) Quantity() float64 { return g.quantity }

// FeeBudget returns the aggregate fee limit, +Inf when unbounded.
func (g *Graph) FeeBudget() float64 { return g.feeBudget }

// HasFeeBudget reports whether a finite fee budget is set.
func (g *Graph) HasFeeBudget() bool { return !math.IsInf(g.feeBudget, 1) }

// Rate returns the value of one unit of c in target units.
// The target itself is worth 1. An explicit valuation wins; otherwise the best
// marginal spot price stock(k,d)/stock(k,c) over exchanges trading c→d is used.
// ok is false when neither source of truth exists.
func (g *Graph) Rate(c Currency) (rate float64, ok bool) {
	if c == g.target {
		return 1, true
	}
	if r, found := g.valuation[c]; found {
		return r, true
	}
	for _, ex := range g.exchanges {
		if !g.HasPool(ex.ID, c, g.target) {
			continue
		}
		spot := ex.Reserves[g.target] / ex.Reserves[c]
		if spot > rate {
			rate, ok = spot, true
		}
	}

	return rate, ok
}
