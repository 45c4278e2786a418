package ingest

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"github.com/katalvlaran/ammroute/exchange"
)

// Generator defaults.
const (
	methodGenerate     = "Generate"
	minGenCurrencies   = 2 // o and d
	minGenExchanges    = 1
	DefaultReserveLow  = 1.0
	DefaultReserveHigh = 10.0
	defaultSeed        = 1
)

// Generated instances always route from GenSource to GenTarget.
const (
	GenSource exchange.Currency = "o"
	GenTarget exchange.Currency = "d"
)

// GenOption configures Generate.
type GenOption func(*genConfig)

type genConfig struct {
	seed    int64
	lo, hi  float64
	zeroFee bool
}

// WithSeed fixes the RNG seed; 0 is mapped to 1.
func WithSeed(seed int64) GenOption {
	return func(c *genConfig) {
		if seed == 0 {
			seed = defaultSeed
		}
		c.seed = seed
	}
}

// WithReserveRange draws reserves uniformly from [lo, hi].
func WithReserveRange(lo, hi float64) GenOption {
	return func(c *genConfig) { c.lo, c.hi = lo, hi }
}

// WithZeroFees attaches explicit all-zero B1 and B2 tables over every
// ordered currency pair, as the data files of earlier comparisons carried.
func WithZeroFees() GenOption {
	return func(c *genConfig) { c.zeroFee = true }
}

// GenCurrencies returns o, d, c1..c(n-2).
func GenCurrencies(n int) []exchange.Currency {
	if n < minGenCurrencies {
		return nil
	}
	cs := make([]exchange.Currency, 0, n)
	cs = append(cs, GenSource, GenTarget)
	for i := 1; i <= n-minGenCurrencies; i++ {
		cs = append(cs, exchange.Currency("c"+strconv.Itoa(i)))
	}

	return cs
}

// Generate builds exchanges K1..Kk, each holding every one of the n
// currencies from GenCurrencies with a uniformly drawn reserve.
// Stage 1 (Validate): counts and reserve range.
// Stage 2 (Execute): draws in fixed order (exchange asc, then currency in
// GenCurrencies order), so the output depends on the seed only.
// Complexity: O(k·n), or O(k·n²) with WithZeroFees.
func Generate(currencies, exchanges int, opts ...GenOption) ([]exchange.Exchange, error) {
	cfg := genConfig{seed: defaultSeed, lo: DefaultReserveLow, hi: DefaultReserveHigh}
	for _, opt := range opts {
		opt(&cfg)
	}

	// 1) Validate
	if currencies < minGenCurrencies {
		return nil, fmt.Errorf("%s: currencies=%d < min=%d: %w", methodGenerate, currencies, minGenCurrencies, ErrBadGenerator)
	}
	if exchanges < minGenExchanges {
		return nil, fmt.Errorf("%s: exchanges=%d < min=%d: %w", methodGenerate, exchanges, minGenExchanges, ErrBadGenerator)
	}
	if !(cfg.lo > 0) || cfg.hi < cfg.lo || math.IsInf(cfg.hi, 0) {
		return nil, fmt.Errorf("%s: reserve range [%g,%g]: %w", methodGenerate, cfg.lo, cfg.hi, ErrBadGenerator)
	}

	// 2) Draw
	rng := rand.New(rand.NewSource(cfg.seed))
	names := GenCurrencies(currencies)
	exs := make([]exchange.Exchange, 0, exchanges)
	for k := 1; k <= exchanges; k++ {
		ex := exchange.Exchange{
			ID:       "K" + strconv.Itoa(k),
			Reserves: make(map[exchange.Currency]float64, len(names)),
		}
		for _, c := range names {
			ex.Reserves[c] = cfg.lo + (cfg.hi-cfg.lo)*rng.Float64()
		}
		if cfg.zeroFee {
			ex.Fixed = make(map[exchange.Pair]float64, len(names)*len(names))
			ex.Proportional = make(map[exchange.Pair]float64, len(names)*len(names))
			for _, i := range names {
				for _, j := range names {
					ex.Fixed[exchange.Pair{From: i, To: j}] = 0
					ex.Proportional[exchange.Pair{From: i, To: j}] = 0
				}
			}
		}
		exs = append(exs, ex)
	}

	return exs, nil
}
