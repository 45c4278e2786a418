// Package ingest turns exchange data files into []exchange.Exchange and
// back, and generates random instances for benchmarks and comparisons.
//
// Formats:
//
// YAML is a list of exchange records; B1 (fixed) and B2 (proportional) fee
// tables are optional and keyed by sold then bought currency:
//
//	- nameExchange: K1
//	  stocks: {o: 3.2, d: 7.9, c1: 4.4}
//	  B1: {o: {d: 0.0}}
//	  B2: {o: {d: 0.0}}
//
// CSV holds one pool per row with header Exchange,Currency1,Currency2,Stock1,Stock2.
// A venue may list many pairs, but every exchange.Exchange holds a single
// reserve per currency, so each row becomes its own exchange with the
// identifier "<venue>:<c1>/<c2>". Stocks are parsed as decimals and must be
// strictly positive.
//
// Generation:
//
// Generate(currencies, exchanges, opts...) builds K1..Kk over the currencies
// o, d, c1..c(n-2) with reserves drawn uniformly from [1, 10]. Output is
// deterministic for a fixed seed.
//
// Errors:
//
//   - ErrUnknownFormat     format neither given nor inferable from the path
//   - ErrBadRecord         malformed YAML record or CSV row
//   - ErrDuplicatePool     the same venue lists a pair twice (either order)
//   - ErrBadGenerator      invalid generator parameters
package ingest
