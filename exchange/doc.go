// Package exchange holds the validated, immutable view of an AMM exchange
// network: the exchanges, their reserves and fee tables, the derived currency
// set, and the routing endpoints (source, target, source quantity) together
// with an optional aggregate fee budget.
//
// What:
//
//   - Exchange: identifier, currency → reserve mapping, optional fixed (B1)
//     and proportional (B2) fee tables keyed by directed currency pairs.
//   - Graph: the normalized network. Currencies are the sorted union of all
//     reserve keys, exchanges are sorted by identifier, so every index derived
//     from a Graph is deterministic.
//   - Pools: a directed pair (i, j) is tradable at exchange k when i != j and
//     both reserves are strictly positive. Everything else is forced to zero
//     flow by the model builders.
//
// Errors:
//
//   - ErrExchangeNotFound, ErrCurrencyNotFound   data lookups
//   - ErrNoExchanges, ErrEmptyExchangeID,
//     ErrDuplicateExchange                       structural validation
//   - ErrInvalidReserve, ErrInvalidFee,
//     ErrFeeCurrency                             numeric / reference validation
//   - ErrMissingEndpoint, ErrSourceIsTarget,
//     ErrInvalidQuantity, ErrInvalidFeeBudget,
//     ErrInvalidRate                             routing parameters
//
// Complexity:
//
//   - New:     O(K·C + F) for K exchanges, C currencies and F fee entries
//   - lookups: O(1) expected (map based)
//
// A Graph carries no optimization logic and is never mutated after New
// returns, so it can be shared between model builds and read concurrently.
package exchange
