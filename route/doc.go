// Package route analyses the currency-level structure of a routing solution
// and of the exchange network it was computed on.
//
// What:
//
//   - Flow: one executed conversion (from, to, exchange, split, in, out).
//   - Digraph: a small directed graph over currencies with sorted adjacency.
//     FromFlows builds it from the active conversions of a solution,
//     PoolGraph from the tradable pairs of an exchange.Graph.
//   - HasCycle / TopologicalOrder: three-colour depth-first search
//     (White = unvisited, Gray = on the stack, Black = done); a Gray→Gray
//     edge is a back-edge and proves a directed cycle.
//   - Cycles: every simple directed cycle up to a length cap, each reported
//     once, rotated to start at its smallest currency.
//   - Potentials: topological positions 0..n-1, a valid assignment of the
//     MTZ ordering variables for an acyclic solution.
//   - Hops: conversions listed in execution order.
//
// Complexity:
//
//   - HasCycle, TopologicalOrder: O(V + E)
//   - Cycles: O((V + E)·(C + 1)) for C reported cycles, bounded by the cap
package route
