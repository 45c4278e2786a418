package route

import (
	"context"
	"slices"

	"github.com/katalvlaran/ammroute/exchange"
)

// HasCycle reports whether d contains a directed cycle and returns one
// witness, closed ([v0, ..., v0]), when it does.
// Complexity: O(V + E).
func HasCycle(d *Digraph) (bool, []exchange.Currency) {
	// 1) Prepare visitation state and the current DFS path
	state := make(map[exchange.Currency]int, len(d.adj))
	var path []exchange.Currency
	var witness []exchange.Currency

	// 2) visit returns true as soon as a back-edge is found
	var visit func(u exchange.Currency) bool
	visit = func(u exchange.Currency) bool {
		state[u] = Gray
		path = append(path, u)
		for _, v := range d.Successors(u) {
			switch state[v] {
			case White:
				if visit(v) {
					return true
				}
			case Gray:
				// back-edge u→v closes the path segment starting at v
				idx := slices.Index(path, v)
				witness = append(slices.Clone(path[idx:]), v)
				return true
			}
		}
		path = path[:len(path)-1]
		state[u] = Black

		return false
	}

	// 3) Launch from every unvisited vertex in sorted order
	for _, v := range d.Vertices() {
		if state[v] == White && visit(v) {
			return true, witness
		}
	}

	return false, nil
}

// Cycles enumerates every simple directed cycle of d with at most maxLen
// edges (maxLen <= 0 means unbounded). Each cycle is reported once, closed
// and rotated to start at its smallest vertex; the list is sorted by length,
// then lexicographically.
//
// Every cycle is discovered from its smallest vertex s by a DFS that only
// enters vertices greater than s, so no rotation is found twice.
// Cancellation is checked once per start vertex.
func Cycles(ctx context.Context, d *Digraph, maxLen int) ([][]exchange.Currency, error) {
	verts := d.Vertices()
	var cycles [][]exchange.Currency

	for _, s := range verts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		onPath := map[exchange.Currency]bool{s: true}
		path := []exchange.Currency{s}

		var walk func(u exchange.Currency)
		walk = func(u exchange.Currency) {
			for _, v := range d.Successors(u) {
				switch {
				case v == s:
					cycles = append(cycles, append(slices.Clone(path), s))
				case v < s || onPath[v]:
					// smaller vertices own their cycles; onPath keeps it simple
				case maxLen > 0 && len(path) >= maxLen:
					// extending would exceed the cap
				default:
					onPath[v] = true
					path = append(path, v)
					walk(v)
					path = path[:len(path)-1]
					onPath[v] = false
				}
			}
		}
		walk(s)
	}

	slices.SortFunc(cycles, func(a, b []exchange.Currency) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		return slices.Compare(a, b)
	})

	return cycles, nil
}
