package route

import (
	"fmt"
	"slices"
	"strings"

	"github.com/katalvlaran/ammroute/exchange"
)

// TopologicalOrder returns the vertices of d such that every edge u→v has u
// before v. Ties follow sorted vertex order, so the result is deterministic.
// A cyclic graph yields ErrCycleDetected with the witness in the message.
// Complexity: O(V + E).
func TopologicalOrder(d *Digraph) ([]exchange.Currency, error) {
	// 1) Reject cyclic graphs up front with a readable witness
	if cyclic, w := HasCycle(d); cyclic {
		return nil, fmt.Errorf("%w: %s", ErrCycleDetected, join(w))
	}

	// 2) Post-order DFS, visiting roots in reverse sorted order so that the
	//    reversed post-order lists smaller independent vertices first
	verts := d.Vertices()
	state := make(map[exchange.Currency]int, len(verts))
	order := make([]exchange.Currency, 0, len(verts))

	var visit func(u exchange.Currency)
	visit = func(u exchange.Currency) {
		state[u] = Gray
		succ := d.Successors(u)
		for i := len(succ) - 1; i >= 0; i-- {
			if state[succ[i]] == White {
				visit(succ[i])
			}
		}
		state[u] = Black
		order = append(order, u)
	}
	for i := len(verts) - 1; i >= 0; i-- {
		if state[verts[i]] == White {
			visit(verts[i])
		}
	}

	// 3) Reverse post-order
	slices.Reverse(order)

	return order, nil
}

// Potentials returns the topological position of every vertex of d.
// For an acyclic d the values lie in [0, V-1] and strictly increase along
// every edge, which is exactly what the MTZ ordering rows require.
func Potentials(d *Digraph) (map[exchange.Currency]float64, error) {
	order, err := TopologicalOrder(d)
	if err != nil {
		return nil, err
	}
	u := make(map[exchange.Currency]float64, len(order))
	for i, c := range order {
		u[c] = float64(i)
	}

	return u, nil
}

// Hops lists the flows moving more than tol units in execution order:
// by topological position of From, then To, exchange and split.
// Flows of a cyclic solution are ordered by currency name instead.
func Hops(flows []Flow, tol float64) []Flow {
	var active []Flow
	for _, f := range flows {
		if f.In > tol {
			active = append(active, f)
		}
	}

	pos := make(map[exchange.Currency]int)
	if order, err := TopologicalOrder(FromFlows(active, tol)); err == nil {
		for i, c := range order {
			pos[c] = i
		}
	}

	slices.SortStableFunc(active, func(a, b Flow) int {
		if pa, pb := pos[a.From], pos[b.From]; pa != pb {
			return pa - pb
		}
		if c := strings.Compare(string(a.From), string(b.From)); c != 0 {
			return c
		}
		if c := strings.Compare(string(a.To), string(b.To)); c != 0 {
			return c
		}
		if c := strings.Compare(a.Exchange, b.Exchange); c != 0 {
			return c
		}
		return a.Split - b.Split
	})

	return active
}

func join(cs []exchange.Currency) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}

	return strings.Join(parts, "->")
}
