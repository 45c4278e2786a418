package route

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/katalvlaran/ammroute/exchange"
)

// ErrCycleDetected is returned by TopologicalOrder on a cyclic graph.
var ErrCycleDetected = errors.New("route: cycle detected")

// Vertex visitation states for depth-first search.
const (
	White = iota // unvisited
	Gray         // on the recursion stack
	Black        // fully explored
)

// Flow is one conversion of a routing solution: In units of From are sold at
// Exchange (slice Split) for Out units of To.
type Flow struct {
	From     exchange.Currency
	To       exchange.Currency
	Exchange string
	Split    int
	In       float64
	Out      float64
}

// String renders the flow as "10 a -> 4.545 b via K1#0".
func (f Flow) String() string {
	return fmt.Sprintf("%.6g %s -> %.6g %s via %s#%d", f.In, f.From, f.Out, f.To, f.Exchange, f.Split)
}

// Digraph is a directed simple graph over currencies.
type Digraph struct {
	adj map[exchange.Currency]map[exchange.Currency]struct{}
}

// NewDigraph returns a graph containing the given isolated vertices.
func NewDigraph(vertices ...exchange.Currency) *Digraph {
	d := &Digraph{adj: make(map[exchange.Currency]map[exchange.Currency]struct{}, len(vertices))}
	for _, v := range vertices {
		d.AddVertex(v)
	}

	return d
}

// AddVertex inserts v if missing.
func (d *Digraph) AddVertex(v exchange.Currency) {
	if _, ok := d.adj[v]; !ok {
		d.adj[v] = make(map[exchange.Currency]struct{})
	}
}

// AddEdge inserts u→v (and both endpoints). Parallel edges collapse.
func (d *Digraph) AddEdge(u, v exchange.Currency) {
	d.AddVertex(u)
	d.AddVertex(v)
	d.adj[u][v] = struct{}{}
}

// HasEdge reports whether u→v exists.
func (d *Digraph) HasEdge(u, v exchange.Currency) bool {
	_, ok := d.adj[u][v]
	return ok
}

// Vertices returns all vertices sorted.
func (d *Digraph) Vertices() []exchange.Currency {
	return slices.Sorted(maps.Keys(d.adj))
}

// Successors returns the sorted out-neighbours of u.
func (d *Digraph) Successors(u exchange.Currency) []exchange.Currency {
	return slices.Sorted(maps.Keys(d.adj[u]))
}

// NumEdges returns the number of directed edges.
func (d *Digraph) NumEdges() int {
	n := 0
	for _, out := range d.adj {
		n += len(out)
	}

	return n
}

// FromFlows builds the digraph of conversions moving more than tol units.
// Every currency in vertices is present even when isolated.
func FromFlows(flows []Flow, tol float64, vertices ...exchange.Currency) *Digraph {
	d := NewDigraph(vertices...)
	for _, f := range flows {
		if f.In > tol && f.From != f.To {
			d.AddEdge(f.From, f.To)
		}
	}

	return d
}

// PoolGraph builds the digraph of pairs tradable at some exchange of g.
// Edges into the source and out of the target are omitted: the routing
// models force their flow to zero.
func PoolGraph(g *exchange.Graph) *Digraph {
	cs := g.Currencies()
	d := NewDigraph(cs...)
	for _, i := range cs {
		if i == g.Target() {
			continue
		}
		for _, j := range cs {
			if j == g.Source() || !g.PairHasPool(i, j) {
				continue
			}
			d.AddEdge(i, j)
		}
	}

	return d
}
