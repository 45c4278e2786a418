package route_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/route"
)

type cur = exchange.Currency

func TestHasCycle(t *testing.T) {
	d := route.NewDigraph()
	d.AddEdge("a", "b")
	d.AddEdge("b", "c")
	ok, _ := route.HasCycle(d)
	require.False(t, ok)

	d.AddEdge("c", "a")
	ok, w := route.HasCycle(d)
	require.True(t, ok)
	require.Equal(t, []cur{"a", "b", "c", "a"}, w)
}

func TestTopologicalOrder(t *testing.T) {
	d := route.NewDigraph("z")
	d.AddEdge("o", "c2")
	d.AddEdge("c2", "c1")
	d.AddEdge("c1", "d")
	d.AddEdge("o", "d")

	order, err := route.TopologicalOrder(d)
	require.NoError(t, err)
	require.Equal(t, []cur{"o", "c2", "c1", "d", "z"}, order)

	pot, err := route.Potentials(d)
	require.NoError(t, err)
	for _, u := range d.Vertices() {
		for _, v := range d.Successors(u) {
			require.Less(t, pot[u], pot[v], "%s->%s", u, v)
		}
		require.GreaterOrEqual(t, pot[u], 0.0)
		require.LessOrEqual(t, pot[u], float64(len(d.Vertices())-1))
	}

	d.AddEdge("d", "o")
	_, err = route.TopologicalOrder(d)
	require.ErrorIs(t, err, route.ErrCycleDetected)
	_, err = route.Potentials(d)
	require.ErrorIs(t, err, route.ErrCycleDetected)
}

func TestCyclesEnumeratesEachOnce(t *testing.T) {
	// complete digraph on 3 vertices: three 2-cycles and two 3-cycles
	d := route.NewDigraph()
	for _, u := range []cur{"a", "b", "c"} {
		for _, v := range []cur{"a", "b", "c"} {
			if u != v {
				d.AddEdge(u, v)
			}
		}
	}

	cycles, err := route.Cycles(context.Background(), d, 0)
	require.NoError(t, err)
	require.Equal(t, [][]cur{
		{"a", "b", "a"},
		{"a", "c", "a"},
		{"b", "c", "b"},
		{"a", "b", "c", "a"},
		{"a", "c", "b", "a"},
	}, cycles)

	short, err := route.Cycles(context.Background(), d, 2)
	require.NoError(t, err)
	require.Len(t, short, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = route.Cycles(ctx, d, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPoolGraph(t *testing.T) {
	g, err := exchange.New([]exchange.Exchange{
		{ID: "K1", Reserves: map[cur]float64{"o": 1, "c": 1, "d": 1}},
		{ID: "K2", Reserves: map[cur]float64{"c": 2, "e": 2}},
	}, exchange.WithSource("o"), exchange.WithTarget("d"), exchange.WithQuantity(1))
	require.NoError(t, err)

	d := route.PoolGraph(g)
	require.True(t, d.HasEdge("o", "c"))
	require.True(t, d.HasEdge("c", "e"))
	require.True(t, d.HasEdge("e", "c"))
	require.True(t, d.HasEdge("c", "d"))
	require.False(t, d.HasEdge("c", "o"), "no edges into the source")
	require.False(t, d.HasEdge("d", "c"), "no edges out of the target")
	require.False(t, d.HasEdge("o", "e"))
	require.Equal(t, 5, d.NumEdges())
}

func TestHopsOrder(t *testing.T) {
	flows := []route.Flow{
		{From: "c", To: "d", Exchange: "K1", In: 3, Out: 2},
		{From: "o", To: "d", Exchange: "K2", In: 5, Out: 4},
		{From: "o", To: "c", Exchange: "K1", Split: 1, In: 2, Out: 1.5},
		{From: "o", To: "c", Exchange: "K1", Split: 0, In: 2, Out: 1.5},
		{From: "c", To: "e", Exchange: "K1", In: 0},
	}
	hops := route.Hops(flows, 1e-9)
	require.Len(t, hops, 4)
	require.Equal(t, route.Flow{From: "o", To: "c", Exchange: "K1", Split: 0, In: 2, Out: 1.5}, hops[0])
	require.Equal(t, 1, hops[1].Split)
	require.Equal(t, cur("d"), hops[2].To)
	require.Equal(t, "K2", hops[2].Exchange)
	require.Equal(t, cur("c"), hops[3].From)
	require.Equal(t, "5 o -> 4 d via K2#0", hops[2].String())
}
