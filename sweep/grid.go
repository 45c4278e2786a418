package sweep

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/katalvlaran/ammroute/exchange"
)

// Point is one parameter combination. Zero fields mean "use the base value":
// the graph's own quantity, or the solver options' splits and gas coefficients.
type Point struct {
	Splits int
	T0     float64
	G1     float64
	G2     float64

	// HasG1 and HasG2 distinguish an explicit 0 coefficient from "unset".
	HasG1, HasG2 bool
}

// String renders the set fields, e.g. "P=2 T0=1000 G1=43".
func (p Point) String() string {
	var parts []string
	if p.Splits > 0 {
		parts = append(parts, "P="+strconv.Itoa(p.Splits))
	}
	if p.T0 > 0 {
		parts = append(parts, "T0="+strconv.FormatFloat(p.T0, 'g', -1, 64))
	}
	if p.HasG1 {
		parts = append(parts, "G1="+strconv.FormatFloat(p.G1, 'g', -1, 64))
	}
	if p.HasG2 {
		parts = append(parts, "G2="+strconv.FormatFloat(p.G2, 'g', -1, 64))
	}
	if len(parts) == 0 {
		return "base"
	}

	return strings.Join(parts, " ")
}

// Axes lists the values swept per parameter; an empty axis is not swept.
type Axes struct {
	Splits []int
	T0     []float64
	G1     []float64
	G2     []float64
}

// Points returns the cartesian product of the axes, splits outermost and
// G2 innermost. With every axis empty it returns the single base point.
// Complexity: O(|Splits|·|T0|·|G1|·|G2|).
func Points(a Axes) []Point {
	pts := []Point{{}}
	if len(a.Splits) > 0 {
		pts = expand(pts, len(a.Splits), func(p *Point, i int) { p.Splits = a.Splits[i] })
	}
	if len(a.T0) > 0 {
		pts = expand(pts, len(a.T0), func(p *Point, i int) { p.T0 = a.T0[i] })
	}
	if len(a.G1) > 0 {
		pts = expand(pts, len(a.G1), func(p *Point, i int) { p.G1, p.HasG1 = a.G1[i], true })
	}
	if len(a.G2) > 0 {
		pts = expand(pts, len(a.G2), func(p *Point, i int) { p.G2, p.HasG2 = a.G2[i], true })
	}

	return pts
}

func expand(pts []Point, n int, set func(*Point, int)) []Point {
	out := make([]Point, 0, len(pts)*n)
	for _, p := range pts {
		for i := range n {
			q := p
			set(&q, i)
			out = append(out, q)
		}
	}

	return out
}

// Linspace returns n evenly spaced values over [lo, hi], both ends included.
// n == 1 yields [lo]; n <= 0 yields nil.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi

	return out
}

// Cases turns points into cases over snapshots of base. A point with T0 set
// gets its own re-targeted graph; the others share base, which is immutable.
func Cases(base *exchange.Graph, pts []Point, solve SolveFunc) ([]Case, error) {
	if base == nil || solve == nil {
		return nil, fmt.Errorf("%w: nil graph or solve func", ErrBadOptions)
	}
	cases := make([]Case, 0, len(pts))
	for _, pt := range pts {
		g := base
		if pt.T0 > 0 {
			var err error
			g, err = base.WithEndpoints(base.Source(), base.Target(), pt.T0)
			if err != nil {
				return nil, fmt.Errorf("sweep: point %s: %w", pt, err)
			}
		}
		cases = append(cases, Case{Name: pt.String(), Graph: g, Point: pt, Solve: solve})
	}

	return cases, nil
}
