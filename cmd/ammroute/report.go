package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/milp"
	"github.com/katalvlaran/ammroute/nlp"
	"github.com/katalvlaran/ammroute/route"
)

// reportPlaces is the rounding applied to every reported amount.
const reportPlaces = 6

func amount(v float64) string {
	return decimal.NewFromFloat(v).Round(reportPlaces).String()
}

func header(w io.Writer, g *exchange.Graph) {
	fmt.Fprintf(w, "instance:   %s %s -> %s over %d exchanges, %d currencies\n",
		amount(g.Quantity()), g.Source(), g.Target(), g.NumExchanges(), g.NumCurrencies())
}

// strategy lists the conversions in execution order.
func strategy(w io.Writer, flows []route.Flow, splits bool) error {
	fmt.Fprintln(w, "strategy:")
	if len(flows) == 0 {
		fmt.Fprintln(w, "  (no conversion)")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for step, f := range flows {
		venue := f.Exchange
		if splits {
			venue = fmt.Sprintf("%s#%d", f.Exchange, f.Split)
		}
		fmt.Fprintf(tw, "  %d.\t%s\t%s\t->\t%s\t%s\tvia %s\t\n",
			step+1, amount(f.In), f.From, amount(f.Out), f.To, venue)
	}

	return tw.Flush()
}

func timing(w io.Writer, setup, solve time.Duration) {
	fmt.Fprintf(w, "setup:      %s\n", setup.Round(time.Microsecond))
	fmt.Fprintf(w, "solve:      %s\n", solve.Round(time.Microsecond))
}

// writeMILPReport prints the optimal MILP answer.
func writeMILPReport(w io.Writer, g *exchange.Graph, fm *milp.Formulation, res *milp.Result) error {
	header(w, g)
	stats := fm.Model.Stats()
	fmt.Fprintf(w, "model:      milp, %d splits, %d variables, %d constraints, big-M %s\n",
		fm.Splits(), stats.Vars, stats.Constraints, amount(fm.BigM))
	fmt.Fprintf(w, "status:     %s\n", res.Status)
	fmt.Fprintf(w, "objective:  %s\n", amount(res.Objective))
	fmt.Fprintf(w, "delivered:  %s %s\n", amount(res.Delivered), g.Target())
	if _, _, _, ok := fm.Gas(); ok {
		fmt.Fprintf(w, "g1 fee:     %s\n", amount(res.G1Fee))
		fmt.Fprintf(w, "g2 fee:     %s\n", amount(res.G2Fee))
		fmt.Fprintf(w, "obj + g1:   %s\n", amount(res.Objective+res.G1Fee))
	}
	timing(w, res.Setup, res.Solve)

	return strategy(w, res.Flows, fm.Splits() > 1)
}

// writeNLPReport prints the retained NLP answer and the start summary.
func writeNLPReport(w io.Writer, g *exchange.Graph, p *nlp.Problem, rep *nlp.Report) error {
	header(w, g)
	var solve time.Duration
	for _, a := range rep.Attempts {
		solve += a.Elapsed
	}
	fmt.Fprintf(w, "model:      nlp, %d variables, acyclic %t\n", p.NumVars(), p.Options.Acyclic)
	fmt.Fprintf(w, "starts:     %d succeeded of %d, kept start %d\n",
		rep.Succeeded(), len(rep.Attempts), rep.BestStart)
	fmt.Fprintf(w, "delivered:  %s %s\n", amount(rep.Delivered), g.Target())
	timing(w, 0, solve)

	return strategy(w, rep.Flows, false)
}
