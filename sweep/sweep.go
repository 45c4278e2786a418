package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/katalvlaran/ammroute/exchange"
)

// ErrBadOptions indicates invalid sweep options.
var ErrBadOptions = errors.New("sweep: invalid options")

// Value is what one solve reports back.
type Value struct {
	Status    string
	Objective float64
	Delivered float64
	G1Fee     float64
	G2Fee     float64
	Vars      int
	Setup     time.Duration
	Solve     time.Duration
}

// ObjectivePlusG1 adds the per-edge fee back to the objective, the quantity
// compared against reference outputs in quantity sweeps.
func (v Value) ObjectivePlusG1() float64 { return v.Objective + v.G1Fee }

// SolveFunc solves one instance.
type SolveFunc func(ctx context.Context, g *exchange.Graph, pt Point) (Value, error)

// Case is one independent instance.
type Case struct {
	Name  string
	Graph *exchange.Graph
	Point Point
	Solve SolveFunc
}

// Outcome is the result of one Case.
type Outcome struct {
	Case    string
	Point   Point
	Value   Value
	Err     error
	Elapsed time.Duration
}

// Options configures Run.
type Options struct {
	// Workers bounds concurrent solves; 0 means GOMAXPROCS.
	Workers int

	// Rate paces case launches per second; 0 means unpaced.
	Rate float64

	// Burst is the launch burst when Rate > 0; 0 means 1.
	Burst int

	Logger *slog.Logger
}

func (o Options) validate() error {
	switch {
	case o.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrBadOptions, o.Workers)
	case o.Rate < 0:
		return fmt.Errorf("%w: rate %g", ErrBadOptions, o.Rate)
	case o.Burst < 0:
		return fmt.Errorf("%w: burst %d", ErrBadOptions, o.Burst)
	}

	return nil
}

// Run solves every case and returns one Outcome per case, in case order.
// Case failures land in Outcome.Err; the returned error is non-nil only for
// invalid options or when ctx ends before every case finished, in which case
// the unstarted cases carry ctx.Err().
// Stage 1 (Validate): options and case completeness.
// Stage 2 (Execute): launch under the worker limit, paced by the limiter.
// Stage 3 (Finalize): wait for in-flight cases.
func Run(ctx context.Context, cases []Case, opts Options) ([]Outcome, error) {
	// 1) Validate
	if err := opts.validate(); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var limiter *rate.Limiter
	if opts.Rate > 0 {
		burst := max(opts.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	outs := make([]Outcome, len(cases))
	for i, c := range cases {
		outs[i] = Outcome{Case: c.Name, Point: c.Point}
	}

	// 2) Launch; no WithContext, a failed case must not cancel the rest
	var g errgroup.Group
	g.SetLimit(workers)
	launched := 0
	for i := range cases {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		launched++
		g.Go(func() error {
			outs[i] = runCase(ctx, cases[i], log)
			return nil
		})
	}

	// 3) Finalize
	_ = g.Wait()
	if launched < len(cases) {
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		for i := launched; i < len(cases); i++ {
			outs[i].Err = err
		}
		log.Warn("sweep interrupted", "launched", launched, "cases", len(cases), "error", err)
		return outs, err
	}
	log.Info("sweep finished", "cases", len(cases), "failed", Failed(outs))

	return outs, ctx.Err()
}

func runCase(ctx context.Context, c Case, log *slog.Logger) Outcome {
	out := Outcome{Case: c.Name, Point: c.Point}
	if c.Solve == nil || c.Graph == nil {
		out.Err = fmt.Errorf("%w: case %q has no graph or solve func", ErrBadOptions, c.Name)
		return out
	}
	started := time.Now()
	out.Value, out.Err = c.Solve(ctx, c.Graph, c.Point)
	out.Elapsed = time.Since(started)
	if out.Err != nil {
		log.Warn("sweep case failed", "case", c.Name, "error", out.Err)
	} else {
		log.Debug("sweep case solved", "case", c.Name, "objective", out.Value.Objective, "elapsed", out.Elapsed)
	}

	return out
}

// Failed counts outcomes with an error.
func Failed(outs []Outcome) int {
	n := 0
	for _, o := range outs {
		if o.Err != nil {
			n++
		}
	}

	return n
}
