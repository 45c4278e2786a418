package nlp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/katalvlaran/ammroute/route"
	"github.com/katalvlaran/ammroute/solver"
)

// FlowTolerance is the smallest X reported as an active flow.
const FlowTolerance = 1e-7

// Attempt is the outcome of one local solve.
type Attempt struct {
	Start      int
	Success    bool
	Message    string
	Objective  float64
	Iterations int
	Err        error // malformed start or solver error; nil for a plain failure
	Elapsed    time.Duration
}

// Report collects every attempt and the retained solution.
type Report struct {
	Attempts  []Attempt
	Best      *solver.NLPResult // most recent success, nil when none
	BestStart int               // index of Best in the start list, -1 when none
	Delivered float64           // target currency delivered by Best
	Flows     []route.Flow      // active conversions of Best in execution order
}

// Succeeded counts the successful attempts.
func (r *Report) Succeeded() int {
	n := 0
	for _, a := range r.Attempts {
		if a.Success {
			n++
		}
	}

	return n
}

// Run solves from every start and keeps the most recent success.
// With no starts the all-zero vector is used. A failed start is logged with
// the solver message and does not stop the others; cancellation does.
// When no start succeeds the report is returned with ErrNoSuccessfulStart.
// tol <= 0 uses Options.Tol.
func (p *Problem) Run(ctx context.Context, s solver.NLPSolver, starts [][]float64, tol float64) (*Report, error) {
	if s == nil {
		return nil, ErrNilSolver
	}
	if len(starts) == 0 {
		starts = [][]float64{make([]float64, p.NumVars())}
	}
	ctx, span := tracer().Start(ctx, "nlp.run")
	defer span.End()
	span.SetAttributes(attribute.Int("starts", len(starts)))
	log := p.Options.logger()

	rep := &Report{BestStart: -1}
	for idx, x0 := range starts {
		// 1) Reject malformed starts without calling the solver
		if len(x0) != p.NumVars() {
			err := fmt.Errorf("%w: start %d has %d entries, want %d", ErrStartSize, idx, len(x0), p.NumVars())
			rep.Attempts = append(rep.Attempts, Attempt{Start: idx, Message: err.Error(), Err: err})
			log.Warn("nlp start rejected", "start", idx, "error", err)
			continue
		}

		// 2) Local solve
		started := time.Now()
		res, err := s.Minimize(ctx, p.NLP(x0, tol))
		elapsed := time.Since(started)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				span.RecordError(err)
				span.SetStatus(codes.Error, "cancelled")
				return rep, err
			}
			rep.Attempts = append(rep.Attempts, Attempt{Start: idx, Message: err.Error(), Err: err, Elapsed: elapsed})
			recordStart(ctx, false, elapsed)
			log.Warn("nlp start errored", "start", idx, "error", err)
			continue
		}

		att := Attempt{
			Start:      idx,
			Success:    res.Success,
			Message:    res.Message,
			Objective:  res.Objective,
			Iterations: res.Iterations,
			Elapsed:    elapsed,
		}
		rep.Attempts = append(rep.Attempts, att)
		recordStart(ctx, res.Success, elapsed)
		if !res.Success {
			log.Warn("nlp start failed", "start", idx, "message", res.Message)
			continue
		}

		// 3) Most recent success wins
		log.Debug("nlp start succeeded", "start", idx, "objective", res.Objective, "iterations", res.Iterations)
		rep.Best, rep.BestStart = res, idx
	}

	if rep.Best == nil {
		span.SetStatus(codes.Error, "no successful start")
		return rep, fmt.Errorf("%w: %d attempts", ErrNoSuccessfulStart, len(rep.Attempts))
	}
	rep.Delivered = p.Delivered(rep.Best.X)
	rep.Flows = p.Flows(rep.Best.X, FlowTolerance)
	span.SetAttributes(attribute.Int("succeeded", rep.Succeeded()), attribute.Float64("delivered", rep.Delivered))
	span.SetStatus(codes.Ok, "solved")
	log.Info("nlp solved",
		"delivered", rep.Delivered, "best_start", rep.BestStart,
		"succeeded", rep.Succeeded(), "attempts", len(rep.Attempts))

	return rep, nil
}

// RandomStarts returns n starting points that split T0 at random over the
// pools leaving the source; every other flow starts at 0. With Acyclic the
// surrogate starts at 1 on the pairs carrying flow. seed 0 means 1.
func (p *Problem) RandomStarts(n int, seed int64) [][]float64 {
	var out [][]float64
	var srcPools []int
	for k := range p.k {
		for j := range p.n {
			if at := p.XIndex(p.o, j, k); p.pool[at] {
				srcPools = append(srcPools, at)
			}
		}
	}

	base := rngFromSeed(seed)
	for s := range n {
		rng := deriveRNG(base, uint64(s))
		x := make([]float64, p.NumVars())
		if len(srcPools) > 0 {
			weights := make([]float64, len(srcPools))
			total := 0.0
			for w := range weights {
				weights[w] = rng.Float64() + 1e-3
				total += weights[w]
			}
			for w, at := range srcPools {
				x[at] = p.Graph.Quantity() * weights[w] / total
			}
		}
		if p.Options.Acyclic {
			for j := range p.n {
				if p.sumRow(x, func(yield func(i, j int)) { yield(p.o, j) }) > 0 {
					x[p.ZIndex(p.o, j)] = 1
				}
			}
		}
		out = append(out, x)
	}

	return out
}
