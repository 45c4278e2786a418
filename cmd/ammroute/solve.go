package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/internal/logger"
	"github.com/katalvlaran/ammroute/milp"
	"github.com/katalvlaran/ammroute/nlp"
	"github.com/katalvlaran/ammroute/solver/auglag"
	"github.com/katalvlaran/ammroute/solver/gurobicli"
)

const (
	methodMILP = "milp"
	methodNLP  = "nlp"
)

// modelFlags override the formulation sections of the configuration.
type modelFlags struct {
	splits  int
	gas     bool
	acyclic bool
	starts  int
	seed    int64
}

func (f *modelFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&f.splits, "splits", 0, "MILP order splits P")
	fs.BoolVar(&f.gas, "gas", false, "enable the gas-fee objective")
	fs.BoolVar(&f.acyclic, "acyclic", false, "add the NLP acyclicity surrogate")
	fs.IntVar(&f.starts, "starts", 0, "NLP random starts")
	fs.Int64Var(&f.seed, "seed", 0, "NLP start seed")
}

func (f *modelFlags) apply(fs *flag.FlagSet, a *app) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "splits":
			a.cfg.MILP.Splits = f.splits
		case "gas":
			a.cfg.MILP.Gas.Enabled = f.gas
		case "acyclic":
			a.cfg.NLP.Acyclic = f.acyclic
		case "starts":
			a.cfg.NLP.Starts = f.starts
		case "seed":
			a.cfg.NLP.Seed = f.seed
		}
	})
}

func runSolve(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("solve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var inst instanceFlags
	var mf modelFlags
	inst.register(fs)
	mf.register(fs)
	method := fs.String("method", methodMILP, "milp (gurobi_cl) or nlp (local solver)")
	lpPath := fs.String("lp", "", "also write the MILP model to this LP file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *method != methodMILP && *method != methodNLP {
		return usagef("solve: unknown method %q", *method)
	}

	ctx, a, err := newApp(ctx, "solve", fs, &inst, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()
	mf.apply(fs, a)
	if err = a.cfg.Validate(); err != nil {
		return usagef("invalid flags: %v", err)
	}

	g, err := a.graph()
	if err != nil {
		return a.fail(err)
	}
	if *method == methodNLP {
		p, rep, err := solveNLP(ctx, a, g)
		if err != nil {
			return a.fail(err)
		}
		return writeNLPReport(stdout, g, p, rep)
	}

	fm, res, err := solveMILP(ctx, a, g, *lpPath)
	if err != nil {
		return a.fail(err)
	}

	return writeMILPReport(stdout, g, fm, res)
}

func (a *app) milpOptions() milp.Options {
	opts := a.cfg.MILPOptions()
	opts.Logger = a.log

	return opts
}

func (a *app) nlpOptions() nlp.Options {
	opts := a.cfg.NLPOptions()
	opts.Logger = a.log

	return opts
}

func (a *app) gurobi() *gurobicli.Solver {
	cfg := a.cfg.Gurobi()
	cfg.Logger = a.log

	return gurobicli.New(cfg)
}

// solveNLP runs the continuous formulation from the configured starts.
func solveNLP(ctx context.Context, a *app, g *exchange.Graph) (*nlp.Problem, *nlp.Report, error) {
	p, err := nlp.Build(ctx, g, a.nlpOptions())
	if err != nil {
		return nil, nil, err
	}
	var starts [][]float64
	if n := a.cfg.NLP.Starts; n > 1 {
		starts = p.RandomStarts(n, a.cfg.NLP.Seed)
	}
	rep, err := p.Run(ctx, auglag.New(auglag.Options{}), starts, 0)

	return p, rep, err
}

// solveMILP builds the MILP, optionally writes it as LP, seeds it with a
// lifted NLP answer when warm starts are on, and hands it to gurobi_cl.
func solveMILP(ctx context.Context, a *app, g *exchange.Graph, lpPath string) (*milp.Formulation, *milp.Result, error) {
	fm, err := milp.Build(ctx, g, a.milpOptions())
	if err != nil {
		return nil, nil, err
	}
	if lpPath != "" {
		if err = writeTo(lpPath, fm.Model.WriteLP); err != nil {
			return nil, nil, err
		}
	}

	opts := a.cfg.SolveOptions()
	if a.cfg.Solver.WarmStart {
		opts.Start = warmStart(ctx, a, g, fm)
	}
	res, err := milp.Solve(ctx, fm, a.gurobi(), opts)
	if err != nil {
		return fm, nil, err
	}

	return fm, res, nil
}

// warmStart lifts the NLP answer into fm; nil when it is unavailable.
func warmStart(ctx context.Context, a *app, g *exchange.Graph, fm *milp.Formulation) []float64 {
	log := logger.FromContext(ctx)
	_, rep, err := solveNLP(ctx, a, g)
	if err != nil {
		log.Warn("warm start skipped", "error", err)
		return nil
	}
	x, err := fm.Lift(rep.Best.X)
	if err != nil {
		log.Warn("warm start skipped", "error", err)
		return nil
	}
	if viol, err := fm.Check(x, 1e-6); err != nil || len(viol) > 0 {
		log.Warn("warm start violates the MILP", "rows", len(viol), "error", err)
	}

	return x
}

// writeTo creates path and streams write into it.
func writeTo(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return write(f)
}
