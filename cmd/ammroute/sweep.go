package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/katalvlaran/ammroute/solver"
	"github.com/katalvlaran/ammroute/solver/auglag"
	"github.com/katalvlaran/ammroute/sweep"
)

func runSweep(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var inst instanceFlags
	var mf modelFlags
	inst.register(fs)
	mf.register(fs)
	method := fs.String("method", methodMILP, "milp (gurobi_cl) or nlp (local solver)")
	workers := fs.Int("workers", 0, "concurrent solves (default from config)")
	out := fs.String("o", "", "CSV report file (default sweep.output, else stdout)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *method != methodMILP && *method != methodNLP {
		return usagef("sweep: unknown method %q", *method)
	}

	ctx, a, err := newApp(ctx, "sweep", fs, &inst, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()
	mf.apply(fs, a)
	if *workers > 0 {
		a.cfg.Sweep.Workers = *workers
	}
	if err = a.cfg.Validate(); err != nil {
		return usagef("invalid flags: %v", err)
	}

	g, err := a.graph()
	if err != nil {
		return a.fail(err)
	}
	newGurobi := func() solver.MILPSolver { return a.gurobi() }
	solve := sweep.MILP(newGurobi, a.milpOptions(), a.cfg.SolveOptions())
	if *method == methodNLP {
		newAuglag := func() solver.NLPSolver { return auglag.New(auglag.Options{}) }
		solve = sweep.NLP(newAuglag, a.nlpOptions(), a.cfg.NLP.Starts, a.cfg.NLP.Seed)
	}
	cases, err := sweep.Cases(g, sweep.Points(a.cfg.SweepAxes()), solve)
	if err != nil {
		return a.fail(err)
	}

	opts := a.cfg.SweepOptions()
	opts.Logger = a.log
	outs, err := sweep.Run(ctx, cases, opts)
	if err != nil {
		return a.fail(err)
	}

	path := *out
	if path == "" {
		path = a.cfg.Sweep.Output
	}
	write := func(w io.Writer) error { return sweep.WriteCSV(w, outs) }
	if path == "" {
		err = write(stdout)
	} else {
		err = writeTo(path, write)
	}
	if err != nil {
		return a.fail(err)
	}

	if n := sweep.Failed(outs); n > 0 {
		return a.fail(fmt.Errorf("sweep: %d of %d cases failed", n, len(outs)))
	}
	a.log.Info("sweep done", "cases", len(outs), "path", path)

	return nil
}
