package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/katalvlaran/ammroute/milp"
)

func runExport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var inst instanceFlags
	var mf modelFlags
	inst.register(fs)
	mf.register(fs)
	out := fs.String("o", "", "LP output file (default stdout)")
	mst := fs.String("mst", "", "also write a MIP start lifted from the NLP answer")
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx, a, err := newApp(ctx, "export", fs, &inst, stdout, stderr)
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
	fm, err := milp.Build(ctx, g, a.milpOptions())
	if err != nil {
		return a.fail(err)
	}

	if *out == "" {
		err = fm.Model.WriteLP(stdout)
	} else {
		err = writeTo(*out, fm.Model.WriteLP)
	}
	if err != nil {
		return a.fail(err)
	}
	stats := fm.Model.Stats()
	a.log.Info("model exported", "path", *out, "vars", stats.Vars, "constraints", stats.Constraints)

	if *mst == "" {
		return nil
	}
	start := warmStart(ctx, a, g, fm)
	if start == nil {
		return a.fail(fmt.Errorf("export: no MIP start available for %s", *mst))
	}
	write := func(w io.Writer) error { return fm.Model.WriteMST(w, start) }
	if err = writeTo(*mst, write); err != nil {
		return a.fail(err)
	}
	a.log.Info("mip start exported", "path", *mst)

	return nil
}
