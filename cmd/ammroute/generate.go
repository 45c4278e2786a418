package main

import (
	"context"
	"flag"
	"io"

	"github.com/katalvlaran/ammroute/ingest"
)

func runGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var inst instanceFlags
	inst.registerBase(fs)
	currencies := fs.Int("currencies", 5, "number of currencies, source o and target d included")
	exchanges := fs.Int("exchanges", 3, "number of exchanges")
	seed := fs.Int64("seed", 1, "random seed")
	low := fs.Float64("reserve-low", ingest.DefaultReserveLow, "lowest reserve")
	high := fs.Float64("reserve-high", ingest.DefaultReserveHigh, "highest reserve")
	zeroFees := fs.Bool("zero-fees", false, "write all-zero fee tables")
	out := fs.String("o", "", "output YAML file (default stdout)")
	if err := parse(fs, args); err != nil {
		return err
	}

	_, a, err := newApp(ctx, "generate", fs, &inst, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	opts := []ingest.GenOption{ingest.WithSeed(*seed), ingest.WithReserveRange(*low, *high)}
	if *zeroFees {
		opts = append(opts, ingest.WithZeroFees())
	}
	exs, err := ingest.Generate(*currencies, *exchanges, opts...)
	if err != nil {
		return a.fail(err)
	}
	if *out == "" {
		err = ingest.WriteYAML(stdout, exs)
	} else {
		err = ingest.Dump(*out, exs)
	}
	if err != nil {
		return a.fail(err)
	}
	a.log.Info("instance generated",
		"path", *out, "currencies", *currencies, "exchanges", *exchanges, "seed", *seed,
		"source", ingest.GenSource, "target", ingest.GenTarget)

	return nil
}
