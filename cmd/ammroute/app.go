package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/ingest"
	"github.com/katalvlaran/ammroute/internal/config"
	"github.com/katalvlaran/ammroute/internal/logger"
	"github.com/katalvlaran/ammroute/internal/telemetry"
)

const instrumentation = "github.com/katalvlaran/ammroute/cmd/ammroute"

// app is the per-command runtime: configuration, logger and telemetry.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
	span   trace.Span

	shutdown []func(context.Context) error
}

// instanceFlags override the instance section of the configuration.
type instanceFlags struct {
	config    string
	data      string
	format    string
	source    string
	target    string
	quantity  float64
	feeBudget float64
	logLevel  string
}

// registerBase adds the flags every command takes.
func (f *instanceFlags) registerBase(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "configuration file (default ./ammroute.yaml when present)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
}

func (f *instanceFlags) register(fs *flag.FlagSet) {
	f.registerBase(fs)
	fs.StringVar(&f.data, "data", "", "exchange data file (.yaml or .csv)")
	fs.StringVar(&f.format, "format", "", "data format: yaml or csv (default by extension)")
	fs.StringVar(&f.source, "source", "", "source currency o")
	fs.StringVar(&f.target, "target", "", "target currency d")
	fs.Float64Var(&f.quantity, "quantity", 0, "quantity T0 of the source currency")
	fs.Float64Var(&f.feeBudget, "fee-budget", -1, "aggregate fee budget, < 0 for none")
}

// apply copies the explicitly set flags over cfg.
func (f *instanceFlags) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "data":
			cfg.Instance.Path = f.data
		case "format":
			cfg.Instance.Format = f.format
		case "source":
			cfg.Instance.Source = f.source
		case "target":
			cfg.Instance.Target = f.target
		case "quantity":
			cfg.Instance.Quantity = f.quantity
		case "fee-budget":
			cfg.Instance.FeeBudget = f.feeBudget
		case "log-level":
			cfg.Log.Level = f.logLevel
		}
	})
}

// parse parses args into fs, wrapping flag errors as usage errors.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}
	if fs.NArg() > 0 {
		return usagef("%s: unexpected arguments %v", fs.Name(), fs.Args())
	}

	return nil
}

// newApp loads configuration, applies flag overrides and starts logging and
// telemetry. The caller must call close.
func newApp(ctx context.Context, name string, fs *flag.FlagSet, f *instanceFlags, stdout, stderr io.Writer) (context.Context, *app, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return ctx, nil, err
	}
	f.apply(fs, cfg)
	if err = cfg.Validate(); err != nil {
		return ctx, nil, usagef("invalid flags: %v", err)
	}

	log, closer, err := logger.New(cfg.Log, stderr)
	if err != nil {
		return ctx, nil, usagef("%v", err)
	}
	a := &app{cfg: cfg, stdout: stdout, stderr: stderr}
	a.shutdown = append(a.shutdown, func(context.Context) error { return closer.Close() })
	a.log = log.With("command", name)

	if cfg.Telemetry.Enabled || cfg.Telemetry.MetricsAddr != "" {
		p, err := telemetry.Setup(ctx, cfg.TelemetrySetup(), stderr)
		if err != nil {
			a.close()
			return ctx, nil, err
		}
		a.shutdown = append(a.shutdown, p.Shutdown)
		if addr := cfg.Telemetry.MetricsAddr; addr != "" {
			go func() {
				if err := p.Serve(ctx, addr); err != nil {
					a.log.Warn("metrics listener stopped", "addr", addr, "error", err)
				}
			}()
			a.log.Info("serving metrics", "addr", addr)
		}
	}

	ctx, a.span = otel.Tracer(instrumentation).Start(ctx, "ammroute."+name)
	ctx = logger.WithContext(ctx, a.log)
	a.log.DebugContext(ctx, "starting", "version", version)

	return ctx, a, nil
}

// close ends the command span and flushes telemetry and log files.
func (a *app) close() {
	if a.span != nil {
		a.span.End()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			fmt.Fprintf(a.stderr, "warning: shutdown: %v\n", err)
		}
	}
}

// fail records err on the command span and returns it.
func (a *app) fail(err error) error {
	if err != nil && a.span != nil {
		a.span.RecordError(err)
		a.span.SetStatus(codes.Error, "command failed")
	}

	return err
}

// graph loads the configured instance.
func (a *app) graph() (*exchange.Graph, error) {
	in := a.cfg.Instance
	if in.Path == "" {
		return nil, usagef("no instance: set -data or instance.path")
	}
	exs, err := ingest.Load(in.Path, ingest.Format(in.Format))
	if err != nil {
		return nil, err
	}
	opts := []exchange.Option{
		exchange.WithSource(exchange.Currency(in.Source)),
		exchange.WithTarget(exchange.Currency(in.Target)),
		exchange.WithQuantity(in.Quantity),
	}
	if in.FeeBudget >= 0 {
		opts = append(opts, exchange.WithFeeBudget(in.FeeBudget))
	}
	if v := a.cfg.Valuation(); v != nil {
		opts = append(opts, exchange.WithValuation(v))
	}
	g, err := exchange.New(exs, opts...)
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w", in.Path, err)
	}
	a.log.Info("instance loaded",
		"path", in.Path, "exchanges", g.NumExchanges(), "currencies", g.NumCurrencies(),
		"source", g.Source(), "target", g.Target(), "quantity", g.Quantity())

	return g, nil
}
