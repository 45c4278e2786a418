// Command ammroute finds the best way to convert a quantity of one currency
// into another across a network of constant-product AMM pools.
//
// Usage:
//
//	ammroute solve    [flags]   route one instance (MILP via gurobi_cl, or NLP)
//	ammroute export   [flags]   write the MILP as an LP file (and a MIP start)
//	ammroute generate [flags]   write a random instance as YAML
//	ammroute sweep    [flags]   compare split counts, gas fees or quantities
//	ammroute version
//
// Exit codes: 0 success, 1 runtime failure, 2 usage, 3 no optimal or
// successful solve, 4 invalid input data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/katalvlaran/ammroute/exchange"
	"github.com/katalvlaran/ammroute/ingest"
	"github.com/katalvlaran/ammroute/milp"
	"github.com/katalvlaran/ammroute/nlp"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitNotSolved = 3
	exitBadInput  = 4
)

// usageError marks command-line mistakes.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

var commands = []command{
	{"solve", "route one instance", runSolve},
	{"export", "write the MILP as an LP file", runExport},
	{"generate", "write a random instance as YAML", runGenerate},
	{"sweep", "solve a grid of split counts, gas fees or quantities", runSweep},
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	name := args[0]
	switch name {
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "ammroute %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return exitOK
	case "help", "-h", "-help", "--help":
		printUsage(stdout)
		return exitOK
	}

	for _, c := range commands {
		if c.name != name {
			continue
		}
		err := c.run(ctx, args[1:], stdout, stderr)
		if err != nil && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return exitCode(err)
	}
	fmt.Fprintf(stderr, "error: unknown command %q\n", name)
	printUsage(stderr)

	return exitUsage
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: ammroute <command> [flags]")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(w, "  version   print the build version")
}

var badInput = []error{
	ingest.ErrBadRecord, ingest.ErrDuplicatePool, ingest.ErrUnknownFormat, ingest.ErrBadGenerator,
	exchange.ErrNoExchanges, exchange.ErrEmptyExchangeID, exchange.ErrDuplicateExchange,
	exchange.ErrInvalidReserve, exchange.ErrInvalidFee, exchange.ErrFeeCurrency,
	exchange.ErrCurrencyNotFound, exchange.ErrExchangeNotFound, exchange.ErrMissingEndpoint,
	exchange.ErrSourceIsTarget, exchange.ErrInvalidQuantity, exchange.ErrInvalidFeeBudget,
	exchange.ErrInvalidRate, os.ErrNotExist,
}

func exitCode(err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	var ue usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	if errors.Is(err, milp.ErrNotOptimal) || errors.Is(err, nlp.ErrNoSuccessfulStart) {
		return exitNotSolved
	}
	for _, target := range badInput {
		if errors.Is(err, target) {
			return exitBadInput
		}
	}

	return exitFailure
}
