package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/katalvlaran/ammroute"

// Instruments holds the metric instruments shared by the builders and solvers.
// They are created on the global meter provider, which forwards to whatever
// provider Setup installs later.
type Instruments struct {
	solves    metric.Int64Counter
	duration  metric.Float64Histogram
	modelVars metric.Int64Histogram
	modelRows metric.Int64Histogram
	starts    metric.Int64Counter
}

var metrics = sync.OnceValue(func() *Instruments {
	in, err := newInstruments(otel.Meter(meterName))
	if err != nil {
		otel.Handle(err)
		// noop instruments keep callers nil-safe
		in, _ = newInstruments(noop.NewMeterProvider().Meter(meterName))
	}
	return in
})

// Metrics returns the process-wide instruments.
func Metrics() *Instruments { return metrics() }

func newInstruments(meter metric.Meter) (*Instruments, error) {
	in := &Instruments{}
	var err error

	in.solves, err = meter.Int64Counter(
		"ammroute_solves_total",
		metric.WithDescription("Solves by formulation and status"),
		metric.WithUnit("{solve}"),
	)
	if err != nil {
		return nil, err
	}

	in.duration, err = meter.Float64Histogram(
		"ammroute_solve_duration_seconds",
		metric.WithDescription("Wall time of engine calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	in.modelVars, err = meter.Int64Histogram(
		"ammroute_model_variables",
		metric.WithDescription("Variables per built model"),
		metric.WithUnit("{variable}"),
	)
	if err != nil {
		return nil, err
	}

	in.modelRows, err = meter.Int64Histogram(
		"ammroute_model_constraints",
		metric.WithDescription("Constraint rows per built model"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	in.starts, err = meter.Int64Counter(
		"ammroute_nlp_starts_total",
		metric.WithDescription("NLP local solves by outcome"),
		metric.WithUnit("{start}"),
	)
	if err != nil {
		return nil, err
	}

	return in, nil
}

// RecordSolve counts one engine call and its duration.
func (in *Instruments) RecordSolve(ctx context.Context, formulation, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("formulation", formulation),
		attribute.String("status", status),
	)
	in.solves.Add(ctx, 1, attrs)
	in.duration.Record(ctx, d.Seconds(), attrs)
}

// RecordModel records the size of a built model.
func (in *Instruments) RecordModel(ctx context.Context, formulation string, vars, rows int) {
	attrs := metric.WithAttributes(attribute.String("formulation", formulation))
	in.modelVars.Record(ctx, int64(vars), attrs)
	in.modelRows.Record(ctx, int64(rows), attrs)
}

// RecordStart counts one NLP local solve; ok tells whether it succeeded.
func (in *Instruments) RecordStart(ctx context.Context, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "succeeded"
	}
	in.starts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
