package nlp

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/ammroute/internal/telemetry"
)

func tracer() trace.Tracer { return otel.Tracer("github.com/katalvlaran/ammroute/nlp") }

func recordModelSize(ctx context.Context, vars, rows int) {
	telemetry.Metrics().RecordModel(ctx, "nlp", vars, rows)
}

func recordStart(ctx context.Context, ok bool, d time.Duration) {
	status := "failed"
	if ok {
		status = "succeeded"
	}
	in := telemetry.Metrics()
	in.RecordStart(ctx, ok)
	in.RecordSolve(ctx, "nlp", status, d)
}
