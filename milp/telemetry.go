package milp

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/ammroute/internal/telemetry"
)

const instrumentation = "github.com/katalvlaran/ammroute/milp"

func tracer() trace.Tracer { return otel.Tracer(instrumentation) }

func recordModelSize(ctx context.Context, formulation string, vars, rows int) {
	telemetry.Metrics().RecordModel(ctx, formulation, vars, rows)
}

func recordSolve(ctx context.Context, status string, d time.Duration) {
	telemetry.Metrics().RecordSolve(ctx, "milp", status, d)
}
