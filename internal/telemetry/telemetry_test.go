package telemetry_test

import (
	"bytes"
	"context"
	"go/parser"
	"go/token"
	"io"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/katalvlaran/ammroute/internal/telemetry"
)

func TestSetupExportsSpansAndMetrics(t *testing.T) {
	ctx := context.Background()
	var spans bytes.Buffer
	p, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     true,
		ServiceName: "ammroute-test",
		Exporter:    telemetry.ExporterStdout,
		SampleRatio: 1,
	}, &spans)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry_test").Start(ctx, "unit-span")
	span.End()
	telemetry.Metrics().RecordSolve(ctx, "milp", "optimal", 250*time.Millisecond)
	telemetry.Metrics().RecordModel(ctx, "milp", 30, 12)
	telemetry.Metrics().RecordStart(ctx, true)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "ammroute_solves_total")
	require.Contains(t, string(body), `formulation="milp"`)
	require.Contains(t, string(body), "ammroute_nlp_starts_total")

	require.NoError(t, p.Shutdown(ctx))
	require.Contains(t, spans.String(), "unit-span")
}

func TestSetupWithoutTracing(t *testing.T) {
	var spans bytes.Buffer
	p, err := telemetry.Setup(context.Background(), telemetry.Config{Exporter: telemetry.ExporterStdout}, &spans)
	require.NoError(t, err)
	require.NoError(t, p.Shutdown(context.Background()))
	require.Empty(t, spans.String())
}

func TestSetupRejectsUnknownExporter(t *testing.T) {
	_, err := telemetry.Setup(context.Background(), telemetry.Config{Enabled: true, Exporter: "zipkin"}, io.Discard)
	require.Error(t, err)
}

func TestServeStopsWithContext(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), telemetry.Config{}, io.Discard)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx, "127.0.0.1:0") }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

// Builders import this package, so it must not import any package of the
// module.
func TestNoModuleImports(t *testing.T) {
	entries, err := os.ReadDir(".")
	require.NoError(t, err)
	fset := token.NewFileSet()
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, imp := range f.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			require.NoError(t, err)
			require.False(t, strings.HasPrefix(path, "github.com/katalvlaran/ammroute"),
				"%s imports %s", name, path)
		}
	}
}
