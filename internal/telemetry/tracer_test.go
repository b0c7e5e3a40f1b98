package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/frankbria/auto-author/internal/config"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(config.TelemetryConfig{}, "dev")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := initTracer(config.TelemetryConfig{TracingEnabled: true, ServiceName: "tocd-test", SampleRatio: 1}, "v0.0.1", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("toc").Start(context.Background(), "toc.add_chapter")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "toc.add_chapter")
	assert.Contains(t, buf.String(), "tocd-test")
}
