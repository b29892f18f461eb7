package tracing

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/fluxorio/txworker/pkg/core"
	"github.com/fluxorio/txworker/pkg/core/concurrency"
)

func TestNewProvider_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewProvider(Config{ServiceName: "test", SampleRatio: 1, Writer: &buf})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "unit")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name":"unit"`)
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := NewProvider(Config{Exporter: "jaeger"})
	assert.ErrorContains(t, err, "unknown trace exporter")

	_, err = NewProvider(Config{Exporter: ExporterZipkin})
	assert.ErrorContains(t, err, "requires an endpoint")
}

func TestNewProvider_Zipkin(t *testing.T) {
	tp, err := NewProvider(Config{Exporter: ExporterZipkin, Endpoint: "http://127.0.0.1:9411/api/v2/spans"})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tp.Shutdown(ctx)
}

func TestInitialize_TracesThreadRuns(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Initialize(Config{ServiceName: "txworker-test", SampleRatio: 1, Writer: &buf})
	require.NoError(t, err)

	r := concurrency.NewRegistry("traced",
		concurrency.WithRegistryLogger(core.NewNopLogger()),
		concurrency.WithRegistryPollInterval(5*time.Millisecond),
	)
	th := r.Create("span", false).NewThread(context.Background(), concurrency.Runnable(func() {}))
	require.NoError(t, th.Start())
	require.True(t, r.WaitAllShutdown(time.Second))

	require.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, otel.GetTextMapPropagator())
	out := buf.String()
	assert.Contains(t, out, `"Name":"thread.run"`)
	assert.Contains(t, out, `"Name":"group.wait_all_shutdown"`)
	assert.Contains(t, out, "traced-span-1")
}
