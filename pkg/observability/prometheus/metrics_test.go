package prometheus_test

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/fluxorio/txworker/pkg/core"
	"github.com/fluxorio/txworker/pkg/core/concurrency"
	"github.com/fluxorio/txworker/pkg/observability/prometheus"
)

func newObservedRegistry(t *testing.T) (*concurrency.Registry, *prometheus.Metrics, *prom.Registry) {
	t.Helper()
	reg := prom.NewRegistry()
	m := prometheus.NewMetrics(reg)
	r := concurrency.NewRegistry("metrics",
		concurrency.WithRegistryLogger(core.NewNopLogger()),
		concurrency.WithRegistryObserver(m),
		concurrency.WithRegistryPollInterval(5*time.Millisecond),
	)
	return r, m, reg
}

func TestMetrics_ThreadLifecycle(t *testing.T) {
	r, m, _ := newObservedRegistry(t)

	release := make(chan struct{})
	fg := r.Create("fg", false)
	daemon := r.Create("bg", true)

	t1 := fg.NewThread(context.Background(), concurrency.Runnable(func() { <-release }))
	t2 := daemon.NewThread(context.Background(), concurrency.Runnable(func() { <-release }))
	require.NoError(t, t1.Start())
	require.NoError(t, t2.Start())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThreadsCreatedTotal.WithLabelValues("metrics", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThreadsCreatedTotal.WithLabelValues("metrics", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThreadsActive.WithLabelValues("metrics", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThreadsActive.WithLabelValues("metrics", "true")))

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, t1.Join(ctx))
	require.NoError(t, t2.Join(ctx))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.ThreadsActive.WithLabelValues("metrics", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ThreadsTerminatedTotal.WithLabelValues("metrics", "false")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ThreadRunDuration))
}

func TestMetrics_ShutdownWaits(t *testing.T) {
	r, m, _ := newObservedRegistry(t)

	release := make(chan struct{})
	th := r.Create("slow", false).NewThread(context.Background(), concurrency.Runnable(func() { <-release }))
	require.NoError(t, th.Start())

	assert.False(t, r.WaitAllShutdown(20*time.Millisecond))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ShutdownWaitsTotal.WithLabelValues("metrics", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ShutdownAliveThreads.WithLabelValues("metrics")))

	close(release)
	assert.True(t, r.WaitAllShutdown(time.Second))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ShutdownWaitsTotal.WithLabelValues("metrics", "shutdown")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ShutdownAliveThreads.WithLabelValues("metrics")))
}

func TestGetMetrics_Singleton(t *testing.T) {
	assert.Same(t, prometheus.GetMetrics(), prometheus.GetMetrics())
}

func TestFastHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	m := prometheus.NewMetrics(reg)
	m.ShutdownWaited("served", true, 0, 10*time.Millisecond)

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: prometheus.FastHTTPHandler(reg)}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	client := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) { return ln.Dial() },
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI("http://test/metrics")

	require.NoError(t, client.Do(req, resp))
	assert.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	body := string(resp.Body())
	assert.True(t, strings.Contains(body, `txworker_shutdown_waits_total{group="served",outcome="shutdown"} 1`), body)
}

func TestRegisterRuntimeCollectors(t *testing.T) {
	prometheus.RegisterRuntimeCollectors()
	prometheus.RegisterRuntimeCollectors()

	families, err := prometheus.DefaultRegistry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}
