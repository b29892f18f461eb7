package prometheus

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fluxorio/txworker/pkg/core/concurrency"
)

var (
	// DefaultRegistry is the default Prometheus registry
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer is the default Prometheus registerer
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "txworker"}, DefaultRegistry)

	// Metrics collection
	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds the worker thread metrics and records them as a
// concurrency.Observer.
type Metrics struct {
	// Thread lifecycle metrics
	ThreadsCreatedTotal    *prometheus.CounterVec
	ThreadsActive          *prometheus.GaugeVec
	ThreadsTerminatedTotal *prometheus.CounterVec
	ThreadRunDuration      *prometheus.HistogramVec

	// Shutdown wait metrics
	ShutdownWaitsTotal   *prometheus.CounterVec
	ShutdownWaitDuration *prometheus.HistogramVec
	ShutdownAliveThreads *prometheus.GaugeVec

	startedMu sync.Mutex
	started   map[*concurrency.Thread]time.Time
}

var _ concurrency.Observer = (*Metrics)(nil)

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics creates a new metrics collection
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		ThreadsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txworker_threads_created_total",
				Help: "Total number of threads created by thread factories",
			},
			[]string{"group", "daemon"},
		),
		ThreadsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "txworker_threads_active",
				Help: "Number of started threads that have not terminated",
			},
			[]string{"group", "daemon"},
		),
		ThreadsTerminatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txworker_threads_terminated_total",
				Help: "Total number of terminated threads",
			},
			[]string{"group", "interrupted"},
		),
		ThreadRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "txworker_thread_run_duration_seconds",
				Help:    "Time from thread start to termination in seconds",
				Buckets: []float64{.001, .01, .1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"group"},
		),
		ShutdownWaitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txworker_shutdown_waits_total",
				Help: "Total number of WaitAllShutdown calls by outcome",
			},
			[]string{"group", "outcome"}, // outcome: shutdown, timeout
		),
		ShutdownWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "txworker_shutdown_wait_duration_seconds",
				Help:    "WaitAllShutdown duration in seconds",
				Buckets: []float64{.01, .1, .5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"group"},
		),
		ShutdownAliveThreads: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "txworker_shutdown_alive_threads",
				Help: "Foreground threads still alive when the last shutdown wait returned",
			},
			[]string{"group"},
		),
		started: make(map[*concurrency.Thread]time.Time),
	}
}

// ThreadCreated implements concurrency.Observer
func (m *Metrics) ThreadCreated(t *concurrency.Thread) {
	m.ThreadsCreatedTotal.WithLabelValues(t.Group().Name(), strconv.FormatBool(t.IsDaemon())).Inc()
}

// ThreadStarted implements concurrency.Observer
func (m *Metrics) ThreadStarted(t *concurrency.Thread) {
	m.ThreadsActive.WithLabelValues(t.Group().Name(), strconv.FormatBool(t.IsDaemon())).Inc()

	m.startedMu.Lock()
	m.started[t] = time.Now()
	m.startedMu.Unlock()
}

// ThreadTerminated implements concurrency.Observer
func (m *Metrics) ThreadTerminated(t *concurrency.Thread) {
	group := t.Group().Name()
	m.ThreadsActive.WithLabelValues(group, strconv.FormatBool(t.IsDaemon())).Dec()
	m.ThreadsTerminatedTotal.WithLabelValues(group, strconv.FormatBool(t.IsInterrupted())).Inc()

	m.startedMu.Lock()
	start, ok := m.started[t]
	delete(m.started, t)
	m.startedMu.Unlock()
	if ok {
		m.ThreadRunDuration.WithLabelValues(group).Observe(time.Since(start).Seconds())
	}
}

// ShutdownWaited implements concurrency.Observer
func (m *Metrics) ShutdownWaited(group string, ok bool, alive int, elapsed time.Duration) {
	outcome := "shutdown"
	if !ok {
		outcome = "timeout"
	}
	m.ShutdownWaitsTotal.WithLabelValues(group, outcome).Inc()
	m.ShutdownWaitDuration.WithLabelValues(group).Observe(elapsed.Seconds())
	m.ShutdownAliveThreads.WithLabelValues(group).Set(float64(alive))
}
