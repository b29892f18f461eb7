package concurrency

import (
	"context"
	"strings"
	"time"

	"github.com/fluxorio/txworker/pkg/core"
	"github.com/fluxorio/txworker/pkg/core/failfast"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPollInterval is how long WaitAllShutdown sleeps between checks
const DefaultPollInterval = 2 * time.Second

// DonePredicate decides whether a thread no longer holds up shutdown
type DonePredicate func(t *Thread) bool

// IsDone is the default DonePredicate: the thread has terminated, was
// interrupted, or is a daemon.
func IsDone(t *Thread) bool {
	return !t.IsAlive() || t.IsInterrupted() || t.IsDaemon()
}

// ShutdownWaiter polls a group until its members are done
type ShutdownWaiter struct {
	group        *ThreadGroup
	pollInterval time.Duration
	done         DonePredicate
	logger       core.Logger
	observer     Observer
}

// WaiterOption configures a ShutdownWaiter
type WaiterOption func(*ShutdownWaiter)

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(d time.Duration) WaiterOption {
	return func(w *ShutdownWaiter) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithDonePredicate overrides IsDone
func WithDonePredicate(fn DonePredicate) WaiterOption {
	return func(w *ShutdownWaiter) {
		if fn != nil {
			w.done = fn
		}
	}
}

// WithWaiterLogger sets the logger for the active/alive/outcome messages
func WithWaiterLogger(l core.Logger) WaiterOption {
	return func(w *ShutdownWaiter) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWaiterObserver sets the observer told about each wait outcome
func WithWaiterObserver(o Observer) WaiterOption {
	return func(w *ShutdownWaiter) {
		if o != nil {
			w.observer = o
		}
	}
}

// NewShutdownWaiter creates a waiter for group
func NewShutdownWaiter(group *ThreadGroup, opts ...WaiterOption) *ShutdownWaiter {
	failfast.NotNil(group, "thread group")
	w := &ShutdownWaiter{
		group:        group,
		pollInterval: DefaultPollInterval,
		done:         IsDone,
		logger:       defaultLogger(),
		observer:     NopObserver{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PollInterval returns the sleep between checks
func (w *ShutdownWaiter) PollInterval() time.Duration {
	return w.pollInterval
}

// WaitAllShutdown blocks until every thread that was live in the group when
// the call started is done, or until timeout elapses. It reports true only in
// the first case. Threads started after the call began are not waited for.
//
// The group is checked once per poll interval and the sleep cannot be cut
// short, so a timeout is noticed up to one interval late. A timeout of zero or
// less returns false without checking.
func (w *ShutdownWaiter) WaitAllShutdown(timeout time.Duration) bool {
	start := time.Now()
	_, span := tracer.Start(context.Background(), "group.wait_all_shutdown", trace.WithAttributes(
		attribute.String("thread.group", w.group.Name()),
		attribute.Int64("timeout_ms", timeout.Milliseconds()),
	))
	defer span.End()

	alive := w.group.Enumerate()
	var done []*Thread
	w.logger.Infof("Current ACTIVE thread count is: %d", len(alive))

	expire := start.Add(timeout)
	for time.Now().Before(expire) {
		alive, done = classify(alive, done, w.done)
		w.logger.Debugf("%s shutdown poll: alive=%d done=%d", w.group.Name(), len(alive), len(done))
		if len(alive) == 0 {
			w.logger.Infof("All %s threads are shutdown.", w.group.Name())
			w.finish(span, start, true, 0)
			return true
		}
		w.logger.Infof("Alive %s threads: %s", w.group.Name(), threadNames(alive))
		time.Sleep(w.pollInterval)
	}

	w.logger.Warnf("Some %s threads are still alive but expire time has reached, alive threads: %s",
		w.group.Name(), threadNames(alive))
	w.finish(span, start, false, len(alive))
	return false
}

func (w *ShutdownWaiter) finish(span trace.Span, start time.Time, ok bool, alive int) {
	span.SetAttributes(attribute.Bool("shutdown.ok", ok), attribute.Int("shutdown.alive", alive))
	w.observer.ShutdownWaited(w.group.Name(), ok, alive, time.Since(start))
}

// classify moves every element of src satisfying pred to dst
func classify[T any](src, dst []T, pred func(T) bool) ([]T, []T) {
	kept := src[:0]
	for _, v := range src {
		if pred(v) {
			dst = append(dst, v)
		} else {
			kept = append(kept, v)
		}
	}
	return kept, dst
}

func threadNames(threads []*Thread) string {
	names := make([]string, len(threads))
	for i, t := range threads {
		names[i] = t.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}
