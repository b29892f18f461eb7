package concurrency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fluxorio/txworker/pkg/core"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/fluxorio/txworker/pkg/core/concurrency"

var tracer = otel.Tracer(tracerName)

// ErrThreadAlreadyStarted is returned by Start on a thread that was started before
var ErrThreadAlreadyStarted = errors.New("thread already started")

const (
	stateNew int32 = iota
	stateRunnable
	stateTerminated
)

// Thread is a goroutine handle with the attributes of a pool worker thread:
// a unique name, a group, a daemon flag, a priority and an interrupted flag.
// Threads are produced by a ThreadFactory and are not started on creation.
type Thread struct {
	id       uuid.UUID
	seq      uint64
	name     string
	group    *ThreadGroup
	task     Task
	daemon   bool
	priority atomic.Int32
	state    atomic.Int32

	// parent keeps the creator's context values (trace span) but not its
	// cancellation.
	parent context.Context

	mu          sync.Mutex
	interrupted atomic.Bool
	cancel      context.CancelFunc
	done        chan struct{}

	logger   core.Logger
	observer Observer
}

func newThread(ctx context.Context, group *ThreadGroup, name string, task Task, daemon bool,
	priority Priority, logger core.Logger, observer Observer) *Thread {
	if ctx == nil {
		ctx = context.Background()
	}
	t := &Thread{
		id:       uuid.New(),
		seq:      group.nextSeq(),
		name:     name,
		group:    group,
		task:     task,
		daemon:   daemon,
		parent:   context.WithoutCancel(ctx),
		done:     make(chan struct{}),
		logger:   logger,
		observer: observer,
	}
	t.priority.Store(int32(priority))
	return t
}

// ID returns the unique identifier assigned at creation
func (t *Thread) ID() uuid.UUID {
	return t.id
}

// Name returns the thread name
func (t *Thread) Name() string {
	return t.name
}

// Group returns the group the thread belongs to
func (t *Thread) Group() *ThreadGroup {
	return t.group
}

// IsDaemon reports whether the thread is a background thread that does not
// hold up group shutdown
func (t *Thread) IsDaemon() bool {
	return t.daemon
}

// Priority returns the current priority
func (t *Thread) Priority() Priority {
	return Priority(t.priority.Load())
}

// SetPriority changes the priority
func (t *Thread) SetPriority(p Priority) error {
	if err := p.validate(); err != nil {
		return err
	}
	t.priority.Store(int32(p))
	return nil
}

// Start runs the task on a new goroutine and adds the thread to its group
func (t *Thread) Start() error {
	if !t.state.CompareAndSwap(stateNew, stateRunnable) {
		return fmt.Errorf("%w: %s", ErrThreadAlreadyStarted, t.name)
	}

	ctx, cancel := context.WithCancel(withThread(t.parent, t))
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	if t.interrupted.Load() {
		cancel()
	}

	t.group.add(t)
	t.observer.ThreadStarted(t)
	go t.run(ctx)
	return nil
}

func (t *Thread) run(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "thread.run", trace.WithAttributes(
		attribute.String("thread.name", t.name),
		attribute.String("thread.group", t.group.Name()),
		attribute.String("thread.task", t.task.Name()),
		attribute.Bool("thread.daemon", t.daemon),
	))

	defer func() {
		if r := recover(); r != nil {
			t.logger.Errorf("thread %s: task %s panicked: %v", t.name, t.task.Name(), r)
			span.SetStatus(codes.Error, fmt.Sprintf("panic: %v", r))
		}
		span.SetAttributes(attribute.Bool("thread.interrupted", t.IsInterrupted()))
		span.End()

		t.state.Store(stateTerminated)
		t.group.remove(t)
		t.mu.Lock()
		t.cancel()
		t.mu.Unlock()
		t.observer.ThreadTerminated(t)
		close(t.done)
	}()

	if err := t.task.Execute(ctx); err != nil {
		span.RecordError(err)
		if t.IsInterrupted() && errors.Is(err, context.Canceled) {
			t.logger.Debugf("thread %s: task %s stopped after interrupt", t.name, t.task.Name())
			return
		}
		span.SetStatus(codes.Error, err.Error())
		t.logger.Errorf("thread %s: task %s failed: %v", t.name, t.task.Name(), err)
	}
}

// Interrupt flags the thread and cancels the context its task runs with.
// Interrupting a thread that has not started yet makes its task see a
// cancelled context from the beginning.
func (t *Thread) Interrupt() {
	t.mu.Lock()
	t.interrupted.Store(true)
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// IsInterrupted reports whether Interrupt was called
func (t *Thread) IsInterrupted() bool {
	return t.interrupted.Load()
}

// IsAlive reports whether the thread has been started and has not terminated
func (t *Thread) IsAlive() bool {
	return t.state.Load() == stateRunnable
}

// Done is closed when the thread terminates
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Join blocks until the thread terminates or ctx is done
func (t *Thread) Join(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Thread) String() string {
	return fmt.Sprintf("Thread[%s,%d,%s]", t.name, t.Priority(), t.group.Name())
}
