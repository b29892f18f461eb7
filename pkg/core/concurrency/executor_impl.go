package concurrency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxorio/txworker/pkg/core"
)

// defaultExecutor pulls tasks from a bounded mailbox on worker threads
type defaultExecutor struct {
	queue     Mailbox[Task]
	workers   []*Thread
	queueSize int
	mu        sync.RWMutex
	closed    bool
	stopWatch func() bool
	logger    core.Logger

	queuedTasks    atomic.Int64
	completedTasks atomic.Int64
	failedTasks    atomic.Int64
	rejectedTasks  atomic.Int64
}

// ExecutorConfig configures an Executor
type ExecutorConfig struct {
	Workers   int // Number of worker threads
	QueueSize int // Maximum queue size (bounded for backpressure)

	// Factory produces the worker threads. Nil means a non-daemon
	// "executor" factory on DefaultRegistry.
	Factory *ThreadFactory

	// Logger reports task failures. Nil means the package default.
	Logger core.Logger
}

// DefaultExecutorConfig returns default executor configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Workers:   10,
		QueueSize: 1000,
	}
}

// NewExecutor creates an Executor and starts its worker threads. Cancelling
// ctx interrupts the workers.
func NewExecutor(ctx context.Context, config ExecutorConfig) Executor {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = 100
	}
	if config.Factory == nil {
		config.Factory = DefaultRegistry().Create("executor", false)
	}
	if config.Logger == nil {
		config.Logger = defaultLogger()
	}

	e := &defaultExecutor{
		queue:     NewBoundedMailbox[Task](config.QueueSize),
		workers:   make([]*Thread, 0, config.Workers),
		queueSize: config.QueueSize,
		logger:    config.Logger,
	}

	for i := 0; i < config.Workers; i++ {
		w := config.Factory.NewThread(ctx, NewNamedTask(fmt.Sprintf("executor-worker-%d", i), e.work))
		e.workers = append(e.workers, w)
	}
	for _, w := range e.workers {
		if err := w.Start(); err != nil {
			e.logger.Errorf("executor: start %s: %v", w.Name(), err)
		}
	}
	e.stopWatch = context.AfterFunc(ctx, e.interruptWorkers)

	return e
}

// work is the worker thread loop; it ends when the queue is closed and
// drained or when the thread is interrupted
func (e *defaultExecutor) work(ctx context.Context) error {
	self := CurrentThread(ctx)
	for {
		task, err := e.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, ErrMailboxClosed) {
				return nil
			}
			return err
		}
		e.queuedTasks.Add(-1)
		e.execute(ctx, self, task)
	}
}

func (e *defaultExecutor) execute(ctx context.Context, self *Thread, task Task) {
	defer func() {
		if r := recover(); r != nil {
			e.failedTasks.Add(1)
			e.logger.Errorf("%s: task %s panicked: %v", threadName(self), task.Name(), r)
		}
	}()

	if err := task.Execute(ctx); err != nil {
		e.failedTasks.Add(1)
		e.logger.Errorf("%s: task %s failed: %v", threadName(self), task.Name(), err)
		return
	}
	e.completedTasks.Add(1)
}

func threadName(t *Thread) string {
	if t == nil {
		return "executor"
	}
	return t.Name()
}

func (e *defaultExecutor) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

// Submit implements Executor interface
func (e *defaultExecutor) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	if e.isClosed() {
		return ErrExecutorClosed
	}

	e.queuedTasks.Add(1)
	if err := e.queue.Send(task); err != nil {
		e.queuedTasks.Add(-1)
		if errors.Is(err, ErrMailboxClosed) {
			return ErrExecutorClosed
		}
		e.rejectedTasks.Add(1)
		return err
	}
	return nil
}

// SubmitWithTimeout implements Executor interface
func (e *defaultExecutor) SubmitWithTimeout(task Task, timeout time.Duration) error {
	if task == nil {
		return ErrNilTask
	}
	if e.isClosed() {
		return ErrExecutorClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	e.queuedTasks.Add(1)
	if err := e.queue.SendContext(ctx, task); err != nil {
		e.queuedTasks.Add(-1)
		if errors.Is(err, ErrMailboxClosed) {
			return ErrExecutorClosed
		}
		e.rejectedTasks.Add(1)
		return fmt.Errorf("submit timeout after %v: %w", timeout, err)
	}
	return nil
}

// Shutdown implements Executor interface
func (e *defaultExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.stopWatch()
	e.queue.Close()

	for _, w := range e.workers {
		if err := w.Join(ctx); err != nil {
			e.interruptWorkers()
			return fmt.Errorf("shutdown timeout: %w", err)
		}
	}
	return nil
}

func (e *defaultExecutor) interruptWorkers() {
	for _, w := range e.workers {
		w.Interrupt()
	}
}

// Stats implements Executor interface
func (e *defaultExecutor) Stats() ExecutorStats {
	queued := e.queuedTasks.Load()
	queueUtilization := float64(queued) / float64(e.queueSize) * 100.0
	if queueUtilization > 100.0 {
		queueUtilization = 100.0
	}

	active := 0
	for _, w := range e.workers {
		if w.IsAlive() {
			active++
		}
	}

	return ExecutorStats{
		QueuedTasks:      queued,
		ActiveWorkers:    active,
		CompletedTasks:   e.completedTasks.Load(),
		FailedTasks:      e.failedTasks.Load(),
		RejectedTasks:    e.rejectedTasks.Load(),
		QueueCapacity:    e.queueSize,
		QueueUtilization: queueUtilization,
	}
}

// Workers implements Executor interface
func (e *defaultExecutor) Workers() []*Thread {
	out := make([]*Thread, len(e.workers))
	copy(out, e.workers)
	return out
}
