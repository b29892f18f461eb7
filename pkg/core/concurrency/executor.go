package concurrency

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrExecutorClosed is returned by Submit after Shutdown
	ErrExecutorClosed = errors.New("executor is closed")

	// ErrNilTask is returned when submitting a nil task
	ErrNilTask = errors.New("task cannot be nil")
)

// ExecutorStats provides statistics about executor performance
type ExecutorStats struct {
	QueuedTasks      int64   // Current number of queued tasks
	ActiveWorkers    int     // Worker threads still alive
	CompletedTasks   int64   // Tasks that returned nil; failures are not counted
	FailedTasks      int64   // Tasks that returned an error or panicked
	RejectedTasks    int64   // Total rejected tasks (backpressure)
	QueueCapacity    int     // Maximum queue capacity
	QueueUtilization float64 // Queue utilization percentage
}

// Executor runs submitted tasks on a fixed set of worker threads taken from a
// ThreadFactory, so its workers show up in the factory's group.
type Executor interface {
	// Submit queues a task for execution
	// Returns ErrMailboxFull if the queue is full (backpressure) or
	// ErrExecutorClosed after Shutdown
	Submit(task Task) error

	// SubmitWithTimeout queues a task, waiting up to timeout for queue space
	SubmitWithTimeout(task Task, timeout time.Duration) error

	// Shutdown stops accepting tasks and lets workers drain the queue.
	// If ctx ends first the workers are interrupted and the ctx error returned.
	Shutdown(ctx context.Context) error

	// Stats returns current executor statistics
	Stats() ExecutorStats

	// Workers returns the worker threads
	Workers() []*Thread
}
