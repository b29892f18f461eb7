package concurrency

import (
	"context"
)

// Task represents a unit of work run by a Thread or an Executor worker
type Task interface {
	// Execute performs the task work
	// ctx is cancelled when the running thread is interrupted
	Execute(ctx context.Context) error

	// Name returns a human-readable name for the task (for logging/debugging)
	Name() string
}

// TaskFunc is a function type that implements Task
type TaskFunc func(ctx context.Context) error

// Execute implements Task interface for TaskFunc
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Name returns a default name for TaskFunc
func (f TaskFunc) Name() string {
	return "TaskFunc"
}

// Runnable adapts a plain func() that ignores interruption and never fails
type Runnable func()

// Execute implements Task interface for Runnable
func (r Runnable) Execute(context.Context) error {
	r()
	return nil
}

// Name returns a default name for Runnable
func (r Runnable) Name() string {
	return "Runnable"
}

// NamedTask wraps a TaskFunc with a custom name
type NamedTask struct {
	name string
	task TaskFunc
}

// NewNamedTask creates a new NamedTask
func NewNamedTask(name string, task TaskFunc) *NamedTask {
	return &NamedTask{
		name: name,
		task: task,
	}
}

// Execute implements Task interface
func (nt *NamedTask) Execute(ctx context.Context) error {
	return nt.task(ctx)
}

// Name returns the task name
func (nt *NamedTask) Name() string {
	return nt.name
}
