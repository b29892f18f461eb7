package concurrency

import (
	"context"
	"errors"
	"fmt"
)

// Priority is the scheduling hint carried by a Thread. Go does not schedule
// goroutines by priority; the value is kept so pools can be inspected and so
// factories can normalize what a caller would otherwise pass on.
type Priority int

const (
	MinPriority  Priority = 1
	NormPriority Priority = 5
	MaxPriority  Priority = 10
)

// ErrInvalidPriority is returned when a priority is outside [MinPriority, MaxPriority]
var ErrInvalidPriority = errors.New("priority out of range")

func (p Priority) valid() bool {
	return p >= MinPriority && p <= MaxPriority
}

func (p Priority) validate() error {
	if !p.valid() {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidPriority, p, MinPriority, MaxPriority)
	}
	return nil
}

type contextKey string

const (
	priorityKey contextKey = "thread_priority"
	threadKey   contextKey = "current_thread"
)

// WithPriority returns a context whose callers run at priority p
func WithPriority(ctx context.Context, p Priority) context.Context {
	return context.WithValue(ctx, priorityKey, p)
}

// PriorityFromContext returns the priority of the caller that owns ctx.
// A context without one reports NormPriority.
func PriorityFromContext(ctx context.Context) Priority {
	if ctx == nil {
		return NormPriority
	}
	if p, ok := ctx.Value(priorityKey).(Priority); ok {
		return p
	}
	if t := CurrentThread(ctx); t != nil {
		return t.Priority()
	}
	return NormPriority
}

// CurrentThread returns the Thread whose task is running with ctx, or nil
func CurrentThread(ctx context.Context) *Thread {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(threadKey).(*Thread)
	return t
}

// withThread masks any priority set by the thread's creator so the running
// thread reports its own
func withThread(ctx context.Context, t *Thread) context.Context {
	ctx = context.WithValue(ctx, priorityKey, nil)
	return context.WithValue(ctx, threadKey, t)
}
