package concurrency

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/fluxorio/txworker/pkg/core"
	"github.com/fluxorio/txworker/pkg/core/failfast"
)

// ThreadFactory produces threads named "<group>-<prefix>-<n>" that all belong
// to one group and share the factory's daemon flag. It is safe for concurrent
// use; n starts at 1 and is never reused by the same factory.
type ThreadFactory struct {
	group        *ThreadGroup
	namePrefix   string
	daemon       bool
	threadNumber atomic.Int64
	logger       core.Logger
	observer     Observer
}

// FactoryOption configures a ThreadFactory
type FactoryOption func(*ThreadFactory)

// WithFactoryLogger sets the logger handed to produced threads
func WithFactoryLogger(l core.Logger) FactoryOption {
	return func(f *ThreadFactory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithFactoryObserver sets the observer notified about produced threads
func WithFactoryObserver(o Observer) FactoryOption {
	return func(f *ThreadFactory) {
		if o != nil {
			f.observer = o
		}
	}
}

// NewThreadFactory creates a factory bound to group. An empty namePrefix is
// accepted; names only serve diagnostics.
func NewThreadFactory(group *ThreadGroup, namePrefix string, daemon bool, opts ...FactoryOption) *ThreadFactory {
	failfast.NotNil(group, "thread group")
	f := &ThreadFactory{
		group:      group,
		namePrefix: namePrefix,
		daemon:     daemon,
		logger:     defaultLogger(),
		observer:   NopObserver{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewThread returns a new, not started thread that runs task. The thread
// starts out with the priority of the caller owning ctx and is then reset to
// NormPriority whenever that differs, whether higher or lower.
func (f *ThreadFactory) NewThread(ctx context.Context, task Task) *Thread {
	failfast.NotNil(task, "task")
	n := f.threadNumber.Add(1)
	name := fmt.Sprintf("%s-%s-%d", f.group.Name(), f.namePrefix, n)

	t := newThread(ctx, f.group, name, task, f.daemon, PriorityFromContext(ctx), f.logger, f.observer)
	if t.Priority() != NormPriority {
		t.priority.Store(int32(NormPriority))
	}
	f.observer.ThreadCreated(t)
	return t
}

// Group returns the group every produced thread belongs to
func (f *ThreadFactory) Group() *ThreadGroup {
	return f.group
}

// NamePrefix returns the prefix placed between group name and ordinal
func (f *ThreadFactory) NamePrefix() string {
	return f.namePrefix
}

// Daemon reports the daemon flag copied into produced threads
func (f *ThreadFactory) Daemon() bool {
	return f.daemon
}

// Created returns how many threads the factory has produced
func (f *ThreadFactory) Created() int64 {
	return f.threadNumber.Load()
}
