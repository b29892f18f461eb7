package concurrency

import (
	"sync"
	"time"

	"github.com/fluxorio/txworker/pkg/core"
)

// DefaultGroupName names the group of the process-wide registry
const DefaultGroupName = "txTransaction"

// Registry owns one lazily created ThreadGroup and hands out factories and
// shutdown waits bound to it. Tests and embedded runtimes create their own;
// DefaultRegistry serves code that wants a single process-wide group.
type Registry struct {
	name         string
	once         sync.Once
	group        *ThreadGroup
	logger       core.Logger
	observer     Observer
	pollInterval time.Duration
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger passed to factories and waiters
func WithRegistryLogger(l core.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithRegistryObserver sets the observer passed to factories and waiters
func WithRegistryObserver(o Observer) RegistryOption {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithRegistryPollInterval sets the poll interval used by WaitAllShutdown
func WithRegistryPollInterval(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.pollInterval = d
	}
}

// NewRegistry creates a registry whose group will be called name
func NewRegistry(name string, opts ...RegistryOption) *Registry {
	if name == "" {
		name = DefaultGroupName
	}
	r := &Registry{name: name}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(DefaultGroupName)
})

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// Group returns the registry's group, creating it on first use
func (r *Registry) Group() *ThreadGroup {
	r.once.Do(func() {
		r.group = NewThreadGroup(r.name)
	})
	return r.group
}

// Create returns a new factory for the registry's group
func (r *Registry) Create(namePrefix string, daemon bool) *ThreadFactory {
	return NewThreadFactory(r.Group(), namePrefix, daemon,
		WithFactoryLogger(r.logger),
		WithFactoryObserver(r.observer),
	)
}

// Waiter returns a ShutdownWaiter for the registry's group
func (r *Registry) Waiter(opts ...WaiterOption) *ShutdownWaiter {
	base := []WaiterOption{
		WithPollInterval(r.pollInterval),
		WithWaiterLogger(r.logger),
		WithWaiterObserver(r.observer),
	}
	return NewShutdownWaiter(r.Group(), append(base, opts...)...)
}

// WaitAllShutdown waits for the registry's group to drain; see
// ShutdownWaiter.WaitAllShutdown
func (r *Registry) WaitAllShutdown(timeout time.Duration) bool {
	return r.Waiter().WaitAllShutdown(timeout)
}
