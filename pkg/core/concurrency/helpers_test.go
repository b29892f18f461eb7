package concurrency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fluxorio/txworker/pkg/core"
)

func newTestRegistry(t *testing.T, opts ...RegistryOption) *Registry {
	t.Helper()
	base := []RegistryOption{
		WithRegistryLogger(core.NewNopLogger()),
		WithRegistryPollInterval(10 * time.Millisecond),
	}
	return NewRegistry("txTransaction", append(base, opts...)...)
}

// gate blocks tasks until released; release is idempotent
type gate struct {
	ch   chan struct{}
	once sync.Once
}

func newGate(t *testing.T) *gate {
	g := &gate{ch: make(chan struct{})}
	t.Cleanup(g.release)
	return g
}

func (g *gate) release() {
	g.once.Do(func() { close(g.ch) })
}

// task waits for the gate or for interruption
func (g *gate) task() Task {
	return TaskFunc(func(ctx context.Context) error {
		select {
		case <-g.ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// stubborn waits for the gate only and ignores interruption
func (g *gate) stubborn() Task {
	return Runnable(func() { <-g.ch })
}

type recordingObserver struct {
	mu         sync.Mutex
	created    []string
	started    []string
	terminated []string
	waits      []waitRecord
}

type waitRecord struct {
	group string
	ok    bool
	alive int
}

func (o *recordingObserver) ThreadCreated(t *Thread) {
	o.mu.Lock()
	o.created = append(o.created, t.Name())
	o.mu.Unlock()
}

func (o *recordingObserver) ThreadStarted(t *Thread) {
	o.mu.Lock()
	o.started = append(o.started, t.Name())
	o.mu.Unlock()
}

func (o *recordingObserver) ThreadTerminated(t *Thread) {
	o.mu.Lock()
	o.terminated = append(o.terminated, t.Name())
	o.mu.Unlock()
}

func (o *recordingObserver) ShutdownWaited(group string, ok bool, alive int, _ time.Duration) {
	o.mu.Lock()
	o.waits = append(o.waits, waitRecord{group: group, ok: ok, alive: alive})
	o.mu.Unlock()
}

func (o *recordingObserver) snapshot() (created, started, terminated []string, waits []waitRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.created...),
		append([]string(nil), o.started...),
		append([]string(nil), o.terminated...),
		append([]waitRecord(nil), o.waits...)
}

func joinAll(t *testing.T, threads ...*Thread) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, th := range threads {
		if err := th.Join(ctx); err != nil {
			t.Fatalf("Join(%s) error = %v", th.Name(), err)
		}
	}
}
