package concurrency

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// ThreadGroup is a named set of live threads. A thread joins its group when it
// is started and leaves when its task returns; nothing else edits membership.
type ThreadGroup struct {
	name    string
	seq     atomic.Uint64
	mu      sync.RWMutex
	members map[*Thread]struct{}
}

// NewThreadGroup creates an empty group. Most callers should go through a
// Registry so the whole process shares one group.
func NewThreadGroup(name string) *ThreadGroup {
	return &ThreadGroup{
		name:    name,
		members: make(map[*Thread]struct{}),
	}
}

// Name returns the group name
func (g *ThreadGroup) Name() string {
	return g.name
}

// ActiveCount returns the number of started, not yet terminated threads
func (g *ThreadGroup) ActiveCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// Enumerate returns a snapshot of the live members in creation order
func (g *ThreadGroup) Enumerate() []*Thread {
	g.mu.RLock()
	threads := make([]*Thread, 0, len(g.members))
	for t := range g.members {
		threads = append(threads, t)
	}
	g.mu.RUnlock()

	sort.Slice(threads, func(i, j int) bool {
		return threads[i].seq < threads[j].seq
	})
	return threads
}

func (g *ThreadGroup) String() string {
	return fmt.Sprintf("ThreadGroup[name=%s,active=%d]", g.name, g.ActiveCount())
}

func (g *ThreadGroup) nextSeq() uint64 {
	return g.seq.Add(1)
}

func (g *ThreadGroup) add(t *Thread) {
	g.mu.Lock()
	g.members[t] = struct{}{}
	g.mu.Unlock()
}

func (g *ThreadGroup) remove(t *Thread) {
	g.mu.Lock()
	delete(g.members, t)
	g.mu.Unlock()
}
