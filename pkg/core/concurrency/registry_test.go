package concurrency

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Same(t, r, DefaultRegistry())
	assert.Equal(t, DefaultGroupName, r.Group().Name())
	assert.Same(t, r.Group(), r.Create("x", false).Group())
}

func TestRegistry_GroupCreatedOnce(t *testing.T) {
	r := NewRegistry("once")

	groups := make([]*ThreadGroup, 16)
	var wg sync.WaitGroup
	for i := range groups {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			groups[i] = r.Group()
		}(i)
	}
	wg.Wait()

	for _, g := range groups {
		assert.Same(t, groups[0], g)
	}
	assert.Equal(t, "once", groups[0].Name())
}

func TestNewRegistry_EmptyNameUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultGroupName, NewRegistry("").Group().Name())
}

func TestRegistry_Waiter(t *testing.T) {
	r := NewRegistry("w", WithRegistryPollInterval(15*time.Millisecond))
	assert.Equal(t, 15*time.Millisecond, r.Waiter().PollInterval())
	assert.Equal(t, DefaultPollInterval, NewRegistry("w").Waiter().PollInterval())
}

func TestThreadGroup_String(t *testing.T) {
	assert.Equal(t, "ThreadGroup[name=g,active=0]", NewThreadGroup("g").String())
}

func TestMultiObserver(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	obs := MultiObserver(a, nil, b)
	obs.ShutdownWaited("g", true, 0, time.Millisecond)

	for _, o := range []*recordingObserver{a, b} {
		_, _, _, waits := o.snapshot()
		assert.Equal(t, []waitRecord{{group: "g", ok: true}}, waits)
	}

	assert.Equal(t, NopObserver{}, MultiObserver())
	assert.Same(t, a, MultiObserver(nil, a))
}
