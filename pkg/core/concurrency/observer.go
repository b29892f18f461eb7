package concurrency

import "time"

// Observer receives thread lifecycle and shutdown-wait notifications.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	ThreadCreated(t *Thread)
	ThreadStarted(t *Thread)
	ThreadTerminated(t *Thread)
	ShutdownWaited(group string, ok bool, alive int, elapsed time.Duration)
}

// NopObserver ignores every notification
type NopObserver struct{}

func (NopObserver) ThreadCreated(*Thread) {}
func (NopObserver) ThreadStarted(*Thread) {}
func (NopObserver) ThreadTerminated(*Thread) {}
func (NopObserver) ShutdownWaited(string, bool, int, time.Duration) {}

type multiObserver []Observer

// MultiObserver fans notifications out to every non-nil observer
func MultiObserver(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return NopObserver{}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multiObserver) ThreadCreated(t *Thread) {
	for _, o := range m {
		o.ThreadCreated(t)
	}
}

func (m multiObserver) ThreadStarted(t *Thread) {
	for _, o := range m {
		o.ThreadStarted(t)
	}
}

func (m multiObserver) ThreadTerminated(t *Thread) {
	for _, o := range m {
		o.ThreadTerminated(t)
	}
}

func (m multiObserver) ShutdownWaited(group string, ok bool, alive int, elapsed time.Duration) {
	for _, o := range m {
		o.ShutdownWaited(group, ok, alive, elapsed)
	}
}
