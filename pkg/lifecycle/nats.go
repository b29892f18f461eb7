// Package lifecycle publishes worker thread lifecycle events to NATS.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fluxorio/txworker/pkg/core"
	"github.com/fluxorio/txworker/pkg/core/concurrency"
	"github.com/fluxorio/txworker/pkg/core/failfast"
)

// Event types carried in Event.Type and in the subject suffix.
const (
	EventThreadCreated    = "thread.created"
	EventThreadStarted    = "thread.started"
	EventThreadTerminated = "thread.terminated"
	EventShutdownWaited   = "shutdown.waited"
)

// NATSConfig configures the NATS lifecycle publisher.
type NATSConfig struct {
	// URL is the NATS server URL, e.g. "nats://127.0.0.1:4222".
	URL string

	// Subject is the subject prefix. Events go to <subject>.<event type>.
	// Default: "txworker.lifecycle".
	Subject string

	// Name is an optional NATS connection name.
	Name string

	// Logger reports publish failures. Nil uses the default logger.
	Logger core.Logger
}

// ThreadInfo describes the thread an event refers to.
type ThreadInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Group       string `json:"group"`
	Daemon      bool   `json:"daemon"`
	Priority    int    `json:"priority"`
	Interrupted bool   `json:"interrupted"`
}

// ShutdownInfo is the outcome of a WaitAllShutdown call.
type ShutdownInfo struct {
	Group     string `json:"group"`
	OK        bool   `json:"ok"`
	Alive     int    `json:"alive"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Event is the JSON payload of every published message.
type Event struct {
	Type     string        `json:"type"`
	Time     time.Time     `json:"time"`
	Thread   *ThreadInfo   `json:"thread,omitempty"`
	Shutdown *ShutdownInfo `json:"shutdown,omitempty"`
}

// NATSPublisher is a concurrency.Observer that publishes every callback as
// an Event. Publishing never blocks the observed thread; failures are logged.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	logger  core.Logger
	owned   bool
}

var _ concurrency.Observer = (*NATSPublisher)(nil)

// NewNATSPublisher connects to cfg.URL and returns a publisher owning the connection.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, func(o *nats.Options) error {
		if cfg.Name != "" {
			o.Name = cfg.Name
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", url, err)
	}

	p := NewNATSPublisherWithConn(nc, cfg)
	p.owned = true
	return p, nil
}

// NewNATSPublisherWithConn publishes on an existing connection. Close does not
// close nc.
func NewNATSPublisherWithConn(nc *nats.Conn, cfg NATSConfig) *NATSPublisher {
	failfast.NotNil(nc, "nats connection")
	subject := cfg.Subject
	if subject == "" {
		subject = "txworker.lifecycle"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &NATSPublisher{nc: nc, subject: subject, logger: logger}
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.subject + "." + eventType
}

func (p *NATSPublisher) ThreadCreated(t *concurrency.Thread) {
	p.publish(Event{Type: EventThreadCreated, Thread: threadInfo(t)})
}

func (p *NATSPublisher) ThreadStarted(t *concurrency.Thread) {
	p.publish(Event{Type: EventThreadStarted, Thread: threadInfo(t)})
}

func (p *NATSPublisher) ThreadTerminated(t *concurrency.Thread) {
	p.publish(Event{Type: EventThreadTerminated, Thread: threadInfo(t)})
}

func (p *NATSPublisher) ShutdownWaited(group string, ok bool, alive int, elapsed time.Duration) {
	p.publish(Event{
		Type: EventShutdownWaited,
		Shutdown: &ShutdownInfo{
			Group:     group,
			OK:        ok,
			Alive:     alive,
			ElapsedMs: elapsed.Milliseconds(),
		},
	})
}

// Flush waits until the server has processed every published event.
func (p *NATSPublisher) Flush(timeout time.Duration) error {
	return p.nc.FlushTimeout(timeout)
}

// Close drains the connection if the publisher owns it.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}

func (p *NATSPublisher) publish(ev Event) {
	ev.Time = time.Now().UTC()
	data, err := core.JSONEncode(ev)
	if err != nil {
		p.logger.Errorf("lifecycle: encode %s event: %v", ev.Type, err)
		return
	}
	if err := p.nc.Publish(p.Subject(ev.Type), data); err != nil {
		p.logger.Warnf("lifecycle: publish %s event: %v", ev.Type, err)
	}
}

func threadInfo(t *concurrency.Thread) *ThreadInfo {
	return &ThreadInfo{
		ID:          t.ID().String(),
		Name:        t.Name(),
		Group:       t.Group().Name(),
		Daemon:      t.IsDaemon(),
		Priority:    int(t.Priority()),
		Interrupted: t.IsInterrupted(),
	}
}
