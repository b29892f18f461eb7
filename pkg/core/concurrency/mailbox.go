package concurrency

import (
	"context"
	"errors"
)

var (
	// ErrMailboxClosed is returned when sending to, or draining, a closed mailbox
	ErrMailboxClosed = errors.New("mailbox is closed")

	// ErrMailboxFull is returned when trying to send to a full mailbox (backpressure)
	ErrMailboxFull = errors.New("mailbox is full")
)

// Mailbox is a bounded FIFO queue. Executor workers take their tasks from one.
type Mailbox[T any] interface {
	// Send enqueues msg without blocking
	// Returns ErrMailboxFull if mailbox is full (backpressure)
	// Returns ErrMailboxClosed if mailbox is closed
	Send(msg T) error

	// SendContext blocks until msg is queued, ctx is done or the mailbox is closed
	SendContext(ctx context.Context, msg T) error

	// Receive blocks until a message is available or ctx is done.
	// Messages queued before Close are still delivered; once the mailbox is
	// closed and empty it returns ErrMailboxClosed.
	Receive(ctx context.Context) (T, error)

	// TryReceive returns (msg, true, nil) if a message is queued, and
	// (zero, false, nil) if the mailbox is empty but open
	TryReceive() (T, bool, error)

	// Close stops further sends
	Close()

	// Capacity returns the maximum capacity of the mailbox
	Capacity() int

	// Size returns the current number of messages in the mailbox
	Size() int

	// IsClosed returns true if the mailbox is closed
	IsClosed() bool
}
