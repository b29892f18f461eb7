package concurrency

import (
	"context"
	"sync"
)

// boundedMailbox implements Mailbox over a buffered channel.
// mu serialises Send against Close so a send never hits a closed channel.
// closing is closed before Close takes mu so blocked senders let go of it.
type boundedMailbox[T any] struct {
	ch          chan T
	mu          sync.RWMutex
	closed      bool
	closing     chan struct{}
	closingOnce sync.Once
	capacity    int
}

// NewBoundedMailbox creates a mailbox holding at most capacity messages
func NewBoundedMailbox[T any](capacity int) Mailbox[T] {
	if capacity < 1 {
		capacity = 100
	}

	return &boundedMailbox[T]{
		ch:       make(chan T, capacity),
		closing:  make(chan struct{}),
		capacity: capacity,
	}
}

func (mb *boundedMailbox[T]) Send(msg T) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if mb.closed {
		return ErrMailboxClosed
	}

	select {
	case mb.ch <- msg:
		return nil
	default:
		return ErrMailboxFull
	}
}

// SendContext holds the read lock while blocked; Close signals closing first
// so a pending sender returns ErrMailboxClosed instead of stalling Close.
func (mb *boundedMailbox[T]) SendContext(ctx context.Context, msg T) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if mb.closed {
		return ErrMailboxClosed
	}

	select {
	case mb.ch <- msg:
		return nil
	case <-mb.closing:
		return ErrMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mb *boundedMailbox[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	select {
	case msg, ok := <-mb.ch:
		if !ok {
			return zero, ErrMailboxClosed
		}
		return msg, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (mb *boundedMailbox[T]) TryReceive() (T, bool, error) {
	var zero T
	select {
	case msg, ok := <-mb.ch:
		if !ok {
			return zero, false, ErrMailboxClosed
		}
		return msg, true, nil
	default:
		return zero, false, nil
	}
}

func (mb *boundedMailbox[T]) Close() {
	mb.closingOnce.Do(func() { close(mb.closing) })
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if !mb.closed {
		mb.closed = true
		close(mb.ch)
	}
}

func (mb *boundedMailbox[T]) Capacity() int {
	return mb.capacity
}

func (mb *boundedMailbox[T]) Size() int {
	return len(mb.ch)
}

func (mb *boundedMailbox[T]) IsClosed() bool {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return mb.closed
}
