package kernel

import (
	"sync"
	"sync/atomic"
	"time"
)

// Mailbox is a fixed-depth multi-producer, single-consumer queue.
//
// Producers never block: TrySend drops the value when the mailbox is full, so
// it is safe to call from transport callbacks and interrupt-like contexts.
// Storage is allocated once in NewMailbox.
type Mailbox[T any] struct {
	_ [0]func() // prevent accidental copying.

	mu    sync.Mutex
	slots []T
	head  int
	n     int

	notify  chan struct{}
	dropped atomic.Uint64
}

// NewMailbox returns a mailbox holding at most depth values (minimum 1).
func NewMailbox[T any](depth int) *Mailbox[T] {
	if depth < 1 {
		depth = 1
	}
	return &Mailbox[T]{
		slots:  make([]T, depth),
		notify: make(chan struct{}, 1),
	}
}

// Cap returns the mailbox depth.
func (mb *Mailbox[T]) Cap() int { return len(mb.slots) }

// Len returns the number of queued values.
func (mb *Mailbox[T]) Len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.n
}

// Dropped returns how many sends were rejected because the mailbox was full.
func (mb *Mailbox[T]) Dropped() uint64 { return mb.dropped.Load() }

// TrySend attempts to enqueue v, returning false if the mailbox is full.
func (mb *Mailbox[T]) TrySend(v T) bool {
	mb.mu.Lock()
	if mb.n == len(mb.slots) {
		mb.mu.Unlock()
		mb.dropped.Add(1)
		return false
	}
	mb.slots[(mb.head+mb.n)%len(mb.slots)] = v
	mb.n++
	mb.mu.Unlock()

	select {
	case mb.notify <- struct{}{}:
	default:
	}
	return true
}

// TryRecv attempts to dequeue one value, returning false if empty.
func (mb *Mailbox[T]) TryRecv() (T, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	var zero T
	if mb.n == 0 {
		return zero, false
	}
	v := mb.slots[mb.head]
	mb.slots[mb.head] = zero
	mb.head = (mb.head + 1) % len(mb.slots)
	mb.n--
	return v, true
}

// RecvTimeout waits up to d for a value. It returns false on timeout.
func (mb *Mailbox[T]) RecvTimeout(d time.Duration) (T, bool) {
	if v, ok := mb.TryRecv(); ok {
		return v, true
	}

	t := time.NewTimer(d)
	defer t.Stop()
	for {
		select {
		case <-mb.notify:
			if v, ok := mb.TryRecv(); ok {
				return v, true
			}
		case <-t.C:
			return mb.TryRecv()
		}
	}
}
