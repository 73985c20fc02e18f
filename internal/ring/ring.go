// Package ring implements a fixed-capacity single-producer/single-consumer
// queue of equally sized packet slots. Slot contents pass between threads
// purely by publishing an index, and every produce/consume happens through
// a borrowed bufview.View over a slot allocated once in New. Each
// Send/TrySend/Recv/TryRecv call does allocate its small guard struct.
package ring

import (
	"sync"
	"sync/atomic"

	"github.com/dosgo/natgw/internal/bufview"
)

// Ring is a bounded FIFO of n slots, each mtu bytes, with exactly one
// producer and one consumer thread assigned for its lifetime.
type Ring struct {
	mtu int
	n   uint64

	slots [][]byte

	_pad0 [64]byte
	head  uint64 // consumer cursor, advanced only by the consumer
	_pad1 [64]byte
	tail  uint64 // producer cursor, advanced only by the producer
	_pad2 [64]byte

	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
}

// New returns a Ring with n slots of mtu bytes each. n must be positive.
func New(mtu, n int) *Ring {
	if mtu <= 0 || n <= 0 {
		panic("ring: mtu and n must be positive")
	}
	slots := make([][]byte, n)
	for i := range slots {
		slots[i] = make([]byte, mtu)
	}
	r := &Ring{mtu: mtu, n: uint64(n), slots: slots}
	r.notEmpty = sync.NewCond(&r.mu)
	r.notFull = sync.NewCond(&r.mu)
	return r
}

// MTU returns the per-slot capacity in bytes.
func (r *Ring) MTU() int { return r.mtu }

// SendGuard is a scoped handle to a slot borrowed for writing. Acquired via
// TrySend/Send; must be released via Close on every exit path (a deferred
// Close is the idiomatic shape). Closing a handle that holds a slot
// publishes it to the consumer; closing an empty handle (TrySend found the
// ring full) is a no-op.
type SendGuard struct {
	ring   *Ring
	view   bufview.View
	valid  bool
	closed bool
}

// Empty reports whether the guard holds no slot (the ring was full).
func (g *SendGuard) Empty() bool { return !g.valid }

// View exposes the borrowed slot for writing. Calling View on an empty
// guard returns a zero-length View.
func (g *SendGuard) View() bufview.View { return g.view }

// Close publishes the held slot (if any) to the consumer. Safe to call
// multiple times; only the first call has effect.
func (g *SendGuard) Close() {
	if g.closed {
		return
	}
	g.closed = true
	if !g.valid {
		return
	}
	r := g.ring
	r.mu.Lock()
	atomic.AddUint64(&r.tail, 1) // release-store via mutex-protected increment
	r.notEmpty.Broadcast()
	r.mu.Unlock()
}

// RecvGuard is the consumer-side counterpart of SendGuard.
type RecvGuard struct {
	ring   *Ring
	view   bufview.View
	valid  bool
	closed bool
}

func (g *RecvGuard) Empty() bool        { return !g.valid }
func (g *RecvGuard) View() bufview.View { return g.view }

// Close releases the held slot (if any) back to the producer.
func (g *RecvGuard) Close() {
	if g.closed {
		return
	}
	g.closed = true
	if !g.valid {
		return
	}
	r := g.ring
	r.mu.Lock()
	atomic.AddUint64(&r.head, 1)
	r.notFull.Broadcast()
	r.mu.Unlock()
}

// TrySend returns a non-blocking send guard: empty iff the ring is full.
func (r *Ring) TrySend() *SendGuard {
	tail := r.tail
	head := atomic.LoadUint64(&r.head)
	if tail-head == r.n {
		return &SendGuard{ring: r}
	}
	slot := r.slots[tail%r.n]
	return &SendGuard{ring: r, view: bufview.Of(slot), valid: true}
}

// Send blocks until a slot is free and returns a non-empty guard.
func (r *Ring) Send() *SendGuard {
	for {
		if g := r.TrySend(); !g.Empty() {
			return g
		}
		r.mu.Lock()
		for r.tail-atomic.LoadUint64(&r.head) == r.n {
			r.notFull.Wait()
		}
		r.mu.Unlock()
	}
}

// TryRecv returns a non-blocking receive guard: empty iff the ring has no
// ready slot.
func (r *Ring) TryRecv() *RecvGuard {
	head := r.head
	tail := atomic.LoadUint64(&r.tail)
	if head == tail {
		return &RecvGuard{ring: r}
	}
	slot := r.slots[head%r.n]
	return &RecvGuard{ring: r, view: bufview.Of(slot), valid: true}
}

// Recv blocks until a slot is ready and returns a non-empty guard.
func (r *Ring) Recv() *RecvGuard {
	for {
		if g := r.TryRecv(); !g.Empty() {
			return g
		}
		r.mu.Lock()
		for r.head == atomic.LoadUint64(&r.tail) {
			r.notEmpty.Wait()
		}
		r.mu.Unlock()
	}
}
