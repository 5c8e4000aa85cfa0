package pool

import (
	"context"
	"sync"
	"time"
)

// idleNode is one slot in the idle deque's backing doubly-linked list. This
// extends the node-chasing style of collections.LinkedList with a back
// pointer: that type is singly-linked and can't support the O(1) tail push
// and O(1) arbitrary removal (for Invalidate) this deque needs.
type idleNode[T any] struct {
	prev, next *idleNode[T]
	object     *PooledObject[T]
}

// waitTicket is a blocked borrower's handoff slot, used only in fair mode so
// a push can deliver an instance directly to the longest-waiting borrower
// instead of merely broadcasting that something became available.
type waitTicket[T any] struct {
	ch chan *PooledObject[T]
}

// idleDeque is the pool's idle set: a blocking, optionally fair, double-ended
// queue of IDLE PooledObjects. Borrowers always take from the head; pushers
// choose the head (lifo) or tail (fifo) end. Only the insertion end varies
// with the lifo setting, which is what makes lifo=false produce strict FIFO
// borrow order and lifo=true a pure stack.
type idleDeque[T any] struct {
	mu    sync.Mutex
	head  *idleNode[T]
	tail  *idleNode[T]
	count int

	fair    bool
	waiters []*waitTicket[T]

	notify chan struct{} // closed and replaced on every push or close
	closed bool
}

func newIdleDeque[T any](fair bool) *idleDeque[T] {
	return &idleDeque[T]{fair: fair, notify: make(chan struct{})}
}

func (d *idleDeque[T]) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

func (d *idleDeque[T]) peekFirst() (*PooledObject[T], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.head == nil {
		return nil, false
	}
	return d.head.object, true
}

// pushFirst and pushLast insert p at the head or tail respectively. If a
// borrower is already blocked waiting, the instance is handed to it directly
// instead of entering the list, so the longest-waiting borrower is always
// served ahead of any later arrival.
func (d *idleDeque[T]) pushFirst(p *PooledObject[T]) { d.push(p, true) }
func (d *idleDeque[T]) pushLast(p *PooledObject[T])  { d.push(p, false) }

func (d *idleDeque[T]) push(p *PooledObject[T], head bool) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if len(d.waiters) > 0 {
		t := d.waiters[0]
		d.waiters = d.waiters[1:]
		d.mu.Unlock()
		t.ch <- p
		return
	}

	n := &idleNode[T]{object: p}
	if head {
		n.next = d.head
		if d.head != nil {
			d.head.prev = n
		} else {
			d.tail = n
		}
		d.head = n
	} else {
		n.prev = d.tail
		if d.tail != nil {
			d.tail.next = n
		} else {
			d.head = n
		}
		d.tail = n
	}
	d.count++
	old := d.notify
	d.notify = make(chan struct{})
	d.mu.Unlock()
	close(old)
}

// tryTakeFirst removes and returns the head element without blocking. In
// fair mode it refuses to barge ahead of a borrower that is already queued.
func (d *idleDeque[T]) tryTakeFirst() (*PooledObject[T], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.popHeadLocked()
}

func (d *idleDeque[T]) popHeadLocked() (*PooledObject[T], bool) {
	if d.fair && len(d.waiters) > 0 {
		return nil, false
	}
	if d.head == nil {
		return nil, false
	}
	n := d.head
	d.unlinkLocked(n)
	return n.object, true
}

func (d *idleDeque[T]) tryTakeLast() (*PooledObject[T], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fair && len(d.waiters) > 0 {
		return nil, false
	}
	if d.tail == nil {
		return nil, false
	}
	n := d.tail
	d.unlinkLocked(n)
	return n.object, true
}

func (d *idleDeque[T]) unlinkLocked(n *idleNode[T]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	n.prev, n.next = nil, nil
	d.count--
}

// takeFirst blocks up to timeout (negative means unbounded) for a head
// element. It returns ErrInterrupted if ctx is canceled, ErrTimeout if the
// wait elapses, or ErrPoolClosed if the deque closes while waiting.
func (d *idleDeque[T]) takeFirst(ctx context.Context, timeout time.Duration) (*PooledObject[T], error) {
	return d.take(ctx, timeout, d.tryTakeFirst)
}

// takeLast mirrors takeFirst but removes from the tail. PoolCore never calls
// this directly (borrows always take from the head), but the deque exposes
// it symmetrically for completeness and direct testing.
func (d *idleDeque[T]) takeLast(ctx context.Context, timeout time.Duration) (*PooledObject[T], error) {
	return d.take(ctx, timeout, d.tryTakeLast)
}

func (d *idleDeque[T]) take(ctx context.Context, timeout time.Duration, tryPop func() (*PooledObject[T], bool)) (*PooledObject[T], error) {
	if obj, ok := tryPop(); ok {
		return obj, nil
	}

	bounded := timeout >= 0
	var deadline time.Time
	if bounded {
		deadline = time.Now().Add(timeout)
	}

	if d.fair {
		return d.takeFair(ctx, deadline, bounded)
	}
	return d.takeBroadcast(ctx, deadline, bounded, tryPop)
}

// takeFair registers a waitTicket and blocks until a push hands it an
// instance directly, the context is canceled, or the deadline elapses.
func (d *idleDeque[T]) takeFair(ctx context.Context, deadline time.Time, bounded bool) (*PooledObject[T], error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrPoolClosed
	}
	t := &waitTicket[T]{ch: make(chan *PooledObject[T], 1)}
	d.waiters = append(d.waiters, t)
	d.mu.Unlock()

	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if bounded {
		timer = time.NewTimer(time.Until(deadline))
		timeoutCh = timer.C
	}
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	select {
	case obj, ok := <-t.ch:
		stopTimer()
		if !ok {
			return nil, ErrPoolClosed
		}
		return obj, nil
	case <-ctx.Done():
		stopTimer()
		if d.cancelTicket(t) {
			return nil, ErrInterrupted
		}
		return <-t.ch, nil // a push already handed off before we canceled
	case <-timeoutCh:
		if d.cancelTicket(t) {
			return nil, ErrTimeout
		}
		return <-t.ch, nil
	}
}

func (d *idleDeque[T]) cancelTicket(t *waitTicket[T]) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, w := range d.waiters {
		if w == t {
			d.waiters = append(d.waiters[:i], d.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// takeBroadcast loops waiting on the notify channel, which is replaced on
// every push, and retries the pop each time it fires. This allows barging:
// any number of non-waiting pollers and waiters race for the same instance.
func (d *idleDeque[T]) takeBroadcast(ctx context.Context, deadline time.Time, bounded bool, tryPop func() (*PooledObject[T], bool)) (*PooledObject[T], error) {
	for {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return nil, ErrPoolClosed
		}
		ch := d.notify
		d.mu.Unlock()

		var timer *time.Timer
		var timeoutCh <-chan time.Time
		if bounded {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil, ErrTimeout
			}
			timer = time.NewTimer(remaining)
			timeoutCh = timer.C
		}

		select {
		case <-ch:
			if timer != nil {
				timer.Stop()
			}
			if obj, ok := tryPop(); ok {
				return obj, nil
			}
			// lost the race to another taker; loop and wait again
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil, ErrInterrupted
		case <-timeoutCh:
			return nil, ErrTimeout
		}
	}
}

// remove drops p from wherever it sits in the deque, used when Invalidate
// targets a currently-idle instance. Reports whether p was found.
func (d *idleDeque[T]) remove(p *PooledObject[T]) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for n := d.head; n != nil; n = n.next {
		if n.object == p {
			d.unlinkLocked(n)
			return true
		}
	}
	return false
}

// snapshotOldestFirst returns every idle instance ordered oldest-idle-first,
// for the evictor's stable traversal cursor. Because pushes land at the
// lifo-push end while takes always remove from the head, the oldest
// untouched instances drift toward the end opposite the push end: under
// lifo the push end is the head, so oldest-first means walking tail->head;
// under fifo the push end is the tail, so head->tail is already oldest-first.
func (d *idleDeque[T]) snapshotOldestFirst(lifo bool) []*PooledObject[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*PooledObject[T], 0, d.count)
	if lifo {
		for n := d.tail; n != nil; n = n.prev {
			out = append(out, n.object)
		}
	} else {
		for n := d.head; n != nil; n = n.next {
			out = append(out, n.object)
		}
	}
	return out
}

// drainAll empties the deque without closing it (used by Clear) and returns
// the removed instances.
func (d *idleDeque[T]) drainAll() []*PooledObject[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*PooledObject[T], 0, d.count)
	for n := d.head; n != nil; n = n.next {
		out = append(out, n.object)
	}
	d.head, d.tail, d.count = nil, nil, 0
	return out
}

// closeAndDrain marks the deque closed, wakes every blocked taker with
// ErrPoolClosed, and returns whatever instances were still idle.
func (d *idleDeque[T]) closeAndDrain() []*PooledObject[T] {
	d.mu.Lock()
	d.closed = true
	out := make([]*PooledObject[T], 0, d.count)
	for n := d.head; n != nil; n = n.next {
		out = append(out, n.object)
	}
	d.head, d.tail, d.count = nil, nil, 0
	waiters := d.waiters
	d.waiters = nil
	old := d.notify
	d.notify = make(chan struct{})
	d.mu.Unlock()

	close(old)
	for _, t := range waiters {
		close(t.ch)
	}
	return out
}
