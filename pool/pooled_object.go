package pool

import (
	"sync"
	"time"

	"oss.nandlabs.io/objectpool/uuid"
)

// State is one position in a PooledObject's lifecycle state machine.
type State int

const (
	// StateIdle is available to be borrowed.
	StateIdle State = iota
	// StateAllocated is currently checked out to a borrower.
	StateAllocated
	// StateEviction is undergoing an evictor validation pass.
	StateEviction
	// StateEvictionReturnToHead survived an eviction test and is about to be
	// pushed back at the head of the idle set instead of its normal push end.
	StateEvictionReturnToHead
	// StateValidation is undergoing TestWhileIdle validation during an
	// eviction pass.
	StateValidation
	// StateValidationPreallocated is validation running ahead of an
	// allocation that has already been promised to a waiting borrower.
	StateValidationPreallocated
	// StateValidationReturnToHead mirrors StateEvictionReturnToHead for the
	// TestWhileIdle path.
	StateValidationReturnToHead
	// StateInvalid failed validation and is queued for destruction.
	StateInvalid
	// StateAbandoned was reclaimed by abandoned-object tracking while still
	// marked allocated.
	StateAbandoned
	// StateReturning is in the process of being handed back to the pool,
	// after MarkReturning and before Deallocate or destruction.
	StateReturning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAllocated:
		return "ALLOCATED"
	case StateEviction:
		return "EVICTION"
	case StateEvictionReturnToHead:
		return "EVICTION_RETURN_TO_HEAD"
	case StateValidation:
		return "VALIDATION"
	case StateValidationPreallocated:
		return "VALIDATION_PREALLOCATED"
	case StateValidationReturnToHead:
		return "VALIDATION_RETURN_TO_HEAD"
	case StateInvalid:
		return "INVALID"
	case StateAbandoned:
		return "ABANDONED"
	case StateReturning:
		return "RETURNING"
	default:
		return "UNKNOWN"
	}
}

// PooledObject wraps a single instance managed by an ObjectPool with the
// bookkeeping its lifecycle state machine and eviction/abandonment policies
// need: creation/use/idle timestamps, borrow count, and a correlation id for
// logging.
type PooledObject[T any] struct {
	mu sync.Mutex

	object T
	state  State

	id string // log-correlation id, not used for identity

	createdAt      time.Time
	lastBorrowedAt time.Time
	lastReturnedAt time.Time
	lastUsedAt     time.Time // updated by abandoned-object tracking hooks
	borrowedCount  int64
}

// newPooledObject wraps obj as a freshly-created, idle instance.
func newPooledObject[T any](obj T) *PooledObject[T] {
	now := time.Now()
	id := ""
	if u, err := uuid.V1(); err == nil {
		id = u.String()
	}
	return &PooledObject[T]{
		object:         obj,
		state:          StateIdle,
		id:             id,
		createdAt:      now,
		lastReturnedAt: now,
		lastUsedAt:     now,
	}
}

// Object returns the wrapped instance.
func (p *PooledObject[T]) Object() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.object
}

// State returns the current lifecycle state.
func (p *PooledObject[T]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ID returns the correlation id used in log messages about this instance.
func (p *PooledObject[T]) ID() string {
	return p.id
}

// BorrowedCount returns the number of times this instance has been allocated.
func (p *PooledObject[T]) BorrowedCount() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.borrowedCount
}

// Allocate transitions IDLE -> ALLOCATED, recording the borrow time and
// incrementing the borrow counter. Returns false if the instance was not
// IDLE; an evictor or idle-validator always removes a candidate from the
// idle deque before testing it, so in practice this only fails if the
// caller races itself.
func (p *PooledObject[T]) Allocate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return false
	}
	p.state = StateAllocated
	now := time.Now()
	p.lastBorrowedAt = now
	p.lastUsedAt = now
	p.borrowedCount++
	return true
}

// Deallocate transitions ALLOCATED or RETURNING -> IDLE, recording the
// return time. RETURNING is the normal predecessor (Return calls
// MarkReturning first); ALLOCATED is accepted directly for callers that skip
// that intermediate bookkeeping step. Returns false otherwise.
func (p *PooledObject[T]) Deallocate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateAllocated && p.state != StateReturning {
		return false
	}
	p.state = StateIdle
	p.lastReturnedAt = time.Now()
	return true
}

// MarkReturning transitions ALLOCATED -> RETURNING, the brief window between
// a caller calling Return and the instance either re-entering the idle set
// or being destroyed. Returns false if the instance was not ALLOCATED.
func (p *PooledObject[T]) MarkReturning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateAllocated {
		return false
	}
	p.state = StateReturning
	return true
}

// Invalidate marks the instance INVALID regardless of its prior state; this
// is terminal and the instance must be destroyed and dropped from the
// registry.
func (p *PooledObject[T]) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateInvalid
}

// MarkAbandoned marks an instance whose borrower held it past the configured
// abandoned-object timeout, so AbandonedConfig reclamation can destroy it.
func (p *PooledObject[T]) MarkAbandoned() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateAbandoned
}

// StartEvictionTest transitions IDLE -> EVICTION. The caller must already
// have removed the instance from the idle deque (idleDeque.remove), which is
// what actually prevents a concurrent Borrow from allocating an instance
// mid-test; this transition exists for observability, matching the state
// names the rest of the pool's instrumentation expects to see.
func (p *PooledObject[T]) StartEvictionTest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return false
	}
	p.state = StateEviction
	return true
}

// BeginIdleValidation transitions EVICTION -> VALIDATION, marking that the
// eviction-duration policy did not condemn the instance but TestWhileIdle
// still needs to run against it.
func (p *PooledObject[T]) BeginIdleValidation() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateEviction {
		return false
	}
	p.state = StateValidation
	return true
}

// EndEvictionTest marks a surviving EVICTION/VALIDATION instance with its
// *_RETURN_TO_HEAD counterpart, recording that it is about to be reinserted
// at the head of the idle deque (ahead of the configured lifo/fifo push end)
// so whichever borrower is already waiting is served without further delay.
func (p *PooledObject[T]) EndEvictionTest() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StateEviction:
		p.state = StateEvictionReturnToHead
	case StateValidation:
		p.state = StateValidationReturnToHead
	}
}

// ResumeIdle completes the *_RETURN_TO_HEAD transition once the instance has
// actually been pushed back into the idle deque.
func (p *PooledObject[T]) ResumeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StateEvictionReturnToHead, StateValidationReturnToHead:
		p.state = StateIdle
	}
}

// IdleDuration returns how long the instance has been idle, measured from
// its last return (or creation, if never borrowed).
func (p *PooledObject[T]) IdleDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.lastReturnedAt)
}

// ActiveDuration returns how long the instance has been continuously
// allocated, measured from its last borrow.
func (p *PooledObject[T]) ActiveDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.lastBorrowedAt)
}

// touch updates the last-used timestamp, used by abandoned-object tracking
// when a caller explicitly reports activity on a long-held borrow.
func (p *PooledObject[T]) touch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastUsedAt = time.Now()
}

func (p *PooledObject[T]) idleSince() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReturnedAt
}

func (p *PooledObject[T]) lastUsed() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUsedAt
}
