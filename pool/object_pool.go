package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"oss.nandlabs.io/objectpool/l3"
	"oss.nandlabs.io/objectpool/lifecycle"
)

var logger = l3.Get()

var _ lifecycle.Component = (*ObjectPool[int])(nil)

// ObjectPool is a generic, bounded, thread-safe pool of instances of T,
// built from a Factory[T] and a Config. It implements the full
// Commons-Pool2-style borrow/return/invalidate/evict lifecycle via the rest
// of this package (PooledObject's state machine, idleDeque, registry,
// EvictionPolicy, and the shared evictorScheduler).
type ObjectPool[T any] struct {
	id      string
	factory Factory[T]
	cfg     Config

	idle *idleDeque[T]
	reg  *registry[T]

	mu      sync.Mutex
	total   int // idle + allocated, guarded by mu
	closed  bool
	started bool
	state   lifecycle.ComponentState

	listener SwallowedExceptionListener

	stats poolStats
}

// New builds an ObjectPool using factory and cfg. A nil cfg is replaced with
// DefaultConfig(). The pool is created idle; call Start to enable the
// background evictor (if TimeBetweenEvictionRuns > 0) and pre-fill MinIdle
// instances.
func New[T any](id string, factory Factory[T], cfg *Config) (*ObjectPool[T], error) {
	if factory == nil {
		return nil, wrapInvalidConfig("factory cannot be nil")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &ObjectPool[T]{
		id:       id,
		factory:  factory,
		cfg:      *cfg,
		idle:     newIdleDeque[T](cfg.Fairness),
		reg:      newRegistry[T](),
		listener: newMultiErrListener(),
	}
	return p, nil
}

// Id implements lifecycle.Component.
func (p *ObjectPool[T]) Id() string { return p.id }

// OnChange implements lifecycle.Component; the pool has no interest in
// external state-change notifications beyond logging them.
func (p *ObjectPool[T]) OnChange(prevState, newState lifecycle.ComponentState) {
	logger.DebugF("pool %s: %d -> %d", p.id, prevState, newState)
}

// setState updates the pool's tracked lifecycle state and notifies OnChange.
func (p *ObjectPool[T]) setState(s lifecycle.ComponentState) {
	p.mu.Lock()
	prev := p.state
	p.state = s
	p.mu.Unlock()
	p.OnChange(prev, s)
}

// SetSwallowedExceptionListener replaces the pool's listener for background
// errors. Must be called before Start.
func (p *ObjectPool[T]) SetSwallowedExceptionListener(l SwallowedExceptionListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

// Start pre-fills MinIdle instances and, if the configuration enables it,
// registers this pool's eviction job with the shared evictorScheduler.
func (p *ObjectPool[T]) Start() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.mu.Unlock()
	p.setState(lifecycle.Starting)

	if err := p.ensureMinIdle(); err != nil {
		logger.WarnF("pool %s: error pre-filling min idle instances: %v", p.id, err)
	}

	if p.cfg.evictionEnabled() {
		if err := sharedEvictorScheduler().register(p.id, p.cfg.TimeBetweenEvictionRuns, p.runEvictionCycle); err != nil {
			p.setState(lifecycle.Error)
			return fmt.Errorf("objectpool: registering evictor for pool %s: %w", p.id, err)
		}
	}
	p.setState(lifecycle.Running)
	return nil
}

// Stop implements lifecycle.Component as an alias for Close.
func (p *ObjectPool[T]) Stop() error { return p.Close() }

// State implements lifecycle.Component.
func (p *ObjectPool[T]) State() lifecycle.ComponentState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Borrow checks out an instance, blocking according to Config.BlockWhenExhausted
// and Config.MaxWait. Equivalent to BorrowWithTimeout(ctx, cfg.MaxWait),
// except that a MaxWait <= 0 waits indefinitely rather than never blocking.
func (p *ObjectPool[T]) Borrow(ctx context.Context) (T, error) {
	return p.BorrowWithTimeout(ctx, p.cfg.maxWaitDuration())
}

// BorrowWithTimeout checks out an instance, overriding the configured
// MaxWait for this call only. A negative timeout waits indefinitely
// (subject to ctx); a zero timeout never blocks.
func (p *ObjectPool[T]) BorrowWithTimeout(ctx context.Context, timeout time.Duration) (v T, err error) {
	start := time.Now()
	defer func() {
		if err == nil {
			p.stats.borrowWait.add(time.Since(start))
		}
	}()

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			var zero T
			return zero, ErrPoolClosed
		}
		p.mu.Unlock()

		po, ok := p.idle.tryTakeFirst()
		fromIdle := ok
		if !ok {
			if created, cerr := p.tryCreate(); cerr != nil {
				var zero T
				return zero, cerr
			} else if created != nil {
				po = created
			}
		}

		if po == nil {
			if !p.cfg.BlockWhenExhausted {
				var zero T
				return zero, ErrExhausted
			}
			waitErr := p.waitForAbandonedSweep(ctx)
			if waitErr != nil {
				var zero T
				return zero, waitErr
			}
			po, err = p.idle.takeFirst(ctx, timeout)
			if err != nil {
				var zero T
				return zero, err
			}
			fromIdle = true
		}

		if fromIdle {
			p.stats.idle.add(po.IdleDuration())
		}

		if !po.Allocate() {
			// A racing evictor/validator claimed it first; try again.
			continue
		}

		if p.cfg.TestOnBorrow {
			if !p.factory.Validate(po.Object()) {
				p.destroyInstance(po, true, false)
				continue
			}
		}

		if err := factoryErr("activate", p.factory.Activate(po.Object())); err != nil {
			p.destroyInstance(po, true, false)
			var zero T
			return zero, err
		}

		return po.Object(), nil
	}
}

// tryCreate grows the pool by one instance if MaxTotal allows it, returning
// the new PooledObject already tracked in the registry but not yet
// allocated. Returns (nil, nil) if the pool is already at MaxTotal.
func (p *ObjectPool[T]) tryCreate() (*PooledObject[T], error) {
	p.mu.Lock()
	if p.cfg.MaxTotal > 0 && p.total >= p.cfg.MaxTotal {
		p.mu.Unlock()
		return nil, nil
	}
	p.total++
	p.mu.Unlock()

	obj, err := p.factory.Create()
	if err != nil {
		p.mu.Lock()
		p.total--
		p.mu.Unlock()
		return nil, factoryErr("create", err)
	}

	if p.cfg.TestOnCreate && !p.factory.Validate(obj) {
		_ = p.factory.Destroy(obj)
		p.mu.Lock()
		p.total--
		p.mu.Unlock()
		return nil, nil
	}

	po := newPooledObject(obj)
	p.reg.put(po)
	p.stats.created.inc()
	return po, nil
}

// Return hands instance back to the pool. If Config.TestOnReturn fails
// validation, or passivation fails, or the idle set is already at MaxIdle,
// the instance is destroyed instead of recycled.
func (p *ObjectPool[T]) Return(instance T) error {
	po, ok := p.reg.get(instance)
	if !ok {
		return ErrUnknownInstance
	}
	if !po.MarkReturning() {
		return ErrNotBorrowed
	}

	if p.cfg.TestOnReturn && !p.factory.Validate(instance) {
		po.Invalidate()
		p.destroyInstance(po, false, false)
		return nil
	}

	if err := factoryErr("passivate", p.factory.Passivate(instance)); err != nil {
		p.reportSwallowed(err)
		po.Invalidate()
		p.destroyInstance(po, false, false)
		return nil
	}

	po.Deallocate()

	if p.atMaxIdle() {
		po.Invalidate()
		p.destroyInstance(po, false, false)
		return nil
	}

	p.stats.active.add(po.ActiveDuration())
	if p.cfg.Lifo {
		p.idle.pushFirst(po)
	} else {
		p.idle.pushLast(po)
	}
	return nil
}

func (p *ObjectPool[T]) atMaxIdle() bool {
	if p.cfg.MaxIdle <= 0 {
		return false
	}
	return p.idle.size() >= p.cfg.MaxIdle
}

// Invalidate removes instance from the pool and destroys it, regardless of
// whether it is currently idle or allocated. Use this instead of Return when
// the caller knows the instance is broken.
func (p *ObjectPool[T]) Invalidate(instance T) error {
	po, ok := p.reg.get(instance)
	if !ok {
		return ErrUnknownInstance
	}
	po.Invalidate()
	p.idle.remove(po)
	p.destroyInstance(po, false, false)
	return nil
}

// destroyInstance removes po from the registry, destroys its wrapped
// instance through the factory, and adjusts counters. fromBorrow/byEvictor
// only affect which counter is incremented.
func (p *ObjectPool[T]) destroyInstance(po *PooledObject[T], fromBorrowValidation, byEvictor bool) {
	p.reg.remove(po)
	if err := factoryErr("destroy", p.factory.Destroy(po.Object())); err != nil {
		p.reportSwallowed(err)
	}
	p.mu.Lock()
	p.total--
	p.mu.Unlock()
	p.stats.destroyed.inc()
	if byEvictor {
		p.stats.destroyedByEvictor.inc()
	}
	if fromBorrowValidation {
		p.stats.destroyedByBorrowValidation.inc()
	}
}

func (p *ObjectPool[T]) reportSwallowed(err error) {
	p.mu.Lock()
	l := p.listener
	p.mu.Unlock()
	if l != nil {
		l.OnSwallowException(err)
	}
}

// AddObject creates a new instance and places it directly into the idle set,
// without handing it to any caller. Fails with ErrExhausted if the pool is
// already at MaxTotal.
func (p *ObjectPool[T]) AddObject() error {
	po, err := p.tryCreate()
	if err != nil {
		return err
	}
	if po == nil {
		return ErrExhausted
	}
	if p.cfg.Lifo {
		p.idle.pushFirst(po)
	} else {
		p.idle.pushLast(po)
	}
	return nil
}

// Prepare ensures the pool holds at least MinIdle idle instances, creating
// as many as necessary (bounded by MaxTotal). This is the explicit,
// caller-invoked counterpart to the evictor's automatic ensureMinIdle.
func (p *ObjectPool[T]) Prepare() error {
	return p.ensureMinIdle()
}

func (p *ObjectPool[T]) ensureMinIdle() error {
	for p.idle.size() < p.cfg.MinIdle {
		if err := p.AddObject(); err != nil {
			if err == ErrExhausted {
				return nil
			}
			return err
		}
	}
	return nil
}

// Evict runs a single synchronous eviction pass: it inspects up to
// NumTestsPerEvictionRun idle instances (oldest-idle-first), destroying the
// ones Config.EvictionPolicy rejects and TestWhileIdle validation fails,
// then tops the idle set back up to MinIdle.
func (p *ObjectPool[T]) Evict() error {
	return p.runEvictionCycle(context.Background())
}

func (p *ObjectPool[T]) runEvictionCycle(ctx context.Context) error {
	if p.cfg.AbandonedConfig != nil && p.cfg.AbandonedConfig.RemoveAbandonedOnMaintenance {
		p.reclaimAbandoned()
	}

	candidates := p.idle.snapshotOldestFirst(p.cfg.Lifo)
	limit := p.cfg.NumTestsPerEvictionRun
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	tested := 0
	for i := 0; i < len(candidates) && tested < limit; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		po := candidates[i]
		// Remove the candidate from the idle deque before testing it: this
		// is what actually keeps a concurrent Borrow from handing it out
		// mid-test, not the state flag alone. If it's gone already, a
		// borrower got to it first.
		if !p.idle.remove(po) {
			continue
		}
		tested++
		po.StartEvictionTest()

		evictCtx := EvictionContext{
			IdleDuration:                 po.IdleDuration(),
			IdleCount:                    p.idle.size() + 1, // candidate counts even though it's detached
			MinIdle:                      p.cfg.MinIdle,
			MinEvictableIdleDuration:     p.cfg.MinEvictableIdleDuration,
			SoftMinEvictableIdleDuration: p.cfg.SoftMinEvictableIdleDuration,
		}

		shouldEvict := p.cfg.EvictionPolicy.Evict(evictCtx)
		if !shouldEvict && p.cfg.TestWhileIdle {
			po.BeginIdleValidation()
			if !p.factory.Validate(po.Object()) {
				shouldEvict = true
			}
		}

		if shouldEvict {
			po.Invalidate()
			p.destroyInstance(po, false, true)
			continue
		}

		po.EndEvictionTest()
		p.idle.pushFirst(po)
		po.ResumeIdle()
	}

	if err := p.ensureMinIdle(); err != nil {
		p.reportSwallowed(err)
	}
	return nil
}

// waitForAbandonedSweep runs an abandoned-object reclamation pass before a
// blocking Borrow waits, if configured to do so.
func (p *ObjectPool[T]) waitForAbandonedSweep(ctx context.Context) error {
	if p.cfg.AbandonedConfig == nil || !p.cfg.AbandonedConfig.RemoveAbandonedOnBorrow {
		return nil
	}
	select {
	case <-ctx.Done():
		return ErrInterrupted
	default:
	}
	p.reclaimAbandoned()
	return nil
}

// reclaimAbandoned destroys every allocated instance that has gone unused
// for longer than AbandonedConfig.RemoveAbandonedTimeout.
func (p *ObjectPool[T]) reclaimAbandoned() {
	ac := p.cfg.AbandonedConfig
	if ac == nil || ac.RemoveAbandonedTimeout <= 0 {
		return
	}
	for _, po := range p.reg.snapshot() {
		if po.State() != StateAllocated {
			continue
		}
		if time.Since(po.lastUsed()) < ac.RemoveAbandonedTimeout {
			continue
		}
		po.MarkAbandoned()
		if ac.LogAbandoned {
			p.reportSwallowed(fmt.Errorf("objectpool: reclaimed abandoned instance %s idle %s", po.ID(), po.ActiveDuration()))
		}
		p.destroyInstance(po, false, false)
	}
}

// Clear destroys every currently idle instance, leaving allocated instances
// untouched. Unlike Close, the pool remains usable afterward.
func (p *ObjectPool[T]) Clear() {
	for _, po := range p.idle.drainAll() {
		po.Invalidate()
		p.destroyInstance(po, false, false)
	}
}

// Close shuts the pool down: it stops accepting new Borrow calls, unregisters
// its evictor job (if any), and destroys every idle and allocated instance.
func (p *ObjectPool[T]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	wasStarted := p.started
	p.mu.Unlock()
	p.setState(lifecycle.Stopping)

	if wasStarted && p.cfg.evictionEnabled() {
		sharedEvictorScheduler().unregister(p.id, p.cfg.EvictorShutdownTimeout)
	}

	for _, po := range p.idle.closeAndDrain() {
		po.Invalidate()
		p.destroyInstance(po, false, false)
	}
	for _, po := range p.reg.snapshot() {
		po.Invalidate()
		p.destroyInstance(po, false, false)
	}
	p.setState(lifecycle.Stopped)
	return nil
}

// NumActive returns the number of instances currently allocated to
// borrowers.
func (p *ObjectPool[T]) NumActive() int {
	p.mu.Lock()
	total := p.total
	p.mu.Unlock()
	return total - p.idle.size()
}

// NumIdle returns the number of instances currently idle.
func (p *ObjectPool[T]) NumIdle() int { return p.idle.size() }

// CreatedCount returns the lifetime count of instances the factory has
// created.
func (p *ObjectPool[T]) CreatedCount() int64 { return p.stats.created.get() }

// DestroyedCount returns the lifetime count of instances the factory has
// destroyed, for any reason.
func (p *ObjectPool[T]) DestroyedCount() int64 { return p.stats.destroyed.get() }

// DestroyedByEvictorCount returns how many destroyed instances were
// destroyed by the background/synchronous evictor specifically.
func (p *ObjectPool[T]) DestroyedByEvictorCount() int64 { return p.stats.destroyedByEvictor.get() }

// DestroyedByBorrowValidationCount returns how many destroyed instances
// failed TestOnBorrow validation.
func (p *ObjectPool[T]) DestroyedByBorrowValidationCount() int64 {
	return p.stats.destroyedByBorrowValidation.get()
}

// MaxBorrowWaitMillis returns the largest Borrow wait time observed in the
// current rolling window, in milliseconds.
func (p *ObjectPool[T]) MaxBorrowWaitMillis() int64 {
	return p.stats.borrowWait.maxValue().Milliseconds()
}

// MeanBorrowWaitMillis returns the mean Borrow wait time over the current
// rolling window, in milliseconds.
func (p *ObjectPool[T]) MeanBorrowWaitMillis() int64 {
	return p.stats.borrowWait.mean().Milliseconds()
}

// MeanActiveMillis returns the mean duration instances stay allocated,
// measured at Return, over the current rolling window.
func (p *ObjectPool[T]) MeanActiveMillis() int64 {
	return p.stats.active.mean().Milliseconds()
}

// MeanIdleMillis returns the mean duration instances stay idle before being
// borrowed or evicted, over the current rolling window.
func (p *ObjectPool[T]) MeanIdleMillis() int64 {
	return p.stats.idle.mean().Milliseconds()
}
