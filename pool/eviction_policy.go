package pool

import "time"

// EvictionContext carries the information an EvictionPolicy needs to decide
// whether a single idle instance should be evicted on a given pass.
type EvictionContext struct {
	// IdleDuration is how long the candidate has been idle.
	IdleDuration time.Duration
	// IdleCount is the number of idle instances currently in the pool,
	// including this candidate.
	IdleCount int
	// MinIdle is the pool's configured minimum idle count.
	MinIdle int
	// MinEvictableIdleDuration and SoftMinEvictableIdleDuration mirror the
	// pool's Config fields, made available so a custom policy can reuse them
	// without reaching back into the pool itself.
	MinEvictableIdleDuration     time.Duration
	SoftMinEvictableIdleDuration time.Duration
}

// EvictionPolicy decides which idle instances an eviction run should
// destroy. Pools accept either a built-in policy (DefaultEvictionPolicy) or a
// caller-supplied implementation.
type EvictionPolicy interface {
	// Evict reports whether the candidate described by ctx should be
	// destroyed on this pass.
	Evict(ctx EvictionContext) bool
}

// EvictionPolicyFunc adapts a plain function to EvictionPolicy.
type EvictionPolicyFunc func(EvictionContext) bool

func (f EvictionPolicyFunc) Evict(ctx EvictionContext) bool { return f(ctx) }

// DefaultEvictionPolicy evicts a candidate once it has been idle longer than
// MinEvictableIdleDuration, or once it has been idle longer than
// SoftMinEvictableIdleDuration and evicting it would still leave at least
// MinIdle instances behind. A zero/negative duration is treated as disabled
// (never triggers on that rule), matching the pool's zero-to-infinity
// convention for timing configuration.
var DefaultEvictionPolicy EvictionPolicy = EvictionPolicyFunc(func(ctx EvictionContext) bool {
	if ctx.MinEvictableIdleDuration > 0 && ctx.IdleDuration > ctx.MinEvictableIdleDuration {
		return true
	}
	if ctx.SoftMinEvictableIdleDuration > 0 && ctx.IdleDuration > ctx.SoftMinEvictableIdleDuration {
		if ctx.IdleCount > ctx.MinIdle {
			return true
		}
	}
	return false
})

// AlwaysEvictPolicy evicts every idle candidate it sees, regardless of idle
// duration; useful for tests that want every eviction pass to make progress.
var AlwaysEvictPolicy EvictionPolicy = EvictionPolicyFunc(func(EvictionContext) bool { return true })

// NeverEvictPolicy evicts nothing, leaving TestWhileIdle and ensureMinIdle as
// the eviction run's only effects.
var NeverEvictPolicy EvictionPolicy = EvictionPolicyFunc(func(EvictionContext) bool { return false })

// EvictionPolicyByName resolves one of the built-in policy tags a
// configuration-driven caller (ConfigFromProperties) might name instead of
// constructing an EvictionPolicy value directly.
func EvictionPolicyByName(name string) (EvictionPolicy, bool) {
	switch name {
	case "", "default":
		return DefaultEvictionPolicy, true
	case "always":
		return AlwaysEvictPolicy, true
	case "never":
		return NeverEvictPolicy, true
	default:
		return nil, false
	}
}
