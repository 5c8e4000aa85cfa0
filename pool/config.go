package pool

import (
	"fmt"
	"time"

	"oss.nandlabs.io/objectpool/config"
)

// Config is the full set of tunables for an ObjectPool, mirroring
// Commons-Pool2's GenericObjectPoolConfig. Exported fields are set directly
// rather than through a fluent/builder API; use DefaultConfig to start from
// sane defaults and override only what matters.
//
// Duration fields follow a zero-or-negative-means-infinity/disabled
// convention: MaxWait <= 0 means Borrow blocks indefinitely (when
// BlockWhenExhausted is true); TimeBetweenEvictionRuns <= 0 disables the
// background evictor; MinEvictableIdleDuration/SoftMinEvictableIdleDuration
// <= 0 disable that eviction rule.
type Config struct {
	// MaxTotal caps the number of instances (idle + allocated) the pool will
	// ever hold at once. MaxTotal <= 0 means unbounded.
	MaxTotal int
	// MaxIdle caps the number of idle instances kept around after a Return;
	// once it's reached, returned instances are destroyed instead of
	// recycled. MaxIdle <= 0 means unbounded (up to MaxTotal).
	MaxIdle int
	// MinIdle is the number of idle instances ensureMinIdle tries to
	// maintain during eviction runs.
	MinIdle int

	// Lifo selects the idle deque's push discipline: true recycles the most
	// recently returned instance first (stack order), false serves the
	// longest-idle instance first (strict FIFO).
	Lifo bool
	// Fairness makes waiting borrowers strictly FIFO among themselves, at
	// some throughput cost; false allows barging.
	Fairness bool

	// BlockWhenExhausted controls whether Borrow waits (up to MaxWait) when
	// the pool is at MaxTotal with no idle instance, or fails immediately
	// with ErrExhausted.
	BlockWhenExhausted bool
	// MaxWait bounds how long Borrow blocks. <= 0 means wait indefinitely.
	MaxWait time.Duration

	// TestOnCreate validates a freshly-created instance before it is ever
	// handed out or stored idle.
	TestOnCreate bool
	// TestOnBorrow validates an idle instance immediately before Borrow
	// hands it to the caller.
	TestOnBorrow bool
	// TestOnReturn validates an instance on Return before it re-enters the
	// idle set.
	TestOnReturn bool
	// TestWhileIdle validates idle instances during eviction runs.
	TestWhileIdle bool

	// TimeBetweenEvictionRuns is the evictor's tick interval. <= 0 disables
	// the background evictor entirely (Evict can still be called directly).
	TimeBetweenEvictionRuns time.Duration
	// NumTestsPerEvictionRun bounds how many idle instances a single
	// eviction pass inspects. <= 0 means inspect all idle instances.
	NumTestsPerEvictionRun int
	// MinEvictableIdleDuration is how long an instance must sit idle before
	// it's unconditionally eligible for eviction.
	MinEvictableIdleDuration time.Duration
	// SoftMinEvictableIdleDuration is a shorter idle threshold applied only
	// when there are more than MinIdle idle instances.
	SoftMinEvictableIdleDuration time.Duration
	// EvictionPolicy decides which idle instances an eviction pass destroys.
	// Defaults to DefaultEvictionPolicy.
	EvictionPolicy EvictionPolicy
	// EvictorShutdownTimeout bounds how long Close waits for the shared
	// evictor scheduler to stop this pool's job before giving up.
	EvictorShutdownTimeout time.Duration

	// AbandonedConfig enables reclamation of instances borrowers never
	// return. Nil disables abandoned-object tracking.
	AbandonedConfig *AbandonedConfig
}

// DefaultConfig returns a Config matching Commons-Pool2's documented
// defaults, adapted to Go duration types.
func DefaultConfig() *Config {
	return &Config{
		MaxTotal:                     8,
		MaxIdle:                      8,
		MinIdle:                      0,
		Lifo:                         true,
		Fairness:                     false,
		BlockWhenExhausted:           true,
		MaxWait:                      -1,
		TestOnCreate:                 false,
		TestOnBorrow:                 false,
		TestOnReturn:                 false,
		TestWhileIdle:                false,
		TimeBetweenEvictionRuns:      0,
		NumTestsPerEvictionRun:       3,
		MinEvictableIdleDuration:     30 * time.Minute,
		SoftMinEvictableIdleDuration: -1,
		EvictionPolicy:               DefaultEvictionPolicy,
		EvictorShutdownTimeout:       10 * time.Second,
	}
}

// Validate reports whether the configuration is internally consistent,
// returning ErrInvalidConfig wrapped with detail when it is not.
func (c *Config) Validate() error {
	if c.MaxTotal > 0 && c.MaxIdle > c.MaxTotal {
		return wrapInvalidConfig("MaxIdle cannot exceed MaxTotal")
	}
	if c.MinIdle < 0 {
		return wrapInvalidConfig("MinIdle cannot be negative")
	}
	if c.MaxTotal > 0 && c.MinIdle > c.MaxTotal {
		return wrapInvalidConfig("MinIdle cannot exceed MaxTotal")
	}
	if c.EvictionPolicy == nil {
		return wrapInvalidConfig("EvictionPolicy cannot be nil")
	}
	return nil
}

func wrapInvalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

// evictionEnabled reports whether TimeBetweenEvictionRuns schedules a
// background evictor.
func (c *Config) evictionEnabled() bool {
	return c.TimeBetweenEvictionRuns > 0
}

// maxWaitDuration returns the effective Borrow wait: a negative duration
// signals "block forever" to context-based waits.
func (c *Config) maxWaitDuration() time.Duration {
	if c.MaxWait <= 0 {
		return -1
	}
	return c.MaxWait
}

// AbandonedConfig enables reclamation of instances whose borrower appears to
// have abandoned them (held past RemoveAbandonedTimeout without being
// returned), mirroring Commons-Pool2's removeAbandoned/AbandonedConfig
// feature.
type AbandonedConfig struct {
	// RemoveAbandonedOnBorrow runs a reclamation sweep whenever Borrow needs
	// to grow the pool and finds none available.
	RemoveAbandonedOnBorrow bool
	// RemoveAbandonedOnMaintenance runs a reclamation sweep on every
	// eviction tick, independent of Borrow pressure.
	RemoveAbandonedOnMaintenance bool
	// RemoveAbandonedTimeout is how long an allocated instance may go
	// without being returned or Touch-ed before it's considered abandoned.
	RemoveAbandonedTimeout time.Duration
	// LogAbandoned, when true, reports reclaimed instances through the
	// pool's SwallowedExceptionListener instead of staying silent.
	LogAbandoned bool
}

// ConfigFromProperties builds a Config from a config.Configuration source,
// starting from DefaultConfig and overriding fields present in props. Keys
// are the Config field names in lower-camel-case; durations are read as
// integer milliseconds (maxWaitMillis, timeBetweenEvictionRunsMillis,
// minEvictableIdleDurationMillis) and evictionPolicy names a registered
// policy. SoftMinEvictableIdleDuration, EvictorShutdownTimeout and
// AbandonedConfig are not read from props.
func ConfigFromProperties(props config.Configuration) (*Config, error) {
	c := DefaultConfig()

	if v, err := props.GetAsInt("maxTotal", c.MaxTotal); err == nil {
		c.MaxTotal = v
	} else {
		return nil, err
	}
	if v, err := props.GetAsInt("maxIdle", c.MaxIdle); err == nil {
		c.MaxIdle = v
	} else {
		return nil, err
	}
	if v, err := props.GetAsInt("minIdle", c.MinIdle); err == nil {
		c.MinIdle = v
	} else {
		return nil, err
	}
	if v, err := props.GetAsBool("lifo", c.Lifo); err == nil {
		c.Lifo = v
	} else {
		return nil, err
	}
	if v, err := props.GetAsBool("fairness", c.Fairness); err == nil {
		c.Fairness = v
	} else {
		return nil, err
	}
	if v, err := props.GetAsBool("blockWhenExhausted", c.BlockWhenExhausted); err == nil {
		c.BlockWhenExhausted = v
	} else {
		return nil, err
	}
	if v, err := props.GetAsInt64("maxWaitMillis", c.MaxWait.Milliseconds()); err == nil {
		c.MaxWait = time.Duration(v) * time.Millisecond
	} else {
		return nil, err
	}
	if v, err := props.GetAsBool("testOnCreate", c.TestOnCreate); err == nil {
		c.TestOnCreate = v
	} else {
		return nil, err
	}
	if v, err := props.GetAsBool("testOnBorrow", c.TestOnBorrow); err == nil {
		c.TestOnBorrow = v
	} else {
		return nil, err
	}
	if v, err := props.GetAsBool("testOnReturn", c.TestOnReturn); err == nil {
		c.TestOnReturn = v
	} else {
		return nil, err
	}
	if v, err := props.GetAsBool("testWhileIdle", c.TestWhileIdle); err == nil {
		c.TestWhileIdle = v
	} else {
		return nil, err
	}
	if v, err := props.GetAsInt64("timeBetweenEvictionRunsMillis", c.TimeBetweenEvictionRuns.Milliseconds()); err == nil {
		c.TimeBetweenEvictionRuns = time.Duration(v) * time.Millisecond
	} else {
		return nil, err
	}
	if v, err := props.GetAsInt("numTestsPerEvictionRun", c.NumTestsPerEvictionRun); err == nil {
		c.NumTestsPerEvictionRun = v
	} else {
		return nil, err
	}
	if v, err := props.GetAsInt64("minEvictableIdleDurationMillis", c.MinEvictableIdleDuration.Milliseconds()); err == nil {
		c.MinEvictableIdleDuration = time.Duration(v) * time.Millisecond
	} else {
		return nil, err
	}
	policyName := props.Get("evictionPolicy", "default")
	if policy, ok := EvictionPolicyByName(policyName); ok {
		c.EvictionPolicy = policy
	} else {
		return nil, wrapInvalidConfig("unknown evictionPolicy: " + policyName)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
