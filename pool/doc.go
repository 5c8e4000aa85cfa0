// Package pool provides a generic, bounded, thread-safe object pool.
//
// A pool is built from a Factory[T], which creates, activates, validates,
// passivates, and destroys instances of T, and a Config, which governs
// capacity, borrow blocking/fairness, validation, and background eviction.
// Callers Borrow an instance, use it, and either Return it for reuse or
// Invalidate it if it turned out to be broken. An optional background
// evictor, shared across every pool in the process through a single
// scheduler, periodically tests idle instances and destroys the ones that
// have sat idle too long or fail validation.
package pool
