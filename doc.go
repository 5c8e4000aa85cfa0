// Package objectpool is the root of a generic, bounded, thread-safe object
// pool library for Go, built around a caller-supplied Factory[T] and the
// pool.ObjectPool[T] type.
//
// The pool itself lives in the pool sub-package; the remaining sub-packages
// are the ambient support it is built on:
//
//	import "oss.nandlabs.io/objectpool/pool"       // Borrow/Return/Invalidate pool
//	import "oss.nandlabs.io/objectpool/l3"         // Structured logging
//	import "oss.nandlabs.io/objectpool/config"     // Optional properties-driven configuration
//	import "oss.nandlabs.io/objectpool/chrono"     // Process-wide eviction scheduler
//	import "oss.nandlabs.io/objectpool/lifecycle"  // Component start/stop coordination
//	import "oss.nandlabs.io/objectpool/collections" // Ordered registry storage
//	import "oss.nandlabs.io/objectpool/errutils"   // Swallowed-exception accumulation
//
// For a complete list of packages and documentation, see:
// https://pkg.go.dev/oss.nandlabs.io/objectpool
package objectpool
