package pool

import (
	"reflect"
	"sync"

	"oss.nandlabs.io/objectpool/collections"
)

// identityKey derives a stable, comparable key for an instance of any type
// so the registry can resolve a borrowed value back to its PooledObject
// wrapper without relying on the value's own equality semantics (which, for
// a caller-supplied T, the pool has no control over). Pointer-like kinds key
// off their runtime address; everything else keys off the boxed value
// itself, which is safe in Go because map keys compare by value and there is
// no equivalent of an overridable equals/hashCode to subvert it.
func identityKey(instance any) any {
	v := reflect.ValueOf(instance)
	switch v.Kind() {
	case reflect.Ptr, reflect.Chan, reflect.Map, reflect.Func, reflect.UnsafePointer:
		return v.Pointer()
	default:
		return instance
	}
}

// registry tracks every PooledObject a pool currently manages (idle,
// allocated, or mid-eviction/validation), keyed by the identity of its
// wrapped instance so Return/Invalidate can resolve a caller's T back to its
// wrapper in O(1).
type registry[T any] struct {
	mu    sync.RWMutex
	byKey map[any]*PooledObject[T]
	// order tracks insertion order for deterministic traversal. Removal
	// always goes through RemoveAt on an index this package finds itself via
	// pointer (==) comparison, never ArrayList.Remove/Contains/IndexOf: those
	// compare elements with assertion.Equal (reflect.DeepEqual), which would
	// treat two distinct *PooledObject[T] with identical field values as the
	// same entry, breaking the pointer-identity guarantee Return/Invalidate
	// depend on.
	order *collections.ArrayList[*PooledObject[T]]
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{
		byKey: make(map[any]*PooledObject[T]),
		order: collections.NewArrayList[*PooledObject[T]](),
	}
}

func (r *registry[T]) put(p *PooledObject[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[identityKey(p.Object())] = p
	_ = r.order.AddLast(p)
}

func (r *registry[T]) get(instance T) (*PooledObject[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byKey[identityKey(instance)]
	return p, ok
}

func (r *registry[T]) remove(p *PooledObject[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byKey, identityKey(p.Object()))
	for i := 0; i < r.order.Size(); i++ {
		if cand, err := r.order.Get(i); err == nil && cand == p {
			_, _ = r.order.RemoveAt(i)
			break
		}
	}
}

func (r *registry[T]) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.order.Size()
}

// snapshot returns every tracked PooledObject in insertion order.
func (r *registry[T]) snapshot() []*PooledObject[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*PooledObject[T], r.order.Size())
	for i := range out {
		out[i], _ = r.order.Get(i)
	}
	return out
}
