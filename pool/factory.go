package pool

// Factory creates, validates, and destroys the instances a pool manages. It
// is the full Commons-Pool-style lifecycle the state machine in PooledObject
// drives: Create, Activate, Validate, Passivate, and Destroy.
type Factory[T any] interface {
	// Create produces a brand-new instance. Called whenever the pool needs
	// to grow (Borrow on an empty idle set below MaxTotal, AddObject,
	// Prepare, or replacing an instance that failed validation/eviction).
	Create() (T, error)
	// Activate prepares an idle instance for use, immediately before it is
	// handed to a borrower. Returning an error fails the borrow attempt for
	// that instance; the pool destroys it and tries the next candidate.
	Activate(T) error
	// Validate reports whether an instance is still usable. Used for
	// TestOnCreate, TestOnBorrow, TestOnReturn, and TestWhileIdle, depending
	// on the pool's Config.
	Validate(T) bool
	// Passivate prepares an instance for idle storage, immediately before it
	// re-enters the idle set on Return. Returning an error causes the
	// instance to be destroyed instead of recycled.
	Passivate(T) error
	// Destroy releases any resources held by an instance. Called when an
	// instance is evicted, fails validation, or the pool is closed/cleared.
	Destroy(T) error
}

// BaseFactory is a Factory[T] built from independent function fields, one per
// lifecycle step, instead of requiring a full interface implementation. Every
// field but CreateFunc is optional; omitted steps are no-ops
// (Activate/Passivate/Destroy) or always-pass (Validate).
type BaseFactory[T any] struct {
	CreateFunc    func() (T, error)
	ActivateFunc  func(T) error
	ValidateFunc  func(T) bool
	PassivateFunc func(T) error
	DestroyFunc   func(T) error
}

// NewBaseFactory builds a BaseFactory from a creator and destroyer only, for
// callers that don't need activation or validation hooks.
func NewBaseFactory[T any](create func() (T, error), destroy func(T) error) *BaseFactory[T] {
	return &BaseFactory[T]{CreateFunc: create, DestroyFunc: destroy}
}

func (f *BaseFactory[T]) Create() (T, error) {
	return f.CreateFunc()
}

func (f *BaseFactory[T]) Activate(v T) error {
	if f.ActivateFunc == nil {
		return nil
	}
	return f.ActivateFunc(v)
}

func (f *BaseFactory[T]) Validate(v T) bool {
	if f.ValidateFunc == nil {
		return true
	}
	return f.ValidateFunc(v)
}

func (f *BaseFactory[T]) Passivate(v T) error {
	if f.PassivateFunc == nil {
		return nil
	}
	return f.PassivateFunc(v)
}

func (f *BaseFactory[T]) Destroy(v T) error {
	if f.DestroyFunc == nil {
		return nil
	}
	return f.DestroyFunc(v)
}
