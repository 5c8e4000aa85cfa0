package pool

import (
	"errors"
	"fmt"

	"oss.nandlabs.io/objectpool/errutils"
)

var (
	// ErrPoolClosed is returned by any operation attempted after Close has
	// been called.
	ErrPoolClosed = errors.New("objectpool: pool is closed")
	// ErrExhausted is returned by Borrow when the pool is at MaxTotal,
	// BlockWhenExhausted is false, and no idle instance is available.
	ErrExhausted = errors.New("objectpool: pool exhausted")
	// ErrTimeout is returned by Borrow when MaxWait elapses before an
	// instance becomes available.
	ErrTimeout = errors.New("objectpool: timed out waiting for an instance")
	// ErrInterrupted is returned by Borrow when the caller's context is
	// canceled while waiting for an instance.
	ErrInterrupted = errors.New("objectpool: borrow interrupted")
	// ErrInvalidConfig is wrapped, with detail, by the error NewObjectPool,
	// Config.Validate and ConfigFromProperties return when a configuration
	// value fails validation; test for it with errors.Is.
	ErrInvalidConfig = errors.New("objectpool: invalid configuration")
	// ErrNotBorrowed is returned by Return when the supplied instance is
	// tracked by the pool but not currently allocated (for example, a
	// second Return of the same instance).
	ErrNotBorrowed = errors.New("objectpool: instance is not currently borrowed from this pool")
	// ErrUnknownInstance is returned by Return and Invalidate when the
	// supplied instance is not tracked in the pool's registry: it was never
	// created by this pool, or it has already been destroyed.
	ErrUnknownInstance = errors.New("objectpool: instance is not managed by this pool")
)

// FactoryError wraps an error returned by a Factory[T] method so that callers
// and the swallowed-exception listener can tell which lifecycle step failed.
type FactoryError struct {
	// Op names the factory method that failed: "create", "destroy",
	// "validate", "activate", or "passivate".
	Op  string
	Err error
}

func (e *FactoryError) Error() string {
	return fmt.Sprintf("objectpool: factory %s failed: %v", e.Op, e.Err)
}

func (e *FactoryError) Unwrap() error { return e.Err }

func factoryErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FactoryError{Op: op, Err: err}
}

// SwallowedExceptionListener receives errors that occur during background
// work (eviction runs, passivate/destroy on return, abandoned-object
// reclamation) where there is no caller left to hand the error back to.
// Implementations must not block or panic.
type SwallowedExceptionListener interface {
	OnSwallowException(err error)
}

// swallowedExceptionListenerFunc adapts a plain function to
// SwallowedExceptionListener.
type swallowedExceptionListenerFunc func(error)

func (f swallowedExceptionListenerFunc) OnSwallowException(err error) { f(err) }

// multiErrListener accumulates swallowed errors into an errutils.MultiError
// instead of dropping them silently.
type multiErrListener struct {
	errs *errutils.MultiError
}

// newMultiErrListener returns a SwallowedExceptionListener backed by an
// errutils.MultiError, used as the pool's default listener when the caller
// does not supply one.
func newMultiErrListener() *multiErrListener {
	return &multiErrListener{errs: errutils.NewMultiErr(nil)}
}

func (l *multiErrListener) OnSwallowException(err error) {
	l.errs.Add(err)
}

// Swallowed returns the accumulated swallowed errors, oldest first.
func (l *multiErrListener) Swallowed() []error {
	return l.errs.GetAll()
}
