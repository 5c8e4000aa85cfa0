package pool

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// stringCounterFactory is a minimal Factory[string] used across the test
// suite: each Create call returns a unique label, and every lifecycle method
// records the instances it touched so tests can assert on ordering.
type stringCounterFactory struct {
	mu sync.Mutex

	next       int64
	created    []string
	destroyed  []string
	activated  []string
	passivated []string

	validateFunc func(string) bool
	createErr    error
	activateErr  error
	passivateErr error
}

func newStringCounterFactory() *stringCounterFactory {
	return &stringCounterFactory{}
}

func (f *stringCounterFactory) Create() (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	n := atomic.AddInt64(&f.next, 1)
	v := fmt.Sprintf("obj-%d", n)
	f.mu.Lock()
	f.created = append(f.created, v)
	f.mu.Unlock()
	return v, nil
}

func (f *stringCounterFactory) Activate(v string) error {
	f.mu.Lock()
	f.activated = append(f.activated, v)
	f.mu.Unlock()
	return f.activateErr
}

func (f *stringCounterFactory) Validate(v string) bool {
	if f.validateFunc != nil {
		return f.validateFunc(v)
	}
	return true
}

func (f *stringCounterFactory) Passivate(v string) error {
	f.mu.Lock()
	f.passivated = append(f.passivated, v)
	f.mu.Unlock()
	return f.passivateErr
}

func (f *stringCounterFactory) Destroy(v string) error {
	f.mu.Lock()
	f.destroyed = append(f.destroyed, v)
	f.mu.Unlock()
	return nil
}

func (f *stringCounterFactory) destroyedSnapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.destroyed))
	copy(out, f.destroyed)
	return out
}
