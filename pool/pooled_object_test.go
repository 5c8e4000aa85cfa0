package pool

import (
	"testing"

	"oss.nandlabs.io/objectpool/testing/assert"
)

func TestPooledObject_AllocateDeallocate(t *testing.T) {
	po := newPooledObject("obj-1")
	assert.Equal(t, StateIdle, po.State())

	assert.True(t, po.Allocate())
	assert.Equal(t, StateAllocated, po.State())
	assert.Equal(t, int64(1), po.BorrowedCount())

	// Cannot allocate an already-allocated instance.
	assert.False(t, po.Allocate())

	assert.True(t, po.Deallocate())
	assert.Equal(t, StateIdle, po.State())

	// Cannot deallocate an instance that's already idle.
	assert.False(t, po.Deallocate())
}

func TestPooledObject_EvictionLifecycle(t *testing.T) {
	po := newPooledObject("obj-1")

	assert.True(t, po.StartEvictionTest())
	assert.Equal(t, StateEviction, po.State())

	// A borrow attempt during the test fails; the caller is expected to have
	// already removed the instance from the idle deque.
	assert.False(t, po.Allocate())

	assert.True(t, po.BeginIdleValidation())
	assert.Equal(t, StateValidation, po.State())

	po.EndEvictionTest()
	assert.Equal(t, StateValidationReturnToHead, po.State())

	po.ResumeIdle()
	assert.Equal(t, StateIdle, po.State())
}

func TestPooledObject_Invalidate(t *testing.T) {
	po := newPooledObject("obj-1")
	po.Allocate()
	po.Invalidate()
	assert.Equal(t, StateInvalid, po.State())
}

func TestPooledObject_MarkReturning(t *testing.T) {
	po := newPooledObject("obj-1")
	assert.False(t, po.MarkReturning())

	po.Allocate()
	assert.True(t, po.MarkReturning())
	assert.Equal(t, StateReturning, po.State())
}
