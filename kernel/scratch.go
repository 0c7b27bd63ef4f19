package kernel

import (
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/memory"
	"github.com/wippyai/ortext/value"
)

// ScratchBuffer is temporary memory from a kernel allocator.
type ScratchBuffer[T value.Element] struct {
	alloc *memory.Allocator
	ptr   unsafe.Pointer
	n     int
	host  bool
	freed atomic.Bool
}

// Allocate obtains room for n elements of T from the allocator for info.
// The buffer must be closed before the invocation returns.
func Allocate[T value.Element](c *Context, info *memory.Info, n int) (*ScratchBuffer[T], error) {
	if n < 0 {
		return nil, errors.InvalidInput(errors.PhaseMemory, "negative scratch buffer length")
	}
	alloc, err := c.Allocator(info)
	if err != nil {
		return nil, err
	}
	allocInfo, err := alloc.Info()
	if err != nil {
		return nil, err
	}

	var zero T
	p, err := alloc.Alloc(n * int(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	return &ScratchBuffer[T]{
		alloc: alloc,
		ptr:   p,
		n:     n,
		host:  allocInfo.IsCPUAccessible(),
	}, nil
}

// Len returns the number of elements.
func (b *ScratchBuffer[T]) Len() int {
	return b.n
}

// Ptr returns the start of the buffer. On device memory this address is
// only meaningful to device code.
func (b *ScratchBuffer[T]) Ptr() unsafe.Pointer {
	return b.ptr
}

// Slice views the buffer on the host. It reports false for device memory.
func (b *ScratchBuffer[T]) Slice() ([]T, bool) {
	if !b.host || b.freed.Load() {
		return nil, false
	}
	if b.n == 0 {
		return []T{}, true
	}
	return unsafe.Slice((*T)(b.ptr), b.n), true
}

// Close frees the buffer exactly once. A failed free is logged.
func (b *ScratchBuffer[T]) Close() {
	if !b.freed.CompareAndSwap(false, true) {
		return
	}
	if err := b.alloc.Free(b.ptr); err != nil {
		Logger().Warn("failed to free scratch buffer",
			zap.Int("elements", b.n),
			zap.Error(err))
	}
}
