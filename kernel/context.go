package kernel

import (
	"fmt"
	"unsafe"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/memory"
	"github.com/wippyai/ortext/sys"
	"github.com/wippyai/ortext/value"
)

// Context is the per-invocation view of a kernel's inputs, outputs and
// runtime services. It is never released by the bridge and, like every
// handle obtained from it, must not be used after Compute returns.
type Context struct {
	api sys.API
	ptr sys.KernelContext
}

// NewContext wraps a native kernel context.
func NewContext(api sys.API, ptr sys.KernelContext) *Context {
	return &Context{api: api, ptr: ptr}
}

// Ptr returns the native handle.
func (c *Context) Ptr() sys.KernelContext {
	return c.ptr
}

func contextErr(op string, cause error) error {
	return errors.New(errors.PhaseKernel, errors.KindNativeStatus).
		Detail("%s", op).
		Cause(cause).
		Build()
}

// Input returns input idx, or nil when the slot has no value.
func (c *Context) Input(idx int) (*value.Ref, error) {
	if idx < 0 {
		n, _ := c.NumInputs()
		return nil, errors.OutOfBounds(errors.PhaseKernel, []string{"inputs"}, idx, n)
	}
	v, err := c.api.KernelContextGetInput(c.ptr, idx)
	if err != nil {
		return nil, contextErr("KernelContext_GetInput", err)
	}
	if v == nil {
		return nil, nil
	}
	return value.BorrowRef(c.api, v), nil
}

// Output allocates output idx with the given shape and returns it, or nil
// when the runtime did not allocate the output.
func (c *Context) Output(idx int, shape value.Shape) (*value.RefMut, error) {
	if idx < 0 {
		n, _ := c.NumOutputs()
		return nil, errors.OutOfBounds(errors.PhaseKernel, []string{"outputs"}, idx, n)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	v, err := c.api.KernelContextGetOutput(c.ptr, idx, shape)
	if err != nil {
		return nil, contextErr("KernelContext_GetOutput", err)
	}
	if v == nil {
		return nil, nil
	}
	return value.BorrowRefMut(c.api, v), nil
}

// NumInputs reports the number of inputs of this invocation.
func (c *Context) NumInputs() (int, error) {
	n, err := c.api.KernelContextGetInputCount(c.ptr)
	if err != nil {
		return 0, contextErr("KernelContext_GetInputCount", err)
	}
	return n, nil
}

// NumOutputs reports the number of outputs of this invocation.
func (c *Context) NumOutputs() (int, error) {
	n, err := c.api.KernelContextGetOutputCount(c.ptr)
	if err != nil {
		return 0, contextErr("KernelContext_GetOutputCount", err)
	}
	return n, nil
}

// Allocator returns the allocator for the memory space described by info.
// Memory from a device allocator must not be touched on the host.
func (c *Context) Allocator(info *memory.Info) (*memory.Allocator, error) {
	ptr, err := c.api.KernelContextGetAllocator(c.ptr, info.Ptr())
	if err != nil {
		return nil, contextErr("KernelContext_GetAllocator", err)
	}
	if ptr == nil {
		return nil, errors.NilPointer(errors.PhaseKernel, nil, "OrtAllocator")
	}
	return memory.WrapAllocator(c.api, ptr), nil
}

// Resource looks up a provider resource by id and version. It returns nil
// when the provider has no such resource.
func (c *Context) Resource(id, version int) (unsafe.Pointer, error) {
	p, err := c.api.KernelContextGetResource(c.ptr, version, id)
	if err != nil {
		return nil, contextErr("KernelContext_GetResource", err)
	}
	return p, nil
}

// ComputeStream returns the provider's compute stream (a cudaStream_t under
// the CUDA provider), or nil for providers without streams.
func (c *Context) ComputeStream() (unsafe.Pointer, error) {
	p, err := c.api.KernelContextGetGPUComputeStream(c.ptr)
	if err != nil {
		return nil, contextErr("KernelContext_GetGPUComputeStream", err)
	}
	return p, nil
}

// ParFor calls fn(i) for every i in [0, total) on the runtime's thread pool,
// split into at most maxBatches contiguous batches, and returns when all
// calls are done. fn runs concurrently on disjoint indices in no particular
// order. A panic in fn is recovered and returned as an error.
func (c *Context) ParFor(total, maxBatches int, fn func(i int)) error {
	if total < 0 {
		return errors.InvalidInput(errors.PhaseKernel, "negative parallel-for total")
	}
	if maxBatches < 0 {
		return errors.InvalidInput(errors.PhaseKernel, "negative parallel-for batch count")
	}
	if total == 0 {
		return nil
	}

	job, userData, err := sys.RegisterParallelFor(fn)
	if err != nil {
		return errors.Kernel("register parallel-for body", err)
	}
	defer job.Release()

	if err := c.api.KernelContextParallelFor(c.ptr, total, maxBatches, userData); err != nil {
		return contextErr("KernelContext_ParallelFor", err)
	}
	if r, panicked := job.Panic(); panicked {
		return errors.Kernel(fmt.Sprintf("parallel-for body panicked: %v", r), nil)
	}
	return nil
}
