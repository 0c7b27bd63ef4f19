package kernel

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/internal/refort"
	"github.com/wippyai/ortext/memory"
	"github.com/wippyai/ortext/sys"
	"github.com/wippyai/ortext/value"
)

func TestContext_InputsAndOutputs(t *testing.T) {
	r := refort.New()
	x := refort.NewTensor(r, []int64{2, 2}, []float32{1, 2, 3, 4})
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{
		Inputs:  []sys.Value{x, nil},
		Outputs: []sys.ElementType{value.Float32, value.Undefined},
	}))

	n, err := ctx.NumInputs()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = ctx.NumOutputs()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	in, err := ctx.Input(0)
	require.NoError(t, err)
	require.NotNil(t, in)
	src, err := value.Data[float32](in)
	require.NoError(t, err)

	absent, err := ctx.Input(1)
	require.NoError(t, err)
	assert.Nil(t, absent)

	out, err := ctx.Output(0, value.Shape{2, 2})
	require.NoError(t, err)
	require.NotNil(t, out)
	dst, err := value.MutableData[float32](out)
	require.NoError(t, err)
	for i := range src {
		dst[i] = src[i] * 2
	}
	assert.Equal(t, []float32{2, 4, 6, 8}, refort.TensorData[float32](r, r.Output(ctx.Ptr(), 0)))

	skipped, err := ctx.Output(1, value.Shape{1})
	require.NoError(t, err)
	assert.Nil(t, skipped)

	assert.Zero(t, r.Count("ReleaseValue"))
}

func TestContext_OutputNegativeDim(t *testing.T) {
	r := refort.New()
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{
		Outputs: []sys.ElementType{value.Float32},
	}))

	_, err := ctx.Output(0, value.Shape{2, -1})
	assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindInvalidInput})
	assert.Zero(t, r.Count("KernelContext_GetOutput"))
}

func TestContext_ResourcesAndStream(t *testing.T) {
	r := refort.New()
	handle := new(int)
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{
		Resources: map[[2]int]unsafe.Pointer{{7, 1}: unsafe.Pointer(handle)},
	}))

	p, err := ctx.Resource(7, 1)
	require.NoError(t, err)
	assert.Equal(t, unsafe.Pointer(handle), p)

	p, err = ctx.Resource(7, 2)
	require.NoError(t, err)
	assert.Nil(t, p)

	stream, err := ctx.ComputeStream()
	require.NoError(t, err)
	assert.Nil(t, stream)
}

func TestContext_NativeFailure(t *testing.T) {
	r := refort.New()
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{}))
	r.FailOn("KernelContext_GetInputCount", sys.CodeFail, "broken")

	_, err := ctx.NumInputs()
	assert.ErrorIs(t, err, errors.ErrNativeStatus)
}

func TestContext_ParForZero(t *testing.T) {
	r := refort.New()
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{}))

	called := false
	require.NoError(t, ctx.ParFor(0, 4, func(int) { called = true }))
	assert.False(t, called)
	assert.Zero(t, r.Count("KernelContext_ParallelFor"))
	assert.Zero(t, sys.PendingCallbacks())
}

func TestContext_ParForCoversEveryIndex(t *testing.T) {
	r := refort.New(refort.WithWorkers(8))
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{}))

	for _, total := range []int{1, 7, 64, 1000} {
		for _, batches := range []int{0, 1, 2, 5, 64, 5000} {
			hits := make([]atomic.Int32, total)
			require.NoError(t, ctx.ParFor(total, batches, func(i int) {
				hits[i].Add(1)
			}))
			for i := range hits {
				require.Equal(t, int32(1), hits[i].Load(), "total=%d batches=%d index=%d", total, batches, i)
			}
		}
	}
	assert.Zero(t, sys.PendingCallbacks())
}

func TestContext_ParForPanic(t *testing.T) {
	r := refort.New(refort.WithWorkers(4))
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{}))

	var mu sync.Mutex
	ran := 0
	err := ctx.ParFor(16, 4, func(i int) {
		mu.Lock()
		ran++
		mu.Unlock()
		if i == 3 {
			panic("bad index")
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindKernel})
	assert.Contains(t, err.Error(), "bad index")
	assert.Equal(t, 16, ran)
	assert.Zero(t, sys.PendingCallbacks())
}

func TestContext_ParForNegativeArgs(t *testing.T) {
	r := refort.New()
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{}))

	for _, tt := range []struct{ total, batches int }{{-1, 2}, {8, -1}} {
		err := ctx.ParFor(tt.total, tt.batches, func(int) {})
		assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindInvalidInput}, "total=%d batches=%d", tt.total, tt.batches)
	}
	assert.Zero(t, r.Count("KernelContext_ParallelFor"))
	assert.Zero(t, sys.PendingCallbacks())
}

func TestContext_NegativeIndex(t *testing.T) {
	r := refort.New()
	x := refort.NewTensor(r, []int64{2}, []float32{1, 2})
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{
		Inputs:  []sys.Value{x},
		Outputs: []sys.ElementType{value.Float32},
	}))

	_, err := ctx.Input(-1)
	require.ErrorIs(t, err, errors.ErrOutOfBounds)
	assert.Contains(t, err.Error(), "length 1")

	_, err = ctx.Output(-2, value.Shape{2})
	require.ErrorIs(t, err, errors.ErrOutOfBounds)
	assert.Zero(t, r.Count("KernelContext_GetInput"))
	assert.Zero(t, r.Count("KernelContext_GetOutput"))
}

func TestContext_ParForNativeFailure(t *testing.T) {
	r := refort.New()
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{}))
	r.FailOn("KernelContext_ParallelFor", sys.CodeFail, "no pool")

	err := ctx.ParFor(10, 2, func(int) {})
	assert.ErrorIs(t, err, errors.ErrNativeStatus)
	assert.Zero(t, sys.PendingCallbacks())
}

func TestAllocate_Host(t *testing.T) {
	r := refort.New()
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{}))
	info, err := memory.NewCPUInfo(r, memory.AllocatorArena, memory.MemTypeDefault)
	require.NoError(t, err)
	defer info.Close()

	buf, err := Allocate[float64](ctx, info, 16)
	require.NoError(t, err)
	assert.Equal(t, 16, buf.Len())

	s, ok := buf.Slice()
	require.True(t, ok)
	require.Len(t, s, 16)
	for i := range s {
		s[i] = float64(i)
	}
	assert.Equal(t, 1, r.Outstanding())

	buf.Close()
	buf.Close()
	assert.Zero(t, r.Outstanding())
	assert.Equal(t, 1, r.Count("AllocatorFree"))
	_, ok = buf.Slice()
	assert.False(t, ok)
}

func TestAllocate_Device(t *testing.T) {
	r := refort.New()
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{}))
	info, err := memory.NewInfo(r, memory.NameCUDA, memory.AllocatorDevice, 0, memory.MemTypeDefault)
	require.NoError(t, err)
	defer info.Close()

	buf, err := Allocate[float32](ctx, info, 8)
	require.NoError(t, err)
	defer buf.Close()

	_, ok := buf.Slice()
	assert.False(t, ok)
	assert.NotNil(t, buf.Ptr())
}

func TestAllocate_FreeFailureIsLogged(t *testing.T) {
	r := refort.New()
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{}))
	info, err := memory.NewCPUInfo(r, memory.AllocatorDevice, memory.MemTypeDefault)
	require.NoError(t, err)
	defer info.Close()

	buf, err := Allocate[int32](ctx, info, 4)
	require.NoError(t, err)
	r.FailOn("AllocatorFree", sys.CodeFail, "arena corrupted")
	assert.NotPanics(t, buf.Close)
}

func TestAllocate_Negative(t *testing.T) {
	r := refort.New()
	ctx := NewContext(r, r.NewKernelContext(refort.ContextSpec{}))
	info, err := memory.NewCPUInfo(r, memory.AllocatorDevice, memory.MemTypeDefault)
	require.NoError(t, err)
	defer info.Close()

	_, err = Allocate[int32](ctx, info, -1)
	assert.Error(t, err)
}
