package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/internal/refort"
	"github.com/wippyai/ortext/value"
)

func TestShape(t *testing.T) {
	assert.Equal(t, int64(1), value.Shape{}.NumElements())
	assert.Equal(t, int64(24), value.Shape{2, 3, 4}.NumElements())
	assert.Equal(t, int64(0), value.Shape{2, 0}.NumElements())
	assert.Equal(t, "[2, 3]", value.Shape{2, 3}.String())

	assert.NoError(t, value.Shape{0, 1}.Validate())
	err := value.Shape{1, -1}.Validate()
	assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindInvalidInput})
}

func TestElementTypeOf(t *testing.T) {
	assert.Equal(t, value.Float32, value.ElementTypeOf[float32]())
	assert.Equal(t, value.Int64, value.ElementTypeOf[int64]())
	assert.Equal(t, value.Bool, value.ElementTypeOf[bool]())
	assert.Equal(t, value.Uint8, value.ElementTypeOf[uint8]())
}

func TestRef_Data(t *testing.T) {
	r := refort.New()
	ref := value.BorrowRef(r, refort.NewTensor(r, []int64{3}, []int32{7, 8, 9}))

	et, shape, err := ref.Type()
	require.NoError(t, err)
	assert.Equal(t, value.Int32, et)
	assert.Equal(t, value.Shape{3}, shape)

	data, err := value.Data[int32](ref)
	require.NoError(t, err)
	assert.Equal(t, []int32{7, 8, 9}, data)

	_, err = value.Data[float32](ref)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
}

func TestRef_DeviceMemory(t *testing.T) {
	r := refort.New()
	ref := value.BorrowRef(r, refort.NewDeviceTensor(r, value.Float32, []int64{4}))

	_, err := value.Data[float32](ref)
	assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindUnsupported})
}

func TestRefMut_Write(t *testing.T) {
	r := refort.New()
	v := refort.NewTensor(r, []int64{2}, []float64{0, 0})
	ref := value.BorrowRefMut(r, v)

	data, err := value.MutableData[float64](ref)
	require.NoError(t, err)
	data[0], data[1] = 1.5, 2.5
	assert.Equal(t, []float64{1.5, 2.5}, refort.TensorData[float64](r, v))
}

func TestRef_Empty(t *testing.T) {
	r := refort.New()
	ref := value.BorrowRef(r, refort.NewTensor(r, []int64{0}, []float32{}))

	data, err := value.Data[float32](ref)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestDowncast(t *testing.T) {
	r := refort.New()
	info := r.NewKernelInfo(refort.KernelNode{
		Attributes: map[string]any{"w": refort.NewTensor(r, []int64{2}, []int64{4, 5})},
	})
	alloc, err := r.GetAllocatorWithDefaultOptions()
	require.NoError(t, err)
	v, err := r.KernelInfoGetAttributeTensor(info, "w", alloc)
	require.NoError(t, err)

	tensor := value.Own(r, v)
	_, err = value.Downcast[float32](tensor)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	typed, err := value.Downcast[int64](tensor)
	require.NoError(t, err)
	data, err := typed.Data()
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, data)

	tensor.Close()
	tensor.Close()
	assert.Equal(t, 1, r.Count("ReleaseValue"))
	assert.Empty(t, r.Misuse())
}
