package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/internal/refort"
	"github.com/wippyai/ortext/memory"
	"github.com/wippyai/ortext/sys"
	"github.com/wippyai/ortext/value"
)

func newAttributes(t *testing.T, node refort.KernelNode) (*refort.Runtime, *Attributes) {
	t.Helper()
	r := refort.New()
	return r, BorrowAttributes(r, r.NewKernelInfo(node))
}

func TestAttributes_BorrowedNeverReleased(t *testing.T) {
	r, attrs := newAttributes(t, refort.KernelNode{Name: "n"})
	assert.False(t, attrs.Owned())

	attrs.Close()
	attrs.Close()
	assert.Zero(t, r.Count("ReleaseKernelInfo"))
	assert.Empty(t, r.Misuse())
}

func TestAttributes_CloneReleasedOnce(t *testing.T) {
	r, attrs := newAttributes(t, refort.KernelNode{
		Attributes: map[string]any{"alpha": float32(0.5)},
	})

	clone, err := attrs.Clone()
	require.NoError(t, err)
	assert.True(t, clone.Owned())
	assert.Equal(t, 1, r.Live(refort.KindKernelInfo))

	v, err := clone.Float("alpha")
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), v)

	clone.Close()
	clone.Close()
	attrs.Close()
	assert.Equal(t, 1, r.Count("ReleaseKernelInfo"))
	assert.Zero(t, r.Live(refort.KindKernelInfo))
	assert.Empty(t, r.Misuse())
}

func TestAttributes_Named(t *testing.T) {
	_, attrs := newAttributes(t, refort.KernelNode{
		Attributes: map[string]any{
			"alpha":  float32(1.25),
			"axis":   int64(-1),
			"mode":   "linear",
			"scales": []float32{1, 2},
			"pads":   []int64{0, 1, 0, 1},
		},
	})

	f, err := attrs.Float("alpha")
	require.NoError(t, err)
	assert.Equal(t, float32(1.25), f)

	i, err := attrs.Int("axis")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), i)

	s, err := attrs.String("mode")
	require.NoError(t, err)
	assert.Equal(t, "linear", s)

	fs, err := attrs.Floats("scales")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, fs)

	is, err := attrs.Ints("pads")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 0, 1}, is)

	mode, err := Attr[string](attrs, "mode")
	require.NoError(t, err)
	assert.Equal(t, "linear", mode)
	pads, err := Attr[[]int64](attrs, "pads")
	require.NoError(t, err)
	assert.Len(t, pads, 4)
	alpha, err := Attr[float32](attrs, "alpha")
	require.NoError(t, err)
	assert.Equal(t, float32(1.25), alpha)
}

func TestAttributes_NativeErrors(t *testing.T) {
	_, attrs := newAttributes(t, refort.KernelNode{
		Attributes: map[string]any{"axis": int64(1)},
	})

	_, err := attrs.Float("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNativeStatus)
	var st *sys.Status
	assert.ErrorAs(t, err, &st)

	_, err = attrs.Float("axis")
	assert.ErrorIs(t, err, errors.ErrNativeStatus)

	_, err = Attr[[]float32](attrs, "axis")
	assert.Error(t, err)
}

func TestAttributes_ZeroLength(t *testing.T) {
	r, attrs := newAttributes(t, refort.KernelNode{
		Attributes: map[string]any{
			"empty_ints":   []int64{},
			"empty_floats": []float32{},
			"empty_string": refort.RawString{},
		},
	})

	ints, err := attrs.Ints("empty_ints")
	require.NoError(t, err)
	assert.Empty(t, ints)
	assert.NotNil(t, ints)
	assert.Equal(t, 2, r.Count("KernelInfoGetAttributeArray_int64"))

	floats, err := attrs.Floats("empty_floats")
	require.NoError(t, err)
	assert.Empty(t, floats)
	assert.Equal(t, 2, r.Count("KernelInfoGetAttributeArray_float"))

	s, err := attrs.String("empty_string")
	require.NoError(t, err)
	assert.Equal(t, "", s)
	assert.Equal(t, 2, r.Count("KernelInfoGetAttribute_string"))
}

func TestAttributes_StringDecodeErrors(t *testing.T) {
	_, attrs := newAttributes(t, refort.KernelNode{
		Attributes: map[string]any{
			"bad_utf8":       refort.RawString{0xff, 0xfe, 0},
			"unterminated":   refort.RawString("abc"),
			"interior_nul":   refort.RawString{'a', 0, 'b', 0},
			"empty_c_string": "",
		},
	})

	_, err := attrs.String("bad_utf8")
	assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindInvalidUTF8})

	_, err = attrs.String("unterminated")
	assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindInvalidData})

	_, err = attrs.String("interior_nul")
	assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindInvalidData})

	s, err := attrs.String("empty_c_string")
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestQueryThenFill_ProbeError(t *testing.T) {
	calls := 0
	_, err := queryThenFill(func(out []int64, size *int) error {
		calls++
		return sys.NewStatus(sys.CodeFail, "no")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAttributes_ConstantInput(t *testing.T) {
	r := refort.New()
	weights := refort.NewTensor(r, []int64{3}, []float32{1, 2, 3})
	attrs := BorrowAttributes(r, r.NewKernelInfo(refort.KernelNode{
		Inputs: []refort.Port{
			{Name: "x", Type: value.Float32},
			{Name: "w", Type: value.Float32, Constant: weights},
		},
	}))

	_, err := attrs.ConstantInput(0)
	assert.ErrorIs(t, err, errors.ErrNotConstant)
	_, err = attrs.ConstantInput(5)
	assert.ErrorIs(t, err, errors.ErrNotConstant)

	ref, err := attrs.ConstantInput(1)
	require.NoError(t, err)
	assert.Equal(t, weights, ref.Ptr())

	data, err := ConstantInputData[float32](attrs, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, data)

	_, err = ConstantInputData[int64](attrs, 1)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	assert.Zero(t, r.Count("ReleaseValue"))
}

func TestAttributes_TensorAttr(t *testing.T) {
	r := refort.New()
	attrs := BorrowAttributes(r, r.NewKernelInfo(refort.KernelNode{
		Attributes: map[string]any{
			"table": refort.NewTensor(r, []int64{2, 2}, []int32{1, 2, 3, 4}),
		},
	}))

	typed, err := TensorAttrAs[int32](attrs, "table", nil)
	require.NoError(t, err)
	data, err := typed.Data()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, 4}, data)
	typed.Close()
	assert.Equal(t, 1, r.Count("ReleaseValue"))

	_, err = TensorAttrAs[float32](attrs, "table", nil)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	assert.Equal(t, 2, r.Count("ReleaseValue"))
	assert.Zero(t, r.Live(refort.KindValue))
	assert.Empty(t, r.Misuse())

	alloc, err := attrs.Allocator(memory.MemTypeDefault)
	require.NoError(t, err)
	tensor, err := attrs.TensorAttr("table", alloc)
	require.NoError(t, err)
	defer tensor.Close()
	shape, err := tensor.Shape()
	require.NoError(t, err)
	assert.Equal(t, value.Shape{2, 2}, shape)
}

func TestAttributes_NodeDescription(t *testing.T) {
	r, attrs := newAttributes(t, refort.KernelNode{
		Name: "Custom_0",
		Inputs: []refort.Port{
			{Name: "x", Type: value.Float32, Shape: []int64{-1, 3}},
			{Name: "y", Type: value.Int64},
		},
		Outputs: []refort.Port{
			{Name: "z", Type: value.Float32, Shape: []int64{-1, 3}},
		},
	})

	name, err := attrs.NodeName()
	require.NoError(t, err)
	assert.Equal(t, "Custom_0", name)

	inputs, err := attrs.Inputs()
	require.NoError(t, err)
	assert.Equal(t, []IOInfo{
		{Name: "x", Type: value.Float32, Shape: value.Shape{-1, 3}},
		{Name: "y", Type: value.Int64},
	}, inputs)

	outputs, err := attrs.Outputs()
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "z", outputs[0].Name)

	assert.Equal(t, 3, r.Count("ReleaseTypeInfo"))
	assert.Zero(t, r.Live(refort.KindTypeInfo))
}

func TestAttributes_TypeInfoReleasedOnError(t *testing.T) {
	r, attrs := newAttributes(t, refort.KernelNode{
		Inputs: []refort.Port{{Name: "x", Type: value.Float32}},
	})
	r.FailOn("CastTypeInfoToTensorInfo", sys.CodeFail, "not a tensor")

	_, err := attrs.Inputs()
	assert.Error(t, err)
	assert.Equal(t, 1, r.Count("ReleaseTypeInfo"))
	assert.Zero(t, r.Live(refort.KindTypeInfo))
}
