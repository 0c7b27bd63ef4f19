package kernel

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/internal/refort"
	"github.com/wippyai/ortext/sys"
)

func TestOpAttr_RoundTrip(t *testing.T) {
	r := refort.New()

	fa, err := NewOpAttrFloat(r, "alpha", 0.75)
	require.NoError(t, err)
	defer fa.Close()
	f, err := OpAttrFloat(fa)
	require.NoError(t, err)
	assert.Equal(t, float32(0.75), f)

	ia, err := NewOpAttrInt(r, "axis", -2)
	require.NoError(t, err)
	defer ia.Close()
	i, err := OpAttrInt(ia)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), i)

	fsa, err := NewOpAttrFloats(r, "scales", []float32{1, 2, 3})
	require.NoError(t, err)
	defer fsa.Close()
	fs, err := OpAttrFloats(fsa, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, fs)

	isa, err := NewOpAttrInts(r, "perm", []int64{0, 2, 1})
	require.NoError(t, err)
	defer isa.Close()
	is, err := OpAttrInts(isa, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 1}, is)

	sa, err := NewOpAttrString(r, "mode", "nearest")
	require.NoError(t, err)
	defer sa.Close()
	s, err := OpAttrString(sa, len("nearest"))
	require.NoError(t, err)
	assert.Equal(t, "nearest", s)

	ea, err := NewOpAttrInts(r, "empty", nil)
	require.NoError(t, err)
	defer ea.Close()
	empty, err := OpAttrInts(ea, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOpAttr_LengthMismatchPanics(t *testing.T) {
	r := refort.New()
	attr, err := NewOpAttrFloats(r, "pair", []float32{1, 2})
	require.NoError(t, err)
	defer attr.Close()

	// One float expected, the native side holds two.
	assert.Panics(t, func() { _, _ = ReadOpAttr[[]float32](attr, 4) })
	assert.Panics(t, func() { _, _ = OpAttrFloats(attr, 3) })
}

// wideFloat reports an 8-byte payload for every float attribute.
type wideFloat struct {
	*refort.Runtime
}

func (w wideFloat) ReadOpAttr(attr sys.OpAttr, typ sys.OpAttrType, data unsafe.Pointer, length int, out *int) error {
	*out = 8
	if length < 8 {
		return sys.NewStatus(sys.CodeInvalidArgument, "Size of data not large enough")
	}
	return nil
}

func TestOpAttr_ScalarLengthMismatchPanics(t *testing.T) {
	api := wideFloat{refort.New()}
	attr, err := NewOpAttrFloat(api, "alpha", 1)
	require.NoError(t, err)
	defer attr.Close()

	assert.PanicsWithValue(t, "kernel: float op attribute is 8 bytes, expected 4", func() {
		_, _ = OpAttrFloat(attr)
	})
}

func TestOpAttr_TypeMismatchIsError(t *testing.T) {
	r := refort.New()
	attr, err := NewOpAttrInt(r, "axis", 1)
	require.NoError(t, err)
	defer attr.Close()

	_, err = OpAttrFloat(attr)
	assert.ErrorIs(t, err, errors.ErrNativeStatus)
}

func TestOpAttr_CloseOnce(t *testing.T) {
	r := refort.New()
	attr, err := NewOpAttrInt(r, "axis", 1)
	require.NoError(t, err)

	attr.Close()
	attr.Close()
	assert.Equal(t, 1, r.Count("ReleaseOpAttr"))

	borrowed := BorrowOpAttr(r, attr.Ptr())
	borrowed.Close()
	assert.Equal(t, 1, r.Count("ReleaseOpAttr"))
	assert.Empty(t, r.Misuse())
}

func TestOpAttrTypeOf(t *testing.T) {
	assert.Equal(t, sys.OpAttrFloat, OpAttrTypeOf[float32]())
	assert.Equal(t, sys.OpAttrInt, OpAttrTypeOf[int64]())
	assert.Equal(t, sys.OpAttrString, OpAttrTypeOf[string]())
	assert.Equal(t, sys.OpAttrFloats, OpAttrTypeOf[[]float32]())
	assert.Equal(t, sys.OpAttrInts, OpAttrTypeOf[[]int64]())
}
