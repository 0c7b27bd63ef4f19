package kernel

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/sys"
)

// OpAttr is a standalone operator attribute, read positionally rather than
// by name through kernel attributes.
type OpAttr struct {
	api      sys.API
	ptr      sys.OpAttr
	owned    bool
	released atomic.Bool
}

// BorrowOpAttr wraps an op attribute owned by the runtime.
func BorrowOpAttr(api sys.API, ptr sys.OpAttr) *OpAttr {
	return &OpAttr{api: api, ptr: ptr}
}

func newOpAttr(api sys.API, name string, data unsafe.Pointer, length int, typ sys.OpAttrType) (*OpAttr, error) {
	ptr, err := api.CreateOpAttr(name, data, length, typ)
	if err != nil {
		return nil, errors.New(errors.PhaseEncode, errors.KindNativeStatus).
			Path(name).
			NativeType(typ.String()).
			Detail("CreateOpAttr").
			Cause(err).
			Build()
	}
	if ptr == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, []string{name}, "OrtOpAttr")
	}
	return &OpAttr{api: api, ptr: ptr, owned: true}, nil
}

// NewOpAttrInt creates an integer op attribute.
func NewOpAttrInt(api sys.API, name string, v int64) (*OpAttr, error) {
	return newOpAttr(api, name, unsafe.Pointer(&v), 1, sys.OpAttrInt)
}

// NewOpAttrFloat creates a float op attribute.
func NewOpAttrFloat(api sys.API, name string, v float32) (*OpAttr, error) {
	return newOpAttr(api, name, unsafe.Pointer(&v), 1, sys.OpAttrFloat)
}

// NewOpAttrInts creates an integer array op attribute.
func NewOpAttrInts(api sys.API, name string, v []int64) (*OpAttr, error) {
	return newOpAttr(api, name, sliceData(v), len(v), sys.OpAttrInts)
}

// NewOpAttrFloats creates a float array op attribute.
func NewOpAttrFloats(api sys.API, name string, v []float32) (*OpAttr, error) {
	return newOpAttr(api, name, sliceData(v), len(v), sys.OpAttrFloats)
}

// NewOpAttrString creates a string op attribute.
func NewOpAttrString(api sys.API, name, v string) (*OpAttr, error) {
	b := []byte(v)
	return newOpAttr(api, name, sliceData(b), len(b), sys.OpAttrString)
}

func sliceData[T any](s []T) unsafe.Pointer {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Pointer(&s[0])
}

// Ptr returns the native handle.
func (o *OpAttr) Ptr() sys.OpAttr {
	return o.ptr
}

// Close releases an owned op attribute exactly once.
func (o *OpAttr) Close() {
	if !o.owned || !o.released.CompareAndSwap(false, true) {
		return
	}
	o.api.ReleaseOpAttr(o.ptr)
}

// OpAttrValue is the set of Go types an op attribute can be read as.
type OpAttrValue interface {
	float32 | int64 | string | []float32 | []int64
}

// OpAttrTypeOf returns the native attribute tag for T.
func OpAttrTypeOf[T OpAttrValue]() sys.OpAttrType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return sys.OpAttrFloat
	case int64:
		return sys.OpAttrInt
	case string:
		return sys.OpAttrString
	case []float32:
		return sys.OpAttrFloats
	case []int64:
		return sys.OpAttrInts
	}
	return sys.OpAttrUndefined
}

// ReadOpAttr reads attr as T into a buffer of byteLen bytes.
//
// The native side reports the attribute's actual length. ReadOpAttr panics
// when that differs from byteLen: the Go type and the native attribute
// disagree, and the value would otherwise be truncated or padded.
func ReadOpAttr[T OpAttrValue](attr *OpAttr, byteLen int) (T, error) {
	var zero T
	if byteLen < 0 {
		return zero, errors.InvalidInput(errors.PhaseDecode, "negative op attribute length")
	}
	typ := OpAttrTypeOf[T]()

	buf := make([]uint64, (byteLen+7)/8)
	p := sliceData(buf)
	var out int
	err := attr.api.ReadOpAttr(attr.ptr, typ, p, byteLen, &out)
	if err != nil && out == 0 {
		return zero, nativeErr("ReadOpAttr", []string{typ.String()}, err)
	}
	if out != byteLen {
		panic(fmt.Sprintf("kernel: %s op attribute is %d bytes, expected %d", typ, out, byteLen))
	}
	if err != nil {
		return zero, nativeErr("ReadOpAttr", []string{typ.String()}, err)
	}

	var v any
	switch any(zero).(type) {
	case float32:
		if byteLen < 4 {
			return zero, errors.InvalidInput(errors.PhaseDecode, "float op attribute needs 4 bytes")
		}
		v = *(*float32)(p)
	case int64:
		if byteLen < 8 {
			return zero, errors.InvalidInput(errors.PhaseDecode, "int op attribute needs 8 bytes")
		}
		v = *(*int64)(p)
	case string:
		s, err := decodeCString([]string{typ.String()}, unsafe.Slice((*byte)(p), byteLen))
		if err != nil {
			return zero, err
		}
		v = s
	case []float32:
		v = copyOut[float32](p, byteLen/4)
	case []int64:
		v = copyOut[int64](p, byteLen/8)
	}
	return v.(T), nil
}

func copyOut[T any](p unsafe.Pointer, n int) []T {
	out := make([]T, n)
	if n > 0 {
		copy(out, unsafe.Slice((*T)(p), n))
	}
	return out
}

// OpAttrFloat reads a float op attribute.
func OpAttrFloat(attr *OpAttr) (float32, error) {
	return ReadOpAttr[float32](attr, 4)
}

// OpAttrInt reads an integer op attribute.
func OpAttrInt(attr *OpAttr) (int64, error) {
	return ReadOpAttr[int64](attr, 8)
}

// OpAttrFloats reads a float array op attribute of n elements.
func OpAttrFloats(attr *OpAttr, n int) ([]float32, error) {
	return ReadOpAttr[[]float32](attr, 4*n)
}

// OpAttrInts reads an integer array op attribute of n elements.
func OpAttrInts(attr *OpAttr, n int) ([]int64, error) {
	return ReadOpAttr[[]int64](attr, 8*n)
}

// OpAttrString reads a string op attribute of n bytes, excluding the
// terminator.
func OpAttrString(attr *OpAttr, n int) (string, error) {
	return ReadOpAttr[string](attr, n+1)
}
