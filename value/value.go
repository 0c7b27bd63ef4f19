// Package value provides the tensor handles the kernel bridge hands to user code.
//
// Ref and RefMut are borrowed views of tensors owned by the native runtime and
// are valid only during the kernel invocation that produced them. Tensor owns
// its native value and releases it once on Close.
package value

import (
	"fmt"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/memory"
	"github.com/wippyai/ortext/sys"
)

type ElementType = sys.ElementType

const (
	Undefined = sys.ElementUndefined
	Float32   = sys.ElementFloat32
	Float64   = sys.ElementFloat64
	Int8      = sys.ElementInt8
	Int16     = sys.ElementInt16
	Int32     = sys.ElementInt32
	Int64     = sys.ElementInt64
	Uint8     = sys.ElementUint8
	Uint16    = sys.ElementUint16
	Uint32    = sys.ElementUint32
	Uint64    = sys.ElementUint64
	Bool      = sys.ElementBool
	String    = sys.ElementString
	Float16   = sys.ElementFloat16
	BFloat16  = sys.ElementBFloat16
)

// Shape is an ordered list of dimension sizes.
type Shape []int64

// NumElements returns the product of all dimensions. A scalar has one element.
func (s Shape) NumElements() int64 {
	n := int64(1)
	for _, d := range s {
		n *= d
	}
	return n
}

// Validate reports an error when a dimension is negative.
func (s Shape) Validate() error {
	for i, d := range s {
		if d < 0 {
			return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(fmt.Sprintf("dim%d", i)).
				Value(d).
				Detail("dimension must not be negative").
				Build()
		}
	}
	return nil
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Element is the set of Go types a tensor's data can be viewed as.
type Element interface {
	float32 | float64 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | bool
}

// ElementTypeOf returns the native element type matching T.
func ElementTypeOf[T Element]() ElementType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case bool:
		return Bool
	}
	return Undefined
}

// Ref is a borrowed, read-only tensor handle.
type Ref struct {
	api sys.API
	ptr sys.Value
}

// BorrowRef wraps a value owned by the native runtime.
func BorrowRef(api sys.API, ptr sys.Value) *Ref {
	return &Ref{api: api, ptr: ptr}
}

// Ptr returns the native handle.
func (r *Ref) Ptr() sys.Value {
	return r.ptr
}

// Type returns the tensor's element type and shape.
func (r *Ref) Type() (ElementType, Shape, error) {
	et, dims, err := r.api.ValueTensorShape(r.ptr)
	if err != nil {
		return Undefined, nil, errors.Native(errors.PhaseDecode, "GetTensorTypeAndShape", err)
	}
	return et, Shape(dims), nil
}

// ElementType returns the tensor's element type.
func (r *Ref) ElementType() (ElementType, error) {
	et, _, err := r.Type()
	return et, err
}

// Shape returns the tensor's shape.
func (r *Ref) Shape() (Shape, error) {
	_, s, err := r.Type()
	return s, err
}

// MemoryInfo describes where the tensor's data lives.
func (r *Ref) MemoryInfo() (*memory.Info, error) {
	mi, err := r.api.ValueTensorMemoryInfo(r.ptr)
	if err != nil {
		return nil, errors.Native(errors.PhaseDecode, "GetTensorMemoryInfo", err)
	}
	return memory.BorrowInfo(r.api, mi), nil
}

// Data views the tensor's elements as []T. It fails when T does not match the
// tensor's element type or when the data is not host accessible. The slice
// aliases native memory and must not outlive the handle.
func Data[T Element](r *Ref) ([]T, error) {
	et, shape, err := r.Type()
	if err != nil {
		return nil, err
	}
	want := ElementTypeOf[T]()
	if et != want {
		return nil, errors.TypeMismatch(errors.PhaseDecode, nil, want.String(), et.String())
	}

	mi, err := r.MemoryInfo()
	if err != nil {
		return nil, err
	}
	if !mi.IsCPUAccessible() {
		return nil, errors.Unsupported(errors.PhaseDecode, "tensor data is not host accessible")
	}

	n := shape.NumElements()
	if n == 0 {
		return []T{}, nil
	}
	p, err := r.api.ValueTensorData(r.ptr)
	if err != nil {
		return nil, errors.Native(errors.PhaseDecode, "GetTensorMutableData", err)
	}
	if p == nil {
		return nil, errors.NilPointer(errors.PhaseDecode, nil, "tensor data")
	}
	return unsafe.Slice((*T)(p), n), nil
}

// RefMut is a borrowed, writable tensor handle.
type RefMut struct {
	Ref
}

// BorrowRefMut wraps a writable value owned by the native runtime.
func BorrowRefMut(api sys.API, ptr sys.Value) *RefMut {
	return &RefMut{Ref{api: api, ptr: ptr}}
}

// MutableData views the tensor's elements as a writable []T.
func MutableData[T Element](r *RefMut) ([]T, error) {
	return Data[T](&r.Ref)
}

// Tensor is a tensor whose native value is owned by the bridge.
type Tensor struct {
	Ref
	released atomic.Bool
}

// Own takes ownership of a native value.
func Own(api sys.API, ptr sys.Value) *Tensor {
	return &Tensor{Ref: Ref{api: api, ptr: ptr}}
}

// Close releases the native value exactly once.
func (t *Tensor) Close() {
	if !t.released.CompareAndSwap(false, true) {
		return
	}
	t.api.ReleaseValue(t.ptr)
}

// TensorOf is a Tensor whose element type has been checked against T.
type TensorOf[T Element] struct {
	*Tensor
}

// Data views the tensor's elements.
func (t TensorOf[T]) Data() ([]T, error) {
	return Data[T](&t.Ref)
}

// Downcast checks t's element type against T. On mismatch t is left open.
func Downcast[T Element](t *Tensor) (TensorOf[T], error) {
	et, err := t.ElementType()
	if err != nil {
		return TensorOf[T]{}, err
	}
	if want := ElementTypeOf[T](); et != want {
		return TensorOf[T]{}, errors.TypeMismatch(errors.PhaseDecode, nil, want.String(), et.String())
	}
	return TensorOf[T]{t}, nil
}
