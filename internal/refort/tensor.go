package refort

import (
	"unsafe"

	"github.com/wippyai/ortext/sys"
)

// Numeric is the set of Go element types NewTensor accepts.
type Numeric interface {
	float32 | float64 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | bool
}

func elementOf[T Numeric]() sys.ElementType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return sys.ElementFloat32
	case float64:
		return sys.ElementFloat64
	case int8:
		return sys.ElementInt8
	case int16:
		return sys.ElementInt16
	case int32:
		return sys.ElementInt32
	case int64:
		return sys.ElementInt64
	case uint8:
		return sys.ElementUint8
	case uint16:
		return sys.ElementUint16
	case uint32:
		return sys.ElementUint32
	case uint64:
		return sys.ElementUint64
	case bool:
		return sys.ElementBool
	}
	return sys.ElementUndefined
}

// NewTensor creates a host tensor holding a copy of data. The value is owned
// by the runtime; the bridge sees it as borrowed.
func NewTensor[T Numeric](r *Runtime, shape []int64, data []T) sys.Value {
	t, err := r.newTensor(elementOf[T](), shape, r.cpuInfo())
	if err != nil {
		panic(err)
	}
	if len(data) != numElements(shape) {
		panic("refort: data length does not match shape")
	}
	if t.size > 0 {
		src := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), t.size)
		copy(t.bytes(), src)
	}
	return sys.Value(r.track(KindValue, unsafe.Pointer(t), t, true))
}

// NewDeviceTensor creates a zeroed tensor that lives in CUDA device memory.
func NewDeviceTensor(r *Runtime, typ sys.ElementType, shape []int64) sys.Value {
	mem := r.allocatorFor(allocKey{name: "Cuda", mt: sys.MemTypeDefault}).info
	t, err := r.newTensor(typ, shape, mem)
	if err != nil {
		panic(err)
	}
	return sys.Value(r.track(KindValue, unsafe.Pointer(t), t, true))
}

// TensorData returns a copy of a host tensor's elements.
func TensorData[T Numeric](r *Runtime, v sys.Value) []T {
	t, err := lookup[tensor](r, unsafe.Pointer(v), "TensorData")
	if err != nil || t.typ != elementOf[T]() {
		return nil
	}
	n := numElements(t.shape)
	out := make([]T, n)
	if n > 0 {
		copy(out, unsafe.Slice((*T)(unsafe.Pointer(&t.data[0])), n))
	}
	return out
}
