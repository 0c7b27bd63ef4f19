package kernel

import (
	"fmt"
	"sync/atomic"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/memory"
	"github.com/wippyai/ortext/sys"
	"github.com/wippyai/ortext/value"
)

// Attributes gives access to a node's static configuration.
//
// Attributes handed to an operator's CreateKernel are borrowed from the
// runtime and must not be retained. Clone makes an owned deep copy that may
// be kept for the kernel's lifetime and is released by Close.
type Attributes struct {
	api      sys.API
	ptr      sys.KernelInfo
	owned    bool
	released atomic.Bool
}

// BorrowAttributes wraps a kernel info owned by the runtime. Close on the
// result is a no-op.
func BorrowAttributes(api sys.API, ptr sys.KernelInfo) *Attributes {
	return &Attributes{api: api, ptr: ptr}
}

// Ptr returns the native handle.
func (a *Attributes) Ptr() sys.KernelInfo {
	return a.ptr
}

// Owned reports whether Close releases the native handle.
func (a *Attributes) Owned() bool {
	return a.owned
}

// Clone makes an owned copy of the attributes.
func (a *Attributes) Clone() (*Attributes, error) {
	ptr, err := a.api.CopyKernelInfo(a.ptr)
	if err != nil {
		return nil, nativeErr("CopyKernelInfo", nil, err)
	}
	if ptr == nil {
		return nil, errors.NilPointer(errors.PhaseDecode, nil, "OrtKernelInfo")
	}
	return &Attributes{api: a.api, ptr: ptr, owned: true}, nil
}

// Close releases an owned handle exactly once.
func (a *Attributes) Close() {
	if !a.owned || !a.released.CompareAndSwap(false, true) {
		return
	}
	a.api.ReleaseKernelInfo(a.ptr)
}

// Float reads a float attribute.
func (a *Attributes) Float(name string) (float32, error) {
	v, err := a.api.KernelInfoGetAttributeFloat(a.ptr, name)
	if err != nil {
		return 0, nativeErr("KernelInfoGetAttribute_float", []string{name}, err)
	}
	return v, nil
}

// Int reads an integer attribute.
func (a *Attributes) Int(name string) (int64, error) {
	v, err := a.api.KernelInfoGetAttributeInt64(a.ptr, name)
	if err != nil {
		return 0, nativeErr("KernelInfoGetAttribute_int64", []string{name}, err)
	}
	return v, nil
}

// String reads a string attribute.
func (a *Attributes) String(name string) (string, error) {
	buf, err := queryThenFill(func(out []byte, size *int) error {
		return a.api.KernelInfoGetAttributeString(a.ptr, name, out, size)
	})
	if err != nil {
		return "", nativeErr("KernelInfoGetAttribute_string", []string{name}, err)
	}
	return decodeCString([]string{name}, buf)
}

// Floats reads a float array attribute.
func (a *Attributes) Floats(name string) ([]float32, error) {
	v, err := queryThenFill(func(out []float32, size *int) error {
		return a.api.KernelInfoGetAttributeArrayFloat(a.ptr, name, out, size)
	})
	if err != nil {
		return nil, nativeErr("KernelInfoGetAttributeArray_float", []string{name}, err)
	}
	return v, nil
}

// Ints reads an integer array attribute.
func (a *Attributes) Ints(name string) ([]int64, error) {
	v, err := queryThenFill(func(out []int64, size *int) error {
		return a.api.KernelInfoGetAttributeArrayInt64(a.ptr, name, out, size)
	})
	if err != nil {
		return nil, nativeErr("KernelInfoGetAttributeArray_int64", []string{name}, err)
	}
	return v, nil
}

// NamedAttr is the set of Go types a named attribute can be read as.
type NamedAttr interface {
	float32 | int64 | string | []float32 | []int64
}

// Attr reads the attribute name as T.
func Attr[T NamedAttr](a *Attributes, name string) (T, error) {
	var zero T
	var (
		v   any
		err error
	)
	switch any(zero).(type) {
	case float32:
		v, err = a.Float(name)
	case int64:
		v, err = a.Int(name)
	case string:
		v, err = a.String(name)
	case []float32:
		v, err = a.Floats(name)
	case []int64:
		v, err = a.Ints(name)
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// ConstantInput returns input idx when its value is known at graph
// construction time. The value is borrowed from the attributes.
func (a *Attributes) ConstantInput(idx int) (*value.Ref, error) {
	isConst, v, err := a.api.KernelInfoGetConstantInputTensor(a.ptr, idx)
	if err != nil {
		return nil, nativeErr("KernelInfoGetConstantInput_tensor", []string{fmt.Sprintf("input%d", idx)}, err)
	}
	if !isConst || v == nil {
		return nil, errors.NotConstant(idx)
	}
	return value.BorrowRef(a.api, v), nil
}

// ConstantInputData returns the elements of constant input idx.
func ConstantInputData[T value.Element](a *Attributes, idx int) ([]T, error) {
	ref, err := a.ConstantInput(idx)
	if err != nil {
		return nil, err
	}
	return value.Data[T](ref)
}

// TensorAttr reads a tensor attribute. Its storage is allocated with alloc,
// or the default host allocator when alloc is nil. The caller owns the result.
func (a *Attributes) TensorAttr(name string, alloc *memory.Allocator) (*value.Tensor, error) {
	if alloc == nil {
		var err error
		if alloc, err = memory.DefaultAllocator(a.api); err != nil {
			return nil, err
		}
	}
	v, err := a.api.KernelInfoGetAttributeTensor(a.ptr, name, alloc.Ptr())
	if err != nil {
		return nil, nativeErr("KernelInfoGetAttribute_tensor", []string{name}, err)
	}
	if v == nil {
		return nil, errors.NilPointer(errors.PhaseDecode, []string{name}, "OrtValue")
	}
	return value.Own(a.api, v), nil
}

// TensorAttrAs reads a tensor attribute and checks its element type. On a
// mismatch the tensor is released and a type-mismatch error returned.
func TensorAttrAs[T value.Element](a *Attributes, name string, alloc *memory.Allocator) (value.TensorOf[T], error) {
	t, err := a.TensorAttr(name, alloc)
	if err != nil {
		return value.TensorOf[T]{}, err
	}
	typed, err := value.Downcast[T](t)
	if err != nil {
		t.Close()
		return value.TensorOf[T]{}, err
	}
	return typed, nil
}

// NodeName returns the name of the graph node.
func (a *Attributes) NodeName() (string, error) {
	buf, err := queryThenFill(func(out []byte, size *int) error {
		return a.api.KernelInfoGetNodeName(a.ptr, out, size)
	})
	if err != nil {
		return "", nativeErr("KernelInfo_GetNodeName", nil, err)
	}
	return decodeCString([]string{"node_name"}, buf)
}

// IOInfo describes one input or output of the node.
type IOInfo struct {
	Name  string
	Type  value.ElementType
	Shape value.Shape
}

// Inputs describes the node's inputs.
func (a *Attributes) Inputs() ([]IOInfo, error) {
	n, err := a.api.KernelInfoGetInputCount(a.ptr)
	if err != nil {
		return nil, nativeErr("KernelInfo_GetInputCount", nil, err)
	}
	return a.ioInfos(n, "input", "Input", a.api.KernelInfoGetInputName, a.api.KernelInfoGetInputTypeInfo)
}

// Outputs describes the node's outputs.
func (a *Attributes) Outputs() ([]IOInfo, error) {
	n, err := a.api.KernelInfoGetOutputCount(a.ptr)
	if err != nil {
		return nil, nativeErr("KernelInfo_GetOutputCount", nil, err)
	}
	return a.ioInfos(n, "output", "Output", a.api.KernelInfoGetOutputName, a.api.KernelInfoGetOutputTypeInfo)
}

func (a *Attributes) ioInfos(
	n int,
	kind, op string,
	getName func(sys.KernelInfo, int, []byte, *int) error,
	getType func(sys.KernelInfo, int) (sys.TypeInfo, error),
) ([]IOInfo, error) {
	infos := make([]IOInfo, 0, n)
	for i := range n {
		path := []string{fmt.Sprintf("%s%d", kind, i)}
		buf, err := queryThenFill(func(out []byte, size *int) error {
			return getName(a.ptr, i, out, size)
		})
		if err != nil {
			return nil, nativeErr("KernelInfo_Get"+op+"Name", path, err)
		}
		name, err := decodeCString(path, buf)
		if err != nil {
			return nil, err
		}

		et, dims, err := a.typeInfo(i, getType)
		if err != nil {
			return nil, nativeErr("KernelInfo_Get"+op+"TypeInfo", path, err)
		}
		infos = append(infos, IOInfo{Name: name, Type: et, Shape: value.Shape(dims)})
	}
	return infos, nil
}

func (a *Attributes) typeInfo(i int, getType func(sys.KernelInfo, int) (sys.TypeInfo, error)) (value.ElementType, []int64, error) {
	ti, err := getType(a.ptr, i)
	if err != nil {
		return value.Undefined, nil, err
	}
	if ti == nil {
		return value.Undefined, nil, errors.NilPointer(errors.PhaseDecode, nil, "OrtTypeInfo")
	}
	defer a.api.ReleaseTypeInfo(ti)
	return a.api.TypeInfoTensorShape(ti)
}

// Allocator returns the kernel's allocator for memType.
func (a *Attributes) Allocator(memType memory.MemType) (*memory.Allocator, error) {
	ptr, err := a.api.KernelInfoGetAllocator(a.ptr, memType)
	if err != nil {
		return nil, nativeErr("KernelInfoGetAllocator", nil, err)
	}
	if ptr == nil {
		return nil, errors.NilPointer(errors.PhaseDecode, nil, "OrtAllocator")
	}
	return memory.WrapAllocator(a.api, ptr), nil
}
