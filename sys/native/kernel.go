//go:build ort

package native

/*
#include "ortext.h"
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/ortext/sys"
)

func ki(info sys.KernelInfo) *C.OrtKernelInfo {
	return (*C.OrtKernelInfo)(info)
}

func kc(ctx sys.KernelContext) *C.OrtKernelContext {
	return (*C.OrtKernelContext)(ctx)
}

// fill runs a size-then-fill native call. out may be nil to probe the size.
func fill[T any](out []T, size *int, call func(p *T, n *C.size_t) *C.OrtStatus) error {
	var p *T
	if len(out) > 0 {
		p = &out[0]
	}
	n := C.size_t(len(out))
	err := toError(call(p, &n))
	*size = int(n)
	return err
}

func (*API) KernelInfoGetAttributeFloat(info sys.KernelInfo, name string) (float32, error) {
	cname, free := cstring(name)
	defer free()
	var out C.float
	err := toError(C.ortext_ki_attr_float(ki(info), cname, &out))
	return float32(out), err
}

func (*API) KernelInfoGetAttributeInt64(info sys.KernelInfo, name string) (int64, error) {
	cname, free := cstring(name)
	defer free()
	var out C.int64_t
	err := toError(C.ortext_ki_attr_int64(ki(info), cname, &out))
	return int64(out), err
}

func (*API) KernelInfoGetAttributeString(info sys.KernelInfo, name string, out []byte, size *int) error {
	cname, free := cstring(name)
	defer free()
	return fill(out, size, func(p *byte, n *C.size_t) *C.OrtStatus {
		return C.ortext_ki_attr_string(ki(info), cname, (*C.char)(unsafe.Pointer(p)), n)
	})
}

func (*API) KernelInfoGetAttributeArrayFloat(info sys.KernelInfo, name string, out []float32, size *int) error {
	cname, free := cstring(name)
	defer free()
	return fill(out, size, func(p *float32, n *C.size_t) *C.OrtStatus {
		return C.ortext_ki_attr_floats(ki(info), cname, (*C.float)(unsafe.Pointer(p)), n)
	})
}

func (*API) KernelInfoGetAttributeArrayInt64(info sys.KernelInfo, name string, out []int64, size *int) error {
	cname, free := cstring(name)
	defer free()
	return fill(out, size, func(p *int64, n *C.size_t) *C.OrtStatus {
		return C.ortext_ki_attr_ints(ki(info), cname, (*C.int64_t)(unsafe.Pointer(p)), n)
	})
}

func (*API) KernelInfoGetAttributeTensor(info sys.KernelInfo, name string, alloc sys.Allocator) (sys.Value, error) {
	cname, free := cstring(name)
	defer free()
	var out *C.OrtValue
	if err := toError(C.ortext_ki_attr_tensor(ki(info), cname, (*C.OrtAllocator)(alloc), &out)); err != nil {
		return nil, err
	}
	return sys.Value(out), nil
}

func (*API) KernelInfoGetConstantInputTensor(info sys.KernelInfo, index int) (bool, sys.Value, error) {
	var isConst C.int
	var out *C.OrtValue
	if err := toError(C.ortext_ki_constant_input(ki(info), C.size_t(index), &isConst, &out)); err != nil {
		return false, nil, err
	}
	if isConst == 0 || out == nil {
		return false, nil, nil
	}
	return true, sys.Value(unsafe.Pointer(out)), nil
}

func (*API) KernelInfoGetInputCount(info sys.KernelInfo) (int, error) {
	var n C.size_t
	err := toError(C.ortext_ki_input_count(ki(info), &n))
	return int(n), err
}

func (*API) KernelInfoGetOutputCount(info sys.KernelInfo) (int, error) {
	var n C.size_t
	err := toError(C.ortext_ki_output_count(ki(info), &n))
	return int(n), err
}

func (*API) KernelInfoGetInputName(info sys.KernelInfo, index int, out []byte, size *int) error {
	return fill(out, size, func(p *byte, n *C.size_t) *C.OrtStatus {
		return C.ortext_ki_input_name(ki(info), C.size_t(index), (*C.char)(unsafe.Pointer(p)), n)
	})
}

func (*API) KernelInfoGetOutputName(info sys.KernelInfo, index int, out []byte, size *int) error {
	return fill(out, size, func(p *byte, n *C.size_t) *C.OrtStatus {
		return C.ortext_ki_output_name(ki(info), C.size_t(index), (*C.char)(unsafe.Pointer(p)), n)
	})
}

func (*API) KernelInfoGetInputTypeInfo(info sys.KernelInfo, index int) (sys.TypeInfo, error) {
	var out *C.OrtTypeInfo
	if err := toError(C.ortext_ki_input_type_info(ki(info), C.size_t(index), &out)); err != nil {
		return nil, err
	}
	return sys.TypeInfo(out), nil
}

func (*API) KernelInfoGetOutputTypeInfo(info sys.KernelInfo, index int) (sys.TypeInfo, error) {
	var out *C.OrtTypeInfo
	if err := toError(C.ortext_ki_output_type_info(ki(info), C.size_t(index), &out)); err != nil {
		return nil, err
	}
	return sys.TypeInfo(out), nil
}

func (*API) KernelInfoGetNodeName(info sys.KernelInfo, out []byte, size *int) error {
	return fill(out, size, func(p *byte, n *C.size_t) *C.OrtStatus {
		return C.ortext_ki_node_name(ki(info), (*C.char)(unsafe.Pointer(p)), n)
	})
}

func (*API) KernelInfoGetAllocator(info sys.KernelInfo, memType sys.MemType) (sys.Allocator, error) {
	var out *C.OrtAllocator
	if err := toError(C.ortext_ki_allocator(ki(info), C.OrtMemType(memType), &out)); err != nil {
		return nil, err
	}
	return sys.Allocator(out), nil
}

func (*API) CopyKernelInfo(info sys.KernelInfo) (sys.KernelInfo, error) {
	var out *C.OrtKernelInfo
	if err := toError(C.ortext_copy_kernel_info(ki(info), &out)); err != nil {
		return nil, err
	}
	return sys.KernelInfo(out), nil
}

func (*API) ReleaseKernelInfo(info sys.KernelInfo) {
	C.ortext_release_kernel_info(ki(info))
}

func (*API) TypeInfoTensorShape(ti sys.TypeInfo) (sys.ElementType, []int64, error) {
	var typ C.ONNXTensorElementDataType
	var n C.size_t
	if err := toError(C.ortext_type_info_tensor_shape((*C.OrtTypeInfo)(ti), &typ, &n)); err != nil {
		return sys.ElementUndefined, nil, err
	}
	dims := make([]int64, int(n))
	if n > 0 {
		err := toError(C.ortext_type_info_dims((*C.OrtTypeInfo)(ti), (*C.int64_t)(unsafe.Pointer(&dims[0])), n))
		if err != nil {
			return sys.ElementUndefined, nil, err
		}
	}
	return sys.ElementType(typ), dims, nil
}

func (*API) ReleaseTypeInfo(ti sys.TypeInfo) {
	C.ortext_release_type_info((*C.OrtTypeInfo)(ti))
}

// CreateOpAttr copies data before returning; it may point at Go memory.
func (*API) CreateOpAttr(name string, data unsafe.Pointer, length int, typ sys.OpAttrType) (sys.OpAttr, error) {
	cname, free := cstring(name)
	defer free()
	var out *C.OrtOpAttr
	if err := toError(C.ortext_create_op_attr(cname, data, C.int(length), C.OrtOpAttrType(typ), &out)); err != nil {
		return nil, err
	}
	return sys.OpAttr(out), nil
}

func (*API) ReadOpAttr(attr sys.OpAttr, typ sys.OpAttrType, data unsafe.Pointer, length int, out *int) error {
	var n C.size_t
	err := toError(C.ortext_read_op_attr((*C.OrtOpAttr)(attr), C.OrtOpAttrType(typ), data, C.size_t(length), &n))
	*out = int(n)
	return err
}

func (*API) ReleaseOpAttr(attr sys.OpAttr) {
	C.ortext_release_op_attr((*C.OrtOpAttr)(attr))
}

func (*API) KernelContextGetInputCount(ctx sys.KernelContext) (int, error) {
	var n C.size_t
	err := toError(C.ortext_kc_input_count(kc(ctx), &n))
	return int(n), err
}

func (*API) KernelContextGetOutputCount(ctx sys.KernelContext) (int, error) {
	var n C.size_t
	err := toError(C.ortext_kc_output_count(kc(ctx), &n))
	return int(n), err
}

func (*API) KernelContextGetInput(ctx sys.KernelContext, index int) (sys.Value, error) {
	var out *C.OrtValue
	if err := toError(C.ortext_kc_input(kc(ctx), C.size_t(index), &out)); err != nil {
		return nil, err
	}
	return sys.Value(unsafe.Pointer(out)), nil
}

func (*API) KernelContextGetOutput(ctx sys.KernelContext, index int, dims []int64) (sys.Value, error) {
	var p *C.int64_t
	if len(dims) > 0 {
		p = (*C.int64_t)(unsafe.Pointer(&dims[0]))
	}
	var out *C.OrtValue
	if err := toError(C.ortext_kc_output(kc(ctx), C.size_t(index), p, C.size_t(len(dims)), &out)); err != nil {
		return nil, err
	}
	return sys.Value(out), nil
}

func (*API) KernelContextGetAllocator(ctx sys.KernelContext, info sys.MemoryInfo) (sys.Allocator, error) {
	var out *C.OrtAllocator
	if err := toError(C.ortext_kc_allocator(kc(ctx), (*C.OrtMemoryInfo)(info), &out)); err != nil {
		return nil, err
	}
	return sys.Allocator(out), nil
}

func (*API) KernelContextGetResource(ctx sys.KernelContext, version, id int) (unsafe.Pointer, error) {
	var out unsafe.Pointer
	err := toError(C.ortext_kc_resource(kc(ctx), C.int(version), C.int(id), &out))
	return out, err
}

func (*API) KernelContextGetGPUComputeStream(ctx sys.KernelContext) (unsafe.Pointer, error) {
	var out unsafe.Pointer
	err := toError(C.ortext_kc_stream(kc(ctx), &out))
	return out, err
}

func (*API) KernelContextParallelFor(ctx sys.KernelContext, total, maxBatches int, userData uintptr) error {
	return toError(C.ortext_kc_parallel_for(kc(ctx), C.size_t(total), C.size_t(maxBatches), C.uintptr_t(userData)))
}
