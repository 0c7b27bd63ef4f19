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

func (*API) CreateCPUMemoryInfo(at sys.AllocatorType, mt sys.MemType) (sys.MemoryInfo, error) {
	var out *C.OrtMemoryInfo
	if err := toError(C.ortext_create_cpu_memory_info(C.OrtAllocatorType(at), C.OrtMemType(mt), &out)); err != nil {
		return nil, err
	}
	return sys.MemoryInfo(out), nil
}

func (*API) CreateMemoryInfo(name string, at sys.AllocatorType, deviceID int, mt sys.MemType) (sys.MemoryInfo, error) {
	cname, free := cstring(name)
	defer free()
	var out *C.OrtMemoryInfo
	err := toError(C.ortext_create_memory_info(cname, C.OrtAllocatorType(at), C.int(deviceID), C.OrtMemType(mt), &out))
	if err != nil {
		return nil, err
	}
	return sys.MemoryInfo(out), nil
}

func (*API) MemoryInfoGetName(info sys.MemoryInfo) (string, error) {
	var out *C.char
	if err := toError(C.ortext_memory_info_name((*C.OrtMemoryInfo)(info), &out)); err != nil {
		return "", err
	}
	return C.GoString(out), nil
}

func (*API) MemoryInfoGetID(info sys.MemoryInfo) (int, error) {
	var out C.int
	err := toError(C.ortext_memory_info_id((*C.OrtMemoryInfo)(info), &out))
	return int(out), err
}

func (*API) MemoryInfoGetMemType(info sys.MemoryInfo) (sys.MemType, error) {
	var out C.OrtMemType
	err := toError(C.ortext_memory_info_mem_type((*C.OrtMemoryInfo)(info), &out))
	return sys.MemType(out), err
}

func (*API) MemoryInfoGetDeviceType(info sys.MemoryInfo) sys.DeviceType {
	return sys.DeviceType(C.ortext_memory_info_device_type((*C.OrtMemoryInfo)(info)))
}

func (*API) ReleaseMemoryInfo(info sys.MemoryInfo) {
	C.ortext_release_memory_info((*C.OrtMemoryInfo)(info))
}

func (*API) GetAllocatorWithDefaultOptions() (sys.Allocator, error) {
	var out *C.OrtAllocator
	if err := toError(C.ortext_default_allocator(&out)); err != nil {
		return nil, err
	}
	return sys.Allocator(out), nil
}

func (*API) AllocatorAlloc(a sys.Allocator, size int) (unsafe.Pointer, error) {
	var out unsafe.Pointer
	err := toError(C.ortext_allocator_alloc((*C.OrtAllocator)(a), C.size_t(size), &out))
	return out, err
}

func (*API) AllocatorFree(a sys.Allocator, p unsafe.Pointer) error {
	return toError(C.ortext_allocator_free((*C.OrtAllocator)(a), p))
}

func (*API) AllocatorGetInfo(a sys.Allocator) (sys.MemoryInfo, error) {
	var out *C.OrtMemoryInfo
	if err := toError(C.ortext_allocator_info((*C.OrtAllocator)(a), &out)); err != nil {
		return nil, err
	}
	return sys.MemoryInfo(unsafe.Pointer(out)), nil
}

func (*API) ValueTensorShape(v sys.Value) (sys.ElementType, []int64, error) {
	var typ C.ONNXTensorElementDataType
	var n C.size_t
	if err := toError(C.ortext_value_tensor_shape((*C.OrtValue)(v), &typ, &n)); err != nil {
		return sys.ElementUndefined, nil, err
	}
	dims := make([]int64, int(n))
	if n > 0 {
		if err := toError(C.ortext_value_tensor_dims((*C.OrtValue)(v), (*C.int64_t)(unsafe.Pointer(&dims[0])), n)); err != nil {
			return sys.ElementUndefined, nil, err
		}
	}
	return sys.ElementType(typ), dims, nil
}

func (*API) ValueTensorData(v sys.Value) (unsafe.Pointer, error) {
	var out unsafe.Pointer
	err := toError(C.ortext_value_tensor_data((*C.OrtValue)(v), &out))
	return out, err
}

func (*API) ValueTensorMemoryInfo(v sys.Value) (sys.MemoryInfo, error) {
	var out *C.OrtMemoryInfo
	if err := toError(C.ortext_value_tensor_memory_info((*C.OrtValue)(v), &out)); err != nil {
		return nil, err
	}
	return sys.MemoryInfo(unsafe.Pointer(out)), nil
}

func (*API) ReleaseValue(v sys.Value) {
	C.ortext_release_value((*C.OrtValue)(v))
}
