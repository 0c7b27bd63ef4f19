// Package memory wraps native memory descriptions and allocators.
package memory

import (
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/sys"
)

type (
	MemType       = sys.MemType
	AllocatorType = sys.AllocatorType
	DeviceType    = sys.DeviceType
)

const (
	MemTypeCPUInput  = sys.MemTypeCPUInput
	MemTypeCPUOutput = sys.MemTypeCPUOutput
	MemTypeCPU       = sys.MemTypeCPU
	MemTypeDefault   = sys.MemTypeDefault

	AllocatorDevice = sys.AllocatorDevice
	AllocatorArena  = sys.AllocatorArena

	DeviceCPU  = sys.DeviceCPU
	DeviceGPU  = sys.DeviceGPU
	DeviceFPGA = sys.DeviceFPGA
	DeviceNPU  = sys.DeviceNPU
)

// Allocator names understood by CreateMemoryInfo.
const (
	NameCPU        = "Cpu"
	NameCUDA       = "Cuda"
	NameCUDAPinned = "CudaPinned"
)

// Info describes a memory space. An Info created by this package owns its
// native handle and must be closed; one obtained from an allocator or a
// tensor is borrowed and Close is a no-op.
type Info struct {
	api      sys.API
	ptr      sys.MemoryInfo
	owned    bool
	released atomic.Bool
}

// NewCPUInfo creates a description of host memory.
func NewCPUInfo(api sys.API, at AllocatorType, mt MemType) (*Info, error) {
	ptr, err := api.CreateCPUMemoryInfo(at, mt)
	if err != nil {
		return nil, errors.Native(errors.PhaseMemory, "CreateCpuMemoryInfo", err)
	}
	if ptr == nil {
		return nil, errors.NilPointer(errors.PhaseMemory, nil, "OrtMemoryInfo")
	}
	return &Info{api: api, ptr: ptr, owned: true}, nil
}

// NewInfo creates a description of the named allocator's memory on deviceID.
func NewInfo(api sys.API, name string, at AllocatorType, deviceID int, mt MemType) (*Info, error) {
	ptr, err := api.CreateMemoryInfo(name, at, deviceID, mt)
	if err != nil {
		return nil, errors.Native(errors.PhaseMemory, "CreateMemoryInfo", err)
	}
	if ptr == nil {
		return nil, errors.NilPointer(errors.PhaseMemory, []string{name}, "OrtMemoryInfo")
	}
	return &Info{api: api, ptr: ptr, owned: true}, nil
}

// BorrowInfo wraps a memory info owned by the native runtime.
func BorrowInfo(api sys.API, ptr sys.MemoryInfo) *Info {
	return &Info{api: api, ptr: ptr}
}

// Ptr returns the native handle.
func (i *Info) Ptr() sys.MemoryInfo {
	return i.ptr
}

// DeviceType reports the kind of device the memory lives on.
func (i *Info) DeviceType() DeviceType {
	return i.api.MemoryInfoGetDeviceType(i.ptr)
}

// MemType reports the memory type.
func (i *Info) MemType() (MemType, error) {
	mt, err := i.api.MemoryInfoGetMemType(i.ptr)
	if err != nil {
		return 0, errors.Native(errors.PhaseMemory, "MemoryInfoGetMemType", err)
	}
	return mt, nil
}

// Name reports the allocator name, e.g. "Cpu" or "Cuda".
func (i *Info) Name() (string, error) {
	name, err := i.api.MemoryInfoGetName(i.ptr)
	if err != nil {
		return "", errors.Native(errors.PhaseMemory, "MemoryInfoGetName", err)
	}
	return name, nil
}

// DeviceID reports the device ordinal.
func (i *Info) DeviceID() (int, error) {
	id, err := i.api.MemoryInfoGetID(i.ptr)
	if err != nil {
		return 0, errors.Native(errors.PhaseMemory, "MemoryInfoGetId", err)
	}
	return id, nil
}

// IsCPUAccessible reports whether the host may dereference memory described by i.
// Device memory is never host accessible unless it is a CPU input/output
// staging area.
func (i *Info) IsCPUAccessible() bool {
	if i.DeviceType() == DeviceCPU {
		return true
	}
	mt, err := i.MemType()
	if err != nil {
		return false
	}
	return mt == MemTypeCPUInput || mt == MemTypeCPUOutput
}

// Close releases an owned handle exactly once.
func (i *Info) Close() {
	if !i.owned || !i.released.CompareAndSwap(false, true) {
		return
	}
	i.api.ReleaseMemoryInfo(i.ptr)
}

// Allocator is a native allocator. Allocators are owned by the runtime and
// are never released by the bridge.
type Allocator struct {
	api sys.API
	ptr sys.Allocator
}

// DefaultAllocator returns the runtime's default host allocator.
func DefaultAllocator(api sys.API) (*Allocator, error) {
	ptr, err := api.GetAllocatorWithDefaultOptions()
	if err != nil {
		return nil, errors.Native(errors.PhaseMemory, "GetAllocatorWithDefaultOptions", err)
	}
	if ptr == nil {
		return nil, errors.NilPointer(errors.PhaseMemory, nil, "OrtAllocator")
	}
	return &Allocator{api: api, ptr: ptr}, nil
}

// WrapAllocator wraps an allocator handle returned by the runtime.
func WrapAllocator(api sys.API, ptr sys.Allocator) *Allocator {
	return &Allocator{api: api, ptr: ptr}
}

// Ptr returns the native handle.
func (a *Allocator) Ptr() sys.Allocator {
	return a.ptr
}

// Alloc allocates size bytes.
func (a *Allocator) Alloc(size int) (unsafe.Pointer, error) {
	if size < 0 {
		return nil, errors.InvalidInput(errors.PhaseMemory, "negative allocation size")
	}
	p, err := a.api.AllocatorAlloc(a.ptr, size)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseMemory, size, err)
	}
	if p == nil && size > 0 {
		return nil, errors.AllocationFailed(errors.PhaseMemory, size, nil)
	}
	return p, nil
}

// Free returns memory obtained from Alloc.
func (a *Allocator) Free(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}
	if err := a.api.AllocatorFree(a.ptr, p); err != nil {
		return errors.Native(errors.PhaseMemory, "AllocatorFree", err)
	}
	return nil
}

// Info describes where this allocator's memory lives.
func (a *Allocator) Info() (*Info, error) {
	ptr, err := a.api.AllocatorGetInfo(a.ptr)
	if err != nil {
		return nil, errors.Native(errors.PhaseMemory, "AllocatorGetInfo", err)
	}
	return BorrowInfo(a.api, ptr), nil
}
