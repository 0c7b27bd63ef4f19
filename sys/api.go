package sys

import "unsafe"

// API is the subset of the native OrtApi function table the bridge calls.
//
// Every method maps onto one native function. Methods returning error return
// a *Status on native failure. Variable-length getters follow the native
// size-then-fill convention: a nil out slice asks for the required length
// in *size, a non-nil slice is filled and *size is set to the length written.
//
// Release* methods never fail; they mirror native functions returning void.
type API interface {
	// Session options
	CreateSessionOptions() (SessionOptions, error)
	ReleaseSessionOptions(SessionOptions)

	// CUDA provider options
	CreateCUDAProviderOptions() (CUDAProviderOptions, error)
	// UpdateCUDAProviderOptions applies parallel arrays of NUL-terminated keys
	// and values. Both slices have the same length.
	UpdateCUDAProviderOptions(opts CUDAProviderOptions, keys, values []*byte) error
	SessionOptionsAppendExecutionProviderCUDAV2(so SessionOptions, opts CUDAProviderOptions) error
	ReleaseCUDAProviderOptions(CUDAProviderOptions)

	// Custom operator domains
	CreateCustomOpDomain(domain string) (CustomOpDomain, error)
	CreateCustomOp(def CustomOpDef) (CustomOp, error)
	CustomOpDomainAdd(domain CustomOpDomain, op CustomOp) error
	AddCustomOpDomain(so SessionOptions, domain CustomOpDomain) error
	ReleaseCustomOpDomain(CustomOpDomain)
	ReleaseCustomOp(CustomOp)

	// Kernel info: named attributes
	KernelInfoGetAttributeFloat(info KernelInfo, name string) (float32, error)
	KernelInfoGetAttributeInt64(info KernelInfo, name string) (int64, error)
	KernelInfoGetAttributeString(info KernelInfo, name string, out []byte, size *int) error
	KernelInfoGetAttributeArrayFloat(info KernelInfo, name string, out []float32, size *int) error
	KernelInfoGetAttributeArrayInt64(info KernelInfo, name string, out []int64, size *int) error
	KernelInfoGetAttributeTensor(info KernelInfo, name string, alloc Allocator) (Value, error)
	KernelInfoGetConstantInputTensor(info KernelInfo, index int) (isConstant bool, v Value, err error)

	// Kernel info: node description
	KernelInfoGetInputCount(info KernelInfo) (int, error)
	KernelInfoGetOutputCount(info KernelInfo) (int, error)
	KernelInfoGetInputName(info KernelInfo, index int, out []byte, size *int) error
	KernelInfoGetOutputName(info KernelInfo, index int, out []byte, size *int) error
	KernelInfoGetInputTypeInfo(info KernelInfo, index int) (TypeInfo, error)
	KernelInfoGetOutputTypeInfo(info KernelInfo, index int) (TypeInfo, error)
	KernelInfoGetNodeName(info KernelInfo, out []byte, size *int) error
	KernelInfoGetAllocator(info KernelInfo, memType MemType) (Allocator, error)
	CopyKernelInfo(info KernelInfo) (KernelInfo, error)
	ReleaseKernelInfo(KernelInfo)

	// Type info
	TypeInfoTensorShape(ti TypeInfo) (ElementType, []int64, error)
	ReleaseTypeInfo(TypeInfo)

	// Op attributes
	CreateOpAttr(name string, data unsafe.Pointer, length int, typ OpAttrType) (OpAttr, error)
	// ReadOpAttr copies up to length bytes into data and reports the
	// attribute's byte length in *out.
	ReadOpAttr(attr OpAttr, typ OpAttrType, data unsafe.Pointer, length int, out *int) error
	ReleaseOpAttr(OpAttr)

	// Kernel context
	KernelContextGetInputCount(ctx KernelContext) (int, error)
	KernelContextGetOutputCount(ctx KernelContext) (int, error)
	KernelContextGetInput(ctx KernelContext, index int) (Value, error)
	KernelContextGetOutput(ctx KernelContext, index int, dims []int64) (Value, error)
	KernelContextGetAllocator(ctx KernelContext, info MemoryInfo) (Allocator, error)
	KernelContextGetResource(ctx KernelContext, version, id int) (unsafe.Pointer, error)
	KernelContextGetGPUComputeStream(ctx KernelContext) (unsafe.Pointer, error)
	// KernelContextParallelFor runs Trampoline(userData, i) for every i in
	// [0, total) on the native thread pool and returns once all have run.
	KernelContextParallelFor(ctx KernelContext, total, maxBatches int, userData uintptr) error

	// Memory
	CreateCPUMemoryInfo(at AllocatorType, mt MemType) (MemoryInfo, error)
	CreateMemoryInfo(name string, at AllocatorType, deviceID int, mt MemType) (MemoryInfo, error)
	MemoryInfoGetName(info MemoryInfo) (string, error)
	MemoryInfoGetID(info MemoryInfo) (int, error)
	MemoryInfoGetMemType(info MemoryInfo) (MemType, error)
	MemoryInfoGetDeviceType(info MemoryInfo) DeviceType
	ReleaseMemoryInfo(MemoryInfo)
	GetAllocatorWithDefaultOptions() (Allocator, error)
	AllocatorAlloc(a Allocator, size int) (unsafe.Pointer, error)
	AllocatorFree(a Allocator, p unsafe.Pointer) error
	AllocatorGetInfo(a Allocator) (MemoryInfo, error)

	// Values
	ValueTensorShape(v Value) (ElementType, []int64, error)
	ValueTensorData(v Value) (unsafe.Pointer, error)
	ValueTensorMemoryInfo(v Value) (MemoryInfo, error)
	ReleaseValue(Value)
}
