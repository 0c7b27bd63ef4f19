package sys

import "unsafe"

// Opaque native handles. A nil handle is the native NULL.
type (
	SessionOptions      unsafe.Pointer
	CUDAProviderOptions unsafe.Pointer
	KernelInfo          unsafe.Pointer
	KernelContext       unsafe.Pointer
	OpAttr              unsafe.Pointer
	Value               unsafe.Pointer
	TypeInfo            unsafe.Pointer
	MemoryInfo          unsafe.Pointer
	Allocator           unsafe.Pointer
	CustomOpDomain      unsafe.Pointer
	CustomOp            unsafe.Pointer
)

// ElementType mirrors ONNXTensorElementDataType.
type ElementType int32

const (
	ElementUndefined ElementType = iota
	ElementFloat32
	ElementUint8
	ElementInt8
	ElementUint16
	ElementInt16
	ElementInt32
	ElementInt64
	ElementString
	ElementBool
	ElementFloat16
	ElementFloat64
	ElementUint32
	ElementUint64
	ElementComplex64
	ElementComplex128
	ElementBFloat16
	ElementFloat8E4M3FN
	ElementFloat8E4M3FNUZ
	ElementFloat8E5M2
	ElementFloat8E5M2FNUZ
	ElementUint4
	ElementInt4
)

var elementNames = [...]string{
	ElementUndefined:      "undefined",
	ElementFloat32:        "float32",
	ElementUint8:          "uint8",
	ElementInt8:           "int8",
	ElementUint16:         "uint16",
	ElementInt16:          "int16",
	ElementInt32:          "int32",
	ElementInt64:          "int64",
	ElementString:         "string",
	ElementBool:           "bool",
	ElementFloat16:        "float16",
	ElementFloat64:        "float64",
	ElementUint32:         "uint32",
	ElementUint64:         "uint64",
	ElementComplex64:      "complex64",
	ElementComplex128:     "complex128",
	ElementBFloat16:       "bfloat16",
	ElementFloat8E4M3FN:   "float8e4m3fn",
	ElementFloat8E4M3FNUZ: "float8e4m3fnuz",
	ElementFloat8E5M2:     "float8e5m2",
	ElementFloat8E5M2FNUZ: "float8e5m2fnuz",
	ElementUint4:          "uint4",
	ElementInt4:           "int4",
}

func (t ElementType) String() string {
	if t >= 0 && int(t) < len(elementNames) {
		return elementNames[t]
	}
	return "unknown"
}

// MemType mirrors OrtMemType.
type MemType int32

const (
	MemTypeCPUInput  MemType = -2
	MemTypeCPUOutput MemType = -1
	MemTypeCPU       MemType = MemTypeCPUOutput
	MemTypeDefault   MemType = 0
)

// AllocatorType mirrors OrtAllocatorType.
type AllocatorType int32

const (
	AllocatorInvalid AllocatorType = -1
	AllocatorDevice  AllocatorType = 0
	AllocatorArena   AllocatorType = 1
)

// DeviceType mirrors OrtMemoryInfoDeviceType.
type DeviceType int32

const (
	DeviceCPU  DeviceType = 0
	DeviceGPU  DeviceType = 1
	DeviceFPGA DeviceType = 2
	DeviceNPU  DeviceType = 3
)

// OpAttrType mirrors OrtOpAttrType.
type OpAttrType int32

const (
	OpAttrUndefined OpAttrType = iota
	OpAttrInt
	OpAttrInts
	OpAttrFloat
	OpAttrFloats
	OpAttrString
	OpAttrStrings
)

func (t OpAttrType) String() string {
	switch t {
	case OpAttrInt:
		return "int"
	case OpAttrInts:
		return "ints"
	case OpAttrFloat:
		return "float"
	case OpAttrFloats:
		return "floats"
	case OpAttrString:
		return "string"
	case OpAttrStrings:
		return "strings"
	default:
		return "undefined"
	}
}

// Characteristic mirrors OrtCustomOpInputOutputCharacteristic.
type Characteristic int32

const (
	Required Characteristic = iota
	Optional
	Variadic
)

// IODef describes one input or output slot of a custom operator.
type IODef struct {
	Type           ElementType
	Characteristic Characteristic
	// MemType is only meaningful for inputs.
	MemType MemType
}

// CustomOpDef is everything the native glue needs to describe a custom operator.
// Handle identifies the Go-side operator in the operator table.
type CustomOpDef struct {
	Name                  string
	ExecutionProviderType string
	Inputs                []IODef
	Outputs               []IODef
	MinInputArity         int
	MinOutputArity        int
	HomogeneousInputs     bool
	HomogeneousOutputs    bool
	Handle                uintptr
}
