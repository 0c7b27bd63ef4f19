//go:build ort

// Package native binds sys.API to the ONNX Runtime C API through cgo.
//
// Build with the ort tag and onnxruntime_c_api.h on the include path:
//
//	CGO_CFLAGS=-I/opt/onnxruntime/include CGO_LDFLAGS=-L/opt/onnxruntime/lib go build -tags ort,cuda ./...
//
// Custom operators are C structs that carry only an operator handle; kernel
// creation, compute and destruction call back into the operator package.
// Parallel-for bodies reach Go through sys.Trampoline.
package native
