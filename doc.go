// Package ortext extends ONNX Runtime from Go with execution providers and
// custom operator kernels.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	ortext/
//	├── sys/             Native function table (API), handles, status, parallel-for trampoline
//	│   └── native/      cgo binding onto onnxruntime_c_api.h (build tag ort)
//	├── ep/              Provider option sets and the CUDA option catalogue
//	├── session/         Session options builder; provider and operator registration
//	├── operator/        Custom operator domains and native kernel dispatch
//	├── kernel/          Kernel attributes, op attributes, execution context, scratch memory
//	├── value/           Tensor views and owned tensors
//	├── memory/          Memory info and allocators
//	├── resource/        Handle tables for values reachable from native code
//	├── config/          ORTEXT_* environment configuration
//	├── errors/          Structured error types for debugging
//	└── internal/refort/ In-process reference runtime used by tests and dry runs
//
// # Quick Start
//
// Attach the CUDA provider and a custom operator domain:
//
//	api, err := native.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	b, err := session.NewBuilder(api)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	b.WithExecutionProviders(ep.NewCUDA().WithDeviceID(0))
//	b.WithOperators(operator.NewDomain("my.ops").Add(myOp{}))
//
// # Build Tags
//
//	ort            link against libonnxruntime through sys/native
//	cuda           compile CUDA provider registration
//	load_dynamic   same as cuda, for runtimes that load providers at run time
package ortext
