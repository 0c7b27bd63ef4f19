//go:build ort

package native

/*
#cgo LDFLAGS: -lonnxruntime
#include <stdlib.h>
#include "ortext.h"
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/wippyai/ortext/sys"
)

// API is sys.API backed by the process-wide OrtApi table.
type API struct{}

var _ sys.API = (*API)(nil)

var (
	initOnce sync.Once
	initOK   bool
	instance = &API{}
)

// New resolves the OrtApi table for the header version this package was
// built against. It fails when the loaded library is older than the header.
func New() (*API, error) {
	initOnce.Do(func() {
		initOK = C.ortext_init() != 0
	})
	if !initOK {
		return nil, sys.NewStatus(sys.CodeFail, "onnxruntime does not provide API version %d", int(C.ORT_API_VERSION))
	}
	return instance, nil
}

func toError(st *C.OrtStatus) error {
	if st == nil {
		return nil
	}
	code := sys.ErrorCode(C.ortext_error_code(st))
	msg := C.GoString(C.ortext_error_message(st))
	C.ortext_release_status(st)
	return &sys.Status{Code: code, Message: msg}
}

// toStatus converts a Go error into a native status owned by the caller.
func toStatus(err error) *C.OrtStatus {
	st := sys.StatusFromError(err)
	if st == nil {
		return nil
	}
	msg := C.CString(st.Message)
	defer C.free(unsafe.Pointer(msg))
	return C.ortext_create_status(C.OrtErrorCode(st.Code), msg)
}

func cstring(s string) (*C.char, func()) {
	p := C.CString(s)
	return p, func() { C.free(unsafe.Pointer(p)) }
}

func (*API) CreateSessionOptions() (sys.SessionOptions, error) {
	var out *C.OrtSessionOptions
	if err := toError(C.ortext_create_session_options(&out)); err != nil {
		return nil, err
	}
	return sys.SessionOptions(out), nil
}

func (*API) ReleaseSessionOptions(so sys.SessionOptions) {
	C.ortext_release_session_options((*C.OrtSessionOptions)(so))
}

func (*API) CreateCUDAProviderOptions() (sys.CUDAProviderOptions, error) {
	var out *C.OrtCUDAProviderOptionsV2
	if err := toError(C.ortext_create_cuda_options(&out)); err != nil {
		return nil, err
	}
	return sys.CUDAProviderOptions(out), nil
}

// UpdateCUDAProviderOptions requires keys and values to point at pinned,
// NUL-terminated storage.
func (*API) UpdateCUDAProviderOptions(opts sys.CUDAProviderOptions, keys, values []*byte) error {
	if len(keys) != len(values) {
		return sys.NewStatus(sys.CodeInvalidArgument, "%d keys but %d values", len(keys), len(values))
	}
	var k, v **C.char
	if len(keys) > 0 {
		k = (**C.char)(unsafe.Pointer(&keys[0]))
		v = (**C.char)(unsafe.Pointer(&values[0]))
	}
	return toError(C.ortext_update_cuda_options((*C.OrtCUDAProviderOptionsV2)(opts), k, v, C.size_t(len(keys))))
}

func (*API) SessionOptionsAppendExecutionProviderCUDAV2(so sys.SessionOptions, opts sys.CUDAProviderOptions) error {
	return toError(C.ortext_append_cuda((*C.OrtSessionOptions)(so), (*C.OrtCUDAProviderOptionsV2)(opts)))
}

func (*API) ReleaseCUDAProviderOptions(opts sys.CUDAProviderOptions) {
	C.ortext_release_cuda_options((*C.OrtCUDAProviderOptionsV2)(opts))
}

func (*API) CreateCustomOpDomain(domain string) (sys.CustomOpDomain, error) {
	name, free := cstring(domain)
	defer free()
	var out *C.OrtCustomOpDomain
	if err := toError(C.ortext_create_custom_op_domain(name, &out)); err != nil {
		return nil, err
	}
	return sys.CustomOpDomain(out), nil
}

// CreateCustomOp builds a C-allocated OrtCustomOp. Native code only ever sees
// def.Handle, never a Go pointer.
func (*API) CreateCustomOp(def sys.CustomOpDef) (sys.CustomOp, error) {
	name, freeName := cstring(def.Name)
	defer freeName()
	epType, freeEP := cstring(def.ExecutionProviderType)
	defer freeEP()

	op := C.ortext_op_new(name, epType, C.size_t(len(def.Inputs)), C.size_t(len(def.Outputs)), C.uintptr_t(def.Handle))
	if op == nil {
		return nil, sys.NewStatus(sys.CodeFail, "cannot allocate custom op %q", def.Name)
	}
	for i, in := range def.Inputs {
		C.ortext_op_set_input(op, C.size_t(i), C.int(in.Type), C.int(in.Characteristic), C.int(in.MemType))
	}
	for i, out := range def.Outputs {
		C.ortext_op_set_output(op, C.size_t(i), C.int(out.Type), C.int(out.Characteristic))
	}
	C.ortext_op_set_arity(op, C.int(def.MinInputArity), cbool(def.HomogeneousInputs),
		C.int(def.MinOutputArity), cbool(def.HomogeneousOutputs))
	return sys.CustomOp(op), nil
}

func cbool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func (*API) CustomOpDomainAdd(domain sys.CustomOpDomain, op sys.CustomOp) error {
	return toError(C.ortext_custom_op_domain_add((*C.OrtCustomOpDomain)(domain), (*C.ortext_op)(op)))
}

func (*API) AddCustomOpDomain(so sys.SessionOptions, domain sys.CustomOpDomain) error {
	return toError(C.ortext_add_custom_op_domain((*C.OrtSessionOptions)(so), (*C.OrtCustomOpDomain)(domain)))
}

func (*API) ReleaseCustomOpDomain(domain sys.CustomOpDomain) {
	C.ortext_release_custom_op_domain((*C.OrtCustomOpDomain)(domain))
}

func (*API) ReleaseCustomOp(op sys.CustomOp) {
	C.ortext_op_free((*C.ortext_op)(op))
}
