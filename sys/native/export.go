//go:build ort

package native

/*
#include "ortext.h"
*/
import "C"

import (
	"github.com/wippyai/ortext/operator"
	"github.com/wippyai/ortext/sys"
)

//export ortextTrampoline
func ortextTrampoline(userData C.uintptr_t, index C.size_t) {
	sys.Trampoline(uintptr(userData), uint64(index))
}

//export ortextCreateKernel
func ortextCreateKernel(op C.uintptr_t, info *C.OrtKernelInfo, out *C.uintptr_t) *C.OrtStatus {
	k, err := operator.CreateKernel(instance, uintptr(op), sys.KernelInfo(info))
	if err != nil {
		*out = 0
		return toStatus(err)
	}
	*out = C.uintptr_t(k)
	return nil
}

//export ortextCompute
func ortextCompute(k C.uintptr_t, ctx *C.OrtKernelContext) *C.OrtStatus {
	return toStatus(operator.Compute(instance, uintptr(k), sys.KernelContext(ctx)))
}

//export ortextDestroyKernel
func ortextDestroyKernel(k C.uintptr_t) {
	operator.DestroyKernel(uintptr(k))
}
