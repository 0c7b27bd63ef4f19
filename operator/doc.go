// Package operator defines custom operators and dispatches native kernel
// callbacks to Go.
//
// A Domain groups Operators under an ONNX domain name and is attached to
// session options with Register. Each operator and each kernel it creates is
// stored in a handle table; native code holds only the integer handles and
// calls back through CreateKernel, Compute and DestroyKernel.
package operator
