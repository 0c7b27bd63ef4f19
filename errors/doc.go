// Package errors provides structured error types for the ortext bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: attribute path, Go/native type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("MyOp", "alpha").
//		GoType("float32").
//		NativeType("int64").
//		Detail("attribute has a different declared type").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MissingFeature("CUDAExecutionProvider")
//	err := errors.Native(errors.PhaseKernel, "KernelContext_GetInput", status)
//
// Failed native calls always carry the native status as Cause, so
// errors.As(err, new(*sys.Status)) recovers the native error code.
// The Err* sentinels match on Kind alone:
//
//	if errors.Is(err, ortexterrors.ErrMissingFeature) { ... }
package errors
