// Package sys is the boundary between the bridge and the native runtime.
//
// API mirrors the subset of the native function table the bridge uses. Its
// implementations are the cgo binding in sys/native (build tag "ort") and the
// in-process reference runtime used by tests.
//
// Handles are opaque pointers owned by native code. Go memory is never
// retained by native code: closures reachable from native threads live in a
// handle table and cross the boundary as integer user data, resolved by
// Trampoline.
package sys
