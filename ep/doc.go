// Package ep configures execution providers and attaches them to sessions.
//
// Provider settings accumulate in an ordered Options set and cross into
// native code as parallel arrays of NUL-terminated keys and values:
//
//	cuda := ep.NewCUDA().
//		WithDeviceID(1).
//		WithMemoryLimit(1 << 30).
//		WithAttentionBackend(ep.AttentionFlash.Or(ep.AttentionMath))
//
// Whether a provider can exist on the target platform (SupportedByPlatform)
// and whether its backend was compiled in (the cuda or load_dynamic build
// tag) are checked separately. The former is a plain table lookup; the
// latter makes Register fail with errors.KindMissingFeature.
package ep
