// Package kernel is the surface custom operator kernels run against.
//
// Attributes exposes a node's static configuration. Named attributes are
// read by name; variable-length values use the native two-call protocol
// (query the length, then fill a buffer of that length). OpAttr values are
// read positionally, and the length the native side reports must match the
// Go type exactly.
//
// Context is valid for a single Compute call and gives access to inputs,
// outputs, allocators, provider resources and the runtime's thread pool:
//
//	func (k *scale) Compute(ctx *kernel.Context) error {
//		in, err := ctx.Input(0)
//		if err != nil {
//			return err
//		}
//		shape, err := in.Shape()
//		if err != nil {
//			return err
//		}
//		out, err := ctx.Output(0, shape)
//		if err != nil {
//			return err
//		}
//		src, _ := value.Data[float32](in)
//		dst, _ := value.MutableData[float32](out)
//		return ctx.ParFor(len(src), 0, func(i int) {
//			dst[i] = src[i] * k.factor
//		})
//	}
package kernel
