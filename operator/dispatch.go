package operator

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/kernel"
	"github.com/wippyai/ortext/resource"
	"github.com/wippyai/ortext/sys"
)

const (
	typeOperator uint32 = 1
	typeKernel   uint32 = 2
)

// Operators and kernels are reached from native code through handles in
// this table; no Go pointer is handed to native code.
var (
	table     = resource.NewTable()
	operators = resource.NewTyped[Operator](table, typeOperator)
	kernels   = resource.NewTyped[*liveKernel](table, typeKernel)
)

func init() {
	table.Subscribe(resource.ObserverFunc(logLifecycle))
}

func logLifecycle(e resource.Event) {
	if e.TypeID == typeOperator {
		if e.Type == resource.EventDropped {
			Logger().Debug("operator released", zap.Uint32("handle", uint32(e.Handle)))
		}
		return
	}
	lk, ok := e.Value.(*liveKernel)
	if !ok {
		return
	}
	switch e.Type {
	case resource.EventCreated:
		Logger().Debug("kernel created", zap.Uint32("handle", uint32(e.Handle)), zap.String("op", lk.op))
	case resource.EventDropped:
		Logger().Debug("kernel destroyed", zap.Uint32("handle", uint32(e.Handle)), zap.String("op", lk.op))
	}
}

// liveKernel is a kernel instance together with the operator that made it.
type liveKernel struct {
	op     string
	kernel kernel.Kernel
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateKernel is called by native code when the runtime instantiates the
// operator identified by op for a graph node. It returns the kernel's handle.
func CreateKernel(api sys.API, op uintptr, info sys.KernelInfo) (k uintptr, err error) {
	o, ok := operators.Get(resource.HandleFromPointer(op))
	if !ok {
		return 0, errors.NotFound(errors.PhaseOperator, "operator", fmt.Sprintf("%#x", op))
	}

	_, span := tracer().Start(context.Background(), "ortext.CreateKernel",
		trace.WithAttributes(attribute.String("ortext.op", o.Name())))
	defer func() {
		if r := recover(); r != nil {
			k, err = 0, errors.Wrap(errors.PhaseOperator, errors.KindKernel,
				fmt.Errorf("%v", r), "create kernel for "+o.Name()+" panicked")
		}
		endSpan(span, err)
	}()

	kn, err := o.CreateKernel(kernel.BorrowAttributes(api, info))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseOperator, errors.KindKernel, err, "create kernel for "+o.Name())
	}
	if kn == nil {
		return 0, errors.NilPointer(errors.PhaseOperator, []string{o.Name()}, "kernel")
	}

	h := kernels.Insert(&liveKernel{op: o.Name(), kernel: kn})
	if h == 0 {
		closeKernel(kn)
		return 0, errors.New(errors.PhaseOperator, errors.KindInvalidData).
			Path(o.Name()).
			Detail("kernel table is closed").
			Build()
	}
	Logger().Debug("created kernel", zap.String("op", o.Name()), zap.Uint32("handle", uint32(h)))
	return h.Pointer(), nil
}

// Compute runs the kernel identified by k against a native kernel context.
// The kernel stays borrowed for the duration of the call.
func Compute(api sys.API, k uintptr, ctx sys.KernelContext) (err error) {
	h := resource.HandleFromPointer(k)
	lk, ok := kernels.Borrow(h)
	if !ok {
		return errors.NotFound(errors.PhaseOperator, "kernel", fmt.Sprintf("%#x", k))
	}
	defer kernels.Return(h)

	_, span := tracer().Start(context.Background(), "ortext.Compute",
		trace.WithAttributes(attribute.String("ortext.op", lk.op)))
	defer func() {
		if r := recover(); r != nil {
			err = errors.Kernel(fmt.Sprintf("%s kernel panicked: %v", lk.op, r), nil)
		}
		endSpan(span, err)
	}()
	return lk.kernel.Compute(kernel.NewContext(api, ctx))
}

// DestroyKernel removes the kernel identified by k, closing it when it
// implements io.Closer.
func DestroyKernel(k uintptr) {
	lk, ok := kernels.Remove(resource.HandleFromPointer(k))
	if !ok {
		Logger().Warn("destroy of unknown kernel", zap.Uintptr("handle", k))
		return
	}
	closeKernel(lk.kernel)
}

func closeKernel(kn kernel.Kernel) {
	c, ok := kn.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		Logger().Warn("kernel close failed", zap.Error(err))
	}
}

// LiveKernels reports how many kernels are currently reachable from native code.
func LiveKernels() int {
	return kernels.Len()
}
