package refort

import (
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/wippyai/ortext/sys"
)

// RawString is a string attribute whose bytes are returned exactly as given,
// without a terminating NUL.
type RawString []byte

// Port describes one kernel input or output.
type Port struct {
	Name  string
	Type  sys.ElementType
	Shape []int64
	// Constant is a value known at graph construction time. Inputs only.
	Constant sys.Value
}

// KernelNode describes the graph node a kernel info is created for.
//
// Attribute values are float32, int64, string, RawString, []float32, []int64
// or a sys.Value tensor.
type KernelNode struct {
	Name       string
	Attributes map[string]any
	Inputs     []Port
	Outputs    []Port
}

type kernelInfo struct {
	node KernelNode
}

type typeInfo struct {
	typ   sys.ElementType
	shape []int64
}

type opAttr struct {
	name string
	typ  sys.OpAttrType
	data []byte
}

// ContextSpec describes a kernel invocation.
type ContextSpec struct {
	// Inputs holds the input values; a nil entry is an absent optional input.
	Inputs []sys.Value
	// Outputs holds the element type of each output slot. An undefined type
	// marks an output the runtime does not allocate.
	Outputs []sys.ElementType
	// Resources maps {id, version} pairs to provider resources.
	Resources map[[2]int]unsafe.Pointer
	// Stream is the provider's compute stream, nil for CPU kernels.
	Stream unsafe.Pointer
}

type kernelContext struct {
	spec    ContextSpec
	outputs []sys.Value
}

// NewKernelInfo creates a kernel info owned by the runtime. Handing it to the
// bridge models the borrowed handle passed to kernel creation.
func (r *Runtime) NewKernelInfo(node KernelNode) sys.KernelInfo {
	ki := &kernelInfo{node: copyNode(node)}
	return sys.KernelInfo(r.track(KindKernelInfo, unsafe.Pointer(ki), ki, true))
}

// NewKernelContext creates a kernel context for one invocation.
func (r *Runtime) NewKernelContext(spec ContextSpec) sys.KernelContext {
	kc := &kernelContext{spec: spec, outputs: make([]sys.Value, len(spec.Outputs))}
	return sys.KernelContext(r.track(KindKernelContext, unsafe.Pointer(kc), kc, true))
}

// Output returns the value allocated for output idx, or nil.
func (r *Runtime) Output(ctx sys.KernelContext, idx int) sys.Value {
	kc, err := lookup[kernelContext](r, unsafe.Pointer(ctx), "Output")
	if err != nil || idx < 0 || idx >= len(kc.outputs) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return kc.outputs[idx]
}

func copyNode(n KernelNode) KernelNode {
	out := KernelNode{
		Name:       n.Name,
		Attributes: make(map[string]any, len(n.Attributes)),
		Inputs:     append([]Port(nil), n.Inputs...),
		Outputs:    append([]Port(nil), n.Outputs...),
	}
	for k, v := range n.Attributes {
		out.Attributes[k] = v
	}
	return out
}

func (r *Runtime) kernelInfo(info sys.KernelInfo, fn string) (*kernelInfo, error) {
	if err := r.call(fn); err != nil {
		return nil, err
	}
	return lookup[kernelInfo](r, unsafe.Pointer(info), fn)
}

func attribute[T any](r *Runtime, info sys.KernelInfo, name, fn string) (T, error) {
	var zero T
	ki, err := r.kernelInfo(info, fn)
	if err != nil {
		return zero, err
	}
	raw, ok := ki.node.Attributes[name]
	if !ok {
		return zero, sys.NewStatus(sys.CodeFail, "No attribute with name:'%s'is defined.", name)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, sys.NewStatus(sys.CodeFail, "Attribute name and type don't match for '%s'", name)
	}
	return v, nil
}

// sizeThenFill implements the native size query: a nil out reports the
// required length, a short out fails with the required length reported.
func sizeThenFill[T any](src []T, out []T, size *int) error {
	need := len(src)
	if out == nil {
		*size = need
		return nil
	}
	if len(out) < need {
		*size = need
		return sys.NewStatus(sys.CodeInvalidArgument, "Result buffer is not large enough")
	}
	copy(out, src)
	*size = need
	return nil
}

func cstr(s string) []byte {
	return append([]byte(s), 0)
}

func (r *Runtime) KernelInfoGetAttributeFloat(info sys.KernelInfo, name string) (float32, error) {
	return attribute[float32](r, info, name, "KernelInfoGetAttribute_float")
}

func (r *Runtime) KernelInfoGetAttributeInt64(info sys.KernelInfo, name string) (int64, error) {
	return attribute[int64](r, info, name, "KernelInfoGetAttribute_int64")
}

func (r *Runtime) KernelInfoGetAttributeString(info sys.KernelInfo, name string, out []byte, size *int) error {
	const fn = "KernelInfoGetAttribute_string"
	ki, err := r.kernelInfo(info, fn)
	if err != nil {
		return err
	}
	var src []byte
	switch v := ki.node.Attributes[name].(type) {
	case string:
		src = cstr(v)
	case RawString:
		src = v
	case nil:
		return sys.NewStatus(sys.CodeFail, "No attribute with name:'%s'is defined.", name)
	default:
		return sys.NewStatus(sys.CodeFail, "Attribute name and type don't match for '%s'", name)
	}
	return sizeThenFill(src, out, size)
}

func (r *Runtime) KernelInfoGetAttributeArrayFloat(info sys.KernelInfo, name string, out []float32, size *int) error {
	src, err := attribute[[]float32](r, info, name, "KernelInfoGetAttributeArray_float")
	if err != nil {
		return err
	}
	return sizeThenFill(src, out, size)
}

func (r *Runtime) KernelInfoGetAttributeArrayInt64(info sys.KernelInfo, name string, out []int64, size *int) error {
	src, err := attribute[[]int64](r, info, name, "KernelInfoGetAttributeArray_int64")
	if err != nil {
		return err
	}
	return sizeThenFill(src, out, size)
}

func (r *Runtime) KernelInfoGetAttributeTensor(info sys.KernelInfo, name string, alloc sys.Allocator) (sys.Value, error) {
	const fn = "KernelInfoGetAttribute_tensor"
	src, err := attribute[sys.Value](r, info, name, fn)
	if err != nil {
		return nil, err
	}
	a, err := lookup[allocator](r, unsafe.Pointer(alloc), fn)
	if err != nil {
		return nil, err
	}
	t, err := lookup[tensor](r, unsafe.Pointer(src), fn)
	if err != nil {
		return nil, err
	}
	dup, err := r.newTensor(t.typ, t.shape, a.info)
	if err != nil {
		return nil, err
	}
	copy(dup.data, t.data)
	return sys.Value(r.track(KindValue, unsafe.Pointer(dup), dup, false)), nil
}

func (r *Runtime) KernelInfoGetConstantInputTensor(info sys.KernelInfo, index int) (bool, sys.Value, error) {
	ki, err := r.kernelInfo(info, "KernelInfoGetConstantInput_tensor")
	if err != nil {
		return false, nil, err
	}
	if index < 0 || index >= len(ki.node.Inputs) || ki.node.Inputs[index].Constant == nil {
		return false, nil, nil
	}
	return true, ki.node.Inputs[index].Constant, nil
}

func (r *Runtime) KernelInfoGetInputCount(info sys.KernelInfo) (int, error) {
	ki, err := r.kernelInfo(info, "KernelInfo_GetInputCount")
	if err != nil {
		return 0, err
	}
	return len(ki.node.Inputs), nil
}

func (r *Runtime) KernelInfoGetOutputCount(info sys.KernelInfo) (int, error) {
	ki, err := r.kernelInfo(info, "KernelInfo_GetOutputCount")
	if err != nil {
		return 0, err
	}
	return len(ki.node.Outputs), nil
}

func port(ports []Port, index int) (Port, error) {
	if index < 0 || index >= len(ports) {
		return Port{}, sys.NewStatus(sys.CodeInvalidArgument, "index %d is out of bounds", index)
	}
	return ports[index], nil
}

func (r *Runtime) KernelInfoGetInputName(info sys.KernelInfo, index int, out []byte, size *int) error {
	ki, err := r.kernelInfo(info, "KernelInfo_GetInputName")
	if err != nil {
		return err
	}
	p, err := port(ki.node.Inputs, index)
	if err != nil {
		return err
	}
	return sizeThenFill(cstr(p.Name), out, size)
}

func (r *Runtime) KernelInfoGetOutputName(info sys.KernelInfo, index int, out []byte, size *int) error {
	ki, err := r.kernelInfo(info, "KernelInfo_GetOutputName")
	if err != nil {
		return err
	}
	p, err := port(ki.node.Outputs, index)
	if err != nil {
		return err
	}
	return sizeThenFill(cstr(p.Name), out, size)
}

func (r *Runtime) newTypeInfo(p Port) sys.TypeInfo {
	ti := &typeInfo{typ: p.Type, shape: append([]int64(nil), p.Shape...)}
	return sys.TypeInfo(r.track(KindTypeInfo, unsafe.Pointer(ti), ti, false))
}

func (r *Runtime) KernelInfoGetInputTypeInfo(info sys.KernelInfo, index int) (sys.TypeInfo, error) {
	ki, err := r.kernelInfo(info, "KernelInfo_GetInputTypeInfo")
	if err != nil {
		return nil, err
	}
	p, err := port(ki.node.Inputs, index)
	if err != nil {
		return nil, err
	}
	return r.newTypeInfo(p), nil
}

func (r *Runtime) KernelInfoGetOutputTypeInfo(info sys.KernelInfo, index int) (sys.TypeInfo, error) {
	ki, err := r.kernelInfo(info, "KernelInfo_GetOutputTypeInfo")
	if err != nil {
		return nil, err
	}
	p, err := port(ki.node.Outputs, index)
	if err != nil {
		return nil, err
	}
	return r.newTypeInfo(p), nil
}

func (r *Runtime) KernelInfoGetNodeName(info sys.KernelInfo, out []byte, size *int) error {
	ki, err := r.kernelInfo(info, "KernelInfo_GetNodeName")
	if err != nil {
		return err
	}
	return sizeThenFill(cstr(ki.node.Name), out, size)
}

func (r *Runtime) KernelInfoGetAllocator(info sys.KernelInfo, memType sys.MemType) (sys.Allocator, error) {
	if _, err := r.kernelInfo(info, "KernelInfoGetAllocator"); err != nil {
		return nil, err
	}
	a := r.allocatorFor(allocKey{name: "Cpu", mt: memType})
	return sys.Allocator(unsafe.Pointer(a)), nil
}

func (r *Runtime) CopyKernelInfo(info sys.KernelInfo) (sys.KernelInfo, error) {
	ki, err := r.kernelInfo(info, "CopyKernelInfo")
	if err != nil {
		return nil, err
	}
	dup := &kernelInfo{node: copyNode(ki.node)}
	return sys.KernelInfo(r.track(KindKernelInfo, unsafe.Pointer(dup), dup, false)), nil
}

func (r *Runtime) ReleaseKernelInfo(info sys.KernelInfo) {
	r.release("ReleaseKernelInfo", KindKernelInfo, unsafe.Pointer(info))
}

func (r *Runtime) TypeInfoTensorShape(ti sys.TypeInfo) (sys.ElementType, []int64, error) {
	const fn = "CastTypeInfoToTensorInfo"
	if err := r.call(fn); err != nil {
		return sys.ElementUndefined, nil, err
	}
	obj, err := lookup[typeInfo](r, unsafe.Pointer(ti), fn)
	if err != nil {
		return sys.ElementUndefined, nil, err
	}
	return obj.typ, append([]int64(nil), obj.shape...), nil
}

func (r *Runtime) ReleaseTypeInfo(ti sys.TypeInfo) {
	r.release("ReleaseTypeInfo", KindTypeInfo, unsafe.Pointer(ti))
}

// CreateOpAttr copies length elements from data. For strings length counts
// bytes, excluding any terminator.
func (r *Runtime) CreateOpAttr(name string, data unsafe.Pointer, length int, typ sys.OpAttrType) (sys.OpAttr, error) {
	if err := r.call("CreateOpAttr"); err != nil {
		return nil, err
	}
	var width int
	switch typ {
	case sys.OpAttrInt:
		width, length = 8, 1
	case sys.OpAttrFloat:
		width, length = 4, 1
	case sys.OpAttrInts:
		width = 8
	case sys.OpAttrFloats:
		width = 4
	case sys.OpAttrString:
		width = 1
	default:
		return nil, sys.NewStatus(sys.CodeNotImplemented, "op attribute type %s is not supported", typ)
	}
	if length < 0 {
		return nil, sys.NewStatus(sys.CodeInvalidArgument, "negative length")
	}

	buf := make([]byte, width*length)
	if len(buf) > 0 {
		if data == nil {
			return nil, sys.NewStatus(sys.CodeInvalidArgument, "null data")
		}
		copy(buf, unsafe.Slice((*byte)(data), len(buf)))
	}
	if typ == sys.OpAttrString {
		buf = append(buf, 0)
	}

	a := &opAttr{name: name, typ: typ, data: buf}
	return sys.OpAttr(r.track(KindOpAttr, unsafe.Pointer(a), a, false)), nil
}

func (r *Runtime) ReadOpAttr(attr sys.OpAttr, typ sys.OpAttrType, data unsafe.Pointer, length int, out *int) error {
	const fn = "ReadOpAttr"
	if err := r.call(fn); err != nil {
		return err
	}
	a, err := lookup[opAttr](r, unsafe.Pointer(attr), fn)
	if err != nil {
		return err
	}
	if typ != a.typ {
		return sys.NewStatus(sys.CodeInvalidArgument, "Unexpected attribute type %s, attribute is %s", typ, a.typ)
	}

	*out = len(a.data)
	if length < len(a.data) {
		return sys.NewStatus(sys.CodeInvalidArgument, "Size of data not large enough to hold the attribute")
	}
	if len(a.data) > 0 {
		copy(unsafe.Slice((*byte)(data), len(a.data)), a.data)
	}
	return nil
}

func (r *Runtime) ReleaseOpAttr(attr sys.OpAttr) {
	r.release("ReleaseOpAttr", KindOpAttr, unsafe.Pointer(attr))
}

func (r *Runtime) kernelContext(ctx sys.KernelContext, fn string) (*kernelContext, error) {
	if err := r.call(fn); err != nil {
		return nil, err
	}
	return lookup[kernelContext](r, unsafe.Pointer(ctx), fn)
}

func (r *Runtime) KernelContextGetInputCount(ctx sys.KernelContext) (int, error) {
	kc, err := r.kernelContext(ctx, "KernelContext_GetInputCount")
	if err != nil {
		return 0, err
	}
	return len(kc.spec.Inputs), nil
}

func (r *Runtime) KernelContextGetOutputCount(ctx sys.KernelContext) (int, error) {
	kc, err := r.kernelContext(ctx, "KernelContext_GetOutputCount")
	if err != nil {
		return 0, err
	}
	return len(kc.spec.Outputs), nil
}

func (r *Runtime) KernelContextGetInput(ctx sys.KernelContext, index int) (sys.Value, error) {
	kc, err := r.kernelContext(ctx, "KernelContext_GetInput")
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(kc.spec.Inputs) {
		return nil, nil
	}
	return kc.spec.Inputs[index], nil
}

func (r *Runtime) KernelContextGetOutput(ctx sys.KernelContext, index int, dims []int64) (sys.Value, error) {
	kc, err := r.kernelContext(ctx, "KernelContext_GetOutput")
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(kc.spec.Outputs) || kc.spec.Outputs[index] == sys.ElementUndefined {
		return nil, nil
	}

	r.mu.Lock()
	existing := kc.outputs[index]
	r.mu.Unlock()
	if existing != nil {
		return existing, nil
	}

	t, err := r.newTensor(kc.spec.Outputs[index], dims, r.cpuInfo())
	if err != nil {
		return nil, err
	}
	v := sys.Value(r.track(KindValue, unsafe.Pointer(t), t, true))
	r.mu.Lock()
	kc.outputs[index] = v
	r.mu.Unlock()
	return v, nil
}

func (r *Runtime) KernelContextGetAllocator(ctx sys.KernelContext, info sys.MemoryInfo) (sys.Allocator, error) {
	const fn = "KernelContext_GetAllocator"
	if _, err := r.kernelContext(ctx, fn); err != nil {
		return nil, err
	}
	mi, err := lookup[memoryInfo](r, unsafe.Pointer(info), fn)
	if err != nil {
		return nil, err
	}
	a := r.allocatorFor(allocKey{name: mi.name, id: mi.id, mt: mi.mt})
	return sys.Allocator(unsafe.Pointer(a)), nil
}

func (r *Runtime) KernelContextGetResource(ctx sys.KernelContext, version, id int) (unsafe.Pointer, error) {
	kc, err := r.kernelContext(ctx, "KernelContext_GetResource")
	if err != nil {
		return nil, err
	}
	return kc.spec.Resources[[2]int{id, version}], nil
}

func (r *Runtime) KernelContextGetGPUComputeStream(ctx sys.KernelContext) (unsafe.Pointer, error) {
	kc, err := r.kernelContext(ctx, "KernelContext_GetGPUComputeStream")
	if err != nil {
		return nil, err
	}
	return kc.spec.Stream, nil
}

// KernelContextParallelFor splits [0, total) into at most maxBatches
// contiguous batches and runs them on a pool of WithWorkers goroutines. A
// non-positive maxBatches uses one batch per worker.
func (r *Runtime) KernelContextParallelFor(ctx sys.KernelContext, total, maxBatches int, userData uintptr) error {
	if _, err := r.kernelContext(ctx, "KernelContext_ParallelFor"); err != nil {
		return err
	}
	if total <= 0 {
		return nil
	}

	batches := maxBatches
	if batches <= 0 {
		batches = r.workers
	}
	batches = min(batches, total)

	var g errgroup.Group
	g.SetLimit(r.workers)
	for b := range batches {
		lo := b * total / batches
		hi := (b + 1) * total / batches
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				sys.Trampoline(userData, uint64(i))
			}
			return nil
		})
	}
	return g.Wait()
}
