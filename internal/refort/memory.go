package refort

import (
	"unsafe"

	"github.com/wippyai/ortext/sys"
)

type memoryInfo struct {
	name   string
	at     sys.AllocatorType
	id     int
	mt     sys.MemType
	device sys.DeviceType
}

type allocKey struct {
	name string
	id   int
	mt   sys.MemType
}

type allocator struct {
	info   *memoryInfo
	blocks map[unsafe.Pointer][]uint64
}

type tensor struct {
	typ   sys.ElementType
	shape []int64
	data  []uint64
	size  int
	mem   *memoryInfo
}

func (t *tensor) bytes() []byte {
	if t.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&t.data[0])), t.size)
}

var elementSizes = map[sys.ElementType]int{
	sys.ElementFloat32:        4,
	sys.ElementUint8:          1,
	sys.ElementInt8:           1,
	sys.ElementUint16:         2,
	sys.ElementInt16:          2,
	sys.ElementInt32:          4,
	sys.ElementInt64:          8,
	sys.ElementBool:           1,
	sys.ElementFloat16:        2,
	sys.ElementFloat64:        8,
	sys.ElementUint32:         4,
	sys.ElementUint64:         8,
	sys.ElementComplex64:      8,
	sys.ElementComplex128:     16,
	sys.ElementBFloat16:       2,
	sys.ElementFloat8E4M3FN:   1,
	sys.ElementFloat8E4M3FNUZ: 1,
	sys.ElementFloat8E5M2:     1,
	sys.ElementFloat8E5M2FNUZ: 1,
}

func numElements(shape []int64) int {
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}

// words returns 8-byte aligned backing storage for size bytes.
func words(size int) []uint64 {
	return make([]uint64, (size+7)/8)
}

func deviceFor(name string) (sys.DeviceType, bool) {
	switch name {
	case "Cpu", "CudaPinned":
		return sys.DeviceCPU, true
	case "Cuda":
		return sys.DeviceGPU, true
	}
	return 0, false
}

func (r *Runtime) newTensor(typ sys.ElementType, shape []int64, mem *memoryInfo) (*tensor, error) {
	es, ok := elementSizes[typ]
	if !ok {
		return nil, sys.NewStatus(sys.CodeNotImplemented, "element type %s is not supported", typ)
	}
	for _, d := range shape {
		if d < 0 {
			return nil, sys.NewStatus(sys.CodeInvalidArgument, "negative dimension %d", d)
		}
	}
	size := numElements(shape) * es
	return &tensor{
		typ:   typ,
		shape: append([]int64(nil), shape...),
		data:  words(size),
		size:  size,
		mem:   mem,
	}, nil
}

func (r *Runtime) cpuInfo() *memoryInfo {
	return r.allocatorFor(allocKey{name: "Cpu", mt: sys.MemTypeDefault}).info
}

// allocatorFor returns the shared allocator for a memory space, creating it
// on first use. Allocators and their infos are borrowed handles.
func (r *Runtime) allocatorFor(key allocKey) *allocator {
	r.mu.Lock()
	a, ok := r.allocs[key]
	r.mu.Unlock()
	if ok {
		return a
	}

	device, _ := deviceFor(key.name)
	a = &allocator{
		info: &memoryInfo{
			name:   key.name,
			at:     sys.AllocatorDevice,
			id:     key.id,
			mt:     key.mt,
			device: device,
		},
		blocks: make(map[unsafe.Pointer][]uint64),
	}

	r.mu.Lock()
	if existing, ok := r.allocs[key]; ok {
		r.mu.Unlock()
		return existing
	}
	r.allocs[key] = a
	r.mu.Unlock()

	r.track(KindAllocator, unsafe.Pointer(a), a, true)
	r.track(KindMemoryInfo, unsafe.Pointer(a.info), a.info, true)
	return a
}

func (r *Runtime) CreateCPUMemoryInfo(at sys.AllocatorType, mt sys.MemType) (sys.MemoryInfo, error) {
	if err := r.call("CreateCpuMemoryInfo"); err != nil {
		return nil, err
	}
	mi := &memoryInfo{name: "Cpu", at: at, mt: mt, device: sys.DeviceCPU}
	return sys.MemoryInfo(r.track(KindMemoryInfo, unsafe.Pointer(mi), mi, false)), nil
}

func (r *Runtime) CreateMemoryInfo(name string, at sys.AllocatorType, deviceID int, mt sys.MemType) (sys.MemoryInfo, error) {
	if err := r.call("CreateMemoryInfo"); err != nil {
		return nil, err
	}
	device, ok := deviceFor(name)
	if !ok {
		return nil, sys.NewStatus(sys.CodeInvalidArgument, "Specified device is not supported: %s", name)
	}
	mi := &memoryInfo{name: name, at: at, id: deviceID, mt: mt, device: device}
	return sys.MemoryInfo(r.track(KindMemoryInfo, unsafe.Pointer(mi), mi, false)), nil
}

func (r *Runtime) MemoryInfoGetName(info sys.MemoryInfo) (string, error) {
	const fn = "MemoryInfoGetName"
	if err := r.call(fn); err != nil {
		return "", err
	}
	mi, err := lookup[memoryInfo](r, unsafe.Pointer(info), fn)
	if err != nil {
		return "", err
	}
	return mi.name, nil
}

func (r *Runtime) MemoryInfoGetID(info sys.MemoryInfo) (int, error) {
	const fn = "MemoryInfoGetId"
	if err := r.call(fn); err != nil {
		return 0, err
	}
	mi, err := lookup[memoryInfo](r, unsafe.Pointer(info), fn)
	if err != nil {
		return 0, err
	}
	return mi.id, nil
}

func (r *Runtime) MemoryInfoGetMemType(info sys.MemoryInfo) (sys.MemType, error) {
	const fn = "MemoryInfoGetMemType"
	if err := r.call(fn); err != nil {
		return 0, err
	}
	mi, err := lookup[memoryInfo](r, unsafe.Pointer(info), fn)
	if err != nil {
		return 0, err
	}
	return mi.mt, nil
}

func (r *Runtime) MemoryInfoGetDeviceType(info sys.MemoryInfo) sys.DeviceType {
	const fn = "MemoryInfoGetDeviceType"
	_ = r.call(fn)
	mi, err := lookup[memoryInfo](r, unsafe.Pointer(info), fn)
	if err != nil {
		return sys.DeviceCPU
	}
	return mi.device
}

func (r *Runtime) ReleaseMemoryInfo(info sys.MemoryInfo) {
	r.release("ReleaseMemoryInfo", KindMemoryInfo, unsafe.Pointer(info))
}

func (r *Runtime) GetAllocatorWithDefaultOptions() (sys.Allocator, error) {
	if err := r.call("GetAllocatorWithDefaultOptions"); err != nil {
		return nil, err
	}
	a := r.allocatorFor(allocKey{name: "Cpu", mt: sys.MemTypeDefault})
	return sys.Allocator(unsafe.Pointer(a)), nil
}

func (r *Runtime) AllocatorAlloc(a sys.Allocator, size int) (unsafe.Pointer, error) {
	const fn = "AllocatorAlloc"
	if err := r.call(fn); err != nil {
		return nil, err
	}
	obj, err := lookup[allocator](r, unsafe.Pointer(a), fn)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, nil
	}
	block := words(size)
	p := unsafe.Pointer(&block[0])
	r.mu.Lock()
	obj.blocks[p] = block
	r.mu.Unlock()
	return p, nil
}

func (r *Runtime) AllocatorFree(a sys.Allocator, p unsafe.Pointer) error {
	const fn = "AllocatorFree"
	if err := r.call(fn); err != nil {
		return err
	}
	obj, err := lookup[allocator](r, unsafe.Pointer(a), fn)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := obj.blocks[p]; !ok {
		return sys.NewStatus(sys.CodeInvalidArgument, "%p was not allocated by this allocator", p)
	}
	delete(obj.blocks, p)
	return nil
}

func (r *Runtime) AllocatorGetInfo(a sys.Allocator) (sys.MemoryInfo, error) {
	const fn = "AllocatorGetInfo"
	if err := r.call(fn); err != nil {
		return nil, err
	}
	obj, err := lookup[allocator](r, unsafe.Pointer(a), fn)
	if err != nil {
		return nil, err
	}
	return sys.MemoryInfo(unsafe.Pointer(obj.info)), nil
}

// Outstanding reports how many allocator blocks have not been freed.
func (r *Runtime) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.allocs {
		n += len(a.blocks)
	}
	return n
}

func (r *Runtime) ValueTensorShape(v sys.Value) (sys.ElementType, []int64, error) {
	const fn = "GetTensorTypeAndShape"
	if err := r.call(fn); err != nil {
		return sys.ElementUndefined, nil, err
	}
	t, err := lookup[tensor](r, unsafe.Pointer(v), fn)
	if err != nil {
		return sys.ElementUndefined, nil, err
	}
	return t.typ, append([]int64(nil), t.shape...), nil
}

func (r *Runtime) ValueTensorData(v sys.Value) (unsafe.Pointer, error) {
	const fn = "GetTensorMutableData"
	if err := r.call(fn); err != nil {
		return nil, err
	}
	t, err := lookup[tensor](r, unsafe.Pointer(v), fn)
	if err != nil {
		return nil, err
	}
	if t.size == 0 {
		return nil, nil
	}
	return unsafe.Pointer(&t.data[0]), nil
}

func (r *Runtime) ValueTensorMemoryInfo(v sys.Value) (sys.MemoryInfo, error) {
	const fn = "GetTensorMemoryInfo"
	if err := r.call(fn); err != nil {
		return nil, err
	}
	t, err := lookup[tensor](r, unsafe.Pointer(v), fn)
	if err != nil {
		return nil, err
	}
	return sys.MemoryInfo(unsafe.Pointer(t.mem)), nil
}

func (r *Runtime) ReleaseValue(v sys.Value) {
	r.release("ReleaseValue", KindValue, unsafe.Pointer(v))
}
