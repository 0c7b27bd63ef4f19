// Package refort is an in-process reference implementation of sys.API.
//
// Native objects are modelled as Go values addressed by their pointers. Every
// call is recorded under its native function name, any call can be made to
// fail with a chosen status, and handle misuse (double release, releasing a
// borrowed handle) is collected instead of crashing. Tests use it in place of
// the native runtime; the CLI uses it for dry runs.
package refort

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/ortext/sys"
)

var _ sys.API = (*Runtime)(nil)

// Handle kinds reported by Live.
const (
	KindSessionOptions = "session_options"
	KindCUDAOptions    = "cuda_provider_options"
	KindKernelInfo     = "kernel_info"
	KindKernelContext  = "kernel_context"
	KindOpAttr         = "op_attr"
	KindValue          = "value"
	KindTypeInfo       = "type_info"
	KindMemoryInfo     = "memory_info"
	KindAllocator      = "allocator"
	KindCustomOpDomain = "custom_op_domain"
	KindCustomOp       = "custom_op"
)

type entry struct {
	kind string
	obj  any
	// borrowed handles belong to another object and must never be released.
	borrowed bool
}

// Runtime implements sys.API in memory.
type Runtime struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]*sys.Status
	live     map[unsafe.Pointer]entry
	misuse   []string
	allocs   map[allocKey]*allocator

	workers int
	logger  *zap.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used to trace native calls.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithWorkers sets the size of the simulated intra-op thread pool.
func WithWorkers(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.workers = n
		}
	}
}

// New creates an empty runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		failures: make(map[string]*sys.Status),
		live:     make(map[unsafe.Pointer]entry),
		allocs:   make(map[allocKey]*allocator),
		workers:  runtime.GOMAXPROCS(0),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FailOn makes every subsequent call to the named native function fail.
func (r *Runtime) FailOn(fn string, code sys.ErrorCode, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[fn] = &sys.Status{Code: code, Message: msg}
}

// ClearFailures removes all injected failures.
func (r *Runtime) ClearFailures() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.failures)
}

// Calls returns the names of all native functions called so far, in order.
func (r *Runtime) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Count reports how many times the named native function was called.
func (r *Runtime) Count(fn string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == fn {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (r *Runtime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = r.calls[:0]
}

// Live reports how many handles of the given kind are currently alive,
// excluding borrowed ones.
func (r *Runtime) Live(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.live {
		if e.kind == kind && !e.borrowed {
			n++
		}
	}
	return n
}

// Misuse returns a description of every invalid release seen so far.
func (r *Runtime) Misuse() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.misuse...)
}

func (r *Runtime) call(fn string) error {
	r.mu.Lock()
	r.calls = append(r.calls, fn)
	st, failing := r.failures[fn]
	r.mu.Unlock()

	if failing {
		r.logger.Debug("native call failed", zap.String("fn", fn), zap.Int32("code", int32(st.Code)))
		return &sys.Status{Code: st.Code, Message: st.Message}
	}
	r.logger.Debug("native call", zap.String("fn", fn))
	return nil
}

func (r *Runtime) track(kind string, p unsafe.Pointer, obj any, borrowed bool) unsafe.Pointer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[p]; !ok {
		r.live[p] = entry{kind: kind, obj: obj, borrowed: borrowed}
	}
	return p
}

func (r *Runtime) release(fn, kind string, p unsafe.Pointer) {
	_ = r.call(fn)
	if p == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.live[p]
	switch {
	case !ok:
		r.misuse = append(r.misuse, fmt.Sprintf("%s: %p released twice or never created", fn, p))
	case e.kind != kind:
		r.misuse = append(r.misuse, fmt.Sprintf("%s: %p is a %s", fn, p, e.kind))
	case e.borrowed:
		r.misuse = append(r.misuse, fmt.Sprintf("%s: %p is borrowed", fn, p))
	default:
		delete(r.live, p)
		return
	}
	r.logger.Warn("invalid release", zap.String("fn", fn), zap.Uintptr("handle", uintptr(p)))
}

func lookup[T any](r *Runtime, p unsafe.Pointer, fn string) (*T, error) {
	r.mu.Lock()
	e, ok := r.live[p]
	r.mu.Unlock()
	if !ok {
		return nil, sys.NewStatus(sys.CodeInvalidArgument, "%s: invalid handle %p", fn, p)
	}
	obj, ok := e.obj.(*T)
	if !ok {
		return nil, sys.NewStatus(sys.CodeInvalidArgument, "%s: handle %p is a %s", fn, p, e.kind)
	}
	return obj, nil
}
