package refort

import (
	"unsafe"

	"github.com/wippyai/ortext/sys"
)

// Provider is an execution provider appended to session options.
type Provider struct {
	Name    string
	Keys    []string
	Options map[string]string
}

// Domain is a custom operator domain attached to session options.
type Domain struct {
	Name string
	Ops  []sys.CustomOpDef
}

type sessionOptions struct {
	providers []Provider
	domains   []*customOpDomain
}

type cudaOptions struct {
	keys   []string
	values map[string]string
}

type customOpDomain struct {
	name string
	ops  []*customOp
}

type customOp struct {
	def sys.CustomOpDef
}

// CUDAOptionKeys are the keys the CUDA provider accepts.
var CUDAOptionKeys = []string{
	"device_id",
	"has_user_compute_stream",
	"user_compute_stream",
	"gpu_mem_limit",
	"arena_extend_strategy",
	"cudnn_conv_algo_search",
	"do_copy_in_default_stream",
	"gpu_external_alloc",
	"gpu_external_free",
	"gpu_external_empty_cache",
	"cudnn_conv_use_max_workspace",
	"enable_cuda_graph",
	"cudnn_conv1d_pad_to_nc1d",
	"tunable_op_enable",
	"tunable_op_tuning_enable",
	"tunable_op_max_tuning_duration_ms",
	"enable_skip_layer_norm_strict_mode",
	"prefer_nhwc",
	"use_ep_level_unified_stream",
	"use_tf32",
	"sdpa_kernel",
	"fuse_conv_bias",
}

func knownCUDAKey(k string) bool {
	for _, key := range CUDAOptionKeys {
		if key == k {
			return true
		}
	}
	return false
}

func (r *Runtime) CreateSessionOptions() (sys.SessionOptions, error) {
	if err := r.call("CreateSessionOptions"); err != nil {
		return nil, err
	}
	so := &sessionOptions{}
	return sys.SessionOptions(r.track(KindSessionOptions, unsafe.Pointer(so), so, false)), nil
}

func (r *Runtime) ReleaseSessionOptions(so sys.SessionOptions) {
	r.release("ReleaseSessionOptions", KindSessionOptions, unsafe.Pointer(so))
}

// Providers returns the providers appended to so, in order.
func (r *Runtime) Providers(so sys.SessionOptions) []Provider {
	obj, err := lookup[sessionOptions](r, unsafe.Pointer(so), "Providers")
	if err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Provider(nil), obj.providers...)
}

// Domains returns the custom operator domains attached to so, in order.
func (r *Runtime) Domains(so sys.SessionOptions) []Domain {
	obj, err := lookup[sessionOptions](r, unsafe.Pointer(so), "Domains")
	if err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Domain, 0, len(obj.domains))
	for _, d := range obj.domains {
		dom := Domain{Name: d.name}
		for _, op := range d.ops {
			dom.Ops = append(dom.Ops, op.def)
		}
		out = append(out, dom)
	}
	return out
}

func (r *Runtime) CreateCUDAProviderOptions() (sys.CUDAProviderOptions, error) {
	if err := r.call("CreateCUDAProviderOptionsV2"); err != nil {
		return nil, err
	}
	opts := &cudaOptions{values: make(map[string]string)}
	return sys.CUDAProviderOptions(r.track(KindCUDAOptions, unsafe.Pointer(opts), opts, false)), nil
}

func (r *Runtime) UpdateCUDAProviderOptions(opts sys.CUDAProviderOptions, keys, values []*byte) error {
	const fn = "UpdateCUDAProviderOptions"
	if err := r.call(fn); err != nil {
		return err
	}
	obj, err := lookup[cudaOptions](r, unsafe.Pointer(opts), fn)
	if err != nil {
		return err
	}
	if len(keys) != len(values) {
		return sys.NewStatus(sys.CodeInvalidArgument, "%d keys but %d values", len(keys), len(values))
	}

	// Validate everything before applying anything.
	ks := make([]string, len(keys))
	vs := make([]string, len(values))
	for i := range keys {
		if keys[i] == nil || values[i] == nil {
			return sys.NewStatus(sys.CodeInvalidArgument, "null key or value at %d", i)
		}
		ks[i] = sys.GoString(keys[i])
		vs[i] = sys.GoString(values[i])
		if !knownCUDAKey(ks[i]) {
			return sys.NewStatus(sys.CodeInvalidArgument, "unknown CUDA provider option %q", ks[i])
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, k := range ks {
		if _, ok := obj.values[k]; !ok {
			obj.keys = append(obj.keys, k)
		}
		obj.values[k] = vs[i]
	}
	return nil
}

func (r *Runtime) SessionOptionsAppendExecutionProviderCUDAV2(so sys.SessionOptions, opts sys.CUDAProviderOptions) error {
	const fn = "SessionOptionsAppendExecutionProvider_CUDA_V2"
	if err := r.call(fn); err != nil {
		return err
	}
	s, err := lookup[sessionOptions](r, unsafe.Pointer(so), fn)
	if err != nil {
		return err
	}
	o, err := lookup[cudaOptions](r, unsafe.Pointer(opts), fn)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p := Provider{
		Name:    "CUDAExecutionProvider",
		Keys:    append([]string(nil), o.keys...),
		Options: make(map[string]string, len(o.values)),
	}
	for k, v := range o.values {
		p.Options[k] = v
	}
	s.providers = append(s.providers, p)
	return nil
}

func (r *Runtime) ReleaseCUDAProviderOptions(opts sys.CUDAProviderOptions) {
	r.release("ReleaseCUDAProviderOptions", KindCUDAOptions, unsafe.Pointer(opts))
}

func (r *Runtime) CreateCustomOpDomain(domain string) (sys.CustomOpDomain, error) {
	if err := r.call("CreateCustomOpDomain"); err != nil {
		return nil, err
	}
	d := &customOpDomain{name: domain}
	return sys.CustomOpDomain(r.track(KindCustomOpDomain, unsafe.Pointer(d), d, false)), nil
}

func (r *Runtime) CreateCustomOp(def sys.CustomOpDef) (sys.CustomOp, error) {
	if err := r.call("CreateCustomOp"); err != nil {
		return nil, err
	}
	if def.Name == "" {
		return nil, sys.NewStatus(sys.CodeInvalidArgument, "custom op has no name")
	}
	def.Inputs = append([]sys.IODef(nil), def.Inputs...)
	def.Outputs = append([]sys.IODef(nil), def.Outputs...)
	op := &customOp{def: def}
	return sys.CustomOp(r.track(KindCustomOp, unsafe.Pointer(op), op, false)), nil
}

func (r *Runtime) CustomOpDomainAdd(domain sys.CustomOpDomain, op sys.CustomOp) error {
	const fn = "CustomOpDomain_Add"
	if err := r.call(fn); err != nil {
		return err
	}
	d, err := lookup[customOpDomain](r, unsafe.Pointer(domain), fn)
	if err != nil {
		return err
	}
	o, err := lookup[customOp](r, unsafe.Pointer(op), fn)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ops = append(d.ops, o)
	return nil
}

func (r *Runtime) AddCustomOpDomain(so sys.SessionOptions, domain sys.CustomOpDomain) error {
	const fn = "AddCustomOpDomain"
	if err := r.call(fn); err != nil {
		return err
	}
	s, err := lookup[sessionOptions](r, unsafe.Pointer(so), fn)
	if err != nil {
		return err
	}
	d, err := lookup[customOpDomain](r, unsafe.Pointer(domain), fn)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s.domains = append(s.domains, d)
	return nil
}

func (r *Runtime) ReleaseCustomOpDomain(d sys.CustomOpDomain) {
	r.release("ReleaseCustomOpDomain", KindCustomOpDomain, unsafe.Pointer(d))
}

func (r *Runtime) ReleaseCustomOp(op sys.CustomOp) {
	r.release("ReleaseCustomOp", KindCustomOp, unsafe.Pointer(op))
}
