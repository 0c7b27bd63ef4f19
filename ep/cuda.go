package ep

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/sys"
)

// CUDAName is the native name of the CUDA execution provider.
const CUDAName = "CUDAExecutionProvider"

// CUDAPlatforms lists the platforms the CUDA provider is built for.
var CUDAPlatforms = []Platform{
	{OS: "linux", Arch: "amd64"},
	{OS: "linux", Arch: "arm64"},
	{OS: "windows", Arch: "amd64"},
}

// ArenaExtendStrategy controls how the device memory arena grows.
type ArenaExtendStrategy int

const (
	// NextPowerOfTwo grows the arena in powers of two.
	NextPowerOfTwo ArenaExtendStrategy = iota
	// SameAsRequested grows the arena by exactly the requested amount.
	SameAsRequested
)

func (s ArenaExtendStrategy) String() string {
	switch s {
	case NextPowerOfTwo:
		return "kNextPowerOfTwo"
	case SameAsRequested:
		return "kSameAsRequested"
	}
	panic(fmt.Sprintf("ep: unmapped ArenaExtendStrategy %d", int(s)))
}

// ConvAlgorithmSearch selects how cuDNN convolution algorithms are chosen.
// The zero value is Exhaustive, which is also the provider's default.
type ConvAlgorithmSearch int

const (
	// Exhaustive benchmarks every algorithm on first execution.
	Exhaustive ConvAlgorithmSearch = iota
	// Heuristic ranks algorithms with cuDNN's heuristics.
	Heuristic
	// Default always uses IMPLICIT_PRECOMP_GEMM. Despite the name this is
	// not the provider default.
	Default
)

func (s ConvAlgorithmSearch) String() string {
	switch s {
	case Exhaustive:
		return "EXHAUSTIVE"
	case Heuristic:
		return "HEURISTIC"
	case Default:
		return "DEFAULT"
	}
	panic(fmt.Sprintf("ep: unmapped ConvAlgorithmSearch %d", int(s)))
}

// AttentionBackend is a set of attention kernels the provider may use.
// Values can only be built from the named flags and combined with Or.
type AttentionBackend struct {
	bits uint32
}

var (
	AttentionFlash      = AttentionBackend{1 << 0}
	AttentionEfficient  = AttentionBackend{1 << 1}
	AttentionTRTFused   = AttentionBackend{1 << 2}
	AttentionCuDNNFlash = AttentionBackend{1 << 3}
	AttentionMath       = AttentionBackend{1 << 4}
	AttentionTRTFlash   = AttentionBackend{1 << 5}
	AttentionTRTCross   = AttentionBackend{1 << 6}
	AttentionTRTCausal  = AttentionBackend{1 << 7}
	AttentionLean       = AttentionBackend{1 << 8}
)

var attentionNames = []struct {
	flag AttentionBackend
	name string
}{
	{AttentionFlash, "FLASH_ATTENTION"},
	{AttentionEfficient, "EFFICIENT_ATTENTION"},
	{AttentionTRTFused, "TRT_FUSED_ATTENTION"},
	{AttentionCuDNNFlash, "CUDNN_FLASH_ATTENTION"},
	{AttentionMath, "MATH"},
	{AttentionTRTFlash, "TRT_FLASH_ATTENTION"},
	{AttentionTRTCross, "TRT_CROSS_ATTENTION"},
	{AttentionTRTCausal, "TRT_CAUSAL_ATTENTION"},
	{AttentionLean, "LEAN_ATTENTION"},
}

// AttentionNone is the empty set.
func AttentionNone() AttentionBackend {
	return AttentionBackend{}
}

// AttentionAll is every backend except lean attention.
func AttentionAll() AttentionBackend {
	return AttentionFlash.
		Or(AttentionEfficient).
		Or(AttentionTRTFused).
		Or(AttentionCuDNNFlash).
		Or(AttentionMath).
		Or(AttentionTRTFlash).
		Or(AttentionTRTCross).
		Or(AttentionTRTCausal)
}

// Or returns the union of a and b.
func (a AttentionBackend) Or(b AttentionBackend) AttentionBackend {
	return AttentionBackend{a.bits | b.bits}
}

// Has reports whether every flag in b is set in a.
func (a AttentionBackend) Has(b AttentionBackend) bool {
	return a.bits&b.bits == b.bits
}

// Bits returns the packed integer form.
func (a AttentionBackend) Bits() uint32 {
	return a.bits
}

// ParseAttentionBackend parses a "|" separated list of flag names, the
// format produced by String.
func ParseAttentionBackend(s string) (AttentionBackend, error) {
	var out AttentionBackend
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" || strings.EqualFold(part, "NONE") {
			continue
		}
		found := false
		for _, n := range attentionNames {
			if strings.EqualFold(part, n.name) {
				out = out.Or(n.flag)
				found = true
				break
			}
		}
		if !found {
			return AttentionBackend{}, errors.InvalidInput(errors.PhaseConfig,
				fmt.Sprintf("unknown attention backend %q", part))
		}
	}
	return out, nil
}

func (a AttentionBackend) String() string {
	if a.bits == 0 {
		return "NONE"
	}
	var names []string
	for _, n := range attentionNames {
		if a.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

func boolOption(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// CUDA configures the CUDA execution provider.
type CUDA struct {
	options *Options
}

var _ ExecutionProvider = (*CUDA)(nil)

// NewCUDA creates a provider with no options set; the native defaults apply.
func NewCUDA() *CUDA {
	return &CUDA{options: NewOptions()}
}

// Options returns the provider's option set.
func (c *CUDA) Options() *Options {
	return c.options
}

// WithDeviceID selects the GPU ordinal.
func (c *CUDA) WithDeviceID(id int) *CUDA {
	c.options.Set("device_id", strconv.Itoa(id))
	return c
}

// WithMemoryLimit caps the device memory arena, in bytes.
func (c *CUDA) WithMemoryLimit(limit uint64) *CUDA {
	c.options.Set("gpu_mem_limit", strconv.FormatUint(limit, 10))
	return c
}

// WithArenaExtendStrategy sets how the device arena grows.
func (c *CUDA) WithArenaExtendStrategy(s ArenaExtendStrategy) *CUDA {
	c.options.Set("arena_extend_strategy", s.String())
	return c
}

// WithConvAlgorithmSearch sets the cuDNN convolution algorithm search mode.
func (c *CUDA) WithConvAlgorithmSearch(s ConvAlgorithmSearch) *CUDA {
	c.options.Set("cudnn_conv_algo_search", s.String())
	return c
}

// WithCopyInDefaultStream makes host/device copies use the default stream.
func (c *CUDA) WithCopyInDefaultStream(enable bool) *CUDA {
	c.options.Set("do_copy_in_default_stream", boolOption(enable))
	return c
}

// WithConvMaxWorkspace lets cuDNN use as much workspace as it wants when
// picking convolution algorithms.
func (c *CUDA) WithConvMaxWorkspace(enable bool) *CUDA {
	c.options.Set("cudnn_conv_use_max_workspace", boolOption(enable))
	return c
}

// WithConv1DPadToNC1D pads 1D convolution inputs to [N, C, 1, D] instead of
// [N, C, D, 1].
func (c *CUDA) WithConv1DPadToNC1D(enable bool) *CUDA {
	c.options.Set("cudnn_conv1d_pad_to_nc1d", boolOption(enable))
	return c
}

// WithCUDAGraph captures and replays the session as a CUDA graph.
func (c *CUDA) WithCUDAGraph(enable bool) *CUDA {
	c.options.Set("enable_cuda_graph", boolOption(enable))
	return c
}

// WithSkipLayerNormStrictMode makes SkipLayerNormalization accumulate in
// full precision.
func (c *CUDA) WithSkipLayerNormStrictMode(enable bool) *CUDA {
	c.options.Set("enable_skip_layer_norm_strict_mode", boolOption(enable))
	return c
}

// WithTF32 allows TF32 math on Ampere and newer GPUs.
func (c *CUDA) WithTF32(enable bool) *CUDA {
	c.options.Set("use_tf32", boolOption(enable))
	return c
}

// WithPreferNHWC prefers NHWC layouts for operators that support them.
func (c *CUDA) WithPreferNHWC(enable bool) *CUDA {
	c.options.Set("prefer_nhwc", boolOption(enable))
	return c
}

// WithComputeStream makes the provider run on an existing cudaStream_t.
//
// The stream is passed as a bare address and is not retained. The caller
// must keep it alive until every session built with this provider has been
// released.
func (c *CUDA) WithComputeStream(stream unsafe.Pointer) *CUDA {
	c.options.Set("user_compute_stream", strconv.FormatUint(uint64(uintptr(stream)), 10))
	return c
}

// WithAttentionBackend restricts the attention kernels the provider may use.
func (c *CUDA) WithAttentionBackend(flags AttentionBackend) *CUDA {
	c.options.Set("sdpa_kernel", strconv.FormatUint(uint64(flags.bits), 10))
	return c
}

// WithFuseConvBias fuses convolution and bias addition in cuDNN frontend.
func (c *CUDA) WithFuseConvBias(enable bool) *CUDA {
	c.options.Set("fuse_conv_bias", boolOption(enable))
	return c
}

// WithArbitraryConfig sets an option this builder has no method for.
func (c *CUDA) WithArbitraryConfig(key, value string) *CUDA {
	c.options.Set(key, value)
	return c
}

func (c *CUDA) Name() string {
	return CUDAName
}

func (c *CUDA) SupportedByPlatform() bool {
	return Supported(CUDAPlatforms, runtime.GOOS, runtime.GOARCH)
}

// Register attaches the provider to s. Without the cuda or load_dynamic
// build tag it fails with a missing-feature error and makes no native call.
func (c *CUDA) Register(s Session) error {
	if !cudaCompiled {
		return errors.MissingFeature(CUDAName)
	}
	return registerCUDA(s.API(), s.Ptr(), c.options)
}

// registerCUDA creates native CUDA options, applies opts and appends the
// provider to so. The native options are released on every path.
func registerCUDA(api sys.API, so sys.SessionOptions, opts *Options) error {
	native, err := api.CreateCUDAProviderOptions()
	if err != nil {
		return errors.Registration(CUDAName, errors.Native(errors.PhaseRegister, "CreateCUDAProviderOptions", err))
	}
	defer api.ReleaseCUDAProviderOptions(native)

	ffi, err := opts.ToFFI()
	if err != nil {
		return errors.Registration(CUDAName, err)
	}
	defer ffi.Release()

	if err := api.UpdateCUDAProviderOptions(native, ffi.Keys(), ffi.Values()); err != nil {
		return errors.Registration(CUDAName, errors.Native(errors.PhaseRegister, "UpdateCUDAProviderOptions", err))
	}
	if err := api.SessionOptionsAppendExecutionProviderCUDAV2(so, native); err != nil {
		return errors.Registration(CUDAName, errors.Native(errors.PhaseRegister, "SessionOptionsAppendExecutionProvider_CUDA_V2", err))
	}

	Logger().Debug("registered execution provider",
		zap.String("provider", CUDAName),
		zap.Int("options", ffi.Len()))
	return nil
}
