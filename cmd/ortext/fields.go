package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/ortext/ep"
)

type fieldKind int

const (
	kindInt fieldKind = iota
	kindUint
	kindBool
	kindEnum
	kindFlags
)

func (k fieldKind) String() string {
	switch k {
	case kindInt:
		return "int"
	case kindUint:
		return "uint64"
	case kindBool:
		return "bool"
	case kindEnum:
		return "enum"
	default:
		return "flags"
	}
}

// field is one entry of the CUDA option catalogue as the CLI presents it.
type field struct {
	key     string
	kind    fieldKind
	choices []string
	apply   func(c *ep.CUDA, s string) error
}

func (f field) hint() string {
	if len(f.choices) > 0 {
		return strings.Join(f.choices, " | ")
	}
	return f.kind.String()
}

func intField(key string, set func(*ep.CUDA, int) *ep.CUDA) field {
	return field{key: key, kind: kindInt, apply: func(c *ep.CUDA, s string) error {
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		set(c, v)
		return nil
	}}
}

func boolField(key string, set func(*ep.CUDA, bool) *ep.CUDA) field {
	return field{key: key, kind: kindBool, apply: func(c *ep.CUDA, s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		set(c, v)
		return nil
	}}
}

var cudaFields = []field{
	intField("device_id", (*ep.CUDA).WithDeviceID),
	{key: "gpu_mem_limit", kind: kindUint, apply: func(c *ep.CUDA, s string) error {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("gpu_mem_limit: %w", err)
		}
		c.WithMemoryLimit(v)
		return nil
	}},
	{
		key:     "arena_extend_strategy",
		kind:    kindEnum,
		choices: []string{ep.NextPowerOfTwo.String(), ep.SameAsRequested.String()},
		apply: func(c *ep.CUDA, s string) error {
			for _, v := range []ep.ArenaExtendStrategy{ep.NextPowerOfTwo, ep.SameAsRequested} {
				if strings.EqualFold(s, v.String()) {
					c.WithArenaExtendStrategy(v)
					return nil
				}
			}
			return fmt.Errorf("arena_extend_strategy: unknown value %q", s)
		},
	},
	{
		key:     "cudnn_conv_algo_search",
		kind:    kindEnum,
		choices: []string{ep.Exhaustive.String(), ep.Heuristic.String(), ep.Default.String()},
		apply: func(c *ep.CUDA, s string) error {
			for _, v := range []ep.ConvAlgorithmSearch{ep.Exhaustive, ep.Heuristic, ep.Default} {
				if strings.EqualFold(s, v.String()) {
					c.WithConvAlgorithmSearch(v)
					return nil
				}
			}
			return fmt.Errorf("cudnn_conv_algo_search: unknown value %q", s)
		},
	},
	boolField("do_copy_in_default_stream", (*ep.CUDA).WithCopyInDefaultStream),
	boolField("cudnn_conv_use_max_workspace", (*ep.CUDA).WithConvMaxWorkspace),
	boolField("cudnn_conv1d_pad_to_nc1d", (*ep.CUDA).WithConv1DPadToNC1D),
	boolField("enable_cuda_graph", (*ep.CUDA).WithCUDAGraph),
	boolField("enable_skip_layer_norm_strict_mode", (*ep.CUDA).WithSkipLayerNormStrictMode),
	boolField("use_tf32", (*ep.CUDA).WithTF32),
	boolField("prefer_nhwc", (*ep.CUDA).WithPreferNHWC),
	{
		key:     "sdpa_kernel",
		kind:    kindFlags,
		choices: []string{"NONE", "FLASH_ATTENTION|MATH|..."},
		apply: func(c *ep.CUDA, s string) error {
			b, err := ep.ParseAttentionBackend(s)
			if err != nil {
				return err
			}
			c.WithAttentionBackend(b)
			return nil
		},
	},
	boolField("fuse_conv_bias", (*ep.CUDA).WithFuseConvBias),
}

func lookupField(key string) (field, bool) {
	for _, f := range cudaFields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

// applySetting applies key=value to c. Keys outside the catalogue are
// passed through unchanged.
func applySetting(c *ep.CUDA, kv string) error {
	key, val, ok := strings.Cut(kv, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("setting %q is not key=value", kv)
	}
	val = strings.TrimSpace(val)
	if f, ok := lookupField(key); ok {
		return f.apply(c, val)
	}
	c.WithArbitraryConfig(key, val)
	return nil
}

// settings collects repeated -set flags.
type settings []string

func (s *settings) String() string {
	return strings.Join(*s, ",")
}

func (s *settings) Set(v string) error {
	*s = append(*s, v)
	return nil
}
