package ep

import (
	"strconv"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCUDA_Scenario(t *testing.T) {
	c := NewCUDA().
		WithDeviceID(1).
		WithMemoryLimit(1048576).
		WithTF32(true)

	assert.Equal(t, [][2]string{
		{"device_id", "1"},
		{"gpu_mem_limit", "1048576"},
		{"use_tf32", "1"},
	}, ffiPairs(t, c.Options()))
}

func TestCUDA_OptionKeys(t *testing.T) {
	var handle int64
	stream := unsafe.Pointer(&handle)
	c := NewCUDA().
		WithArenaExtendStrategy(SameAsRequested).
		WithConvAlgorithmSearch(Heuristic).
		WithCopyInDefaultStream(false).
		WithConvMaxWorkspace(true).
		WithConv1DPadToNC1D(true).
		WithCUDAGraph(false).
		WithSkipLayerNormStrictMode(true).
		WithPreferNHWC(true).
		WithComputeStream(stream).
		WithAttentionBackend(AttentionFlash.Or(AttentionMath)).
		WithFuseConvBias(true).
		WithArbitraryConfig("tunable_op_enable", "1")

	want := map[string]string{
		"arena_extend_strategy":              "kSameAsRequested",
		"cudnn_conv_algo_search":             "HEURISTIC",
		"do_copy_in_default_stream":          "0",
		"cudnn_conv_use_max_workspace":       "1",
		"cudnn_conv1d_pad_to_nc1d":           "1",
		"enable_cuda_graph":                  "0",
		"enable_skip_layer_norm_strict_mode": "1",
		"prefer_nhwc":                        "1",
		"user_compute_stream":                strconv.FormatUint(uint64(uintptr(stream)), 10),
		"sdpa_kernel":                        "17",
		"fuse_conv_bias":                     "1",
		"tunable_op_enable":                  "1",
	}
	assert.Equal(t, len(want), c.Options().Len())
	for k, v := range want {
		got, ok := c.Options().Get(k)
		assert.True(t, ok, k)
		assert.Equal(t, v, got, k)
	}
}

func TestEnums_Literals(t *testing.T) {
	arena := map[ArenaExtendStrategy]string{
		NextPowerOfTwo:  "kNextPowerOfTwo",
		SameAsRequested: "kSameAsRequested",
	}
	for v, want := range arena {
		assert.Equal(t, want, v.String())
		assert.Equal(t, v.String(), v.String())
	}

	search := map[ConvAlgorithmSearch]string{
		Exhaustive: "EXHAUSTIVE",
		Heuristic:  "HEURISTIC",
		Default:    "DEFAULT",
	}
	for v, want := range search {
		assert.Equal(t, want, v.String())
		assert.NotEmpty(t, v.String())
	}

	var zero ConvAlgorithmSearch
	assert.Equal(t, Exhaustive, zero)
}

func TestEnums_UnmappedPanics(t *testing.T) {
	assert.Panics(t, func() { _ = ArenaExtendStrategy(7).String() })
	assert.Panics(t, func() { _ = ConvAlgorithmSearch(-1).String() })
}

func TestAttentionBackend_Algebra(t *testing.T) {
	flags := []AttentionBackend{AttentionNone()}
	for _, n := range attentionNames {
		flags = append(flags, n.flag)
	}
	flags = append(flags, AttentionAll(), AttentionFlash.Or(AttentionLean))

	for _, a := range flags {
		for _, b := range flags {
			assert.Equal(t, a.Or(b), b.Or(a), "%s | %s", a, b)
			assert.Equal(t, a.Or(b), a.Or(b).Or(b), "%s | %s", a, b)
			assert.True(t, a.Or(b).Has(a))
			assert.True(t, a.Or(b).Has(b))
		}
	}
}

func TestAttentionBackend_Values(t *testing.T) {
	assert.Equal(t, uint32(0), AttentionNone().Bits())
	assert.Equal(t, uint32(0xff), AttentionAll().Bits())
	assert.False(t, AttentionAll().Has(AttentionLean))
	assert.Equal(t, uint32(1<<8), AttentionLean.Bits())
	assert.Equal(t, "NONE", AttentionNone().String())
	assert.Equal(t, "FLASH_ATTENTION|MATH", AttentionFlash.Or(AttentionMath).String())
}

func TestParseAttentionBackend(t *testing.T) {
	got, err := ParseAttentionBackend("flash_attention | MATH")
	require.NoError(t, err)
	assert.Equal(t, AttentionFlash.Or(AttentionMath), got)

	got, err = ParseAttentionBackend("")
	require.NoError(t, err)
	assert.Equal(t, AttentionNone(), got)

	for _, want := range []AttentionBackend{AttentionNone(), AttentionAll(), AttentionLean.Or(AttentionMath)} {
		got, err = ParseAttentionBackend(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = ParseAttentionBackend("WARP_SPEED")
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	tests := []struct {
		os, arch string
		want     bool
	}{
		{"linux", "amd64", true},
		{"linux", "arm64", true},
		{"windows", "amd64", true},
		{"windows", "arm64", false},
		{"darwin", "arm64", false},
		{"linux", "riscv64", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Supported(CUDAPlatforms, tt.os, tt.arch), "%s/%s", tt.os, tt.arch)
	}
	assert.Equal(t, "linux/amd64", CUDAPlatforms[0].String())
}
