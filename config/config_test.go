package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ortext/ep"
	"github.com/wippyai/ortext/errors"
)

func pairs(o *ep.Options) [][2]string {
	var out [][2]string
	o.Each(func(k, v string) {
		out = append(out, [2]string{k, v})
	})
	return out
}

func TestLoad_Empty(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)
	assert.False(t, cfg.ErrorOnProviderFailure)
	assert.Nil(t, cfg.CUDA.DeviceID)

	p, err := cfg.CUDA.Provider()
	require.NoError(t, err)
	assert.Zero(t, p.Options().Len())
}

func TestLoad_CUDA(t *testing.T) {
	t.Setenv("ORTEXT_PROVIDERS", "cuda")
	t.Setenv("ORTEXT_ERROR_ON_PROVIDER_FAILURE", "true")
	t.Setenv("ORTEXT_CUDA_DEVICE_ID", "1")
	t.Setenv("ORTEXT_CUDA_MEMORY_LIMIT", "4294967296")
	t.Setenv("ORTEXT_CUDA_ARENA_EXTEND_STRATEGY", "SameAsRequested")
	t.Setenv("ORTEXT_CUDA_CONV_ALGO_SEARCH", "heuristic")
	t.Setenv("ORTEXT_CUDA_TF32", "false")
	t.Setenv("ORTEXT_CUDA_ATTENTION_BACKEND", "FLASH_ATTENTION|MATH")
	t.Setenv("ORTEXT_CUDA_EXTRA", "zeta=1,alpha=2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.ErrorOnProviderFailure)

	eps, err := cfg.ExecutionProviders()
	require.NoError(t, err)
	require.Len(t, eps, 1)
	cuda, ok := eps[0].(*ep.CUDA)
	require.True(t, ok)

	assert.Equal(t, [][2]string{
		{"device_id", "1"},
		{"gpu_mem_limit", "4294967296"},
		{"arena_extend_strategy", "kSameAsRequested"},
		{"cudnn_conv_algo_search", "HEURISTIC"},
		{"use_tf32", "0"},
		{"sdpa_kernel", "17"},
		{"alpha", "2"},
		{"zeta", "1"},
	}, pairs(cuda.Options()))
}

func TestParseEnv_Error(t *testing.T) {
	t.Setenv("ORTEXT_CUDA_DEVICE_ID", "first")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidInput})
	assert.Contains(t, err.Error(), "parse env")
}

func TestProvider_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  CUDA
	}{
		{"arena", CUDA{ArenaExtendStrategy: "doubling"}},
		{"conv", CUDA{ConvAlgorithmSearch: "fastest"}},
		{"attention", CUDA{AttentionBackend: "FLASH_ATTENTION|WARP"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Provider()
			assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidInput})
		})
	}
}

func TestExecutionProviders(t *testing.T) {
	cfg := &Config{Providers: []string{" CUDAExecutionProvider ", ""}}
	eps, err := cfg.ExecutionProviders()
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, ep.CUDAName, eps[0].Name())

	cfg.Providers = []string{"tensorrt"}
	_, err = cfg.ExecutionProviders()
	assert.ErrorIs(t, err, &errors.Error{Kind: errors.KindNotFound})
}
