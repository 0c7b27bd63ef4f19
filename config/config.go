package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/wippyai/ortext/ep"
	"github.com/wippyai/ortext/errors"
)

// Config is the environment-driven setup for a session builder.
type Config struct {
	// Providers lists the execution providers to register, in priority order.
	Providers              []string `env:"ORTEXT_PROVIDERS" envSeparator:","`
	ErrorOnProviderFailure bool     `env:"ORTEXT_ERROR_ON_PROVIDER_FAILURE"`
	// OTELEndpoint is the OTLP HTTP endpoint for kernel spans. Empty
	// disables export.
	OTELEndpoint string `env:"ORTEXT_OTEL_ENDPOINT"`
	CUDA         CUDA
}

// CUDA holds CUDA provider settings. Unset variables leave the native default
// in place.
type CUDA struct {
	DeviceID                *int              `env:"ORTEXT_CUDA_DEVICE_ID"`
	MemoryLimit             *uint64           `env:"ORTEXT_CUDA_MEMORY_LIMIT"`
	ArenaExtendStrategy     string            `env:"ORTEXT_CUDA_ARENA_EXTEND_STRATEGY"`
	ConvAlgorithmSearch     string            `env:"ORTEXT_CUDA_CONV_ALGO_SEARCH"`
	CopyInDefaultStream     *bool             `env:"ORTEXT_CUDA_COPY_IN_DEFAULT_STREAM"`
	ConvMaxWorkspace        *bool             `env:"ORTEXT_CUDA_CONV_MAX_WORKSPACE"`
	Conv1DPadToNC1D         *bool             `env:"ORTEXT_CUDA_CONV1D_PAD_TO_NC1D"`
	CUDAGraph               *bool             `env:"ORTEXT_CUDA_GRAPH"`
	SkipLayerNormStrictMode *bool             `env:"ORTEXT_CUDA_SKIP_LAYER_NORM_STRICT_MODE"`
	TF32                    *bool             `env:"ORTEXT_CUDA_TF32"`
	PreferNHWC              *bool             `env:"ORTEXT_CUDA_PREFER_NHWC"`
	AttentionBackend        string            `env:"ORTEXT_CUDA_ATTENTION_BACKEND"`
	FuseConvBias            *bool             `env:"ORTEXT_CUDA_FUSE_CONV_BIAS"`
	Extra                   map[string]string `env:"ORTEXT_CUDA_EXTRA" envSeparator:"," envKeyValSeparator:"="`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse env")
	}
	return nil
}

// Load reads a Config from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ExecutionProviders builds the providers named in Providers.
func (c *Config) ExecutionProviders() ([]ep.ExecutionProvider, error) {
	var out []ep.ExecutionProvider
	for _, name := range c.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
		case "cuda", strings.ToLower(ep.CUDAName):
			p, err := c.CUDA.Provider()
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		default:
			return nil, errors.NotFound(errors.PhaseConfig, "execution provider", name)
		}
	}
	return out, nil
}

// Provider converts the settings into a CUDA provider. Options are applied in
// catalogue order; Extra entries follow in key order.
func (c CUDA) Provider() (*ep.CUDA, error) {
	p := ep.NewCUDA()
	if c.DeviceID != nil {
		p.WithDeviceID(*c.DeviceID)
	}
	if c.MemoryLimit != nil {
		p.WithMemoryLimit(*c.MemoryLimit)
	}
	if c.ArenaExtendStrategy != "" {
		s, err := parseArenaExtendStrategy(c.ArenaExtendStrategy)
		if err != nil {
			return nil, err
		}
		p.WithArenaExtendStrategy(s)
	}
	if c.ConvAlgorithmSearch != "" {
		s, err := parseConvAlgorithmSearch(c.ConvAlgorithmSearch)
		if err != nil {
			return nil, err
		}
		p.WithConvAlgorithmSearch(s)
	}

	flags := []struct {
		v   *bool
		set func(bool) *ep.CUDA
	}{
		{c.CopyInDefaultStream, p.WithCopyInDefaultStream},
		{c.ConvMaxWorkspace, p.WithConvMaxWorkspace},
		{c.Conv1DPadToNC1D, p.WithConv1DPadToNC1D},
		{c.CUDAGraph, p.WithCUDAGraph},
		{c.SkipLayerNormStrictMode, p.WithSkipLayerNormStrictMode},
		{c.TF32, p.WithTF32},
		{c.PreferNHWC, p.WithPreferNHWC},
	}
	for _, f := range flags {
		if f.v != nil {
			f.set(*f.v)
		}
	}

	if c.AttentionBackend != "" {
		b, err := ep.ParseAttentionBackend(c.AttentionBackend)
		if err != nil {
			return nil, err
		}
		p.WithAttentionBackend(b)
	}
	if c.FuseConvBias != nil {
		p.WithFuseConvBias(*c.FuseConvBias)
	}
	for _, k := range slices.Sorted(maps.Keys(c.Extra)) {
		p.WithArbitraryConfig(k, c.Extra[k])
	}
	return p, nil
}

func parseArenaExtendStrategy(s string) (ep.ArenaExtendStrategy, error) {
	for _, v := range []ep.ArenaExtendStrategy{ep.NextPowerOfTwo, ep.SameAsRequested} {
		lit := v.String()
		if strings.EqualFold(s, lit) || strings.EqualFold(s, strings.TrimPrefix(lit, "k")) {
			return v, nil
		}
	}
	return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown arena extend strategy %q", s))
}

func parseConvAlgorithmSearch(s string) (ep.ConvAlgorithmSearch, error) {
	for _, v := range []ep.ConvAlgorithmSearch{ep.Exhaustive, ep.Heuristic, ep.Default} {
		if strings.EqualFold(s, v.String()) {
			return v, nil
		}
	}
	return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown conv algorithm search %q", s))
}
