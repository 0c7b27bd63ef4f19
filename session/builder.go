package session

import (
	stderrors "errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/ortext/ep"
	"github.com/wippyai/ortext/errors"
	"github.com/wippyai/ortext/operator"
	"github.com/wippyai/ortext/sys"
)

// Builder owns a set of native session options.
type Builder struct {
	api            sys.API
	ptr            sys.SessionOptions
	failOnProvider bool
	providers      []string
	registrations  []*operator.Registration
	released       atomic.Bool
}

var _ ep.Session = (*Builder)(nil)

// NewBuilder creates native session options. The builder must be closed.
func NewBuilder(api sys.API) (*Builder, error) {
	ptr, err := api.CreateSessionOptions()
	if err != nil {
		return nil, errors.Native(errors.PhaseSession, "CreateSessionOptions", err)
	}
	return &Builder{api: api, ptr: ptr}, nil
}

// API returns the native function table the options were created with.
func (b *Builder) API() sys.API {
	return b.api
}

// Ptr returns the native session options handle. It is owned by the builder.
func (b *Builder) Ptr() sys.SessionOptions {
	return b.ptr
}

// WithErrorOnProviderFailure makes WithExecutionProviders return the first
// registration error instead of logging it and moving on.
func (b *Builder) WithErrorOnProviderFailure(fail bool) *Builder {
	b.failOnProvider = fail
	return b
}

// WithExecutionProviders registers eps in order. The runtime prefers
// providers registered first.
func (b *Builder) WithExecutionProviders(eps ...ep.ExecutionProvider) (*Builder, error) {
	if err := b.checkOpen(); err != nil {
		return b, err
	}
	for _, p := range eps {
		name := p.Name()
		if !p.SupportedByPlatform() {
			Logger().Debug("execution provider not supported on this platform, skipping",
				zap.String("provider", name))
			continue
		}

		if err := p.Register(b); err != nil {
			if b.failOnProvider {
				return b, err
			}
			if stderrors.Is(err, errors.ErrMissingFeature) {
				Logger().Warn("execution provider not compiled in, skipping",
					zap.String("provider", name))
			} else {
				Logger().Error("execution provider registration failed, skipping",
					zap.String("provider", name), zap.Error(err))
			}
			continue
		}

		Logger().Info("registered execution provider", zap.String("provider", name))
		b.providers = append(b.providers, name)
	}
	return b, nil
}

// WithOperators registers a custom operator domain. The registration is
// released by Close after the session options.
func (b *Builder) WithOperators(d *operator.Domain) (*Builder, error) {
	if err := b.checkOpen(); err != nil {
		return b, err
	}
	reg, err := d.Register(b.api, b.ptr)
	if err != nil {
		return b, err
	}
	b.registrations = append(b.registrations, reg)
	return b, nil
}

// RegisteredProviders returns the names of the providers attached so far,
// in registration order.
func (b *Builder) RegisteredProviders() []string {
	return append([]string(nil), b.providers...)
}

// Close releases the session options, then any operator registrations.
// Sessions created from the options must already be released.
func (b *Builder) Close() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	b.api.ReleaseSessionOptions(b.ptr)
	for _, reg := range b.registrations {
		reg.Close()
	}
	b.registrations = nil
}

func (b *Builder) checkOpen() error {
	if b.released.Load() {
		return errors.New(errors.PhaseSession, errors.KindInvalidInput).
			Detail("session builder is closed").
			Build()
	}
	return nil
}
