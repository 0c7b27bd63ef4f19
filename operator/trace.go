package operator

import (
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/wippyai/ortext/operator"

var provider atomic.Pointer[trace.TracerProvider]

// SetTracerProvider routes kernel spans to tp instead of the global
// OpenTelemetry provider. Passing nil restores the global provider.
func SetTracerProvider(tp trace.TracerProvider) {
	if tp == nil {
		provider.Store(nil)
		return
	}
	provider.Store(&tp)
}

func tracer() trace.Tracer {
	if tp := provider.Load(); tp != nil {
		return (*tp).Tracer(tracerName)
	}
	return otel.Tracer(tracerName)
}
