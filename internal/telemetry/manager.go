package telemetry

import (
	"context"
	"sync"
)

var (
	globalTracer Tracer = Noop()
	tracerMutex  sync.RWMutex
)

// Init installs the process-wide tracer. Optional: if never called, spans
// are routed through a zero-overhead no-op tracer.
func Init(tracer Tracer) {
	tracerMutex.Lock()
	defer tracerMutex.Unlock()
	globalTracer = tracer
}

// Get returns the current process-wide tracer.
func Get() Tracer {
	tracerMutex.RLock()
	defer tracerMutex.RUnlock()
	return globalTracer
}

// StartSpan is a convenience wrapper around Get().StartSpan, used by the
// Transformation driver to wrap each pass Apply runs and by
// compiledmap.Compile to wrap a whole compilation.
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span) {
	return Get().StartSpan(ctx, name, opts...)
}

// Shutdown flushes and closes the process-wide tracer.
func Shutdown(ctx context.Context) error {
	return Get().Shutdown(ctx)
}

// IsEnabled reports whether the current tracer does real work.
func IsEnabled() bool {
	return Get().IsEnabled()
}

// PassAttributes names the attribute keys StartSpan callers attach around a
// Transformation pass invocation.
type PassAttributes struct{}

func (PassAttributes) PassName() string    { return "graphc.pass.name" }
func (PassAttributes) NodeCount() string   { return "graphc.pass.node_count" }
func (PassAttributes) Iteration() string   { return "graphc.pass.iteration" }
func (PassAttributes) NodeID() string      { return "graphc.node.id" }
func (PassAttributes) FunctionName() string { return "graphc.emitter.function" }

// PA is the predefined PassAttributes helper instance.
var PA = PassAttributes{}

// BuildAttributes is a helper for constructing an attribute map from
// alternating key/value string pairs.
func BuildAttributes(pairs ...string) map[string]any {
	if len(pairs)%2 != 0 {
		panic("telemetry: BuildAttributes requires an even number of arguments")
	}
	result := make(map[string]any)
	for i := 0; i < len(pairs); i += 2 {
		result[pairs[i]] = pairs[i+1]
	}
	return result
}
