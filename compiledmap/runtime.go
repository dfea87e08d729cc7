package compiledmap

import (
	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/internal/errkind"
)

// SetInput writes vector into the named input's backing buffer, after a
// runtime element-count check against the layout fixed at compile time
// (spec §4.7 "set_input(name, vector) with a runtime element-type check
// and layout-size check"). The element-type check is WriteHost's job on
// backends that narrow to a non-float64 native type.
func (cm *CompiledMap) SetInput(name string, vector []float64) error {
	b, ok := cm.inputs[name]
	if !ok {
		return errkind.Newf(errkind.ArchiveMismatch, "compiledmap: unknown input %q", name)
	}
	if len(vector) != b.layout.NumElements() {
		return errkind.Newf(errkind.ShapeMismatch, "compiledmap: input %q expects %d elements, got %d", name, b.layout.NumElements(), len(vector))
	}
	host, ok := b.storage.(emitter.HostBuffer)
	if !ok {
		return errkind.Newf(errkind.EmitterCapabilityAbsent, "compiledmap: emitter's storage for input %q is not host-accessible", name)
	}
	return host.WriteHost(vector)
}

// GetOutput reads the named output's current backing buffer contents
// (spec §4.7 "get_output(name) -> vector").
func (cm *CompiledMap) GetOutput(name string) ([]float64, error) {
	b, ok := cm.outputs[name]
	if !ok {
		return nil, errkind.Newf(errkind.ArchiveMismatch, "compiledmap: unknown output %q", name)
	}
	host, ok := b.storage.(emitter.HostBuffer)
	if !ok {
		return nil, errkind.Newf(errkind.EmitterCapabilityAbsent, "compiledmap: emitter's storage for output %q is not host-accessible", name)
	}
	return host.ReadHost()[:b.layout.NumElements()], nil
}

// Compute invokes the emitted entry function over the buffers SetInput has
// populated (spec §4.7 "compute() invoking the emitted entry function").
func (cm *CompiledMap) Compute() error {
	resolver, ok := cm.module.(emitter.FunctionResolver)
	if !ok {
		return errkind.New(errkind.EmitterCapabilityAbsent, "compiledmap: emitter Module does not support resolving a defined function for invocation")
	}
	fn, ok := resolver.ResolveFunction(computeFunctionName)
	if !ok {
		return errkind.New(errkind.EmitterCapabilityAbsent, "compiledmap: \"compute\" was not defined")
	}
	fn(nil)
	return nil
}

// ResolveFunction hands back a directly callable handle for symbol, one of
// the emitted functions (normally just "compute") the Map's nodes defined
// through Compile (spec §4.7 "resolve_function(symbol) -> function
// pointer").
func (cm *CompiledMap) ResolveFunction(symbol string) (func(args []emitter.Value) emitter.Value, error) {
	resolver, ok := cm.module.(emitter.FunctionResolver)
	if !ok {
		return nil, errkind.New(errkind.EmitterCapabilityAbsent, "compiledmap: emitter Module does not support function resolution")
	}
	fn, ok := resolver.ResolveFunction(symbol)
	if !ok {
		return nil, errkind.Newf(errkind.ArchiveMismatch, "compiledmap: no defined function %q", symbol)
	}
	return fn, nil
}
