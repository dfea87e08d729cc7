package emitter

// HostBuffer is the opt-in capability a Value exposes when its backing
// storage is directly readable and writable from host Go code, rather than
// only from emitted instructions. A real ahead-of-time backend implements
// it by poking the linked artifact's data section or a JIT symbol; it is
// what CompiledMap.SetInput/GetOutput are built on (spec §4.7 "set_input...
// get_output(name) -> vector").
type HostBuffer interface {
	Value
	// ReadHost copies the buffer's current contents out as float64s,
	// widening or narrowing from the buffer's native element type.
	ReadHost() []float64
	// WriteHost overwrites the buffer's contents from vals, narrowing to
	// the buffer's native element type. It is an error for vals to be
	// longer than the buffer.
	WriteHost(vals []float64) error
}

// FunctionResolver is the opt-in capability a Module exposes to hand back
// a directly callable handle for a previously defined function, without
// going through a Builder.Call inside another function body (spec §4.7
// "resolve_function(symbol) -> function pointer").
type FunctionResolver interface {
	Module
	ResolveFunction(name string) (func(args []Value) Value, bool)
}
