package node

import (
	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/ir/port"
)

// RefineSink is the narrow slice of Transformer a Node's Refine
// implementation needs (spec §4.1 Operations). It is declared here,
// rather than importing package transform, so transform.Transformer can
// structurally satisfy it without ir/node depending on transform (spec §9
// re-architecture note on avoiding pointer/ownership cycles, generalized
// to package dependencies).
type RefineSink interface {
	// AddNode constructs a destination-side node directly; its outputs are
	// not recorded in µ unless the caller explicitly calls MapOutput.
	AddNode(n Node) error
	// CopyNode clones n into the destination, connecting its inputs via µ
	// applied to the sources of n's original inputs, and records µ for
	// each of n's outputs (spec §4.1 "copy_node").
	CopyNode(n Node) error
	// RefineNode invokes n's own Refiner capability against this same
	// sink, for a node that emits a subgraph in terms of other refinable
	// nodes (spec §4.1 "refine_node").
	RefineNode(n Node) error
	// MapOutput explicitly records µ(srcOut) = destOut (spec §4.1
	// "map_node_output").
	MapOutput(srcOut, destOut port.Ref)
	// CorrespondingInputs resolves µ for each of srcRefs, returning an
	// error of kind out-of-order-visit if any has no destination yet
	// (spec §4.1 "corresponding_inputs").
	CorrespondingInputs(srcRefs []port.Ref) ([]port.Ref, error)
}

// Refiner is the opt-in capability a Node exposes to emit an equivalent
// subgraph of more primitive nodes (spec §3 Node "refine", spec §4.2).
type Refiner interface {
	Node
	Refine(sink RefineSink) error
}

// Compiler is the opt-in capability a Node exposes to render itself
// directly against the emitter contract (spec §3 Node "compile", spec
// §4.6). inputs carries one emitter.Value per input port, already
// materialized by the caller (the producing node's output Value, typically
// a pointer to its buffer); Compile returns one Value per output port, in
// order.
type Compiler interface {
	Node
	Compile(b emitter.Builder, inputs []emitter.Value) ([]emitter.Value, error)
}

// GlobalCompiler is the opt-in capability of a node whose compiled form
// needs a module-scope global rather than only function-local storage —
// the "stateful nodes for recurrent models" the spec's Purpose references
// (spec §3 Node "compile", spec §4.6 "module-scope mutable and immutable
// globals"). A node implementing GlobalCompiler is compiled through this
// path instead of Compiler; the Map/CompiledMap driver tries GlobalCompiler
// first.
type GlobalCompiler interface {
	Node
	CompileGlobal(m emitter.Module, b emitter.Builder, inputs []emitter.Value) ([]emitter.Value, error)
}

// Archiver is the opt-in capability a Node exposes to serialize its
// type-specific parameters (weights, biases, constant literals, algorithm
// choices) into the archive's key/value dictionary (spec §6 "Archive
// format": "node-specific parameters"). A node with no type-specific
// parameters beyond its ports need not implement it; archive.Encode treats
// a missing Archiver as an empty parameter set.
type Archiver interface {
	Node
	ArchiveParams() map[string]any
}

// IsCompilable reports whether n can render itself directly, the
// predicate the refinement driver uses to decide when a model no longer
// needs further refinement (spec §4.2 "every node in the current model is
// compilable").
func IsCompilable(n Node) bool {
	if _, ok := n.(GlobalCompiler); ok {
		return true
	}
	_, ok := n.(Compiler)
	return ok
}

// IsRefinable reports whether n exposes a Refine capability.
func IsRefinable(n Node) bool {
	_, ok := n.(Refiner)
	return ok
}
