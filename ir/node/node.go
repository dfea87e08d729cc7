// Package node defines the graph's operator abstraction (spec §3 "Node"):
// a stable identity, ordered input/output ports, archival metadata, and two
// optional capabilities (refine, compile) recovered by type assertion
// rather than an inheritance hierarchy, per the spec §9 re-architecture
// note "a tagged variant... combined with a capability interface."
package node

import "github.com/embedml/graphc/ir/port"

// Metadata is a node's archival key/value property bag (spec §3 Node,
// spec §6 "Archive format").
type Metadata map[string]string

// Node is the minimal shared interface every operator kind implements.
// Concrete kinds live in package nodes; this package only fixes the
// contract the Model, Transformer and registry build against.
type Node interface {
	// ID is the node's stable identifier, unique within its owning Model
	// (spec §3 Model invariant 3).
	ID() string
	// TypeName is the runtime type name used for registry lookup and
	// archival reconstruction (spec §3 Node, §6 "Node-type registry").
	TypeName() string
	// SchemaVersion is the archival schema version this node's parameter
	// encoding conforms to (spec §6 "Archive format").
	SchemaVersion() int
	// Inputs returns the node's ordered input ports.
	Inputs() []port.Input
	// Outputs returns the node's ordered output ports.
	Outputs() []port.Output
	// Metadata returns the node's archival property bag.
	Metadata() Metadata
}

// WithMetadata is satisfied by a Node that can produce a copy of itself
// carrying replaced Metadata, used by the SetCompilerOptions
// transformation (spec §4.3) to attach a property bag without
// restructuring the graph. It returns a new Node rather than mutating the
// receiver, consistent with spec §3 Lifecycles: "Nodes are created during
// model construction and never mutated afterward."
type WithMetadata interface {
	Node
	WithMetadata(Metadata) Node
}

// Rewirable is satisfied by a Node that can produce a copy of itself with
// a replaced, equal-length input list. Every concrete node kind that can
// appear as a non-input-boundary node in a Model implements this, so
// Transformer.CopyNode can rewire a node's inputs through µ without a
// type switch over every concrete kind (spec §9 "tagged variant...
// combined with a capability interface").
type Rewirable interface {
	Node
	WithInputs(inputs []port.Input) Node
}
