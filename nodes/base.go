// Package nodes implements the concrete operator kinds a client assembles
// into a Model (spec §3.1 "Concrete node kinds", expanding spec §3
// "Node"): constants and I/O boundary nodes, linear and elementwise
// primitives the emitter can compile directly, and higher-level nodes
// (windowing, tree ensembles, convolution, gated recurrence) that refine
// into those primitives (spec §4.2). Every kind is registered with
// package node's factory registry at init time (spec §6 "Node-type
// registry").
package nodes

import (
	"github.com/google/uuid"

	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
)

// base holds the fields common to every concrete node kind: identity,
// ports and archival metadata. Concrete kinds embed it by value and
// implement node.Node by promotion, adding their own parameters and
// WithInputs/WithMetadata overrides that preserve identity across a
// rewire (spec §3 Lifecycles: a copy is a new value, not a mutation, but
// it keeps the same node id as the node it replaces).
type base struct {
	id            string
	typeName      string
	schemaVersion int
	inputs        []port.Input
	outputs       []port.Output
	metadata      node.Metadata
}

func newBase(typeName string, schemaVersion int, inputs []port.Input, outputs []port.Output) base {
	return newBaseWithID("", typeName, schemaVersion, inputs, outputs)
}

// newBaseWithID builds a base carrying the given id, or a freshly generated
// one if id is empty. archive.Decode uses the non-empty path so a node
// reconstructed from an archive keeps the identifier it was recorded under
// (spec §6 "Archive format"); every other constructor goes through newBase.
func newBaseWithID(id, typeName string, schemaVersion int, inputs []port.Input, outputs []port.Output) base {
	if id == "" {
		id = uuid.NewString()
	}
	return base{
		id:            id,
		typeName:      typeName,
		schemaVersion: schemaVersion,
		inputs:        inputs,
		outputs:       outputs,
	}
}

func (b base) ID() string              { return b.id }
func (b base) TypeName() string        { return b.typeName }
func (b base) SchemaVersion() int      { return b.schemaVersion }
func (b base) Inputs() []port.Input    { return b.inputs }
func (b base) Outputs() []port.Output  { return b.outputs }
func (b base) Metadata() node.Metadata { return b.metadata }

// firstID returns the first element of an optional id slice, or "" if the
// slice is empty, supporting the `id ...string` optional-id parameter every
// concrete constructor accepts.
func firstID(id []string) string {
	if len(id) == 0 {
		return ""
	}
	return id[0]
}

func cloneMetadata(m node.Metadata) node.Metadata {
	if m == nil {
		return nil
	}
	out := make(node.Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeMetadata(base, overlay node.Metadata) node.Metadata {
	out := make(node.Metadata, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
