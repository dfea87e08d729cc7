// Package model implements the owning graph container (spec §3 "Model"):
// a contiguous arena of Nodes indexed by stable string identifiers, with
// the structural invariants construction must preserve and deterministic
// topological iteration (spec §9 re-architecture note: "a Model holds a
// contiguous arena of Nodes indexed by stable integer identifiers; Ports
// reference producers and consumers by (node_id, port_index) pairs; no
// pointer cycles").
package model

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
)

// Model is an owning container of Nodes connected by port references.
// AddNode only accepts a node whose inputs reference outputs of nodes
// already present, which makes the insertion order a valid forward
// topological order by construction (spec §3 Model invariant 1, 4): a
// cycle would require referencing a node not yet added, which AddNode
// rejects.
type Model struct {
	nodes      map[string]node.Node
	order      []string
	consumers  map[port.Ref][]port.Ref // output ref -> input refs that reference it
}

// New returns an empty Model.
func New() *Model {
	return &Model{
		nodes:     make(map[string]node.Node),
		consumers: make(map[port.Ref][]port.Ref),
	}
}

// AddNode inserts n, validating spec §3 Model invariants 1-3 (invariant 4,
// acyclicity, follows from invariant 1 being checked at insertion time).
func (m *Model) AddNode(n node.Node) error {
	id := n.ID()
	if id == "" {
		return fmt.Errorf("model: node has empty id")
	}
	if _, exists := m.nodes[id]; exists {
		return fmt.Errorf("model: duplicate node id %q", id)
	}

	for i, in := range n.Inputs() {
		src := in.Source
		producer, ok := m.nodes[src.NodeID]
		if !ok {
			return errkind.WithNode(
				errkind.Newf(errkind.OutOfOrderVisit,
					"input %d references producer %q, which is not yet in the model", i, src.NodeID),
				id,
			)
		}
		outs := producer.Outputs()
		if src.Index < 0 || src.Index >= len(outs) {
			return errkind.WithNode(
				errkind.Newf(errkind.ShapeMismatch, "input %d references out-of-range output index %d on %q", i, src.Index, src.NodeID),
				id,
			)
		}
		out := outs[src.Index]
		if in.Type != out.Type {
			return errkind.WithNode(
				errkind.Newf(errkind.TypeMismatch, "input %d expects type %s, producer output is %s", i, in.Type, out.Type),
				id,
			)
		}
		if !port.TypeLayoutMatch(in, out) {
			return errkind.WithNode(
				errkind.Newf(errkind.ShapeMismatch, "input %d layout does not match producer output %d on %q", i, src.Index, src.NodeID),
				id,
			)
		}
	}

	m.nodes[id] = n
	m.order = append(m.order, id)
	for i, in := range n.Inputs() {
		m.consumers[in.Source] = append(m.consumers[in.Source], port.Ref{NodeID: id, Index: i})
	}
	return nil
}

// NodeByID returns the node with the given id, if present.
func (m *Model) NodeByID(id string) (node.Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Len returns the number of nodes in the model.
func (m *Model) Len() int { return len(m.order) }

// Nodes returns every node in forward topological order: every producer
// before any of its consumers (spec §3 "forward topological order").
func (m *Model) Nodes() []node.Node {
	out := make([]node.Node, len(m.order))
	for i, id := range m.order {
		out[i] = m.nodes[id]
	}
	return out
}

// ReverseNodes returns every node in reverse topological order: every
// consumer before any of its producers.
func (m *Model) ReverseNodes() []node.Node {
	fwd := m.Nodes()
	out := make([]node.Node, len(fwd))
	for i, n := range fwd {
		out[len(fwd)-1-i] = n
	}
	return out
}

// Consumers returns the input port refs that reference the output at ref,
// the Model-owned reverse index (spec §3 Port "output port tracks the set
// of input ports that refer to it").
func (m *Model) Consumers(ref port.Ref) []port.Ref {
	return append([]port.Ref(nil), m.consumers[ref]...)
}

// Validate re-checks every Model invariant against the current node set,
// useful after a Transformer hands back a destination Model it built
// through a path other than plain AddNode calls. Unlike AddNode, which
// rejects the first bad input at insertion time, Validate aggregates every
// violation it finds via go-multierror so a caller sees the whole list of
// what a faulty Transformer pass got wrong in one report.
func (m *Model) Validate() error {
	seen := make(map[string]int, len(m.order))
	for i, id := range m.order {
		seen[id] = i
	}
	var result *multierror.Error
	for idx, id := range m.order {
		n := m.nodes[id]
		for i, in := range n.Inputs() {
			producer, ok := m.nodes[in.Source.NodeID]
			if !ok {
				result = multierror.Append(result, errkind.WithNode(errkind.Newf(errkind.OutOfOrderVisit, "input %d references unknown producer %q", i, in.Source.NodeID), id))
				continue
			}
			if producerIdx, ok := seen[in.Source.NodeID]; !ok || producerIdx >= idx {
				result = multierror.Append(result, errkind.WithNode(errkind.Newf(errkind.CycleDetected, "input %d references producer %q which is not strictly earlier in topological order", i, in.Source.NodeID), id))
				continue
			}
			outs := producer.Outputs()
			if in.Source.Index < 0 || in.Source.Index >= len(outs) {
				result = multierror.Append(result, errkind.WithNode(errkind.Newf(errkind.ShapeMismatch, "input %d references out-of-range output %d", i, in.Source.Index), id))
				continue
			}
			if !port.TypeLayoutMatch(in, outs[in.Source.Index]) {
				result = multierror.Append(result, errkind.WithNode(errkind.Newf(errkind.ShapeMismatch, "input %d disagrees with producer output %d", i, in.Source.Index), id))
			}
		}
	}
	return result.ErrorOrNil()
}
