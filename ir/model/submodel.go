package model

import (
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
)

// Submodel is a view over a Model bounded by a set of input ports and a
// set of output ports: the smallest node set reachable backward from
// Outputs that does not cross an Inputs boundary (spec §3 "Submodel"),
// the unit a Transformation consumes (spec §4.3).
type Submodel struct {
	Inputs  []port.Ref
	Outputs []port.Ref

	model *Model
	nodes []node.Node // cached, in forward topological order
}

// NewSubmodel computes the Submodel over m bounded by inputs and outputs.
func NewSubmodel(m *Model, inputs, outputs []port.Ref) (*Submodel, error) {
	boundary := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		boundary[in.NodeID] = true
	}

	visited := make(map[string]bool)
	var visit func(nodeID string) error
	visit = func(nodeID string) error {
		if visited[nodeID] || boundary[nodeID] {
			return nil
		}
		visited[nodeID] = true
		n, ok := m.NodeByID(nodeID)
		if !ok {
			return unknownNodeError(nodeID)
		}
		for _, in := range n.Inputs() {
			if err := visit(in.Source.NodeID); err != nil {
				return err
			}
		}
		return nil
	}

	for _, out := range outputs {
		if err := visit(out.NodeID); err != nil {
			return nil, err
		}
	}
	// Boundary input nodes are part of the submodel (they anchor it) but
	// are not traversed past.
	for id := range boundary {
		visited[id] = true
	}

	var nodes []node.Node
	for _, n := range m.Nodes() {
		if visited[n.ID()] {
			nodes = append(nodes, n)
		}
	}

	return &Submodel{
		Inputs:  append([]port.Ref(nil), inputs...),
		Outputs: append([]port.Ref(nil), outputs...),
		model:   m,
		nodes:   nodes,
	}, nil
}

// Nodes returns the submodel's nodes in forward topological order.
func (sm *Submodel) Nodes() []node.Node { return append([]node.Node(nil), sm.nodes...) }

func unknownNodeError(id string) error {
	return &submodelError{nodeID: id}
}

type submodelError struct{ nodeID string }

func (e *submodelError) Error() string {
	return "model: submodel references unknown node " + e.nodeID
}
