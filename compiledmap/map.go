// Package compiledmap implements the Map and CompiledMap entities (spec §3
// "Map"/"CompiledMap", spec §4.7): a named-input, named-output wrapper over
// a Model, and the compilation driver that turns one into a callable
// artifact against the emitter contract.
package compiledmap

import (
	"fmt"

	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/node"
)

// Map binds string names to a Model's input nodes and output boundary
// nodes (spec §3 "Map... named inputs provide the API surface; named
// outputs provide the readback"). A Map owns its Model.
type Map struct {
	model *model.Model

	inputNames  []string
	inputNodeID map[string]string

	outputNames  []string
	outputNodeID map[string]string
}

// NewMap wraps m in an otherwise unnamed Map.
func NewMap(m *model.Model) *Map {
	return &Map{
		model:       m,
		inputNodeID: make(map[string]string),
		outputNodeID: make(map[string]string),
	}
}

// Model returns the Map's owned Model.
func (mp *Map) Model() *model.Model { return mp.model }

// NameInput binds name to the "Input"-typed node identified by nodeID, the
// boundary set_input writes through (spec §4.7 "set_input(name, vector)").
func (mp *Map) NameInput(name, nodeID string) error {
	if name == "" {
		return errkind.New(errkind.ArchiveMismatch, "compiledmap: input name must not be empty")
	}
	if _, exists := mp.inputNodeID[name]; exists {
		return errkind.Newf(errkind.ArchiveMismatch, "compiledmap: input name %q already bound", name)
	}
	n, ok := mp.model.NodeByID(nodeID)
	if !ok {
		return errkind.Newf(errkind.ArchiveMismatch, "compiledmap: no node %q in model", nodeID)
	}
	if n.TypeName() != "Input" {
		return errkind.Newf(errkind.TypeMismatch, "compiledmap: node %q is a %q, not an Input node", nodeID, n.TypeName())
	}
	mp.inputNames = append(mp.inputNames, name)
	mp.inputNodeID[name] = nodeID
	return nil
}

// NameOutput binds name to the "Output"-typed sink node identified by
// nodeID, the boundary get_output reads from (spec §4.7 "get_output(name)
// -> vector").
func (mp *Map) NameOutput(name, nodeID string) error {
	if name == "" {
		return errkind.New(errkind.ArchiveMismatch, "compiledmap: output name must not be empty")
	}
	if _, exists := mp.outputNodeID[name]; exists {
		return errkind.Newf(errkind.ArchiveMismatch, "compiledmap: output name %q already bound", name)
	}
	n, ok := mp.model.NodeByID(nodeID)
	if !ok {
		return errkind.Newf(errkind.ArchiveMismatch, "compiledmap: no node %q in model", nodeID)
	}
	if n.TypeName() != "Output" {
		return errkind.Newf(errkind.TypeMismatch, "compiledmap: node %q is a %q, not an Output node", nodeID, n.TypeName())
	}
	mp.outputNames = append(mp.outputNames, name)
	mp.outputNodeID[name] = nodeID
	return nil
}

// InputNames returns the bound input names in binding order.
func (mp *Map) InputNames() []string { return append([]string(nil), mp.inputNames...) }

// OutputNames returns the bound output names in binding order.
func (mp *Map) OutputNames() []string { return append([]string(nil), mp.outputNames...) }

// inputNode looks up the node.Node bound to an input name, already
// validated to be an "Input" node by NameInput.
func (mp *Map) inputNode(name string) (node.Node, error) {
	id, ok := mp.inputNodeID[name]
	if !ok {
		return nil, errkind.Newf(errkind.ArchiveMismatch, "compiledmap: unknown input %q", name)
	}
	n, ok := mp.model.NodeByID(id)
	if !ok {
		return nil, fmt.Errorf("compiledmap: input %q's bound node %q vanished from the model", name, id)
	}
	return n, nil
}

// outputNode looks up the node.Node bound to an output name, already
// validated to be an "Output" node by NameOutput.
func (mp *Map) outputNode(name string) (node.Node, error) {
	id, ok := mp.outputNodeID[name]
	if !ok {
		return nil, errkind.Newf(errkind.ArchiveMismatch, "compiledmap: unknown output %q", name)
	}
	n, ok := mp.model.NodeByID(id)
	if !ok {
		return nil, fmt.Errorf("compiledmap: output %q's bound node %q vanished from the model", name, id)
	}
	return n, nil
}
