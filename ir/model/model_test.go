package model

import (
	"testing"

	"github.com/embedml/graphc/ir/layout"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
)

// fakeNode is a minimal node.Node for exercising Model invariants without
// depending on package nodes (which itself depends on ir/model).
type fakeNode struct {
	id      string
	inputs  []port.Input
	outputs []port.Output
}

func (n *fakeNode) ID() string              { return n.id }
func (n *fakeNode) TypeName() string        { return "fake" }
func (n *fakeNode) SchemaVersion() int      { return 1 }
func (n *fakeNode) Inputs() []port.Input    { return n.inputs }
func (n *fakeNode) Outputs() []port.Output  { return n.outputs }
func (n *fakeNode) Metadata() node.Metadata { return nil }

func scalarOutput() port.Output {
	return port.Output{Type: port.Float32, Layout: layout.New([]int{1})}
}

func TestAddNodeRejectsOutOfOrderReference(t *testing.T) {
	m := New()
	n := &fakeNode{
		id: "b",
		inputs: []port.Input{{
			Type:   port.Float32,
			Layout: layout.New([]int{1}),
			Source: port.Ref{NodeID: "a", Index: 0},
		}},
	}
	if err := m.AddNode(n); err == nil {
		t.Fatal("expected error referencing a producer not yet in the model")
	}
}

func TestAddNodeAcceptsValidChain(t *testing.T) {
	m := New()
	a := &fakeNode{id: "a", outputs: []port.Output{scalarOutput()}}
	if err := m.AddNode(a); err != nil {
		t.Fatalf("AddNode(a): %v", err)
	}
	b := &fakeNode{
		id: "b",
		inputs: []port.Input{{
			Type:   port.Float32,
			Layout: layout.New([]int{1}),
			Source: port.Ref{NodeID: "a", Index: 0},
		}},
		outputs: []port.Output{scalarOutput()},
	}
	if err := m.AddNode(b); err != nil {
		t.Fatalf("AddNode(b): %v", err)
	}

	nodes := m.Nodes()
	if len(nodes) != 2 || nodes[0].ID() != "a" || nodes[1].ID() != "b" {
		t.Errorf("Nodes() = %v, want [a b] in topological order", nodeIDs(nodes))
	}

	consumers := m.Consumers(port.Ref{NodeID: "a", Index: 0})
	if len(consumers) != 1 || consumers[0] != (port.Ref{NodeID: "b", Index: 0}) {
		t.Errorf("Consumers = %v, want [{b 0}]", consumers)
	}
}

func TestAddNodeRejectsTypeMismatch(t *testing.T) {
	m := New()
	a := &fakeNode{id: "a", outputs: []port.Output{scalarOutput()}}
	if err := m.AddNode(a); err != nil {
		t.Fatalf("AddNode(a): %v", err)
	}
	b := &fakeNode{
		id: "b",
		inputs: []port.Input{{
			Type:   port.Int32,
			Layout: layout.New([]int{1}),
			Source: port.Ref{NodeID: "a", Index: 0},
		}},
	}
	if err := m.AddNode(b); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestAddNodeRejectsDuplicateID(t *testing.T) {
	m := New()
	a := &fakeNode{id: "a", outputs: []port.Output{scalarOutput()}}
	if err := m.AddNode(a); err != nil {
		t.Fatalf("AddNode(a): %v", err)
	}
	if err := m.AddNode(&fakeNode{id: "a"}); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestReverseNodes(t *testing.T) {
	m := New()
	a := &fakeNode{id: "a", outputs: []port.Output{scalarOutput()}}
	b := &fakeNode{id: "b", inputs: []port.Input{{
		Type: port.Float32, Layout: layout.New([]int{1}), Source: port.Ref{NodeID: "a", Index: 0},
	}}}
	if err := m.AddNode(a); err != nil {
		t.Fatal(err)
	}
	if err := m.AddNode(b); err != nil {
		t.Fatal(err)
	}
	rev := m.ReverseNodes()
	if len(rev) != 2 || rev[0].ID() != "b" || rev[1].ID() != "a" {
		t.Errorf("ReverseNodes() = %v, want [b a]", nodeIDs(rev))
	}
}

func TestSubmodelStopsAtInputBoundary(t *testing.T) {
	m := New()
	a := &fakeNode{id: "a", outputs: []port.Output{scalarOutput()}}
	b := &fakeNode{id: "b", inputs: []port.Input{{
		Type: port.Float32, Layout: layout.New([]int{1}), Source: port.Ref{NodeID: "a", Index: 0},
	}}, outputs: []port.Output{scalarOutput()}}
	c := &fakeNode{id: "c", inputs: []port.Input{{
		Type: port.Float32, Layout: layout.New([]int{1}), Source: port.Ref{NodeID: "b", Index: 0},
	}}}
	for _, n := range []*fakeNode{a, b, c} {
		if err := m.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.id, err)
		}
	}

	sm, err := NewSubmodel(m, []port.Ref{{NodeID: "b", Index: 0}}, []port.Ref{{NodeID: "c", Index: 0}})
	if err != nil {
		t.Fatalf("NewSubmodel: %v", err)
	}
	ids := nodeIDs(sm.Nodes())
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "c" {
		t.Errorf("Submodel.Nodes() = %v, want [b c] (a excluded, past the input boundary)", ids)
	}
}

func nodeIDs(nodes []node.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	return ids
}
