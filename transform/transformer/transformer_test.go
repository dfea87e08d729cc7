package transformer

import (
	"testing"

	"github.com/embedml/graphc/ir/layout"
	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
)

// echoNode is a minimal Rewirable node.Node used to test the identity
// transform property (spec §8: "for all valid Models m and identity-visit
// transformers t, t(m) ≡ m").
type echoNode struct {
	id      string
	inputs  []port.Input
	outputs []port.Output
}

func (n *echoNode) ID() string              { return n.id }
func (n *echoNode) TypeName() string        { return "echo" }
func (n *echoNode) SchemaVersion() int      { return 1 }
func (n *echoNode) Inputs() []port.Input    { return n.inputs }
func (n *echoNode) Outputs() []port.Output  { return n.outputs }
func (n *echoNode) Metadata() node.Metadata { return nil }
func (n *echoNode) WithInputs(inputs []port.Input) node.Node {
	return &echoNode{id: n.id, inputs: inputs, outputs: n.outputs}
}

func scalar() port.Output {
	return port.Output{Type: port.Float32, Layout: layout.New([]int{1})}
}

func buildChain(t *testing.T) *model.Model {
	t.Helper()
	m := model.New()
	a := &echoNode{id: "a", outputs: []port.Output{scalar()}}
	if err := m.AddNode(a); err != nil {
		t.Fatalf("AddNode(a): %v", err)
	}
	b := &echoNode{
		id: "b",
		inputs: []port.Input{{
			Type: port.Float32, Layout: layout.New([]int{1}),
			Source: port.Ref{NodeID: "a", Index: 0},
		}},
		outputs: []port.Output{scalar()},
	}
	if err := m.AddNode(b); err != nil {
		t.Fatalf("AddNode(b): %v", err)
	}
	return m
}

func TestIdentityTransformPreservesStructure(t *testing.T) {
	src := buildChain(t)
	tr := New(src)
	dest, err := tr.Run(func(n node.Node, t *Transformer) error {
		return t.CopyNode(n)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if dest.Len() != src.Len() {
		t.Fatalf("dest.Len() = %d, want %d", dest.Len(), src.Len())
	}
	for i, n := range src.Nodes() {
		dn := dest.Nodes()[i]
		if n.ID() != dn.ID() || n.TypeName() != dn.TypeName() {
			t.Errorf("node %d: got (%s,%s), want (%s,%s)", i, dn.ID(), dn.TypeName(), n.ID(), n.TypeName())
		}
	}
}

func TestOutOfOrderVisitErrors(t *testing.T) {
	src := buildChain(t)
	tr := New(src)
	_, err := tr.Run(func(n node.Node, t *Transformer) error {
		if n.ID() == "b" {
			// "b" is visited in topological order, but we never copied "a"
			// first in this broken visit function, so µ has no entry for
			// a's output.
			return t.CopyNode(n)
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected out-of-order-visit error when a's output was never mapped")
	}
}

func TestMapOutputOverwritesExistingEntry(t *testing.T) {
	src := buildChain(t)
	tr := New(src)
	srcRef := port.Ref{NodeID: "a", Index: 0}
	tr.MapOutput(srcRef, port.Ref{NodeID: "x", Index: 0})
	tr.MapOutput(srcRef, port.Ref{NodeID: "y", Index: 0})
	got, err := tr.Resolve(srcRef)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != (port.Ref{NodeID: "y", Index: 0}) {
		t.Errorf("Resolve() = %v, want {y 0}", got)
	}
}
