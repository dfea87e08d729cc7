package transform

import (
	"testing"

	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/port"
	"github.com/embedml/graphc/nodes"
)

// TestFuseLinearOperations exercises spec §8 scenario 3: input [4] float ->
// scale-shift (a=2,b=1) -> scale-shift (a=3,b=0) -> output. After
// FuseLinearOperations the model contains one scale-shift with a=6, b=3.
func TestFuseLinearOperations(t *testing.T) {
	m := model.New()
	in := nodes.NewInput([]int{4}, port.Float32, "x")
	if err := m.AddNode(in); err != nil {
		t.Fatalf("AddNode(input): %v", err)
	}
	ss1 := nodes.NewScaleShift(
		port.Input{Type: port.Float32, Layout: in.Outputs()[0].Layout, Source: port.Ref{NodeID: "x", Index: 0}},
		[]float64{2, 2, 2, 2}, []float64{1, 1, 1, 1}, "ss1")
	if err := m.AddNode(ss1); err != nil {
		t.Fatalf("AddNode(ss1): %v", err)
	}
	ss2 := nodes.NewScaleShift(
		port.Input{Type: port.Float32, Layout: ss1.Outputs()[0].Layout, Source: port.Ref{NodeID: "ss1", Index: 0}},
		[]float64{3, 3, 3, 3}, []float64{0, 0, 0, 0}, "ss2")
	if err := m.AddNode(ss2); err != nil {
		t.Fatalf("AddNode(ss2): %v", err)
	}
	out := nodes.NewOutput(
		port.Input{Type: port.Float32, Layout: ss2.Outputs()[0].Layout, Source: port.Ref{NodeID: "ss2", Index: 0}}, "y")
	if err := m.AddNode(out); err != nil {
		t.Fatalf("AddNode(output): %v", err)
	}

	fused, err := ByNameApply(t, "FuseLinearOperations", m)
	if err != nil {
		t.Fatalf("FuseLinearOperations: %v", err)
	}

	var found *nodes.ScaleShiftNode
	count := 0
	for _, n := range fused.Nodes() {
		if ss, ok := n.(*nodes.ScaleShiftNode); ok {
			found = ss
			count++
		}
	}
	if count != 1 {
		t.Fatalf("got %d ScaleShiftNode(s) after fusion, want 1", count)
	}
	wantA := []float64{6, 6, 6, 6}
	wantB := []float64{3, 3, 3, 3}
	for i := range wantA {
		if found.A[i] != wantA[i] || found.B[i] != wantB[i] {
			t.Errorf("fused coefficients = (a=%v, b=%v), want (a=%v, b=%v)", found.A, found.B, wantA, wantB)
		}
	}

	// The fused producer must still point at the original input.
	if found.Inputs()[0].Source.NodeID != in.ID() {
		t.Errorf("fused node's source = %q, want %q", found.Inputs()[0].Source.NodeID, in.ID())
	}
}

// ByNameApply looks up a registered Transformation by name and applies it,
// failing the test if it is not registered.
func ByNameApply(t *testing.T, name string, m *model.Model) (*model.Model, error) {
	t.Helper()
	tr, ok := ByName(name)
	if !ok {
		t.Fatalf("transformation %q not registered", name)
	}
	return tr.Apply(m, &Context{})
}
