package nodes

import (
	"context"
	"testing"

	"github.com/embedml/graphc/compiledmap"
	"github.com/embedml/graphc/emitter/refimpl"
	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/port"
	"github.com/embedml/graphc/transform"
)

// TestTwoConstantSum exercises spec §8 scenario 1: input [3] float ->
// sum-all -> output; [1,2,3] -> 6.
func TestTwoConstantSum(t *testing.T) {
	m := model.New()
	in := NewInput([]int{3}, port.Float32, "x")
	if err := m.AddNode(in); err != nil {
		t.Fatalf("AddNode(input): %v", err)
	}
	sum := NewSum(port.Input{Type: port.Float32, Layout: in.Outputs()[0].Layout, Source: port.Ref{NodeID: "x", Index: 0}}, "sum")
	if err := m.AddNode(sum); err != nil {
		t.Fatalf("AddNode(sum): %v", err)
	}
	out := NewOutput(port.Input{Type: port.Float32, Layout: sum.Outputs()[0].Layout, Source: port.Ref{NodeID: "sum", Index: 0}}, "y")
	if err := m.AddNode(out); err != nil {
		t.Fatalf("AddNode(output): %v", err)
	}

	mp := compiledmap.NewMap(m)
	if err := mp.NameInput("x", "x"); err != nil {
		t.Fatalf("NameInput: %v", err)
	}
	if err := mp.NameOutput("y", "y"); err != nil {
		t.Fatalf("NameOutput: %v", err)
	}

	cm, err := compiledmap.Compile(context.Background(), mp, refimpl.NewModule(), &transform.Context{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := cm.SetInput("x", []float64{1, 2, 3}); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	if err := cm.Compute(); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	got, err := cm.GetOutput("y")
	if err != nil {
		t.Fatalf("GetOutput: %v", err)
	}
	if len(got) != 1 || got[0] != 6 {
		t.Errorf("GetOutput = %v, want [6]", got)
	}
}

// TestAccumulatorPair exercises spec §8 scenario 2: input [3] float ->
// accumulator -> accumulator -> output, run three times; final output
// [22, 29, 36].
func TestAccumulatorPair(t *testing.T) {
	m := model.New()
	in := NewInput([]int{3}, port.Float32, "x")
	if err := m.AddNode(in); err != nil {
		t.Fatalf("AddNode(input): %v", err)
	}
	acc1 := NewAccumulator(port.Input{Type: port.Float32, Layout: in.Outputs()[0].Layout, Source: port.Ref{NodeID: "x", Index: 0}}, "acc1")
	if err := m.AddNode(acc1); err != nil {
		t.Fatalf("AddNode(acc1): %v", err)
	}
	acc2 := NewAccumulator(port.Input{Type: port.Float32, Layout: acc1.Outputs()[0].Layout, Source: port.Ref{NodeID: "acc1", Index: 0}}, "acc2")
	if err := m.AddNode(acc2); err != nil {
		t.Fatalf("AddNode(acc2): %v", err)
	}
	out := NewOutput(port.Input{Type: port.Float32, Layout: acc2.Outputs()[0].Layout, Source: port.Ref{NodeID: "acc2", Index: 0}}, "y")
	if err := m.AddNode(out); err != nil {
		t.Fatalf("AddNode(output): %v", err)
	}

	mp := compiledmap.NewMap(m)
	if err := mp.NameInput("x", "x"); err != nil {
		t.Fatalf("NameInput: %v", err)
	}
	if err := mp.NameOutput("y", "y"); err != nil {
		t.Fatalf("NameOutput: %v", err)
	}

	cm, err := compiledmap.Compile(context.Background(), mp, refimpl.NewModule(), &transform.Context{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	rounds := [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	var got []float64
	for _, r := range rounds {
		if err := cm.SetInput("x", r); err != nil {
			t.Fatalf("SetInput: %v", err)
		}
		if err := cm.Compute(); err != nil {
			t.Fatalf("Compute: %v", err)
		}
		got, err = cm.GetOutput("y")
		if err != nil {
			t.Fatalf("GetOutput: %v", err)
		}
	}
	want := []float64{22, 29, 36}
	if len(got) != len(want) {
		t.Fatalf("GetOutput length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetOutput[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestRefineAndCompileWindow exercises spec §8 scenario 5: a HammingWindow
// node refines to elementwise_multiply(input, constant); the final model
// contains only emitter-compilable nodes.
func TestRefineAndCompileWindow(t *testing.T) {
	m := model.New()
	in := NewInput([]int{4}, port.Float32, "x")
	if err := m.AddNode(in); err != nil {
		t.Fatalf("AddNode(input): %v", err)
	}
	win := NewHammingWindow(port.Input{Type: port.Float32, Layout: in.Outputs()[0].Layout, Source: port.Ref{NodeID: "x", Index: 0}}, "win")
	if err := m.AddNode(win); err != nil {
		t.Fatalf("AddNode(window): %v", err)
	}
	out := NewOutput(port.Input{Type: port.Float32, Layout: win.Outputs()[0].Layout, Source: port.Ref{NodeID: "win", Index: 0}}, "y")
	if err := m.AddNode(out); err != nil {
		t.Fatalf("AddNode(output): %v", err)
	}

	mp := compiledmap.NewMap(m)
	if err := mp.NameInput("x", "x"); err != nil {
		t.Fatalf("NameInput: %v", err)
	}
	if err := mp.NameOutput("y", "y"); err != nil {
		t.Fatalf("NameOutput: %v", err)
	}

	cm, err := compiledmap.Compile(context.Background(), mp, refimpl.NewModule(), &transform.Context{})
	if err != nil {
		t.Fatalf("Compile (expect refine to elementwise_multiply + constant): %v", err)
	}
	if err := cm.SetInput("x", []float64{1, 1, 1, 1}); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	if err := cm.Compute(); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	got, err := cm.GetOutput("y")
	if err != nil {
		t.Fatalf("GetOutput: %v", err)
	}
	want := hammingCoefficients(4)
	if len(got) != len(want) {
		t.Fatalf("GetOutput length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetOutput[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestReorderDataPermutesElements exercises ReorderDataNode.Refine() lowered
// into a LoopNestNode and compiled/executed end to end (spec §4.2, §4.4): a
// lone reorder {2,0,1} over a canonical [2,3,4] input is not eliminated or
// fused by OptimizeReorderData (there is no paired reorder, and the order
// is not the identity), so RefineAndOptimize must lower it into a strided
// copy whose output buffer holds the permuted element arrangement.
//
// With input[i,j,k] stored at canonical offset i*12+j*4+k, a reorder to
// order {2,0,1} places output's physical axes at (logical2, logical0,
// logical1), so the expected output offset for input element (i,j,k) is
// k*6 + i*3 + j (output extents [4,2,3] give strides [6,3,1]).
func TestReorderDataPermutesElements(t *testing.T) {
	m := model.New()
	in := NewInput([]int{2, 3, 4}, port.Float32, "x")
	if err := m.AddNode(in); err != nil {
		t.Fatalf("AddNode(input): %v", err)
	}
	r := NewReorderData(
		port.Input{Type: port.Float32, Layout: in.Outputs()[0].Layout, Source: port.Ref{NodeID: "x", Index: 0}},
		[]int{2, 0, 1}, "r")
	if err := m.AddNode(r); err != nil {
		t.Fatalf("AddNode(r): %v", err)
	}
	out := NewOutput(port.Input{Type: port.Float32, Layout: r.Outputs()[0].Layout, Source: port.Ref{NodeID: "r", Index: 0}}, "y")
	if err := m.AddNode(out); err != nil {
		t.Fatalf("AddNode(output): %v", err)
	}

	mp := compiledmap.NewMap(m)
	if err := mp.NameInput("x", "x"); err != nil {
		t.Fatalf("NameInput: %v", err)
	}
	if err := mp.NameOutput("y", "y"); err != nil {
		t.Fatalf("NameOutput: %v", err)
	}

	cm, err := compiledmap.Compile(context.Background(), mp, refimpl.NewModule(), &transform.Context{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	input := make([]float64, 24)
	for i := range input {
		input[i] = float64(i)
	}
	if err := cm.SetInput("x", input); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	if err := cm.Compute(); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	got, err := cm.GetOutput("y")
	if err != nil {
		t.Fatalf("GetOutput: %v", err)
	}

	want := make([]float64, 24)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 4; k++ {
				srcOffset := i*12 + j*4 + k
				dstOffset := k*6 + i*3 + j
				want[dstOffset] = input[srcOffset]
			}
		}
	}
	if len(got) != len(want) {
		t.Fatalf("GetOutput length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetOutput[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestReorderInversePairCancelsToPassThrough exercises spec §8 scenario 4's
// numeric consequence: input [2,3,4] canonical -> reorder {2,0,1} ->
// reorder {1,2,0} -> output. {1,2,0} is the inverse of {2,0,1}, so
// RefineAndOptimize's OptimizeReorderData pass (see
// transform.TestOptimizeReorderDataCancelsInversePair) must cancel both
// reorders entirely, leaving the compiled map a pure pass-through.
func TestReorderInversePairCancelsToPassThrough(t *testing.T) {
	m := model.New()
	in := NewInput([]int{2, 3, 4}, port.Float32, "x")
	if err := m.AddNode(in); err != nil {
		t.Fatalf("AddNode(input): %v", err)
	}
	r1 := NewReorderData(
		port.Input{Type: port.Float32, Layout: in.Outputs()[0].Layout, Source: port.Ref{NodeID: "x", Index: 0}},
		[]int{2, 0, 1}, "r1")
	if err := m.AddNode(r1); err != nil {
		t.Fatalf("AddNode(r1): %v", err)
	}
	r2 := NewReorderData(
		port.Input{Type: port.Float32, Layout: r1.Outputs()[0].Layout, Source: port.Ref{NodeID: "r1", Index: 0}},
		[]int{1, 2, 0}, "r2")
	if err := m.AddNode(r2); err != nil {
		t.Fatalf("AddNode(r2): %v", err)
	}
	out := NewOutput(port.Input{Type: port.Float32, Layout: r2.Outputs()[0].Layout, Source: port.Ref{NodeID: "r2", Index: 0}}, "y")
	if err := m.AddNode(out); err != nil {
		t.Fatalf("AddNode(output): %v", err)
	}

	mp := compiledmap.NewMap(m)
	if err := mp.NameInput("x", "x"); err != nil {
		t.Fatalf("NameInput: %v", err)
	}
	if err := mp.NameOutput("y", "y"); err != nil {
		t.Fatalf("NameOutput: %v", err)
	}

	cm, err := compiledmap.Compile(context.Background(), mp, refimpl.NewModule(), &transform.Context{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	input := make([]float64, 24)
	for i := range input {
		input[i] = float64(i)
	}
	if err := cm.SetInput("x", input); err != nil {
		t.Fatalf("SetInput: %v", err)
	}
	if err := cm.Compute(); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	got, err := cm.GetOutput("y")
	if err != nil {
		t.Fatalf("GetOutput: %v", err)
	}
	if len(got) != len(input) {
		t.Fatalf("GetOutput length = %d, want %d", len(got), len(input))
	}
	for i := range input {
		if got[i] != input[i] {
			t.Errorf("GetOutput[%d] = %v, want %v (pass-through)", i, got[i], input[i])
		}
	}
}
