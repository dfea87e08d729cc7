package transform

import (
	"testing"

	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/port"
	"github.com/embedml/graphc/nodes"
)

// TestSetConvolutionMethodAnnotatesAutomatic verifies that
// SetConvolutionMethod overrides only ConvolutionNodes still at the
// default "automatic" choice (spec §4.3 "SetConvolutionMethod").
func TestSetConvolutionMethodAnnotatesAutomatic(t *testing.T) {
	m := model.New()
	in := nodes.NewInput([]int{8}, port.Float32, "x")
	if err := m.AddNode(in); err != nil {
		t.Fatalf("AddNode(input): %v", err)
	}
	kernel := nodes.NewConstant([]float64{1, 1, 1}, port.Float32, "k")
	if err := m.AddNode(kernel); err != nil {
		t.Fatalf("AddNode(kernel): %v", err)
	}
	conv, err := nodes.NewConvolution(
		port.Input{Type: port.Float32, Layout: in.Outputs()[0].Layout, Source: port.Ref{NodeID: "x", Index: 0}},
		port.Input{Type: port.Float32, Layout: kernel.Outputs()[0].Layout, Source: port.Ref{NodeID: "k", Index: 0}},
		nodes.ConvAutomatic, "conv")
	if err != nil {
		t.Fatalf("NewConvolution: %v", err)
	}
	if err := m.AddNode(conv); err != nil {
		t.Fatalf("AddNode(conv): %v", err)
	}
	explicit, err := nodes.NewConvolution(
		port.Input{Type: port.Float32, Layout: in.Outputs()[0].Layout, Source: port.Ref{NodeID: "x", Index: 0}},
		port.Input{Type: port.Float32, Layout: kernel.Outputs()[0].Layout, Source: port.Ref{NodeID: "k", Index: 0}},
		nodes.ConvDiagonal, "conv_explicit")
	if err != nil {
		t.Fatalf("NewConvolution: %v", err)
	}
	if err := m.AddNode(explicit); err != nil {
		t.Fatalf("AddNode(conv_explicit): %v", err)
	}

	tr, ok := ByName("SetConvolutionMethod")
	if !ok {
		t.Fatal("SetConvolutionMethod not registered")
	}
	out, err := tr.Apply(m, &Context{ConvolutionAlgorithm: string(nodes.ConvWinograd)})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, _ := out.NodeByID("conv")
	if got.(*nodes.ConvolutionNode).Algorithm != nodes.ConvWinograd {
		t.Errorf("conv.Algorithm = %v, want %v", got.(*nodes.ConvolutionNode).Algorithm, nodes.ConvWinograd)
	}
	gotExplicit, _ := out.NodeByID("conv_explicit")
	if gotExplicit.(*nodes.ConvolutionNode).Algorithm != nodes.ConvDiagonal {
		t.Errorf("conv_explicit.Algorithm = %v, want unchanged %v", gotExplicit.(*nodes.ConvolutionNode).Algorithm, nodes.ConvDiagonal)
	}
}

// TestSetConvolutionMethodNoopWithoutContext verifies the pass leaves the
// model untouched when no default algorithm is configured.
func TestSetConvolutionMethodNoopWithoutContext(t *testing.T) {
	m := model.New()
	in := nodes.NewInput([]int{4}, port.Float32, "x")
	if err := m.AddNode(in); err != nil {
		t.Fatalf("AddNode(input): %v", err)
	}
	tr, _ := ByName("SetConvolutionMethod")
	out, err := tr.Apply(m, &Context{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out != m {
		t.Error("SetConvolutionMethod with empty context should return the source model unchanged")
	}
}
