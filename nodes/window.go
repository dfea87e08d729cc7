package nodes

import (
	"fmt"
	"math"

	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/ir/layout"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
)

func init() {
	node.Register("HammingWindow", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		if len(inputs) != 1 {
			return nil, errkind.New(errkind.ArchiveMismatch, "HammingWindow node requires exactly one input")
		}
		return NewHammingWindow(inputs[0], id), nil
	})
}

// HammingWindowNode applies a fixed-length Hamming window to its input by
// elementwise multiplication (spec §3.1 "HammingWindowNode", spec §8
// scenario 5, grounded in
// original_source/libraries/nodes/include/HammingWindowNode.h). It refines
// to ConstantNode(window values) + ElementwiseMultiplyNode; computing the
// window coefficients is a one-line closed form, not a DSP-library
// concern, so it is kept inline here rather than deferred to an external
// collaborator.
type HammingWindowNode struct {
	base
}

// NewHammingWindow constructs a HammingWindowNode reading from in.
func NewHammingWindow(in port.Input, id ...string) *HammingWindowNode {
	out := port.Output{Type: in.Type, Layout: in.Layout}
	return &HammingWindowNode{base: newBaseWithID(firstID(id), "HammingWindow", 1, []port.Input{in}, []port.Output{out})}
}

func (n *HammingWindowNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 1 {
		panic(fmt.Sprintf("nodes: HammingWindow.WithInputs expects 1 input, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *HammingWindowNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// hammingCoefficients returns the standard Hamming window of length n:
// w[i] = 0.54 - 0.46*cos(2*pi*i/(n-1)).
func hammingCoefficients(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Refine emits a ConstantNode holding the window coefficients and an
// ElementwiseMultiplyNode combining it with the resolved input (spec §8
// scenario 5: "A high-level windowing node refines to
// elementwise_multiply(input, constant_window_values); the constant node
// refines to an immediate value load; the multiply compiles directly").
func (n *HammingWindowNode) Refine(sink node.RefineSink) error {
	resolved, err := sink.CorrespondingInputs([]port.Ref{n.Inputs()[0].Source})
	if err != nil {
		return err
	}
	in := n.Inputs()[0]
	in.Source = resolved[0]

	count := in.Layout.NumElements()
	coeffs := hammingCoefficients(count)
	constNode := NewConstant(coeffs, in.Type)
	if err := sink.AddNode(constNode); err != nil {
		return err
	}

	constInput := port.Input{
		Type:   in.Type,
		Layout: layout.New([]int{count}),
		Source: port.Ref{NodeID: constNode.ID(), Index: 0},
	}
	mulNode, err := NewElementwiseMultiply(in, constInput)
	if err != nil {
		return err
	}
	if err := sink.AddNode(mulNode); err != nil {
		return err
	}
	sink.MapOutput(port.Ref{NodeID: n.ID(), Index: 0}, port.Ref{NodeID: mulNode.ID(), Index: 0})
	return nil
}
