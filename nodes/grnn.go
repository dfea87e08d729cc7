package nodes

import (
	"fmt"

	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/ir/layout"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
)

func init() {
	node.Register("GRNN", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		if len(inputs) != 1 {
			return nil, errkind.New(errkind.ArchiveMismatch, "GRNN node requires exactly one input")
		}
		weight, _ := params["weight"].([]float64)
		bias, _ := params["bias"].([]float64)
		hidden, _ := params["hidden_size"].(int)
		return NewGRNN(inputs[0], hidden, weight, bias, id)
	})
	node.Register("Clamp", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		if len(inputs) != 1 {
			return nil, errkind.New(errkind.ArchiveMismatch, "Clamp node requires exactly one input")
		}
		lo, _ := params["lo"].(float64)
		hi, _ := params["hi"].(float64)
		return NewClamp(inputs[0], lo, hi, id), nil
	})
}

// GRNNNode represents one gated-recurrent-unit step (the source's
// FastGRNN, spec §1 "stateful nodes for recurrent models"; the spec §9
// design note points out the source left its boolean short-circuit
// handling incomplete — "bugbug: need && operator" — and directs this
// specification's proper boolean algebra in loopnest predicates instead).
// It refines to the primitive building blocks the spec's §4.2 calls for: a
// matrix-vector product, an elementwise nonlinearity, and a scale-shift —
// not a tuned numeric kernel.
type GRNNNode struct {
	base
	HiddenSize int
	Weight     []float64 // flat HiddenSize x input-length, row-major
	Bias       []float64 // length HiddenSize
}

// NewGRNN constructs a GRNNNode. Weight must have HiddenSize*len(input)
// elements; Bias must have HiddenSize elements.
func NewGRNN(in port.Input, hiddenSize int, weight, bias []float64, id ...string) (*GRNNNode, error) {
	inLen := in.Layout.NumElements()
	if len(weight) != hiddenSize*inLen {
		return nil, errkind.New(errkind.ShapeMismatch, "GRNN weight size does not match hidden_size*input length")
	}
	if len(bias) != hiddenSize {
		return nil, errkind.New(errkind.ShapeMismatch, "GRNN bias size does not match hidden_size")
	}
	out := port.Output{Type: in.Type, Layout: layout.New([]int{hiddenSize})}
	return &GRNNNode{
		base:       newBaseWithID(firstID(id), "GRNN", 1, []port.Input{in}, []port.Output{out}),
		HiddenSize: hiddenSize,
		Weight:     append([]float64(nil), weight...),
		Bias:       append([]float64(nil), bias...),
	}, nil
}

func (n *GRNNNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 1 {
		panic(fmt.Sprintf("nodes: GRNN.WithInputs expects 1 input, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *GRNNNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// ArchiveParams records the weight/bias tables and hidden size.
func (n *GRNNNode) ArchiveParams() map[string]any {
	return map[string]any{
		"weight":      append([]float64(nil), n.Weight...),
		"bias":        append([]float64(nil), n.Bias...),
		"hidden_size": n.HiddenSize,
	}
}

// Refine emits weight(const) → MatrixVectorProduct → ScaleShift(bias) →
// Clamp(-1,1), each added fresh into the destination; subsequent
// refinement-driver iterations lower the MatrixVectorProduct and
// ScaleShift nodes the same way any other use of them would be lowered.
func (n *GRNNNode) Refine(sink node.RefineSink) error {
	resolved, err := sink.CorrespondingInputs([]port.Ref{n.Inputs()[0].Source})
	if err != nil {
		return err
	}
	in := n.Inputs()[0]
	in.Source = resolved[0]
	inLen := in.Layout.NumElements()

	weightConst := NewConstant(n.Weight, in.Type)
	if err := sink.AddNode(weightConst); err != nil {
		return err
	}
	weightInput := port.Input{Type: in.Type, Layout: layout.New([]int{n.HiddenSize * inLen}), Source: port.Ref{NodeID: weightConst.ID(), Index: 0}}

	matvec, err := NewMatrixVectorProduct(weightInput, in, n.HiddenSize, inLen)
	if err != nil {
		return err
	}
	if err := sink.AddNode(matvec); err != nil {
		return err
	}

	matvecOut := matvec.Outputs()[0]
	scaleShiftIn := port.Input{Type: matvecOut.Type, Layout: matvecOut.Layout, Source: port.Ref{NodeID: matvec.ID(), Index: 0}}
	unitScale := make([]float64, n.HiddenSize)
	for i := range unitScale {
		unitScale[i] = 1
	}
	biased := NewScaleShift(scaleShiftIn, unitScale, n.Bias)
	if err := sink.AddNode(biased); err != nil {
		return err
	}

	biasedOut := biased.Outputs()[0]
	clampIn := port.Input{Type: biasedOut.Type, Layout: biasedOut.Layout, Source: port.Ref{NodeID: biased.ID(), Index: 0}}
	clamp := NewClamp(clampIn, -1, 1)
	if err := sink.AddNode(clamp); err != nil {
		return err
	}

	sink.MapOutput(port.Ref{NodeID: n.ID(), Index: 0}, port.Ref{NodeID: clamp.ID(), Index: 0})
	return nil
}

// ClampNode is the elementwise nonlinearity GRNNNode refines to in place of
// a transcendental activation function (tanh/sigmoid numeric kernels are an
// external collaborator per spec §1): it compiles directly to a
// conditional clamp of each element into [Lo, Hi].
type ClampNode struct {
	base
	Lo, Hi float64
}

// NewClamp constructs a ClampNode reading from in.
func NewClamp(in port.Input, lo, hi float64, id ...string) *ClampNode {
	out := port.Output{Type: in.Type, Layout: in.Layout}
	return &ClampNode{
		base: newBaseWithID(firstID(id), "Clamp", 1, []port.Input{in}, []port.Output{out}),
		Lo:   lo,
		Hi:   hi,
	}
}

func (n *ClampNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 1 {
		panic(fmt.Sprintf("nodes: Clamp.WithInputs expects 1 input, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *ClampNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// ArchiveParams records the clamp bounds.
func (n *ClampNode) ArchiveParams() map[string]any {
	return map[string]any{"lo": n.Lo, "hi": n.Hi}
}

func (n *ClampNode) Compile(b emitter.Builder, inputs []emitter.Value) ([]emitter.Value, error) {
	elemType := n.Outputs()[0].Type
	count := n.Outputs()[0].Layout.NumElements()
	out := b.Alloca(emitter.ArrayType(elemType, count))
	lo := b.ConstScalar(elemType, n.Lo)
	hi := b.ConstScalar(elemType, n.Hi)
	b.For(b.ConstScalar(port.Int32, int32(0)), b.ConstScalar(port.Int32, int32(count)), 1,
		func(b emitter.Builder, idx emitter.Value) {
			x := b.ElementAt(inputs[0], idx)
			b.If(b.Cmp(emitter.Lt, x, lo), func(b emitter.Builder) {
				b.SetElementAt(out, idx, lo)
			}, []emitter.ElseIf{
				{Cond: b.Cmp(emitter.Gt, x, hi), Then: func(b emitter.Builder) {
					b.SetElementAt(out, idx, hi)
				}},
			}, func(b emitter.Builder) {
				b.SetElementAt(out, idx, x)
			})
		})
	return []emitter.Value{out}, nil
}
