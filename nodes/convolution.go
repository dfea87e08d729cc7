package nodes

import (
	"fmt"

	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/internal/logx"
	"github.com/embedml/graphc/ir/layout"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
	"github.com/embedml/graphc/loopnest"
)

// ConvAlgorithm is the closed set of convolution algorithms
// SetConvolutionMethod chooses among (spec §4.3 "SetConvolutionMethod").
type ConvAlgorithm string

const (
	ConvAutomatic ConvAlgorithm = "automatic"
	ConvDiagonal  ConvAlgorithm = "diagonal"
	ConvSimple    ConvAlgorithm = "simple"
	ConvWinograd  ConvAlgorithm = "winograd"
	ConvUnrolled  ConvAlgorithm = "unrolled"
)

func init() {
	node.Register("Convolution", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		if len(inputs) != 2 {
			return nil, errkind.New(errkind.ArchiveMismatch, "Convolution node requires exactly two inputs")
		}
		alg, _ := params["algorithm"].(string)
		return NewConvolution(inputs[0], inputs[1], ConvAlgorithm(alg), id)
	})
}

// ConvolutionNode computes a 1-D valid convolution of Input (length N)
// against a Kernel operand (length K), producing a length N-K+1 output.
// It carries the algorithm-choice property SetConvolutionMethod annotates
// (spec §3.1 "ConvolutionNode", spec §4.3) and refines into different loop
// nests depending on Algorithm.
type ConvolutionNode struct {
	base
	Algorithm ConvAlgorithm
}

// NewConvolution constructs a ConvolutionNode. alg defaults to
// ConvAutomatic when empty.
func NewConvolution(in, kernel port.Input, alg ConvAlgorithm, id ...string) (*ConvolutionNode, error) {
	if in.Type != kernel.Type {
		return nil, errkind.New(errkind.TypeMismatch, "Convolution operands disagree on element type")
	}
	n := in.Layout.NumElements()
	k := kernel.Layout.NumElements()
	if k > n {
		return nil, errkind.New(errkind.ShapeMismatch, "Convolution kernel longer than input")
	}
	if alg == "" {
		alg = ConvAutomatic
	}
	out := port.Output{Type: in.Type, Layout: layout.New([]int{n - k + 1})}
	return &ConvolutionNode{
		base:      newBaseWithID(firstID(id), "Convolution", 1, []port.Input{in, kernel}, []port.Output{out}),
		Algorithm: alg,
	}, nil
}

// AlgorithmParam returns the node's chosen algorithm, used by
// SetConvolutionMethod without a type switch over every node kind.
func (n *ConvolutionNode) AlgorithmParam() ConvAlgorithm { return n.Algorithm }

// WithAlgorithm returns a copy of n annotated with alg, used by
// SetConvolutionMethod (spec §4.3).
func (n *ConvolutionNode) WithAlgorithm(alg ConvAlgorithm) *ConvolutionNode {
	cp := *n
	cp.Algorithm = alg
	return &cp
}

func (n *ConvolutionNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 2 {
		panic(fmt.Sprintf("nodes: Convolution.WithInputs expects 2 inputs, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *ConvolutionNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// ArchiveParams records the chosen algorithm.
func (n *ConvolutionNode) ArchiveParams() map[string]any {
	return map[string]any{"algorithm": string(n.Algorithm)}
}

// Refine lowers the convolution into a two-index (out position, kernel
// tap) loop nest. ConvDiagonal and ConvSimple differ only in bookkeeping
// in the original source; here both take the same un-unrolled loop shape.
// ConvUnrolled fully unrolls the tap index. ConvWinograd and ConvAutomatic
// fall back to the simple path with a logged note: a true Winograd
// transform is a numeric-kernel concern out of the core's scope (spec §1).
func (n *ConvolutionNode) Refine(sink node.RefineSink) error {
	resolved, err := sink.CorrespondingInputs([]port.Ref{n.Inputs()[0].Source, n.Inputs()[1].Source})
	if err != nil {
		return err
	}
	in, kernel := n.Inputs()[0], n.Inputs()[1]
	in.Source, kernel.Source = resolved[0], resolved[1]

	switch n.Algorithm {
	case ConvWinograd, ConvAutomatic:
		logx.L().Warn("convolution algorithm not implemented, falling back to simple", "algorithm", n.Algorithm, "node", n.ID())
	}

	elemType := n.Outputs()[0].Type
	outLen := n.Outputs()[0].Layout.NumElements()
	tapLen := n.Inputs()[1].Layout.NumElements()

	sched := loopnest.NewSchedule()
	if _, err := sched.AddIndex("o", 0, outLen); err != nil {
		return err
	}
	if _, err := sched.AddIndex("k", 0, tapLen); err != nil {
		return err
	}
	if n.Algorithm == ConvUnrolled {
		if err := sched.Unroll("k"); err != nil {
			return err
		}
	}

	zeroKernel := loopnest.NewKernel("conv_zero", []string{"out"}, func(b emitter.Builder, point, views map[string]emitter.Value) {
		b.SetElementAt(views["out"], point["o"], b.ConstScalar(elemType, zeroValueOf(elemType)))
	})
	if err := sched.AddKernel(zeroKernel, loopnest.Predicate{}, []string{"o"}, map[string]string{"out": "out"}); err != nil {
		return err
	}

	macKernel := loopnest.NewKernel("conv_mac", []string{"in", "kernel", "out"}, func(b emitter.Builder, point, views map[string]emitter.Value) {
		inIdx := b.Add(point["o"], point["k"])
		term := b.Mul(b.ElementAt(views["in"], inIdx), b.ElementAt(views["kernel"], point["k"]))
		cur := b.ElementAt(views["out"], point["o"])
		b.SetElementAt(views["out"], point["o"], b.Add(cur, term))
	})
	if err := sched.AddKernel(macKernel, loopnest.Predicate{}, nil, map[string]string{"in": "in", "kernel": "kernel", "out": "out"}); err != nil {
		return err
	}

	loopNode := NewLoopNest("ConvolutionLowered", []port.Input{in, kernel}, n.Outputs(), sched, []string{"in", "kernel"}, []string{"out"})
	if err := sink.AddNode(loopNode); err != nil {
		return err
	}
	sink.MapOutput(port.Ref{NodeID: n.ID(), Index: 0}, port.Ref{NodeID: loopNode.ID(), Index: 0})
	return nil
}
