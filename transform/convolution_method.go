package transform

import (
	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/nodes"
	"github.com/embedml/graphc/transform/transformer"
)

func init() {
	Register(setConvolutionMethod{})
}

// setConvolutionMethod implements the SetConvolutionMethod transformation
// (spec §4.3): "Annotates convolutional-layer nodes with a chosen
// algorithm... based on context." Only nodes still at the default
// ConvAutomatic choice are overridden, so an explicit per-node choice made
// upstream of this pass is never clobbered.
type setConvolutionMethod struct{}

func (setConvolutionMethod) Name() string { return "SetConvolutionMethod" }

func (setConvolutionMethod) Apply(source *model.Model, ctx *Context) (*model.Model, error) {
	if ctx.ConvolutionAlgorithm == "" {
		return source, nil
	}
	target := nodes.ConvAlgorithm(ctx.ConvolutionAlgorithm)

	t := transformer.New(source)
	return t.Run(func(n node.Node, tr *transformer.Transformer) error {
		cn, ok := n.(*nodes.ConvolutionNode)
		if !ok || cn.AlgorithmParam() != nodes.ConvAutomatic {
			return tr.CopyNode(n)
		}
		return tr.CopyNodeTransformed(n, func(rewired node.Node) (node.Node, error) {
			return rewired.(*nodes.ConvolutionNode).WithAlgorithm(target), nil
		})
	})
}
