package transform

import (
	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/transform/transformer"
)

func init() {
	Register(setCompilerOptions{})
}

// setCompilerOptions implements the SetCompilerOptions transformation
// (spec §4.3): "Copies a property bag into model- and node-level metadata;
// does not restructure." Model-level metadata is represented by ctx itself
// (every later pass and the emitter can read ctx.CompilerOptions directly)
// rather than a new Model field — see DESIGN.md — so this pass only needs
// to propagate the bag onto each node's own Metadata.
type setCompilerOptions struct{}

func (setCompilerOptions) Name() string { return "SetCompilerOptions" }

func (setCompilerOptions) Apply(source *model.Model, ctx *Context) (*model.Model, error) {
	if len(ctx.CompilerOptions) == 0 {
		return source, nil
	}
	overlay := make(node.Metadata, len(ctx.CompilerOptions))
	for k, v := range ctx.CompilerOptions {
		overlay[k] = v
	}

	t := transformer.New(source)
	return t.Run(func(n node.Node, tr *transformer.Transformer) error {
		wm, ok := n.(node.WithMetadata)
		if !ok {
			return tr.CopyNode(n)
		}
		return tr.CopyNodeTransformed(n, func(rewired node.Node) (node.Node, error) {
			rewiredWM, ok := rewired.(node.WithMetadata)
			if !ok {
				return rewired, nil
			}
			merged := make(node.Metadata, len(rewired.Metadata())+len(overlay))
			for k, v := range rewired.Metadata() {
				merged[k] = v
			}
			for k, v := range overlay {
				merged[k] = v
			}
			return rewiredWM.WithMetadata(merged), nil
		})
	})
}
