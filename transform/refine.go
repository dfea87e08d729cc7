package transform

import (
	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/transform/transformer"
)

func init() {
	Register(refine{})
}

// defaultRefineLimit bounds a single Refine pass application (spec §4.2:
// "The default limit is small, e.g. 10").
const defaultRefineLimit = 10

// refine implements the Refine transformation (spec §4.2 "Refinement
// loop"): every node that is not already compilable, and does expose a
// Refiner capability, is asked to emit its equivalent subgraph; nodes that
// are already compilable, or are graph boundaries (Input/Output), pass
// through unchanged.
type refine struct{}

func (refine) Name() string { return "Refine" }

func (refine) Apply(source *model.Model, ctx *Context) (*model.Model, error) {
	t := transformer.New(source)
	return t.Run(func(n node.Node, tr *transformer.Transformer) error {
		if isNodeReady(n) {
			return tr.CopyNode(n)
		}
		if node.IsRefinable(n) {
			return tr.RefineNode(n)
		}
		return tr.CopyNode(n)
	})
}

// isNodeReady reports whether n needs no further refinement: it already
// compiles directly, or it is a graph boundary node that never implements
// Compiler or Refiner in the first place (spec §4.2 "every node in the
// current model is compilable", generalized to treat Input/Output as
// trivially satisfying that condition).
func isNodeReady(n node.Node) bool {
	if node.IsCompilable(n) {
		return true
	}
	switch n.TypeName() {
	case "Input", "Output":
		return true
	}
	return false
}

// allReady reports whether every node in m is ready to compile, the Refine
// loop's termination condition (spec §4.2).
func allReady(m *model.Model) bool {
	for _, n := range m.Nodes() {
		if !isNodeReady(n) {
			return false
		}
	}
	return true
}

// RunRefineLoop applies the Refine transformation repeatedly until every
// node is ready to compile or limit is exhausted, returning a
// RefinementLoop error in the latter case (spec §4.2: "If the limit is
// reached and the model still contains non-compilable nodes, compilation
// fails").  limit<=0 selects defaultRefineLimit.
func RunRefineLoop(source *model.Model, ctx *Context, limit int) (*model.Model, error) {
	if limit <= 0 {
		limit = defaultRefineLimit
	}
	current := source
	for i := 0; i < limit; i++ {
		if allReady(current) {
			return current, nil
		}
		next, err := refine{}.Apply(current, ctx)
		if err != nil {
			return nil, err
		}
		current = next
	}
	if allReady(current) {
		return current, nil
	}
	return nil, errkind.Newf(errkind.RefinementLoop, "model still contains non-compilable nodes after %d refine iterations", limit)
}
