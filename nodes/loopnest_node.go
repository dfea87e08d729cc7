package nodes

import (
	"fmt"

	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
	"github.com/embedml/graphc/loopnest"
)

// LoopNestNode is the bridge between the loop-nest construction layer
// (spec §4.4) and the emitter contract (spec §4.6): it owns a *loopnest.
// Schedule and, on Compile, allocates its own output buffers, binds its
// input/output ports to the Schedule's named views, and lowers the
// Schedule against the current function Builder. Higher-level nodes that
// refine into a loop nest (MatrixVectorProductNode, SimpleForestNode,
// ConvolutionNode, ReorderDataNode) all bottom out in a LoopNestNode — it
// is what makes those refinements emitter-compilable (spec §4.2 "lowered
// into...primitives that the emitter can compile").
type LoopNestNode struct {
	base
	Schedule    *loopnest.Schedule
	InputViews  []string // InputViews[i] names the view bound to Inputs()[i]
	OutputViews []string // OutputViews[j] names the view bound to Outputs()[j]
}

// NewLoopNest constructs a LoopNestNode. inputViews and outputViews must
// have the same length as inputs and outputs respectively.
func NewLoopNest(typeName string, inputs []port.Input, outputs []port.Output, sched *loopnest.Schedule, inputViews, outputViews []string, id ...string) *LoopNestNode {
	if len(inputViews) != len(inputs) {
		panic(fmt.Sprintf("nodes: LoopNestNode %s has %d inputs but %d input views", typeName, len(inputs), len(inputViews)))
	}
	if len(outputViews) != len(outputs) {
		panic(fmt.Sprintf("nodes: LoopNestNode %s has %d outputs but %d output views", typeName, len(outputs), len(outputViews)))
	}
	return &LoopNestNode{
		base:        newBaseWithID(firstID(id), typeName, 1, inputs, outputs),
		Schedule:    sched,
		InputViews:  append([]string(nil), inputViews...),
		OutputViews: append([]string(nil), outputViews...),
	}
}

func (n *LoopNestNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != len(n.InputViews) {
		panic(fmt.Sprintf("nodes: LoopNestNode.WithInputs expects %d inputs, got %d", len(n.InputViews), len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *LoopNestNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// Compile allocates a scratch buffer per output port, lowers the Schedule
// with the input/output views bound, and returns the output buffers.
func (n *LoopNestNode) Compile(b emitter.Builder, inputs []emitter.Value) ([]emitter.Value, error) {
	views := make(map[string]emitter.Value, len(n.InputViews)+len(n.OutputViews))
	for i, vn := range n.InputViews {
		views[vn] = inputs[i]
	}
	outs := n.Outputs()
	outVals := make([]emitter.Value, len(n.OutputViews))
	for j, vn := range n.OutputViews {
		t := emitter.ArrayType(outs[j].Type, outs[j].Layout.NumElements())
		ptr := b.Alloca(t)
		views[vn] = ptr
		outVals[j] = ptr
	}
	if err := n.Schedule.Lower(b, views); err != nil {
		return nil, err
	}
	return outVals, nil
}
