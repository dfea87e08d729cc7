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
	node.Register("Input", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		shape, _ := params["shape"].([]int)
		elemType, _ := params["type"].(port.ElementType)
		return NewInput(shape, elemType, id), nil
	})
	node.Register("Constant", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		values, _ := params["values"].([]float64)
		elemType, _ := params["type"].(port.ElementType)
		return NewConstant(values, elemType, id), nil
	})
	node.Register("Output", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		if len(inputs) != 1 {
			return nil, errkind.New(errkind.ArchiveMismatch, "Output node requires exactly one input")
		}
		return NewOutput(inputs[0], id), nil
	})
}

// InputNode is a Map-named source boundary node: a leaf with one output
// port and the shape/type a caller's set_input call must match (spec §3.1
// "InputNode/OutputNode", spec §4.7 "set_input with a runtime element-type
// check and layout-size check").
type InputNode struct {
	base
}

// NewInput constructs an InputNode advertising a single output of the
// given shape and element type. id, if given, fixes the node's identifier
// (used by archive.Decode to restore an archived identity); omitted or
// empty, an id is generated.
func NewInput(shape []int, elemType port.ElementType, id ...string) *InputNode {
	out := port.Output{Type: elemType, Layout: layout.New(shape)}
	return &InputNode{base: newBaseWithID(firstID(id), "Input", 1, nil, []port.Output{out})}
}

func (n *InputNode) WithInputs(inputs []port.Input) node.Node {
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *InputNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// ArchiveParams records the output shape and element type so archive.Decode
// can rebuild this InputNode without a producer to infer them from.
func (n *InputNode) ArchiveParams() map[string]any {
	return map[string]any{
		"shape": append([]int(nil), n.Outputs()[0].Layout.ActiveSize...),
		"type":  n.Outputs()[0].Type,
	}
}

// ConstantNode holds an immediate literal; its Compile step is the
// "immediate value load" spec §8 scenario 5 describes for a refined
// windowing node's constant operand.
type ConstantNode struct {
	base
	Values   []float64
	ElemType port.ElementType
}

// NewConstant constructs a ConstantNode over a flat literal of the given
// element type.
func NewConstant(values []float64, elemType port.ElementType, id ...string) *ConstantNode {
	out := port.Output{Type: elemType, Layout: layout.New([]int{len(values)})}
	return &ConstantNode{
		base:     newBaseWithID(firstID(id), "Constant", 1, nil, []port.Output{out}),
		Values:   append([]float64(nil), values...),
		ElemType: elemType,
	}
}

func (n *ConstantNode) WithInputs(inputs []port.Input) node.Node {
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *ConstantNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// Compile emits a constant array literal as the node's single output
// (spec §4.6 "literal constructors... for constant arrays").
func (n *ConstantNode) Compile(b emitter.Builder, inputs []emitter.Value) ([]emitter.Value, error) {
	literal := make([]any, len(n.Values))
	for i, v := range n.Values {
		literal[i] = castLiteral(n.ElemType, v)
	}
	return []emitter.Value{b.ConstArray(n.ElemType, literal)}, nil
}

// ArchiveParams records the literal values and element type.
func (n *ConstantNode) ArchiveParams() map[string]any {
	return map[string]any{
		"values": append([]float64(nil), n.Values...),
		"type":   n.ElemType,
	}
}

func castLiteral(t port.ElementType, v float64) any {
	switch t {
	case port.Bool:
		return v != 0
	case port.Int8, port.Int16, port.Int32, port.Int64:
		return int64(v)
	default:
		return v
	}
}

// OutputNode marks a Map-named readback boundary: a sink with one input
// port and no outputs.
type OutputNode struct {
	base
}

// NewOutput constructs an OutputNode reading from the given source.
func NewOutput(in port.Input, id ...string) *OutputNode {
	return &OutputNode{base: newBaseWithID(firstID(id), "Output", 1, []port.Input{in}, nil)}
}

func (n *OutputNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 1 {
		panic(fmt.Sprintf("nodes: OutputNode.WithInputs expects 1 input, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *OutputNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// OutputNode is intentionally not node.Compiler: the compiledmap driver
// special-cases "Output" nodes to store their resolved input Value into
// the module global CompiledMap.GetOutput reads back from (spec §4.7),
// rather than dispatching through the generic per-node Compile path.
