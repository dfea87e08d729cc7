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
	node.Register("Sum", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		if len(inputs) != 1 {
			return nil, errkind.New(errkind.ArchiveMismatch, "Sum node requires exactly one input")
		}
		return NewSum(inputs[0], id), nil
	})
	node.Register("Accumulator", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		if len(inputs) != 1 {
			return nil, errkind.New(errkind.ArchiveMismatch, "Accumulator node requires exactly one input")
		}
		return NewAccumulator(inputs[0], id), nil
	})
}

// SumNode reduces its input tensor to a scalar (spec §8 scenario 1:
// "input [3] float → sum-all node → output").
type SumNode struct {
	base
}

// NewSum constructs a SumNode reading from in.
func NewSum(in port.Input, id ...string) *SumNode {
	out := port.Output{Type: in.Type, Layout: layout.New([]int{1})}
	return &SumNode{base: newBaseWithID(firstID(id), "Sum", 1, []port.Input{in}, []port.Output{out})}
}

func (n *SumNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 1 {
		panic(fmt.Sprintf("nodes: Sum.WithInputs expects 1 input, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *SumNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// Compile accumulates every element of the input into a scalar via a
// local alloca, then loads the final total.
func (n *SumNode) Compile(b emitter.Builder, inputs []emitter.Value) ([]emitter.Value, error) {
	elemType := n.Inputs()[0].Type
	count := n.Inputs()[0].Layout.NumElements()
	acc := b.Alloca(emitter.ScalarType(elemType))
	b.Store(acc, b.ConstScalar(elemType, zeroValueOf(elemType)))
	b.For(b.ConstScalar(port.Int32, int32(0)), b.ConstScalar(port.Int32, int32(count)), 1,
		func(b emitter.Builder, idx emitter.Value) {
			cur := b.Load(acc)
			b.Store(acc, b.Add(cur, b.ElementAt(inputs[0], idx)))
		})
	return []emitter.Value{b.Load(acc)}, nil
}

func zeroValueOf(t port.ElementType) any {
	switch t {
	case port.Bool:
		return false
	case port.Int8, port.Int16, port.Int32, port.Int64:
		return int64(0)
	default:
		return float64(0)
	}
}

// AccumulatorNode is a stateful node: output = input + running total of
// every input seen across repeated CompiledMap.Compute calls (spec §3.1
// "AccumulatorNode", spec §8 scenario 2). It refines into a
// StateAccumulateNode, the primitive the emitter actually compiles — per
// SPEC_FULL §3.1, "AccumulatorNode refines into a constant-zero-initialized
// persistent scratch plus an elementwise add."
type AccumulatorNode struct {
	base
}

// NewAccumulator constructs an AccumulatorNode reading from in.
func NewAccumulator(in port.Input, id ...string) *AccumulatorNode {
	out := port.Output{Type: in.Type, Layout: in.Layout}
	return &AccumulatorNode{base: newBaseWithID(firstID(id), "Accumulator", 1, []port.Input{in}, []port.Output{out})}
}

func (n *AccumulatorNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 1 {
		panic(fmt.Sprintf("nodes: Accumulator.WithInputs expects 1 input, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *AccumulatorNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// Refine emits the single StateAccumulateNode that actually carries the
// running total, reusing the AccumulatorNode's own id as the state key so
// a later re-refinement pass produces the same global name (spec §4.2).
func (n *AccumulatorNode) Refine(sink node.RefineSink) error {
	resolved, err := sink.CorrespondingInputs([]port.Ref{n.Inputs()[0].Source})
	if err != nil {
		return err
	}
	in := n.Inputs()[0]
	in.Source = resolved[0]
	state := NewStateAccumulate(in, n.ID())
	if err := sink.AddNode(state); err != nil {
		return err
	}
	sink.MapOutput(port.Ref{NodeID: n.ID(), Index: 0}, port.Ref{NodeID: state.ID(), Index: 0})
	return nil
}

// StateAccumulateNode is the emitter-compilable primitive behind
// AccumulatorNode: it holds a module-scope mutable global sized to match
// its input/output layout, adds the new input into it on every Compute
// call, and exposes the updated running total as its output (spec §4.6
// "module-scope mutable and immutable globals").
type StateAccumulateNode struct {
	base
	StateKey string
}

// NewStateAccumulate constructs a StateAccumulateNode reading from in.
// stateKey names the module global backing the running total; it defaults
// to the node's own id when empty.
func NewStateAccumulate(in port.Input, stateKey string, id ...string) *StateAccumulateNode {
	out := port.Output{Type: in.Type, Layout: in.Layout}
	n := &StateAccumulateNode{
		base: newBaseWithID(firstID(id), "StateAccumulate", 1, []port.Input{in}, []port.Output{out}),
	}
	if stateKey == "" {
		stateKey = n.ID()
	}
	n.StateKey = stateKey
	return n
}

func (n *StateAccumulateNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 1 {
		panic(fmt.Sprintf("nodes: StateAccumulate.WithInputs expects 1 input, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *StateAccumulateNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// CompileGlobal declares (once, idempotently per unique name) the module
// global backing the running total, adds the new input into it elementwise,
// and returns the updated global as the node's output (spec §3.1, §4.6).
func (n *StateAccumulateNode) CompileGlobal(m emitter.Module, b emitter.Builder, inputs []emitter.Value) ([]emitter.Value, error) {
	elemType := n.Outputs()[0].Type
	count := n.Outputs()[0].Layout.NumElements()
	globalName := "accum_state_" + n.StateKey
	state, err := m.Global(globalName, emitter.ArrayType(elemType, count), true, nil)
	if err != nil {
		return nil, err
	}
	b.For(b.ConstScalar(port.Int32, int32(0)), b.ConstScalar(port.Int32, int32(count)), 1,
		func(b emitter.Builder, idx emitter.Value) {
			sum := b.Add(b.ElementAt(state, idx), b.ElementAt(inputs[0], idx))
			b.SetElementAt(state, idx, sum)
		})
	return []emitter.Value{state}, nil
}
