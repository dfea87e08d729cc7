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
	node.Register("ScaleShift", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		a, _ := params["a"].([]float64)
		b, _ := params["b"].([]float64)
		if len(inputs) != 1 {
			return nil, errkind.New(errkind.ArchiveMismatch, "ScaleShift node requires exactly one input")
		}
		return NewScaleShift(inputs[0], a, b, id), nil
	})
}

// ScaleShiftNode applies x ↦ a·x + b elementwise along the broadcast axis
// (spec §4.3 "FuseLinearOperations"). A and B must have the same length as
// the input's active size.
type ScaleShiftNode struct {
	base
	A []float64
	B []float64
}

// NewScaleShift constructs a ScaleShiftNode reading from in, scaling by a
// and shifting by b elementwise.
func NewScaleShift(in port.Input, a, b []float64, id ...string) *ScaleShiftNode {
	if len(a) != len(b) {
		panic(fmt.Sprintf("nodes: ScaleShift a/b length mismatch: %d vs %d", len(a), len(b)))
	}
	out := port.Output{Type: in.Type, Layout: layout.New([]int{len(a)})}
	return &ScaleShiftNode{
		base: newBaseWithID(firstID(id), "ScaleShift", 1, []port.Input{in}, []port.Output{out}),
		A:    append([]float64(nil), a...),
		B:    append([]float64(nil), b...),
	}
}

func (n *ScaleShiftNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 1 {
		panic(fmt.Sprintf("nodes: ScaleShift.WithInputs expects 1 input, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *ScaleShiftNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// ArchiveParams records the scale and shift coefficients.
func (n *ScaleShiftNode) ArchiveParams() map[string]any {
	return map[string]any{
		"a": append([]float64(nil), n.A...),
		"b": append([]float64(nil), n.B...),
	}
}

// ComposedWith returns the ScaleShift equivalent to applying n first and
// then outer: (a₂,b₂)∘(a₁,b₁) = (a₂·a₁, a₂·b₁+b₂) (spec §4.3, §8).
func (n *ScaleShiftNode) ComposedWith(outer *ScaleShiftNode) (a, b []float64) {
	a = make([]float64, len(n.A))
	b = make([]float64, len(n.B))
	for i := range n.A {
		a[i] = outer.A[i] * n.A[i]
		b[i] = outer.A[i]*n.B[i] + outer.B[i]
	}
	return a, b
}

// Compile renders the per-element a*x+b as a counted loop over the output's
// element count, reading from the single materialized input pointer and
// writing into a freshly allocated output buffer (spec §4.6).
func (n *ScaleShiftNode) Compile(b emitter.Builder, inputs []emitter.Value) ([]emitter.Value, error) {
	elemType := n.Outputs()[0].Type
	count := len(n.A)
	out := b.Alloca(emitter.ArrayType(elemType, count))
	aLit := make([]any, count)
	bLit := make([]any, count)
	for i := range n.A {
		aLit[i] = castLiteral(elemType, n.A[i])
		bLit[i] = castLiteral(elemType, n.B[i])
	}
	aArr := b.ConstArray(elemType, aLit)
	bArr := b.ConstArray(elemType, bLit)
	b.For(b.ConstScalar(port.Int32, int32(0)), b.ConstScalar(port.Int32, int32(count)), 1,
		func(b emitter.Builder, idx emitter.Value) {
			x := b.ElementAt(inputs[0], idx)
			scaled := b.Mul(x, b.ElementAt(aArr, idx))
			shifted := b.Add(scaled, b.ElementAt(bArr, idx))
			b.SetElementAt(out, idx, shifted)
		})
	return []emitter.Value{out}, nil
}
