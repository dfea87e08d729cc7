package nodes

import (
	"fmt"

	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/ir/layout"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
	"github.com/embedml/graphc/loopnest"
)

func init() {
	node.Register("ReorderData", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		order, _ := params["order"].([]int)
		if len(inputs) != 1 {
			return nil, errkind.New(errkind.ArchiveMismatch, "ReorderData node requires exactly one input")
		}
		return NewReorderData(inputs[0], order, id), nil
	})
}

// ReorderDataNode changes a port's logical dimension order without
// changing the logical shape it carries (spec §3.1 "ReorderDataNode",
// spec §8 scenario 4). It is the target of OptimizeReorderData, which
// cancels an identity-composed pair and fuses adjacent pairs via
// layout.ComposeOrder; this package only needs to expose its Order so the
// transform package can do that without a type switch.
type ReorderDataNode struct {
	base
	Order []int
}

// NewReorderData constructs a ReorderDataNode reordering in to order. The
// logical shape in carries must survive the reorder unchanged, so the
// output's Extent and ActiveSize are in's, permuted by order rather than
// copied verbatim: ActiveSize_out[p] = logicalShapeOf(in.Layout)[order[p]]
// (and likewise for Extent), matching the logical->physical relabeling
// Refine already performs via logicalShapeOf/invertOrder.
func NewReorderData(in port.Input, order []int, id ...string) *ReorderDataNode {
	inActiveLogical := logicalOf(in.Layout.ActiveSize, in.Layout.LogicalOrder)
	inExtentLogical := logicalOf(in.Layout.Extent, in.Layout.LogicalOrder)
	outActiveSize := make([]int, len(order))
	outExtent := make([]int, len(order))
	for physical, logical := range order {
		outActiveSize[physical] = inActiveLogical[logical]
		outExtent[physical] = inExtentLogical[logical]
	}

	out := port.Output{
		Type: in.Type,
		Layout: layout.Layout{
			Extent:       outExtent,
			ActiveSize:   outActiveSize,
			Offset:       make([]int, len(order)),
			LogicalOrder: append([]int(nil), order...),
		},
	}
	return &ReorderDataNode{
		base:  newBaseWithID(firstID(id), "ReorderData", 1, []port.Input{in}, []port.Output{out}),
		Order: append([]int(nil), order...),
	}
}

// OrderParam returns the node's permutation, used by OptimizeReorderData
// (spec §4.3) without requiring it to import package nodes for a type
// switch over every concrete node kind.
func (n *ReorderDataNode) OrderParam() []int { return n.Order }

func (n *ReorderDataNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 1 {
		panic(fmt.Sprintf("nodes: ReorderData.WithInputs expects 1 input, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *ReorderDataNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// ArchiveParams records the permutation.
func (n *ReorderDataNode) ArchiveParams() map[string]any {
	return map[string]any{"order": append([]int(nil), n.Order...)}
}

// Refine lowers the reorder into a LoopNestNode performing a general
// strided copy: one Index per logical axis, a single kernel computing the
// source and destination physical offsets from the loop variables via each
// side's Strides() and LogicalOrder (spec §4.2, §4.4).
func (n *ReorderDataNode) Refine(sink node.RefineSink) error {
	resolved, err := sink.CorrespondingInputs([]port.Ref{n.Inputs()[0].Source})
	if err != nil {
		return err
	}
	in := n.Inputs()[0]
	in.Source = resolved[0]

	inLayout := in.Layout
	outLayout := n.Outputs()[0].Layout
	shape := logicalShapeOf(inLayout)
	dim := len(shape)

	inStrides := inLayout.Strides()
	outStrides := outLayout.Strides()
	inPhysicalOf := invertOrder(inLayout.LogicalOrder)
	outPhysicalOf := invertOrder(outLayout.LogicalOrder)

	sched := loopnest.NewSchedule()
	names := make([]string, dim)
	for i, size := range shape {
		names[i] = fmt.Sprintf("d%d", i)
		if _, err := sched.AddIndex(names[i], 0, size); err != nil {
			return err
		}
	}

	elemType := in.Type
	kernel := loopnest.NewKernel("reorder_copy", []string{"in", "out"}, func(b emitter.Builder, point map[string]emitter.Value, views map[string]emitter.Value) {
		var srcOffset, dstOffset emitter.Value
		for i, name := range names {
			idx := point[name]
			srcTerm := b.Mul(idx, b.ConstScalar(port.Int32, int32(inStrides[inPhysicalOf[i]])))
			dstTerm := b.Mul(idx, b.ConstScalar(port.Int32, int32(outStrides[outPhysicalOf[i]])))
			if i == 0 {
				srcOffset, dstOffset = srcTerm, dstTerm
				continue
			}
			srcOffset = b.Add(srcOffset, srcTerm)
			dstOffset = b.Add(dstOffset, dstTerm)
		}
		_ = elemType
		b.SetElementAt(views["out"], dstOffset, b.ElementAt(views["in"], srcOffset))
	})
	if err := sched.AddKernel(kernel, loopnest.Predicate{}, nil, map[string]string{"in": "in", "out": "out"}); err != nil {
		return err
	}

	loopNode := NewLoopNest("ReorderDataLowered", []port.Input{in}, n.Outputs(), sched, []string{"in"}, []string{"out"})
	if err := sink.AddNode(loopNode); err != nil {
		return err
	}
	sink.MapOutput(port.Ref{NodeID: n.ID(), Index: 0}, port.Ref{NodeID: loopNode.ID(), Index: 0})
	return nil
}

func logicalShapeOf(l layout.Layout) []int {
	return logicalOf(l.ActiveSize, l.LogicalOrder)
}

// logicalOf re-indexes a per-physical-axis array (ActiveSize, Extent, ...)
// into logical-axis order via order (physical -> logical), the same
// relabeling logicalShapeOf applies to ActiveSize specifically.
func logicalOf(vals, order []int) []int {
	out := make([]int, len(vals))
	for physical, logical := range order {
		out[logical] = vals[physical]
	}
	return out
}

// invertOrder inverts a LogicalOrder permutation (physical -> logical) into
// a logical -> physical lookup.
func invertOrder(order []int) []int {
	inv := make([]int, len(order))
	for physical, logical := range order {
		inv[logical] = physical
	}
	return inv
}
