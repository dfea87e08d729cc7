package transform

import (
	"github.com/embedml/graphc/ir/layout"
	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
	"github.com/embedml/graphc/nodes"
	"github.com/embedml/graphc/transform/transformer"
)

func init() {
	Register(optimizeReorderData{})
}

// optimizeReorderData implements OptimizeReorderData (spec §4.3): "Removes
// reorder-data nodes whose input and output layouts are equivalent; fuses
// two consecutive reorders into one whose dimension-order permutation is
// the composition."
type optimizeReorderData struct{}

func (optimizeReorderData) Name() string { return "OptimizeReorderData" }

func (optimizeReorderData) Apply(source *model.Model, ctx *Context) (*model.Model, error) {
	// Pre-scan: a ReorderDataNode fed directly by another ReorderDataNode
	// with no other consumer is a fusable pair; the producer is skipped at
	// visit time and the consumer is replaced by a single combined reorder
	// (or removed outright if the composed order is the identity).
	fuseAway := make(map[string]bool)
	composed := make(map[string][]int) // consumer id -> composed order
	for _, n := range source.Nodes() {
		rn, ok := n.(*nodes.ReorderDataNode)
		if !ok {
			continue
		}
		producer, ok := source.NodeByID(rn.Inputs()[0].Source.NodeID)
		if !ok {
			continue
		}
		prn, ok := producer.(*nodes.ReorderDataNode)
		if !ok {
			continue
		}
		if len(source.Consumers(port.Ref{NodeID: producer.ID(), Index: 0})) != 1 {
			continue
		}
		fuseAway[producer.ID()] = true
		composed[n.ID()] = layout.ComposeOrder(rn.OrderParam(), prn.OrderParam())
	}

	t := transformer.New(source)
	return t.Run(func(n node.Node, tr *transformer.Transformer) error {
		if fuseAway[n.ID()] {
			return nil
		}
		rn, ok := n.(*nodes.ReorderDataNode)
		if !ok {
			return tr.CopyNode(n)
		}

		if order, fused := composed[n.ID()]; fused {
			producer, _ := source.NodeByID(rn.Inputs()[0].Source.NodeID)
			prn := producer.(*nodes.ReorderDataNode)
			resolved, err := tr.CorrespondingInputs([]port.Ref{prn.Inputs()[0].Source})
			if err != nil {
				return err
			}
			innerInput := prn.Inputs()[0]
			innerInput.Source = resolved[0]

			if layout.IsIdentity(order) && layout.Equivalent(innerInput.Layout, rn.Outputs()[0].Layout) {
				tr.MapOutput(port.Ref{NodeID: n.ID(), Index: 0}, resolved[0])
				return nil
			}
			combined := nodes.NewReorderData(innerInput, order)
			if err := tr.AddNode(combined); err != nil {
				return err
			}
			tr.MapOutput(port.Ref{NodeID: n.ID(), Index: 0}, port.Ref{NodeID: combined.ID(), Index: 0})
			return nil
		}

		// A ReorderDataNode preserves logical shape by construction, so
		// Equivalent (which only compares logical shape) is true for every
		// reorder regardless of its permutation; the no-op case this removes
		// is specifically an identity order over already-equivalent layouts.
		if layout.IsIdentity(rn.OrderParam()) && layout.Equivalent(rn.Inputs()[0].Layout, rn.Outputs()[0].Layout) {
			resolved, err := tr.CorrespondingInputs([]port.Ref{rn.Inputs()[0].Source})
			if err != nil {
				return err
			}
			tr.MapOutput(port.Ref{NodeID: n.ID(), Index: 0}, resolved[0])
			return nil
		}
		return tr.CopyNode(n)
	})
}
