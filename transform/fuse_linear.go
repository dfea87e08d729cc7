package transform

import (
	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
	"github.com/embedml/graphc/nodes"
	"github.com/embedml/graphc/transform/transformer"
)

func init() {
	Register(fuseLinearOperations{})
}

// fuseLinearOperations implements FuseLinearOperations (spec §4.3):
// "Collapses chains of nodes that apply x ↦ a·x + b elementwise along the
// same broadcast axis into a single node combining the scale/shift pairs."
type fuseLinearOperations struct{}

func (fuseLinearOperations) Name() string { return "FuseLinearOperations" }

func (fuseLinearOperations) Apply(source *model.Model, ctx *Context) (*model.Model, error) {
	// Pre-scan: find every ScaleShiftNode whose sole consumer is another
	// ScaleShiftNode, so the producer can be skipped at visit time instead
	// of already having been copied into the destination by the time its
	// consumer is reached (spec §4.1: visiting happens in topological
	// order, producer before consumer).
	fuseAway := make(map[string]bool)
	for _, n := range source.Nodes() {
		ss, ok := n.(*nodes.ScaleShiftNode)
		if !ok {
			continue
		}
		producer, ok := source.NodeByID(ss.Inputs()[0].Source.NodeID)
		if !ok {
			continue
		}
		if _, ok := producer.(*nodes.ScaleShiftNode); !ok {
			continue
		}
		if len(source.Consumers(port.Ref{NodeID: producer.ID(), Index: 0})) != 1 {
			continue
		}
		fuseAway[producer.ID()] = true
	}

	t := transformer.New(source)
	return t.Run(func(n node.Node, tr *transformer.Transformer) error {
		if fuseAway[n.ID()] {
			return nil
		}
		ss, ok := n.(*nodes.ScaleShiftNode)
		if !ok {
			return tr.CopyNode(n)
		}
		producerID := ss.Inputs()[0].Source.NodeID
		if !fuseAway[producerID] {
			return tr.CopyNode(n)
		}
		producer, _ := source.NodeByID(producerID)
		prevSS := producer.(*nodes.ScaleShiftNode)

		a, b := prevSS.ComposedWith(ss)
		// In a longer chain every fused-away producer further up is folded
		// in beneath the coefficients composed so far.
		for fuseAway[prevSS.Inputs()[0].Source.NodeID] {
			up, _ := source.NodeByID(prevSS.Inputs()[0].Source.NodeID)
			prevSS = up.(*nodes.ScaleShiftNode)
			a, b = prevSS.ComposedWith(&nodes.ScaleShiftNode{A: a, B: b})
		}
		resolved, err := tr.CorrespondingInputs([]port.Ref{prevSS.Inputs()[0].Source})
		if err != nil {
			return err
		}
		innerInput := prevSS.Inputs()[0]
		innerInput.Source = resolved[0]

		combined := nodes.NewScaleShift(innerInput, a, b)
		if err := tr.AddNode(combined); err != nil {
			return err
		}
		tr.MapOutput(port.Ref{NodeID: n.ID(), Index: 0}, port.Ref{NodeID: combined.ID(), Index: 0})
		return nil
	})
}
