// Package transformer implements the graph rewrite engine (spec §4.1):
// Transformer rewrites a source Model into a destination Model node by
// node, maintaining a partial function µ from source output ports to
// destination output ports.
package transformer

import (
	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
)

// VisitFunc decides, for each source node in topological order, how it
// appears in the destination (spec §4.1 "Client-supplied visit(node,
// transformer)").
type VisitFunc func(n node.Node, t *Transformer) error

// Transformer carries out one source-to-destination rewrite. It
// structurally satisfies node.RefineSink, so a node's Refine
// implementation can call back into it without ir/node importing this
// package (spec §9 re-architecture note, generalized to avoid an import
// cycle).
type Transformer struct {
	source *model.Model
	dest   *model.Model
	mu     map[port.Ref]port.Ref // µ: source output ref -> destination output ref

	visitedSource map[string]bool
}

// New returns a Transformer rewriting source into a fresh destination
// Model.
func New(source *model.Model) *Transformer {
	return &Transformer{
		source:        source,
		dest:          model.New(),
		mu:            make(map[port.Ref]port.Ref),
		visitedSource: make(map[string]bool),
	}
}

// Dest returns the destination Model under construction.
func (t *Transformer) Dest() *model.Model { return t.dest }

// Run visits every node of the source model in forward topological order
// via visit, then validates the destination model (spec §4.1 "The
// destination Model is built in an order consistent with a valid
// topological order over the source", and "Emitting a cycle into the
// destination is an error detected at transformer-close time").
func (t *Transformer) Run(visit VisitFunc) (*model.Model, error) {
	for _, n := range t.source.Nodes() {
		if err := visit(n, t); err != nil {
			return nil, err
		}
		t.visitedSource[n.ID()] = true
	}
	if err := t.dest.Validate(); err != nil {
		return nil, errkind.Wrap(errkind.CycleDetected, "", err)
	}
	return t.dest, nil
}

// CopyNode clones n into the destination, connecting its inputs via µ
// applied to the sources of n's original inputs, and records µ for each
// of n's outputs (spec §4.1 "copy_node").
func (t *Transformer) CopyNode(n node.Node) error {
	resolvedInputs, err := t.resolveInputs(n.Inputs())
	if err != nil {
		return err
	}
	rewirable, ok := n.(node.Rewirable)
	if !ok {
		return errkind.WithNode(errkind.New(errkind.TypeMismatch, "node type does not support copy (not Rewirable)"), n.ID())
	}
	clone := rewirable.WithInputs(resolvedInputs)
	if err := t.dest.AddNode(clone); err != nil {
		return err
	}
	for i := range clone.Outputs() {
		t.mu[port.Ref{NodeID: n.ID(), Index: i}] = port.Ref{NodeID: clone.ID(), Index: i}
	}
	return nil
}

// CopyNodeTransformed behaves like CopyNode, but passes the rewired clone
// through mutate before inserting it into the destination. It is the
// building block optimizations like SetCompilerOptions and
// SetConvolutionMethod use to replace a node with a modified one while
// still going through the normal µ bookkeeping (spec §4.3).
func (t *Transformer) CopyNodeTransformed(n node.Node, mutate func(rewired node.Node) (node.Node, error)) error {
	resolvedInputs, err := t.resolveInputs(n.Inputs())
	if err != nil {
		return err
	}
	rewirable, ok := n.(node.Rewirable)
	if !ok {
		return errkind.WithNode(errkind.New(errkind.TypeMismatch, "node type does not support copy (not Rewirable)"), n.ID())
	}
	rewired := rewirable.WithInputs(resolvedInputs)
	final, err := mutate(rewired)
	if err != nil {
		return err
	}
	if err := t.dest.AddNode(final); err != nil {
		return err
	}
	for i := range final.Outputs() {
		t.mu[port.Ref{NodeID: n.ID(), Index: i}] = port.Ref{NodeID: final.ID(), Index: i}
	}
	return nil
}

// RefineNode invokes n's own Refiner capability against this same
// Transformer (spec §4.1 "refine_node").
func (t *Transformer) RefineNode(n node.Node) error {
	r, ok := n.(node.Refiner)
	if !ok {
		return t.CopyNode(n)
	}
	return r.Refine(t)
}

// AddNode constructs a destination-side node directly; its outputs are
// not recorded in µ unless the caller calls MapOutput (spec §4.1
// "add_node").
func (t *Transformer) AddNode(n node.Node) error {
	return t.dest.AddNode(n)
}

// MapOutput explicitly records µ(srcOut) = destOut (spec §4.1
// "map_node_output"). Unlike CopyNode's bookkeeping, a deliberate
// MapOutput call is allowed to overwrite an existing entry (spec §4.1
// invariant: "µ is monotone... except that a deliberate map_node_output
// call overwrites").
func (t *Transformer) MapOutput(srcOut, destOut port.Ref) {
	t.mu[srcOut] = destOut
}

// CorrespondingInputs resolves µ for each of srcRefs (spec §4.1
// "corresponding_inputs").
func (t *Transformer) CorrespondingInputs(srcRefs []port.Ref) ([]port.Ref, error) {
	return t.resolveRefs(srcRefs)
}

// Resolve returns the destination output ref µ currently assigns to a
// single source output ref.
func (t *Transformer) Resolve(srcOut port.Ref) (port.Ref, error) {
	destOut, ok := t.mu[srcOut]
	if !ok {
		return port.Ref{}, errkind.WithNode(
			errkind.Newf(errkind.OutOfOrderVisit, "no destination mapping for source output %s", srcOut),
			srcOut.NodeID,
		)
	}
	return destOut, nil
}

func (t *Transformer) resolveInputs(inputs []port.Input) ([]port.Input, error) {
	out := make([]port.Input, len(inputs))
	for i, in := range inputs {
		destOut, err := t.Resolve(in.Source)
		if err != nil {
			return nil, err
		}
		out[i] = in
		out[i].Source = destOut
	}
	return out, nil
}

func (t *Transformer) resolveRefs(refs []port.Ref) ([]port.Ref, error) {
	out := make([]port.Ref, len(refs))
	for i, r := range refs {
		destOut, err := t.Resolve(r)
		if err != nil {
			return nil, err
		}
		out[i] = destOut
	}
	return out, nil
}
