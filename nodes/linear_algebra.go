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
	node.Register("MatrixVectorProduct", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		if len(inputs) != 2 {
			return nil, errkind.New(errkind.ArchiveMismatch, "MatrixVectorProduct node requires exactly two inputs")
		}
		rows, _ := params["rows"].(int)
		cols, _ := params["cols"].(int)
		return NewMatrixVectorProduct(inputs[0], inputs[1], rows, cols, id)
	})
	node.Register("SimpleForest", func(id string, params map[string]any, inputs []port.Input) (node.Node, error) {
		if len(inputs) != 1 {
			return nil, errkind.New(errkind.ArchiveMismatch, "SimpleForest node requires exactly one input")
		}
		thresholds, _ := params["thresholds"].([]float64)
		leaves, _ := params["leaves"].([]float64)
		featureIdx, _ := params["feature_index"].([]int)
		return NewSimpleForest(inputs[0], thresholds, featureIdx, leaves, id)
	})
}

// MatrixVectorProductNode computes `mat (rows x cols) · vec (cols)` →
// a length-rows output (spec §3.1 "MatrixVectorProductNode", grounded in
// original_source/libraries/nodes/include/MatrixVectorProductNode.h). It
// refines into a LoopNestNode performing the reduction, rather than
// compiling directly, per SPEC_FULL's "refine to loop nests per
// original_source."
type MatrixVectorProductNode struct {
	base
	Rows, Cols int
}

// NewMatrixVectorProduct constructs a MatrixVectorProductNode. mat must be
// a flat length-rows*cols vector in row-major order; vec must be length
// cols.
func NewMatrixVectorProduct(mat, vec port.Input, rows, cols int, id ...string) (*MatrixVectorProductNode, error) {
	if mat.Layout.NumElements() != rows*cols {
		return nil, errkind.New(errkind.ShapeMismatch, "MatrixVectorProduct matrix operand size does not match rows*cols")
	}
	if vec.Layout.NumElements() != cols {
		return nil, errkind.New(errkind.ShapeMismatch, "MatrixVectorProduct vector operand size does not match cols")
	}
	out := port.Output{Type: mat.Type, Layout: layout.New([]int{rows})}
	return &MatrixVectorProductNode{
		base: newBaseWithID(firstID(id), "MatrixVectorProduct", 1, []port.Input{mat, vec}, []port.Output{out}),
		Rows: rows,
		Cols: cols,
	}, nil
}

func (n *MatrixVectorProductNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 2 {
		panic(fmt.Sprintf("nodes: MatrixVectorProduct.WithInputs expects 2 inputs, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *MatrixVectorProductNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// ArchiveParams records the matrix dimensions.
func (n *MatrixVectorProductNode) ArchiveParams() map[string]any {
	return map[string]any{"rows": n.Rows, "cols": n.Cols}
}

// Refine builds a two-level loop nest (i over Rows, j over Cols): a
// zero-init kernel fires once per i before the j loop starts, and an
// accumulate kernel fires at every (i,j) point (spec §4.4 "Evaluation
// order").
func (n *MatrixVectorProductNode) Refine(sink node.RefineSink) error {
	resolved, err := sink.CorrespondingInputs([]port.Ref{n.Inputs()[0].Source, n.Inputs()[1].Source})
	if err != nil {
		return err
	}
	mat, vec := n.Inputs()[0], n.Inputs()[1]
	mat.Source, vec.Source = resolved[0], resolved[1]

	elemType := n.Outputs()[0].Type
	sched := loopnest.NewSchedule()
	if _, err := sched.AddIndex("i", 0, n.Rows); err != nil {
		return err
	}
	if _, err := sched.AddIndex("j", 0, n.Cols); err != nil {
		return err
	}

	zeroKernel := loopnest.NewKernel("matvec_zero", []string{"out"}, func(b emitter.Builder, point, views map[string]emitter.Value) {
		b.SetElementAt(views["out"], point["i"], b.ConstScalar(elemType, zeroValueOf(elemType)))
	})
	if err := sched.AddKernel(zeroKernel, loopnest.Predicate{}, []string{"i"}, map[string]string{"out": "out"}); err != nil {
		return err
	}

	cols := n.Cols
	accKernel := loopnest.NewKernel("matvec_accumulate", []string{"mat", "vec", "out"}, func(b emitter.Builder, point, views map[string]emitter.Value) {
		matIdx := b.Add(b.Mul(point["i"], b.ConstScalar(port.Int32, int32(cols))), point["j"])
		term := b.Mul(b.ElementAt(views["mat"], matIdx), b.ElementAt(views["vec"], point["j"]))
		cur := b.ElementAt(views["out"], point["i"])
		b.SetElementAt(views["out"], point["i"], b.Add(cur, term))
	})
	if err := sched.AddKernel(accKernel, loopnest.Predicate{}, nil, map[string]string{"mat": "mat", "vec": "vec", "out": "out"}); err != nil {
		return err
	}

	loopNode := NewLoopNest("MatrixVectorProductLowered", []port.Input{mat, vec}, n.Outputs(), sched, []string{"mat", "vec"}, []string{"out"})
	if err := sink.AddNode(loopNode); err != nil {
		return err
	}
	sink.MapOutput(port.Ref{NodeID: n.ID(), Index: 0}, port.Ref{NodeID: loopNode.ID(), Index: 0})
	return nil
}

// SimpleForestNode evaluates a forest of depth-1 decision stumps ("simple
// forest", grounded in original_source/libraries/nodes/SimpleForestNode.cpp)
// over one input feature vector: each tree contributes Leaves[t] when
// Input[FeatureIndex[t]] >= Thresholds[t], else 0; the output is their sum.
// It refines into a LoopNestNode, at a level sufficient to demonstrate the
// refinement + compilation path, not a tuned tree-ensemble kernel.
type SimpleForestNode struct {
	base
	Thresholds   []float64
	FeatureIndex []int
	Leaves       []float64
}

// NewSimpleForest constructs a SimpleForestNode. thresholds, featureIndex
// and leaves must all have the same length (the number of trees).
func NewSimpleForest(in port.Input, thresholds []float64, featureIndex []int, leaves []float64, id ...string) (*SimpleForestNode, error) {
	if len(thresholds) != len(featureIndex) || len(thresholds) != len(leaves) {
		return nil, errkind.New(errkind.TypeMismatch, "SimpleForest thresholds/featureIndex/leaves length mismatch")
	}
	out := port.Output{Type: in.Type, Layout: layout.New([]int{1})}
	return &SimpleForestNode{
		base:         newBaseWithID(firstID(id), "SimpleForest", 1, []port.Input{in}, []port.Output{out}),
		Thresholds:   append([]float64(nil), thresholds...),
		FeatureIndex: append([]int(nil), featureIndex...),
		Leaves:       append([]float64(nil), leaves...),
	}, nil
}

func (n *SimpleForestNode) WithInputs(inputs []port.Input) node.Node {
	if len(inputs) != 1 {
		panic(fmt.Sprintf("nodes: SimpleForest.WithInputs expects 1 input, got %d", len(inputs)))
	}
	cp := *n
	cp.base.inputs = inputs
	return &cp
}

func (n *SimpleForestNode) WithMetadata(m node.Metadata) node.Node {
	cp := *n
	cp.base.metadata = cloneMetadata(m)
	return &cp
}

// ArchiveParams records the per-tree threshold, feature index and leaf
// value tables.
func (n *SimpleForestNode) ArchiveParams() map[string]any {
	return map[string]any{
		"thresholds":    append([]float64(nil), n.Thresholds...),
		"feature_index": append([]int(nil), n.FeatureIndex...),
		"leaves":        append([]float64(nil), n.Leaves...),
	}
}

// Refine builds a single-index (one per tree) loop nest: a zero-init
// kernel at the start, then per-tree a threshold comparison gating a leaf
// add into the scalar output.
func (n *SimpleForestNode) Refine(sink node.RefineSink) error {
	resolved, err := sink.CorrespondingInputs([]port.Ref{n.Inputs()[0].Source})
	if err != nil {
		return err
	}
	in := n.Inputs()[0]
	in.Source = resolved[0]

	elemType := n.Outputs()[0].Type
	numTrees := len(n.Thresholds)
	sched := loopnest.NewSchedule()
	if _, err := sched.AddIndex("t", 0, numTrees); err != nil {
		return err
	}
	if err := sched.Unroll("t"); err != nil {
		return err
	}

	zeroKernel := loopnest.NewKernel("forest_zero", []string{"out"}, func(b emitter.Builder, point, views map[string]emitter.Value) {
		b.SetElementAt(views["out"], b.ConstScalar(port.Int32, 0), b.ConstScalar(elemType, zeroValueOf(elemType)))
	})
	if err := sched.AddKernel(zeroKernel, loopnest.First("t"), []string{"t"}, map[string]string{"out": "out"}); err != nil {
		return err
	}

	// t is unrolled, so each tree gets its own kernel predicated on "t ==
	// t" instead of indexing thresholds/leaves by a runtime value.
	thresholds, featureIdx, leaves := n.Thresholds, n.FeatureIndex, n.Leaves
	for t := 0; t < numTrees; t++ {
		threshold := thresholds[t]
		feature := featureIdx[t]
		leaf := leaves[t]
		k := loopnest.NewKernel(fmt.Sprintf("forest_tree_%d", t), []string{"in", "out"}, func(b emitter.Builder, point, views map[string]emitter.Value) {
			feat := b.ElementAt(views["in"], b.ConstScalar(port.Int32, int32(feature)))
			cond := b.Cmp(emitter.Ge, feat, b.ConstScalar(elemType, threshold))
			b.If(cond, func(b emitter.Builder) {
				cur := b.ElementAt(views["out"], b.ConstScalar(port.Int32, 0))
				b.SetElementAt(views["out"], b.ConstScalar(port.Int32, 0), b.Add(cur, b.ConstScalar(elemType, leaf)))
			}, nil, nil)
		})
		pred := loopnest.Eq("t", t)
		if err := sched.AddKernel(k, pred, []string{"t"}, map[string]string{"in": "in", "out": "out"}); err != nil {
			return err
		}
	}

	loopNode := NewLoopNest("SimpleForestLowered", []port.Input{in}, n.Outputs(), sched, []string{"in"}, []string{"out"})
	if err := sink.AddNode(loopNode); err != nil {
		return err
	}
	sink.MapOutput(port.Ref{NodeID: n.ID(), Index: 0}, port.Ref{NodeID: loopNode.ID(), Index: 0})
	return nil
}
