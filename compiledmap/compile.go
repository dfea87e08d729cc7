package compiledmap

import (
	"context"
	"fmt"

	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/internal/logx"
	"github.com/embedml/graphc/internal/telemetry"
	"github.com/embedml/graphc/ir/layout"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
	"github.com/embedml/graphc/transform"
)

// computeFunctionName is the emitted entry point's decorated name, the
// symbol resolve_function("compute") and CompiledMap.Compute both address
// (spec §4.7).
const computeFunctionName = "compute"

// binding records a named boundary's compiled-time shape and the emitter
// Value (a module global) set_input/get_output read and write through.
type binding struct {
	elemType port.ElementType
	layout   layout.Layout
	storage  emitter.Value
}

// CompiledMap is the artifact produced by Compile: a Module holding one
// defined "compute" function plus a module global per named input and
// output, wired the way nodes/io.go's package comment on OutputNode
// describes (spec §3 "CompiledMap", spec §4.7).
type CompiledMap struct {
	module  emitter.Module
	inputs  map[string]binding
	outputs map[string]binding
}

// Compile runs the Map's Model through transform.RefineAndOptimize and
// lowers the result into mod, a fresh module-level "compute" function plus
// one global per named input/output (spec §4.7 Dataflow: "the driver
// builds a Transformer, iterates the registered Transformations to
// fixpoint... the Emitter walks that Model and produces a callable
// artifact").
func Compile(ctx context.Context, mp *Map, mod emitter.Module, tctx *transform.Context) (*CompiledMap, error) {
	ctx, span := telemetry.StartSpan(ctx, "compiledmap.compile",
		telemetry.WithAttributes(telemetry.BuildAttributes(
			telemetry.PA.NodeCount(), fmt.Sprint(mp.Model().Len()),
		)))
	defer span.End()

	optimized, err := transform.RefineAndOptimize(ctx, mp.Model(), tctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(telemetry.StatusError, err.Error())
		return nil, err
	}

	cm := &CompiledMap{
		module:  mod,
		inputs:  make(map[string]binding, len(mp.inputNames)),
		outputs: make(map[string]binding, len(mp.outputNames)),
	}

	for _, name := range mp.inputNames {
		n, err := mp.inputNode(name)
		if err != nil {
			return nil, err
		}
		out := n.Outputs()[0]
		storage, err := mod.Global("compiledmap_input_"+name, emitter.ArrayType(out.Type, out.Layout.NumElements()), true, nil)
		if err != nil {
			return nil, errkind.Wrap(errkind.EmitterCapabilityAbsent, n.ID(), err)
		}
		cm.inputs[name] = binding{elemType: out.Type, layout: out.Layout, storage: storage}
	}
	for _, name := range mp.outputNames {
		n, err := mp.outputNode(name)
		if err != nil {
			return nil, err
		}
		in := n.Inputs()[0]
		storage, err := mod.Global("compiledmap_output_"+name, emitter.ArrayType(in.Type, in.Layout.NumElements()), true, nil)
		if err != nil {
			return nil, errkind.Wrap(errkind.EmitterCapabilityAbsent, n.ID(), err)
		}
		cm.outputs[name] = binding{elemType: in.Type, layout: in.Layout, storage: storage}
	}

	nameByInputNode := make(map[string]string, len(mp.inputNodeID))
	for name, id := range mp.inputNodeID {
		nameByInputNode[id] = name
	}
	nameByOutputNode := make(map[string]string, len(mp.outputNodeID))
	for name, id := range mp.outputNodeID {
		nameByOutputNode[id] = name
	}

	decl := emitter.FunctionDecl{Name: computeFunctionName}
	err = mod.DefineFunction(decl, func(b emitter.Builder, params []emitter.Value) emitter.Value {
		values := make(map[port.Ref]emitter.Value, optimized.Len())
		for _, n := range optimized.Nodes() {
			if err := compileOne(mod, b, n, values, cm, nameByInputNode, nameByOutputNode); err != nil {
				panic(err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(telemetry.StatusError, err.Error())
		return nil, err
	}

	logx.L().Debug("compiledmap: compiled", "nodes", optimized.Len(), "inputs", len(cm.inputs), "outputs", len(cm.outputs))
	span.SetStatus(telemetry.StatusOK, "")
	return cm, nil
}

// compileOne lowers a single node of the optimized Model into b, recording
// each of its output Values into values so later nodes can resolve their
// inputs by port.Ref.
func compileOne(
	mod emitter.Module,
	b emitter.Builder,
	n node.Node,
	values map[port.Ref]emitter.Value,
	cm *CompiledMap,
	nameByInputNode map[string]string,
	nameByOutputNode map[string]string,
) error {
	switch n.TypeName() {
	case "Input":
		name, ok := nameByInputNode[n.ID()]
		if !ok {
			return errkind.WithNode(errkind.New(errkind.ArchiveMismatch, "Input node is not bound to a Map input name"), n.ID())
		}
		values[port.Ref{NodeID: n.ID(), Index: 0}] = cm.inputs[name].storage
		return nil
	case "Output":
		name, ok := nameByOutputNode[n.ID()]
		if !ok {
			return errkind.WithNode(errkind.New(errkind.ArchiveMismatch, "Output node is not bound to a Map output name"), n.ID())
		}
		in := n.Inputs()[0]
		src, ok := values[in.Source]
		if !ok {
			return errkind.WithNode(errkind.New(errkind.OutOfOrderVisit, "Output node's source has not been compiled yet"), n.ID())
		}
		return copyElements(b, cm.outputs[name].storage, src, cm.outputs[name].layout.NumElements())
	}

	inputs := make([]emitter.Value, len(n.Inputs()))
	for i, in := range n.Inputs() {
		v, ok := values[in.Source]
		if !ok {
			return errkind.WithNode(errkind.Newf(errkind.OutOfOrderVisit, "input %d references a producer not yet compiled", i), n.ID())
		}
		inputs[i] = v
	}

	var outs []emitter.Value
	var err error
	switch c := n.(type) {
	case node.GlobalCompiler:
		outs, err = c.CompileGlobal(mod, b, inputs)
	case node.Compiler:
		outs, err = c.Compile(b, inputs)
	default:
		return errkind.WithNode(errkind.Newf(errkind.EmitterCapabilityAbsent, "node type %q has neither Compile nor CompileGlobal", n.TypeName()), n.ID())
	}
	if err != nil {
		if ce, ok := err.(*errkind.CompileError); ok {
			return errkind.WithNode(ce, n.ID())
		}
		return errkind.WithNode(errkind.Wrap(errkind.EmitterCapabilityAbsent, n.ID(), err), n.ID())
	}
	if len(outs) != len(n.Outputs()) {
		return errkind.WithNode(errkind.Newf(errkind.ShapeMismatch, "node produced %d outputs, wants %d", len(outs), len(n.Outputs())), n.ID())
	}
	for i, v := range outs {
		values[port.Ref{NodeID: n.ID(), Index: i}] = v
	}
	return nil
}

// copyElements copies count elements from src into dst, both pointers to
// array storage, via a counted loop — the generic form the "Output" case
// needs since src's backing buffer may be a freshly Alloca'd temporary
// rather than the output's own global.
func copyElements(b emitter.Builder, dst, src emitter.Value, count int) error {
	b.For(b.ConstScalar(port.Int32, int32(0)), b.ConstScalar(port.Int32, int32(count)), 1,
		func(b emitter.Builder, idx emitter.Value) {
			b.SetElementAt(dst, idx, b.ElementAt(src, idx))
		})
	return nil
}
