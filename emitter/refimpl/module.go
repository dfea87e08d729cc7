// Package refimpl is a conforming, interpreter-based implementation of the
// emitter contract (spec §4.6): rather than lowering to a real target's
// instruction set, each Builder call executes immediately against an
// in-process memory model. It exists to run the end-to-end scenarios in
// spec §8 without a real backend — "a C or Rust or TypeScript emitter
// targeting the same contract is equally admissible" (spec §6), and an
// eager interpreter is the simplest one that still exercises every
// primitive the contract defines.
package refimpl

import (
	"fmt"
	"sync"

	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/ir/port"
)

// memCell is a fixed-size, element-typed block of storage: the backing
// store for one Alloca, ConstArray, or Global. Index arithmetic (pointer
// offsets, element addressing) all resolves to an (cell, offset) pair.
type memCell struct {
	elem port.ElementType
	data []any
}

// Module is refimpl's emitter.Module: a function table plus a set of
// module-scope global cells, guarded by a single coarse mutex since
// Parallelize is the only source of concurrent access (spec §5 "Module-
// scope globals emitted by the artifact").
type Module struct {
	mu        sync.Mutex
	globals   map[string]*memCell
	declared  map[string]emitter.FunctionDecl
	functions map[string]func(args []emitter.Value) emitter.Value
}

// NewModule returns an empty Module.
func NewModule() *Module {
	return &Module{
		globals:   make(map[string]*memCell),
		declared:  make(map[string]emitter.FunctionDecl),
		functions: make(map[string]func(args []emitter.Value) emitter.Value),
	}
}

// NewBuilder returns a Builder emitting (in refimpl's case, executing)
// into m. A fresh Builder is cheap; callers typically get one per function
// invocation (DefineFunction, Call) or per top-level compute().
func (m *Module) NewBuilder() *Builder {
	return &Builder{m: m}
}

func (m *Module) DeclareFunction(decl emitter.FunctionDecl) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.declared[decl.DecoratedName()] = decl
	return nil
}

func (m *Module) DefineFunction(decl emitter.FunctionDecl, body func(b emitter.Builder, params []emitter.Value) emitter.Value) error {
	name := decl.DecoratedName()
	m.mu.Lock()
	if _, exists := m.functions[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("refimpl: function %q already defined", name)
	}
	m.mu.Unlock()

	fn := func(args []emitter.Value) (result emitter.Value) {
		b := m.NewBuilder()
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(gotoSignal); !ok {
					panic(r)
				}
			}
			if b.hasReturned {
				result = b.returned
			}
		}()
		bodyResult := body(b, args)
		if !b.hasReturned {
			result = bodyResult
		}
		return
	}

	m.mu.Lock()
	m.functions[name] = fn
	m.mu.Unlock()
	return nil
}

// Global declares (or looks up) a module-scope variable. Per spec §4.6, a
// global is written once at definition time; a second call under the same
// name returns the existing cell rather than re-initializing it, which is
// exactly the behavior StateAccumulateNode's CompileGlobal relies on to
// persist running state across separate compute() invocations.
func (m *Module) Global(name string, t emitter.Type, mutable bool, init emitter.Value) (emitter.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cell, ok := m.globals[name]; ok {
		return &Pointer{PtrType: emitter.PointerType(cell.elem), Cell: cell}, nil
	}
	length := 1
	elem := t.Elem
	if t.Kind == emitter.Array {
		length = t.Len
	}
	cell := &memCell{elem: elem, data: make([]any, length)}
	for i := range cell.data {
		cell.data[i] = zeroValue(elem)
	}
	if init != nil {
		if iv, ok := init.(*Scalar); ok {
			cell.data[0] = normalizeScalar(elem, iv.Raw)
		} else if ip, ok := init.(*Pointer); ok {
			copy(cell.data, ip.Cell.data[ip.Offset:])
		}
	}
	m.globals[name] = cell
	return &Pointer{PtrType: emitter.PointerType(elem), Cell: cell}, nil
}

func (m *Module) lookupFunction(name string) (func(args []emitter.Value) emitter.Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn, ok := m.functions[name]
	return fn, ok
}

// ResolveFunction implements emitter.FunctionResolver: a directly callable
// handle for a function already defined via DefineFunction.
func (m *Module) ResolveFunction(name string) (func(args []emitter.Value) emitter.Value, bool) {
	return m.lookupFunction(name)
}

type gotoSignal struct{}

func zeroValue(t port.ElementType) any {
	switch t {
	case port.Bool:
		return false
	case port.Float32, port.Float64:
		return float64(0)
	default:
		return int64(0)
	}
}
