package refimpl

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/ir/port"
)

// Builder is refimpl's emitter.Builder: every method executes immediately
// against m rather than recording instructions for later lowering.
// Return/Goto mutate per-invocation state that Module.DefineFunction's
// wrapper reads back after the body function returns.
type Builder struct {
	m           *Module
	hasReturned bool
	returned    emitter.Value
}

func (b *Builder) ConstScalar(t port.ElementType, v any) emitter.Value {
	return newScalar(t, v)
}

func (b *Builder) ConstArray(t port.ElementType, values []any) emitter.Value {
	cell := &memCell{elem: t, data: make([]any, len(values))}
	for i, v := range values {
		cell.data[i] = normalizeScalar(t, v)
	}
	return &Pointer{PtrType: emitter.PointerType(t), Cell: cell}
}

func (b *Builder) Alloca(t emitter.Type) emitter.Value {
	length := 1
	if t.Kind == emitter.Array {
		length = t.Len
	}
	cell := &memCell{elem: t.Elem, data: make([]any, length)}
	for i := range cell.data {
		cell.data[i] = zeroValue(t.Elem)
	}
	return &Pointer{PtrType: emitter.PointerType(t.Elem), Cell: cell}
}

func asPointer(v emitter.Value) *Pointer {
	p, ok := v.(*Pointer)
	if !ok {
		panic(fmt.Sprintf("refimpl: expected a pointer value, got %T", v))
	}
	return p
}

func (b *Builder) Load(ptr emitter.Value) emitter.Value {
	p := asPointer(ptr)
	return newScalar(p.Cell.elem, p.Cell.data[p.Offset])
}

func (b *Builder) Store(ptr emitter.Value, val emitter.Value) {
	p := asPointer(ptr)
	p.Cell.data[p.Offset] = normalizeScalar(p.Cell.elem, rawOf(val))
}

func (b *Builder) PointerOffset(ptr emitter.Value, idx emitter.Value) emitter.Value {
	p := asPointer(ptr)
	return &Pointer{PtrType: p.PtrType, Cell: p.Cell, Offset: p.Offset + int(toInt64(rawOf(idx)))}
}

func (b *Builder) ElementAt(arr emitter.Value, idx emitter.Value) emitter.Value {
	return b.Load(b.PointerOffset(arr, idx))
}

func (b *Builder) SetElementAt(arr emitter.Value, idx emitter.Value, val emitter.Value) {
	b.Store(b.PointerOffset(arr, idx), val)
}

func (b *Builder) binOp(a, c emitter.Value, intOp func(x, y int64) int64, floatOp func(x, y float64) float64) emitter.Value {
	elem := a.Type().Elem
	if isFloatKind(elem) {
		return newScalar(elem, floatOp(toFloat64(rawOf(a)), toFloat64(rawOf(c))))
	}
	return newScalar(elem, intOp(toInt64(rawOf(a)), toInt64(rawOf(c))))
}

func (b *Builder) Add(a, c emitter.Value) emitter.Value {
	return b.binOp(a, c, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
}

func (b *Builder) Sub(a, c emitter.Value) emitter.Value {
	return b.binOp(a, c, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
}

func (b *Builder) Mul(a, c emitter.Value) emitter.Value {
	return b.binOp(a, c, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
}

func (b *Builder) Div(a, c emitter.Value) emitter.Value {
	return b.binOp(a, c, func(x, y int64) int64 { return x / y }, func(x, y float64) float64 { return x / y })
}

func (b *Builder) Mod(a, c emitter.Value) emitter.Value {
	return b.binOp(a, c, func(x, y int64) int64 { return x % y }, math.Mod)
}

func (b *Builder) Cmp(op emitter.CmpOp, a, c emitter.Value) emitter.Value {
	elem := a.Type().Elem
	var result bool
	if isFloatKind(elem) {
		x, y := toFloat64(rawOf(a)), toFloat64(rawOf(c))
		result = evalCmp(op, x, y)
	} else {
		x, y := toInt64(rawOf(a)), toInt64(rawOf(c))
		result = evalCmp(op, x, y)
	}
	return newScalar(port.Bool, result)
}

func evalCmp[T int64 | float64](op emitter.CmpOp, x, y T) bool {
	switch op {
	case emitter.Eq:
		return x == y
	case emitter.Ne:
		return x != y
	case emitter.Lt:
		return x < y
	case emitter.Le:
		return x <= y
	case emitter.Gt:
		return x > y
	case emitter.Ge:
		return x >= y
	default:
		panic(fmt.Sprintf("refimpl: unknown comparison operator %v", op))
	}
}

func (b *Builder) If(cond emitter.Value, then func(b emitter.Builder), elseIfs []emitter.ElseIf, els func(b emitter.Builder)) {
	if toBool(rawOf(cond)) {
		then(b)
		return
	}
	for _, ei := range elseIfs {
		if toBool(rawOf(ei.Cond)) {
			ei.Then(b)
			return
		}
	}
	if els != nil {
		els(b)
	}
}

func (b *Builder) For(begin, end emitter.Value, step int, body func(b emitter.Builder, index emitter.Value)) {
	if step == 0 {
		step = 1
	}
	lo := toInt64(rawOf(begin))
	hi := toInt64(rawOf(end))
	if step > 0 {
		for i := lo; i < hi; i += int64(step) {
			body(b, newScalar(port.Int32, i))
			if b.hasReturned {
				return
			}
		}
		return
	}
	for i := lo; i > hi; i += int64(step) {
		body(b, newScalar(port.Int32, i))
		if b.hasReturned {
			return
		}
	}
}

func (b *Builder) Goto() { panic(gotoSignal{}) }

func (b *Builder) Call(decl emitter.FunctionDecl, args ...emitter.Value) emitter.Value {
	fn, ok := b.m.lookupFunction(decl.DecoratedName())
	if !ok {
		panic(fmt.Sprintf("refimpl: call to undefined function %q", decl.DecoratedName()))
	}
	return fn(args)
}

func (b *Builder) Return(val emitter.Value) {
	b.hasReturned = true
	b.returned = val
}

// Parallelize runs body on threadCount goroutines (at least one), each with
// its own Builder sharing the module (spec §4.6, §5 "captures are read-only
// or disjoint-write by worker index"). golang.org/x/sync/errgroup only joins
// the workers: every worker returns nil and Wait's result is discarded. A
// panicking worker (including a Goto, which is valid only inside its own
// call frame) is not recovered, matching Go's normal panic semantics for an
// unrecovered panic in a spawned goroutine.
func (b *Builder) Parallelize(threadCount int, captures []emitter.Value, body func(b emitter.Builder, workerID emitter.Value)) {
	if threadCount < 1 {
		threadCount = 1
	}
	var g errgroup.Group
	for w := 0; w < threadCount; w++ {
		workerID := w
		g.Go(func() error {
			workerBuilder := b.m.NewBuilder()
			body(workerBuilder, newScalar(port.Int32, int64(workerID)))
			return nil
		})
	}
	_ = g.Wait()
}
