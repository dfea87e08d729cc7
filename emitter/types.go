// Package emitter defines the target-agnostic code-emission contract
// (spec §4.6): the boundary at which a lowered Model and its loop nests are
// rendered into target code. It is deliberately abstract — emitter/refimpl
// provides one conforming, interpreter-based implementation sufficient to
// run the end-to-end scenarios in spec §8; a real LLVM/C/Rust backend is an
// external collaborator (spec §1).
package emitter

import (
	"fmt"

	"github.com/embedml/graphc/ir/port"
)

// Kind distinguishes the three admissible shapes of a Type (spec §4.6
// "Types: a closed element-type enum plus pointer-to-element and
// fixed-size array-of-element").
type Kind int

const (
	Scalar Kind = iota
	Pointer
	Array
)

// Type is a typed value shape: a scalar element type, a pointer to one, or
// a fixed-size array of one.
type Type struct {
	Kind Kind
	Elem port.ElementType
	Len  int // only meaningful when Kind == Array
}

// ScalarType returns the scalar Type for an element type.
func ScalarType(t port.ElementType) Type { return Type{Kind: Scalar, Elem: t} }

// PointerType returns the pointer-to-element Type for an element type.
func PointerType(t port.ElementType) Type { return Type{Kind: Pointer, Elem: t} }

// ArrayType returns the fixed-size array-of-element Type.
func ArrayType(t port.ElementType, length int) Type {
	return Type{Kind: Array, Elem: t, Len: length}
}

func (t Type) String() string {
	switch t.Kind {
	case Scalar:
		return t.Elem.String()
	case Pointer:
		return fmt.Sprintf("*%s", t.Elem)
	case Array:
		return fmt.Sprintf("[%d]%s", t.Len, t.Elem)
	default:
		return "invalid"
	}
}

// InlineHint advises the backend whether to inline a defined function.
type InlineHint int

const (
	InlineDefault InlineHint = iota
	InlineAlways
	InlineNever
)

// FunctionDecl declares a function's external shape without defining its
// body (spec §4.6 "declare with (name, return type, parameter types,
// inlining hint, decoration flag)").
type FunctionDecl struct {
	Name       string
	ReturnType *Type // nil denotes void
	ParamTypes []Type
	Inline     InlineHint
	// Decorated requests a signature-qualified emitted name so two
	// declarations sharing Name but differing in ParamTypes do not collide.
	Decorated bool
}

// DecoratedName returns the name the emitter keys function definitions by.
// The emitter must guarantee a definition is emitted at most once per
// unique FunctionDecl, keyed by this name (spec §4.6).
func (d FunctionDecl) DecoratedName() string {
	if !d.Decorated {
		return d.Name
	}
	name := d.Name
	for _, p := range d.ParamTypes {
		name += "_" + p.String()
	}
	if d.ReturnType != nil {
		name += "_to_" + d.ReturnType.String()
	}
	return name
}

// CmpOp is a comparison operator producing a boolean Value.
type CmpOp int

const (
	Eq CmpOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)
