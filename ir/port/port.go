// Package port defines the typed, sized endpoints (spec §3 "Port") that
// connect Nodes inside a Model.
package port

import (
	"fmt"

	"github.com/embedml/graphc/ir/layout"
)

// ElementType is the closed set of scalar element types a Port may carry
// (spec §3: "one of a closed set").
type ElementType int

const (
	Bool ElementType = iota
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
)

func (t ElementType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("elementtype(%d)", int(t))
	}
}

// ByteWidth returns the storage width in bytes of one scalar of this type.
func (t ElementType) ByteWidth() int {
	switch t {
	case Bool, Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		panic("port: unknown element type")
	}
}

// Ref identifies an endpoint by (node id, port index) instead of a pointer,
// per the spec §9 re-architecture note: "Ports reference producers and
// consumers by (node_id, port_index) pairs; no pointer cycles."
type Ref struct {
	NodeID string
	Index  int
}

func (r Ref) String() string {
	return fmt.Sprintf("%s[%d]", r.NodeID, r.Index)
}

// IsZero reports whether r is the zero Ref (no node id set).
func (r Ref) IsZero() bool { return r.NodeID == "" }

// Output is an output-side port: it advertises a type and layout. The set
// of input ports that reference it (spec §3's "reverse index") is tracked
// by the owning Model, not by the Output itself, so that Nodes remain
// immutable once constructed (spec §3 Lifecycles).
type Output struct {
	Type   ElementType
	Layout layout.Layout
}

// Input is an input-side port: it names the single Output that supplies its
// values.
type Input struct {
	Type   ElementType
	Layout layout.Layout
	Source Ref
}

// TypeLayoutMatch reports whether an Input and the Output it references
// agree on element type and active-layout size (spec §3 Model invariant 2).
func TypeLayoutMatch(in Input, out Output) bool {
	if in.Type != out.Type {
		return false
	}
	return layout.Equivalent(in.Layout, out.Layout)
}
