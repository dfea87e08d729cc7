package loopnest

import (
	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/ir/port"
)

type predKind int

const (
	predEq predKind = iota
	predLt
	predGe
	predFirst
	predLast
	predAnd
	predOr
)

// Predicate is the small boolean algebra spec §4.4 attaches to kernel
// placement: i==c, i<c, i>=c, first(i), last(i), and conjunctions/
// disjunctions of these. Leaves compile to comparisons against the
// emitted loop index Value; And/Or compile to arithmetic combination of
// the 0/1 comparison results rather than short-circuit branches, since
// every leaf is a side-effect-free comparison.
type Predicate struct {
	kind     predKind
	index    string
	c        int
	children []Predicate
}

// Eq builds the predicate "index == c".
func Eq(index string, c int) Predicate { return Predicate{kind: predEq, index: index, c: c} }

// Lt builds the predicate "index < c".
func Lt(index string, c int) Predicate { return Predicate{kind: predLt, index: index, c: c} }

// Ge builds the predicate "index >= c".
func Ge(index string, c int) Predicate { return Predicate{kind: predGe, index: index, c: c} }

// First builds the predicate "index is at the first iteration of its range".
func First(index string) Predicate { return Predicate{kind: predFirst, index: index} }

// Last builds the predicate "index is at the last iteration of its range".
func Last(index string) Predicate { return Predicate{kind: predLast, index: index} }

// And builds a conjunction. All children are evaluated (they are pure
// comparisons), then combined.
func And(ps ...Predicate) Predicate { return Predicate{kind: predAnd, children: ps} }

// Or builds a disjunction.
func Or(ps ...Predicate) Predicate { return Predicate{kind: predOr, children: ps} }

// IsZero reports whether p is the unset Predicate, used by Schedule to mean
// "always fire" when a kernel is placed with no guard.
func (p Predicate) IsZero() bool {
	return p.kind == predEq && p.index == "" && len(p.children) == 0 && p.c == 0
}

// bounds carries each index's live [begin,end) range at lowering time, which
// for a split inner index may be the boundary-tile range rather than the
// index's full static range.
type bounds map[string][2]int

// eval compiles p into a boolean-typed Value (1 or 0, stored as a Bool
// scalar) by recursively emitting comparisons and folding them with
// arithmetic Add/Mul, per the package doc's boolean-algebra note.
func (p Predicate) eval(b emitter.Builder, point map[string]emitter.Value, bnd bounds) emitter.Value {
	switch p.kind {
	case predEq:
		return b.Cmp(emitter.Eq, point[p.index], b.ConstScalar(port.Int32, int32(p.c)))
	case predLt:
		return b.Cmp(emitter.Lt, point[p.index], b.ConstScalar(port.Int32, int32(p.c)))
	case predGe:
		return b.Cmp(emitter.Ge, point[p.index], b.ConstScalar(port.Int32, int32(p.c)))
	case predFirst:
		begin := bnd[p.index][0]
		return b.Cmp(emitter.Eq, point[p.index], b.ConstScalar(port.Int32, int32(begin)))
	case predLast:
		last := bnd[p.index][1] - 1
		return b.Cmp(emitter.Eq, point[p.index], b.ConstScalar(port.Int32, int32(last)))
	case predAnd:
		acc := b.ConstScalar(port.Bool, true)
		for _, c := range p.children {
			acc = b.Mul(acc, c.eval(b, point, bnd))
		}
		return acc
	case predOr:
		acc := b.ConstScalar(port.Bool, false)
		for _, c := range p.children {
			acc = b.Add(acc, c.eval(b, point, bnd))
		}
		return b.Cmp(emitter.Ne, acc, b.ConstScalar(port.Bool, false))
	default:
		return b.ConstScalar(port.Bool, true)
	}
}
