package loopnest

import (
	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/ir/port"
)

// CacheStrategy is one of the spec §4.5 caching strategies.
type CacheStrategy int

const (
	// CopyInCopyOut stages a tile into scratch before the guarded region and
	// writes it back after, for an operand read and written inside the tile.
	CopyInCopyOut CacheStrategy = iota
	// CopyIn stages a read-only tile into scratch; no write-back.
	CopyIn
	// ZeroInReduceOut zero-fills scratch on entry and accumulates it into the
	// destination operand on exit, for a reduction accumulator tile.
	ZeroInReduceOut
	// BLASTCopy stages a tile for a matrix-multiply kernel. Staging and
	// write-back are the same linear element copy as CopyInCopyOut; DimOrder
	// is not applied, so no reordered packing takes place.
	BLASTCopy
	// General performs a caller-supplied copy-in/copy-out pair without this
	// package assuming read/write/reduce structure.
	General
)

// CachingProvider describes how one operand view is staged into local
// scratch storage for the subtree of the loop nest rooted at AtIndex (spec
// §4.5 "CachingProvider"). The scratch allocation is sized for one tile
// (Size elements of ElemType) and is made once, where the nest reaches
// AtIndex; when AtIndex is a parallel index all workers share that one
// scratch, and no per-worker copies are made.
type CachingProvider struct {
	Strategy CacheStrategy
	ViewName string
	AtIndex  string
	ElemType port.ElementType
	Size     int
	DimOrder []int

	// CopyIn/CopyOut are used only by the General strategy; they receive the
	// source view Value and the freshly allocated scratch Value.
	CopyIn  func(b emitter.Builder, src, scratch emitter.Value)
	CopyOut func(b emitter.Builder, src, scratch emitter.Value)
}

func (p *CachingProvider) stage(b emitter.Builder, src emitter.Value) emitter.Value {
	scratchType := emitter.ArrayType(p.ElemType, p.Size)
	scratch := b.Alloca(scratchType)

	switch p.Strategy {
	case CopyInCopyOut, CopyIn, BLASTCopy:
		b.For(b.ConstScalar(port.Int32, int32(0)), b.ConstScalar(port.Int32, int32(p.Size)), 1,
			func(b emitter.Builder, i emitter.Value) {
				b.SetElementAt(scratch, i, b.ElementAt(src, i))
			})
	case ZeroInReduceOut:
		zero := b.ConstScalar(p.ElemType, zeroValue(p.ElemType))
		b.For(b.ConstScalar(port.Int32, int32(0)), b.ConstScalar(port.Int32, int32(p.Size)), 1,
			func(b emitter.Builder, i emitter.Value) {
				b.SetElementAt(scratch, i, zero)
			})
	case General:
		if p.CopyIn != nil {
			p.CopyIn(b, src, scratch)
		}
	}
	return scratch
}

func (p *CachingProvider) unstage(b emitter.Builder, src, scratch emitter.Value) {
	switch p.Strategy {
	case CopyInCopyOut, BLASTCopy:
		b.For(b.ConstScalar(port.Int32, int32(0)), b.ConstScalar(port.Int32, int32(p.Size)), 1,
			func(b emitter.Builder, i emitter.Value) {
				b.SetElementAt(src, i, b.ElementAt(scratch, i))
			})
	case ZeroInReduceOut:
		b.For(b.ConstScalar(port.Int32, int32(0)), b.ConstScalar(port.Int32, int32(p.Size)), 1,
			func(b emitter.Builder, i emitter.Value) {
				sum := b.Add(b.ElementAt(src, i), b.ElementAt(scratch, i))
				b.SetElementAt(src, i, sum)
			})
	case CopyIn:
		// read-only: nothing to write back.
	case General:
		if p.CopyOut != nil {
			p.CopyOut(b, src, scratch)
		}
	}
}

func zeroValue(t port.ElementType) any {
	switch t {
	case port.Bool:
		return false
	case port.Int8, port.Int16, port.Int32, port.Int64:
		return int64(0)
	case port.Float32, port.Float64:
		return float64(0)
	default:
		return int64(0)
	}
}
