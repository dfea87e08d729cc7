// Package loopnest implements the declarative loop-nest construction layer
// (spec §4.4): affine index algebra, a Schedule describing split/order/
// unroll/parallelize transformations plus kernel placement, and caching
// providers (spec §4.5) that stage operand tiles into scratch storage.
//
// A Schedule only describes the iteration space; Lower renders it against
// an emitter.Builder (spec §4.6), following the spec §9 design note that
// kernels are "captured closures... invoked at code-emission time against
// the emitter's primitives."
package loopnest

import "fmt"

// Index is a named affine loop variable with range [Begin, End).
type Index struct {
	Name  string
	Begin int
	End   int

	// splitParent/splitFactor/splitOriginalEnd are set on the *inner*
	// index produced by Schedule.Split; they let Lower compute the
	// correct full-tile vs. boundary-tile range (spec §4.4 "Numeric
	// semantics").
	splitParent      *Index
	splitFactor      int
	splitOriginalEnd int

	Unrolled     bool
	UnrollFactor int // 0 means "fully unroll the whole range"

	Parallel    bool
	ThreadCount int
}

func (ix *Index) String() string {
	return fmt.Sprintf("%s[%d,%d)", ix.Name, ix.Begin, ix.End)
}

// Len returns the number of iterations in the index's full range.
func (ix *Index) Len() int { return ix.End - ix.Begin }
