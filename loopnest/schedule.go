package loopnest

import (
	"fmt"

	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/ir/port"
)

type kernelPlacement struct {
	kernel    *Kernel
	pred      Predicate
	atIndices []string // empty => fire once all of s.order is bound
	views     map[string]string
}

// Schedule is a declarative description of a perfectly-nested affine loop
// over named Index variables, plus the split/order/unroll/parallelize
// transformations, kernel placements and caching providers attached to it
// (spec §4.4).
type Schedule struct {
	indices   map[string]*Index
	order     []string
	kernels   []kernelPlacement
	providers map[string]*CachingProvider // keyed by AtIndex
}

// NewSchedule returns an empty Schedule over no indices.
func NewSchedule() *Schedule {
	return &Schedule{
		indices:   make(map[string]*Index),
		providers: make(map[string]*CachingProvider),
	}
}

// AddIndex introduces a named loop variable ranging over [begin, end) and
// appends it to the nesting order.
func (s *Schedule) AddIndex(name string, begin, end int) (*Index, error) {
	if _, exists := s.indices[name]; exists {
		return nil, fmt.Errorf("loopnest: index %q already exists", name)
	}
	ix := &Index{Name: name, Begin: begin, End: end}
	s.indices[name] = ix
	s.order = append(s.order, name)
	return ix, nil
}

// Split partitions index name into an outer tile-count index (which keeps
// name, for referent stability per spec §4.4) and a new inner index
// ranging over one tile. factor must be positive. Split replaces name's
// position in the nesting order with [outer, inner].
func (s *Schedule) Split(name string, factor int, innerName string) (outer, inner *Index, err error) {
	if factor <= 0 {
		return nil, nil, fmt.Errorf("loopnest: split factor must be positive, got %d", factor)
	}
	ix, ok := s.indices[name]
	if !ok {
		return nil, nil, fmt.Errorf("loopnest: unknown index %q", name)
	}
	if ix.splitParent != nil || ix.Begin != 0 {
		return nil, nil, fmt.Errorf("loopnest: index %q is not splittable", name)
	}
	if _, exists := s.indices[innerName]; exists {
		return nil, nil, fmt.Errorf("loopnest: index %q already exists", innerName)
	}

	n := ix.End
	numFullTiles := n / factor
	remainder := n % factor
	outerEnd := numFullTiles
	if remainder > 0 {
		outerEnd++
	}

	ix.End = outerEnd // outer keeps the original name
	innerIx := &Index{
		Name:             innerName,
		Begin:            0,
		End:              factor,
		splitParent:      ix,
		splitFactor:      factor,
		splitOriginalEnd: n,
	}
	s.indices[innerName] = innerIx

	for i, o := range s.order {
		if o == name {
			newOrder := make([]string, 0, len(s.order)+1)
			newOrder = append(newOrder, s.order[:i]...)
			newOrder = append(newOrder, name, innerName)
			newOrder = append(newOrder, s.order[i+1:]...)
			s.order = newOrder
			break
		}
	}
	return ix, innerIx, nil
}

// SetOrder reorders the loop nest. names must be a permutation of the
// Schedule's current index names.
func (s *Schedule) SetOrder(names ...string) error {
	if len(names) != len(s.order) {
		return fmt.Errorf("loopnest: SetOrder expects %d indices, got %d", len(s.order), len(names))
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := s.indices[n]; !ok {
			return fmt.Errorf("loopnest: unknown index %q", n)
		}
		if seen[n] {
			return fmt.Errorf("loopnest: index %q listed twice in SetOrder", n)
		}
		seen[n] = true
	}
	s.order = append([]string(nil), names...)
	return nil
}

// Unroll marks an index for full compile-time unrolling.
func (s *Schedule) Unroll(name string) error {
	ix, ok := s.indices[name]
	if !ok {
		return fmt.Errorf("loopnest: unknown index %q", name)
	}
	ix.Unrolled = true
	return nil
}

// Parallelize marks an index to be split across up to threadCount workers
// at code-emission time (spec §4.4 "Parallelize", spec §5 concurrency
// model).
func (s *Schedule) Parallelize(name string, threadCount int) error {
	ix, ok := s.indices[name]
	if !ok {
		return fmt.Errorf("loopnest: unknown index %q", name)
	}
	if threadCount < 1 {
		return fmt.Errorf("loopnest: threadCount must be >= 1, got %d", threadCount)
	}
	ix.Parallel = true
	ix.ThreadCount = threadCount
	return nil
}

// AddKernel attaches a Kernel to the schedule. pred may be the zero
// Predicate to mean "always fire". atIndices names the indices that must be
// bound for the kernel to fire; an empty slice means "fire once all indices
// in the nest are bound" (the common innermost-kernel case). views maps the
// kernel's declared ViewNames to the names Lower's initial views map was
// given.
func (s *Schedule) AddKernel(k *Kernel, pred Predicate, atIndices []string, views map[string]string) error {
	for _, name := range atIndices {
		if _, ok := s.indices[name]; !ok {
			return fmt.Errorf("loopnest: unknown index %q in kernel placement", name)
		}
	}
	s.kernels = append(s.kernels, kernelPlacement{kernel: k, pred: pred, atIndices: atIndices, views: views})
	return nil
}

// Cache attaches a CachingProvider wrapping the subtree rooted at
// provider.AtIndex.
func (s *Schedule) Cache(provider *CachingProvider) error {
	if _, ok := s.indices[provider.AtIndex]; !ok {
		return fmt.Errorf("loopnest: unknown index %q in caching provider", provider.AtIndex)
	}
	s.providers[provider.AtIndex] = provider
	return nil
}

// lowerState threads the mutable context of a Lower recursion.
type lowerState struct {
	point map[string]emitter.Value
	views map[string]emitter.Value
	bnd   bounds
	// unrolledOuter records the Go-level value of any unrolled index
	// currently bound, so a split inner index nested under it can compute
	// its boundary-tile range (see outerBoundRange).
	unrolledOuter map[string]int
}

// Lower renders the schedule against b, resolving each kernel's declared
// ViewNames against views (which supplies the Module-level operand
// handles, typically pointers to a Map's inputs/outputs and intermediate
// buffers).
func (s *Schedule) Lower(b emitter.Builder, views map[string]emitter.Value) error {
	st := &lowerState{
		point: make(map[string]emitter.Value),
		views: copyViews(views),
		bnd:   make(bounds),
	}
	for _, name := range s.order {
		ix := s.indices[name]
		st.bnd[name] = [2]int{ix.Begin, ix.End}
	}
	return s.lowerAt(b, st, 0)
}

func copyViews(in map[string]emitter.Value) map[string]emitter.Value {
	out := make(map[string]emitter.Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *Schedule) lowerAt(b emitter.Builder, st *lowerState, depth int) error {
	if depth == len(s.order) {
		return s.fireKernels(b, st, nil)
	}

	name := s.order[depth]
	ix := s.indices[name]

	provider, cached := s.providers[name]
	priorViews := st.views
	if cached {
		src, ok := st.views[provider.ViewName]
		if !ok {
			return fmt.Errorf("loopnest: caching provider references unknown view %q", provider.ViewName)
		}
		scratch := provider.stage(b, src)
		st.views = copyViews(priorViews)
		st.views[provider.ViewName] = scratch
		defer func() { provider.unstage(b, src, scratch); st.views = priorViews }()
	}

	switch {
	case ix.Unrolled:
		return s.lowerUnrolled(b, st, depth, ix)
	case ix.Parallel:
		return s.lowerParallel(b, st, depth, ix)
	default:
		return s.lowerFor(b, st, depth, ix)
	}
}

// effectiveRange returns [begin,end) for ix given the already-bound values
// in st.point, accounting for a split inner index's boundary tile.
func (s *Schedule) effectiveRange(st *lowerState, ix *Index, outerVal int) (int, int) {
	if ix.splitParent == nil {
		return ix.Begin, ix.End
	}
	remaining := ix.splitOriginalEnd - outerVal*ix.splitFactor
	if remaining < ix.splitFactor {
		return 0, remaining
	}
	return 0, ix.splitFactor
}

func (s *Schedule) lowerFor(b emitter.Builder, st *lowerState, depth int, ix *Index) error {
	begin, end := ix.Begin, ix.End
	if ix.splitParent != nil {
		begin, end = s.outerBoundRange(st, ix)
	}
	var innerErr error
	b.For(b.ConstScalar(port.Int32, int32(begin)), b.ConstScalar(port.Int32, int32(end)), 1,
		func(b emitter.Builder, idx emitter.Value) {
			st.point[ix.Name] = idx
			if err := s.fireKernels(b, st, []string{ix.Name}); err != nil && innerErr == nil {
				innerErr = err
			}
			if err := s.lowerAt(b, st, depth+1); err != nil && innerErr == nil {
				innerErr = err
			}
			delete(st.point, ix.Name)
		})
	return innerErr
}

// outerBoundRange resolves a split inner index's range using the Go-level
// value of its outer index, which is only statically known when the outer
// index is unrolled. Non-unrolled outer/inner split pairs fall back to the
// full factor range for every tile except the last, matching the "full-tile
// main loop plus predicated boundary epilogue" shape the package documents;
// callers that need a dynamic boundary tile with a runtime outer loop should
// mark the outer index Unroll'd.
func (s *Schedule) outerBoundRange(st *lowerState, ix *Index) (int, int) {
	if v, ok := st.unrolledOuter[ix.splitParent.Name]; ok {
		return s.effectiveRange(st, ix, v)
	}
	return 0, ix.splitFactor
}

func (s *Schedule) lowerUnrolled(b emitter.Builder, st *lowerState, depth int, ix *Index) error {
	if st.unrolledOuter == nil {
		st.unrolledOuter = make(map[string]int)
	}
	begin, end := ix.Begin, ix.End
	if ix.splitParent != nil {
		begin, end = s.outerBoundRange(st, ix)
	}
	for v := begin; v < end; v++ {
		st.point[ix.Name] = b.ConstScalar(port.Int32, int32(v))
		st.unrolledOuter[ix.Name] = v
		if err := s.fireKernels(b, st, []string{ix.Name}); err != nil {
			return err
		}
		if err := s.lowerAt(b, st, depth+1); err != nil {
			return err
		}
	}
	delete(st.point, ix.Name)
	delete(st.unrolledOuter, ix.Name)
	return nil
}

func (s *Schedule) lowerParallel(b emitter.Builder, st *lowerState, depth int, ix *Index) error {
	begin, end := ix.Begin, ix.End
	n := end - begin
	chunk := (n + ix.ThreadCount - 1) / ix.ThreadCount

	captures := make([]emitter.Value, 0, len(st.views))
	for _, v := range st.views {
		captures = append(captures, v)
	}

	var innerErr error
	b.Parallelize(ix.ThreadCount, captures, func(b emitter.Builder, workerID emitter.Value) {
		workerBegin := b.Add(b.ConstScalar(port.Int32, int32(begin)), b.Mul(workerID, b.ConstScalar(port.Int32, int32(chunk))))
		rawEnd := b.Add(workerBegin, b.ConstScalar(port.Int32, int32(chunk)))
		endSlot := b.Alloca(emitter.ScalarType(port.Int32))
		b.Store(endSlot, rawEnd)
		b.If(b.Cmp(emitter.Gt, rawEnd, b.ConstScalar(port.Int32, int32(end))), func(b emitter.Builder) {
			b.Store(endSlot, b.ConstScalar(port.Int32, int32(end)))
		}, nil, nil)
		workerEnd := b.Load(endSlot)

		b.For(workerBegin, workerEnd, 1, func(b emitter.Builder, idx emitter.Value) {
			st.point[ix.Name] = idx
			if err := s.fireKernels(b, st, []string{ix.Name}); err != nil && innerErr == nil {
				innerErr = err
			}
			if err := s.lowerAt(b, st, depth+1); err != nil && innerErr == nil {
				innerErr = err
			}
			delete(st.point, ix.Name)
		})
	})
	return innerErr
}

// fireKernels emits every kernel whose placement matches exactly the set of
// indices bound at this point in the recursion: atIndices == nil means
// "only at full depth" (boundAt == nil acts as the sentinel for that),
// otherwise atIndices must equal the just-bound index name.
func (s *Schedule) fireKernels(b emitter.Builder, st *lowerState, justBound []string) error {
	for _, kp := range s.kernels {
		if !placementMatches(kp.atIndices, justBound, s.order, st.point) {
			continue
		}
		views := make(map[string]emitter.Value, len(kp.kernel.ViewNames))
		for _, vn := range kp.kernel.ViewNames {
			srcName, ok := kp.views[vn]
			if !ok {
				return fmt.Errorf("loopnest: kernel %q has no view binding for %q", kp.kernel.Name, vn)
			}
			v, ok := st.views[srcName]
			if !ok {
				return fmt.Errorf("loopnest: kernel %q references unresolved view %q", kp.kernel.Name, srcName)
			}
			views[vn] = v
		}

		emit := func(b emitter.Builder) { kp.kernel.Fn(b, st.point, views) }
		if kp.pred.IsZero() {
			emit(b)
			continue
		}
		cond := kp.pred.eval(b, st.point, st.bnd)
		b.If(cond, emit, nil, nil)
	}
	return nil
}

// placementMatches reports whether a kernel's placement fires given that
// justBound (a single index, or nil meaning "the full nest just completed")
// was just bound.
func placementMatches(atIndices, justBound, order []string, point map[string]emitter.Value) bool {
	if len(atIndices) == 0 {
		return justBound == nil && len(point) == len(order)
	}
	if justBound == nil || len(justBound) != 1 {
		return false
	}
	last := atIndices[len(atIndices)-1]
	if last != justBound[0] {
		return false
	}
	for _, name := range atIndices {
		if _, ok := point[name]; !ok {
			return false
		}
	}
	return true
}
