// Package transform implements the globally registered Transformation
// passes and the driver that sequences them (spec §4.3 "Transformation &
// Registry"). The registry is a package-level, mutex-guarded slice,
// grounded in the teacher's telemetry.globalTracer/Init/Get singleton
// pattern (read-mostly global, mutex-guarded, no locks needed on the hot
// path after init) — see SPEC_FULL.md §4.3.
package transform

import (
	"sync"

	"github.com/embedml/graphc/ir/model"
)

// Context carries the parameters a Transformation reads but does not own:
// the SetCompilerOptions property bag, the SetConvolutionMethod default
// algorithm choice, and the Refine pass's iteration bound (spec §4.3, §4.2
// "The default limit is small").
type Context struct {
	// CompilerOptions is copied into every node's (and, conceptually, the
	// model's) metadata by SetCompilerOptions.
	CompilerOptions map[string]string
	// ConvolutionAlgorithm, if non-empty, is the algorithm SetConvolutionMethod
	// annotates every "automatic" ConvolutionNode with.
	ConvolutionAlgorithm string
	// RefineLimit bounds the Refine pass's internal iteration count; 0
	// means the package default (10).
	RefineLimit int
}

// Transformation is a registered submodel-to-submodel rewrite (spec §4.3).
// Implementations operate over the whole Model rather than an explicit
// Submodel parameter — see DESIGN.md for why: every pass here is global
// (it may touch any node), and model.Submodel remains available to a node's
// own Refine implementation for the cases that do need a bounded view.
type Transformation interface {
	// Name identifies the transformation in the registry and in telemetry
	// spans (spec §5 concurrency model: the registry is read-only after
	// init).
	Name() string
	// Apply rewrites source into a new Model under ctx, returning the
	// rewritten Model or the first error encountered.
	Apply(source *model.Model, ctx *Context) (*model.Model, error)
}

var (
	registryMu sync.RWMutex
	registry   []Transformation
)

// Register installs t at the end of the registry's application order
// (spec §4.3: "the driver applies transformations in registration order").
// Like node.Register, it is expected to run from package init functions
// before any Apply/RefineAndOptimize call.
func Register(t Transformation) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, t)
}

// Registered returns a snapshot of the registry in registration order.
func Registered() []Transformation {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return append([]Transformation(nil), registry...)
}

// ByName returns the registered Transformation with the given Name, if any.
func ByName(name string) (Transformation, bool) {
	for _, t := range Registered() {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}
