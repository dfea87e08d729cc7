package loopnest

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/embedml/graphc/emitter"
)

// KernelFunc is the per-point body a Kernel invokes at code-emission time.
// point carries the currently bound index Values (keyed by index name);
// views carries the resolved operand handles (keyed by view name) the
// kernel was attached with.
type KernelFunc func(b emitter.Builder, point map[string]emitter.Value, views map[string]emitter.Value)

// Kernel is a named, content-addressable unit of loop-body work (spec §4.4
// "Kernel"). Per the spec §9 design note, a Kernel is a captured closure:
// the Fn field is invoked by Schedule.Lower against the emitter's
// primitives, not executed directly by this package.
type Kernel struct {
	Name      string
	ViewNames []string
	Fn        KernelFunc

	id uint64
}

// NewKernel builds a Kernel and computes its content-addressable ID from
// its name and the view names it reads, so that two kernels doing the same
// named operation over the same named operands compare equal regardless of
// where they were constructed (spec §4.4 "Kernel identity").
func NewKernel(name string, viewNames []string, fn KernelFunc) *Kernel {
	return &Kernel{
		Name:      name,
		ViewNames: append([]string(nil), viewNames...),
		Fn:        fn,
		id:        xxhash.Sum64String(name + "|" + strings.Join(viewNames, ",")),
	}
}

// ID returns the Kernel's content-addressable identity.
func (k *Kernel) ID() uint64 { return k.id }
