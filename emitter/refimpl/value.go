package refimpl

import (
	"fmt"
	"reflect"

	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/ir/port"
)

// Scalar is refimpl's emitter.Value for a scalar result: a comparison, an
// arithmetic result, a loaded element, or a literal. Raw always holds the
// Go-native representation matching ScalarType.Elem's kind: bool, int64,
// or float64 (normalizeScalar enforces this on every construction path).
type Scalar struct {
	ScalarType emitter.Type
	Raw        any
}

func (s *Scalar) Type() emitter.Type { return s.ScalarType }

// Pointer is refimpl's emitter.Value for a pointer-to-element result: the
// return of Alloca, ConstArray, Global, or PointerOffset.
type Pointer struct {
	PtrType emitter.Type
	Cell    *memCell
	Offset  int
}

func (p *Pointer) Type() emitter.Type { return p.PtrType }

// ReadHost implements emitter.HostBuffer by copying the cell's contents
// from p.Offset to the end of the backing storage.
func (p *Pointer) ReadHost() []float64 {
	out := make([]float64, len(p.Cell.data)-p.Offset)
	for i := range out {
		out[i] = toFloat64(p.Cell.data[p.Offset+i])
	}
	return out
}

// WriteHost implements emitter.HostBuffer by overwriting the cell's
// contents from p.Offset, normalizing each value to the cell's element
// kind (spec §4.7 "set_input... with a runtime element-type check and
// layout-size check" — the layout-size check is CompiledMap.SetInput's
// responsibility; WriteHost only guards against a host vector that would
// overflow the allocated backing storage).
func (p *Pointer) WriteHost(vals []float64) error {
	capacity := len(p.Cell.data) - p.Offset
	if len(vals) > capacity {
		return fmt.Errorf("refimpl: host write of %d elements overflows backing storage of %d", len(vals), capacity)
	}
	for i, v := range vals {
		p.Cell.data[p.Offset+i] = normalizeScalar(p.Cell.elem, v)
	}
	return nil
}

func newScalar(elem port.ElementType, raw any) *Scalar {
	return &Scalar{ScalarType: emitter.ScalarType(elem), Raw: normalizeScalar(elem, raw)}
}

// rawOf extracts a Value's underlying Go-native scalar, for Values that
// are not already a *Scalar (e.g. a *Pointer used as a boolean-like
// condition is not meaningful and is treated as a programming error by the
// caller).
func rawOf(v emitter.Value) any {
	switch vv := v.(type) {
	case *Scalar:
		return vv.Raw
	default:
		panic("refimpl: expected a scalar value")
	}
}

// normalizeScalar coerces an arbitrary Go-native numeric/bool value into
// the canonical representation for element kind t: bool for port.Bool,
// float64 for the float kinds, int64 for every integer kind. Builder
// callers pass literals in whatever concrete Go type is natural at the
// call site (int32, float64, bool, ...); this is the single place that
// reconciles them.
func normalizeScalar(t port.ElementType, v any) any {
	switch t {
	case port.Bool:
		return toBool(v)
	case port.Float32, port.Float64:
		return toFloat64(v)
	default:
		return toInt64(v)
	}
}

func toBool(v any) bool {
	switch vv := v.(type) {
	case bool:
		return vv
	default:
		return toFloat64(v) != 0
	}
}

func toFloat64(v any) float64 {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float())
	default:
		return 0
	}
}

func isFloatKind(t port.ElementType) bool {
	return t == port.Float32 || t == port.Float64
}
