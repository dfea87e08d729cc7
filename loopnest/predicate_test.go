package loopnest

import (
	"testing"

	"github.com/embedml/graphc/emitter"
	"github.com/embedml/graphc/emitter/refimpl"
	"github.com/embedml/graphc/ir/port"
)

// TestLastPredicateGuardsFinalIteration exercises Predicate's boolean
// algebra (spec §4.4) through a kernel guarded by Last, which must fire
// exactly once, on the final iteration of its index.
func TestLastPredicateGuardsFinalIteration(t *testing.T) {
	s := NewSchedule()
	if _, err := s.AddIndex("i", 0, 5); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}
	fired := make([]int, 0, 1)
	kernel := NewKernel("mark_last", []string{"out"}, func(b emitter.Builder, point, views map[string]emitter.Value) {
		idx := point["i"].(*refimpl.Scalar)
		fired = append(fired, int(idx.Raw.(int64)))
		b.SetElementAt(views["out"], idx, b.ConstScalar(port.Int32, int32(1)))
	})
	if err := s.AddKernel(kernel, Last("i"), nil, map[string]string{"out": "out"}); err != nil {
		t.Fatalf("AddKernel: %v", err)
	}

	mod := refimpl.NewModule()
	b := mod.NewBuilder()
	out := b.Alloca(emitter.ArrayType(port.Int32, 5))
	if err := s.Lower(b, map[string]emitter.Value{"out": out}); err != nil {
		t.Fatalf("Lower: %v", err)
	}

	if len(fired) != 1 || fired[0] != 4 {
		t.Errorf("fired = %v, want [4] (Last fires only at i==4)", fired)
	}
	got := out.(emitter.HostBuffer).ReadHost()
	for i, v := range got {
		want := 0.0
		if i == 4 {
			want = 1
		}
		if v != want {
			t.Errorf("out[%d] = %v, want %v", i, v, want)
		}
	}
}

// TestAndOrPredicateCombination exercises And/Or composed over First/Eq
// leaves: a kernel guarded by And(First("i"), Or(Eq("j",0), Eq("j",2)))
// must fire only when i is at its first iteration and j is 0 or 2.
func TestAndOrPredicateCombination(t *testing.T) {
	s := NewSchedule()
	if _, err := s.AddIndex("i", 0, 3); err != nil {
		t.Fatalf("AddIndex i: %v", err)
	}
	if _, err := s.AddIndex("j", 0, 3); err != nil {
		t.Fatalf("AddIndex j: %v", err)
	}

	type point struct{ i, j int }
	var fired []point
	kernel := NewKernel("mark", nil, func(b emitter.Builder, pt, views map[string]emitter.Value) {
		i := int(pt["i"].(*refimpl.Scalar).Raw.(int64))
		j := int(pt["j"].(*refimpl.Scalar).Raw.(int64))
		fired = append(fired, point{i, j})
	})
	guard := And(First("i"), Or(Eq("j", 0), Eq("j", 2)))
	if err := s.AddKernel(kernel, guard, nil, nil); err != nil {
		t.Fatalf("AddKernel: %v", err)
	}

	mod := refimpl.NewModule()
	b := mod.NewBuilder()
	if err := s.Lower(b, map[string]emitter.Value{}); err != nil {
		t.Fatalf("Lower: %v", err)
	}

	want := []point{{0, 0}, {0, 2}}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for idx, w := range want {
		if fired[idx] != w {
			t.Errorf("fired[%d] = %v, want %v", idx, fired[idx], w)
		}
	}
}
