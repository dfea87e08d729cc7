package loopnest

import (
	"testing"

	"github.com/embedml/graphc/emitter"
)

func TestSplitEvenDivision(t *testing.T) {
	s := NewSchedule()
	if _, err := s.AddIndex("i", 0, 8); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}
	outer, inner, err := s.Split("i", 4, "i_inner")
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if outer.End != 2 {
		t.Errorf("outer.End = %d, want 2", outer.End)
	}
	if inner.End != 4 {
		t.Errorf("inner.End = %d, want 4", inner.End)
	}
	if len(s.order) != 2 || s.order[0] != "i" || s.order[1] != "i_inner" {
		t.Errorf("order = %v, want [i i_inner]", s.order)
	}
}

func TestSplitBoundaryTile(t *testing.T) {
	s := NewSchedule()
	if _, err := s.AddIndex("i", 0, 10); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}
	outer, inner, err := s.Split("i", 4, "i_inner")
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if outer.End != 3 {
		t.Errorf("outer.End = %d, want 3 (ceil(10/4))", outer.End)
	}
	begin, end := s.effectiveRange(nil, inner, 2)
	if begin != 0 || end != 2 {
		t.Errorf("boundary tile range = [%d,%d), want [0,2)", begin, end)
	}
	begin, end = s.effectiveRange(nil, inner, 0)
	if begin != 0 || end != 4 {
		t.Errorf("full tile range = [%d,%d), want [0,4)", begin, end)
	}
}

func TestSetOrderRejectsUnknownIndex(t *testing.T) {
	s := NewSchedule()
	if _, err := s.AddIndex("i", 0, 4); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}
	if err := s.SetOrder("j"); err == nil {
		t.Error("SetOrder with unknown index should error")
	}
}

func TestAddKernelRejectsUnknownIndex(t *testing.T) {
	s := NewSchedule()
	if _, err := s.AddIndex("i", 0, 4); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}
	k := NewKernel("noop", nil, func(b emitter.Builder, point, views map[string]emitter.Value) {})
	if err := s.AddKernel(k, Predicate{}, []string{"j"}, nil); err == nil {
		t.Error("AddKernel with unknown index in atIndices should error")
	}
}

func TestPredicateIsZero(t *testing.T) {
	var p Predicate
	if !p.IsZero() {
		t.Error("zero-value Predicate should report IsZero")
	}
	if Eq("i", 0).IsZero() {
		t.Error("Eq(i,0) should not report IsZero")
	}
}
