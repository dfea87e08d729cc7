package archive

import (
	"testing"

	"github.com/embedml/graphc/internal/logx"
)

// TestSQLStoreSaveLoadList exercises the SQL-backed archive store's
// upsert-by-name persistence (spec §6 "Archive format", SPEC_FULL.md §6
// "Archive store").
func TestSQLStoreSaveLoadList(t *testing.T) {
	store, err := NewSQLStore(SQLiteConfig{Path: ":memory:", Logger: logx.L()})
	if err != nil {
		t.Fatalf("NewSQLStore: %v", err)
	}

	m := buildFusionCandidate(t)
	if err := store.Save("fusion-candidate", m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != "fusion-candidate" {
		t.Fatalf("List() = %v, want [fusion-candidate]", names)
	}

	loaded, err := store.Load("fusion-candidate")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != m.Len() {
		t.Errorf("loaded.Len() = %d, want %d", loaded.Len(), m.Len())
	}

	// Saving again under the same name upserts rather than duplicating.
	if err := store.Save("fusion-candidate", m); err != nil {
		t.Fatalf("Save (upsert): %v", err)
	}
	names, err = store.List()
	if err != nil {
		t.Fatalf("List (after upsert): %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("List() after upsert = %v, want exactly one row", names)
	}

	if err := store.Delete("fusion-candidate"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	names, err = store.List()
	if err != nil {
		t.Fatalf("List (after delete): %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List() after delete = %v, want empty", names)
	}
}
