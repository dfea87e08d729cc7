package node

import (
	"testing"

	"github.com/embedml/graphc/ir/port"
)

type registryFakeNode struct {
	id string
}

func (n *registryFakeNode) ID() string             { return n.id }
func (n *registryFakeNode) TypeName() string       { return "RegistryFake" }
func (n *registryFakeNode) SchemaVersion() int     { return 1 }
func (n *registryFakeNode) Inputs() []port.Input   { return nil }
func (n *registryFakeNode) Outputs() []port.Output { return nil }
func (n *registryFakeNode) Metadata() Metadata     { return nil }

// TestRegisterLookupRoundTrip exercises the global node-type registry
// (spec §6 "Node-type registry").
func TestRegisterLookupRoundTrip(t *testing.T) {
	if _, ok := Lookup("RegistryFake"); ok {
		t.Fatal("RegistryFake should not be registered yet")
	}
	Register("RegistryFake", func(id string, params map[string]any, inputs []port.Input) (Node, error) {
		return &registryFakeNode{id: id}, nil
	})

	f, ok := Lookup("RegistryFake")
	if !ok {
		t.Fatal("Lookup(\"RegistryFake\") = false after Register")
	}
	n, err := f("x", nil, nil)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if n.ID() != "x" {
		t.Errorf("factory-built node ID = %q, want %q", n.ID(), "x")
	}

	found := false
	for _, name := range RegisteredTypes() {
		if name == "RegistryFake" {
			found = true
		}
	}
	if !found {
		t.Error("RegisteredTypes() does not list RegistryFake after Register")
	}
}

// TestRegisterPanicsOnDuplicate verifies re-registering a type name panics
// rather than silently overwriting the factory (spec §5's "written once at
// startup" registry discipline, mirrored here for node types).
func TestRegisterPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Register with a duplicate type name should panic")
		}
	}()
	Register("RegistryFake", func(id string, params map[string]any, inputs []port.Input) (Node, error) {
		return nil, nil
	})
}
