package node

import (
	"fmt"
	"sort"
	"sync"

	"github.com/embedml/graphc/ir/port"
)

// Factory reconstructs a Node from its archived parameters and its
// already-resolved input ports (spec §6 "Node-type registry": "a global
// map from runtime type name string to a factory that reads the archive
// and constructs a new node instance"). params holds the node-specific
// key/value payload an archive.Codec decoded (spec §6 "Archive format");
// decoding raw bytes into params is package archive's job, not this
// registry's.
type Factory func(id string, params map[string]any, inputs []port.Input) (Node, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register installs the factory for a node type name. Per spec §5
// "Global Transformation registry — written once at startup, read
// thereafter", Register is expected to run from package init functions
// before any Lookup; the mutex exists to make concurrent startup
// registration from multiple packages safe, not to support runtime
// re-registration.
func Register(typeName string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[typeName]; exists {
		panic(fmt.Sprintf("node: type %q already registered", typeName))
	}
	registry[typeName] = f
}

// Lookup returns the factory registered for typeName, if any.
func Lookup(typeName string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[typeName]
	return f, ok
}

// RegisteredTypes returns the sorted list of currently registered type
// names, mainly useful for diagnostics and tests.
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
