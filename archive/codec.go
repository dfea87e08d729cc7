// Package archive implements the backend-neutral, schema-versioned
// key/value serialization of a Model (spec §6 "Archive format": "The
// archive carries: node type name... schema version, per-port shape/type,
// and node-specific parameters... key-addressable, typed, and versioned").
// The primary codec is YAML, grounded in the teacher's config-loading use
// of gopkg.in/yaml.v3; a queryable SQLite-backed store (sqlite.go,
// store.go) sits alongside it for the same Document shape.
package archive

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/ir/layout"
	"github.com/embedml/graphc/ir/model"
	"github.com/embedml/graphc/ir/node"
	"github.com/embedml/graphc/ir/port"
)

// currentSchemaVersion is the Document envelope's own schema version,
// distinct from each node's per-type SchemaVersion.
const currentSchemaVersion = 1

// layoutDoc is the archive-friendly projection of layout.Layout.
type layoutDoc struct {
	Extent       []int `yaml:"extent"`
	ActiveSize   []int `yaml:"active_size"`
	Offset       []int `yaml:"offset"`
	LogicalOrder []int `yaml:"logical_order"`
}

func toLayoutDoc(l layout.Layout) layoutDoc {
	return layoutDoc{
		Extent:       append([]int(nil), l.Extent...),
		ActiveSize:   append([]int(nil), l.ActiveSize...),
		Offset:       append([]int(nil), l.Offset...),
		LogicalOrder: append([]int(nil), l.LogicalOrder...),
	}
}

func (d layoutDoc) toLayout() layout.Layout {
	return layout.Layout{
		Extent:       append([]int(nil), d.Extent...),
		ActiveSize:   append([]int(nil), d.ActiveSize...),
		Offset:       append([]int(nil), d.Offset...),
		LogicalOrder: append([]int(nil), d.LogicalOrder...),
	}
}

type refDoc struct {
	NodeID string `yaml:"node_id"`
	Index  int    `yaml:"index"`
}

type outputDoc struct {
	Type   string    `yaml:"type"`
	Layout layoutDoc `yaml:"layout"`
}

type inputDoc struct {
	Type   string    `yaml:"type"`
	Layout layoutDoc `yaml:"layout"`
	Source refDoc    `yaml:"source"`
}

// nodeDoc is one archived node record (spec §6 "Archive format").
type nodeDoc struct {
	ID            string            `yaml:"id"`
	TypeName      string            `yaml:"type_name"`
	SchemaVersion int               `yaml:"schema_version"`
	Inputs        []inputDoc        `yaml:"inputs,omitempty"`
	Outputs       []outputDoc       `yaml:"outputs,omitempty"`
	Metadata      map[string]string `yaml:"metadata,omitempty"`
	Params        map[string]any    `yaml:"params,omitempty"`
}

// Document is the top-level archive envelope for one Model.
type Document struct {
	SchemaVersion int       `yaml:"schema_version"`
	Nodes         []nodeDoc `yaml:"nodes"`
}

// Encode projects m into an archive Document in forward topological order,
// so Decode can replay the records via model.AddNode without reordering.
func Encode(m *model.Model) (*Document, error) {
	doc := &Document{SchemaVersion: currentSchemaVersion}
	for _, n := range m.Nodes() {
		nd := nodeDoc{
			ID:            n.ID(),
			TypeName:      n.TypeName(),
			SchemaVersion: n.SchemaVersion(),
		}
		for _, in := range n.Inputs() {
			nd.Inputs = append(nd.Inputs, inputDoc{
				Type:   in.Type.String(),
				Layout: toLayoutDoc(in.Layout),
				Source: refDoc{NodeID: in.Source.NodeID, Index: in.Source.Index},
			})
		}
		for _, out := range n.Outputs() {
			nd.Outputs = append(nd.Outputs, outputDoc{Type: out.Type.String(), Layout: toLayoutDoc(out.Layout)})
		}
		if md := n.Metadata(); len(md) > 0 {
			nd.Metadata = map[string]string(md)
		}
		if a, ok := n.(node.Archiver); ok {
			nd.Params = a.ArchiveParams()
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	return doc, nil
}

// EncodeYAML marshals m's archive Document to YAML bytes.
func EncodeYAML(m *model.Model) ([]byte, error) {
	doc, err := Encode(m)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// Decode reconstructs a Model from an archive Document, looking up each
// node's Factory in the node-type registry (spec §6 "Node-type registry")
// and preserving every node's original identifier.
func Decode(doc *Document) (*model.Model, error) {
	m := model.New()
	for _, nd := range doc.Nodes {
		factory, ok := node.Lookup(nd.TypeName)
		if !ok {
			return nil, errkind.WithNode(errkind.Newf(errkind.ArchiveMismatch, "no registered factory for node type %q", nd.TypeName), nd.ID)
		}
		inputs := make([]port.Input, len(nd.Inputs))
		for i, in := range nd.Inputs {
			elemType, err := elementTypeFromString(in.Type)
			if err != nil {
				return nil, errkind.WithNode(err, nd.ID)
			}
			inputs[i] = port.Input{
				Type:   elemType,
				Layout: in.Layout.toLayout(),
				Source: port.Ref{NodeID: in.Source.NodeID, Index: in.Source.Index},
			}
		}
		params, err := normalizeParams(nd.TypeName, nd.Params)
		if err != nil {
			return nil, errkind.WithNode(err, nd.ID)
		}
		n, err := factory(nd.ID, params, inputs)
		if err != nil {
			return nil, errkind.WithNode(err, nd.ID)
		}
		if len(nd.Metadata) > 0 {
			if wm, ok := n.(node.WithMetadata); ok {
				n = wm.WithMetadata(node.Metadata(nd.Metadata))
			}
		}
		if err := m.AddNode(n); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// DecodeYAML unmarshals YAML bytes into a Document and reconstructs the
// Model it describes.
func DecodeYAML(data []byte) (*model.Model, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errkind.Wrap(errkind.ArchiveMismatch, "", err)
	}
	return Decode(&doc)
}

func elementTypeFromString(s string) (port.ElementType, error) {
	for _, t := range []port.ElementType{port.Bool, port.Int8, port.Int16, port.Int32, port.Int64, port.Float32, port.Float64} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, errkind.Newf(errkind.ArchiveMismatch, "unknown element type %q", s)
}

// normalizeParams converts the generically-decoded YAML params bag (whose
// numeric and sequence values arrive as int/float64/[]interface{} rather
// than the concrete types each node's Factory expects) into the typed
// shape each registered Factory in package nodes asserts against.
func normalizeParams(typeName string, raw map[string]any) (map[string]any, error) {
	if raw == nil {
		return nil, nil
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	var err error
	convert := func(key string, f func(any) (any, error)) {
		if err != nil {
			return
		}
		if v, ok := out[key]; ok {
			out[key], err = f(v)
		}
	}
	asElementType := func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("archive: param is not a string element-type name: %v", v)
		}
		return elementTypeFromString(s)
	}
	asIntSlice := func(v any) (any, error) { return toIntSlice(v) }
	asFloat64Slice := func(v any) (any, error) { return toFloat64Slice(v) }
	asInt := func(v any) (any, error) { return toInt(v), nil }
	asFloat64 := func(v any) (any, error) { return toFloat64(v), nil }

	switch typeName {
	case "Input":
		convert("shape", asIntSlice)
		convert("type", asElementType)
	case "Constant":
		convert("values", asFloat64Slice)
		convert("type", asElementType)
	case "ScaleShift":
		convert("a", asFloat64Slice)
		convert("b", asFloat64Slice)
	case "ReorderData":
		convert("order", asIntSlice)
	case "MatrixVectorProduct":
		convert("rows", asInt)
		convert("cols", asInt)
	case "SimpleForest":
		convert("thresholds", asFloat64Slice)
		convert("feature_index", asIntSlice)
		convert("leaves", asFloat64Slice)
	case "GRNN":
		convert("weight", asFloat64Slice)
		convert("bias", asFloat64Slice)
		convert("hidden_size", asInt)
	case "Clamp":
		convert("lo", asFloat64)
		convert("hi", asFloat64)
	}
	if err != nil {
		return nil, errkind.Newf(errkind.ArchiveMismatch, "decoding params for %s: %v", typeName, err)
	}
	return out, nil
}

func toIntSlice(v any) ([]int, error) {
	switch vv := v.(type) {
	case []int:
		return vv, nil
	case []any:
		out := make([]int, len(vv))
		for i, e := range vv {
			out[i] = toInt(e)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("archive: expected a sequence of integers, got %T", v)
	}
}

func toFloat64Slice(v any) ([]float64, error) {
	switch vv := v.(type) {
	case []float64:
		return vv, nil
	case []any:
		out := make([]float64, len(vv))
		for i, e := range vv {
			out[i] = toFloat64(e)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("archive: expected a sequence of numbers, got %T", v)
	}
}

func toInt(v any) int {
	switch vv := v.(type) {
	case int:
		return vv
	case int64:
		return int(vv)
	case float64:
		return int(vv)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch vv := v.(type) {
	case float64:
		return vv
	case int:
		return float64(vv)
	case int64:
		return float64(vv)
	default:
		return 0
	}
}
