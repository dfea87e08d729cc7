// Package errkind defines the closed set of compiler error kinds (spec §7)
// and the tagged error type used to surface them to callers.
package errkind

import "fmt"

// Kind is one of the closed set of error classifications a compilation can
// fail with.
type Kind string

const (
	ShapeMismatch           Kind = "shape_mismatch"
	TypeMismatch            Kind = "type_mismatch"
	OutOfOrderVisit         Kind = "out_of_order_visit"
	RefinementLoop          Kind = "refinement_loop"
	EmitterCapabilityAbsent Kind = "emitter_capability_absent"
	ArchiveMismatch         Kind = "archive_mismatch"
	CycleDetected           Kind = "cycle_detected"
	ResourceExhaustion      Kind = "resource_exhaustion"
)

// CompileError is the tagged result value the compilation pipeline
// short-circuits on (spec §9: "tagged result values carrying kind and
// message" in place of exceptions).
type CompileError struct {
	Kind    Kind
	Message string
	NodeID  string // optional: the failing node's identifier
	Err     error  // optional: wrapped cause
}

func (e *CompileError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node %s)", e.Kind, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// New builds a CompileError with no node context.
func New(kind Kind, message string) *CompileError {
	return &CompileError{Kind: kind, Message: message}
}

// Newf builds a CompileError with a formatted message.
func Newf(kind Kind, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithNode returns a copy of e with NodeID set.
func WithNode(err *CompileError, nodeID string) *CompileError {
	cp := *err
	cp.NodeID = nodeID
	return &cp
}

// Wrap builds a CompileError that wraps an underlying error.
func Wrap(kind Kind, nodeID string, err error) *CompileError {
	return &CompileError{Kind: kind, Message: err.Error(), NodeID: nodeID, Err: err}
}
