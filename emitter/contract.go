package emitter

import "github.com/embedml/graphc/ir/port"

// Value is an opaque typed handle produced by a Builder. Concrete emitters
// define their own representation (an LLVM Value, a C expression string, an
// interpreter cell, ...); the contract only requires that a Value remember
// its own Type.
type Value interface {
	Type() Type
}

// Module is the compilation unit an Emitter renders a Map's functions into.
// It owns function declarations/definitions and module-scope globals.
type Module interface {
	// DeclareFunction declares an external function by name and signature
	// without defining it (spec §4.6).
	DeclareFunction(decl FunctionDecl) error

	// DefineFunction defines a function body. body receives typed parameter
	// handles and a Builder to emit into, and returns an optional result
	// Value (nil for a void function). The emitter must emit a definition
	// for a given FunctionDecl.DecoratedName() at most once.
	DefineFunction(decl FunctionDecl, body func(b Builder, params []Value) Value) error

	// Global declares a module-scope variable. init may be nil (the
	// storage is zero-initialized). mutable distinguishes a writable
	// global from an immutable constant.
	Global(name string, t Type, mutable bool, init Value) (Value, error)
}

// ElseIf is one `elseif` arm of a Builder.If chain.
type ElseIf struct {
	Cond Value
	Then func(b Builder)
}

// Builder emits instructions into one function body (spec §4.6 "Values",
// "Arithmetic and comparison", "Control flow", "Resource-bounded
// constructs").
type Builder interface {
	// --- Values ---

	// ConstScalar materializes a scalar literal. v must be assignable to
	// the Go type corresponding to t (bool, int8, ..., float64).
	ConstScalar(t port.ElementType, v any) Value
	// ConstArray materializes a constant array literal.
	ConstArray(t port.ElementType, values []any) Value
	// Alloca reserves function-local stack storage for t and returns a
	// pointer to it.
	Alloca(t Type) Value
	Load(ptr Value) Value
	Store(ptr Value, val Value)
	// PointerOffset returns a pointer advanced by idx elements.
	PointerOffset(ptr Value, idx Value) Value
	ElementAt(arr Value, idx Value) Value
	SetElementAt(arr Value, idx Value, val Value)

	// --- Arithmetic & comparison ---

	Add(a, b Value) Value
	Sub(a, b Value) Value
	Mul(a, b Value) Value
	Div(a, b Value) Value
	Mod(a, b Value) Value
	Cmp(op CmpOp, a, b Value) Value

	// --- Control flow ---

	// If emits a conditional with zero or more elseif arms and an optional
	// else branch (nil if absent). Each branch is a lambda emitting into
	// the same Builder.
	If(cond Value, then func(b Builder), elseIfs []ElseIf, els func(b Builder))
	// For emits a counted loop over [begin, end) stepping by step
	// (step defaults to 1 when 0), invoking body with the loop's index
	// handle.
	For(begin, end Value, step int, body func(b Builder, index Value))
	// Goto performs an unconditional exit to the end of the enclosing
	// function (spec §4.6 "unconditional branch").
	Goto()
	// Call invokes a previously declared or defined function.
	Call(decl FunctionDecl, args ...Value) Value
	// Return sets the function's result. val is nil for a void function.
	Return(val Value)

	// Parallelize invokes body on up to threadCount workers, each given
	// its own worker-id handle and the same captured Values (spec §4.6,
	// §5: captures are read-only or disjoint-write by worker index).
	Parallelize(threadCount int, captures []Value, body func(b Builder, workerID Value))
}
