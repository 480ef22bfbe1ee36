package vm

import (
	"errors"
	"fmt"

	"github.com/wudi/havenlua/values"
)

// Category classifies a RuntimeError the way spec.md §7 distinguishes
// error kinds.
type Category int

const (
	// CategoryType: operand has the wrong type for an operation.
	CategoryType Category = iota
	// CategoryStructural: stack overflow, size overflow, metamethod loop.
	CategoryStructural
	// CategoryRuntime: explicit error raised by user code or a native function.
	CategoryRuntime
)

func (c Category) String() string {
	switch c {
	case CategoryType:
		return "type error"
	case CategoryStructural:
		return "structural error"
	case CategoryRuntime:
		return "runtime error"
	default:
		return "error"
	}
}

// Sentinel Go-level errors for conditions that are always internal
// (never themselves become the Lua-level error value).
var (
	ErrStackOverflow    = errors.New("stack overflow")
	ErrLoopInGetTable   = errors.New("loop in gettable")
	ErrLoopInSetTable   = errors.New("loop in settable")
	ErrLoopInComparison = errors.New("loop in comparison metamethod")
	ErrInvalidNextKey   = errors.New("invalid key to 'next'")
)

// RuntimeError is the error type that crosses from the dispatch loop
// up to a protected-call boundary. Value is the Lua-level error object
// (usually a string); Err, when present, is the Go-level cause.
type RuntimeError struct {
	Category Category
	Value    values.Value
	Err      error
	// Traceback is a lightweight call-chain snapshot captured at the
	// fault site, innermost frame first.
	Traceback []string
}

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Category, e.Err)
	}
	if e.Value.IsString() {
		return e.Value.AsString().Bytes()
	}
	return fmt.Sprintf("%s: %s", e.Category, values.TypeName(e.Value))
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// newError builds a RuntimeError whose Lua-level value is the
// interned message string.
func (th *Thread) newError(cat Category, format string, args ...any) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	return &RuntimeError{
		Category:  cat,
		Value:     th.interner.NewString(msg),
		Traceback: th.traceback(),
	}
}

func (th *Thread) typeError(format string, args ...any) *RuntimeError {
	return th.newError(CategoryType, format, args...)
}

func (th *Thread) structuralError(cause error, format string, args ...any) *RuntimeError {
	e := th.newError(CategoryStructural, format, args...)
	e.Err = cause
	return e
}

// unwind is the panic payload used to implement "structured non-local
// exit to the nearest protected-call boundary" (spec.md §7, §9). The
// recover sites are protectedCall and Protect (calls.go) and
// Coroutine.run (coroutine.go); each recovers a *unwind and turns it
// into an error return; any other
// recovered value is not this package's own and is re-panicked
// unchanged, so a bare Go panic (a programming bug, not a Lua-level
// error) is never silently swallowed at the embedding boundary.
type unwind struct {
	err *RuntimeError
}

func (th *Thread) raise(err *RuntimeError) {
	panic(&unwind{err: err})
}

// Raise implements values.CallContext for native functions: it turns
// a Lua-level error value into a RuntimeError and performs the same
// non-local exit a failed instruction would.
func (th *Thread) Raise(v values.Value) error {
	th.raise(&RuntimeError{Category: CategoryRuntime, Value: v, Traceback: th.traceback()})
	panic("unreachable")
}

func (th *Thread) traceback() []string {
	out := make([]string, 0, len(th.frames))
	for i := len(th.frames) - 1; i >= 0; i-- {
		f := th.frames[i]
		name := "?"
		if f.Closure != nil {
			name = f.Closure.Name
		}
		out = append(out, fmt.Sprintf("%s:%d: in %s", f.source(), f.currentLine(), name))
	}
	return out
}
