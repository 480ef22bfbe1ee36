package vm

import "github.com/wudi/havenlua/values"

// Frame records one activation of a closure: its base stack index,
// current top, saved program counter (for a frame currently suspended
// by a nested call), the number of tail-call hops it represents, and
// the function it is executing. Invariant: base <= top <= the owning
// thread's stack limit, and base points immediately after the
// function's own stack slot.
type Frame struct {
	Closure      *values.Closure
	Base         int
	Top          int
	PC           int
	SavedPC      int
	TailcallHops int
	Varargs      []values.Value

	// NResults is how many results the call site that created this
	// frame asked for (-1 means all of them, LUA_MULTRET-style). RETURN
	// reads this from the returning frame itself rather than from the
	// instruction that invoked it, since a tail call may have replaced
	// the original call site's frame entirely.
	NResults int
}

func (f *Frame) source() string {
	if f.Closure == nil {
		return "?"
	}
	if f.Closure.Proto != nil {
		return f.Closure.Proto.Source
	}
	return "[native] " + f.Closure.Name
}

// currentLine returns the source line of the instruction the frame is
// executing. The dispatch loop advances PC as it fetches, so that is
// the instruction just before PC; a frame that has not fetched yet
// reports its first instruction's line.
func (f *Frame) currentLine() int {
	if f.Closure == nil || f.Closure.Proto == nil {
		return -1
	}
	pc := f.PC - 1
	if pc < 0 {
		pc = 0
	}
	if pc < len(f.Closure.Proto.LineInfo) {
		return f.Closure.Proto.LineInfo[pc]
	}
	return -1
}
