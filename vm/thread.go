package vm

import (
	"sort"

	"github.com/wudi/havenlua/values"
)

// HookMask selects which debug-hook events are active.
type HookMask int

const (
	HookCall HookMask = 1 << iota
	HookReturn
	HookLine
	HookCount
)

// Hook is invoked by the dispatch loop's debug-hook interleaving. It
// returns yield == true to suspend execution mid-instruction.
type Hook func(th *Thread, event HookMask, line int) (yield bool)

// Thread is a sibling execution context: its own value stack, its own
// frame stack, its own saved program counter, all sharing the owning
// State's globals, string table, registry and GC. At most one thread
// per State executes at any instant (spec.md §5).
type Thread struct {
	id    string
	state *State

	stack []values.Value
	top   int

	frames []*Frame

	// openUpvalues is kept sorted ascending by stack index, per the
	// design notes' guidance to maintain open upvalues as a per-state
	// (here: per-thread) ordered structure keyed by stack index.
	openUpvalues []*values.Upvalue

	Status string

	hookMask  HookMask
	hookCount int
	hookEvery int
	hook      Hook

	resumer *Thread

	interner *values.Interner

	// coroutine is set when this Thread backs a Coroutine,
	// letting a native yield function reach back into the channel
	// handshake that is driving it.
	coroutine *Coroutine
}

func newThread(s *State, resumer *Thread) *Thread {
	th := &Thread{
		id:       values.NewID(),
		state:    s,
		stack:    make([]values.Value, s.Config.InitialStackSize),
		frames:   make([]*Frame, 0, 8),
		Status:   values.ThreadSuspended,
		resumer:  resumer,
		interner: s.Interner,
	}
	for i := range th.stack {
		th.stack[i] = values.Nil()
	}
	return th
}

// ID returns the thread's correlation id.
func (th *Thread) ID() string { return th.id }

// State returns the owning global state.
func (th *Thread) State() *State { return th.state }

// Depth returns the current call-frame depth.
func (th *Thread) Depth() int { return len(th.frames) }

// CurrentFrame returns the innermost active frame, or nil if the
// thread is not currently executing anything.
func (th *Thread) CurrentFrame() *Frame {
	if len(th.frames) == 0 {
		return nil
	}
	return th.frames[len(th.frames)-1]
}

// --- value stack -------------------------------------------------------

// EnsureStack grows the stack so that index top is valid, re-deriving
// nothing itself: callers that cached a base before calling EnsureStack
// must re-read it afterwards, since growth may move the backing array.
func (th *Thread) EnsureStack(top int) {
	if top < len(th.stack) {
		return
	}
	newSize := len(th.stack) * 2
	for newSize <= top {
		newSize *= 2
	}
	if newSize > th.state.Config.MaxStackSize {
		newSize = th.state.Config.MaxStackSize
	}
	grown := make([]values.Value, newSize)
	copy(grown, th.stack)
	for i := len(th.stack); i < newSize; i++ {
		grown[i] = values.Nil()
	}
	th.stack = grown
}

// StackGet implements values.StackAccessor.
func (th *Thread) StackGet(index int) values.Value {
	if index < 0 || index >= len(th.stack) {
		return values.Nil()
	}
	return th.stack[index]
}

// StackSet implements values.StackAccessor.
func (th *Thread) StackSet(index int, v values.Value) {
	th.EnsureStack(index)
	th.stack[index] = v
}

// Push appends a value at the current top and advances it.
func (th *Thread) Push(v values.Value) {
	th.EnsureStack(th.top)
	th.stack[th.top] = v
	th.top++
}

// Pop removes and returns the value at the current top.
func (th *Thread) Pop() values.Value {
	if th.top == 0 {
		return values.Nil()
	}
	th.top--
	v := th.stack[th.top]
	th.stack[th.top] = values.Nil()
	return v
}

// Top returns the current stack top index.
func (th *Thread) Top() int { return th.top }

// SetTop truncates or extends the stack top, filling any newly
// exposed slots with nil.
func (th *Thread) SetTop(top int) {
	if top > th.top {
		th.EnsureStack(top)
		for i := th.top; i < top; i++ {
			th.stack[i] = values.Nil()
		}
	} else {
		for i := top; i < th.top; i++ {
			th.stack[i] = values.Nil()
		}
	}
	th.top = top
}

// --- upvalues ------------------------------------------------------------

// findOrCreateOpenUpvalue returns the existing open upvalue aliasing
// index, or creates and registers a new one. The CLOSURE instruction's
// MOVE-form capture calls this so that two closures sharing the same
// captured local observe the same cell.
func (th *Thread) findOrCreateOpenUpvalue(index int) *values.Upvalue {
	i := sort.Search(len(th.openUpvalues), func(i int) bool {
		return th.openUpvalues[i].Index() >= index
	})
	if i < len(th.openUpvalues) && th.openUpvalues[i].Index() == index {
		return th.openUpvalues[i]
	}
	uv := values.NewOpenUpvalue(th, index)
	th.openUpvalues = append(th.openUpvalues, nil)
	copy(th.openUpvalues[i+1:], th.openUpvalues[i:])
	th.openUpvalues[i] = uv
	return uv
}

// closeUpvaluesFrom closes every open upvalue aliasing a stack index
// >= from, copying its value out of the stack and severing the link,
// and removes them from the open list.
func (th *Thread) closeUpvaluesFrom(from int) {
	i := sort.Search(len(th.openUpvalues), func(i int) bool {
		return th.openUpvalues[i].Index() >= from
	})
	for _, uv := range th.openUpvalues[i:] {
		uv.Close()
	}
	th.openUpvalues = th.openUpvalues[:i]
}

// --- values.CallContext ---------------------------------------------------

// Interner implements values.CallContext.
func (th *Thread) Interner() *values.Interner { return th.interner }

// Call implements values.CallContext by running fn to completion on
// this thread and returning its results, for use by native functions
// (pcall, pairs' iterator, etc.) that need to call back into the
// language.
func (th *Thread) Call(fn values.Value, args []values.Value) ([]values.Value, error) {
	return th.protectedCall(fn, args)
}
