package vm

import (
	"errors"

	"github.com/wudi/havenlua/values"
)

// PrecallStatus reports what precall did with a pending call.
type PrecallStatus int

const (
	// PrecallNative means the call already ran to completion; its
	// results sit on the stack starting at the function's old slot.
	PrecallNative PrecallStatus = iota
	// PrecallLua means a new frame was installed; the dispatch loop
	// must reroute to the new function's instruction stream.
	PrecallLua
)

// precall begins a call to the function at funcSlot with nargs
// arguments already sitting above it on the stack. For a native
// function it invokes it directly, trims/pads its results to
// nresultsWanted (-1 meaning all of them) and leaves them on the
// stack; for an interpreted function it allocates a new frame,
// arranges arguments into parameter slots (padding with nil, or
// packing excess into a vararg holder per the prototype), records
// nresultsWanted on the frame for its eventual RETURN, and pushes it.
func (th *Thread) precall(funcSlot, nargs, nresultsWanted int) PrecallStatus {
	fnVal := th.stack[funcSlot]
	if !fnVal.IsFunction() {
		mm := th.metamethod(fnVal, "__call")
		if mm.IsNil() {
			th.raise(th.typeError("attempt to call a %s value", values.TypeName(fnVal)))
		}
		th.insertArg(funcSlot, fnVal)
		nargs++
		fnVal = mm
		th.stack[funcSlot] = mm
	}

	closure := fnVal.AsFunction()
	if closure.IsNative() {
		args := make([]values.Value, nargs)
		copy(args, th.stack[funcSlot+1:funcSlot+1+nargs])
		results, err := closure.Native(th, args)
		if err != nil {
			var rtErr *RuntimeError
			if errors.As(err, &rtErr) {
				panic(&unwind{err: rtErr})
			}
			th.raise(&RuntimeError{Category: CategoryRuntime, Value: th.interner.NewString(err.Error())})
		}
		th.SetTop(funcSlot)
		want := nresultsWanted
		if want < 0 {
			want = len(results)
		}
		for i := 0; i < want; i++ {
			if i < len(results) {
				th.Push(results[i])
			} else {
				th.Push(values.Nil())
			}
		}
		return PrecallNative
	}

	if th.Depth() >= th.state.Config.MaxCallDepth {
		th.raise(th.structuralError(ErrStackOverflow, "stack overflow"))
	}

	proto := closure.Proto
	base := funcSlot + 1
	fixed := proto.NumParams

	var varargs []values.Value
	if proto.IsVararg && nargs > fixed {
		varargs = append(varargs, th.stack[base+fixed:base+nargs]...)
	}

	th.EnsureStack(base + proto.MaxStackSize)
	for i := nargs; i < proto.MaxStackSize; i++ {
		th.stack[base+i] = values.Nil()
	}

	frame := &Frame{Closure: closure, Base: base, Top: base + proto.MaxStackSize, Varargs: varargs, NResults: nresultsWanted}
	th.frames = append(th.frames, frame)
	th.SetTop(base + proto.MaxStackSize)
	return PrecallLua
}

// insertArg shifts the stack above slot up by one and writes v at
// slot, used when an uncallable value is called through its __call
// metamethod (the value itself becomes the metamethod's first
// argument).
func (th *Thread) insertArg(slot int, v values.Value) {
	th.EnsureStack(th.top + 1)
	for i := th.top; i > slot; i-- {
		th.stack[i] = th.stack[i-1]
	}
	th.stack[slot] = v
	th.top++
}

// poscall copies up to nresultsWanted results from firstResult down to
// frame's function slot, filling missing results with nil, closes any
// open upvalues over the returning frame, pops it, and restores the
// stack top. nresultsWanted of -1 means "all results" (LUA_MULTRET).
func (th *Thread) poscall(frame *Frame, firstResult, nresultsWanted int) {
	th.closeUpvaluesFrom(frame.Base)

	produced := th.top - firstResult
	funcSlot := frame.Base - 1

	n := produced
	if nresultsWanted >= 0 {
		n = nresultsWanted
	}
	for i := 0; i < n; i++ {
		if i < produced {
			th.stack[funcSlot+i] = th.stack[firstResult+i]
		} else {
			th.stack[funcSlot+i] = values.Nil()
		}
	}
	th.SetTop(funcSlot + n)
	th.frames = th.frames[:len(th.frames)-1]
}

// call pushes fn and args, runs it to completion (recursing into the
// dispatch loop if it is an interpreted function) and returns its
// results. It does not itself establish a protected boundary: a panic
// raised deep inside propagates to whichever protectedCall is nearest
// on the Go call stack. This is what package values.CallContext's Call
// method is not: see protectedCall.
func (th *Thread) call(fn values.Value, args []values.Value) []values.Value {
	funcSlot := th.top
	th.Push(fn)
	for _, a := range args {
		th.Push(a)
	}
	startDepth := len(th.frames)
	status := th.precall(funcSlot, len(args), -1)
	if status == PrecallLua {
		th.runLoop(startDepth)
	}
	results := append([]values.Value(nil), th.stack[funcSlot:th.top]...)
	th.SetTop(funcSlot)
	return results
}

// protectedCall runs call under a recover that turns a RuntimeError
// unwind into a normal Go error return, implementing the structured
// non-local exit to the nearest protected-call boundary (spec.md §7).
// Protect and the coroutine runner (Coroutine.run) recover the same
// *unwind payload; anything else re-panics unchanged.
func (th *Thread) protectedCall(fn values.Value, args []values.Value) (results []values.Value, err error) {
	depth := len(th.frames)
	defer func() {
		if r := recover(); r != nil {
			uw, ok := r.(*unwind)
			if !ok {
				panic(r)
			}
			th.frames = th.frames[:depth]
			err = uw.err
		}
	}()
	return th.call(fn, args), nil
}

// Protect runs fn under the same recover boundary as protectedCall,
// for host-level operations (the embedding API's GetField/SetField)
// that can trigger the __index/__newindex protocol and so must not let
// a type error or loop-guard panic cross into caller code uncaught.
func (th *Thread) Protect(fn func()) (err error) {
	depth := len(th.frames)
	defer func() {
		if r := recover(); r != nil {
			uw, ok := r.(*unwind)
			if !ok {
				panic(r)
			}
			th.frames = th.frames[:depth]
			err = uw.err
		}
	}()
	fn()
	return nil
}

var _ values.CallContext = (*Thread)(nil)

// tailcall reuses the current frame's slot instead of pushing a new
// one: all open upvalues over the outgoing frame are closed first,
// then the new function and its arguments are moved down over the
// outgoing frame's function slot before precall runs as usual. Because
// the replacement frame (or a native call's results) lands exactly
// where the outgoing frame was, whatever called the outgoing frame
// observes an ordinary return — bounding frame-stack depth for
// self-recursive tail calls.
func (th *Thread) tailcall(funcSlot, nargs int) {
	current := th.CurrentFrame()
	th.closeUpvaluesFrom(current.Base)

	dest := current.Base - 1
	hops := current.TailcallHops + 1
	for i := 0; i <= nargs; i++ {
		th.stack[dest+i] = th.stack[funcSlot+i]
	}
	th.SetTop(dest + 1 + nargs)

	wanted := current.NResults
	th.frames = th.frames[:len(th.frames)-1]
	status := th.precall(dest, nargs, wanted)
	if status == PrecallLua {
		th.CurrentFrame().TailcallHops = hops
	}
}
