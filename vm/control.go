package vm

import (
	"github.com/wudi/havenlua/opcodes"
	"github.com/wudi/havenlua/values"
)

// execForPrep implements FORPREP's half of the numeric for loop: it
// biases the initial value by one step so the first FORLOOP can apply
// the step unconditionally. An initial, limit or step value that is not
// a number raises a type error.
func (th *Thread) execForPrep(frame *Frame, i opcodes.Instruction) {
	a := i.A()
	for k, what := range [3]string{"initial", "limit", "step"} {
		if !th.getReg(frame, a+k).IsNumber() {
			th.raise(th.typeError("'for' %s value must be a number", what))
		}
	}
	init := th.getReg(frame, a).AsNumber()
	step := th.getReg(frame, a+2).AsNumber()
	th.setReg(frame, a, values.Number(init-step))
}

// execForLoop implements FORLOOP: advance the control variable by the
// step and report whether the loop body should run again, publishing
// the control variable to both its own slot and the body's visible
// copy at A+3 (spec.md §4.6's "dual publish").
func (th *Thread) execForLoop(frame *Frame, i opcodes.Instruction) bool {
	a := i.A()
	idx := th.getReg(frame, a).AsNumber()
	limit := th.getReg(frame, a+1).AsNumber()
	step := th.getReg(frame, a+2).AsNumber()
	idx += step

	var cont bool
	if step > 0 {
		cont = idx <= limit
	} else {
		cont = idx >= limit
	}
	if cont {
		th.setReg(frame, a, values.Number(idx))
		th.setReg(frame, a+3, values.Number(idx))
	}
	return cont
}

// execTForLoop implements the generic for loop: it calls the iterator
// function R(A) with state R(A+1) and control variable R(A+2), and
// reports whether the loop should stop (its first result was nil).
// On continuation it republishes the first result as the new control
// variable.
func (th *Thread) execTForLoop(frame *Frame, i opcodes.Instruction) bool {
	a := i.A()
	fn := th.getReg(frame, a)
	state := th.getReg(frame, a+1)
	control := th.getReg(frame, a+2)

	results := th.call(fn, []values.Value{state, control})
	n := i.C()
	for k := 0; k < n; k++ {
		var v values.Value
		if k < len(results) {
			v = results[k]
		} else {
			v = values.Nil()
		}
		th.setReg(frame, a+3+k, v)
	}
	first := values.Nil()
	if len(results) > 0 {
		first = results[0]
	}
	if first.IsNil() {
		return true
	}
	th.setReg(frame, a+2, first)
	return false
}

// execCall implements CALL: B==0 means "use every value up to the
// current stack top as an argument" (the callee of a preceding
// multiret call or a vararg spread); C==0 means "keep every result"
// (LUA_MULTRET).
func (th *Thread) execCall(frame *Frame, i opcodes.Instruction) {
	a := i.A()
	funcSlot := reg(frame, a)

	nargs := i.B() - 1
	if i.B() == 0 {
		nargs = th.Top() - funcSlot - 1
	}
	nresults := i.C() - 1
	th.precall(funcSlot, nargs, nresults)
}

// execTailCall implements TAILCALL, reusing the calling frame's slot
// instead of allocating a new one (see Thread.tailcall).
func (th *Thread) execTailCall(frame *Frame, i opcodes.Instruction) {
	a := i.A()
	funcSlot := reg(frame, a)

	nargs := i.B() - 1
	if i.B() == 0 {
		nargs = th.Top() - funcSlot - 1
	}
	th.tailcall(funcSlot, nargs)
}

// execReturn implements RETURN: B==0 means every value from R(A) up
// to the current stack top is a result (a trailing multiret call or
// vararg spread); otherwise exactly B-1 values are returned.
func (th *Thread) execReturn(frame *Frame, i opcodes.Instruction) {
	a := i.A()
	first := reg(frame, a)

	want := i.B() - 1
	if i.B() == 0 {
		want = th.Top() - first
	}
	th.SetTop(first + want)
	th.poscall(frame, first, frame.NResults)
}
