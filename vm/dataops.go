package vm

import (
	"github.com/wudi/havenlua/opcodes"
	"github.com/wudi/havenlua/values"
)

func (th *Thread) execMove(frame *Frame, i opcodes.Instruction) {
	th.setReg(frame, i.A(), th.getReg(frame, i.B()))
}

func (th *Thread) execLoadK(frame *Frame, i opcodes.Instruction) {
	th.setReg(frame, i.A(), frame.Closure.Proto.Constants[i.Bx()])
}

func (th *Thread) execLoadBool(frame *Frame, i opcodes.Instruction) {
	th.setReg(frame, i.A(), values.Bool(i.B() != 0))
}

func (th *Thread) execLoadNil(frame *Frame, i opcodes.Instruction) {
	for r := i.A(); r <= i.B(); r++ {
		th.setReg(frame, r, values.Nil())
	}
}

func (th *Thread) execGetUpval(frame *Frame, i opcodes.Instruction) {
	th.setReg(frame, i.A(), frame.Closure.Upvalues[i.B()].Get())
}

func (th *Thread) execSetUpval(frame *Frame, i opcodes.Instruction) {
	frame.Closure.Upvalues[i.B()].Set(th.getReg(frame, i.A()))
}

func (th *Thread) execGetGlobal(frame *Frame, i opcodes.Instruction) {
	key := frame.Closure.Proto.Constants[i.Bx()]
	th.setReg(frame, i.A(), th.state.Globals.Get(key))
}

func (th *Thread) execSetGlobal(frame *Frame, i opcodes.Instruction) {
	key := frame.Closure.Proto.Constants[i.Bx()]
	val := th.getReg(frame, i.A())
	th.mustSet(th.state.Globals, key, val)
}

func (th *Thread) execGetTable(frame *Frame, i opcodes.Instruction) {
	t := th.getReg(frame, i.B())
	key := th.rk(frame, i.C())
	th.setReg(frame, i.A(), th.index(t, key))
}

func (th *Thread) execSetTable(frame *Frame, i opcodes.Instruction) {
	t := th.getReg(frame, i.A())
	key := th.rk(frame, i.B())
	val := th.rk(frame, i.C())
	th.newIndex(t, key, val)
}

func (th *Thread) execNewTable(frame *Frame, i opcodes.Instruction) {
	t := values.NewTableSize(i.B(), i.C())
	th.state.GC.Track(t)
	th.setReg(frame, i.A(), values.TableValue(t))
	th.state.GC.Checkpoint(int64(i.B() + i.C()))
}

// execSelf implements OP_SELF: R(A+1) := R(B); R(A) := R(B)[RK(C)],
// the method-call preparation idiom (obj:method(...) compiles to a
// SELF followed by a CALL).
func (th *Thread) execSelf(frame *Frame, i opcodes.Instruction) {
	obj := th.getReg(frame, i.B())
	key := th.rk(frame, i.C())
	th.setReg(frame, i.A()+1, obj)
	th.setReg(frame, i.A(), th.index(obj, key))
}

func (th *Thread) execVararg(frame *Frame, i opcodes.Instruction) {
	a := i.A()
	want := i.B() - 1 // B-1 requested, or -1 (via B==0) meaning "all"
	n := len(frame.Varargs)
	if i.B() == 0 {
		want = n
		th.EnsureStack(frame.Base + a + want)
		th.SetTop(frame.Base + a + want)
	}
	for j := 0; j < want; j++ {
		if j < n {
			th.setReg(frame, a+j, frame.Varargs[j])
		} else {
			th.setReg(frame, a+j, values.Nil())
		}
	}
}

func (th *Thread) execConcat(frame *Frame, i opcodes.Instruction) {
	first := reg(frame, i.B())
	last := reg(frame, i.C())
	result := th.concat(first, last)
	th.setReg(frame, i.A(), result)
}
