package vm

import (
	"github.com/wudi/havenlua/opcodes"
	"github.com/wudi/havenlua/values"
)

// reg returns the absolute stack index of register r within frame.
// Every call site that needs this must call it again after any
// operation that may reallocate the stack, rather than caching the
// result across such a call — the frame's Base is itself stable, but
// this helper is kept so operand resolution always goes through one
// place to audit.
func reg(frame *Frame, r int) int { return frame.Base + r }

// rk resolves a register-or-constant operand: values below
// opcodes.MAXSTACK index a stack slot relative to frame.Base; values
// at or above it index the current closure's constant pool.
func (th *Thread) rk(frame *Frame, operand int) values.Value {
	if opcodes.IsConstant(operand) {
		idx := opcodes.ConstantIndex(operand)
		return frame.Closure.Proto.Constants[idx]
	}
	return th.stack[reg(frame, operand)]
}

// setReg writes v into register r of frame.
func (th *Thread) setReg(frame *Frame, r int, v values.Value) {
	th.stack[reg(frame, r)] = v
}

// getReg reads register r of frame.
func (th *Thread) getReg(frame *Frame, r int) values.Value {
	return th.stack[reg(frame, r)]
}
