// Package vm's dispatch loop: fetch an instruction from the current
// thread's innermost frame, advance the program counter, and execute
// it. The loop itself never recurses for ordinary Lua-to-Lua calls —
// CALL and TAILCALL simply push or replace a Frame and let the next
// iteration pick it up — so C-stack depth stays flat regardless of
// Lua call depth. Calls the loop makes on its own behalf (metamethods,
// generic-for iterators) and native functions calling back into Lua
// via values.CallContext.Call go through Thread.call, which re-enters
// the loop and so grows the Go call stack.
package vm

import (
	"github.com/wudi/havenlua/opcodes"
)

// runLoop executes instructions until the thread's frame stack has
// unwound back to stopDepth, i.e. until the frame that was current
// when runLoop was entered (and everything called beneath it) has
// returned.
func (th *Thread) runLoop(stopDepth int) {
	instrCount := 0
	lastLine := -1

	for {
		frame := th.CurrentFrame()
		proto := frame.Closure.Proto
		pc := frame.PC
		instr := proto.Instructions[pc]
		frame.PC = pc + 1

		if th.hook != nil {
			if th.hookMask&HookCount != 0 && th.hookEvery > 0 {
				instrCount++
				if instrCount >= th.hookEvery {
					instrCount = 0
					if th.hook(th, HookCount, frame.currentLine()) {
						frame.PC = pc
						return
					}
				}
			}
			if th.hookMask&HookLine != 0 {
				if line := frame.currentLine(); line != lastLine {
					lastLine = line
					if th.hook(th, HookLine, line) {
						frame.PC = pc
						return
					}
				}
			}
		}

		switch instr.Op() {
		case opcodes.OP_MOVE:
			th.execMove(frame, instr)
		case opcodes.OP_LOADK:
			th.execLoadK(frame, instr)
		case opcodes.OP_LOADBOOL:
			th.execLoadBool(frame, instr)
		case opcodes.OP_LOADNIL:
			th.execLoadNil(frame, instr)
		case opcodes.OP_GETUPVAL:
			th.execGetUpval(frame, instr)
		case opcodes.OP_SETUPVAL:
			th.execSetUpval(frame, instr)
		case opcodes.OP_GETGLOBAL:
			th.execGetGlobal(frame, instr)
		case opcodes.OP_SETGLOBAL:
			th.execSetGlobal(frame, instr)
		case opcodes.OP_GETTABLE:
			th.execGetTable(frame, instr)
		case opcodes.OP_SETTABLE:
			th.execSetTable(frame, instr)
		case opcodes.OP_NEWTABLE:
			th.execNewTable(frame, instr)
		case opcodes.OP_SELF:
			th.execSelf(frame, instr)

		case opcodes.OP_ADD, opcodes.OP_SUB, opcodes.OP_MUL, opcodes.OP_DIV, opcodes.OP_MOD, opcodes.OP_POW:
			b := th.rk(frame, instr.B())
			c := th.rk(frame, instr.C())
			th.setReg(frame, instr.A(), th.arith(instr.Op(), b, c))
		case opcodes.OP_UNM:
			th.setReg(frame, instr.A(), th.unm(th.getReg(frame, instr.B())))
		case opcodes.OP_NOT:
			th.setReg(frame, instr.A(), th.not(th.getReg(frame, instr.B())))
		case opcodes.OP_LEN:
			th.setReg(frame, instr.A(), th.length(th.getReg(frame, instr.B())))
		case opcodes.OP_CONCAT:
			th.execConcat(frame, instr)

		case opcodes.OP_JMP:
			frame.PC += instr.SBx()
		case opcodes.OP_EQ:
			if th.execEQ(frame, instr) {
				frame.PC++
			}
		case opcodes.OP_LT:
			if th.execLT(frame, instr) {
				frame.PC++
			}
		case opcodes.OP_LE:
			if th.execLE(frame, instr) {
				frame.PC++
			}
		case opcodes.OP_TEST:
			if th.execTest(frame, instr) {
				frame.PC++
			}
		case opcodes.OP_TESTSET:
			if th.execTestSet(frame, instr) {
				frame.PC++
			}

		case opcodes.OP_FORPREP:
			th.execForPrep(frame, instr)
			frame.PC += instr.SBx()
		case opcodes.OP_FORLOOP:
			if th.execForLoop(frame, instr) {
				frame.PC += instr.SBx()
			}
		case opcodes.OP_TFORLOOP:
			if th.execTForLoop(frame, instr) {
				frame.PC++
			}

		case opcodes.OP_CALL:
			if th.hook != nil && th.hookMask&HookCall != 0 {
				depthBefore := len(th.frames)
				th.execCall(frame, instr)
				if len(th.frames) > depthBefore {
					nf := th.CurrentFrame()
					if th.hook(th, HookCall, nf.currentLine()) {
						return
					}
				}
			} else {
				th.execCall(frame, instr)
			}
		case opcodes.OP_TAILCALL:
			th.execTailCall(frame, instr)
			if len(th.frames) <= stopDepth {
				return
			}
		case opcodes.OP_RETURN:
			if th.hook != nil && th.hookMask&HookReturn != 0 {
				th.hook(th, HookReturn, frame.currentLine())
			}
			th.execReturn(frame, instr)
			if len(th.frames) <= stopDepth {
				return
			}

		case opcodes.OP_CLOSURE:
			th.execClosure(frame, instr)
		case opcodes.OP_CLOSE:
			th.closeUpvaluesFrom(reg(frame, instr.A()))
		case opcodes.OP_SETLIST:
			th.execSetList(frame, instr)
		case opcodes.OP_SETLISTO:
			th.execSetListOpen(frame, instr)
		case opcodes.OP_VARARG:
			th.execVararg(frame, instr)

		default:
			th.raise(th.structuralError(nil, "unimplemented opcode %s", instr.Op()))
		}
	}
}
