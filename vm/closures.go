package vm

import (
	"github.com/wudi/havenlua/opcodes"
	"github.com/wudi/havenlua/values"
)

// execClosure implements CLOSURE: it instantiates the Bx-th child
// prototype and resolves each of its upvalues against the currently
// executing frame. Unlike a raw opcode stream, our Prototype already
// records each upvalue's origin (a local slot of this frame, or an
// upvalue of this frame's own closure) directly on the UpvalueDesc,
// so no trailing pseudo-instructions need to be decoded here.
func (th *Thread) execClosure(frame *Frame, i opcodes.Instruction) {
	child := frame.Closure.Proto.Protos[i.Bx()]

	ups := make([]*values.Upvalue, len(child.Upvalues))
	for idx, desc := range child.Upvalues {
		if desc.FromLocal {
			ups[idx] = th.findOrCreateOpenUpvalue(reg(frame, desc.Index))
		} else {
			ups[idx] = frame.Closure.Upvalues[desc.Index]
		}
	}

	closure := values.NewLuaClosure(child, ups)
	th.state.GC.Track(closure)
	th.state.GC.Checkpoint(closureCheckpointWeight)
	th.setReg(frame, i.A(), values.FunctionValue(closure))
}

// closureCheckpointWeight is the debt charged per CLOSURE instruction:
// a Closure value plus its upvalue slice is small and roughly constant
// in size, unlike NEWTABLE or CONCAT whose allocation scales with
// operands, so a flat weight stands in for sizeof(Closure) instead of
// computing one.
const closureCheckpointWeight = 64

// listBatchSize mirrors Lua's LFIELDS_PER_FLUSH: SETLIST's C operand
// selects which batch of 50 array slots R(A+1).. is being flushed
// into, so a table constructor with many fixed fields doesn't need a
// wider operand to address slots beyond the instruction word's range.
const listBatchSize = 50

// execSetList implements SETLIST: a fixed-size batch of B consecutive
// registers above R(A) is copied into the table at R(A), starting at
// array index (C * listBatchSize) + 1.
func (th *Thread) execSetList(frame *Frame, i opcodes.Instruction) {
	th.setListInto(frame, i, i.B())
}

// execSetListOpen implements SETLISTO, the open-ended variant used
// when the final field of a table constructor is a multiret call or
// vararg spread: the batch runs from R(A+1) up to the current stack
// top rather than a fixed count.
func (th *Thread) execSetListOpen(frame *Frame, i opcodes.Instruction) {
	count := th.Top() - reg(frame, i.A()) - 1
	th.setListInto(frame, i, count)
}

func (th *Thread) setListInto(frame *Frame, i opcodes.Instruction, count int) {
	tbl := th.getReg(frame, i.A()).AsTable()
	base := i.C() * listBatchSize
	for k := 1; k <= count; k++ {
		v := th.getReg(frame, i.A()+k)
		th.mustSet(tbl, values.Number(float64(base+k)), v)
	}
}
