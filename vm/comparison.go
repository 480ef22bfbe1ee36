package vm

import "github.com/wudi/havenlua/opcodes"

// execEQ/execLT/execLE implement the instruction-encodes-expected-
// boolean trick (spec.md §4.6): the caller supplies the already-
// computed boolean result and the instruction's expected value in A;
// the return reports whether the comparison mismatched the
// expectation, meaning the following JMP instruction must be skipped
// rather than taken. This is how EQ/LT/LE implement conditional
// branching without a dedicated boolean register.
func compareMismatch(result bool, expectedA int) bool {
	return result != (expectedA != 0)
}

func (th *Thread) execEQ(frame *Frame, i opcodes.Instruction) bool {
	b := th.rk(frame, i.B())
	c := th.rk(frame, i.C())
	return compareMismatch(th.equals(b, c), i.A())
}

func (th *Thread) execLT(frame *Frame, i opcodes.Instruction) bool {
	b := th.rk(frame, i.B())
	c := th.rk(frame, i.C())
	return compareMismatch(th.lessThan(b, c), i.A())
}

func (th *Thread) execLE(frame *Frame, i opcodes.Instruction) bool {
	b := th.rk(frame, i.B())
	c := th.rk(frame, i.C())
	return compareMismatch(th.lessEqual(b, c), i.A())
}

// execTest implements TEST: truthiness test on R(B) versus expected C;
// on match it copies R(B) into R(A) and the following jump is taken
// (mismatch == false); otherwise the jump is skipped.
func (th *Thread) execTest(frame *Frame, i opcodes.Instruction) bool {
	v := th.getReg(frame, i.B())
	if v.Truthy() == (i.C() != 0) {
		th.setReg(frame, i.A(), v)
		return false
	}
	return true
}

// execTestSet implements the copy-free variant: it tests R(A) itself.
func (th *Thread) execTestSet(frame *Frame, i opcodes.Instruction) bool {
	v := th.getReg(frame, i.A())
	return v.Truthy() != (i.C() != 0)
}
