// Package opcodes defines the fixed-width instruction word consumed by
// the dispatch loop: a 6-bit opcode plus three operand fields (A, B, C)
// or one extended field (Bx / sBx), packed into a 32-bit word.
package opcodes

import "fmt"

// Opcode identifies an instruction's operation. At most 64 opcodes fit
// in the instruction word's 6 opcode bits.
type Opcode byte

const (
	// Moves, loads, upvalue/global/table access and arithmetic
	OP_MOVE Opcode = iota
	OP_LOADK
	OP_LOADBOOL
	OP_LOADNIL
	OP_GETUPVAL
	OP_SETUPVAL
	OP_GETGLOBAL
	OP_SETGLOBAL
	OP_GETTABLE
	OP_SETTABLE
	OP_NEWTABLE
	OP_SELF
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_POW
	OP_UNM
	OP_NOT
	OP_LEN
	OP_CONCAT

	// Control flow
	OP_JMP
	OP_EQ
	OP_LT
	OP_LE
	OP_TEST
	OP_TESTSET
	OP_CALL
	OP_TAILCALL
	OP_RETURN
	OP_FORLOOP
	OP_FORPREP
	OP_TFORLOOP
	OP_SETLIST
	OP_SETLISTO
	OP_CLOSE
	OP_CLOSURE
	OP_VARARG

	opcodeCount
)

func init() {
	if opcodeCount > 64 {
		panic("opcodes: more than 64 opcodes defined, exceeds 6-bit field")
	}
}

var names = [...]string{
	OP_MOVE: "MOVE", OP_LOADK: "LOADK", OP_LOADBOOL: "LOADBOOL", OP_LOADNIL: "LOADNIL",
	OP_GETUPVAL: "GETUPVAL", OP_SETUPVAL: "SETUPVAL",
	OP_GETGLOBAL: "GETGLOBAL", OP_SETGLOBAL: "SETGLOBAL",
	OP_GETTABLE: "GETTABLE", OP_SETTABLE: "SETTABLE", OP_NEWTABLE: "NEWTABLE", OP_SELF: "SELF",
	OP_ADD: "ADD", OP_SUB: "SUB", OP_MUL: "MUL", OP_DIV: "DIV", OP_MOD: "MOD", OP_POW: "POW",
	OP_UNM: "UNM", OP_NOT: "NOT", OP_LEN: "LEN", OP_CONCAT: "CONCAT",
	OP_JMP: "JMP", OP_EQ: "EQ", OP_LT: "LT", OP_LE: "LE",
	OP_TEST: "TEST", OP_TESTSET: "TESTSET",
	OP_CALL: "CALL", OP_TAILCALL: "TAILCALL", OP_RETURN: "RETURN",
	OP_FORLOOP: "FORLOOP", OP_FORPREP: "FORPREP", OP_TFORLOOP: "TFORLOOP",
	OP_SETLIST: "SETLIST", OP_SETLISTO: "SETLISTO", OP_CLOSE: "CLOSE",
	OP_CLOSURE: "CLOSURE", OP_VARARG: "VARARG",
}

func (op Opcode) String() string {
	if int(op) < len(names) && names[op] != "" {
		return names[op]
	}
	return fmt.Sprintf("OP(%d)", op)
}

// MAXSTACK is the threshold a register-or-constant operand is compared
// against: values below it index the stack relative to base, values at
// or above it index the constant pool at (value - MAXSTACK).
const MAXSTACK = 250

// Bit layout of the 32-bit instruction word.
const (
	opcodeBits = 6
	aBits      = 8
	cBits      = 9
	bBits      = 9

	opcodeShift = 0
	aShift      = opcodeShift + opcodeBits
	cShift      = aShift + aBits
	bShift      = cShift + cBits

	opcodeMask = 1<<opcodeBits - 1
	aMask      = 1<<aBits - 1
	cMask      = 1<<cBits - 1
	bMask      = 1<<bBits - 1

	bxShift = aShift + aBits
	bxBits  = bBits + cBits
	bxMask  = 1<<bxBits - 1
	sBxBias = bxMask >> 1
)

// Instruction is a single fixed-width bytecode word.
type Instruction uint32

// Encode packs an opcode and its A/B/C fields into an instruction word.
func Encode(op Opcode, a, b, c int) Instruction {
	return Instruction(uint32(op)&opcodeMask |
		(uint32(a)&aMask)<<aShift |
		(uint32(c)&cMask)<<cShift |
		(uint32(b)&bMask)<<bShift)
}

// EncodeBx packs an opcode, its A field and an unsigned extended Bx
// field into an instruction word.
func EncodeBx(op Opcode, a int, bx int) Instruction {
	return Instruction(uint32(op)&opcodeMask |
		(uint32(a)&aMask)<<aShift |
		(uint32(bx)&bxMask)<<bxShift)
}

// EncodeSBx packs an opcode, its A field and a signed, bias-encoded
// sBx field (used by jump-like instructions) into an instruction word.
func EncodeSBx(op Opcode, a int, sbx int) Instruction {
	return EncodeBx(op, a, sbx+sBxBias)
}

// Op extracts the opcode.
func (i Instruction) Op() Opcode { return Opcode(i & opcodeMask) }

// A extracts the A field.
func (i Instruction) A() int { return int((i >> aShift) & aMask) }

// B extracts the B field.
func (i Instruction) B() int { return int((i >> bShift) & bMask) }

// C extracts the C field.
func (i Instruction) C() int { return int((i >> cShift) & cMask) }

// Bx extracts the unsigned extended field.
func (i Instruction) Bx() int { return int((i >> bxShift) & bxMask) }

// SBx extracts the signed, bias-decoded extended field used by jumps.
func (i Instruction) SBx() int { return i.Bx() - sBxBias }

// IsConstant reports whether a register-or-constant operand value
// refers to the constant pool rather than a stack slot.
func IsConstant(operand int) bool { return operand >= MAXSTACK }

// ConstantIndex converts a register-or-constant operand known to be a
// constant reference into its constant-pool index.
func ConstantIndex(operand int) int { return operand - MAXSTACK }

func (i Instruction) String() string {
	op := i.Op()
	switch op {
	case OP_JMP, OP_CLOSURE, OP_FORLOOP, OP_FORPREP, OP_TFORLOOP, OP_SETLIST, OP_SETLISTO:
		return fmt.Sprintf("%-10s A=%d Bx=%d", op, i.A(), i.Bx())
	default:
		return fmt.Sprintf("%-10s A=%d B=%d C=%d", op, i.A(), i.B(), i.C())
	}
}
