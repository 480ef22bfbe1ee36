package vm

import (
	"math"

	"github.com/wudi/havenlua/opcodes"
	"github.com/wudi/havenlua/values"
)

// arith implements ADD/SUB/MUL/DIV/POW's per-instruction contract: a
// fast path when both operands are already numbers, else a to-number
// coercion attempt, else a metamethod dispatch.
func (th *Thread) arith(op opcodes.Opcode, b, c values.Value) values.Value {
	if b.IsNumber() && c.IsNumber() {
		return values.Number(applyArith(op, b.AsNumber(), c.AsNumber()))
	}
	if nb, ok := values.ToNumber(b); ok {
		if nc, ok := values.ToNumber(c); ok {
			return values.Number(applyArith(op, nb, nc))
		}
	}
	event := arithEvent(op)
	mm := th.arithMetamethod(b, c, event)
	if mm.IsNil() {
		bad := b
		if b.IsNumber() {
			bad = c
		}
		th.raise(th.typeError("attempt to perform arithmetic on a %s value", values.TypeName(bad)))
	}
	return th.callBinaryMetamethod(mm, b, c)
}

func applyArith(op opcodes.Opcode, a, b float64) float64 {
	switch op {
	case opcodes.OP_ADD:
		return a + b
	case opcodes.OP_SUB:
		return a - b
	case opcodes.OP_MUL:
		return a * b
	case opcodes.OP_DIV:
		return a / b
	case opcodes.OP_MOD:
		return a - math.Floor(a/b)*b
	case opcodes.OP_POW:
		return math.Pow(a, b)
	default:
		panic("vm: applyArith called with a non-arithmetic opcode")
	}
}

func arithEvent(op opcodes.Opcode) string {
	switch op {
	case opcodes.OP_ADD:
		return evAdd
	case opcodes.OP_SUB:
		return evSub
	case opcodes.OP_MUL:
		return evMul
	case opcodes.OP_DIV:
		return evDiv
	case opcodes.OP_MOD:
		return evMod
	case opcodes.OP_POW:
		return evPow
	default:
		return ""
	}
}

// unm implements unary minus.
func (th *Thread) unm(v values.Value) values.Value {
	if v.IsNumber() {
		return values.Number(-v.AsNumber())
	}
	if n, ok := values.ToNumber(v); ok {
		return values.Number(-n)
	}
	mm := th.metamethod(v, evUnm)
	if mm.IsNil() {
		th.raise(th.typeError("attempt to perform arithmetic on a %s value", values.TypeName(v)))
	}
	return th.callBinaryMetamethod(mm, v, v)
}

// not implements logical negation: truthiness-based, never fails.
func (th *Thread) not(v values.Value) values.Value {
	return values.Bool(!v.Truthy())
}

// length implements the # operator: a table's length (possibly
// through __len), a string's byte length, or a type error.
func (th *Thread) length(v values.Value) values.Value {
	if v.IsString() {
		return values.Number(float64(v.AsString().Len()))
	}
	if v.IsTable() {
		if mm := th.metamethod(v, evLen); !mm.IsNil() {
			return th.callBinaryMetamethod(mm, v, v)
		}
		return values.Number(float64(v.AsTable().Length()))
	}
	mm := th.metamethod(v, evLen)
	if mm.IsNil() {
		th.raise(th.typeError("attempt to get length of a %s value", values.TypeName(v)))
	}
	return th.callBinaryMetamethod(mm, v, v)
}
