package opcodes

import "testing"

func TestEncodeABCRoundTrip(t *testing.T) {
	i := Encode(OP_ADD, 1, 2, 3)
	if i.Op() != OP_ADD || i.A() != 1 || i.B() != 2 || i.C() != 3 {
		t.Fatalf("round trip mismatch: op=%s a=%d b=%d c=%d", i.Op(), i.A(), i.B(), i.C())
	}
}

func TestEncodeBxRoundTrip(t *testing.T) {
	i := EncodeBx(OP_LOADK, 5, 12345)
	if i.Op() != OP_LOADK || i.A() != 5 || i.Bx() != 12345 {
		t.Fatalf("round trip mismatch: op=%s a=%d bx=%d", i.Op(), i.A(), i.Bx())
	}
}

func TestEncodeSBxRoundTrip(t *testing.T) {
	cases := []int{0, 1, -1, 100, -100, 1 << 16, -(1 << 16)}
	for _, sbx := range cases {
		i := EncodeSBx(OP_JMP, 0, sbx)
		if got := i.SBx(); got != sbx {
			t.Fatalf("sbx round trip: want %d got %d", sbx, got)
		}
	}
}

func TestIsConstantAndConstantIndex(t *testing.T) {
	if IsConstant(10) {
		t.Fatalf("register operand 10 misclassified as constant")
	}
	if !IsConstant(MAXSTACK) {
		t.Fatalf("MAXSTACK itself must classify as a constant reference")
	}
	if ConstantIndex(MAXSTACK+7) != 7 {
		t.Fatalf("ConstantIndex(MAXSTACK+7) = %d, want 7", ConstantIndex(MAXSTACK+7))
	}
}

func TestOpcodeCountFitsSixBits(t *testing.T) {
	if opcodeCount > 64 {
		t.Fatalf("opcodeCount = %d exceeds the 6-bit opcode field", opcodeCount)
	}
}

func TestInstructionStringDoesNotPanic(t *testing.T) {
	for op := OP_MOVE; op < opcodeCount; op++ {
		i := Encode(op, 1, 2, 3)
		if i.String() == "" {
			t.Fatalf("empty String() for opcode %s", op)
		}
	}
}
