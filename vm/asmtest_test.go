package vm

import (
	"github.com/wudi/havenlua/opcodes"
	"github.com/wudi/havenlua/values"
)

// asm is a minimal bytecode assembler used only by this package's own
// tests: it builds a values.Prototype instruction by instruction, the
// job a lexer/parser/code generator would normally do, since none
// exists in this module.
type asm struct {
	proto *values.Prototype
}

func newAsm(maxStack, numParams int, vararg bool) *asm {
	return &asm{proto: &values.Prototype{
		Source:       "=test",
		MaxStackSize: maxStack,
		NumParams:    numParams,
		IsVararg:     vararg,
	}}
}

func (a *asm) konst(v values.Value) int {
	a.proto.Constants = append(a.proto.Constants, v)
	return len(a.proto.Constants) - 1
}

func (a *asm) emit(ins opcodes.Instruction) int {
	a.proto.Instructions = append(a.proto.Instructions, ins)
	a.proto.LineInfo = append(a.proto.LineInfo, len(a.proto.Instructions))
	return len(a.proto.Instructions) - 1
}

func (a *asm) abc(op opcodes.Opcode, ra, rb, rc int) int {
	return a.emit(opcodes.Encode(op, ra, rb, rc))
}

func (a *asm) abx(op opcodes.Opcode, ra, bx int) int {
	return a.emit(opcodes.EncodeBx(op, ra, bx))
}

func (a *asm) asbx(op opcodes.Opcode, ra, sbx int) int {
	return a.emit(opcodes.EncodeSBx(op, ra, sbx))
}

// child registers a nested prototype (for CLOSURE) and returns its
// index within this prototype's Protos vector.
func (a *asm) child(p *values.Prototype) int {
	a.proto.Protos = append(a.proto.Protos, p)
	return len(a.proto.Protos) - 1
}

func (a *asm) prototype() *values.Prototype { return a.proto }

// run loads a's prototype as a main chunk closure on a fresh State's
// main thread and runs it to completion, returning whatever it
// returns (or the protected-call error, if any).
func run(st *State, a *asm) ([]values.Value, error) {
	closure := values.NewLuaClosure(a.prototype(), nil)
	st.GC.Track(closure)
	return st.MainThread().Call(values.FunctionValue(closure), nil)
}

func newTestState() *State {
	return NewState(DefaultConfig())
}
