package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wudi/havenlua/opcodes"
	"github.com/wudi/havenlua/values"
)

func TestHookLineFiresOnceEachTimeTheLineChanges(t *testing.T) {
	a := newAsm(3, 0, false)
	k1 := a.konst(values.Number(1))
	k2 := a.konst(values.Number(2))
	a.abx(opcodes.OP_LOADK, 0, k1)
	a.abx(opcodes.OP_LOADK, 1, k2)
	a.abc(opcodes.OP_ADD, 0, 0, 1)
	a.abc(opcodes.OP_RETURN, 0, 2, 0)
	// LineInfo is parallel to Instructions: the two LOADKs and the ADD
	// sit on lines 1, 2, 2 and RETURN on line 3.
	a.proto.LineInfo = []int{1, 2, 2, 3}

	st := newTestState()
	var lines []int
	st.MainThread().SetHook(HookLine, 0, func(th *Thread, event HookMask, line int) bool {
		lines = append(lines, line)
		return false
	})

	_, err := run(st, a)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, lines)
}

func TestHookCountFiresEveryNthInstruction(t *testing.T) {
	a := newAsm(2, 0, false)
	k1 := a.konst(values.Number(1))
	a.abx(opcodes.OP_LOADK, 0, k1)
	a.abx(opcodes.OP_LOADK, 1, k1)
	a.abc(opcodes.OP_ADD, 0, 0, 1)
	a.abc(opcodes.OP_RETURN, 0, 2, 0)

	st := newTestState()
	fires := 0
	st.MainThread().SetHook(HookCount, 2, func(th *Thread, event HookMask, line int) bool {
		fires++
		return false
	})

	_, err := run(st, a)
	require.NoError(t, err)
	require.Equal(t, 2, fires)
}

func TestHookReturningTrueStopsDispatchAndRewindsPCForResumption(t *testing.T) {
	a := newAsm(2, 0, false)
	k1 := a.konst(values.Number(41))
	a.abx(opcodes.OP_LOADK, 0, k1)
	a.abc(opcodes.OP_RETURN, 0, 2, 0)

	st := newTestState()
	th := st.MainThread()
	fired := 0
	th.SetHook(HookLine, 0, func(th *Thread, event HookMask, line int) bool {
		fired++
		return true
	})

	closure := values.NewLuaClosure(a.prototype(), nil)
	st.GC.Track(closure)
	funcSlot := th.Top()
	th.Push(values.FunctionValue(closure))
	startDepth := len(th.frames)
	th.precall(funcSlot, 0, -1)
	th.runLoop(startDepth)

	require.Equal(t, 1, fired)
	require.Equal(t, startDepth+1, len(th.frames), "the stopped frame is left on the stack, not popped")
	require.Equal(t, 0, th.CurrentFrame().PC, "PC is rewound so the same instruction dispatches again")

	th.SetHook(0, 0, nil)
	th.runLoop(startDepth)
	require.Equal(t, startDepth, len(th.frames), "re-entering runLoop resumes from the rewound PC and completes normally")
}

func TestHookCallAndHookReturnFireAroundCalls(t *testing.T) {
	callee := newAsm(1, 0, false)
	k1 := callee.konst(values.Number(5))
	callee.abx(opcodes.OP_LOADK, 0, k1)
	callee.abc(opcodes.OP_RETURN, 0, 2, 0)

	top := newAsm(2, 0, false)
	kChild := top.child(callee.prototype())
	top.abx(opcodes.OP_CLOSURE, 0, kChild)
	top.abc(opcodes.OP_CALL, 0, 1, 2)
	top.abc(opcodes.OP_RETURN, 0, 2, 0)

	st := newTestState()
	var events []HookMask
	st.MainThread().SetHook(HookCall|HookReturn, 0, func(th *Thread, event HookMask, line int) bool {
		events = append(events, event)
		return false
	})

	_, err := run(st, top)
	require.NoError(t, err)
	// HookReturn fires on every RETURN the loop executes, including
	// the top-level chunk's own: HookCall for entering callee, then
	// one HookReturn each for callee's and top's RETURN.
	require.Equal(t, []HookMask{HookCall, HookReturn, HookReturn}, events)
}

func TestBreakpointsSetClearAndHit(t *testing.T) {
	bp := NewBreakpoints()
	require.False(t, bp.Hit("=chunk", 10))

	bp.Set("=chunk", 10)
	require.True(t, bp.Hit("=chunk", 10))
	require.False(t, bp.Hit("=chunk", 11))
	require.False(t, bp.Hit("=other", 10))

	bp.Clear("=chunk", 10)
	require.False(t, bp.Hit("=chunk", 10))
}
