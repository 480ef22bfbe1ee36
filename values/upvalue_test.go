package values

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeStack is a minimal StackAccessor for exercising open/close
// semantics without pulling in package vm's Thread.
type fakeStack struct {
	slots []Value
}

func (f *fakeStack) StackGet(i int) Value { return f.slots[i] }
func (f *fakeStack) StackSet(i int, v Value) { f.slots[i] = v }

func TestOpenUpvalueAliasesLiveSlot(t *testing.T) {
	stack := &fakeStack{slots: []Value{Number(1), Number(2)}}
	uv := NewOpenUpvalue(stack, 1)

	require.True(t, uv.IsOpen())
	require.Equal(t, float64(2), uv.Get().AsNumber())

	stack.slots[1] = Number(99)
	require.Equal(t, float64(99), uv.Get().AsNumber())

	uv.Set(Number(7))
	require.Equal(t, float64(7), stack.slots[1].AsNumber())
}

func TestCloseUpvalueSeversLinkToStack(t *testing.T) {
	stack := &fakeStack{slots: []Value{Number(42)}}
	uv := NewOpenUpvalue(stack, 0)

	uv.Close()
	require.False(t, uv.IsOpen())

	stack.slots[0] = Number(1000)
	require.Equal(t, float64(42), uv.Get().AsNumber(), "closed upvalue must not see further stack mutation")
}

func TestNewClosedUpvalueStartsClosed(t *testing.T) {
	uv := NewClosedUpvalue(Number(5))
	require.False(t, uv.IsOpen())
	require.Equal(t, float64(5), uv.Get().AsNumber())
	uv.Set(Number(6))
	require.Equal(t, float64(6), uv.Get().AsNumber())
}
