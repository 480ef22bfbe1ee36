package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wudi/havenlua/values"
)

func pushRange(th *Thread, vs ...values.Value) (first, last int) {
	first = th.Top()
	for _, v := range vs {
		th.Push(v)
	}
	last = th.Top() - 1
	return first, last
}

func TestConcatJoinsCoercibleRunIntoOneString(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	first, last := pushRange(th, st.Interner.NewString("a"), values.Number(1), st.Interner.NewString("b"))
	got := th.concat(first, last)
	require.Equal(t, "a1b", got.AsString().Bytes())
}

func TestConcatSingleValueIsNoOp(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	first, last := pushRange(th, st.Interner.NewString("solo"))
	got := th.concat(first, last)
	require.Equal(t, "solo", got.AsString().Bytes())
}

func TestConcatFallsBackToMetamethodForNonCoercibleOperand(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	mm := values.NewNativeClosure("__concat", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		return []values.Value{st.Interner.NewString("joined")}, nil
	})
	st.GC.Track(mm)

	mt := values.NewTable()
	st.GC.Track(mt)
	require.NoError(t, mt.Set(st.Interner.NewString("__concat"), values.FunctionValue(mm)))

	tbl := values.NewTable()
	st.GC.Track(tbl)
	tbl.Metatable = mt

	first, last := pushRange(th, st.Interner.NewString("x"), values.TableValue(tbl))
	got := th.concat(first, last)
	require.Equal(t, "joined", got.AsString().Bytes())
}

func TestConcatWithoutMetamethodRaisesTypeError(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	first, last := pushRange(th, st.Interner.NewString("x"), values.Bool(true))
	require.Panics(t, func() {
		th.concat(first, last)
	})
}

func TestConcatRaisesOnSizeOverflow(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	big := strings.Repeat("x", 1<<20)
	a := st.Interner.NewString(big)
	b := st.Interner.NewString(big)

	// Chain enough copies of a large string that the running total
	// would overflow the protocol's int32 size guard.
	parts := make([]values.Value, 0, 2200)
	for i := 0; i < 2200; i++ {
		if i%2 == 0 {
			parts = append(parts, a)
		} else {
			parts = append(parts, b)
		}
	}
	first, last := pushRange(th, parts...)
	require.Panics(t, func() {
		th.concat(first, last)
	})
}
