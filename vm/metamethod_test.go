package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wudi/havenlua/gc"
	"github.com/wudi/havenlua/values"
)

func nativeFn(name string, fn values.GoFunction) *values.Closure {
	return values.NewNativeClosure(name, fn)
}

func TestIndexFallsThroughTableChain(t *testing.T) {
	st := newTestState()

	base := values.NewTable()
	st.GC.Track(base)
	require.NoError(t, base.Set(st.Interner.NewString("x"), values.Number(1)))

	mt := values.NewTable()
	st.GC.Track(mt)
	require.NoError(t, mt.Set(st.Interner.NewString("__index"), values.TableValue(base)))

	child := values.NewTable()
	st.GC.Track(child)
	child.Metatable = mt

	th := st.MainThread()
	got := th.index(values.TableValue(child), st.Interner.NewString("x"))
	require.Equal(t, float64(1), got.AsNumber())
}

func TestIndexCallsFunctionMetamethodWithTableAndKey(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	var gotKey values.Value
	fn := nativeFn("__index", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		gotKey = args[1]
		return []values.Value{values.Number(7)}, nil
	})
	st.GC.Track(fn)

	mt := values.NewTable()
	st.GC.Track(mt)
	require.NoError(t, mt.Set(st.Interner.NewString("__index"), values.FunctionValue(fn)))

	tbl := values.NewTable()
	st.GC.Track(tbl)
	tbl.Metatable = mt

	got := th.index(values.TableValue(tbl), st.Interner.NewString("missing"))
	require.Equal(t, float64(7), got.AsNumber())
	require.Equal(t, "missing", gotKey.AsString().Bytes())
}

func TestIndexOnNonTableWithoutMetamethodRaisesTypeError(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	require.Panics(t, func() {
		th.index(values.Number(5), st.Interner.NewString("x"))
	})
}

func TestNewIndexInvokesMetamethodInsteadOfWriting(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	var gotVal values.Value
	fn := nativeFn("__newindex", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		gotVal = args[2]
		return nil, nil
	})
	st.GC.Track(fn)

	mt := values.NewTable()
	st.GC.Track(mt)
	require.NoError(t, mt.Set(st.Interner.NewString("__newindex"), values.FunctionValue(fn)))

	tbl := values.NewTable()
	st.GC.Track(tbl)
	tbl.Metatable = mt

	th.newIndex(values.TableValue(tbl), st.Interner.NewString("k"), values.Number(9))
	require.Equal(t, float64(9), gotVal.AsNumber())
	require.True(t, tbl.Get(st.Interner.NewString("k")).IsNil(), "the metamethod owns the write, not the raw table")
}

func TestNewIndexFallsThroughToMustSetWhenKeyAlreadyPresent(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	mt := values.NewTable()
	st.GC.Track(mt)
	fn := nativeFn("__newindex", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		t.Fatal("must not be called when the key already exists on the raw table")
		return nil, nil
	})
	require.NoError(t, mt.Set(st.Interner.NewString("__newindex"), values.FunctionValue(fn)))

	tbl := values.NewTable()
	st.GC.Track(tbl)
	tbl.Metatable = mt
	require.NoError(t, tbl.Set(st.Interner.NewString("k"), values.Number(1)))

	th.newIndex(values.TableValue(tbl), st.Interner.NewString("k"), values.Number(2))
	require.Equal(t, float64(2), tbl.Get(st.Interner.NewString("k")).AsNumber())
}

func TestEqualsRequiresSameTagAndMatchingEqMetamethod(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	always := nativeFn("__eq", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		return []values.Value{values.Bool(true)}, nil
	})
	st.GC.Track(always)

	mt := values.NewTable()
	st.GC.Track(mt)
	require.NoError(t, mt.Set(st.Interner.NewString("__eq"), values.FunctionValue(always)))

	a := values.NewTable()
	b := values.NewTable()
	st.GC.Track(a)
	st.GC.Track(b)
	a.Metatable = mt
	b.Metatable = mt

	require.True(t, th.equals(values.TableValue(a), values.TableValue(b)))
	require.False(t, th.equals(values.TableValue(a), values.Number(1)), "cross-type equality never consults __eq")
}

func TestEqualsShortCircuitsOnRawEqualWithoutMetamethod(t *testing.T) {
	st := newTestState()
	th := st.MainThread()
	tbl := values.NewTable()
	st.GC.Track(tbl)
	require.True(t, th.equals(values.TableValue(tbl), values.TableValue(tbl)))
}

func TestLessThanUsesNativeOrderingForNumbersAndStrings(t *testing.T) {
	st := newTestState()
	th := st.MainThread()
	require.True(t, th.lessThan(values.Number(1), values.Number(2)))
	require.False(t, th.lessThan(values.Number(2), values.Number(1)))
	require.True(t, th.lessThan(st.Interner.NewString("a"), st.Interner.NewString("b")))
}

func TestLessEqualFallsBackToNotLessThanSwapped(t *testing.T) {
	st := newTestState()
	th := st.MainThread()
	require.True(t, th.lessEqual(values.Number(2), values.Number(2)))
	require.True(t, th.lessEqual(values.Number(1), values.Number(2)))
	require.False(t, th.lessEqual(values.Number(3), values.Number(2)))

	// Tables sharing __lt but no __le: a <= b is answered as not (b < a).
	var firstArg values.Value
	lt := nativeFn("__lt", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		firstArg = args[0]
		return []values.Value{values.Bool(true)}, nil
	})
	st.GC.Track(lt)
	mt := values.NewTable()
	st.GC.Track(mt)
	require.NoError(t, mt.Set(st.Interner.NewString("__lt"), values.FunctionValue(lt)))
	a := values.NewTable()
	b := values.NewTable()
	st.GC.Track(a)
	st.GC.Track(b)
	a.Metatable = mt
	b.Metatable = mt
	require.False(t, th.lessEqual(values.TableValue(a), values.TableValue(b)))
	require.True(t, values.RawEqual(firstArg, values.TableValue(b)), "__lt is called with the operands swapped")
}

func TestLessEqualPrefersMatchingLeMetamethodOverFallback(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	le := nativeFn("__le", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		return []values.Value{values.Bool(true)}, nil
	})
	st.GC.Track(le)

	mt := values.NewTable()
	st.GC.Track(mt)
	require.NoError(t, mt.Set(st.Interner.NewString("__le"), values.FunctionValue(le)))

	a := values.NewTable()
	b := values.NewTable()
	st.GC.Track(a)
	st.GC.Track(b)
	a.Metatable = mt
	b.Metatable = mt

	require.True(t, th.lessEqual(values.TableValue(a), values.TableValue(b)))
}

func TestOrderMetamethodRaisesOnMismatchedTags(t *testing.T) {
	st := newTestState()
	th := st.MainThread()
	require.Panics(t, func() {
		th.lessThan(values.Number(1), st.Interner.NewString("x"))
	})
}

func TestMustSetRecordsWriteBarrierFromOldToYoungHeapValue(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	tbl := values.NewTable()
	st.GC.Track(tbl)
	st.GC.Header(tbl).Generation = gc.Old

	inner := values.NewTable()
	st.GC.Track(inner)

	th.mustSet(tbl, st.Interner.NewString("k"), values.TableValue(inner))
	require.Equal(t, 1, st.GC.Stats().Remembered)
}

func TestIndexLoopInChainRaisesStructuralError(t *testing.T) {
	st := newTestState()
	th := st.MainThread()

	a := values.NewTable()
	b := values.NewTable()
	st.GC.Track(a)
	st.GC.Track(b)
	mtA := values.NewTable()
	mtB := values.NewTable()
	st.GC.Track(mtA)
	st.GC.Track(mtB)
	require.NoError(t, mtA.Set(st.Interner.NewString("__index"), values.TableValue(b)))
	require.NoError(t, mtB.Set(st.Interner.NewString("__index"), values.TableValue(a)))
	a.Metatable = mtA
	b.Metatable = mtB

	require.Panics(t, func() {
		th.index(values.TableValue(a), st.Interner.NewString("missing"))
	})
}
