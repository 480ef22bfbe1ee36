package stdlib_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wudi/havenlua/stdlib"
	"github.com/wudi/havenlua/values"
	"github.com/wudi/havenlua/vm"
)

func newTestState(t *testing.T) (*vm.State, *vm.Thread) {
	t.Helper()
	st := vm.NewState(vm.DefaultConfig())
	stdlib.Open(st)
	stdlib.OpenCoroutine(st)
	return st, st.MainThread()
}

func global(st *vm.State, name string) values.Value {
	return st.Globals.Get(st.NewString(name))
}

func TestPCallSuccessPrependsTrue(t *testing.T) {
	st, th := newTestState(t)

	identity := values.NewNativeClosure("identity", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		return args, nil
	})
	st.GC.Track(identity)

	results, err := th.Call(global(st, "pcall"), []values.Value{values.FunctionValue(identity), values.Number(5)})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.True(t, results[0].AsBool())
	require.Equal(t, float64(5), results[1].AsNumber())
}

func TestPCallCatchesErrorAndReturnsFalsePlusMessage(t *testing.T) {
	st, th := newTestState(t)

	results, err := th.Call(global(st, "pcall"), []values.Value{
		global(st, "error"), st.NewString("boom"),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.False(t, results[0].AsBool())
	require.Equal(t, "boom", results[1].AsString().Bytes())
}

func TestAssertPassesThroughArgsWhenTruthy(t *testing.T) {
	st, th := newTestState(t)
	results, err := th.Call(global(st, "assert"), []values.Value{values.Bool(true), values.Number(1)})
	require.NoError(t, err)
	require.Equal(t, []values.Value{values.Bool(true), values.Number(1)}, results)
}

func TestAssertRaisesDefaultMessageWhenFalsy(t *testing.T) {
	st, th := newTestState(t)
	_, err := th.Call(global(st, "assert"), []values.Value{values.Bool(false)})
	require.Error(t, err)
	rtErr, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	require.Equal(t, "assertion failed!", rtErr.Value.AsString().Bytes())
}

func TestTypeReportsTagNames(t *testing.T) {
	st, th := newTestState(t)
	cases := []struct {
		v    values.Value
		want string
	}{
		{values.Nil(), "nil"},
		{values.Bool(true), "boolean"},
		{values.Number(1), "number"},
		{st.NewString("x"), "string"},
	}
	for _, c := range cases {
		results, err := th.Call(global(st, "type"), []values.Value{c.v})
		require.NoError(t, err)
		require.Equal(t, c.want, results[0].AsString().Bytes())
	}
}

func TestToNumberParsesStringsAndFailsOnGarbage(t *testing.T) {
	st, th := newTestState(t)

	results, err := th.Call(global(st, "tonumber"), []values.Value{st.NewString("42")})
	require.NoError(t, err)
	require.Equal(t, float64(42), results[0].AsNumber())

	results, err = th.Call(global(st, "tonumber"), []values.Value{st.NewString("nope")})
	require.NoError(t, err)
	require.True(t, results[0].IsNil())
}

func TestRawequalBypassesMetamethods(t *testing.T) {
	st, th := newTestState(t)

	mt := values.NewTable()
	st.GC.Track(mt)
	eqFn := values.NewNativeClosure("__eq", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		return []values.Value{values.Bool(true)}, nil
	})
	st.GC.Track(eqFn)
	require.NoError(t, mt.Set(st.NewString("__eq"), values.FunctionValue(eqFn)))

	t1 := values.NewTable()
	t2 := values.NewTable()
	st.GC.Track(t1)
	st.GC.Track(t2)
	t1.Metatable = mt
	t2.Metatable = mt

	results, err := th.Call(global(st, "rawequal"), []values.Value{values.TableValue(t1), values.TableValue(t2)})
	require.NoError(t, err)
	require.False(t, results[0].AsBool(), "rawequal must not consult __eq")
}

func TestSetmetatableAndGetmetatableRoundTrip(t *testing.T) {
	st, th := newTestState(t)

	tv := values.TableValue(values.NewTable())
	st.GC.Track(tv.AsTable())
	mtv := values.TableValue(values.NewTable())
	st.GC.Track(mtv.AsTable())

	_, err := th.Call(global(st, "setmetatable"), []values.Value{tv, mtv})
	require.NoError(t, err)

	results, err := th.Call(global(st, "getmetatable"), []values.Value{tv})
	require.NoError(t, err)
	require.True(t, values.RawEqual(mtv, results[0]))
}

func TestSetmetatableRejectsProtectedMetatable(t *testing.T) {
	st, th := newTestState(t)

	tv := values.TableValue(values.NewTable())
	st.GC.Track(tv.AsTable())
	mt := values.NewTable()
	st.GC.Track(mt)
	require.NoError(t, mt.Set(st.NewString("__metatable"), st.NewString("locked")))
	tv.AsTable().Metatable = mt

	_, err := th.Call(global(st, "setmetatable"), []values.Value{tv, values.Nil()})
	require.Error(t, err)

	results, err := th.Call(global(st, "getmetatable"), []values.Value{tv})
	require.NoError(t, err)
	require.Equal(t, "locked", results[0].AsString().Bytes())
}

func TestSelectCountAndIndexing(t *testing.T) {
	st, th := newTestState(t)
	args := []values.Value{st.NewString("#"), values.Number(1), values.Number(2), values.Number(3)}

	results, err := th.Call(global(st, "select"), args)
	require.NoError(t, err)
	require.Equal(t, float64(3), results[0].AsNumber())

	results, err = th.Call(global(st, "select"), []values.Value{values.Number(2), values.Number(1), values.Number(2), values.Number(3)})
	require.NoError(t, err)
	require.Equal(t, []values.Value{values.Number(2), values.Number(3)}, results)
}

func TestIpairsStopsAtFirstNilHole(t *testing.T) {
	st, th := newTestState(t)
	tbl := values.NewTable()
	st.GC.Track(tbl)
	require.NoError(t, tbl.Set(values.Number(1), values.Number(10)))
	require.NoError(t, tbl.Set(values.Number(2), values.Number(20)))
	require.NoError(t, tbl.Set(values.Number(4), values.Number(40)))

	iterResults, err := th.Call(global(st, "ipairs"), []values.Value{values.TableValue(tbl)})
	require.NoError(t, err)
	iter, state, control := iterResults[0], iterResults[1], iterResults[2]

	var seen []float64
	for {
		results, err := th.Call(iter, []values.Value{state, control})
		require.NoError(t, err)
		if results[0].IsNil() {
			break
		}
		seen = append(seen, results[1].AsNumber())
		control = results[0]
	}
	require.Equal(t, []float64{10, 20}, seen)
}

func TestPairsVisitsEveryEntry(t *testing.T) {
	st, th := newTestState(t)
	tbl := values.NewTable()
	st.GC.Track(tbl)
	require.NoError(t, tbl.Set(st.NewString("a"), values.Number(1)))
	require.NoError(t, tbl.Set(st.NewString("b"), values.Number(2)))

	iterResults, err := th.Call(global(st, "pairs"), []values.Value{values.TableValue(tbl)})
	require.NoError(t, err)
	iter, state, control := iterResults[0], iterResults[1], iterResults[2]

	count := 0
	for {
		results, err := th.Call(iter, []values.Value{state, control})
		require.NoError(t, err)
		if results[0].IsNil() {
			break
		}
		count++
		control = results[0]
	}
	require.Equal(t, 2, count)
}
