package stdlib_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wudi/havenlua/values"
	"github.com/wudi/havenlua/vm"
)

func coroutineFn(st *vm.State, name string) values.Value {
	lib := global(st, "coroutine")
	return lib.AsTable().Get(st.NewString(name))
}

func TestCoroutineCreateResumeYieldRoundTrip(t *testing.T) {
	st, th := newTestState(t)

	body := values.NewNativeClosure("body", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		first, err := ctx.Call(coroutineFn(st, "yield"), []values.Value{values.Number(1)})
		if err != nil {
			return nil, err
		}
		return []values.Value{values.Number(2), first[0]}, nil
	})
	st.GC.Track(body)

	createResults, err := th.Call(coroutineFn(st, "create"), []values.Value{values.FunctionValue(body)})
	require.NoError(t, err)
	co := createResults[0]

	resumeResults, err := th.Call(coroutineFn(st, "resume"), []values.Value{co})
	require.NoError(t, err)
	require.True(t, resumeResults[0].AsBool())
	require.Equal(t, float64(1), resumeResults[1].AsNumber())

	statusResults, err := th.Call(coroutineFn(st, "status"), []values.Value{co})
	require.NoError(t, err)
	require.Equal(t, values.ThreadSuspended, statusResults[0].AsString().Bytes())

	resumeResults, err = th.Call(coroutineFn(st, "resume"), []values.Value{co, values.Number(99)})
	require.NoError(t, err)
	require.True(t, resumeResults[0].AsBool())
	require.Equal(t, float64(2), resumeResults[1].AsNumber())
	require.Equal(t, float64(99), resumeResults[2].AsNumber())

	statusResults, err = th.Call(coroutineFn(st, "status"), []values.Value{co})
	require.NoError(t, err)
	require.Equal(t, values.ThreadDead, statusResults[0].AsString().Bytes())
}

func TestCoroutineWrapPropagatesErrors(t *testing.T) {
	st, th := newTestState(t)

	body := values.NewNativeClosure("body", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		return nil, ctx.Raise(st.NewString("nope"))
	})
	st.GC.Track(body)

	wrapResults, err := th.Call(coroutineFn(st, "wrap"), []values.Value{values.FunctionValue(body)})
	require.NoError(t, err)
	wrapped := wrapResults[0]

	_, err = th.Call(wrapped, nil)
	require.Error(t, err)
}
