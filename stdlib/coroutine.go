package stdlib

import (
	"github.com/wudi/havenlua/values"
	"github.com/wudi/havenlua/vm"
)

// currentThread recovers the *vm.Thread behind a CallContext. Every
// CallContext this runtime ever constructs is a *vm.Thread; the type
// assertion exists so this package can reach vm.NewCoroutine and
// Thread.Yield without widening the CallContext interface itself.
func currentThread(ctx values.CallContext) (*vm.Thread, bool) {
	th, ok := ctx.(*vm.Thread)
	return th, ok
}

// OpenCoroutine registers the coroutine.* table: create, resume,
// yield, status and wrap, backed by vm.Coroutine's channel handshake.
func OpenCoroutine(state *vm.State) {
	lib := values.NewTableSize(0, 8)
	state.GC.Track(lib)

	regFn := func(name string, fn values.GoFunction) {
		closure := values.NewNativeClosure("coroutine."+name, fn)
		state.GC.Track(closure)
		lib.Set(state.NewString(name), values.FunctionValue(closure))
	}

	regFn("create", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		fn := arg(args, 0)
		if !fn.IsFunction() {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'create' (function expected)"))
		}
		co := vm.NewCoroutine(state, fn)
		th := values.NewThread(co.Thread().ID())
		th.SetImpl(co)
		return []values.Value{values.ThreadValue(th)}, nil
	})

	regFn("resume", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		caller, ok := currentThread(ctx)
		if !ok {
			return nil, ctx.Raise(ctx.Interner().NewString("coroutine.resume: no running thread"))
		}
		tv := arg(args, 0)
		if !tv.IsThread() {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'resume' (coroutine expected)"))
		}
		co, ok := tv.AsThread().Impl().(*vm.Coroutine)
		if !ok {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'resume' (coroutine expected)"))
		}
		results, _, err := co.Resume(caller, args[1:])
		if err != nil {
			return []values.Value{values.Bool(false), errorMessage(ctx, err)}, nil
		}
		return append([]values.Value{values.Bool(true)}, results...), nil
	})

	regFn("yield", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		th, ok := currentThread(ctx)
		if !ok {
			return nil, ctx.Raise(ctx.Interner().NewString("coroutine.yield: no running thread"))
		}
		return th.Yield(args), nil
	})

	regFn("status", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		tv := arg(args, 0)
		if !tv.IsThread() {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'status' (coroutine expected)"))
		}
		status := tv.AsThread().Status
		if co, ok := tv.AsThread().Impl().(*vm.Coroutine); ok {
			status = co.Thread().Status
		}
		return []values.Value{ctx.Interner().NewString(status)}, nil
	})

	regFn("wrap", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		fn := arg(args, 0)
		if !fn.IsFunction() {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'wrap' (function expected)"))
		}
		co := vm.NewCoroutine(state, fn)
		wrapped := values.NewNativeClosure("wrapped-coroutine", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
			caller, _ := currentThread(ctx)
			results, _, err := co.Resume(caller, args)
			if err != nil {
				return nil, ctx.Raise(errorMessage(ctx, err))
			}
			return results, nil
		})
		state.GC.Track(wrapped)
		return []values.Value{values.FunctionValue(wrapped)}, nil
	})

	state.Globals.Set(state.NewString("coroutine"), values.TableValue(lib))
}
