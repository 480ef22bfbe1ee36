// Package stdlib implements the handful of base-library functions the
// execution core's own error-handling and iteration protocols assume
// exist as ordinary Lua-callable values: pcall/xpcall/error/assert
// (the pcall-boundary machinery spec.md §7 describes), type/tostring/
// tonumber, setmetatable/getmetatable, the raw* family, and the
// pairs/ipairs/next/select iteration primitives. The wider standard
// library (string, table, math, io, os formatting and file-handling
// helpers) is out of scope; these are the base functions without
// which the dispatch loop's own documented test scenarios (pcall
// returning false plus a message, for one) have no way to run.
package stdlib

import (
	"fmt"
	"os"

	"github.com/wudi/havenlua/values"
	"github.com/wudi/havenlua/vm"
)

// errorMessage recovers the best available Lua-level value for a Go
// error returned from a CallContext.Call: a *vm.RuntimeError carries
// the original Value (a string, a table, anything error() was given),
// anything else is wrapped as an interned string.
func errorMessage(ctx values.CallContext, err error) values.Value {
	var rtErr *vm.RuntimeError
	if re, ok := err.(*vm.RuntimeError); ok {
		rtErr = re
	}
	if rtErr != nil {
		return rtErr.Value
	}
	return ctx.Interner().NewString(err.Error())
}

func arg(args []values.Value, n int) values.Value {
	if n < len(args) {
		return args[n]
	}
	return values.Nil()
}

// Open registers every base-library function into state's global
// table.
func Open(state *vm.State) {
	reg := func(name string, fn values.GoFunction) values.Value {
		closure := values.NewNativeClosure(name, fn)
		state.GC.Track(closure)
		v := values.FunctionValue(closure)
		state.Globals.Set(state.NewString(name), v)
		return v
	}

	reg("pcall", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		if len(args) == 0 {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'pcall' (value expected)"))
		}
		results, err := ctx.Call(args[0], args[1:])
		if err != nil {
			return []values.Value{values.Bool(false), errorMessage(ctx, err)}, nil
		}
		return append([]values.Value{values.Bool(true)}, results...), nil
	})

	reg("xpcall", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		if len(args) < 2 {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #2 to 'xpcall' (value expected)"))
		}
		handler := args[1]
		results, err := ctx.Call(args[0], args[2:])
		if err != nil {
			handled, herr := ctx.Call(handler, []values.Value{errorMessage(ctx, err)})
			if herr != nil {
				return []values.Value{values.Bool(false), errorMessage(ctx, herr)}, nil
			}
			return append([]values.Value{values.Bool(false)}, handled...), nil
		}
		return append([]values.Value{values.Bool(true)}, results...), nil
	})

	reg("error", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		// A level argument (args[1]) controlling position-prefixing is
		// accepted but ignored: no position info is attached here.
		return nil, ctx.Raise(arg(args, 0))
	})

	reg("assert", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		if len(args) == 0 || !args[0].Truthy() {
			msg := arg(args, 1)
			if msg.IsNil() {
				msg = ctx.Interner().NewString("assertion failed!")
			}
			return nil, ctx.Raise(msg)
		}
		return args, nil
	})

	reg("type", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		if len(args) == 0 {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'type' (value expected)"))
		}
		return []values.Value{ctx.Interner().NewString(values.TypeName(args[0]))}, nil
	})

	reg("tostring", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		return []values.Value{ctx.Interner().NewString(toString(arg(args, 0)))}, nil
	})

	reg("tonumber", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		n, ok := values.ToNumber(arg(args, 0))
		if !ok {
			return []values.Value{values.Nil()}, nil
		}
		return []values.Value{values.Number(n)}, nil
	})

	const protectKey = "__metatable"

	reg("setmetatable", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		t := arg(args, 0)
		if !t.IsTable() {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'setmetatable' (table expected)"))
		}
		tbl := t.AsTable()
		if tbl.Metatable != nil && !tbl.Metatable.Get(ctx.Interner().NewString(protectKey)).IsNil() {
			return nil, ctx.Raise(ctx.Interner().NewString("cannot change a protected metatable"))
		}
		mt := arg(args, 1)
		if mt.IsNil() {
			tbl.Metatable = nil
		} else if mt.IsTable() {
			tbl.Metatable = mt.AsTable()
		} else {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #2 to 'setmetatable' (nil or table expected)"))
		}
		return []values.Value{t}, nil
	})

	reg("getmetatable", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		mt := arg(args, 0).Metatable()
		if mt == nil {
			return []values.Value{values.Nil()}, nil
		}
		if protected := mt.Get(ctx.Interner().NewString(protectKey)); !protected.IsNil() {
			return []values.Value{protected}, nil
		}
		return []values.Value{values.TableValue(mt)}, nil
	})

	reg("rawget", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		t := arg(args, 0)
		if !t.IsTable() {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'rawget' (table expected)"))
		}
		return []values.Value{t.AsTable().Get(arg(args, 1))}, nil
	})

	reg("rawset", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		t := arg(args, 0)
		if !t.IsTable() {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'rawset' (table expected)"))
		}
		if err := t.AsTable().Set(arg(args, 1), arg(args, 2)); err != nil {
			return nil, ctx.Raise(ctx.Interner().NewString(err.Error()))
		}
		return []values.Value{t}, nil
	})

	reg("rawequal", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		return []values.Value{values.Bool(values.RawEqual(arg(args, 0), arg(args, 1)))}, nil
	})

	reg("print", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		parts := make([]any, len(args))
		for i, a := range args {
			parts[i] = toString(a)
		}
		line := fmt.Sprintln(parts...)
		fmt.Fprint(os.Stdout, line)
		return nil, nil
	})

	nextFn := reg("next", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		t := arg(args, 0)
		if !t.IsTable() {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'next' (table expected)"))
		}
		k, v, ok, err := t.AsTable().Next(arg(args, 1))
		if err != nil {
			return nil, ctx.Raise(ctx.Interner().NewString(err.Error()))
		}
		if !ok {
			return []values.Value{values.Nil()}, nil
		}
		return []values.Value{k, v}, nil
	})

	ipairsAux := values.NewNativeClosure("ipairs-iterator", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		t := arg(args, 0).AsTable()
		i := arg(args, 1).AsNumber() + 1
		v := t.Get(values.Number(i))
		if v.IsNil() {
			return []values.Value{values.Nil()}, nil
		}
		return []values.Value{values.Number(i), v}, nil
	})
	state.GC.Track(ipairsAux)
	ipairsAuxVal := values.FunctionValue(ipairsAux)

	reg("pairs", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		t := arg(args, 0)
		if !t.IsTable() {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'pairs' (table expected)"))
		}
		return []values.Value{nextFn, t, values.Nil()}, nil
	})

	reg("ipairs", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		t := arg(args, 0)
		if !t.IsTable() {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'ipairs' (table expected)"))
		}
		return []values.Value{ipairsAuxVal, t, values.Number(0)}, nil
	})

	reg("select", func(ctx values.CallContext, args []values.Value) ([]values.Value, error) {
		sel := arg(args, 0)
		rest := args[1:]
		if sel.IsString() && sel.AsString().Bytes() == "#" {
			return []values.Value{values.Number(float64(len(rest)))}, nil
		}
		n, ok := values.ToNumber(sel)
		if !ok {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'select' (number expected)"))
		}
		idx := int(n)
		if idx < 0 {
			idx = len(rest) + idx + 1
		}
		if idx < 1 {
			return nil, ctx.Raise(ctx.Interner().NewString("bad argument #1 to 'select' (index out of range)"))
		}
		if idx > len(rest) {
			return nil, nil
		}
		return rest[idx-1:], nil
	})
}

func toString(v values.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBoolean():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		return values.NumberToString(v.AsNumber())
	case v.IsString():
		return v.AsString().Bytes()
	case v.IsTable():
		return fmt.Sprintf("table: %p", v.AsTable())
	case v.IsFunction():
		return fmt.Sprintf("function: %p", v.AsFunction())
	case v.IsUserData():
		return fmt.Sprintf("userdata: %p", v.AsUserData())
	case v.IsThread():
		return fmt.Sprintf("thread: %p", v.AsThread())
	default:
		return "?"
	}
}
