// Package haven is the host embedding API: the surface an application
// linking this runtime in as a library actually calls, as opposed to
// the execution core in package vm that it wraps. It mirrors the Lua
// C API's lua_State handle: a stack-indexed calling convention (Push,
// Pop, Get, Set, Insert, Remove, GetField, SetField) alongside the
// Go-native Call/Register helpers that most callers reach for first.
// Stack indices follow the C API's convention: positive indices count
// from 1 at the bottom of the stack, negative indices count from -1 at
// the top.
package haven

import (
	"fmt"

	"github.com/wudi/havenlua/stdlib"
	"github.com/wudi/havenlua/values"
	"github.com/wudi/havenlua/vm"
)

// Option configures a State at construction time.
type Option func(*vm.Config)

// WithStackSize sets the initial value-stack size of a State's main
// thread.
func WithStackSize(n int) Option {
	return func(c *vm.Config) { c.InitialStackSize = n }
}

// WithMaxCallDepth bounds call-frame depth (spec.md §4.3's stack
// overflow guard).
func WithMaxCallDepth(n int) Option {
	return func(c *vm.Config) { c.MaxCallDepth = n }
}

// WithGCStepBytes sets the allocation-debt threshold that triggers one
// bounded gc.Collector.Step per Checkpoint.
func WithGCStepBytes(n int64) Option {
	return func(c *vm.Config) { c.GCStepBytes = n }
}

// State is an embeddable runtime instance: its own globals, string
// table, registry, GC bookkeeping and main thread.
type State struct {
	vmState *vm.State
}

// New constructs a State with the base library (pcall, error, assert,
// pairs, ...) and the coroutine library already registered, the way a
// host normally wants it.
func New(opts ...Option) *State {
	cfg := vm.DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	s := &State{vmState: vm.NewState(cfg)}
	stdlib.Open(s.vmState)
	stdlib.OpenCoroutine(s.vmState)
	return s
}

// ID returns this State's correlation id, minted once at construction
// and otherwise inert: useful for tagging log lines and debug-hook
// trace output when a host embeds more than one State.
func (s *State) ID() string { return s.vmState.ID }

// Globals returns the global environment table.
func (s *State) Globals() *values.Table { return s.vmState.Globals }

// Registry returns the registry table, a place for native code to
// stash values without polluting the global environment.
func (s *State) Registry() *values.Table { return s.vmState.Registry }

// NewString interns a Go string as a language string Value.
func (s *State) NewString(str string) values.Value { return s.vmState.NewString(str) }

// NewTable constructs a fresh, GC-tracked table value.
func (s *State) NewTable() values.Value {
	t := values.NewTable()
	s.vmState.GC.Track(t)
	return values.TableValue(t)
}

// NewUserData wraps an arbitrary Go value as a GC-tracked userdata
// value the language can hold and pass around opaquely.
func (s *State) NewUserData(data any) values.Value {
	u := values.NewUserData(data)
	s.vmState.GC.Track(u)
	return values.UserDataValue(u)
}

// Register installs a native function under name in the global table.
func (s *State) Register(name string, fn values.GoFunction) {
	closure := values.NewNativeClosure(name, fn)
	s.vmState.GC.Track(closure)
	s.vmState.Globals.Set(s.vmState.NewString(name), values.FunctionValue(closure))
}

// Load parses a YAML chunk dump (see values.Undump) into a callable
// closure value. Producing that dump from source text is the job of a
// lexer/parser/code generator this module does not implement.
func (s *State) Load(data []byte, chunkName string) (values.Value, error) {
	proto, err := values.Undump(s.vmState.Interner, data)
	if err != nil {
		return values.Nil(), fmt.Errorf("haven: load %s: %w", chunkName, err)
	}
	if chunkName != "" {
		proto.Source = chunkName
	}
	closure := values.NewLuaClosure(proto, nil)
	return values.FunctionValue(closure), nil
}

// Call invokes fn with args and returns its results, or an error if
// execution raised one anywhere in the call chain (spec.md §7's
// protected-call boundary). Every host-facing call is protected; there
// is no unprotected variant exposed across the embedding boundary.
func (s *State) Call(fn values.Value, args ...values.Value) ([]values.Value, error) {
	return s.vmState.MainThread().Call(fn, args)
}

// absIndex translates a Lua-style stack index (1-based from the
// bottom, or negative counting back from the top) into an absolute
// slot in the main thread's value stack.
func (s *State) absIndex(idx int) int {
	th := s.vmState.MainThread()
	if idx >= 0 {
		return idx - 1
	}
	return th.Top() + idx
}

// Push pushes v onto the top of the stack.
func (s *State) Push(v values.Value) { s.vmState.MainThread().Push(v) }

// Pop removes and returns the value at the top of the stack.
func (s *State) Pop() values.Value { return s.vmState.MainThread().Pop() }

// Get reads the value at idx without removing it.
func (s *State) Get(idx int) values.Value {
	return s.vmState.MainThread().StackGet(s.absIndex(idx))
}

// Set overwrites the value at idx.
func (s *State) Set(idx int, v values.Value) {
	s.vmState.MainThread().StackSet(s.absIndex(idx), v)
}

// Insert moves the value at the top of the stack down into idx,
// shifting every value originally at idx..top-1 up by one slot
// (lua_insert).
func (s *State) Insert(idx int) {
	th := s.vmState.MainThread()
	at := s.absIndex(idx)
	top := th.Top() - 1
	v := th.StackGet(top)
	for i := top; i > at; i-- {
		th.StackSet(i, th.StackGet(i-1))
	}
	th.StackSet(at, v)
}

// Remove removes the value at idx, shifting every value above it down
// by one slot and shrinking the stack top (lua_remove).
func (s *State) Remove(idx int) {
	th := s.vmState.MainThread()
	at := s.absIndex(idx)
	top := th.Top()
	for i := at; i < top-1; i++ {
		th.StackSet(i, th.StackGet(i+1))
	}
	th.SetTop(top - 1)
}

// GetField reads field name off the value at idx, following the
// __index protocol the way a GETTABLE instruction would.
func (s *State) GetField(idx int, name string) values.Value {
	th := s.vmState.MainThread()
	t := th.StackGet(s.absIndex(idx))
	return th.Index(t, s.NewString(name))
}

// SetField writes field name on the value at idx, following the
// __newindex protocol the way a SETTABLE instruction would.
func (s *State) SetField(idx int, name string, v values.Value) error {
	th := s.vmState.MainThread()
	t := th.StackGet(s.absIndex(idx))
	return th.Protect(func() { th.NewIndex(t, s.NewString(name), v) })
}

// PCall is the stack-based protected call: it pops fn and its nargs
// arguments (fn pushed first, then each argument, deepest first) off
// the stack, calls it under the same protected boundary as Call, and
// pushes exactly nresults values, padding with nil when fn returned
// fewer (or every result fn produced, if nresults is negative). On error nothing is pushed back and the
// error is returned instead, mirroring lua_pcall.
func (s *State) PCall(nargs, nresults int) ([]values.Value, error) {
	th := s.vmState.MainThread()
	funcSlot := th.Top() - nargs - 1
	fn := th.StackGet(funcSlot)
	args := make([]values.Value, nargs)
	for i := 0; i < nargs; i++ {
		args[i] = th.StackGet(funcSlot + 1 + i)
	}
	th.SetTop(funcSlot)

	results, err := th.Call(fn, args)
	if err != nil {
		return nil, err
	}

	want := nresults
	if want < 0 {
		want = len(results)
	}
	for i := 0; i < want; i++ {
		if i < len(results) {
			th.Push(results[i])
		} else {
			th.Push(values.Nil())
		}
	}
	return results, nil
}

// Error raises v as a Lua-level error from host code, unwinding to the
// nearest protected-call boundary (PCall or Call).
func (s *State) Error(v values.Value) error {
	return s.vmState.MainThread().Raise(v)
}

// SetHook installs the debug hook fired by the main thread's dispatch
// loop.
func (s *State) SetHook(mask vm.HookMask, count int, hook vm.Hook) {
	s.vmState.MainThread().SetHook(mask, count, hook)
}

// NewCoroutine creates a suspended coroutine wrapping fn, returning
// its thread value.
func (s *State) NewCoroutine(fn values.Value) values.Value {
	co := vm.NewCoroutine(s.vmState, fn)
	th := values.NewThread(co.Thread().ID())
	th.SetImpl(co)
	return values.ThreadValue(th)
}

// Resume resumes a coroutine value previously created by NewCoroutine
// or the language-level coroutine.create, from the host rather than
// from Lua code.
func (s *State) Resume(threadVal values.Value, args ...values.Value) ([]values.Value, bool, error) {
	if !threadVal.IsThread() {
		return nil, true, fmt.Errorf("haven: Resume: not a thread value")
	}
	co, ok := threadVal.AsThread().Impl().(*vm.Coroutine)
	if !ok {
		return nil, true, fmt.Errorf("haven: Resume: thread has no attached coroutine")
	}
	return co.Resume(s.vmState.MainThread(), args)
}

// GCStats reports the bookkeeping collector's activity counters.
func (s *State) GCStats() gcStats {
	st := s.vmState.GC.Stats()
	return gcStats{Tracked: st.Tracked, Remembered: st.Remembered, Steps: st.Steps, Barriers: st.Barriers, Checkpoints: st.Checkpoints}
}

// gcStats mirrors gc.Stats without exposing package gc in this
// package's public API surface.
type gcStats struct {
	Tracked, Remembered         int
	Steps, Barriers, Checkpoints int64
}
