// Package vm implements the call frame and value stack, the
// metamethod resolution protocol, the string concatenation engine and
// the fetch-decode-execute dispatch loop: the execution core consuming
// compiled instructions from package values/opcodes.
package vm

import (
	"github.com/wudi/havenlua/gc"
	"github.com/wudi/havenlua/values"
)

// Config controls the resource limits of a State.
type Config struct {
	InitialStackSize int
	MaxStackSize     int
	MaxCallDepth     int
	GCStepBytes      int64
}

// DefaultConfig returns the resource limits used when none are given.
func DefaultConfig() Config {
	return Config{
		InitialStackSize: 256,
		MaxStackSize:     1 << 20,
		MaxCallDepth:     200,
		GCStepBytes:      1 << 16,
	}
}

// State is the global state shared by a main thread and any
// coroutines spawned from it: the string intern table, the global
// environment table, the registry, the shared string metatable, and
// the GC bookkeeping collector. Exactly one of a State's threads may
// be running at any instant (spec.md §5).
type State struct {
	ID string

	Config Config

	Interner  *values.Interner
	Globals   *values.Table
	Registry  *values.Table
	GC        *gc.Collector

	// stringMeta is the shared metatable consulted for metamethod
	// lookups on string values, since strings themselves never carry
	// a per-value metatable pointer.
	stringMeta *values.Table

	main *Thread
}

// NewState constructs a fresh State with its main thread.
func NewState(cfg Config) *State {
	if cfg.InitialStackSize <= 0 {
		cfg = DefaultConfig()
	}
	s := &State{
		ID:       values.NewID(),
		Config:   cfg,
		Interner: values.NewInterner(),
		Globals:  values.NewTable(),
		Registry: values.NewTable(),
		GC:       gc.NewCollector(cfg.GCStepBytes),
	}
	s.GC.Track(s.Globals)
	s.GC.Track(s.Registry)
	s.main = newThread(s, nil)
	s.main.Status = values.ThreadRunning
	return s
}

// MainThread returns the state's main (non-coroutine) thread.
func (s *State) MainThread() *Thread { return s.main }

// StringMetatable returns the shared metatable consulted for string
// metamethod lookups, creating it on first use.
func (s *State) StringMetatable() *values.Table {
	if s.stringMeta == nil {
		s.stringMeta = values.NewTable()
		s.GC.Track(s.stringMeta)
	}
	return s.stringMeta
}

// SetStringMetatable replaces the shared string metatable.
func (s *State) SetStringMetatable(t *values.Table) { s.stringMeta = t }

// NewString interns s against this state's shared string table.
func (s *State) NewString(str string) values.Value { return s.Interner.NewString(str) }
