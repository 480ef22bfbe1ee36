package vm

import (
	"errors"

	"github.com/wudi/havenlua/values"
)

// Coroutine is a cooperative continuation, not a parallel execution
// context: its backing Thread only ever runs while some other thread
// in the same State is blocked waiting on it, the two trading off
// through a pair of unbuffered channels so exactly one of them is
// ever actually executing Lua (spec.md §5, design notes §9). The Go
// goroutine under it is purely a mechanism for getting a separate Go
// call stack to suspend mid-function at an arbitrary point — Yield
// can be called from deep inside nested Lua-to-Lua calls — not a
// concurrency primitive exposed to the language.
type Coroutine struct {
	th *Thread

	resume chan []values.Value
	yield  chan yieldMsg

	started bool
}

type yieldMsg struct {
	values []values.Value
	err    *RuntimeError
	done   bool
}

// NewCoroutine creates a suspended coroutine that will invoke fn with
// its first Resume's arguments once started.
func NewCoroutine(state *State, fn values.Value) *Coroutine {
	th := newThread(state, nil)
	co := &Coroutine{
		th:     th,
		resume: make(chan []values.Value),
		yield:  make(chan yieldMsg),
	}
	th.coroutine = co
	go co.run(fn)
	return co
}

// Thread returns the coroutine's backing execution context.
func (co *Coroutine) Thread() *Thread { return co.th }

func (co *Coroutine) run(fn values.Value) {
	args := <-co.resume

	var results []values.Value
	var rtErr *RuntimeError
	func() {
		defer func() {
			if r := recover(); r != nil {
				uw, ok := r.(*unwind)
				if !ok {
					panic(r)
				}
				rtErr = uw.err
			}
		}()
		results = co.th.call(fn, args)
	}()

	co.th.Status = values.ThreadDead
	co.yield <- yieldMsg{values: results, err: rtErr, done: true}
}

// Resume hands control (and arguments) to the coroutine and blocks
// until it either yields, returns, or errors. caller, if non-nil, is
// marked "normal" (running but waiting on a resumee) for the duration.
func (co *Coroutine) Resume(caller *Thread, args []values.Value) (results []values.Value, done bool, err error) {
	switch co.th.Status {
	case values.ThreadDead:
		return nil, true, errors.New("cannot resume dead coroutine")
	case values.ThreadRunning, values.ThreadNormal:
		return nil, false, errors.New("cannot resume non-suspended coroutine")
	}

	co.th.Status = values.ThreadRunning
	co.th.resumer = caller
	if caller != nil {
		caller.Status = values.ThreadNormal
	}
	co.started = true

	co.resume <- args
	msg := <-co.yield

	if caller != nil {
		caller.Status = values.ThreadRunning
	}
	if !msg.done {
		co.th.Status = values.ThreadSuspended
	}
	if msg.err != nil {
		return nil, msg.done, msg.err
	}
	return msg.values, msg.done, nil
}

// Yield suspends th mid-call and hands args back to whoever is
// blocked in the owning Coroutine's Resume. It raises a runtime error
// if th is not a coroutine's thread (e.g. the main thread).
func (th *Thread) Yield(args []values.Value) []values.Value {
	if th.coroutine == nil {
		th.raise(th.newError(CategoryRuntime, "attempt to yield from outside a coroutine"))
	}
	return th.coroutine.Yield(args)
}

// Yield (on Coroutine) does the actual channel handshake backing
// Thread.Yield above: it hands args back to whoever is blocked in
// Resume, and blocks in turn until the next Resume supplies its
// continuation arguments. It must only be called from the goroutine
// running this coroutine's Thread.
func (co *Coroutine) Yield(args []values.Value) []values.Value {
	co.yield <- yieldMsg{values: args, done: false}
	return <-co.resume
}
