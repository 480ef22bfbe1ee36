package values

// Thread is a sibling execution context sharing the owning state's
// globals, string table and GC. The fields that make a thread
// runnable (its own value stack, call-frame stack and saved program
// counter) are owned by package vm's Coroutine type; Impl is an opaque
// handle to that state so this package never has to import vm.
type Thread struct {
	ID     string
	Status string // "suspended", "running", "normal", "dead"
	impl   any
}

// Thread status constants, mirrored by package vm's Coroutine.
const (
	ThreadSuspended = "suspended"
	ThreadRunning   = "running"
	ThreadNormal    = "normal"
	ThreadDead      = "dead"
)

// NewThread constructs a thread value with the given identity, in the
// suspended state, with no implementation attached yet.
func NewThread(id string) *Thread {
	return &Thread{ID: id, Status: ThreadSuspended}
}

// Impl returns the vm-owned coroutine state attached to this thread.
func (t *Thread) Impl() any { return t.impl }

// SetImpl attaches the vm-owned coroutine state to this thread. Called
// once, right after the vm.Coroutine is constructed (stdlib's
// coroutine.create and haven.State.NewCoroutine do this).
func (t *Thread) SetImpl(impl any) { t.impl = impl }
