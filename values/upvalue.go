package values

// StackAccessor is implemented by whatever owns a live value stack
// (package vm's Thread) so that an open Upvalue can resolve through a
// stack index rather than a raw pointer. Indexing through the owner at
// access time, instead of caching a pointer into the stack, is what
// keeps an upvalue valid across a stack reallocation: the index never
// moves even when the backing array does.
type StackAccessor interface {
	StackGet(index int) Value
	StackSet(index int, v Value)
}

// Upvalue is a capture cell. While open, it aliases a live slot in its
// owning frame's stack (StackAccessor + index); once the frame exits,
// Close copies the current value into the cell and it becomes
// self-contained. Multiple closures may share one Upvalue instance.
type Upvalue struct {
	closed bool
	index  int
	owner  StackAccessor
	value  Value
}

// NewOpenUpvalue creates an upvalue aliasing index in owner's stack.
func NewOpenUpvalue(owner StackAccessor, index int) *Upvalue {
	return &Upvalue{owner: owner, index: index}
}

// NewClosedUpvalue creates an upvalue that already holds a fixed
// value, used for upvalues synthesized outside of any live frame.
func NewClosedUpvalue(v Value) *Upvalue {
	return &Upvalue{closed: true, value: v}
}

// IsOpen reports whether the upvalue still aliases a live stack slot.
func (u *Upvalue) IsOpen() bool { return !u.closed }

// Index returns the stack index this upvalue aliases while open. Only
// meaningful when IsOpen is true; used by the owning thread to find
// this upvalue in its open-upvalue list by stack position.
func (u *Upvalue) Index() int { return u.index }

// Get returns the upvalue's current value.
func (u *Upvalue) Get() Value {
	if u.closed {
		return u.value
	}
	return u.owner.StackGet(u.index)
}

// Set stores v into the upvalue.
func (u *Upvalue) Set(v Value) {
	if u.closed {
		u.value = v
		return
	}
	u.owner.StackSet(u.index, v)
}

// Close copies the aliased stack value into the cell and severs the
// link to the owning stack, transferring ownership of the value from
// the stack slot to the cell.
func (u *Upvalue) Close() {
	if u.closed {
		return
	}
	u.value = u.owner.StackGet(u.index)
	u.closed = true
	u.owner = nil
}
