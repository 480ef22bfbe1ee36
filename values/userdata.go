package values

// UserData is an opaque, garbage-collected block of host data with an
// optional metatable. Unlike light userdata (a bare pointer value),
// full userdata is a heap object the GC tracks and that can carry
// per-value behaviour through its metatable.
type UserData struct {
	Data      any
	Metatable *Table
}

// NewUserData wraps an arbitrary host value as managed userdata.
func NewUserData(data any) *UserData {
	return &UserData{Data: data}
}
