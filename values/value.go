// Package values implements the tagged value model, the heap object
// layout (strings, tables, closures, userdata, upvalues) and the table
// engine of the execution core.
package values

import (
	"math"
	"strconv"
	"strings"
)

// Tag discriminates the variants of Value. It is deliberately a single
// byte so a Value's type can be tested without touching the payload.
type Tag byte

const (
	TNil Tag = iota
	TBoolean
	TNumber
	TLightUserData
	TString
	TTable
	TFunction
	TUserData
	TThread
)

func (t Tag) String() string {
	switch t {
	case TNil:
		return "nil"
	case TBoolean:
		return "boolean"
	case TNumber:
		return "number"
	case TLightUserData:
		return "userdata"
	case TString:
		return "string"
	case TTable:
		return "table"
	case TFunction:
		return "function"
	case TUserData:
		return "userdata"
	case TThread:
		return "thread"
	default:
		return "unknown"
	}
}

// Value is the tagged union every VM register and constant holds. The
// scalar payloads (num, boolean, light) and the heap-object payload
// (obj) are mutually exclusive and selected by Tag.
type Value struct {
	Tag     Tag
	num     float64
	boolean bool
	light   uintptr
	obj     any
}

var nilValue = Value{Tag: TNil}

// Nil returns the singleton nil value.
func Nil() Value { return nilValue }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Tag: TBoolean, boolean: b} }

// Number returns a number value.
func Number(n float64) Value { return Value{Tag: TNumber, num: n} }

// LightUserData returns an opaque, non-GC-tracked pointer value.
func LightUserData(p uintptr) Value { return Value{Tag: TLightUserData, light: p} }

// StringValue wraps an interned string object.
func StringValue(s *StringObj) Value { return Value{Tag: TString, obj: s} }

// TableValue wraps a table heap object.
func TableValue(t *Table) Value { return Value{Tag: TTable, obj: t} }

// FunctionValue wraps a closure heap object.
func FunctionValue(c *Closure) Value { return Value{Tag: TFunction, obj: c} }

// UserDataValue wraps a managed userdata heap object.
func UserDataValue(u *UserData) Value { return Value{Tag: TUserData, obj: u} }

// ThreadValue wraps a coroutine heap object. The payload is opaque to
// this package (it is populated and interpreted by package vm) so that
// values does not need to import vm.
func ThreadValue(t *Thread) Value { return Value{Tag: TThread, obj: t} }

// IsNil reports whether v is the nil value.
func (v Value) IsNil() bool { return v.Tag == TNil }

// IsBoolean reports whether v is a boolean.
func (v Value) IsBoolean() bool { return v.Tag == TBoolean }

// IsNumber reports whether v is a number.
func (v Value) IsNumber() bool { return v.Tag == TNumber }

// IsString reports whether v is a string.
func (v Value) IsString() bool { return v.Tag == TString }

// IsTable reports whether v is a table.
func (v Value) IsTable() bool { return v.Tag == TTable }

// IsFunction reports whether v is a function (closure).
func (v Value) IsFunction() bool { return v.Tag == TFunction }

// IsUserData reports whether v is a full userdata.
func (v Value) IsUserData() bool { return v.Tag == TUserData }

// IsThread reports whether v is a thread.
func (v Value) IsThread() bool { return v.Tag == TThread }

// AsBool returns the boolean payload. Only meaningful when Tag == TBoolean.
func (v Value) AsBool() bool { return v.boolean }

// AsNumber returns the numeric payload. Only meaningful when Tag == TNumber.
func (v Value) AsNumber() float64 { return v.num }

// AsLightUserData returns the raw pointer payload.
func (v Value) AsLightUserData() uintptr { return v.light }

// AsString returns the underlying string object, or nil if v is not a string.
func (v Value) AsString() *StringObj {
	if v.Tag != TString {
		return nil
	}
	return v.obj.(*StringObj)
}

// AsTable returns the underlying table, or nil if v is not a table.
func (v Value) AsTable() *Table {
	if v.Tag != TTable {
		return nil
	}
	return v.obj.(*Table)
}

// AsFunction returns the underlying closure, or nil if v is not a function.
func (v Value) AsFunction() *Closure {
	if v.Tag != TFunction {
		return nil
	}
	return v.obj.(*Closure)
}

// AsUserData returns the underlying userdata, or nil if v is not userdata.
func (v Value) AsUserData() *UserData {
	if v.Tag != TUserData {
		return nil
	}
	return v.obj.(*UserData)
}

// AsThread returns the underlying thread, or nil if v is not a thread.
func (v Value) AsThread() *Thread {
	if v.Tag != TThread {
		return nil
	}
	return v.obj.(*Thread)
}

// Truthy implements the language's truthiness rule: everything is true
// except nil and the boolean false.
func (v Value) Truthy() bool {
	if v.Tag == TNil {
		return false
	}
	if v.Tag == TBoolean {
		return v.boolean
	}
	return true
}

// Metatable returns the metatable attached to v's heap object, or nil.
// Only tables and userdata carry a metatable of their own. Strings
// share one metatable held by package vm's State (looked up there, not
// here); numbers, booleans and nil have none.
func (v Value) Metatable() *Table {
	switch v.Tag {
	case TTable:
		return v.obj.(*Table).Metatable
	case TUserData:
		return v.obj.(*UserData).Metatable
	default:
		return nil
	}
}

// RawEqual implements tag-then-contents raw equality: numbers compare
// by ==, strings by pointer identity (they are interned), tables,
// closures, userdata and threads by identity, booleans by value.
func RawEqual(a, b Value) bool {
	if a.Tag != b.Tag {
		// Lua treats no cross-type value as raw-equal, with the
		// historical exception that this implementation does not
		// special-case: numbers are the only coercible pair and
		// coercion never applies to raw equality.
		return false
	}
	switch a.Tag {
	case TNil:
		return true
	case TBoolean:
		return a.boolean == b.boolean
	case TNumber:
		return a.num == b.num
	case TLightUserData:
		return a.light == b.light
	case TString:
		return a.obj.(*StringObj) == b.obj.(*StringObj)
	case TTable:
		return a.obj.(*Table) == b.obj.(*Table)
	case TFunction:
		return a.obj.(*Closure) == b.obj.(*Closure)
	case TUserData:
		return a.obj.(*UserData) == b.obj.(*UserData)
	case TThread:
		return a.obj.(*Thread) == b.obj.(*Thread)
	default:
		return false
	}
}

// ToNumber implements the to-number coercion: numbers pass through,
// strings parse via strconv, everything else fails.
func ToNumber(v Value) (float64, bool) {
	switch v.Tag {
	case TNumber:
		return v.num, true
	case TString:
		return parseNumber(v.obj.(*StringObj).s)
	default:
		return 0, false
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") ||
		strings.HasPrefix(s, "-0x") || strings.HasPrefix(s, "-0X") {
		neg := false
		t := s
		if strings.HasPrefix(t, "-") {
			neg = true
			t = t[1:]
		}
		n, err := strconv.ParseUint(t[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		f := float64(n)
		if neg {
			f = -f
		}
		return f, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NumberToString formats a number with the configured precision
// (default: 14 significant digits), matching this component's
// documented default numeric formatter.
func NumberToString(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e14 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', 14, 64)
}

// TypeName returns the language-level type name of v, as reported by
// the base library's type() function.
func TypeName(v Value) string { return v.Tag.String() }

// HeapObject returns the GC-trackable heap object a Value wraps (a
// *StringObj, *Table, *Closure, *UserData or *Thread), or nil for a
// value with no heap payload (nil, boolean, number, light userdata).
// package gc's Collector keys its bookkeeping by this pointer, not by
// the Value wrapper itself, so any code recording a barrier or
// tracking a fresh allocation must unwrap through this first.
func HeapObject(v Value) any {
	switch v.Tag {
	case TString, TTable, TFunction, TUserData, TThread:
		return v.obj
	default:
		return nil
	}
}
