package vm

import "github.com/wudi/havenlua/values"

// MaxTagLoop bounds metamethod chains (index/newindex chasing, and
// eq/lt/le metamethod chains) so a cyclic metatable fails with a
// dedicated error instead of recursing forever.
const MaxTagLoop = 100

// Metamethod event names recognised on a metatable.
const (
	evAdd      = "__add"
	evSub      = "__sub"
	evMul      = "__mul"
	evDiv      = "__div"
	evMod      = "__mod"
	evPow      = "__pow"
	evUnm      = "__unm"
	evConcat   = "__concat"
	evIndex    = "__index"
	evNewIndex = "__newindex"
	evEq       = "__eq"
	evLt       = "__lt"
	evLe       = "__le"
	evCall     = "__call"
	evLen      = "__len"
)

// metatableOf returns the metatable consulted for v's metamethods:
// its own, for tables and userdata, or the shared per-type metatable
// for strings (numbers, booleans and nil never have metatables in
// this implementation).
func (th *Thread) metatableOf(v values.Value) *values.Table {
	switch {
	case v.IsTable():
		return v.AsTable().Metatable
	case v.IsUserData():
		return v.AsUserData().Metatable
	case v.IsString():
		return th.state.StringMetatable()
	default:
		return nil
	}
}

// metamethod looks up event on v's metatable, returning Nil if v has
// no metatable or the event is unset.
func (th *Thread) metamethod(v values.Value, event string) values.Value {
	mt := th.metatableOf(v)
	if mt == nil {
		return values.Nil()
	}
	return mt.Get(th.interner.NewString(event))
}

// arithMetamethod implements the binary arithmetic/concat lookup rule:
// try the first operand's metamethod, then the second's.
func (th *Thread) arithMetamethod(a, b values.Value, event string) values.Value {
	if mm := th.metamethod(a, event); !mm.IsNil() {
		return mm
	}
	return th.metamethod(b, event)
}

// callBinaryMetamethod invokes a resolved binary metamethod with (a,
// b) and returns its first result (or nil if it returned nothing).
func (th *Thread) callBinaryMetamethod(mm, a, b values.Value) values.Value {
	results := th.call(mm, []values.Value{a, b})
	if len(results) == 0 {
		return values.Nil()
	}
	return results[0]
}

// Index performs a metamethod-aware table read: the same dispatch
// GETTABLE uses internally, exposed for callers outside this package
// (the host embedding API's GetField) that need the full __index
// protocol rather than a raw values.Table.Get.
func (th *Thread) Index(t, key values.Value) values.Value { return th.index(t, key) }

// NewIndex performs a metamethod-aware table write, the same dispatch
// SETTABLE uses internally.
func (th *Thread) NewIndex(t, key, val values.Value) { th.newIndex(t, key, val) }

// index implements index-read dispatch (spec.md §4.4): a table miss
// falls through to its __index (table: chain, function: call with
// (t, key)); a non-table with no __index fails with a type error.
// Chains are bounded by MaxTagLoop.
func (th *Thread) index(t values.Value, key values.Value) values.Value {
	cur := t
	for i := 0; i < MaxTagLoop; i++ {
		if cur.IsTable() {
			tbl := cur.AsTable()
			v := tbl.Get(key)
			if !v.IsNil() {
				return v
			}
			mm := th.metamethod(cur, evIndex)
			if mm.IsNil() {
				return values.Nil()
			}
			if mm.IsFunction() {
				results := th.call(mm, []values.Value{cur, key})
				if len(results) == 0 {
					return values.Nil()
				}
				return results[0]
			}
			cur = mm
			continue
		}
		mm := th.metamethod(cur, evIndex)
		if mm.IsNil() {
			th.raise(th.typeError("attempt to index a %s value", values.TypeName(cur)))
		}
		if mm.IsFunction() {
			results := th.call(mm, []values.Value{cur, key})
			if len(results) == 0 {
				return values.Nil()
			}
			return results[0]
		}
		cur = mm
	}
	th.raise(th.structuralError(ErrLoopInGetTable, "loop in gettable"))
	return values.Nil()
}

// newIndex implements index-write dispatch, symmetric to index.
func (th *Thread) newIndex(t values.Value, key, val values.Value) {
	cur := t
	for i := 0; i < MaxTagLoop; i++ {
		if cur.IsTable() {
			tbl := cur.AsTable()
			if !tbl.Get(key).IsNil() {
				th.mustSet(tbl, key, val)
				return
			}
			mm := th.metamethod(cur, evNewIndex)
			if mm.IsNil() {
				th.mustSet(tbl, key, val)
				return
			}
			if mm.IsFunction() {
				th.call(mm, []values.Value{cur, key, val})
				return
			}
			cur = mm
			continue
		}
		mm := th.metamethod(cur, evNewIndex)
		if mm.IsNil() {
			th.raise(th.typeError("attempt to index a %s value", values.TypeName(cur)))
		}
		if mm.IsFunction() {
			th.call(mm, []values.Value{cur, key, val})
			return
		}
		cur = mm
	}
	th.raise(th.structuralError(ErrLoopInSetTable, "loop in settable"))
}

func (th *Thread) mustSet(tbl *values.Table, key, val values.Value) {
	if err := tbl.Set(key, val); err != nil {
		th.raise(th.typeError("%s", err.Error()))
	}
	th.state.GC.Barrier(tbl, values.HeapObject(val))
}

// equals implements the equality metamethod rule (spec.md §4.4):
// only considered when both operands share a type, are tables or
// userdata, are not already raw-equal, and both metatables name the
// same __eq function.
func (th *Thread) equals(a, b values.Value) bool {
	if values.RawEqual(a, b) {
		return true
	}
	if a.Tag != b.Tag {
		return false
	}
	if !(a.IsTable() || a.IsUserData()) {
		return false
	}
	mmA := th.metamethod(a, evEq)
	mmB := th.metamethod(b, evEq)
	if mmA.IsNil() || mmB.IsNil() || !values.RawEqual(mmA, mmB) {
		return false
	}
	result := th.callBinaryMetamethod(mmA, a, b)
	return result.Truthy()
}

// lessThan implements ordering: both operands must share a type and
// provide the same __lt metamethod when not both numbers/strings.
func (th *Thread) lessThan(a, b values.Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsNumber() < b.AsNumber()
	}
	if a.IsString() && b.IsString() {
		return a.AsString().Bytes() < b.AsString().Bytes()
	}
	mm := th.orderMetamethod(a, b, evLt)
	return th.callBinaryMetamethod(mm, a, b).Truthy()
}

// lessEqual implements le, falling back to "not (b < a)" when no __le
// metamethod is found, per spec.md §4.4.
func (th *Thread) lessEqual(a, b values.Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsNumber() <= b.AsNumber()
	}
	if a.IsString() && b.IsString() {
		return a.AsString().Bytes() <= b.AsString().Bytes()
	}
	mmA := th.metamethod(a, evLe)
	mmB := th.metamethod(b, evLe)
	if !mmA.IsNil() && !mmB.IsNil() && values.RawEqual(mmA, mmB) {
		return th.callBinaryMetamethod(mmA, a, b).Truthy()
	}
	return !th.lessThan(b, a)
}

func (th *Thread) orderMetamethod(a, b values.Value, event string) values.Value {
	if a.Tag != b.Tag {
		th.raise(th.typeError("attempt to compare %s with %s", values.TypeName(a), values.TypeName(b)))
	}
	mmA := th.metamethod(a, event)
	mmB := th.metamethod(b, event)
	if mmA.IsNil() || mmB.IsNil() || !values.RawEqual(mmA, mmB) {
		th.raise(th.typeError("attempt to compare two %s values", values.TypeName(a)))
	}
	return mmA
}
