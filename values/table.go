package values

import (
	"errors"
	"math"

	"golang.org/x/exp/slices"
)

// Errors returned by the table engine's Set when the key violates a
// hard constraint.
var (
	ErrTableKeyNil = errors.New("table index is nil")
	ErrTableKeyNaN = errors.New("table index is NaN")
)

// maxArrayIndex bounds how large a positive integer key may be before
// it is always routed to the hash part, regardless of density. It
// mirrors the spirit of Lua's MAXASIZE without tying the bound to a
// specific int width.
const maxArrayIndex = 1 << 26

// Table is the hybrid array+hash associative container: a dense
// 1-indexed array part for positive-integer keys and an open hash part
// for everything else, plus an optional metatable.
type Table struct {
	array     []Value
	hash      map[Value]Value
	keyOrder  []Value // insertion order of hash keys, for a stable Next traversal
	Metatable *Table
}

// NewTable constructs an empty table.
func NewTable() *Table {
	return &Table{hash: make(map[Value]Value)}
}

// NewTableSize constructs a table with array and hash parts
// preallocated to the given sizes, the way the compiler's NEWTABLE
// instruction hints at expected occupancy.
func NewTableSize(arraySize, hashHint int) *Table {
	t := &Table{hash: make(map[Value]Value, hashHint)}
	if arraySize > 0 {
		t.array = make([]Value, arraySize)
		for i := range t.array {
			t.array[i] = Nil()
		}
	}
	return t
}

func positiveIntKey(key Value) (int, bool) {
	if key.Tag != TNumber {
		return 0, false
	}
	n := key.num
	if n != math.Trunc(n) || n < 1 || n > maxArrayIndex {
		return 0, false
	}
	return int(n), true
}

// Get returns the value bound to key, or Nil if there is none. Get
// never fails.
func (t *Table) Get(key Value) Value {
	if n, ok := positiveIntKey(key); ok && n <= len(t.array) {
		return t.array[n-1]
	}
	if v, ok := t.hash[key]; ok {
		return v
	}
	return Nil()
}

// Set stores val at key, growing the array or hash part as needed. Key
// must not be nil and must not be NaN.
func (t *Table) Set(key, val Value) error {
	if key.IsNil() {
		return ErrTableKeyNil
	}
	if key.Tag == TNumber && math.IsNaN(key.num) {
		return ErrTableKeyNaN
	}

	if n, ok := positiveIntKey(key); ok {
		if n <= len(t.array) {
			t.array[n-1] = val
			return nil
		}
		if n == len(t.array)+1 && !val.IsNil() {
			t.array = append(t.array, val)
			t.absorbFromHash()
			return nil
		}
	}

	if val.IsNil() {
		if _, exists := t.hash[key]; exists {
			delete(t.hash, key)
			t.removeFromOrder(key)
		}
		return nil
	}

	if _, exists := t.hash[key]; !exists {
		t.keyOrder = append(t.keyOrder, key)
	}
	t.hash[key] = val
	t.maybeRehash()
	return nil
}

// absorbFromHash pulls any keys that are now contiguous with the array
// part (len(array)+1, len(array)+2, ...) out of the hash part and into
// the array, the way appending to the end of a Lua table migrates
// previously-overflowed integer keys back in.
func (t *Table) absorbFromHash() {
	for {
		next := Number(float64(len(t.array) + 1))
		v, ok := t.hash[next]
		if !ok {
			break
		}
		delete(t.hash, next)
		t.removeFromOrder(next)
		t.array = append(t.array, v)
	}
}

// maybeRehash decides whether the array part should be grown to absorb
// integer keys currently stranded in the hash part, using the
// half-full power-of-two heuristic from the table engine's design: the
// chosen array size is the largest power of two for which at least
// half the slots would hold a live positive-integer key.
func (t *Table) maybeRehash() {
	intKeysInHash := 0
	for k := range t.hash {
		if _, ok := positiveIntKey(k); ok {
			intKeysInHash++
		}
	}
	if intKeysInHash == 0 {
		return
	}
	if intKeysInHash < (len(t.array)+1)/2+1 {
		return
	}
	t.rehash()
}

// rehash recomputes an ideal array size from every live positive
// integer key (array part and hash part combined) and redistributes
// all entries accordingly.
func (t *Table) rehash() {
	var counts [32]int
	add := func(n int) {
		if n <= 0 {
			return
		}
		b := bitsFor(n)
		if b < len(counts) {
			counts[b]++
		}
	}
	for i, v := range t.array {
		if !v.IsNil() {
			add(i + 1)
		}
	}
	for k := range t.hash {
		if n, ok := positiveIntKey(k); ok {
			add(n)
		}
	}

	bestSize := 0
	cumulative := 0
	for b := 0; b < len(counts); b++ {
		if counts[b] == 0 {
			continue
		}
		cumulative += counts[b]
		limit := 1 << uint(b)
		if cumulative >= limit/2 {
			bestSize = limit
		}
	}

	type kv struct {
		k, v Value
	}
	all := make([]kv, 0, len(t.array)+len(t.hash))
	for i, v := range t.array {
		if !v.IsNil() {
			all = append(all, kv{Number(float64(i + 1)), v})
		}
	}
	for k, v := range t.hash {
		all = append(all, kv{k, v})
	}

	newArray := make([]Value, bestSize)
	for i := range newArray {
		newArray[i] = Nil()
	}
	t.array = newArray
	t.hash = make(map[Value]Value)
	t.keyOrder = nil
	for _, p := range all {
		if n, ok := positiveIntKey(p.k); ok && n <= bestSize {
			t.array[n-1] = p.v
			continue
		}
		t.hash[p.k] = p.v
		t.keyOrder = append(t.keyOrder, p.k)
	}
}

func bitsFor(n int) int {
	b := 0
	for (1 << uint(b)) < n {
		b++
	}
	return b
}

func (t *Table) removeFromOrder(key Value) {
	if idx := slices.Index(t.keyOrder, key); idx >= 0 {
		t.keyOrder = append(t.keyOrder[:idx], t.keyOrder[idx+1:]...)
	}
}

// Length returns a border: an index n >= 0 such that Get(n) is
// non-nil and Get(n+1) is nil. Any border is acceptable for sparse
// tables; this implementation favours the array part's natural end,
// then walks into the hash part while it finds consecutive integer
// keys.
func (t *Table) Length() int {
	n := len(t.array)
	for n > 0 && t.array[n-1].IsNil() {
		n--
	}
	if n < len(t.array) {
		return n
	}
	j := n
	for {
		v, ok := t.hash[Number(float64(j+1))]
		if !ok || v.IsNil() {
			break
		}
		j++
	}
	return j
}

// Next is the iteration primitive. key is the nil value to begin a
// traversal, or a key previously returned to continue it. It returns
// ok == false once the traversal is exhausted.
func (t *Table) Next(key Value) (nextKey, nextVal Value, ok bool, err error) {
	if key.IsNil() {
		if k, v, found := t.firstArrayEntry(0); found {
			return k, v, true, nil
		}
		return t.nextHashFrom(-1)
	}

	if n, isInt := positiveIntKey(key); isInt && n <= len(t.array) {
		if k, v, found := t.firstArrayEntry(n); found {
			return k, v, true, nil
		}
		return t.nextHashFrom(-1)
	}

	idx := slices.Index(t.keyOrder, key)
	if idx == -1 {
		return Nil(), Nil(), false, errInvalidNextKey
	}
	return t.nextHashFrom(idx)
}

var errInvalidNextKey = errors.New("invalid key to 'next'")

func (t *Table) firstArrayEntry(from int) (Value, Value, bool) {
	for i := from; i < len(t.array); i++ {
		if !t.array[i].IsNil() {
			return Number(float64(i + 1)), t.array[i], true
		}
	}
	return Nil(), Nil(), false
}

func (t *Table) nextHashFrom(after int) (Value, Value, bool, error) {
	for i := after + 1; i < len(t.keyOrder); i++ {
		k := t.keyOrder[i]
		if v, ok := t.hash[k]; ok {
			return k, v, true, nil
		}
	}
	return Nil(), Nil(), false, nil
}
