package values

import (
	"hash/fnv"
	"sync"
)

// StringObj is an interned, immutable byte sequence. Any two strings
// with equal bytes are the same *StringObj, so raw equality on strings
// is pointer equality.
type StringObj struct {
	s    string
	hash uint64
}

// Bytes returns the string's contents.
func (s *StringObj) Bytes() string { return s.s }

// Len returns the string's length in bytes.
func (s *StringObj) Len() int { return len(s.s) }

// Hash returns the string's precomputed hash.
func (s *StringObj) Hash() uint64 { return s.hash }

func (s *StringObj) String() string { return s.s }

// Interner is the global string intern table shared by every thread of
// a single state. It is the sole authority that mints *StringObj
// values, which is what lets raw string equality be a pointer compare.
type Interner struct {
	mu      sync.Mutex
	strings map[string]*StringObj
}

// NewInterner constructs an empty interner.
func NewInterner() *Interner {
	return &Interner{strings: make(map[string]*StringObj, 256)}
}

// Intern returns the canonical *StringObj for s, creating it on first
// use.
func (in *Interner) Intern(s string) *StringObj {
	in.mu.Lock()
	defer in.mu.Unlock()
	if obj, ok := in.strings[s]; ok {
		return obj
	}
	obj := &StringObj{s: s, hash: fnvHash(s)}
	in.strings[s] = obj
	return obj
}

// NewString interns s and wraps it as a Value.
func (in *Interner) NewString(s string) Value {
	return StringValue(in.Intern(s))
}

// Len reports how many distinct strings are currently interned. Useful
// for tests and memory introspection, never load-bearing for semantics.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.strings)
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
